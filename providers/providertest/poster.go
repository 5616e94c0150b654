// Package providertest provides a recording transport for provider tests.
package providertest

import (
	"context"
	"sync"

	"github.com/1broseidon/sqlai/transport"
)

// Poster records every request and answers with a canned response or error.
type Poster struct {
	mu       sync.Mutex
	Response *transport.Response
	Err      error
	Requests []*transport.Request
}

// Respond returns a Poster that answers every call with status and body.
func Respond(status int, body string) *Poster {
	return &Poster{Response: &transport.Response{StatusCode: status, Body: []byte(body)}}
}

// Fail returns a Poster whose calls fail with the given transport failure.
func Fail(kind transport.FailureKind) *Poster {
	return &Poster{Err: &transport.Error{Kind: kind}}
}

func (p *Poster) Post(ctx context.Context, req *transport.Request) (*transport.Response, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Requests = append(p.Requests, req)
	if p.Err != nil {
		return nil, p.Err
	}
	return p.Response, nil
}

// Calls reports how many requests were posted.
func (p *Poster) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Requests)
}

// Last returns the most recent request, or nil.
func (p *Poster) Last() *transport.Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.Requests) == 0 {
		return nil
	}
	return p.Requests[len(p.Requests)-1]
}
