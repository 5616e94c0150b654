// Package transport performs the single HTTPS POST behind every provider call
// and reduces connection-level failures to a closed vocabulary.
package transport

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptrace"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/1broseidon/sqlai/common"
	"github.com/1broseidon/sqlai/internal/logging"
)

const defaultMaxRedirects = 10

// Request is one POST: base URL, path, JSON body and headers.
type Request struct {
	BaseURL string
	Path    string
	Body    []byte
	Headers map[string]string
	// Timeout applies to connect, write and read. Zero means common.DefaultTimeout.
	Timeout time.Duration
}

// Response carries the status and body of any received response, 4xx and 5xx included.
type Response struct {
	StatusCode int
	Body       []byte
}

// IsSuccess reports a 2xx status.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Poster is what providers need from the network. A non-nil error is always
// a *Error; HTTP error statuses are returned as a Response, never as an error.
type Poster interface {
	Post(ctx context.Context, req *Request) (*Response, error)
}

// Client is the net/http implementation of Poster. It keeps no connections
// between calls; each Post dials, uses and closes its own connection.
type Client struct {
	maxRedirects int
	caFile       string
	rootCAs      *x509.CertPool
	localIP      string
	logger       logging.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithCAFile trusts the PEM bundle at path instead of the system roots.
// The file is read on every https call.
func WithCAFile(path string) Option {
	return func(c *Client) {
		c.caFile = path
	}
}

// WithRootCAs trusts pool instead of the system roots.
func WithRootCAs(pool *x509.CertPool) Option {
	return func(c *Client) {
		c.rootCAs = pool
	}
}

// WithLocalAddr binds outgoing connections to the given local IP.
// A value that is not an IP address fails every call with FailureBind.
func WithLocalAddr(ip string) Option {
	return func(c *Client) {
		c.localIP = strings.TrimSpace(ip)
	}
}

// WithMaxRedirects caps how many redirects are followed.
func WithMaxRedirects(n int) Option {
	return func(c *Client) {
		c.maxRedirects = n
	}
}

// WithLogger sets the logger used for per-call debug entries.
func WithLogger(logger logging.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a Client.
func New(options ...Option) *Client {
	c := &Client{
		maxRedirects: defaultMaxRedirects,
		logger:       logging.NewNopLogger(),
	}
	for _, option := range options {
		option(c)
	}
	return c
}

// Post sends req and returns the response, or a *Error if none was obtained.
func (c *Client) Post(ctx context.Context, req *Request) (*Response, error) {
	endpoint, err := ParseBaseURL(req.BaseURL)
	if err != nil {
		return nil, newError(FailureInvalidURL, err)
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = common.DefaultTimeout
	}

	var tlsConfig *tls.Config
	if endpoint.Scheme == "https" {
		tlsConfig, err = c.tlsConfig()
		if err != nil {
			return nil, newError(FailureCertLoad, err)
		}
	}

	dialer := &net.Dialer{Timeout: timeout}
	if c.localIP != "" {
		ip := net.ParseIP(c.localIP)
		if ip == nil {
			return nil, newError(FailureBind, fmt.Errorf("local address %q is not an IP address", c.localIP))
		}
		dialer.LocalAddr = &net.TCPAddr{IP: ip}
	}
	httpTransport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		TLSClientConfig:       tlsConfig,
		TLSHandshakeTimeout:   timeout,
		ResponseHeaderTimeout: timeout,
		DisableKeepAlives:     true,
		// Encoding is handled in readBody so unsupported encodings can be reported.
		DisableCompression: true,
	}
	defer httpTransport.CloseIdleConnections()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ctx, tracker := Track(ctx)
	httpClient := &http.Client{
		Transport: httpTransport,
		CheckRedirect: func(next *http.Request, via []*http.Request) error {
			if err := c.checkRedirect(next, via); err != nil {
				return err
			}
			tracker.p.reset()
			return nil
		},
	}

	url := endpoint.URL(req.Path)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(req.Body))
	if err != nil {
		return nil, newError(FailureInvalidURL, err)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	if httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("Accept-Encoding", "gzip")

	start := time.Now()
	resp, err := httpClient.Do(httpReq)
	if err != nil {
		terr := tracker.Classify(err)
		c.logger.Debugf("POST %s failed after %s: %s (%v)", url, time.Since(start), terr, err)
		return nil, terr
	}
	defer resp.Body.Close()

	body, readErr := readBody(resp)
	if readErr != nil {
		c.logger.Debugf("POST %s body read failed: %s (%v)", url, readErr, readErr.Err)
		return nil, readErr
	}

	c.logger.Debugf("POST %s -> %d (%d bytes) in %s", url, resp.StatusCode, len(body), time.Since(start))
	return &Response{StatusCode: resp.StatusCode, Body: body}, nil
}

func (c *Client) tlsConfig() (*tls.Config, error) {
	cfg := &tls.Config{MinVersion: tls.VersionTLS12}
	switch {
	case c.rootCAs != nil:
		cfg.RootCAs = c.rootCAs
	case c.caFile != "":
		pem, err := os.ReadFile(c.caFile)
		if err != nil {
			return nil, err
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates found in %s", c.caFile)
		}
		cfg.RootCAs = pool
	}
	return cfg, nil
}

func (c *Client) checkRedirect(_ *http.Request, via []*http.Request) error {
	if len(via) >= c.maxRedirects {
		return errTooManyRedirects
	}
	return nil
}

func readBody(resp *http.Response) ([]byte, *Error) {
	var reader io.Reader = resp.Body
	switch enc := strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))); enc {
	case "", "identity":
	case "gzip", "x-gzip":
		zr, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, classifyGzipHeader(err)
		}
		defer zr.Close()
		reader = zr
	default:
		return nil, newError(FailureEncoding, fmt.Errorf("content encoding %q", enc))
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, classifyBody(err)
	}
	return body, nil
}

// phase records how far a request got, from possibly concurrent trace hooks.
type phase struct {
	tlsStarted   atomic.Bool
	tlsDone      atomic.Bool
	connected    atomic.Bool
	wroteRequest atomic.Bool
}

// reset forgets the previous hop once a redirect is about to be followed.
func (p *phase) reset() {
	p.tlsStarted.Store(false)
	p.tlsDone.Store(false)
	p.connected.Store(false)
	p.wroteRequest.Store(false)
}

// Tracker classifies the failure of a request whose context it traced.
type Tracker struct {
	p *phase
}

// Track returns ctx with request-phase hooks installed. Requests made outside
// this package with the returned context, an SDK's own HTTP client included,
// can then be classified with the same vocabulary as Post.
func Track(ctx context.Context) (context.Context, *Tracker) {
	t := &Tracker{p: &phase{}}
	return httptrace.WithClientTrace(ctx, t.p.trace()), t
}

// Classify maps an error from an HTTP round trip onto the vocabulary.
// A nil Tracker classifies as if the request never connected.
func (t *Tracker) Classify(err error) *Error {
	if t == nil {
		return classifyDo(err, &phase{})
	}
	return classifyDo(err, t.p)
}

func (p *phase) trace() *httptrace.ClientTrace {
	return &httptrace.ClientTrace{
		TLSHandshakeStart: func() { p.tlsStarted.Store(true) },
		TLSHandshakeDone: func(_ tls.ConnectionState, err error) {
			if err == nil {
				p.tlsDone.Store(true)
			}
		},
		GotConn: func(httptrace.GotConnInfo) { p.connected.Store(true) },
		WroteRequest: func(info httptrace.WroteRequestInfo) {
			if info.Err == nil {
				p.wroteRequest.Store(true)
			}
		},
	}
}
