// Package wire holds the response rules every HTTP provider shares: how a body
// is parsed, how a structured error is pulled out of it, and how an error
// status falls back to a raw-body message.
package wire

import (
	"context"
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"github.com/1broseidon/sqlai/common"
	"github.com/1broseidon/sqlai/transport"
	"github.com/bytedance/sonic"
)

// api matches encoding/json output: sorted map keys and HTML escaping.
var api = sonic.ConfigStd

type envelope struct {
	Error json.RawMessage `json:"error"`
}

// Marshal encodes a request body.
func Marshal(v interface{}) ([]byte, error) {
	return api.Marshal(v)
}

// Call posts req and returns the response body for a 2xx status.
// A transport failure becomes a KindTransport error and no body is looked at.
// Any other status goes through StatusError.
func Call(ctx context.Context, poster transport.Poster, provider string, req *transport.Request) (*transport.Response, error) {
	resp, err := poster.Post(ctx, req)
	if err != nil {
		return nil, common.NewError(common.KindTransport, err.Error(), err).WithProvider(provider)
	}
	if !resp.IsSuccess() {
		return nil, StatusError(provider, resp.StatusCode, resp.Body)
	}
	return resp, nil
}

// Parse decodes a success body into v. The body must be JSON, and a
// top-level error object takes precedence over any payload.
func Parse(provider string, resp *transport.Response, v interface{}) error {
	var env envelope
	if err := api.Unmarshal(resp.Body, &env); err != nil {
		return parseError(provider, err)
	}
	if msg, ok := ErrorMessage(env.Error); ok {
		return common.NewError(common.KindAPI, msg, nil).WithProvider(provider).WithStatus(resp.StatusCode)
	}
	if err := api.Unmarshal(resp.Body, v); err != nil {
		return parseError(provider, err)
	}
	return nil
}

// StatusError builds the error for a non-2xx response. A structured error
// message in the body wins; otherwise the status and the first
// common.ErrorBodyPreviewLength characters of the body are reported.
func StatusError(provider string, status int, body []byte) *common.Error {
	var env envelope
	if err := api.Unmarshal(body, &env); err == nil {
		if msg, ok := ErrorMessage(env.Error); ok {
			return common.NewError(common.KindAPI, msg, nil).WithProvider(provider).WithStatus(status)
		}
	}
	msg := fmt.Sprintf("HTTP %d - %s", status, Preview(body, common.ErrorBodyPreviewLength))
	return common.NewError(common.KindAPI, msg, nil).WithProvider(provider).WithStatus(status)
}

// ErrorMessage extracts the user-facing message from a raw "error" value.
// An object's non-empty string "message" is used as is, a bare string is used
// as is, and anything else is re-serialized compactly. Absent and null
// values report false.
func ErrorMessage(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}
	var v interface{}
	if err := api.Unmarshal(raw, &v); err != nil || v == nil {
		return "", false
	}
	switch e := v.(type) {
	case string:
		if e != "" {
			return e, true
		}
	case map[string]interface{}:
		if msg, ok := e["message"].(string); ok && msg != "" {
			return msg, true
		}
	}
	out, err := api.Marshal(v)
	if err != nil {
		return string(raw), true
	}
	return string(out), true
}

// MissingField reports a well-formed body that lacks the success payload.
func MissingField(provider, field string) *common.Error {
	return common.NewError(common.KindParse, "Invalid response format: missing "+field, nil).WithProvider(provider)
}

// EncodeError reports a request body that could not be serialized.
func EncodeError(provider string, err error) *common.Error {
	return common.NewError(common.KindParse, "JSON encode error: "+err.Error(), err).WithProvider(provider)
}

// Preview returns at most n characters of body without splitting a
// multi-byte sequence.
func Preview(body []byte, n int) string {
	i := 0
	for count := 0; i < len(body) && count < n; count++ {
		_, size := utf8.DecodeRune(body[i:])
		i += size
	}
	return string(body[:i])
}

func parseError(provider string, err error) *common.Error {
	return common.NewError(common.KindParse, "JSON parse error: "+err.Error(), err).WithProvider(provider)
}
