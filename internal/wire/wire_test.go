package wire

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/1broseidon/sqlai/common"
	"github.com/1broseidon/sqlai/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePoster struct {
	resp  *transport.Response
	err   error
	calls int
}

func (f *fakePoster) Post(ctx context.Context, req *transport.Request) (*transport.Response, error) {
	f.calls++
	return f.resp, f.err
}

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		want   string
		wantOK bool
	}{
		{name: "absent", raw: "", wantOK: false},
		{name: "null", raw: "null", wantOK: false},
		{name: "object with message", raw: `{"type":"rate_limit_error","message":"rate limited"}`, want: "rate limited", wantOK: true},
		{name: "object without message", raw: `{"type":"overloaded","code":529}`, want: `{"code":529,"type":"overloaded"}`, wantOK: true},
		{name: "non-string message", raw: `{"message":42}`, want: `{"message":42}`, wantOK: true},
		{name: "empty message", raw: `{"message":"","code":1}`, want: `{"code":1,"message":""}`, wantOK: true},
		{name: "bare string", raw: `"model not found"`, want: "model not found", wantOK: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ErrorMessage(json.RawMessage(tt.raw))
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStatusErrorPrefersStructuredMessage(t *testing.T) {
	err := StatusError("anthropic", 429, []byte(`{"error":{"message":"rate limited"}}`))
	assert.Equal(t, "rate limited", err.Error())
	assert.Equal(t, common.KindAPI, err.Kind)
	assert.Equal(t, 429, err.StatusCode)
	assert.Equal(t, "anthropic", err.Provider)
}

func TestStatusErrorFallsBackToRawBody(t *testing.T) {
	assert.Equal(t, "HTTP 500 - oops", StatusError("google", 500, []byte("oops")).Error())
	assert.Equal(t, "HTTP 502 - ", StatusError("google", 502, nil).Error())
	assert.Equal(t, `HTTP 404 - {"detail":"nope"}`, StatusError("google", 404, []byte(`{"detail":"nope"}`)).Error())

	long := strings.Repeat("x", 250)
	assert.Equal(t, "HTTP 503 - "+strings.Repeat("x", 100), StatusError("google", 503, []byte(long)).Error())
}

func TestPreviewCountsCharacters(t *testing.T) {
	body := []byte(strings.Repeat("é", 120))
	got := Preview(body, 100)
	assert.Equal(t, strings.Repeat("é", 100), got)
	assert.Equal(t, "abc", Preview([]byte("abc"), 100))
}

func TestParse(t *testing.T) {
	var payload struct {
		Text string `json:"text"`
	}

	err := Parse("p", &transport.Response{StatusCode: 200, Body: []byte(`{"text":"hi"}`)}, &payload)
	require.NoError(t, err)
	assert.Equal(t, "hi", payload.Text)

	err = Parse("p", &transport.Response{StatusCode: 200, Body: []byte(`not json`)}, &payload)
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "JSON parse error: "), err.Error())
	assert.Equal(t, common.KindParse, common.KindOf(err))

	err = Parse("p", &transport.Response{StatusCode: 200, Body: []byte(`{"error":{"message":"bad"},"text":"ignored"}`)}, &payload)
	require.Error(t, err)
	assert.Equal(t, "bad", err.Error())
	assert.Equal(t, common.KindAPI, common.KindOf(err))

	err = Parse("p", &transport.Response{StatusCode: 200, Body: []byte(`{"error":null,"text":"ok"}`)}, &payload)
	require.NoError(t, err)
	assert.Equal(t, "ok", payload.Text)
}

func TestCallTransportFailureSkipsBody(t *testing.T) {
	poster := &fakePoster{err: &transport.Error{Kind: transport.FailureConnection, Err: errors.New("refused")}}

	_, err := Call(context.Background(), poster, "anthropic", &transport.Request{})
	require.Error(t, err)
	assert.Equal(t, "Connection failed", err.Error())
	assert.Equal(t, common.KindTransport, common.KindOf(err))

	var terr *transport.Error
	assert.True(t, errors.As(err, &terr))
	assert.Equal(t, 1, poster.calls)
}

func TestCallStatusError(t *testing.T) {
	poster := &fakePoster{resp: &transport.Response{StatusCode: 500, Body: []byte("oops")}}
	_, err := Call(context.Background(), poster, "anthropic", &transport.Request{})
	require.Error(t, err)
	assert.Equal(t, "HTTP 500 - oops", err.Error())
}

func TestMissingField(t *testing.T) {
	err := MissingField("google", "embedding.values")
	assert.Equal(t, "Invalid response format: missing embedding.values", err.Error())
	assert.Equal(t, common.KindParse, err.Kind)
}
