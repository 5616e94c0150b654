package udf

import (
	"context"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/1broseidon/sqlai/common"
	"github.com/1broseidon/sqlai/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingInvoker struct {
	mu       sync.Mutex
	payload  string
	err      error
	requests []models.Request
}

func (r *recordingInvoker) Invoke(ctx context.Context, req models.Request) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, req)
	return r.payload, r.err
}

func (r *recordingInvoker) calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.requests)
}

func TestAIPromptSuccess(t *testing.T) {
	inv := &recordingInvoker{payload: "The capital is Paris."}
	res := New(inv).AIPrompt(context.Background(), String("anthropic"), String("claude-3-haiku-20240307"), String("sk"), String("Capital of France?"))

	require.Equal(t, ResultValue, res.Type)
	assert.Equal(t, "The capital is Paris.", res.Value())
	assert.Equal(t, len("The capital is Paris."), res.ActualLen)
	assert.False(t, res.Truncated)
	assert.Equal(t, byte(0), res.Bytes()[res.ActualLen])

	require.Len(t, inv.requests, 1)
	assert.Equal(t, models.Request{
		Provider:   "anthropic",
		Model:      "claude-3-haiku-20240307",
		Credential: "sk",
		Input:      "Capital of France?",
		Operation:  models.OperationGenerate,
	}, inv.requests[0])
}

func TestCreateEmbedSuccess(t *testing.T) {
	inv := &recordingInvoker{payload: "[0.1,0.2]"}
	res := New(inv).CreateEmbed(context.Background(), String("google"), String("text-embedding-004"), String("k"), String("hello"))

	require.Equal(t, ResultValue, res.Type)
	assert.Equal(t, "[0.1,0.2]", res.Value())
	assert.Equal(t, models.OperationEmbed, inv.requests[0].Operation)
}

func TestNullArgumentsShortCircuit(t *testing.T) {
	inv := &recordingInvoker{payload: "x"}
	a := New(inv)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		args := []Arg{String("anthropic"), String("m"), String("k"), String("p")}
		args[i] = Null()

		res := a.AIPrompt(ctx, args[0], args[1], args[2], args[3])
		assert.Equal(t, ResultNull, res.Type)
		res = a.CreateEmbed(ctx, args[0], args[1], args[2], args[3])
		assert.Equal(t, ResultNull, res.Type)
	}

	// NULL wins over an empty field or an unknown provider.
	res := a.AIPrompt(ctx, String(""), String("m"), String("k"), Null())
	assert.Equal(t, ResultNull, res.Type)
	assert.Zero(t, inv.calls())
}

func TestValidationOrder(t *testing.T) {
	tests := []struct {
		name   string
		args   [4]string
		prompt string
		embed  string
	}{
		{name: "provider", args: [4]string{"", "", "", ""}, prompt: "Provider name cannot be empty", embed: "Provider name cannot be empty"},
		{name: "model", args: [4]string{"anthropic", "", "", ""}, prompt: "Model name cannot be empty", embed: "Model name cannot be empty"},
		{name: "api key", args: [4]string{"anthropic", "m", "", ""}, prompt: "API key cannot be empty", embed: "API key cannot be empty"},
		{name: "text", args: [4]string{"anthropic", "m", "k", ""}, prompt: "Prompt text cannot be empty", embed: "Text cannot be empty"},
	}

	inv := &recordingInvoker{payload: "x"}
	a := New(inv)
	ctx := context.Background()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := a.AIPrompt(ctx, String(tt.args[0]), String(tt.args[1]), String(tt.args[2]), String(tt.args[3]))
			require.Equal(t, ResultError, res.Type)
			assert.Equal(t, tt.prompt, res.ErrorMsg)

			res = a.CreateEmbed(ctx, String(tt.args[0]), String(tt.args[1]), String(tt.args[2]), String(tt.args[3]))
			require.Equal(t, ResultError, res.Type)
			assert.Equal(t, tt.embed, res.ErrorMsg)
		})
	}
	assert.Zero(t, inv.calls())
}

func TestProviderErrorBecomesErrorResult(t *testing.T) {
	inv := &recordingInvoker{err: common.UnknownProviderError("foo")}
	res := New(inv).AIPrompt(context.Background(), String("foo"), String("m"), String("k"), String("p"))

	require.Equal(t, ResultError, res.Type)
	assert.Equal(t, "unknown provider: foo", res.ErrorMsg)
	assert.Empty(t, res.Value())
}

func TestValueTruncation(t *testing.T) {
	payload := strings.Repeat("a", 70000)
	res := New(&recordingInvoker{payload: payload}).AIPrompt(context.Background(), String("p"), String("m"), String("k"), String("x"))

	require.Equal(t, ResultValue, res.Type)
	assert.Equal(t, 65534, res.ActualLen)
	assert.Len(t, res.Bytes(), 65535)
	assert.True(t, res.Truncated)
	assert.Equal(t, payload[:65534], res.Value())
}

func TestValueTruncationIsByteExact(t *testing.T) {
	// "é" is two bytes; a 4-byte buffer keeps 3 payload bytes and may split it.
	res := New(&recordingInvoker{payload: "aéé"}, WithMaxOutputSize(4)).
		AIPrompt(context.Background(), String("p"), String("m"), String("k"), String("x"))
	assert.Equal(t, 3, res.ActualLen)
	assert.Equal(t, []byte{'a', 0xc3, 0xa9, 0}, res.Bytes())
}

func TestExactFitIsNotTruncated(t *testing.T) {
	res := New(&recordingInvoker{payload: "abc"}, WithMaxOutputSize(4)).
		AIPrompt(context.Background(), String("p"), String("m"), String("k"), String("x"))
	assert.Equal(t, "abc", res.Value())
	assert.False(t, res.Truncated)
}

func TestErrorMessageTruncation(t *testing.T) {
	long := strings.Repeat("e", 300)
	res := New(&recordingInvoker{err: common.NewError(common.KindAPI, long, nil)}).
		AIPrompt(context.Background(), String("p"), String("m"), String("k"), String("x"))
	require.Equal(t, ResultError, res.Type)
	assert.Len(t, res.ErrorMsg, 255)

	multi := strings.Repeat("é", 200)
	res = New(&recordingInvoker{err: common.NewError(common.KindAPI, multi, nil)}).
		AIPrompt(context.Background(), String("p"), String("m"), String("k"), String("x"))
	assert.LessOrEqual(t, len(res.ErrorMsg), 255)
	assert.True(t, utf8.ValidString(res.ErrorMsg))
	assert.Equal(t, 254, len(res.ErrorMsg))
}

func TestCall(t *testing.T) {
	a := New(&recordingInvoker{payload: "ok"})
	ctx := context.Background()

	res, err := a.Call(ctx, "ai_prompt", []Arg{String("p"), String("m"), String("k"), String("x")})
	require.NoError(t, err)
	assert.Equal(t, "ok", res.Value())

	_, err = a.Call(ctx, "ai_prompt", []Arg{String("p")})
	assert.Error(t, err)

	_, err = a.Call(ctx, "ai_summarize", nil)
	assert.ErrorIs(t, err, ErrUnknownFunction)
}

func TestFunctionsManifest(t *testing.T) {
	fns := New(nil).Functions()
	require.Len(t, fns, 2)
	assert.Equal(t, "ai_prompt", fns[0].Name)
	assert.Equal(t, "create_embed", fns[1].Name)
	for _, fn := range fns {
		assert.Len(t, fn.Params, 4)
		assert.Equal(t, 65535, fn.BufferSize)
	}
}

func TestStringPtr(t *testing.T) {
	assert.True(t, StringPtr(nil).Null)
	s := "x"
	assert.Equal(t, String("x"), StringPtr(&s))
}
