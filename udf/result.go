package udf

import (
	"unicode/utf8"

	"github.com/1broseidon/sqlai/common"
)

// ResultType tells the host how to read a Result.
type ResultType int

const (
	ResultValue ResultType = iota
	ResultNull
	ResultError
)

func (t ResultType) String() string {
	switch t {
	case ResultValue:
		return "value"
	case ResultNull:
		return "null"
	case ResultError:
		return "error"
	}
	return "unknown"
}

// Result is what one function call hands back to the host.
type Result struct {
	Type ResultType
	// ActualLen is the number of bytes in Value, excluding the terminator.
	ActualLen int
	// Truncated is set when the payload did not fit the output buffer.
	Truncated bool
	// ErrorMsg is set only for ResultError.
	ErrorMsg string

	buf []byte
}

// Value returns the text payload without the terminator.
func (r *Result) Value() string {
	if r.Type != ResultValue {
		return ""
	}
	return string(r.buf[:r.ActualLen])
}

// Bytes returns the payload followed by a single zero byte, as written into
// the host's output buffer.
func (r *Result) Bytes() []byte {
	return r.buf
}

func nullResult() *Result {
	return &Result{Type: ResultNull}
}

// valueResult keeps at most bufSize-1 bytes of payload so the terminator
// always fits. The cut is byte-exact.
func valueResult(payload string, bufSize int) *Result {
	limit := bufSize - 1
	if limit < 0 {
		limit = 0
	}
	n := len(payload)
	truncated := false
	if n > limit {
		n = limit
		truncated = true
	}
	buf := make([]byte, n+1)
	copy(buf, payload[:n])
	return &Result{Type: ResultValue, ActualLen: n, Truncated: truncated, buf: buf}
}

func errorResult(err error, maxLen int) *Result {
	msg := err.Error()
	if msg == "" {
		msg = "Unknown error"
	}
	return &Result{Type: ResultError, ErrorMsg: truncateMessage(msg, maxLen)}
}

// truncateMessage cuts msg to at most maxLen bytes without splitting a rune.
func truncateMessage(msg string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = common.MaxErrorMessageLength
	}
	if len(msg) <= maxLen {
		return msg
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(msg[cut]) {
		cut--
	}
	return msg[:cut]
}
