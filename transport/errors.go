package transport

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"syscall"
)

// FailureKind enumerates the ways a call can end without any HTTP response.
type FailureKind int

const (
	FailureUnknown FailureKind = iota
	FailureInvalidURL
	FailureConnection
	FailureBind
	FailureRead
	FailureWrite
	FailureRedirectLimit
	FailureCanceled
	FailureTLSHandshake
	FailureCertLoad
	FailureTLSVerify
	FailureEncoding
	FailureCompression
)

var failureMessages = map[FailureKind]string{
	FailureUnknown:       "Unknown error",
	FailureInvalidURL:    "Invalid URL format",
	FailureConnection:    "Connection failed",
	FailureBind:          "Failed to bind IP address",
	FailureRead:          "Read error",
	FailureWrite:         "Write error",
	FailureRedirectLimit: "Too many redirects",
	FailureCanceled:      "Request canceled",
	FailureTLSHandshake:  "SSL connection failed",
	FailureCertLoad:      "Failed to load SSL certificates",
	FailureTLSVerify:     "SSL server verification failed",
	FailureEncoding:      "Unsupported encoding",
	FailureCompression:   "Compression error",
}

// String returns the user-facing message for the kind.
func (k FailureKind) String() string {
	if msg, ok := failureMessages[k]; ok {
		return msg
	}
	return failureMessages[FailureUnknown]
}

// Error is returned by Post when no HTTP response was obtained.
// Error() is the fixed vocabulary message; the underlying cause stays
// reachable through Unwrap for diagnostics.
type Error struct {
	Kind FailureKind
	Err  error
}

func (e *Error) Error() string {
	return e.Kind.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind FailureKind, cause error) *Error {
	return &Error{Kind: kind, Err: cause}
}

var errTooManyRedirects = errors.New("redirect limit exceeded")

// classifyDo maps an error from http.Client.Do onto the vocabulary, using
// the phase the request had reached when it failed.
func classifyDo(err error, p *phase) *Error {
	switch {
	case errors.Is(err, errTooManyRedirects):
		return newError(FailureRedirectLimit, err)
	case errors.Is(err, context.Canceled):
		return newError(FailureCanceled, err)
	case isVerification(err):
		return newError(FailureTLSVerify, err)
	case isBind(err):
		return newError(FailureBind, err)
	case isHandshake(err) || (p.tlsStarted.Load() && !p.tlsDone.Load()):
		return newError(FailureTLSHandshake, err)
	}

	if !isNetworkish(err) {
		return newError(FailureUnknown, err)
	}
	switch {
	case !p.connected.Load():
		return newError(FailureConnection, err)
	case !p.wroteRequest.Load():
		return newError(FailureWrite, err)
	default:
		return newError(FailureRead, err)
	}
}

// classifyBody maps an error raised while reading or decoding the body.
func classifyBody(err error) *Error {
	switch {
	case errors.Is(err, context.Canceled):
		return newError(FailureCanceled, err)
	case isCorruptStream(err):
		return newError(FailureCompression, err)
	default:
		return newError(FailureRead, err)
	}
}

// classifyGzipHeader treats anything but a network fault while reading the
// gzip header as a corrupt stream.
func classifyGzipHeader(err error) *Error {
	var netErr net.Error
	switch {
	case errors.Is(err, context.Canceled):
		return newError(FailureCanceled, err)
	case errors.As(err, &netErr), errors.Is(err, context.DeadlineExceeded):
		return newError(FailureRead, err)
	default:
		return newError(FailureCompression, err)
	}
}

func isVerification(err error) bool {
	var verifyErr *tls.CertificateVerificationError
	var authorityErr x509.UnknownAuthorityError
	var hostErr x509.HostnameError
	var invalidErr x509.CertificateInvalidError
	return errors.As(err, &verifyErr) ||
		errors.As(err, &authorityErr) ||
		errors.As(err, &hostErr) ||
		errors.As(err, &invalidErr)
}

func isBind(err error) bool {
	var sysErr *os.SyscallError
	if errors.As(err, &sysErr) && sysErr.Syscall == "bind" {
		return true
	}
	return errors.Is(err, syscall.EADDRNOTAVAIL) || errors.Is(err, syscall.EADDRINUSE)
}

func isHandshake(err error) bool {
	var recordErr tls.RecordHeaderError
	var alertErr tls.AlertError
	return errors.As(err, &recordErr) ||
		errors.As(err, &alertErr) ||
		errors.Is(err, http.ErrSchemeMismatch)
}

func isCorruptStream(err error) bool {
	var corrupt flate.CorruptInputError
	return errors.Is(err, gzip.ErrHeader) ||
		errors.Is(err, gzip.ErrChecksum) ||
		errors.As(err, &corrupt)
}

// isNetworkish reports whether the cause below *url.Error came from the
// network stack rather than from request construction or protocol parsing.
func isNetworkish(err error) bool {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		err = urlErr.Err
	}
	var netErr net.Error
	var errno syscall.Errno
	return errors.As(err, &netErr) ||
		errors.As(err, &errno) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF)
}
