package common

import "time"

// Fixed knobs of the function boundary. They are constants today so every
// invocation behaves the same; options on the client and adapter accept
// overrides for hosts that need different bounds.
const (
	// DefaultTimeout bounds connect, write and read of the single provider call.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxOutputSize is the host result buffer in bytes, terminator included.
	DefaultMaxOutputSize = 65535

	// MaxErrorMessageLength caps the error text copied into the host error slot.
	MaxErrorMessageLength = 255

	// ErrorBodyPreviewLength is how much of an unparseable error body is quoted
	// in a synthesized "HTTP <status> - <body>" message.
	ErrorBodyPreviewLength = 100
)
