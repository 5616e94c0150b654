package common

import (
	"fmt"
	"strings"
)

// LogLevel represents the logging level
type LogLevel int

const (
	// DisabledLevel disables all logging. Use this to turn off logging completely.
	DisabledLevel LogLevel = iota

	// DebugLevel sets the logging level to debug. This level is used for detailed system operations.
	DebugLevel

	// InfoLevel sets the logging level to info. Use this for general operational entries about what's happening inside the application.
	InfoLevel

	// WarnLevel sets the logging level to warn. This level is used for non-critical entries that deserve eyes.
	WarnLevel

	// ErrorLevel sets the logging level to error. This level is used for errors that should definitely be noted and investigated.
	ErrorLevel
)

func (l LogLevel) String() string {
	switch l {
	case DisabledLevel:
		return "disabled"
	case DebugLevel:
		return "debug"
	case InfoLevel:
		return "info"
	case WarnLevel:
		return "warn"
	case ErrorLevel:
		return "error"
	default:
		return fmt.Sprintf("LogLevel(%d)", int(l))
	}
}

// ParseLogLevel maps a configuration string such as "info" or "WARN" to a LogLevel.
// "off" and "none" are accepted as aliases for disabled.
func ParseLogLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "disabled", "off", "none":
		return DisabledLevel, nil
	case "debug":
		return DebugLevel, nil
	case "info":
		return InfoLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	}
	return DisabledLevel, fmt.Errorf("unknown log level %q", s)
}
