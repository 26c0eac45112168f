package ai

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the closed set of analysis failures.
type Kind int

const (
	KindConfigMissing Kind = iota + 1
	KindTransport
	KindRemote
	KindMalformed
)

func (k Kind) String() string {
	switch k {
	case KindConfigMissing:
		return "config_missing"
	case KindTransport:
		return "transport_failure"
	case KindRemote:
		return "remote_error"
	case KindMalformed:
		return "malformed_response"
	default:
		return "unknown"
	}
}

// ErrMissingAPIKey is the cause carried by KindConfigMissing errors.
var ErrMissingAPIKey = errors.New("missing GROQ API key")

// Error is returned by Client implementations for every failed analysis.
type Error struct {
	Kind Kind
	// Status and Body are set for KindRemote only.
	Status int
	Body   string
	Err    error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindConfigMissing:
		return ErrMissingAPIKey.Error()
	case KindRemote:
		return fmt.Sprintf("remote error: %d - %s", e.Status, e.Body)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s: %v", e.Kind, e.Err)
		}
		return e.Kind.String()
	}
}

func (e *Error) Unwrap() error {
	if e.Kind == KindConfigMissing && e.Err == nil {
		return ErrMissingAPIKey
	}
	return e.Err
}

// Retryable reports whether sending the same request again may succeed.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindTransport:
		return true
	case KindRemote:
		return e.Status == http.StatusTooManyRequests || e.Status >= http.StatusInternalServerError
	default:
		return false
	}
}

// KindOf extracts the Kind from err, or 0 if err is not an *Error.
func KindOf(err error) Kind {
	var aerr *Error
	if errors.As(err, &aerr) {
		return aerr.Kind
	}
	return 0
}
