package marketdata

import (
	"errors"
	"fmt"
)

// Error kinds. Use errors.Is to classify a failure.
var (
	ErrFetch  = errors.New("market data fetch failed")
	ErrDecode = errors.New("market data decode failed")
)

// FetchError is a transport failure or an unexpected HTTP status.
type FetchError struct {
	Endpoint   string
	StatusCode int // zero when no response was received
	Body       string
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: unexpected status %d: %s", e.Endpoint, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("fetch %s: %v", e.Endpoint, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Is matches ErrFetch.
func (e *FetchError) Is(target error) bool { return target == ErrFetch }

// DecodeError is a response that does not match the expected schema.
type DecodeError struct {
	Endpoint string
	Reason   string
	Err      error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode %s: %s: %v", e.Endpoint, e.Reason, e.Err)
	}
	return fmt.Sprintf("decode %s: %s", e.Endpoint, e.Reason)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Is matches ErrDecode.
func (e *DecodeError) Is(target error) bool { return target == ErrDecode }
