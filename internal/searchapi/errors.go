package searchapi

import (
	"errors"
	"fmt"
)

// Kind classifies a failed API call.
type Kind int

const (
	// KindTransport covers unreachable hosts, timeouts and cancelled requests.
	KindTransport Kind = iota + 1
	// KindStatus is a response with a non-2xx status.
	KindStatus
	// KindDecode is a response body that is not the expected JSON.
	KindDecode
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindStatus:
		return "status"
	case KindDecode:
		return "decode"
	default:
		return "unknown"
	}
}

// Sentinels matched by errors.Is against an *Error of the same kind.
var (
	ErrTransport = errors.New("transport failure")
	ErrStatus    = errors.New("unexpected status")
	ErrDecode    = errors.New("malformed response")
)

// NetworkErrorMessage is shown when a failure carries no status text.
const NetworkErrorMessage = "Network error"

// Error is returned by every Client call that fails.
type Error struct {
	Op         string
	Kind       Kind
	Status     int
	StatusText string
	Err        error
}

func (e *Error) Error() string {
	if e.Kind == KindStatus {
		return fmt.Sprintf("%s: status %d %s", e.Op, e.Status, e.StatusText)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() []error {
	errs := []error{e.sentinel()}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func (e *Error) sentinel() error {
	switch e.Kind {
	case KindStatus:
		return ErrStatus
	case KindDecode:
		return ErrDecode
	default:
		return ErrTransport
	}
}

// UserMessage is the single string shown to the user for this failure.
func (e *Error) UserMessage() string {
	if e.Kind == KindStatus && e.StatusText != "" {
		return e.StatusText
	}
	return NetworkErrorMessage
}

// UserMessage derives the user-visible message for any error returned while
// searching. Non-API errors report their own text.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.UserMessage()
	}
	return err.Error()
}
