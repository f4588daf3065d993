package sources

import (
	"errors"
	"fmt"
)

// Sentinel errors for the failure taxonomy. A *FetchError matches exactly
// one of them with errors.Is.
var (
	ErrNetwork  = errors.New("network failure")
	ErrAPI      = errors.New("api failure")
	ErrNotFound = errors.New("not found")
)

type Kind int

const (
	KindNetwork Kind = iota
	KindAPI
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindAPI:
		return "api"
	case KindNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// FetchError is the single failure outcome produced by a Source.
type FetchError struct {
	Kind    Kind
	Op      string
	Status  int
	Message string
	Err     error
}

func (e *FetchError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s (status %d): %s", e.Op, e.Kind, e.Status, msg)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, msg)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

func (e *FetchError) Is(target error) bool {
	switch target {
	case ErrNetwork:
		return e.Kind == KindNetwork
	case ErrAPI:
		return e.Kind == KindAPI
	case ErrNotFound:
		return e.Kind == KindNotFound
	}
	return false
}

// IsNotFound reports whether err means the requested resource does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsRetryable reports whether repeating the identical request could succeed.
func IsRetryable(err error) bool {
	if err == nil || IsNotFound(err) {
		return false
	}
	return errors.Is(err, ErrNetwork) || errors.Is(err, ErrAPI)
}

// Message returns the human readable text for err suitable for display.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var fe *FetchError
	if errors.As(err, &fe) {
		switch {
		case fe.Message != "":
			return fe.Message
		case fe.Kind == KindNetwork:
			return "Could not reach the server. Check your connection and try again."
		case fe.Kind == KindNotFound:
			return "The requested content does not exist."
		default:
			return "The server could not complete the request."
		}
	}
	return err.Error()
}
