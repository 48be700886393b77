package client

import (
	"errors"
	"fmt"
)

// FetchKind classifies why a call failed
type FetchKind string

const (
	// KindNetwork means the request never got an HTTP response
	KindNetwork FetchKind = "network"
	// KindStatus means the server answered with a non-2xx status
	KindStatus FetchKind = "status"
	// KindDecode means the body could not be decoded
	KindDecode FetchKind = "decode"
)

// FetchError is returned by every Client method on failure
type FetchError struct {
	Kind     FetchKind
	Endpoint string
	Status   int
	Message  string
	Err      error
}

func (e *FetchError) Error() string {
	switch e.Kind {
	case KindStatus:
		if e.Message != "" {
			return fmt.Sprintf("%s: HTTP %d: %s", e.Endpoint, e.Status, e.Message)
		}
		return fmt.Sprintf("%s: HTTP %d", e.Endpoint, e.Status)
	default:
		return fmt.Sprintf("%s: %s error: %v", e.Endpoint, e.Kind, e.Err)
	}
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of a *FetchError, or "" for other errors
func KindOf(err error) FetchKind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}

// UserMessage returns the server supplied message when there is one
func UserMessage(err error, fallback string) string {
	var fe *FetchError
	if errors.As(err, &fe) && fe.Message != "" {
		return fe.Message
	}
	return fallback
}
