package planner

import (
	"errors"
	"fmt"
)

// Error types for classifying planner delivery failures.

// TransportError is a network failure, timeout or non-2xx status.
type TransportError struct {
	StatusCode int
	err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("planner returned %d: %v", e.StatusCode, e.err)
	}
	return e.err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.err
}

func NewTransportError(status int, err error) error {
	return &TransportError{StatusCode: status, err: err}
}

// MalformedResponseError is a body that is not JSON or lacks a usable mode.
type MalformedResponseError struct {
	Body []byte
	err  error
}

func (e *MalformedResponseError) Error() string {
	return e.err.Error()
}

func (e *MalformedResponseError) Unwrap() error {
	return e.err
}

func NewMalformedResponseError(body []byte, err error) error {
	const keep = 512
	if len(body) > keep {
		body = body[:keep]
	}
	return &MalformedResponseError{Body: append([]byte(nil), body...), err: err}
}

func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

func IsMalformed(err error) bool {
	var me *MalformedResponseError
	return errors.As(err, &me)
}
