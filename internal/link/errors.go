package link

import (
	"context"
	"errors"
	"fmt"
)

// ErrNoTerminatingLink is returned when the last link of a chain forwards.
var ErrNoTerminatingLink = errors.New("link: chain has no terminating link")

// NetworkError is a transport failure: no response, a malformed response or
// a non-2xx status.
type NetworkError struct {
	StatusCode int
	Message    string
	Body       []byte
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("network error: status %d: %s", e.StatusCode, e.Message)
	}
	return "network error: " + e.Message
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ErrorEnvelope groups the failures of one operation.
type ErrorEnvelope struct {
	Operation     *Operation
	Result        *Result
	GraphQLErrors []GraphQLError
	NetworkError  *NetworkError
}

// Envelope builds the envelope for an outcome, or returns nil when the
// outcome carries no failure. err is kept only when it is a NetworkError;
// any other error is wrapped into one.
func Envelope(op *Operation, res *Result, err error) *ErrorEnvelope {
	env := &ErrorEnvelope{Operation: op, Result: res}
	if res != nil {
		env.GraphQLErrors = res.Errors
	}
	if err != nil {
		var ne *NetworkError
		if !errors.As(err, &ne) {
			ne = &NetworkError{Message: err.Error(), Err: err}
		}
		env.NetworkError = ne
	}
	if len(env.GraphQLErrors) == 0 && env.NetworkError == nil {
		return nil
	}
	return env
}

// Code is extensions.code of the first GraphQL error, or "".
func (e *ErrorEnvelope) Code() string {
	if e == nil || len(e.GraphQLErrors) == 0 {
		return ""
	}
	return e.GraphQLErrors[0].Code()
}

// Canceled reports whether err is the caller abandoning the operation.
func Canceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
