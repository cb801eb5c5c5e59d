package envelope

import "fmt"

// Kind classifies the outcome of mapping one envelope.
type Kind int

const (
	KindSuccess Kind = iota
	KindServiceFailure
	KindTransportFailure
)

func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindServiceFailure:
		return "service_failure"
	case KindTransportFailure:
		return "transport_failure"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is the failure side of a Result. Service failures carry the application code and
// message; transport failures carry a message and, when there was one, the underlying cause.
type Error struct {
	Kind    Kind
	Code    int
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Kind == KindServiceFailure {
		return fmt.Sprintf("service failure %d: %s", e.Code, e.Message)
	}
	if e.Message == "" && e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Result is the three-way outcome of mapping an envelope into a T.
type Result[T any] struct {
	kind  Kind
	value T
	err   *Error
}

// Success wraps a decoded payload.
func Success[T any](v T) Result[T] {
	return Result[T]{kind: KindSuccess, value: v}
}

// ServiceFailure reports a parsed envelope whose code is not the success code.
func ServiceFailure[T any](code int, message string) Result[T] {
	return Result[T]{
		kind: KindServiceFailure,
		err:  &Error{Kind: KindServiceFailure, Code: code, Message: message},
	}
}

// TransportFailure reports an envelope that could not be read, or a payload that could not be decoded.
func TransportFailure[T any](message string, cause error) Result[T] {
	return Result[T]{
		kind: KindTransportFailure,
		err:  &Error{Kind: KindTransportFailure, Message: message, Cause: cause},
	}
}

func (r Result[T]) Kind() Kind { return r.kind }

func (r Result[T]) IsSuccess() bool { return r.kind == KindSuccess }

// Value returns the payload and whether the result is a success.
func (r Result[T]) Value() (T, bool) {
	return r.value, r.kind == KindSuccess
}

// Code is the application code of a service failure, zero otherwise.
func (r Result[T]) Code() int {
	if r.err == nil {
		return 0
	}
	return r.err.Code
}

// Message is the failure message, empty on success.
func (r Result[T]) Message() string {
	if r.err == nil {
		return ""
	}
	return r.err.Message
}

// Err returns the *Error for failures and nil for a success.
func (r Result[T]) Err() error {
	if r.err == nil {
		return nil
	}
	return r.err
}

// Get unpacks the result into the usual value/error pair.
func (r Result[T]) Get() (T, error) {
	if r.err != nil {
		var zero T
		return zero, r.err
	}
	return r.value, nil
}

func (r Result[T]) String() string {
	if r.err != nil {
		return r.err.Error()
	}
	return fmt.Sprintf("success(%v)", r.value)
}
