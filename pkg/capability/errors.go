package capability

import (
	"errors"
	"fmt"
)

// Kind classifies an external-capability failure for the retry machinery.
// Transient failures are retried by the queue; Rejected failures are terminal
// and must be surfaced on the owning entity, never retried.
type Kind int

const (
	KindTransient Kind = iota
	KindRejected
)

func (k Kind) String() string {
	switch k {
	case KindRejected:
		return "rejected"
	default:
		return "transient"
	}
}

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s (%s): %v", e.Message, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Transient(msg string, err error) error {
	return &Error{Kind: KindTransient, Message: msg, Err: err}
}

func Rejected(msg string, err error) error {
	return &Error{Kind: KindRejected, Message: msg, Err: err}
}

// IsRejected reports whether err is a terminal capability refusal. Anything
// else, including plain errors from the transport, counts as transient.
func IsRejected(err error) bool {
	var ce *Error
	return errors.As(err, &ce) && ce.Kind == KindRejected
}

// ClassifyStatus maps an HTTP response code to a failure kind: 5xx and 429
// are worth retrying, any other 4xx is a refusal.
func ClassifyStatus(code int) Kind {
	if code >= 500 || code == 429 {
		return KindTransient
	}
	return KindRejected
}
