package models

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindTransient
	KindDataUnavailable
	KindInvariant
	KindFatalAuth
)

func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindDataUnavailable:
		return "data_unavailable"
	case KindInvariant:
		return "invariant"
	case KindFatalAuth:
		return "fatal_auth"
	default:
		return "unknown"
	}
}

// Error: классифицированная ошибка ядра. Server=true для ответов 5xx.
type Error struct {
	Kind   Kind
	Op     string
	Err    error
	Server bool
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func Transient(op string, err error) error {
	return &Error{Kind: KindTransient, Op: op, Err: err}
}

func ServerError(op string, err error) error {
	return &Error{Kind: KindTransient, Op: op, Err: err, Server: true}
}

func DataUnavailable(op, msg string) error {
	return &Error{Kind: KindDataUnavailable, Op: op, Err: errors.New(msg)}
}

func Invariant(op, msg string) error {
	return &Error{Kind: KindInvariant, Op: op, Err: errors.New(msg)}
}

func FatalAuth(op string, err error) error {
	return &Error{Kind: KindFatalAuth, Op: op, Err: err}
}

// KindOf: вид ошибки; неклассифицированные считаются временными.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindTransient
}

func IsFatal(err error) bool { return KindOf(err) == KindFatalAuth }

func IsServer(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Server
}
