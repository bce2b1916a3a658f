package weather

import (
	"errors"
	"fmt"
)

// Kind classifies failures so callers can apply the right propagation
// policy: network failures surface to the session state, storage failures
// are absorbed and logged, validation failures are rejected before any
// network call, and configuration failures are fatal at startup.
type Kind int

const (
	KindUnknown Kind = iota
	KindNetwork
	KindStorage
	KindValidation
	KindConfig
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindStorage:
		return "storage"
	case KindValidation:
		return "validation"
	case KindConfig:
		return "config"
	default:
		return "unknown"
	}
}

// Error wraps an underlying failure with its classification and the
// operation that produced it.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s error", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func NewNetworkError(op string, err error) *Error {
	return &Error{Kind: KindNetwork, Op: op, Err: err}
}

func NewStorageError(op string, err error) *Error {
	return &Error{Kind: KindStorage, Op: op, Err: err}
}

func NewValidationError(op string, err error) *Error {
	return &Error{Kind: KindValidation, Op: op, Err: err}
}

func NewConfigError(op string, err error) *Error {
	return &Error{Kind: KindConfig, Op: op, Err: err}
}

func kindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func IsNetwork(err error) bool    { return kindOf(err) == KindNetwork }
func IsStorage(err error) bool    { return kindOf(err) == KindStorage }
func IsValidation(err error) bool { return kindOf(err) == KindValidation }
func IsConfig(err error) bool     { return kindOf(err) == KindConfig }
