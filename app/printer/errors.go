package printer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
)

// Kind classifies a transport failure
type Kind int

const (
	KindNotConfigured Kind = iota + 1
	KindConnection
	KindIO
	KindTimeout
)

func (k Kind) String() string {
	switch k {
	case KindNotConfigured:
		return "not_configured"
	case KindConnection:
		return "connection_error"
	case KindIO:
		return "io_error"
	case KindTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is checks against an *Error
var (
	ErrNotConfigured = &Error{Kind: KindNotConfigured}
	ErrConnection    = &Error{Kind: KindConnection}
	ErrIO            = &Error{Kind: KindIO}
	ErrTimeout       = &Error{Kind: KindTimeout}
)

// Error is returned by every transport operation
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of a transport error, or 0 if err is not one
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return 0
}

func notConfigured(format string, args ...interface{}) error {
	return &Error{Kind: KindNotConfigured, Op: "configure", Err: fmt.Errorf(format, args...)}
}

// classify wraps a low-level error, turning deadline expiries into KindTimeout
func classify(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	if isTimeout(err) {
		kind = KindTimeout
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
