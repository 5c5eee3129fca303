package apperrors

import (
	"errors"
	"fmt"
	"strings"
)

// appError implements the apperrors.Error interface.
// Msg, MsgErr, Err, Prefix and Suffix return a derived error and never modify
// the receiver, so package level sentinels can be shared across goroutines.
// The Set* methods modify the receiver and are meant for declarations.
type appError struct {
	msg           string
	base          Error
	wrappedErrors []error
	statuscode    int
	kind          string
	expandError   bool
	prefix        string
	suffix        string
}

func (e *appError) Error() string {
	msg := e.msg
	if e.prefix != "" {
		msg = e.prefix + ": " + msg
	}
	if e.suffix != "" {
		msg += ": " + e.suffix
	}
	return msg
}

func (e *appError) ErrorAll() string {
	msg := e.Error()
	if !e.expandError || len(e.wrappedErrors) == 0 {
		return msg
	}
	var parts []string
	for _, err := range e.wrappedErrors {
		if err != nil {
			parts = append(parts, err.Error())
		}
	}
	if len(parts) == 0 {
		return msg
	}
	return msg + ": " + strings.Join(parts, ";")
}

func (e *appError) Unwrap() []error {
	return e.wrappedErrors
}

func (e *appError) New(msg string) Error {
	return &appError{
		msg:         msg,
		statuscode:  e.statuscode,
		expandError: e.expandError,
		base:        e,
	}
}

// derive returns a copy of e that reports e as its base.
func (e *appError) derive() *appError {
	d := &appError{
		msg:         e.msg,
		base:        e,
		statuscode:  e.statuscode,
		expandError: e.expandError,
		prefix:      e.prefix,
		suffix:      e.suffix,
	}
	if len(e.wrappedErrors) > 0 {
		d.wrappedErrors = append([]error(nil), e.wrappedErrors...)
	}
	return d
}

func (e *appError) Msg(msg string) Error {
	d := e.derive()
	d.msg = msg
	return d
}

func (e *appError) Msgf(format string, args ...any) Error {
	return e.Msg(fmt.Sprintf(format, args...))
}

func (e *appError) Prefix(prefix string) Error {
	d := e.derive()
	d.prefix = prefix
	return d
}

func (e *appError) Suffix(suffix string) Error {
	d := e.derive()
	d.suffix = suffix
	return d
}

func (e *appError) MsgErr(msg string, err ...error) Error {
	d := e.derive()
	d.msg = msg
	d.wrappedErrors = append(d.wrappedErrors, err...)
	return d
}

func (e *appError) Err(err ...error) Error {
	d := e.derive()
	d.wrappedErrors = append(d.wrappedErrors, err...)
	return d
}

func (e *appError) Is(target error) bool {
	if target == nil {
		return false
	}
	if e == target {
		return true
	}
	if e.base != nil && (e.base == target || e.base.Is(target)) {
		return true
	}
	for _, err := range e.wrappedErrors {
		if err != nil && errors.Is(err, target) {
			return true
		}
	}
	return false
}

func (e *appError) SetExpandError(expand bool) Error {
	e.expandError = expand
	return e
}

func (e *appError) SetStatusCode(code int) Error {
	e.statuscode = code
	return e
}

func (e *appError) StatusCode() int {
	if e.statuscode == 0 && e.base != nil {
		return e.base.StatusCode()
	}
	return e.statuscode
}

func (e *appError) SetKind(kind string) Error {
	e.kind = kind
	return e
}

// Kind returns the closest kind tag in the base chain.
func (e *appError) Kind() string {
	if e.kind != "" {
		return e.kind
	}
	if e.base != nil {
		return e.base.Kind()
	}
	return ""
}

func New(msg string) Error {
	return &appError{
		msg: msg,
	}
}

// As returns err as an Error when anything in its chain is one.
func As(err error) (Error, bool) {
	var appErr Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
