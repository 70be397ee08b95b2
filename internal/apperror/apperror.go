package apperror

import (
	"errors"
	"unicode/utf8"
)

type Code string

const (
	Config      Code = "CONFIG"
	Network     Code = "NETWORK"
	Parse       Code = "PARSE"
	RemoteStore Code = "REMOTE_STORE"
	Invariant   Code = "INVARIANT"
)

// snippetLen bounds the raw upstream text kept on parse errors.
const snippetLen = 80

type AppError struct {
	code    Code
	message string
	snippet string
	err     error
}

func New(code Code, message string) *AppError {
	return &AppError{code: code, message: message}
}

// Wrap returns an AppError of the given code whose cause is err.
func Wrap(code Code, err error, message string) *AppError {
	return &AppError{code: code, message: message, err: err}
}

// WithSnippet attaches a bounded excerpt of the offending input.
func (e *AppError) WithSnippet(s string) *AppError {
	if len(s) > snippetLen {
		n := snippetLen
		for n > 0 && !utf8.RuneStart(s[n]) {
			n--
		}
		s = s[:n] + "..."
	}
	e.snippet = s
	return e
}

func (e *AppError) Error() string {
	msg := string(e.code) + ": " + e.message
	if e.err != nil {
		msg += ": " + e.err.Error()
	}
	if e.snippet != "" {
		msg += " (near " + quote(e.snippet) + ")"
	}
	return msg
}

func (e *AppError) Code() Code      { return e.code }
func (e *AppError) Message() string { return e.message }
func (e *AppError) Snippet() string { return e.snippet }
func (e *AppError) Unwrap() error   { return e.err }

// Is reports whether any error in err's chain is an AppError with code.
func Is(err error, code Code) bool {
	var ae *AppError
	if !errors.As(err, &ae) {
		return false
	}
	if ae.code == code {
		return true
	}
	return Is(ae.err, code)
}

// CodeOf returns the code of the outermost AppError in err's chain.
func CodeOf(err error) (Code, bool) {
	var ae *AppError
	if !errors.As(err, &ae) {
		return "", false
	}
	return ae.code, true
}

func quote(s string) string {
	return "\"" + s + "\""
}
