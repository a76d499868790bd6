package model

import (
	"errors"
	"fmt"
)

// Kind classifies an expected, user-facing failure. The string value is
// also the "code" field of API error bodies.
type Kind string

const (
	KindMissingInput       Kind = "missing_input"
	KindInvalidSymbol      Kind = "invalid_symbol"
	KindInvalidAmount      Kind = "invalid_amount"
	KindInsufficientFunds  Kind = "insufficient_funds"
	KindInsufficientShares Kind = "insufficient_shares"
	KindQuoteUnavailable   Kind = "quote_unavailable"
	KindUnauthenticated    Kind = "unauthenticated"
)

// Failure is a rejected command. It never wraps an infrastructure error;
// those travel as ordinary wrapped errors.
type Failure struct {
	Kind    Kind
	Message string
}

func (f *Failure) Error() string {
	return f.Message
}

// Is matches any Failure of the same kind, so errors.Is(err, &Failure{Kind: k}) works.
func (f *Failure) Is(target error) bool {
	t, ok := target.(*Failure)
	return ok && t.Kind == f.Kind
}

// Fail builds a Failure with a formatted message.
func Fail(kind Kind, format string, args ...any) *Failure {
	return &Failure{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the failure kind carried by err, if any.
func KindOf(err error) (Kind, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind, true
	}
	return "", false
}
