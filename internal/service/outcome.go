package service

import "errors"

var (
	// ErrAIDisabled is returned by adapters that have no API key configured.
	ErrAIDisabled = errors.New("AI service is not enabled")
	// ErrUnusableOutput marks a reply that arrived but cannot be used.
	ErrUnusableOutput = errors.New("unusable AI output")
)

// Outcome is the result of one external call. Each call site decides what
// to fall back to through Or, so failures never leak to the user.
type Outcome[T any] struct {
	Value T
	Err   error
}

// Success wraps a usable value.
func Success[T any](v T) Outcome[T] { return Outcome[T]{Value: v} }

// Failure wraps an error.
func Failure[T any](err error) Outcome[T] { return Outcome[T]{Err: err} }

// OK reports whether the call produced a usable value.
func (o Outcome[T]) OK() bool { return o.Err == nil }

// Or returns the value, or fallback when the call failed.
func (o Outcome[T]) Or(fallback T) T {
	if o.Err != nil {
		return fallback
	}
	return o.Value
}
