package models

import (
	"fmt"
	"strings"
)

// ValidationError marks a candidate that is malformed or economically
// meaningless. The candidate is dropped; the cycle continues.
type ValidationError struct {
	Symbol string
	Reason string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid candidate %s: %s", e.Symbol, e.Reason)
}

// ConcurrencyError signals that a lock-guarded operation was requested
// while another operation holding the same key was still in flight.
type ConcurrencyError struct {
	Key string
}

// Error implements the error interface
func (e *ConcurrencyError) Error() string {
	return fmt.Sprintf("operation %q already in progress", e.Key)
}

// CostLimitError signals that a daily request or cost cap was reached.
// The planning step must abort the cycle rather than proceed with a
// partial plan.
type CostLimitError struct {
	Kind  string // requests, cost
	Used  float64
	Limit float64
}

// Error implements the error interface
func (e *CostLimitError) Error() string {
	return fmt.Sprintf("daily %s limit exceeded: %.2f of %.2f used", e.Kind, e.Used, e.Limit)
}

// PersistenceError wraps a failure to read or write through a persistence
// provider. State operations fall back to the next provider in the chain.
type PersistenceError struct {
	Op  string
	Err error
}

// Error implements the error interface
func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s failed: %v", e.Op, e.Err)
}

// Unwrap exposes the underlying error for errors.Is/As
func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// criticalPatterns are message fragments that mark an error as
// unrecoverable for the current session. Matching is case-insensitive.
var criticalPatterns = []string{
	"authentication",
	"unauthorized",
	"api key",
	"invalid credentials",
	"account locked",
	"account restricted",
}

// IsCritical reports whether an error belongs to the critical class that
// must force the agent into the paused state.
func IsCritical(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, p := range criticalPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}
