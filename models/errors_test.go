package models

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsCritical(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil error", err: nil, want: false},
		{name: "authentication failure", err: errors.New("broker authentication failed"), want: true},
		{name: "unauthorized", err: errors.New("401 Unauthorized"), want: true},
		{name: "bad api key", err: errors.New("Invalid API Key provided"), want: true},
		{name: "invalid credentials", err: errors.New("login rejected: invalid credentials"), want: true},
		{name: "account locked", err: errors.New("ACCOUNT LOCKED by compliance"), want: true},
		{name: "account restricted", err: errors.New("account restricted pending review"), want: true},
		{name: "wrapped critical", err: fmt.Errorf("submitting order: %w", errors.New("unauthorized")), want: true},
		{name: "network timeout", err: errors.New("dial tcp: i/o timeout"), want: false},
		{name: "insufficient funds", err: errors.New("insufficient buying power"), want: false},
		{name: "rate limited", err: errors.New("429 too many requests"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsCritical(tt.err); got != tt.want {
				t.Fatalf("IsCritical(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestErrorMessages(t *testing.T) {
	ve := &ValidationError{Symbol: "AAPL", Reason: "non-positive target price"}
	if ve.Error() != "invalid candidate AAPL: non-positive target price" {
		t.Fatalf("ValidationError message: %q", ve.Error())
	}

	ce := &ConcurrencyError{Key: "agent-pause"}
	if ce.Error() != `operation "agent-pause" already in progress` {
		t.Fatalf("ConcurrencyError message: %q", ce.Error())
	}

	cle := &CostLimitError{Kind: "request", Used: 100, Limit: 100}
	if cle.Error() != "daily request limit exceeded: 100.00 of 100.00 used" {
		t.Fatalf("CostLimitError message: %q", cle.Error())
	}
}

func TestPersistenceErrorUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	pe := &PersistenceError{Op: "store_agent_state", Err: cause}

	if !errors.Is(pe, cause) {
		t.Fatal("PersistenceError must unwrap to its cause")
	}
}
