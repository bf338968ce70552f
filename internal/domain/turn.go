package domain

import (
	"context"
	"fmt"
)

type TurnPhase string

const (
	TurnIdle             TurnPhase = "idle"
	TurnAwaitingResponse TurnPhase = "awaiting_response"
	TurnStreaming        TurnPhase = "streaming"
	TurnSettled          TurnPhase = "settled"
)

type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeAborted Outcome = "aborted"
	OutcomeFailed  Outcome = "failed"
)

// TurnState is the lifecycle position of the most recent turn. Outcome is
// only meaningful once Phase is TurnSettled.
type TurnState struct {
	Phase   TurnPhase
	Outcome Outcome
}

func (s TurnState) String() string {
	if s.Phase == TurnSettled {
		return fmt.Sprintf("%s(%s)", s.Phase, s.Outcome)
	}
	return string(s.Phase)
}

func (s TurnState) Busy() bool {
	return s.Phase == TurnAwaitingResponse || s.Phase == TurnStreaming
}

func Settled(outcome Outcome) TurnState {
	return TurnState{Phase: TurnSettled, Outcome: outcome}
}

// TurnResult summarizes a settled turn for callers that drive the
// orchestrator directly, such as the one-shot CLI command.
type TurnResult struct {
	ID        string
	State     TurnState
	Reply     string
	Markup    string
	SessionID string
	Items     []StructuralItem
	FromCache bool
	Err       error
}

// Rejected reports whether Submit ignored the message without starting a
// turn.
func (r TurnResult) Rejected() bool {
	return r.ID == ""
}

type turnIDKey struct{}

// WithTurnID tags ctx with the turn id so outbound requests can carry it.
func WithTurnID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, turnIDKey{}, id)
}

func TurnIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(turnIDKey{}).(string)
	return id
}
