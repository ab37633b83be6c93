// Package apperr defines the typed failures returned by the judging services.
package apperr

import (
	"errors"
	"fmt"
)

// Kind groups codes by how a caller should react to them.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindInvalidInput
	KindInvalidState
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindInvalidInput:
		return "invalid_input"
	case KindInvalidState:
		return "invalid_state"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

// Code is a machine-readable error code exposed to API clients.
type Code string

const (
	// Lookups
	CodeTeamNotFound      Code = "team_not_found"
	CodeMemberNotFound    Code = "member_not_found"
	CodeRoundNotFound     Code = "round_not_found"
	CodeCriterionNotFound Code = "criterion_not_found"

	// Input
	CodeInvalidScore Code = "invalid_score"
	CodeEmptyScores  Code = "empty_scores"
	CodeInvalidMax   Code = "invalid_max"

	// Round lifecycle
	CodeRoundClosed          Code = "round_closed"
	CodeRoundNotClosed       Code = "round_not_closed"
	CodeNoEliminationResults Code = "no_elimination_results"
	CodeNoRemainingTeams     Code = "no_remaining_teams"
	CodeRoundIsFinal         Code = "round_is_final"
	CodeTeamNotInRound       Code = "team_not_in_round"
	CodeRoundNotLatest       Code = "round_not_latest"
	CodeCriterionLocked      Code = "criterion_locked"

	// Uniqueness
	CodeNextRoundExists    Code = "next_round_exists"
	CodeFirstRoundExists   Code = "first_round_exists"
	CodeTeamNameTaken      Code = "team_name_taken"
	CodeCriterionNameTaken Code = "criterion_name_taken"
	CodeCriterionInUse     Code = "criterion_in_use"
)

// Error is the service error type.
type Error struct {
	Kind    Kind
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// Withf returns a copy carrying a more specific message. The code is kept so
// errors.Is still matches the sentinel.
func (e *Error) Withf(format string, args ...any) *Error {
	return &Error{
		Kind:    e.Kind,
		Code:    e.Code,
		Message: fmt.Sprintf(format, args...),
		Cause:   e.Cause,
	}
}

// Wrap returns a copy of e that wraps cause.
func (e *Error) Wrap(cause error) *Error {
	return &Error{
		Kind:    e.Kind,
		Code:    e.Code,
		Message: e.Message,
		Cause:   cause,
	}
}

func New(kind Kind, code Code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

var (
	ErrTeamNotFound      = New(KindNotFound, CodeTeamNotFound, "team not found")
	ErrMemberNotFound    = New(KindNotFound, CodeMemberNotFound, "member not found")
	ErrRoundNotFound     = New(KindNotFound, CodeRoundNotFound, "round not found")
	ErrCriterionNotFound = New(KindNotFound, CodeCriterionNotFound, "criterion not found")

	ErrInvalidScore = New(KindInvalidInput, CodeInvalidScore, "invalid score")
	ErrEmptyScores  = New(KindInvalidInput, CodeEmptyScores, "no scores submitted")
	ErrInvalidMax   = New(KindInvalidInput, CodeInvalidMax, "maximum points must be at least 1")

	ErrRoundClosed          = New(KindInvalidState, CodeRoundClosed, "round is closed")
	ErrRoundNotClosed       = New(KindInvalidState, CodeRoundNotClosed, "round is not closed yet")
	ErrNoEliminationResults = New(KindInvalidState, CodeNoEliminationResults, "round must be closed with elimination results before creating the next round")
	ErrNoRemainingTeams     = New(KindInvalidState, CodeNoRemainingTeams, "no remaining teams to carry into the next round")
	ErrRoundIsFinal         = New(KindInvalidState, CodeRoundIsFinal, "round is the final round")
	ErrTeamNotInRound       = New(KindInvalidState, CodeTeamNotInRound, "team does not take part in this round")
	ErrRoundNotLatest       = New(KindInvalidState, CodeRoundNotLatest, "only the latest round can be deleted")
	ErrCriterionLocked      = New(KindInvalidState, CodeCriterionLocked, "criterion is used by a closed round")

	ErrNextRoundExists    = New(KindConflict, CodeNextRoundExists, "next round already exists")
	ErrFirstRoundExists   = New(KindConflict, CodeFirstRoundExists, "first round already exists")
	ErrTeamNameTaken      = New(KindConflict, CodeTeamNameTaken, "team name already taken")
	ErrCriterionNameTaken = New(KindConflict, CodeCriterionNameTaken, "criterion name already taken")
	ErrCriterionInUse     = New(KindConflict, CodeCriterionInUse, "criterion is used by a score sheet")
)

// KindOf returns the kind of the first *Error in err's chain, or
// KindInternal when there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// CodeOf returns the code of the first *Error in err's chain.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
