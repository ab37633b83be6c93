package services

import (
	"context"
	"errors"

	"core/apperr"
	"core/models"
)

// AutoCloseService closes the running round when its deadline fires and can
// optionally open the next one right away.
type AutoCloseService struct {
	rounds      *RoundService
	elimination *EliminationService
	autoAdvance bool
}

func NewAutoCloseService(rounds *RoundService, elimination *EliminationService, autoAdvance bool) *AutoCloseService {
	return &AutoCloseService{
		rounds:      rounds,
		elimination: elimination,
		autoAdvance: autoAdvance,
	}
}

// AutoCloseOutcome reports what a deadline tick did. Closed is nil when no
// round was open.
type AutoCloseOutcome struct {
	Closed *models.RoundCloseResult
	Next   *models.NextRoundResponse
}

func (s *AutoCloseService) CloseLatestOpenRound(ctx context.Context) (*AutoCloseOutcome, error) {
	round, err := s.rounds.LatestOpenRound(ctx)
	if err != nil {
		return nil, err
	}
	if round == nil {
		return &AutoCloseOutcome{}, nil
	}

	closed, err := s.elimination.CloseRound(ctx, round.ID)
	if err != nil {
		// Lost a race with a manual close.
		if errors.Is(err, apperr.ErrRoundClosed) {
			return &AutoCloseOutcome{}, nil
		}
		return nil, err
	}

	outcome := &AutoCloseOutcome{Closed: closed}
	if !s.autoAdvance || closed.IsFinalRound {
		return outcome, nil
	}

	next, err := s.rounds.CreateNextRound(ctx, round.ID)
	if err != nil {
		return outcome, err
	}
	outcome.Next = next
	return outcome, nil
}
