package services

import (
	"context"
	"errors"
	"time"

	"core/apperr"
	"core/models"
	"core/notify"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

type RoundService struct {
	db   *gorm.DB
	deps Deps
}

func NewRoundService(db *gorm.DB, deps Deps) *RoundService {
	return &RoundService{
		db:   db,
		deps: deps.withDefaults(),
	}
}

// TotalRounds is the configured competition depth.
func (s *RoundService) TotalRounds() int {
	return s.deps.TotalRounds
}

func (s *RoundService) GetAllRounds(ctx context.Context) ([]models.Round, error) {
	var rounds []models.Round
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&rounds).Error; err != nil {
		return nil, err
	}
	return rounds, nil
}

func (s *RoundService) GetRoundByID(ctx context.Context, id uint) (*models.Round, error) {
	return findRound(s.db.WithContext(ctx), id)
}

// LatestOpenRound returns the highest-numbered round that is still open, or
// nil when every round is closed.
func (s *RoundService) LatestOpenRound(ctx context.Context) (*models.Round, error) {
	var round models.Round
	err := s.db.WithContext(ctx).Where("is_closed = ?", false).Order("id DESC").First(&round).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &round, nil
}

// CreateFirstRound opens round 1. A zero target defaults to the current
// number of teams.
func (s *RoundService) CreateFirstRound(ctx context.Context, targetTeamCount int) (*models.Round, error) {
	ctx, span := startSpan(ctx, "RoundService.CreateFirstRound")
	var err error
	defer func() { endSpan(span, err) }()

	round := &models.Round{
		ID:       1,
		IsFirst:  true,
		IsFinal:  s.deps.TotalRounds <= 1,
		IsClosed: false,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rounds int64
		if err := tx.Model(&models.Round{}).Count(&rounds).Error; err != nil {
			return err
		}
		if rounds > 0 {
			return apperr.ErrFirstRoundExists
		}

		if targetTeamCount <= 0 {
			var teams int64
			if err := tx.Model(&models.Team{}).Count(&teams).Error; err != nil {
				return err
			}
			targetTeamCount = int(teams)
		}
		round.TargetTeamCount = targetTeamCount

		if err := tx.Create(round).Error; err != nil {
			if isUniqueViolation(err) {
				return apperr.ErrFirstRoundExists.Wrap(err)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.deps.Metrics.RoundCreated()
	s.deps.publish(ctx, notify.NewEvent(notify.EventRoundCreated, round.ID, 0, nil))
	s.deps.Logger.Info("first round created", "round_id", round.ID, "target_team_count", round.TargetTeamCount)
	return round, nil
}

// DeleteRound removes the latest round together with its sheets, entries and
// results. Older rounds cannot be deleted so ids stay contiguous.
func (s *RoundService) DeleteRound(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := findRound(lockRows(tx, "UPDATE"), id); err != nil {
			return err
		}

		var latest models.Round
		if err := tx.Order("id DESC").First(&latest).Error; err != nil {
			return err
		}
		if latest.ID != id {
			return apperr.ErrRoundNotLatest.Withf("round %d is not the latest round (%d)", id, latest.ID)
		}

		return tx.Delete(&models.Round{}, id).Error
	})
}

// GetParticipants lists the teams competing in a round. Everyone takes part
// in the first round; later rounds hold the survivors of the previous one in
// their previous rank order.
func (s *RoundService) GetParticipants(ctx context.Context, roundID uint) ([]models.Team, error) {
	db := s.db.WithContext(ctx)
	round, err := findRound(db, roundID)
	if err != nil {
		return nil, err
	}
	return participants(db, round)
}

// CreateNextRound carries the survivors of a closed round into round id+1 and
// copies its score sheets, all in one transaction.
func (s *RoundService) CreateNextRound(ctx context.Context, currentRoundID uint) (*models.NextRoundResponse, error) {
	start := time.Now()
	ctx, span := startSpan(ctx, "RoundService.CreateNextRound", attribute.Int("round.id", int(currentRoundID)))
	var err error
	defer func() {
		endSpan(span, err)
		s.deps.Metrics.ObserveSince("create_next_round", start)
	}()

	var (
		next  models.Round
		teams []models.Team
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := findRound(lockRows(tx, "UPDATE"), currentRoundID)
		if err != nil {
			return err
		}
		if !current.IsClosed {
			return apperr.ErrRoundNotClosed.Withf("round %d must be closed before creating the next round", current.ID)
		}
		if current.IsFinal {
			return apperr.ErrRoundIsFinal.Withf("round %d is the final round", current.ID)
		}

		var results int64
		if err := tx.Model(&models.RoundResult{}).Where("round_id = ?", current.ID).Count(&results).Error; err != nil {
			return err
		}
		if results == 0 {
			return apperr.ErrNoEliminationResults
		}

		var survivors []models.RoundResult
		if err := tx.Preload("Team").
			Where("round_id = ? AND is_in_danger = ?", current.ID, false).
			Order("rank ASC").
			Find(&survivors).Error; err != nil {
			return err
		}
		if len(survivors) == 0 {
			return apperr.ErrNoRemainingTeams
		}

		nextID := current.ID + 1
		var existing int64
		if err := tx.Model(&models.Round{}).Where("id = ?", nextID).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return apperr.ErrNextRoundExists.Withf("round %d already exists", nextID)
		}

		next = models.Round{
			ID:              nextID,
			IsFirst:         false,
			IsFinal:         int(nextID) >= s.deps.TotalRounds,
			TargetTeamCount: len(survivors),
		}
		if err := tx.Create(&next).Error; err != nil {
			if isUniqueViolation(err) {
				return apperr.ErrNextRoundExists.Wrap(err)
			}
			return err
		}

		var sheets []models.ScoreSheet
		if err := tx.Where("round_id = ?", current.ID).Order("criterion_id ASC").Find(&sheets).Error; err != nil {
			return err
		}
		if len(sheets) > 0 {
			copies := make([]models.ScoreSheet, 0, len(sheets))
			for _, sheet := range sheets {
				copies = append(copies, models.ScoreSheet{
					RoundID:     next.ID,
					CriterionID: sheet.CriterionID,
					MaxPoints:   sheet.MaxPoints,
				})
			}
			if err := tx.Omit("Criterion", "Entries").Create(&copies).Error; err != nil {
				return err
			}
		}

		teams = make([]models.Team, 0, len(survivors))
		for _, survivor := range survivors {
			teams = append(teams, survivor.Team)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.deps.Metrics.RoundCreated()
	s.deps.publish(ctx, notify.NewEvent(notify.EventRoundCreated, next.ID, 0, nil))
	s.deps.Logger.Info("round created",
		"round_id", next.ID,
		"from_round_id", currentRoundID,
		"teams", len(teams),
		"final", next.IsFinal)

	message := "Next round created"
	if next.IsFinal {
		message = "Final round created"
	}
	return &models.NextRoundResponse{
		Round:        next,
		Teams:        teams,
		IsFinalRound: next.IsFinal,
		Message:      message,
	}, nil
}

func findRound(db *gorm.DB, id uint) (*models.Round, error) {
	var round models.Round
	if err := db.First(&round, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrRoundNotFound.Withf("round %d not found", id)
		}
		return nil, err
	}
	return &round, nil
}

func participants(db *gorm.DB, round *models.Round) ([]models.Team, error) {
	var teams []models.Team
	if round.IsFirst {
		if err := db.Order("id ASC").Find(&teams).Error; err != nil {
			return nil, err
		}
		return teams, nil
	}

	var survivors []models.RoundResult
	if err := db.Preload("Team").
		Where("round_id = ? AND is_in_danger = ?", round.ID-1, false).
		Order("rank ASC").
		Find(&survivors).Error; err != nil {
		return nil, err
	}
	teams = make([]models.Team, 0, len(survivors))
	for _, survivor := range survivors {
		teams = append(teams, survivor.Team)
	}
	return teams, nil
}

func isParticipant(db *gorm.DB, round *models.Round, teamID uint) (bool, error) {
	if round.IsFirst {
		return true, nil
	}
	var count int64
	err := db.Model(&models.RoundResult{}).
		Where("round_id = ? AND team_id = ? AND is_in_danger = ?", round.ID-1, teamID, false).
		Count(&count).Error
	return count > 0, err
}
