package services

import (
	"context"
	"time"

	"core/apperr"
	"core/models"
	"core/notify"
	"core/utils"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type EliminationService struct {
	db   *gorm.DB
	deps Deps
}

func NewEliminationService(db *gorm.DB, deps Deps) *EliminationService {
	return &EliminationService{
		db:   db,
		deps: deps.withDefaults(),
	}
}

// CloseRound ranks every team that was scored in the round, writes the round
// results and marks the round closed, all in one transaction. In a final
// round nobody is eliminated and the best team wins the competition;
// otherwise the lower half (rounded down) is flagged as in danger.
func (s *EliminationService) CloseRound(ctx context.Context, roundID uint) (*models.RoundCloseResult, error) {
	start := time.Now()
	ctx, span := startSpan(ctx, "EliminationService.CloseRound", attribute.Int("round.id", int(roundID)))
	var err error
	defer func() {
		endSpan(span, err)
		s.deps.Metrics.ObserveSince("close_round", start)
	}()

	var (
		result     *models.RoundCloseResult
		eliminated int
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		round, err := findRound(lockRows(tx, "UPDATE"), roundID)
		if err != nil {
			return err
		}
		if round.IsClosed {
			return apperr.ErrRoundClosed.Withf("round %d is already closed", round.ID)
		}

		standings, err := rankRound(tx, round.ID)
		if err != nil {
			return err
		}
		var survivors int
		eliminated, survivors = utils.MarkDanger(standings, round.IsFinal)

		if len(standings) > 0 {
			rows := make([]models.RoundResult, 0, len(standings))
			for _, st := range standings {
				rows = append(rows, models.RoundResult{
					TeamID:       st.TeamID,
					RoundID:      round.ID,
					Rank:         st.Rank,
					IsInDanger:   st.IsInDanger,
					AverageScore: utils.RoundAverage(st.Average),
				})
			}
			if err := tx.Omit("Team", "Round").Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "team_id"}, {Name: "round_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"rank", "is_in_danger", "average_score", "updated_at"}),
			}).Create(&rows).Error; err != nil {
				return err
			}
		}

		now := time.Now().UTC()
		if err := tx.Model(&models.Round{}).Where("id = ?", round.ID).Updates(map[string]interface{}{
			"is_closed":  true,
			"closed_at":  now,
			"updated_at": now,
		}).Error; err != nil {
			return err
		}

		ranked, err := withTeams(tx, standings)
		if err != nil {
			return err
		}

		result = &models.RoundCloseResult{
			RoundID:      round.ID,
			IsFinalRound: round.IsFinal,
			Rankings:     ranked,
		}
		if len(ranked) > 0 {
			winner := ranked[0]
			result.Winner = &winner
			if round.IsFinal {
				result.OverallWinner = &winner
			}
		}
		if !round.IsFinal {
			result.Summary = &models.EliminationSummary{
				Total:           len(standings),
				EliminatedCount: eliminated,
				SurvivorCount:   survivors,
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.deps.Metrics.RoundClosed(result.IsFinalRound, eliminated)
	s.deps.publish(ctx, notify.NewEvent(notify.EventRoundClosed, roundID, 0, nil))
	s.deps.Logger.Info("round closed",
		"round_id", roundID,
		"final", result.IsFinalRound,
		"ranked", len(result.Rankings),
		"eliminated", eliminated)
	return result, nil
}

// GetEliminationResults returns the stored results of a closed round, best
// rank first.
func (s *EliminationService) GetEliminationResults(ctx context.Context, roundID uint) (*models.EliminationResults, error) {
	db := s.db.WithContext(ctx)
	round, err := findRound(db, roundID)
	if err != nil {
		return nil, err
	}
	if !round.IsClosed {
		return nil, apperr.ErrRoundNotClosed.Withf("round %d is not closed yet", round.ID)
	}

	var results []models.RoundResult
	if err := db.Preload("Team").Where("round_id = ?", round.ID).Order("rank ASC").Find(&results).Error; err != nil {
		return nil, err
	}

	summary := models.EliminationSummary{Total: len(results)}
	for _, r := range results {
		if r.IsInDanger {
			summary.EliminatedCount++
		} else {
			summary.SurvivorCount++
		}
	}

	return &models.EliminationResults{
		RoundID:      round.ID,
		IsFinalRound: round.IsFinal,
		Results:      results,
		Summary:      summary,
	}, nil
}

// GetWinner recomputes the ranking of a closed round from its score entries
// with the same rule CloseRound applies. Winner is nil when nobody was scored.
func (s *EliminationService) GetWinner(ctx context.Context, roundID uint) (*models.WinnerResponse, error) {
	db := s.db.WithContext(ctx)
	round, err := findRound(db, roundID)
	if err != nil {
		return nil, err
	}
	if !round.IsClosed {
		return nil, apperr.ErrRoundNotClosed.Withf("round %d is not closed yet", round.ID)
	}

	standings, err := rankRound(db, round.ID)
	if err != nil {
		return nil, err
	}
	utils.MarkDanger(standings, round.IsFinal)

	response := &models.WinnerResponse{
		RoundID:      round.ID,
		IsFinalRound: round.IsFinal,
	}
	if len(standings) == 0 {
		return response, nil
	}

	ranked, err := withTeams(db, standings[:1])
	if err != nil {
		return nil, err
	}
	response.Winner = &ranked[0]
	return response, nil
}

// rankRound ranks the teams holding at least one entry in the round.
func rankRound(db *gorm.DB, roundID uint) ([]utils.Standing, error) {
	var entries []models.ScoreEntry
	err := db.Select("team_id", "points").
		Where("score_sheet_id IN (?)", db.Model(&models.ScoreSheet{}).Select("id").Where("round_id = ?", roundID)).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}

	points := make(map[uint][]int)
	for _, entry := range entries {
		points[entry.TeamID] = append(points[entry.TeamID], entry.Points)
	}
	return utils.RankTeams(points), nil
}

func withTeams(db *gorm.DB, standings []utils.Standing) ([]models.RankedTeam, error) {
	if len(standings) == 0 {
		return []models.RankedTeam{}, nil
	}

	ids := make([]uint, 0, len(standings))
	for _, st := range standings {
		ids = append(ids, st.TeamID)
	}
	var teams []models.Team
	if err := db.Where("id IN ?", ids).Find(&teams).Error; err != nil {
		return nil, err
	}
	byID := make(map[uint]models.Team, len(teams))
	for _, team := range teams {
		byID[team.ID] = team
	}

	ranked := make([]models.RankedTeam, 0, len(standings))
	for _, st := range standings {
		ranked = append(ranked, models.RankedTeam{
			Team:         byID[st.TeamID],
			Rank:         st.Rank,
			AverageScore: st.Average,
			IsInDanger:   st.IsInDanger,
		})
	}
	return ranked, nil
}
