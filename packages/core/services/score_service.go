package services

import (
	"context"
	"errors"
	"math"
	"sort"
	"strconv"
	"time"

	"core/apperr"
	"core/models"
	"core/notify"
	"core/utils"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ScoreService struct {
	db       *gorm.DB
	teams    TeamDirectory
	criteria CriterionDirectory
	deps     Deps
}

func NewScoreService(db *gorm.DB, teams TeamDirectory, criteria CriterionDirectory, deps Deps) *ScoreService {
	return &ScoreService{
		db:       db,
		teams:    teams,
		criteria: criteria,
		deps:     deps.withDefaults(),
	}
}

// ParseScoreInput converts JSON score values keyed by criterion id into
// integer points. Keys must be positive integers in canonical decimal form, so
// "01" and "1" cannot both name criterion 1. Values must be whole numbers.
func ParseScoreInput(raw map[string]float64) (map[uint]int, error) {
	if len(raw) == 0 {
		return nil, apperr.ErrEmptyScores
	}
	scores := make(map[uint]int, len(raw))
	for key, value := range raw {
		id, err := strconv.ParseUint(key, 10, 32)
		if err != nil || id == 0 {
			return nil, apperr.ErrInvalidScore.Withf("invalid criterion id %q", key)
		}
		if strconv.FormatUint(id, 10) != key {
			return nil, apperr.ErrInvalidScore.Withf("criterion id %q is not in canonical form", key)
		}
		if math.IsNaN(value) || math.IsInf(value, 0) || value != math.Trunc(value) {
			return nil, apperr.ErrInvalidScore.Withf("criterion %d: points must be a whole number, got %v", id, value)
		}
		if value < 0 || value > math.MaxInt32 {
			return nil, apperr.ErrInvalidScore.Withf("criterion %d: %v points is out of range", id, value)
		}
		scores[uint(id)] = int(value)
	}
	return scores, nil
}

// SubmitScores replaces the team's points for the given criteria of an open
// round. Criteria left out keep their previous entries. The whole submission
// is applied in one transaction; the score.updated event goes out after the
// commit.
func (s *ScoreService) SubmitScores(ctx context.Context, teamID, roundID uint, scores map[uint]int) (*models.TeamScores, error) {
	start := time.Now()
	ctx, span := startSpan(ctx, "ScoreService.SubmitScores",
		attribute.Int("team.id", int(teamID)),
		attribute.Int("round.id", int(roundID)),
		attribute.Int("scores.count", len(scores)))
	var err error
	defer func() {
		endSpan(span, err)
		outcome := "ok"
		if err != nil {
			outcome = string(apperr.CodeOf(err))
			if outcome == "" {
				outcome = "error"
			}
		}
		s.deps.Metrics.SubmissionOutcome(outcome)
		s.deps.Metrics.ObserveSince("submit_scores", start)
	}()

	if len(scores) == 0 {
		err = apperr.ErrEmptyScores
		return nil, err
	}

	criterionIDs := make([]uint, 0, len(scores))
	for id, points := range scores {
		if points < 0 {
			err = apperr.ErrInvalidScore.Withf("criterion %d: points must not be negative, got %d", id, points)
			return nil, err
		}
		criterionIDs = append(criterionIDs, id)
	}
	// Fixed order keeps concurrent submissions from locking sheets in
	// different orders.
	sort.Slice(criterionIDs, func(i, j int) bool { return criterionIDs[i] < criterionIDs[j] })

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// A shared lock on the round makes a concurrent close wait for this
		// submission, and makes this submission see a close that won.
		round, err := findRound(lockRows(tx, "SHARE"), roundID)
		if err != nil {
			return err
		}
		if round.IsClosed {
			return apperr.ErrRoundClosed.Withf("round %d is closed", round.ID)
		}

		exists, err := s.teams.TeamExists(ctx, tx, teamID)
		if err != nil {
			return err
		}
		if !exists {
			return apperr.ErrTeamNotFound.Withf("team %d not found", teamID)
		}
		// Serializes submissions for the same team.
		if err := lockRows(tx, "UPDATE").Select("id").First(&models.Team{}, teamID).Error; err != nil {
			return err
		}

		ok, err := isParticipant(tx, round, teamID)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.ErrTeamNotInRound.Withf("team %d was eliminated before round %d", teamID, round.ID)
		}

		for _, criterionID := range criterionIDs {
			sheet, err := s.sheetFor(ctx, tx, round.ID, criterionID)
			if err != nil {
				return err
			}

			points := scores[criterionID]
			if points > sheet.MaxPoints {
				return apperr.ErrInvalidScore.Withf("criterion %d: %d points exceeds the maximum of %d", criterionID, points, sheet.MaxPoints)
			}

			entry := models.ScoreEntry{
				ScoreSheetID: sheet.ID,
				TeamID:       teamID,
				Points:       points,
			}
			if err := tx.Omit("Team").Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "score_sheet_id"}, {Name: "team_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"points", "updated_at"}),
			}).Create(&entry).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.deps.publish(ctx, notify.NewEvent(notify.EventScoreUpdated, roundID, teamID, scores))

	var result *models.TeamScores
	result, err = s.GetTeamScores(ctx, teamID, roundID)
	return result, err
}

// sheetFor finds the round's sheet for a criterion, creating it with the
// catalog maximum when the criterion has never been scored in this round.
func (s *ScoreService) sheetFor(ctx context.Context, tx *gorm.DB, roundID, criterionID uint) (*models.ScoreSheet, error) {
	var sheet models.ScoreSheet
	err := tx.Where("round_id = ? AND criterion_id = ?", roundID, criterionID).First(&sheet).Error
	if err == nil {
		return &sheet, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	maxPoints, err := s.criteria.CriterionMax(ctx, tx, criterionID)
	if err != nil {
		return nil, err
	}

	sheet = models.ScoreSheet{
		RoundID:     roundID,
		CriterionID: criterionID,
		MaxPoints:   maxPoints,
	}
	if err := tx.Omit("Criterion", "Entries").Clauses(clause.OnConflict{DoNothing: true}).Create(&sheet).Error; err != nil {
		return nil, err
	}
	if sheet.ID != 0 {
		return &sheet, nil
	}

	// Another submission created it first.
	sheet = models.ScoreSheet{}
	if err := tx.Where("round_id = ? AND criterion_id = ?", roundID, criterionID).First(&sheet).Error; err != nil {
		return nil, err
	}
	return &sheet, nil
}

// GetTeamScores returns the team's points per criterion of the round. Every
// sheet of the round is listed; unscored criteria map to nil.
func (s *ScoreService) GetTeamScores(ctx context.Context, teamID, roundID uint) (*models.TeamScores, error) {
	db := s.db.WithContext(ctx)
	if _, err := findRound(db, roundID); err != nil {
		return nil, err
	}
	exists, err := s.teams.TeamExists(ctx, db, teamID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apperr.ErrTeamNotFound.Withf("team %d not found", teamID)
	}

	sheets, entries, err := roundScores(db, roundID, &teamID)
	if err != nil {
		return nil, err
	}

	perCriterion := marksFor(sheets, entries[teamID])
	return &models.TeamScores{
		TeamID:   teamID,
		RoundID:  roundID,
		Scores:   perCriterion,
		HasMarks: hasMarks(perCriterion),
	}, nil
}

// GetTeamsWithMarks lists the round's participants with their marks and live
// average.
func (s *ScoreService) GetTeamsWithMarks(ctx context.Context, roundID uint) ([]models.TeamWithMarks, error) {
	db := s.db.WithContext(ctx)
	round, err := findRound(db, roundID)
	if err != nil {
		return nil, err
	}
	teams, err := participants(db, round)
	if err != nil {
		return nil, err
	}

	sheets, entries, err := roundScores(db, roundID, nil)
	if err != nil {
		return nil, err
	}

	result := make([]models.TeamWithMarks, 0, len(teams))
	for _, team := range teams {
		perCriterion := marksFor(sheets, entries[team.ID])
		points := make([]int, 0, len(entries[team.ID]))
		for _, entry := range entries[team.ID] {
			points = append(points, entry.Points)
		}
		result = append(result, models.TeamWithMarks{
			Team:         team,
			Scores:       perCriterion,
			HasMarks:     hasMarks(perCriterion),
			AverageScore: utils.Mean(points),
		})
	}
	return result, nil
}

// roundScores loads a round's sheets and its entries grouped by team. A
// non-nil teamID limits the entries to that team.
func roundScores(db *gorm.DB, roundID uint, teamID *uint) ([]models.ScoreSheet, map[uint][]models.ScoreEntry, error) {
	var sheets []models.ScoreSheet
	if err := db.Where("round_id = ?", roundID).Order("criterion_id ASC").Find(&sheets).Error; err != nil {
		return nil, nil, err
	}

	query := db.Where("score_sheet_id IN (?)", db.Model(&models.ScoreSheet{}).Select("id").Where("round_id = ?", roundID))
	if teamID != nil {
		query = query.Where("team_id = ?", *teamID)
	}
	var entries []models.ScoreEntry
	if err := query.Order("team_id ASC, score_sheet_id ASC").Find(&entries).Error; err != nil {
		return nil, nil, err
	}

	byTeam := make(map[uint][]models.ScoreEntry)
	for _, entry := range entries {
		byTeam[entry.TeamID] = append(byTeam[entry.TeamID], entry)
	}
	return sheets, byTeam, nil
}

func marksFor(sheets []models.ScoreSheet, entries []models.ScoreEntry) map[uint]*int {
	bySheet := make(map[uint]int, len(entries))
	for _, entry := range entries {
		bySheet[entry.ScoreSheetID] = entry.Points
	}

	marks := make(map[uint]*int, len(sheets))
	for _, sheet := range sheets {
		if points, ok := bySheet[sheet.ID]; ok {
			p := points
			marks[sheet.CriterionID] = &p
		} else {
			marks[sheet.CriterionID] = nil
		}
	}
	return marks
}

// hasMarks is true only when some score is above zero. All-zero sheets count
// as not scored yet.
func hasMarks(marks map[uint]*int) bool {
	for _, points := range marks {
		if points != nil && *points > 0 {
			return true
		}
	}
	return false
}
