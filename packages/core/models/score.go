package models

import "time"

// ScoreSheet binds one criterion to one round. MaxPoints is a snapshot of the
// criterion's DefaultMax taken when the sheet was created.
type ScoreSheet struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	RoundID     uint      `gorm:"not null;uniqueIndex:idx_score_sheets_round_criterion" json:"round_id"`
	CriterionID uint      `gorm:"not null;uniqueIndex:idx_score_sheets_round_criterion" json:"criterion_id"`
	MaxPoints   int       `gorm:"not null" json:"max_points"`
	CreatedAt   time.Time `json:"created_at"`

	Criterion Criterion    `gorm:"foreignKey:CriterionID;references:ID;constraint:OnDelete:RESTRICT" json:"criterion,omitempty"`
	Entries   []ScoreEntry `gorm:"foreignKey:ScoreSheetID;constraint:OnDelete:CASCADE" json:"-"`
}

func (ScoreSheet) TableName() string {
	return "score_sheets"
}

type ScoreEntry struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ScoreSheetID uint      `gorm:"not null;uniqueIndex:idx_score_entries_sheet_team" json:"score_sheet_id"`
	TeamID       uint      `gorm:"not null;uniqueIndex:idx_score_entries_sheet_team;index" json:"team_id"`
	Points       int       `gorm:"not null" json:"points"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	Team Team `gorm:"foreignKey:TeamID;references:ID;constraint:OnDelete:CASCADE" json:"-"`
}

func (ScoreEntry) TableName() string {
	return "score_entries"
}

// SubmitScoresRequest carries raw JSON numbers keyed by criterion id so that
// non-integer values can be rejected explicitly.
type SubmitScoresRequest struct {
	Scores map[string]float64 `json:"scores" binding:"required"`
}

type TeamScores struct {
	TeamID   uint          `json:"team_id"`
	RoundID  uint          `json:"round_id"`
	Scores   map[uint]*int `json:"scores"`
	HasMarks bool          `json:"has_marks"`
}

type TeamWithMarks struct {
	Team         Team          `json:"team"`
	Scores       map[uint]*int `json:"scores"`
	HasMarks     bool          `json:"has_marks"`
	AverageScore float64       `json:"average_score"`
}
