package models

import "time"

// RoundResult is written when a round closes. Its existence certifies that
// the team was ranked in that round.
type RoundResult struct {
	TeamID       uint      `gorm:"primaryKey;autoIncrement:false" json:"team_id"`
	RoundID      uint      `gorm:"primaryKey;autoIncrement:false;index" json:"round_id"`
	Rank         int       `gorm:"not null" json:"rank"`
	IsInDanger   bool      `gorm:"not null" json:"is_in_danger"`
	AverageScore int       `gorm:"not null" json:"average_score"`
	UpdatedAt    time.Time `json:"updated_at"`

	Team  Team  `gorm:"foreignKey:TeamID;references:ID;constraint:OnDelete:CASCADE" json:"team,omitempty"`
	Round Round `gorm:"foreignKey:RoundID;references:ID;constraint:OnDelete:CASCADE" json:"-"`
}

func (RoundResult) TableName() string {
	return "round_results"
}

type RankedTeam struct {
	Team         Team    `json:"team"`
	Rank         int     `json:"rank"`
	AverageScore float64 `json:"average_score"`
	IsInDanger   bool    `json:"is_in_danger"`
}

type EliminationSummary struct {
	Total           int `json:"total"`
	EliminatedCount int `json:"eliminated_count"`
	SurvivorCount   int `json:"survivor_count"`
}

type RoundCloseResult struct {
	RoundID       uint                `json:"round_id"`
	IsFinalRound  bool                `json:"is_final_round"`
	Rankings      []RankedTeam        `json:"rankings"`
	Winner        *RankedTeam         `json:"winner"`
	OverallWinner *RankedTeam         `json:"overall_winner,omitempty"`
	Summary       *EliminationSummary `json:"elimination_summary,omitempty"`
}

type EliminationResults struct {
	RoundID      uint               `json:"round_id"`
	IsFinalRound bool               `json:"is_final_round"`
	Results      []RoundResult      `json:"results"`
	Summary      EliminationSummary `json:"elimination_summary"`
}

type WinnerResponse struct {
	RoundID      uint        `json:"round_id"`
	IsFinalRound bool        `json:"is_final_round"`
	Winner       *RankedTeam `json:"winner"`
}
