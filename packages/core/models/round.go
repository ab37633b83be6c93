package models

import "time"

// Round ids are assigned explicitly and stay contiguous: 1 for the first
// round, previous+1 for every round created by progression.
type Round struct {
	ID              uint       `gorm:"primaryKey;autoIncrement:false" json:"id"`
	IsFirst         bool       `gorm:"not null" json:"is_first"`
	IsFinal         bool       `gorm:"not null" json:"is_final"`
	IsClosed        bool       `gorm:"not null" json:"is_closed"`
	TargetTeamCount int        `gorm:"not null" json:"target_team_count"`
	ClosedAt        *time.Time `json:"closed_at"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`

	// Relationships
	ScoreSheets []ScoreSheet `gorm:"foreignKey:RoundID;constraint:OnDelete:CASCADE" json:"score_sheets,omitempty"`
}

func (Round) TableName() string {
	return "rounds"
}

type CreateRoundRequest struct {
	TargetTeamCount int `json:"target_team_count" binding:"omitempty,min=0"`
}

// NextRoundResponse is returned by create-next.
type NextRoundResponse struct {
	Round        Round  `json:"round"`
	Teams        []Team `json:"teams"`
	IsFinalRound bool   `json:"is_final_round"`
	Message      string `json:"message"`
}
