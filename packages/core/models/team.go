package models

import (
	"time"
)

type Team struct {
	ID                 uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name               string    `gorm:"size:255;uniqueIndex;not null" json:"name"`
	ProjectDescription string    `gorm:"type:text" json:"project_description"`
	Bio                string    `gorm:"type:text" json:"bio"`
	Logo               string    `gorm:"size:512" json:"logo"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`

	// Relationships
	Members []Member `gorm:"foreignKey:TeamID;constraint:OnDelete:CASCADE" json:"members,omitempty"`
}

func (Team) TableName() string {
	return "teams"
}

type Member struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	TeamID    uint      `gorm:"not null;index" json:"team_id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Bio       string    `gorm:"type:text" json:"bio"`
	Photo     string    `gorm:"size:512" json:"photo"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Member) TableName() string {
	return "members"
}

type PaginatedTeamsResponse struct {
	Data       []Team `json:"data"`
	Total      int64  `json:"total"`
	Page       int    `json:"page"`
	PageSize   int    `json:"pageSize"`
	TotalPages int    `json:"totalPages"`
}

type CreateTeamRequest struct {
	Name               string `json:"name" binding:"required,max=255"`
	ProjectDescription string `json:"project_description"`
	Bio                string `json:"bio"`
	Logo               string `json:"logo"`
}

type UpdateTeamRequest struct {
	Name               *string `json:"name,omitempty" binding:"omitempty,min=1,max=255"`
	ProjectDescription *string `json:"project_description,omitempty"`
	Bio                *string `json:"bio,omitempty"`
	Logo               *string `json:"logo,omitempty"`
}

type CreateMemberRequest struct {
	Name  string `json:"name" binding:"required,max=255"`
	Bio   string `json:"bio"`
	Photo string `json:"photo"`
}

type UpdateMemberRequest struct {
	Name  *string `json:"name,omitempty" binding:"omitempty,min=1,max=255"`
	Bio   *string `json:"bio,omitempty"`
	Photo *string `json:"photo,omitempty"`
}
