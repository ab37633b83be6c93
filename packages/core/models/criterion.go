package models

import "time"

// Criterion is a scoring dimension of the catalog. DefaultMax is only read
// when a round's score sheet is created for it.
type Criterion struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name       string    `gorm:"size:255;uniqueIndex;not null" json:"name"`
	DefaultMax int       `gorm:"not null" json:"default_max"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (Criterion) TableName() string {
	return "criteria"
}

type CreateCriterionRequest struct {
	Name       string `json:"name" binding:"required,max=255"`
	DefaultMax int    `json:"default_max" binding:"required,min=1"`
}

type UpdateCriterionRequest struct {
	Name       *string `json:"name,omitempty" binding:"omitempty,min=1,max=255"`
	DefaultMax *int    `json:"default_max,omitempty" binding:"omitempty,min=1"`
}
