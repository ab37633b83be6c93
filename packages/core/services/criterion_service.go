package services

import (
	"context"
	"errors"

	"core/apperr"
	"core/models"

	"gorm.io/gorm"
)

type CriterionService struct {
	db *gorm.DB
}

func NewCriterionService(db *gorm.DB) *CriterionService {
	return &CriterionService{
		db: db,
	}
}

func (s *CriterionService) GetAllCriteria(ctx context.Context) ([]models.Criterion, error) {
	var criteria []models.Criterion
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&criteria).Error; err != nil {
		return nil, err
	}
	return criteria, nil
}

func (s *CriterionService) GetCriterionByID(ctx context.Context, id uint) (*models.Criterion, error) {
	var criterion models.Criterion
	if err := s.db.WithContext(ctx).First(&criterion, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrCriterionNotFound
		}
		return nil, err
	}
	return &criterion, nil
}

func (s *CriterionService) CreateCriterion(ctx context.Context, name string, defaultMax int) (*models.Criterion, error) {
	if defaultMax < 1 {
		return nil, apperr.ErrInvalidMax.Withf("default max must be at least 1, got %d", defaultMax)
	}

	criterion := &models.Criterion{
		Name:       name,
		DefaultMax: defaultMax,
	}
	if err := s.db.WithContext(ctx).Create(criterion).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, apperr.ErrCriterionNameTaken.Wrap(err)
		}
		return nil, err
	}
	return criterion, nil
}

// UpdateCriterion changes the catalog only. Score sheets keep their snapshot.
// A criterion scored in a closed round can no longer change.
func (s *CriterionService) UpdateCriterion(ctx context.Context, id uint, name *string, defaultMax *int) (*models.Criterion, error) {
	if defaultMax != nil && *defaultMax < 1 {
		return nil, apperr.ErrInvalidMax.Withf("default max must be at least 1, got %d", *defaultMax)
	}

	var criterion models.Criterion
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&criterion, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.ErrCriterionNotFound
			}
			return err
		}

		updates := make(map[string]interface{})
		if name != nil {
			updates["name"] = *name
		}
		if defaultMax != nil {
			updates["default_max"] = *defaultMax
		}
		if len(updates) == 0 {
			return nil
		}

		var closedSheets int64
		if err := tx.Model(&models.ScoreSheet{}).
			Joins("JOIN rounds ON rounds.id = score_sheets.round_id").
			Where("score_sheets.criterion_id = ? AND rounds.is_closed = ?", id, true).
			Count(&closedSheets).Error; err != nil {
			return err
		}
		if closedSheets > 0 {
			return apperr.ErrCriterionLocked.Withf("criterion %d is used by %d closed round(s)", id, closedSheets)
		}

		if err := tx.Model(&criterion).Updates(updates).Error; err != nil {
			if isUniqueViolation(err) {
				return apperr.ErrCriterionNameTaken.Wrap(err)
			}
			return err
		}
		return tx.First(&criterion, id).Error
	})
	if err != nil {
		return nil, err
	}
	return &criterion, nil
}

// DeleteCriterion refuses to delete a criterion that any score sheet uses.
func (s *CriterionService) DeleteCriterion(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sheets int64
		if err := tx.Model(&models.ScoreSheet{}).Where("criterion_id = ?", id).Count(&sheets).Error; err != nil {
			return err
		}
		if sheets > 0 {
			return apperr.ErrCriterionInUse.Withf("criterion %d is used by %d score sheet(s)", id, sheets)
		}

		result := tx.Delete(&models.Criterion{}, id)
		if result.Error != nil {
			if isForeignKeyViolation(result.Error) {
				return apperr.ErrCriterionInUse.Wrap(result.Error)
			}
			return result.Error
		}
		if result.RowsAffected == 0 {
			return apperr.ErrCriterionNotFound
		}
		return nil
	})
}

func (s *CriterionService) CriterionMax(ctx context.Context, db *gorm.DB, id uint) (int, error) {
	var criterion models.Criterion
	if err := db.WithContext(ctx).Select("id", "default_max").First(&criterion, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, apperr.ErrCriterionNotFound.Withf("criterion %d not found", id)
		}
		return 0, err
	}
	return criterion.DefaultMax, nil
}
