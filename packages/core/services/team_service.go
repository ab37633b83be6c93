package services

import (
	"context"
	"errors"

	"core/apperr"
	"core/models"

	"gorm.io/gorm"
)

type TeamService struct {
	db *gorm.DB
}

func NewTeamService(db *gorm.DB) *TeamService {
	return &TeamService{
		db: db,
	}
}

func (s *TeamService) GetAllTeams(ctx context.Context, page, pageSize int) (*models.PaginatedTeamsResponse, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Team{}).Count(&total).Error; err != nil {
		return nil, err
	}

	var teams []models.Team
	offset := (page - 1) * pageSize
	if err := s.db.WithContext(ctx).Preload("Members").Order("id ASC").Offset(offset).Limit(pageSize).Find(&teams).Error; err != nil {
		return nil, err
	}

	totalPages := int(total) / pageSize
	if int(total)%pageSize != 0 {
		totalPages++
	}

	return &models.PaginatedTeamsResponse{
		Data:       teams,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}, nil
}

func (s *TeamService) GetTeamByID(ctx context.Context, id uint) (*models.Team, error) {
	var team models.Team
	if err := s.db.WithContext(ctx).Preload("Members").First(&team, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrTeamNotFound
		}
		return nil, err
	}
	return &team, nil
}

func (s *TeamService) CreateTeam(ctx context.Context, req models.CreateTeamRequest) (*models.Team, error) {
	team := &models.Team{
		Name:               req.Name,
		ProjectDescription: req.ProjectDescription,
		Bio:                req.Bio,
		Logo:               req.Logo,
	}
	if err := s.db.WithContext(ctx).Create(team).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, apperr.ErrTeamNameTaken.Withf("team name %q already taken", req.Name).Wrap(err)
		}
		return nil, err
	}
	return team, nil
}

func (s *TeamService) UpdateTeam(ctx context.Context, id uint, req models.UpdateTeamRequest) (*models.Team, error) {
	team, err := s.GetTeamByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.ProjectDescription != nil {
		updates["project_description"] = *req.ProjectDescription
	}
	if req.Bio != nil {
		updates["bio"] = *req.Bio
	}
	if req.Logo != nil {
		updates["logo"] = *req.Logo
	}

	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(team).Updates(updates).Error; err != nil {
			if isUniqueViolation(err) {
				return nil, apperr.ErrTeamNameTaken.Wrap(err)
			}
			return nil, err
		}
	}

	return s.GetTeamByID(ctx, id)
}

// DeleteTeam removes the team; members, score entries and round results go
// with it through the foreign keys.
func (s *TeamService) DeleteTeam(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).Delete(&models.Team{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperr.ErrTeamNotFound
	}
	return nil
}

func (s *TeamService) TeamExists(ctx context.Context, db *gorm.DB, id uint) (bool, error) {
	var count int64
	if err := db.WithContext(ctx).Model(&models.Team{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *TeamService) GetMembers(ctx context.Context, teamID uint) ([]models.Member, error) {
	exists, err := s.TeamExists(ctx, s.db, teamID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apperr.ErrTeamNotFound
	}

	var members []models.Member
	if err := s.db.WithContext(ctx).Where("team_id = ?", teamID).Order("id ASC").Find(&members).Error; err != nil {
		return nil, err
	}
	return members, nil
}

func (s *TeamService) GetMemberByID(ctx context.Context, id uint) (*models.Member, error) {
	var member models.Member
	if err := s.db.WithContext(ctx).First(&member, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrMemberNotFound
		}
		return nil, err
	}
	return &member, nil
}

func (s *TeamService) AddMember(ctx context.Context, teamID uint, req models.CreateMemberRequest) (*models.Member, error) {
	exists, err := s.TeamExists(ctx, s.db, teamID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apperr.ErrTeamNotFound
	}

	member := &models.Member{
		TeamID: teamID,
		Name:   req.Name,
		Bio:    req.Bio,
		Photo:  req.Photo,
	}
	if err := s.db.WithContext(ctx).Create(member).Error; err != nil {
		return nil, err
	}
	return member, nil
}

func (s *TeamService) UpdateMember(ctx context.Context, id uint, req models.UpdateMemberRequest) (*models.Member, error) {
	member, err := s.GetMemberByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Bio != nil {
		updates["bio"] = *req.Bio
	}
	if req.Photo != nil {
		updates["photo"] = *req.Photo
	}

	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(member).Updates(updates).Error; err != nil {
			return nil, err
		}
	}

	return s.GetMemberByID(ctx, id)
}

func (s *TeamService) DeleteMember(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).Delete(&models.Member{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperr.ErrMemberNotFound
	}
	return nil
}
