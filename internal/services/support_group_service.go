package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/safeanchor/safeanchor/internal/models"
	apperrors "github.com/safeanchor/safeanchor/pkg/errors"
)

// SupportGroupService manages peer support communities and their membership.
type SupportGroupService struct {
	db *gorm.DB
}

// NewSupportGroupService builds a SupportGroupService over the given database.
func NewSupportGroupService(db *gorm.DB) (*SupportGroupService, error) {
	if db == nil {
		return nil, errors.New("support group service: db is required")
	}
	return &SupportGroupService{db: db}, nil
}

// CreateGroupInput carries the fields accepted when creating a group.
type CreateGroupInput struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	Category    string `json:"category"`
	CreatedByID string `json:"-"`
}

// List returns all active groups with their members preloaded.
func (s *SupportGroupService) List(ctx context.Context) ([]models.SupportGroup, error) {
	var groups []models.SupportGroup
	err := s.db.WithContext(ctx).
		Preload("Members").
		Where("is_active = ?", true).
		Order("created_at DESC").
		Find(&groups).Error
	if err != nil {
		return nil, fmt.Errorf("support group service: list: %w", err)
	}
	return groups, nil
}

// Get loads a single group with its members.
func (s *SupportGroupService) Get(ctx context.Context, id string) (*models.SupportGroup, error) {
	var group models.SupportGroup
	err := s.db.WithContext(ctx).Preload("Members").Take(&group, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("support group service: get: %w", err)
	}
	return &group, nil
}

// Create registers a new support group.
func (s *SupportGroupService) Create(ctx context.Context, input CreateGroupInput) (*models.SupportGroup, error) {
	group := &models.SupportGroup{
		Name:        strings.TrimSpace(input.Name),
		Description: input.Description,
		Category:    strings.TrimSpace(input.Category),
		IsActive:    true,
	}
	if group.Category == "" {
		group.Category = "general"
	}
	if input.CreatedByID != "" {
		group.CreatedByID = &input.CreatedByID
	}

	if err := s.db.WithContext(ctx).Create(group).Error; err != nil {
		return nil, fmt.Errorf("support group service: create: %w", err)
	}
	return group, nil
}

// Join adds the user to the group. Joining a group the user already belongs
// to fails with ErrAlreadyMember.
func (s *SupportGroupService) Join(ctx context.Context, groupID, userID string) error {
	group, err := s.Get(ctx, groupID)
	if err != nil {
		return err
	}

	var user models.User
	err = s.db.WithContext(ctx).Take(&user, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrAccountMissing
	}
	if err != nil {
		return fmt.Errorf("support group service: load user: %w", err)
	}

	var count int64
	err = s.db.WithContext(ctx).
		Table("support_group_members").
		Where("support_group_id = ? AND user_id = ?", group.ID, user.ID).
		Count(&count).Error
	if err != nil {
		return fmt.Errorf("support group service: check membership: %w", err)
	}
	if count > 0 {
		return ErrAlreadyMember
	}

	if err := s.db.WithContext(ctx).Model(group).Association("Members").Append(&user); err != nil {
		return fmt.Errorf("support group service: join: %w", err)
	}
	return nil
}

// Leave removes the user from the group. Leaving a group the user never
// joined still reports success.
func (s *SupportGroupService) Leave(ctx context.Context, groupID, userID string) error {
	group, err := s.Get(ctx, groupID)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).
		Model(group).
		Association("Members").
		Delete(&models.User{ID: userID})
	if err != nil {
		return fmt.Errorf("support group service: leave: %w", err)
	}
	return nil
}

// UpdateGroupInput carries optional fields for partial group updates.
type UpdateGroupInput struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Category    *string `json:"category,omitempty"`
}

// Update applies a partial edit to a group's descriptive fields.
func (s *SupportGroupService) Update(ctx context.Context, id string, input UpdateGroupInput) (*models.SupportGroup, error) {
	group, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Name != nil {
		updates["name"] = strings.TrimSpace(*input.Name)
	}
	if input.Description != nil {
		updates["description"] = *input.Description
	}
	if input.Category != nil {
		updates["category"] = strings.TrimSpace(*input.Category)
	}

	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(group).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("support group service: update: %w", err)
		}
	}
	return group, nil
}

// Deactivate hides a group from listings without destroying its history.
func (s *SupportGroupService) Deactivate(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).
		Model(&models.SupportGroup{}).
		Where("id = ?", id).
		Update("is_active", false)
	if result.Error != nil {
		return fmt.Errorf("support group service: deactivate: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
