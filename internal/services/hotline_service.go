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

// HotlineService manages the public crisis hotline directory.
type HotlineService struct {
	db *gorm.DB
}

// NewHotlineService builds a HotlineService over the given database.
func NewHotlineService(db *gorm.DB) (*HotlineService, error) {
	if db == nil {
		return nil, errors.New("hotline service: db is required")
	}
	return &HotlineService{db: db}, nil
}

// CreateHotlineInput carries the fields accepted when listing a hotline.
type CreateHotlineInput struct {
	Name        string `json:"name" validate:"required"`
	Phone       string `json:"phone" validate:"required"`
	Country     string `json:"country"`
	Description string `json:"description"`
}

// List returns hotlines, optionally narrowed to one country.
func (s *HotlineService) List(ctx context.Context, country string) ([]models.CrisisHotline, error) {
	query := s.db.WithContext(ctx).Model(&models.CrisisHotline{})
	if country = strings.TrimSpace(country); country != "" {
		query = query.Where("country = ?", country)
	}

	var hotlines []models.CrisisHotline
	if err := query.Order("name ASC").Find(&hotlines).Error; err != nil {
		return nil, fmt.Errorf("hotline service: list: %w", err)
	}
	return hotlines, nil
}

// Create adds a hotline to the directory.
func (s *HotlineService) Create(ctx context.Context, input CreateHotlineInput) (*models.CrisisHotline, error) {
	hotline := &models.CrisisHotline{
		Name:        strings.TrimSpace(input.Name),
		Phone:       strings.TrimSpace(input.Phone),
		Country:     strings.TrimSpace(input.Country),
		Description: input.Description,
	}

	if err := s.db.WithContext(ctx).Create(hotline).Error; err != nil {
		return nil, fmt.Errorf("hotline service: create: %w", err)
	}
	return hotline, nil
}

// UpdateHotlineInput carries optional fields for partial hotline updates.
type UpdateHotlineInput struct {
	Name        *string `json:"name,omitempty"`
	Phone       *string `json:"phone,omitempty"`
	Country     *string `json:"country,omitempty"`
	Description *string `json:"description,omitempty"`
}

// Update applies a partial edit to a hotline entry.
func (s *HotlineService) Update(ctx context.Context, id string, input UpdateHotlineInput) (*models.CrisisHotline, error) {
	var hotline models.CrisisHotline
	err := s.db.WithContext(ctx).Take(&hotline, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("hotline service: get: %w", err)
	}

	updates := map[string]any{}
	if input.Name != nil {
		updates["name"] = strings.TrimSpace(*input.Name)
	}
	if input.Phone != nil {
		updates["phone"] = strings.TrimSpace(*input.Phone)
	}
	if input.Country != nil {
		updates["country"] = strings.TrimSpace(*input.Country)
	}
	if input.Description != nil {
		updates["description"] = *input.Description
	}

	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(&hotline).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("hotline service: update: %w", err)
		}
	}
	return &hotline, nil
}

// Delete removes a hotline from the directory.
func (s *HotlineService) Delete(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Delete(&models.CrisisHotline{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("hotline service: delete: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
