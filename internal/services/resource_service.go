package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/safeanchor/safeanchor/internal/models"
	apperrors "github.com/safeanchor/safeanchor/pkg/errors"
)

// ResourceService manages published articles and survivor stories.
type ResourceService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewResourceService builds a ResourceService over the given database.
func NewResourceService(db *gorm.DB) (*ResourceService, error) {
	if db == nil {
		return nil, errors.New("resource service: db is required")
	}
	return &ResourceService{db: db, now: time.Now}, nil
}

// ResourceFilter narrows resource listings. Zero values match everything.
type ResourceFilter struct {
	Type               models.ResourceType
	Category           string
	IncludeUnpublished bool
}

// CreateResourceInput carries the fields accepted when publishing.
type CreateResourceInput struct {
	Type     models.ResourceType `json:"type" validate:"required,oneof=article survivor-story"`
	Title    string              `json:"title" validate:"required"`
	Content  string              `json:"content" validate:"required"`
	Author   string              `json:"author"`
	Category string              `json:"category"`
}

// UpdateResourceInput carries optional fields for partial updates.
type UpdateResourceInput struct {
	Title       *string `json:"title,omitempty"`
	Content     *string `json:"content,omitempty"`
	Author      *string `json:"author,omitempty"`
	Category    *string `json:"category,omitempty"`
	IsPublished *bool   `json:"is_published,omitempty"`
}

// List returns resources matching the filter, newest first.
func (s *ResourceService) List(ctx context.Context, filter ResourceFilter) ([]models.Resource, error) {
	query := s.db.WithContext(ctx).Model(&models.Resource{})

	if !filter.IncludeUnpublished {
		query = query.Where("is_published = ?", true)
	}
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if category := strings.TrimSpace(filter.Category); category != "" {
		query = query.Where("category = ?", category)
	}

	var resources []models.Resource
	if err := query.Order("published_at DESC").Find(&resources).Error; err != nil {
		return nil, fmt.Errorf("resource service: list: %w", err)
	}
	return resources, nil
}

// Get loads a single resource by id.
func (s *ResourceService) Get(ctx context.Context, id string) (*models.Resource, error) {
	var resource models.Resource
	err := s.db.WithContext(ctx).Take(&resource, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("resource service: get: %w", err)
	}
	return &resource, nil
}

// Create publishes a new resource.
func (s *ResourceService) Create(ctx context.Context, input CreateResourceInput) (*models.Resource, error) {
	resource := &models.Resource{
		Type:        input.Type,
		Title:       strings.TrimSpace(input.Title),
		Content:     input.Content,
		Author:      strings.TrimSpace(input.Author),
		Category:    strings.TrimSpace(input.Category),
		IsPublished: true,
		PublishedAt: s.now(),
	}
	if resource.Category == "" {
		resource.Category = "general"
	}

	if err := s.db.WithContext(ctx).Create(resource).Error; err != nil {
		return nil, fmt.Errorf("resource service: create: %w", err)
	}
	return resource, nil
}

// Update applies the provided fields to an existing resource.
func (s *ResourceService) Update(ctx context.Context, id string, input UpdateResourceInput) (*models.Resource, error) {
	resource, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Title != nil {
		updates["title"] = strings.TrimSpace(*input.Title)
	}
	if input.Content != nil {
		updates["content"] = *input.Content
	}
	if input.Author != nil {
		updates["author"] = strings.TrimSpace(*input.Author)
	}
	if input.Category != nil {
		updates["category"] = strings.TrimSpace(*input.Category)
	}
	if input.IsPublished != nil {
		updates["is_published"] = *input.IsPublished
	}
	if len(updates) == 0 {
		return resource, nil
	}

	if err := s.db.WithContext(ctx).Model(resource).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("resource service: update: %w", err)
	}
	return resource, nil
}

// Delete removes a resource permanently.
func (s *ResourceService) Delete(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Delete(&models.Resource{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("resource service: delete: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
