package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/safeanchor/safeanchor/internal/models"
	apperrors "github.com/safeanchor/safeanchor/pkg/errors"
)

// MatchingService pairs victims with vetted experts. Only active experts
// whose credentials passed review are ever surfaced.
type MatchingService struct {
	db *gorm.DB
}

// NewMatchingService builds a MatchingService over the given database.
func NewMatchingService(db *gorm.DB) (*MatchingService, error) {
	if db == nil {
		return nil, errors.New("matching service: db is required")
	}
	return &MatchingService{db: db}, nil
}

// FindExperts lists active verified experts, best rated first. When a
// specialization is given, only experts listing it are returned. The
// specializations column holds a JSON array, so the filter is applied
// in-process rather than in SQL to stay portable across drivers.
func (s *MatchingService) FindExperts(ctx context.Context, specialization string) ([]models.ExpertProfile, error) {
	var experts []models.ExpertProfile
	err := s.db.WithContext(ctx).
		Preload("User").
		Where("is_active = ? AND verification_status = ?", true, models.ExpertVerificationVerified).
		Order("rating DESC").
		Find(&experts).Error
	if err != nil {
		return nil, fmt.Errorf("matching service: find experts: %w", err)
	}

	specialization = strings.TrimSpace(specialization)
	if specialization == "" {
		return experts, nil
	}

	matched := experts[:0]
	for _, expert := range experts {
		if hasSpecialization(expert.Specializations, specialization) {
			matched = append(matched, expert)
		}
	}
	return matched, nil
}

func hasSpecialization(raw []byte, want string) bool {
	if len(raw) == 0 {
		return false
	}

	var listed []string
	if err := json.Unmarshal(raw, &listed); err != nil {
		return false
	}
	for _, have := range listed {
		if strings.EqualFold(strings.TrimSpace(have), want) {
			return true
		}
	}
	return false
}

// Match records the expert on the victim's matched list. Matching the same
// pair twice is harmless.
func (s *MatchingService) Match(ctx context.Context, victimProfileID, expertProfileID string) error {
	var victim models.VictimProfile
	err := s.db.WithContext(ctx).Take(&victim, "id = ?", victimProfileID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("matching service: load victim: %w", err)
	}

	var expert models.ExpertProfile
	err = s.db.WithContext(ctx).Take(&expert, "id = ?", expertProfileID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("matching service: load expert: %w", err)
	}

	if expert.VerificationStatus != models.ExpertVerificationVerified || !expert.IsActive {
		return apperrors.NewBadRequest("expert is not available for matching")
	}

	var count int64
	err = s.db.WithContext(ctx).
		Table("victim_matched_experts").
		Where("victim_profile_id = ? AND expert_profile_id = ?", victim.ID, expert.ID).
		Count(&count).Error
	if err != nil {
		return fmt.Errorf("matching service: check existing match: %w", err)
	}
	if count > 0 {
		return nil
	}

	if err := s.db.WithContext(ctx).Model(&victim).Association("MatchedExperts").Append(&expert); err != nil {
		return fmt.Errorf("matching service: record match: %w", err)
	}
	return nil
}

// MatchedExperts returns the experts already matched to the victim.
func (s *MatchingService) MatchedExperts(ctx context.Context, victimProfileID string) ([]models.ExpertProfile, error) {
	var victim models.VictimProfile
	err := s.db.WithContext(ctx).
		Preload("MatchedExperts").
		Preload("MatchedExperts.User").
		Take(&victim, "id = ?", victimProfileID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("matching service: load matches: %w", err)
	}
	return victim.MatchedExperts, nil
}
