package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/safeanchor/safeanchor/internal/models"
	apperrors "github.com/safeanchor/safeanchor/pkg/errors"
)

// ProfileService serves the self-service profile surface for both account
// kinds: matching preferences and emergency contacts for victims, credential
// and availability details for experts.
type ProfileService struct {
	db *gorm.DB
}

// NewProfileService builds a ProfileService over the given database.
func NewProfileService(db *gorm.DB) (*ProfileService, error) {
	if db == nil {
		return nil, errors.New("profile service: db is required")
	}
	return &ProfileService{db: db}, nil
}

// EmergencyContact is one entry in a victim's emergency contact list.
type EmergencyContact struct {
	Name         string `json:"name" validate:"required"`
	Phone        string `json:"phone" validate:"required"`
	Relationship string `json:"relationship,omitempty"`
	Email        string `json:"email,omitempty" validate:"omitempty,email"`
	Address      string `json:"address,omitempty"`
}

// VictimProfile loads the caller's profile with matched experts preloaded.
func (s *ProfileService) VictimProfile(ctx context.Context, userID string) (*models.VictimProfile, error) {
	var profile models.VictimProfile
	err := s.db.WithContext(ctx).
		Preload("MatchedExperts.User").
		Take(&profile, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("profile service: load victim profile: %w", err)
	}
	return &profile, nil
}

// UpdateExpertPreferences replaces the victim's stored matching preferences
// wholesale, mirroring how the client submits the whole preference form.
func (s *ProfileService) UpdateExpertPreferences(ctx context.Context, userID string, prefs datatypes.JSON) (*models.VictimProfile, error) {
	var profile models.VictimProfile
	err := s.db.WithContext(ctx).Take(&profile, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("profile service: load victim profile: %w", err)
	}

	if err := s.db.WithContext(ctx).Model(&profile).Update("expert_preferences", prefs).Error; err != nil {
		return nil, fmt.Errorf("profile service: store preferences: %w", err)
	}
	profile.ExpertPreferences = prefs
	return &profile, nil
}

// AddEmergencyContact appends a contact to the list kept on the account
// record and returns the full updated list.
func (s *ProfileService) AddEmergencyContact(ctx context.Context, userID string, contact EmergencyContact) ([]EmergencyContact, error) {
	var user models.User
	err := s.db.WithContext(ctx).Take(&user, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("profile service: load account: %w", err)
	}

	var contacts []EmergencyContact
	if len(user.EmergencyContacts) > 0 {
		if err := json.Unmarshal(user.EmergencyContacts, &contacts); err != nil {
			return nil, fmt.Errorf("profile service: decode contacts: %w", err)
		}
	}
	contacts = append(contacts, contact)

	raw, err := json.Marshal(contacts)
	if err != nil {
		return nil, fmt.Errorf("profile service: encode contacts: %w", err)
	}

	if err := s.db.WithContext(ctx).Model(&user).Update("emergency_contacts", datatypes.JSON(raw)).Error; err != nil {
		return nil, fmt.Errorf("profile service: store contacts: %w", err)
	}
	return contacts, nil
}

// ExpertProfile loads the caller's expert profile.
func (s *ProfileService) ExpertProfile(ctx context.Context, userID string) (*models.ExpertProfile, error) {
	var profile models.ExpertProfile
	err := s.db.WithContext(ctx).Take(&profile, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("profile service: load expert profile: %w", err)
	}
	return &profile, nil
}

// UpdateExpertProfileInput carries optional fields for partial profile
// edits. Verification status and rating are deliberately absent: those move
// through the review and session flows, never by self-service.
type UpdateExpertProfileInput struct {
	Specializations datatypes.JSON `json:"specializations,omitempty"`
	Credentials     datatypes.JSON `json:"credentials,omitempty"`
	Availability    datatypes.JSON `json:"availability,omitempty"`
}

// UpdateExpertProfile applies a partial edit to the caller's expert profile.
func (s *ProfileService) UpdateExpertProfile(ctx context.Context, userID string, input UpdateExpertProfileInput) (*models.ExpertProfile, error) {
	profile, err := s.ExpertProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if len(input.Specializations) > 0 {
		updates["specializations"] = input.Specializations
		profile.Specializations = input.Specializations
	}
	if len(input.Credentials) > 0 {
		updates["credentials"] = input.Credentials
		profile.Credentials = input.Credentials
	}
	if len(input.Availability) > 0 {
		updates["availability"] = input.Availability
		profile.Availability = input.Availability
	}

	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(profile).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("profile service: update expert profile: %w", err)
		}
	}
	return profile, nil
}

// PublicExpertProfile is the projection of an expert shown to prospective
// clients. It never carries contact details or credential documents.
type PublicExpertProfile struct {
	ID                 string                          `json:"id"`
	FirstName          string                          `json:"first_name"`
	LastName           string                          `json:"last_name"`
	Specializations    datatypes.JSON                  `json:"specializations,omitempty"`
	Availability       datatypes.JSON                  `json:"availability,omitempty"`
	VerificationStatus models.ExpertVerificationStatus `json:"verification_status"`
	Rating             float64                         `json:"rating"`
	TotalSessions      int                             `json:"total_sessions"`
}

// PublicProfile loads one expert by profile id as the public projection.
func (s *ProfileService) PublicProfile(ctx context.Context, profileID string) (PublicExpertProfile, error) {
	var profile models.ExpertProfile
	err := s.db.WithContext(ctx).
		Preload("User").
		Take(&profile, "id = ?", profileID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return PublicExpertProfile{}, apperrors.ErrNotFound
	}
	if err != nil {
		return PublicExpertProfile{}, fmt.Errorf("profile service: load public profile: %w", err)
	}

	public := PublicExpertProfile{
		ID:                 profile.ID,
		Specializations:    profile.Specializations,
		Availability:       profile.Availability,
		VerificationStatus: profile.VerificationStatus,
		Rating:             profile.Rating,
		TotalSessions:      profile.TotalSessions,
	}
	if profile.User != nil {
		public.FirstName = profile.User.FirstName
		public.LastName = profile.User.LastName
	}
	return public, nil
}
