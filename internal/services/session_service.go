package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/safeanchor/safeanchor/internal/models"
	apperrors "github.com/safeanchor/safeanchor/pkg/errors"
)

// SessionService books and manages one-on-one support sessions.
type SessionService struct {
	db *gorm.DB
}

// NewSessionService builds a SessionService over the given database.
func NewSessionService(db *gorm.DB) (*SessionService, error) {
	if db == nil {
		return nil, errors.New("session service: db is required")
	}
	return &SessionService{db: db}, nil
}

// VictimProfileForUser resolves the victim profile owned by the account.
func (s *SessionService) VictimProfileForUser(ctx context.Context, userID string) (*models.VictimProfile, error) {
	var profile models.VictimProfile
	err := s.db.WithContext(ctx).Take(&profile, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("session service: load victim profile: %w", err)
	}
	return &profile, nil
}

// ExpertProfileForUser resolves the expert profile owned by the account.
func (s *SessionService) ExpertProfileForUser(ctx context.Context, userID string) (*models.ExpertProfile, error) {
	var profile models.ExpertProfile
	err := s.db.WithContext(ctx).Take(&profile, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("session service: load expert profile: %w", err)
	}
	return &profile, nil
}

// BookSessionInput carries the fields accepted when booking.
type BookSessionInput struct {
	VictimID    string    `json:"victim_id" validate:"required"`
	ExpertID    string    `json:"expert_id" validate:"required"`
	ScheduledAt time.Time `json:"scheduled_at" validate:"required"`
	Notes       string    `json:"notes"`
}

// Book schedules a session after checking both calendars. A pending or
// confirmed session at the same time for either party blocks the booking.
// The check and insert run in one transaction so two overlapping bookings
// cannot both land.
func (s *SessionService) Book(ctx context.Context, input BookSessionInput) (*models.SupportSession, error) {
	var victim models.VictimProfile
	err := s.db.WithContext(ctx).Take(&victim, "id = ?", input.VictimID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("session service: load victim: %w", err)
	}

	var expert models.ExpertProfile
	err = s.db.WithContext(ctx).Take(&expert, "id = ?", input.ExpertID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("session service: load expert: %w", err)
	}

	session := &models.SupportSession{
		VictimID:    victim.ID,
		ExpertID:    expert.ID,
		ScheduledAt: input.ScheduledAt,
		Status:      models.SessionStatusPending,
		Notes:       input.Notes,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		err := tx.Model(&models.SupportSession{}).
			Where("scheduled_at = ?", input.ScheduledAt).
			Where("status IN ?", []models.SessionStatus{models.SessionStatusPending, models.SessionStatusConfirmed}).
			Where("expert_id = ? OR victim_id = ?", expert.ID, victim.ID).
			Count(&count).Error
		if err != nil {
			return fmt.Errorf("session service: conflict check: %w", err)
		}
		if count > 0 {
			return ErrTimeSlotTaken
		}

		if err := tx.Create(session).Error; err != nil {
			return fmt.Errorf("session service: create: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return session, nil
}

// Get loads a session with both profiles preloaded.
func (s *SessionService) Get(ctx context.Context, id string) (*models.SupportSession, error) {
	var session models.SupportSession
	err := s.db.WithContext(ctx).
		Preload("Victim").
		Preload("Expert").
		Take(&session, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("session service: get: %w", err)
	}
	return &session, nil
}

// ListForVictim returns the victim's sessions, soonest first.
func (s *SessionService) ListForVictim(ctx context.Context, victimID string) ([]models.SupportSession, error) {
	var sessions []models.SupportSession
	err := s.db.WithContext(ctx).
		Where("victim_id = ?", victimID).
		Order("scheduled_at ASC").
		Find(&sessions).Error
	if err != nil {
		return nil, fmt.Errorf("session service: list for victim: %w", err)
	}
	return sessions, nil
}

// ListForExpert returns the expert's sessions, soonest first.
func (s *SessionService) ListForExpert(ctx context.Context, expertID string) ([]models.SupportSession, error) {
	var sessions []models.SupportSession
	err := s.db.WithContext(ctx).
		Where("expert_id = ?", expertID).
		Order("scheduled_at ASC").
		Find(&sessions).Error
	if err != nil {
		return nil, fmt.Errorf("session service: list for expert: %w", err)
	}
	return sessions, nil
}

// UpdateStatus moves a session through its lifecycle. Completing a session
// bumps the expert's lifetime session count.
func (s *SessionService) UpdateStatus(ctx context.Context, id string, status models.SessionStatus) (*models.SupportSession, error) {
	switch status {
	case models.SessionStatusPending, models.SessionStatusConfirmed,
		models.SessionStatusCompleted, models.SessionStatusCancelled:
	default:
		return nil, apperrors.NewBadRequest(fmt.Sprintf("unknown session status %q", status))
	}

	session, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.SupportSession{}).
			Where("id = ?", session.ID).
			Update("status", status).Error; err != nil {
			return fmt.Errorf("session service: update status: %w", err)
		}

		if status == models.SessionStatusCompleted && session.Status != models.SessionStatusCompleted {
			err := tx.Model(&models.ExpertProfile{}).
				Where("id = ?", session.ExpertID).
				UpdateColumn("total_sessions", gorm.Expr("total_sessions + 1")).Error
			if err != nil {
				return fmt.Errorf("session service: bump session count: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	session.Status = status
	return session, nil
}

// Cancel marks the session cancelled, freeing the time slot for both sides.
func (s *SessionService) Cancel(ctx context.Context, id string) (*models.SupportSession, error) {
	return s.UpdateStatus(ctx, id, models.SessionStatusCancelled)
}
