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

// DashboardService aggregates the landing views for both account kinds.
type DashboardService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewDashboardService builds a DashboardService over the given database.
func NewDashboardService(db *gorm.DB) (*DashboardService, error) {
	if db == nil {
		return nil, errors.New("dashboard service: db is required")
	}
	return &DashboardService{db: db, now: time.Now}, nil
}

// VictimDashboard is the landing view for a victim account.
type VictimDashboard struct {
	UpcomingSessions []models.SupportSession `json:"upcoming_sessions"`
	MatchedExperts   []models.ExpertProfile  `json:"matched_experts"`
	RecentResources  []models.Resource       `json:"recent_resources"`
}

// ExpertDashboard is the landing view for an expert account.
type ExpertDashboard struct {
	UpcomingSessions  []models.SupportSession `json:"upcoming_sessions"`
	PendingSessions   int64                   `json:"pending_sessions"`
	CompletedSessions int64                   `json:"completed_sessions"`
	Rating            float64                 `json:"rating"`
	TotalSessions     int                     `json:"total_sessions"`
}

const recentResourceLimit = 5

// ForVictim assembles the victim dashboard.
func (s *DashboardService) ForVictim(ctx context.Context, userID string) (*VictimDashboard, error) {
	var profile models.VictimProfile
	err := s.db.WithContext(ctx).
		Preload("MatchedExperts").
		Preload("MatchedExperts.User").
		Take(&profile, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("dashboard service: load victim profile: %w", err)
	}

	dashboard := &VictimDashboard{MatchedExperts: profile.MatchedExperts}

	err = s.db.WithContext(ctx).
		Preload("Expert").
		Where("victim_id = ?", profile.ID).
		Where("scheduled_at >= ?", s.now()).
		Where("status IN ?", []models.SessionStatus{models.SessionStatusPending, models.SessionStatusConfirmed}).
		Order("scheduled_at ASC").
		Find(&dashboard.UpcomingSessions).Error
	if err != nil {
		return nil, fmt.Errorf("dashboard service: upcoming sessions: %w", err)
	}

	err = s.db.WithContext(ctx).
		Where("is_published = ?", true).
		Order("published_at DESC").
		Limit(recentResourceLimit).
		Find(&dashboard.RecentResources).Error
	if err != nil {
		return nil, fmt.Errorf("dashboard service: recent resources: %w", err)
	}

	return dashboard, nil
}

// ForExpert assembles the expert dashboard.
func (s *DashboardService) ForExpert(ctx context.Context, userID string) (*ExpertDashboard, error) {
	var profile models.ExpertProfile
	err := s.db.WithContext(ctx).Take(&profile, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("dashboard service: load expert profile: %w", err)
	}

	dashboard := &ExpertDashboard{
		Rating:        profile.Rating,
		TotalSessions: profile.TotalSessions,
	}

	err = s.db.WithContext(ctx).
		Preload("Victim").
		Where("expert_id = ?", profile.ID).
		Where("scheduled_at >= ?", s.now()).
		Where("status IN ?", []models.SessionStatus{models.SessionStatusPending, models.SessionStatusConfirmed}).
		Order("scheduled_at ASC").
		Find(&dashboard.UpcomingSessions).Error
	if err != nil {
		return nil, fmt.Errorf("dashboard service: upcoming sessions: %w", err)
	}

	counts := []struct {
		status models.SessionStatus
		target *int64
	}{
		{models.SessionStatusPending, &dashboard.PendingSessions},
		{models.SessionStatusCompleted, &dashboard.CompletedSessions},
	}
	for _, c := range counts {
		err = s.db.WithContext(ctx).
			Model(&models.SupportSession{}).
			Where("expert_id = ? AND status = ?", profile.ID, c.status).
			Count(c.target).Error
		if err != nil {
			return nil, fmt.Errorf("dashboard service: session counts: %w", err)
		}
	}

	return dashboard, nil
}
