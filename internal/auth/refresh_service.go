package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/safeanchor/safeanchor/internal/models"
	"github.com/safeanchor/safeanchor/pkg/crypto"
	"github.com/safeanchor/safeanchor/pkg/metrics"
)

// DefaultRefreshTokenTTL is the fallback refresh token lifetime.
const DefaultRefreshTokenTTL = 7 * 24 * time.Hour

// DefaultRefreshTokenBytes is the entropy of generated refresh tokens.
// 40 bytes hex-encoded comfortably exceeds the 160-bit floor.
const DefaultRefreshTokenBytes = 40

// ErrInvalidRefreshToken is returned when a refresh token is unknown or
// past its expiry. Callers cannot distinguish the two cases.
var ErrInvalidRefreshToken = errors.New("refresh: invalid or expired token")

// RefreshConfig describes tunable behaviour for the RefreshService.
type RefreshConfig struct {
	RefreshTokenTTL time.Duration
	TokenBytes      int
	Clock           func() time.Time
}

// TokenPair represents an access token and refresh token pair.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// RefreshService mints and rotates long-lived refresh credentials. Each
// token is single-use: a successful rotation deletes the old row before
// inserting its replacement, inside one transaction, so two concurrent
// rotations of the same token cannot both succeed.
type RefreshService struct {
	db         *gorm.DB
	jwt        *JWTService
	refreshTTL time.Duration
	tokenBytes int
	now        func() time.Time
}

// NewRefreshService constructs a refresh credential manager backed by the
// provided database and JWT service.
func NewRefreshService(db *gorm.DB, jwtService *JWTService, cfg RefreshConfig) (*RefreshService, error) {
	if db == nil {
		return nil, errors.New("refresh service: db is required")
	}
	if jwtService == nil {
		return nil, errors.New("refresh service: jwt service is required")
	}

	ttl := cfg.RefreshTokenTTL
	if ttl <= 0 {
		ttl = DefaultRefreshTokenTTL
	}

	size := cfg.TokenBytes
	if size <= 0 {
		size = DefaultRefreshTokenBytes
	}

	clock := time.Now
	if cfg.Clock != nil {
		clock = cfg.Clock
	}

	return &RefreshService{
		db:         db,
		jwt:        jwtService,
		refreshTTL: ttl,
		tokenBytes: size,
		now:        clock,
	}, nil
}

// Issue mints a fresh access/refresh pair for the account and persists the
// refresh credential. Multiple concurrent credentials per account are
// allowed, one per device or session.
func (s *RefreshService) Issue(userID string, kind models.UserKind) (TokenPair, error) {
	if strings.TrimSpace(userID) == "" {
		return TokenPair{}, errors.New("refresh service: user id is required")
	}

	accessToken, err := s.jwt.GenerateAccessToken(userID, kind)
	if err != nil {
		return TokenPair{}, fmt.Errorf("refresh service: generate access token: %w", err)
	}

	refreshValue, err := crypto.GenerateOpaqueToken(s.tokenBytes)
	if err != nil {
		return TokenPair{}, fmt.Errorf("refresh service: generate refresh token: %w", err)
	}

	row := &models.RefreshToken{
		UserID:    userID,
		Token:     refreshValue,
		ExpiresAt: s.now().Add(s.refreshTTL),
	}
	if err := s.db.Create(row).Error; err != nil {
		return TokenPair{}, fmt.Errorf("refresh service: persist refresh token: %w", err)
	}

	metrics.ActiveRefreshTokens.Inc()

	return TokenPair{AccessToken: accessToken, RefreshToken: refreshValue}, nil
}

// Rotate exchanges a refresh token for a new access/refresh pair. The old
// row is deleted and the replacement inserted in one transaction; whichever
// concurrent caller deletes the row first wins, the loser observes
// ErrInvalidRefreshToken. Expired rows are rejected but left in place for
// the maintenance sweep.
func (s *RefreshService) Rotate(refreshToken string) (TokenPair, *models.User, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return TokenPair{}, nil, ErrInvalidRefreshToken
	}

	var row models.RefreshToken
	err := s.db.Where("token = ?", refreshToken).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return TokenPair{}, nil, ErrInvalidRefreshToken
	}
	if err != nil {
		return TokenPair{}, nil, fmt.Errorf("refresh service: find refresh token: %w", err)
	}

	now := s.now()
	if row.ExpiresAt.Before(now) {
		return TokenPair{}, nil, ErrInvalidRefreshToken
	}

	var user models.User
	err = s.db.Take(&user, "id = ?", row.UserID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return TokenPair{}, nil, ErrInvalidRefreshToken
	}
	if err != nil {
		return TokenPair{}, nil, fmt.Errorf("refresh service: find user: %w", err)
	}

	accessToken, err := s.jwt.GenerateAccessToken(user.ID, user.Kind)
	if err != nil {
		return TokenPair{}, nil, fmt.Errorf("refresh service: generate access token: %w", err)
	}

	newValue, err := crypto.GenerateOpaqueToken(s.tokenBytes)
	if err != nil {
		return TokenPair{}, nil, fmt.Errorf("refresh service: generate refresh token: %w", err)
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Where("token = ?", refreshToken).Delete(&models.RefreshToken{})
		if result.Error != nil {
			return fmt.Errorf("refresh service: delete old token: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrInvalidRefreshToken
		}

		replacement := &models.RefreshToken{
			UserID:    user.ID,
			Token:     newValue,
			ExpiresAt: now.Add(s.refreshTTL),
		}
		if err := tx.Create(replacement).Error; err != nil {
			return fmt.Errorf("refresh service: persist replacement: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrInvalidRefreshToken) {
			return TokenPair{}, nil, ErrInvalidRefreshToken
		}
		return TokenPair{}, nil, err
	}

	return TokenPair{AccessToken: accessToken, RefreshToken: newValue}, &user, nil
}

// Revoke deletes the refresh credential matching the token. Revoking an
// unknown token is not an error; logout stays idempotent.
func (s *RefreshService) Revoke(refreshToken string) error {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return nil
	}

	result := s.db.Where("token = ?", refreshToken).Delete(&models.RefreshToken{})
	if result.Error != nil {
		return fmt.Errorf("refresh service: revoke token: %w", result.Error)
	}

	if result.RowsAffected > 0 {
		metrics.ActiveRefreshTokens.Sub(float64(result.RowsAffected))
	}
	return nil
}

// RevokeUser deletes every refresh credential held by the account, ending
// all device sessions at once. Used after a successful password reset.
func (s *RefreshService) RevokeUser(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return nil
	}

	result := s.db.Where("user_id = ?", userID).Delete(&models.RefreshToken{})
	if result.Error != nil {
		return fmt.Errorf("refresh service: revoke user tokens: %w", result.Error)
	}

	if result.RowsAffected > 0 {
		metrics.ActiveRefreshTokens.Sub(float64(result.RowsAffected))
	}
	return nil
}

// CleanupExpired removes refresh credentials past their expiry. Expired
// rows are already rejected at lookup time; this keeps the table from
// growing without bound.
func (s *RefreshService) CleanupExpired(ctx context.Context) (int64, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	result := s.db.WithContext(ctx).
		Where("expires_at < ?", s.now()).
		Delete(&models.RefreshToken{})
	if result.Error != nil {
		return 0, fmt.Errorf("refresh service: cleanup expired: %w", result.Error)
	}

	if result.RowsAffected > 0 {
		metrics.ActiveRefreshTokens.Sub(float64(result.RowsAffected))
	}
	return result.RowsAffected, nil
}
