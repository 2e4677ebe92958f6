package auth

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/safeanchor/safeanchor/internal/models"
	"github.com/safeanchor/safeanchor/pkg/metrics"
)

type refreshHarness struct {
	svc *RefreshService
	db  *gorm.DB
	now *time.Time
}

func newRefreshHarness(t *testing.T) *refreshHarness {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.RefreshToken{}))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return current }

	jwtSvc, err := NewJWTService(JWTConfig{Secret: "unit-test-secret", Clock: clock})
	require.NoError(t, err)

	svc, err := NewRefreshService(db, jwtSvc, RefreshConfig{Clock: clock})
	require.NoError(t, err)

	return &refreshHarness{svc: svc, db: db, now: &current}
}

func (h *refreshHarness) createUser(t *testing.T, email string) *models.User {
	t.Helper()
	user := &models.User{
		Email:      email,
		Password:   "hashed",
		Kind:       models.UserKindVictim,
		IsVerified: true,
	}
	require.NoError(t, h.db.Create(user).Error)
	return user
}

func (h *refreshHarness) tokenCount(t *testing.T, userID string) int64 {
	t.Helper()
	var count int64
	require.NoError(t, h.db.Model(&models.RefreshToken{}).Where("user_id = ?", userID).Count(&count).Error)
	return count
}

func TestIssuePersistsToken(t *testing.T) {
	h := newRefreshHarness(t)
	user := h.createUser(t, "a@example.com")

	pair, err := h.svc.Issue(user.ID, user.Kind)
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)

	var row models.RefreshToken
	require.NoError(t, h.db.Where("token = ?", pair.RefreshToken).Take(&row).Error)
	require.Equal(t, user.ID, row.UserID)
	require.WithinDuration(t, h.now.Add(DefaultRefreshTokenTTL), row.ExpiresAt, time.Second)
}

func TestIssueAllowsMultipleSessions(t *testing.T) {
	h := newRefreshHarness(t)
	user := h.createUser(t, "a@example.com")

	first, err := h.svc.Issue(user.ID, user.Kind)
	require.NoError(t, err)
	second, err := h.svc.Issue(user.ID, user.Kind)
	require.NoError(t, err)

	require.NotEqual(t, first.RefreshToken, second.RefreshToken)
	require.EqualValues(t, 2, h.tokenCount(t, user.ID))
}

func TestRotateReplacesToken(t *testing.T) {
	h := newRefreshHarness(t)
	user := h.createUser(t, "a@example.com")

	pair, err := h.svc.Issue(user.ID, user.Kind)
	require.NoError(t, err)

	rotated, owner, err := h.svc.Rotate(pair.RefreshToken)
	require.NoError(t, err)
	require.Equal(t, user.ID, owner.ID)
	require.NotEqual(t, pair.RefreshToken, rotated.RefreshToken)

	// Exactly one credential remains for the account.
	require.EqualValues(t, 1, h.tokenCount(t, user.ID))

	_, _, err = h.svc.Rotate(pair.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestRotateUnknownToken(t *testing.T) {
	h := newRefreshHarness(t)

	_, _, err := h.svc.Rotate("never-issued")
	require.ErrorIs(t, err, ErrInvalidRefreshToken)

	_, _, err = h.svc.Rotate("   ")
	require.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestRotateExpiredTokenLeftForSweep(t *testing.T) {
	h := newRefreshHarness(t)
	user := h.createUser(t, "a@example.com")

	pair, err := h.svc.Issue(user.ID, user.Kind)
	require.NoError(t, err)

	*h.now = h.now.Add(DefaultRefreshTokenTTL + time.Minute)

	_, _, err = h.svc.Rotate(pair.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidRefreshToken)
	require.EqualValues(t, 1, h.tokenCount(t, user.ID))
}

func TestRotateConcurrentSingleWinner(t *testing.T) {
	h := newRefreshHarness(t)
	user := h.createUser(t, "a@example.com")

	pair, err := h.svc.Issue(user.ID, user.Kind)
	require.NoError(t, err)

	const rotators = 8
	results := make(chan error, rotators)
	var wg sync.WaitGroup
	for i := 0; i < rotators; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := h.svc.Rotate(pair.RefreshToken)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	successes := 0
	for err := range results {
		if err == nil {
			successes++
		} else {
			require.ErrorIs(t, err, ErrInvalidRefreshToken)
		}
	}
	require.Equal(t, 1, successes)
	require.EqualValues(t, 1, h.tokenCount(t, user.ID))
}

func TestRevokeIsIdempotent(t *testing.T) {
	h := newRefreshHarness(t)
	user := h.createUser(t, "a@example.com")

	pair, err := h.svc.Issue(user.ID, user.Kind)
	require.NoError(t, err)

	require.NoError(t, h.svc.Revoke(pair.RefreshToken))
	require.EqualValues(t, 0, h.tokenCount(t, user.ID))

	require.NoError(t, h.svc.Revoke(pair.RefreshToken))
	require.NoError(t, h.svc.Revoke(""))
}

func TestRevokeUserEndsAllSessions(t *testing.T) {
	h := newRefreshHarness(t)
	user := h.createUser(t, "a@example.com")
	other := h.createUser(t, "b@example.com")

	_, err := h.svc.Issue(user.ID, user.Kind)
	require.NoError(t, err)
	_, err = h.svc.Issue(user.ID, user.Kind)
	require.NoError(t, err)
	keep, err := h.svc.Issue(other.ID, other.Kind)
	require.NoError(t, err)

	require.NoError(t, h.svc.RevokeUser(user.ID))
	require.EqualValues(t, 0, h.tokenCount(t, user.ID))

	// Other accounts are untouched.
	var row models.RefreshToken
	require.NoError(t, h.db.Where("token = ?", keep.RefreshToken).Take(&row).Error)
}

func TestCleanupExpiredRemovesOnlyStaleRows(t *testing.T) {
	h := newRefreshHarness(t)
	user := h.createUser(t, "a@example.com")

	stale, err := h.svc.Issue(user.ID, user.Kind)
	require.NoError(t, err)

	*h.now = h.now.Add(DefaultRefreshTokenTTL + time.Minute)

	fresh, err := h.svc.Issue(user.ID, user.Kind)
	require.NoError(t, err)

	removed, err := h.svc.CleanupExpired(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 1, removed)

	var count int64
	require.NoError(t, h.db.Model(&models.RefreshToken{}).Where("token = ?", stale.RefreshToken).Count(&count).Error)
	require.Zero(t, count)
	require.NoError(t, h.db.Model(&models.RefreshToken{}).Where("token = ?", fresh.RefreshToken).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestCleanupExpiredKeepsSessionGaugeInStep(t *testing.T) {
	h := newRefreshHarness(t)
	user := h.createUser(t, "a@example.com")

	before := testutil.ToFloat64(metrics.ActiveRefreshTokens)

	_, err := h.svc.Issue(user.ID, user.Kind)
	require.NoError(t, err)
	_, err = h.svc.Issue(user.ID, user.Kind)
	require.NoError(t, err)
	require.Equal(t, before+2, testutil.ToFloat64(metrics.ActiveRefreshTokens))

	*h.now = h.now.Add(DefaultRefreshTokenTTL + time.Minute)

	removed, err := h.svc.CleanupExpired(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 2, removed)
	require.Equal(t, before, testutil.ToFloat64(metrics.ActiveRefreshTokens))
}
