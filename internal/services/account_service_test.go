package services

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	iauth "github.com/safeanchor/safeanchor/internal/auth"
	"github.com/safeanchor/safeanchor/internal/models"
	"github.com/safeanchor/safeanchor/internal/otp"
	apperrors "github.com/safeanchor/safeanchor/pkg/errors"
	"github.com/safeanchor/safeanchor/pkg/mail"
	"github.com/safeanchor/safeanchor/pkg/metrics"
)

type captureMailer struct {
	mu      sync.Mutex
	sent    []mail.Message
	fail    bool
	sendErr error
}

func (m *captureMailer) Send(ctx context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return fmt.Errorf("mailer down")
	}
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *captureMailer) last(t *testing.T) mail.Message {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.sent)
	return m.sent[len(m.sent)-1]
}

func (m *captureMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

var codePattern = regexp.MustCompile(`\b(\d{6})\b`)

func extractCode(t *testing.T, msg mail.Message) string {
	t.Helper()
	match := codePattern.FindString(msg.Text)
	require.NotEmpty(t, match, "no 6-digit code in %q", msg.Text)
	return match
}

type accountHarness struct {
	svc    *AccountService
	db     *gorm.DB
	otps   *otp.MemoryStore
	mailer *captureMailer
	now    *time.Time
}

func newAccountHarness(t *testing.T) *accountHarness {
	t.Helper()

	db := openServiceTestDB(t)

	current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return current }

	store := otp.NewMemoryStore(otp.MemoryConfig{Clock: clock})

	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{
		Secret: "test-secret",
		Issuer: "safeanchor-test",
		Clock:  clock,
	})
	require.NoError(t, err)

	refreshSvc, err := iauth.NewRefreshService(db, jwtSvc, iauth.RefreshConfig{Clock: clock})
	require.NoError(t, err)

	mailer := &captureMailer{}

	svc, err := NewAccountService(db, store, refreshSvc, mailer, WithAccountClock(clock))
	require.NoError(t, err)

	return &accountHarness{svc: svc, db: db, otps: store, mailer: mailer, now: &current}
}

func openServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.VictimProfile{},
		&models.ExpertProfile{},
		&models.RefreshToken{},
		&models.Resource{},
		&models.SupportGroup{},
		&models.CrisisHotline{},
		&models.SupportSession{},
	))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	return db
}

func registerVictim(t *testing.T, h *accountHarness, email string) PublicAccount {
	t.Helper()
	account, err := h.svc.Register(context.Background(), models.UserKindVictim, RegisterInput{
		Email:           email,
		Password:        "password123",
		ConfirmPassword: "password123",
		FirstName:       "Ada",
		LastName:        "Lovelace",
	})
	require.NoError(t, err)
	return account
}

func verifyAccount(t *testing.T, h *accountHarness) {
	t.Helper()
	code := extractCode(t, h.mailer.last(t))
	_, err := h.svc.VerifyEmail(context.Background(), code)
	require.NoError(t, err)
}

func TestRegisterCreatesPendingVerification(t *testing.T) {
	h := newAccountHarness(t)

	account := registerVictim(t, h, "a@example.com")
	require.Equal(t, "a@example.com", account.Email)
	require.Equal(t, models.UserKindVictim, account.Kind)
	require.False(t, account.IsVerified)

	var user models.User
	require.NoError(t, h.db.Where("email = ?", "a@example.com").Take(&user).Error)
	require.False(t, user.IsVerified)
	require.NotEqual(t, "password123", user.Password)

	var profile models.VictimProfile
	require.NoError(t, h.db.Where("user_id = ?", user.ID).Take(&profile).Error)

	require.True(t, h.otps.HasLive("a@example.com"))
	require.Equal(t, 1, h.mailer.count())
}

func TestRegisterNormalizesEmail(t *testing.T) {
	h := newAccountHarness(t)

	account := registerVictim(t, h, "  Mixed@Example.COM ")
	require.Equal(t, "mixed@example.com", account.Email)
}

func TestRegisterExpertCreatesExpertProfile(t *testing.T) {
	h := newAccountHarness(t)

	account, err := h.svc.Register(context.Background(), models.UserKindExpert, RegisterInput{
		Email:           "expert@example.com",
		Password:        "password123",
		ConfirmPassword: "password123",
		FirstName:       "Grace",
		Specializations: datatypes.JSON(`["trauma","legal"]`),
	})
	require.NoError(t, err)
	require.Equal(t, models.UserKindExpert, account.Kind)

	var user models.User
	require.NoError(t, h.db.Where("email = ?", "expert@example.com").Take(&user).Error)

	var profile models.ExpertProfile
	require.NoError(t, h.db.Where("user_id = ?", user.ID).Take(&profile).Error)
	require.Equal(t, models.ExpertVerificationPending, profile.VerificationStatus)
}

func TestRegisterPasswordMismatch(t *testing.T) {
	h := newAccountHarness(t)

	_, err := h.svc.Register(context.Background(), models.UserKindVictim, RegisterInput{
		Email:           "a@example.com",
		Password:        "password123",
		ConfirmPassword: "different",
	})
	require.ErrorIs(t, err, ErrPasswordMismatch)
}

func TestRegisterDuplicateEmailAcrossKinds(t *testing.T) {
	h := newAccountHarness(t)

	registerVictim(t, h, "a@example.com")

	// The identity key is unique across every account kind.
	_, err := h.svc.Register(context.Background(), models.UserKindExpert, RegisterInput{
		Email:           "A@Example.com",
		Password:        "password123",
		ConfirmPassword: "password123",
	})
	require.ErrorIs(t, err, ErrEmailTaken)
}

func TestRegisterSucceedsWhenMailFails(t *testing.T) {
	h := newAccountHarness(t)
	h.mailer.fail = true

	account := registerVictim(t, h, "a@example.com")
	require.Equal(t, "a@example.com", account.Email)
	// The pending code is still stored; the user can verify after a resend.
	require.True(t, h.otps.HasLive("a@example.com"))
}

func TestDispatchCountersSkipDisabledMailer(t *testing.T) {
	h := newAccountHarness(t)
	h.mailer.sendErr = mail.ErrSMTPDisabled

	successBefore := testutil.ToFloat64(metrics.MailDispatches.WithLabelValues("success"))
	failureBefore := testutil.ToFloat64(metrics.MailDispatches.WithLabelValues("failure"))

	registerVictim(t, h, "a@example.com")

	// A disabled mailer delivers nothing, so neither outcome is recorded.
	require.Equal(t, successBefore, testutil.ToFloat64(metrics.MailDispatches.WithLabelValues("success")))
	require.Equal(t, failureBefore, testutil.ToFloat64(metrics.MailDispatches.WithLabelValues("failure")))
}

func TestVerifyEmailFlow(t *testing.T) {
	h := newAccountHarness(t)

	registerVictim(t, h, "a@example.com")
	code := extractCode(t, h.mailer.last(t))

	// A wrong code is a 400-class failure and must not consume the real one.
	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}
	_, err := h.svc.VerifyEmail(context.Background(), wrong)
	require.ErrorIs(t, err, ErrOTPNotFound)

	account, err := h.svc.VerifyEmail(context.Background(), code)
	require.NoError(t, err)
	require.True(t, account.IsVerified)

	var user models.User
	require.NoError(t, h.db.Where("email = ?", "a@example.com").Take(&user).Error)
	require.True(t, user.IsVerified)

	// The code is single-use: gone from the store either way.
	_, err = h.svc.VerifyEmail(context.Background(), code)
	require.ErrorIs(t, err, ErrOTPNotFound)
	require.False(t, h.otps.HasLive("a@example.com"))
}

func TestVerifyEmailMalformedCode(t *testing.T) {
	h := newAccountHarness(t)

	_, err := h.svc.VerifyEmail(context.Background(), "12ab56")
	require.ErrorIs(t, err, ErrOTPMalformed)
}

func TestVerifyEmailExpiredCode(t *testing.T) {
	h := newAccountHarness(t)

	registerVictim(t, h, "a@example.com")
	code := extractCode(t, h.mailer.last(t))

	*h.now = h.now.Add(otp.DefaultTTL + time.Second)

	_, err := h.svc.VerifyEmail(context.Background(), code)
	require.ErrorIs(t, err, ErrOTPExpired)

	// The stale record was deleted as a side effect.
	_, err = h.svc.VerifyEmail(context.Background(), code)
	require.ErrorIs(t, err, ErrOTPNotFound)
}

func TestVerifyEmailAlreadyVerified(t *testing.T) {
	h := newAccountHarness(t)

	registerVictim(t, h, "a@example.com")
	verifyAccount(t, h)

	// A fresh code for an already verified account is rejected.
	h.otps.Put("a@example.com", "999999", models.UserKindVictim, "Ada")
	_, err := h.svc.VerifyEmail(context.Background(), "999999")
	require.ErrorIs(t, err, ErrAlreadyVerified)
}

func TestVerifyEmailAccountVanished(t *testing.T) {
	h := newAccountHarness(t)

	h.otps.Put("ghost@example.com", "123456", models.UserKindVictim, "Ghost")
	_, err := h.svc.VerifyEmail(context.Background(), "123456")
	require.ErrorIs(t, err, ErrAccountMissing)
}

func TestResendOTPReplacesPendingCode(t *testing.T) {
	h := newAccountHarness(t)

	registerVictim(t, h, "a@example.com")
	first := extractCode(t, h.mailer.last(t))

	require.NoError(t, h.svc.ResendOTP(context.Background(), "a@example.com"))
	second := extractCode(t, h.mailer.last(t))

	if first != second {
		_, err := h.svc.VerifyEmail(context.Background(), first)
		require.ErrorIs(t, err, ErrOTPNotFound)
	}

	_, err := h.svc.VerifyEmail(context.Background(), second)
	require.NoError(t, err)
}

func TestResendOTPGuards(t *testing.T) {
	h := newAccountHarness(t)

	require.ErrorIs(t, h.svc.ResendOTP(context.Background(), "missing@example.com"), ErrAccountMissing)

	registerVictim(t, h, "a@example.com")
	verifyAccount(t, h)
	require.ErrorIs(t, h.svc.ResendOTP(context.Background(), "a@example.com"), ErrAlreadyVerified)
}

func TestConcurrentResendLeavesOneLiveCode(t *testing.T) {
	h := newAccountHarness(t)
	registerVictim(t, h, "a@example.com")

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			require.NoError(t, h.svc.ResendOTP(context.Background(), "a@example.com"))
		}()
	}
	wg.Wait()

	stats := h.otps.Stats()
	require.Equal(t, 1, stats.Total)
	require.Equal(t, []string{"a@example.com"}, stats.Emails)
}

func TestLoginRequiresVerification(t *testing.T) {
	h := newAccountHarness(t)
	registerVictim(t, h, "a@example.com")

	// Correct password, unverified account.
	_, err := h.svc.Login(context.Background(), "a@example.com", "password123")
	require.ErrorIs(t, err, apperrors.ErrEmailNotVerified)
}

func TestLoginConstantShapeFailures(t *testing.T) {
	h := newAccountHarness(t)
	registerVictim(t, h, "a@example.com")
	verifyAccount(t, h)

	_, unknownErr := h.svc.Login(context.Background(), "nobody@example.com", "password123")
	_, wrongErr := h.svc.Login(context.Background(), "a@example.com", "wrong-password")

	// Unknown identity and wrong password are indistinguishable.
	require.ErrorIs(t, unknownErr, apperrors.ErrInvalidCredentials)
	require.ErrorIs(t, wrongErr, apperrors.ErrInvalidCredentials)
	require.Equal(t, unknownErr.Error(), wrongErr.Error())
}

func TestLoginIssuesPersistedRefreshToken(t *testing.T) {
	h := newAccountHarness(t)
	registerVictim(t, h, "a@example.com")
	verifyAccount(t, h)

	result, err := h.svc.Login(context.Background(), "a@example.com", "password123")
	require.NoError(t, err)
	require.NotEmpty(t, result.AccessToken)
	require.NotEmpty(t, result.RefreshToken)
	require.Equal(t, "a@example.com", result.Account.Email)

	var row models.RefreshToken
	require.NoError(t, h.db.Where("token = ?", result.RefreshToken).Take(&row).Error)
	require.Equal(t, result.Account.ID, row.UserID)
}

func TestRefreshRotationIsSingleUse(t *testing.T) {
	h := newAccountHarness(t)
	registerVictim(t, h, "a@example.com")
	verifyAccount(t, h)

	result, err := h.svc.Login(context.Background(), "a@example.com", "password123")
	require.NoError(t, err)

	pair, err := h.svc.Refresh(context.Background(), result.RefreshToken)
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEqual(t, result.RefreshToken, pair.RefreshToken)

	// The old token was deleted during rotation.
	_, err = h.svc.Refresh(context.Background(), result.RefreshToken)
	require.ErrorIs(t, err, apperrors.ErrInvalidRefreshToken)

	// The replacement still works.
	_, err = h.svc.Refresh(context.Background(), pair.RefreshToken)
	require.NoError(t, err)
}

func TestRefreshExpiredToken(t *testing.T) {
	h := newAccountHarness(t)
	registerVictim(t, h, "a@example.com")
	verifyAccount(t, h)

	result, err := h.svc.Login(context.Background(), "a@example.com", "password123")
	require.NoError(t, err)

	*h.now = h.now.Add(iauth.DefaultRefreshTokenTTL + time.Hour)

	_, err = h.svc.Refresh(context.Background(), result.RefreshToken)
	require.ErrorIs(t, err, apperrors.ErrInvalidRefreshToken)

	// Expired rows are rejected at lookup, not proactively purged.
	var count int64
	require.NoError(t, h.db.Model(&models.RefreshToken{}).Where("token = ?", result.RefreshToken).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestLogoutIsIdempotent(t *testing.T) {
	h := newAccountHarness(t)
	registerVictim(t, h, "a@example.com")
	verifyAccount(t, h)

	result, err := h.svc.Login(context.Background(), "a@example.com", "password123")
	require.NoError(t, err)

	require.NoError(t, h.svc.Logout(context.Background(), result.RefreshToken))

	var count int64
	require.NoError(t, h.db.Model(&models.RefreshToken{}).Where("token = ?", result.RefreshToken).Count(&count).Error)
	require.Zero(t, count)

	// A second logout of the same token still reports success.
	require.NoError(t, h.svc.Logout(context.Background(), result.RefreshToken))
	require.NoError(t, h.svc.Logout(context.Background(), "never-issued"))
}

func TestForgotPasswordStoresPersistedCode(t *testing.T) {
	h := newAccountHarness(t)
	registerVictim(t, h, "a@example.com")
	verifyAccount(t, h)

	require.NoError(t, h.svc.ForgotPassword(context.Background(), "a@example.com"))

	var user models.User
	require.NoError(t, h.db.Where("email = ?", "a@example.com").Take(&user).Error)
	require.Len(t, user.ResetCode, otp.CodeLength)
	require.NotNil(t, user.ResetExpiresAt)
	require.WithinDuration(t, h.now.Add(DefaultResetCodeTTL), *user.ResetExpiresAt, time.Second)

	require.ErrorIs(t, h.svc.ForgotPassword(context.Background(), "missing@example.com"), ErrAccountMissing)
}

func TestResetPasswordFlow(t *testing.T) {
	h := newAccountHarness(t)
	registerVictim(t, h, "a@example.com")
	verifyAccount(t, h)

	login, err := h.svc.Login(context.Background(), "a@example.com", "password123")
	require.NoError(t, err)

	require.NoError(t, h.svc.ForgotPassword(context.Background(), "a@example.com"))
	code := extractCode(t, h.mailer.last(t))

	ctx := context.Background()

	require.ErrorIs(t,
		h.svc.ResetPassword(ctx, "a@example.com", code, "newpassword", "different"),
		ErrPasswordMismatch)

	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}
	require.ErrorIs(t,
		h.svc.ResetPassword(ctx, "a@example.com", wrong, "newpassword", "newpassword"),
		ErrInvalidResetCode)

	// The right code bound to a different identity is rejected.
	require.ErrorIs(t,
		h.svc.ResetPassword(ctx, "other@example.com", code, "newpassword", "newpassword"),
		ErrInvalidResetCode)

	require.NoError(t,
		h.svc.ResetPassword(ctx, "a@example.com", code, "newpassword", "newpassword"))

	var user models.User
	require.NoError(t, h.db.Where("email = ?", "a@example.com").Take(&user).Error)
	require.Empty(t, user.ResetCode)
	require.Nil(t, user.ResetExpiresAt)

	// Existing device sessions are ended by the reset.
	_, err = h.svc.Refresh(ctx, login.RefreshToken)
	require.ErrorIs(t, err, apperrors.ErrInvalidRefreshToken)

	// The code is cleared; replaying it fails.
	require.ErrorIs(t,
		h.svc.ResetPassword(ctx, "a@example.com", code, "again", "again"),
		ErrInvalidResetCode)

	_, err = h.svc.Login(ctx, "a@example.com", "newpassword")
	require.NoError(t, err)
	_, err = h.svc.Login(ctx, "a@example.com", "password123")
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
}

func TestResetPasswordExpiredCode(t *testing.T) {
	h := newAccountHarness(t)
	registerVictim(t, h, "a@example.com")
	verifyAccount(t, h)

	require.NoError(t, h.svc.ForgotPassword(context.Background(), "a@example.com"))
	code := extractCode(t, h.mailer.last(t))

	*h.now = h.now.Add(DefaultResetCodeTTL + time.Minute)

	require.ErrorIs(t,
		h.svc.ResetPassword(context.Background(), "a@example.com", code, "newpassword", "newpassword"),
		ErrInvalidResetCode)
}
