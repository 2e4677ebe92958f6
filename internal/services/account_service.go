package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	iauth "github.com/safeanchor/safeanchor/internal/auth"
	"github.com/safeanchor/safeanchor/internal/models"
	"github.com/safeanchor/safeanchor/internal/otp"
	"github.com/safeanchor/safeanchor/pkg/crypto"
	apperrors "github.com/safeanchor/safeanchor/pkg/errors"
	"github.com/safeanchor/safeanchor/pkg/logger"
	"github.com/safeanchor/safeanchor/pkg/mail"
	"github.com/safeanchor/safeanchor/pkg/metrics"
)

// DefaultResetCodeTTL is the validity window for password reset codes.
const DefaultResetCodeTTL = time.Hour

// AccountOption customises the AccountService.
type AccountOption func(*AccountService)

// WithAccountClock injects a custom time source.
func WithAccountClock(clock func() time.Time) AccountOption {
	return func(s *AccountService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithResetCodeTTL overrides the password reset code lifetime.
func WithResetCodeTTL(d time.Duration) AccountOption {
	return func(s *AccountService) {
		if d > 0 {
			s.resetTTL = d
		}
	}
}

// AccountService orchestrates the account lifecycle for every account kind:
// register, verify, resend, login, logout, refresh, and password reset.
// Victim and expert flows share this one implementation; only the
// kind-specific side profile differs.
type AccountService struct {
	db       *gorm.DB
	otps     otp.Store
	refresh  *iauth.RefreshService
	mailer   mail.Mailer
	resetTTL time.Duration
	now      func() time.Time
	log      *zap.Logger
}

// NewAccountService constructs the orchestrator from its collaborators.
func NewAccountService(db *gorm.DB, otps otp.Store, refresh *iauth.RefreshService, mailer mail.Mailer, opts ...AccountOption) (*AccountService, error) {
	if db == nil {
		return nil, errors.New("account service: db is required")
	}
	if otps == nil {
		return nil, errors.New("account service: otp store is required")
	}
	if refresh == nil {
		return nil, errors.New("account service: refresh service is required")
	}

	service := &AccountService{
		db:       db,
		otps:     otps,
		refresh:  refresh,
		mailer:   mailer,
		resetTTL: DefaultResetCodeTTL,
		now:      time.Now,
		log:      logger.WithModule("accounts"),
	}

	for _, opt := range opts {
		opt(service)
	}

	return service, nil
}

// RegisterInput describes the fields accepted at registration.
type RegisterInput struct {
	Email           string
	Password        string
	ConfirmPassword string
	FirstName       string
	LastName        string
	Phone           string

	// Victim-only matching preferences.
	ExpertPreferences datatypes.JSON

	// Expert-only credential fields.
	Specializations datatypes.JSON
}

// PublicAccount is the projection returned by account operations. It never
// carries the password hash or reset fields.
type PublicAccount struct {
	ID         string          `json:"user_id"`
	Email      string          `json:"email"`
	Kind       models.UserKind `json:"kind"`
	FirstName  string          `json:"first_name"`
	LastName   string          `json:"last_name"`
	IsVerified bool            `json:"is_verified"`
}

// LoginResult bundles the issued credentials with the public account.
type LoginResult struct {
	AccessToken  string        `json:"token"`
	RefreshToken string        `json:"refresh_token"`
	Account      PublicAccount `json:"user"`
}

func publicAccount(user *models.User) PublicAccount {
	return PublicAccount{
		ID:         user.ID,
		Email:      user.Email,
		Kind:       user.Kind,
		FirstName:  user.FirstName,
		LastName:   user.LastName,
		IsVerified: user.IsVerified,
	}
}

// Register creates an unverified account of the given kind, its side
// profile, and a pending verification code. The notification is dispatched
// best-effort: a mail failure is logged and registration still succeeds.
func (s *AccountService) Register(ctx context.Context, kind models.UserKind, input RegisterInput) (PublicAccount, error) {
	if kind != models.UserKindVictim && kind != models.UserKindExpert {
		return PublicAccount{}, apperrors.NewBadRequest(fmt.Sprintf("unsupported account kind %q", kind))
	}
	if input.Password != input.ConfirmPassword {
		return PublicAccount{}, ErrPasswordMismatch
	}

	email := models.NormalizeEmail(input.Email)

	var existing models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).Take(&existing).Error
	if err == nil {
		return PublicAccount{}, ErrEmailTaken
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return PublicAccount{}, fmt.Errorf("account service: check existing: %w", err)
	}

	hashed, err := crypto.HashPassword(input.Password)
	if err != nil {
		return PublicAccount{}, fmt.Errorf("account service: hash password: %w", err)
	}

	user := &models.User{
		Email:     email,
		Password:  hashed,
		Kind:      kind,
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Phone:     input.Phone,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return fmt.Errorf("account service: create user: %w", err)
		}

		switch kind {
		case models.UserKindVictim:
			profile := &models.VictimProfile{
				UserID:            user.ID,
				ExpertPreferences: input.ExpertPreferences,
			}
			if err := tx.Create(profile).Error; err != nil {
				return fmt.Errorf("account service: create victim profile: %w", err)
			}
		case models.UserKindExpert:
			profile := &models.ExpertProfile{
				UserID:          user.ID,
				Specializations: input.Specializations,
			}
			if err := tx.Create(profile).Error; err != nil {
				return fmt.Errorf("account service: create expert profile: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return PublicAccount{}, err
	}

	if err := s.issueVerificationCode(ctx, user, "register"); err != nil {
		return PublicAccount{}, err
	}

	return publicAccount(user), nil
}

// VerifyEmail consumes a raw verification code and flips the verification
// flag on the owning account. The code alone identifies the account.
func (s *AccountService) VerifyEmail(ctx context.Context, code string) (PublicAccount, error) {
	owner, err := s.otps.ConsumeByCode(code)
	if err != nil {
		switch {
		case errors.Is(err, otp.ErrInvalidFormat):
			metrics.OTPConsumed.WithLabelValues("malformed").Inc()
			return PublicAccount{}, ErrOTPMalformed
		case errors.Is(err, otp.ErrExpired):
			metrics.OTPConsumed.WithLabelValues("expired").Inc()
			return PublicAccount{}, ErrOTPExpired
		default:
			metrics.OTPConsumed.WithLabelValues("not_found").Inc()
			return PublicAccount{}, ErrOTPNotFound
		}
	}

	var user models.User
	err = s.db.WithContext(ctx).Where("email = ?", owner.Email).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// The account vanished between code issue and consumption.
		return PublicAccount{}, ErrAccountMissing
	}
	if err != nil {
		return PublicAccount{}, fmt.Errorf("account service: load account: %w", err)
	}

	if user.IsVerified {
		return PublicAccount{}, ErrAlreadyVerified
	}

	if err := s.db.WithContext(ctx).Model(&user).Update("is_verified", true).Error; err != nil {
		return PublicAccount{}, fmt.Errorf("account service: mark verified: %w", err)
	}
	user.IsVerified = true

	metrics.OTPConsumed.WithLabelValues("success").Inc()

	return publicAccount(&user), nil
}

// ResendOTP issues a fresh verification code, replacing any pending one for
// the identity.
func (s *AccountService) ResendOTP(ctx context.Context, email string) error {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", models.NormalizeEmail(email)).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrAccountMissing
	}
	if err != nil {
		return fmt.Errorf("account service: load account: %w", err)
	}

	if user.IsVerified {
		return ErrAlreadyVerified
	}

	return s.issueVerificationCode(ctx, &user, "resend")
}

// Login authenticates an identity/password pair and issues an
// access/refresh credential pair. Unknown identity and wrong password
// produce the identical error so responses cannot enumerate accounts.
func (s *AccountService) Login(ctx context.Context, email, password string) (LoginResult, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", models.NormalizeEmail(email)).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		return LoginResult{}, apperrors.ErrInvalidCredentials
	}
	if err != nil {
		return LoginResult{}, fmt.Errorf("account service: load account: %w", err)
	}

	if !user.IsVerified {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		return LoginResult{}, apperrors.ErrEmailNotVerified
	}

	if !crypto.VerifyPassword(user.Password, password) {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		return LoginResult{}, apperrors.ErrInvalidCredentials
	}

	pair, err := s.refresh.Issue(user.ID, user.Kind)
	if err != nil {
		return LoginResult{}, err
	}

	metrics.AuthAttempts.WithLabelValues("success").Inc()

	return LoginResult{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		Account:      publicAccount(&user),
	}, nil
}

// Logout revokes the refresh credential. Revoking a token that is already
// gone still reports success.
func (s *AccountService) Logout(ctx context.Context, refreshToken string) error {
	return s.refresh.Revoke(refreshToken)
}

// Refresh rotates a refresh credential for a new access/refresh pair.
func (s *AccountService) Refresh(ctx context.Context, refreshToken string) (iauth.TokenPair, error) {
	pair, _, err := s.refresh.Rotate(refreshToken)
	if err != nil {
		if errors.Is(err, iauth.ErrInvalidRefreshToken) {
			return iauth.TokenPair{}, apperrors.ErrInvalidRefreshToken
		}
		return iauth.TokenPair{}, err
	}
	return pair, nil
}

// ForgotPassword stores a reset code on the account and dispatches it. The
// caller always receives a generic acknowledgement; dispatch failures are
// only logged.
func (s *AccountService) ForgotPassword(ctx context.Context, email string) error {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", models.NormalizeEmail(email)).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrAccountMissing
	}
	if err != nil {
		return fmt.Errorf("account service: load account: %w", err)
	}

	code, err := otp.GenerateCode()
	if err != nil {
		return fmt.Errorf("account service: generate reset code: %w", err)
	}

	expires := s.now().Add(s.resetTTL)
	updates := map[string]any{
		"reset_code":       code,
		"reset_expires_at": expires,
	}
	if err := s.db.WithContext(ctx).Model(&user).Updates(updates).Error; err != nil {
		return fmt.Errorf("account service: store reset code: %w", err)
	}

	s.dispatch(ctx, user.Email, resetSubject(), resetText(code), resetHTML(code))
	return nil
}

// ResetPassword replaces the account password when the reset code matches
// the identity within its validity window, then clears the reset fields and
// ends every active device session.
func (s *AccountService) ResetPassword(ctx context.Context, email, resetCode, newPassword, confirmPassword string) error {
	if newPassword != confirmPassword {
		return ErrPasswordMismatch
	}

	var user models.User
	err := s.db.WithContext(ctx).
		Where("email = ? AND reset_code = ? AND reset_expires_at > ?",
			models.NormalizeEmail(email), resetCode, s.now()).
		Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrInvalidResetCode
	}
	if err != nil {
		return fmt.Errorf("account service: find reset candidate: %w", err)
	}

	hashed, err := crypto.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("account service: hash password: %w", err)
	}

	updates := map[string]any{
		"password":         hashed,
		"reset_code":       "",
		"reset_expires_at": nil,
	}
	if err := s.db.WithContext(ctx).Model(&user).Updates(updates).Error; err != nil {
		return fmt.Errorf("account service: store new password: %w", err)
	}

	if err := s.refresh.RevokeUser(user.ID); err != nil {
		s.log.Warn("revoke sessions after password reset", zap.Error(err))
	}
	return nil
}

func (s *AccountService) issueVerificationCode(ctx context.Context, user *models.User, trigger string) error {
	code, err := otp.GenerateCode()
	if err != nil {
		return fmt.Errorf("account service: generate verification code: %w", err)
	}

	firstName := user.FirstName
	if firstName == "" {
		firstName = "User"
	}

	s.otps.Put(user.Email, code, user.Kind, firstName)
	metrics.OTPIssued.WithLabelValues(trigger).Inc()

	s.dispatch(ctx, user.Email,
		verificationSubject(user.Kind),
		verificationText(code, firstName),
		verificationHTML(code, firstName, user.Kind),
	)
	return nil
}

// dispatch delivers a notification best-effort. Failures never abort the
// enclosing flow.
func (s *AccountService) dispatch(ctx context.Context, to, subject, text, html string) {
	if s.mailer == nil {
		return
	}

	msg := mail.Message{
		To:      []string{to},
		Subject: subject,
		Text:    text,
		HTML:    html,
	}
	err := s.mailer.Send(ctx, msg)
	switch {
	case err == nil:
		metrics.MailDispatches.WithLabelValues("success").Inc()
	case errors.Is(err, mail.ErrSMTPDisabled):
		// Nothing was sent, so neither outcome counter moves.
		s.log.Debug("mail delivery disabled", zap.String("subject", subject))
	default:
		metrics.MailDispatches.WithLabelValues("failure").Inc()
		s.log.Warn("mail dispatch failed",
			zap.String("subject", subject),
			zap.Error(err),
		)
	}
}
