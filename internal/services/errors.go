package services

import (
	"net/http"

	apperrors "github.com/safeanchor/safeanchor/pkg/errors"
)

// Domain errors shared across services. Messages are user-facing.
var (
	// ErrPasswordMismatch is returned when password and confirmation differ.
	ErrPasswordMismatch = apperrors.New("PASSWORD_MISMATCH", "Passwords do not match", http.StatusBadRequest)

	// ErrEmailTaken is returned when the identity key already owns an
	// account of any kind.
	ErrEmailTaken = apperrors.New("EMAIL_TAKEN", "Email already exists", http.StatusBadRequest)

	// ErrAccountMissing is returned when no account exists for the identity.
	ErrAccountMissing = apperrors.New("ACCOUNT_MISSING", "User not found", http.StatusBadRequest)

	// ErrAlreadyVerified guards against re-verifying a verified account.
	ErrAlreadyVerified = apperrors.New("ALREADY_VERIFIED", "Email already verified", http.StatusBadRequest)

	// ErrInvalidResetCode covers a reset code that does not match, matches a
	// different account, or has expired. Callers cannot tell the cases apart.
	ErrInvalidResetCode = apperrors.New("INVALID_RESET_CODE", "Invalid or expired code", http.StatusBadRequest)

	// OTP submission failures. Expired and unknown codes are both
	// 400-class; only the user-facing copy differs.
	ErrOTPMalformed = apperrors.New("OTP_MALFORMED", "Invalid OTP format. Please enter a 6-digit code.", http.StatusBadRequest)
	ErrOTPNotFound  = apperrors.New("OTP_NOT_FOUND", "Invalid OTP. Please check your code and try again.", http.StatusBadRequest)
	ErrOTPExpired   = apperrors.New("OTP_EXPIRED", "OTP has expired. Please request a new verification code.", http.StatusBadRequest)

	// ErrAlreadyMember is returned when joining a group twice.
	ErrAlreadyMember = apperrors.New("ALREADY_MEMBER", "User already a member", http.StatusBadRequest)

	// ErrTimeSlotTaken is returned when a booking collides with an existing
	// pending or confirmed session for either party.
	ErrTimeSlotTaken = apperrors.New("TIME_SLOT_TAKEN", "The selected time is not available", http.StatusConflict)
)
