package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"

	"github.com/safeanchor/safeanchor/internal/models"
	"github.com/safeanchor/safeanchor/internal/services"
	"github.com/safeanchor/safeanchor/pkg/response"
)

// AuthHandler exposes the account lifecycle over HTTP. One handler serves
// both account kinds; the kind is fixed per route group at registration.
type AuthHandler struct {
	accounts *services.AccountService
	kind     models.UserKind
}

// NewAuthHandler builds an AuthHandler bound to one account kind.
func NewAuthHandler(accounts *services.AccountService, kind models.UserKind) *AuthHandler {
	return &AuthHandler{accounts: accounts, kind: kind}
}

type registerRequest struct {
	Email           string         `json:"email" validate:"required,email"`
	Password        string         `json:"password" validate:"required,min=8"`
	ConfirmPassword string         `json:"confirm_password" validate:"required"`
	FirstName       string         `json:"first_name"`
	LastName        string         `json:"last_name"`
	Phone           string         `json:"phone"`
	Preferences     datatypes.JSON `json:"preferences,omitempty"`
	Specializations datatypes.JSON `json:"specializations,omitempty"`
}

type verifyRequest struct {
	OTP string `json:"otp" validate:"required"`
}

type emailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type logoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type resetPasswordRequest struct {
	Email           string `json:"email" validate:"required,email"`
	OTP             string `json:"otp" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
	ConfirmPassword string `json:"confirm_password" validate:"required"`
}

// Register creates an unverified account and emails a verification code.
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if !bindAndValidate(c, &req) {
		return
	}

	account, err := h.accounts.Register(c.Request.Context(), h.kind, services.RegisterInput{
		Email:             req.Email,
		Password:          req.Password,
		ConfirmPassword:   req.ConfirmPassword,
		FirstName:         req.FirstName,
		LastName:          req.LastName,
		Phone:             req.Phone,
		ExpertPreferences: req.Preferences,
		Specializations:   req.Specializations,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{
		"message": "Registration successful. Please check your email for the verification code.",
		"user":    account,
	})
}

// VerifyEmail consumes a verification code and marks the account verified.
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	var req verifyRequest
	if !bindAndValidate(c, &req) {
		return
	}

	account, err := h.accounts.VerifyEmail(c.Request.Context(), req.OTP)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"message": "Email verified successfully.",
		"user":    account,
	})
}

// ResendOTP replaces the pending verification code and emails a new one.
func (h *AuthHandler) ResendOTP(c *gin.Context) {
	var req emailRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.accounts.ResendOTP(c.Request.Context(), req.Email); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"message": "A new verification code has been sent to your email.",
	})
}

// Login exchanges credentials for an access/refresh token pair.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindAndValidate(c, &req) {
		return
	}

	result, err := h.accounts.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// Logout revokes the presented refresh token. Revoking an unknown token
// still succeeds.
func (h *AuthHandler) Logout(c *gin.Context) {
	var req logoutRequest
	// A missing or malformed body logs out nothing, which is still success.
	_ = c.ShouldBindJSON(&req)

	if err := h.accounts.Logout(c.Request.Context(), req.RefreshToken); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "Logged out."})
}

// Refresh rotates a refresh token for a new token pair.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if !bindAndValidate(c, &req) {
		return
	}

	pair, err := h.accounts.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"token":         pair.AccessToken,
		"refresh_token": pair.RefreshToken,
	})
}

// ForgotPassword stores a reset code on the account and emails it.
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req emailRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.accounts.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"message": "A password reset code has been sent to your email.",
	})
}

// ResetPassword replaces the password when the reset code checks out.
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if !bindAndValidate(c, &req) {
		return
	}

	err := h.accounts.ResetPassword(c.Request.Context(), req.Email, req.OTP, req.NewPassword, req.ConfirmPassword)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"message": "Password reset successfully. Please log in with your new password.",
	})
}
