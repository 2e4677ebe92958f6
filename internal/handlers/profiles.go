package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"

	"github.com/safeanchor/safeanchor/internal/services"
	apperrors "github.com/safeanchor/safeanchor/pkg/errors"
	"github.com/safeanchor/safeanchor/pkg/response"
)

// ProfileHandler exposes the self-service profile surface.
type ProfileHandler struct {
	profiles *services.ProfileService
}

// NewProfileHandler builds a ProfileHandler.
func NewProfileHandler(profiles *services.ProfileService) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

// VictimProfile returns the caller's profile with matched experts.
func (h *ProfileHandler) VictimProfile(c *gin.Context) {
	profile, err := h.profiles.VictimProfile(c.Request.Context(), currentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, profile)
}

// UpdateExpertPreferences replaces the caller's matching preferences. The
// request body is the whole preference document.
func (h *ProfileHandler) UpdateExpertPreferences(c *gin.Context) {
	var prefs map[string]any
	if err := c.ShouldBindJSON(&prefs); err != nil {
		response.Error(c, apperrors.NewBadRequest("invalid JSON payload"))
		return
	}

	raw, err := json.Marshal(prefs)
	if err != nil {
		response.Error(c, apperrors.NewBadRequest("invalid preference document"))
		return
	}

	profile, err := h.profiles.UpdateExpertPreferences(c.Request.Context(), currentUserID(c), datatypes.JSON(raw))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, profile)
}

// AddEmergencyContact appends a contact to the caller's list.
func (h *ProfileHandler) AddEmergencyContact(c *gin.Context) {
	var req services.EmergencyContact
	if !bindAndValidate(c, &req) {
		return
	}

	contacts, err := h.profiles.AddEmergencyContact(c.Request.Context(), currentUserID(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"emergency_contacts": contacts})
}

// ExpertProfile returns the caller's expert profile.
func (h *ProfileHandler) ExpertProfile(c *gin.Context) {
	profile, err := h.profiles.ExpertProfile(c.Request.Context(), currentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, profile)
}

// UpdateExpertProfile applies a partial edit to the caller's expert profile.
func (h *ProfileHandler) UpdateExpertProfile(c *gin.Context) {
	var req services.UpdateExpertProfileInput
	if !bindAndValidate(c, &req) {
		return
	}

	profile, err := h.profiles.UpdateExpertProfile(c.Request.Context(), currentUserID(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, profile)
}

// PublicExpertProfile returns the public projection of one expert.
func (h *ProfileHandler) PublicExpertProfile(c *gin.Context) {
	profile, err := h.profiles.PublicProfile(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, profile)
}
