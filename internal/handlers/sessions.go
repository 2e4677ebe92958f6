package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/safeanchor/safeanchor/internal/models"
	"github.com/safeanchor/safeanchor/internal/services"
	"github.com/safeanchor/safeanchor/pkg/response"
)

// SessionHandler exposes support session booking over HTTP. Victims book
// against an expert; either side can cancel.
type SessionHandler struct {
	sessions *services.SessionService
}

// NewSessionHandler builds a SessionHandler.
func NewSessionHandler(sessions *services.SessionService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

type bookSessionRequest struct {
	ExpertID    string    `json:"expert_id" validate:"required"`
	ScheduledAt time.Time `json:"scheduled_at" validate:"required"`
	Notes       string    `json:"notes"`
}

type updateSessionRequest struct {
	Status models.SessionStatus `json:"status" validate:"required,oneof=pending confirmed completed cancelled"`
}

// Book schedules a session between the calling victim and an expert.
func (h *SessionHandler) Book(c *gin.Context) {
	var req bookSessionRequest
	if !bindAndValidate(c, &req) {
		return
	}

	victim, err := h.sessions.VictimProfileForUser(c.Request.Context(), currentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	session, err := h.sessions.Book(c.Request.Context(), services.BookSessionInput{
		VictimID:    victim.ID,
		ExpertID:    req.ExpertID,
		ScheduledAt: req.ScheduledAt,
		Notes:       req.Notes,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, session)
}

// Get returns one session by id.
func (h *SessionHandler) Get(c *gin.Context) {
	session, err := h.sessions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, session)
}

// List returns the caller's sessions, resolved by account kind.
func (h *SessionHandler) List(c *gin.Context) {
	ctx := c.Request.Context()
	userID := currentUserID(c)

	var (
		sessions []models.SupportSession
		err      error
	)
	switch currentKind(c) {
	case models.UserKindExpert:
		var profile *models.ExpertProfile
		profile, err = h.sessions.ExpertProfileForUser(ctx, userID)
		if err == nil {
			sessions, err = h.sessions.ListForExpert(ctx, profile.ID)
		}
	default:
		var profile *models.VictimProfile
		profile, err = h.sessions.VictimProfileForUser(ctx, userID)
		if err == nil {
			sessions, err = h.sessions.ListForVictim(ctx, profile.ID)
		}
	}
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, sessions)
}

// UpdateStatus moves a session through its lifecycle.
func (h *SessionHandler) UpdateStatus(c *gin.Context) {
	var req updateSessionRequest
	if !bindAndValidate(c, &req) {
		return
	}

	session, err := h.sessions.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, session)
}

// Cancel marks a session cancelled.
func (h *SessionHandler) Cancel(c *gin.Context) {
	session, err := h.sessions.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, session)
}
