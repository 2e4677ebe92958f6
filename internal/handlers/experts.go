package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/safeanchor/safeanchor/internal/services"
	"github.com/safeanchor/safeanchor/pkg/response"
)

// ExpertHandler exposes expert discovery and matching.
type ExpertHandler struct {
	matching *services.MatchingService
	sessions *services.SessionService
}

// NewExpertHandler builds an ExpertHandler.
func NewExpertHandler(matching *services.MatchingService, sessions *services.SessionService) *ExpertHandler {
	return &ExpertHandler{matching: matching, sessions: sessions}
}

// Find lists vetted experts, optionally filtered by specialization.
func (h *ExpertHandler) Find(c *gin.Context) {
	experts, err := h.matching.FindExperts(c.Request.Context(), c.Query("specialization"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, experts)
}

// Match records an expert on the calling victim's matched list.
func (h *ExpertHandler) Match(c *gin.Context) {
	victim, err := h.sessions.VictimProfileForUser(c.Request.Context(), currentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	if err := h.matching.Match(c.Request.Context(), victim.ID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "Expert matched."})
}

// Matches lists the experts already matched to the calling victim.
func (h *ExpertHandler) Matches(c *gin.Context) {
	victim, err := h.sessions.VictimProfileForUser(c.Request.Context(), currentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	experts, err := h.matching.MatchedExperts(c.Request.Context(), victim.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, experts)
}
