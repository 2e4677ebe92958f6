package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/safeanchor/safeanchor/internal/services"
	"github.com/safeanchor/safeanchor/pkg/response"
)

// SupportGroupHandler exposes peer support group membership over HTTP.
type SupportGroupHandler struct {
	groups *services.SupportGroupService
}

// NewSupportGroupHandler builds a SupportGroupHandler.
func NewSupportGroupHandler(groups *services.SupportGroupService) *SupportGroupHandler {
	return &SupportGroupHandler{groups: groups}
}

// List returns all active groups.
func (h *SupportGroupHandler) List(c *gin.Context) {
	groups, err := h.groups.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, groups)
}

// Get returns one group with its members.
func (h *SupportGroupHandler) Get(c *gin.Context) {
	group, err := h.groups.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, group)
}

// Create registers a new support group owned by the caller.
func (h *SupportGroupHandler) Create(c *gin.Context) {
	var req services.CreateGroupInput
	if !bindAndValidate(c, &req) {
		return
	}
	req.CreatedByID = currentUserID(c)

	group, err := h.groups.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, group)
}

// Update applies a partial edit to a group's descriptive fields.
func (h *SupportGroupHandler) Update(c *gin.Context) {
	var req services.UpdateGroupInput
	if !bindAndValidate(c, &req) {
		return
	}

	group, err := h.groups.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, group)
}

// Deactivate retires the group from listings.
func (h *SupportGroupHandler) Deactivate(c *gin.Context) {
	if err := h.groups.Deactivate(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "Support group deactivated."})
}

// Join adds the caller to the group.
func (h *SupportGroupHandler) Join(c *gin.Context) {
	if err := h.groups.Join(c.Request.Context(), c.Param("id"), currentUserID(c)); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "Joined support group."})
}

// Leave removes the caller from the group.
func (h *SupportGroupHandler) Leave(c *gin.Context) {
	if err := h.groups.Leave(c.Request.Context(), c.Param("id"), currentUserID(c)); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "Left support group."})
}
