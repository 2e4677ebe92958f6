package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/safeanchor/safeanchor/internal/services"
	"github.com/safeanchor/safeanchor/pkg/response"
)

// HotlineHandler exposes the public crisis hotline directory.
type HotlineHandler struct {
	hotlines *services.HotlineService
}

// NewHotlineHandler builds a HotlineHandler.
func NewHotlineHandler(hotlines *services.HotlineService) *HotlineHandler {
	return &HotlineHandler{hotlines: hotlines}
}

// List returns hotlines, optionally narrowed by country.
func (h *HotlineHandler) List(c *gin.Context) {
	hotlines, err := h.hotlines.List(c.Request.Context(), c.Query("country"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, hotlines)
}

// Create adds a hotline to the directory.
func (h *HotlineHandler) Create(c *gin.Context) {
	var req services.CreateHotlineInput
	if !bindAndValidate(c, &req) {
		return
	}

	hotline, err := h.hotlines.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, hotline)
}

// Update applies a partial edit to a hotline entry.
func (h *HotlineHandler) Update(c *gin.Context) {
	var req services.UpdateHotlineInput
	if !bindAndValidate(c, &req) {
		return
	}

	hotline, err := h.hotlines.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, hotline)
}

// Delete removes a hotline.
func (h *HotlineHandler) Delete(c *gin.Context) {
	if err := h.hotlines.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "Hotline removed."})
}
