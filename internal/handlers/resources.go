package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/safeanchor/safeanchor/internal/models"
	"github.com/safeanchor/safeanchor/internal/services"
	"github.com/safeanchor/safeanchor/pkg/response"
)

// ResourceHandler exposes the published resource library.
type ResourceHandler struct {
	resources *services.ResourceService
}

// NewResourceHandler builds a ResourceHandler.
func NewResourceHandler(resources *services.ResourceService) *ResourceHandler {
	return &ResourceHandler{resources: resources}
}

// List returns published resources, optionally filtered by type and category.
func (h *ResourceHandler) List(c *gin.Context) {
	filter := services.ResourceFilter{
		Type:     models.ResourceType(c.Query("type")),
		Category: c.Query("category"),
	}

	resources, err := h.resources.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, resources)
}

// Get returns one resource by id.
func (h *ResourceHandler) Get(c *gin.Context) {
	resource, err := h.resources.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, resource)
}

// Create publishes a new resource.
func (h *ResourceHandler) Create(c *gin.Context) {
	var req services.CreateResourceInput
	if !bindAndValidate(c, &req) {
		return
	}

	resource, err := h.resources.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, resource)
}

// Update applies a partial update to a resource.
func (h *ResourceHandler) Update(c *gin.Context) {
	var req services.UpdateResourceInput
	if !bindAndValidate(c, &req) {
		return
	}

	resource, err := h.resources.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, resource)
}

// Delete removes a resource.
func (h *ResourceHandler) Delete(c *gin.Context) {
	if err := h.resources.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "Resource deleted."})
}
