package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/care-ops-api/internal/models"
	"github.com/noah-isme/care-ops-api/pkg/response"
)

type violationCatalog interface {
	ListCategories(ctx context.Context, severity string) ([]models.ViolationCategory, error)
	GetCategory(ctx context.Context, id string) (*models.ViolationCategory, error)
}

// ViolationCategoryHandler exposes the read-only violation catalog.
type ViolationCategoryHandler struct {
	service violationCatalog
}

// NewViolationCategoryHandler constructs the handler.
func NewViolationCategoryHandler(service violationCatalog) *ViolationCategoryHandler {
	return &ViolationCategoryHandler{service: service}
}

// List godoc
// @Summary List violation categories
// @Tags ViolationCategories
// @Produce json
// @Param severity query string false "Severity tier"
// @Success 200 {object} response.Envelope
// @Router /violation-categories [get]
func (h *ViolationCategoryHandler) List(c *gin.Context) {
	severity := strings.ToUpper(strings.TrimSpace(c.Query("severity")))
	categories, err := h.service.ListCategories(c.Request.Context(), severity)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, categories, nil)
}

// Get godoc
// @Summary Get a violation category
// @Tags ViolationCategories
// @Produce json
// @Param id path string true "Category ID"
// @Success 200 {object} response.Envelope
// @Router /violation-categories/{id} [get]
func (h *ViolationCategoryHandler) Get(c *gin.Context) {
	category, err := h.service.GetCategory(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, category, nil)
}
