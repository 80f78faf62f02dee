package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/care-ops-api/internal/dto"
	"github.com/noah-isme/care-ops-api/internal/models"
	appErrors "github.com/noah-isme/care-ops-api/pkg/errors"
	"github.com/noah-isme/care-ops-api/pkg/response"
)

type correctiveActionService interface {
	CreateAction(ctx context.Context, req dto.CreateCorrectiveActionRequest, actor *models.JWTClaims) (*dto.CorrectiveActionResponse, error)
	EditAction(ctx context.Context, actionID string, req dto.UpdateCorrectiveActionRequest, actor *models.JWTClaims) (*dto.CorrectiveActionResponse, error)
	SignAction(ctx context.Context, actionID string, req dto.SignCorrectiveActionRequest, actor *models.JWTClaims) (*dto.CorrectiveActionResponse, error)
	VoidAction(ctx context.Context, actionID string, req dto.VoidCorrectiveActionRequest, actor *models.JWTClaims) (*dto.CorrectiveActionResponse, error)
	GetAction(ctx context.Context, actionID string) (*dto.CorrectiveActionResponse, error)
	ActionHistory(ctx context.Context, actionID string) ([]models.ActionStatusLog, error)
	EmployeeActions(ctx context.Context, employeeID string, query dto.CorrectiveActionListQuery) ([]dto.CorrectiveActionResponse, *models.Pagination, error)
	EmployeeTotalPoints(ctx context.Context, employeeID string) (*dto.DisciplinePointsResponse, error)
}

// CorrectiveActionHandler exposes the staff-facing corrective action endpoints.
type CorrectiveActionHandler struct {
	service correctiveActionService
}

// NewCorrectiveActionHandler constructs the handler.
func NewCorrectiveActionHandler(service correctiveActionService) *CorrectiveActionHandler {
	return &CorrectiveActionHandler{service: service}
}

// Create godoc
// @Summary Raise a corrective action
// @Tags CorrectiveActions
// @Accept json
// @Produce json
// @Param payload body dto.CreateCorrectiveActionRequest true "Corrective action payload"
// @Success 201 {object} response.Envelope
// @Router /corrective-actions [post]
func (h *CorrectiveActionHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.CreateCorrectiveActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid corrective action payload"))
		return
	}
	action, err := h.service.CreateAction(c.Request.Context(), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, action)
}

// Get godoc
// @Summary Get a corrective action with signatures and effective points
// @Tags CorrectiveActions
// @Produce json
// @Param id path string true "Corrective action ID"
// @Success 200 {object} response.Envelope
// @Router /corrective-actions/{id} [get]
func (h *CorrectiveActionHandler) Get(c *gin.Context) {
	action, err := h.service.GetAction(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, action, nil)
}

// Update godoc
// @Summary Edit a corrective action before the employee signs
// @Tags CorrectiveActions
// @Accept json
// @Produce json
// @Param id path string true "Corrective action ID"
// @Param payload body dto.UpdateCorrectiveActionRequest true "Changed fields"
// @Success 200 {object} response.Envelope
// @Router /corrective-actions/{id} [patch]
func (h *CorrectiveActionHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.UpdateCorrectiveActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid corrective action payload"))
		return
	}
	action, err := h.service.EditAction(c.Request.Context(), c.Param("id"), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, action, nil)
}

// Sign godoc
// @Summary Record a supervisor, witness or HR signature
// @Tags CorrectiveActions
// @Accept json
// @Produce json
// @Param id path string true "Corrective action ID"
// @Param payload body dto.SignCorrectiveActionRequest true "Signature"
// @Success 201 {object} response.Envelope
// @Router /corrective-actions/{id}/signatures [post]
func (h *CorrectiveActionHandler) Sign(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.SignCorrectiveActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid signature payload"))
		return
	}
	action, err := h.service.SignAction(c.Request.Context(), c.Param("id"), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, action)
}

// Void godoc
// @Summary Void a corrective action
// @Tags CorrectiveActions
// @Accept json
// @Produce json
// @Param id path string true "Corrective action ID"
// @Param payload body dto.VoidCorrectiveActionRequest true "Void reason"
// @Success 200 {object} response.Envelope
// @Router /corrective-actions/{id}/void [post]
func (h *CorrectiveActionHandler) Void(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.VoidCorrectiveActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid void payload"))
		return
	}
	action, err := h.service.VoidAction(c.Request.Context(), c.Param("id"), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, action, nil)
}

// History godoc
// @Summary List status transitions of a corrective action
// @Tags CorrectiveActions
// @Produce json
// @Param id path string true "Corrective action ID"
// @Success 200 {object} response.Envelope
// @Router /corrective-actions/{id}/history [get]
func (h *CorrectiveActionHandler) History(c *gin.Context) {
	logs, err := h.service.ActionHistory(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, logs, nil)
}

// ListByEmployee godoc
// @Summary List an employee's corrective actions
// @Tags Employees
// @Produce json
// @Param id path string true "Employee ID"
// @Param status query string false "Comma separated statuses"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /employees/{id}/corrective-actions [get]
func (h *CorrectiveActionHandler) ListByEmployee(c *gin.Context) {
	query := dto.CorrectiveActionListQuery{
		Page:     parsePositiveInt(c.Query("page")),
		PageSize: parsePositiveInt(c.Query("page_size")),
	}
	if rawStatus := c.Query("status"); rawStatus != "" {
		for _, part := range strings.Split(rawStatus, ",") {
			part = strings.ToUpper(strings.TrimSpace(part))
			if part != "" {
				query.Status = append(query.Status, part)
			}
		}
	}
	items, pagination, err := h.service.EmployeeActions(c.Request.Context(), c.Param("id"), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// DisciplinePoints godoc
// @Summary Get an employee's cumulative discipline points
// @Tags Employees
// @Produce json
// @Param id path string true "Employee ID"
// @Success 200 {object} response.Envelope
// @Router /employees/{id}/discipline-points [get]
func (h *CorrectiveActionHandler) DisciplinePoints(c *gin.Context) {
	points, err := h.service.EmployeeTotalPoints(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, points, nil)
}

func parsePositiveInt(raw string) int {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || v < 0 {
		return 0
	}
	return v
}
