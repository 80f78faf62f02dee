package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/care-ops-api/internal/dto"
	"github.com/noah-isme/care-ops-api/internal/models"
	appErrors "github.com/noah-isme/care-ops-api/pkg/errors"
	"github.com/noah-isme/care-ops-api/pkg/response"
)

type signingLinkService interface {
	IssueSigningLink(ctx context.Context, actionID string, actor *models.JWTClaims) (*dto.SigningLinkResponse, error)
	ViewWithLink(ctx context.Context, token string) (*dto.SigningActionView, error)
	SignWithLink(ctx context.Context, token string, req dto.EmployeeSignRequest) (*dto.CorrectiveActionResponse, error)
}

// SigningLinkHandler serves the employee signature path. View and Sign are public and authenticated by the token alone.
type SigningLinkHandler struct {
	service  signingLinkService
	basePath string
}

// NewSigningLinkHandler constructs the handler. basePath is the public route prefix the token is appended to.
func NewSigningLinkHandler(service signingLinkService, basePath string) *SigningLinkHandler {
	return &SigningLinkHandler{service: service, basePath: strings.TrimRight(basePath, "/")}
}

// Issue godoc
// @Summary Issue a signing link for the subject employee
// @Tags CorrectiveActions
// @Produce json
// @Param id path string true "Corrective action ID"
// @Success 201 {object} response.Envelope
// @Router /corrective-actions/{id}/signing-link [post]
func (h *SigningLinkHandler) Issue(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	link, err := h.service.IssueSigningLink(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	link.Path = h.basePath + "/" + link.Token
	response.Created(c, link)
}

// View godoc
// @Summary View the corrective action behind a signing link
// @Tags Signing
// @Produce json
// @Param token path string true "Signing token"
// @Success 200 {object} response.Envelope
// @Router /signing/{token} [get]
func (h *SigningLinkHandler) View(c *gin.Context) {
	view, err := h.service.ViewWithLink(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Sign godoc
// @Summary Sign as the subject employee, optionally disputing
// @Tags Signing
// @Accept json
// @Produce json
// @Param token path string true "Signing token"
// @Param payload body dto.EmployeeSignRequest true "Employee signature"
// @Success 201 {object} response.Envelope
// @Router /signing/{token} [post]
func (h *SigningLinkHandler) Sign(c *gin.Context) {
	var req dto.EmployeeSignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid signature payload"))
		return
	}
	action, err := h.service.SignWithLink(c.Request.Context(), c.Param("token"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, action)
}
