package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/care-ops-api/internal/dto"
	"github.com/noah-isme/care-ops-api/internal/models"
	appErrors "github.com/noah-isme/care-ops-api/pkg/errors"
	"github.com/noah-isme/care-ops-api/pkg/signing"
)

type actionManager interface {
	Create(ctx context.Context, in CreateActionInput) (*models.CorrectiveAction, error)
	Edit(ctx context.Context, actionID, editorID string, editorRole models.UserRole, patch ActionPatch) (*models.CorrectiveAction, error)
	Get(ctx context.Context, actionID string) (*models.CorrectiveAction, error)
	GetEmployeeTotalPoints(ctx context.Context, employeeID string) (int, error)
	ListByEmployee(ctx context.Context, filter models.CorrectiveActionFilter) ([]models.CorrectiveAction, *models.Pagination, error)
	History(ctx context.Context, actionID string) ([]models.ActionStatusLog, error)
}

type signatureRecorder interface {
	AddSignature(ctx context.Context, in SignatureInput) (*models.CorrectiveAction, error)
}

type actionVoider interface {
	Void(ctx context.Context, actionID, userID string, role models.UserRole, reason string) (*models.CorrectiveAction, error)
}

type catalogReader interface {
	Get(ctx context.Context, id string) (*models.ViolationCategory, error)
	List(ctx context.Context) ([]models.ViolationCategory, error)
}

type signingLinkIssuer interface {
	Generate(actionID, employeeID string) (string, time.Time, error)
	Parse(token string) (*signing.LinkClaims, error)
}

// DisciplineService validates request payloads and delegates to the corrective action components.
type DisciplineService struct {
	actions    actionManager
	signatures signatureRecorder
	voids      actionVoider
	catalog    catalogReader
	links      signingLinkIssuer
	audit      auditLogger
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewDisciplineService constructs the orchestrator and registers the domain validators.
func NewDisciplineService(actions actionManager, signatures signatureRecorder, voids actionVoider, catalog catalogReader, links signingLinkIssuer, audit auditLogger, validate *validator.Validate, logger *zap.Logger) *DisciplineService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &DisciplineService{
		actions:    actions,
		signatures: signatures,
		voids:      voids,
		catalog:    catalog,
		links:      links,
		audit:      audit,
		validator:  validate,
		logger:     logger,
	}
	registerDisciplineValidations(svc.validator)
	return svc
}

func registerDisciplineValidations(v *validator.Validate) {
	_ = v.RegisterValidation("discipline_level", func(fl validator.FieldLevel) bool {
		return models.DisciplineLevel(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("signer_type", func(fl validator.FieldLevel) bool {
		return models.SignerType(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("severity", func(fl validator.FieldLevel) bool {
		return models.SeverityLevel(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("action_status", func(fl validator.FieldLevel) bool {
		switch models.ActionStatus(fl.Field().String()) {
		case models.ActionStatusPendingSignature, models.ActionStatusAcknowledged,
			models.ActionStatusDisputed, models.ActionStatusVoided:
			return true
		default:
			return false
		}
	})
}

// CreateAction raises a new corrective action on behalf of the authenticated issuer.
func (s *DisciplineService) CreateAction(ctx context.Context, req dto.CreateCorrectiveActionRequest, actor *models.JWTClaims) (*dto.CorrectiveActionResponse, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, invalidPayload(err)
	}
	violationDate, err := parseDate(req.ViolationDate, "violationDate")
	if err != nil {
		return nil, err
	}
	pipDate, err := parseOptionalDate(req.PipDate, "pipDate")
	if err != nil {
		return nil, err
	}
	action, err := s.actions.Create(ctx, CreateActionInput{
		EmployeeID:              req.EmployeeID,
		IssuerID:                actor.UserID,
		ViolationCategoryID:     req.ViolationCategoryID,
		ViolationDate:           violationDate,
		IncidentDescription:     req.IncidentDescription,
		DisciplineLevel:         models.DisciplineLevel(req.DisciplineLevel),
		HouseID:                 req.HouseID,
		ViolationTime:           req.ViolationTime,
		MitigatingCircumstances: req.MitigatingCircumstances,
		PointsOverride:          req.PointsOverride,
		AdjustmentReason:        req.AdjustmentReason,
		CorrectiveExpectations:  req.CorrectiveExpectations,
		ConsequencesText:        req.ConsequencesText,
		PipScheduled:            req.PipScheduled,
		PipDate:                 pipDate,
	})
	if err != nil {
		return nil, err
	}
	return dto.NewCorrectiveActionResponse(action), nil
}

// EditAction applies a partial update.
func (s *DisciplineService) EditAction(ctx context.Context, actionID string, req dto.UpdateCorrectiveActionRequest, actor *models.JWTClaims) (*dto.CorrectiveActionResponse, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, invalidPayload(err)
	}
	patch := ActionPatch{
		HouseID:                 req.HouseID,
		ViolationTime:           req.ViolationTime,
		IncidentDescription:     req.IncidentDescription,
		MitigatingCircumstances: req.MitigatingCircumstances,
		PointsOverride:          req.PointsOverride,
		AdjustmentReason:        req.AdjustmentReason,
		ClearPointsAdjustment:   req.ClearPointsAdjustment,
		CorrectiveExpectations:  req.CorrectiveExpectations,
		ConsequencesText:        req.ConsequencesText,
		PipScheduled:            req.PipScheduled,
	}
	if req.DisciplineLevel != nil {
		level := models.DisciplineLevel(*req.DisciplineLevel)
		patch.DisciplineLevel = &level
	}
	var err error
	if req.ViolationDate != nil {
		date, err := parseDate(*req.ViolationDate, "violationDate")
		if err != nil {
			return nil, err
		}
		patch.ViolationDate = &date
	}
	if patch.PipDate, err = parseOptionalDate(req.PipDate, "pipDate"); err != nil {
		return nil, err
	}
	action, err := s.actions.Edit(ctx, actionID, actor.UserID, actor.Role, patch)
	if err != nil {
		return nil, err
	}
	return dto.NewCorrectiveActionResponse(action), nil
}

// SignAction records a staff signature (SUPERVISOR, WITNESS or HR) as the authenticated user.
func (s *DisciplineService) SignAction(ctx context.Context, actionID string, req dto.SignCorrectiveActionRequest, actor *models.JWTClaims) (*dto.CorrectiveActionResponse, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, invalidPayload(err)
	}
	action, err := s.signatures.AddSignature(ctx, SignatureInput{
		ActionID:      actionID,
		SignerType:    models.SignerType(req.SignerType),
		SignerID:      actor.UserID,
		SignatureData: req.SignatureData,
		CallerRole:    actor.Role,
	})
	if err != nil {
		return nil, err
	}
	return dto.NewCorrectiveActionResponse(action), nil
}

// VoidAction voids the action as the authenticated user.
func (s *DisciplineService) VoidAction(ctx context.Context, actionID string, req dto.VoidCorrectiveActionRequest, actor *models.JWTClaims) (*dto.CorrectiveActionResponse, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, invalidPayload(err)
	}
	action, err := s.voids.Void(ctx, actionID, actor.UserID, actor.Role, req.Reason)
	if err != nil {
		return nil, err
	}
	return dto.NewCorrectiveActionResponse(action), nil
}

// GetAction returns the full snapshot with effective points.
func (s *DisciplineService) GetAction(ctx context.Context, actionID string) (*dto.CorrectiveActionResponse, error) {
	action, err := s.actions.Get(ctx, actionID)
	if err != nil {
		return nil, err
	}
	return dto.NewCorrectiveActionResponse(action), nil
}

// ActionHistory returns the status log of an action.
func (s *DisciplineService) ActionHistory(ctx context.Context, actionID string) ([]models.ActionStatusLog, error) {
	return s.actions.History(ctx, actionID)
}

// EmployeeActions lists an employee's corrective actions.
func (s *DisciplineService) EmployeeActions(ctx context.Context, employeeID string, query dto.CorrectiveActionListQuery) ([]dto.CorrectiveActionResponse, *models.Pagination, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, nil, invalidPayload(err)
	}
	filter := models.CorrectiveActionFilter{EmployeeID: employeeID, Page: query.Page, PageSize: query.PageSize}
	for _, status := range query.Status {
		filter.Status = append(filter.Status, models.ActionStatus(status))
	}
	actions, pagination, err := s.actions.ListByEmployee(ctx, filter)
	if err != nil {
		return nil, nil, err
	}
	items := make([]dto.CorrectiveActionResponse, len(actions))
	for i := range actions {
		items[i] = *dto.NewCorrectiveActionResponse(&actions[i])
	}
	return items, pagination, nil
}

// EmployeeTotalPoints returns the employee's current discipline score.
func (s *DisciplineService) EmployeeTotalPoints(ctx context.Context, employeeID string) (*dto.DisciplinePointsResponse, error) {
	total, err := s.actions.GetEmployeeTotalPoints(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	return &dto.DisciplinePointsResponse{EmployeeID: employeeID, TotalPoints: total, ComputedAt: time.Now().UTC()}, nil
}

// ListCategories returns the catalog, optionally narrowed to one severity tier.
func (s *DisciplineService) ListCategories(ctx context.Context, severity string) ([]models.ViolationCategory, error) {
	if err := s.validator.Var(severity, "omitempty,severity"); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "severity is invalid")
	}
	categories, err := s.catalog.List(ctx)
	if err != nil {
		return nil, err
	}
	if severity == "" {
		return categories, nil
	}
	filtered := make([]models.ViolationCategory, 0, len(categories))
	for _, category := range categories {
		if category.SeverityLevel == models.SeverityLevel(severity) {
			filtered = append(filtered, category)
		}
	}
	return filtered, nil
}

// GetCategory returns one catalog entry.
func (s *DisciplineService) GetCategory(ctx context.Context, id string) (*models.ViolationCategory, error) {
	return s.catalog.Get(ctx, id)
}

// IssueSigningLink mints a link the subject employee uses to sign. Only unsigned, non-voided actions qualify.
func (s *DisciplineService) IssueSigningLink(ctx context.Context, actionID string, actor *models.JWTClaims) (*dto.SigningLinkResponse, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	action, err := s.actions.Get(ctx, actionID)
	if err != nil {
		return nil, err
	}
	if action.Status == models.ActionStatusVoided {
		return nil, appErrors.Clone(appErrors.ErrConflict, "corrective action is voided")
	}
	if _, signed := action.Signature(models.SignerEmployee); signed {
		return nil, appErrors.Clone(appErrors.ErrConflict, "employee has already signed")
	}
	token, expiresAt, err := s.links.Generate(action.ID, action.EmployeeID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to issue signing link")
	}
	if s.audit != nil {
		actionRef := action.ID
		actorID := actor.UserID
		if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
			UserID:     &actorID,
			Action:     models.AuditActionSigningLinkIssue,
			Resource:   "corrective_action",
			ResourceID: &actionRef,
			IPAddress:  "system",
			UserAgent:  "discipline-service",
		}); err != nil {
			s.logger.Warn("failed to persist audit log", zap.String("corrective_action_id", action.ID), zap.Error(err))
		}
	}
	return &dto.SigningLinkResponse{ActionID: action.ID, Token: token, ExpiresAt: expiresAt}, nil
}

// ViewWithLink returns the employee-facing view of the linked action.
func (s *DisciplineService) ViewWithLink(ctx context.Context, token string) (*dto.SigningActionView, error) {
	claims, err := s.parseLink(token)
	if err != nil {
		return nil, err
	}
	action, err := s.actions.Get(ctx, claims.ActionID)
	if err != nil {
		return nil, err
	}
	if action.EmployeeID != claims.EmployeeID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "signing link does not match this action")
	}
	category, err := s.catalog.Get(ctx, action.ViolationCategoryID)
	if err != nil {
		return nil, err
	}
	view := &dto.SigningActionView{
		ActionID:               action.ID,
		EmployeeID:             action.EmployeeID,
		Category:               category,
		ViolationDate:          action.ViolationDate.Format(dto.DateLayout),
		ViolationTime:          action.ViolationTime,
		IncidentDescription:    action.IncidentDescription,
		DisciplineLevel:        action.DisciplineLevel,
		EffectivePoints:        action.EffectivePoints(),
		CorrectiveExpectations: append([]string{}, action.CorrectiveExpectations...),
		ConsequencesText:       action.ConsequencesText,
		PipScheduled:           action.PipScheduled,
		Status:                 action.Status,
		SignedBy:               make([]models.SignerType, 0, len(action.Signatures)),
	}
	if action.PipDate != nil {
		pip := action.PipDate.Format(dto.DateLayout)
		view.PipDate = &pip
	}
	for _, sig := range action.Signatures {
		view.SignedBy = append(view.SignedBy, sig.SignerType)
	}
	return view, nil
}

// SignWithLink records the EMPLOYEE signature. The link is the only source of the subject-employee role.
func (s *DisciplineService) SignWithLink(ctx context.Context, token string, req dto.EmployeeSignRequest) (*dto.CorrectiveActionResponse, error) {
	claims, err := s.parseLink(token)
	if err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, invalidPayload(err)
	}
	action, err := s.signatures.AddSignature(ctx, SignatureInput{
		ActionID:         claims.ActionID,
		SignerType:       models.SignerEmployee,
		SignerID:         claims.EmployeeID,
		SignatureData:    req.SignatureData,
		CallerRole:       models.RoleSubjectEmployee,
		Dispute:          req.Dispute,
		EmployeeComments: req.EmployeeComments,
	})
	if err != nil {
		return nil, err
	}
	return dto.NewCorrectiveActionResponse(action), nil
}

func (s *DisciplineService) parseLink(token string) (*signing.LinkClaims, error) {
	claims, err := s.links.Parse(token)
	if err != nil {
		if errors.Is(err, signing.ErrExpiredLink) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "signing link has expired")
		}
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "signing link is invalid")
	}
	return claims, nil
}

func invalidPayload(err error) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
}

func parseDate(value, field string) (time.Time, error) {
	date, err := time.Parse(dto.DateLayout, value)
	if err != nil {
		return time.Time{}, appErrors.Clone(appErrors.ErrValidation, field+" must be YYYY-MM-DD")
	}
	return date, nil
}

func parseOptionalDate(value *string, field string) (*time.Time, error) {
	if value == nil || *value == "" {
		return nil, nil
	}
	date, err := parseDate(*value, field)
	if err != nil {
		return nil, err
	}
	return &date, nil
}
