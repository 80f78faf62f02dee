package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/noah-isme/care-ops-api/internal/models"
	"github.com/noah-isme/care-ops-api/internal/repository"
	appErrors "github.com/noah-isme/care-ops-api/pkg/errors"
)

const violationTimeLayout = "15:04"

type employeeLookup interface {
	FindByID(ctx context.Context, id string) (*models.Employee, error)
}

type houseLookup interface {
	FindByID(ctx context.Context, id string) (*models.House, error)
}

type categoryResolver interface {
	Get(ctx context.Context, id string) (*models.ViolationCategory, error)
}

// CreateActionInput carries the fields of a new corrective action.
type CreateActionInput struct {
	EmployeeID              string
	IssuerID                string
	ViolationCategoryID     string
	ViolationDate           time.Time
	IncidentDescription     string
	DisciplineLevel         models.DisciplineLevel
	HouseID                 *string
	ViolationTime           *string
	MitigatingCircumstances *string
	PointsOverride          *int
	AdjustmentReason        *string
	CorrectiveExpectations  []string
	ConsequencesText        *string
	PipScheduled            bool
	PipDate                 *time.Time
}

// ActionPatch lists field changes; nil means unchanged. The category cannot be patched.
type ActionPatch struct {
	HouseID                 *string
	ViolationDate           *time.Time
	ViolationTime           *string
	IncidentDescription     *string
	MitigatingCircumstances *string
	DisciplineLevel         *models.DisciplineLevel
	PointsOverride          *int
	AdjustmentReason        *string
	ClearPointsAdjustment   bool
	CorrectiveExpectations  *[]string
	ConsequencesText        *string
	PipScheduled            *bool
	PipDate                 *time.Time
}

func (p ActionPatch) empty() bool {
	return p.HouseID == nil && p.ViolationDate == nil && p.ViolationTime == nil && p.IncidentDescription == nil &&
		p.MitigatingCircumstances == nil && p.DisciplineLevel == nil && p.PointsOverride == nil &&
		p.AdjustmentReason == nil && !p.ClearPointsAdjustment && p.CorrectiveExpectations == nil &&
		p.ConsequencesText == nil && p.PipScheduled == nil && p.PipDate == nil
}

// CorrectiveActionService creates and edits corrective actions and derives their points.
type CorrectiveActionService struct {
	lifecycle
	employees employeeLookup
	houses    houseLookup
	catalog   categoryResolver
}

// NewCorrectiveActionService constructs the service.
func NewCorrectiveActionService(store correctiveActionStore, employees employeeLookup, houses houseLookup, catalog categoryResolver, audit auditLogger, logger *zap.Logger, opts ...LifecycleOption) *CorrectiveActionService {
	return &CorrectiveActionService{
		lifecycle: newLifecycle(store, audit, logger, "corrective-action-service", opts),
		employees: employees,
		houses:    houses,
		catalog:   catalog,
	}
}

// Create validates and persists a new action in PENDING_SIGNATURE.
func (s *CorrectiveActionService) Create(ctx context.Context, in CreateActionInput) (*models.CorrectiveAction, error) {
	if strings.TrimSpace(in.EmployeeID) == "" || strings.TrimSpace(in.IssuerID) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "employeeId and issuerId are required")
	}
	description := strings.TrimSpace(in.IncidentDescription)
	if description == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "incidentDescription is required")
	}
	if !in.DisciplineLevel.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "disciplineLevel is invalid")
	}
	if err := s.checkViolationDate(in.ViolationDate); err != nil {
		return nil, err
	}
	violationTime, err := normaliseViolationTime(in.ViolationTime)
	if err != nil {
		return nil, err
	}
	reason := trimmedOrNil(in.AdjustmentReason)
	if in.PointsOverride == nil && reason != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "adjustmentReason requires pointsOverride")
	}
	if err := checkPointsAdjustment(in.PointsOverride, reason); err != nil {
		return nil, err
	}
	if in.PipDate != nil && !in.PipScheduled {
		return nil, appErrors.Clone(appErrors.ErrValidation, "pipDate requires pipScheduled")
	}

	if _, err := s.employees.FindByID(ctx, in.EmployeeID); err != nil {
		return nil, lookupError(err, "employee")
	}
	houseID := trimmedOrNil(in.HouseID)
	if houseID != nil {
		if _, err := s.houses.FindByID(ctx, *houseID); err != nil {
			return nil, lookupError(err, "house")
		}
	}
	category, err := s.catalog.Get(ctx, in.ViolationCategoryID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	action := &models.CorrectiveAction{
		EmployeeID:              in.EmployeeID,
		IssuerID:                in.IssuerID,
		HouseID:                 houseID,
		ViolationCategoryID:     category.ID,
		ViolationDate:           in.ViolationDate,
		ViolationTime:           violationTime,
		IncidentDescription:     description,
		MitigatingCircumstances: trimmedOrNil(in.MitigatingCircumstances),
		DisciplineLevel:         in.DisciplineLevel,
		PointsAssigned:          category.DefaultPoints,
		PointsAdjusted:          copyInt(in.PointsOverride),
		AdjustmentReason:        reason,
		CorrectiveExpectations:  cleanExpectations(in.CorrectiveExpectations),
		ConsequencesText:        trimmedOrNil(in.ConsequencesText),
		PipScheduled:            in.PipScheduled,
		PipDate:                 in.PipDate,
		Status:                  models.ActionStatusPendingSignature,
		CreatedAt:               now,
		UpdatedAt:               now,
		Signatures:              []models.Signature{},
	}
	log := &models.ActionStatusLog{
		NewStatus: models.ActionStatusPendingSignature,
		Note:      "created",
		ChangedBy: in.IssuerID,
		CreatedAt: now,
	}
	if err := s.store.Create(ctx, action, log); err != nil {
		return nil, appErrors.Internal(err, "failed to create corrective action")
	}
	s.metrics.RecordActionCreated()
	s.logger.Info("corrective action created",
		zap.String("corrective_action_id", action.ID),
		zap.String("employee_id", action.EmployeeID),
		zap.String("category_id", action.ViolationCategoryID),
		zap.Int("points_assigned", action.PointsAssigned))
	s.emitAudit(ctx, in.IssuerID, models.AuditActionCorrectiveActionCreate, action.ID, nil, action)
	return action, nil
}

// Edit applies patch while the action is still editable.
func (s *CorrectiveActionService) Edit(ctx context.Context, actionID, editorID string, editorRole models.UserRole, patch ActionPatch) (*models.CorrectiveAction, error) {
	if patch.empty() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no changes supplied")
	}
	var before, after *models.CorrectiveAction
	err := s.store.WithLock(ctx, actionID, func(ctx context.Context, action *models.CorrectiveAction, w repository.ActionWriter) error {
		if action.Locked() {
			return appErrors.Clone(appErrors.ErrConflict, "corrective action can no longer be edited")
		}
		if !canEditAny(editorRole) && editorID != action.IssuerID {
			return appErrors.Clone(appErrors.ErrForbidden, "only the issuer, HR or an administrator may edit this action")
		}
		before = action.Clone()
		if err := s.applyPatch(ctx, action, patch); err != nil {
			return err
		}
		action.UpdatedAt = s.now()
		if err := s.save(ctx, w, action); err != nil {
			return err
		}
		after = action.Clone()
		return nil
	})
	if err != nil {
		return nil, s.translate(err, "edit", "failed to edit corrective action")
	}
	s.emitAudit(ctx, editorID, models.AuditActionCorrectiveActionEdit, actionID, before, after)
	return after, nil
}

// Get returns the full action snapshot including signatures.
func (s *CorrectiveActionService) Get(ctx context.Context, actionID string) (*models.CorrectiveAction, error) {
	return s.load(ctx, actionID)
}

// GetEffectivePoints returns the points the action currently contributes.
func (s *CorrectiveActionService) GetEffectivePoints(ctx context.Context, actionID string) (int, error) {
	action, err := s.load(ctx, actionID)
	if err != nil {
		return 0, err
	}
	return action.EffectivePoints(), nil
}

// GetEmployeeTotalPoints aggregates effective points over the employee's non-voided actions.
func (s *CorrectiveActionService) GetEmployeeTotalPoints(ctx context.Context, employeeID string) (int, error) {
	if _, err := s.employees.FindByID(ctx, employeeID); err != nil {
		return 0, lookupError(err, "employee")
	}
	total, err := s.store.SumEffectivePoints(ctx, employeeID)
	if err != nil {
		return 0, appErrors.Internal(err, "failed to compute discipline points")
	}
	return total, nil
}

// ListByEmployee returns the employee's discipline history, voided records included.
func (s *CorrectiveActionService) ListByEmployee(ctx context.Context, filter models.CorrectiveActionFilter) ([]models.CorrectiveAction, *models.Pagination, error) {
	if _, err := s.employees.FindByID(ctx, filter.EmployeeID); err != nil {
		return nil, nil, lookupError(err, "employee")
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 200 {
		filter.PageSize = 50
	}
	actions, total, err := s.store.ListByEmployee(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list corrective actions")
	}
	return actions, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// History returns the status transitions of an action in order.
func (s *CorrectiveActionService) History(ctx context.Context, actionID string) ([]models.ActionStatusLog, error) {
	if _, err := s.load(ctx, actionID); err != nil {
		return nil, err
	}
	logs, err := s.store.ListStatusLogs(ctx, actionID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load status history")
	}
	return logs, nil
}

func (s *CorrectiveActionService) applyPatch(ctx context.Context, action *models.CorrectiveAction, patch ActionPatch) error {
	if patch.HouseID != nil {
		houseID := trimmedOrNil(patch.HouseID)
		if houseID != nil {
			if _, err := s.houses.FindByID(ctx, *houseID); err != nil {
				return lookupError(err, "house")
			}
		}
		action.HouseID = houseID
	}
	if patch.ViolationDate != nil {
		if err := s.checkViolationDate(*patch.ViolationDate); err != nil {
			return err
		}
		action.ViolationDate = *patch.ViolationDate
	}
	if patch.ViolationTime != nil {
		violationTime, err := normaliseViolationTime(patch.ViolationTime)
		if err != nil {
			return err
		}
		action.ViolationTime = violationTime
	}
	if patch.IncidentDescription != nil {
		description := strings.TrimSpace(*patch.IncidentDescription)
		if description == "" {
			return appErrors.Clone(appErrors.ErrValidation, "incidentDescription is required")
		}
		action.IncidentDescription = description
	}
	if patch.MitigatingCircumstances != nil {
		action.MitigatingCircumstances = trimmedOrNil(patch.MitigatingCircumstances)
	}
	if patch.DisciplineLevel != nil {
		if !patch.DisciplineLevel.Valid() {
			return appErrors.Clone(appErrors.ErrValidation, "disciplineLevel is invalid")
		}
		action.DisciplineLevel = *patch.DisciplineLevel
	}
	if patch.CorrectiveExpectations != nil {
		action.CorrectiveExpectations = cleanExpectations(*patch.CorrectiveExpectations)
	}
	if patch.ConsequencesText != nil {
		action.ConsequencesText = trimmedOrNil(patch.ConsequencesText)
	}
	if patch.PipScheduled != nil {
		action.PipScheduled = *patch.PipScheduled
		if !action.PipScheduled {
			action.PipDate = nil
		}
	}
	if patch.PipDate != nil {
		pipDate := *patch.PipDate
		action.PipDate = &pipDate
	}
	if action.PipDate != nil && !action.PipScheduled {
		return appErrors.Clone(appErrors.ErrValidation, "pipDate requires pipScheduled")
	}

	switch {
	case patch.ClearPointsAdjustment:
		if patch.PointsOverride != nil || patch.AdjustmentReason != nil {
			return appErrors.Clone(appErrors.ErrValidation, "clearPointsAdjustment cannot be combined with pointsOverride or adjustmentReason")
		}
		action.PointsAdjusted = nil
		action.AdjustmentReason = nil
	case patch.PointsOverride != nil:
		reason := action.AdjustmentReason
		if patch.AdjustmentReason != nil {
			reason = trimmedOrNil(patch.AdjustmentReason)
		}
		if err := checkPointsAdjustment(patch.PointsOverride, reason); err != nil {
			return err
		}
		action.PointsAdjusted = copyInt(patch.PointsOverride)
		action.AdjustmentReason = reason
	case patch.AdjustmentReason != nil:
		if action.PointsAdjusted == nil {
			return appErrors.Clone(appErrors.ErrValidation, "adjustmentReason requires pointsOverride")
		}
		reason := trimmedOrNil(patch.AdjustmentReason)
		if reason == nil {
			return appErrors.Clone(appErrors.ErrValidation, "adjustmentReason is required when points are adjusted")
		}
		action.AdjustmentReason = reason
	}
	return nil
}

func (s *CorrectiveActionService) checkViolationDate(date time.Time) error {
	if date.IsZero() {
		return appErrors.Clone(appErrors.ErrValidation, "violationDate is required")
	}
	if date.After(s.now().Add(s.dateTolerance)) {
		return appErrors.Clone(appErrors.ErrValidation, "violationDate cannot be in the future")
	}
	return nil
}

func checkPointsAdjustment(override *int, reason *string) error {
	if override == nil {
		return nil
	}
	if *override < 0 {
		return appErrors.Clone(appErrors.ErrValidation, "pointsOverride cannot be negative")
	}
	if reason == nil || strings.TrimSpace(*reason) == "" {
		return appErrors.Clone(appErrors.ErrValidation, "adjustmentReason is required when pointsOverride is set")
	}
	return nil
}

func normaliseViolationTime(value *string) (*string, error) {
	v := trimmedOrNil(value)
	if v == nil {
		return nil, nil
	}
	parsed, err := time.Parse(violationTimeLayout, *v)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "violationTime must be HH:MM")
	}
	formatted := parsed.Format(violationTimeLayout)
	return &formatted, nil
}

func cleanExpectations(items []string) pq.StringArray {
	cleaned := pq.StringArray{}
	for _, item := range items {
		if v := strings.TrimSpace(item); v != "" {
			cleaned = append(cleaned, v)
		}
	}
	return cleaned
}

func copyInt(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func lookupError(err error, entity string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("%s not found", entity))
	}
	return appErrors.Internal(err, fmt.Sprintf("failed to load %s", entity))
}
