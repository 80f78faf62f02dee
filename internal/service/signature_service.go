package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/care-ops-api/internal/models"
	"github.com/noah-isme/care-ops-api/internal/repository"
	appErrors "github.com/noah-isme/care-ops-api/pkg/errors"
)

// SignatureInput describes one signature attempt.
type SignatureInput struct {
	ActionID      string
	SignerType    models.SignerType
	SignerID      string
	SignatureData []byte
	CallerRole    models.UserRole
	// Dispute and EmployeeComments only apply to EMPLOYEE signatures.
	Dispute          bool
	EmployeeComments *string
}

// SignatureService records signatures and drives the employee sign transition.
type SignatureService struct {
	lifecycle
}

// NewSignatureService constructs the service.
func NewSignatureService(store correctiveActionStore, audit auditLogger, logger *zap.Logger, opts ...LifecycleOption) *SignatureService {
	return &SignatureService{lifecycle: newLifecycle(store, audit, logger, "signature-service", opts)}
}

// AddSignature appends a signature atomically with respect to other writers on the same action.
func (s *SignatureService) AddSignature(ctx context.Context, in SignatureInput) (*models.CorrectiveAction, error) {
	if !in.SignerType.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "signerType is invalid")
	}
	if strings.TrimSpace(in.SignerID) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "signerId is required")
	}
	if len(in.SignatureData) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "signatureData is required")
	}
	if in.SignerType != models.SignerEmployee && (in.Dispute || in.EmployeeComments != nil) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "dispute and employeeComments apply to employee signatures only")
	}

	var (
		result    *models.CorrectiveAction
		oldStatus models.ActionStatus
	)
	err := s.store.WithLock(ctx, in.ActionID, func(ctx context.Context, action *models.CorrectiveAction, w repository.ActionWriter) error {
		if action.Status == models.ActionStatusVoided {
			return appErrors.Clone(appErrors.ErrConflict, "corrective action is voided")
		}
		if !CanSign(in.SignerType, in.CallerRole) {
			return appErrors.Clone(appErrors.ErrForbidden, fmt.Sprintf("role %s cannot sign as %s", in.CallerRole, in.SignerType))
		}
		if in.SignerType == models.SignerEmployee && in.SignerID != action.EmployeeID {
			return appErrors.Clone(appErrors.ErrForbidden, "employee signature must come from the subject employee")
		}
		if _, exists := action.Signature(in.SignerType); exists {
			return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("%s signature already recorded", in.SignerType))
		}

		now := s.now()
		sig := models.Signature{
			ActionID:      action.ID,
			SignerType:    in.SignerType,
			SignerID:      in.SignerID,
			SignatureData: append([]byte(nil), in.SignatureData...),
			SignedAt:      now,
		}
		if err := w.InsertSignature(ctx, &sig); err != nil {
			if errors.Is(err, repository.ErrDuplicateSignature) {
				return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("%s signature already recorded", in.SignerType))
			}
			return err
		}
		action.Signatures = append(action.Signatures, sig)

		oldStatus = action.Status
		if in.SignerType == models.SignerEmployee {
			next, err := NextActionStatus(action.Status, employeeSignEvent(in.Dispute))
			if err != nil {
				return err
			}
			action.Status = next
			if action.EmployeeComments == nil {
				action.EmployeeComments = trimmedOrNil(in.EmployeeComments)
			}
		}
		action.UpdatedAt = now
		if err := s.save(ctx, w, action); err != nil {
			return err
		}
		if action.Status != oldStatus {
			from := oldStatus
			if err := w.InsertStatusLog(ctx, &models.ActionStatusLog{
				ActionID:  action.ID,
				OldStatus: &from,
				NewStatus: action.Status,
				Note:      "employee signature",
				ChangedBy: in.SignerID,
				CreatedAt: now,
			}); err != nil {
				return err
			}
		}
		result = action.Clone()
		return nil
	})
	if err != nil {
		return nil, s.translate(err, "sign", "failed to record signature")
	}

	s.metrics.RecordSignature(in.SignerType)
	s.logger.Info("corrective action signed",
		zap.String("corrective_action_id", result.ID),
		zap.String("signer_type", string(in.SignerType)),
		zap.String("status", string(result.Status)))
	s.emitAudit(ctx, in.SignerID, models.AuditActionCorrectiveActionSign, result.ID,
		map[string]interface{}{"status": oldStatus},
		map[string]interface{}{"status": result.Status, "signerType": in.SignerType})
	return result, nil
}
