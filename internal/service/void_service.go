package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/care-ops-api/internal/models"
	"github.com/noah-isme/care-ops-api/internal/repository"
	appErrors "github.com/noah-isme/care-ops-api/pkg/errors"
)

// VoidService performs the irreversible administrative void.
type VoidService struct {
	lifecycle
}

// NewVoidService constructs the service.
func NewVoidService(store correctiveActionStore, audit auditLogger, logger *zap.Logger, opts ...LifecycleOption) *VoidService {
	return &VoidService{lifecycle: newLifecycle(store, audit, logger, "void-service", opts)}
}

// Void marks the action VOIDED. Point totals exclude it from then on without any ledger write.
func (s *VoidService) Void(ctx context.Context, actionID, userID string, role models.UserRole, reason string) (*models.CorrectiveAction, error) {
	if !canVoid(role) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only HR or an administrator may void a corrective action")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "void reason is required")
	}

	var (
		result    *models.CorrectiveAction
		oldStatus models.ActionStatus
	)
	err := s.store.WithLock(ctx, actionID, func(ctx context.Context, action *models.CorrectiveAction, w repository.ActionWriter) error {
		if action.Status == models.ActionStatusVoided {
			return appErrors.Clone(appErrors.ErrConflict, "corrective action already voided")
		}
		next, err := NextActionStatus(action.Status, EventVoid)
		if err != nil {
			return err
		}
		now := s.now()
		oldStatus = action.Status
		action.Status = next
		action.VoidReason = &reason
		action.VoidedByID = &userID
		action.VoidedAt = &now
		action.UpdatedAt = now
		if err := s.save(ctx, w, action); err != nil {
			return err
		}
		from := oldStatus
		if err := w.InsertStatusLog(ctx, &models.ActionStatusLog{
			ActionID:  action.ID,
			OldStatus: &from,
			NewStatus: next,
			Note:      reason,
			ChangedBy: userID,
			CreatedAt: now,
		}); err != nil {
			return err
		}
		result = action.Clone()
		return nil
	})
	if err != nil {
		return nil, s.translate(err, "void", "failed to void corrective action")
	}

	s.metrics.RecordVoid()
	s.logger.Info("corrective action voided",
		zap.String("corrective_action_id", result.ID),
		zap.String("voided_by", userID),
		zap.String("previous_status", string(oldStatus)))
	s.emitAudit(ctx, userID, models.AuditActionCorrectiveActionVoid, result.ID,
		map[string]interface{}{"status": oldStatus},
		map[string]interface{}{"status": result.Status, "voidReason": reason})
	return result, nil
}
