package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/care-ops-api/internal/models"
	"github.com/noah-isme/care-ops-api/internal/repository"
	appErrors "github.com/noah-isme/care-ops-api/pkg/errors"
)

const defaultViolationDateTolerance = 24 * time.Hour

type correctiveActionStore interface {
	Create(ctx context.Context, action *models.CorrectiveAction, log *models.ActionStatusLog) error
	GetByID(ctx context.Context, id string) (*models.CorrectiveAction, error)
	ListByEmployee(ctx context.Context, filter models.CorrectiveActionFilter) ([]models.CorrectiveAction, int, error)
	SumEffectivePoints(ctx context.Context, employeeID string) (int, error)
	ListStatusLogs(ctx context.Context, actionID string) ([]models.ActionStatusLog, error)
	WithLock(ctx context.Context, id string, fn repository.LockedActionFunc) error
}

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// lifecycle holds the collaborators shared by the corrective action services.
type lifecycle struct {
	store         correctiveActionStore
	audit         auditLogger
	metrics       *MetricsService
	logger        *zap.Logger
	now           func() time.Time
	dateTolerance time.Duration
	source        string
}

// LifecycleOption configures the corrective action services.
type LifecycleOption func(*lifecycle)

// WithClock overrides the time source.
func WithClock(now func() time.Time) LifecycleOption {
	return func(l *lifecycle) {
		if now != nil {
			l.now = now
		}
	}
}

// WithMetrics attaches Prometheus counters.
func WithMetrics(metrics *MetricsService) LifecycleOption {
	return func(l *lifecycle) {
		l.metrics = metrics
	}
}

// WithViolationDateTolerance sets how far past now a violation date may be.
func WithViolationDateTolerance(d time.Duration) LifecycleOption {
	return func(l *lifecycle) {
		if d >= 0 {
			l.dateTolerance = d
		}
	}
}

func newLifecycle(store correctiveActionStore, audit auditLogger, logger *zap.Logger, source string, opts []LifecycleOption) lifecycle {
	if logger == nil {
		logger = zap.NewNop()
	}
	l := lifecycle{
		store:         store,
		audit:         audit,
		logger:        logger,
		now:           func() time.Time { return time.Now().UTC() },
		dateTolerance: defaultViolationDateTolerance,
		source:        source,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&l)
		}
	}
	return l
}

// translate maps storage errors to typed errors and counts conflicts per operation.
func (l *lifecycle) translate(err error, operation, message string) error {
	if err == nil {
		return nil
	}
	var appErr *appErrors.Error
	switch {
	case errors.As(err, &appErr):
	case errors.Is(err, sql.ErrNoRows):
		appErr = appErrors.Clone(appErrors.ErrNotFound, "corrective action not found")
	default:
		appErr = appErrors.Internal(err, message)
	}
	if errors.Is(appErr, appErrors.ErrConflict) {
		l.metrics.RecordConflict(operation)
	}
	return appErr
}

// load returns the action or NotFound.
func (l *lifecycle) load(ctx context.Context, id string) (*models.CorrectiveAction, error) {
	action, err := l.store.GetByID(ctx, id)
	if err != nil {
		return nil, l.translate(err, "get", "failed to load corrective action")
	}
	return action, nil
}

// save writes the locked action. A guarded update that touches no row means the action was voided.
func (l *lifecycle) save(ctx context.Context, w repository.ActionWriter, action *models.CorrectiveAction) error {
	if err := w.SaveAction(ctx, action); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrConflict, "corrective action is voided")
		}
		return err
	}
	return nil
}

func (l *lifecycle) emitAudit(ctx context.Context, actorID, action, actionID string, before, after interface{}) {
	if l.audit == nil {
		return
	}
	log := &models.AuditLog{
		Action:     action,
		Resource:   "corrective_action",
		ResourceID: &actionID,
		OldValues:  auditSnapshot(before),
		NewValues:  auditSnapshot(after),
		IPAddress:  "system",
		UserAgent:  l.source,
	}
	if actorID != "" {
		log.UserID = &actorID
	}
	if err := l.audit.CreateAuditLog(ctx, log); err != nil {
		l.logger.Warn("failed to persist audit log", zap.String("action", action), zap.String("corrective_action_id", actionID), zap.Error(err))
	}
}

func auditSnapshot(v interface{}) []byte {
	if v == nil {
		return nil
	}
	if a, ok := v.(*models.CorrectiveAction); ok && a == nil {
		return nil
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return payload
}

func trimmedOrNil(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil
	}
	return &v
}
