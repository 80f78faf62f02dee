package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/care-ops-api/internal/models"
)

const uniqueViolationCode = "23505"

// ErrDuplicateSignature is returned when a signer type is already recorded for an action.
var ErrDuplicateSignature = errors.New("signature already recorded for signer type")

const actionColumns = `id, employee_id, issuer_id, house_id, violation_category_id, violation_date, violation_time,
       incident_description, mitigating_circumstances, discipline_level, points_assigned, points_adjusted,
       adjustment_reason, corrective_expectations, consequences_text, pip_scheduled, pip_date, employee_comments,
       status, void_reason, voided_by_id, voided_at, created_at, updated_at`

const signatureColumns = `id, action_id, signer_type, signer_id, signature_data, signed_at`

// ActionWriter exposes the writes allowed while an action row is locked.
type ActionWriter interface {
	SaveAction(ctx context.Context, action *models.CorrectiveAction) error
	InsertSignature(ctx context.Context, sig *models.Signature) error
	InsertStatusLog(ctx context.Context, log *models.ActionStatusLog) error
}

// LockedActionFunc runs while the action row is locked. Returning an error rolls back every write.
type LockedActionFunc func(ctx context.Context, action *models.CorrectiveAction, w ActionWriter) error

// CorrectiveActionRepository persists corrective actions, their signatures and status history.
type CorrectiveActionRepository struct {
	db *sqlx.DB
}

// NewCorrectiveActionRepository constructs the repository.
func NewCorrectiveActionRepository(db *sqlx.DB) *CorrectiveActionRepository {
	return &CorrectiveActionRepository{db: db}
}

// Create inserts a new action and its initial status log in one transaction.
func (r *CorrectiveActionRepository) Create(ctx context.Context, action *models.CorrectiveAction, log *models.ActionStatusLog) (err error) {
	if action.ID == "" {
		action.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if action.CreatedAt.IsZero() {
		action.CreatedAt = now
	}
	action.UpdatedAt = action.CreatedAt
	if action.CorrectiveExpectations == nil {
		action.CorrectiveExpectations = pq.StringArray{}
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin corrective action transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const query = `INSERT INTO corrective_actions
	(id, employee_id, issuer_id, house_id, violation_category_id, violation_date, violation_time, incident_description,
	 mitigating_circumstances, discipline_level, points_assigned, points_adjusted, adjustment_reason, corrective_expectations,
	 consequences_text, pip_scheduled, pip_date, employee_comments, status, void_reason, voided_by_id, voided_at, created_at, updated_at)
	VALUES (:id, :employee_id, :issuer_id, :house_id, :violation_category_id, :violation_date, :violation_time, :incident_description,
	 :mitigating_circumstances, :discipline_level, :points_assigned, :points_adjusted, :adjustment_reason, :corrective_expectations,
	 :consequences_text, :pip_scheduled, :pip_date, :employee_comments, :status, :void_reason, :voided_by_id, :voided_at, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, query, action); err != nil {
		return fmt.Errorf("create corrective action: %w", err)
	}
	if log != nil {
		log.ActionID = action.ID
		if err = insertStatusLog(ctx, tx, log); err != nil {
			return err
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit corrective action: %w", err)
	}
	return nil
}

// GetByID returns the action with its signatures ordered by signing time.
func (r *CorrectiveActionRepository) GetByID(ctx context.Context, id string) (*models.CorrectiveAction, error) {
	query := fmt.Sprintf(`SELECT %s FROM corrective_actions WHERE id = $1`, actionColumns)
	var action models.CorrectiveAction
	if err := r.db.GetContext(ctx, &action, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get corrective action: %w", err)
	}
	signatures, err := selectSignatures(ctx, r.db, id)
	if err != nil {
		return nil, err
	}
	action.Signatures = signatures
	return &action, nil
}

// ListByEmployee returns the employee's actions (including voided ones), newest first.
func (r *CorrectiveActionRepository) ListByEmployee(ctx context.Context, filter models.CorrectiveActionFilter) ([]models.CorrectiveAction, int, error) {
	where := []string{"employee_id = $1"}
	args := []interface{}{filter.EmployeeID}
	if len(filter.Status) > 0 {
		values := make([]string, len(filter.Status))
		for i, s := range filter.Status {
			values[i] = string(s)
		}
		args = append(args, pq.Array(values))
		where = append(where, fmt.Sprintf("status = ANY($%d)", len(args)))
	}
	whereClause := strings.Join(where, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s FROM corrective_actions WHERE %s ORDER BY violation_date DESC, created_at DESC LIMIT %d OFFSET %d`,
		actionColumns, whereClause, size, offset)
	var actions []models.CorrectiveAction
	if err := r.db.SelectContext(ctx, &actions, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list corrective actions: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM corrective_actions WHERE "+whereClause, args...); err != nil {
		return nil, 0, fmt.Errorf("count corrective actions: %w", err)
	}

	if len(actions) == 0 {
		return actions, total, nil
	}
	ids := make([]string, len(actions))
	for i := range actions {
		ids[i] = actions[i].ID
		actions[i].Signatures = []models.Signature{}
	}
	var signatures []models.Signature
	sigQuery := fmt.Sprintf(`SELECT %s FROM corrective_action_signatures WHERE action_id = ANY($1) ORDER BY signed_at ASC`, signatureColumns)
	if err := r.db.SelectContext(ctx, &signatures, sigQuery, pq.Array(ids)); err != nil {
		return nil, 0, fmt.Errorf("list corrective action signatures: %w", err)
	}
	byAction := make(map[string]int, len(actions))
	for i := range actions {
		byAction[actions[i].ID] = i
	}
	for _, sig := range signatures {
		if idx, ok := byAction[sig.ActionID]; ok {
			actions[idx].Signatures = append(actions[idx].Signatures, sig)
		}
	}
	return actions, total, nil
}

// SumEffectivePoints aggregates the effective points of every non-voided action for an employee.
func (r *CorrectiveActionRepository) SumEffectivePoints(ctx context.Context, employeeID string) (int, error) {
	const query = `SELECT COALESCE(SUM(COALESCE(points_adjusted, points_assigned)), 0)
FROM corrective_actions
WHERE employee_id = $1 AND status <> 'VOIDED'`
	var total int
	if err := r.db.GetContext(ctx, &total, query, employeeID); err != nil {
		return 0, fmt.Errorf("sum effective points: %w", err)
	}
	return total, nil
}

// ListStatusLogs returns the status history of an action, oldest first.
func (r *CorrectiveActionRepository) ListStatusLogs(ctx context.Context, actionID string) ([]models.ActionStatusLog, error) {
	const query = `SELECT id, action_id, old_status, new_status, note, changed_by, created_at
FROM corrective_action_status_logs WHERE action_id = $1 ORDER BY created_at ASC`
	logs := []models.ActionStatusLog{}
	if err := r.db.SelectContext(ctx, &logs, query, actionID); err != nil {
		return nil, fmt.Errorf("list status logs: %w", err)
	}
	return logs, nil
}

// WithLock loads the action with SELECT ... FOR UPDATE and runs fn inside the same transaction.
// Concurrent callers for the same action are serialised; sql.ErrNoRows is returned for unknown ids.
func (r *CorrectiveActionRepository) WithLock(ctx context.Context, id string, fn LockedActionFunc) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin corrective action lock: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	query := fmt.Sprintf(`SELECT %s FROM corrective_actions WHERE id = $1 FOR UPDATE`, actionColumns)
	var action models.CorrectiveAction
	if err = tx.GetContext(ctx, &action, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return err
		}
		return fmt.Errorf("lock corrective action: %w", err)
	}
	if action.Signatures, err = selectSignatures(ctx, tx, id); err != nil {
		return err
	}

	if err = fn(ctx, &action, &txActionWriter{tx: tx}); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit corrective action: %w", err)
	}
	return nil
}

type txActionWriter struct {
	tx *sqlx.Tx
}

// SaveAction persists every mutable column. Identity, issuer, category and pointsAssigned are never written.
func (w *txActionWriter) SaveAction(ctx context.Context, action *models.CorrectiveAction) error {
	const query = `UPDATE corrective_actions SET
	house_id = :house_id, violation_date = :violation_date, violation_time = :violation_time,
	incident_description = :incident_description, mitigating_circumstances = :mitigating_circumstances,
	discipline_level = :discipline_level, points_adjusted = :points_adjusted, adjustment_reason = :adjustment_reason,
	corrective_expectations = :corrective_expectations, consequences_text = :consequences_text,
	pip_scheduled = :pip_scheduled, pip_date = :pip_date, employee_comments = :employee_comments,
	status = :status, void_reason = :void_reason, voided_by_id = :voided_by_id, voided_at = :voided_at,
	updated_at = :updated_at
	WHERE id = :id AND status <> 'VOIDED'`
	result, err := w.tx.NamedExecContext(ctx, query, action)
	if err != nil {
		return fmt.Errorf("update corrective action: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check corrective action update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (w *txActionWriter) InsertSignature(ctx context.Context, sig *models.Signature) error {
	if sig.ID == "" {
		sig.ID = uuid.NewString()
	}
	if sig.SignedAt.IsZero() {
		sig.SignedAt = time.Now().UTC()
	}
	const query = `INSERT INTO corrective_action_signatures (id, action_id, signer_type, signer_id, signature_data, signed_at)
VALUES (:id, :action_id, :signer_type, :signer_id, :signature_data, :signed_at)`
	if _, err := w.tx.NamedExecContext(ctx, query, sig); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolationCode {
			return ErrDuplicateSignature
		}
		return fmt.Errorf("insert signature: %w", err)
	}
	return nil
}

func (w *txActionWriter) InsertStatusLog(ctx context.Context, log *models.ActionStatusLog) error {
	return insertStatusLog(ctx, w.tx, log)
}

func insertStatusLog(ctx context.Context, tx *sqlx.Tx, log *models.ActionStatusLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO corrective_action_status_logs (id, action_id, old_status, new_status, note, changed_by, created_at)
VALUES (:id, :action_id, :old_status, :new_status, :note, :changed_by, :created_at)`
	if _, err := tx.NamedExecContext(ctx, query, log); err != nil {
		return fmt.Errorf("insert status log: %w", err)
	}
	return nil
}

func selectSignatures(ctx context.Context, q sqlx.QueryerContext, actionID string) ([]models.Signature, error) {
	query := fmt.Sprintf(`SELECT %s FROM corrective_action_signatures WHERE action_id = $1 ORDER BY signed_at ASC`, signatureColumns)
	signatures := []models.Signature{}
	if err := sqlx.SelectContext(ctx, q, &signatures, query, actionID); err != nil {
		return nil, fmt.Errorf("list signatures: %w", err)
	}
	return signatures, nil
}
