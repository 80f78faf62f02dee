package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/care-ops-api/internal/models"
)

var actionRowColumns = []string{
	"id", "employee_id", "issuer_id", "house_id", "violation_category_id", "violation_date", "violation_time",
	"incident_description", "mitigating_circumstances", "discipline_level", "points_assigned", "points_adjusted",
	"adjustment_reason", "corrective_expectations", "consequences_text", "pip_scheduled", "pip_date", "employee_comments",
	"status", "void_reason", "voided_by_id", "voided_at", "created_at", "updated_at",
}

var signatureRowColumns = []string{"id", "action_id", "signer_type", "signer_id", "signature_data", "signed_at"}

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	cleanup := func() {
		require.NoError(t, mock.ExpectationsWereMet())
		_ = sqlxDB.Close()
	}
	return sqlxDB, mock, cleanup
}

func actionRows(status models.ActionStatus) *sqlmock.Rows {
	created := time.Date(2026, 2, 3, 9, 0, 0, 0, time.UTC)
	return sqlmock.NewRows(actionRowColumns).AddRow(
		"action-1", "emp-1", "sup-1", nil, "vc-medication-error", time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC), "14:30",
		"Missed 14:00 medication pass", nil, "WRITTEN_WARNING", int64(5), nil,
		nil, "{\"follow MAR checklist\"}", nil, false, nil, nil,
		string(status), nil, nil, nil, created, created,
	)
}

func TestCorrectiveActionRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCorrectiveActionRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO corrective_actions")).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO corrective_action_status_logs")).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	action := &models.CorrectiveAction{
		EmployeeID:          "emp-1",
		IssuerID:            "sup-1",
		ViolationCategoryID: "vc-medication-error",
		ViolationDate:       time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC),
		IncidentDescription: "Missed medication pass",
		DisciplineLevel:     models.DisciplineWrittenWarning,
		PointsAssigned:      5,
		Status:              models.ActionStatusPendingSignature,
	}
	log := &models.ActionStatusLog{NewStatus: models.ActionStatusPendingSignature, ChangedBy: "sup-1", Note: "created"}
	require.NoError(t, repo.Create(context.Background(), action, log))

	assert.NotEmpty(t, action.ID)
	assert.Equal(t, action.ID, log.ActionID)
	assert.Equal(t, action.CreatedAt, action.UpdatedAt)
	assert.NotNil(t, action.CorrectiveExpectations)
}

func TestCorrectiveActionRepositoryCreateRollsBackOnLogFailure(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCorrectiveActionRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO corrective_actions")).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO corrective_action_status_logs")).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &models.CorrectiveAction{EmployeeID: "emp-1"}, &models.ActionStatusLog{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert status log")
}

func TestCorrectiveActionRepositoryGetByID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCorrectiveActionRepository(db)

	signedAt := time.Date(2026, 2, 3, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("FROM corrective_actions WHERE id = $1")).
		WithArgs("action-1").
		WillReturnRows(actionRows(models.ActionStatusPendingSignature))
	mock.ExpectQuery(regexp.QuoteMeta("FROM corrective_action_signatures WHERE action_id = $1 ORDER BY signed_at ASC")).
		WithArgs("action-1").
		WillReturnRows(sqlmock.NewRows(signatureRowColumns).
			AddRow("sig-1", "action-1", "SUPERVISOR", "sup-1", []byte("png"), signedAt))

	action, err := repo.GetByID(context.Background(), "action-1")
	require.NoError(t, err)
	assert.Equal(t, "emp-1", action.EmployeeID)
	assert.Equal(t, models.DisciplineWrittenWarning, action.DisciplineLevel)
	assert.Equal(t, pq.StringArray{"follow MAR checklist"}, action.CorrectiveExpectations)
	require.NotNil(t, action.ViolationTime)
	assert.Equal(t, "14:30", *action.ViolationTime)
	assert.Nil(t, action.PointsAdjusted)
	require.Len(t, action.Signatures, 1)
	assert.Equal(t, models.SignerSupervisor, action.Signatures[0].SignerType)
}

func TestCorrectiveActionRepositoryGetByIDNotFound(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCorrectiveActionRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM corrective_actions WHERE id = $1")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	action, err := repo.GetByID(context.Background(), "missing")
	assert.Nil(t, action)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestCorrectiveActionRepositoryListByEmployee(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCorrectiveActionRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM corrective_actions WHERE employee_id = $1 AND status = ANY($2) ORDER BY violation_date DESC, created_at DESC LIMIT 20 OFFSET 20")).
		WillReturnRows(actionRows(models.ActionStatusVoided))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM corrective_actions WHERE employee_id = $1 AND status = ANY($2)")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(21))
	mock.ExpectQuery(regexp.QuoteMeta("FROM corrective_action_signatures WHERE action_id = ANY($1)")).
		WillReturnRows(sqlmock.NewRows(signatureRowColumns).
			AddRow("sig-1", "action-1", "EMPLOYEE", "emp-1", []byte("png"), time.Now()).
			AddRow("sig-2", "action-other", "HR", "hr-1", []byte("png"), time.Now()))

	actions, total, err := repo.ListByEmployee(context.Background(), models.CorrectiveActionFilter{
		EmployeeID: "emp-1",
		Status:     []models.ActionStatus{models.ActionStatusVoided},
		Page:       2,
		PageSize:   20,
	})
	require.NoError(t, err)
	assert.Equal(t, 21, total)
	require.Len(t, actions, 1)
	assert.Equal(t, models.ActionStatusVoided, actions[0].Status)
	require.Len(t, actions[0].Signatures, 1)
	assert.Equal(t, "sig-1", actions[0].Signatures[0].ID)
}

func TestCorrectiveActionRepositorySumEffectivePoints(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCorrectiveActionRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SUM(COALESCE(points_adjusted, points_assigned))")).
		WithArgs("emp-1").
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(9))

	total, err := repo.SumEffectivePoints(context.Background(), "emp-1")
	require.NoError(t, err)
	assert.Equal(t, 9, total)
}

func TestCorrectiveActionRepositoryWithLockCommits(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCorrectiveActionRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM corrective_actions WHERE id = $1 FOR UPDATE")).
		WithArgs("action-1").
		WillReturnRows(actionRows(models.ActionStatusPendingSignature))
	mock.ExpectQuery(regexp.QuoteMeta("FROM corrective_action_signatures WHERE action_id = $1")).
		WithArgs("action-1").
		WillReturnRows(sqlmock.NewRows(signatureRowColumns))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO corrective_action_signatures")).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE corrective_actions SET")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO corrective_action_status_logs")).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := repo.WithLock(context.Background(), "action-1", func(ctx context.Context, action *models.CorrectiveAction, w ActionWriter) error {
		assert.Empty(t, action.Signatures)
		sig := &models.Signature{ActionID: action.ID, SignerType: models.SignerEmployee, SignerID: "emp-1", SignatureData: []byte("png")}
		if err := w.InsertSignature(ctx, sig); err != nil {
			return err
		}
		assert.NotEmpty(t, sig.ID)
		action.Status = models.ActionStatusAcknowledged
		if err := w.SaveAction(ctx, action); err != nil {
			return err
		}
		return w.InsertStatusLog(ctx, &models.ActionStatusLog{ActionID: action.ID, NewStatus: action.Status, ChangedBy: "emp-1"})
	})
	require.NoError(t, err)
}

func TestCorrectiveActionRepositoryWithLockDuplicateSignature(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCorrectiveActionRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).WillReturnRows(actionRows(models.ActionStatusPendingSignature))
	mock.ExpectQuery(regexp.QuoteMeta("FROM corrective_action_signatures")).WillReturnRows(sqlmock.NewRows(signatureRowColumns))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO corrective_action_signatures")).
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"})
	mock.ExpectRollback()

	err := repo.WithLock(context.Background(), "action-1", func(ctx context.Context, action *models.CorrectiveAction, w ActionWriter) error {
		return w.InsertSignature(ctx, &models.Signature{ActionID: action.ID, SignerType: models.SignerWitness, SignerID: "staff-1"})
	})
	assert.ErrorIs(t, err, ErrDuplicateSignature)
}

func TestCorrectiveActionRepositorySaveActionOnVoidedRow(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCorrectiveActionRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).WillReturnRows(actionRows(models.ActionStatusPendingSignature))
	mock.ExpectQuery(regexp.QuoteMeta("FROM corrective_action_signatures")).WillReturnRows(sqlmock.NewRows(signatureRowColumns))
	mock.ExpectExec(regexp.QuoteMeta("AND status <> 'VOIDED'")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.WithLock(context.Background(), "action-1", func(ctx context.Context, action *models.CorrectiveAction, w ActionWriter) error {
		return w.SaveAction(ctx, action)
	})
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestCorrectiveActionRepositoryWithLockUnknownAction(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCorrectiveActionRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).WithArgs("missing").WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	called := false
	err := repo.WithLock(context.Background(), "missing", func(context.Context, *models.CorrectiveAction, ActionWriter) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.False(t, called)
}

func TestCorrectiveActionRepositoryListStatusLogs(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCorrectiveActionRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM corrective_action_status_logs WHERE action_id = $1")).
		WithArgs("action-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "action_id", "old_status", "new_status", "note", "changed_by", "created_at"}).
			AddRow("log-1", "action-1", nil, "PENDING_SIGNATURE", "created", "sup-1", time.Now()).
			AddRow("log-2", "action-1", "PENDING_SIGNATURE", "VOIDED", "entered in error", "hr-1", time.Now()))

	logs, err := repo.ListStatusLogs(context.Background(), "action-1")
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Nil(t, logs[0].OldStatus)
	require.NotNil(t, logs[1].OldStatus)
	assert.Equal(t, models.ActionStatusPendingSignature, *logs[1].OldStatus)
	assert.Equal(t, models.ActionStatusVoided, logs[1].NewStatus)
}
