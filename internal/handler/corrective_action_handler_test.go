package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/care-ops-api/internal/dto"
	"github.com/noah-isme/care-ops-api/internal/middleware"
	"github.com/noah-isme/care-ops-api/internal/models"
	appErrors "github.com/noah-isme/care-ops-api/pkg/errors"
)

type disciplineServiceMock struct {
	createReq   dto.CreateCorrectiveActionRequest
	updateReq   dto.UpdateCorrectiveActionRequest
	signReq     dto.SignCorrectiveActionRequest
	voidReq     dto.VoidCorrectiveActionRequest
	listQuery   dto.CorrectiveActionListQuery
	employeeReq dto.EmployeeSignRequest
	actor       *models.JWTClaims
	actionID    string
	token       string

	action     *dto.CorrectiveActionResponse
	history    []models.ActionStatusLog
	points     *dto.DisciplinePointsResponse
	link       *dto.SigningLinkResponse
	view       *dto.SigningActionView
	categories []models.ViolationCategory
	severity   string
	err        error
}

func (m *disciplineServiceMock) CreateAction(ctx context.Context, req dto.CreateCorrectiveActionRequest, actor *models.JWTClaims) (*dto.CorrectiveActionResponse, error) {
	m.createReq, m.actor = req, actor
	return m.action, m.err
}

func (m *disciplineServiceMock) EditAction(ctx context.Context, actionID string, req dto.UpdateCorrectiveActionRequest, actor *models.JWTClaims) (*dto.CorrectiveActionResponse, error) {
	m.actionID, m.updateReq, m.actor = actionID, req, actor
	return m.action, m.err
}

func (m *disciplineServiceMock) SignAction(ctx context.Context, actionID string, req dto.SignCorrectiveActionRequest, actor *models.JWTClaims) (*dto.CorrectiveActionResponse, error) {
	m.actionID, m.signReq, m.actor = actionID, req, actor
	return m.action, m.err
}

func (m *disciplineServiceMock) VoidAction(ctx context.Context, actionID string, req dto.VoidCorrectiveActionRequest, actor *models.JWTClaims) (*dto.CorrectiveActionResponse, error) {
	m.actionID, m.voidReq, m.actor = actionID, req, actor
	return m.action, m.err
}

func (m *disciplineServiceMock) GetAction(ctx context.Context, actionID string) (*dto.CorrectiveActionResponse, error) {
	m.actionID = actionID
	return m.action, m.err
}

func (m *disciplineServiceMock) ActionHistory(ctx context.Context, actionID string) ([]models.ActionStatusLog, error) {
	m.actionID = actionID
	return m.history, m.err
}

func (m *disciplineServiceMock) EmployeeActions(ctx context.Context, employeeID string, query dto.CorrectiveActionListQuery) ([]dto.CorrectiveActionResponse, *models.Pagination, error) {
	m.actionID, m.listQuery = employeeID, query
	if m.err != nil {
		return nil, nil, m.err
	}
	return []dto.CorrectiveActionResponse{*m.action}, &models.Pagination{Page: 1, PageSize: 50, TotalCount: 1}, nil
}

func (m *disciplineServiceMock) EmployeeTotalPoints(ctx context.Context, employeeID string) (*dto.DisciplinePointsResponse, error) {
	m.actionID = employeeID
	return m.points, m.err
}

func (m *disciplineServiceMock) IssueSigningLink(ctx context.Context, actionID string, actor *models.JWTClaims) (*dto.SigningLinkResponse, error) {
	m.actionID, m.actor = actionID, actor
	return m.link, m.err
}

func (m *disciplineServiceMock) ViewWithLink(ctx context.Context, token string) (*dto.SigningActionView, error) {
	m.token = token
	return m.view, m.err
}

func (m *disciplineServiceMock) SignWithLink(ctx context.Context, token string, req dto.EmployeeSignRequest) (*dto.CorrectiveActionResponse, error) {
	m.token, m.employeeReq = token, req
	return m.action, m.err
}

func (m *disciplineServiceMock) ListCategories(ctx context.Context, severity string) ([]models.ViolationCategory, error) {
	m.severity = severity
	return m.categories, m.err
}

func (m *disciplineServiceMock) GetCategory(ctx context.Context, id string) (*models.ViolationCategory, error) {
	m.actionID = id
	if m.err != nil {
		return nil, m.err
	}
	return &m.categories[0], nil
}

func sampleAction(status models.ActionStatus) *dto.CorrectiveActionResponse {
	return dto.NewCorrectiveActionResponse(&models.CorrectiveAction{
		ID:             "action-1",
		EmployeeID:     "emp-1",
		PointsAssigned: 5,
		Status:         status,
		Signatures:     []models.Signature{},
	})
}

func newContext(method, target string, body interface{}, claims *models.JWTClaims) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	var reader *bytes.Reader
	switch v := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(v))
	default:
		raw, _ := json.Marshal(v)
		reader = bytes.NewReader(raw)
	}
	req, _ := http.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	if claims != nil {
		c.Set(middleware.ContextUserKey, claims)
	}
	return c, w
}

type envelope struct {
	Data       json.RawMessage    `json:"data"`
	Error      *appErrors.Error   `json:"error"`
	Pagination *models.Pagination `json:"pagination"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

var hrClaims = &models.JWTClaims{UserID: "hr-1", Role: models.RoleHR}

func TestCorrectiveActionHandlerCreate(t *testing.T) {
	svc := &disciplineServiceMock{action: sampleAction(models.ActionStatusPendingSignature)}
	h := NewCorrectiveActionHandler(svc)

	c, w := newContext(http.MethodPost, "/corrective-actions", map[string]interface{}{
		"employeeId":          "emp-1",
		"violationCategoryId": "cat-med",
		"violationDate":       "2026-03-08",
		"incidentDescription": "late dose",
		"disciplineLevel":     "COACHING",
		"pointsOverride":      3,
		"adjustmentReason":    "first time",
	}, hrClaims)
	h.Create(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "emp-1", svc.createReq.EmployeeID)
	require.NotNil(t, svc.createReq.PointsOverride)
	assert.Equal(t, 3, *svc.createReq.PointsOverride)
	assert.Equal(t, hrClaims, svc.actor)

	var data map[string]interface{}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &data))
	assert.Equal(t, "action-1", data["id"])
	assert.EqualValues(t, 5, data["effectivePoints"])
}

func TestCorrectiveActionHandlerCreateRejectsBadJSON(t *testing.T) {
	h := NewCorrectiveActionHandler(&disciplineServiceMock{})
	c, w := newContext(http.MethodPost, "/corrective-actions", "{not json", hrClaims)
	h.Create(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, appErrors.ErrValidation.Code, decode(t, w).Error.Code)
}

func TestCorrectiveActionHandlerRequiresClaims(t *testing.T) {
	h := NewCorrectiveActionHandler(&disciplineServiceMock{})
	for name, call := range map[string]func(*gin.Context){
		"create": h.Create,
		"update": h.Update,
		"sign":   h.Sign,
		"void":   h.Void,
	} {
		t.Run(name, func(t *testing.T) {
			c, w := newContext(http.MethodPost, "/", map[string]string{}, nil)
			call(c)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestCorrectiveActionHandlerMapsServiceErrors(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{appErrors.Clone(appErrors.ErrNotFound, "corrective action not found"), http.StatusNotFound},
		{appErrors.Clone(appErrors.ErrConflict, "corrective action is voided"), http.StatusConflict},
		{appErrors.Clone(appErrors.ErrForbidden, "role STAFF cannot sign as HR"), http.StatusForbidden},
		{appErrors.Clone(appErrors.ErrValidation, "void reason is required"), http.StatusBadRequest},
	}
	for _, tc := range cases {
		svc := &disciplineServiceMock{err: tc.err}
		h := NewCorrectiveActionHandler(svc)
		c, w := newContext(http.MethodPost, "/corrective-actions/action-1/void", map[string]string{"reason": "x"}, hrClaims)
		c.Params = gin.Params{{Key: "id", Value: "action-1"}}
		h.Void(c)

		assert.Equal(t, tc.status, w.Code)
		assert.Equal(t, "action-1", svc.actionID)
	}
}

func TestCorrectiveActionHandlerSign(t *testing.T) {
	svc := &disciplineServiceMock{action: sampleAction(models.ActionStatusPendingSignature)}
	h := NewCorrectiveActionHandler(svc)

	c, w := newContext(http.MethodPost, "/corrective-actions/action-1/signatures", map[string]interface{}{
		"signerType":    "HR",
		"signatureData": []byte("png"),
	}, hrClaims)
	c.Params = gin.Params{{Key: "id", Value: "action-1"}}
	h.Sign(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "HR", svc.signReq.SignerType)
	assert.Equal(t, []byte("png"), svc.signReq.SignatureData)
}

func TestCorrectiveActionHandlerUpdate(t *testing.T) {
	svc := &disciplineServiceMock{action: sampleAction(models.ActionStatusPendingSignature)}
	h := NewCorrectiveActionHandler(svc)

	c, w := newContext(http.MethodPatch, "/corrective-actions/action-1", map[string]interface{}{
		"clearPointsAdjustment": true,
		"pipScheduled":          false,
	}, hrClaims)
	c.Params = gin.Params{{Key: "id", Value: "action-1"}}
	h.Update(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, svc.updateReq.ClearPointsAdjustment)
	require.NotNil(t, svc.updateReq.PipScheduled)
	assert.False(t, *svc.updateReq.PipScheduled)
	assert.Nil(t, svc.updateReq.IncidentDescription)
}

func TestCorrectiveActionHandlerListByEmployee(t *testing.T) {
	svc := &disciplineServiceMock{action: sampleAction(models.ActionStatusVoided)}
	h := NewCorrectiveActionHandler(svc)

	c, w := newContext(http.MethodGet, "/employees/emp-1/corrective-actions?status=voided,%20acknowledged,&page=2&page_size=abc", nil, hrClaims)
	c.Params = gin.Params{{Key: "id", Value: "emp-1"}}
	h.ListByEmployee(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "emp-1", svc.actionID)
	assert.Equal(t, []string{"VOIDED", "ACKNOWLEDGED"}, svc.listQuery.Status)
	assert.Equal(t, 2, svc.listQuery.Page)
	assert.Zero(t, svc.listQuery.PageSize)
	assert.Equal(t, 1, decode(t, w).Pagination.TotalCount)
}

func TestCorrectiveActionHandlerReads(t *testing.T) {
	svc := &disciplineServiceMock{
		action:  sampleAction(models.ActionStatusAcknowledged),
		history: []models.ActionStatusLog{{ActionID: "action-1", NewStatus: models.ActionStatusPendingSignature}},
		points:  &dto.DisciplinePointsResponse{EmployeeID: "emp-1", TotalPoints: 7, ComputedAt: time.Now()},
	}
	h := NewCorrectiveActionHandler(svc)

	c, w := newContext(http.MethodGet, "/corrective-actions/action-1", nil, hrClaims)
	c.Params = gin.Params{{Key: "id", Value: "action-1"}}
	h.Get(c)
	assert.Equal(t, http.StatusOK, w.Code)

	c, w = newContext(http.MethodGet, "/corrective-actions/action-1/history", nil, hrClaims)
	c.Params = gin.Params{{Key: "id", Value: "action-1"}}
	h.History(c)
	assert.Equal(t, http.StatusOK, w.Code)

	c, w = newContext(http.MethodGet, "/employees/emp-1/discipline-points", nil, hrClaims)
	c.Params = gin.Params{{Key: "id", Value: "emp-1"}}
	h.DisciplinePoints(c)
	require.Equal(t, http.StatusOK, w.Code)
	var points dto.DisciplinePointsResponse
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &points))
	assert.Equal(t, 7, points.TotalPoints)
}

func TestParsePositiveInt(t *testing.T) {
	assert.Equal(t, 3, parsePositiveInt(" 3 "))
	assert.Zero(t, parsePositiveInt("-1"))
	assert.Zero(t, parsePositiveInt("x"))
	assert.Zero(t, parsePositiveInt(""))
}
