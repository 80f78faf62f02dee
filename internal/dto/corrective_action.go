package dto

import (
	"time"

	"github.com/noah-isme/care-ops-api/internal/models"
)

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// CreateCorrectiveActionRequest is the payload for raising a corrective action. The issuer comes from the access token.
type CreateCorrectiveActionRequest struct {
	EmployeeID              string   `json:"employeeId" validate:"required"`
	ViolationCategoryID     string   `json:"violationCategoryId" validate:"required"`
	ViolationDate           string   `json:"violationDate" validate:"required,datetime=2006-01-02"`
	ViolationTime           *string  `json:"violationTime" validate:"omitempty,datetime=15:04"`
	IncidentDescription     string   `json:"incidentDescription" validate:"required,max=10000"`
	DisciplineLevel         string   `json:"disciplineLevel" validate:"required,discipline_level"`
	HouseID                 *string  `json:"houseId"`
	MitigatingCircumstances *string  `json:"mitigatingCircumstances" validate:"omitempty,max=10000"`
	PointsOverride          *int     `json:"pointsOverride" validate:"omitempty,min=0"`
	AdjustmentReason        *string  `json:"adjustmentReason" validate:"omitempty,max=2000"`
	CorrectiveExpectations  []string `json:"correctiveExpectations" validate:"omitempty,dive,max=2000"`
	ConsequencesText        *string  `json:"consequencesText" validate:"omitempty,max=10000"`
	PipScheduled            bool     `json:"pipScheduled"`
	PipDate                 *string  `json:"pipDate" validate:"omitempty,datetime=2006-01-02"`
}

// UpdateCorrectiveActionRequest is a partial edit; absent fields are left unchanged.
type UpdateCorrectiveActionRequest struct {
	HouseID                 *string   `json:"houseId"`
	ViolationDate           *string   `json:"violationDate" validate:"omitempty,datetime=2006-01-02"`
	ViolationTime           *string   `json:"violationTime"`
	IncidentDescription     *string   `json:"incidentDescription" validate:"omitempty,max=10000"`
	MitigatingCircumstances *string   `json:"mitigatingCircumstances" validate:"omitempty,max=10000"`
	DisciplineLevel         *string   `json:"disciplineLevel" validate:"omitempty,discipline_level"`
	PointsOverride          *int      `json:"pointsOverride" validate:"omitempty,min=0"`
	AdjustmentReason        *string   `json:"adjustmentReason" validate:"omitempty,max=2000"`
	ClearPointsAdjustment   bool      `json:"clearPointsAdjustment"`
	CorrectiveExpectations  *[]string `json:"correctiveExpectations"`
	ConsequencesText        *string   `json:"consequencesText" validate:"omitempty,max=10000"`
	PipScheduled            *bool     `json:"pipScheduled"`
	PipDate                 *string   `json:"pipDate" validate:"omitempty,datetime=2006-01-02"`
}

// SignCorrectiveActionRequest is a staff signature. signatureData is base64 in JSON.
type SignCorrectiveActionRequest struct {
	SignerType    string `json:"signerType" validate:"required,signer_type"`
	SignatureData []byte `json:"signatureData" validate:"required,min=1"`
}

// EmployeeSignRequest is the subject employee's signature submitted through a signing link.
type EmployeeSignRequest struct {
	SignatureData    []byte  `json:"signatureData" validate:"required,min=1"`
	Dispute          bool    `json:"dispute"`
	EmployeeComments *string `json:"employeeComments" validate:"omitempty,max=10000"`
}

// VoidCorrectiveActionRequest carries the mandatory void reason.
type VoidCorrectiveActionRequest struct {
	Reason string `json:"reason" validate:"max=2000"`
}

// CorrectiveActionListQuery filters an employee's discipline history.
type CorrectiveActionListQuery struct {
	Status   []string `form:"status" validate:"omitempty,dive,action_status"`
	Page     int      `form:"page" validate:"omitempty,min=1"`
	PageSize int      `form:"page_size" validate:"omitempty,min=1,max=200"`
}

// CorrectiveActionResponse is the action snapshot plus its derived points.
type CorrectiveActionResponse struct {
	*models.CorrectiveAction
	EffectivePoints int `json:"effectivePoints"`
}

// NewCorrectiveActionResponse wraps an action with its effective points.
func NewCorrectiveActionResponse(action *models.CorrectiveAction) *CorrectiveActionResponse {
	return &CorrectiveActionResponse{CorrectiveAction: action, EffectivePoints: action.EffectivePoints()}
}

// DisciplinePointsResponse is an employee's cumulative score.
type DisciplinePointsResponse struct {
	EmployeeID  string    `json:"employeeId"`
	TotalPoints int       `json:"totalPoints"`
	ComputedAt  time.Time `json:"computedAt"`
}

// SigningLinkResponse is returned to the issuer to hand to the employee.
type SigningLinkResponse struct {
	ActionID  string    `json:"actionId"`
	Token     string    `json:"token"`
	Path      string    `json:"path"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// SigningActionView is what the subject employee sees through a signing link.
type SigningActionView struct {
	ActionID               string                    `json:"actionId"`
	EmployeeID             string                    `json:"employeeId"`
	Category               *models.ViolationCategory `json:"category"`
	ViolationDate          string                    `json:"violationDate"`
	ViolationTime          *string                   `json:"violationTime,omitempty"`
	IncidentDescription    string                    `json:"incidentDescription"`
	DisciplineLevel        models.DisciplineLevel    `json:"disciplineLevel"`
	EffectivePoints        int                       `json:"effectivePoints"`
	CorrectiveExpectations []string                  `json:"correctiveExpectations"`
	ConsequencesText       *string                   `json:"consequencesText,omitempty"`
	PipScheduled           bool                      `json:"pipScheduled"`
	PipDate                *string                   `json:"pipDate,omitempty"`
	Status                 models.ActionStatus       `json:"status"`
	SignedBy               []models.SignerType       `json:"signedBy"`
}
