package models

import (
	"time"

	"github.com/lib/pq"
)

// DisciplineLevel is the organisational step taken by a corrective action.
type DisciplineLevel string

const (
	DisciplineCoaching       DisciplineLevel = "COACHING"
	DisciplineVerbalWarning  DisciplineLevel = "VERBAL_WARNING"
	DisciplineWrittenWarning DisciplineLevel = "WRITTEN_WARNING"
	DisciplineFinalWarning   DisciplineLevel = "FINAL_WARNING"
	DisciplinePIP            DisciplineLevel = "PIP"
	DisciplineTermination    DisciplineLevel = "TERMINATION"
)

// Valid reports whether the level is known.
func (d DisciplineLevel) Valid() bool {
	switch d {
	case DisciplineCoaching, DisciplineVerbalWarning, DisciplineWrittenWarning,
		DisciplineFinalWarning, DisciplinePIP, DisciplineTermination:
		return true
	default:
		return false
	}
}

// ActionStatus captures the lifecycle state of a corrective action.
type ActionStatus string

const (
	ActionStatusPendingSignature ActionStatus = "PENDING_SIGNATURE"
	ActionStatusAcknowledged     ActionStatus = "ACKNOWLEDGED"
	ActionStatusDisputed         ActionStatus = "DISPUTED"
	ActionStatusVoided           ActionStatus = "VOIDED"
)

// SignerType identifies the party a signature is recorded for.
type SignerType string

const (
	SignerEmployee   SignerType = "EMPLOYEE"
	SignerSupervisor SignerType = "SUPERVISOR"
	SignerWitness    SignerType = "WITNESS"
	SignerHR         SignerType = "HR"
)

// Valid reports whether the signer type is known.
func (s SignerType) Valid() bool {
	switch s {
	case SignerEmployee, SignerSupervisor, SignerWitness, SignerHR:
		return true
	default:
		return false
	}
}

// CorrectiveAction is a formal disciplinary record raised against an employee.
type CorrectiveAction struct {
	ID                      string          `db:"id" json:"id"`
	EmployeeID              string          `db:"employee_id" json:"employeeId"`
	IssuerID                string          `db:"issuer_id" json:"issuerId"`
	HouseID                 *string         `db:"house_id" json:"houseId,omitempty"`
	ViolationCategoryID     string          `db:"violation_category_id" json:"violationCategoryId"`
	ViolationDate           time.Time       `db:"violation_date" json:"violationDate"`
	ViolationTime           *string         `db:"violation_time" json:"violationTime,omitempty"`
	IncidentDescription     string          `db:"incident_description" json:"incidentDescription"`
	MitigatingCircumstances *string         `db:"mitigating_circumstances" json:"mitigatingCircumstances,omitempty"`
	DisciplineLevel         DisciplineLevel `db:"discipline_level" json:"disciplineLevel"`
	PointsAssigned          int             `db:"points_assigned" json:"pointsAssigned"`
	PointsAdjusted          *int            `db:"points_adjusted" json:"pointsAdjusted,omitempty"`
	AdjustmentReason        *string         `db:"adjustment_reason" json:"adjustmentReason,omitempty"`
	CorrectiveExpectations  pq.StringArray  `db:"corrective_expectations" json:"correctiveExpectations"`
	ConsequencesText        *string         `db:"consequences_text" json:"consequencesText,omitempty"`
	PipScheduled            bool            `db:"pip_scheduled" json:"pipScheduled"`
	PipDate                 *time.Time      `db:"pip_date" json:"pipDate,omitempty"`
	EmployeeComments        *string         `db:"employee_comments" json:"employeeComments,omitempty"`
	Status                  ActionStatus    `db:"status" json:"status"`
	VoidReason              *string         `db:"void_reason" json:"voidReason,omitempty"`
	VoidedByID              *string         `db:"voided_by_id" json:"voidedById,omitempty"`
	VoidedAt                *time.Time      `db:"voided_at" json:"voidedAt,omitempty"`
	CreatedAt               time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt               time.Time       `db:"updated_at" json:"updatedAt"`

	Signatures []Signature `db:"-" json:"signatures"`
}

// EffectivePoints is the value counted toward the employee's cumulative score.
func (a *CorrectiveAction) EffectivePoints() int {
	if a == nil || a.Status == ActionStatusVoided {
		return 0
	}
	if a.PointsAdjusted != nil {
		return *a.PointsAdjusted
	}
	return a.PointsAssigned
}

// Signature returns the recorded signature for the signer type, if any.
func (a *CorrectiveAction) Signature(signerType SignerType) (*Signature, bool) {
	for i := range a.Signatures {
		if a.Signatures[i].SignerType == signerType {
			return &a.Signatures[i], true
		}
	}
	return nil, false
}

// Locked reports whether the editable fields are frozen.
func (a *CorrectiveAction) Locked() bool {
	if a.Status != ActionStatusPendingSignature {
		return true
	}
	_, signed := a.Signature(SignerEmployee)
	return signed
}

// Clone returns a deep copy so callers can mutate without aliasing stored state.
func (a *CorrectiveAction) Clone() *CorrectiveAction {
	if a == nil {
		return nil
	}
	c := *a
	c.HouseID = cloneString(a.HouseID)
	c.ViolationTime = cloneString(a.ViolationTime)
	c.MitigatingCircumstances = cloneString(a.MitigatingCircumstances)
	c.AdjustmentReason = cloneString(a.AdjustmentReason)
	c.ConsequencesText = cloneString(a.ConsequencesText)
	c.EmployeeComments = cloneString(a.EmployeeComments)
	c.VoidReason = cloneString(a.VoidReason)
	c.VoidedByID = cloneString(a.VoidedByID)
	if a.PointsAdjusted != nil {
		v := *a.PointsAdjusted
		c.PointsAdjusted = &v
	}
	if a.PipDate != nil {
		v := *a.PipDate
		c.PipDate = &v
	}
	if a.VoidedAt != nil {
		v := *a.VoidedAt
		c.VoidedAt = &v
	}
	if a.CorrectiveExpectations != nil {
		c.CorrectiveExpectations = append(pq.StringArray{}, a.CorrectiveExpectations...)
	}
	if a.Signatures != nil {
		c.Signatures = make([]Signature, len(a.Signatures))
		for i, sig := range a.Signatures {
			sig.SignatureData = append([]byte(nil), sig.SignatureData...)
			c.Signatures[i] = sig
		}
	}
	return &c
}

// Signature is a recorded acknowledgment by one party for one action.
type Signature struct {
	ID            string     `db:"id" json:"id"`
	ActionID      string     `db:"action_id" json:"actionId"`
	SignerType    SignerType `db:"signer_type" json:"signerType"`
	SignerID      string     `db:"signer_id" json:"signerId"`
	SignatureData []byte     `db:"signature_data" json:"signatureData"`
	SignedAt      time.Time  `db:"signed_at" json:"signedAt"`
}

// ActionStatusLog records one status transition of a corrective action.
type ActionStatusLog struct {
	ID        string        `db:"id" json:"id"`
	ActionID  string        `db:"action_id" json:"actionId"`
	OldStatus *ActionStatus `db:"old_status" json:"oldStatus,omitempty"`
	NewStatus ActionStatus  `db:"new_status" json:"newStatus"`
	Note      string        `db:"note" json:"note"`
	ChangedBy string        `db:"changed_by" json:"changedBy"`
	CreatedAt time.Time     `db:"created_at" json:"createdAt"`
}

// CorrectiveActionFilter constrains employee history listings.
type CorrectiveActionFilter struct {
	EmployeeID string
	Status     []ActionStatus
	Page       int
	PageSize   int
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
