package service

import (
	"fmt"

	"github.com/noah-isme/care-ops-api/internal/models"
	appErrors "github.com/noah-isme/care-ops-api/pkg/errors"
)

// ActionEvent is an input to the corrective action state machine.
type ActionEvent string

const (
	EventEmployeeAcknowledged ActionEvent = "EMPLOYEE_ACKNOWLEDGED"
	EventEmployeeDisputed     ActionEvent = "EMPLOYEE_DISPUTED"
	EventVoid                 ActionEvent = "VOID"
)

type transitionKey struct {
	from  models.ActionStatus
	event ActionEvent
}

// actionTransitions is the complete set of legal moves. VOIDED has no outgoing edges.
var actionTransitions = map[transitionKey]models.ActionStatus{
	{models.ActionStatusPendingSignature, EventEmployeeAcknowledged}: models.ActionStatusAcknowledged,
	{models.ActionStatusPendingSignature, EventEmployeeDisputed}:     models.ActionStatusDisputed,
	{models.ActionStatusPendingSignature, EventVoid}:                 models.ActionStatusVoided,
	{models.ActionStatusAcknowledged, EventVoid}:                     models.ActionStatusVoided,
	{models.ActionStatusDisputed, EventVoid}:                         models.ActionStatusVoided,
}

// NextActionStatus returns the status reached by applying event to current.
func NextActionStatus(current models.ActionStatus, event ActionEvent) (models.ActionStatus, error) {
	next, ok := actionTransitions[transitionKey{from: current, event: event}]
	if !ok {
		if current == models.ActionStatusVoided {
			return current, appErrors.Clone(appErrors.ErrConflict, "corrective action is voided")
		}
		return current, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("transition %s not allowed from %s", event, current))
	}
	return next, nil
}

func employeeSignEvent(dispute bool) ActionEvent {
	if dispute {
		return EventEmployeeDisputed
	}
	return EventEmployeeAcknowledged
}
