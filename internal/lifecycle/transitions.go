// Package lifecycle holds the pure decision logic of the ride state machine:
// which transitions are legal, the time-window policies, and the sweep
// evaluation. Nothing in this package touches the database or the clock; the
// caller supplies `now`, which keeps every rule unit-testable.
package lifecycle

import (
	"github.com/Abdayemco/xzity-dispatch-backend/internal/models"
)

// Action is a requested operation on a ride.
type Action string

const (
	ActionAccept   Action = "accept"
	ActionStart    Action = "start"
	ActionComplete Action = "complete"
	ActionCancel   Action = "cancel"
	ActionNoShow   Action = "no_show"
	ActionSweep    Action = "sweep"
)

// Transition is a single allowed edge in the ride state machine.
type Transition struct {
	From   string
	To     string
	Action Action
}

var transitionTable = []Transition{
	{From: models.RideStatusPending, To: models.RideStatusAccepted, Action: ActionAccept},
	{From: models.RideStatusScheduled, To: models.RideStatusAccepted, Action: ActionAccept},

	{From: models.RideStatusAccepted, To: models.RideStatusInProgress, Action: ActionStart},
	{From: models.RideStatusInProgress, To: models.RideStatusCompleted, Action: ActionComplete},

	{From: models.RideStatusPending, To: models.RideStatusCancelled, Action: ActionCancel},
	{From: models.RideStatusScheduled, To: models.RideStatusCancelled, Action: ActionCancel},
	{From: models.RideStatusAccepted, To: models.RideStatusCancelled, Action: ActionCancel},

	{From: models.RideStatusScheduled, To: models.RideStatusNoShow, Action: ActionNoShow},

	// Forced terminal edges applied by the sweeper.
	{From: models.RideStatusPending, To: models.RideStatusCancelled, Action: ActionSweep},
	{From: models.RideStatusScheduled, To: models.RideStatusCancelled, Action: ActionSweep},
	{From: models.RideStatusAccepted, To: models.RideStatusCancelled, Action: ActionSweep},
	{From: models.RideStatusInProgress, To: models.RideStatusCancelled, Action: ActionSweep},
}

// Next returns the target status for a state+action pair, or false when the
// edge does not exist in the table. Terminal states have no outgoing edges.
func Next(from string, action Action) (string, bool) {
	for _, tr := range transitionTable {
		if tr.From == from && tr.Action == action {
			return tr.To, true
		}
	}
	return "", false
}

// Allowed reports whether the state machine permits the action from the
// given status.
func Allowed(from string, action Action) bool {
	_, ok := Next(from, action)
	return ok
}

// ClaimableStatuses are the statuses the Assignment Guard may claim from.
func ClaimableStatuses() []string {
	return []string{models.RideStatusPending, models.RideStatusScheduled}
}

// CancellableStatuses are the statuses a customer cancel may leave from,
// derived from the transition table.
func CancellableStatuses() []string {
	var statuses []string
	for _, tr := range transitionTable {
		if tr.Action == ActionCancel {
			statuses = append(statuses, tr.From)
		}
	}
	return statuses
}
