package lifecycle

import (
	"time"

	"github.com/Abdayemco/xzity-dispatch-backend/internal/models"
)

// SweepReason explains why the sweeper forced a transition.
type SweepReason string

const (
	ReasonStuckAccepted   SweepReason = "stuck_accepted"
	ReasonStuckInProgress SweepReason = "stuck_in_progress"
	ReasonDeadlineExpired SweepReason = "deadline_expired"
)

// RideSnapshot is the read-only view of a ride the sweep decision needs.
type RideSnapshot struct {
	ID          uint
	Status      string
	ServiceKind string
	CustomerID  uint
	DriverID    *uint
	RequestedAt time.Time
	ScheduledAt *time.Time
	AcceptedAt  *time.Time
	StartedAt   *time.Time
}

// ForcedTransition is one decision produced by Sweep. The applier must
// re-check From in its WHERE clause so a concurrent normal transition wins.
type ForcedTransition struct {
	RideID     uint
	From       string
	To         string
	Reason     SweepReason
	CustomerID uint
	DriverID   *uint
}

// Sweep evaluates every open ride against the stuck-ride and per-category
// deadline policies and returns the forced transitions due at `now`.
// Rides already in a terminal state are never re-emitted, which is what
// makes consecutive runs idempotent.
func Sweep(now time.Time, rides []RideSnapshot) []ForcedTransition {
	var forced []ForcedTransition
	cutoff := StuckSince(now)

	for _, r := range rides {
		if models.IsTerminalStatus(r.Status) {
			continue
		}

		switch r.Status {
		case models.RideStatusAccepted:
			if r.AcceptedAt != nil && r.AcceptedAt.Before(cutoff) {
				forced = append(forced, ForcedTransition{
					RideID:     r.ID,
					From:       r.Status,
					To:         models.RideStatusCancelled,
					Reason:     ReasonStuckAccepted,
					CustomerID: r.CustomerID,
					DriverID:   r.DriverID,
				})
				continue
			}
		case models.RideStatusInProgress:
			if r.StartedAt != nil && r.StartedAt.Before(cutoff) {
				forced = append(forced, ForcedTransition{
					RideID:     r.ID,
					From:       r.Status,
					To:         models.RideStatusCancelled,
					Reason:     ReasonStuckInProgress,
					CustomerID: r.CustomerID,
					DriverID:   r.DriverID,
				})
				continue
			}
		}

		deadline := OpenDeadline(r.ServiceKind, r.RequestedAt, r.ScheduledAt)
		if !now.Before(deadline) {
			forced = append(forced, ForcedTransition{
				RideID:     r.ID,
				From:       r.Status,
				To:         models.RideStatusCancelled,
				Reason:     ReasonDeadlineExpired,
				CustomerID: r.CustomerID,
				DriverID:   r.DriverID,
			})
		}
	}

	return forced
}
