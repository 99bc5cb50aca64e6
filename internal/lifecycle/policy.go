package lifecycle

import (
	"time"

	"github.com/Abdayemco/xzity-dispatch-backend/internal/models"
)

// Time-window policy constants. These are business deadlines evaluated
// against a caller-supplied clock, not network timeouts.
const (
	// ScheduledLeadWindow is how long before scheduledAt a scheduled ride
	// becomes visible and claimable to drivers.
	ScheduledLeadWindow = 30 * time.Minute

	// ScheduledLagWindow bounds how long past scheduledAt a ride keeps
	// showing up in driver and admin scheduled listings.
	ScheduledLagWindow = 60 * time.Minute

	// NoShowGrace is the minimum elapsed time after a scheduled pickup
	// before a driver may record a no-show.
	NoShowGrace = 10 * time.Minute

	// StuckRideAge is how long an accepted ride may sit unstarted (or an
	// in-progress ride unfinished) before the sweeper cancels it.
	StuckRideAge = 15 * time.Minute

	// ActiveJobCooldown blocks a driver from claiming a new ride while
	// another of their jobs was accepted or started within this window.
	ActiveJobCooldown = 15 * time.Minute
)

// Per-category maximum time a ride may remain open before auto-cancel.
const defaultMaxOpen = 48 * time.Hour

var categoryMaxOpen = map[string]time.Duration{
	models.CategoryTransportation: 2 * time.Hour,
	models.CategoryCleaning:       48 * time.Hour,
	models.CategoryPropertyCare:   72 * time.Hour,
}

// MaxOpenFor returns the auto-cancel budget for a service kind.
func MaxOpenFor(serviceKind string) time.Duration {
	if d, ok := categoryMaxOpen[models.CategoryFor(serviceKind)]; ok {
		return d
	}
	return defaultMaxOpen
}

// OpenDeadline computes the instant at which an open ride is force-cancelled.
// The reference time is scheduledAt when set, otherwise requestedAt.
func OpenDeadline(serviceKind string, requestedAt time.Time, scheduledAt *time.Time) time.Time {
	ref := requestedAt
	if scheduledAt != nil {
		ref = *scheduledAt
	}
	return ref.Add(MaxOpenFor(serviceKind))
}

// InVisibilityWindow reports whether a scheduled ride should appear in
// driver job listings: now within [scheduledAt-30min, scheduledAt+60min].
func InVisibilityWindow(now, scheduledAt time.Time) bool {
	return !now.Before(scheduledAt.Add(-ScheduledLeadWindow)) &&
		!now.After(scheduledAt.Add(ScheduledLagWindow))
}

// Claimable reports whether a ride in pending/scheduled may be claimed now.
// Pending rides are always claimable; scheduled rides only once the lead
// window has opened.
func Claimable(now time.Time, scheduledAt *time.Time) bool {
	if scheduledAt == nil {
		return true
	}
	return !now.Before(scheduledAt.Add(-ScheduledLeadWindow))
}

// NoShowAllowed reports whether the grace period after a scheduled pickup
// has fully elapsed.
func NoShowAllowed(now, scheduledAt time.Time) bool {
	return !now.Before(scheduledAt.Add(NoShowGrace))
}

// StuckSince returns the cutoff: rides accepted/started before this instant
// are considered stuck.
func StuckSince(now time.Time) time.Time {
	return now.Add(-StuckRideAge)
}
