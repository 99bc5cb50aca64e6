package lifecycle

import (
	"testing"
	"time"

	"github.com/Abdayemco/xzity-dispatch-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptrTime(t time.Time) *time.Time { return &t }
func ptrUint(u uint) *uint           { return &u }

func TestSweepCancelsStuckAcceptedRide(t *testing.T) {
	now := base
	rides := []RideSnapshot{
		{
			ID:          1,
			Status:      models.RideStatusAccepted,
			ServiceKind: models.ServiceKindCar,
			DriverID:    ptrUint(7),
			RequestedAt: now.Add(-20 * time.Minute),
			AcceptedAt:  ptrTime(now.Add(-16 * time.Minute)),
		},
	}

	forced := Sweep(now, rides)
	require.Len(t, forced, 1)
	assert.Equal(t, uint(1), forced[0].RideID)
	assert.Equal(t, models.RideStatusAccepted, forced[0].From)
	assert.Equal(t, models.RideStatusCancelled, forced[0].To)
	assert.Equal(t, ReasonStuckAccepted, forced[0].Reason)
	assert.Equal(t, uint(7), *forced[0].DriverID)
}

func TestSweepLeavesFreshAcceptedRideAlone(t *testing.T) {
	now := base
	rides := []RideSnapshot{
		{
			ID:          2,
			Status:      models.RideStatusAccepted,
			ServiceKind: models.ServiceKindCar,
			RequestedAt: now.Add(-20 * time.Minute),
			AcceptedAt:  ptrTime(now.Add(-10 * time.Minute)),
		},
	}

	assert.Empty(t, Sweep(now, rides))
}

func TestSweepCancelsStuckInProgressRide(t *testing.T) {
	now := base
	rides := []RideSnapshot{
		{
			ID:          3,
			Status:      models.RideStatusInProgress,
			ServiceKind: models.ServiceKindCleaning,
			DriverID:    ptrUint(9),
			RequestedAt: now.Add(-1 * time.Hour),
			AcceptedAt:  ptrTime(now.Add(-40 * time.Minute)),
			StartedAt:   ptrTime(now.Add(-16 * time.Minute)),
		},
	}

	forced := Sweep(now, rides)
	require.Len(t, forced, 1)
	assert.Equal(t, ReasonStuckInProgress, forced[0].Reason)
}

func TestSweepEnforcesCategoryDeadline(t *testing.T) {
	now := base

	// Transportation budget is 2h; a pending car ride requested 3h ago is due.
	overdueCar := RideSnapshot{
		ID:          4,
		Status:      models.RideStatusPending,
		ServiceKind: models.ServiceKindCar,
		RequestedAt: now.Add(-3 * time.Hour),
	}
	// Cleaning gets 48h, so 3h old is nowhere near due.
	freshCleaning := RideSnapshot{
		ID:          5,
		Status:      models.RideStatusPending,
		ServiceKind: models.ServiceKindCleaning,
		RequestedAt: now.Add(-3 * time.Hour),
	}
	// Scheduled rides measure from scheduledAt, not requestedAt.
	scheduledAhead := RideSnapshot{
		ID:          6,
		Status:      models.RideStatusScheduled,
		ServiceKind: models.ServiceKindCar,
		RequestedAt: now.Add(-3 * time.Hour),
		ScheduledAt: ptrTime(now.Add(1 * time.Hour)),
	}

	forced := Sweep(now, []RideSnapshot{overdueCar, freshCleaning, scheduledAhead})
	require.Len(t, forced, 1)
	assert.Equal(t, uint(4), forced[0].RideID)
	assert.Equal(t, ReasonDeadlineExpired, forced[0].Reason)
}

func TestSweepIsIdempotentOnTerminalRides(t *testing.T) {
	now := base
	rides := []RideSnapshot{
		{
			ID:          7,
			Status:      models.RideStatusCancelled,
			ServiceKind: models.ServiceKindCar,
			RequestedAt: now.Add(-10 * time.Hour),
			AcceptedAt:  ptrTime(now.Add(-9 * time.Hour)),
		},
		{
			ID:          8,
			Status:      models.RideStatusCompleted,
			ServiceKind: models.ServiceKindCar,
			RequestedAt: now.Add(-10 * time.Hour),
		},
	}

	// A second sweep over already-terminal rows produces no further work.
	assert.Empty(t, Sweep(now, rides))
}
