package lifecycle

import (
	"testing"

	"github.com/Abdayemco/xzity-dispatch-backend/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestNextAllowedEdges(t *testing.T) {
	tests := []struct {
		name   string
		from   string
		action Action
		want   string
	}{
		{"accept pending", models.RideStatusPending, ActionAccept, models.RideStatusAccepted},
		{"accept scheduled", models.RideStatusScheduled, ActionAccept, models.RideStatusAccepted},
		{"start accepted", models.RideStatusAccepted, ActionStart, models.RideStatusInProgress},
		{"complete in progress", models.RideStatusInProgress, ActionComplete, models.RideStatusCompleted},
		{"cancel pending", models.RideStatusPending, ActionCancel, models.RideStatusCancelled},
		{"cancel scheduled", models.RideStatusScheduled, ActionCancel, models.RideStatusCancelled},
		{"cancel accepted", models.RideStatusAccepted, ActionCancel, models.RideStatusCancelled},
		{"no-show scheduled", models.RideStatusScheduled, ActionNoShow, models.RideStatusNoShow},
		{"sweep accepted", models.RideStatusAccepted, ActionSweep, models.RideStatusCancelled},
		{"sweep in progress", models.RideStatusInProgress, ActionSweep, models.RideStatusCancelled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Next(tt.from, tt.action)
			assert.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTerminalStatesHaveNoOutgoingEdges(t *testing.T) {
	terminals := []string{
		models.RideStatusCompleted,
		models.RideStatusCancelled,
		models.RideStatusNoShow,
	}
	actions := []Action{ActionAccept, ActionStart, ActionComplete, ActionCancel, ActionNoShow, ActionSweep}

	for _, status := range terminals {
		for _, action := range actions {
			_, ok := Next(status, action)
			assert.False(t, ok, "expected %s/%s to be rejected", status, action)
		}
	}
}

func TestRejectedEdges(t *testing.T) {
	tests := []struct {
		name   string
		from   string
		action Action
	}{
		{"start pending", models.RideStatusPending, ActionStart},
		{"start scheduled", models.RideStatusScheduled, ActionStart},
		{"complete accepted", models.RideStatusAccepted, ActionComplete},
		{"cancel in progress by caller", models.RideStatusInProgress, ActionCancel},
		{"no-show pending", models.RideStatusPending, ActionNoShow},
		{"no-show accepted", models.RideStatusAccepted, ActionNoShow},
		{"accept accepted", models.RideStatusAccepted, ActionAccept},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, Allowed(tt.from, tt.action))
		})
	}
}

func TestCancellableStatusesDeriveFromTable(t *testing.T) {
	statuses := CancellableStatuses()

	assert.ElementsMatch(t, []string{
		models.RideStatusPending,
		models.RideStatusScheduled,
		models.RideStatusAccepted,
	}, statuses)
}
