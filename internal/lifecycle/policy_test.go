package lifecycle

import (
	"testing"
	"time"

	"github.com/Abdayemco/xzity-dispatch-backend/internal/models"
	"github.com/stretchr/testify/assert"
)

var base = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func TestInVisibilityWindow(t *testing.T) {
	tests := []struct {
		name        string
		scheduledAt time.Time
		want        bool
	}{
		{"45min out is hidden", base.Add(45 * time.Minute), false},
		{"20min out is visible", base.Add(20 * time.Minute), true},
		{"exactly 30min out is visible", base.Add(30 * time.Minute), true},
		{"30min past is visible", base.Add(-30 * time.Minute), true},
		{"exactly 60min past is visible", base.Add(-60 * time.Minute), true},
		{"61min past is hidden", base.Add(-61 * time.Minute), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InVisibilityWindow(base, tt.scheduledAt))
		})
	}
}

func TestClaimable(t *testing.T) {
	in45 := base.Add(45 * time.Minute)
	in20 := base.Add(20 * time.Minute)

	assert.True(t, Claimable(base, nil), "pending rides are always claimable")
	assert.False(t, Claimable(base, &in45))
	assert.True(t, Claimable(base, &in20))
}

func TestNoShowGracePeriod(t *testing.T) {
	scheduled := base.Add(-9 * time.Minute)
	assert.False(t, NoShowAllowed(base, scheduled), "9min after pickup is inside grace")

	scheduled = base.Add(-10 * time.Minute)
	assert.True(t, NoShowAllowed(base, scheduled))

	scheduled = base.Add(-11 * time.Minute)
	assert.True(t, NoShowAllowed(base, scheduled))
}

func TestMaxOpenFor(t *testing.T) {
	assert.Equal(t, 2*time.Hour, MaxOpenFor(models.ServiceKindCar))
	assert.Equal(t, 2*time.Hour, MaxOpenFor(models.ServiceKindDelivery))
	assert.Equal(t, 48*time.Hour, MaxOpenFor(models.ServiceKindCleaning))
	assert.Equal(t, 72*time.Hour, MaxOpenFor(models.ServiceKindGardening))
	assert.Equal(t, 48*time.Hour, MaxOpenFor(models.ServiceKindBeauty))
	assert.Equal(t, 48*time.Hour, MaxOpenFor("something_unmapped"))
}

func TestOpenDeadlinePrefersScheduledAt(t *testing.T) {
	requested := base
	scheduled := base.Add(6 * time.Hour)

	got := OpenDeadline(models.ServiceKindCar, requested, &scheduled)
	assert.Equal(t, scheduled.Add(2*time.Hour), got)

	got = OpenDeadline(models.ServiceKindCar, requested, nil)
	assert.Equal(t, requested.Add(2*time.Hour), got)
}
