package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScheduledAtRFC3339(t *testing.T) {
	got, err := ParseScheduledAt("2025-06-15T14:30:00+03:00", "", 31.23)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2025, 6, 15, 11, 30, 0, 0, time.UTC), got)
	assert.Equal(t, time.UTC, got.Location())
}

func TestParseScheduledAtLocalWithZoneName(t *testing.T) {
	got, err := ParseScheduledAt("2025-06-15T14:30", "Africa/Cairo", 0)
	require.NoError(t, err)

	// Cairo is UTC+3 in June 2025
	assert.Equal(t, time.Date(2025, 6, 15, 11, 30, 0, 0, time.UTC), got)
}

func TestParseScheduledAtLongitudeFallback(t *testing.T) {
	// No zone name: 31.23E rounds to UTC+2
	got, err := ParseScheduledAt("2025-06-15T14:30", "", 31.23)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2025, 6, 15, 12, 30, 0, 0, time.UTC), got)
}

func TestParseScheduledAtUnknownZoneFallsBack(t *testing.T) {
	got, err := ParseScheduledAt("2025-06-15T14:30", "Not/AZone", 0)
	require.NoError(t, err)

	// Longitude 0 means the fallback zone is UTC itself
	assert.Equal(t, time.Date(2025, 6, 15, 14, 30, 0, 0, time.UTC), got)
}

func TestParseScheduledAtRejectsGarbage(t *testing.T) {
	_, err := ParseScheduledAt("next tuesday", "", 0)
	assert.Error(t, err)
}

func TestLocationForClampsExtremes(t *testing.T) {
	loc := LocationFor("", -179.9)
	_, offset := time.Date(2025, 1, 1, 0, 0, 0, 0, loc).Zone()
	assert.Equal(t, -12*3600, offset)

	loc = LocationFor("", 179.9)
	_, offset = time.Date(2025, 1, 1, 0, 0, 0, 0, loc).Zone()
	assert.LessOrEqual(t, offset, 14*3600)
}
