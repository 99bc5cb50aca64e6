package utils

import (
	"math"
	"time"
)

// LocationFor resolves the timezone a schedule input should be interpreted
// in. Clients normally send the IANA name of the pickup zone; when absent we
// fall back to a fixed offset estimated from the pickup longitude, which is
// close enough for whole-hour scheduling. A proper reverse-geocode lookup is
// an external service and is not called here.
func LocationFor(tzName string, lng float64) *time.Location {
	if tzName != "" {
		if loc, err := time.LoadLocation(tzName); err == nil {
			return loc
		}
	}

	// 15 degrees of longitude per hour offset
	offsetHours := int(math.Round(lng / 15.0))
	if offsetHours < -12 {
		offsetHours = -12
	}
	if offsetHours > 14 {
		offsetHours = 14
	}
	return time.FixedZone("pickup", offsetHours*3600)
}

// ParseScheduledAt interprets a wall-clock schedule string in the pickup
// timezone and returns the UTC instant to persist. All timestamp columns are
// stored in UTC; conversion back to local time is a display concern.
func ParseScheduledAt(value, tzName string, lng float64) (time.Time, error) {
	loc := LocationFor(tzName, lng)

	// Accept full RFC3339 (already carries an offset) first.
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}

	t, err := time.ParseInLocation("2006-01-02T15:04", value, loc)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
