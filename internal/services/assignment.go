package services

import (
	"errors"
	"time"

	"github.com/Abdayemco/xzity-dispatch-backend/internal/lifecycle"
	"github.com/Abdayemco/xzity-dispatch-backend/internal/models"
	"gorm.io/gorm"
)

// Claim errors surfaced verbatim to callers.
var (
	ErrRideConflict    = errors.New("Ride already assigned or not available.")
	ErrDriverHasActive = errors.New("You already have an active or recent job")
)

// ClaimRide is the assignment guard: it binds exactly one driver to a ride.
// The claim is a single conditional UPDATE whose WHERE clause re-checks
// status and ownership, with the affected-row count as the success signal;
// under concurrent claims the row lock guarantees at most one winner. The
// driver's busy flag commits in the same transaction, so a crash cannot
// leave an assigned ride with an available driver.
func ClaimRide(db *gorm.DB, rideID, driverID uint, now time.Time) (*models.Ride, error) {
	var claimed models.Ride

	err := db.Transaction(func(tx *gorm.DB) error {
		// A driver holding a job accepted or started within the cooldown
		// window may not take a second one.
		cutoff := now.Add(-lifecycle.ActiveJobCooldown)
		var recent int64
		if err := tx.Model(&models.Ride{}).
			Where("driver_id = ? AND ((status = ? AND accepted_at > ?) OR (status = ? AND started_at > ?))",
				driverID,
				models.RideStatusAccepted, cutoff,
				models.RideStatusInProgress, cutoff).
			Count(&recent).Error; err != nil {
			return err
		}
		if recent > 0 {
			return ErrDriverHasActive
		}

		// The claim itself. Scheduled rides only unlock once the lead
		// window has opened; folding that into the WHERE keeps the window
		// check and the race check in one atomic statement.
		res := tx.Model(&models.Ride{}).
			Where("id = ? AND status IN ? AND driver_id IS NULL", rideID, lifecycle.ClaimableStatuses()).
			Where("scheduled_at IS NULL OR scheduled_at <= ?", now.Add(lifecycle.ScheduledLeadWindow)).
			Updates(map[string]interface{}{
				"status":      models.RideStatusAccepted,
				"driver_id":   driverID,
				"accepted_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrRideConflict
		}

		if err := tx.Model(&models.DriverStatus{}).
			Where("driver_id = ?", driverID).
			Update("is_busy", true).Error; err != nil {
			return err
		}

		return tx.Preload("Customer").First(&claimed, rideID).Error
	})
	if err != nil {
		return nil, err
	}

	return &claimed, nil
}

// ReleaseDriverIfIdle drops the busy flag unless the driver still owns
// another active ride. Used by completion, cancellation, and the sweeper.
func ReleaseDriverIfIdle(tx *gorm.DB, driverID uint) error {
	var active int64
	if err := tx.Model(&models.Ride{}).
		Where("driver_id = ? AND status IN ?", driverID,
			[]string{models.RideStatusAccepted, models.RideStatusInProgress}).
		Count(&active).Error; err != nil {
		return err
	}
	if active > 0 {
		return nil
	}

	return tx.Model(&models.DriverStatus{}).
		Where("driver_id = ?", driverID).
		Update("is_busy", false).Error
}
