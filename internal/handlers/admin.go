package handlers

import (
	"strconv"
	"time"

	"github.com/Abdayemco/xzity-dispatch-backend/internal/lifecycle"
	"github.com/Abdayemco/xzity-dispatch-backend/internal/models"
	"github.com/Abdayemco/xzity-dispatch-backend/internal/services"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// rideSortColumns is the allow-list for the admin listing's sortBy parameter.
// Sort keys are interpolated into ORDER BY, so anything outside this map is
// rejected, never passed through.
var rideSortColumns = map[string]string{
	"id":          "id",
	"status":      "status",
	"requestedAt": "requested_at",
	"scheduledAt": "scheduled_at",
	"serviceKind": "service_kind",
}

// AdminListRides lists rides with pagination and constrained sorting.
func AdminListRides(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sortBy := c.DefaultQuery("sortBy", "requestedAt")
		column, ok := rideSortColumns[sortBy]
		if !ok {
			c.JSON(400, gin.H{"error": "Unsupported sort field"})
			return
		}

		order := c.DefaultQuery("order", "desc")
		if order != "asc" && order != "desc" {
			c.JSON(400, gin.H{"error": "Order must be asc or desc"})
			return
		}

		limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
		if err != nil || limit < 1 || limit > 200 {
			c.JSON(400, gin.H{"error": "Limit must be between 1 and 200"})
			return
		}
		offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
		if err != nil || offset < 0 {
			c.JSON(400, gin.H{"error": "Offset must be non-negative"})
			return
		}

		query := db.Model(&models.Ride{}).Preload("Customer").Preload("Driver")

		if status := c.Query("status"); status != "" {
			query = query.Where("status = ?", status)
			// The scheduled view only reaches as far as the visibility
			// window does; older scheduled rows are sweeper territory.
			if status == models.RideStatusScheduled {
				query = query.Where("scheduled_at >= ?",
					time.Now().UTC().Add(-lifecycle.ScheduledLagWindow))
			}
		}

		var total int64
		if err := query.Count(&total).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to count rides"})
			return
		}

		var rides []models.Ride
		if err := query.Order(column + " " + order).
			Limit(limit).
			Offset(offset).
			Find(&rides).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to fetch rides"})
			return
		}

		c.JSON(200, gin.H{
			"rides":  rides,
			"total":  total,
			"limit":  limit,
			"offset": offset,
		})
	}
}

// AdminDeleteRide hard-deletes a ride and its chat. Normal operation never
// removes rows; this exists for admin cleanup only.
func AdminDeleteRide(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		rideID := parseIDParam(c, "rideId")
		if rideID == 0 {
			return
		}

		var ride models.Ride
		if err := db.Unscoped().First(&ride, rideID).Error; err != nil {
			c.JSON(404, gin.H{"error": "Ride not found"})
			return
		}

		driverID := ride.DriverID
		err := db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Unscoped().Where("ride_id = ?", rideID).Delete(&models.ChatMessage{}).Error; err != nil {
				return err
			}
			if err := tx.Unscoped().Delete(&models.Ride{}, rideID).Error; err != nil {
				return err
			}
			if driverID != nil {
				return services.ReleaseDriverIfIdle(tx, *driverID)
			}
			return nil
		})
		if err != nil {
			c.JSON(500, gin.H{"error": "Failed to delete ride"})
			return
		}

		c.JSON(200, gin.H{"message": "Ride deleted"})
	}
}

// AdminListDrivers lists drivers joined with their availability records.
func AdminListDrivers(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var drivers []models.User
		if err := db.Where("role = ?", string(models.RoleDriver)).Find(&drivers).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to fetch drivers"})
			return
		}

		statuses := make(map[uint]models.DriverStatus)
		var rows []models.DriverStatus
		if err := db.Find(&rows).Error; err == nil {
			for _, row := range rows {
				statuses[row.DriverID] = row
			}
		}

		out := make([]gin.H, 0, len(drivers))
		for _, d := range drivers {
			entry := gin.H{
				"id":          d.ID,
				"username":    d.Username,
				"email":       d.Email,
				"phoneNumber": d.PhoneNumber,
				"vehicleType": d.VehicleType,
				"carPlate":    d.CarPlate,
				"hasDocument": d.DocumentURL != "",
			}
			if s, ok := statuses[d.ID]; ok {
				entry["isOnline"] = s.IsOnline
				entry["isBusy"] = s.IsBusy
				entry["lastSeen"] = s.LastSeen
			}
			out = append(out, entry)
		}

		c.JSON(200, gin.H{"drivers": out})
	}
}

// AdminTriggerSweep runs both sweep passes immediately instead of waiting
// for the tickers.
func AdminTriggerSweep(sweeper *services.Sweeper) gin.HandlerFunc {
	return func(c *gin.Context) {
		now := time.Now().UTC()

		stuck, err := sweeper.SweepStuck(now)
		if err != nil {
			c.JSON(500, gin.H{"error": "Stuck sweep failed: " + err.Error()})
			return
		}
		expired, err := sweeper.SweepDeadlines(now)
		if err != nil {
			c.JSON(500, gin.H{"error": "Deadline sweep failed: " + err.Error()})
			return
		}

		c.JSON(200, gin.H{
			"message":          "Sweep complete",
			"stuckCancelled":   stuck,
			"expiredCancelled": expired,
		})
	}
}
