package handlers

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/Abdayemco/xzity-dispatch-backend/internal/lifecycle"
	"github.com/Abdayemco/xzity-dispatch-backend/internal/models"
	"github.com/Abdayemco/xzity-dispatch-backend/internal/services"
	"github.com/Abdayemco/xzity-dispatch-backend/pkg/utils"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CreateRideInput struct {
	ServiceKind string  `json:"serviceKind" binding:"required"`
	Description string  `json:"description"`
	OriginLat   float64 `json:"originLat" binding:"required"`
	OriginLng   float64 `json:"originLng" binding:"required"`
	DestLat     float64 `json:"destLat" binding:"required"`
	DestLng     float64 `json:"destLng" binding:"required"`
	DestName    string  `json:"destName"`

	// ScheduledAt is optional. An RFC3339 value is taken as-is; a bare
	// "2006-01-02T15:04" is interpreted in Timezone, or failing that in the
	// zone implied by the origin longitude.
	ScheduledAt string `json:"scheduledAt"`
	Timezone    string `json:"timezone"`
}

type RateRideInput struct {
	Rating   int    `json:"rating" binding:"required,min=1,max=5"`
	Feedback string `json:"feedback"`
}

// isParty reports whether the user may read or chat on the ride: the
// customer, the assigned driver, or any admin.
func isParty(db *gorm.DB, rideID, userID uint) bool {
	var ride models.Ride
	if err := db.Select("customer_id", "driver_id").First(&ride, rideID).Error; err != nil {
		return false
	}
	if ride.CustomerID == userID {
		return true
	}
	if ride.DriverID != nil && *ride.DriverID == userID {
		return true
	}

	var count int64
	db.Model(&models.User{}).
		Where("id = ? AND role = ?", userID, string(models.RoleAdmin)).
		Count(&count)
	return count > 0
}

// CreateRide creates a ride request. With no scheduledAt the ride is born
// pending and immediately visible to drivers; with one it is born scheduled
// and stays hidden until 30 minutes before its time.
func CreateRide(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		customerID := c.GetUint("userId")

		var input CreateRideInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		if !models.IsValidServiceKind(input.ServiceKind) {
			c.JSON(400, gin.H{"error": "Unrecognized service kind"})
			return
		}
		if !utils.ValidCoordinates(input.OriginLat, input.OriginLng) ||
			!utils.ValidCoordinates(input.DestLat, input.DestLng) {
			c.JSON(400, gin.H{"error": "Invalid coordinates"})
			return
		}

		// One open request at a time per customer
		var open int64
		if err := db.Model(&models.Ride{}).
			Where("customer_id = ? AND status IN ?", customerID, models.OpenStatuses()).
			Count(&open).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to check existing rides"})
			return
		}
		if open > 0 {
			c.JSON(400, gin.H{"error": "You already have an open request"})
			return
		}

		now := time.Now().UTC()
		ride := models.Ride{
			CustomerID:  customerID,
			ServiceKind: input.ServiceKind,
			Description: input.Description,
			OriginLat:   input.OriginLat,
			OriginLng:   input.OriginLng,
			DestLat:     input.DestLat,
			DestLng:     input.DestLng,
			DestName:    input.DestName,
			Status:      models.RideStatusPending,
			RequestedAt: now,
		}

		if input.ScheduledAt != "" {
			scheduledAt, err := utils.ParseScheduledAt(input.ScheduledAt, input.Timezone, input.OriginLng)
			if err != nil {
				c.JSON(400, gin.H{"error": "Invalid scheduled time: " + err.Error()})
				return
			}
			if !scheduledAt.After(now) {
				c.JSON(400, gin.H{"error": "Scheduled time must be in the future"})
				return
			}
			ride.Status = models.RideStatusScheduled
			ride.ScheduledAt = &scheduledAt
		}

		if err := db.Create(&ride).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to create ride"})
			return
		}

		if ride.ScheduledAt != nil {
			var customer models.User
			if err := db.First(&customer, customerID).Error; err == nil && customer.Email != "" {
				go func() {
					if err := utils.SendScheduledRideConfirmation(customer.Email, ride.DestName, *ride.ScheduledAt); err != nil {
						log.Printf("Failed to send booking confirmation for ride %d: %v", ride.ID, err)
					}
				}()
			}
		}

		if err := services.PublishRideUpdate(context.Background(), ride.ID, ride.Status, map[string]interface{}{
			"serviceKind": ride.ServiceKind,
		}); err != nil {
			log.Printf("Failed to publish ride %d creation: %v", ride.ID, err)
		}

		c.JSON(201, gin.H{
			"message": "Ride created successfully",
			"ride":    ride,
		})
	}
}

// GetRideStatus is the polling endpoint: a compact snapshot of where the
// ride is, plus driver details once one is assigned.
func GetRideStatus(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userId")
		rideID := parseIDParam(c, "rideId")
		if rideID == 0 {
			return
		}

		if !isParty(db, rideID, userID) {
			c.JSON(403, gin.H{"error": "Not authorized to view this ride"})
			return
		}

		var ride models.Ride
		if err := db.Preload("Driver").First(&ride, rideID).Error; err != nil {
			c.JSON(404, gin.H{"error": "Ride not found"})
			return
		}

		response := gin.H{
			"rideId":      ride.ID,
			"status":      ride.Status,
			"serviceKind": ride.ServiceKind,
			"requestedAt": ride.RequestedAt,
			"scheduledAt": ride.ScheduledAt,
			"rating":      ride.Rating,
		}

		if ride.Driver != nil {
			driver := gin.H{
				"id":       ride.Driver.ID,
				"username": ride.Driver.Username,
				"phone":    ride.Driver.PhoneNumber,
				"carPlate": ride.Driver.CarPlate,
			}

			// Live position while the job is running
			if ride.Status == models.RideStatusAccepted || ride.Status == models.RideStatusInProgress {
				var status models.DriverStatus
				if err := db.Where("driver_id = ?", ride.Driver.ID).First(&status).Error; err == nil {
					driver["lat"] = status.Latitude
					driver["lng"] = status.Longitude
					distance := utils.HaversineDistance(status.Latitude, status.Longitude, ride.OriginLat, ride.OriginLng)
					driver["etaMinutes"] = utils.CalculateETA(distance, 30)
				}
			}
			response["driver"] = driver
		}

		c.JSON(200, response)
	}
}

// CancelRide lets the customer abandon a request before completion. The
// guarded UPDATE re-checks ownership and a cancellable status, so a cancel
// racing an accept resolves consistently either way. driver_id is read under
// a row lock inside the same transaction: a claim landing after the outer
// read would otherwise leave the new driver busy until the next sweep.
func CancelRide(db *gorm.DB, hub *services.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		customerID := c.GetUint("userId")
		rideID := parseIDParam(c, "rideId")
		if rideID == 0 {
			return
		}

		var ride models.Ride
		if err := db.First(&ride, rideID).Error; err != nil {
			c.JSON(404, gin.H{"error": "Ride not found"})
			return
		}
		if ride.CustomerID != customerID {
			c.JSON(403, gin.H{"error": "Not authorized to cancel this ride"})
			return
		}

		now := time.Now().UTC()
		var driverID *uint

		err := db.Transaction(func(tx *gorm.DB) error {
			var locked models.Ride
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Select("driver_id").
				First(&locked, rideID).Error; err != nil {
				return err
			}
			driverID = locked.DriverID

			res := tx.Model(&models.Ride{}).
				Where("id = ? AND customer_id = ? AND status IN ?", rideID, customerID,
					lifecycle.CancellableStatuses()).
				Updates(map[string]interface{}{
					"status":       models.RideStatusCancelled,
					"driver_id":    nil,
					"cancelled_at": now,
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return services.ErrRideConflict
			}

			if driverID != nil {
				return services.ReleaseDriverIfIdle(tx, *driverID)
			}
			return nil
		})
		if errors.Is(err, services.ErrRideConflict) {
			c.JSON(400, gin.H{"error": "Ride can no longer be cancelled"})
			return
		}
		if err != nil {
			c.JSON(500, gin.H{"error": "Failed to cancel ride"})
			return
		}

		// Tell the driver who lost the job
		if driverID != nil {
			hub.SendRideStatus(*driverID, services.RideStatusUpdate{
				RideID:  rideID,
				Status:  models.RideStatusCancelled,
				Message: "The customer cancelled this ride",
			})

			var driver models.User
			if err := db.First(&driver, *driverID).Error; err == nil && driver.FCMToken != "" {
				go func() {
					if err := services.SendRideCancelledNotification(context.Background(), driver.FCMToken, rideID, "cancelled by customer"); err != nil {
						log.Printf("Failed to notify driver %d of cancellation: %v", driver.ID, err)
					}
				}()
			}
		}

		if err := services.PublishRideUpdate(context.Background(), rideID, models.RideStatusCancelled, nil); err != nil {
			log.Printf("Failed to publish ride %d cancellation: %v", rideID, err)
		}

		c.JSON(200, gin.H{"message": "Ride cancelled successfully"})
	}
}

// RateRide records the customer's one-time rating of a completed ride. The
// rating IS NULL predicate makes a second attempt fail, not overwrite.
func RateRide(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		customerID := c.GetUint("userId")
		rideID := parseIDParam(c, "rideId")
		if rideID == 0 {
			return
		}

		var input RateRideInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		res := db.Model(&models.Ride{}).
			Where("id = ? AND customer_id = ? AND status = ? AND rating IS NULL",
				rideID, customerID, models.RideStatusCompleted).
			Updates(map[string]interface{}{
				"rating":   input.Rating,
				"feedback": input.Feedback,
			})
		if res.Error != nil {
			c.JSON(500, gin.H{"error": "Failed to rate ride"})
			return
		}
		if res.RowsAffected == 0 {
			c.JSON(400, gin.H{"error": "Ride cannot be rated (not yours, not completed, or already rated)"})
			return
		}

		c.JSON(200, gin.H{"message": "Thank you for your feedback"})
	}
}

// GetTripHistory returns the caller's past rides, newest first. Customers
// see rides they requested; drivers see rides they served.
func GetTripHistory(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userId")
		role := c.GetString("role")

		query := db.Model(&models.Ride{}).
			Where("status IN ?", []string{models.RideStatusCompleted, models.RideStatusCancelled, models.RideStatusNoShow})

		if role == string(models.RoleDriver) {
			query = query.Where("driver_id = ?", userID).Preload("Customer")
		} else {
			query = query.Where("customer_id = ?", userID).Preload("Driver")
		}

		var rides []models.Ride
		if err := query.Order("created_at DESC").Limit(50).Find(&rides).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to fetch trip history"})
			return
		}

		c.JSON(200, gin.H{"trips": rides})
	}
}
