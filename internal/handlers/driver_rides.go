package handlers

import (
	"context"
	"errors"
	"log"
	"sort"
	"time"

	"github.com/Abdayemco/xzity-dispatch-backend/internal/lifecycle"
	"github.com/Abdayemco/xzity-dispatch-backend/internal/models"
	"github.com/Abdayemco/xzity-dispatch-backend/internal/services"
	"github.com/Abdayemco/xzity-dispatch-backend/pkg/utils"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GetAvailableJobs lists the unassigned rides this driver could claim:
// pending rides matching their vehicle type, plus scheduled rides whose
// visibility window has opened. Sorted by distance from the driver's last
// reported position.
func GetAvailableJobs(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		driverID := c.GetUint("userId")

		var driver models.User
		if err := db.First(&driver, driverID).Error; err != nil {
			c.JSON(404, gin.H{"error": "Driver not found"})
			return
		}

		now := time.Now().UTC()
		var rides []models.Ride
		err := db.Preload("Customer").
			Where("driver_id IS NULL AND service_kind = ?", driver.VehicleType).
			Where("(status = ?) OR (status = ? AND scheduled_at <= ? AND scheduled_at >= ?)",
				models.RideStatusPending,
				models.RideStatusScheduled,
				now.Add(lifecycle.ScheduledLeadWindow),
				now.Add(-lifecycle.ScheduledLagWindow)).
			Find(&rides).Error
		if err != nil {
			c.JSON(500, gin.H{"error": "Failed to fetch available jobs"})
			return
		}

		// Sort by distance when we know where the driver is
		var status models.DriverStatus
		if err := db.Where("driver_id = ?", driverID).First(&status).Error; err == nil &&
			utils.ValidCoordinates(status.Latitude, status.Longitude) {
			sort.Slice(rides, func(i, j int) bool {
				di := utils.HaversineDistance(status.Latitude, status.Longitude, rides[i].OriginLat, rides[i].OriginLng)
				dj := utils.HaversineDistance(status.Latitude, status.Longitude, rides[j].OriginLat, rides[j].OriginLng)
				return di < dj
			})
		}

		jobs := make([]gin.H, 0, len(rides))
		for _, ride := range rides {
			job := gin.H{
				"rideId":      ride.ID,
				"serviceKind": ride.ServiceKind,
				"description": ride.Description,
				"originLat":   ride.OriginLat,
				"originLng":   ride.OriginLng,
				"destLat":     ride.DestLat,
				"destLng":     ride.DestLng,
				"destName":    ride.DestName,
				"status":      ride.Status,
				"requestedAt": ride.RequestedAt,
				"scheduledAt": ride.ScheduledAt,
			}
			if ride.Customer != nil {
				job["customerName"] = ride.Customer.Username
			}
			jobs = append(jobs, job)
		}

		c.JSON(200, gin.H{"jobs": jobs})
	}
}

// AcceptRide claims a ride for the calling driver through the assignment
// guard. Losing the race, or holding a recent job, both come back as 400.
func AcceptRide(db *gorm.DB, hub *services.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		driverID := c.GetUint("userId")
		rideID := parseIDParam(c, "rideId")
		if rideID == 0 {
			return
		}

		now := time.Now().UTC()
		ride, err := services.ClaimRide(db, rideID, driverID, now)
		if errors.Is(err, services.ErrRideConflict) || errors.Is(err, services.ErrDriverHasActive) {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}
		if err != nil {
			c.JSON(500, gin.H{"error": "Failed to accept ride"})
			return
		}

		var driver models.User
		if err := db.First(&driver, driverID).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to load driver"})
			return
		}

		if err := services.SetDriverBusy(context.Background(), driverID, true); err != nil {
			log.Printf("Failed to mark driver %d busy in cache: %v", driverID, err)
		}

		hub.SendRideStatus(ride.CustomerID, services.RideStatusUpdate{
			RideID:   ride.ID,
			Status:   ride.Status,
			DriverID: &driverID,
			Message:  driver.Username + " is on the way",
		})

		// Push + SMS are best effort; the polling endpoint is the source of truth
		if ride.Customer != nil {
			eta := 0
			var status models.DriverStatus
			if err := db.Where("driver_id = ?", driverID).First(&status).Error; err == nil {
				distance := utils.HaversineDistance(status.Latitude, status.Longitude, ride.OriginLat, ride.OriginLng)
				eta = utils.CalculateETA(distance, 30)
			}

			if ride.Customer.FCMToken != "" {
				token := ride.Customer.FCMToken
				go func() {
					if err := services.SendRideAcceptedNotification(context.Background(), token, ride.ID, driver.Username, driver.VehicleType+" "+driver.CarPlate, eta); err != nil {
						log.Printf("Failed to push accept notification for ride %d: %v", ride.ID, err)
					}
				}()
			}
			if ride.Customer.PhoneNumber != "" {
				phone := ride.Customer.PhoneNumber
				go func() {
					if err := utils.SendRideAcceptedSMS(phone, driver.Username, driver.CarPlate); err != nil {
						log.Printf("Failed to send accept SMS for ride %d: %v", ride.ID, err)
					}
				}()
			}
		}

		if err := services.PublishRideUpdate(context.Background(), ride.ID, ride.Status, map[string]interface{}{
			"driverId": driverID,
		}); err != nil {
			log.Printf("Failed to publish ride %d acceptance: %v", ride.ID, err)
		}

		c.JSON(200, gin.H{
			"message": "Ride accepted",
			"ride":    ride,
		})
	}
}

// StartRide moves the driver's accepted ride to in_progress.
func StartRide(db *gorm.DB, hub *services.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		driverID := c.GetUint("userId")
		rideID := parseIDParam(c, "rideId")
		if rideID == 0 {
			return
		}

		now := time.Now().UTC()
		res := db.Model(&models.Ride{}).
			Where("id = ? AND driver_id = ? AND status = ?", rideID, driverID, models.RideStatusAccepted).
			Updates(map[string]interface{}{
				"status":     models.RideStatusInProgress,
				"started_at": now,
			})
		if res.Error != nil {
			c.JSON(500, gin.H{"error": "Failed to start ride"})
			return
		}
		if res.RowsAffected == 0 {
			c.JSON(400, gin.H{"error": "Ride is not yours or not in an accepted state"})
			return
		}

		var ride models.Ride
		if err := db.Preload("Customer").First(&ride, rideID).Error; err == nil {
			hub.SendRideStatus(ride.CustomerID, services.RideStatusUpdate{
				RideID:  ride.ID,
				Status:  ride.Status,
				Message: "Your ride has started",
			})
			if ride.Customer != nil && ride.Customer.FCMToken != "" {
				var driver models.User
				driverName := ""
				if err := db.First(&driver, driverID).Error; err == nil {
					driverName = driver.Username
				}
				token := ride.Customer.FCMToken
				go func() {
					if err := services.SendRideStartedNotification(context.Background(), token, rideID, driverName); err != nil {
						log.Printf("Failed to push start notification for ride %d: %v", rideID, err)
					}
				}()
			}
		}

		if err := services.PublishRideUpdate(context.Background(), rideID, models.RideStatusInProgress, nil); err != nil {
			log.Printf("Failed to publish ride %d start: %v", rideID, err)
		}

		c.JSON(200, gin.H{"message": "Ride started"})
	}
}

// CompleteRide closes out a running ride. Either party may confirm
// completion: the assigned driver at drop-off, or the customer when the
// driver forgets to. The row is locked while the party set is read, so the
// ownership check and the status check stay atomic.
func CompleteRide(db *gorm.DB, hub *services.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userId")
		rideID := parseIDParam(c, "rideId")
		if rideID == 0 {
			return
		}

		now := time.Now().UTC()
		var driverID *uint
		err := db.Transaction(func(tx *gorm.DB) error {
			var ride models.Ride
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Select("driver_id", "customer_id").
				First(&ride, rideID).Error; err != nil {
				return err
			}
			driverID = ride.DriverID

			res := tx.Model(&models.Ride{}).
				Where("id = ? AND status = ? AND (driver_id = ? OR customer_id = ?)",
					rideID, models.RideStatusInProgress, userID, userID).
				Updates(map[string]interface{}{
					"status":       models.RideStatusCompleted,
					"completed_at": now,
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
			c.JSON(400, gin.H{"error": "Ride is not yours or not in progress"})
			return
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(404, gin.H{"error": "Ride not found"})
			return
		}
		if err != nil {
			c.JSON(500, gin.H{"error": "Failed to complete ride"})
			return
		}

		if driverID != nil {
			if err := services.SetDriverBusy(context.Background(), *driverID, false); err != nil {
				log.Printf("Failed to clear busy flag in cache for driver %d: %v", *driverID, err)
			}
		}

		var ride models.Ride
		if err := db.Preload("Customer").Preload("Driver").First(&ride, rideID).Error; err == nil {
			hub.SendRideStatus(ride.CustomerID, services.RideStatusUpdate{
				RideID:  ride.ID,
				Status:  ride.Status,
				Message: "Your ride is complete. Please rate your experience.",
			})
			if ride.DriverID != nil && *ride.DriverID != userID {
				hub.SendRideStatus(*ride.DriverID, services.RideStatusUpdate{
					RideID:  ride.ID,
					Status:  ride.Status,
					Message: "The customer confirmed this ride as complete",
				})
			}

			if ride.Customer != nil {
				if ride.Customer.FCMToken != "" {
					token := ride.Customer.FCMToken
					go func() {
						if err := services.SendRideCompletedNotification(context.Background(), token, rideID); err != nil {
							log.Printf("Failed to push completion notification for ride %d: %v", rideID, err)
						}
					}()
				}
				if ride.Customer.Email != "" && ride.Driver != nil {
					email, driverName := ride.Customer.Email, ride.Driver.Username
					go func() {
						if err := utils.SendRideCompletedReceipt(email, driverName, now); err != nil {
							log.Printf("Failed to email receipt for ride %d: %v", rideID, err)
						}
					}()
				}
			}
		}

		if err := services.PublishRideUpdate(context.Background(), rideID, models.RideStatusCompleted, nil); err != nil {
			log.Printf("Failed to publish ride %d completion: %v", rideID, err)
		}

		c.JSON(200, gin.H{"message": "Ride completed"})
	}
}

// DriverCancelRide lets the assigned driver give up an accepted job before
// starting it. The ride returns to a terminal cancelled state and the
// customer is told to request again; a started ride cannot be abandoned
// this way.
func DriverCancelRide(db *gorm.DB, hub *services.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		driverID := c.GetUint("userId")
		rideID := parseIDParam(c, "rideId")
		if rideID == 0 {
			return
		}

		now := time.Now().UTC()
		err := db.Transaction(func(tx *gorm.DB) error {
			res := tx.Model(&models.Ride{}).
				Where("id = ? AND driver_id = ? AND status = ?", rideID, driverID, models.RideStatusAccepted).
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

			return services.ReleaseDriverIfIdle(tx, driverID)
		})
		if errors.Is(err, services.ErrRideConflict) {
			c.JSON(400, gin.H{"error": "Ride is not yours or already underway"})
			return
		}
		if err != nil {
			c.JSON(500, gin.H{"error": "Failed to cancel ride"})
			return
		}

		if err := services.SetDriverBusy(context.Background(), driverID, false); err != nil {
			log.Printf("Failed to clear busy flag in cache for driver %d: %v", driverID, err)
		}

		var ride models.Ride
		if err := db.Preload("Customer").First(&ride, rideID).Error; err == nil {
			hub.SendRideStatus(ride.CustomerID, services.RideStatusUpdate{
				RideID:  rideID,
				Status:  models.RideStatusCancelled,
				Message: "Your driver cancelled. Please request again.",
			})

			if ride.Customer != nil {
				if ride.Customer.FCMToken != "" {
					token := ride.Customer.FCMToken
					go func() {
						if err := services.SendRideCancelledNotification(context.Background(), token, rideID, "cancelled by driver"); err != nil {
							log.Printf("Failed to push driver-cancel notification for ride %d: %v", rideID, err)
						}
					}()
				}
				if ride.Customer.PhoneNumber != "" {
					phone := ride.Customer.PhoneNumber
					go func() {
						if err := utils.SendRideCancelledSMS(phone, rideID); err != nil {
							log.Printf("Failed to send cancel SMS for ride %d: %v", rideID, err)
						}
					}()
				}
			}
		}

		if err := services.PublishRideUpdate(context.Background(), rideID, models.RideStatusCancelled, nil); err != nil {
			log.Printf("Failed to publish ride %d driver cancellation: %v", rideID, err)
		}

		c.JSON(200, gin.H{"message": "Ride cancelled"})
	}
}

// NoShowRide records that the customer never turned up for a scheduled ride.
// Allowed only after the grace period, enforced inside the UPDATE so the
// grace check and the status check stay atomic.
func NoShowRide(db *gorm.DB, hub *services.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		rideID := parseIDParam(c, "rideId")
		if rideID == 0 {
			return
		}

		var ride models.Ride
		if err := db.First(&ride, rideID).Error; err != nil {
			c.JSON(404, gin.H{"error": "Ride not found"})
			return
		}
		if ride.ScheduledAt == nil {
			c.JSON(400, gin.H{"error": "Only scheduled rides can be marked no-show"})
			return
		}

		now := time.Now().UTC()
		if !lifecycle.NoShowAllowed(now, *ride.ScheduledAt) {
			c.JSON(400, gin.H{"error": "Grace period has not elapsed yet"})
			return
		}

		res := db.Model(&models.Ride{}).
			Where("id = ? AND status = ? AND scheduled_at <= ?",
				rideID, models.RideStatusScheduled, now.Add(-lifecycle.NoShowGrace)).
			Updates(map[string]interface{}{
				"status":              models.RideStatusNoShow,
				"no_show_reported_at": now,
			})
		if res.Error != nil {
			c.JSON(500, gin.H{"error": "Failed to mark no-show"})
			return
		}
		if res.RowsAffected == 0 {
			c.JSON(400, gin.H{"error": "Ride is not in a no-show eligible state"})
			return
		}

		hub.SendRideStatus(ride.CustomerID, services.RideStatusUpdate{
			RideID:  rideID,
			Status:  models.RideStatusNoShow,
			Message: "Your scheduled ride was closed as a no-show",
		})

		if err := services.PublishRideUpdate(context.Background(), rideID, models.RideStatusNoShow, nil); err != nil {
			log.Printf("Failed to publish ride %d no-show: %v", rideID, err)
		}

		c.JSON(200, gin.H{"message": "Ride marked as no-show"})
	}
}
