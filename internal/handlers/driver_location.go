package handlers

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/Abdayemco/xzity-dispatch-backend/internal/models"
	"github.com/Abdayemco/xzity-dispatch-backend/internal/services"
	"github.com/Abdayemco/xzity-dispatch-backend/pkg/utils"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type LocationInput struct {
	Latitude  float64 `json:"lat" binding:"required"`
	Longitude float64 `json:"lng" binding:"required"`
}

type AvailabilityInput struct {
	IsOnline *bool `json:"isOnline" binding:"required"`
}

// UpdateDriverLocation records where the driver is. Written to Redis for the
// hot path and to the availability row for durability.
func UpdateDriverLocation(db *gorm.DB, hub *services.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		driverID := c.GetUint("userId")

		var input LocationInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		if !utils.ValidCoordinates(input.Latitude, input.Longitude) {
			c.JSON(400, gin.H{"error": "Invalid coordinates"})
			return
		}

		if err := services.SetDriverLocation(context.Background(), driverID, input.Latitude, input.Longitude); err != nil {
			log.Printf("Failed to cache location for driver %d: %v", driverID, err)
		}

		now := time.Now().UTC()
		res := db.Model(&models.DriverStatus{}).
			Where("driver_id = ?", driverID).
			Updates(map[string]interface{}{
				"latitude":  input.Latitude,
				"longitude": input.Longitude,
				"last_seen": now,
			})
		if res.Error != nil {
			c.JSON(500, gin.H{"error": "Failed to update location"})
			return
		}
		if res.RowsAffected == 0 {
			// Registration predates the availability table; backfill.
			status := models.DriverStatus{
				DriverID:  driverID,
				Latitude:  input.Latitude,
				Longitude: input.Longitude,
				LastSeen:  now,
			}
			if err := db.Create(&status).Error; err != nil {
				c.JSON(500, gin.H{"error": "Failed to create driver status"})
				return
			}
		}

		// Stream position to the customer of the driver's live ride
		var ride models.Ride
		err := db.Select("id", "customer_id").
			Where("driver_id = ? AND status IN ?", driverID,
				[]string{models.RideStatusAccepted, models.RideStatusInProgress}).
			First(&ride).Error
		if err == nil {
			payload := services.WebSocketMessage{
				Type: "driver_location",
				Data: gin.H{
					"rideId": ride.ID,
					"lat":    input.Latitude,
					"lng":    input.Longitude,
				},
			}
			if data, err := json.Marshal(payload); err == nil {
				hub.BroadcastToUser(ride.CustomerID, data)
			}
		}

		c.JSON(200, gin.H{"message": "Location updated"})
	}
}

// UpdateDriverAvailability flips the driver's online flag.
func UpdateDriverAvailability(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		driverID := c.GetUint("userId")

		var input AvailabilityInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		res := db.Model(&models.DriverStatus{}).
			Where("driver_id = ?", driverID).
			Updates(map[string]interface{}{
				"is_online": *input.IsOnline,
				"last_seen": time.Now().UTC(),
			})
		if res.Error != nil {
			c.JSON(500, gin.H{"error": "Failed to update availability"})
			return
		}
		if res.RowsAffected == 0 {
			c.JSON(404, gin.H{"error": "Driver status not found"})
			return
		}

		c.JSON(200, gin.H{"message": "Availability updated", "isOnline": *input.IsOnline})
	}
}

// GetDriverStatus returns the driver's own availability record. The busy
// flag is answered from the cache when it has a fresher value; the row
// remains the source of truth.
func GetDriverStatus(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		driverID := c.GetUint("userId")

		var status models.DriverStatus
		if err := db.Where("driver_id = ?", driverID).First(&status).Error; err != nil {
			c.JSON(404, gin.H{"error": "Driver status not found"})
			return
		}

		isBusy := status.IsBusy
		if cached, err := services.GetDriverBusy(context.Background(), driverID); err == nil {
			isBusy = cached
		}

		c.JSON(200, gin.H{
			"isOnline":    status.IsOnline,
			"isBusy":      isBusy,
			"lat":         status.Latitude,
			"lng":         status.Longitude,
			"vehicleType": status.VehicleType,
			"lastSeen":    status.LastSeen,
		})
	}
}

// GetNearbyDrivers lists online, idle drivers within 10km of a point,
// optionally filtered by vehicle type. Used by the customer map view.
func GetNearbyDrivers(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var query struct {
			Lat         float64 `form:"lat" binding:"required"`
			Lng         float64 `form:"lng" binding:"required"`
			VehicleType string  `form:"vehicleType"`
		}
		if err := c.ShouldBindQuery(&query); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}
		if !utils.ValidCoordinates(query.Lat, query.Lng) {
			c.JSON(400, gin.H{"error": "Invalid coordinates"})
			return
		}

		dbQuery := db.Where("is_online = ? AND is_busy = ?", true, false)
		if query.VehicleType != "" {
			dbQuery = dbQuery.Where("vehicle_type = ?", query.VehicleType)
		}

		var statuses []models.DriverStatus
		if err := dbQuery.Find(&statuses).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to fetch drivers"})
			return
		}

		const radiusKm = 10.0
		drivers := make([]gin.H, 0)
		for _, s := range statuses {
			if !utils.IsWithinRadius(query.Lat, query.Lng, s.Latitude, s.Longitude, radiusKm) {
				continue
			}
			distance := utils.HaversineDistance(query.Lat, query.Lng, s.Latitude, s.Longitude)
			drivers = append(drivers, gin.H{
				"driverId":    s.DriverID,
				"lat":         s.Latitude,
				"lng":         s.Longitude,
				"vehicleType": s.VehicleType,
				"etaMinutes":  utils.CalculateETA(distance, 30),
			})
		}

		c.JSON(200, gin.H{"drivers": drivers})
	}
}
