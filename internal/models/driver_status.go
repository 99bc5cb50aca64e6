package models

import (
	"time"

	"gorm.io/gorm"
)

// DriverStatus represents a driver's current location and availability.
// IsBusy must only be true while the driver owns a ride in accepted or
// in_progress; the sweeper restores the flag when a ride is force-closed.
type DriverStatus struct {
	gorm.Model
	DriverID    uint      `json:"driverId" gorm:"not null;uniqueIndex"`
	Latitude    float64   `json:"lat"`
	Longitude   float64   `json:"lng"`
	IsOnline    bool      `json:"isOnline" gorm:"not null;default:false"`
	IsBusy      bool      `json:"isBusy" gorm:"not null;default:false"`
	VehicleType string    `json:"vehicleType"`
	LastSeen    time.Time `json:"lastSeen"`
	Driver      *User     `json:"driver,omitempty" gorm:"foreignKey:DriverID"`
}

// TableName specifies the table name
func (DriverStatus) TableName() string {
	return "driver_statuses"
}
