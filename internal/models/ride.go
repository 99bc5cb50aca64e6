package models

import (
	"time"

	"gorm.io/gorm"
)

// Ride is the central dispatch entity. Status only changes through the
// transitions in internal/lifecycle; every timestamp column is set exactly
// once, on the matching transition.
type Ride struct {
	gorm.Model
	CustomerID  uint    `json:"customerId" gorm:"not null;index"`
	DriverID    *uint   `json:"driverId,omitempty" gorm:"null;index"`
	ServiceKind string  `json:"serviceKind" gorm:"not null"`
	Description string  `json:"description,omitempty"`
	OriginLat   float64 `json:"originLat" gorm:"not null"`
	OriginLng   float64 `json:"originLng" gorm:"not null"`
	DestLat     float64 `json:"destLat" gorm:"not null"`
	DestLng     float64 `json:"destLng" gorm:"not null"`
	DestName    string  `json:"destName,omitempty"`
	Status      string  `json:"status" gorm:"not null;default:'pending';index"`

	RequestedAt      time.Time  `json:"requestedAt" gorm:"not null"`
	ScheduledAt      *time.Time `json:"scheduledAt,omitempty"`
	AcceptedAt       *time.Time `json:"acceptedAt,omitempty"`
	StartedAt        *time.Time `json:"startedAt,omitempty"`
	CompletedAt      *time.Time `json:"completedAt,omitempty"`
	CancelledAt      *time.Time `json:"cancelledAt,omitempty"`
	NoShowReportedAt *time.Time `json:"noShowReportedAt,omitempty"`

	Rating   *int   `json:"rating,omitempty" gorm:"check:rating >= 1 AND rating <= 5"`
	Feedback string `json:"feedback,omitempty"`

	Customer *User `json:"customer,omitempty" gorm:"foreignKey:CustomerID"`
	Driver   *User `json:"driver,omitempty" gorm:"foreignKey:DriverID"`
}

// TableName specifies the table name
func (Ride) TableName() string {
	return "rides"
}

// RideStatus constants
const (
	RideStatusPending    = "pending"
	RideStatusScheduled  = "scheduled"
	RideStatusAccepted   = "accepted"
	RideStatusInProgress = "in_progress"
	RideStatusCompleted  = "completed"
	RideStatusCancelled  = "cancelled"
	RideStatusNoShow     = "no_show"
)

// ServiceKind constants. The set is closed; CreateRide rejects anything else.
const (
	ServiceKindCar         = "car"
	ServiceKindScooter     = "scooter"
	ServiceKindTruck       = "truck"
	ServiceKindDelivery    = "delivery"
	ServiceKindCleaning    = "cleaning"
	ServiceKindBeauty      = "beauty"
	ServiceKindGardening   = "gardening"
	ServiceKindMaintenance = "maintenance"
)

// Service categories, used by the auto-cancel deadline table.
const (
	CategoryTransportation = "transportation"
	CategoryCleaning       = "cleaning"
	CategoryPropertyCare   = "property_care"
	CategoryOther          = "other"
)

var serviceCategories = map[string]string{
	ServiceKindCar:         CategoryTransportation,
	ServiceKindScooter:     CategoryTransportation,
	ServiceKindTruck:       CategoryTransportation,
	ServiceKindDelivery:    CategoryTransportation,
	ServiceKindCleaning:    CategoryCleaning,
	ServiceKindBeauty:      CategoryOther,
	ServiceKindGardening:   CategoryPropertyCare,
	ServiceKindMaintenance: CategoryPropertyCare,
}

// IsValidServiceKind reports whether kind belongs to the closed enumeration.
func IsValidServiceKind(kind string) bool {
	_, ok := serviceCategories[kind]
	return ok
}

// CategoryFor maps a service kind to its auto-cancel category. Unknown kinds
// fall into CategoryOther.
func CategoryFor(kind string) string {
	if cat, ok := serviceCategories[kind]; ok {
		return cat
	}
	return CategoryOther
}

// OpenStatuses are the non-terminal statuses the sweeper re-evaluates.
func OpenStatuses() []string {
	return []string{RideStatusPending, RideStatusScheduled, RideStatusAccepted, RideStatusInProgress}
}

// IsTerminalStatus reports whether no transition may leave the status.
func IsTerminalStatus(status string) bool {
	switch status {
	case RideStatusCompleted, RideStatusCancelled, RideStatusNoShow:
		return true
	}
	return false
}
