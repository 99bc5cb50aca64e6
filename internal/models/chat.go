package models

import (
	"gorm.io/gorm"
)

// ChatMessage is an append-only message on a ride's conversation. Ordering
// is by the server-assigned CreatedAt only.
type ChatMessage struct {
	gorm.Model
	RideID     uint   `json:"rideId" gorm:"not null;index"`
	SenderID   uint   `json:"senderId" gorm:"not null"`
	SenderName string `json:"senderName" gorm:"not null"`
	SenderRole string `json:"senderRole" gorm:"not null"`
	Body       string `json:"body" gorm:"not null"`
	Ride       *Ride  `json:"-" gorm:"foreignKey:RideID"`
}

// TableName specifies the table name
func (ChatMessage) TableName() string {
	return "chat_messages"
}
