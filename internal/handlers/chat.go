package handlers

import (
	"context"
	"log"
	"time"

	"github.com/Abdayemco/xzity-dispatch-backend/internal/models"
	"github.com/Abdayemco/xzity-dispatch-backend/internal/services"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type ChatMessageInput struct {
	Body string `json:"body" binding:"required,max=2000"`
}

// GetChatMessages returns the ride's message list, oldest first. Polling this
// endpoint is the reliable delivery path; the socket relay only shortens it.
func GetChatMessages(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userId")
		rideID := parseIDParam(c, "rideId")
		if rideID == 0 {
			return
		}

		if !isParty(db, rideID, userID) {
			c.JSON(403, gin.H{"error": "Not a party to this ride"})
			return
		}

		var messages []models.ChatMessage
		if err := db.Where("ride_id = ?", rideID).
			Order("created_at ASC").
			Limit(200).
			Find(&messages).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to fetch messages"})
			return
		}

		c.JSON(200, gin.H{"messages": messages})
	}
}

// PostChatMessage appends a message to the ride's chat. The party check runs
// on every send, so access ends when a ride's membership changes.
func PostChatMessage(db *gorm.DB, hub *services.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userId")
		rideID := parseIDParam(c, "rideId")
		if rideID == 0 {
			return
		}

		var input ChatMessageInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		if !isParty(db, rideID, userID) {
			c.JSON(403, gin.H{"error": "Not a party to this ride"})
			return
		}

		broadcast, err := saveChatMessage(db, rideID, userID, input.Body)
		if err != nil {
			c.JSON(500, gin.H{"error": "Failed to send message"})
			return
		}

		relayChatMessage(db, hub, rideID, userID, broadcast)

		c.JSON(201, gin.H{"message": broadcast})
	}
}

// saveChatMessage persists one message and returns its relay form. Shared by
// the REST endpoint and the socket relay.
func saveChatMessage(db *gorm.DB, rideID, senderID uint, body string) (services.ChatBroadcast, error) {
	var sender models.User
	if err := db.First(&sender, senderID).Error; err != nil {
		return services.ChatBroadcast{}, err
	}

	message := models.ChatMessage{
		RideID:     rideID,
		SenderID:   senderID,
		SenderName: sender.Username,
		SenderRole: sender.Role,
		Body:       body,
	}
	if err := db.Create(&message).Error; err != nil {
		return services.ChatBroadcast{}, err
	}

	return services.ChatBroadcast{
		RideID:     rideID,
		MessageID:  message.ID,
		SenderID:   senderID,
		SenderName: sender.Username,
		SenderRole: sender.Role,
		Body:       body,
		SentAt:     message.CreatedAt.UTC().Format(time.RFC3339),
	}, nil
}

// relayChatMessage pushes the message to the counterparty over the socket
// and nudges them with a push notification. Best effort only.
func relayChatMessage(db *gorm.DB, hub *services.Hub, rideID, senderID uint, broadcast services.ChatBroadcast) {
	var ride models.Ride
	if err := db.Select("customer_id", "driver_id").First(&ride, rideID).Error; err != nil {
		return
	}

	recipientID := ride.CustomerID
	if senderID == ride.CustomerID {
		if ride.DriverID == nil {
			return
		}
		recipientID = *ride.DriverID
	}

	hub.SendRideStatus(recipientID, services.RideStatusUpdate{
		RideID:  rideID,
		Status:  "chat_message",
		Message: broadcast.SenderName + ": " + broadcast.Body,
	})

	var recipient models.User
	if err := db.First(&recipient, recipientID).Error; err != nil || recipient.FCMToken == "" {
		return
	}

	preview := chatPreview(broadcast.Body)
	token := recipient.FCMToken
	go func() {
		if err := services.SendChatMessageNotification(context.Background(), token, rideID, broadcast.SenderName, preview); err != nil {
			log.Printf("Failed to push chat notification for ride %d: %v", rideID, err)
		}
	}()
}

// chatPreview shortens a message body for a push notification. Truncation
// happens on rune boundaries so a multi-byte character is never split.
func chatPreview(body string) string {
	const maxRunes = 80
	runes := []rune(body)
	if len(runes) <= maxRunes {
		return body
	}
	return string(runes[:maxRunes-3]) + "..."
}

// ChatPartyValidator builds the hub's re-validation callback.
func ChatPartyValidator(db *gorm.DB) func(rideID, userID uint) bool {
	return func(rideID, userID uint) bool {
		return isParty(db, rideID, userID)
	}
}

// ChatMessageSaver builds the hub's persistence callback for relayed sends.
func ChatMessageSaver(db *gorm.DB) func(rideID, senderID uint, body string) (services.ChatBroadcast, error) {
	return func(rideID, senderID uint, body string) (services.ChatBroadcast, error) {
		return saveChatMessage(db, rideID, senderID, body)
	}
}
