package services

import (
	"context"
	"fmt"
	"log"
	"os"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

var (
	// FirebaseApp is the Firebase app instance
	FirebaseApp *firebase.App
	// MessagingClient is the Firebase Cloud Messaging client
	MessagingClient *messaging.Client
)

// InitFirebase initializes Firebase Admin SDK
func InitFirebase() error {
	ctx := context.Background()

	// Check if Firebase is configured
	serviceAccountPath := os.Getenv("FIREBASE_SERVICE_ACCOUNT_PATH")
	if serviceAccountPath == "" {
		log.Println("Warning: FIREBASE_SERVICE_ACCOUNT_PATH not set. Push notifications will be disabled.")
		return nil
	}

	// Initialize Firebase app
	opt := option.WithCredentialsFile(serviceAccountPath)
	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return fmt.Errorf("error initializing firebase app: %v", err)
	}

	// Initialize messaging client
	client, err := app.Messaging(ctx)
	if err != nil {
		return fmt.Errorf("error getting messaging client: %v", err)
	}

	FirebaseApp = app
	MessagingClient = client

	log.Println("Firebase Cloud Messaging initialized successfully")
	return nil
}

// NotificationPayload represents the notification data
type NotificationPayload struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

// SendNotificationToToken sends a notification to a specific FCM token.
// Push is never on the critical path of a state transition; a nil client or
// a send failure only logs.
func SendNotificationToToken(ctx context.Context, token string, payload NotificationPayload) error {
	if MessagingClient == nil {
		log.Println("Warning: Firebase not initialized. Skipping notification.")
		return nil
	}

	message := &messaging.Message{
		Notification: &messaging.Notification{
			Title: payload.Title,
			Body:  payload.Body,
		},
		Data:  payload.Data,
		Token: token,
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				Sound:        "default",
				ChannelID:    "xzity_rides",
				DefaultSound: true,
			},
		},
	}

	response, err := MessagingClient.Send(ctx, message)
	if err != nil {
		return fmt.Errorf("error sending message: %v", err)
	}

	log.Printf("Successfully sent notification, response: %s", response)
	return nil
}

// SendRideAcceptedNotification sends a notification to the customer when a
// driver claims the job
func SendRideAcceptedNotification(ctx context.Context, customerToken string, rideID uint, driverName, vehicleDetails string, eta int) error {
	payload := NotificationPayload{
		Title: "Driver on the way!",
		Body:  fmt.Sprintf("%s accepted your request. ETA: %d minutes", driverName, eta),
		Data: map[string]string{
			"type":           "ride_accepted",
			"rideId":         fmt.Sprintf("%d", rideID),
			"driverName":     driverName,
			"vehicleDetails": vehicleDetails,
		},
	}

	return SendNotificationToToken(ctx, customerToken, payload)
}

// SendRideStartedNotification sends notification when the job starts
func SendRideStartedNotification(ctx context.Context, customerToken string, rideID uint, driverName string) error {
	payload := NotificationPayload{
		Title: "Trip started",
		Body:  fmt.Sprintf("Your trip with %s is underway", driverName),
		Data: map[string]string{
			"type":   "ride_started",
			"rideId": fmt.Sprintf("%d", rideID),
		},
	}

	return SendNotificationToToken(ctx, customerToken, payload)
}

// SendRideCompletedNotification sends notification when the job is completed
func SendRideCompletedNotification(ctx context.Context, customerToken string, rideID uint) error {
	payload := NotificationPayload{
		Title: "Trip complete",
		Body:  "Your trip is complete. Rate your experience in the app.",
		Data: map[string]string{
			"type":   "ride_completed",
			"rideId": fmt.Sprintf("%d", rideID),
		},
	}

	return SendNotificationToToken(ctx, customerToken, payload)
}

// SendRideCancelledNotification tells a party the job was closed.
func SendRideCancelledNotification(ctx context.Context, token string, rideID uint, reason string) error {
	payload := NotificationPayload{
		Title: "Request cancelled",
		Body:  reason,
		Data: map[string]string{
			"type":   "ride_cancelled",
			"rideId": fmt.Sprintf("%d", rideID),
		},
	}

	return SendNotificationToToken(ctx, token, payload)
}

// SendChatMessageNotification nudges the other party about a new message.
func SendChatMessageNotification(ctx context.Context, token string, rideID uint, senderName, preview string) error {
	payload := NotificationPayload{
		Title: fmt.Sprintf("Message from %s", senderName),
		Body:  preview,
		Data: map[string]string{
			"type":   "chat_message",
			"rideId": fmt.Sprintf("%d", rideID),
		},
	}

	return SendNotificationToToken(ctx, token, payload)
}
