package utils

import (
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
)

var (
	atUsername = os.Getenv("AT_USERNAME")
	atAPIKey   = os.Getenv("AT_API_KEY")
)

func sendSMS(message string, recipients []string) error {
	if atUsername == "" {
		return fmt.Errorf("africa's talking username not set")
	}

	if atAPIKey == "" {
		return fmt.Errorf("africa's talking API key not set")
	}

	baseURL := "https://api.africastalking.com/version1/messaging"

	// Prepare the form data
	data := url.Values{}
	data.Set("username", atUsername)
	data.Set("to", strings.Join(recipients, ","))
	data.Set("message", message)

	// Create the request
	req, err := http.NewRequest("POST", baseURL, strings.NewReader(data.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create request: %v", err)
	}

	// Set headers
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("apiKey", atAPIKey)
	req.Header.Set("Accept", "application/json")

	// Send the request
	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to send SMS: status code %d", resp.StatusCode)
	}

	log.Printf("Successfully sent SMS to %d recipients", len(recipients))
	return nil
}

// SendRideAcceptedSMS tells the customer a driver has taken the job.
func SendRideAcceptedSMS(customerPhone, driverName, carPlate string) error {
	msg := fmt.Sprintf("Your Xzity request was accepted by %s (plate %s). Track the driver in the app.",
		driverName, carPlate)

	return sendSMS(msg, []string{customerPhone})
}

// SendRideCancelledSMS tells the customer the job was closed without service.
func SendRideCancelledSMS(customerPhone string, rideID uint) error {
	msg := fmt.Sprintf("Your Xzity request #%d has been cancelled. Open the app to book again.", rideID)

	return sendSMS(msg, []string{customerPhone})
}
