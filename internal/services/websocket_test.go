package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newChatClient(hub *Hub) *Client {
	return &Client{
		ID:    1,
		Role:  "customer",
		Hub:   hub,
		Send:  make(chan []byte, 4),
		rooms: map[uint]bool{3: true},
	}
}

func TestChatSendRejectsOversizedBody(t *testing.T) {
	hub := NewHub()
	hub.ValidateParty = func(rideID, userID uint) bool { return true }

	saved := false
	hub.SaveChatMessage = func(rideID, senderID uint, body string) (ChatBroadcast, error) {
		saved = true
		return ChatBroadcast{}, nil
	}

	client := newChatClient(hub)
	client.handleChatSend(map[string]interface{}{
		"rideId": float64(3),
		"body":   strings.Repeat("a", MaxChatBodyLen+1),
	})

	assert.False(t, saved)
	select {
	case msg := <-client.Send:
		assert.Contains(t, string(msg), "message too long")
	default:
		t.Fatal("expected an error frame")
	}
}

func TestChatSendCountsRunesNotBytes(t *testing.T) {
	hub := NewHub()
	hub.ValidateParty = func(rideID, userID uint) bool { return true }

	saved := false
	hub.SaveChatMessage = func(rideID, senderID uint, body string) (ChatBroadcast, error) {
		saved = true
		return ChatBroadcast{RideID: rideID, SenderID: senderID, Body: body}, nil
	}

	// MaxChatBodyLen two-byte runes: over the cap in bytes, at it in runes.
	client := newChatClient(hub)
	client.handleChatSend(map[string]interface{}{
		"rideId": float64(3),
		"body":   strings.Repeat("é", MaxChatBodyLen),
	})

	assert.True(t, saved)
	assert.Empty(t, client.Send)
}

func TestChatSendRevalidatesParty(t *testing.T) {
	hub := NewHub()
	hub.ValidateParty = func(rideID, userID uint) bool { return false }

	saved := false
	hub.SaveChatMessage = func(rideID, senderID uint, body string) (ChatBroadcast, error) {
		saved = true
		return ChatBroadcast{}, nil
	}

	client := newChatClient(hub)
	client.handleChatSend(map[string]interface{}{
		"rideId": float64(3),
		"body":   "hello",
	})

	assert.False(t, saved)
	select {
	case msg := <-client.Send:
		assert.Contains(t, string(msg), "not a party")
	default:
		t.Fatal("expected an error frame")
	}
}
