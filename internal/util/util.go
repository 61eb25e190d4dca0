package util

import (
	"github.com/google/uuid"
)

// GuestID generates a unique identifier for a guest player
func GuestID() string {
	return "guest-" + uuid.New().String()
}
