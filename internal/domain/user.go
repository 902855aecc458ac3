package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is an account that owns trips. Email is stored lower-cased.
type User struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}
