package domain

import "time"

// User represents a registered author of the catalog.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}
