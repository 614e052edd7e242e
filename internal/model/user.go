package model

import "time"

type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

// Identity is the authenticated caller as seen by the rest of the system.
// Only the ID is used as a foreign key; the email rides along for display.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}
