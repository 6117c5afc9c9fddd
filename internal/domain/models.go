package domain

import (
	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// User is an application user that may have a Google account connected.
type User struct {
	BaseEntity
	Email           string  `db:"email"            json:"email"`
	Name            *string `db:"name"             json:"name,omitempty"`
	GoogleConnected bool    `db:"google_connected" json:"google_connected"`
}

// ConnectedToken pairs a connected user with their decrypted token.
type ConnectedToken struct {
	UserID uuid.UUID
	Token  *oauth2.Token
}
