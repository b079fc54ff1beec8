package auth

import "github.com/golang-jwt/jwt/v5"

type TokenType string

const (
	// TokenTypeStation authenticates interactive stations: kiosks,
	// receptionist desks, and the mobile app.
	TokenTypeStation TokenType = "station"
	// TokenTypePanel authenticates hardware panels pushing raw events.
	TokenTypePanel TokenType = "panel"
)

// Claims are the only supported JWT claims shape for this service.
// StationID identifies the issuing device (station or panel); AccessPointID
// binds the device to the door it serves. Panel tokens do not carry a role.
type Claims struct {
	jwt.RegisteredClaims

	StationID     string    `json:"station_id"`
	AccessPointID string    `json:"access_point_id,omitempty"`
	Role          string    `json:"role,omitempty"`
	TokenType     TokenType `json:"token_type"`
}
