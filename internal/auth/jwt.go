package auth

import (
	"errors"
	"time"

	"access-platform/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type Manager struct {
	secret     []byte
	issuer     string
	audience   string
	stationTTL time.Duration
	panelTTL   time.Duration
}

func NewManager(cfg config.AuthConfig) (*Manager, error) {
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	return &Manager{
		secret:     []byte(cfg.JWTSecret),
		issuer:     cfg.JWTIssuer,
		audience:   cfg.JWTAudience,
		stationTTL: cfg.StationTokenTTL,
		panelTTL:   cfg.PanelTokenTTL,
	}, nil
}

/* ===================== ISSUE TOKENS ===================== */

// IssueStation issues a short-lived token for an interactive station.
func (m *Manager) IssueStation(now time.Time, stationID, accessPointID, role string) (string, error) {
	if role == "" {
		return "", errors.New("station tokens require a role")
	}
	return m.issue(now, TokenTypeStation, stationID, accessPointID, role, m.stationTTL)
}

// IssuePanel issues a long-lived token for a hardware panel. Panel tokens
// carry no role; the panel routes only reach the ingest surface.
func (m *Manager) IssuePanel(now time.Time, panelID, accessPointID string) (string, error) {
	return m.issue(now, TokenTypePanel, panelID, accessPointID, "", m.panelTTL)
}

/* ===================== VERIFY TOKEN ===================== */

func (m *Manager) Verify(tokenString string, expected TokenType, now time.Time) (Claims, error) {
	var claims Claims

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
	)

	_, err := parser.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		return m.secret, nil
	})
	if err != nil {
		return Claims{}, err
	}

	// Build ONE validator
	opts := []jwt.ParserOption{
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithLeeway(30 * time.Second), // clock skew tolerance
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
	}

	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}
	if m.audience != "" {
		opts = append(opts, jwt.WithAudience(m.audience))
	}

	validator := jwt.NewValidator(opts...)
	if err := validator.Validate(claims.RegisteredClaims); err != nil {
		return Claims{}, err
	}

	// Custom claims validation
	if claims.TokenType != expected {
		return Claims{}, errors.New("token_type mismatch")
	}
	if claims.StationID == "" {
		return Claims{}, errors.New("station_id missing")
	}

	// Role is required ONLY for station tokens
	if expected == TokenTypeStation && claims.Role == "" {
		return Claims{}, errors.New("role missing in station token")
	}

	return claims, nil
}

/* ===================== INTERNAL ISSUE ===================== */

func (m *Manager) issue(
	now time.Time,
	tokenType TokenType,
	stationID,
	accessPointID,
	role string,
	ttl time.Duration,
) (string, error) {

	jti := uuid.NewString()

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Audience:  audienceOrNil(m.audience),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        jti,
		},
		StationID:     stationID,
		AccessPointID: accessPointID,
		Role:          role,
		TokenType:     tokenType,
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(m.secret)
}

func audienceOrNil(aud string) jwt.ClaimStrings {
	if aud == "" {
		return nil
	}
	return jwt.ClaimStrings{aud}
}
