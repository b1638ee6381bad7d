package utils

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"telemed-server/internal/config"
	"telemed-server/internal/models"
)

// Claims represents the JWT claims.
type Claims struct {
	UserID string      `json:"user_id"`
	Name   string      `json:"name"`
	Role   models.Role `json:"role"`
	jwt.RegisteredClaims
}

// RoomClaims authorize one participant to join one consultation session.
type RoomClaims struct {
	ConsultationID string      `json:"consultation_id"`
	SessionID      string      `json:"session_id"`
	UserID         string      `json:"user_id"`
	Role           models.Role `json:"role"`
	jwt.RegisteredClaims
}

// GenerateAccessToken signs an access token for the user.
func GenerateAccessToken(user *models.User, cfg *config.Config) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: user.ID,
		Name:   user.FullName(),
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(cfg.JWTExpirationMinutes) * time.Minute)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   user.ID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return tokenString, nil
}

// GenerateRoomToken signs a short-lived token the video/chat service checks
// before admitting a participant to sessionID.
func GenerateRoomToken(consultationID, sessionID, userID string, role models.Role, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &RoomClaims{
		ConsultationID: consultationID,
		SessionID:      sessionID,
		UserID:         userID,
		Role:           role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   userID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign room token: %w", err)
	}
	return tokenString, nil
}

// ValidateToken validates a JWT token.
func ValidateToken(tokenString string, secretKey string) (*Claims, error) {
	claims := &Claims{}
	if err := parse(tokenString, secretKey, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// ValidateRoomToken validates a token issued by GenerateRoomToken.
func ValidateRoomToken(tokenString string, secretKey string) (*RoomClaims, error) {
	claims := &RoomClaims{}
	if err := parse(tokenString, secretKey, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

func parse(tokenString, secretKey string, claims jwt.Claims) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secretKey), nil
	})
	if err != nil {
		return fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid {
		return fmt.Errorf("invalid token")
	}
	return nil
}
