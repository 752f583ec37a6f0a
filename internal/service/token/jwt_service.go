package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// Claims are the authenticated caller's identity extracted from a token.
type Claims struct {
	UserID    string
	SessionID string
}

// JWTService issues and validates HS256 access tokens.
type JWTService struct {
	secret []byte
	ttl    time.Duration
}

func NewJWTService(secret string, ttl time.Duration) (*JWTService, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	return &JWTService{secret: []byte(secret), ttl: ttl}, nil
}

// Generate signs an access token for the user.
func (s *JWTService) Generate(claims Claims) (string, error) {
	now := time.Now()
	tokenClaims := jwt.MapClaims{
		"user_id": claims.UserID,
		"exp":     now.Add(s.ttl).Unix(),
		"iat":     now.Unix(),
		"type":    "access",
	}
	if claims.SessionID != "" {
		tokenClaims["session_id"] = claims.SessionID
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, nil
}

// Validate parses and verifies an access token.
func (s *JWTService) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	userID, ok := mapClaims["user_id"].(string)
	if !ok || userID == "" {
		return nil, ErrInvalidToken
	}

	tokenType, ok := mapClaims["type"].(string)
	if !ok || tokenType != "access" {
		return nil, ErrInvalidToken
	}

	claims := &Claims{UserID: userID}
	if sid, ok := mapClaims["session_id"].(string); ok {
		claims.SessionID = sid
	}
	return claims, nil
}
