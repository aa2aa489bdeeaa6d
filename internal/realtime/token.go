package realtime

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned when a presented channel token fails
// verification.
var ErrInvalidToken = errors.New("invalid channel token")

// ChannelClaims is the payload of a channel authentication token. The token
// is minted for an already-authenticated session and presented over the
// websocket itself, so channel authentication is independent of the HTTP
// request that opened it.
type ChannelClaims struct {
	jwt.RegisteredClaims
	UserID uint64 `json:"user_id"`
}

// GenerateChannelToken signs a short-lived token binding a channel to userID.
func GenerateChannelToken(secret string, userID uint64, ttl time.Duration) (string, error) {
	claims := ChannelClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "taskboard-channel",
		},
		UserID: userID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign channel token: %w", err)
	}
	return signed, nil
}

// VerifyChannelToken validates a presented token and returns the identity it
// was minted for.
func VerifyChannelToken(secret, tokenString string) (uint64, error) {
	claims := &ChannelClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(_ *jwt.Token) (any, error) {
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return 0, ErrInvalidToken
	}
	return claims.UserID, nil
}
