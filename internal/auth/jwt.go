package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// tokenLifetime matches the long-lived access tokens this gateway issues.
const tokenLifetime = 30 * 24 * time.Hour

// GenerateToken creates an HS256 access token for a username and returns the
// signed token plus its expiry as a unix timestamp.
func GenerateToken(username string, secret []byte) (string, int64, error) {
	expiresAt := time.Now().Add(tokenLifetime).Unix()
	claims := jwt.MapClaims{
		"sub": username,
		"exp": expiresAt,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(secret)
	if err != nil {
		return "", 0, err
	}
	return signed, expiresAt, nil
}

// ParseToken verifies a token and returns the username it was issued to.
func ParseToken(tokenString string, secret []byte) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", errors.New("invalid token")
	}
	username, _ := claims["sub"].(string)
	if username == "" {
		return "", errors.New("token missing subject")
	}
	return username, nil
}
