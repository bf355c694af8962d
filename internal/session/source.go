// Package session resolves the authenticated identity from bearer
// tokens. The wizard core only reads the resulting user and reacts to
// presence and verification transitions.
package session

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"founderframe/internal/model"
)

// Source validates identity-provider JWTs and extracts the user.
type Source struct {
	secret []byte
}

func NewSource(secret string) *Source {
	return &Source{secret: []byte(secret)}
}

// FromToken parses and validates a bearer token. HMAC signatures only;
// the sub claim is required, name/email/email_verified are optional.
func (s *Source) FromToken(tokenString string) (*model.User, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("unexpected claims type")
	}

	if exp, ok := claims["exp"].(float64); ok {
		if time.Now().Unix() > int64(exp) {
			return nil, fmt.Errorf("token expired")
		}
	}

	userID, _ := claims["sub"].(string)
	if userID == "" {
		return nil, fmt.Errorf("user ID not found in token")
	}

	user := &model.User{ID: userID}
	if name, ok := claims["name"].(string); ok {
		user.Name = name
	}
	if email, ok := claims["email"].(string); ok {
		user.Email = email
	}
	if verified, ok := claims["email_verified"].(bool); ok {
		user.EmailVerified = verified
	}
	return user, nil
}
