package sessions

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/occuhealth/ehr-platform/internal/auth"
)

// Claims bind a JWT to its server-side session. Role rides in the token so
// the middleware can build the actor without a user lookup, but the session
// record stays authoritative.
type Claims struct {
	Role      auth.Role `json:"role"`
	SessionID string    `json:"sid"`
	jwt.RegisteredClaims
}

// IssueToken signs an HS256 token for the session.
func IssueToken(secret string, sess *Session) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("sessions: signing secret is empty")
	}
	claims := Claims{
		Role:      sess.Role,
		SessionID: sess.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sess.UserID,
			IssuedAt:  jwt.NewNumericDate(sess.CreatedAt),
			ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseToken validates the signature and expiry and returns the claims.
func ParseToken(secret, tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	}, jwt.WithLeeway(30*time.Second))
	if err != nil {
		return nil, fmt.Errorf("sessions: parse token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("sessions: token invalid")
	}
	return claims, nil
}
