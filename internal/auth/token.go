package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/staff-academy/course-platform/internal/models"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims is the session identity carried by every token
type Claims struct {
	UserID    string `json:"id"`
	Username  string `json:"username"`
	Name      string `json:"name"`
	DiscordID string `json:"discord_id,omitempty"`
	Ephemeral bool   `json:"eph,omitempty"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and validates HS256 session tokens. A zero ttl issues
// tokens without expiry.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue mints a token for user
func (i *TokenIssuer) Issue(user *models.User) (string, error) {
	now := i.now()
	claims := &Claims{
		UserID:    user.ID,
		Username:  user.DisplayUsername(),
		Name:      user.Name,
		Ephemeral: user.Ephemeral,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  user.ID,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if user.DiscordID != nil {
		claims.DiscordID = *user.DiscordID
	}
	if i.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(i.ttl))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse validates signature, method and expiry. Every failure wraps ErrInvalidToken.
func (i *TokenIssuer) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(i.now))
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, fmt.Errorf("%w: token has expired", ErrInvalidToken)
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, fmt.Errorf("%w: invalid signature", ErrInvalidToken)
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, fmt.Errorf("%w: malformed token", ErrInvalidToken)
		default:
			return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
		}
	}
	if !token.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
