package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"liyu1981.xyz/greenhouse-telemetry/pkg/models"
)

var ErrInvalidToken = errors.New("invalid or expired token")

type Claims struct {
	UserID   uint        `json:"user_id"`
	Username string      `json:"username"`
	Role     models.Role `json:"role"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies HS256 session tokens.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	Now    func() time.Time
}

func NewIssuer(secret []byte, ttl time.Duration) *Issuer {
	return &Issuer{secret: secret, ttl: ttl, Now: time.Now}
}

func (i *Issuer) Issue(user *models.User) (string, time.Time, error) {
	now := i.Now()
	expiresAt := now.Add(i.ttl)

	claims := Claims{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprint(user.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

func (i *Issuer) Parse(token string) (models.Caller, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return i.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.Now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return models.Caller{}, ErrInvalidToken
	}

	switch claims.Role {
	case models.RoleAdmin, models.RoleStaff, models.RoleUser:
	default:
		return models.Caller{}, ErrInvalidToken
	}

	return models.Caller{UserID: claims.UserID, Username: claims.Username, Role: claims.Role}, nil
}
