// Package identity resolves request credentials to the caller every service
// operation receives explicitly
package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitwise74/filehub-api/internal/apperr"
	"bitwise74/filehub-api/internal/model"

	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"
)

// Caller is an authenticated user with a verified email
type Caller struct {
	ID    string
	Email string
	Admin bool
}

func (c Caller) Authenticated() bool {
	return c.ID != "" && c.Email != ""
}

type Resolver interface {
	Resolve(ctx context.Context, token string) (Caller, error)
}

type JWTResolver struct {
	DB     *gorm.DB
	Secret []byte
	TTL    time.Duration
}

func NewJWTResolver(db *gorm.DB, secret string, ttl time.Duration) *JWTResolver {
	return &JWTResolver{DB: db, Secret: []byte(secret), TTL: ttl}
}

// Issue signs an auth token for u
func (r *JWTResolver) Issue(u *model.User) (string, error) {
	now := time.Now()

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": u.ID,
		"type":    "auth",
		"iat":     now.Unix(),
		"exp":     now.Add(r.TTL).Unix(),
	})

	return t.SignedString(r.Secret)
}

// Resolve validates token and loads the user it names. Deleted users and
// users that never verified their email are rejected.
func (r *JWTResolver) Resolve(ctx context.Context, token string) (Caller, error) {
	if token == "" {
		return Caller{}, apperr.Unauthenticated()
	}

	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		return r.Secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return Caller{}, apperr.Unauthenticated()
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return Caller{}, apperr.Unauthenticated()
	}

	if typ, _ := claims["type"].(string); typ != "auth" {
		return Caller{}, apperr.Unauthenticated()
	}

	userID, _ := claims["user_id"].(string)
	if userID == "" {
		return Caller{}, apperr.Unauthenticated()
	}

	var user model.User
	err = r.DB.WithContext(ctx).
		Where("id = ?", userID).
		First(&user).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Caller{}, apperr.Unauthenticated()
		}

		return Caller{}, fmt.Errorf("failed to load user, %w", err)
	}

	if !user.Verified {
		return Caller{}, apperr.Forbidden("Please verify your account before using the service")
	}

	return Caller{ID: user.ID, Email: user.Email, Admin: user.Admin}, nil
}
