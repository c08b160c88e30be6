package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bitwise74/filehub-api/internal/apperr"
	"bitwise74/filehub-api/internal/identity"
	"bitwise74/filehub-api/internal/model"
	"bitwise74/filehub-api/internal/notify"
	"bitwise74/filehub-api/pkg/security"
	"bitwise74/filehub-api/pkg/util"
	"bitwise74/filehub-api/pkg/validators"

	"gorm.io/gorm"
)

const (
	verifyTokenTTL     = 30 * time.Minute
	verifyTokenCleanup = 60 * 24 * time.Hour
	unverifiedTTL      = 7 * 24 * time.Hour
)

type Accounts struct {
	DB         *gorm.DB
	Argon      *security.ArgonHash
	Tokens     *identity.JWTResolver
	Mail       *notify.Dispatcher
	MaxStorage int64
}

func NewAccounts(db *gorm.DB, argon *security.ArgonHash, tokens *identity.JWTResolver, mail *notify.Dispatcher, maxStorage int64) *Accounts {
	return &Accounts{
		DB:         db,
		Argon:      argon,
		Tokens:     tokens,
		Mail:       mail,
		MaxStorage: maxStorage,
	}
}

// Register creates an unverified account and mails its verification link.
// The account is only kept if the mail was handed to the transport
func (s *Accounts) Register(ctx context.Context, email, password string) (*model.User, error) {
	email, err := validators.NormalizeEmail(email)
	if err != nil {
		return nil, apperr.BadRequest(err.Error())
	}

	if err := validators.PasswordValidator(password); err != nil {
		return nil, apperr.BadRequest(err.Error())
	}

	if err := s.ensureFree(ctx, email); err != nil {
		return nil, err
	}

	hash, err := s.Argon.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password, %w", err)
	}

	userID := util.NewID()
	expireAt := time.Now().Add(verifyTokenTTL)
	cleanAt := time.Now().Add(verifyTokenCleanup)

	token, err := security.MakeVerificationToken(&security.VerificationTokenOpts{
		UserID:    userID,
		Purpose:   security.PurposeEmailVerify,
		ExpiresAt: &expireAt,
		CleanupAt: &cleanAt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate verification token, %w", err)
	}

	expiry := time.Now().Add(unverifiedTTL)
	user := &model.User{
		ID:           userID,
		Email:        email,
		ExpiresAt:    &expiry,
		PasswordHash: hash,
		Stats: model.Stats{
			UserID:     userID,
			MaxStorage: s.MaxStorage,
		},
		VerificationTokens: []model.VerificationToken{*token},
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return fmt.Errorf("failed to create user, %w", err)
		}

		if err := s.Mail.SendVerification(ctx, email, userID, token.Token); err != nil {
			return fmt.Errorf("failed to send verification email, %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return user, nil
}

// CreateAdmin creates a verified administrator account. Used by the
// create-admin command
func (s *Accounts) CreateAdmin(ctx context.Context, email, name, password string) (*model.User, error) {
	email, err := validators.NormalizeEmail(email)
	if err != nil {
		return nil, apperr.BadRequest(err.Error())
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.BadRequest("No name provided")
	}

	if err := validators.PasswordValidator(password); err != nil {
		return nil, apperr.BadRequest(err.Error())
	}

	if err := s.ensureFree(ctx, email); err != nil {
		return nil, err
	}

	hash, err := s.Argon.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password, %w", err)
	}

	userID := util.NewID()
	user := &model.User{
		ID:           userID,
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		Verified:     true,
		Admin:        true,
		Stats: model.Stats{
			UserID:     userID,
			MaxStorage: s.MaxStorage,
		},
	}

	if err := s.DB.WithContext(ctx).Create(user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user, %w", err)
	}

	return user, nil
}

func (s *Accounts) ensureFree(ctx context.Context, email string) error {
	var count int64

	err := s.DB.WithContext(ctx).
		Model(model.User{}).
		Where("email = ?", email).
		Count(&count).
		Error
	if err != nil {
		return fmt.Errorf("failed to check if user is registered, %w", err)
	}

	if count > 0 {
		return apperr.Conflict("This email is already registered. Please login or use a different email")
	}

	return nil
}

// Login checks the credentials and returns a signed auth token
func (s *Accounts) Login(ctx context.Context, email, password string) (*model.User, string, error) {
	if email == "" || password == "" {
		return nil, "", apperr.BadRequest("Email and password are required")
	}

	var user model.User

	err := s.DB.WithContext(ctx).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&user).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", invalidCredentials()
		}

		return nil, "", fmt.Errorf("failed to look up user, %w", err)
	}

	ok, err := s.Argon.Verify(password, user.PasswordHash)
	if err != nil {
		return nil, "", fmt.Errorf("failed to verify password, %w", err)
	}

	if !ok {
		return nil, "", invalidCredentials()
	}

	token, err := s.Tokens.Issue(&user)
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate auth token, %w", err)
	}

	return &user, token, nil
}

func invalidCredentials() error {
	return &apperr.Error{Err: apperr.ErrUnauthenticated, Message: "Invalid credentials"}
}

// Verify consumes an email verification token and marks the account verified
func (s *Accounts) Verify(ctx context.Context, userID, token string) error {
	if userID == "" || token == "" {
		return apperr.BadRequest("User ID and token are required")
	}

	var vt model.VerificationToken

	err := s.DB.WithContext(ctx).
		Where("user_id = ? AND token = ? AND purpose = ?", userID, token, security.PurposeEmailVerify).
		First(&vt).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("verification token", token)
		}

		return fmt.Errorf("failed to get verification token record, %w", err)
	}

	if vt.Used {
		return apperr.BadRequest("Token was used already")
	}

	if vt.ExpiresAt.Before(time.Now()) {
		return apperr.BadRequest("Token expired")
	}

	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&vt).
			Updates(map[string]any{
				"used":    true,
				"used_at": time.Now(),
			}).Error; err != nil {
			return err
		}

		return tx.Model(&model.User{}).
			Where("id = ?", userID).
			Updates(map[string]any{
				"verified":   true,
				"expires_at": nil,
			}).Error
	})
}

// Profile returns the caller's account and quota usage
func (s *Accounts) Profile(ctx context.Context, caller identity.Caller) (*model.User, *model.Stats, error) {
	if err := requireCaller(caller); err != nil {
		return nil, nil, err
	}

	var user model.User

	err := s.DB.WithContext(ctx).
		Where("id = ?", caller.ID).
		First(&user).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, apperr.NotFound("user", caller.ID)
		}

		return nil, nil, fmt.Errorf("failed to load user, %w", err)
	}

	stats := model.Stats{UserID: user.ID, MaxStorage: s.MaxStorage}

	err = s.DB.WithContext(ctx).
		Where("user_id = ?", user.ID).
		FirstOrCreate(&stats).
		Error
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load stats, %w", err)
	}

	return &user, &stats, nil
}
