package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"pollboard-backend/models"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Provider is the identity collaborator boundary: credential checks, session
// issuance and lookup. The rest of the server only talks to it through the
// Gateway.
type Provider interface {
	SignIn(ctx context.Context, email, password string) (*models.Session, error)
	SignUp(ctx context.Context, name, email, password string) (*models.Session, error)
	SignOut(ctx context.Context, token string) error
	SessionByToken(ctx context.Context, token string) (*models.Session, error)
	Refresh(ctx context.Context, token string) (*models.Session, error)
	UserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UserByEmail(ctx context.Context, email string) (*models.User, error)
}

// GormProvider implements Provider on the relational store with bcrypt
// password hashing and opaque random session tokens.
type GormProvider struct {
	db         *gorm.DB
	bcryptCost int
	sessionTTL time.Duration
}

// NewGormProvider builds a provider. sessionTTL is the rolling expiry window;
// the absolute 24h session-age cap is enforced by the middleware, not here.
func NewGormProvider(db *gorm.DB, bcryptCost int, sessionTTL time.Duration) *GormProvider {
	return &GormProvider{db: db, bcryptCost: bcryptCost, sessionTTL: sessionTTL}
}

func (p *GormProvider) SignIn(ctx context.Context, email, password string) (*models.Session, error) {
	var user models.User
	err := p.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Burn a hash comparison anyway so the timing of the two
			// failure paths stays comparable.
			_ = bcrypt.CompareHashAndPassword([]byte("$2a$10$7EqJtq98hPqEX7fNZaFWoOhi5B4Vn3aOZ5cPJ/VHhWJ3bVz1rK0fK"), []byte(password))
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("look up user: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return p.createSession(ctx, user)
}

func (p *GormProvider) SignUp(ctx context.Context, name, email, password string) (*models.Session, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := models.User{
		Email:        email,
		Name:         name,
		PasswordHash: string(hash),
	}
	if err := p.db.WithContext(ctx).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return p.createSession(ctx, user)
}

func (p *GormProvider) SignOut(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := p.db.WithContext(ctx).Where("token = ?", token).Delete(&models.Session{}).Error; err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (p *GormProvider) SessionByToken(ctx context.Context, token string) (*models.Session, error) {
	if token == "" {
		return nil, ErrSessionNotFound
	}
	var session models.Session
	err := p.db.WithContext(ctx).Preload("User").Where("token = ?", token).First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("look up session: %w", err)
	}
	if time.Now().After(session.ExpiresAt) {
		return nil, ErrSessionNotFound
	}
	return &session, nil
}

// Refresh slides the session's rolling expiry. It must be called before any
// other per-request session logic so the cookie the client gets back always
// reflects the refreshed state.
func (p *GormProvider) Refresh(ctx context.Context, token string) (*models.Session, error) {
	session, err := p.SessionByToken(ctx, token)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	session.RefreshedAt = now
	session.ExpiresAt = now.Add(p.sessionTTL)
	if err := p.db.WithContext(ctx).Model(&models.Session{}).
		Where("id = ?", session.ID).
		Updates(map[string]interface{}{"refreshed_at": session.RefreshedAt, "expires_at": session.ExpiresAt}).Error; err != nil {
		return nil, fmt.Errorf("refresh session: %w", err)
	}
	return session, nil
}

func (p *GormProvider) UserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	err := p.db.WithContext(ctx).First(&user, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gorm.ErrRecordNotFound
		}
		return nil, fmt.Errorf("look up user: %w", err)
	}
	return &user, nil
}

func (p *GormProvider) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := p.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (p *GormProvider) createSession(ctx context.Context, user models.User) (*models.Session, error) {
	token, err := generateToken()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	session := models.Session{
		UserID:      user.ID,
		Token:       token,
		CreatedAt:   now,
		RefreshedAt: now,
		ExpiresAt:   now.Add(p.sessionTTL),
	}
	if err := p.db.WithContext(ctx).Create(&session).Error; err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	session.User = user
	return &session, nil
}

// generateToken returns a 256-bit random token, base64url without padding.
func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
