// Package service contains the application services of the recipe catalog.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"

	pkgcrypto "github.com/and161185/slushbook/internal/crypto"
	"github.com/and161185/slushbook/internal/errs"
	"github.com/and161185/slushbook/internal/model"
	"github.com/and161185/slushbook/internal/repository"
)

// MinPasswordLen is the shortest accepted password.
const MinPasswordLen = 8

// RegisterInput is a sign-up request.
type RegisterInput struct {
	Email    string
	Name     string
	Password string
	Country  string
}

// AuthService is the auth collaborator: accounts, sessions as signed tokens.
type AuthService interface {
	// Register creates a guest account.
	Register(ctx context.Context, in RegisterInput) (*model.User, error)
	// Login checks credentials and issues an access token.
	Login(ctx context.Context, email, password string) (model.Tokens, model.User, error)
	// Authenticate verifies a token and loads its user.
	Authenticate(ctx context.Context, token string) (*model.User, time.Time, error)
}

type AuthServiceImpl struct {
	users     repository.UserRepository
	signKey   []byte
	accessTTL time.Duration
}

// NewAuthService constructs AuthService with required dependencies.
func NewAuthService(users repository.UserRepository, signKey []byte, accessTTL time.Duration) *AuthServiceImpl {
	return &AuthServiceImpl{users: users, signKey: signKey, accessTTL: accessTTL}
}

func normalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// Register creates a new user record with a per-user salt. New accounts start as guests.
func (s *AuthServiceImpl) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	email := normalizeEmail(in.Email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, errs.Invalid("email", "not a valid address")
	}
	if len(in.Password) < MinPasswordLen {
		return nil, errs.Invalid("password", fmt.Sprintf("at least %d characters", MinPasswordLen))
	}
	country := strings.ToUpper(strings.TrimSpace(in.Country))
	if country != "" && len(country) != 2 {
		return nil, errs.Invalid("country", "ISO-3166 alpha-2 code expected")
	}
	uid, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	hash, salt, err := pkgcrypto.NewPasswordHash(in.Password)
	if err != nil {
		return nil, err
	}
	u := &model.User{
		ID:        uid.String(),
		Email:     email,
		Name:      strings.TrimSpace(in.Name),
		Role:      model.RoleGuest,
		Country:   country,
		PwdHash:   hash,
		SaltAuth:  salt,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Login authenticates by email and password. Unknown users and wrong passwords are
// indistinguishable to the caller.
func (s *AuthServiceImpl) Login(ctx context.Context, email, password string) (model.Tokens, model.User, error) {
	u, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return model.Tokens{}, model.User{}, errs.ErrNotAuthenticated
		}
		return model.Tokens{}, model.User{}, err
	}
	if !pkgcrypto.VerifyPassword([]byte(password), u.SaltAuth, u.PwdHash) {
		return model.Tokens{}, model.User{}, errs.ErrNotAuthenticated
	}

	access, exp, err := s.issueAccessToken(u.ID)
	if err != nil {
		return model.Tokens{}, model.User{}, err
	}
	return model.Tokens{AccessToken: access, ExpiresAt: exp}, *u, nil
}

// issueAccessToken creates a signed HS256 JWT for the given subject.
func (s *AuthServiceImpl) issueAccessToken(userID string) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(s.accessTTL)
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(s.signKey)
	return signed, exp, err
}

// Authenticate verifies an HS256 token and returns its user and the session expiry.
// The user is reloaded so role changes apply to live sessions.
func (s *AuthServiceImpl) Authenticate(ctx context.Context, token string) (*model.User, time.Time, error) {
	var claims jwt.RegisteredClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return s.signKey, nil
	}, jwt.WithLeeway(30*time.Second))
	if err != nil || !parsed.Valid {
		return nil, time.Time{}, errs.ErrNotAuthenticated
	}
	if claims.Subject == "" || claims.ExpiresAt == nil {
		return nil, time.Time{}, errs.ErrNotAuthenticated
	}
	u, err := s.users.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, time.Time{}, errs.ErrNotAuthenticated
		}
		return nil, time.Time{}, err
	}
	return u, claims.ExpiresAt.Time, nil
}
