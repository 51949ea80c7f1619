package auth

import (
	"context"
	"database/sql"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"bookio-backend/internal/platform/apperr"
	"bookio-backend/internal/platform/ident"
)

type AccountStore interface {
	FindByEmail(ctx context.Context, email string) (*Account, error)
}

type Service struct {
	store  AccountStore
	secret []byte
	expiry time.Duration
	clock  ident.Clock
}

func NewService(conn *sql.DB, secret []byte, expiry time.Duration) *Service {
	return NewServiceWith(NewStore(conn), secret, expiry, ident.RealClock{})
}

func NewServiceWith(store AccountStore, secret []byte, expiry time.Duration, clock ident.Clock) *Service {
	return &Service{store: store, secret: secret, expiry: expiry, clock: clock}
}

type Session struct {
	Token string `json:"token"`
	Role  string `json:"role"`
}

// Login verifies email+password and issues an HS256 token with sub/role.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	acc, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		if apperr.Is(err, apperr.CodeNotFound) {
			return nil, apperr.NotAllowed("invalid credentials")
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(password)); err != nil {
		return nil, apperr.NotAllowed("invalid credentials")
	}
	if !acc.Active {
		return nil, apperr.NotAllowed("account is deactivated")
	}

	now := s.clock.Now()
	claims := jwt.MapClaims{
		"sub":  acc.ID,
		"role": acc.Role,
		"iat":  now.Unix(),
		"exp":  now.Add(s.expiry).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, Role: acc.Role}, nil
}
