package auth

import (
	"context"
	"database/sql"

	"bookio-backend/internal/platform/apperr"
)

// Account is the credential view shared by both user kinds.
type Account struct {
	ID           string
	Email        string
	PasswordHash string
	Role         string
	Active       bool
}

type Store struct {
	db *sql.DB
}

func NewStore(conn *sql.DB) *Store { return &Store{db: conn} }

// FindByEmail checks libraries first, then readers.
func (s *Store) FindByEmail(ctx context.Context, email string) (*Account, error) {
	const qLibrary = `SELECT id, email, password_hash FROM libraries WHERE email = ?`
	var a Account
	err := s.db.QueryRowContext(ctx, qLibrary, email).Scan(&a.ID, &a.Email, &a.PasswordHash)
	if err == nil {
		a.Role = RoleLibrary
		a.Active = true
		return &a, nil
	}
	if err != sql.ErrNoRows {
		return nil, err
	}

	const qReader = `SELECT id, email, password_hash, active FROM readers WHERE email = ?`
	err = s.db.QueryRowContext(ctx, qReader, email).Scan(&a.ID, &a.Email, &a.PasswordHash, &a.Active)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("user not found")
	}
	if err != nil {
		return nil, err
	}
	a.Role = RoleReader
	return &a, nil
}
