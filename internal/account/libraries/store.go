package libraries

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"

	"bookio-backend/internal/platform/apperr"
)

const libraryColumns = `id, name, email, cnpj, password_hash, created_at, updated_at`

type Store struct {
	db *sql.DB
}

func NewStore(conn *sql.DB) *Store { return &Store{db: conn} }

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLibrary(row rowScanner) (*Library, error) {
	var l Library
	err := row.Scan(
		&l.ID, &l.Name, &l.Email, &l.CNPJ,
		&l.PasswordHash, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (s *Store) FindByID(ctx context.Context, libraryID string) (*Library, error) {
	const q = `SELECT ` + libraryColumns + ` FROM libraries WHERE id = ?`
	l, err := scanLibrary(s.db.QueryRowContext(ctx, q, libraryID))
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("library not found")
	}
	if err != nil {
		return nil, err
	}
	return l, nil
}

func (s *Store) FindByEmail(ctx context.Context, email string) (*Library, error) {
	const q = `SELECT ` + libraryColumns + ` FROM libraries WHERE email = ?`
	l, err := scanLibrary(s.db.QueryRowContext(ctx, q, email))
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("library not found")
	}
	if err != nil {
		return nil, err
	}
	return l, nil
}

func (s *Store) Create(ctx context.Context, l *Library) error {
	const q = `
	INSERT INTO libraries (id, name, email, cnpj, password_hash, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, q,
		l.ID, l.Name, l.Email, l.CNPJ, l.PasswordHash, l.CreatedAt, l.UpdatedAt,
	)
	if isDuplicateEntry(err) {
		return apperr.Conflict("email or cnpj already registered")
	}
	return err
}

func (s *Store) Save(ctx context.Context, l *Library) error {
	const q = `
	UPDATE libraries SET name = ?, email = ?, password_hash = ?, updated_at = ? WHERE id = ?`

	_, err := s.db.ExecContext(ctx, q,
		l.Name, l.Email, l.PasswordHash, l.UpdatedAt, l.ID,
	)
	if isDuplicateEntry(err) {
		return apperr.Conflict("email already registered")
	}
	return err
}

func (s *Store) Delete(ctx context.Context, libraryID string) error {
	const q = `DELETE FROM libraries WHERE id = ?`
	res, err := s.db.ExecContext(ctx, q, libraryID)
	if err != nil {
		return err
	}
	if aff, _ := res.RowsAffected(); aff == 0 {
		return apperr.NotFound("library not found")
	}
	return nil
}

func isDuplicateEntry(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}
