package readers

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"

	"bookio-backend/internal/platform/apperr"
)

const readerColumns = `id, library_id, name, email, cpf, password_hash, picture_url, active, suspense, created_at, updated_at`

type Store struct {
	db *sql.DB
}

func NewStore(conn *sql.DB) *Store { return &Store{db: conn} }

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReader(row rowScanner) (*Reader, error) {
	var r Reader
	err := row.Scan(
		&r.ID, &r.LibraryID, &r.Name, &r.Email, &r.CPF,
		&r.PasswordHash, &r.PictureURL, &r.Active, &r.Suspense,
		&r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) FindByID(ctx context.Context, readerID string) (*Reader, error) {
	const q = `SELECT ` + readerColumns + ` FROM readers WHERE id = ?`
	r, err := scanReader(s.db.QueryRowContext(ctx, q, readerID))
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("reader not found")
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Store) FindByEmail(ctx context.Context, email string) (*Reader, error) {
	const q = `SELECT ` + readerColumns + ` FROM readers WHERE email = ?`
	r, err := scanReader(s.db.QueryRowContext(ctx, q, email))
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("reader not found")
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Store) FindByLibraryID(ctx context.Context, libraryID string) ([]Reader, error) {
	const q = `SELECT ` + readerColumns + ` FROM readers WHERE library_id = ? ORDER BY name`
	rows, err := s.db.QueryContext(ctx, q, libraryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Reader
	for rows.Next() {
		r, err := scanReader(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func (s *Store) Create(ctx context.Context, r *Reader) error {
	const q = `
	INSERT INTO readers
	(id, library_id, name, email, cpf, password_hash, picture_url, active, suspense, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, q,
		r.ID, r.LibraryID, r.Name, r.Email, r.CPF,
		r.PasswordHash, r.PictureURL, r.Active, r.Suspense,
		r.CreatedAt, r.UpdatedAt,
	)
	if isDuplicateEntry(err) {
		return apperr.Conflict("email or cpf already registered")
	}
	return err
}

func (s *Store) Save(ctx context.Context, r *Reader) error {
	const q = `
	UPDATE readers
	SET name = ?, email = ?, cpf = ?, password_hash = ?, picture_url = ?, active = ?, suspense = ?, updated_at = ?
	WHERE id = ?`

	_, err := s.db.ExecContext(ctx, q,
		r.Name, r.Email, r.CPF, r.PasswordHash,
		r.PictureURL, r.Active, r.Suspense, r.UpdatedAt, r.ID,
	)
	if isDuplicateEntry(err) {
		return apperr.Conflict("email or cpf already registered")
	}
	return err
}

func (s *Store) Delete(ctx context.Context, readerID, libraryID string) error {
	const q = `DELETE FROM readers WHERE id = ? AND library_id = ?`
	res, err := s.db.ExecContext(ctx, q, readerID, libraryID)
	if err != nil {
		return err
	}
	if aff, _ := res.RowsAffected(); aff == 0 {
		return apperr.NotFound("reader not found")
	}
	return nil
}

// IncrementSuspense は読み込み→書き込みを挟まず1文で加算する。
// ペナルティ監視ループが並行に走っても取りこぼさない。
func (s *Store) IncrementSuspense(ctx context.Context, readerID string, by int) error {
	const q = `UPDATE readers SET suspense = suspense + ?, updated_at = NOW() WHERE id = ?`
	res, err := s.db.ExecContext(ctx, q, by, readerID)
	if err != nil {
		return err
	}
	if aff, _ := res.RowsAffected(); aff == 0 {
		return apperr.NotFound("reader not found")
	}
	return nil
}

func isDuplicateEntry(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}
