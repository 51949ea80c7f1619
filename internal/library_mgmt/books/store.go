package books

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"

	"bookio-backend/internal/platform/apperr"
)

const bookColumns = `id, library_id, author, title, image_url, gender, year, available, total_loans, created_at, updated_at`

type Store struct {
	db *sql.DB
}

func NewStore(conn *sql.DB) *Store { return &Store{db: conn} }

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBook(row rowScanner) (*Book, error) {
	var b Book
	err := row.Scan(
		&b.ID, &b.LibraryID, &b.Author, &b.Title, &b.ImageURL,
		&b.Gender, &b.Year, &b.Available, &b.TotalLoans,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *Store) FindByID(ctx context.Context, bookID string) (*Book, error) {
	const q = `SELECT ` + bookColumns + ` FROM books WHERE id = ?`
	b, err := scanBook(s.db.QueryRowContext(ctx, q, bookID))
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("book not found")
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (s *Store) FindByTitle(ctx context.Context, title, libraryID string) (*Book, error) {
	const q = `SELECT ` + bookColumns + ` FROM books WHERE title = ? AND library_id = ?`
	b, err := scanBook(s.db.QueryRowContext(ctx, q, title, libraryID))
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("book not found")
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (s *Store) FindByLibraryID(ctx context.Context, libraryID string) ([]Book, error) {
	const q = `SELECT ` + bookColumns + ` FROM books WHERE library_id = ? ORDER BY title`
	return s.queryBooks(ctx, q, libraryID)
}

func (s *Store) FindByGender(ctx context.Context, libraryID string, gender Gender) ([]Book, error) {
	const q = `SELECT ` + bookColumns + ` FROM books WHERE library_id = ? AND gender = ? ORDER BY title`
	return s.queryBooks(ctx, q, libraryID, string(gender))
}

// FindMostBorrowed: total_loans 降順の上位N冊
func (s *Store) FindMostBorrowed(ctx context.Context, libraryID string, limit int) ([]Book, error) {
	const q = `SELECT ` + bookColumns + ` FROM books WHERE library_id = ? ORDER BY total_loans DESC, title LIMIT ?`
	return s.queryBooks(ctx, q, libraryID, limit)
}

func (s *Store) queryBooks(ctx context.Context, q string, args ...any) ([]Book, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func (s *Store) Create(ctx context.Context, b *Book) error {
	const q = `
	INSERT INTO books
	(id, library_id, author, title, image_url, gender, year, available, total_loans, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, q,
		b.ID, b.LibraryID, b.Author, b.Title, b.ImageURL,
		string(b.Gender), b.Year, b.Available, b.TotalLoans,
		b.CreatedAt, b.UpdatedAt,
	)
	if isDuplicateEntry(err) {
		return apperr.Conflict("book title already exists in this library")
	}
	return err
}

func (s *Store) Save(ctx context.Context, b *Book) error {
	const q = `
	UPDATE books
	SET author = ?, title = ?, image_url = ?, gender = ?, year = ?, available = ?, total_loans = ?, updated_at = ?
	WHERE id = ?`

	res, err := s.db.ExecContext(ctx, q,
		b.Author, b.Title, b.ImageURL, string(b.Gender), b.Year,
		b.Available, b.TotalLoans, b.UpdatedAt, b.ID,
	)
	if isDuplicateEntry(err) {
		return apperr.Conflict("book title already exists in this library")
	}
	if err != nil {
		return err
	}
	if aff, _ := res.RowsAffected(); aff == 0 {
		// 変更なしの場合も0になるが、存在確認はサービス層で済んでいる前提
		return nil
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, bookID, libraryID string) error {
	const q = `DELETE FROM books WHERE id = ? AND library_id = ?`
	res, err := s.db.ExecContext(ctx, q, bookID, libraryID)
	if err != nil {
		return err
	}
	if aff, _ := res.RowsAffected(); aff == 0 {
		return apperr.NotFound("book not found")
	}
	return nil
}

// MySQL error 1062: duplicate entry for unique key
func isDuplicateEntry(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}
