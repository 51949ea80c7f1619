package schedulings

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"

	"bookio-backend/internal/platform/apperr"
	"bookio-backend/internal/platform/db"
)

const schedulingColumns = `id, reader_id, book_id, status, expires_at, created_at, updated_at`

type Store struct {
	conn *sql.DB
}

func NewStore(conn *sql.DB) *Store { return &Store{conn: conn} }

type rowScanner interface {
	Scan(dest ...any) error
}

func scanScheduling(row rowScanner) (*Scheduling, error) {
	var s Scheduling
	err := row.Scan(
		&s.ID, &s.ReaderID, &s.BookID, &s.Status,
		&s.ExpiresAt, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Store) FindByID(ctx context.Context, schedulingID string) (*Scheduling, error) {
	const q = `SELECT ` + schedulingColumns + ` FROM schedulings WHERE id = ?`
	sc, err := scanScheduling(s.conn.QueryRowContext(ctx, q, schedulingID))
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("scheduling not found")
	}
	if err != nil {
		return nil, err
	}
	return sc, nil
}

func (s *Store) FindByReaderID(ctx context.Context, readerID string) ([]Scheduling, error) {
	const q = `SELECT ` + schedulingColumns + ` FROM schedulings WHERE reader_id = ? ORDER BY created_at DESC`
	return s.querySchedulings(ctx, q, readerID)
}

func (s *Store) FindByBookID(ctx context.Context, bookID string) ([]Scheduling, error) {
	const q = `SELECT ` + schedulingColumns + ` FROM schedulings WHERE book_id = ? ORDER BY created_at DESC`
	return s.querySchedulings(ctx, q, bookID)
}

// FindByLibraryID: 図書館の蔵書に紐づく予約を全件
func (s *Store) FindByLibraryID(ctx context.Context, libraryID string) ([]Scheduling, error) {
	const q = `
	SELECT s.id, s.reader_id, s.book_id, s.status, s.expires_at, s.created_at, s.updated_at
	FROM schedulings s
	JOIN books b ON b.id = s.book_id
	WHERE b.library_id = ?
	ORDER BY s.created_at DESC`
	return s.querySchedulings(ctx, q, libraryID)
}

func (s *Store) FindPendingByReaderAndBook(ctx context.Context, readerID, bookID string) (*Scheduling, error) {
	const q = `SELECT ` + schedulingColumns + ` FROM schedulings
	WHERE reader_id = ? AND book_id = ? AND status = 'PENDING'`
	sc, err := scanScheduling(s.conn.QueryRowContext(ctx, q, readerID, bookID))
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("scheduling not found")
	}
	if err != nil {
		return nil, err
	}
	return sc, nil
}

func (s *Store) FindPendingByBook(ctx context.Context, bookID string) ([]Scheduling, error) {
	const q = `SELECT ` + schedulingColumns + ` FROM schedulings WHERE book_id = ? AND status = 'PENDING'`
	return s.querySchedulings(ctx, q, bookID)
}

// FindExpired: TTL切れのまま PENDING の行。スイーパーが EXPIRED に倒す対象。
func (s *Store) FindExpired(ctx context.Context, now time.Time) ([]Scheduling, error) {
	const q = `SELECT ` + schedulingColumns + ` FROM schedulings WHERE status = 'PENDING' AND expires_at < ?`
	return s.querySchedulings(ctx, q, now)
}

func (s *Store) querySchedulings(ctx context.Context, q string, args ...any) ([]Scheduling, error) {
	rows, err := s.conn.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Scheduling
	for rows.Next() {
		sc, err := scanScheduling(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *sc)
	}
	return out, rows.Err()
}

// Create inserts a hold after re-checking availability and the
// one-PENDING-hold-per-(reader,book) rule under a row lock on the book.
func (s *Store) Create(ctx context.Context, sc *Scheduling) error {
	return db.RunInTx(ctx, s.conn, nil, func(ctx context.Context, tx db.DBTX) error {
		var available int
		err := tx.QueryRowContext(ctx,
			`SELECT available FROM books WHERE id = ? FOR UPDATE`, sc.BookID,
		).Scan(&available)
		if err == sql.ErrNoRows {
			return apperr.NotAllowed("book not available")
		}
		if err != nil {
			return err
		}
		if available <= 0 {
			return apperr.NotAllowed("book not available")
		}

		var existing string
		err = tx.QueryRowContext(ctx,
			`SELECT id FROM schedulings WHERE reader_id = ? AND book_id = ? AND status = 'PENDING' FOR UPDATE`,
			sc.ReaderID, sc.BookID,
		).Scan(&existing)
		if err == nil {
			return apperr.Conflict("reader already holds this book")
		}
		if err != sql.ErrNoRows {
			return err
		}

		_, err = tx.ExecContext(ctx, `
		INSERT INTO schedulings (id, reader_id, book_id, status, expires_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
			sc.ID, sc.ReaderID, sc.BookID, string(sc.Status),
			sc.ExpiresAt, sc.CreatedAt, sc.UpdatedAt,
		)
		if isDuplicateEntry(err) {
			return apperr.Conflict("reader already holds this book")
		}
		return err
	})
}

// Transition flips a PENDING hold to a terminal status. 0 rows updated
// means someone else moved it first.
func (s *Store) Transition(ctx context.Context, schedulingID string, to Status, now time.Time) error {
	const q = `UPDATE schedulings SET status = ?, updated_at = ? WHERE id = ? AND status = 'PENDING'`
	res, err := s.conn.ExecContext(ctx, q, string(to), now, schedulingID)
	if err != nil {
		return err
	}
	if aff, _ := res.RowsAffected(); aff == 0 {
		return apperr.Conflict("scheduling already settled")
	}
	return nil
}

func isDuplicateEntry(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}
