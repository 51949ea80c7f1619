package loans

import (
	"context"
	"database/sql"
	"time"

	"bookio-backend/internal/platform/apperr"
	"bookio-backend/internal/platform/db"
)

const loanColumns = `id, book_id, reader_id, return_date, due_date, actual_return_date, status, created_at, updated_at`

type Store struct {
	conn *sql.DB
}

func NewStore(conn *sql.DB) *Store { return &Store{conn: conn} }

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLoan(row rowScanner) (*Loan, error) {
	var l Loan
	err := row.Scan(
		&l.ID, &l.BookID, &l.ReaderID, &l.ReturnDate, &l.DueDate,
		&l.ActualReturnDate, &l.Status, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// FindByID は図書館スコープ付き。他館の貸出は存在しない扱い。
func (s *Store) FindByID(ctx context.Context, loanID, libraryID string) (*Loan, error) {
	const q = `
	SELECT l.id, l.book_id, l.reader_id, l.return_date, l.due_date, l.actual_return_date, l.status, l.created_at, l.updated_at
	FROM loans l
	JOIN books b ON b.id = l.book_id
	WHERE l.id = ? AND b.library_id = ?`
	l, err := scanLoan(s.conn.QueryRowContext(ctx, q, loanID, libraryID))
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("loan not found")
	}
	if err != nil {
		return nil, err
	}
	return l, nil
}

// Get はスコープなしの単純取得
func (s *Store) Get(ctx context.Context, loanID string) (*Loan, error) {
	const q = `SELECT ` + loanColumns + ` FROM loans WHERE id = ?`
	l, err := scanLoan(s.conn.QueryRowContext(ctx, q, loanID))
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("loan not found")
	}
	if err != nil {
		return nil, err
	}
	return l, nil
}

func (s *Store) FindAll(ctx context.Context) ([]Loan, error) {
	const q = `SELECT ` + loanColumns + ` FROM loans ORDER BY created_at DESC`
	return s.queryLoans(ctx, q)
}

func (s *Store) FindByLibraryID(ctx context.Context, libraryID string) ([]Loan, error) {
	const q = `
	SELECT l.id, l.book_id, l.reader_id, l.return_date, l.due_date, l.actual_return_date, l.status, l.created_at, l.updated_at
	FROM loans l
	JOIN books b ON b.id = l.book_id
	WHERE b.library_id = ?
	ORDER BY l.created_at DESC`
	return s.queryLoans(ctx, q, libraryID)
}

func (s *Store) FindByReaderID(ctx context.Context, readerID string) ([]Loan, error) {
	const q = `SELECT ` + loanColumns + ` FROM loans WHERE reader_id = ? ORDER BY created_at DESC`
	return s.queryLoans(ctx, q, readerID)
}

// FindOverdueLoans: 返却期限を過ぎたまま Borrowed の貸出。
// 督促ループは利用者に提示した return_date を基準にする。
func (s *Store) FindOverdueLoans(ctx context.Context, now time.Time) ([]Loan, error) {
	const q = `SELECT ` + loanColumns + ` FROM loans WHERE status = 'Borrowed' AND return_date < ?`
	return s.queryLoans(ctx, q, now)
}

func (s *Store) queryLoans(ctx context.Context, q string, args ...any) ([]Loan, error) {
	rows, err := s.conn.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Loan
	for rows.Next() {
		l, err := scanLoan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *l)
	}
	return out, rows.Err()
}

// CreateBorrowed は在庫の確認から減算、貸出行の挿入、予約の消し込みまでを
// 1トランザクションで行う。同じ本への同時貸出は書籍行のロックで直列化される。
func (s *Store) CreateBorrowed(ctx context.Context, l *Loan, promoteSchedulingID string) error {
	return db.RunInTx(ctx, s.conn, nil, func(ctx context.Context, tx db.DBTX) error {
		var available int
		err := tx.QueryRowContext(ctx,
			`SELECT available FROM books WHERE id = ? FOR UPDATE`, l.BookID,
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

		if _, err := tx.ExecContext(ctx,
			`UPDATE books SET available = available - 1, total_loans = total_loans + 1, updated_at = ? WHERE id = ?`,
			l.CreatedAt, l.BookID,
		); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `
		INSERT INTO loans (id, book_id, reader_id, return_date, due_date, actual_return_date, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			l.ID, l.BookID, l.ReaderID, l.ReturnDate, l.DueDate,
			l.ActualReturnDate, string(l.Status), l.CreatedAt, l.UpdatedAt,
		); err != nil {
			return err
		}

		// 自分の予約があれば同時に消し込む。別経路で先に倒れていても貸出は成立。
		if promoteSchedulingID != "" {
			if _, err := tx.ExecContext(ctx,
				`UPDATE schedulings SET status = 'COMPLETED', updated_at = ? WHERE id = ? AND status = 'PENDING'`,
				l.CreatedAt, promoteSchedulingID,
			); err != nil {
				return err
			}
		}
		return nil
	})
}

// Save は Borrowed / Overdue 間のステータス更新用
func (s *Store) Save(ctx context.Context, l *Loan) error {
	const q = `UPDATE loans SET status = ?, updated_at = ? WHERE id = ?`
	res, err := s.conn.ExecContext(ctx, q, string(l.Status), l.UpdatedAt, l.ID)
	if err != nil {
		return err
	}
	if aff, _ := res.RowsAffected(); aff == 0 {
		return apperr.NotFound("loan not found")
	}
	return nil
}

// SaveReturned は返却を確定し、同じトランザクションで在庫を戻す。
// WHERE の status ガードにより二重返却でも在庫は一度しか増えない。
func (s *Store) SaveReturned(ctx context.Context, l *Loan) error {
	return db.RunInTx(ctx, s.conn, nil, func(ctx context.Context, tx db.DBTX) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE loans SET status = 'Returned', actual_return_date = ?, updated_at = ? WHERE id = ? AND status <> 'Returned'`,
			l.ActualReturnDate, l.UpdatedAt, l.ID,
		)
		if err != nil {
			return err
		}
		if aff, _ := res.RowsAffected(); aff == 0 {
			return apperr.Conflict("loan already returned")
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE books SET available = available + 1, updated_at = ? WHERE id = ?`,
			l.UpdatedAt, l.BookID,
		)
		return err
	})
}

func (s *Store) Delete(ctx context.Context, loanID, libraryID string) error {
	const q = `
	DELETE l FROM loans l
	JOIN books b ON b.id = l.book_id
	WHERE l.id = ? AND b.library_id = ?`
	res, err := s.conn.ExecContext(ctx, q, loanID, libraryID)
	if err != nil {
		return err
	}
	if aff, _ := res.RowsAffected(); aff == 0 {
		return apperr.NotFound("loan not found")
	}
	return nil
}
