package penalties

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"

	"bookio-backend/internal/platform/apperr"
)

const penaltyColumns = `id, reader_id, loan_id, amount, paid, due_date, payment_link, created_at, updated_at`

type Store struct {
	db *sql.DB
}

func NewStore(conn *sql.DB) *Store { return &Store{db: conn} }

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPenalty(row rowScanner) (*Penalty, error) {
	var p Penalty
	err := row.Scan(
		&p.ID, &p.ReaderID, &p.LoanID, &p.Amount, &p.Paid,
		&p.DueDate, &p.PaymentLink, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) FindByID(ctx context.Context, penaltyID string) (*Penalty, error) {
	const q = `SELECT ` + penaltyColumns + ` FROM penalties WHERE id = ?`
	p, err := scanPenalty(s.db.QueryRowContext(ctx, q, penaltyID))
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("penalty not found")
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Store) FindByLoanID(ctx context.Context, loanID string) (*Penalty, error) {
	const q = `SELECT ` + penaltyColumns + ` FROM penalties WHERE loan_id = ?`
	p, err := scanPenalty(s.db.QueryRowContext(ctx, q, loanID))
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("penalty not found")
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Store) FindByReaderID(ctx context.Context, readerID string) ([]Penalty, error) {
	const q = `SELECT ` + penaltyColumns + ` FROM penalties WHERE reader_id = ? ORDER BY created_at DESC`
	return s.queryPenalties(ctx, q, readerID)
}

// FindByLibraryID: 図書館の蔵書から出た貸出に紐づくペナルティ
func (s *Store) FindByLibraryID(ctx context.Context, libraryID string) ([]Penalty, error) {
	const q = `
	SELECT p.id, p.reader_id, p.loan_id, p.amount, p.paid, p.due_date, p.payment_link, p.created_at, p.updated_at
	FROM penalties p
	JOIN loans l ON l.id = p.loan_id
	JOIN books b ON b.id = l.book_id
	WHERE b.library_id = ?
	ORDER BY p.created_at DESC`
	return s.queryPenalties(ctx, q, libraryID)
}

func (s *Store) FindUnpaid(ctx context.Context) ([]Penalty, error) {
	const q = `SELECT ` + penaltyColumns + ` FROM penalties WHERE paid = FALSE`
	return s.queryPenalties(ctx, q)
}

func (s *Store) CountUnpaidByReader(ctx context.Context, readerID string) (int, error) {
	const q = `SELECT COUNT(*) FROM penalties WHERE reader_id = ? AND paid = FALSE`
	var n int
	if err := s.db.QueryRowContext(ctx, q, readerID).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *Store) queryPenalties(ctx context.Context, q string, args ...any) ([]Penalty, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Penalty
	for rows.Next() {
		p, err := scanPenalty(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// Create: loan_id のユニークキーで「1貸出1ペナルティ」をDB側でも守る
func (s *Store) Create(ctx context.Context, p *Penalty) error {
	const q = `
	INSERT INTO penalties
	(id, reader_id, loan_id, amount, paid, due_date, payment_link, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, q,
		p.ID, p.ReaderID, p.LoanID, p.Amount, p.Paid,
		p.DueDate, p.PaymentLink, p.CreatedAt, p.UpdatedAt,
	)
	if isDuplicateEntry(err) {
		return apperr.Conflict("penalty already exists for this loan")
	}
	return err
}

func (s *Store) Update(ctx context.Context, p *Penalty) error {
	const q = `
	UPDATE penalties
	SET amount = ?, paid = ?, due_date = ?, payment_link = ?, updated_at = ?
	WHERE id = ?`

	res, err := s.db.ExecContext(ctx, q,
		p.Amount, p.Paid, p.DueDate, p.PaymentLink, p.UpdatedAt, p.ID,
	)
	if err != nil {
		return err
	}
	if aff, _ := res.RowsAffected(); aff == 0 {
		// 同値更新でも0になるが、存在確認はサービス層で済んでいる
		return nil
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, penaltyID string) error {
	const q = `DELETE FROM penalties WHERE id = ?`
	res, err := s.db.ExecContext(ctx, q, penaltyID)
	if err != nil {
		return err
	}
	if aff, _ := res.RowsAffected(); aff == 0 {
		return apperr.NotFound("penalty not found")
	}
	return nil
}

func isDuplicateEntry(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}
