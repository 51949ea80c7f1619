package loans

import (
	"database/sql"
	"math"
	"time"

	"bookio-backend/internal/platform/apperr"
)

type Status string

const (
	StatusBorrowed Status = "Borrowed"
	StatusOverdue  Status = "Overdue"
	StatusReturned Status = "Returned"
)

func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusBorrowed, StatusOverdue, StatusReturned:
		return Status(s), nil
	}
	return "", apperr.NotAllowed("invalid loan status: " + s)
}

// Loan は貸出1件。return_date が利用者に提示する返却期限、
// due_date は督促判定に使う内部期限（return_date より手前）。
type Loan struct {
	ID               string
	BookID           string
	ReaderID         string
	ReturnDate       time.Time
	DueDate          time.Time
	ActualReturnDate sql.NullTime
	Status           Status
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (l *Loan) Touch(now time.Time) {
	l.UpdatedAt = now
}

// IsOverdue: 未返却のまま due_date を過ぎているか
func (l *Loan) IsOverdue(now time.Time) bool {
	return !l.ActualReturnDate.Valid && now.After(l.DueDate)
}

// DaysOverdue は超過日数の切り上げ。返却済みなら実返却日基準。
// 超過していなければ 0。
func (l *Loan) DaysOverdue(now time.Time) int {
	ref := now
	if l.ActualReturnDate.Valid {
		ref = l.ActualReturnDate.Time
	}
	elapsed := ref.Sub(l.DueDate)
	if elapsed <= 0 {
		return 0
	}
	return int(math.Ceil(elapsed.Hours() / 24))
}

// MarkReturned stamps the actual return date. Reports false when the
// loan was already returned.
func (l *Loan) MarkReturned(now time.Time) bool {
	if l.Status == StatusReturned {
		return false
	}
	l.Status = StatusReturned
	l.ActualReturnDate = sql.NullTime{Time: now, Valid: true}
	l.Touch(now)
	return true
}
