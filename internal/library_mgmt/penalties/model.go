package penalties

import (
	"database/sql"
	"time"
)

// Penalty は延滞1件に対する課金。loan_id ごとに高々1件。
type Penalty struct {
	ID          string
	ReaderID    string
	LoanID      string
	Amount      float64
	Paid        bool
	DueDate     time.Time
	PaymentLink sql.NullString
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (p *Penalty) Touch(now time.Time) {
	p.UpdatedAt = now
}

// IsOverdue: 支払期限を過ぎたか
func (p *Penalty) IsOverdue(now time.Time) bool {
	return now.After(p.DueDate)
}

// MarkPaid is idempotent. Reports false when already paid.
func (p *Penalty) MarkPaid(now time.Time) bool {
	if p.Paid {
		return false
	}
	p.Paid = true
	p.Touch(now)
	return true
}

func (p *Penalty) SetPaymentLink(url string, now time.Time) {
	p.PaymentLink = sql.NullString{String: url, Valid: url != ""}
	p.Touch(now)
}
