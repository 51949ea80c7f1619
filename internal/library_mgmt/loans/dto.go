package loans

import "time"

type CreateLoanRequest struct {
	BookID     string    `json:"book_id" binding:"required"`
	ReaderID   string    `json:"reader_id" binding:"required"`
	ReturnDate time.Time `json:"return_date" binding:"required"`
}

type UpdateLoanStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type LoanResponse struct {
	ID               string     `json:"id"`
	BookID           string     `json:"book_id"`
	ReaderID         string     `json:"reader_id"`
	ReturnDate       time.Time  `json:"return_date"`
	DueDate          time.Time  `json:"due_date"`
	ActualReturnDate *time.Time `json:"actual_return_date,omitempty"`
	Status           Status     `json:"status"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

type LoanStatusResponse struct {
	Loan        LoanResponse `json:"loan"`
	IsOverdue   bool         `json:"is_overdue"`
	DaysOverdue int          `json:"days_overdue"`
}

func buildLoanResponse(l *Loan) LoanResponse {
	resp := LoanResponse{
		ID:         l.ID,
		BookID:     l.BookID,
		ReaderID:   l.ReaderID,
		ReturnDate: l.ReturnDate,
		DueDate:    l.DueDate,
		Status:     l.Status,
		CreatedAt:  l.CreatedAt,
		UpdatedAt:  l.UpdatedAt,
	}
	if l.ActualReturnDate.Valid {
		val := l.ActualReturnDate.Time
		resp.ActualReturnDate = &val
	}
	return resp
}

func buildLoanResponses(items []Loan) []LoanResponse {
	out := make([]LoanResponse, 0, len(items))
	for i := range items {
		out = append(out, buildLoanResponse(&items[i]))
	}
	return out
}
