package penalties

import "time"

type CreatePenaltyRequest struct {
	ReaderID string    `json:"reader_id" binding:"required"`
	LoanID   string    `json:"loan_id" binding:"required"`
	Amount   float64   `json:"amount" binding:"required,gt=0"`
	DueDate  time.Time `json:"due_date" binding:"required"`
}

type PenaltyResponse struct {
	ID          string    `json:"id"`
	ReaderID    string    `json:"reader_id"`
	LoanID      string    `json:"loan_id"`
	Amount      float64   `json:"amount"`
	Paid        bool      `json:"paid"`
	DueDate     time.Time `json:"due_date"`
	PaymentLink *string   `json:"payment_link,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func buildPenaltyResponse(p *Penalty) PenaltyResponse {
	resp := PenaltyResponse{
		ID:        p.ID,
		ReaderID:  p.ReaderID,
		LoanID:    p.LoanID,
		Amount:    p.Amount,
		Paid:      p.Paid,
		DueDate:   p.DueDate,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
	if p.PaymentLink.Valid {
		val := p.PaymentLink.String
		resp.PaymentLink = &val
	}
	return resp
}

func buildPenaltyResponses(items []Penalty) []PenaltyResponse {
	out := make([]PenaltyResponse, 0, len(items))
	for i := range items {
		out = append(out, buildPenaltyResponse(&items[i]))
	}
	return out
}
