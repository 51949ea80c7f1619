package schedulings

import "time"

type CreateSchedulingRequest struct {
	BookID string `json:"book_id" binding:"required"`
}

type SchedulingResponse struct {
	ID        string    `json:"id"`
	ReaderID  string    `json:"reader_id"`
	BookID    string    `json:"book_id"`
	Status    Status    `json:"status"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func buildSchedulingResponse(s *Scheduling) SchedulingResponse {
	return SchedulingResponse{
		ID:        s.ID,
		ReaderID:  s.ReaderID,
		BookID:    s.BookID,
		Status:    s.Status,
		ExpiresAt: s.ExpiresAt,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

func buildSchedulingResponses(items []Scheduling) []SchedulingResponse {
	out := make([]SchedulingResponse, 0, len(items))
	for i := range items {
		out = append(out, buildSchedulingResponse(&items[i]))
	}
	return out
}
