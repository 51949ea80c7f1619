package schedulings

import "time"

type Status string

// PENDING からの遷移のみ許可。COMPLETED / CANCELLED / EXPIRED は終端。
const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
	StatusExpired   Status = "EXPIRED"
)

// Scheduling は取り置き（予約）1件を表す
type Scheduling struct {
	ID        string
	ReaderID  string
	BookID    string
	Status    Status
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsExpired reports whether the TTL has lapsed. Storage status may lag
// behind until the sweeper makes it durable.
func (s *Scheduling) IsExpired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

func (s *Scheduling) IsActive(now time.Time) bool {
	return s.Status == StatusPending && !s.IsExpired(now)
}
