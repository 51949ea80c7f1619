package schedulings

import (
	"context"
	"database/sql"
	"time"

	"bookio-backend/internal/platform/apperr"
	"bookio-backend/internal/platform/ident"
)

type Repository interface {
	FindByID(ctx context.Context, schedulingID string) (*Scheduling, error)
	FindByReaderID(ctx context.Context, readerID string) ([]Scheduling, error)
	FindByLibraryID(ctx context.Context, libraryID string) ([]Scheduling, error)
	FindExpired(ctx context.Context, now time.Time) ([]Scheduling, error)
	Create(ctx context.Context, sc *Scheduling) error
	Transition(ctx context.Context, schedulingID string, to Status, now time.Time) error
}

type Service struct {
	repo    Repository
	holdTTL time.Duration
	clock   ident.Clock
	id      ident.IDGen
}

func NewService(conn *sql.DB, holdTTL time.Duration) *Service {
	return NewServiceWith(NewStore(conn), holdTTL, ident.RealClock{}, ident.ULIDGen{})
}

func NewServiceWith(repo Repository, holdTTL time.Duration, clock ident.Clock, id ident.IDGen) *Service {
	return &Service{repo: repo, holdTTL: holdTTL, clock: clock, id: id}
}

// 取り置き作成。在庫と重複予約のチェックはストア側のロック下で行う。
func (s *Service) Create(ctx context.Context, readerID string, req CreateSchedulingRequest) (*SchedulingResponse, error) {
	idStr, err := s.id.New()
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()

	sc := &Scheduling{
		ID:        idStr,
		ReaderID:  readerID,
		BookID:    req.BookID,
		Status:    StatusPending,
		ExpiresAt: now.Add(s.holdTTL),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, sc); err != nil {
		return nil, err
	}

	resp := buildSchedulingResponse(sc)
	return &resp, nil
}

func (s *Service) Get(ctx context.Context, schedulingID string) (*SchedulingResponse, error) {
	sc, err := s.repo.FindByID(ctx, schedulingID)
	if err != nil {
		return nil, err
	}
	resp := buildSchedulingResponse(sc)
	return &resp, nil
}

func (s *Service) ListByReader(ctx context.Context, readerID string) ([]SchedulingResponse, error) {
	items, err := s.repo.FindByReaderID(ctx, readerID)
	if err != nil {
		return nil, err
	}
	return buildSchedulingResponses(items), nil
}

func (s *Service) ListByLibrary(ctx context.Context, libraryID string) ([]SchedulingResponse, error) {
	items, err := s.repo.FindByLibraryID(ctx, libraryID)
	if err != nil {
		return nil, err
	}
	return buildSchedulingResponses(items), nil
}

// Cancel: 本人の PENDING な予約のみ取り消せる
func (s *Service) Cancel(ctx context.Context, schedulingID, readerID string) error {
	sc, err := s.repo.FindByID(ctx, schedulingID)
	if err != nil {
		return err
	}
	if sc.ReaderID != readerID {
		return apperr.NotAllowed("scheduling belongs to another reader")
	}
	switch sc.Status {
	case StatusCompleted:
		return apperr.NotAllowed("cannot cancel a fulfilled hold")
	case StatusCancelled, StatusExpired:
		return apperr.NotAllowed("scheduling is already settled")
	}
	return s.repo.Transition(ctx, schedulingID, StatusCancelled, s.clock.Now())
}

// ExpireDue は期限切れの PENDING を EXPIRED に倒す。処理件数を返す。
// 遷移の競合（Conflict）は誰かが先に倒しただけなので無視する。
func (s *Service) ExpireDue(ctx context.Context) (int, error) {
	now := s.clock.Now()
	items, err := s.repo.FindExpired(ctx, now)
	if err != nil {
		return 0, err
	}

	expired := 0
	for i := range items {
		err := s.repo.Transition(ctx, items[i].ID, StatusExpired, now)
		if apperr.Is(err, apperr.CodeConflict) {
			continue
		}
		if err != nil {
			return expired, err
		}
		expired++
	}
	return expired, nil
}
