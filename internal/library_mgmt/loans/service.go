package loans

import (
	"context"
	"fmt"
	"log"
	"time"

	"bookio-backend/internal/account/readers"
	"bookio-backend/internal/library_mgmt/books"
	"bookio-backend/internal/library_mgmt/schedulings"
	"bookio-backend/internal/platform/apperr"
	"bookio-backend/internal/platform/ident"
	"bookio-backend/internal/platform/mail"
)

type Repository interface {
	FindByID(ctx context.Context, loanID, libraryID string) (*Loan, error)
	Get(ctx context.Context, loanID string) (*Loan, error)
	FindAll(ctx context.Context) ([]Loan, error)
	FindByLibraryID(ctx context.Context, libraryID string) ([]Loan, error)
	FindByReaderID(ctx context.Context, readerID string) ([]Loan, error)
	FindOverdueLoans(ctx context.Context, now time.Time) ([]Loan, error)
	CreateBorrowed(ctx context.Context, l *Loan, promoteSchedulingID string) error
	Save(ctx context.Context, l *Loan) error
	SaveReturned(ctx context.Context, l *Loan) error
	Delete(ctx context.Context, loanID, libraryID string) error
}

// 依存パッケージのストアが構造的に満たす最小インターフェース群

type PenaltyCounter interface {
	CountUnpaidByReader(ctx context.Context, readerID string) (int, error)
}

type HoldFinder interface {
	FindPendingByBook(ctx context.Context, bookID string) ([]schedulings.Scheduling, error)
}

type ReaderFinder interface {
	FindByID(ctx context.Context, readerID string) (*readers.Reader, error)
}

type BookFinder interface {
	FindByID(ctx context.Context, bookID string) (*books.Book, error)
}

type Config struct {
	SuspensionThreshold int
	DueOffset           time.Duration
}

type Service struct {
	repo      Repository
	penalties PenaltyCounter
	holds     HoldFinder
	readers   ReaderFinder
	books     BookFinder
	notifier  mail.Notifier
	cfg       Config
	clock     ident.Clock
	id        ident.IDGen
}

func NewService(
	repo Repository,
	penalties PenaltyCounter,
	holds HoldFinder,
	readerFinder ReaderFinder,
	bookFinder BookFinder,
	notifier mail.Notifier,
	cfg Config,
) *Service {
	return NewServiceWith(repo, penalties, holds, readerFinder, bookFinder, notifier, cfg, ident.RealClock{}, ident.ULIDGen{})
}

func NewServiceWith(
	repo Repository,
	penalties PenaltyCounter,
	holds HoldFinder,
	readerFinder ReaderFinder,
	bookFinder BookFinder,
	notifier mail.Notifier,
	cfg Config,
	clock ident.Clock,
	id ident.IDGen,
) *Service {
	return &Service{
		repo:      repo,
		penalties: penalties,
		holds:     holds,
		readers:   readerFinder,
		books:     bookFinder,
		notifier:  notifier,
		cfg:       cfg,
		clock:     clock,
		id:        id,
	}
}

// CreateLoan の事前条件は順序が決まっている:
//  1. 未払いペナルティなし
//  2. 利用停止でない
//  3. 在庫あり
//  4. 本人の有効な予約があれば消し込み、他人の予約があれば拒否
//
// 在庫の減算と貸出行の挿入はストア側で同一トランザクションに入る。
func (s *Service) CreateLoan(ctx context.Context, req CreateLoanRequest) (*LoanResponse, error) {
	unpaid, err := s.penalties.CountUnpaidByReader(ctx, req.ReaderID)
	if err != nil {
		return nil, err
	}
	if unpaid > 0 {
		return nil, apperr.PendingPenalties("reader has unpaid penalties")
	}

	reader, err := s.readers.FindByID(ctx, req.ReaderID)
	if err != nil {
		return nil, err
	}
	if reader.IsSuspended(s.cfg.SuspensionThreshold) {
		return nil, apperr.NotAllowed("reader suspended")
	}

	book, err := s.books.FindByID(ctx, req.BookID)
	if apperr.Is(err, apperr.CodeNotFound) {
		return nil, apperr.NotAllowed("book not available")
	}
	if err != nil {
		return nil, err
	}
	if book.Available <= 0 {
		return nil, apperr.NotAllowed("book not available")
	}

	now := s.clock.Now()

	holds, err := s.holds.FindPendingByBook(ctx, req.BookID)
	if err != nil {
		return nil, err
	}
	// 本人の予約が先。行の並び順に依存してはいけない。
	promoteID := ""
	reserved := false
	for i := range holds {
		if !holds[i].IsActive(now) {
			continue
		}
		if holds[i].ReaderID == req.ReaderID {
			promoteID = holds[i].ID
			break
		}
		reserved = true
	}
	if promoteID == "" && reserved {
		// 他人の有効な予約が生きている間はその本は貸せない
		return nil, apperr.Conflict("book reserved for another reader")
	}

	idStr, err := s.id.New()
	if err != nil {
		return nil, err
	}

	loan := &Loan{
		ID:         idStr,
		BookID:     req.BookID,
		ReaderID:   req.ReaderID,
		ReturnDate: req.ReturnDate,
		DueDate:    req.ReturnDate.Add(-s.cfg.DueOffset),
		Status:     StatusBorrowed,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.CreateBorrowed(ctx, loan, promoteID); err != nil {
		return nil, err
	}

	// 貸出確認メール。失敗しても貸出は成立している。
	msg := mail.Message{
		To:      reader.Email,
		Subject: "Loan confirmed: " + book.Title,
		HTML: fmt.Sprintf("<p>Hello %s,</p><p>You borrowed <b>%s</b>. Please return it by %s.</p>",
			reader.Name, book.Title, loan.ReturnDate.Format("2006-01-02")),
	}
	if err := s.notifier.Send(ctx, msg); err != nil {
		log.Printf("loans: confirmation mail to %s failed: %v", reader.Email, err)
	}

	resp := buildLoanResponse(loan)
	return &resp, nil
}

func (s *Service) GetLoanForLibrary(ctx context.Context, loanID, libraryID string) (*LoanResponse, error) {
	loan, err := s.repo.FindByID(ctx, loanID, libraryID)
	if err != nil {
		return nil, err
	}
	resp := buildLoanResponse(loan)
	return &resp, nil
}

func (s *Service) GetLoanForReader(ctx context.Context, loanID, readerID string) (*LoanResponse, error) {
	loan, err := s.repo.Get(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if loan.ReaderID != readerID {
		return nil, apperr.NotFound("loan not found")
	}
	resp := buildLoanResponse(loan)
	return &resp, nil
}

func (s *Service) ListLoans(ctx context.Context) ([]LoanResponse, error) {
	items, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	return buildLoanResponses(items), nil
}

func (s *Service) ListByLibrary(ctx context.Context, libraryID string) ([]LoanResponse, error) {
	items, err := s.repo.FindByLibraryID(ctx, libraryID)
	if err != nil {
		return nil, err
	}
	return buildLoanResponses(items), nil
}

func (s *Service) ListByReader(ctx context.Context, readerID string) ([]LoanResponse, error) {
	items, err := s.repo.FindByReaderID(ctx, readerID)
	if err != nil {
		return nil, err
	}
	return buildLoanResponses(items), nil
}

// UpdateLoanStatus: 所有図書館のみ。Returned への遷移で実返却日を刻み、
// 在庫を戻す。返却済みの貸出はもう動かせない。
func (s *Service) UpdateLoanStatus(ctx context.Context, loanID, libraryID, newStatus string) (*LoanResponse, error) {
	status, err := ParseStatus(newStatus)
	if err != nil {
		return nil, err
	}

	loan, err := s.repo.FindByID(ctx, loanID, libraryID)
	if err != nil {
		return nil, err
	}
	if loan.Status == StatusReturned {
		return nil, apperr.NotAllowed("loan already returned")
	}

	now := s.clock.Now()

	if status == StatusReturned {
		loan.MarkReturned(now)
		if err := s.repo.SaveReturned(ctx, loan); err != nil {
			return nil, err
		}
	} else {
		loan.Status = status
		loan.Touch(now)
		if err := s.repo.Save(ctx, loan); err != nil {
			return nil, err
		}
	}

	resp := buildLoanResponse(loan)
	return &resp, nil
}

// VerifyLoanStatus は保存せずに督促状態を評価して返す
func (s *Service) VerifyLoanStatus(ctx context.Context, loanID, libraryID string) (*LoanStatusResponse, error) {
	loan, err := s.repo.FindByID(ctx, loanID, libraryID)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	return &LoanStatusResponse{
		Loan:        buildLoanResponse(loan),
		IsOverdue:   loan.IsOverdue(now),
		DaysOverdue: loan.DaysOverdue(now),
	}, nil
}

// DeleteLoan は返却済みの貸出だけ削除できる
func (s *Service) DeleteLoan(ctx context.Context, loanID, libraryID string) error {
	loan, err := s.repo.FindByID(ctx, loanID, libraryID)
	if err != nil {
		return err
	}
	if loan.Status != StatusReturned {
		return apperr.NotAllowed("cannot delete an active loan")
	}
	return s.repo.Delete(ctx, loanID, libraryID)
}

// ListOverdue は督促ループ用。return_date 超過のまま Borrowed の貸出。
func (s *Service) ListOverdue(ctx context.Context) ([]Loan, error) {
	return s.repo.FindOverdueLoans(ctx, s.clock.Now())
}
