package penalties

import (
	"context"
	"fmt"
	"log"
	"time"

	"bookio-backend/internal/account/readers"
	"bookio-backend/internal/library_mgmt/books"
	"bookio-backend/internal/library_mgmt/loans"
	"bookio-backend/internal/platform/apperr"
	"bookio-backend/internal/platform/ident"
	"bookio-backend/internal/platform/mail"
	"bookio-backend/internal/platform/payment"
)

type Repository interface {
	FindByID(ctx context.Context, penaltyID string) (*Penalty, error)
	FindByLoanID(ctx context.Context, loanID string) (*Penalty, error)
	FindByReaderID(ctx context.Context, readerID string) ([]Penalty, error)
	FindByLibraryID(ctx context.Context, libraryID string) ([]Penalty, error)
	FindUnpaid(ctx context.Context) ([]Penalty, error)
	CountUnpaidByReader(ctx context.Context, readerID string) (int, error)
	Create(ctx context.Context, p *Penalty) error
	Update(ctx context.Context, p *Penalty) error
	Delete(ctx context.Context, penaltyID string) error
}

type LoanFinder interface {
	Get(ctx context.Context, loanID string) (*loans.Loan, error)
}

type ReaderFinder interface {
	FindByID(ctx context.Context, readerID string) (*readers.Reader, error)
}

type BookFinder interface {
	FindByID(ctx context.Context, bookID string) (*books.Book, error)
}

// BillingClient は payment.AbacatePay が満たす
type BillingClient interface {
	CreateBilling(ctx context.Context, p payment.CreateBillingParams) (*payment.Billing, error)
}

// Config holds the defaults used when the sweeper creates a penalty.
type Config struct {
	Amount    float64
	DueWindow time.Duration
}

type Service struct {
	repo     Repository
	loans    LoanFinder
	readers  ReaderFinder
	books    BookFinder
	billing  BillingClient
	notifier mail.Notifier
	cfg      Config
	clock    ident.Clock
	id       ident.IDGen
}

func NewService(
	repo Repository,
	loanFinder LoanFinder,
	readerFinder ReaderFinder,
	bookFinder BookFinder,
	billing BillingClient,
	notifier mail.Notifier,
	cfg Config,
) *Service {
	return NewServiceWith(repo, loanFinder, readerFinder, bookFinder, billing, notifier, cfg, ident.RealClock{}, ident.ULIDGen{})
}

func NewServiceWith(
	repo Repository,
	loanFinder LoanFinder,
	readerFinder ReaderFinder,
	bookFinder BookFinder,
	billing BillingClient,
	notifier mail.Notifier,
	cfg Config,
	clock ident.Clock,
	id ident.IDGen,
) *Service {
	return &Service{
		repo:     repo,
		loans:    loanFinder,
		readers:  readerFinder,
		books:    bookFinder,
		billing:  billing,
		notifier: notifier,
		cfg:      cfg,
		clock:    clock,
		id:       id,
	}
}

// CreatePenalty は対象の読者・貸出・書籍の存在を順に確認する。
// 支払いリンクと通知は取れれば付ける、失敗しても課金自体は成立。
func (s *Service) CreatePenalty(ctx context.Context, req CreatePenaltyRequest) (*PenaltyResponse, error) {
	reader, err := s.readers.FindByID(ctx, req.ReaderID)
	if apperr.Is(err, apperr.CodeNotFound) {
		return nil, apperr.NotFound("reader not found")
	}
	if err != nil {
		return nil, err
	}

	loan, err := s.loans.Get(ctx, req.LoanID)
	if apperr.Is(err, apperr.CodeNotFound) {
		return nil, apperr.NotFound("loan not found")
	}
	if err != nil {
		return nil, err
	}

	if _, err := s.books.FindByID(ctx, loan.BookID); err != nil {
		if apperr.Is(err, apperr.CodeNotFound) {
			return nil, apperr.NotFound("book not found")
		}
		return nil, err
	}

	if _, err := s.repo.FindByLoanID(ctx, req.LoanID); err == nil {
		return nil, apperr.Conflict("penalty already exists for this loan")
	} else if !apperr.Is(err, apperr.CodeNotFound) {
		return nil, err
	}

	return s.create(ctx, reader, req.LoanID, req.Amount, req.DueDate)
}

func (s *Service) create(ctx context.Context, reader *readers.Reader, loanID string, amount float64, dueDate time.Time) (*PenaltyResponse, error) {
	idStr, err := s.id.New()
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()

	p := &Penalty{
		ID:        idStr,
		ReaderID:  reader.ID,
		LoanID:    loanID,
		Amount:    amount,
		DueDate:   dueDate,
		CreatedAt: now,
		UpdatedAt: now,
	}

	// 支払いリンクは取れたときだけ付く
	if s.billing != nil {
		billing, err := s.billing.CreateBilling(ctx, payment.CreateBillingParams{
			Amount:      amount,
			Description: "Library penalty for overdue loan",
			CustomerID:  reader.ID,
			DueDate:     dueDate,
		})
		if err != nil {
			log.Printf("penalties: billing link for loan %s failed: %v", loanID, err)
		} else {
			p.SetPaymentLink(billing.URL, now)
		}
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}

	html := fmt.Sprintf("<p>Hello %s,</p><p>A penalty of %.2f was issued for an overdue loan. Please settle it by %s.</p>",
		reader.Name, amount, dueDate.Format("2006-01-02"))
	if p.PaymentLink.Valid {
		html += fmt.Sprintf(`<p><a href="%s">Pay here</a></p>`, p.PaymentLink.String)
	}
	msg := mail.Message{To: reader.Email, Subject: "Overdue loan penalty", HTML: html}
	if err := s.notifier.Send(ctx, msg); err != nil {
		log.Printf("penalties: notification to %s failed: %v", reader.Email, err)
	}

	resp := buildPenaltyResponse(p)
	return &resp, nil
}

// EnsureForLoan は督促ループ用。既にペナルティがあれば何もしない。
// 金額と支払期限は設定値から採る。
func (s *Service) EnsureForLoan(ctx context.Context, loan *loans.Loan) (bool, error) {
	_, err := s.repo.FindByLoanID(ctx, loan.ID)
	if err == nil {
		return false, nil
	}
	if !apperr.Is(err, apperr.CodeNotFound) {
		return false, err
	}

	reader, err := s.readers.FindByID(ctx, loan.ReaderID)
	if err != nil {
		return false, err
	}

	dueDate := s.clock.Now().Add(s.cfg.DueWindow)
	if _, err := s.create(ctx, reader, loan.ID, s.cfg.Amount, dueDate); err != nil {
		// 並行して別サイクルが先に作った場合は成立扱い
		if apperr.Is(err, apperr.CodeConflict) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// PayPenalty は冪等。既に支払済みならそのまま返す。
func (s *Service) PayPenalty(ctx context.Context, penaltyID string) (*PenaltyResponse, error) {
	p, err := s.repo.FindByID(ctx, penaltyID)
	if err != nil {
		return nil, err
	}
	if p.MarkPaid(s.clock.Now()) {
		if err := s.repo.Update(ctx, p); err != nil {
			return nil, err
		}
	}
	resp := buildPenaltyResponse(p)
	return &resp, nil
}

func (s *Service) GetPenalty(ctx context.Context, penaltyID string) (*PenaltyResponse, error) {
	p, err := s.repo.FindByID(ctx, penaltyID)
	if err != nil {
		return nil, err
	}
	resp := buildPenaltyResponse(p)
	return &resp, nil
}

func (s *Service) ListByReader(ctx context.Context, readerID string) ([]PenaltyResponse, error) {
	items, err := s.repo.FindByReaderID(ctx, readerID)
	if err != nil {
		return nil, err
	}
	return buildPenaltyResponses(items), nil
}

func (s *Service) ListByLibrary(ctx context.Context, libraryID string) ([]PenaltyResponse, error) {
	items, err := s.repo.FindByLibraryID(ctx, libraryID)
	if err != nil {
		return nil, err
	}
	return buildPenaltyResponses(items), nil
}

// DeletePenalty は管理経路のみ。監視ループは決して削除しない。
func (s *Service) DeletePenalty(ctx context.Context, penaltyID string) error {
	return s.repo.Delete(ctx, penaltyID)
}

// ListUnpaidOverdue: 未払いのまま支払期限を過ぎたペナルティ
func (s *Service) ListUnpaidOverdue(ctx context.Context) ([]Penalty, error) {
	items, err := s.repo.FindUnpaid(ctx)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	out := items[:0]
	for i := range items {
		if items[i].IsOverdue(now) {
			out = append(out, items[i])
		}
	}
	return out, nil
}
