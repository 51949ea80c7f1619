package libraries

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"golang.org/x/crypto/bcrypt"

	"bookio-backend/internal/platform/ident"
	"bookio-backend/internal/platform/mail"
)

type Repository interface {
	FindByID(ctx context.Context, libraryID string) (*Library, error)
	FindByEmail(ctx context.Context, email string) (*Library, error)
	Create(ctx context.Context, l *Library) error
	Save(ctx context.Context, l *Library) error
	Delete(ctx context.Context, libraryID string) error
}

type Service struct {
	repo     Repository
	notifier mail.Notifier
	clock    ident.Clock
	id       ident.IDGen
}

func NewService(conn *sql.DB, notifier mail.Notifier) *Service {
	return NewServiceWith(NewStore(conn), notifier, ident.RealClock{}, ident.ULIDGen{})
}

func NewServiceWith(repo Repository, notifier mail.Notifier, clock ident.Clock, id ident.IDGen) *Service {
	return &Service{repo: repo, notifier: notifier, clock: clock, id: id}
}

// CreateLibrary は公開のセルフ登録
func (s *Service) CreateLibrary(ctx context.Context, req CreateLibraryRequest) (*LibraryResponse, error) {
	idStr, err := s.id.New()
	if err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()

	library := &Library{
		ID:           idStr,
		Name:         req.Name,
		Email:        req.Email,
		CNPJ:         req.CNPJ,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, library); err != nil {
		return nil, err
	}

	msg := mail.Message{
		To:      library.Email,
		Subject: "Your library is registered",
		HTML:    fmt.Sprintf("<p>Welcome, %s! Your library account is ready.</p>", library.Name),
	}
	if err := s.notifier.Send(ctx, msg); err != nil {
		log.Printf("libraries: welcome mail to %s failed: %v", library.Email, err)
	}

	resp := buildLibraryResponse(library)
	return &resp, nil
}

func (s *Service) GetLibrary(ctx context.Context, libraryID string) (*LibraryResponse, error) {
	library, err := s.repo.FindByID(ctx, libraryID)
	if err != nil {
		return nil, err
	}
	resp := buildLibraryResponse(library)
	return &resp, nil
}

func (s *Service) UpdateLibrary(ctx context.Context, libraryID string, req UpdateLibraryRequest) (*LibraryResponse, error) {
	library, err := s.repo.FindByID(ctx, libraryID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		library.Name = *req.Name
	}
	if req.Email != nil {
		library.Email = *req.Email
	}
	if req.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		library.PasswordHash = string(hash)
	}
	library.Touch(s.clock.Now())

	if err := s.repo.Save(ctx, library); err != nil {
		return nil, err
	}
	resp := buildLibraryResponse(library)
	return &resp, nil
}

func (s *Service) DeleteLibrary(ctx context.Context, libraryID string) error {
	return s.repo.Delete(ctx, libraryID)
}
