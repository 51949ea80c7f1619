package books

import (
	"context"
	"database/sql"
	"io"

	"bookio-backend/internal/platform/apperr"
	"bookio-backend/internal/platform/ident"
)

const mostBorrowedLimit = 5

type Repository interface {
	FindByID(ctx context.Context, bookID string) (*Book, error)
	FindByTitle(ctx context.Context, title, libraryID string) (*Book, error)
	FindByLibraryID(ctx context.Context, libraryID string) ([]Book, error)
	FindByGender(ctx context.Context, libraryID string, gender Gender) ([]Book, error)
	FindMostBorrowed(ctx context.Context, libraryID string, limit int) ([]Book, error)
	Create(ctx context.Context, b *Book) error
	Save(ctx context.Context, b *Book) error
	Delete(ctx context.Context, bookID, libraryID string) error
}

type ImageStore interface {
	UploadImage(ctx context.Context, prefix string, r io.Reader, contentType string) (string, error)
}

type Service struct {
	repo   Repository
	images ImageStore
	clock  ident.Clock
	id     ident.IDGen
}

func NewService(conn *sql.DB, images ImageStore) *Service {
	return NewServiceWith(NewStore(conn), images, ident.RealClock{}, ident.ULIDGen{})
}

func NewServiceWith(repo Repository, images ImageStore, clock ident.Clock, id ident.IDGen) *Service {
	return &Service{repo: repo, images: images, clock: clock, id: id}
}

// 蔵書登録
func (s *Service) CreateBook(ctx context.Context, libraryID string, req CreateBookRequest) (*BookResponse, error) {
	gender, err := ParseGender(req.Gender)
	if err != nil {
		return nil, err
	}
	if req.Available < 0 {
		return nil, apperr.InvalidArgument("available must be >= 0")
	}

	// 同一図書館内でのタイトル重複は禁止
	_, err = s.repo.FindByTitle(ctx, req.Title, libraryID)
	if err == nil {
		return nil, apperr.Conflict("book title already exists in this library")
	}
	if !apperr.Is(err, apperr.CodeNotFound) {
		return nil, err
	}

	idStr, err := s.id.New()
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()

	book := &Book{
		ID:        idStr,
		LibraryID: libraryID,
		Author:    req.Author,
		Title:     req.Title,
		Gender:    gender,
		Year:      req.Year,
		Available: req.Available,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Create(ctx, book); err != nil {
		return nil, err
	}

	resp := buildBookResponse(book)
	return &resp, nil
}

func (s *Service) GetBook(ctx context.Context, bookID string) (*BookResponse, error) {
	book, err := s.repo.FindByID(ctx, bookID)
	if err != nil {
		return nil, err
	}
	resp := buildBookResponse(book)
	return &resp, nil
}

func (s *Service) GetBookByTitle(ctx context.Context, title, libraryID string) (*BookResponse, error) {
	book, err := s.repo.FindByTitle(ctx, title, libraryID)
	if err != nil {
		return nil, err
	}
	resp := buildBookResponse(book)
	return &resp, nil
}

func (s *Service) ListByLibrary(ctx context.Context, libraryID string) ([]BookResponse, error) {
	items, err := s.repo.FindByLibraryID(ctx, libraryID)
	if err != nil {
		return nil, err
	}
	return buildBookResponses(items), nil
}

func (s *Service) ListByGender(ctx context.Context, libraryID, gender string) ([]BookResponse, error) {
	g, err := ParseGender(gender)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.FindByGender(ctx, libraryID, g)
	if err != nil {
		return nil, err
	}
	return buildBookResponses(items), nil
}

// 貸出回数の多い順トップ5
func (s *Service) MostBorrowed(ctx context.Context, libraryID string) ([]BookResponse, error) {
	items, err := s.repo.FindMostBorrowed(ctx, libraryID, mostBorrowedLimit)
	if err != nil {
		return nil, err
	}
	return buildBookResponses(items), nil
}

// 蔵書更新（所有図書館のみ）
func (s *Service) UpdateBook(ctx context.Context, bookID, libraryID string, req UpdateBookRequest) (*BookResponse, error) {
	book, err := s.repo.FindByID(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if book.LibraryID != libraryID {
		return nil, apperr.NotFound("book not found")
	}

	now := s.clock.Now()

	if req.Title != nil && *req.Title != book.Title {
		_, err := s.repo.FindByTitle(ctx, *req.Title, libraryID)
		if err == nil {
			return nil, apperr.Conflict("book title already exists in this library")
		}
		if !apperr.Is(err, apperr.CodeNotFound) {
			return nil, err
		}
		book.Title = *req.Title
	}
	if req.Author != nil {
		book.Author = *req.Author
	}
	if req.Gender != nil {
		g, err := ParseGender(*req.Gender)
		if err != nil {
			return nil, err
		}
		book.Gender = g
	}
	if req.Year != nil {
		book.Year = *req.Year
	}
	if req.Available != nil {
		if *req.Available < 0 {
			return nil, apperr.InvalidArgument("available must be >= 0")
		}
		book.Available = *req.Available
	}
	book.Touch(now)

	if err := s.repo.Save(ctx, book); err != nil {
		return nil, err
	}
	resp := buildBookResponse(book)
	return &resp, nil
}

func (s *Service) DeleteBook(ctx context.Context, bookID, libraryID string) error {
	return s.repo.Delete(ctx, bookID, libraryID)
}

// AttachImage stores the cover image and saves its URL on the book.
func (s *Service) AttachImage(ctx context.Context, bookID, libraryID string, r io.Reader, contentType string) (*BookResponse, error) {
	if s.images == nil {
		return nil, apperr.NotAllowed("image storage is not configured")
	}

	book, err := s.repo.FindByID(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if book.LibraryID != libraryID {
		return nil, apperr.NotFound("book not found")
	}

	url, err := s.images.UploadImage(ctx, "books", r, contentType)
	if err != nil {
		return nil, err
	}

	book.SetImageURL(url, s.clock.Now())
	if err := s.repo.Save(ctx, book); err != nil {
		return nil, err
	}
	resp := buildBookResponse(book)
	return &resp, nil
}

func buildBookResponses(items []Book) []BookResponse {
	out := make([]BookResponse, 0, len(items))
	for i := range items {
		out = append(out, buildBookResponse(&items[i]))
	}
	return out
}
