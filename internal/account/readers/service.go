package readers

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"io"
	"log"
	"math/big"

	"golang.org/x/crypto/bcrypt"

	"bookio-backend/internal/platform/apperr"
	"bookio-backend/internal/platform/ident"
	"bookio-backend/internal/platform/mail"
)

const initialPasswordLen = 12

type Repository interface {
	FindByID(ctx context.Context, readerID string) (*Reader, error)
	FindByEmail(ctx context.Context, email string) (*Reader, error)
	FindByLibraryID(ctx context.Context, libraryID string) ([]Reader, error)
	Create(ctx context.Context, r *Reader) error
	Save(ctx context.Context, r *Reader) error
	Delete(ctx context.Context, readerID, libraryID string) error
}

type ImageStore interface {
	UploadImage(ctx context.Context, prefix string, r io.Reader, contentType string) (string, error)
}

type Service struct {
	repo     Repository
	notifier mail.Notifier
	images   ImageStore
	clock    ident.Clock
	id       ident.IDGen
}

func NewService(conn *sql.DB, notifier mail.Notifier, images ImageStore) *Service {
	return NewServiceWith(NewStore(conn), notifier, images, ident.RealClock{}, ident.ULIDGen{})
}

func NewServiceWith(repo Repository, notifier mail.Notifier, images ImageStore, clock ident.Clock, id ident.IDGen) *Service {
	return &Service{repo: repo, notifier: notifier, images: images, clock: clock, id: id}
}

// CreateReader registers a reader under the calling library. The initial
// password is generated here and mailed to the reader, never returned to
// the API caller.
func (s *Service) CreateReader(ctx context.Context, libraryID string, req CreateReaderRequest) (*ReaderResponse, error) {
	idStr, err := s.id.New()
	if err != nil {
		return nil, err
	}
	password, err := generatePassword(initialPasswordLen)
	if err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()

	reader := &Reader{
		ID:           idStr,
		LibraryID:    libraryID,
		Name:         req.Name,
		Email:        req.Email,
		CPF:          req.CPF,
		PasswordHash: string(hash),
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, reader); err != nil {
		return nil, err
	}

	// 初期パスワード通知。失敗しても登録自体は成立させる。
	msg := mail.Message{
		To:      reader.Email,
		Subject: "Welcome to the library",
		HTML: fmt.Sprintf("<p>Hello %s,</p><p>Your account is ready. Initial password: <b>%s</b></p>",
			reader.Name, password),
	}
	if err := s.notifier.Send(ctx, msg); err != nil {
		log.Printf("readers: welcome mail to %s failed: %v", reader.Email, err)
	}

	resp := buildReaderResponse(reader)
	return &resp, nil
}

func (s *Service) GetReader(ctx context.Context, readerID string) (*ReaderResponse, error) {
	reader, err := s.repo.FindByID(ctx, readerID)
	if err != nil {
		return nil, err
	}
	resp := buildReaderResponse(reader)
	return &resp, nil
}

func (s *Service) ListByLibrary(ctx context.Context, libraryID string) ([]ReaderResponse, error) {
	items, err := s.repo.FindByLibraryID(ctx, libraryID)
	if err != nil {
		return nil, err
	}
	return buildReaderResponses(items), nil
}

// UpdateReader: 所属図書館のみ。suspense の明示指定で停止解除もここから行う。
func (s *Service) UpdateReader(ctx context.Context, readerID, libraryID string, req UpdateReaderRequest) (*ReaderResponse, error) {
	reader, err := s.repo.FindByID(ctx, readerID)
	if err != nil {
		return nil, err
	}
	if reader.LibraryID != libraryID {
		return nil, apperr.NotFound("reader not found")
	}

	if req.Name != nil {
		reader.Name = *req.Name
	}
	if req.Email != nil {
		reader.Email = *req.Email
	}
	if req.CPF != nil {
		reader.CPF = *req.CPF
	}
	if req.Active != nil {
		reader.Active = *req.Active
	}
	if req.Suspense != nil {
		if *req.Suspense < 0 {
			return nil, apperr.InvalidArgument("suspense must be >= 0")
		}
		reader.Suspense = *req.Suspense
	}
	reader.Touch(s.clock.Now())

	if err := s.repo.Save(ctx, reader); err != nil {
		return nil, err
	}
	resp := buildReaderResponse(reader)
	return &resp, nil
}

func (s *Service) DeleteReader(ctx context.Context, readerID, libraryID string) error {
	return s.repo.Delete(ctx, readerID, libraryID)
}

// AttachPicture stores the profile picture and saves its URL.
func (s *Service) AttachPicture(ctx context.Context, readerID string, r io.Reader, contentType string) (*ReaderResponse, error) {
	if s.images == nil {
		return nil, apperr.NotAllowed("image storage is not configured")
	}

	reader, err := s.repo.FindByID(ctx, readerID)
	if err != nil {
		return nil, err
	}

	url, err := s.images.UploadImage(ctx, "readers", r, contentType)
	if err != nil {
		return nil, err
	}

	reader.SetPictureURL(url, s.clock.Now())
	if err := s.repo.Save(ctx, reader); err != nil {
		return nil, err
	}
	resp := buildReaderResponse(reader)
	return &resp, nil
}

const passwordAlphabet = "abcdefghijkmnpqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func generatePassword(length int) (string, error) {
	out := make([]byte, length)
	max := big.NewInt(int64(len(passwordAlphabet)))
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = passwordAlphabet[n.Int64()]
	}
	return string(out), nil
}
