package books

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookio-backend/internal/platform/apperr"
)

// ===== テスト用フェイク =====

type fakeRepo struct {
	mu    sync.Mutex
	books map[string]*Book
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{books: map[string]*Book{}}
}

func (f *fakeRepo) FindByID(_ context.Context, bookID string) (*Book, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.books[bookID]
	if !ok {
		return nil, apperr.NotFound("book not found")
	}
	cp := *b
	return &cp, nil
}

func (f *fakeRepo) FindByTitle(_ context.Context, title, libraryID string) (*Book, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.books {
		if b.Title == title && b.LibraryID == libraryID {
			cp := *b
			return &cp, nil
		}
	}
	return nil, apperr.NotFound("book not found")
}

func (f *fakeRepo) FindByLibraryID(_ context.Context, libraryID string) ([]Book, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Book
	for _, b := range f.books {
		if b.LibraryID == libraryID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (f *fakeRepo) FindByGender(_ context.Context, libraryID string, gender Gender) ([]Book, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Book
	for _, b := range f.books {
		if b.LibraryID == libraryID && b.Gender == gender {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (f *fakeRepo) FindMostBorrowed(_ context.Context, libraryID string, limit int) ([]Book, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Book
	for _, b := range f.books {
		if b.LibraryID == libraryID {
			out = append(out, *b)
		}
	}
	// 貸出回数降順の単純な挿入ソート
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].TotalLoans > out[j-1].TotalLoans; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeRepo) Create(_ context.Context, b *Book) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *b
	f.books[b.ID] = &cp
	return nil
}

func (f *fakeRepo) Save(_ context.Context, b *Book) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.books[b.ID]; !ok {
		return apperr.NotFound("book not found")
	}
	cp := *b
	f.books[b.ID] = &cp
	return nil
}

func (f *fakeRepo) Delete(_ context.Context, bookID, libraryID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.books[bookID]
	if !ok || b.LibraryID != libraryID {
		return apperr.NotFound("book not found")
	}
	delete(f.books, bookID)
	return nil
}

type fakeImages struct {
	lastPrefix string
	lastType   string
}

func (f *fakeImages) UploadImage(_ context.Context, prefix string, r io.Reader, contentType string) (string, error) {
	f.lastPrefix = prefix
	f.lastType = contentType
	io.Copy(io.Discard, r)
	return "https://cdn.example.test/" + prefix + "/cover.png", nil
}

type fixedClock struct{ at time.Time }

func (c fixedClock) Now() time.Time { return c.at }

type seqIDGen struct {
	mu sync.Mutex
	n  int
}

func (g *seqIDGen) New() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("book-%04d", g.n), nil
}

func newTestService(repo Repository, images ImageStore) *Service {
	clock := fixedClock{at: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	return NewServiceWith(repo, images, clock, &seqIDGen{})
}

// ===== テスト本体 =====

func TestCreateBook(t *testing.T) {
	t.Run("registers a book with the caller's library", func(t *testing.T) {
		repo := newFakeRepo()
		svc := newTestService(repo, nil)

		res, err := svc.CreateBook(context.Background(), "lib-1", CreateBookRequest{
			Author: "Ursula K. Le Guin", Title: "A Wizard of Earthsea",
			Gender: "Fantasy", Year: 1968, Available: 3,
		})
		require.NoError(t, err)
		assert.Equal(t, "lib-1", res.LibraryID)
		assert.Equal(t, Gender("Fantasy"), res.Gender)
		assert.Equal(t, 3, res.Available)
		assert.Equal(t, 0, res.TotalLoans)
		assert.NotEmpty(t, res.ID)
	})

	t.Run("rejects unknown gender", func(t *testing.T) {
		svc := newTestService(newFakeRepo(), nil)

		_, err := svc.CreateBook(context.Background(), "lib-1", CreateBookRequest{
			Author: "x", Title: "y", Gender: "Cookbook", Year: 2020, Available: 1,
		})
		require.Error(t, err)
		assert.True(t, apperr.Is(err, apperr.CodeInvalidArgument))
	})

	t.Run("rejects duplicate title within the same library", func(t *testing.T) {
		repo := newFakeRepo()
		svc := newTestService(repo, nil)

		_, err := svc.CreateBook(context.Background(), "lib-1", CreateBookRequest{
			Author: "a", Title: "Dune", Gender: "ScienceFiction", Year: 1965, Available: 1,
		})
		require.NoError(t, err)

		_, err = svc.CreateBook(context.Background(), "lib-1", CreateBookRequest{
			Author: "b", Title: "Dune", Gender: "ScienceFiction", Year: 1965, Available: 2,
		})
		require.Error(t, err)
		assert.True(t, apperr.Is(err, apperr.CodeConflict))
	})

	t.Run("allows the same title in another library", func(t *testing.T) {
		repo := newFakeRepo()
		svc := newTestService(repo, nil)

		_, err := svc.CreateBook(context.Background(), "lib-1", CreateBookRequest{
			Author: "a", Title: "Dune", Gender: "ScienceFiction", Year: 1965, Available: 1,
		})
		require.NoError(t, err)

		_, err = svc.CreateBook(context.Background(), "lib-2", CreateBookRequest{
			Author: "a", Title: "Dune", Gender: "ScienceFiction", Year: 1965, Available: 1,
		})
		assert.NoError(t, err)
	})
}

func TestUpdateBook(t *testing.T) {
	seed := func(t *testing.T) (*fakeRepo, *Service, string) {
		t.Helper()
		repo := newFakeRepo()
		svc := newTestService(repo, nil)
		res, err := svc.CreateBook(context.Background(), "lib-1", CreateBookRequest{
			Author: "a", Title: "Solaris", Gender: "ScienceFiction", Year: 1961, Available: 2,
		})
		require.NoError(t, err)
		return repo, svc, res.ID
	}

	t.Run("partial update keeps untouched fields", func(t *testing.T) {
		_, svc, id := seed(t)

		year := 1970
		res, err := svc.UpdateBook(context.Background(), id, "lib-1", UpdateBookRequest{Year: &year})
		require.NoError(t, err)
		assert.Equal(t, 1970, res.Year)
		assert.Equal(t, "Solaris", res.Title)
		assert.Equal(t, 2, res.Available)
	})

	t.Run("another library cannot see the book", func(t *testing.T) {
		_, svc, id := seed(t)

		author := "someone"
		_, err := svc.UpdateBook(context.Background(), id, "lib-2", UpdateBookRequest{Author: &author})
		require.Error(t, err)
		assert.True(t, apperr.Is(err, apperr.CodeNotFound))
	})

	t.Run("rename onto an existing title conflicts", func(t *testing.T) {
		_, svc, id := seed(t)

		_, err := svc.CreateBook(context.Background(), "lib-1", CreateBookRequest{
			Author: "a", Title: "Fiasco", Gender: "ScienceFiction", Year: 1986, Available: 1,
		})
		require.NoError(t, err)

		title := "Fiasco"
		_, err = svc.UpdateBook(context.Background(), id, "lib-1", UpdateBookRequest{Title: &title})
		require.Error(t, err)
		assert.True(t, apperr.Is(err, apperr.CodeConflict))
	})

	t.Run("negative available is rejected", func(t *testing.T) {
		_, svc, id := seed(t)

		n := -1
		_, err := svc.UpdateBook(context.Background(), id, "lib-1", UpdateBookRequest{Available: &n})
		require.Error(t, err)
		assert.True(t, apperr.Is(err, apperr.CodeInvalidArgument))
	})
}

func TestMostBorrowed(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, nil)

	for i := 0; i < 7; i++ {
		res, err := svc.CreateBook(context.Background(), "lib-1", CreateBookRequest{
			Author: "a", Title: fmt.Sprintf("Book %d", i), Gender: "Fiction", Year: 2000 + i, Available: 1,
		})
		require.NoError(t, err)
		repo.books[res.ID].TotalLoans = i
	}

	out, err := svc.MostBorrowed(context.Background(), "lib-1")
	require.NoError(t, err)
	require.Len(t, out, 5)
	assert.Equal(t, 6, out[0].TotalLoans)
	assert.Equal(t, 2, out[4].TotalLoans)
}

func TestAttachImage(t *testing.T) {
	t.Run("uploads the cover and stores its URL", func(t *testing.T) {
		repo := newFakeRepo()
		images := &fakeImages{}
		svc := newTestService(repo, images)

		created, err := svc.CreateBook(context.Background(), "lib-1", CreateBookRequest{
			Author: "a", Title: "Neuromancer", Gender: "ScienceFiction", Year: 1984, Available: 1,
		})
		require.NoError(t, err)

		res, err := svc.AttachImage(context.Background(), created.ID, "lib-1", strings.NewReader("png-bytes"), "image/png")
		require.NoError(t, err)
		require.NotNil(t, res.ImageURL)
		assert.Equal(t, "https://cdn.example.test/books/cover.png", *res.ImageURL)
		assert.Equal(t, "books", images.lastPrefix)
		assert.Equal(t, "image/png", images.lastType)
	})

	t.Run("fails when storage is not configured", func(t *testing.T) {
		repo := newFakeRepo()
		svc := newTestService(repo, nil)

		created, err := svc.CreateBook(context.Background(), "lib-1", CreateBookRequest{
			Author: "a", Title: "Neuromancer", Gender: "ScienceFiction", Year: 1984, Available: 1,
		})
		require.NoError(t, err)

		_, err = svc.AttachImage(context.Background(), created.ID, "lib-1", strings.NewReader("x"), "image/png")
		require.Error(t, err)
		assert.True(t, apperr.Is(err, apperr.CodeNotAllowed))
	})

	t.Run("scoped to the owning library", func(t *testing.T) {
		repo := newFakeRepo()
		svc := newTestService(repo, &fakeImages{})

		created, err := svc.CreateBook(context.Background(), "lib-1", CreateBookRequest{
			Author: "a", Title: "Neuromancer", Gender: "ScienceFiction", Year: 1984, Available: 1,
		})
		require.NoError(t, err)

		_, err = svc.AttachImage(context.Background(), created.ID, "lib-2", strings.NewReader("x"), "image/png")
		require.Error(t, err)
		assert.True(t, apperr.Is(err, apperr.CodeNotFound))
	})
}

func TestDeleteBook(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, nil)

	created, err := svc.CreateBook(context.Background(), "lib-1", CreateBookRequest{
		Author: "a", Title: "Roadside Picnic", Gender: "ScienceFiction", Year: 1972, Available: 1,
	})
	require.NoError(t, err)

	require.Error(t, svc.DeleteBook(context.Background(), created.ID, "lib-2"))
	require.NoError(t, svc.DeleteBook(context.Background(), created.ID, "lib-1"))
	_, err = svc.GetBook(context.Background(), created.ID)
	assert.True(t, apperr.Is(err, apperr.CodeNotFound))
}

func TestBookLendReturn(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	b := Book{Available: 1}

	require.True(t, b.Lend(now))
	assert.Equal(t, 0, b.Available)
	assert.Equal(t, 1, b.TotalLoans)
	assert.Equal(t, now, b.UpdatedAt)

	// 在庫ゼロでは貸せず、カウンタも動かない
	assert.False(t, b.Lend(now))
	assert.Equal(t, 0, b.Available)
	assert.Equal(t, 1, b.TotalLoans)

	b.Return(now.Add(time.Hour))
	assert.Equal(t, 1, b.Available)
	assert.Equal(t, 1, b.TotalLoans)
}
