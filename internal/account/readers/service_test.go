package readers

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"bookio-backend/internal/platform/apperr"
	"bookio-backend/internal/platform/mail"
)

// ===== テスト用フェイク =====

type fakeRepo struct {
	mu      sync.Mutex
	readers map[string]*Reader
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{readers: map[string]*Reader{}}
}

func (f *fakeRepo) FindByID(_ context.Context, readerID string) (*Reader, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.readers[readerID]
	if !ok {
		return nil, apperr.NotFound("reader not found")
	}
	cp := *r
	return &cp, nil
}

func (f *fakeRepo) FindByEmail(_ context.Context, email string) (*Reader, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.readers {
		if r.Email == email {
			cp := *r
			return &cp, nil
		}
	}
	return nil, apperr.NotFound("reader not found")
}

func (f *fakeRepo) FindByLibraryID(_ context.Context, libraryID string) ([]Reader, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Reader
	for _, r := range f.readers {
		if r.LibraryID == libraryID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeRepo) Create(_ context.Context, r *Reader) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.readers {
		if existing.Email == r.Email || existing.CPF == r.CPF {
			return apperr.Conflict("email or cpf already registered")
		}
	}
	cp := *r
	f.readers[r.ID] = &cp
	return nil
}

func (f *fakeRepo) Save(_ context.Context, r *Reader) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.readers[r.ID]; !ok {
		return apperr.NotFound("reader not found")
	}
	cp := *r
	f.readers[r.ID] = &cp
	return nil
}

func (f *fakeRepo) Delete(_ context.Context, readerID, libraryID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.readers[readerID]
	if !ok || r.LibraryID != libraryID {
		return apperr.NotFound("reader not found")
	}
	delete(f.readers, readerID)
	return nil
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []mail.Message
	fail bool
}

func (n *recordingNotifier) Send(_ context.Context, msg mail.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return fmt.Errorf("smtp down")
	}
	n.sent = append(n.sent, msg)
	return nil
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
	return fmt.Sprintf("reader-%04d", g.n), nil
}

func newTestService(repo Repository, notifier mail.Notifier) *Service {
	clock := fixedClock{at: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	return NewServiceWith(repo, notifier, nil, clock, &seqIDGen{})
}

// ===== テスト本体 =====

func TestCreateReader(t *testing.T) {
	t.Run("hashes a generated password and mails it", func(t *testing.T) {
		repo := newFakeRepo()
		notifier := &recordingNotifier{}
		svc := newTestService(repo, notifier)

		res, err := svc.CreateReader(context.Background(), "lib-1", CreateReaderRequest{
			Name: "Ana", Email: "ana@example.com", CPF: "12345678901",
		})
		require.NoError(t, err)
		assert.Equal(t, "lib-1", res.LibraryID)
		assert.Equal(t, 0, res.Suspense)
		assert.True(t, res.Active)

		require.Len(t, notifier.sent, 1)
		assert.Equal(t, "ana@example.com", notifier.sent[0].To)

		// メール本文のパスワードがハッシュと一致すること
		re := regexp.MustCompile(`<b>([^<]+)</b>`)
		m := re.FindStringSubmatch(notifier.sent[0].HTML)
		require.Len(t, m, 2)
		stored := repo.readers[res.ID]
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte(m[1])))
	})

	t.Run("registration survives a mail failure", func(t *testing.T) {
		repo := newFakeRepo()
		svc := newTestService(repo, &recordingNotifier{fail: true})

		res, err := svc.CreateReader(context.Background(), "lib-1", CreateReaderRequest{
			Name: "Bia", Email: "bia@example.com", CPF: "22345678901",
		})
		require.NoError(t, err)
		assert.NotEmpty(t, repo.readers[res.ID])
	})

	t.Run("duplicate email conflicts", func(t *testing.T) {
		repo := newFakeRepo()
		svc := newTestService(repo, &recordingNotifier{})

		_, err := svc.CreateReader(context.Background(), "lib-1", CreateReaderRequest{
			Name: "Ana", Email: "ana@example.com", CPF: "12345678901",
		})
		require.NoError(t, err)

		_, err = svc.CreateReader(context.Background(), "lib-1", CreateReaderRequest{
			Name: "Ana Clone", Email: "ana@example.com", CPF: "99945678901",
		})
		require.Error(t, err)
		assert.True(t, apperr.Is(err, apperr.CodeConflict))
	})
}

func TestUpdateReader(t *testing.T) {
	seed := func(t *testing.T) (*fakeRepo, *Service, string) {
		t.Helper()
		repo := newFakeRepo()
		svc := newTestService(repo, &recordingNotifier{})
		res, err := svc.CreateReader(context.Background(), "lib-1", CreateReaderRequest{
			Name: "Ana", Email: "ana@example.com", CPF: "12345678901",
		})
		require.NoError(t, err)
		return repo, svc, res.ID
	}

	t.Run("resets suspense through explicit update", func(t *testing.T) {
		repo, svc, id := seed(t)
		repo.readers[id].Suspense = 2

		zero := 0
		res, err := svc.UpdateReader(context.Background(), id, "lib-1", UpdateReaderRequest{Suspense: &zero})
		require.NoError(t, err)
		assert.Equal(t, 0, res.Suspense)
	})

	t.Run("deactivates and reactivates", func(t *testing.T) {
		_, svc, id := seed(t)

		off := false
		res, err := svc.UpdateReader(context.Background(), id, "lib-1", UpdateReaderRequest{Active: &off})
		require.NoError(t, err)
		assert.False(t, res.Active)

		on := true
		res, err = svc.UpdateReader(context.Background(), id, "lib-1", UpdateReaderRequest{Active: &on})
		require.NoError(t, err)
		assert.True(t, res.Active)
	})

	t.Run("negative suspense is rejected", func(t *testing.T) {
		_, svc, id := seed(t)

		n := -1
		_, err := svc.UpdateReader(context.Background(), id, "lib-1", UpdateReaderRequest{Suspense: &n})
		require.Error(t, err)
		assert.True(t, apperr.Is(err, apperr.CodeInvalidArgument))
	})

	t.Run("another library cannot touch the reader", func(t *testing.T) {
		_, svc, id := seed(t)

		name := "x"
		_, err := svc.UpdateReader(context.Background(), id, "lib-2", UpdateReaderRequest{Name: &name})
		require.Error(t, err)
		assert.True(t, apperr.Is(err, apperr.CodeNotFound))
	})
}

func TestIsSuspended(t *testing.T) {
	r := Reader{Suspense: 0}
	assert.False(t, r.IsSuspended(1))
	r.Suspense = 1
	assert.True(t, r.IsSuspended(1))
	assert.False(t, r.IsSuspended(3))
}

func TestGeneratePassword(t *testing.T) {
	p1, err := generatePassword(12)
	require.NoError(t, err)
	p2, err := generatePassword(12)
	require.NoError(t, err)

	assert.Len(t, p1, 12)
	assert.NotEqual(t, p1, p2)
	for _, c := range p1 {
		assert.True(t, strings.ContainsRune(passwordAlphabet, c))
	}
}
