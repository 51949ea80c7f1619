package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"bookio-backend/internal/platform/apperr"
)

type fakeAccountStore struct {
	accounts map[string]*Account
}

func (f *fakeAccountStore) FindByEmail(_ context.Context, email string) (*Account, error) {
	if a, ok := f.accounts[email]; ok {
		return a, nil
	}
	return nil, apperr.NotFound("user not found")
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, secret []byte) *Service {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3nha-forte"), bcrypt.MinCost)
	require.NoError(t, err)

	store := &fakeAccountStore{accounts: map[string]*Account{
		"biblio@example.com":  {ID: "lib-1", Email: "biblio@example.com", PasswordHash: string(hash), Role: RoleLibrary, Active: true},
		"dormant@example.com": {ID: "reader-9", Email: "dormant@example.com", PasswordHash: string(hash), Role: RoleReader},
	}}
	return NewServiceWith(store, secret, time.Hour, fixedClock{t: testNow})
}

func Test_Login_IssuesTokenWithSubAndRole(t *testing.T) {
	secret := []byte("test-secret")
	svc := newTestService(t, secret)

	session, err := svc.Login(context.Background(), "biblio@example.com", "s3nha-forte")
	require.NoError(t, err)
	assert.Equal(t, RoleLibrary, session.Role)

	// exp の検証も固定時刻で行う
	token, err := jwt.Parse(session.Token, func(*jwt.Token) (any, error) { return secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return testNow }))
	require.NoError(t, err)

	claims := token.Claims.(jwt.MapClaims)
	assert.Equal(t, "lib-1", claims["sub"])
	assert.Equal(t, RoleLibrary, claims["role"])
}

func Test_Login_WrongPassword(t *testing.T) {
	svc := newTestService(t, []byte("test-secret"))

	_, err := svc.Login(context.Background(), "biblio@example.com", "errada")
	assert.True(t, apperr.Is(err, apperr.CodeNotAllowed))
}

func Test_Login_DeactivatedAccount(t *testing.T) {
	svc := newTestService(t, []byte("test-secret"))

	_, err := svc.Login(context.Background(), "dormant@example.com", "s3nha-forte")
	assert.True(t, apperr.Is(err, apperr.CodeNotAllowed))
}

func Test_Login_UnknownEmail(t *testing.T) {
	svc := newTestService(t, []byte("test-secret"))

	_, err := svc.Login(context.Background(), "nope@example.com", "x")
	assert.True(t, apperr.Is(err, apperr.CodeNotAllowed))
}

func issueToken(t *testing.T, secret []byte, sub, role string) string {
	t.Helper()
	now := time.Now()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": sub, "role": role, "iat": now.Unix(), "exp": now.Add(time.Hour).Unix(),
	}).SignedString(secret)
	require.NoError(t, err)
	return token
}

func Test_RequireAuth_And_RequireRole(t *testing.T) {
	gin.SetMode(gin.TestMode)
	secret := []byte("test-secret")

	r := gin.New()
	r.GET("/private", RequireAuth(secret), RequireRole(RoleLibrary), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user": UserID(c), "role": Role(c)})
	})

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{name: "no_header", header: "", wantStatus: http.StatusUnauthorized},
		{name: "malformed", header: "Token abc", wantStatus: http.StatusUnauthorized},
		{name: "bad_signature", header: "Bearer " + issueToken(t, []byte("other"), "u", RoleLibrary), wantStatus: http.StatusUnauthorized},
		{name: "wrong_role", header: "Bearer " + issueToken(t, secret, "reader-1", RoleReader), wantStatus: http.StatusForbidden},
		{name: "ok", header: "Bearer " + issueToken(t, secret, "lib-1", RoleLibrary), wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/private", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}
