package mail

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_ResendNotifier_Send(t *testing.T) {
	var got resendRequest
	var gotAuth string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/emails", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewResendWithBaseURL("re_test_key", "Bookio <no-reply@bookio.app>", srv.URL)
	err := n.Send(context.Background(), Message{
		To:      "reader@example.com",
		Subject: "Empréstimo confirmado",
		HTML:    "<p>oi</p>",
	})

	require.NoError(t, err)
	assert.Equal(t, "Bearer re_test_key", gotAuth)
	assert.Equal(t, "Bookio <no-reply@bookio.app>", got.From)
	assert.Equal(t, []string{"reader@example.com"}, got.To)
	assert.Equal(t, "Empréstimo confirmado", got.Subject)
}

func Test_ResendNotifier_Send_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"invalid api key"}`))
	}))
	defer srv.Close()

	n := NewResendWithBaseURL("bad", "x@y.z", srv.URL)
	err := n.Send(context.Background(), Message{To: "a@b.c", Subject: "s"})

	assert.ErrorContains(t, err, "status 401")
}

func Test_ConsoleNotifier_Send(t *testing.T) {
	assert.NoError(t, NewConsole().Send(context.Background(), Message{To: "a@b.c", Subject: "s"}))
}
