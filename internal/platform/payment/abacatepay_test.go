package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_CreateBilling(t *testing.T) {
	var got billingRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/billing/create", r.URL.Path)
		require.Equal(t, "Bearer abc_dev_key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"data":{"id":"bill_123","url":"https://pay.abacatepay.com/bill_123","status":"PENDING"}}`))
	}))
	defer srv.Close()

	c := NewAbacatePayWithBaseURL("abc_dev_key", srv.URL)
	b, err := c.CreateBilling(context.Background(), CreateBillingParams{
		Amount:      10.5,
		Description: "Multa por atraso",
		CustomerID:  "reader-1",
		DueDate:     time.Now().AddDate(0, 0, 7),
	})

	require.NoError(t, err)
	assert.Equal(t, "bill_123", b.ID)
	assert.Equal(t, "https://pay.abacatepay.com/bill_123", b.URL)
	assert.Equal(t, "PENDING", b.Status)

	require.Len(t, got.Products, 1)
	assert.Equal(t, int64(1050), got.Products[0].Price)
	assert.Equal(t, "ONE_TIME", got.Frequency)
	assert.Equal(t, []string{"PIX"}, got.Methods)
}

func Test_CreateBilling_PlainResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"id":"bill_9","url":"https://x","status":"PENDING"}`))
	}))
	defer srv.Close()

	c := NewAbacatePayWithBaseURL("k", srv.URL)
	b, err := c.CreateBilling(context.Background(), CreateBillingParams{Amount: 1, Description: "d", CustomerID: "r"})

	require.NoError(t, err)
	assert.Equal(t, "bill_9", b.ID)
}

func Test_CreateBilling_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid amount"}`))
	}))
	defer srv.Close()

	c := NewAbacatePayWithBaseURL("k", srv.URL)
	_, err := c.CreateBilling(context.Background(), CreateBillingParams{Amount: 2, Description: "d", CustomerID: "r"})

	assert.ErrorContains(t, err, "status 400")
}

func Test_CreateBilling_RejectsNonPositiveAmount(t *testing.T) {
	c := NewAbacatePay("k")
	_, err := c.CreateBilling(context.Background(), CreateBillingParams{Amount: 0})
	assert.Error(t, err)
}

func Test_GetBillingStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/billing/get", r.URL.Path)
		require.Equal(t, "bill_123", r.URL.Query().Get("id"))
		_, _ = w.Write([]byte(`{"data":{"id":"bill_123","url":"https://x","status":"PAID"}}`))
	}))
	defer srv.Close()

	c := NewAbacatePayWithBaseURL("k", srv.URL)
	status, err := c.GetBillingStatus(context.Background(), "bill_123")

	require.NoError(t, err)
	assert.Equal(t, "PAID", status)
}
