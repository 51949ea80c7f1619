// Package payment wraps the AbacatePay billing API. Penalty creation uses
// it to attach a PIX payment link; every call is best-effort from the
// caller's point of view.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"
)

type CreateBillingParams struct {
	Amount      float64
	Description string
	CustomerID  string
	DueDate     time.Time
}

type Billing struct {
	ID     string
	URL    string
	Status string
}

type AbacatePay struct {
	apiKey  string
	baseURL string
	httpc   *http.Client
}

func NewAbacatePay(apiKey string) *AbacatePay {
	return &AbacatePay{
		apiKey:  apiKey,
		baseURL: "https://api.abacatepay.com/v1",
		httpc:   &http.Client{Timeout: 10 * time.Second},
	}
}

func NewAbacatePayWithBaseURL(apiKey, baseURL string) *AbacatePay {
	c := NewAbacatePay(apiKey)
	c.baseURL = baseURL
	return c
}

type billingProduct struct {
	ExternalID  string `json:"externalId"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Quantity    int    `json:"quantity"`
	Price       int64  `json:"price"`
}

type billingRequest struct {
	Frequency string           `json:"frequency"`
	Methods   []string         `json:"methods"`
	Products  []billingProduct `json:"products"`
}

type billingResponse struct {
	ID     string `json:"id"`
	URL    string `json:"url"`
	Status string `json:"status"`
}

func (c *AbacatePay) CreateBilling(ctx context.Context, p CreateBillingParams) (*Billing, error) {
	if p.Amount <= 0 {
		return nil, fmt.Errorf("abacatepay: amount must be > 0")
	}

	reqBody := billingRequest{
		Frequency: "ONE_TIME",
		Methods:   []string{"PIX"},
		Products: []billingProduct{{
			ExternalID:  p.CustomerID,
			Name:        p.Description,
			Description: p.Description,
			Quantity:    1,
			// currency units -> centavos
			Price: int64(math.Round(p.Amount * 100)),
		}},
	}

	var out billingResponse
	if err := c.do(ctx, http.MethodPost, "/billing/create", reqBody, &out); err != nil {
		return nil, err
	}
	return &Billing{ID: out.ID, URL: out.URL, Status: out.Status}, nil
}

func (c *AbacatePay) GetBillingStatus(ctx context.Context, billingID string) (string, error) {
	var out billingResponse
	if err := c.do(ctx, http.MethodGet, "/billing/get?id="+billingID, nil, &out); err != nil {
		return "", err
	}
	return out.Status, nil
}

func (c *AbacatePay) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("abacatepay: status %d: %s", resp.StatusCode, string(detail))
	}
	if out == nil {
		return nil
	}
	// 応答は {"data": {...}} 形式と素の {...} 形式の両方がありうる
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && len(envelope.Data) > 0 {
		return json.Unmarshal(envelope.Data, out)
	}
	return json.Unmarshal(raw, out)
}
