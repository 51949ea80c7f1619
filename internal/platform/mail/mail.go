package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

type Message struct {
	To      string
	Subject string
	HTML    string
}

// Notifier は通知手段の差し替え用インターフェース（Email/Slack/SMS）
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// ConsoleNotifier logs instead of sending. Used when no mail key is set.
type ConsoleNotifier struct{}

func NewConsole() *ConsoleNotifier {
	return &ConsoleNotifier{}
}

func (c *ConsoleNotifier) Send(_ context.Context, msg Message) error {
	log.Printf("[mail] to=%s subject=%q", msg.To, msg.Subject)
	return nil
}

// ResendNotifier delivers through the Resend HTTP API.
type ResendNotifier struct {
	apiKey  string
	from    string
	baseURL string
	httpc   *http.Client
}

func NewResend(apiKey, from string) *ResendNotifier {
	return &ResendNotifier{
		apiKey:  apiKey,
		from:    from,
		baseURL: "https://api.resend.com",
		httpc:   &http.Client{Timeout: 10 * time.Second},
	}
}

// NewResendWithBaseURL is for tests against a local httptest server.
func NewResendWithBaseURL(apiKey, from, baseURL string) *ResendNotifier {
	n := NewResend(apiKey, from)
	n.baseURL = baseURL
	return n
}

type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

func (n *ResendNotifier) Send(ctx context.Context, msg Message) error {
	body, err := json.Marshal(resendRequest{
		From:    n.from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		HTML:    msg.HTML,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.baseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+n.apiKey)

	resp, err := n.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("resend: status %d: %s", resp.StatusCode, string(detail))
	}
	return nil
}
