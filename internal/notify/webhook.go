package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const webhookBodyReadLimit int64 = 1024

// SupplierWebhook posts order events to the linked supplier platform. One
// attempt per event with a short timeout; there is no retry or outbox, a
// failure is reported to the dispatcher and escalated as an operator alert.
type SupplierWebhook struct {
	httpClient     *http.Client
	defaultBaseURL string
	apiKey         string
}

// WebhookOption configures optional webhook client behavior.
type WebhookOption func(*SupplierWebhook)

// WithWebhookHTTPClient overrides the default HTTP client.
func WithWebhookHTTPClient(client *http.Client) WebhookOption {
	return func(w *SupplierWebhook) {
		if client != nil {
			w.httpClient = client
		}
	}
}

// NewSupplierWebhook builds the webhook channel. defaultBaseURL is used for
// contacts without a per-supplier override.
func NewSupplierWebhook(defaultBaseURL, apiKey string, timeout time.Duration, opts ...WebhookOption) *SupplierWebhook {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	w := &SupplierWebhook{
		httpClient:     &http.Client{Timeout: timeout},
		defaultBaseURL: strings.TrimSpace(defaultBaseURL),
		apiKey:         strings.TrimSpace(apiKey),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}
	return w
}

func (w *SupplierWebhook) Notify(ctx context.Context, n OrderNotification) Result {
	if !n.Supplier.PlatformLinked() {
		return Result{Channel: ChannelWebhook, Status: StatusSkipped, Reason: "supplier not platform-linked"}
	}

	baseURL := w.defaultBaseURL
	if n.Supplier.BaseURL != "" {
		baseURL = n.Supplier.BaseURL
	}
	if baseURL == "" {
		return Result{Channel: ChannelWebhook, Status: StatusSkipped, Reason: "no webhook base url configured"}
	}

	path, err := eventPath(n.Event)
	if err != nil {
		return Result{Channel: ChannelWebhook, Status: StatusFailed, Reason: "unsupported event", Err: err}
	}

	body := struct {
		OrderNotification
		SupplierTenantID string `json:"supplier_tenant_id"`
	}{
		OrderNotification: n,
		SupplierTenantID:  n.Supplier.LinkedTenantID.String(),
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return Result{Channel: ChannelWebhook, Status: StatusFailed, Reason: "marshal payload", Err: err}
	}

	url := strings.TrimRight(baseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return Result{Channel: ChannelWebhook, Status: StatusFailed, Reason: "build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if w.apiKey != "" {
		req.Header.Set("X-API-Key", w.apiKey)
	}

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return Result{Channel: ChannelWebhook, Status: StatusFailed, Reason: "execute request", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, webhookBodyReadLimit))
		return Result{
			Channel: ChannelWebhook,
			Status:  StatusFailed,
			Reason:  fmt.Sprintf("status %d", resp.StatusCode),
			Err:     fmt.Errorf("supplier webhook status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))),
		}
	}
	return Result{Channel: ChannelWebhook, Status: StatusSent}
}

func eventPath(event OrderEvent) (string, error) {
	switch event {
	case OrderEventCreated:
		return "/supplier/orders", nil
	case OrderEventCancelled:
		return "/supplier/orders/cancel", nil
	case OrderEventCompleted:
		return "/supplier/orders/complete", nil
	default:
		return "", fmt.Errorf("unknown order event %q", event)
	}
}
