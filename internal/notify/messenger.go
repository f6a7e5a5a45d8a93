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

// ContactMessenger reaches manual suppliers over an SMS/email relay. Which
// medium is used depends on what the contact record carries; SMS is preferred
// when both are present.
type ContactMessenger struct {
	httpClient  *http.Client
	relayURL    string
	apiKey      string
	fromEmail   string
	smsEnabled  bool
	mailEnabled bool
}

// MessengerOption configures optional messenger behavior.
type MessengerOption func(*ContactMessenger)

// WithMessengerHTTPClient overrides the default HTTP client.
func WithMessengerHTTPClient(client *http.Client) MessengerOption {
	return func(m *ContactMessenger) {
		if client != nil {
			m.httpClient = client
		}
	}
}

// NewContactMessenger builds the SMS/email relay channel.
func NewContactMessenger(relayURL, apiKey, fromEmail string, timeout time.Duration, smsEnabled, mailEnabled bool, opts ...MessengerOption) *ContactMessenger {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	m := &ContactMessenger{
		httpClient:  &http.Client{Timeout: timeout},
		relayURL:    strings.TrimSpace(relayURL),
		apiKey:      strings.TrimSpace(apiKey),
		fromEmail:   strings.TrimSpace(fromEmail),
		smsEnabled:  smsEnabled,
		mailEnabled: mailEnabled,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

type relayMessage struct {
	Medium  string `json:"medium"`
	To      string `json:"to"`
	From    string `json:"from,omitempty"`
	Subject string `json:"subject,omitempty"`
	Body    string `json:"body"`
}

func (m *ContactMessenger) Notify(ctx context.Context, n OrderNotification) Result {
	if n.Supplier == nil {
		return Result{Channel: ChannelMessenger, Status: StatusSkipped, Reason: "no supplier contact"}
	}
	if m.relayURL == "" {
		return Result{Channel: ChannelMessenger, Status: StatusSkipped, Reason: "messenger relay not configured"}
	}

	msg, ok := m.buildMessage(n)
	if !ok {
		return Result{Channel: ChannelMessenger, Status: StatusSkipped, Reason: "contact has no reachable medium"}
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return Result{Channel: ChannelMessenger, Status: StatusFailed, Reason: "marshal payload", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(m.relayURL, "/")+"/messages", bytes.NewReader(payload))
	if err != nil {
		return Result{Channel: ChannelMessenger, Status: StatusFailed, Reason: "build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if m.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+m.apiKey)
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return Result{Channel: ChannelMessenger, Status: StatusFailed, Reason: "execute request", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		msgBody, _ := io.ReadAll(io.LimitReader(resp.Body, webhookBodyReadLimit))
		return Result{
			Channel: ChannelMessenger,
			Status:  StatusFailed,
			Reason:  fmt.Sprintf("status %d", resp.StatusCode),
			Err:     fmt.Errorf("messenger relay status %d: %s", resp.StatusCode, strings.TrimSpace(string(msgBody))),
		}
	}
	return Result{Channel: ChannelMessenger, Status: StatusSent}
}

func (m *ContactMessenger) buildMessage(n OrderNotification) (relayMessage, bool) {
	body := renderBody(n)
	if m.smsEnabled && n.Supplier.Phone != "" {
		return relayMessage{Medium: "sms", To: n.Supplier.Phone, Body: body}, true
	}
	if m.mailEnabled && n.Supplier.Email != "" {
		return relayMessage{
			Medium:  "email",
			To:      n.Supplier.Email,
			From:    m.fromEmail,
			Subject: renderSubject(n),
			Body:    body,
		}, true
	}
	return relayMessage{}, false
}

func renderSubject(n OrderNotification) string {
	switch n.Event {
	case OrderEventCancelled:
		return fmt.Sprintf("Order %s cancelled", n.OrderNo)
	case OrderEventCompleted:
		return fmt.Sprintf("Order %s completed", n.OrderNo)
	default:
		return fmt.Sprintf("New order %s", n.OrderNo)
	}
}

func renderBody(n OrderNotification) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", renderSubject(n))
	for _, item := range n.Items {
		fmt.Fprintf(&b, "- %s x%d @ %s\n", item.Name, item.Qty, item.UnitPrice.StringFixed(2))
	}
	fmt.Fprintf(&b, "Total: %s", n.Total.StringFixed(2))
	return b.String()
}
