package alerts

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/arbormed/clinicstock-backend/internal/notify"
	"github.com/arbormed/clinicstock-backend/pkg/logger"
)

const publishTimeout = 10 * time.Second

// Publisher escalates failed order notifications to the operator alert topic.
// A nil Publisher is a valid no-op, so callers never need to branch on whether
// alerting is configured.
type Publisher struct {
	client    *pubsub.Client
	publisher *pubsub.Publisher
	log       *logger.Logger
}

// NewPublisher connects to Pub/Sub and binds the alert topic. Returns nil
// (no-op) when projectID or topic is empty.
func NewPublisher(ctx context.Context, projectID, topic string, log *logger.Logger) (*Publisher, error) {
	if strings.TrimSpace(projectID) == "" || strings.TrimSpace(topic) == "" {
		return nil, nil
	}

	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	return &Publisher{
		client:    client,
		publisher: client.Publisher(topicResourceName(projectID, topic)),
		log:       log,
	}, nil
}

type notificationFailureAlert struct {
	Kind     string    `json:"kind"`
	Event    string    `json:"event"`
	OrderNo  string    `json:"order_no"`
	TenantID string    `json:"tenant_id"`
	Channel  string    `json:"channel"`
	Reason   string    `json:"reason"`
	Error    string    `json:"error,omitempty"`
	At       time.Time `json:"at"`
}

// NotificationFailure publishes a failure event. Best effort: publish errors
// are logged, never returned.
func (p *Publisher) NotificationFailure(ctx context.Context, n notify.OrderNotification, result notify.Result) {
	if p == nil || p.publisher == nil {
		return
	}

	alert := notificationFailureAlert{
		Kind:     "order_notification_failure",
		Event:    string(n.Event),
		OrderNo:  n.OrderNo,
		TenantID: n.TenantID.String(),
		Channel:  string(result.Channel),
		Reason:   result.Reason,
		At:       time.Now().UTC(),
	}
	if result.Err != nil {
		alert.Error = result.Err.Error()
	}

	payload, err := json.Marshal(alert)
	if err != nil {
		p.logError(ctx, "marshal notification failure alert", err)
		return
	}

	publishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	res := p.publisher.Publish(publishCtx, &pubsub.Message{
		Data: payload,
		Attributes: map[string]string{
			"kind":     alert.Kind,
			"order_no": alert.OrderNo,
		},
	})
	if _, err := res.Get(publishCtx); err != nil {
		p.logError(ctx, "publish notification failure alert", err)
	}
}

// Close releases the underlying Pub/Sub client.
func (p *Publisher) Close() error {
	if p == nil || p.client == nil {
		return nil
	}
	return p.client.Close()
}

func (p *Publisher) logError(ctx context.Context, msg string, err error) {
	if p.log != nil {
		p.log.Error(ctx, msg, err)
	}
}

func topicResourceName(projectID, topic string) string {
	if strings.HasPrefix(topic, "projects/") {
		return topic
	}
	return fmt.Sprintf("projects/%s/topics/%s", projectID, topic)
}
