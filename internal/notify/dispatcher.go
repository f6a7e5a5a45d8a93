package notify

import (
	"context"
	"fmt"

	"github.com/arbormed/clinicstock-backend/pkg/logger"
	"github.com/arbormed/clinicstock-backend/pkg/metrics"
)

// AlertSink receives notifications whose delivery failed so an operator can
// follow up manually. Implementations must never block or return errors to the
// dispatch path.
type AlertSink interface {
	NotificationFailure(ctx context.Context, n OrderNotification, result Result)
}

// Dispatcher routes one order notification to exactly one channel: webhook for
// platform-linked suppliers, the SMS/email messenger for manual contacts.
type Dispatcher struct {
	webhook   Notifier
	messenger Notifier
	metrics   *metrics.NotifyMetrics
	alerts    AlertSink
	log       *logger.Logger
}

// NewDispatcher wires the dispatcher. alerts may be nil when alerting is
// disabled.
func NewDispatcher(webhook, messenger Notifier, m *metrics.NotifyMetrics, alerts AlertSink, log *logger.Logger) (*Dispatcher, error) {
	if webhook == nil {
		return nil, fmt.Errorf("webhook notifier required")
	}
	if messenger == nil {
		return nil, fmt.Errorf("messenger notifier required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Dispatcher{
		webhook:   webhook,
		messenger: messenger,
		metrics:   m,
		alerts:    alerts,
		log:       log,
	}, nil
}

// Dispatch sends n over the channel the supplier linkage selects. The result
// is recorded and returned; callers treat it as informational.
func (d *Dispatcher) Dispatch(ctx context.Context, n OrderNotification) Result {
	var result Result
	switch {
	case n.Supplier == nil:
		result = Result{Channel: ChannelNone, Status: StatusSkipped, Reason: "no supplier contact"}
	case n.Supplier.PlatformLinked():
		result = d.webhook.Notify(ctx, n)
	default:
		result = d.messenger.Notify(ctx, n)
	}

	d.metrics.Observe(string(result.Channel), string(result.Status))

	ctx = d.log.WithOrderNo(ctx, n.OrderNo)
	switch result.Status {
	case StatusSent:
		d.log.Info(ctx, fmt.Sprintf("order notification sent via %s", result.Channel))
	case StatusSkipped:
		d.log.Info(ctx, fmt.Sprintf("order notification skipped: %s", result.Reason))
	case StatusFailed:
		d.log.Error(ctx, fmt.Sprintf("order notification failed via %s: %s", result.Channel, result.Reason), result.Err)
		if d.alerts != nil {
			d.alerts.NotificationFailure(ctx, n, result)
		}
	}
	return result
}
