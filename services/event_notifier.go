// services/event_notifier.go
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"skport-checkin/models"
)

const natsFlushTimeout = 5 * time.Second

// NATSNotifier publishes finished runs as JSON events.
type NATSNotifier struct {
	conn    *nats.Conn
	subject string
	logger  *zap.Logger
}

func NewNATSNotifier(url, subject string, logger *zap.Logger) (*NATSNotifier, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	nc, err := nats.Connect(url,
		nats.Name("skport-checkin"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	return &NATSNotifier{conn: nc, subject: subject, logger: logger}, nil
}

func (n *NATSNotifier) Notify(ctx context.Context, summary models.RunSummary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshaling run summary: %w", err)
	}
	if err := n.conn.Publish(n.subject, data); err != nil {
		return fmt.Errorf("publishing to %s: %w", n.subject, err)
	}
	// FlushWithContext refuses contexts without a deadline.
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, natsFlushTimeout)
		defer cancel()
	}
	if err := n.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("flushing NATS connection: %w", err)
	}
	n.logger.Info("[NOTIFY] 📡 run event published", zap.String("subject", n.subject), zap.String("run_id", summary.RunID))
	return nil
}

func (n *NATSNotifier) Close() error {
	n.conn.Close()
	return nil
}
