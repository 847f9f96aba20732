package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	natsgo "github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/fastygo/lifequest/domain"
	"github.com/fastygo/lifequest/internal/config"
)

// Conn is the subset of *nats.Conn the publisher needs.
type Conn interface {
	Publish(subject string, data []byte) error
}

// Connect dials the configured server with bounded reconnects.
func Connect(cfg config.NATSConfig, appName string, logger *zap.Logger) (*natsgo.Conn, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	conn, err := natsgo.Connect(cfg.URL,
		natsgo.Name(appName),
		natsgo.MaxReconnects(5),
		natsgo.ReconnectWait(time.Second),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			logger.Warn("nats disconnected", zap.Error(err))
		}),
		natsgo.ReconnectHandler(func(c *natsgo.Conn) {
			logger.Info("nats reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	logger.Info("connected to nats", zap.String("url", conn.ConnectedUrl()))
	return conn, nil
}

// Publisher announces committed task completions on a single subject.
type Publisher struct {
	conn    Conn
	subject string
	logger  *zap.Logger
}

func NewPublisher(conn Conn, subject string, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{conn: conn, subject: subject, logger: logger}
}

func (p *Publisher) PublishCompletion(ctx context.Context, event domain.CompletionEvent) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled before publish: %w", err)
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal completion event: %w", err)
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		return fmt.Errorf("publish to %s: %w", p.subject, err)
	}
	p.logger.Debug("completion event published",
		zap.String("subject", p.subject),
		zap.String("task_id", event.TaskID),
	)
	return nil
}
