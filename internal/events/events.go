// Package events publishes moderation events to NATS so other services can
// follow strikes and audit entries without polling the database.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const (
	SubjectAudit  = "audit"
	SubjectStrike = "strike"
)

// Conn is the subset of *nats.Conn the publisher needs.
type Conn interface {
	Publish(subject string, data []byte) error
	Drain() error
}

// Publisher is safe to use as a nil pointer, in which case nothing is sent.
type Publisher struct {
	conn   Conn
	prefix string
	logger *zap.Logger
}

func Connect(url, prefix string, logger *zap.Logger) (*Publisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("strike-warden"),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	logger.Info("nats connected", zap.String("url", nc.ConnectedUrl()))
	return New(nc, prefix, logger), nil
}

func New(conn Conn, prefix string, logger *zap.Logger) *Publisher {
	return &Publisher{conn: conn, prefix: prefix, logger: logger}
}

// Publish marshals payload as JSON onto <prefix>.<subject>.
func (p *Publisher) Publish(subject string, payload any) error {
	if p == nil || p.conn == nil {
		return nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("events: marshal %s: %w", subject, err)
	}
	if p.prefix != "" {
		subject = p.prefix + "." + subject
	}
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("events: publish %s: %w", subject, err)
	}
	return nil
}

// PublishLogged publishes synchronously and only logs failures.
func (p *Publisher) PublishLogged(subject string, payload any) {
	if err := p.Publish(subject, payload); err != nil {
		p.logger.Warn("publish event failed", zap.String("subject", subject), zap.Error(err))
	}
}

func (p *Publisher) Close() {
	if p == nil || p.conn == nil {
		return
	}
	if err := p.conn.Drain(); err != nil {
		p.logger.Warn("nats drain failed", zap.Error(err))
	}
}
