// Package events publishes run lifecycle notifications to NATS so downstream
// tooling (dashboards, exports) can react without polling. The service runs
// fine without a broker configured.
package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// SubjectRunCompleted announces a finished analysis run.
const SubjectRunCompleted = "partwatch.analysis.run.completed"

// RunCompleted is the payload published on SubjectRunCompleted.
type RunCompleted struct {
	RunID         string    `json:"run_id"`
	Mode          string    `json:"mode"`
	TotalProducts int       `json:"total_products"`
	TotalAnalyzed int       `json:"total_analyzed"`
	TotalSkipped  int       `json:"total_skipped"`
	Streamed      bool      `json:"streamed"`
	CompletedAt   time.Time `json:"completed_at"`
}

type Publisher struct {
	conn   *nats.Conn
	logger *slog.Logger
}

func Connect(url, token string, logger *slog.Logger) (*Publisher, error) {
	opts := []nats.Option{
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats reconnected")
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return &Publisher{conn: nc, logger: logger}, nil
}

func (p *Publisher) Publish(subject string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return p.conn.Publish(subject, payload)
}

// PublishRunCompleted announces one finished run; failures are logged and
// swallowed since notification must never fail an analysis.
func (p *Publisher) PublishRunCompleted(runID uuid.UUID, mode string, totalProducts, totalAnalyzed, totalSkipped int, streamed bool) {
	evt := RunCompleted{
		RunID:         runID.String(),
		Mode:          mode,
		TotalProducts: totalProducts,
		TotalAnalyzed: totalAnalyzed,
		TotalSkipped:  totalSkipped,
		Streamed:      streamed,
		CompletedAt:   time.Now().UTC(),
	}
	if err := p.Publish(SubjectRunCompleted, evt); err != nil {
		p.logger.Warn("failed to publish run completed", "run_id", evt.RunID, "error", err)
	}
}

func (p *Publisher) Close() {
	p.conn.Close()
}
