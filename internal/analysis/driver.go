package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/maintex/partwatch/internal/agent"
)

const (
	defaultMaxAttempts     = 3
	defaultRetryDelay      = 2 * time.Second
	defaultMaxOutputTokens = 2500
	defaultTemperature     = 0.2
)

// DriverConfig carries the per-mode agent identities and call tuning. The
// replacement agent falls back to the status agent when unconfigured.
type DriverConfig struct {
	StatusAgentID           string
	ReplacementAgentID      string
	StatusInstructions      string
	ReplacementInstructions string
	MaxAttempts             int
	RetryDelay              time.Duration
	MaxOutputTokens         int
	Temperature             float32
}

// Driver runs one batch through the external agent: format the request, call
// with bounded retries, extract a ResultSet from whatever text came back, and
// degrade to synthesized fallback rows rather than surfacing provider or
// parse failures. Nothing past construction ever raises to the caller.
type Driver struct {
	client agent.Caller
	cfg    DriverConfig
	logger *slog.Logger
}

// NewDriver validates the agent configuration up front; a missing status
// agent identity is the only fatal condition in the whole pipeline.
func NewDriver(client agent.Caller, cfg DriverConfig, logger *slog.Logger) (*Driver, error) {
	if client == nil {
		return nil, fmt.Errorf("agent client is required")
	}
	if cfg.StatusAgentID == "" {
		return nil, fmt.Errorf("status agent identity is required")
	}
	if cfg.ReplacementAgentID == "" {
		cfg.ReplacementAgentID = cfg.StatusAgentID
	}
	if cfg.ReplacementInstructions == "" {
		cfg.ReplacementInstructions = cfg.StatusInstructions
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = defaultRetryDelay
	}
	if cfg.MaxOutputTokens <= 0 {
		cfg.MaxOutputTokens = defaultMaxOutputTokens
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = defaultTemperature
	}
	return &Driver{client: client, cfg: cfg, logger: logger}, nil
}

// RunBatch analyzes one batch within the given session. The returned envelope
// always carries a ResultSet with exactly one row per product in the batch;
// degraded calls contribute Review/Low fallback rows instead of errors.
func (d *Driver) RunBatch(ctx context.Context, batch []ProductRecord, sess *Session, mode Mode) Envelope {
	if len(batch) == 0 {
		return Envelope{Success: false, Err: "empty batch"}
	}

	req := agent.Request{
		AgentID:         d.agentID(mode),
		Input:           FormatBatch(batch, mode),
		MaxOutputTokens: d.cfg.MaxOutputTokens,
		Temperature:     d.cfg.Temperature,
	}

	resp, err := d.callWithRetry(ctx, req, sess, mode)
	if err != nil {
		d.logger.Error("agent call exhausted retries, synthesizing fallback",
			"mode", string(mode),
			"batch_size", len(batch),
			"error", err,
		)
		fb := Synthesize(batch, mode)
		return Envelope{
			Success:        true,
			ConversationID: sess.Token(),
			Parsed:         &fb,
			BatchSize:      len(batch),
			Err:            err.Error(),
		}
	}

	sess.Advance(resp.ConversationID)

	raw := strings.TrimSpace(resp.Text)
	parsed, ok := Extract(raw)
	if raw == "" || !ok {
		d.logger.Warn("no parseable assistant output, synthesizing fallback",
			"mode", string(mode),
			"batch_size", len(batch),
			"raw_len", len(raw),
		)
		fb := Synthesize(batch, mode)
		return Envelope{
			Success:        true,
			ConversationID: sess.Token(),
			RawText:        raw,
			Parsed:         &fb,
			BatchSize:      len(batch),
		}
	}

	return Envelope{
		Success:        true,
		ConversationID: sess.Token(),
		RawText:        raw,
		Parsed:         reconcile(batch, parsed, mode),
		BatchSize:      len(batch),
	}
}

// StreamBatch is the streaming variant of RunBatch: it relays a progress
// frame and then a result frame through emit. Degraded batches still emit a
// result frame carrying fallback rows, so a stream never fails because of one
// bad provider call. The return reports whether the consumer is still there.
func (d *Driver) StreamBatch(ctx context.Context, batch []ProductRecord, sess *Session, mode Mode, emit func(Event) bool) (*ResultSet, bool) {
	if !emit(Event{Type: EventProgress, Message: fmt.Sprintf("Analyzing %d products...", len(batch))}) {
		return nil, false
	}
	env := d.RunBatch(ctx, batch, sess, mode)
	if env.Parsed == nil {
		fb := Synthesize(batch, mode)
		env.Parsed = &fb
	}
	ok := emit(Event{
		Type:             EventResult,
		ConversationID:   env.ConversationID,
		Data:             env.Parsed,
		ProductsAnalyzed: len(batch),
	})
	return env.Parsed, ok
}

func (d *Driver) callWithRetry(ctx context.Context, req agent.Request, sess *Session, mode Mode) (agent.Response, error) {
	var lastErr error
	for attempt := 1; attempt <= d.cfg.MaxAttempts; attempt++ {
		r := req
		r.ConversationID = sess.Token()
		if r.ConversationID == "" {
			// New conversation: prime it once with the mode's instructions.
			r.Instructions = d.instructions(mode)
		}

		resp, err := d.client.Call(ctx, r)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		d.logger.Warn("agent call failed",
			"mode", string(mode),
			"attempt", attempt,
			"max_attempts", d.cfg.MaxAttempts,
			"error", err,
		)
		if attempt == d.cfg.MaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return agent.Response{}, fmt.Errorf("retry wait: %w", ctx.Err())
		case <-time.After(d.cfg.RetryDelay):
		}
	}
	return agent.Response{}, lastErr
}

func (d *Driver) agentID(mode Mode) string {
	if mode == ModeFindReplacement {
		return d.cfg.ReplacementAgentID
	}
	return d.cfg.StatusAgentID
}

func (d *Driver) instructions(mode Mode) string {
	if mode == ModeFindReplacement {
		return d.cfg.ReplacementInstructions
	}
	return d.cfg.StatusInstructions
}

// FormatBatch renders a batch as the tab-separated tabulation the agents are
// prompted to expect.
func FormatBatch(batch []ProductRecord, mode Mode) string {
	var sb strings.Builder
	if mode == ModeFindReplacement {
		sb.WriteString("Manufacturer\tObsolete Part #\n")
	} else {
		sb.WriteString("Part Manufacturer\tManufacturer Part #\n")
	}
	for _, p := range batch {
		sb.WriteString(p.ResolvedManufacturer())
		sb.WriteByte('\t')
		sb.WriteString(p.ResolvedPartNumber())
		sb.WriteByte('\n')
	}
	return sb.String()
}

// reconcile enforces the one-row-per-product guarantee. When the model
// returns exactly one row per product the set passes through untouched; when
// counts diverge, rows are matched to products by part number, unmatched
// products get fallback rows, and surplus or duplicate rows are dropped.
func reconcile(batch []ProductRecord, parsed *ResultSet, mode Mode) *ResultSet {
	if len(parsed.Results) == len(batch) {
		return parsed
	}

	partKey := "part_number"
	if mode == ModeFindReplacement {
		partKey = "obsolete_part_number"
	}

	byPart := make(map[string]ResultItem, len(parsed.Results))
	for _, item := range parsed.Results {
		pn, _ := item[partKey].(string)
		k := normalizeKey(pn)
		if k == "" {
			continue
		}
		if _, dup := byPart[k]; !dup {
			byPart[k] = item
		}
	}

	out := &ResultSet{
		CheckedDate: parsed.CheckedDate,
		Results:     make([]ResultItem, 0, len(batch)),
	}
	claimed := make(map[string]bool, len(batch))
	for _, p := range batch {
		k := normalizeKey(p.ResolvedPartNumber())
		if item, ok := byPart[k]; ok && !claimed[k] {
			claimed[k] = true
			out.Results = append(out.Results, item)
			continue
		}
		out.Results = append(out.Results, fallbackRow(p, mode))
	}
	return out
}

func normalizeKey(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
