package analysis

import (
	"context"
	"log/slog"
	"sync"
)

const (
	defaultBatchSize = 30
	maxWorkers       = 5
)

// Engine partitions a product list into batches and drives them through the
// Driver, either fanned out over a bounded worker pool (Run) or strictly in
// order with incremental event frames (Stream). Each run owns one Session.
type Engine struct {
	driver    *Driver
	batchSize int
	logger    *slog.Logger
}

func NewEngine(driver *Driver, batchSize int, logger *slog.Logger) *Engine {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &Engine{driver: driver, batchSize: batchSize, logger: logger}
}

func (e *Engine) BatchSize() int { return e.batchSize }

// Run is the non-streaming path. Batches are dispatched to min(batches, 5)
// workers and their envelopes concatenated in completion order. Workers share
// the run's session, so a token observed from a completed batch is handed to
// the next still-pending submission best-effort; there is no run-level
// failure, only fallback rows where a batch degraded.
func (e *Engine) Run(ctx context.Context, products []ProductRecord, mode Mode) ResultSet {
	batches := Partition(products, e.batchSize)
	if len(batches) == 0 {
		return ResultSet{Results: []ResultItem{}}
	}

	sess := NewSession("")

	workers := len(batches)
	if workers > maxWorkers {
		workers = maxWorkers
	}

	jobs := make(chan []ProductRecord)
	envelopes := make(chan Envelope, len(batches))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for batch := range jobs {
				envelopes <- e.driver.RunBatch(ctx, batch, sess, mode)
			}
		}()
	}

	go func() {
		for _, batch := range batches {
			jobs <- batch
		}
		close(jobs)
		wg.Wait()
		close(envelopes)
	}()

	aggregate := ResultSet{Results: []ResultItem{}}
	for env := range envelopes {
		if env.Parsed == nil {
			continue
		}
		if aggregate.CheckedDate == "" {
			aggregate.CheckedDate = env.Parsed.CheckedDate
		}
		aggregate.Results = append(aggregate.Results, env.Parsed.Results...)
	}

	e.logger.Info("analysis run complete",
		"mode", string(mode),
		"products", len(products),
		"batches", len(batches),
		"results", len(aggregate.Results),
	)
	return aggregate
}

// Stream is the ordering-sensitive path. Batches run one at a time in
// submission order and the returned channel carries exactly one start frame,
// the per-batch frames, and one terminal complete (or error) frame before
// closing. Cancelling ctx abandons the stream; the channel is closed without
// further frames once the consumer is gone.
func (e *Engine) Stream(ctx context.Context, products []ProductRecord, mode Mode) <-chan Event {
	out := make(chan Event)

	go func() {
		defer close(out)

		emit := func(ev Event) bool {
			select {
			case out <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		}

		defer func() {
			if r := recover(); r != nil {
				e.logger.Error("streaming run panicked", "mode", string(mode), "panic", r)
				emit(Event{Type: EventError, Message: "internal error during streaming analysis"})
			}
		}()

		batches := Partition(products, e.batchSize)
		if !emit(Event{Type: EventStart, TotalChunks: len(batches), TotalProducts: len(products)}) {
			return
		}

		sess := NewSession("")
		aggregate := ResultSet{Results: []ResultItem{}}

		for i, batch := range batches {
			if !emit(Event{
				Type:            EventChunkStart,
				Chunk:           i + 1,
				TotalChunks:     len(batches),
				ProductsInChunk: len(batch),
			}) {
				return
			}

			rs, ok := e.driver.StreamBatch(ctx, batch, sess, mode, emit)
			if !ok {
				return
			}
			if aggregate.CheckedDate == "" {
				aggregate.CheckedDate = rs.CheckedDate
			}
			aggregate.Results = append(aggregate.Results, rs.Results...)

			if !emit(Event{Type: EventChunkComplete, Chunk: i + 1, TotalChunks: len(batches)}) {
				return
			}
		}

		emit(Event{
			Type:          EventComplete,
			CheckedDate:   aggregate.CheckedDate,
			Results:       aggregate.Results,
			TotalAnalyzed: len(aggregate.Results),
		})
	}()

	return out
}
