package analysis

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/maintex/partwatch/internal/agent"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeCaller scripts agent responses per call, recording every request.
type fakeCaller struct {
	mu        sync.Mutex
	requests  []agent.Request
	responses []func(agent.Request) (agent.Response, error)
}

func (f *fakeCaller) Call(_ context.Context, req agent.Request) (agent.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if len(f.responses) == 0 {
		return agent.Response{}, errors.New("no scripted response")
	}
	fn := f.responses[0]
	if len(f.responses) > 1 {
		f.responses = f.responses[1:]
	}
	return fn(req)
}

func (f *fakeCaller) calls() []agent.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]agent.Request(nil), f.requests...)
}

func respondWith(text, conversationID string) func(agent.Request) (agent.Response, error) {
	return func(agent.Request) (agent.Response, error) {
		return agent.Response{Text: text, ConversationID: conversationID}, nil
	}
}

func failWith(msg string) func(agent.Request) (agent.Response, error) {
	return func(agent.Request) (agent.Response, error) {
		return agent.Response{}, errors.New(msg)
	}
}

func newTestDriver(t *testing.T, client agent.Caller) *Driver {
	t.Helper()
	d, err := NewDriver(client, DriverConfig{
		StatusAgentID:      "agent-status",
		StatusInstructions: "check lifecycle status",
		RetryDelay:         time.Millisecond,
	}, discardLogger())
	if err != nil {
		t.Fatalf("NewDriver: %v", err)
	}
	return d
}

func batchResponse(batch []ProductRecord, status string) string {
	var rows []string
	for _, p := range batch {
		rows = append(rows, fmt.Sprintf(
			`{"manufacturer":%q,"part_number":%q,"ai_status":%q,"notes_by_ai":"Verified","ai_confidence":"High"}`,
			p.ResolvedManufacturer(), p.ResolvedPartNumber(), status))
	}
	return `{"results":[` + strings.Join(rows, ",") + `]}`
}

func TestNewDriver_RequiresStatusAgent(t *testing.T) {
	if _, err := NewDriver(&fakeCaller{}, DriverConfig{}, discardLogger()); err == nil {
		t.Fatal("expected error for missing status agent")
	}
	if _, err := NewDriver(nil, DriverConfig{StatusAgentID: "a"}, discardLogger()); err == nil {
		t.Fatal("expected error for nil client")
	}
}

func TestNewDriver_ReplacementFallsBackToStatusAgent(t *testing.T) {
	d, err := NewDriver(&fakeCaller{}, DriverConfig{StatusAgentID: "agent-1"}, discardLogger())
	if err != nil {
		t.Fatalf("NewDriver: %v", err)
	}
	if got := d.agentID(ModeFindReplacement); got != "agent-1" {
		t.Errorf("expected replacement agent to fall back to agent-1, got %q", got)
	}
}

func TestRunBatch_FencedResponse(t *testing.T) {
	batch := makeProducts(3)
	fake := &fakeCaller{responses: []func(agent.Request) (agent.Response, error){
		respondWith("Here you go:\n```json\n"+batchResponse(batch, "Active")+"\n```", "thread_1"),
	}}
	d := newTestDriver(t, fake)
	sess := NewSession("")

	env := d.RunBatch(context.Background(), batch, sess, ModeStatusCheck)

	if !env.Success {
		t.Fatal("expected success")
	}
	if env.ConversationID != "thread_1" {
		t.Errorf("expected thread_1, got %q", env.ConversationID)
	}
	if len(env.Parsed.Results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(env.Parsed.Results))
	}
	if env.Parsed.Results[0]["ai_status"] != "Active" {
		t.Errorf("expected Active, got %v", env.Parsed.Results[0]["ai_status"])
	}
	if sess.Token() != "thread_1" {
		t.Errorf("expected session advanced to thread_1, got %q", sess.Token())
	}
}

func TestRunBatch_ExhaustedRetriesDegradeToFallback(t *testing.T) {
	batch := makeProducts(4)
	fake := &fakeCaller{responses: []func(agent.Request) (agent.Response, error){
		failWith("provider down"),
	}}
	d := newTestDriver(t, fake)

	env := d.RunBatch(context.Background(), batch, NewSession(""), ModeStatusCheck)

	if calls := fake.calls(); len(calls) != 3 {
		t.Fatalf("expected 3 attempts, got %d", len(calls))
	}
	if !env.Success {
		t.Fatal("expected success despite exhausted retries")
	}
	if env.Err == "" {
		t.Error("expected envelope to record the error")
	}
	if len(env.Parsed.Results) != 4 {
		t.Fatalf("expected one fallback row per product, got %d", len(env.Parsed.Results))
	}
	for i, row := range env.Parsed.Results {
		if row["ai_status"] != "Review" || row["ai_confidence"] != "Low" {
			t.Errorf("row %d: expected Review/Low fallback, got %v/%v", i, row["ai_status"], row["ai_confidence"])
		}
	}
}

func TestRunBatch_UnparseableTextDegradesToFallback(t *testing.T) {
	batch := makeProducts(2)
	fake := &fakeCaller{responses: []func(agent.Request) (agent.Response, error){
		respondWith("I could not complete the analysis, sorry.", "thread_9"),
	}}
	d := newTestDriver(t, fake)
	sess := NewSession("")

	env := d.RunBatch(context.Background(), batch, sess, ModeStatusCheck)

	if !env.Success {
		t.Fatal("expected success")
	}
	if len(env.Parsed.Results) != 2 {
		t.Fatalf("expected 2 fallback rows, got %d", len(env.Parsed.Results))
	}
	if sess.Token() != "thread_9" {
		t.Errorf("token should advance even on parse failure, got %q", sess.Token())
	}
}

func TestRunBatch_InstructionsOnlyPrimeNewSession(t *testing.T) {
	batch := makeProducts(1)
	fake := &fakeCaller{responses: []func(agent.Request) (agent.Response, error){
		respondWith(batchResponse(batch, "Active"), "thread_1"),
		respondWith(batchResponse(batch, "Active"), "thread_1"),
	}}
	d := newTestDriver(t, fake)
	sess := NewSession("")

	d.RunBatch(context.Background(), batch, sess, ModeStatusCheck)
	d.RunBatch(context.Background(), batch, sess, ModeStatusCheck)

	calls := fake.calls()
	if len(calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(calls))
	}
	if calls[0].Instructions == "" {
		t.Error("first call should carry instructions")
	}
	if calls[0].ConversationID != "" {
		t.Errorf("first call should start a new conversation, got %q", calls[0].ConversationID)
	}
	if calls[1].Instructions != "" {
		t.Error("second call should not repeat instructions")
	}
	if calls[1].ConversationID != "thread_1" {
		t.Errorf("second call should resume thread_1, got %q", calls[1].ConversationID)
	}
}

func TestRunBatch_RetryThenSuccess(t *testing.T) {
	batch := makeProducts(2)
	fake := &fakeCaller{responses: []func(agent.Request) (agent.Response, error){
		failWith("transient"),
		respondWith(batchResponse(batch, "Obsolete"), "thread_2"),
	}}
	d := newTestDriver(t, fake)

	env := d.RunBatch(context.Background(), batch, NewSession(""), ModeStatusCheck)

	if len(fake.calls()) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(fake.calls()))
	}
	if env.Err != "" {
		t.Errorf("recovered call should not record an error, got %q", env.Err)
	}
	if env.Parsed.Results[0]["ai_status"] != "Obsolete" {
		t.Errorf("expected Obsolete, got %v", env.Parsed.Results[0]["ai_status"])
	}
}

func TestRunBatch_EmptyBatch(t *testing.T) {
	d := newTestDriver(t, &fakeCaller{})
	env := d.RunBatch(context.Background(), nil, NewSession(""), ModeStatusCheck)
	if env.Success {
		t.Fatal("empty batch should not succeed")
	}
}

func TestRunBatch_ReconcilePadsMissingRows(t *testing.T) {
	batch := makeProducts(3)
	// Model answers for only the middle product.
	partial := fmt.Sprintf(
		`{"results":[{"manufacturer":"BANNER","part_number":%q,"ai_status":"Active","notes_by_ai":"ok","ai_confidence":"High"}]}`,
		batch[1].PartNumber)
	fake := &fakeCaller{responses: []func(agent.Request) (agent.Response, error){
		respondWith(partial, "thread_1"),
	}}
	d := newTestDriver(t, fake)

	env := d.RunBatch(context.Background(), batch, NewSession(""), ModeStatusCheck)

	if len(env.Parsed.Results) != 3 {
		t.Fatalf("expected one row per product, got %d", len(env.Parsed.Results))
	}
	if env.Parsed.Results[0]["ai_status"] != "Review" {
		t.Errorf("unmatched product should get a fallback row, got %v", env.Parsed.Results[0]["ai_status"])
	}
	if env.Parsed.Results[1]["ai_status"] != "Active" {
		t.Errorf("matched product should keep the model row, got %v", env.Parsed.Results[1]["ai_status"])
	}
}

func TestFormatBatch(t *testing.T) {
	batch := []ProductRecord{
		{Manufacturer: "BANNER", PartNumber: "45136"},
		{PartManufacturer: "SMC", ManufacturerPartNumber: "NVM850"},
	}

	status := FormatBatch(batch, ModeStatusCheck)
	if !strings.HasPrefix(status, "Part Manufacturer\tManufacturer Part #\n") {
		t.Errorf("unexpected status header: %q", status)
	}
	if !strings.Contains(status, "BANNER\t45136\n") || !strings.Contains(status, "SMC\tNVM850\n") {
		t.Errorf("missing rows in %q", status)
	}

	repl := FormatBatch(batch, ModeFindReplacement)
	if !strings.HasPrefix(repl, "Manufacturer\tObsolete Part #\n") {
		t.Errorf("unexpected replacement header: %q", repl)
	}
}

func TestCallWithRetry_ContextCancelledDuringWait(t *testing.T) {
	batch := makeProducts(1)
	fake := &fakeCaller{responses: []func(agent.Request) (agent.Response, error){
		failWith("down"),
	}}
	d, err := NewDriver(fake, DriverConfig{
		StatusAgentID: "agent-status",
		RetryDelay:    time.Minute,
	}, discardLogger())
	if err != nil {
		t.Fatalf("NewDriver: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	env := d.RunBatch(ctx, batch, NewSession(""), ModeStatusCheck)
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("cancellation did not interrupt retry wait, took %v", elapsed)
	}
	if !env.Success || len(env.Parsed.Results) != 1 {
		t.Fatal("cancelled batch should still degrade to fallback rows")
	}
}
