package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/maintex/partwatch/internal/agent"
	"github.com/maintex/partwatch/internal/analysis"
	"github.com/maintex/partwatch/internal/runlog"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// scriptedCaller answers every agent call with one conforming row per product
// line in the input tabulation.
type scriptedCaller struct {
	status string
}

func (c *scriptedCaller) Call(_ context.Context, req agent.Request) (agent.Response, error) {
	status := c.status
	if status == "" {
		status = "Active"
	}
	var rows []string
	for _, line := range strings.Split(strings.TrimSpace(req.Input), "\n")[1:] {
		fields := strings.SplitN(line, "\t", 2)
		if len(fields) != 2 {
			continue
		}
		rows = append(rows, `{"manufacturer":"`+fields[0]+`","part_number":"`+fields[1]+
			`","ai_status":"`+status+`","notes_by_ai":"ok","ai_confidence":"High"}`)
	}
	return agent.Response{
		Text:           `{"results":[` + strings.Join(rows, ",") + `]}`,
		ConversationID: "thread_test",
	}, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	driver, err := analysis.NewDriver(&scriptedCaller{}, analysis.DriverConfig{
		StatusAgentID: "asst_test",
		MaxAttempts:   1,
		RetryDelay:    time.Millisecond,
	}, discardLogger())
	if err != nil {
		t.Fatalf("NewDriver: %v", err)
	}
	engine := analysis.NewEngine(driver, 10, discardLogger())
	rl := runlog.NewWriter(t.TempDir(), discardLogger())
	return NewServer(0, engine, nil, rl, nil, discardLogger())
}

func postJSON(t *testing.T, handler http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAnalyze_EmptyProducts(t *testing.T) {
	s := newTestServer(t)
	rec := postJSON(t, s.Handler(), "/api/analyze", `{"products":[]}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "No products provided") {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}

func TestAnalyze_InvalidJSON(t *testing.T) {
	s := newTestServer(t)
	rec := postJSON(t, s.Handler(), "/api/analyze", `{"products":`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestAnalyze_NonStreaming(t *testing.T) {
	s := newTestServer(t)
	rec := postJSON(t, s.Handler(), "/api/analyze", `{"products":[
		{"manufacturer":"BANNER","part_number":"45136"},
		{"part_manufacturer":"SMC","manufacturer_part_number":"NVM850"}
	]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp analyzeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Success {
		t.Error("expected success")
	}
	if resp.TotalAnalyzed != 2 || len(resp.Results) != 2 {
		t.Fatalf("expected 2 results, got total=%d len=%d", resp.TotalAnalyzed, len(resp.Results))
	}
	if resp.Results[1]["part_number"] != "NVM850" {
		t.Errorf("persisted-schema record not resolved: %v", resp.Results[1])
	}
}

func TestAnalyzeReplacements_SkipsNegativeStockingDecisions(t *testing.T) {
	s := newTestServer(t)
	rec := postJSON(t, s.Handler(), "/api/analyze/replacements", `{"products":[
		{"manufacturer":"FESTO","part_number":"MFH-3-1/4","stocking_decision":"Stock"},
		{"manufacturer":"SMC","part_number":"NVM850","stocking_decision":"Do Not Stock"},
		{"manufacturer":"BANNER","part_number":"45136"}
	]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp analyzeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.TotalSkipped != 2 {
		t.Errorf("expected 2 skipped, got %d", resp.TotalSkipped)
	}
	if resp.TotalAnalyzed != 1 {
		t.Errorf("expected 1 analyzed, got %d", resp.TotalAnalyzed)
	}
	if len(resp.Results) != 3 {
		t.Fatalf("expected one row per submitted product, got %d", len(resp.Results))
	}

	placeholders := 0
	for _, row := range resp.Results {
		if notes, _ := row["notes"].(string); strings.HasPrefix(notes, "Skipped") {
			placeholders++
		}
	}
	if placeholders != 2 {
		t.Errorf("expected 2 placeholder rows, got %d", placeholders)
	}
}

func TestAnalyze_Streaming(t *testing.T) {
	s := newTestServer(t)
	rec := postJSON(t, s.Handler(), "/api/analyze", `{"products":[
		{"manufacturer":"BANNER","part_number":"45136"},
		{"manufacturer":"SMC","part_number":"NVM850"}
	],"stream":true}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("expected text/event-stream, got %q", ct)
	}

	var frames []analysis.Event
	scanner := bufio.NewScanner(rec.Body)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var ev analysis.Event
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev); err != nil {
			t.Fatalf("bad frame %q: %v", line, err)
		}
		frames = append(frames, ev)
	}

	if len(frames) < 3 {
		t.Fatalf("expected at least start/result/complete frames, got %d", len(frames))
	}
	if frames[0].Type != analysis.EventStart {
		t.Errorf("expected start first, got %s", frames[0].Type)
	}
	last := frames[len(frames)-1]
	if last.Type != analysis.EventComplete {
		t.Fatalf("expected complete last, got %s", last.Type)
	}
	if len(last.Results) != 2 {
		t.Errorf("expected 2 aggregated results, got %d", len(last.Results))
	}
}

func TestParts_WithoutDatabase(t *testing.T) {
	s := newTestServer(t)
	for _, path := range []string{"/api/parts", "/api/parts/machines"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("%s: expected 503, got %d", path, rec.Code)
		}
	}
}
