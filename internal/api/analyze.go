package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/maintex/partwatch/internal/analysis"
	"github.com/maintex/partwatch/internal/runlog"
	"github.com/maintex/partwatch/internal/store"
)

type analyzeRequest struct {
	Products []analysis.ProductRecord `json:"products"`
	Stream   bool                     `json:"stream"`
}

type analyzeResponse struct {
	Success       bool                  `json:"success"`
	Results       []analysis.ResultItem `json:"results"`
	CheckedDate   string                `json:"checked_date,omitempty"`
	TotalAnalyzed int                   `json:"total_analyzed"`
	TotalSkipped  int                   `json:"total_skipped,omitempty"`
}

func (s *Server) analyzeStatus(w http.ResponseWriter, r *http.Request) {
	s.analyze(w, r, analysis.ModeStatusCheck)
}

func (s *Server) analyzeReplacements(w http.ResponseWriter, r *http.Request) {
	s.analyze(w, r, analysis.ModeFindReplacement)
}

func (s *Server) analyze(w http.ResponseWriter, r *http.Request, mode analysis.Mode) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(req.Products) == 0 {
		writeError(w, http.StatusBadRequest, "No products provided")
		return
	}

	eligible, skipped := filterByStockingDecision(req.Products, mode)

	if req.Stream {
		s.streamAnalysis(w, r, eligible, skipped, mode)
		return
	}

	start := time.Now()
	rs := s.engine.Run(r.Context(), eligible, mode)
	results := append(rs.Results, placeholderRows(skipped, mode)...)

	s.finishRun(r.Context(), runOutcome{
		mode:          mode,
		results:       results,
		checkedDate:   rs.CheckedDate,
		totalProducts: len(req.Products),
		totalAnalyzed: len(rs.Results),
		totalSkipped:  len(skipped),
		duration:      time.Since(start),
		streamed:      false,
	})

	writeJSON(w, http.StatusOK, analyzeResponse{
		Success:       true,
		Results:       results,
		CheckedDate:   rs.CheckedDate,
		TotalAnalyzed: len(rs.Results),
		TotalSkipped:  len(skipped),
	})
}

func (s *Server) streamAnalysis(w http.ResponseWriter, r *http.Request, eligible, skipped []analysis.ProductRecord, mode analysis.Mode) {
	fw, ok := newFlushWriter(w)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	start := time.Now()
	for ev := range s.engine.Stream(r.Context(), eligible, mode) {
		if ev.Type == analysis.EventComplete {
			ev.Results = append(ev.Results, placeholderRows(skipped, mode)...)
			s.finishRun(r.Context(), runOutcome{
				mode:          mode,
				results:       ev.Results,
				checkedDate:   ev.CheckedDate,
				totalProducts: len(eligible) + len(skipped),
				totalAnalyzed: ev.TotalAnalyzed,
				totalSkipped:  len(skipped),
				duration:      time.Since(start),
				streamed:      true,
			})
		}
		if err := fw.writeFrame(ev); err != nil {
			s.logger.Warn("stream consumer gone", "mode", string(mode), "error", err)
			return
		}
	}
}

type runOutcome struct {
	mode          analysis.Mode
	results       []analysis.ResultItem
	checkedDate   string
	totalProducts int
	totalAnalyzed int
	totalSkipped  int
	duration      time.Duration
	streamed      bool
}

// finishRun handles everything that happens after the engine returns: persist
// outcomes, write the run log, publish the completion event. All of it is
// best-effort; the response to the caller never depends on these.
func (s *Server) finishRun(ctx context.Context, out runOutcome) {
	runID := uuid.New()

	if s.store != nil {
		var err error
		if out.mode == analysis.ModeFindReplacement {
			_, err = s.store.ApplyReplacementResults(ctx, out.results)
		} else {
			_, err = s.store.ApplyStatusResults(ctx, out.results)
		}
		if err != nil {
			s.logger.Error("failed to persist analysis results", "run_id", runID, "error", err)
		}
		if err := s.store.WriteAnalysisRun(ctx, store.AnalysisRun{
			ID:            runID,
			Mode:          string(out.mode),
			TotalProducts: out.totalProducts,
			TotalAnalyzed: out.totalAnalyzed,
			TotalSkipped:  out.totalSkipped,
			DurationMS:    out.duration.Milliseconds(),
		}); err != nil {
			s.logger.Error("failed to record analysis run", "run_id", runID, "error", err)
		}
	}

	if s.runlog != nil {
		if _, err := s.runlog.Write(runlog.Summary{
			RunID:         runID,
			Mode:          out.mode,
			Results:       out.results,
			TotalAnalyzed: out.totalAnalyzed,
			TotalSkipped:  out.totalSkipped,
		}); err != nil {
			s.logger.Error("failed to write run log", "run_id", runID, "error", err)
		}
	}

	if s.publisher != nil {
		s.publisher.PublishRunCompleted(runID, string(out.mode),
			out.totalProducts, out.totalAnalyzed, out.totalSkipped, out.streamed)
	}
}

// filterByStockingDecision splits out records that should never reach the
// engine: those whose stocking decision is absent or explicitly negative.
// Status-check runs on raw uploads carry no decision yet, so the filter only
// applies to replacement finding.
func filterByStockingDecision(products []analysis.ProductRecord, mode analysis.Mode) (eligible, skipped []analysis.ProductRecord) {
	if mode != analysis.ModeFindReplacement {
		return products, nil
	}
	for _, p := range products {
		if negativeDecision(p.StockingDecision) {
			skipped = append(skipped, p)
			continue
		}
		eligible = append(eligible, p)
	}
	return eligible, skipped
}

func negativeDecision(decision string) bool {
	d := strings.ToLower(strings.TrimSpace(decision))
	switch d {
	case "", "no", "none", "do not stock", "don't stock":
		return true
	}
	return strings.HasPrefix(d, "do not")
}

// placeholderRows gives every skipped record a null-status row so callers see
// one row per submitted product.
func placeholderRows(skipped []analysis.ProductRecord, mode analysis.Mode) []analysis.ResultItem {
	rows := make([]analysis.ResultItem, 0, len(skipped))
	for _, p := range skipped {
		if mode == analysis.ModeFindReplacement {
			rows = append(rows, analysis.ResultItem{
				"manufacturer":            p.ResolvedManufacturer(),
				"obsolete_part_number":    p.ResolvedPartNumber(),
				"recommended_replacement": nil,
				"confidence":              nil,
				"notes":                   "Skipped: no positive stocking decision",
			})
			continue
		}
		rows = append(rows, analysis.ResultItem{
			"manufacturer":  p.ResolvedManufacturer(),
			"part_number":   p.ResolvedPartNumber(),
			"ai_status":     nil,
			"ai_confidence": nil,
			"notes_by_ai":   "Skipped: no positive stocking decision",
		})
	}
	return rows
}
