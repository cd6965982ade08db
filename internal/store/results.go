package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/maintex/partwatch/internal/analysis"
)

// ApplyStatusResults writes status-check outcomes back onto part rows,
// matching on manufacturer part number. Returns the number of rows updated;
// items without a part_number are skipped rather than failing the batch.
func (s *Store) ApplyStatusResults(ctx context.Context, items []analysis.ResultItem) (int, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	updated := 0
	for _, item := range items {
		pn := itemStr(item, "part_number")
		if pn == "" {
			continue
		}
		tag, err := tx.Exec(ctx, `
			UPDATE parts
			SET ai_status = $1, notes_by_ai = $2, ai_confidence = $3, updated_at = now()
			WHERE upper(trim(manufacturer_part_number)) = upper(trim($4))`,
			itemStr(item, "ai_status"), itemStr(item, "notes_by_ai"), itemStr(item, "ai_confidence"), pn,
		)
		if err != nil {
			return 0, fmt.Errorf("update part %s: %w", pn, err)
		}
		updated += int(tag.RowsAffected())
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return updated, nil
}

// ApplyReplacementResults writes replacement-finding outcomes back onto part
// rows, matching on the obsolete part number.
func (s *Store) ApplyReplacementResults(ctx context.Context, items []analysis.ResultItem) (int, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	updated := 0
	for _, item := range items {
		pn := itemStr(item, "obsolete_part_number")
		if pn == "" {
			continue
		}
		tag, err := tx.Exec(ctx, `
			UPDATE parts
			SET recommended_replacement = $1, replacement_manufacturer = $2,
			    replacement_price = $3, replacement_currency = $4,
			    replacement_source_type = $5, replacement_source_url = $6,
			    replacement_notes = $7, replacement_confidence = $8,
			    updated_at = now()
			WHERE upper(trim(manufacturer_part_number)) = upper(trim($9))`,
			nilIfEmpty(itemStr(item, "recommended_replacement")),
			nilIfEmpty(itemStr(item, "replacement_manufacturer")),
			itemNum(item, "price"),
			nilIfEmpty(itemStr(item, "currency")),
			itemStr(item, "source_type"), itemStr(item, "source_url"),
			itemStr(item, "notes"), itemStr(item, "confidence"),
			pn,
		)
		if err != nil {
			return 0, fmt.Errorf("update part %s: %w", pn, err)
		}
		updated += int(tag.RowsAffected())
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return updated, nil
}

// AnalysisRun is one audit row per engine run.
type AnalysisRun struct {
	ID            uuid.UUID
	Mode          string
	TotalProducts int
	TotalAnalyzed int
	TotalSkipped  int
	DurationMS    int64
}

func (s *Store) WriteAnalysisRun(ctx context.Context, run AnalysisRun) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO analysis_runs (id, mode, total_products, total_analyzed, total_skipped, duration_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())`,
		run.ID, run.Mode, run.TotalProducts, run.TotalAnalyzed, run.TotalSkipped, run.DurationMS,
	)
	if err != nil {
		return fmt.Errorf("insert analysis run: %w", err)
	}
	return nil
}

func itemStr(item analysis.ResultItem, key string) string {
	v, _ := item[key].(string)
	return v
}

// itemNum returns a numeric field as *float64, nil when absent or null.
func itemNum(item analysis.ResultItem, key string) *float64 {
	if f, ok := item[key].(float64); ok {
		return &f
	}
	return nil
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
