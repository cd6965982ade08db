// Package runlog writes a human-readable .txt trail of every analysis run,
// one file per run, so crib reviewers can audit what the agent reported
// without touching the database.
package runlog

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/maintex/partwatch/internal/analysis"
)

const lineWidth = 80

type Writer struct {
	dir    string
	logger *slog.Logger
}

func NewWriter(dir string, logger *slog.Logger) *Writer {
	return &Writer{dir: dir, logger: logger}
}

// Summary describes one finished run.
type Summary struct {
	RunID         uuid.UUID
	Mode          analysis.Mode
	Results       []analysis.ResultItem
	TotalAnalyzed int
	TotalSkipped  int
}

// Write renders the run to <dir>/<mode>_<timestamp>.txt and returns the path.
// Logging failures are reported but must never fail the run itself, so the
// caller may ignore the error after logging it.
func (w *Writer) Write(sum Summary) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("create log dir: %w", err)
	}

	now := time.Now()
	name := fmt.Sprintf("%s_%s.txt", sum.Mode, now.Format("20060102_150405"))
	path := filepath.Join(w.dir, name)

	var sb strings.Builder
	rule := strings.Repeat("=", lineWidth)
	thin := strings.Repeat("-", lineWidth)

	sb.WriteString(rule + "\n")
	sb.WriteString("Analysis Results Log\n")
	fmt.Fprintf(&sb, "Run ID: %s\n", sum.RunID)
	fmt.Fprintf(&sb, "Analysis Type: %s\n", sum.Mode)
	fmt.Fprintf(&sb, "Generated: %s\n", now.Format("2006-01-02 15:04:05"))
	sb.WriteString(rule + "\n\n")

	sb.WriteString("SUMMARY\n")
	sb.WriteString(thin + "\n")
	fmt.Fprintf(&sb, "Total Products Analyzed: %d\n", sum.TotalAnalyzed)
	fmt.Fprintf(&sb, "Total Products Skipped: %d\n", sum.TotalSkipped)
	fmt.Fprintf(&sb, "Total Results: %d\n", len(sum.Results))
	sb.WriteString("\n" + rule + "\n\n")

	sb.WriteString("DETAILED RESULTS\n")
	sb.WriteString(thin + "\n\n")
	for i, item := range sum.Results {
		fmt.Fprintf(&sb, "Result #%d\n", i+1)
		formatResult(&sb, item, sum.Mode)
		sb.WriteString("\n")
	}

	sb.WriteString(rule + "\n")
	sb.WriteString("End of Analysis Log\n")
	sb.WriteString(rule + "\n")

	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		return "", fmt.Errorf("write run log: %w", err)
	}
	w.logger.Info("run log written", "path", path, "results", len(sum.Results))
	return path, nil
}

func formatResult(sb *strings.Builder, item analysis.ResultItem, mode analysis.Mode) {
	sb.WriteString(strings.Repeat("=", lineWidth) + "\n")
	if mode == analysis.ModeFindReplacement {
		fmt.Fprintf(sb, "Obsolete Part Number: %s\n", str(item, "obsolete_part_number"))
		fmt.Fprintf(sb, "Manufacturer: %s\n", str(item, "manufacturer"))
		if v := str(item, "recommended_replacement"); v != "" {
			fmt.Fprintf(sb, "Recommended Replacement: %s\n", v)
		}
		if v := str(item, "replacement_manufacturer"); v != "" {
			fmt.Fprintf(sb, "Replacement Manufacturer: %s\n", v)
		}
		if price, ok := item["price"].(float64); ok {
			currency := str(item, "currency")
			if currency == "" {
				currency = "USD"
			}
			fmt.Fprintf(sb, "Price: %g %s\n", price, currency)
		}
		if v := str(item, "source_type"); v != "" {
			fmt.Fprintf(sb, "Source Type: %s\n", v)
		}
		if v := str(item, "source_url"); v != "" {
			fmt.Fprintf(sb, "Source URL: %s\n", v)
		}
		fmt.Fprintf(sb, "Confidence: %s\n", str(item, "confidence"))
		writeNotes(sb, str(item, "notes"))
		return
	}

	fmt.Fprintf(sb, "Manufacturer: %s\n", str(item, "manufacturer"))
	fmt.Fprintf(sb, "Part Number: %s\n", str(item, "part_number"))
	fmt.Fprintf(sb, "Status: %s\n", str(item, "ai_status"))
	fmt.Fprintf(sb, "Confidence: %s\n", str(item, "ai_confidence"))
	writeNotes(sb, str(item, "notes_by_ai"))
}

// writeNotes wraps note text at the log's line width, indented two spaces.
func writeNotes(sb *strings.Builder, notes string) {
	if notes == "" {
		return
	}
	sb.WriteString("\nNotes:\n")
	line := ""
	for _, word := range strings.Fields(notes) {
		if len(line)+len(word)+1 > lineWidth-2 && line != "" {
			sb.WriteString("  " + line + "\n")
			line = word
			continue
		}
		if line == "" {
			line = word
		} else {
			line += " " + word
		}
	}
	if line != "" {
		sb.WriteString("  " + line + "\n")
	}
}

func str(item analysis.ResultItem, key string) string {
	v, _ := item[key].(string)
	return v
}
