package recipes

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"savouragent/batch"
)

// Sink receives the finished records; implemented by the hybrid search store.
type Sink interface {
	Upsert(ctx context.Context, records []Record) error
}

// Loader runs the full offline ingestion: enrich raw texts, filter records
// that would be useless at retrieval time, and bulk-load the rest.
type Loader struct {
	enricher *Enricher
	sink     Sink
}

func NewLoader(enricher *Enricher, sink Sink) *Loader {
	return &Loader{enricher: enricher, sink: sink}
}

// LoadStats summarizes one ingestion run.
type LoadStats struct {
	Scanned  int
	Loaded   int
	Filtered int
	Cost     batch.Cost
}

// Load ingests the given raw recipe texts into the sink.
func (l *Loader) Load(ctx context.Context, rawTexts []string) (LoadStats, error) {
	stats := LoadStats{Scanned: len(rawTexts)}
	if len(rawTexts) == 0 {
		return stats, nil
	}

	records, cost, err := l.enricher.Enrich(ctx, rawTexts)
	if err != nil {
		return stats, fmt.Errorf("enrich: %w", err)
	}
	stats.Cost = cost

	kept := make([]Record, 0, len(records))
	for _, r := range records {
		if !r.Valid() {
			stats.Filtered++
			slog.Warn("INGEST: Dropping incomplete record", "id", r.ID, "title", r.Title)
			continue
		}
		kept = append(kept, r)
	}

	if len(kept) > 0 {
		if err := l.sink.Upsert(ctx, kept); err != nil {
			return stats, fmt.Errorf("upsert records: %w", err)
		}
	}
	stats.Loaded = len(kept)

	slog.Info("INGEST: Load complete",
		"scanned", stats.Scanned,
		"loaded", stats.Loaded,
		"filtered", stats.Filtered,
		"estimated_cost", stats.Cost.Estimated,
	)
	return stats, nil
}

// ReadRawTexts decodes raw scraped recipes from JSON lines of the form
// {"raw_text": "..."}. Blank lines are skipped.
func ReadRawTexts(r io.Reader) ([]string, error) {
	var texts []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var row struct {
			RawText string `json:"raw_text"`
		}
		if err := json.Unmarshal(raw, &row); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if row.RawText == "" {
			continue
		}
		texts = append(texts, row.RawText)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan input: %w", err)
	}
	return texts, nil
}
