// Package pipeline runs the end-to-end price edge analysis.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"gmx-edge-lab/internal/cleaning"
	"gmx-edge-lab/internal/domain"
	"gmx-edge-lab/internal/idhash"
	"gmx-edge-lab/internal/logging"
	"gmx-edge-lab/internal/observability"
	"gmx-edge-lab/internal/priceedge"
	"gmx-edge-lab/internal/reporting"
	"gmx-edge-lab/internal/storage"
)

// Name labels metrics of this pipeline.
const Name = "edge"

// EdgePipeline orchestrates clean, flatten, merge, summarize and artifact output.
type EdgePipeline struct {
	cleaner     *cleaning.Cleaner
	merger      *priceedge.Merger
	reportGen   *reporting.Generator
	eventStore  storage.PositionEventStore // optional
	mergedStore storage.MergedTradeStore   // optional
	outputDir   string
	clock       func() time.Time
	logger      *zap.Logger
}

// Result is what a run produced.
type Result struct {
	RunID   string
	Trades  int
	Flatten cleaning.FlattenStats
	Events  []*domain.PositionEvent
	Merged  []*domain.MergedTrade
	Report  *reporting.Report
	Files   []string // artifacts written, in write order
}

// NewEdgePipeline creates a pipeline with a default merger (WETH, 120 s).
func NewEdgePipeline(cleaner *cleaning.Cleaner, outputDir string) *EdgePipeline {
	return &EdgePipeline{
		cleaner:   cleaner,
		merger:    priceedge.NewMerger(),
		reportGen: reporting.NewGenerator(),
		outputDir: outputDir,
		clock:     func() time.Time { return time.Now().UTC() },
		logger:    zap.NewNop(),
	}
}

// WithMerger replaces the merger.
func (p *EdgePipeline) WithMerger(m *priceedge.Merger) *EdgePipeline {
	p.merger = m
	return p
}

// WithStores persists events and merged rows. Either store may be nil.
func (p *EdgePipeline) WithStores(events storage.PositionEventStore, merged storage.MergedTradeStore) *EdgePipeline {
	p.eventStore = events
	p.mergedStore = merged
	return p
}

// WithClock sets a custom clock function for deterministic output.
func (p *EdgePipeline) WithClock(clock func() time.Time) *EdgePipeline {
	p.clock = clock
	p.reportGen = p.reportGen.WithClock(clock)
	return p
}

// WithLogger sets the logger.
func (p *EdgePipeline) WithLogger(l *zap.Logger) *EdgePipeline {
	p.logger = logging.OrNop(l)
	return p
}

// Run executes the full pipeline and writes output files:
// - position_events.csv
// - merged_trades.csv
// - edge_summary.csv
// - EDGE_REPORT.md
func (p *EdgePipeline) Run(ctx context.Context, trades io.Reader, reference []domain.PricePoint) (res *Result, err error) {
	start := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
		}
		observability.RecordPipelineRun(Name, status, time.Since(start).Seconds())
	}()

	if err := os.MkdirAll(p.outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	// 1. Clean trades
	raw, err := cleaning.ReadRawTrades(trades)
	if err != nil {
		return nil, fmt.Errorf("read trades: %w", err)
	}
	cleaned, err := p.cleaner.CleanTrades(raw)
	if err != nil {
		return nil, fmt.Errorf("clean trades: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// 2. Flatten nested event lists
	events, stats, err := p.cleaner.FlattenEvents(cleaned)
	if err != nil {
		return nil, fmt.Errorf("flatten events: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// 3. Merge with the reference series
	merged, err := p.merger.Merge(events, reference)
	if err != nil {
		return nil, fmt.Errorf("merge: %w", err)
	}

	runID := idhash.ComputeRunID(p.merger.IndexToken(), p.merger.Window(), idhash.ComputeInputDigest(events, reference))

	// 4. Summarize
	report := p.reportGen.Generate(reporting.Input{
		RunID:      runID,
		IndexToken: p.merger.IndexToken(),
		Window:     p.merger.Window(),
		Trades:     len(cleaned),
		Flatten:    stats,
		Reference:  reference,
		Merged:     merged,
	})

	res = &Result{
		RunID:   runID,
		Trades:  len(cleaned),
		Flatten: stats,
		Events:  events,
		Merged:  merged,
		Report:  report,
	}

	// 5. Write artifacts
	artifacts := []struct {
		name  string
		write func(io.Writer) error
	}{
		{reporting.PositionEventsFile, func(w io.Writer) error { return reporting.WritePositionEvents(w, events) }},
		{reporting.MergedTradesFile, func(w io.Writer) error { return reporting.WriteMergedTrades(w, merged) }},
		{reporting.EdgeSummaryFile, writeString(reporting.RenderSummaryCSV(report.Summaries))},
		{reporting.EdgeReportFile, writeString(reporting.RenderMarkdown(report))},
	}
	for _, a := range artifacts {
		path := filepath.Join(p.outputDir, a.name)
		if err := reporting.WriteFile(path, a.write); err != nil {
			return nil, err
		}
		res.Files = append(res.Files, path)
	}

	// 6. Persist (optional)
	if err := p.persist(ctx, runID, events, merged); err != nil {
		return nil, err
	}

	p.logger.Info("edge pipeline complete",
		zap.String("run_id", runID),
		zap.Int("trades", res.Trades),
		zap.Int("events", len(events)),
		zap.Int("merged", len(merged)),
		zap.String("output_dir", p.outputDir),
	)

	return res, nil
}

// persist stores events and merged rows. Events already stored are skipped
// individually; a merge run already stored under the same run id is skipped whole.
func (p *EdgePipeline) persist(ctx context.Context, runID string, events []*domain.PositionEvent, merged []*domain.MergedTrade) error {
	if p.eventStore != nil && len(events) > 0 {
		n, err := p.eventStore.InsertBulk(ctx, events)
		if err != nil {
			return fmt.Errorf("persist position events: %w", err)
		}
		p.logger.Info("persisted position events",
			zap.Int("events", len(events)),
			zap.Int("inserted", n),
			zap.Int("already_stored", len(events)-n),
		)
	}

	if p.mergedStore != nil && len(merged) > 0 {
		err := p.mergedStore.InsertBulk(ctx, runID, merged)
		switch {
		case errors.Is(err, storage.ErrDuplicateKey):
			p.logger.Info("merge run already stored", zap.String("run_id", runID))
		case err != nil:
			return fmt.Errorf("persist merged trades: %w", err)
		}
	}

	return nil
}

func writeString(s string) func(io.Writer) error {
	return func(w io.Writer) error {
		_, err := io.WriteString(w, s)
		return err
	}
}
