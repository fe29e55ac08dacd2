package etl

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/BartekS5/crashclean/internal/config"
	"github.com/BartekS5/crashclean/pkg/database"
	"github.com/BartekS5/crashclean/pkg/logger"
	"github.com/BartekS5/crashclean/pkg/models"
)

// Result describes one completed cleaning run.
type Result struct {
	RunID         string
	RowsProcessed int
	Anomalies     []Anomaly
	Metadata      []models.ColumnMetadata
	DryRun        bool
	Duration      time.Duration
}

func (r *Result) AnomalyCount() int { return len(r.Anomalies) }

// AnomaliesByField counts anomalies per raw field.
func (r *Result) AnomaliesByField() map[string]int {
	out := make(map[string]int)
	for _, a := range r.Anomalies {
		out[a.Field]++
	}
	return out
}

type Pipeline struct {
	// RunID identifies the run in logs and archives. A new one is
	// generated when empty.
	RunID       string
	Extractor   Extractor
	Transformer *Transformer
	Loader      Loader
	DryRun      bool
}

func NewPipeline(ext Extractor, tr *Transformer, loader Loader, dryRun bool) *Pipeline {
	return &Pipeline{
		Extractor:   ext,
		Transformer: tr,
		Loader:      loader,
		DryRun:      dryRun,
	}
}

// NewSQLPipeline wires a pipeline between two relational stores.
func NewSQLPipeline(src, dst *database.Store, srcTable, dstTable string, opts config.CleanOptions) *Pipeline {
	return NewPipeline(
		&SQLExtractor{Store: src, Table: srcTable},
		NewTransformer(opts.CutoffYear),
		&SQLLoader{Store: dst, Table: dstTable, BatchSize: opts.BatchSize, Overwrite: opts.Overwrite},
		opts.DryRun,
	)
}

// Run reads the whole source, cleans every row and writes the result.
// Row-level problems never stop a run; only store failures do, and
// nothing is committed in that case.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	runID := p.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	res := &Result{RunID: runID, DryRun: p.DryRun}
	start := time.Now()
	logger.Infof("Starting cleaning run %s. DryRun: %v, CutoffYear: %d", res.RunID, p.DryRun, p.Transformer.CutoffYear)

	raw, err := p.Extractor.Extract(ctx)
	if err != nil {
		logger.Errorf("Extraction failed: %v", err)
		return nil, err
	}
	logger.Infof("Read %d source rows", len(raw))

	if !p.DryRun {
		if err := p.Loader.Prepare(ctx); err != nil {
			logger.Errorf("Destination not writable: %v", err)
			return nil, err
		}
	}

	records := make([]models.Record, 0, len(raw))
	for i, row := range raw {
		if i%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("cleaning interrupted at row %d: %w", row.RowID, err)
			}
		}
		rec, anomalies := p.Transformer.CleanRow(row)
		for _, a := range anomalies {
			logger.Debugf("Anomaly: %s", a)
		}
		records = append(records, rec)
		res.Anomalies = append(res.Anomalies, anomalies...)
	}
	res.RowsProcessed = len(records)

	if p.DryRun {
		logger.Infof("[DRY RUN] Would write %d rows", len(records))
		res.Metadata = MetadataFromRecords(records)
	} else {
		if err := p.Loader.Load(ctx, records); err != nil {
			logger.Errorf("Loading failed: %v", err)
			return nil, err
		}
		res.Metadata, err = p.Loader.Metadata(ctx)
		if err != nil {
			logger.Errorf("Metadata failed: %v", err)
			return nil, err
		}
	}

	res.Duration = time.Since(start)
	rate := 0.0
	if res.Duration.Seconds() > 0 {
		rate = float64(res.RowsProcessed) / res.Duration.Seconds()
	}
	logAnomalySummary(res)
	logger.Infof("Cleaning run finished. Rows: %d, Anomalies: %d, Rate: %.2f rows/sec",
		res.RowsProcessed, res.AnomalyCount(), rate)
	return res, nil
}

// AnomalyFields returns the fields that had anomalies, sorted.
func (r *Result) AnomalyFields() []string {
	byField := r.AnomaliesByField()
	fields := make([]string, 0, len(byField))
	for f := range byField {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

func logAnomalySummary(res *Result) {
	byField := res.AnomaliesByField()
	for _, f := range res.AnomalyFields() {
		logger.Warnw("unparseable values set to NULL", "field", f, "count", byField[f])
	}
}
