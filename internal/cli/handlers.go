package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/BartekS5/crashclean/internal/config"
	"github.com/BartekS5/crashclean/internal/etl"
	"github.com/BartekS5/crashclean/internal/export"
	"github.com/BartekS5/crashclean/internal/report"
	"github.com/BartekS5/crashclean/internal/validate"
	"github.com/BartekS5/crashclean/pkg/database"
	"github.com/BartekS5/crashclean/pkg/logger"
)

// ErrValidationFailed is returned in strict mode when the report has error
// findings.
var ErrValidationFailed = errors.New("validation failed")

const metadataFile = "metadata"

func newRunID() string { return uuid.NewString() }

func checkStrict(r *validate.Report, strict bool) error {
	if strict && !r.Passed() {
		return fmt.Errorf("%w: %d error finding(s)", ErrValidationFailed, r.Count(validate.SeverityError))
	}
	return nil
}

func runClean(cmd *cobra.Command, cfg *config.Config, runID string, archive bool) (*etl.Result, error) {
	ctx := cmd.Context()
	started := time.Now()

	src, err := database.ConnectSQL(ctx, cfg.Source.Driver, cfg.Source.DSN, true)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	// a dry run never touches the destination
	var dst *database.Store
	if !cfg.Clean.DryRun {
		dst, err = database.ConnectSQL(ctx, cfg.Destination.Driver, cfg.Destination.DSN, false)
		if err != nil {
			return nil, err
		}
		defer dst.Close()
	}

	pipeline := etl.NewSQLPipeline(src, dst, cfg.Source.Table, cfg.Destination.Table, cfg.Clean)
	pipeline.RunID = runID
	res, err := pipeline.Run(ctx)
	if err != nil {
		return nil, err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Cleaned %d rows (%d anomalies) in %s\n", res.RowsProcessed, res.AnomalyCount(), res.Duration.Round(time.Millisecond))
	byField := res.AnomaliesByField()
	for _, field := range res.AnomalyFields() {
		fmt.Fprintf(out, "  %-12s %d value(s) set to NULL\n", field, byField[field])
	}

	if !res.DryRun {
		if err := exportMetadata(cfg, res); err != nil {
			return nil, err
		}
	}

	if archive {
		summary := etl.RunSummary{
			RunID:         runID,
			Command:       cmd.Name(),
			StartedAt:     started,
			Source:        src.Label,
			Destination:   cfg.Destination.Table,
			RowsProcessed: res.RowsProcessed,
			AnomalyCount:  res.AnomalyCount(),
			Metadata:      res.Metadata,
		}
		archiveRun(ctx, cfg, summary, etl.AnomalyFindings(runID, res.Anomalies, 1))
	}
	return res, nil
}

func exportMetadata(cfg *config.Config, res *etl.Result) error {
	csvPath := filepath.Join(cfg.Output.Dir, metadataFile+".csv")
	if err := export.WriteMetadataCSV(csvPath, res.Metadata); err != nil {
		return err
	}
	logger.Infof("Column metadata written to %s", csvPath)

	if cfg.Output.ExportXLSX {
		xlsxPath := filepath.Join(cfg.Output.Dir, metadataFile+".xlsx")
		if err := export.WriteMetadataXLSX(xlsxPath, res.Metadata); err != nil {
			return err
		}
		logger.Infof("Column metadata written to %s", xlsxPath)
	}
	return nil
}

func runValidate(cmd *cobra.Command, cfg *config.Config, runID string, archive bool) (*validate.Report, error) {
	ctx := cmd.Context()
	started := time.Now()

	store, err := database.ConnectSQL(ctx, cfg.Destination.Driver, cfg.Destination.DSN, true)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	v, err := validate.NewValidator(cfg.Validation)
	if err != nil {
		return nil, err
	}
	rep, err := v.Validate(ctx, store, cfg.Destination.Table)
	if err != nil {
		return nil, err
	}

	summary := rep.Summarize()
	fmt.Fprint(cmd.OutOrStdout(), summary)
	path := filepath.Join(cfg.Output.Dir, cfg.Output.ReportFile)
	if err := writeFile(path, summary); err != nil {
		return nil, err
	}
	logger.Infow("validation finished", "passed", rep.Passed(),
		"errors", rep.Count(validate.SeverityError), "warnings", rep.Count(validate.SeverityWarning), "report", path)

	if archive {
		passed := rep.Passed()
		archiveRun(ctx, cfg, etl.RunSummary{
			RunID:         runID,
			Command:       cmd.Name(),
			StartedAt:     started,
			Destination:   cfg.Destination.Table,
			RowsProcessed: rep.Rows,
			FindingCounts: rep.Counts(),
			Passed:        &passed,
		}, reportFindings(runID, rep, 1))
	}
	return rep, nil
}

func runProfile(cmd *cobra.Command, cfg *config.Config) error {
	ctx := cmd.Context()
	store, err := database.ConnectSQL(ctx, cfg.Destination.Driver, cfg.Destination.DSN, true)
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := report.LoadRecords(ctx, store, cfg.Destination.Table)
	if err != nil {
		return err
	}

	path := filepath.Join(cfg.Output.Dir, cfg.Output.ProfileFile)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()

	if err := report.Render(io.MultiWriter(cmd.OutOrStdout(), file), records, nil); err != nil {
		return err
	}
	logger.Infof("Profile written to %s", path)
	return file.Close()
}

// runAll cleans, validates and profiles under one run id.
func runAll(cmd *cobra.Command, cfg *config.Config, archive, strict bool) error {
	runID := newRunID()
	res, err := runClean(cmd, cfg, runID, false)
	if err != nil {
		return err
	}
	if res.DryRun {
		logger.Info("Dry run: skipping validation and profile")
		return nil
	}

	rep, err := runValidate(cmd, cfg, runID, false)
	if err != nil {
		return err
	}
	if err := runProfile(cmd, cfg); err != nil {
		return err
	}

	if archive {
		passed := rep.Passed()
		findings := etl.AnomalyFindings(runID, res.Anomalies, 1)
		findings = append(findings, reportFindings(runID, rep, len(findings)+1)...)
		archiveRun(cmd.Context(), cfg, etl.RunSummary{
			RunID:         runID,
			Command:       cmd.Name(),
			StartedAt:     time.Now().Add(-res.Duration),
			Source:        cfg.Source.Table,
			Destination:   cfg.Destination.Table,
			RowsProcessed: res.RowsProcessed,
			AnomalyCount:  res.AnomalyCount(),
			FindingCounts: rep.Counts(),
			Passed:        &passed,
			Metadata:      res.Metadata,
		}, findings)
	}
	return checkStrict(rep, strict)
}

func runUnique(cmd *cobra.Command, cfg *config.Config, field string) error {
	ctx := cmd.Context()
	src, err := database.ConnectSQL(ctx, cfg.Source.Driver, cfg.Source.DSN, true)
	if err != nil {
		return err
	}
	defer src.Close()

	ext := &etl.SQLExtractor{Store: src, Table: cfg.Source.Table}
	values, err := ext.DistinctValues(ctx, field)
	if err != nil {
		return err
	}

	path := export.UniquePath(cfg.Output.UniqueDir, field)
	if err := export.WriteUniqueCSV(path, field, values); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d distinct values of %s written to %s\n", len(values), field, path)
	return nil
}

func reportFindings(runID string, rep *validate.Report, first int) []etl.ArchivedFinding {
	out := make([]etl.ArchivedFinding, len(rep.Findings))
	for i, f := range rep.Findings {
		out[i] = etl.ArchivedFinding{
			RunID:    runID,
			Seq:      first + i,
			Kind:     "finding",
			Category: string(f.Category),
			Severity: string(f.Severity),
			Field:    f.Column,
			RowIDs:   f.RowIDs,
			Message:  f.Message,
		}
	}
	return out
}

// archiveRun copies a run to MongoDB. Failures are logged and otherwise
// ignored.
func archiveRun(ctx context.Context, cfg *config.Config, run etl.RunSummary, findings []etl.ArchivedFinding) {
	client, err := database.ConnectMongo(ctx, cfg.MongoConnString)
	if err != nil {
		logger.Warnf("Archive skipped: %v", err)
		return
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.Disconnect(disconnectCtx)
	}()

	if err := etl.NewRunArchiver(client).Archive(ctx, run, findings); err != nil {
		logger.Warnf("Archive of run %s failed: %v", run.RunID, err)
		return
	}
	logger.Infof("Run %s archived (%d findings)", run.RunID, len(findings))
}

func writeFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
