package cli

import (
	"github.com/spf13/cobra"

	"github.com/BartekS5/crashclean/internal/config"
)

// CleanFlags are the flags of commands that run the cleaning pipeline.
type CleanFlags struct {
	CutoffYear int
	BatchSize  int
	Overwrite  bool
	DryRun     bool
	XLSX       bool
}

func (f *CleanFlags) bind(cmd *cobra.Command) {
	d := config.Default()
	cmd.Flags().IntVar(&f.CutoffYear, "cutoff-year", d.Clean.CutoffYear, "Last year in the dataset; later two-digit years move back a century")
	cmd.Flags().IntVarP(&f.BatchSize, "batch-size", "b", d.Clean.BatchSize, "Rows per INSERT statement (max 100)")
	cmd.Flags().BoolVar(&f.Overwrite, "overwrite", d.Clean.Overwrite, "Replace the destination table if it exists")
	cmd.Flags().BoolVar(&f.DryRun, "dry-run", false, "Clean and report without writing the destination")
	cmd.Flags().BoolVar(&f.XLSX, "xlsx", false, "Also export column metadata as XLSX")
}

func (f *CleanFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	override(cmd, "cutoff-year", func() { cfg.Clean.CutoffYear = f.CutoffYear })
	override(cmd, "batch-size", func() { cfg.Clean.BatchSize = f.BatchSize })
	override(cmd, "overwrite", func() { cfg.Clean.Overwrite = f.Overwrite })
	override(cmd, "dry-run", func() { cfg.Clean.DryRun = f.DryRun })
	override(cmd, "xlsx", func() { cfg.Output.ExportXLSX = f.XLSX })
}

// ValidateFlags are the flags of commands that run the validator.
type ValidateFlags struct {
	DateMin   string
	DateMax   string
	MaxListed int
	Strict    bool
}

func (f *ValidateFlags) bind(cmd *cobra.Command) {
	d := config.Default()
	cmd.Flags().StringVar(&f.DateMin, "date-min", d.Validation.DateMin, "Earliest plausible crash date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.DateMax, "date-max", d.Validation.DateMax, "Latest plausible crash date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&f.MaxListed, "max-listed", d.Validation.MaxListed, "Findings listed per category in the report (0 = all)")
	cmd.Flags().BoolVar(&f.Strict, "strict", false, "Exit with an error when the report has error findings")
}

func (f *ValidateFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	override(cmd, "date-min", func() { cfg.Validation.DateMin = f.DateMin })
	override(cmd, "date-max", func() { cfg.Validation.DateMax = f.DateMax })
	override(cmd, "max-listed", func() { cfg.Validation.MaxListed = f.MaxListed })
}

func newCleanCmd(root *RootOptions) *cobra.Command {
	flags := &CleanFlags{}
	var archive bool

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Normalize the raw table into the destination store",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			_, err := runClean(c, root.cfg, newRunID(), archive)
			return err
		},
	}
	flags.bind(cmd)
	cmd.Flags().BoolVar(&archive, "archive", false, "Copy the run summary to MongoDB (MONGO_CONNECTION_STRING)")
	root.register(cmd, flags.apply)
	return cmd
}

func newValidateCmd(root *RootOptions) *cobra.Command {
	flags := &ValidateFlags{}
	var archive bool

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Run quality checks over the normalized table",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			report, err := runValidate(c, root.cfg, newRunID(), archive)
			if err != nil {
				return err
			}
			return checkStrict(report, flags.Strict)
		},
	}
	flags.bind(cmd)
	cmd.Flags().BoolVar(&archive, "archive", false, "Copy the findings to MongoDB (MONGO_CONNECTION_STRING)")
	root.register(cmd, flags.apply)
	return cmd
}

func newProfileCmd(root *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "profile",
		Short: "Render a descriptive profile of the normalized table",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			return runProfile(c, root.cfg)
		},
	}
}

func newRunCmd(root *RootOptions) *cobra.Command {
	cleanFlags := &CleanFlags{}
	validateFlags := &ValidateFlags{}
	var archive bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Clean, validate, export metadata and profile in one go",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			return runAll(c, root.cfg, archive, validateFlags.Strict)
		},
	}
	cleanFlags.bind(cmd)
	validateFlags.bind(cmd)
	cmd.Flags().BoolVar(&archive, "archive", false, "Copy the run summary and findings to MongoDB")
	root.register(cmd, func(c *cobra.Command, cfg *config.Config) {
		cleanFlags.apply(c, cfg)
		validateFlags.apply(c, cfg)
	})
	return cmd
}

func newUniqueCmd(root *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "unique <field>",
		Short: "Dump the distinct raw values of one source field to CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return runUnique(c, root.cfg, args[0])
		},
	}
}
