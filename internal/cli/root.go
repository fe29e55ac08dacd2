// Package cli wires the cobra commands to the cleaning, validation and
// reporting packages.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/BartekS5/crashclean/internal/config"
	"github.com/BartekS5/crashclean/pkg/logger"
)

// RootOptions holds the flags shared by every command. Flags that are set
// explicitly override the config file and environment.
type RootOptions struct {
	ConfigFile string
	LogLevel   string
	LogFile    string

	SourceDriver string
	SourceDSN    string
	SourceTable  string
	DestDriver   string
	DestDSN      string
	DestTable    string
	OutputDir    string

	cfg          *config.Config
	commandFlags map[*cobra.Command]func(*cobra.Command, *config.Config)
}

func NewRootCmd() *cobra.Command {
	opts := &RootOptions{commandFlags: make(map[*cobra.Command]func(*cobra.Command, *config.Config))}

	rootCmd := &cobra.Command{
		Use:   "crashclean",
		Short: "crashclean - cleaning and validation of the plane crash dataset",
		Long: `crashclean normalizes the raw plane crash table into a typed table,
validates the result and renders a descriptive profile of it.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logger.Close()
		},
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}

	f := rootCmd.PersistentFlags()
	f.StringVarP(&opts.ConfigFile, "config", "c", "", "Path to a YAML config file")
	f.StringVar(&opts.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	f.StringVar(&opts.LogFile, "log-file", "", "Also write JSON logs to this file")
	f.StringVar(&opts.SourceDriver, "source-driver", "", "Source store driver (sqlite3, sqlserver, postgres)")
	f.StringVar(&opts.SourceDSN, "source", "", "Source store DSN or sqlite path")
	f.StringVar(&opts.SourceTable, "source-table", "", "Raw table name")
	f.StringVar(&opts.DestDriver, "dest-driver", "", "Destination store driver")
	f.StringVar(&opts.DestDSN, "dest", "", "Destination store DSN or sqlite path")
	f.StringVar(&opts.DestTable, "dest-table", "", "Normalized table name")
	f.StringVarP(&opts.OutputDir, "output-dir", "o", "", "Directory for reports and metadata")

	rootCmd.AddCommand(
		newCleanCmd(opts),
		newValidateCmd(opts),
		newProfileCmd(opts),
		newRunCmd(opts),
		newUniqueCmd(opts),
	)
	return rootCmd
}

// setup loads the configuration, applies flag overrides and starts the
// logger.
func (o *RootOptions) setup(cmd *cobra.Command) error {
	cfg, err := config.LoadConfig(o.ConfigFile)
	if err != nil {
		return err
	}

	override(cmd, "log-level", func() { cfg.Logging.Level = o.LogLevel })
	override(cmd, "log-file", func() { cfg.Logging.File = o.LogFile })
	override(cmd, "source-driver", func() { cfg.Source.Driver = o.SourceDriver })
	override(cmd, "source", func() { cfg.Source.DSN = o.SourceDSN })
	override(cmd, "source-table", func() { cfg.Source.Table = o.SourceTable })
	override(cmd, "dest-driver", func() { cfg.Destination.Driver = o.DestDriver })
	override(cmd, "dest", func() { cfg.Destination.DSN = o.DestDSN })
	override(cmd, "dest-table", func() { cfg.Destination.Table = o.DestTable })
	override(cmd, "output-dir", func() { cfg.Output.Dir = o.OutputDir })
	if apply, ok := o.commandFlags[cmd]; ok {
		apply(cmd, cfg)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := logger.InitLogger(cfg.Logging.File, cfg.Logging.Level); err != nil {
		return err
	}
	logger.Debugf("Loaded %s", cfg)

	o.cfg = cfg
	return nil
}

// register makes setup apply a command's own flags on top of the loaded
// configuration.
func (o *RootOptions) register(cmd *cobra.Command, apply func(*cobra.Command, *config.Config)) {
	o.commandFlags[cmd] = apply
}

func override(cmd *cobra.Command, name string, apply func()) {
	if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
		apply()
	}
}
