// Package cmd implements the chatctl commands.
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/garyellow/chatai/internal/config"
	"github.com/garyellow/chatai/internal/logger"
	"github.com/garyellow/chatai/internal/r2client"
	"github.com/garyellow/chatai/internal/responses"
	"github.com/garyellow/chatai/internal/source"
)

// globalFlags override the matching configuration values when set.
type globalFlags struct {
	source   string
	encoding string
	logLevel string
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	var flags globalFlags

	root := &cobra.Command{
		Use:          "chatctl",
		Short:        "Inspect and package chat response tables",
		Long:         "Validate a response table, answer messages offline and compress tables for object storage.",
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flags.source, "source", "", "data source (path, file://, s3://, sqlite://); defaults to "+config.EnvDataSource)
	root.PersistentFlags().StringVar(&flags.encoding, "encoding", "", "CSV character encoding; defaults to "+config.EnvDataEncoding)
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "warn", "log level for diagnostics written to stderr")

	root.AddCommand(newValidateCmd(&flags))
	root.AddCommand(newMatchCmd(&flags))
	root.AddCommand(newPackCmd(&flags))
	root.AddCommand(newUnpackCmd(&flags))
	return root
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

func loadConfig(flags *globalFlags) (*config.Config, error) {
	cfg, err := config.LoadForMode(config.ToolMode)
	if err != nil {
		return nil, err
	}
	if flags.source != "" {
		cfg.DataSource = flags.source
	}
	if flags.encoding != "" {
		cfg.DataEncoding = flags.encoding
	}
	return cfg, nil
}

func s3Config(cfg *config.Config) r2client.Config {
	return r2client.Config{
		Endpoint:    cfg.S3Endpoint,
		Region:      cfg.S3Region,
		AccessKeyID: cfg.S3AccessKeyID,
		SecretKey:   cfg.S3SecretAccessKey,
	}
}

// loadTable reads the configured source and returns the table with its stats.
func loadTable(ctx context.Context, cmd *cobra.Command, flags *globalFlags) (*config.Config, *responses.Table, responses.LoadStats, error) {
	cfg, err := loadConfig(flags)
	if err != nil {
		return nil, nil, responses.LoadStats{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.DataLoadTimeout)
	defer cancel()

	src, err := source.Open(ctx, cfg.DataSource, source.Options{
		Encoding: cfg.DataEncoding,
		S3:       s3Config(cfg),
	})
	if err != nil {
		return nil, nil, responses.LoadStats{}, fmt.Errorf("data source: %w", err)
	}

	log := logger.NewWithWriter(flags.logLevel, cmd.ErrOrStderr())
	table, stats, err := responses.Load(ctx, src, log.WithModule("responses"))
	if err != nil {
		return nil, nil, stats, err
	}
	return cfg, table, stats, nil
}
