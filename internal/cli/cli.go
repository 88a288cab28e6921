//-------------------------------------------------------------------------
//
// pgEdge Data Warehouse ETL
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package cli implements the command-line interface for pgedge-dwh.
package cli

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pgEdge/pgedge-dwh/internal/config"
	"github.com/pgEdge/pgedge-dwh/internal/db"
	"github.com/pgEdge/pgedge-dwh/internal/logging"
	"github.com/pgEdge/pgedge-dwh/internal/warehouse"
	"github.com/pgEdge/pgedge-dwh/pkg/version"
)

var (
	// Global flags
	cfgFile   string
	logLevel  string
	logFormat string
	dialect   string

	// Global config
	cfg *config.Config

	rootCmd = &cobra.Command{
		Use:   "pgedge-dwh",
		Short: "Star-schema ETL for song play analytics on Redshift",
		Long: `pgedge-dwh provisions a star-schema warehouse in Amazon Redshift,
bulk-loads JSON event logs and a song catalog from S3 into staging
tables, and transforms the staged data into four dimensions and one
fact table of song plays.

The connection, S3 locations and IAM role are read from a config file.
The INI file of the earlier Python scripts (dwh.cfg) is also accepted.
Its CLUSTER keys may be named HOST/DBNAME/USER/PASSWORD/PORT or
DB_HOST/DB_NAME/..., or be any five keys listed in that order.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default: ./dwh.cfg or ./pgedge-dwh.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "",
		"log format (console, json)")
	rootCmd.PersistentFlags().StringVar(&dialect, "dialect", "",
		"SQL dialect (redshift, postgres)")

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(provisionCmd)
	rootCmd.AddCommand(loadCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(sourcesCmd)
	rootCmd.AddCommand(tablesCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(queryCmd)
}

func initConfig() error {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return err
	}

	// Override with CLI flags
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if logFormat != "" {
		cfg.LogFormat = logFormat
	}
	if dialect != "" {
		cfg.Schema.Dialect = dialect
	}

	// Reinitialize logger with config
	logging.Init(logging.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})

	return nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM. The
// statement in flight is rolled back by the database when the connection
// goes away.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigChan:
			logging.Info().
				Str("signal", sig.String()).
				Msg("Received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}

// connect opens the warehouse described by the loaded configuration.
func connect(ctx context.Context) (*sql.DB, error) {
	conn, err := db.Connect(ctx, cfg.Cluster)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return conn, nil
}

func schemaFromConfig() (*warehouse.Schema, error) {
	d, err := cfg.Dialect()
	if err != nil {
		return nil, err
	}
	return warehouse.NewSchema(d), nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Println(version.Info())
	},
}
