//-------------------------------------------------------------------------
//
// pgEdge Data Warehouse ETL
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package cli

import (
	"github.com/spf13/cobra"

	"github.com/pgEdge/pgedge-dwh/internal/analytics"
	"github.com/pgEdge/pgedge-dwh/internal/logging"
)

var queryList bool

var queryCmd = &cobra.Command{
	Use:   "query [name...]",
	Short: "Run song play reports against the warehouse",
	Long: `Run one or more of the built-in reports over the dimension and fact
tables and print their results. Without arguments every report runs.

Example:
  pgedge-dwh query --list
  pgedge-dwh query top_songs plays_by_hour`,
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().BoolVar(&queryList, "list", false,
		"list the available reports")
}

func runQuery(cmd *cobra.Command, args []string) error {
	if queryList {
		printQueries(cmd.OutOrStdout(), analytics.All())
		return nil
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	conn, err := connect(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	log := logging.ForRun("query")
	summary, err := analytics.NewExecutor(conn, log).Run(ctx, args)
	if summary != nil {
		printQueryResults(cmd.OutOrStdout(), summary)
	}
	if err != nil {
		return err
	}

	log.Info().
		Int("queries", len(summary.Results)).
		Dur("duration", summary.Duration).
		Float64("avg_latency_ms", float64(summary.AvgLatency())/1e6).
		Msg("Reports complete")
	return nil
}
