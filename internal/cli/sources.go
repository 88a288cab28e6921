package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pgEdge/pgedge-dwh/internal/sources"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "Check that the configured S3 locations exist",
	Long: `Check the S3 locations the load command copies from: the event log and
song data prefixes must contain at least one object and the JSONPaths
file, when configured, must exist. The checks use the local AWS
credentials, not the warehouse IAM role.

Example:
  pgedge-dwh sources --config dwh.cfg`,
	RunE: runSources,
}

func runSources(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	report, err := runPreflight(ctx)
	if err != nil {
		return err
	}

	printSourcesReport(cmd.OutOrStdout(), report)
	if err := report.Err(); err != nil {
		return fmt.Errorf("source check failed: %w", err)
	}
	return nil
}

func runPreflight(ctx context.Context) (*sources.Report, error) {
	src := cfg.Sources()
	if err := src.Validate(); err != nil {
		return nil, err
	}

	client, err := sources.NewClient(ctx, src.Region)
	if err != nil {
		return nil, err
	}
	return sources.NewChecker(client).Check(ctx, src)
}
