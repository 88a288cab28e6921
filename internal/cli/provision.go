package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pgEdge/pgedge-dwh/internal/logging"
	"github.com/pgEdge/pgedge-dwh/internal/pipeline"
)

var provisionCmd = &cobra.Command{
	Use:   "provision",
	Short: "Drop and recreate the warehouse tables",
	Long: `Drop all seven warehouse tables (children before parents) and
create them again (parents before children). Any previously loaded
data is lost.

Example:
  pgedge-dwh provision --config dwh.cfg`,
	RunE: runProvision,
}

func runProvision(cmd *cobra.Command, args []string) error {
	// Validate configuration
	if err := cfg.ValidateProvision(); err != nil {
		return err
	}

	schema, err := schemaFromConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	conn, err := connect(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	log := logging.ForRun("provision")
	log.Info().Str("dialect", string(schema.Dialect())).Msg("Provisioning warehouse")

	provisioner := pipeline.NewProvisioner(pipeline.NewRunner(conn, log), schema)
	report, err := provisioner.Run(ctx)
	printStepReport(cmd.OutOrStdout(), report)
	if err != nil {
		return fmt.Errorf("provisioning failed: %w", err)
	}

	log.Info().Dur("duration", report.Duration).Msg("Warehouse provisioned")
	return nil
}
