package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pgEdge/pgedge-dwh/internal/logging"
	"github.com/pgEdge/pgedge-dwh/internal/pipeline"
)

var verifySample int

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check the loaded warehouse for integrity violations",
	Long: `Count the rows of every table, look for song plays whose user, song,
artist or start time has no dimension row, look for duplicate dimension
keys, and spot-check that time_dim rows agree with their start time.
Nothing is modified. Exits non-zero when a violation is found.

Example:
  pgedge-dwh verify --config dwh.cfg --sample 500`,
	RunE: runVerify,
}

func init() {
	verifyCmd.Flags().IntVar(&verifySample, "sample", pipeline.DefaultTimeSample,
		"number of time_dim rows to spot-check (0 disables)")
}

func runVerify(cmd *cobra.Command, args []string) error {
	// Validate configuration
	if err := cfg.Validate(); err != nil {
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

	verifier := pipeline.NewVerifier(conn, schema, logging.ForRun("verify"))
	verifier.SampleSize = verifySample

	report, err := verifier.Run(ctx)
	if err != nil {
		return fmt.Errorf("verification failed: %w", err)
	}

	printVerifyReport(cmd.OutOrStdout(), report)
	if !report.OK() {
		return fmt.Errorf("verification found %d violation(s)", report.Violations())
	}
	return nil
}
