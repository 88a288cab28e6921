package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var tablesDDL bool

var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "List the warehouse tables",
	Long: `List the seven warehouse tables in creation order with their role,
keys and distribution settings. With --ddl the CREATE TABLE statements of
the configured dialect are printed instead.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		schema, err := schemaFromConfig()
		if err != nil {
			return err
		}

		if tablesDDL {
			for _, stmt := range schema.CreateOrder() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\n\n", stmt.SQL)
			}
			return nil
		}

		printTables(cmd.OutOrStdout(), schema)
		return nil
	},
}

func init() {
	tablesCmd.Flags().BoolVar(&tablesDDL, "ddl", false,
		"print CREATE TABLE statements")
}
