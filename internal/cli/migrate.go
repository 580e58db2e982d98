package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Arete-Innovations/blast-sub000/internal/installer"
)

var sparkMigrateCmd = &cobra.Command{
	Use:   "migrate <name>",
	Short: "Run the migrations of an installed spark again",
	Long: `Run the migrations declared by an installed spark, using the project's .env.
Use it after fixing a failed migration or replacing placeholder values.`,
	Args: usageArgs(cobra.ExactArgs(1)),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := openProject()
		if err != nil {
			return err
		}
		report, err := newInstaller(cmd, p).Migrate(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if err := installer.Render(cmd.OutOrStdout(), format(), report); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}
		if report.Failed() {
			return exitWith(installer.ExitPartial)
		}
		return nil
	},
}

func init() {
	sparkCmd.AddCommand(sparkMigrateCmd)
}
