package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Arete-Innovations/blast-sub000/internal/installer"
)

var sparkInstallCmd = &cobra.Command{
	Use:   "install",
	Short: "Install every spark recorded in Catalyst.toml",
	Long: `Install the sparks listed in the [sparks] table of Catalyst.toml, in order.
A failed spark does not stop the others. Installing an already installed
spark leaves Cargo.toml, Catalyst.toml, .env and mod.rs untouched.`,
	Args: usageArgs(cobra.NoArgs),
	RunE: runSparkInstall,
}

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install every recorded spark (same as 'spark install')",
	Args:  usageArgs(cobra.NoArgs),
	RunE:  runSparkInstall,
}

func init() {
	sparkCmd.AddCommand(sparkInstallCmd)
	rootCmd.AddCommand(installCmd)
}

func runSparkInstall(cmd *cobra.Command, args []string) error {
	p, err := openProject()
	if err != nil {
		return err
	}
	batch, err := newInstaller(cmd, p).InstallFromRegistry(cmd.Context())
	if err != nil {
		return err
	}
	if err := installer.Render(cmd.OutOrStdout(), format(), batch); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return exitWith(batch.ExitCode())
}
