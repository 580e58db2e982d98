package cli

import (
	"github.com/spf13/cobra"

	"github.com/Arete-Innovations/blast-sub000/internal/installer"
)

var sparkListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded and installed sparks",
	Args:  usageArgs(cobra.NoArgs),
	RunE:  runSparkList,
}

func init() {
	sparkCmd.AddCommand(sparkListCmd)
}

func runSparkList(cmd *cobra.Command, args []string) error {
	p, err := openProject()
	if err != nil {
		return err
	}
	list, err := newInstaller(cmd, p).Status()
	if err != nil {
		return err
	}
	return installer.Render(cmd.OutOrStdout(), format(), list)
}
