package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Arete-Innovations/blast-sub000/internal/config"
	"github.com/Arete-Innovations/blast-sub000/internal/envfile"
	"github.com/Arete-Innovations/blast-sub000/internal/fetcher"
	"github.com/Arete-Innovations/blast-sub000/internal/installer"
	"github.com/Arete-Innovations/blast-sub000/internal/project"
)

// newCloner replaces the git cloner when set.
var newCloner func() fetcher.Cloner

func init() {
	sparkCmd.AddCommand(sparkAddCmd)
	rootCmd.AddCommand(sparkCmd)
	rootCmd.AddCommand(addCmd)
}

var sparkCmd = &cobra.Command{
	Use:   "spark",
	Short: "Install and inspect sparks",
	Long:  `Install sparks into the current Catalyst project and inspect the installed ones.`,
}

var sparkAddCmd = &cobra.Command{
	Use:   "add <git-url>",
	Short: "Install a spark from its git repository",
	Long: `Fetch a spark, validate its manifest and install it into the project.

  blast spark add https://github.com/catalyst-sparks/auth.git

The spark is recorded in Catalyst.toml before anything else changes, so a
failed install can be retried with 'blast spark install'.`,
	Args: usageArgs(cobra.ExactArgs(1)),
	RunE: runSparkAdd,
}

var addCmd = &cobra.Command{
	Use:   "add <git-url>",
	Short: "Install a spark (same as 'spark add')",
	Args:  usageArgs(cobra.ExactArgs(1)),
	RunE:  runSparkAdd,
}

func runSparkAdd(cmd *cobra.Command, args []string) error {
	p, err := openProject()
	if err != nil {
		return err
	}
	rep := newInstaller(cmd, p).Add(cmd.Context(), args[0])
	if err := installer.Render(cmd.OutOrStdout(), format(), rep); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return exitWith(rep.ExitCode())
}

func openProject() (*project.Project, error) {
	p, err := project.Resolve(projectDir)
	if err != nil {
		return nil, err
	}
	logger.Debug("using project", "root", p.Root)
	return p, nil
}

func newInstaller(cmd *cobra.Command, p *project.Project) *installer.Installer {
	s := config.Current()
	opts := installer.Options{
		Project: p,
		Fetch: fetcher.Options{
			Branch:         s.Branch,
			ConnectTimeout: s.ConnectTimeout,
			LowSpeedTime:   s.LowSpeedTime,
			LowSpeedLimit:  s.LowSpeedLimit,
		},
		Placeholder:      s.Placeholder,
		MigrationCommand: s.MigrationCommand,
		Progress:         cmd.ErrOrStderr(),
		ToolOutput:       cmd.ErrOrStderr(),
		Logger:           logger,
	}
	if !nonInteractive {
		opts.Editor = envfile.NewSystemEditor(s.EditorCandidates)
	}
	if newCloner != nil {
		opts.Cloner = newCloner()
	}
	return installer.New(opts)
}
