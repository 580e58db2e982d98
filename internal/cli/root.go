package cli

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Arete-Innovations/blast-sub000/internal/branding"
	"github.com/Arete-Innovations/blast-sub000/internal/config"
	"github.com/Arete-Innovations/blast-sub000/internal/installer"
	"github.com/Arete-Innovations/blast-sub000/internal/project"
)

var (
	buildVersion string
	buildCommit  string
	buildDate    string
)

var (
	projectDir     string
	nonInteractive bool
	outputFormat   = newEnum(string(installer.FormatText), string(installer.FormatJSON), string(installer.FormatYAML))

	logger = slog.New(slog.NewTextHandler(io.Discard, nil))
)

var rootCmd = &cobra.Command{
	Use:   branding.CLIName(),
	Short: branding.Description(),
	Long: branding.DisplayName() + ` installs sparks, the plugins of a Catalyst project. A spark is fetched
from its git repository, its manifest is validated, its dependencies are merged
into Cargo.toml, its environment variables are added to .env, its sources are
copied into src/services/sparks and its migrations are run.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := baseLogger(cmd)
		if err != nil {
			return usageError{err}
		}
		logger = l
		config.Load()
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&projectDir, "project", "", "project root (default: $"+project.EnvOverride()+", then the nearest directory holding "+project.DescriptorFile+")")
	pf.BoolVar(&nonInteractive, "non-interactive", false, "never open an editor for new environment variables")
	pf.Var(outputFormat, "output", "report format: text, json or yaml")
	registerLogFlags(pf)

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return usageError{err}
	})
}

// Execute runs the root command with build info injected via ldflags.
func Execute(version, commit, date string) error {
	buildVersion = version
	buildCommit = commit
	buildDate = date
	return rootCmd.Execute()
}

func format() installer.Format {
	return installer.Format(outputFormat.String())
}
