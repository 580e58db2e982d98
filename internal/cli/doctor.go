package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/Arete-Innovations/blast-sub000/internal/config"
	"github.com/Arete-Innovations/blast-sub000/internal/doctor"
	"github.com/Arete-Innovations/blast-sub000/internal/project"
)

var (
	checkDB   bool
	doctorFix bool
)

// doctorPing replaces the database ping when set.
var doctorPing func(ctx context.Context, url string) error

func init() {
	doctorCmd.Flags().BoolVar(&checkDB, "check-db", false, "Connect to DATABASE_URL and ping the server")
	doctorCmd.Flags().BoolVar(&doctorFix, "fix", false, "Restrict .env permissions to the owner")
	rootCmd.AddCommand(doctorCmd)
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Health check for the project and its sparks",
	Long: `Check the files blast edits, the tools it runs (git and the migration tool),
the installed sparks and the .env file. With --check-db the database named by
DATABASE_URL is pinged.`,
	Args: usageArgs(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		s := config.Current()
		opts := doctor.Options{
			Placeholder:      s.Placeholder,
			MigrationCommand: s.MigrationCommand,
			CheckDB:          checkDB,
			Fix:              doctorFix,
			Ping:             doctorPing,
		}

		p, err := project.Resolve(projectDir)
		switch {
		case err == nil:
			opts.Project = p
		case !errors.Is(err, project.ErrNotFound):
			return err
		}

		return doctor.Run(cmd.Context(), cmd.OutOrStdout(), opts).Err()
	},
}
