package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Arete-Innovations/blast-sub000/internal/config"
	"github.com/Arete-Innovations/blast-sub000/internal/descriptor"
	"github.com/Arete-Innovations/blast-sub000/internal/envfile"
	"github.com/Arete-Innovations/blast-sub000/internal/platform"
)

var envShowNoRedact bool

// editorFor returns the editor used by 'env edit'.
var editorFor = defaultEditorFor

func defaultEditorFor(candidates []string) envfile.Editor {
	return envfile.NewSystemEditor(candidates)
}

func init() {
	envShowCmd.Flags().BoolVar(&envShowNoRedact, "no-redact", false, "Show values without redaction")

	envCmd.AddCommand(envShowCmd)
	envCmd.AddCommand(envEditCmd)
	envCmd.AddCommand(envCheckCmd)
	rootCmd.AddCommand(envCmd)
}

var envCmd = &cobra.Command{
	Use:   "env",
	Short: "Manage the project .env file",
	Long:  `Show, edit and check the .env file that sparks read their settings from.`,
}

var envShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print .env contents (redacted by default)",
	Long: `Print the variables of the project .env with sensitive values redacted.
Placeholder values are always shown. Use --no-redact to show actual values.`,
	Args: usageArgs(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := openProject()
		if err != nil {
			return err
		}
		entries, err := envfile.ParseFile(p.EnvPath())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(entries) == 0 {
			fmt.Fprintln(out, "(empty)")
			return nil
		}

		placeholder := config.Current().Placeholder
		fmt.Fprintf(out, "# %s\n", p.EnvPath())
		for _, e := range entries {
			value := e.Value
			if !envShowNoRedact {
				value = envfile.RedactValue(e.Key, e.Value, placeholder)
			}
			fmt.Fprintf(out, "%s=%s\n", e.Key, value)
		}
		return nil
	},
}

var envEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open .env in an editor",
	Long: `Open the project .env in $EDITOR, or the first editor found from the
editor.candidates setting. A missing .env is created first.`,
	Args: usageArgs(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := openProject()
		if err != nil {
			return err
		}
		path := p.EnvPath()

		if _, statErr := os.Stat(path); errors.Is(statErr, fs.ErrNotExist) {
			if err := os.WriteFile(path, nil, platform.FilePermSecure); err != nil {
				return fmt.Errorf("creating env file %s: %w", path, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", path)
		}

		return editorFor(config.Current().EditorCandidates).Edit(cmd.Context(), path)
	},
}

var envCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Report spark variables that still hold the placeholder",
	Args:  usageArgs(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := openProject()
		if err != nil {
			return err
		}
		sparks, err := descriptor.List(p.DescriptorPath())
		if err != nil {
			return err
		}

		placeholder := config.Current().Placeholder
		out := cmd.OutOrStdout()
		var pending []string
		for _, s := range sparks {
			keys, err := envfile.Unresolved(p.EnvPath(), s.Name, placeholder)
			if err != nil {
				return err
			}
			if len(keys) == 0 {
				fmt.Fprintf(out, "  ✓ %s\n", s.Name)
				continue
			}
			fmt.Fprintf(out, "  ✗ %s: %s\n", s.Name, strings.Join(keys, ", "))
			pending = append(pending, keys...)
		}

		if len(pending) > 0 {
			return fmt.Errorf("%d variable(s) still hold the placeholder; run '%s env edit'", len(pending), rootCmd.Name())
		}
		fmt.Fprintln(out, "All spark variables are set.")
		return nil
	},
}
