package installer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"text/tabwriter"

	"github.com/Arete-Innovations/blast-sub000/internal/descriptor"
	"github.com/Arete-Innovations/blast-sub000/internal/linker"
)

// InstallFromRegistry installs every spark recorded in the project
// descriptor, in document order. A failed install does not stop the batch.
// The error is non-nil only when the descriptor cannot be read.
func (in *Installer) InstallFromRegistry(ctx context.Context) (*BatchReport, error) {
	sparks, err := descriptor.List(in.opts.Project.DescriptorPath())
	if err != nil {
		return nil, err
	}

	batch := &BatchReport{Installs: make([]*Report, 0, len(sparks))}
	for i, s := range sparks {
		if err := ctx.Err(); err != nil {
			rep := &Report{Source: s.URL, Spark: s.Name}
			batch.Installs = append(batch.Installs, rep.fail(Fetching, err))
			continue
		}
		in.progress("[%d/%d] %s", i+1, len(sparks), s.Name)
		rep := in.Add(ctx, s.URL)
		if rep.Spark != "" && rep.Spark != s.Name {
			rep.warn("recorded as %q but its URL names %q", s.Name, rep.Spark)
		}
		batch.Installs = append(batch.Installs, rep)
	}
	return batch, nil
}

// SparkStatus is one row of the spark list.
type SparkStatus struct {
	Name      string `json:"name" yaml:"name"`
	URL       string `json:"url,omitempty" yaml:"url,omitempty"`
	Recorded  bool   `json:"recorded" yaml:"recorded"`
	Installed bool   `json:"installed" yaml:"installed"`
	Version   string `json:"version,omitempty" yaml:"version,omitempty"`
	Declared  bool   `json:"declared" yaml:"declared"` // listed in mod.rs
}

// StatusList is the output of Status.
type StatusList []SparkStatus

// Status lists recorded sparks followed by installed sparks that are not
// recorded in the descriptor.
func (in *Installer) Status() (StatusList, error) {
	p := in.opts.Project
	sparks, err := descriptor.List(p.DescriptorPath())
	if err != nil {
		return nil, err
	}
	modules, err := linker.Modules(filepath.Join(p.SparksDir(), linker.ModIndexFile))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading module index: %w", err)
	}

	row := func(name string) SparkStatus {
		st := SparkStatus{Name: name, Declared: slices.Contains(modules, name)}
		if fi, err := os.Stat(p.SparkDir(name)); err == nil && fi.IsDir() {
			st.Installed = true
			st.Version = linker.InstalledVersion(p.SparkDir(name))
		}
		return st
	}

	list := make(StatusList, 0, len(sparks))
	seen := map[string]bool{}
	for _, s := range sparks {
		st := row(s.Name)
		st.URL = s.URL
		st.Recorded = true
		list = append(list, st)
		seen[s.Name] = true
	}
	for _, name := range modules {
		if !seen[name] {
			list = append(list, row(name))
			seen[name] = true
		}
	}
	return list, nil
}

// WriteText renders the list as a table.
func (l StatusList) WriteText(w io.Writer) error {
	if len(l) == 0 {
		fmt.Fprintln(w, "No sparks recorded. Add one with: blast spark add <URL>")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tVERSION\tSTATUS\tURL")
	for _, s := range l {
		version := s.Version
		if version == "" {
			version = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.Name, version, s.state(), s.URL)
	}
	return tw.Flush()
}

func (s SparkStatus) state() string {
	switch {
	case !s.Recorded:
		return "not recorded"
	case !s.Installed:
		return "not installed"
	case !s.Declared:
		return "not declared"
	}
	return "installed"
}
