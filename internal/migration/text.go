package migration

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// WriteText renders the report as a table followed by any warning.
func (r Report) WriteText(w io.Writer) error {
	if len(r.Results) == 0 {
		fmt.Fprintln(w, "No migrations declared.")
	} else {
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "MIGRATION\tOUTCOME\tDETAIL")
		for _, res := range r.Results {
			detail := strings.Join(res.Applied, ", ")
			if res.Reason != "" {
				detail = res.Reason
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\n", res.Name, res.Outcome, detail)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	if len(r.Unresolved) > 0 {
		fmt.Fprintf(w, "⚠️  placeholder values not replaced: %s\n", strings.Join(r.Unresolved, ", "))
	}
	return nil
}
