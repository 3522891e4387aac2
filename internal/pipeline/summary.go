package pipeline

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
)

// Summary reports how a run went.
type Summary struct {
	RunID     string
	Started   time.Time
	Finished  time.Time
	Processed int
	Succeeded int
	Degraded  int
	Failed    int
	Skipped   []*LineError
	Aborted   bool
	Err       error
}

// Written returns the number of data rows in the output file.
func (s Summary) Written() int {
	return s.Succeeded + s.Degraded
}

// Duration returns the wall time of the run.
func (s Summary) Duration() time.Duration {
	if s.Finished.IsZero() {
		return 0
	}
	return s.Finished.Sub(s.Started)
}

// Render prints the summary as a table, followed by skipped lines if any.
func (s Summary) Render(w io.Writer) {
	status := "completed"
	if s.Aborted {
		status = "aborted"
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.SetTitle("scrape run %s", s.RunID)
	t.AppendHeader(table.Row{"Status", "Processed", "Written", "Degraded", "Failed", "Duration"})
	t.AppendRow(table.Row{status, s.Processed, s.Written(), s.Degraded, s.Failed, s.Duration().Round(time.Millisecond)})
	t.Render()

	if len(s.Skipped) > 0 {
		skipped := table.NewWriter()
		skipped.SetOutputMirror(w)
		skipped.SetStyle(table.StyleRounded)
		skipped.AppendHeader(table.Row{"Line", "Name", "Error"})
		for _, le := range s.Skipped {
			skipped.AppendRow(table.Row{le.Line, strings.TrimRight(le.Name, "\r\n"), le.Err.Error()})
		}
		skipped.Render()
	}
	if s.Err != nil {
		fmt.Fprintf(w, "error: %v\n", s.Err)
	}
}
