package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/medgraph/medgraph/engine/rag"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printResponse writes the answer followed by the matched rows, or the
// warning when there is no answer.
func printResponse(w io.Writer, resp rag.Response) {
	if resp.Warning != "" {
		fmt.Fprintf(w, "! %s\n", resp.Warning)
		return
	}
	fmt.Fprintln(w, strings.TrimSpace(resp.Response))
	if len(resp.Data) == 0 {
		return
	}
	fmt.Fprintf(w, "\nGraph rows (%d):\n", len(resp.Data))
	for _, rec := range resp.Data {
		fmt.Fprintf(w, "  %s\n", rec.Line())
	}
}

func printNames(w io.Writer, kind string, names []string) {
	fmt.Fprintf(w, "%d %s\n", len(names), kind)
	for _, n := range names {
		fmt.Fprintf(w, "  %s\n", n)
	}
}

func formatEvent(ev rag.QueryEvent) string {
	line := fmt.Sprintf("%s %-13s rows=%d %dms %q",
		ev.At.Local().Format(time.TimeOnly), ev.Outcome, ev.Rows, ev.DurationMS, ev.Question)
	if ev.Source != "" {
		line += " source=" + ev.Source
	}
	if ev.Warning != "" {
		line += " warning=" + ev.Warning
	}
	return line
}
