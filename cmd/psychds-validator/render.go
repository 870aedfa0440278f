package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/psych-ds/psychds-validator/internal/issues"
	"github.com/psych-ds/psychds-validator/internal/summary"
)

// renderTable prints a left-aligned, rune-width-aware issue table, one
// block per severity, followed by the run's summary counters.
func renderTable(out *strings.Builder, errs, warnings []*issues.Entry, sum *summary.Summary, showWarnings bool, verbose bool, filesChecked []string) {
	renderSeverityBlock(out, "Errors", errs)
	if showWarnings {
		renderSeverityBlock(out, "Warnings", warnings)
	}
	renderSummary(out, sum)
	if verbose {
		fmt.Fprintf(out, "Files checked (%d):\n", len(filesChecked))
		for _, p := range filesChecked {
			fmt.Fprintf(out, "  %s\n", p)
		}
	}
}

func renderSeverityBlock(out *strings.Builder, title string, entries []*issues.Entry) {
	if len(entries) == 0 {
		fmt.Fprintf(out, "%s: none\n\n", title)
		return
	}

	fmt.Fprintf(out, "%s (%d):\n", title, len(entries))

	keyWidth, pathWidth := len("KEY"), len("FILE")
	for _, e := range entries {
		if w := runewidth.StringWidth(e.Key); w > keyWidth {
			keyWidth = w
		}
		for _, f := range e.Files() {
			if w := runewidth.StringWidth(f.Path); w > pathWidth {
				pathWidth = w
			}
		}
	}

	fmt.Fprintf(out, "  %s  %s  %s\n", padRight("KEY", keyWidth), padRight("FILE", pathWidth), "REASON")
	for _, e := range entries {
		files := e.Files()
		if len(files) == 0 {
			fmt.Fprintf(out, "  %s  %s  %s\n", padRight(e.Key, keyWidth), padRight("", pathWidth), e.Reason)
			continue
		}
		for i, f := range files {
			key := e.Key
			reason := e.Reason
			if i > 0 {
				key = ""
				reason = ""
			}
			fmt.Fprintf(out, "  %s  %s  %s\n", padRight(key, keyWidth), padRight(f.Path, pathWidth), reason)
		}
	}
	out.WriteString("\n")
}

func renderSummary(out *strings.Builder, sum *summary.Summary) {
	if sum == nil {
		return
	}
	fmt.Fprintf(out, "Summary: %d files, %d bytes\n", sum.TotalFiles, sum.TotalBytes)
	if len(sum.DataTypes) > 0 {
		exts := make([]string, 0, len(sum.DataTypes))
		for ext := range sum.DataTypes {
			exts = append(exts, ext)
		}
		sort.Strings(exts)
		out.WriteString("  data types:")
		for _, ext := range exts {
			fmt.Fprintf(out, " %s=%d", ext, sum.DataTypes[ext])
		}
		out.WriteString("\n")
	}
	if cols := sum.SuggestedColumns(); len(cols) > 0 {
		fmt.Fprintf(out, "  columns found in CSV data: %s\n", strings.Join(cols, ", "))
	}
}

func padRight(s string, width int) string {
	w := runewidth.StringWidth(s)
	if w >= width {
		return s
	}
	return s + strings.Repeat(" ", width-w)
}
