// Package csvdata implements the Psych-DS tabular-data parser:
// line-ending normalization, RFC-4180-ish quoted-field parsing via
// encoding/csv, header-length enforcement, and row_id uniqueness.
package csvdata

import (
	"encoding/csv"
	"fmt"
	"strings"
)

// IssueKind distinguishes the textual issue keys parseCSV can surface.
type IssueKind string

const (
	NoHeader            IssueKind = "NoHeader"
	HeaderRowMismatch    IssueKind = "HeaderRowMismatch"
	RowidValuesNotUnique IssueKind = "RowidValuesNotUnique"
	CSVFormattingError   IssueKind = "CSVFormattingError"
)

// Issue is one problem discovered while parsing a CSV file's text.
type Issue struct {
	Kind    IssueKind
	Message string
}

// Result is the outcome of parsing one CSV file's text.
type Result struct {
	// Columns maps each header to its values in row order. Empty when
	// parsing failed before a header could be established.
	Columns map[string][]string
	// Headers preserves the declared column order.
	Headers []string
	Issues  []Issue
}

// Parse implements parseCSV(text) → {columns, issues}.
func Parse(text string) Result {
	normalized := normalizeLineEndings(text)

	// encoding/csv's Reader silently skips blank lines, which would hide
	// a file that genuinely begins with one; the header is literally the
	// file's first line, so that check happens against the raw text
	// before the blank-line-skipping reader ever sees it.
	lines := strings.Split(normalized, "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) == "" {
		return Result{Issues: []Issue{{Kind: NoHeader, Message: "no header row present"}}}
	}

	r := csv.NewReader(strings.NewReader(normalized))
	r.FieldsPerRecord = -1 // we enforce header-length ourselves, per-row
	r.LazyQuotes = false

	rows, err := r.ReadAll()
	if err != nil {
		return Result{Issues: []Issue{{Kind: CSVFormattingError, Message: err.Error()}}}
	}
	if len(rows) == 0 {
		return Result{Issues: []Issue{{Kind: NoHeader, Message: "no header row present"}}}
	}

	header := rows[0]
	result := Result{
		Columns: make(map[string][]string, len(header)),
		Headers: append([]string(nil), header...),
	}
	for _, h := range header {
		result.Columns[h] = nil
	}

	for i := 1; i < len(rows); i++ {
		row := rows[i]
		rowNum := i + 1 // header is row 1, 1-based
		if isEmptyRow(row) {
			continue
		}
		if len(row) != len(header) {
			result.Issues = append(result.Issues, Issue{
				Kind:    HeaderRowMismatch,
				Message: fmt.Sprintf("Row %d has %d columns, expected %d", rowNum, len(row), len(header)),
			})
			continue
		}
		for j, h := range header {
			result.Columns[h] = append(result.Columns[h], row[j])
		}
	}

	if values, ok := result.Columns["row_id"]; ok {
		if dup := firstDuplicate(values); dup != "" {
			result.Issues = append(result.Issues, Issue{
				Kind:    RowidValuesNotUnique,
				Message: fmt.Sprintf("duplicate row_id value: %s", dup),
			})
		}
	}

	return result
}

func normalizeLineEndings(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return text
}

func isEmptyRow(row []string) bool {
	if len(row) == 0 {
		return true
	}
	for _, f := range row {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

func firstDuplicate(values []string) string {
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			return v
		}
		seen[v] = struct{}{}
	}
	return ""
}
