// Package summary accumulates the descriptive statistics attached to a
// validation run's output.
package summary

import "sort"

// Summary holds the counters and derived facts gathered while a dataset
// tree is walked and validated.
type Summary struct {
	TotalFiles    int            `json:"totalFiles"`
	TotalBytes    int64          `json:"totalFiles_bytes"`
	DataTypes     map[string]int `json:"dataTypes"`
	SchemaVersion string         `json:"schemaVersion"`

	suggestedColumns map[string]struct{}
}

// New returns an empty Summary.
func New() *Summary {
	return &Summary{
		DataTypes:        make(map[string]int),
		suggestedColumns: make(map[string]struct{}),
	}
}

// AddFile records one file's size and, if dataType is non-empty,
// increments that type's count. The validator passes the file's
// extension (or "other" when it has none).
func (s *Summary) AddFile(size int64, dataType string) {
	s.TotalFiles++
	s.TotalBytes += size
	if dataType != "" {
		s.DataTypes[dataType]++
	}
}

// SuggestColumns records column headers seen in the dataset's CSV files,
// so the final summary lists the union of every CSV column name.
func (s *Summary) SuggestColumns(headers []string) {
	for _, h := range headers {
		s.suggestedColumns[h] = struct{}{}
	}
}

// DropSuggested removes a column name from the suggestion set.
func (s *Summary) DropSuggested(name string) {
	delete(s.suggestedColumns, name)
}

// SuggestedColumns returns the remaining suggested columns, sorted for
// deterministic output.
func (s *Summary) SuggestedColumns() []string {
	out := make([]string, 0, len(s.suggestedColumns))
	for k := range s.suggestedColumns {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
