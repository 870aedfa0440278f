// Package issues implements the validation-wide issues collector. Every
// finding surfaced during a
// validation run — whether a structural defect in a single file or a
// missing schema-required object — flows through a Collector, keyed by a
// stable textual key so repeated occurrences against different files merge
// into one entry rather than fanning out.
package issues

import (
	"encoding/json"
	"sort"
)

// Severity is the level of a validation issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// aliases normalizes keys the schema loader may emit under more than one
// spelling: INVALID_JSONLD_FORMATTING and INVALID_JSONLD_SYNTAX name the
// same condition.
var aliases = map[string]string{
	"InvalidJsonldFormatting": "InvalidJsonldSyntax",
}

// File is a single occurrence of an issue against one dataset file.
type File struct {
	Key       string `json:"key"`
	Path      string `json:"path"`
	Name      string `json:"name"`
	Line      *int   `json:"line,omitempty"`
	Character *int   `json:"character,omitempty"`
	Evidence  string `json:"evidence,omitempty"`
}

// Entry is one aggregated issue: a stable key, its severity, a
// human-readable reason, the list of rule-paths that must be satisfied
// before the issue survives filtering, and the
// ordered set of files that triggered it.
type Entry struct {
	Key      string   `json:"key"`
	Severity Severity `json:"severity"`
	Reason   string   `json:"reason"`
	Requires []string `json:"requires,omitempty"`
	HelpURL  string   `json:"helpUrl,omitempty"`

	order []string
	files map[string]File
}

// entryJSON mirrors Entry for marshaling, substituting the unexported
// files map for its ordered accessor.
type entryJSON struct {
	Key      string   `json:"key"`
	Severity Severity `json:"severity"`
	Reason   string   `json:"reason"`
	Requires []string `json:"requires,omitempty"`
	HelpURL  string   `json:"helpUrl,omitempty"`
	Files    []File   `json:"files"`
}

// MarshalJSON includes the entry's files, which Files() computes from the
// unexported order/files bookkeeping.
func (e *Entry) MarshalJSON() ([]byte, error) {
	return json.Marshal(entryJSON{
		Key:      e.Key,
		Severity: e.Severity,
		Reason:   e.Reason,
		Requires: e.Requires,
		HelpURL:  e.HelpURL,
		Files:    e.Files(),
	})
}

// Files returns the entry's files in the order they were first added.
func (e *Entry) Files() []File {
	out := make([]File, 0, len(e.order))
	for _, p := range e.order {
		out = append(out, e.files[p])
	}
	return out
}

// Collector is an ordered map of issue-key to Entry. Insertion order of
// keys is preserved so CLI/JSON output is deterministic across runs.
type Collector struct {
	order   []string
	entries map[string]*Entry
}

// NewCollector returns an empty Collector.
func NewCollector() *Collector {
	return &Collector{entries: make(map[string]*Entry)}
}

// Add records one occurrence of key against file f. If key already exists,
// f is merged into its file map (deduplicated by path); the entry's
// severity/reason/requires/helpURL are set on first insertion and never
// overwritten afterwards. Files never repeat within one issue's map.
func (c *Collector) Add(key string, severity Severity, reason string, f File, requires []string, helpURL string) {
	if canonical, ok := aliases[key]; ok {
		key = canonical
	}

	e, ok := c.entries[key]
	if !ok {
		e = &Entry{
			Key:      key,
			Severity: severity,
			Reason:   reason,
			Requires: requires,
			HelpURL:  helpURL,
			files:    make(map[string]File),
		}
		c.entries[key] = e
		c.order = append(c.order, key)
	}

	if _, exists := e.files[f.Path]; !exists {
		e.order = append(e.order, f.Path)
	}
	e.files[f.Path] = f
}

// Get returns the entry for key, if any.
func (c *Collector) Get(key string) (*Entry, bool) {
	e, ok := c.entries[key]
	return e, ok
}

// Has reports whether key has been recorded at all.
func (c *Collector) Has(key string) bool {
	_, ok := c.entries[key]
	return ok
}

// Remove deletes key entirely (used by the filter pass that drops issues
// whose Requires aren't all satisfied).
func (c *Collector) Remove(key string) {
	if _, ok := c.entries[key]; !ok {
		return
	}
	delete(c.entries, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// Keys returns all recorded issue keys in insertion order.
func (c *Collector) Keys() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Entries returns every entry in insertion order.
func (c *Collector) Entries() []*Entry {
	out := make([]*Entry, 0, len(c.order))
	for _, k := range c.order {
		out = append(out, c.entries[k])
	}
	return out
}

// CountBySeverity returns how many entries currently have the given
// severity.
func (c *Collector) CountBySeverity(sev Severity) int {
	n := 0
	for _, e := range c.entries {
		if e.Severity == sev {
			n++
		}
	}
	return n
}

// Partition splits the current entries into errors and warnings, each
// sorted by key for stable output.
func (c *Collector) Partition() (errs []*Entry, warnings []*Entry) {
	for _, e := range c.Entries() {
		switch e.Severity {
		case SeverityError:
			errs = append(errs, e)
		case SeverityWarning:
			warnings = append(warnings, e)
		}
	}
	sort.SliceStable(errs, func(i, j int) bool { return errs[i].Key < errs[j].Key })
	sort.SliceStable(warnings, func(i, j int) bool { return warnings[i].Key < warnings[j].Key })
	return errs, warnings
}
