// Package ignore provides gitignore-style file filtering for a Psych-DS
// dataset tree, built on go-git's gitignore matcher.
//
// Unlike a repository-level .gitignore stack, a dataset's ignore rules are
// seeded once with a fixed default set and then grow
// incrementally as the tree walker discovers .psychdsignore files at any
// depth — each one scoped to its own directory and below, exactly as git
// scopes a nested .gitignore.
package ignore

import (
	"strings"

	gitignore "github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// DefaultPatterns are the paths every Psych-DS dataset ignores unless a
// .psychdsignore file says otherwise.
var DefaultPatterns = []string{
	".git**",
	".datalad/",
	"sourcedata/",
	"code/",
	"stimuli/",
	"materials/",
	"results/",
	"products/",
	"documentation/",
	"CHANGES*",
	"log/",
	"**/meg/*.ds/**",
	"**/micr/*.zarr/**",
}

// Matcher evaluates dataset-relative paths against the accumulated set of
// ignore patterns.
type Matcher struct {
	entries []patternEntry
	built   gitignore.Matcher
	dirty   bool
}

type patternEntry struct {
	text   string
	domain []string
}

// NewMatcher returns a Matcher seeded with DefaultPatterns, rooted at the
// dataset root (an empty domain).
func NewMatcher() *Matcher {
	m := &Matcher{}
	for _, p := range DefaultPatterns {
		m.entries = append(m.entries, patternEntry{text: p})
	}
	m.dirty = true
	return m
}

// AddPatternFile registers the patterns read from a .psychdsignore file
// discovered at dirRel (a dataset-relative directory path; "" or "/" for the
// dataset root). Patterns are parsed the same way a nested .gitignore's
// patterns are: scoped to dirRel and everything below it.
func (m *Matcher) AddPatternFile(dirRel string, lines []string) {
	domain := splitPath(dirRel)
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		m.entries = append(m.entries, patternEntry{text: line, domain: domain})
	}
	m.dirty = true
}

// ParsePsychDSIgnore splits the raw contents of a .psychdsignore file into
// its pattern lines (comments and blank lines dropped).
func ParsePsychDSIgnore(content string) []string {
	var patterns []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, line)
	}
	return patterns
}

func (m *Matcher) ensureBuilt() {
	if !m.dirty && m.built != nil {
		return
	}
	patterns := make([]gitignore.Pattern, 0, len(m.entries))
	for _, e := range m.entries {
		patterns = append(patterns, gitignore.ParsePattern(e.text, e.domain))
	}
	m.built = gitignore.NewMatcher(patterns)
	m.dirty = false
}

// Test reports whether a dataset-relative file path is ignored.
//
// relPath must be dataset-root relative ("data/raw_data/x.csv"), using
// either OS separators or forward slashes.
func (m *Matcher) Test(relPath string) bool {
	parts := splitPath(relPath)
	if len(parts) == 0 {
		return false
	}
	m.ensureBuilt()
	return m.built.Match(parts, false)
}

// TestDir reports whether a dataset-relative directory path is ignored
// (and thus should not be descended into during traversal).
func (m *Matcher) TestDir(relPath string) bool {
	parts := splitPath(relPath)
	if len(parts) == 0 {
		return false
	}
	m.ensureBuilt()
	return m.built.Match(parts, true)
}

// splitPath converts a slash- or OS-separated relative path into path
// components usable by go-git's gitignore matcher.
func splitPath(path string) []string {
	path = strings.ReplaceAll(path, "\\", "/")
	if path == "" || path == "." || path == "/" {
		return []string{}
	}
	path = strings.TrimPrefix(path, "/")
	raw := strings.Split(path, "/")
	result := make([]string, 0, len(raw))
	for _, part := range raw {
		if part != "" && part != "." {
			result = append(result, part)
		}
	}
	return result
}
