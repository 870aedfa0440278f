package rules

import (
	"regexp"

	"github.com/psych-ds/psychds-validator/internal/dsschema"
	"github.com/psych-ds/psychds-validator/internal/filenameparse"
)

// IssueKind names a filename-rule-validator finding.
type IssueKind string

const (
	ExtensionMismatch               IssueKind = "ExtensionMismatch"
	FilenameKeywordFormattingError  IssueKind = "FilenameKeywordFormattingError"
	FilenameUnofficialKeywordWarning IssueKind = "FilenameUnofficialKeywordWarning"
	AllFilenameRulesHaveIssues      IssueKind = "AllFilenameRulesHaveIssues"
)

// Issue is one filename-rule-validator finding.
type Issue struct {
	Kind     IssueKind
	Evidence string
}

// OfficialKeywords returns the set of keyword names the schema declares
// official, read from meta.context.context.properties.keywords.properties.
func OfficialKeywords(tree *dsschema.Tree) map[string]struct{} {
	props, ok := tree.GetMap("meta.context.context.properties.keywords.properties")
	set := make(map[string]struct{}, len(props))
	if !ok {
		return set
	}
	for k := range props {
		set[k] = struct{}{}
	}
	return set
}

// Validate runs the filename-rule validator for a file that matched one
// or more rule paths. It returns the single rule path under which the
// file is considered valid (possibly narrowed from candidates), and the
// issues to record (empty when the file cleanly satisfies its rule).
func Validate(tree *dsschema.Tree, official map[string]struct{}, filename string, candidates []string, els filenameparse.Elements) (string, []Issue) {
	if len(candidates) == 0 {
		return "", nil
	}
	if len(candidates) == 1 {
		return candidates[0], checkRule(tree, official, candidates[0], filename, els)
	}

	for _, path := range candidates {
		if issues := checkRule(tree, official, path, filename, els); len(issues) == 0 {
			return path, nil
		}
	}
	return "", []Issue{{Kind: AllFilenameRulesHaveIssues, Evidence: joinPaths(candidates)}}
}

func checkRule(tree *dsschema.Tree, official map[string]struct{}, rulePath, filename string, els filenameparse.Elements) []Issue {
	node, ok := tree.GetMap(rulePath)
	if !ok {
		return nil
	}

	var issues []Issue

	if extensions, ok := node["extensions"].([]interface{}); ok && len(extensions) > 0 {
		if !containsString(extensions, els.Extension) {
			issues = append(issues, Issue{Kind: ExtensionMismatch, Evidence: els.Extension})
		}
	}

	usesKeywords, _ := node["usesKeywords"].(bool)
	if usesKeywords {
		if regex, ok := node["fileRegex"].(string); ok && regex != "" {
			if matched, err := regexp.MatchString(anchor(regex), filename); err != nil || !matched {
				issues = append(issues, Issue{Kind: FilenameKeywordFormattingError, Evidence: filename})
			}
		}

		var unofficial []string
		for _, kv := range els.Keywords {
			if _, ok := official[kv.Key]; !ok {
				unofficial = append(unofficial, kv.Key)
			}
		}
		if len(unofficial) > 0 {
			issues = append(issues, Issue{Kind: FilenameUnofficialKeywordWarning, Evidence: joinPaths(unofficial)})
		}
	}

	return issues
}

func anchor(pattern string) string {
	if len(pattern) == 0 || pattern[0] != '^' {
		pattern = "^" + pattern
	}
	if pattern[len(pattern)-1] != '$' {
		pattern = pattern + "$"
	}
	return pattern
}

func joinPaths(paths []string) string {
	out := ""
	for i, p := range paths {
		if i > 0 {
			out += ", "
		}
		out += p
	}
	return out
}
