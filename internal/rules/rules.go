// Package rules implements filename-rule matching and enumeration over
// the schema's rules.files subtree.
package rules

import (
	"sort"
	"strings"

	"github.com/psych-ds/psychds-validator/internal/dsschema"
	"github.com/psych-ds/psychds-validator/internal/issues"
)

// MatchContext is the subset of per-file context the matcher needs.
type MatchContext struct {
	BaseDir   string
	Extension string
	Suffix    string
	FileName  string
	FilePath  string // dataset-root relative, leading slash, e.g. "/data/raw_data/x.csv"
}

// FindRuleMatches walks schema.rules.files looking for every leaf node
// whose conditions are satisfied by ctx, returning their dotted paths.
// This is `_findRuleMatches`.
func FindRuleMatches(tree *dsschema.Tree, basePath string, ctx MatchContext) []string {
	var matches []string
	walkLeaves(tree, basePath, func(leafPath string, node map[string]interface{}) {
		if leafMatches(node, ctx) {
			matches = append(matches, leafPath)
		}
	})
	return matches
}

// FindFileRules flattens every leaf reachable from basePath into a
// rulesRecord seeded false. This is `findFileRules`.
func FindFileRules(tree *dsschema.Tree, basePath string) map[string]bool {
	record := make(map[string]bool)
	walkLeaves(tree, basePath, func(leafPath string, node map[string]interface{}) {
		record[leafPath] = false
	})
	return record
}

// isLeaf reports whether node is a matchable leaf rule: it has
// "arbitraryNesting" set (a filename-matching leaf), has the trio
// (baseDir, extensions, suffix-or-stem), or is a directory-kind rule
// (path + directory).
func isLeaf(node map[string]interface{}) bool {
	if _, ok := node["arbitraryNesting"]; ok {
		return true
	}
	_, hasBaseDir := node["baseDir"]
	_, hasExt := node["extensions"]
	_, hasSuffix := node["suffix"]
	_, hasStem := node["stem"]
	if hasBaseDir && hasExt && (hasSuffix || hasStem) {
		return true
	}
	_, hasPath := node["path"]
	_, hasDir := node["directory"]
	return hasPath && hasDir
}

func walkLeaves(tree *dsschema.Tree, path string, visit func(leafPath string, node map[string]interface{})) {
	node, ok := tree.GetMap(path)
	if !ok {
		return
	}
	if isLeaf(node) {
		visit(path, node)
		return
	}
	for key := range node {
		_, ok := node[key].(map[string]interface{})
		if !ok {
			continue
		}
		childPath := path + "." + key
		if path == "" {
			childPath = key
		}
		walkLeaves(tree, childPath, visit)
	}
}

func leafMatches(node map[string]interface{}, ctx MatchContext) bool {
	if isDir, ok := node["directory"].(bool); ok && isDir {
		// Directory-kind rules are satisfied by checkDirRules, never by
		// filename matching.
		return false
	}

	arbitrary, _ := node["arbitraryNesting"].(bool)
	baseDir, _ := node["baseDir"].(string)

	if arbitrary {
		if ctx.BaseDir != baseDir {
			return false
		}
	} else {
		var expected string
		if baseDir == "/" || baseDir == "" {
			expected = "/" + ctx.FileName
		} else {
			expected = "/" + baseDir + "/" + ctx.FileName
		}
		if ctx.FilePath != expected {
			return false
		}
	}

	extensions, _ := node["extensions"].([]interface{})
	if len(extensions) > 0 && !containsString(extensions, ctx.Extension) {
		return false
	}

	if suffix, ok := node["suffix"].(string); ok {
		if ctx.Suffix != suffix {
			return false
		}
	} else if stem, ok := node["stem"].(string); ok {
		if !strings.HasPrefix(ctx.FileName, stem) {
			return false
		}
	}

	return true
}

func containsString(list []interface{}, s string) bool {
	for _, v := range list {
		if str, ok := v.(string); ok && str == s {
			return true
		}
	}
	return false
}

// CheckDirRules marks every unsatisfied directory-kind rule under
// rules.files.common satisfied if its declared path is one of the
// dataset's top-level base directories. This is `checkDirRules`.
func CheckDirRules(tree *dsschema.Tree, record map[string]bool, baseDirs []string) {
	const base = "rules.files.common"
	node, ok := tree.GetMap(base)
	if !ok {
		return
	}
	baseSet := make(map[string]struct{}, len(baseDirs))
	for _, d := range baseDirs {
		baseSet[d] = struct{}{}
	}
	checkDirRulesRecurse(tree, base, node, record, baseSet)
}

// CheckMissingRules emits one issue for every rule path still false in
// record whose node declares a code/reason/level triple (the rules that
// represent required or recommended dataset structure, e.g. a required
// root metadata file). Rules with no such metadata — arbitrary-nesting
// content rules, optional convenience files — are left alone; their
// absence is not itself an issue. This is `checkMissingRules`.
func CheckMissingRules(tree *dsschema.Tree, record map[string]bool, col *issues.Collector) {
	paths := make([]string, 0, len(record))
	for path := range record {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	for _, path := range paths {
		if record[path] {
			continue
		}
		node, ok := tree.GetMap(path)
		if !ok {
			continue
		}
		code, _ := node["code"].(string)
		if code == "" {
			continue
		}
		reason, _ := node["reason"].(string)
		level, _ := node["level"].(string)
		col.Add(code, severityForLevel(level), reason, issues.File{}, nil, "")
	}
}

func severityForLevel(level string) issues.Severity {
	if level == "required" {
		return issues.SeverityError
	}
	return issues.SeverityWarning
}

func checkDirRulesRecurse(tree *dsschema.Tree, path string, node map[string]interface{}, record map[string]bool, baseSet map[string]struct{}) {
	if record[path] {
		return
	}
	isDir, _ := node["directory"].(bool)
	rulePath, hasPath := node["path"].(string)
	if isDir && hasPath {
		if _, ok := baseSet[rulePath]; ok {
			record[path] = true
		}
		return
	}
	for key, v := range node {
		child, ok := v.(map[string]interface{})
		if !ok {
			continue
		}
		childPath := path + "." + key
		checkDirRulesRecurse(tree, childPath, child, record, baseSet)
	}
}
