// Package engine implements the recursive schema rule evaluator
// selector-gated dispatch to the
// columnsMatchMetadata and fields handlers, and the schema.org structural
// validator that columnsMatchMetadata triggers.
package engine

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/psych-ds/psychds-validator/internal/csvdata"
	"github.com/psych-ds/psychds-validator/internal/dsschema"
	"github.com/psych-ds/psychds-validator/internal/engine/expr"
	"github.com/psych-ds/psychds-validator/internal/issues"
	"github.com/psych-ds/psychds-validator/internal/jsonld"
	"github.com/psych-ds/psychds-validator/pkg/logger"
)

// FileScope is the subset of per-file context applyRules and its handlers
// need. It is deliberately decoupled from package dscontext to avoid an
// import cycle (dscontext is built before rules are applied).
type FileScope struct {
	Path            string
	Name            string
	Extension       string
	Suffix          string
	BaseDir         string
	Sidecar         map[string]interface{}
	ExpandedSidecar jsonld.Node
	Columns         *csvdata.Result
	ValidColumns    []string
	Provenance      map[string]string
}

// scope builds the expr evaluation scope exposed to selectors.
func (fs *FileScope) scope() map[string]interface{} {
	return map[string]interface{}{
		"extension": fs.Extension,
		"suffix":    fs.Suffix,
		"baseDir":   fs.BaseDir,
		"fileName":  fs.Name,
		"sidecar":   fs.Sidecar,
	}
}

// ApplyRules recursively descends schema, evaluating every node's
// selectors against fc and dispatching columnsMatchMetadata/fields
// handlers for nodes whose selectors all pass. record is mutated in
// place: a satisfied node's path is set true.
func ApplyRules(schema *dsschema.Tree, schemaOrg *dsschema.Tree, fc *FileScope, record map[string]bool, col *issues.Collector) {
	root, ok := schema.Get("")
	if !ok {
		return
	}
	applyRulesAt(schema, schemaOrg, "", root, fc, record, col)
}

func applyRulesAt(schema *dsschema.Tree, schemaOrg *dsschema.Tree, path string, node interface{}, fc *FileScope, record map[string]bool, col *issues.Collector) {
	m, ok := node.(map[string]interface{})
	if !ok {
		return
	}

	if rawSelectors, ok := m["selectors"].([]interface{}); ok {
		if allSelectorsPass(rawSelectors, fc) {
			record[path] = true
			dispatch(m, schemaOrg, fc, col, path)
		}
	}

	for key, val := range m {
		child, ok := val.(map[string]interface{})
		if !ok {
			continue
		}
		childPath := key
		if path != "" {
			childPath = path + "." + key
		}
		applyRulesAt(schema, schemaOrg, childPath, child, fc, record, col)
	}
}

func allSelectorsPass(raw []interface{}, fc *FileScope) bool {
	scope := fc.scope()
	for _, s := range raw {
		text, ok := s.(string)
		if !ok {
			return false
		}
		compiled, err := expr.Compile(text)
		if err != nil {
			logger.Debug("selector compile failed, treating as false", logger.String("selector", text), logger.Err(err))
			return false
		}
		ok2, err := compiled.Eval(scope)
		if err != nil {
			logger.Debug("selector eval failed, treating as false", logger.String("selector", text), logger.Err(err))
			return false
		}
		if !ok2 {
			return false
		}
	}
	return true
}

func dispatch(node map[string]interface{}, schemaOrg *dsschema.Tree, fc *FileScope, col *issues.Collector, path string) {
	if cols, ok := node["columnsMatchMetadata"].(bool); ok && cols {
		columnsMatchMetadata(fc, schemaOrg, col, path)
	}
	if fields, ok := node["fields"].(map[string]interface{}); ok {
		applyFieldRequirements(fields, fc, col, path)
	}
}

// columnsMatchMetadata checks that a CSV file's header row only contains
// columns declared in its metadata's variableMeasured.
func columnsMatchMetadata(fc *FileScope, schemaOrg *dsschema.Tree, col *issues.Collector, path string) {
	if fc.Extension != ".csv" || fc.Columns == nil {
		return
	}

	validSet := make(map[string]struct{}, len(fc.ValidColumns))
	for _, v := range fc.ValidColumns {
		validSet[v] = struct{}{}
	}

	var missing []string
	for _, header := range fc.Columns.Headers {
		if _, ok := validSet[header]; !ok {
			missing = append(missing, header)
		}
	}
	if len(missing) > 0 {
		col.Add("CsvColumnMissing", issues.SeverityWarning,
			"CSV column is not declared in variableMeasured",
			issues.File{Path: fc.Path, Name: fc.Name, Evidence: fmt.Sprintf("%s (schema path: %s)", strings.Join(missing, ", "), path)},
			nil, "")
	}

	ValidateSchemaOrgStructure(fc, schemaOrg, col)
}

// applyFieldRequirements checks a rule node's declared fields for presence
// in the file's expanded metadata, honoring each field's severity.
func applyFieldRequirements(fields map[string]interface{}, fc *FileScope, col *issues.Collector, path string) {
	var missingNames []string
	for name, requirement := range fields {
		severity := getFieldSeverity(requirement, fc.Sidecar)
		if severity == "ignore" {
			continue
		}
		iri := "http://schema.org/" + name
		if _, present := fc.ExpandedSidecar[iri]; present {
			continue
		}

		if obj, ok := requirement.(map[string]interface{}); ok {
			if issueSpec, ok := obj["issue"].(map[string]interface{}); ok {
				key, _ := issueSpec["key"].(string)
				reason, _ := issueSpec["reason"].(string)
				if key != "" {
					col.Add(key, issues.Severity(severity), reason,
						issues.File{Path: fc.Path, Name: fc.Name, Evidence: name}, nil, "")
					continue
				}
			}
		}
		missingNames = append(missingNames, name)
	}

	if len(missingNames) > 0 {
		sort.Strings(missingNames)
		col.Add("JsonKeyRequired", issues.SeverityError,
			"required schema.org field missing from metadata",
			issues.File{Path: fc.Path, Name: fc.Name, Evidence: fmt.Sprintf("%s (schema path: %s)", strings.Join(missingNames, ", "), path)},
			nil, "")
	}
}

var addendumPattern = regexp.MustCompile("^(required|recommended) if `?([A-Za-z0-9_.]+)`? is `?\"?([^`\"]+?)\"?`?$")

// getFieldSeverity resolves a field's requirement level, applying a
// level_addendum override when the sidecar's referenced key matches.
func getFieldSeverity(requirement interface{}, sidecar map[string]interface{}) string {
	switch req := requirement.(type) {
	case string:
		return severityForWord(req)
	case map[string]interface{}:
		base := "ignore"
		if lvl, ok := req["level"].(string); ok {
			base = severityForWord(lvl)
		}
		if addendum, ok := req["level_addendum"].(string); ok {
			if m := addendumPattern.FindStringSubmatch(addendum); m != nil {
				word, key, value := m[1], m[2], m[3]
				if sidecar != nil {
					if actual, ok := sidecar[key]; ok {
						if fmt.Sprintf("%v", actual) == value {
							base = severityForWord(word)
						}
					}
				}
			}
		}
		return base
	default:
		return "ignore"
	}
}

func severityForWord(word string) string {
	if word == "required" {
		return "error"
	}
	return "ignore"
}
