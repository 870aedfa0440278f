package engine

import (
	"strings"

	"github.com/psych-ds/psychds-validator/internal/dsschema"
	"github.com/psych-ds/psychds-validator/internal/issues"
	"github.com/psych-ds/psychds-validator/internal/jsonld"
)

const schemaOrgNS = "http://schema.org/"

type schemaOrgFindings struct {
	termIssues       []string // prop names not in the enclosing type's slot set
	typeIssues       []string // values whose @type is outside the allowed range
	typeMissing      []string // object values with no terminal form and no @type
	unknownNamespace []string // keys outside the schema.org namespace
}

// ValidateSchemaOrgStructure walks fc.ExpandedSidecar against schemaOrg's
// slot/class model.
func ValidateSchemaOrgStructure(fc *FileScope, schemaOrg *dsschema.Tree, col *issues.Collector) {
	node := fc.ExpandedSidecar
	if len(node) == 0 {
		return
	}

	types, hasType := node["@type"]
	if !hasType || len(types) == 0 {
		col.Add("MissingDatasetType", issues.SeverityError, "metadata document has no @type",
			issues.File{Path: fc.Path, Name: fc.Name}, nil, "")
		return
	}
	rootType, _ := jsonld.ValueString(types[0])
	if rootType != schemaOrgNS+"Dataset" {
		col.Add("IncorrectDatasetType", issues.SeverityError,
			"root @type must be schema.org Dataset",
			issues.File{Path: fc.Path, Name: fc.Name, Evidence: rootType}, nil, "")
		return
	}

	f := &schemaOrgFindings{}
	walkSchemaOrgNode(schemaOrg, node, strippedType(rootType), f)

	attribute := func(key, evidence string) issues.File {
		path := fc.Path
		name := fc.Name
		if src, ok := fc.Provenance[key]; ok {
			path = src
		}
		return issues.File{Path: path, Name: name, Evidence: evidence}
	}

	if len(f.termIssues) > 0 {
		col.Add("InvalidSchemaorgProperty", issues.SeverityError,
			"property is not declared on its enclosing schema.org type",
			attribute(f.termIssues[0], strings.Join(f.termIssues, ", ")), nil, "")
	}
	if len(f.typeIssues) > 0 {
		col.Add("InvalidObjectType", issues.SeverityError,
			"object @type is outside the property's declared range",
			attribute(f.typeIssues[0], strings.Join(f.typeIssues, ", ")), nil, "")
	}
	if len(f.typeMissing) > 0 {
		col.Add("ObjectTypeMissing", issues.SeverityError,
			"nested object has no @type and is not a terminal value",
			attribute(f.typeMissing[0], strings.Join(f.typeMissing, ", ")), nil, "")
	}
	if len(f.unknownNamespace) > 0 {
		col.Add("UnknownNamespace", issues.SeverityWarning,
			"property key is outside the schema.org namespace",
			attribute(f.unknownNamespace[0], strings.Join(f.unknownNamespace, ", ")), nil, "")
	}
}

func strippedType(iri string) string {
	return strings.TrimPrefix(iri, schemaOrgNS)
}

func walkSchemaOrgNode(schemaOrg *dsschema.Tree, node jsonld.Node, enclosingType string, f *schemaOrgFindings) {
	slotSet := transitiveSlots(schemaOrg, enclosingType, map[string]struct{}{})

	for key, values := range node {
		if key == "@type" || key == "@id" {
			continue
		}
		if !strings.HasPrefix(key, schemaOrgNS) {
			f.unknownNamespace = append(f.unknownNamespace, key)
			continue
		}
		prop := strings.TrimPrefix(key, schemaOrgNS)

		if _, ok := slotSet[prop]; !ok {
			f.termIssues = append(f.termIssues, prop)
			continue
		}

		ranges := propertyRanges(schemaOrg, prop)

		for _, v := range values {
			switch val := v.(type) {
			case map[string]interface{}:
				// {"@id": ...} or {"@value": ...} terminal forms.
				if isTerminalValueObject(val) {
					continue
				}
				f.typeMissing = append(f.typeMissing, prop)
			case jsonld.Node:
				typeVals, hasType := val["@type"]
				if !hasType || len(typeVals) == 0 {
					f.typeMissing = append(f.typeMissing, prop)
					continue
				}
				valType, _ := jsonld.ValueString(typeVals[0])
				stripped := strippedType(valType)
				if !rangeAllows(ranges, stripped) {
					f.typeIssues = append(f.typeIssues, prop)
					continue
				}
				walkSchemaOrgNode(schemaOrg, jsonld.Node(val), stripped, f)
			}
		}
	}
}

func isTerminalValueObject(m map[string]interface{}) bool {
	if len(m) != 1 {
		return false
	}
	_, hasID := m["@id"]
	_, hasValue := m["@value"]
	return hasID || hasValue
}

func rangeAllows(ranges map[string]struct{}, typeName string) bool {
	if typeName == "Text" || typeName == "URL" {
		return true
	}
	_, ok := ranges[typeName]
	return ok
}

// propertyRanges collects the declared range for prop plus the union of
// any_of[i].range, each extended with its transitive subclasses.
func propertyRanges(schemaOrg *dsschema.Tree, prop string) map[string]struct{} {
	out := make(map[string]struct{})

	addRange := func(typeName string) {
		out[typeName] = struct{}{}
		for _, sub := range transitiveSubclasses(schemaOrg, typeName) {
			out[sub] = struct{}{}
		}
	}

	if r, ok := schemaOrg.GetString("slots." + prop + ".range"); ok {
		addRange(r)
	}
	if anyOf, ok := schemaOrg.GetSlice("slots." + prop + ".any_of"); ok {
		for i := range anyOf {
			if r, ok := schemaOrg.GetString("slots." + prop + ".any_of." + itoa(i) + ".range"); ok {
				addRange(r)
			}
		}
	}
	return out
}

// transitiveSubclasses returns every class Y where schemaOrg.classes.Y.is_a
// chains (directly or transitively) to typeName.
func transitiveSubclasses(schemaOrg *dsschema.Tree, typeName string) []string {
	classes, ok := schemaOrg.GetMap("classes")
	if !ok {
		return nil
	}
	var out []string
	for name := range classes {
		if isSubclassOf(schemaOrg, name, typeName, map[string]struct{}{}) {
			out = append(out, name)
		}
	}
	return out
}

func isSubclassOf(schemaOrg *dsschema.Tree, name, target string, seen map[string]struct{}) bool {
	if name == target {
		return false
	}
	if _, ok := seen[name]; ok {
		return false
	}
	seen[name] = struct{}{}

	parent, ok := schemaOrg.GetString("classes." + name + ".is_a")
	if !ok {
		return false
	}
	if parent == target {
		return true
	}
	return isSubclassOf(schemaOrg, parent, target, seen)
}

// transitiveSlots returns the union of `slots` declared across typeName's
// transitive superclass chain (schemaOrg.classes.<type>.is_a).
func transitiveSlots(schemaOrg *dsschema.Tree, typeName string, seen map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{})
	collectSlots(schemaOrg, typeName, out, seen)
	return out
}

func collectSlots(schemaOrg *dsschema.Tree, typeName string, out, seen map[string]struct{}) {
	if _, ok := seen[typeName]; ok {
		return
	}
	seen[typeName] = struct{}{}

	if slots, ok := schemaOrg.GetSlice("classes." + typeName + ".slots"); ok {
		for _, s := range slots {
			if name, ok := s.(string); ok {
				out[name] = struct{}{}
			}
		}
	}
	if parent, ok := schemaOrg.GetString("classes." + typeName + ".is_a"); ok {
		collectSlots(schemaOrg, parent, out, seen)
	}
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	digits := []byte{}
	n := i
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}
