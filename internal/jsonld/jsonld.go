// Package jsonld implements the reduced JSON-LD expansion the validator
// needs: resolving compact terms against a dataset's @context (almost
// always a "@vocab": "https://schema.org/" mapping, occasionally term
// aliases) into fully-qualified schema.org property IRIs, the shape every
// downstream schema.org check operates on.
//
// This is not a general-purpose JSON-LD processor — no remote context
// dereferencing, no @graph/@reverse handling, no framing — only the
// subset of the expansion algorithm a Psych-DS sidecar actually exercises.
package jsonld

import (
	"fmt"
)

// Node is an expanded JSON-LD node: each property IRI (or "@type"/"@id")
// maps to its list of expanded value objects.
type Node map[string][]interface{}

// ValueObject wraps a literal value the way expanded JSON-LD does.
type ValueObject struct {
	Value interface{} `json:"@value"`
}

// Error is raised when a document cannot be expanded. Message is a
// two-part "stage: detail" diagnostic; Detail alone is suitable as issue
// evidence when surfaced as an issue.
type Error struct {
	Stage  string
	Detail string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Stage, e.Detail)
}

// context is the resolved form of a document's "@context" value.
type context struct {
	vocab string
	terms map[string]string // term -> full IRI or prefix target
}

// ParseContext resolves a raw @context value (string, object, or array of
// either) into a context usable by Expand. A bare string @context (a
// remote URL) is never fetched; it sets @vocab to http://schema.org/
// when no vocab has been set yet.
func ParseContext(raw interface{}) *context {
	c := &context{terms: make(map[string]string)}
	mergeContext(c, raw)
	return c
}

func mergeContext(c *context, raw interface{}) {
	switch v := raw.(type) {
	case string:
		// A bare string @context is a remote document reference; this
		// validator never dereferences the network for it, so schema.org's
		// own default vocab is assumed when nothing more specific exists.
		if c.vocab == "" {
			c.vocab = "http://schema.org/"
		}
	case []interface{}:
		for _, item := range v {
			mergeContext(c, item)
		}
	case map[string]interface{}:
		for key, val := range v {
			switch key {
			case "@vocab":
				if s, ok := val.(string); ok {
					c.vocab = normalizeSchemaOrg(s)
				}
			case "@base", "@language", "@version":
				// not needed for property-IRI resolution
			default:
				switch tv := val.(type) {
				case string:
					c.terms[key] = normalizeSchemaOrg(tv)
				case map[string]interface{}:
					if id, ok := tv["@id"].(string); ok {
						c.terms[key] = normalizeSchemaOrg(id)
					}
				}
			}
		}
	}
}

// normalizeSchemaOrg applies the same https→http substitution the tree
// reader performs on raw file text, so a context fetched or typed with
// the https form still resolves against the http-keyed schema document.
func normalizeSchemaOrg(s string) string {
	switch s {
	case "https://schema.org", "https://schema.org/":
		return "http://schema.org/"
	case "https://www.schema.org", "https://www.schema.org/":
		return "http://www.schema.org/"
	default:
		return s
	}
}

// resolve expands a compact term into a full IRI using the context's term
// table, falling back to @vocab, and leaving already-absolute IRIs (or
// keys with no vocabulary at all) untouched.
func (c *context) resolve(term string) string {
	if isIRI(term) {
		return term
	}
	if full, ok := c.terms[term]; ok {
		return full
	}
	if c.vocab != "" {
		return c.vocab + term
	}
	return term
}

func isIRI(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] == ':' {
			return i > 0
		}
		if s[i] == '/' || s[i] == ' ' {
			return false
		}
	}
	return false
}

// Expand performs a depth-first expansion of doc under ctx. An explicit
// "@context" key inside doc takes precedence over ctx for that subtree,
// the same inheritance rule JSON-LD's own algorithm uses. Nested nodes
// that declare no context of their own inherit the enclosing one.
func Expand(doc map[string]interface{}, ctx *context) (Node, error) {
	if ctx == nil {
		ctx = &context{terms: make(map[string]string)}
	}
	if raw, ok := doc["@context"]; ok {
		merged := &context{vocab: ctx.vocab, terms: cloneTerms(ctx.terms)}
		mergeContext(merged, raw)
		ctx = merged
	}

	node := Node{}
	for key, val := range doc {
		switch key {
		case "@context":
			continue
		case "@type":
			types, err := expandTypeValue(val, ctx)
			if err != nil {
				return nil, err
			}
			node["@type"] = types
		case "@id":
			s, ok := val.(string)
			if !ok {
				return nil, &Error{Stage: "expand", Detail: "@id must be a string"}
			}
			node["@id"] = []interface{}{s}
		default:
			iri := ctx.resolve(key)
			values, err := expandValue(val, ctx)
			if err != nil {
				return nil, err
			}
			node[iri] = append(node[iri], values...)
		}
	}
	return node, nil
}

func cloneTerms(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func expandTypeValue(val interface{}, ctx *context) ([]interface{}, error) {
	switch v := val.(type) {
	case string:
		return []interface{}{ctx.resolve(v)}, nil
	case []interface{}:
		out := make([]interface{}, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, &Error{Stage: "expand", Detail: "@type array element must be a string"}
			}
			out = append(out, ctx.resolve(s))
		}
		return out, nil
	default:
		return nil, &Error{Stage: "expand", Detail: "@type must be a string or array of strings"}
	}
}

// expandValue expands one property's raw JSON value into the list of
// value objects / nested nodes JSON-LD expansion produces for it.
func expandValue(val interface{}, ctx *context) ([]interface{}, error) {
	switch v := val.(type) {
	case nil:
		return nil, nil
	case []interface{}:
		var out []interface{}
		for _, item := range v {
			expanded, err := expandValue(item, ctx)
			if err != nil {
				return nil, err
			}
			out = append(out, expanded...)
		}
		return out, nil
	case map[string]interface{}:
		nested, err := Expand(v, ctx)
		if err != nil {
			return nil, err
		}
		return []interface{}{nested}, nil
	case string, float64, bool:
		return []interface{}{map[string]interface{}{"@value": v}}, nil
	default:
		return nil, &Error{Stage: "expand", Detail: fmt.Sprintf("unsupported value type %T", val)}
	}
}

// FirstString returns the first "@value" (or bare "@id") string found at
// node[key], the common "read the single literal" accessor used by the
// schema.org field checks.
func FirstString(node Node, key string) (string, bool) {
	values, ok := node[key]
	if !ok || len(values) == 0 {
		return "", false
	}
	return asString(values[0])
}

func asString(v interface{}) (string, bool) {
	return ValueString(v)
}

// ValueString extracts a literal string from one expanded value entry,
// whether it is a bare string, a {"@value": ...} object, or a {"@id": ...}
// reference.
func ValueString(v interface{}) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case map[string]interface{}:
		if s, ok := t["@value"].(string); ok {
			return s, true
		}
		if s, ok := t["@id"].(string); ok {
			return s, true
		}
	}
	return "", false
}
