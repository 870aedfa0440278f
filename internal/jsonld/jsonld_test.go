package jsonld

import "testing"

func vocabContext() *context {
	return ParseContext(map[string]interface{}{"@vocab": "https://schema.org/"})
}

func TestExpandResolvesVocabTerms(t *testing.T) {
	doc := map[string]interface{}{
		"@type": "Dataset",
		"name":  "bfi-dataset",
	}

	node, err := Expand(doc, vocabContext())
	if err != nil {
		t.Fatalf("Expand failed: %v", err)
	}

	if len(node["@type"]) != 1 || node["@type"][0] != "http://schema.org/Dataset" {
		t.Errorf("@type = %v, want [http://schema.org/Dataset]", node["@type"])
	}

	name, ok := FirstString(node, "http://schema.org/name")
	if !ok || name != "bfi-dataset" {
		t.Errorf("name = %q, ok=%v, want bfi-dataset", name, ok)
	}
}

func TestExpandMissingType(t *testing.T) {
	doc := map[string]interface{}{"name": "bfi-dataset"}

	node, err := Expand(doc, vocabContext())
	if err != nil {
		t.Fatalf("Expand failed: %v", err)
	}
	if _, ok := node["@type"]; ok {
		t.Error("expected no @type key when absent from document")
	}
}

func TestExpandNestedObject(t *testing.T) {
	doc := map[string]interface{}{
		"@type": "Dataset",
		"variableMeasured": map[string]interface{}{
			"@type": "PropertyValue",
			"name":  "age",
		},
	}

	node, err := Expand(doc, vocabContext())
	if err != nil {
		t.Fatalf("Expand failed: %v", err)
	}

	values := node["http://schema.org/variableMeasured"]
	if len(values) != 1 {
		t.Fatalf("expected 1 variableMeasured value, got %d", len(values))
	}
	nested, ok := values[0].(Node)
	if !ok {
		t.Fatalf("expected nested Node, got %T", values[0])
	}
	name, ok := FirstString(nested, "http://schema.org/name")
	if !ok || name != "age" {
		t.Errorf("nested name = %q, ok=%v, want age", name, ok)
	}
}

func TestExpandArrayOfValues(t *testing.T) {
	doc := map[string]interface{}{
		"keywords": []interface{}{"a", "b"},
	}
	node, err := Expand(doc, vocabContext())
	if err != nil {
		t.Fatalf("Expand failed: %v", err)
	}
	if len(node["http://schema.org/keywords"]) != 2 {
		t.Errorf("expected 2 expanded keyword values, got %d", len(node["http://schema.org/keywords"]))
	}
}

func TestExpandRejectsMalformedType(t *testing.T) {
	doc := map[string]interface{}{"@type": 5}
	_, err := Expand(doc, vocabContext())
	if err == nil {
		t.Fatal("expected error for non-string @type")
	}
	ldErr, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *Error, got %T", err)
	}
	if ldErr.Detail == "" {
		t.Error("expected non-empty Detail for use as issue evidence")
	}
}

func TestParseContextNormalizesHTTPS(t *testing.T) {
	c := ParseContext(map[string]interface{}{"@vocab": "https://schema.org/"})
	if c.vocab != "http://schema.org/" {
		t.Errorf("vocab = %q, want http://schema.org/", c.vocab)
	}
}

func TestContextTermAlias(t *testing.T) {
	c := ParseContext(map[string]interface{}{
		"@vocab": "https://schema.org/",
		"bids":   "https://bids.neuroimaging.io/",
	})

	doc := map[string]interface{}{"bids": "some value"}
	node, err := Expand(doc, c)
	if err != nil {
		t.Fatalf("Expand failed: %v", err)
	}
	if _, ok := node["https://bids.neuroimaging.io/"]; !ok {
		t.Errorf("expected term alias to resolve, got keys %v", keysOf(node))
	}
}

func keysOf(n Node) []string {
	out := make([]string, 0, len(n))
	for k := range n {
		out = append(out, k)
	}
	return out
}
