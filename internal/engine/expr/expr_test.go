package expr

import "testing"

func mustEval(t *testing.T, src string, scope map[string]interface{}) bool {
	t.Helper()
	e, err := Compile(src)
	if err != nil {
		t.Fatalf("Compile(%q): %v", src, err)
	}
	v, err := e.Eval(scope)
	if err != nil {
		t.Fatalf("Eval(%q): %v", src, err)
	}
	return v
}

func TestEqualityOnStrings(t *testing.T) {
	scope := map[string]interface{}{"extension": ".csv"}
	if !mustEval(t, `extension == ".csv"`, scope) {
		t.Error("expected extension == \".csv\" to be true")
	}
	if mustEval(t, `extension == ".json"`, scope) {
		t.Error("expected extension == \".json\" to be false")
	}
}

func TestDottedPathLookup(t *testing.T) {
	scope := map[string]interface{}{
		"sidecar": map[string]interface{}{"study": "bfi"},
	}
	if !mustEval(t, `sidecar.study == "bfi"`, scope) {
		t.Error("expected nested sidecar.study lookup to equal bfi")
	}
}

func TestLogicalAnd(t *testing.T) {
	scope := map[string]interface{}{"extension": ".csv", "suffix": "data"}
	if !mustEval(t, `extension == ".csv" && suffix == "data"`, scope) {
		t.Error("expected conjunction to hold")
	}
	if mustEval(t, `extension == ".csv" && suffix == "events"`, scope) {
		t.Error("expected conjunction to fail")
	}
}

func TestLogicalOr(t *testing.T) {
	scope := map[string]interface{}{"extension": ".tsv"}
	if !mustEval(t, `extension == ".csv" || extension == ".tsv"`, scope) {
		t.Error("expected disjunction to hold")
	}
}

func TestNegation(t *testing.T) {
	scope := map[string]interface{}{"extension": ".tsv"}
	if !mustEval(t, `!(extension == ".csv")`, scope) {
		t.Error("expected negated comparison to hold")
	}
}

func TestMissingPathIsFalsy(t *testing.T) {
	scope := map[string]interface{}{}
	if mustEval(t, `sidecar.study == "bfi"`, scope) {
		t.Error("expected missing path comparison to be false")
	}
}

func TestCompileCachesByText(t *testing.T) {
	e1, err := Compile(`extension == ".csv"`)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	e2, err := Compile(`extension == ".csv"`)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if e1 != e2 {
		t.Error("expected identical expression text to return the cached pointer")
	}
}

func TestCompileErrorIsCached(t *testing.T) {
	_, err1 := Compile(`extension ==`)
	if err1 == nil {
		t.Fatal("expected parse error for incomplete expression")
	}
	_, err2 := Compile(`extension ==`)
	if err2 == nil {
		t.Fatal("expected cached parse error to still be returned")
	}
}

func TestGroupingParentheses(t *testing.T) {
	scope := map[string]interface{}{"a": 1.0, "b": 2.0}
	if !mustEval(t, `(a < b) && (b > a)`, scope) {
		t.Error("expected grouped relational expression to hold")
	}
}
