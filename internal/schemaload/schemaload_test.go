package schemaload

import "testing"

func TestLoadFallsBackToBundledOnNetworkError(t *testing.T) {
	fetcher := NewMockHTTPFetcher()
	fetcher.AddError(schemaURL("1.0.0", "schema.json"), errConnRefused)

	result, err := Load("1.0.0", fetcher)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !result.FromBundled {
		t.Error("expected fallback to bundled schema")
	}
	if _, ok := result.Schema.GetMap("rules.files"); !ok {
		t.Error("expected bundled schema to expose rules.files")
	}
}

func TestLoadFallsBackOnMalformedJSON(t *testing.T) {
	fetcher := NewMockHTTPFetcher()
	fetcher.AddResponse(schemaURL("1.0.0", "schema.json"), 200, "{not json")
	fetcher.AddResponse(schemaURL("1.0.0", "schemaorg.json"), 200, `{"classes": {}}`)

	result, err := Load("1.0.0", fetcher)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !result.FromBundled {
		t.Error("expected fallback on malformed schema.json")
	}
}

func TestLoadRejectsArrayTopLevel(t *testing.T) {
	fetcher := NewMockHTTPFetcher()
	fetcher.AddResponse(schemaURL("1.0.0", "schema.json"), 200, `[1,2,3]`)
	fetcher.AddResponse(schemaURL("1.0.0", "schemaorg.json"), 200, `{"classes": {}}`)

	result, err := Load("1.0.0", fetcher)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !result.FromBundled {
		t.Error("expected fallback when schema.json meta-schema check fails (array, not object)")
	}
}

func TestLoadSucceedsWithValidRemoteDocuments(t *testing.T) {
	fetcher := NewMockHTTPFetcher()
	fetcher.AddResponse(schemaURL("1.0.0", "schema.json"), 200, `{"rules": {"files": {}}}`)
	fetcher.AddResponse(schemaURL("1.0.0", "schemaorg.json"), 200, `{"classes": {}}`)

	result, err := Load("1.0.0", fetcher)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if result.FromBundled {
		t.Error("expected a live result, not the bundled fallback")
	}
	if result.Version != "1.0.0" {
		t.Errorf("Version = %q, want 1.0.0", result.Version)
	}
}

func TestLoadRejectsMalformedVersionString(t *testing.T) {
	fetcher := NewMockHTTPFetcher()
	result, err := Load("not-a-version", fetcher)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !result.FromBundled {
		t.Error("expected fallback for a malformed version string")
	}
}

type connRefusedError struct{}

func (connRefusedError) Error() string { return "connection refused" }

var errConnRefused = connRefusedError{}
