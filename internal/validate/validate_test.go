package validate

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/psych-ds/psychds-validator/internal/events"
	"github.com/psych-ds/psychds-validator/internal/issues"
	"github.com/psych-ds/psychds-validator/internal/schemaload"
)

// writeDataset materializes files (relative path -> content) under a fresh
// temp directory and returns its root.
func writeDataset(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		full := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatalf("setup MkdirAll: %v", err)
		}
		if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
			t.Fatalf("setup WriteFile(%s): %v", rel, err)
		}
	}
	return root
}

const validDatasetDescription = `{
	"@context": {"@vocab": "https://schema.org/"},
	"@type": "Dataset",
	"name": "bfi-dataset",
	"schemaVersion": "1.0.0"
}`

func runValidate(t *testing.T, datasetPath string) *ValidationResult {
	t.Helper()
	result, err := Validate(context.Background(), Options{DatasetPath: datasetPath, Schema: "latest"},
		schemaload.NewMockHTTPFetcher(), nil)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	return result
}

func findEntry(result *ValidationResult, key string) bool {
	for _, e := range result.Errors {
		if e.Key == key {
			return true
		}
	}
	for _, e := range result.Warnings {
		if e.Key == key {
			return true
		}
	}
	return false
}

func findIssueEntry(result *ValidationResult, key string) *issues.Entry {
	for _, e := range result.Errors {
		if e.Key == key {
			return e
		}
	}
	for _, e := range result.Warnings {
		if e.Key == key {
			return e
		}
	}
	return nil
}

func TestValidateFlagsEmptyAndUnmatchedFiles(t *testing.T) {
	root := writeDataset(t, map[string]string{
		"dataset_description.json": validDatasetDescription,
		"notes.txt":                "",
	})

	result := runValidate(t, root)

	if !result.Valid {
		t.Fatalf("expected a valid result, got errors: %+v", result.Errors)
	}
	if !findEntry(result, "FileEmpty") {
		t.Error("expected FileEmpty warning for the zero-byte file")
	}
	if !findEntry(result, "FileNotChecked") {
		t.Error("expected FileNotChecked warning for notes.txt")
	}
}

func TestValidateDetectsMisplacedDatasetDescription(t *testing.T) {
	root := writeDataset(t, map[string]string{
		"sub/dataset_description.json": validDatasetDescription,
	})

	result := runValidate(t, root)

	if result.Valid {
		t.Fatal("expected the misplaced dataset_description.json to invalidate the run")
	}
	if !findEntry(result, "WrongMetadataLocation") {
		t.Error("expected a WrongMetadataLocation error")
	}
}

func TestValidateRequiredFieldMissingProducesError(t *testing.T) {
	root := writeDataset(t, map[string]string{
		"dataset_description.json": `{
			"@context": {"@vocab": "https://schema.org/"},
			"@type": "Dataset",
			"schemaVersion": "1.0.0"
		}`,
	})

	result := runValidate(t, root)

	if result.Valid {
		t.Fatal("expected the missing required \"name\" field to invalidate the run")
	}
	if !findEntry(result, "JsonKeyRequired") {
		t.Error("expected a JsonKeyRequired error")
	}
}

func TestValidateCsvColumnNotDeclaredProducesWarning(t *testing.T) {
	root := writeDataset(t, map[string]string{
		"dataset_description.json": validDatasetDescription,
		"data/bfi_data.csv":        "age,rt,extra\n22,345,9\n",
		"data/bfi_data.json": `{
			"@type": "Dataset",
			"variableMeasured": [
				{"@type": "PropertyValue", "name": "age"},
				"rt"
			]
		}`,
	})

	result := runValidate(t, root)

	if !result.Valid {
		t.Fatalf("expected a valid result (column mismatch is only a warning), got errors: %+v", result.Errors)
	}
	if !findEntry(result, "CsvColumnMissing") {
		t.Error("expected a CsvColumnMissing warning for the undeclared \"extra\" column")
	}
}

func TestValidateFallsBackToBundledSchemaWhenFetchFails(t *testing.T) {
	root := writeDataset(t, map[string]string{
		"dataset_description.json": validDatasetDescription,
	})

	result, err := Validate(context.Background(), Options{DatasetPath: root, Schema: "1.0.0"},
		schemaload.NewMockHTTPFetcher(), nil)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if result.SchemaVersion != "bundled" {
		t.Errorf("SchemaVersion = %q, want %q after an unreachable schema host", result.SchemaVersion, "bundled")
	}
}

func TestValidateHonorsPsychdsignore(t *testing.T) {
	root := writeDataset(t, map[string]string{
		"dataset_description.json": validDatasetDescription,
		".psychdsignore":           "junk/\n",
		"junk/leftover.txt":        "",
	})

	result := runValidate(t, root)

	for _, e := range result.Warnings {
		for _, f := range e.Files() {
			if f.Path == "junk/leftover.txt" {
				t.Errorf("expected junk/leftover.txt to be ignored, found issue %q against it", e.Key)
			}
		}
	}
}

func TestValidateHonorsIgnoreExtras(t *testing.T) {
	root := writeDataset(t, map[string]string{
		"dataset_description.json": validDatasetDescription,
		"scratch/notes.txt":        "",
	})

	result, err := Validate(context.Background(), Options{
		DatasetPath:  root,
		Schema:       "latest",
		IgnoreExtras: []string{"scratch/"},
	}, schemaload.NewMockHTTPFetcher(), nil)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}

	for _, f := range result.FilesChecked {
		if f == "scratch/notes.txt" {
			t.Errorf("expected scratch/notes.txt to be excluded by IgnoreExtras, found in FilesChecked: %v", result.FilesChecked)
		}
	}
}

func TestValidateFilesCheckedListsNonIgnoredPaths(t *testing.T) {
	root := writeDataset(t, map[string]string{
		"dataset_description.json": validDatasetDescription,
		"notes.txt":                "hello",
	})

	result := runValidate(t, root)

	want := map[string]bool{"dataset_description.json": true, "notes.txt": true}
	if len(result.FilesChecked) != len(want) {
		t.Fatalf("FilesChecked = %v, want exactly %v", result.FilesChecked, want)
	}
	for _, f := range result.FilesChecked {
		if !want[f] {
			t.Errorf("unexpected file in FilesChecked: %q", f)
		}
	}
}

func TestValidateCsvNoHeaderProducesIssue(t *testing.T) {
	root := writeDataset(t, map[string]string{
		"dataset_description.json": validDatasetDescription,
		"data/bfi_data.csv":        "\nage,rt\n22,345\n",
		"data/bfi_data.json":       `{"@type": "Dataset", "variableMeasured": ["age", "rt"]}`,
	})

	result := runValidate(t, root)

	if !findEntry(result, "NoHeader") {
		t.Error("expected a NoHeader issue for a CSV file beginning with a blank line")
	}
}

func TestValidateCsvHeaderRowMismatchProducesIssue(t *testing.T) {
	root := writeDataset(t, map[string]string{
		"dataset_description.json": validDatasetDescription,
		"data/bfi_data.csv":        "age,rt\n22,345\n22\n",
		"data/bfi_data.json":       `{"@type": "Dataset", "variableMeasured": ["age", "rt"]}`,
	})

	result := runValidate(t, root)

	entry := findIssueEntry(result, "HeaderRowMismatch")
	if entry == nil {
		t.Fatal("expected a HeaderRowMismatch issue for the ragged row")
	}
	want := "Row 3 has 1 columns, expected 2"
	if entry.Reason != want {
		t.Errorf("Reason = %q, want %q", entry.Reason, want)
	}
}

func TestValidateCsvDuplicateRowIDProducesIssue(t *testing.T) {
	root := writeDataset(t, map[string]string{
		"dataset_description.json": validDatasetDescription,
		"data/bfi_data.csv":        "row_id,age\n1,22\n1,31\n",
		"data/bfi_data.json":       `{"@type": "Dataset", "variableMeasured": ["age"]}`,
	})

	result := runValidate(t, root)

	if !findEntry(result, "RowidValuesNotUnique") {
		t.Error("expected a RowidValuesNotUnique issue for the duplicate row_id value")
	}
}

func TestValidateMissingDatasetDescriptionProducesIssue(t *testing.T) {
	root := writeDataset(t, map[string]string{
		"notes.txt": "hello",
	})

	result := runValidate(t, root)

	if result.Valid {
		t.Fatal("expected a missing dataset_description.json to invalidate the run")
	}
	if !findEntry(result, "MissingDatasetDescription") {
		t.Error("expected a MissingDatasetDescription error")
	}
}

func TestValidateVariableMissingFromCsvColumnsProducesWarning(t *testing.T) {
	root := writeDataset(t, map[string]string{
		"dataset_description.json": validDatasetDescription,
		"data/bfi_data.csv":        "rt\n345\n",
		"data/bfi_data.json": `{
			"@type": "Dataset",
			"variableMeasured": [
				{"@type": "PropertyValue", "name": "age"},
				"rt"
			]
		}`,
	})

	result := runValidate(t, root)

	entry := findIssueEntry(result, "VariableMissingFromCsvColumns")
	if entry == nil {
		t.Fatal("expected a VariableMissingFromCsvColumns warning")
	}
	files := entry.Files()
	if len(files) != 1 || files[0].Evidence != "age" {
		t.Errorf("evidence = %+v, want a single file with evidence \"age\"", files)
	}
}

func TestValidateEmitterNeverBlocksWhenUndrained(t *testing.T) {
	root := writeDataset(t, map[string]string{
		"dataset_description.json": validDatasetDescription,
		"data/bfi_data.csv":        "age\n22\n",
		"data/bfi_data.json":       `{"@type": "Dataset", "variableMeasured": ["age"]}`,
	})

	emitter := events.NewEmitter(1)
	if _, err := Validate(context.Background(), Options{DatasetPath: root, Schema: "latest"},
		schemaload.NewMockHTTPFetcher(), emitter); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}
