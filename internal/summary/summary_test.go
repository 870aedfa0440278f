package summary

import "testing"

func TestAddFileAccumulatesTotals(t *testing.T) {
	s := New()
	s.AddFile(100, "tabular_data")
	s.AddFile(250, "tabular_data")
	s.AddFile(40, "")

	if s.TotalFiles != 3 {
		t.Errorf("TotalFiles = %d, want 3", s.TotalFiles)
	}
	if s.TotalBytes != 390 {
		t.Errorf("TotalBytes = %d, want 390", s.TotalBytes)
	}
	if s.DataTypes["tabular_data"] != 2 {
		t.Errorf("DataTypes[tabular_data] = %d, want 2", s.DataTypes["tabular_data"])
	}
}

func TestSuggestedColumnsSortedAndDroppable(t *testing.T) {
	s := New()
	s.SuggestColumns([]string{"rt", "accuracy", "subject_id"})
	s.DropSuggested("subject_id")

	got := s.SuggestedColumns()
	want := []string{"accuracy", "rt"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("SuggestedColumns()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSuggestColumnsDeduplicates(t *testing.T) {
	s := New()
	s.SuggestColumns([]string{"rt", "rt", "accuracy"})

	if len(s.SuggestedColumns()) != 2 {
		t.Errorf("expected 2 unique columns, got %d", len(s.SuggestedColumns()))
	}
}
