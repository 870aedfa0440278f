package platform

import (
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
)

func TestTextStripsUTF8BOM(t *testing.T) {
	fs := memfs.New()
	content := append(append([]byte{}, utf8BOM...), []byte(`{"a":1}`)...)
	if err := util.WriteFile(fs, "dataset_description.json", content, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	f, err := NewFile(fs, "dataset_description.json", "dataset_description.json")
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}

	text, err := f.Text()
	if err != nil {
		t.Fatalf("Text: %v", err)
	}
	if text != `{"a":1}` {
		t.Errorf("Text = %q, want BOM stripped", text)
	}
}

func TestTextRejectsUTF16(t *testing.T) {
	fs := memfs.New()
	// UTF-16LE BOM followed by content; 0xFF is never a valid UTF-8 lead byte.
	content := []byte{0xFF, 0xFE, 0x7B, 0x00, 0x7D, 0x00}
	if err := util.WriteFile(fs, "bad.json", content, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	f, err := NewFile(fs, "bad.json", "bad.json")
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}

	_, err = f.Text()
	if err != ErrUnicodeDecode {
		t.Fatalf("Text error = %v, want ErrUnicodeDecode", err)
	}
}

func TestTextPlainContent(t *testing.T) {
	fs := memfs.New()
	if err := util.WriteFile(fs, "data.csv", []byte("a,b\n1,2\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	f, err := NewFile(fs, "data.csv", "data.csv")
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}
	text, err := f.Text()
	if err != nil {
		t.Fatalf("Text: %v", err)
	}
	if text != "a,b\n1,2\n" {
		t.Errorf("Text = %q", text)
	}
	if f.Size != 8 {
		t.Errorf("Size = %d, want 8", f.Size)
	}
}
