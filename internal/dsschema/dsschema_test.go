package dsschema

import "testing"

func sampleTree() *Tree {
	return New(map[string]interface{}{
		"rules": map[string]interface{}{
			"files": map[string]interface{}{
				"common": map[string]interface{}{
					"core": map[string]interface{}{
						"dataset_description": map[string]interface{}{
							"baseDir": "/",
							"stem":    "dataset_description",
						},
					},
				},
			},
		},
		"slots": map[string]interface{}{
			"name": map[string]interface{}{
				"range": []interface{}{"Text"},
			},
		},
	})
}

func TestGetResolvesNestedPath(t *testing.T) {
	tree := sampleTree()
	v, ok := tree.Get("rules.files.common.core.dataset_description.stem")
	if !ok {
		t.Fatal("expected path to resolve")
	}
	if v != "dataset_description" {
		t.Errorf("got %v, want dataset_description", v)
	}
}

func TestGetReturnsAbsentForMissingPath(t *testing.T) {
	tree := sampleTree()
	v, ok := tree.Get("rules.files.common.core.nonexistent")
	if ok {
		t.Fatal("expected path not to resolve")
	}
	if v != Absent {
		t.Errorf("expected Absent sentinel, got %v", v)
	}
}

func TestGetSliceIndexing(t *testing.T) {
	tree := sampleTree()
	v, ok := tree.GetString("slots.name.range.0")
	if !ok || v != "Text" {
		t.Errorf("got %q, ok=%v, want Text", v, ok)
	}
}

func TestGetMapAndString(t *testing.T) {
	tree := sampleTree()
	m, ok := tree.GetMap("rules.files.common.core.dataset_description")
	if !ok {
		t.Fatal("expected map to resolve")
	}
	if m["baseDir"] != "/" {
		t.Errorf("baseDir = %v, want /", m["baseDir"])
	}
}

func TestGetEmptyPathReturnsRoot(t *testing.T) {
	tree := sampleTree()
	v, ok := tree.Get("")
	if !ok {
		t.Fatal("expected empty path to resolve to root")
	}
	if _, ok := v.(map[string]interface{}); !ok {
		t.Errorf("expected root to be a map, got %T", v)
	}
}
