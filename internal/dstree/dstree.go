// Package dstree builds the immutable, in-memory representation of a
// Psych-DS dataset's filesystem. A single recursive top-down scan
// materializes every file's text, normalizes the
// schema.org namespace, parses and JSON-LD-expands every ".json" file,
// and discovers ".psychdsignore" files along the way.
package dstree

import (
	"encoding/json"
	"path"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5"

	"github.com/psych-ds/psychds-validator/internal/jsonld"
	"github.com/psych-ds/psychds-validator/internal/platform"
	"github.com/psych-ds/psychds-validator/pkg/ignore"
)

// DeferredKind names the file-level issues discovered while building the
// tree, to be replayed by the orchestrator against the shared issues
// collector once per-file context exists to attribute them correctly.
type DeferredKind string

const (
	InvalidJSONFormatting DeferredKind = "InvalidJsonFormatting"
	InvalidJSONLDSyntax   DeferredKind = "InvalidJsonldSyntax"
	UnicodeDecodeIssue    DeferredKind = "UnicodeDecode"
)

// DeferredIssue is one issue discovered at tree-build time, before a
// per-file validation context exists to record it against the shared
// collector directly.
type DeferredIssue struct {
	Kind     DeferredKind
	Evidence string
}

// File is one leaf of the tree.
type File struct {
	Path string // dataset-root relative, slash-separated
	Name string
	Size int64

	Text string

	// Parsed is the raw decoded JSON document, nil for non-JSON files or
	// files that failed to parse.
	Parsed map[string]interface{}
	// Expanded is the JSON-LD expansion of Parsed, nil on failure or for
	// non-JSON files.
	Expanded jsonld.Node

	Deferred []DeferredIssue
}

// IsJSON reports whether the file's name ends in ".json".
func (f *File) IsJSON() bool {
	return strings.HasSuffix(f.Name, ".json")
}

// Tree is one directory node: an ordered list of files and an ordered
// list of child directories.
type Tree struct {
	Path string // "" for the dataset root
	Name string
	Files []*File
	Dirs  []*Tree
}

// RootDescriptor returns the root's dataset_description.json File, if
// present.
func (t *Tree) RootDescriptor() *File {
	for _, f := range t.Files {
		if f.Name == "dataset_description.json" {
			return f
		}
	}
	return nil
}

// Walk invokes fn for every file in the tree, depth-first, in the same
// top-down order the tree was built in.
func (t *Tree) Walk(fn func(*File)) {
	for _, f := range t.Files {
		fn(f)
	}
	for _, d := range t.Dirs {
		d.Walk(fn)
	}
}

// WalkDirs invokes fn for every directory in the tree including the root.
func (t *Tree) WalkDirs(fn func(*Tree)) {
	fn(t)
	for _, d := range t.Dirs {
		d.WalkDirs(fn)
	}
}

// Build performs a single recursive scan of the tree. ig accumulates
// any ".psychdsignore" patterns discovered along the way;
// it is shared with, and mutated for, the caller's subsequent ignore
// decisions.
func Build(fs billy.Filesystem, ig *ignore.Matcher) (*Tree, error) {
	rootContext, err := peekRootContext(fs)
	if err != nil {
		return nil, err
	}
	return buildDir(fs, ig, "", rootContext)
}

// peekRootContext reads /dataset_description.json (if present) just far
// enough to capture its raw "@context" value, ahead of the general walk
// that re-injects it into every context-less JSON file.
func peekRootContext(fs billy.Filesystem) (interface{}, error) {
	info, err := fs.Stat("dataset_description.json")
	if err != nil || info.IsDir() {
		return nil, nil
	}
	f, err := platform.NewFile(fs, "dataset_description.json", "dataset_description.json")
	if err != nil {
		return nil, nil
	}
	text, err := f.Text()
	if err != nil {
		return nil, nil
	}
	text = normalizeSchemaOrgText(text)

	var doc map[string]interface{}
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		return nil, nil
	}
	return doc["@context"], nil
}

func buildDir(fs billy.Filesystem, ig *ignore.Matcher, relDir string, rootContext interface{}) (*Tree, error) {
	entries, err := fs.ReadDir(dirPathFor(relDir))
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	node := &Tree{Path: relDir, Name: path.Base(relDir)}

	for _, entry := range entries {
		childRel := joinRel(relDir, entry.Name())

		if entry.IsDir() {
			child, err := buildDir(fs, ig, childRel, rootContext)
			if err != nil {
				return nil, err
			}
			node.Dirs = append(node.Dirs, child)
			continue
		}

		file, err := buildFile(fs, childRel, entry.Name(), entry.Size(), rootContext)
		if err != nil {
			return nil, err
		}
		node.Files = append(node.Files, file)

		if entry.Name() == ".psychdsignore" {
			ig.AddPatternFile(relDir, ignore.ParsePsychDSIgnore(file.Text))
		}
	}

	return node, nil
}

func buildFile(fs billy.Filesystem, relPath, name string, size int64, rootContext interface{}) (*File, error) {
	f := &File{Path: relPath, Name: name, Size: size}

	pf, err := platform.NewFile(fs, relPath, name)
	if err != nil {
		return nil, err
	}

	text, err := pf.Text()
	if err != nil {
		f.Deferred = append(f.Deferred, DeferredIssue{Kind: UnicodeDecodeIssue, Evidence: err.Error()})
		return f, nil
	}
	f.Text = normalizeSchemaOrgText(text)
	f.Size = size

	if !f.IsJSON() {
		return f, nil
	}

	var doc map[string]interface{}
	if err := json.Unmarshal([]byte(f.Text), &doc); err != nil {
		f.Deferred = append(f.Deferred, DeferredIssue{Kind: InvalidJSONFormatting, Evidence: err.Error()})
		return f, nil
	}
	f.Parsed = doc

	if _, has := doc["@context"]; !has && rootContext != nil {
		doc["@context"] = rootContext
	}

	ctx := jsonld.ParseContext(doc["@context"])
	expanded, err := jsonld.Expand(doc, ctx)
	if err != nil {
		evidence := err.Error()
		if ldErr, ok := err.(*jsonld.Error); ok {
			evidence = ldErr.Detail
		}
		f.Deferred = append(f.Deferred, DeferredIssue{Kind: InvalidJSONLDSyntax, Evidence: evidence})
		return f, nil
	}
	f.Expanded = expanded

	return f, nil
}

// normalizeSchemaOrgText performs the fixed-string schema.org namespace
// substitutions required on every file's raw text.
func normalizeSchemaOrgText(text string) string {
	text = strings.ReplaceAll(text, "https://schema.org", "http://schema.org")
	text = strings.ReplaceAll(text, "https://www.schema.org", "http://www.schema.org")
	return text
}

func dirPathFor(relDir string) string {
	if relDir == "" {
		return "."
	}
	return relDir
}

func joinRel(dir, name string) string {
	if dir == "" {
		return name
	}
	return dir + "/" + name
}
