// Package dscontext builds the dataset-wide and per-file validation
// contexts: the sidecar cascade and valid-column derivation.
package dscontext

import (
	"strings"

	"github.com/psych-ds/psychds-validator/internal/csvdata"
	"github.com/psych-ds/psychds-validator/internal/dstree"
	"github.com/psych-ds/psychds-validator/internal/filenameparse"
	"github.com/psych-ds/psychds-validator/internal/issues"
	"github.com/psych-ds/psychds-validator/internal/jsonld"
)

// Dataset holds the state built once per validation run.
type Dataset struct {
	RootFile     *dstree.File
	RootExpanded jsonld.Node
	BaseDirs     []string
}

// BuildDataset constructs the dataset context from the already-built
// tree: the root metadata file and the top-level subdirectory names.
func BuildDataset(tree *dstree.Tree) *Dataset {
	ds := &Dataset{RootFile: tree.RootDescriptor()}
	if ds.RootFile != nil {
		ds.RootExpanded = ds.RootFile.Expanded
	}
	for _, d := range tree.Dirs {
		ds.BaseDirs = append(ds.BaseDirs, d.Name)
	}
	return ds
}

// File holds the per-file validation state accumulated while walking the
// tree.
type File struct {
	File     *dstree.File
	Elements filenameparse.Elements
	Stem     string
	BaseDir  string

	Sidecar            map[string]interface{}
	ExpandedSidecar     jsonld.Node
	MetadataProvenance map[string]string

	Columns      *csvdata.Result
	ValidColumns []string

	FilenameRules []string

	Issues *issues.Collector
}

// NewFileContext seeds a per-file context's filename-derived fields. The
// sidecar cascade and column loading are filled in separately by
// LoadSidecar/LoadColumns, mirroring the orchestrator's asyncLoads step.
func NewFileContext(f *dstree.File, issuesCollector *issues.Collector) *File {
	return &File{
		File:               f,
		Elements:           filenameparse.Parse(f.Name),
		Stem:               filenameparse.Stem(f.Name),
		BaseDir:            baseDirOf(f.Path),
		MetadataProvenance: make(map[string]string),
		Issues:             issuesCollector,
	}
}

func baseDirOf(relPath string) string {
	idx := strings.Index(relPath, "/")
	if idx < 0 {
		return "/"
	}
	return relPath[:idx]
}

// AmbiguousSidecarWarning is emitted when more than one sidecar candidate
// applies at a directory level and none is the exact path replacement.
const AmbiguousSidecarWarning = "AmbiguousSidecarMatch"

// LoadSidecar performs the sidecar cascade: walking from the tree root
// down to the directory containing fc.File, merging every
// applicable sidecar's JSON, and finally JSON-LD-expanding the merged
// result.
func LoadSidecar(tree *dstree.Tree, ds *Dataset, fc *File) {
	chain := dirChain(tree, dirSegments(fc.File.Path))

	merged := make(map[string]interface{})
	provenance := make(map[string]string)

	for _, dir := range chain {
		candidates := sidecarCandidates(dir, fc.Stem)
		if len(candidates) == 0 {
			continue
		}

		pick := candidates[0]
		exactPath := exactSidecarPath(dir.Path, fc.Stem)
		exact, hasExact := findByPath(candidates, exactPath)
		if hasExact {
			pick = exact
		} else if len(candidates) > 1 {
			fc.Issues.Add(AmbiguousSidecarWarning, issues.SeverityWarning,
				"multiple sidecar candidates matched at one directory level; using the first",
				issues.File{Path: fc.File.Path, Name: fc.File.Name, Evidence: joinCandidatePaths(candidates)},
				nil, "")
		}

		if pick.Parsed == nil {
			continue
		}
		for k, v := range pick.Parsed {
			if k == "@context" {
				continue
			}
			merged[k] = v
			provenance[k] = pick.Path
		}
	}

	// A JSON metadata file always carries its own declared fields, taking
	// precedence over anything inherited from a less specific sidecar.
	if fc.File.IsJSON() && fc.File.Parsed != nil {
		for k, v := range fc.File.Parsed {
			if k == "@context" {
				continue
			}
			merged[k] = v
			provenance[k] = fc.File.Path
		}
	}

	fc.Sidecar = merged
	fc.MetadataProvenance = provenance

	rootContext := interface{}(nil)
	if ds.RootFile != nil && ds.RootFile.Parsed != nil {
		rootContext = ds.RootFile.Parsed["@context"]
	}
	doc := make(map[string]interface{}, len(merged)+1)
	for k, v := range merged {
		doc[k] = v
	}
	if _, has := doc["@context"]; !has && rootContext != nil {
		doc["@context"] = rootContext
	}

	ctx := jsonld.ParseContext(doc["@context"])
	expanded, err := jsonld.Expand(doc, ctx)
	if err != nil {
		fc.ExpandedSidecar = jsonld.Node{}
		return
	}
	fc.ExpandedSidecar = expanded

	LoadValidColumns(fc)
}

func sidecarCandidates(dir *dstree.Tree, targetStem string) []*dstree.File {
	var out []*dstree.File
	for _, f := range dir.Files {
		if !f.IsJSON() {
			continue
		}
		els := filenameparse.Parse(f.Name)
		stem := filenameparse.Stem(f.Name)
		if (els.Suffix == "data" && stem == targetStem) || stem == "file_metadata" {
			out = append(out, f)
		}
	}
	return out
}

func exactSidecarPath(dirPath, targetStem string) string {
	if dirPath == "" {
		return targetStem + ".json"
	}
	return dirPath + "/" + targetStem + ".json"
}

func findByPath(files []*dstree.File, path string) (*dstree.File, bool) {
	for _, f := range files {
		if f.Path == path {
			return f, true
		}
	}
	return nil, false
}

func joinCandidatePaths(files []*dstree.File) string {
	var sb strings.Builder
	for i, f := range files {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(f.Path)
	}
	return sb.String()
}

func dirSegments(filePath string) []string {
	idx := strings.LastIndex(filePath, "/")
	if idx < 0 {
		return nil
	}
	return strings.Split(filePath[:idx], "/")
}

func dirChain(root *dstree.Tree, segments []string) []*dstree.Tree {
	chain := []*dstree.Tree{root}
	cur := root
	for _, seg := range segments {
		var next *dstree.Tree
		for _, d := range cur.Dirs {
			if d.Name == seg {
				next = d
				break
			}
		}
		if next == nil {
			break
		}
		chain = append(chain, next)
		cur = next
	}
	return chain
}

// LoadValidColumns populates fc.ValidColumns from fc.ExpandedSidecar's
// http://schema.org/variableMeasured entries.
func LoadValidColumns(fc *File) {
	values, ok := fc.ExpandedSidecar["http://schema.org/variableMeasured"]
	if !ok {
		return
	}
	for _, v := range values {
		if name, ok := jsonld.ValueString(v); ok {
			fc.ValidColumns = append(fc.ValidColumns, name)
			continue
		}
		if nested, ok := v.(jsonld.Node); ok {
			if name, ok := jsonld.FirstString(nested, "http://schema.org/name"); ok {
				fc.ValidColumns = append(fc.ValidColumns, name)
			}
		}
	}
}

// LoadColumns parses fc.File's text as CSV when its extension is .csv.
func LoadColumns(fc *File) {
	if !strings.HasSuffix(fc.File.Name, ".csv") {
		return
	}
	result := csvdata.Parse(fc.File.Text)
	fc.Columns = &result
}
