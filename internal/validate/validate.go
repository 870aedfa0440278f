// Package validate orchestrates a full validation run: building the
// file tree, loading the schema, walking every file through the fixed
// sequence of checks, and assembling the final result.
package validate

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5/osfs"
	"golang.org/x/sync/errgroup"

	"github.com/psych-ds/psychds-validator/internal/csvdata"
	"github.com/psych-ds/psychds-validator/internal/dscontext"
	"github.com/psych-ds/psychds-validator/internal/dstree"
	"github.com/psych-ds/psychds-validator/internal/engine"
	"github.com/psych-ds/psychds-validator/internal/events"
	"github.com/psych-ds/psychds-validator/internal/issues"
	"github.com/psych-ds/psychds-validator/internal/rules"
	"github.com/psych-ds/psychds-validator/internal/schemaload"
	"github.com/psych-ds/psychds-validator/internal/summary"
	"github.com/psych-ds/psychds-validator/pkg/ignore"
	"github.com/psych-ds/psychds-validator/pkg/logger"
)

// Options configures one validation run. It mirrors the validate
// command's flags, plus IgnoreExtras, which comes only from config; the
// CLI layer is responsible for resolving
// config-file/env/flag precedence into this struct before calling
// Validate.
type Options struct {
	DatasetPath  string
	Schema       string // semver "X.Y.Z" or "latest"
	JSON         bool
	Verbose      bool
	ShowWarnings bool
	Debug        string
	UseEvents    bool
	// IgnoreExtras are additional root-scoped ignore patterns layered on
	// top of ignore.DefaultPatterns and any discovered .psychdsignore files.
	IgnoreExtras []string
}

// ValidationResult is the outcome of one Validate call.
type ValidationResult struct {
	Valid         bool
	Errors        []*issues.Entry
	Warnings      []*issues.Entry
	Summary       *summary.Summary
	SchemaVersion string
	// FilesChecked lists every non-ignored file's path, populated
	// regardless of Options.Verbose; the CLI decides whether to render it.
	FilesChecked []string
}

// Validate runs the full check sequence against opts.DatasetPath. fetcher
// supplies the schema-loader's HTTP transport (pass a real fetcher in
// production, a mock in tests); emitter receives progress events when
// non-nil, never blocking the run if nothing drains it.
func Validate(ctx context.Context, opts Options, fetcher schemaload.HTTPFetcher, emitter *events.Emitter) (*ValidationResult, error) {
	fs := osfs.New(opts.DatasetPath)

	emitter.Send(events.Event{Step: "walk", Message: "scanning dataset tree"})
	ig := ignore.NewMatcher()
	if len(opts.IgnoreExtras) > 0 {
		ig.AddPatternFile("", opts.IgnoreExtras)
	}
	tree, err := dstree.Build(fs, ig)
	if err != nil {
		return nil, fmt.Errorf("building file tree: %w", err)
	}

	ds := dscontext.BuildDataset(tree)

	emitter.Send(events.Event{Step: "schema", Message: "loading schema"})
	schemaResult, err := schemaload.Load(opts.Schema, fetcher)
	if err != nil {
		return nil, fmt.Errorf("loading schema: %w", err)
	}
	if schemaResult.FromBundled {
		logger.Warn("using bundled fallback schema", logger.String("requested", opts.Schema))
	}

	col := issues.NewCollector()
	sum := summary.New()
	rulesRecord := rules.FindFileRules(schemaResult.Schema, "rules.files")
	officialKeywords := rules.OfficialKeywords(schemaResult.Schema)

	var files []*dstree.File
	tree.Walk(func(f *dstree.File) { files = append(files, f) })

	emitter.Send(events.Event{Step: "validate", Message: fmt.Sprintf("validating %d files", len(files))})

	vars := newVariableTracker()

	var checked []string
	for _, f := range files {
		if ig.Test(f.Path) {
			continue
		}
		checked = append(checked, f.Path)
		validateFile(ctx, tree, ds, f, schemaResult, officialKeywords, rulesRecord, col, sum, vars)
	}
	vars.report(col)
	rules.CheckDirRules(schemaResult.Schema, rulesRecord, ds.BaseDirs)
	rules.CheckMissingRules(schemaResult.Schema, rulesRecord, col)
	filterUnsatisfiedIssues(col, rulesRecord)

	errs, warnings := col.Partition()
	emitter.Send(events.Event{Step: "validate", Done: true})

	return &ValidationResult{
		Valid:         len(errs) == 0,
		Errors:        errs,
		Warnings:      warnings,
		Summary:       sum,
		SchemaVersion: schemaResult.Version,
		FilesChecked:  checked,
	}, nil
}

func validateFile(
	ctx context.Context,
	tree *dstree.Tree,
	ds *dscontext.Dataset,
	f *dstree.File,
	schemaResult *schemaload.Result,
	officialKeywords map[string]struct{},
	rulesRecord map[string]bool,
	col *issues.Collector,
	sum *summary.Summary,
	vars *variableTracker,
) {
	fc := dscontext.NewFileContext(f, col)

	replayDeferred(f, col)

	if f.Size == 0 {
		col.Add("FileEmpty", issues.SeverityWarning, "file is empty",
			issues.File{Path: f.Path, Name: f.Name}, nil, "")
	}

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		dscontext.LoadSidecar(tree, ds, fc)
		return nil
	})
	g.Go(func() error {
		dscontext.LoadColumns(fc)
		return nil
	})
	_ = g.Wait()

	sum.AddFile(f.Size, dataTypeOf(f.Name))
	if fc.Columns != nil {
		sum.SuggestColumns(fc.Columns.Headers)
		replayCSVIssues(f, fc.Columns, col)
	}
	vars.observe(fc)

	matchedPaths := rules.FindRuleMatches(schemaResult.Schema, "rules.files", matchContext(fc))
	identifyAndValidateFilename(fc, schemaResult, officialKeywords, matchedPaths, rulesRecord, col)

	scope := &engine.FileScope{
		Path:            fc.File.Path,
		Name:            fc.File.Name,
		Extension:       extensionOf(fc.File.Name),
		Suffix:          fc.Elements.Suffix,
		BaseDir:         fc.BaseDir,
		Sidecar:         fc.Sidecar,
		ExpandedSidecar: fc.ExpandedSidecar,
		Columns:         fc.Columns,
		ValidColumns:    fc.ValidColumns,
		Provenance:      fc.MetadataProvenance,
	}
	engine.ApplyRules(schemaResult.Schema, schemaResult.SchemaOrg, scope, rulesRecord, col)
}

func replayDeferred(f *dstree.File, col *issues.Collector) {
	for _, d := range f.Deferred {
		col.Add(string(d.Kind), issues.SeverityError, "file could not be read or parsed",
			issues.File{Path: f.Path, Name: f.Name, Evidence: d.Evidence}, nil, "")
	}
}

// replayCSVIssues feeds the structural issues csvdata.Parse discovered
// (bad header, ragged rows, duplicate row_id, parse failure) into col;
// csvdata itself never touches the collector.
func replayCSVIssues(f *dstree.File, result *csvdata.Result, col *issues.Collector) {
	for _, iss := range result.Issues {
		col.Add(string(iss.Kind), issues.SeverityError, iss.Message,
			issues.File{Path: f.Path, Name: f.Name}, nil, "")
	}
}

// variableTracker accumulates, across the whole file walk, every variable
// name declared by some file's validColumns and whether it was ever
// realized as an actual CSV header on a file that declared it.
type variableTracker struct {
	declared map[string]bool
	realized map[string]bool
}

func newVariableTracker() *variableTracker {
	return &variableTracker{declared: make(map[string]bool), realized: make(map[string]bool)}
}

func (vt *variableTracker) observe(fc *dscontext.File) {
	if len(fc.ValidColumns) == 0 {
		return
	}
	headers := make(map[string]struct{})
	if fc.Columns != nil {
		for _, h := range fc.Columns.Headers {
			headers[h] = struct{}{}
		}
	}
	for _, v := range fc.ValidColumns {
		vt.declared[v] = true
		if _, ok := headers[v]; ok {
			vt.realized[v] = true
		}
	}
}

// report emits a single VariableMissingFromCsvColumns issue listing every
// declared variable that no CSV file whose context declared it ever
// contained as a header.
func (vt *variableTracker) report(col *issues.Collector) {
	var missing []string
	for v := range vt.declared {
		if !vt.realized[v] {
			missing = append(missing, v)
		}
	}
	if len(missing) == 0 {
		return
	}
	sort.Strings(missing)
	col.Add("VariableMissingFromCsvColumns", issues.SeverityWarning,
		"variableMeasured name never appears as a CSV header in the dataset",
		issues.File{Evidence: strings.Join(missing, ", ")}, nil, "")
}

func matchContext(fc *dscontext.File) rules.MatchContext {
	return rules.MatchContext{
		BaseDir:   fc.BaseDir,
		Extension: extensionOf(fc.File.Name),
		Suffix:    fc.Elements.Suffix,
		FileName:  fc.File.Name,
		FilePath:  "/" + fc.File.Path,
	}
}

func identifyAndValidateFilename(fc *dscontext.File, schemaResult *schemaload.Result, official map[string]struct{}, matchedPaths []string, rulesRecord map[string]bool, col *issues.Collector) {
	if len(matchedPaths) == 0 {
		if fc.File.Name == ".bidsignore" {
			return
		}
		col.Add("FileNotChecked", issues.SeverityWarning, "file did not match any rule",
			issues.File{Path: fc.File.Path, Name: fc.File.Name}, nil, "")
		if fc.File.Name == "dataset_description.json" && fc.BaseDir != "/" {
			col.Add("WrongMetadataLocation", issues.SeverityError,
				"dataset_description.json must live at the dataset root",
				issues.File{Path: fc.File.Path, Name: fc.File.Name}, nil, "")
		}
		return
	}

	fc.FilenameRules = matchedPaths
	satisfiedPath, found := rules.Validate(schemaResult.Schema, official, fc.File.Name, matchedPaths, fc.Elements)
	for _, iss := range found {
		severity := issues.SeverityError
		if iss.Kind == rules.FilenameUnofficialKeywordWarning {
			severity = issues.SeverityWarning
		}
		col.Add(string(iss.Kind), severity, "filename did not satisfy its matched rule",
			issues.File{Path: fc.File.Path, Name: fc.File.Name, Evidence: iss.Evidence}, nil, "")
	}
	if satisfiedPath != "" {
		rulesRecord[satisfiedPath] = true
	}
}

func filterUnsatisfiedIssues(col *issues.Collector, rulesRecord map[string]bool) {
	for _, key := range col.Keys() {
		entry, ok := col.Get(key)
		if !ok || len(entry.Requires) == 0 {
			continue
		}
		for _, req := range entry.Requires {
			if !rulesRecord[req] {
				col.Remove(key)
				break
			}
		}
	}
}

func extensionOf(name string) string {
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] == '.' {
			return name[i:]
		}
		if name[i] == '/' {
			break
		}
	}
	return ""
}

func dataTypeOf(name string) string {
	ext := extensionOf(name)
	if ext == "" {
		return "other"
	}
	return ext
}
