// Package schemaload resolves a Psych-DS schema version into the two
// documents the engine needs (the rule tree and the schema.org
// slot/class model), fetching them over HTTPS and falling back to an
// embedded bundled copy whenever the network, the decode, or a coarse
// meta-schema sanity check fails.
package schemaload

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"github.com/psych-ds/psychds-validator/internal/dsschema"
	"github.com/psych-ds/psychds-validator/pkg/logger"
)

//go:embed embedded/schema.json
var bundledSchema []byte

//go:embed embedded/schemaorg.json
var bundledSchemaOrg []byte

const baseURL = "https://schemas.psychds.org"

var versionPattern = regexp.MustCompile(`^\d+\.\d+\.\d+$`)

// metaSchema is a coarse "object of objects" sanity check: the two
// documents this package fetches are always top-level JSON objects,
// never arrays or scalars. It deliberately does not attempt to model
// the full rule/slot grammar — that is internal/dsschema's job.
const metaSchema = `{"type": "object"}`

// Result bundles the two schema documents a validation run consumes.
type Result struct {
	Schema    *dsschema.Tree
	SchemaOrg *dsschema.Tree
	Version   string
	// FromBundled is true when the embedded fallback was used instead of
	// a live fetch.
	FromBundled bool
}

// Load resolves version ("latest" or a semver "X.Y.Z") against baseURL,
// fetching schema.json and schemaorg.json over fetcher. Any failure at
// any stage — network, decode, or the meta-schema check — logs a
// warning and falls back to the bundled copy; Load itself only returns
// an error if even the bundled copy fails to parse, which would be a
// packaging defect.
func Load(version string, fetcher HTTPFetcher) (*Result, error) {
	if version != "latest" && !versionPattern.MatchString(version) {
		logger.Warn("invalid schema version requested, falling back to bundled schema",
			logger.String("version", version))
		return loadBundled()
	}

	schemaBytes, err := fetchAndValidate(fetcher, schemaURL(version, "schema.json"))
	if err != nil {
		logger.Warn("schema fetch failed, falling back to bundled schema", logger.Err(err))
		return loadBundled()
	}
	schemaOrgBytes, err := fetchAndValidate(fetcher, schemaURL(version, "schemaorg.json"))
	if err != nil {
		logger.Warn("schemaorg fetch failed, falling back to bundled schema", logger.Err(err))
		return loadBundled()
	}

	schema, schemaOrg, err := parsePair(schemaBytes, schemaOrgBytes)
	if err != nil {
		logger.Warn("fetched schema failed to decode, falling back to bundled schema", logger.Err(err))
		return loadBundled()
	}

	return &Result{Schema: schema, SchemaOrg: schemaOrg, Version: version}, nil
}

func schemaURL(version, file string) string {
	return fmt.Sprintf("%s/%s/%s", baseURL, version, file)
}

func fetchAndValidate(fetcher HTTPFetcher, url string) ([]byte, error) {
	resp, err := fetcher.Get(url)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("fetching %s: status %d", url, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", url, err)
	}

	schemaLoader := gojsonschema.NewStringLoader(metaSchema)
	docLoader := gojsonschema.NewBytesLoader(body)
	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		return nil, fmt.Errorf("meta-schema check for %s: %w", url, err)
	}
	if !result.Valid() {
		return nil, fmt.Errorf("%s failed meta-schema check", url)
	}
	return body, nil
}

func parsePair(schemaBytes, schemaOrgBytes []byte) (*dsschema.Tree, *dsschema.Tree, error) {
	var schemaRoot, schemaOrgRoot interface{}
	if err := json.Unmarshal(schemaBytes, &schemaRoot); err != nil {
		return nil, nil, fmt.Errorf("decoding schema.json: %w", err)
	}
	if err := json.Unmarshal(schemaOrgBytes, &schemaOrgRoot); err != nil {
		return nil, nil, fmt.Errorf("decoding schemaorg.json: %w", err)
	}
	return dsschema.New(schemaRoot), dsschema.New(schemaOrgRoot), nil
}

func loadBundled() (*Result, error) {
	schema, schemaOrg, err := parsePair(bundledSchema, bundledSchemaOrg)
	if err != nil {
		return nil, fmt.Errorf("bundled schema is corrupt: %w", err)
	}
	return &Result{Schema: schema, SchemaOrg: schemaOrg, Version: "bundled", FromBundled: true}, nil
}

// DefaultTimeout is the bound applied to the real HTTP fetcher used by
// the CLI.
const DefaultTimeout = 10 * time.Second
