package cli

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/payhatch/payhatch/internal/asset"
)

//go:embed config.cue
var configSchema string

// Config is a decoded payhatch configuration file.
type Config struct {
	Owner     string                 `json:"owner"`
	Reference string                 `json:"reference"`
	Assets    map[string]AssetConfig `json:"assets"`
	Employees []EmployeeConfig       `json:"employees"`
	Funding   map[string]int64       `json:"funding,omitempty"`
}

// AssetConfig configures one wired asset.
type AssetConfig struct {
	Rate int64 `json:"rate,omitempty"`
}

// EmployeeConfig declares one roster entry.
type EmployeeConfig struct {
	Account    string           `json:"account"`
	Yearly     int64            `json:"yearly"`
	Accepted   []string         `json:"accepted"`
	Allocation map[string]int64 `json:"allocation,omitempty"`
}

// LoadConfig reads a CUE config file and validates it against the embedded
// schema. Schema violations carry CUE's own positions and messages; domain
// rules beyond the schema's reach (salary divisibility, allocation sums,
// unknown assets) are enforced later when the config is applied.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ExitError{Code: ExitCommandError, Message: "reading config", Err: err}
	}

	ctx := cuecontext.New()
	schema := ctx.CompileString(configSchema, cue.Filename("config.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("internal schema error: %w", err)
	}

	value := ctx.CompileBytes(data, cue.Filename(path))
	if err := value.Err(); err != nil {
		return nil, WrapExitError(ExitFailure, "parsing config", err)
	}

	unified := schema.LookupPath(cue.ParsePath("#Config")).Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, WrapExitError(ExitFailure, "config does not match schema", err)
	}

	var cfg Config
	if err := unified.Decode(&cfg); err != nil {
		return nil, WrapExitError(ExitFailure, "decoding config", err)
	}

	if _, ok := cfg.Assets[cfg.Reference]; !ok {
		return nil, NewExitError(ExitFailure,
			fmt.Sprintf("config does not match schema: reference asset %q is not in assets", cfg.Reference))
	}
	if rate := cfg.Assets[cfg.Reference].Rate; rate != 0 && rate != 1 {
		return nil, NewExitError(ExitFailure,
			fmt.Sprintf("config does not match schema: reference asset %q must not declare a rate", cfg.Reference))
	}

	return &cfg, nil
}

// assetIDs returns every asset the config mentions, with native appended,
// in deterministic order.
func (c *Config) assetIDs() []asset.ID {
	seen := map[asset.ID]bool{asset.Native: true}
	for id := range c.Assets {
		seen[asset.ID(id)] = true
	}
	for id := range c.Funding {
		seen[asset.ID(id)] = true
	}
	for _, emp := range c.Employees {
		for _, id := range emp.Accepted {
			seen[asset.ID(id)] = true
		}
	}

	ids := make([]asset.ID, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// sortedKeys returns a string-keyed map's keys in deterministic order.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
