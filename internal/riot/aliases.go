package riot

import (
	"errors"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rewind-gg/rewind/internal/config"
)

// AliasConfig holds region alias configuration loaded from .rewind.yaml.
//
// Players type region codes in whatever form their community uses ("NA",
// "noreast", "oceania"); aliases map those spellings to the codes the routing
// tables understand. Aliases apply before table lookup, so an alias can only
// ever widen what routes correctly.
type AliasConfig struct {
	// RegionAliases maps user-facing spellings to canonical region codes.
	//nolint:tagliatelle // snake_case is intentional for YAML config files
	RegionAliases map[string]string `yaml:"region_aliases"`
}

// DefaultAliasConfigPath is the default location for the Rewind configuration file.
const DefaultAliasConfigPath = ".rewind.yaml"

// AliasConfigPathEnvVar is the environment variable name for a custom config path.
const AliasConfigPathEnvVar = "REWIND_CONFIG_PATH"

// LoadAliasConfig loads region alias configuration from a YAML file.
//
// Behavior:
//   - Returns empty config (not error) if the file doesn't exist - aliases are optional
//   - Returns empty config + logs warning if the YAML is invalid (graceful degradation)
//   - Returns populated config on success
//
// Graceful degradation keeps the server bootable without a config file;
// region aliasing is an optional convenience layer.
func LoadAliasConfig(path string) (*AliasConfig, error) {
	cfg := &AliasConfig{
		RegionAliases: make(map[string]string),
	}

	data, err := os.ReadFile(path) //nolint:gosec // path is from trusted config source
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			slog.Debug("Config file not found, continuing without region aliases",
				slog.String("path", path))

			return cfg, nil
		}

		slog.Warn("Failed to read config file, continuing without region aliases",
			slog.String("path", path),
			slog.String("error", err.Error()))

		return cfg, nil
	}

	if len(data) == 0 {
		return cfg, nil
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		slog.Warn("Failed to parse config file, continuing without region aliases",
			slog.String("path", path),
			slog.String("error", err.Error()))

		return &AliasConfig{RegionAliases: make(map[string]string)}, nil
	}

	if cfg.RegionAliases == nil {
		cfg.RegionAliases = make(map[string]string)
	}

	return cfg, nil
}

// LoadAliasConfigFromEnv loads config from the path in REWIND_CONFIG_PATH,
// falling back to ".rewind.yaml" in the current directory.
func LoadAliasConfigFromEnv() (*AliasConfig, error) {
	path := config.GetEnvStr(AliasConfigPathEnvVar, DefaultAliasConfigPath)

	return LoadAliasConfig(path)
}

// Canonical normalizes a region code: trims, lowercases, then applies the
// alias map. Codes without an alias pass through unchanged.
func (c *AliasConfig) Canonical(region string) string {
	region = strings.ToLower(strings.TrimSpace(region))

	if c == nil || len(c.RegionAliases) == 0 {
		return region
	}

	if canonical, ok := c.RegionAliases[region]; ok {
		return strings.ToLower(strings.TrimSpace(canonical))
	}

	return region
}
