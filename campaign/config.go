// Package campaign runs conformance sessions over a corpus of inputs, many
// seeds per input, and collects the protocol violations it finds.
package campaign

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lattice-substrate/json-tokfuzz/log"
)

// Defaults applied to zero-valued Config fields.
const (
	DefaultSeedsPerInput = 64
	DefaultMaxInputBytes = 1 << 20
)

// Config is a campaign.yaml document. CLI flags override its values.
type Config struct {
	Corpus        []string `yaml:"corpus"`
	SeedsPerInput int      `yaml:"seeds_per_input"`
	BaseSeed      uint64   `yaml:"base_seed"`
	Workers       int      `yaml:"workers"`
	MaxInputBytes int64    `yaml:"max_input_bytes"`
	Findings      string   `yaml:"findings"`
	Summary       string   `yaml:"summary"`
	StopOnFirst   bool     `yaml:"stop_on_first"`
	TimeLimit     Duration `yaml:"time_limit"`
	LogLevel      string   `yaml:"log_level"`
}

// Duration wraps time.Duration for YAML strings such as "30s" or "5m".
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// envVarPattern matches ${VAR} and ${VAR:-default}.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-([^}]*))?\}`)

// ExpandEnv replaces ${VAR} and ${VAR:-default} with environment values.
// Unset variables without a default expand to the empty string.
func ExpandEnv(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		if value, ok := os.LookupEnv(groups[1]); ok && value != "" {
			return value
		}
		if len(groups) >= 3 {
			return groups[2]
		}
		return ""
	})
}

// LoadConfig reads a YAML config file, expands environment variables,
// applies defaults and validates the result. Unknown keys are rejected.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // config path is explicit operator input.
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, fmt.Errorf("cannot read config file %q: %w", path, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader([]byte(ExpandEnv(string(data)))))
	dec.KnownFields(true)
	var cfg Config
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("invalid YAML in %s: %w", path, err)
	}
	cfg.ApplyDefaults()
	if err := ValidateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &cfg, nil
}

// ApplyDefaults fills zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.SeedsPerInput == 0 {
		c.SeedsPerInput = DefaultSeedsPerInput
	}
	if c.Workers == 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.MaxInputBytes == 0 {
		c.MaxInputBytes = DefaultMaxInputBytes
	}
}

// ValidateConfig checks campaign semantics.
func ValidateConfig(c *Config) error {
	if c == nil {
		return fmt.Errorf("config is nil")
	}
	if len(c.Corpus) == 0 {
		return fmt.Errorf("corpus must list at least one path")
	}
	for i, p := range c.Corpus {
		if p == "" {
			return fmt.Errorf("corpus[%d] is empty", i)
		}
	}
	if c.SeedsPerInput < 1 {
		return fmt.Errorf("seeds_per_input must be >= 1")
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be >= 1")
	}
	if c.MaxInputBytes < 1 {
		return fmt.Errorf("max_input_bytes must be >= 1")
	}
	if c.TimeLimit.Duration < 0 {
		return fmt.Errorf("time_limit cannot be negative")
	}
	if c.Findings != "" && c.Findings == c.Summary {
		return fmt.Errorf("findings and summary must be different files")
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	return nil
}
