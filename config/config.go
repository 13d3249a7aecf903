// Package config loads run and server settings from a YAML file and the
// environment.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/warp/vr-engine/benefit"
	"github.com/warp/vr-engine/factory"
	"github.com/warp/vr-engine/generic"
)

// EnvAPIKey holds the adjudication service credential.
const EnvAPIKey = "API_KEY"

type Config struct {
	Process     ProcessConfig     `yaml:"process"`
	Unions      UnionsConfig      `yaml:"unions"`
	Adjudicator AdjudicatorConfig `yaml:"adjudicator"`
	Server      ServerConfig      `yaml:"server"`

	// APIKey is read from the environment only.
	APIKey string `yaml:"-"`
}

// ProcessConfig selects the competence month and how it is computed.
// Month and Year have no defaults.
type ProcessConfig struct {
	Month      int    `yaml:"month"`
	Year       int    `yaml:"year"`
	Policy     string `yaml:"policy"`
	OutputMode string `yaml:"output_mode"`
	PolicyFile string `yaml:"policy_file"`
}

// UnionsConfig picks the union catalog: a JSON file, a SQLite database
// (seeded with the built-in unions when empty), or the built-in table.
type UnionsConfig struct {
	CatalogFile string `yaml:"catalog_file"`
	Database    string `yaml:"database"`
	Fallback    string `yaml:"fallback"`
}

type AdjudicatorConfig struct {
	Model      string        `yaml:"model"`
	Workers    int           `yaml:"workers"`
	Timeout    time.Duration `yaml:"-"`
	TimeoutRaw string        `yaml:"timeout"`
}

type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

const (
	defaultTimeout    = 30 * time.Second
	defaultListenAddr = ":8080"
	maxWorkers        = 64
)

// Default returns a configuration with every optional field filled.
func Default() *Config {
	c := &Config{}
	_ = c.validateAndNormalize()
	return c
}

// Load reads path (when non-empty), then the environment: a .env file in
// the working directory is honored if present.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return nil, fmt.Errorf("config: parse yaml: %w", err)
		}
	}

	_ = godotenv.Load()
	cfg.APIKey = strings.TrimSpace(os.Getenv(EnvAPIKey))

	if err := cfg.validateAndNormalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validateAndNormalize() error {
	p := &c.Process
	if p.Month != 0 && (p.Month < 1 || p.Month > 12) {
		return fmt.Errorf("config: process.month must be within 1..12, got %d", p.Month)
	}
	if p.Year != 0 && p.Year < 2000 {
		return fmt.Errorf("config: process.year looks wrong: %d", p.Year)
	}
	if p.Policy == "" {
		p.Policy = string(benefit.DefaultPolicy)
	}
	if p.PolicyFile == "" {
		if _, err := generic.LookupPolicy(generic.PolicyID(p.Policy)); err != nil {
			return fmt.Errorf("config: process.policy: %w", err)
		}
	}
	if p.OutputMode != "" {
		if _, err := generic.ParseOutputMode(p.OutputMode); err != nil {
			return fmt.Errorf("config: process.output_mode: %w", err)
		}
	}

	if c.Unions.CatalogFile != "" && c.Unions.Database != "" {
		return fmt.Errorf("config: unions.catalog_file and unions.database are exclusive")
	}

	a := &c.Adjudicator
	if a.Workers == 0 {
		a.Workers = 1
	}
	if a.Workers < 1 || a.Workers > maxWorkers {
		return fmt.Errorf("config: adjudicator.workers must be within 1..%d, got %d", maxWorkers, a.Workers)
	}
	timeout, err := parseDurationAllowEmpty(a.TimeoutRaw)
	if err != nil {
		return fmt.Errorf("config: adjudicator.timeout: %w", err)
	}
	if timeout == 0 {
		timeout = defaultTimeout
	}
	a.Timeout = timeout

	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = defaultListenAddr
	}
	return nil
}

func parseDurationAllowEmpty(raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %s", raw)
	}
	return d, nil
}

// Period returns the configured competence month. It fails with
// generic.ErrInvalidPeriod while month or year is unset.
func (c *Config) Period() (generic.Period, error) {
	return generic.NewMonthPeriod(c.Process.Year, c.Process.Month)
}

// ResolvePolicy returns the configured policy, read from policy_file when
// set, with the output mode override applied.
func (c *Config) ResolvePolicy() (generic.Policy, error) {
	var (
		policy generic.Policy
		err    error
	)
	if c.Process.PolicyFile != "" {
		data, rerr := os.ReadFile(c.Process.PolicyFile)
		if rerr != nil {
			return generic.Policy{}, fmt.Errorf("config: read policy file: %w", rerr)
		}
		policy, err = factory.ParsePolicy(data)
	} else {
		policy, err = generic.LookupPolicy(generic.PolicyID(c.Process.Policy))
	}
	if err != nil {
		return generic.Policy{}, err
	}
	if c.Process.OutputMode != "" {
		policy = policy.WithOutputMode(generic.OutputMode(c.Process.OutputMode))
	}
	return policy, nil
}
