package config

import (
	"fmt"
	"os"

	"github.com/pipecost/pipecost/pkg/estimate"
	"github.com/pipecost/pipecost/pkg/models"
	"github.com/pipecost/pipecost/pkg/pricing"
	"gopkg.in/yaml.v3"
)

// Config holds all pipecost configuration.
type Config struct {
	LedgerPath string            `yaml:"ledger_path"`
	Tier       pricing.Tier      `yaml:"tier"`
	Pricing    pricing.RateCard  `yaml:"pricing"`
	Scenario   estimate.Scenario `yaml:"scenario"`
	Budget     BudgetConfig      `yaml:"budget"`
	Setup      SetupConfig       `yaml:"setup"`
}

// BudgetConfig controls budget enforcement.
type BudgetConfig struct {
	Enabled  bool                  `yaml:"enabled"`
	Policies []models.BudgetPolicy `yaml:"policies"`
}

// SetupConfig points the setup command at the pipeline workspace files.
type SetupConfig struct {
	EnvFile      string `yaml:"env_file"`
	EnvExample   string `yaml:"env_example"`
	SQLDir       string `yaml:"sql_dir"`
	Requirements string `yaml:"requirements"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		LedgerPath: "pipecost.db",
		Tier:       pricing.TierSonnet,
		Pricing:    pricing.Default(),
		Setup: SetupConfig{
			EnvFile:      ".env",
			EnvExample:   ".env.example",
			SQLDir:       "sql",
			Requirements: "requirements.txt",
		},
	}
}

// Load reads a YAML config file and expands environment variables.
// A missing file yields the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return cfg, nil
}
