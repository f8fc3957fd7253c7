package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Settings is the environment-backed surface shared with the pipeline
// deployment. Only the fields the cost tooling needs are parsed here.
type Settings struct {
	PostgresDSN string `env:"POSTGRES_DSN"`

	AnthropicModelID      string `env:"ANTHROPIC_MODEL_ID" envDefault:"claude-3-5-sonnet-latest"`
	AnthropicSmallModelID string `env:"ANTHROPIC_SMALL_MODEL_ID" envDefault:"claude-3-5-haiku-latest"`
	OpenAIEmbeddingModel  string `env:"OPENAI_EMBEDDING_MODEL" envDefault:"text-embedding-3-large"`

	GitHubOwner         string `env:"GITHUB_OWNER"`
	GitHubRepo          string `env:"GITHUB_REPO"`
	GitHubDefaultBranch string `env:"GITHUB_DEFAULT_BRANCH" envDefault:"main"`
}

// LoadSettings parses Settings from the environment.
func LoadSettings() (Settings, error) {
	var s Settings
	if err := env.Parse(&s); err != nil {
		return Settings{}, fmt.Errorf("parse env: %w", err)
	}
	return s, nil
}
