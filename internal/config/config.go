// Package config parses and validates the declarative pipeline document.
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	apperrors "git.home.luguber.info/inful/docship/internal/errors"
)

// DefaultPath is the pipeline document consumed when -c is not given.
const DefaultPath = ".docship.yaml"

// Load reads, parses and validates the pipeline document at configPath.
// The document is taken as-is: variable references inside commands are
// resolved by the shell against the leg environment at run time, and secret
// values referenced by the deploy block are never read here, only their
// variable names are recorded.
func Load(configPath string) (*PipelineConfig, error) {
	// Load .env/.env.local if present; existing process env wins.
	for _, envPath := range []string{".env", ".env.local"} {
		if _, err := os.Stat(envPath); err == nil {
			if err := godotenv.Load(envPath); err != nil {
				fmt.Fprintf(os.Stderr, "Note: %s couldn't be loaded: %v\n", envPath, err)
			}
			break
		}
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, apperrors.ConfigError("configuration file not found").WithContext("path", configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CategoryConfig, apperrors.SeverityFatal, "failed to read config file")
	}

	return Parse(data)
}

// Parse parses and validates a pipeline document. Variable references in
// the document stay literal; the shell resolves them per leg at run time.
func Parse(data []byte) (*PipelineConfig, error) {
	var cfg PipelineConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CategoryConfig, apperrors.SeverityFatal, "failed to unmarshal config")
	}

	applyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *PipelineConfig) {
	if len(cfg.Matrix) == 0 && cfg.Channel != "" {
		cfg.Matrix = []string{cfg.Channel}
	}
	if cfg.Deploy != nil {
		if cfg.Deploy.PagesBranch == "" {
			cfg.Deploy.PagesBranch = "gh-pages"
		}
		if cfg.Deploy.StagingDir == "" {
			cfg.Deploy.StagingDir = "public"
		}
	}
}

const initTemplate = `toolchain: rust
channel: stable
matrix: [stable, beta, nightly]
env:
  RUST_BACKTRACE: "1"
script:
  - cargo build
  - cargo test
before_deploy:
  - cargo doc --no-deps
deploy:
  provider: pages
  token_env: GH_TOKEN
  source: target/doc
  staging_dir: public
  # Sub-path inside the doc output the synthesized index forwards to.
  # cargo doc places each crate's docs under the crate name.
  redirect_to: your_crate/index.html
  on_branch: master
  keep_history: false
`

// Init creates a new pipeline document with example content.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	if err := os.WriteFile(configPath, []byte(initTemplate), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
