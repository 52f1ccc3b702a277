package config

import (
	"log/slog"

	apperrors "git.home.luguber.info/inful/docship/internal/errors"
)

// Validate checks the parsed pipeline plan. Violations are fatal: the
// pipeline never starts on an invalid document.
func Validate(cfg *PipelineConfig) error {
	if cfg == nil {
		return apperrors.ConfigError("config is nil")
	}
	if len(cfg.Variants()) == 0 {
		return apperrors.ConfigError("toolchain matrix must not be empty (set matrix or channel)")
	}
	for _, v := range cfg.Variants() {
		if v == "" {
			return apperrors.ConfigError("toolchain matrix entries must not be empty")
		}
	}

	if cfg.Deploy == nil {
		return nil
	}
	return validateDeploy(cfg)
}

func validateDeploy(cfg *PipelineConfig) error {
	d := cfg.Deploy

	if NormalizeProvider(string(d.Provider)) == "" {
		return apperrors.ValidationFailed("deploy.provider", "unrecognized hosting provider: "+string(d.Provider))
	}
	if d.TokenEnv == "" {
		return apperrors.ConfigRequired("deploy.token_env")
	}
	if d.Source == "" {
		return apperrors.ConfigRequired("deploy.source")
	}
	if d.OnBranch == "" {
		return apperrors.ConfigRequired("deploy.on_branch")
	}

	// Legal but unusual configurations are surfaced, not rejected.
	if cfg.DeployOnly() {
		slog.Warn("Deploy block present but script and before_deploy are empty; staging will fail unless the source directory already exists")
	}
	if len(cfg.Variants()) > 1 {
		slog.Warn("Deploy block with multiple matrix variants: concurrent publishes to one destination are last-writer-wins",
			"variants", len(cfg.Variants()))
	}
	return nil
}
