package config

import "strings"

// PipelineConfig is the in-memory plan parsed from the declarative pipeline
// document. Field names follow the document keys.
type PipelineConfig struct {
	// Toolchain identifies the runtime/toolchain the pipeline builds with
	// (e.g. "rust"). Channel is its release track (e.g. "stable").
	Toolchain string `yaml:"toolchain"`
	Channel   string `yaml:"channel,omitempty"`

	// Matrix lists toolchain variants; one pipeline leg runs per entry.
	// Defaults to [Channel] when omitted.
	Matrix []string `yaml:"matrix,omitempty"`

	// Env is injected into every command of every leg.
	Env map[string]string `yaml:"env,omitempty"`

	// Sudo is the pre-run privilege flag. Recorded for the host runner,
	// unused by the core.
	Sudo bool `yaml:"sudo,omitempty"`

	// Notifications is passed through unused by the core.
	Notifications map[string]any `yaml:"notifications,omitempty"`

	// Script is the ordered build-phase command list.
	Script []string `yaml:"script,omitempty"`

	// BeforeDeploy is the ordered pre-deploy command list.
	BeforeDeploy []string `yaml:"before_deploy,omitempty"`

	// Deploy is nil when the pipeline never deploys.
	Deploy *DeploySpec `yaml:"deploy,omitempty"`
}

// Provider enumerates supported hosting providers (stringly for YAML compatibility).
type Provider string

const (
	ProviderPages Provider = "pages"
)

// NormalizeProvider canonicalizes user input returning empty string if unknown.
func NormalizeProvider(raw string) Provider {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(ProviderPages):
		return ProviderPages
	default:
		return ""
	}
}

// DeploySpec describes how the staged site is published.
type DeploySpec struct {
	Provider Provider `yaml:"provider"`

	// TokenEnv names the environment variable holding the deploy credential.
	// The secret itself is resolved at publish time, never stored here.
	TokenEnv string `yaml:"token_env"`

	// RepoURL overrides the publish destination. Empty means the origin
	// remote of the repository the pipeline runs in.
	RepoURL string `yaml:"repo_url,omitempty"`

	// PagesBranch is the branch published to. Defaults to "gh-pages".
	PagesBranch string `yaml:"pages_branch,omitempty"`

	// Source is the toolchain output directory the stager copies from.
	Source string `yaml:"source"`

	// StagingDir is the local directory assembled as the exact published
	// content. Defaults to "public".
	StagingDir string `yaml:"staging_dir,omitempty"`

	// RedirectTo is the sub-path the synthesized index document forwards to.
	RedirectTo string `yaml:"redirect_to,omitempty"`

	// OnBranch restricts deployment to exactly this branch.
	OnBranch string `yaml:"on_branch"`

	// KeepHistory preserves prior published revisions. When false a publish
	// hard-resets the destination to a single revision.
	KeepHistory bool `yaml:"keep_history,omitempty"`

	// SkipCleanup leaves the staging workspace in place after the deploy
	// phase instead of removing it.
	SkipCleanup bool `yaml:"skip_cleanup,omitempty"`
}

// Variants returns the effective toolchain matrix, falling back to the
// single configured channel.
func (c *PipelineConfig) Variants() []string {
	if len(c.Matrix) > 0 {
		return c.Matrix
	}
	if c.Channel != "" {
		return []string{c.Channel}
	}
	return nil
}

// DeployOnly reports whether the pipeline has a deploy block but no
// build or pre-deploy commands. Legal but unusual; validation warns.
func (c *PipelineConfig) DeployOnly() bool {
	return c.Deploy != nil && len(c.Script) == 0 && len(c.BeforeDeploy) == 0
}
