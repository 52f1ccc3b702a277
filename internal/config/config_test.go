package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "git.home.luguber.info/inful/docship/internal/errors"
)

const fullDoc = `
toolchain: rust
channel: stable
matrix: [stable, beta, nightly]
env:
  RUST_BACKTRACE: "1"
sudo: false
notifications:
  email: false
script:
  - cargo build
  - cargo test
before_deploy:
  - cargo doc --no-deps
deploy:
  provider: pages
  token_env: GH_TOKEN
  source: target/doc
  redirect_to: lists/index.html
  on_branch: master
  keep_history: false
`

func TestParseFullDocument(t *testing.T) {
	cfg, err := Parse([]byte(fullDoc))
	require.NoError(t, err)

	assert.Equal(t, "rust", cfg.Toolchain)
	assert.Equal(t, []string{"stable", "beta", "nightly"}, cfg.Variants())
	assert.Equal(t, "1", cfg.Env["RUST_BACKTRACE"])
	assert.Equal(t, []string{"cargo build", "cargo test"}, cfg.Script)
	assert.Equal(t, []string{"cargo doc --no-deps"}, cfg.BeforeDeploy)

	require.NotNil(t, cfg.Deploy)
	assert.Equal(t, ProviderPages, cfg.Deploy.Provider)
	assert.Equal(t, "GH_TOKEN", cfg.Deploy.TokenEnv)
	assert.Equal(t, "master", cfg.Deploy.OnBranch)
	assert.False(t, cfg.Deploy.KeepHistory)

	// Defaults applied to omitted deploy keys.
	assert.Equal(t, "gh-pages", cfg.Deploy.PagesBranch)
	assert.Equal(t, "public", cfg.Deploy.StagingDir)
}

func TestParseEmptyMatrixFails(t *testing.T) {
	_, err := Parse([]byte("toolchain: rust\nscript: [cargo build]\n"))
	require.Error(t, err)
	assert.True(t, apperrors.IsCategory(err, apperrors.CategoryConfig))
}

func TestChannelFallsBackAsSingleVariantMatrix(t *testing.T) {
	cfg, err := Parse([]byte("toolchain: rust\nchannel: stable\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"stable"}, cfg.Variants())
}

func TestDeployWithoutCommandsIsLegal(t *testing.T) {
	cfg, err := Parse([]byte(`
toolchain: rust
channel: stable
deploy:
  provider: pages
  token_env: GH_TOKEN
  source: target/doc
  on_branch: master
`))
	require.NoError(t, err)
	assert.True(t, cfg.DeployOnly())
}

func TestDeployValidation(t *testing.T) {
	cases := []struct {
		name string
		doc  string
	}{
		{"unknown provider", `
toolchain: rust
channel: stable
deploy:
  provider: s3
  token_env: GH_TOKEN
  source: target/doc
  on_branch: master
`},
		{"empty credential reference", `
toolchain: rust
channel: stable
deploy:
  provider: pages
  token_env: ""
  source: target/doc
  on_branch: master
`},
		{"missing source", `
toolchain: rust
channel: stable
deploy:
  provider: pages
  token_env: GH_TOKEN
  on_branch: master
`},
		{"missing branch predicate", `
toolchain: rust
channel: stable
deploy:
  provider: pages
  token_env: GH_TOKEN
  source: target/doc
`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.doc))
			require.Error(t, err)
		})
	}
}

func TestNotificationsPassedThroughUnused(t *testing.T) {
	cfg, err := Parse([]byte(`
toolchain: rust
channel: stable
notifications:
  email:
    recipients: [dev@example.com]
`))
	require.NoError(t, err)
	assert.Contains(t, cfg.Notifications, "email")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, apperrors.IsCategory(err, apperrors.CategoryConfig))
}

func TestParseLeavesShellVariablesLiteral(t *testing.T) {
	t.Setenv("GH_TOKEN", "hunter2")
	cfg, err := Parse([]byte(`
toolchain: rust
channel: stable
script:
  - cargo +$DOCSHIP_TOOLCHAIN build
  - echo deploying with $GH_TOKEN
deploy:
  provider: pages
  token_env: GH_TOKEN
  source: target/doc
  on_branch: master
`))
	require.NoError(t, err)

	// Variable references survive parsing untouched; the shell resolves
	// them against the leg environment when the command runs.
	assert.Equal(t, "cargo +$DOCSHIP_TOOLCHAIN build", cfg.Script[0])
	assert.Equal(t, "echo deploying with $GH_TOKEN", cfg.Script[1])
	assert.NotContains(t, cfg.Script[1], "hunter2")

	// Only the env var name is recorded for the credential.
	assert.Equal(t, "GH_TOKEN", cfg.Deploy.TokenEnv)
}

func TestInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".docship.yaml")
	require.NoError(t, Init(path, false))

	// Refuses to overwrite without force.
	require.Error(t, Init(path, false))
	require.NoError(t, Init(path, true))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	cfg, err := Parse(data)
	require.NoError(t, err)
	require.NotNil(t, cfg.Deploy)

	// The starter redirect must point into the doc output, never at the
	// synthesized index itself.
	assert.NotEqual(t, "index.html", cfg.Deploy.RedirectTo)
	assert.Contains(t, cfg.Deploy.RedirectTo, "/")
}

func TestNormalizeProvider(t *testing.T) {
	assert.Equal(t, ProviderPages, NormalizeProvider(" Pages "))
	assert.Equal(t, Provider(""), NormalizeProvider("heroku"))
}
