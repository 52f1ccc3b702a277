// Package publish uploads the staged directory to the configured hosting
// provider.
package publish

import (
	"context"

	"git.home.luguber.info/inful/docship/internal/config"
	apperrors "git.home.luguber.info/inful/docship/internal/errors"
)

// Request describes one publish operation. A run publishes to a single
// destination; there is no multi-target fan-out.
type Request struct {
	// StagingDir holds the exact content to publish.
	StagingDir string
	// RemoteURL is the publish destination derived from the repository identity.
	RemoteURL string
	// Branch is the branch published to at the destination.
	Branch string
	// Token is the credential resolved from the environment.
	Token string
	// KeepHistory preserves prior published revisions. When false the
	// destination is hard-reset to a single revision.
	KeepHistory bool
	// Message annotates the published revision.
	Message string
}

// Publisher uploads staged content to a hosting provider.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, req Request) error
}

var registry = map[config.Provider]Publisher{
	config.ProviderPages: &PagesPublisher{},
}

// For returns the publisher registered for the provider.
func For(provider config.Provider) (Publisher, bool) {
	p, ok := registry[provider]
	return p, ok
}

// CredentialFromEnv resolves the named credential from the run context's
// environment. An absent or empty credential is an AuthError: the deploy
// phase must not proceed without it.
func CredentialFromEnv(env map[string]string, name string) (string, error) {
	token, ok := env[name]
	if !ok || token == "" {
		return "", apperrors.AuthError(name)
	}
	return token, nil
}
