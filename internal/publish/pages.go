package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	gitcfg "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"

	apperrors "git.home.luguber.info/inful/docship/internal/errors"
	"git.home.luguber.info/inful/docship/internal/logfields"
	"git.home.luguber.info/inful/docship/internal/staging"
)

// PagesPublisher publishes the staged directory as a git pages branch.
//
// With history retention the existing branch is cloned and the new revision
// committed on top. Without it a fresh single-commit history is force-pushed,
// hard-resetting the published state.
type PagesPublisher struct{}

func (p *PagesPublisher) Name() string { return "pages" }

func (p *PagesPublisher) Publish(ctx context.Context, req Request) error {
	if _, err := os.Stat(req.StagingDir); err != nil {
		return apperrors.PublishError("staging directory not readable", err)
	}

	workdir, err := os.MkdirTemp("", "docship-publish-")
	if err != nil {
		return apperrors.PublishError("failed to create publish workdir", err)
	}
	defer os.RemoveAll(workdir)

	auth := authFor(req.RemoteURL, req.Token)
	branchRef := plumbing.NewBranchReferenceName(req.Branch)

	repo, err := p.prepareWorktree(ctx, workdir, branchRef, req, auth)
	if err != nil {
		return err
	}

	wt, err := repo.Worktree()
	if err != nil {
		return apperrors.PublishError("failed to open publish worktree", err)
	}

	if err := clearWorktree(workdir); err != nil {
		return apperrors.PublishError("failed to clear publish worktree", err)
	}
	if err := staging.CopyTree(req.StagingDir, workdir); err != nil {
		return apperrors.PublishError("failed to copy staged content", err)
	}

	if err := wt.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return apperrors.PublishError("failed to stage publish revision", err)
	}

	status, err := wt.Status()
	if err != nil {
		return apperrors.PublishError("failed to read publish status", err)
	}
	if status.IsClean() && req.KeepHistory {
		slog.Info("Published content unchanged, nothing to upload", logfields.Branch(req.Branch))
		return nil
	}

	_, err = wt.Commit(req.Message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  "docship",
			Email: "docship@noreply",
			When:  time.Now(),
		},
	})
	if err != nil {
		return apperrors.PublishError("failed to commit publish revision", err)
	}

	refSpec := gitcfg.RefSpec(fmt.Sprintf("%s:%s", branchRef, branchRef))
	if !req.KeepHistory {
		refSpec = gitcfg.RefSpec("+" + string(refSpec))
	}
	err = repo.PushContext(ctx, &git.PushOptions{
		RemoteName: git.DefaultRemoteName,
		RefSpecs:   []gitcfg.RefSpec{refSpec},
		Auth:       auth,
		Force:      !req.KeepHistory,
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return apperrors.PublishError("provider rejected the upload", err).
			WithContext("remote", req.RemoteURL).
			WithContext("branch", req.Branch)
	}

	slog.Info("Published staged content",
		logfields.Branch(req.Branch),
		slog.String("remote", req.RemoteURL),
		slog.Bool("keep_history", req.KeepHistory))
	return nil
}

// prepareWorktree produces a repository whose worktree will hold the new
// revision: a single-branch clone when history is retained, otherwise a
// fresh repository whose first commit replaces all published state.
func (p *PagesPublisher) prepareWorktree(ctx context.Context, workdir string, branchRef plumbing.ReferenceName, req Request, auth transport.AuthMethod) (*git.Repository, error) {
	if req.KeepHistory {
		repo, err := git.PlainCloneContext(ctx, workdir, false, &git.CloneOptions{
			URL:           req.RemoteURL,
			ReferenceName: branchRef,
			SingleBranch:  true,
			Auth:          auth,
		})
		if err == nil {
			return repo, nil
		}
		if !isMissingBranch(err) {
			return nil, apperrors.PublishError("failed to fetch published history", err).
				WithContext("remote", req.RemoteURL)
		}
		// Destination exists but the pages branch does not yet: start it.
		slog.Debug("No published history at destination, starting fresh branch", logfields.Branch(req.Branch))
	}

	repo, err := git.PlainInitWithOptions(workdir, &git.PlainInitOptions{
		InitOptions: git.InitOptions{DefaultBranch: branchRef},
	})
	if err != nil {
		return nil, apperrors.PublishError("failed to initialize publish repository", err)
	}
	if _, err := repo.CreateRemote(&gitcfg.RemoteConfig{
		Name: git.DefaultRemoteName,
		URLs: []string{req.RemoteURL},
	}); err != nil {
		return nil, apperrors.PublishError("failed to configure publish remote", err)
	}
	return repo, nil
}

// isMissingBranch classifies clone failures that mean "nothing published
// yet" rather than a transport or auth problem.
func isMissingBranch(err error) bool {
	if errors.Is(err, transport.ErrEmptyRemoteRepository) || errors.Is(err, plumbing.ErrReferenceNotFound) {
		return true
	}
	l := strings.ToLower(err.Error())
	return strings.Contains(l, "couldn't find remote ref") || strings.Contains(l, "reference not found")
}

// clearWorktree removes everything under dir except the .git directory so
// published state is replaced, never merged.
func clearWorktree(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.Name() == git.GitDirName {
			continue
		}
		if err := os.RemoveAll(filepath.Join(dir, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}

// authFor attaches token auth for http(s) destinations only; local file
// destinations need none.
func authFor(remoteURL, token string) transport.AuthMethod {
	if token == "" {
		return nil
	}
	if strings.HasPrefix(remoteURL, "http://") || strings.HasPrefix(remoteURL, "https://") {
		return &githttp.BasicAuth{Username: "x-access-token", Password: token}
	}
	return nil
}
