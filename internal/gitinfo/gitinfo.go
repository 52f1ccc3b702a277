// Package gitinfo resolves branch and remote metadata from the repository
// the pipeline runs in. Resolution is best-effort: a detached HEAD, a tag
// build, or no repository at all yield an empty branch name, which the
// deploy gate treats as "never deploy" rather than as a failure.
package gitinfo

import (
	"log/slog"
	"strings"

	"github.com/go-git/go-git/v5"

	apperrors "git.home.luguber.info/inful/docship/internal/errors"
	"git.home.luguber.info/inful/docship/internal/logfields"
)

// CurrentBranch returns the branch name checked out at dir, or "" when HEAD
// is detached or dir is not inside a git repository.
func CurrentBranch(dir string) string {
	repo, err := open(dir)
	if err != nil {
		slog.Debug("No git repository for branch resolution", logfields.Path(dir), logfields.Error(err))
		return ""
	}

	head, err := repo.Head()
	if err != nil {
		slog.Debug("Could not resolve HEAD", logfields.Error(err))
		return ""
	}
	if !head.Name().IsBranch() {
		// Detached HEAD (tag or commit build).
		return ""
	}
	return head.Name().Short()
}

// OriginURL returns the URL of the origin remote at dir.
func OriginURL(dir string) (string, error) {
	repo, err := open(dir)
	if err != nil {
		return "", apperrors.GitError("open repository", err).WithContext("path", dir)
	}
	remote, err := repo.Remote(git.DefaultRemoteName)
	if err != nil {
		return "", apperrors.GitError("resolve origin remote", err)
	}
	urls := remote.Config().URLs
	if len(urls) == 0 {
		return "", apperrors.GitError("resolve origin remote", nil).
			WithContext("reason", "origin remote has no URL")
	}
	return urls[0], nil
}

// Slug derives the repository identity ("owner/name") from a remote URL.
// Supports https and scp-like ssh forms; returns "" when the URL does not
// look like a forge repository.
func Slug(remoteURL string) string {
	s := strings.TrimSuffix(remoteURL, ".git")
	if i := strings.Index(s, "://"); i >= 0 {
		s = s[i+3:]
	}
	if i := strings.Index(s, "@"); i >= 0 {
		s = s[i+1:]
	}
	s = strings.Replace(s, ":", "/", 1)
	parts := strings.Split(s, "/")
	if len(parts) < 3 {
		return ""
	}
	return strings.Join(parts[len(parts)-2:], "/")
}

func open(dir string) (*git.Repository, error) {
	return git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
}
