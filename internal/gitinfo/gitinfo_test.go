package gitinfo

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-git/v5"
	gitcfg "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"
)

func initRepo(t *testing.T, branch string) (string, *git.Repository) {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInitWithOptions(dir, &git.PlainInitOptions{
		InitOptions: git.InitOptions{DefaultBranch: plumbing.NewBranchReferenceName(branch)},
	})
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("# test\n"), 0o644))
	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add("README.md")
	require.NoError(t, err)
	_, err = wt.Commit("initial", &git.CommitOptions{
		Author: &object.Signature{Name: "test", Email: "test@example.com"},
	})
	require.NoError(t, err)
	return dir, repo
}

func TestCurrentBranch(t *testing.T) {
	dir, _ := initRepo(t, "master")
	if got := CurrentBranch(dir); got != "master" {
		t.Errorf("CurrentBranch() = %q, want master", got)
	}
}

func TestCurrentBranchDetachedHead(t *testing.T) {
	dir, repo := initRepo(t, "master")

	head, err := repo.Head()
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)
	require.NoError(t, wt.Checkout(&git.CheckoutOptions{Hash: head.Hash()}))

	if got := CurrentBranch(dir); got != "" {
		t.Errorf("CurrentBranch() on detached HEAD = %q, want empty", got)
	}
}

func TestCurrentBranchNoRepository(t *testing.T) {
	if got := CurrentBranch(t.TempDir()); got != "" {
		t.Errorf("CurrentBranch() without repo = %q, want empty", got)
	}
}

func TestOriginURL(t *testing.T) {
	dir, repo := initRepo(t, "master")

	_, err := OriginURL(dir)
	require.Error(t, err, "no origin configured yet")

	_, err = repo.CreateRemote(&gitcfg.RemoteConfig{
		Name: git.DefaultRemoteName,
		URLs: []string{"https://github.com/example/lists.git"},
	})
	require.NoError(t, err)

	url, err := OriginURL(dir)
	require.NoError(t, err)
	require.Equal(t, "https://github.com/example/lists.git", url)
}

func TestSlug(t *testing.T) {
	cases := map[string]string{
		"https://github.com/example/lists.git":  "example/lists",
		"git@github.com:example/lists.git":      "example/lists",
		"ssh://git@forge.local/example/lists":   "example/lists",
		"https://forge.local/deep/example/repo": "example/repo",
		"nonsense":                              "",
	}
	for in, want := range cases {
		if got := Slug(in); got != want {
			t.Errorf("Slug(%q) = %q, want %q", in, got, want)
		}
	}
}
