package staging

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "git.home.luguber.info/inful/docship/internal/errors"
)

func writeBuildOutput(t *testing.T, root string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "lists"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "lists", "index.html"), []byte("<h1>lists</h1>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "search-index.js"), []byte("var idx = [];"), 0o644))
}

// treeDigest hashes every path and file body under root, in sorted order.
func treeDigest(t *testing.T, root string) string {
	t.Helper()
	var paths []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(root, path)
		paths = append(paths, rel)
		return nil
	})
	require.NoError(t, err)
	sort.Strings(paths)

	h := sha256.New()
	for _, rel := range paths {
		io.WriteString(h, rel+"\n")
		full := filepath.Join(root, rel)
		if info, err := os.Stat(full); err == nil && info.Mode().IsRegular() {
			data, err := os.ReadFile(full)
			require.NoError(t, err)
			h.Write(data)
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

func TestStageCopiesAndRedirects(t *testing.T) {
	base := t.TempDir()
	source := filepath.Join(base, "target", "doc")
	writeBuildOutput(t, source)

	s := &Stager{Source: source, Dir: filepath.Join(base, "public"), RedirectTo: "lists/index.html"}
	require.NoError(t, s.Stage())

	copied, err := os.ReadFile(filepath.Join(s.Dir, "lists", "index.html"))
	require.NoError(t, err)
	assert.Equal(t, "<h1>lists</h1>", string(copied))

	index, err := os.ReadFile(filepath.Join(s.Dir, "index.html"))
	require.NoError(t, err)
	assert.Contains(t, string(index), `url=lists/index.html`)
	assert.Equal(t, 1, strings.Count(string(index), "http-equiv"), "exactly one redirect entry point")
}

func TestStageIdempotent(t *testing.T) {
	base := t.TempDir()
	source := filepath.Join(base, "target", "doc")
	writeBuildOutput(t, source)

	s := &Stager{Source: source, Dir: filepath.Join(base, "public"), RedirectTo: "lists/index.html"}

	require.NoError(t, s.Stage())
	first := treeDigest(t, s.Dir)

	require.NoError(t, s.Stage())
	second := treeDigest(t, s.Dir)

	assert.Equal(t, first, second, "re-staging identical input must be byte-identical")
}

func TestStageReplacesStaleContent(t *testing.T) {
	base := t.TempDir()
	source := filepath.Join(base, "target", "doc")
	writeBuildOutput(t, source)

	s := &Stager{Source: source, Dir: filepath.Join(base, "public")}
	require.NoError(t, s.Stage())

	stale := filepath.Join(s.Dir, "removed-page.html")
	require.NoError(t, os.WriteFile(stale, []byte("stale"), 0o644))

	require.NoError(t, s.Stage())
	_, err := os.Stat(stale)
	assert.True(t, os.IsNotExist(err), "staged content must be replaced, not merged")
}

func TestStageMissingSource(t *testing.T) {
	base := t.TempDir()
	s := &Stager{Source: filepath.Join(base, "does-not-exist"), Dir: filepath.Join(base, "public")}
	err := s.Stage()
	require.Error(t, err)
	assert.True(t, apperrors.IsCategory(err, apperrors.CategoryStaging))
}

func TestStageEmptySource(t *testing.T) {
	base := t.TempDir()
	source := filepath.Join(base, "target", "doc")
	require.NoError(t, os.MkdirAll(source, 0o755))

	s := &Stager{Source: source, Dir: filepath.Join(base, "public")}
	err := s.Stage()
	require.Error(t, err, "publishing nothing must fail rather than succeed silently")
	assert.True(t, apperrors.IsCategory(err, apperrors.CategoryStaging))
}
