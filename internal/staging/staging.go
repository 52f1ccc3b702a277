// Package staging assembles the publish directory from build output.
package staging

import (
	"fmt"
	"html"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	apperrors "git.home.luguber.info/inful/docship/internal/errors"
	"git.home.luguber.info/inful/docship/internal/logfields"
	"git.home.luguber.info/inful/docship/internal/workspace"
)

// Stager copies the toolchain's output directory into the staging directory
// and synthesizes the redirect entry point.
type Stager struct {
	// Source is the build output directory produced by the pre-deploy phase.
	Source string
	// Dir is the staging directory the publisher reads from.
	Dir string
	// RedirectTo is the sub-path within the copied tree the synthesized
	// index document forwards to. Empty skips the redirect.
	RedirectTo string
}

const indexRedirectTemplate = `<!DOCTYPE html>
<html>
<head>
<meta http-equiv="refresh" content="0; url=%s">
<title>Redirecting</title>
</head>
<body><a href="%s">Redirecting…</a></body>
</html>
`

// Stage builds the staging directory. Prior staged content is fully
// replaced so re-running with the same inputs produces byte-identical
// output. A missing or empty source directory is a StagingError: it means
// the build phase did not produce the expected artifacts.
func (s *Stager) Stage() error {
	entries, err := os.ReadDir(s.Source)
	if err != nil || len(entries) == 0 {
		return apperrors.StagingSourceMissing(s.Source)
	}

	ws := workspace.NewManager(s.Dir)
	if err := ws.EnsureFresh(); err != nil {
		return apperrors.StagingError("failed to prepare staging directory", err)
	}

	if err := CopyTree(s.Source, s.Dir); err != nil {
		return apperrors.StagingError("failed to copy build output", err)
	}

	if s.RedirectTo != "" {
		if err := s.writeRedirectIndex(); err != nil {
			return apperrors.StagingError("failed to write redirect index", err)
		}
	}

	slog.Info("Staged build output",
		logfields.Path(s.Dir),
		slog.String("source", s.Source),
		slog.String("redirect_to", s.RedirectTo))
	return nil
}

// writeRedirectIndex synthesizes exactly one index.html forwarding to the
// fixed sub-path within the copied tree.
func (s *Stager) writeRedirectIndex() error {
	target := html.EscapeString(s.RedirectTo)
	content := fmt.Sprintf(indexRedirectTemplate, target, target)
	return os.WriteFile(filepath.Join(s.Dir, "index.html"), []byte(content), 0o644)
}

// CopyTree copies src into dst byte-for-byte, preserving file modes.
// Traversal is sorted so repeated runs touch files in the same order.
// The publisher reuses it to fill the publish worktree from the staged tree.
func CopyTree(src, dst string) error {
	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		srcPath := filepath.Join(src, entry.Name())
		dstPath := filepath.Join(dst, entry.Name())

		info, err := entry.Info()
		if err != nil {
			return err
		}

		switch {
		case entry.IsDir():
			if err := os.MkdirAll(dstPath, info.Mode().Perm()); err != nil {
				return err
			}
			if err := CopyTree(srcPath, dstPath); err != nil {
				return err
			}
		case info.Mode().IsRegular():
			if err := copyFile(srcPath, dstPath, info.Mode().Perm()); err != nil {
				return err
			}
		default:
			// Symlinks and other special files are not part of doc output.
			slog.Debug("Skipping non-regular file during staging", logfields.Path(srcPath))
		}
	}
	return nil
}

func copyFile(src, dst string, perm os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
