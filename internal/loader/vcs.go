package loader

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"git.home.luguber.info/inful/cordovabuild/internal/auth"
	"git.home.luguber.info/inful/cordovabuild/internal/config"
	"git.home.luguber.info/inful/cordovabuild/internal/foundation/errors"
	"git.home.luguber.info/inful/cordovabuild/internal/logfields"
)

// DefaultVCSLabel names the version folder of an unpinned clone whose HEAD
// is not a branch.
const DefaultVCSLabel = "master"

// cloneVCS clones locator into dest, pinned to version when given (branch
// first, then tag). It strips VCS metadata and returns the version label for
// the cache bucket.
func cloneVCS(ctx context.Context, locator, version, dest string, cfg config.VCSConfig) (string, error) {
	url := cloneURL(locator)
	opts := &git.CloneOptions{URL: url}
	if cfg.ShallowDepth > 0 {
		opts.Depth = cfg.ShallowDepth
	}
	if !isLocalPath(url) {
		method, err := auth.CreateAuth(cfg.Auth)
		if err != nil {
			return "", err
		}
		opts.Auth = method
	}

	slog.Debug("Cloning plugin", logfields.URL(url), logfields.Version(version), logfields.Path(dest))

	var (
		repo *git.Repository
		err  error
	)
	if version == "" {
		repo, err = git.PlainCloneContext(ctx, dest, false, opts)
	} else {
		repo, err = clonePinned(ctx, dest, version, opts)
	}
	if err != nil {
		return "", errors.FetchError("failed to clone plugin repository").
			WithCause(err).
			WithContext("url", url).
			WithContext("version", version).
			Build()
	}

	label := version
	if label == "" {
		label = headLabel(repo)
	}
	if err := os.RemoveAll(filepath.Join(dest, git.GitDirName)); err != nil {
		return "", errors.FileSystemError("failed to strip VCS metadata").
			WithCause(err).
			WithContext("path", dest).
			Build()
	}
	return label, nil
}

func clonePinned(ctx context.Context, dest, version string, base *git.CloneOptions) (*git.Repository, error) {
	refs := []plumbing.ReferenceName{
		plumbing.NewBranchReferenceName(version),
		plumbing.NewTagReferenceName(version),
	}
	var lastErr error
	for _, ref := range refs {
		opts := *base
		opts.ReferenceName = ref
		opts.SingleBranch = true
		repo, err := git.PlainCloneContext(ctx, dest, false, &opts)
		if err == nil {
			return repo, nil
		}
		lastErr = err
		if rmErr := os.RemoveAll(dest); rmErr != nil {
			return nil, rmErr
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}

func headLabel(repo *git.Repository) string {
	head, err := repo.Head()
	if err != nil || !head.Name().IsBranch() {
		return DefaultVCSLabel
	}
	return head.Name().Short()
}

// cloneURL is the canonical locator, with local paths left as filesystem paths.
func cloneURL(locator string) string {
	return strings.TrimSpace(Canonical(locator))
}
