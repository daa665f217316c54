package stages

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/cordovabuild/internal/foundation/errors"
	"git.home.luguber.info/inful/cordovabuild/internal/logfields"
	"git.home.luguber.info/inful/cordovabuild/internal/pipeline/hooks"
	"git.home.luguber.info/inful/cordovabuild/internal/pipeline/models"
	"git.home.luguber.info/inful/cordovabuild/internal/sanitize"
)

func cleanEnabled(bs *models.BuildState) bool {
	return bs.Options.Clean || (bs.Config != nil && bs.Config.Build.Clean)
}

// StageClean deletes the build directory when cleaning is enabled. A target
// that is not a directory is left alone with a warning.
func StageClean(ctx context.Context, bs *models.BuildState) error {
	if !cleanEnabled(bs) {
		slog.Debug("Clean disabled")
		return nil
	}
	path := bs.BuildPath()
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		slog.Warn("Nothing to clean, build path is not a directory", logfields.Path(path))
		bs.Report.AddWarning("clean: %s is not a directory", path)
		return nil
	}

	dispatch(ctx, bs, hooks.Before(string(models.StageClean)))
	if err := os.RemoveAll(path); err != nil {
		return models.NewFatalStageError(models.StageClean, errors.FileSystemError("failed to remove build directory").
			WithCause(err).
			WithContext("path", path).
			Build())
	}
	slog.Info("Build directory removed", logfields.Path(path))
	dispatch(ctx, bs, hooks.After(string(models.StageClean)))
	return nil
}

// StageCreate scaffolds the project when the build directory does not exist.
func StageCreate(ctx context.Context, bs *models.BuildState) error {
	path := bs.BuildPath()
	if _, err := os.Stat(path); err == nil {
		slog.Info("Build directory exists, skipping create", logfields.Path(path))
		return nil
	}
	if parent := filepath.Dir(path); parent != "." {
		if err := os.MkdirAll(parent, 0o750); err != nil {
			return models.NewFatalStageError(models.StageCreate, errors.FileSystemError("failed to create build parent directory").
				WithCause(err).
				WithContext("path", parent).
				Build())
		}
	}
	if err := bs.CLI.Create(ctx, bs.Manifest.ID, bs.Manifest.Name); err != nil {
		return models.NewFatalStageError(models.StageCreate, err)
	}
	return nil
}

// StageBeforeBuild dispatches the before_build hooks.
func StageBeforeBuild(ctx context.Context, bs *models.BuildState) error {
	dispatch(ctx, bs, string(models.StageBeforeBuild))
	return nil
}

// StageAfterBuild dispatches the after_build hooks.
func StageAfterBuild(ctx context.Context, bs *models.BuildState) error {
	dispatch(ctx, bs, string(models.StageAfterBuild))
	return nil
}

// StageSanitize makes the entry point reference the bridge script. A missing
// entry point is reported as a warning.
func StageSanitize(_ context.Context, bs *models.BuildState) error {
	entry := bs.EntryPoint()
	if _, err := os.Stat(entry); os.IsNotExist(err) {
		slog.Warn("Entry point not found, skipping sanitize", logfields.Path(entry))
		bs.Report.AddWarning("sanitize: %s not found", entry)
		return nil
	}
	changed, err := sanitize.EnsureBridgeScript(entry)
	if err != nil {
		return models.NewFatalStageError(models.StageSanitize, err)
	}
	if changed {
		slog.Info("Bridge script reference added", logfields.Path(entry), slog.String("script", sanitize.BridgeScript))
	}
	return nil
}

// perPlatform runs op for each target platform, stopping at the first failure.
func perPlatform(ctx context.Context, bs *models.BuildState, stage models.StageName, op func(context.Context, string) error) error {
	targets := bs.TargetPlatforms()
	if len(targets) == 0 {
		slog.Warn("No target platforms", logfields.Stage(string(stage)))
	}
	for _, p := range targets {
		slog.Info("Running platform step", logfields.Stage(string(stage)), logfields.Platform(p))
		if err := op(ctx, p); err != nil {
			return models.NewFatalStageError(stage, fmt.Errorf("platform %s: %w", p, err))
		}
	}
	return nil
}

// StagePrepare runs the CLI prepare step per target platform.
func StagePrepare(ctx context.Context, bs *models.BuildState) error {
	return perPlatform(ctx, bs, models.StagePrepare, bs.CLI.Prepare)
}

// StageCompile runs the CLI compile step per target platform.
func StageCompile(ctx context.Context, bs *models.BuildState) error {
	return perPlatform(ctx, bs, models.StageCompile, bs.CLI.Compile)
}

// StageRun runs the app on each target platform.
func StageRun(ctx context.Context, bs *models.BuildState) error {
	return perPlatform(ctx, bs, models.StageRun, bs.CLI.Run)
}
