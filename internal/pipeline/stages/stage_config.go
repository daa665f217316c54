package stages

import (
	"context"
	"log/slog"

	"git.home.luguber.info/inful/cordovabuild/internal/logfields"
	"git.home.luguber.info/inful/cordovabuild/internal/manifest"
	"git.home.luguber.info/inful/cordovabuild/internal/pipeline/models"
)

// StageInitConfig loads the manifest source, merges it over the package
// defaults and validates the identity fields.
func StageInitConfig(_ context.Context, bs *models.BuildState) error {
	src := bs.Options.Source
	if src.IsZero() && bs.Config != nil {
		src = manifest.Source{Inline: bs.Config.Manifest, File: bs.Config.ManifestFile}
	}
	loaded, err := manifest.Load(src)
	if err != nil {
		return models.NewFatalStageError(models.StageInitConfig, err)
	}
	pkg, err := manifest.ReadPackageInfo(bs.PackageFile())
	if err != nil {
		return models.NewFatalStageError(models.StageInitConfig, err)
	}
	m, err := manifest.Assemble(pkg, loaded)
	if err != nil {
		return models.NewFatalStageError(models.StageInitConfig, err)
	}
	bs.Manifest = m
	slog.Info("Manifest loaded",
		slog.String("id", m.ID),
		logfields.Version(m.Version),
		slog.Int("platforms", len(m.Platforms)),
		slog.Int("plugins", len(m.AllPlugins())))
	return nil
}

// StageWriteConfig materializes the manifest as <build>/config.xml.
func StageWriteConfig(_ context.Context, bs *models.BuildState) error {
	if err := manifest.WriteFile(bs.BuildPath(), bs.Manifest); err != nil {
		return models.NewFatalStageError(models.StageWriteConfig, err)
	}
	slog.Debug("Manifest written", logfields.Path(manifest.Path(bs.BuildPath())))
	return nil
}

// StageReadConfig replaces the in-memory manifest with the decoded on-disk one.
func StageReadConfig(_ context.Context, bs *models.BuildState) error {
	m, err := manifest.ReadBuildFile(bs.BuildPath())
	if err != nil {
		return models.NewFatalStageError(models.StageReadConfig, err)
	}
	bs.Manifest = m
	return nil
}
