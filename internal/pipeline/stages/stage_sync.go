package stages

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"git.home.luguber.info/inful/cordovabuild/internal/loader"
	"git.home.luguber.info/inful/cordovabuild/internal/logfields"
	"git.home.luguber.info/inful/cordovabuild/internal/pipeline/models"
)

// installed lists the subdirectory names of <build>/<sub>.
func installed(bs *models.BuildState, sub string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(bs.BuildPath(), sub))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func toSet(names []string) map[string]bool {
	s := make(map[string]bool, len(names))
	for _, n := range names {
		s[n] = true
	}
	return s
}

// StageRemovePlatforms removes installed platforms the manifest no longer declares.
func StageRemovePlatforms(ctx context.Context, bs *models.BuildState) error {
	have, err := installed(bs, "platforms")
	if err != nil {
		return models.NewFatalStageError(models.StageRemovePlatforms, err)
	}
	want := toSet(bs.Manifest.Platforms.Names())
	for _, p := range have {
		if want[p] {
			continue
		}
		slog.Info("Removing platform", logfields.Platform(p))
		if err := bs.CLI.RemovePlatform(ctx, p); err != nil {
			return models.NewFatalStageError(models.StageRemovePlatforms, fmt.Errorf("platform %s: %w", p, err))
		}
	}
	return nil
}

// StageAddPlatforms adds declared platforms that are not installed yet.
func StageAddPlatforms(ctx context.Context, bs *models.BuildState) error {
	have, err := installed(bs, "platforms")
	if err != nil {
		return models.NewFatalStageError(models.StageAddPlatforms, err)
	}
	present := toSet(have)
	for _, p := range bs.Manifest.Platforms.Names() {
		if present[p] {
			continue
		}
		slog.Info("Adding platform", logfields.Platform(p))
		if err := bs.CLI.AddPlatform(ctx, p); err != nil {
			return models.NewFatalStageError(models.StageAddPlatforms, fmt.Errorf("platform %s: %w", p, err))
		}
	}
	return nil
}

// resolvePlugins resolves every declared plugin through the loader, once per
// run. Results are memoized on the build state by plugin name.
func resolvePlugins(ctx context.Context, bs *models.BuildState, stage models.StageName) error {
	plugins := bs.Manifest.AllPlugins()
	for _, name := range plugins.Names() {
		if _, ok := bs.Plugins[name]; ok {
			continue
		}
		if bs.Loader == nil {
			return models.NewFatalStageError(stage, fmt.Errorf("no plugin loader configured"))
		}
		res, err := bs.Loader.Resolve(ctx, name, plugins[name].Version)
		if err != nil {
			return models.NewFatalStageError(stage, fmt.Errorf("plugin %s: %w", name, err))
		}
		bs.Plugins[name] = res
		bs.Report.AddPlugin(res.ID, res.Version)
		slog.Info("Plugin resolved",
			logfields.Plugin(res.ID),
			logfields.Version(res.Version),
			logfields.Locator(name),
			logfields.Path(res.Path),
			slog.Bool("cached", res.Cached))
	}
	return nil
}

// StageRemovePlugins removes installed plugins whose id no declared plugin
// resolves to.
func StageRemovePlugins(ctx context.Context, bs *models.BuildState) error {
	have, err := installed(bs, "plugins")
	if err != nil {
		return models.NewFatalStageError(models.StageRemovePlugins, err)
	}
	if len(have) == 0 {
		return nil
	}
	if err := resolvePlugins(ctx, bs, models.StageRemovePlugins); err != nil {
		return err
	}
	want := make(map[string]bool, len(bs.Plugins))
	for _, res := range bs.Plugins {
		want[res.ID] = true
	}
	for _, id := range have {
		if want[id] {
			continue
		}
		slog.Info("Removing plugin", logfields.Plugin(id))
		if err := bs.CLI.RemovePlugin(ctx, id); err != nil {
			return models.NewFatalStageError(models.StageRemovePlugins, fmt.Errorf("plugin %s: %w", id, err))
		}
	}
	return nil
}

// StageAddPlugins resolves declared plugins and adds those not installed,
// passing params as CLI variables.
func StageAddPlugins(ctx context.Context, bs *models.BuildState) error {
	if err := resolvePlugins(ctx, bs, models.StageAddPlugins); err != nil {
		return err
	}
	have, err := installed(bs, "plugins")
	if err != nil {
		return models.NewFatalStageError(models.StageAddPlugins, err)
	}
	present := toSet(have)
	plugins := bs.Manifest.AllPlugins()
	for _, name := range plugins.Names() {
		res := bs.Plugins[name]
		if present[res.ID] {
			continue
		}
		slog.Info("Adding plugin", logfields.Plugin(res.ID), logfields.Version(res.Version))
		if err := bs.CLI.AddPlugin(ctx, res.Path, plugins[name].Params); err != nil {
			return models.NewFatalStageError(models.StageAddPlugins, fmt.Errorf("plugin %s: %w", res.ID, err))
		}
		present[res.ID] = true
	}
	return nil
}

var (
	_ models.PluginResolver = (*loader.Loader)(nil)
	_ models.PluginResolver = (*loader.Lazy)(nil)
)
