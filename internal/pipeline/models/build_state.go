package models

import (
	"context"
	"path/filepath"

	"git.home.luguber.info/inful/cordovabuild/internal/config"
	"git.home.luguber.info/inful/cordovabuild/internal/loader"
	"git.home.luguber.info/inful/cordovabuild/internal/manifest"
	"git.home.luguber.info/inful/cordovabuild/internal/metrics"
	"git.home.luguber.info/inful/cordovabuild/internal/shell"
)

// CordovaCLI is the external build tool as seen by stages.
type CordovaCLI interface {
	BuildPath() string
	Create(ctx context.Context, id, name string) error
	AddPlatform(ctx context.Context, name string) error
	RemovePlatform(ctx context.Context, name string) error
	AddPlugin(ctx context.Context, src string, params map[string]string) error
	RemovePlugin(ctx context.Context, id string) error
	Prepare(ctx context.Context, platform string) error
	Compile(ctx context.Context, platform string) error
	Run(ctx context.Context, platform string) error
}

// PluginResolver resolves a plugin locator to a cache bucket.
type PluginResolver interface {
	Resolve(ctx context.Context, locator, version string) (loader.Result, error)
}

// HookDispatcher runs the actions attached to a hook point. Failures are
// reported by the dispatcher and never returned.
type HookDispatcher interface {
	Dispatch(ctx context.Context, point string)
}

// Options is the per-invocation input of a run.
type Options struct {
	Mode string
	// Source is the manifest source for init_config.
	Source manifest.Source
	// Platform restricts prepare/compile/run to one platform when set.
	Platform string
	// Clean forces the clean stage on regardless of config.
	Clean bool
}

// BuildState carries mutable state across stages. Each run owns its own
// instance, including the manifest.
type BuildState struct {
	Config   *config.Config
	Options  Options
	Manifest *manifest.Manifest

	CLI      CordovaCLI
	Loader   PluginResolver
	Shell    *shell.Handle
	Hooks    HookDispatcher
	Recorder metrics.Recorder
	Report   *BuildReport

	// Plugins memoizes resolved plugins by manifest plugin name.
	Plugins map[string]loader.Result
}

// NewBuildState constructs a BuildState with a fresh report.
func NewBuildState(cfg *config.Config, opts Options) *BuildState {
	return &BuildState{
		Config:   cfg,
		Options:  opts,
		Recorder: metrics.NoopRecorder{},
		Report:   NewBuildReport(opts.Mode),
		Plugins:  make(map[string]loader.Result),
	}
}

// BuildPath returns the build directory.
func (bs *BuildState) BuildPath() string {
	if bs.Config == nil || bs.Config.Build.Path == "" {
		return config.DefaultBuildPath
	}
	return bs.Config.Build.Path
}

// PackageFile returns the package metadata file used for manifest defaults.
func (bs *BuildState) PackageFile() string {
	if bs.Config == nil || bs.Config.Build.PackageFile == "" {
		return config.DefaultPackageFile
	}
	return bs.Config.Build.PackageFile
}

// EntryPoint returns the HTML entry point of the app inside the build's www dir.
func (bs *BuildState) EntryPoint() string {
	src := manifest.DefaultContentSrc
	if bs.Manifest != nil && bs.Manifest.Content != nil && bs.Manifest.Content.Src != "" {
		src = bs.Manifest.Content.Src
	}
	return filepath.Join(bs.BuildPath(), "www", filepath.FromSlash(src))
}

// TargetPlatforms returns the declared platforms, filtered by the platform
// selector when one is set.
func (bs *BuildState) TargetPlatforms() []string {
	if bs.Manifest == nil {
		return nil
	}
	names := bs.Manifest.Platforms.Names()
	selector := bs.Options.Platform
	if selector == "" && bs.Config != nil {
		selector = bs.Config.Build.Platform
	}
	if selector == "" {
		return names
	}
	for _, n := range names {
		if n == selector {
			return []string{n}
		}
	}
	return nil
}
