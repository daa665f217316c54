package stages

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/cordovabuild/internal/config"
	"git.home.luguber.info/inful/cordovabuild/internal/cordova"
	"git.home.luguber.info/inful/cordovabuild/internal/foundation/errors"
	"git.home.luguber.info/inful/cordovabuild/internal/loader"
	"git.home.luguber.info/inful/cordovabuild/internal/manifest"
	"git.home.luguber.info/inful/cordovabuild/internal/pipeline/hooks"
	"git.home.luguber.info/inful/cordovabuild/internal/pipeline/models"
	"git.home.luguber.info/inful/cordovabuild/internal/shell"
	"git.home.luguber.info/inful/cordovabuild/internal/shell/shelltest"
)

type hookLog struct{ points []string }

func (h *hookLog) Dispatch(_ context.Context, point string) { h.points = append(h.points, point) }

type fakeLoader struct {
	results map[string]loader.Result
	calls   map[string]int
}

func (f *fakeLoader) Resolve(_ context.Context, locator, version string) (loader.Result, error) {
	f.calls[locator]++
	res, ok := f.results[locator]
	if !ok {
		return loader.Result{}, errors.FetchError("no such plugin").WithContext("locator", locator).Build()
	}
	res.Version = version
	return res, nil
}

type fixture struct {
	bs    *models.BuildState
	rec   *shelltest.Recorder
	hooks *hookLog
	dir   string
}

func newFixture(t *testing.T, mode Mode, tree map[string]any) *fixture {
	t.Helper()
	base := t.TempDir()
	cfg := &config.Config{
		Build: config.BuildConfig{
			Path:        filepath.Join(base, "cordova"),
			CLI:         "cordova",
			PackageFile: filepath.Join(base, "package.json"),
		},
		Manifest: tree,
	}
	rec := shelltest.New()
	log := &hookLog{}
	bs := models.NewBuildState(cfg, models.Options{Mode: string(mode)})
	bs.CLI = cordova.New(rec, cfg.Build.CLI, cfg.Build.Path)
	bs.Shell = shell.NewHandle(rec, "")
	bs.Hooks = log
	return &fixture{bs: bs, rec: rec, hooks: log, dir: cfg.Build.Path}
}

func appTree() map[string]any {
	return map[string]any{
		"id":        "com.example.app",
		"name":      "Example",
		"version":   "1.2.3",
		"platforms": []any{"android", "browser"},
	}
}

func mkdirs(t *testing.T, root string, dirs ...string) {
	t.Helper()
	for _, d := range dirs {
		require.NoError(t, os.MkdirAll(filepath.Join(root, filepath.FromSlash(d)), 0o750))
	}
}

func TestCreateFailureAbortsPipeline(t *testing.T) {
	f := newFixture(t, ModeBuild, appTree())
	f.rec.FailOn("cordova create", 1)

	defs, err := PlanMode(ModeBuild)
	require.NoError(t, err)
	err = RunStages(context.Background(), f.bs, defs)
	require.Error(t, err)

	var se *models.StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, models.StageCreate, se.Stage)
	assert.Equal(t, models.StageErrorFatal, se.Kind)
	assert.True(t, errors.HasCategory(err, errors.CategorySubprocess))
	code, ok := shell.ExitCode(err)
	require.True(t, ok)
	assert.Equal(t, 1, code)

	assert.Equal(t, []models.StageName{models.StageInitConfig, models.StageClean, models.StageCreate}, f.bs.Report.StageNames())
	assert.Len(t, f.rec.Commands(), 1)
	assert.NoFileExists(t, manifest.Path(f.dir))
	assert.Equal(t, models.OutcomeFailed, f.bs.Report.Outcome)
	assert.NotContains(t, f.hooks.points, "after_create")
	assert.NotContains(t, f.hooks.points, "before_build")
}

func TestInitConfigRequiresIdentity(t *testing.T) {
	f := newFixture(t, ModeConfigure, map[string]any{"id": "com.example.app"})
	err := RunStages(context.Background(), f.bs, Plan([]models.StageName{models.StageInitConfig, models.StageWriteConfig}))
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryValidation))
	assert.Empty(t, f.rec.Commands())
	assert.False(t, f.bs.Report.Ran(models.StageWriteConfig))
}

func TestInitConfigUsesPackageDefaults(t *testing.T) {
	f := newFixture(t, ModeConfigure, appTree())
	require.NoError(t, os.WriteFile(f.bs.PackageFile(),
		[]byte(`{"name":"example","version":"9.9.9","description":"From package","author":"Jane Doe <jane@example.com> (https://example.com)"}`), 0o600))

	require.NoError(t, StageInitConfig(context.Background(), f.bs))
	m := f.bs.Manifest
	assert.Equal(t, "1.2.3", m.Version)
	assert.Equal(t, "From package", m.Description)
	require.NotNil(t, m.Author)
	assert.Equal(t, "Jane Doe", m.Author.Name)
	assert.Equal(t, "jane@example.com", m.Author.Email)
}

func TestConfigureModeWritesAndRereadsManifest(t *testing.T) {
	tree := appTree()
	tree["preferences"] = map[string]any{"Fullscreen": "true"}
	f := newFixture(t, ModeConfigure, tree)
	mkdirs(t, f.dir, "platforms/android")

	defs, err := PlanMode(ModeConfigure)
	require.NoError(t, err)
	require.NoError(t, RunStages(context.Background(), f.bs, defs))

	assert.FileExists(t, manifest.Path(f.dir))
	onDisk, err := manifest.ReadBuildFile(f.dir)
	require.NoError(t, err)
	assert.Equal(t, onDisk, f.bs.Manifest)
	assert.Equal(t, "true", f.bs.Manifest.Preferences["Fullscreen"])

	assert.Equal(t, []string{"platform add browser"}, f.rec.Lines())
	assert.Equal(t, models.OutcomeCompleted, f.bs.Report.Outcome)
	assert.Contains(t, f.hooks.points, "before_write_config")
	assert.Contains(t, f.hooks.points, "after_add_plugins")
}

func TestPlatformDiff(t *testing.T) {
	f := newFixture(t, ModeConfigure, appTree())
	mkdirs(t, f.dir, "platforms/ios", "platforms/android")
	require.NoError(t, StageInitConfig(context.Background(), f.bs))

	err := RunStages(context.Background(), f.bs, Plan([]models.StageName{models.StageRemovePlatforms, models.StageAddPlatforms}))
	require.NoError(t, err)
	assert.Equal(t, []string{"platform remove ios", "platform add browser"}, f.rec.Lines())
}

func TestPlatformFailureAbortsStage(t *testing.T) {
	tree := appTree()
	tree["platforms"] = []any{"android", "browser", "ios"}
	f := newFixture(t, ModeConfigure, tree)
	f.rec.FailOn("platform add android", 2)
	require.NoError(t, StageInitConfig(context.Background(), f.bs))

	err := RunStages(context.Background(), f.bs, Plan([]models.StageName{models.StageAddPlatforms, models.StageAddPlugins}))
	require.Error(t, err)
	assert.Equal(t, []string{"platform add android"}, f.rec.Lines())
	assert.False(t, f.bs.Report.Ran(models.StageAddPlugins))
}

func TestPluginSync(t *testing.T) {
	tree := appTree()
	tree["plugins"] = map[string]any{
		"cordova-plugin-device": "2.1.0",
		"https://example.com/camera.git": map[string]any{
			"version": "v1",
			"params":  map[string]any{"API_KEY": "abc", "MODE": "fast"},
		},
	}
	f := newFixture(t, ModeConfigure, tree)
	mkdirs(t, f.dir, "plugins/org.old.plugin", "plugins/org.apache.cordova.device")
	fl := &fakeLoader{
		calls: map[string]int{},
		results: map[string]loader.Result{
			"cordova-plugin-device":          {ID: "org.apache.cordova.device", Path: "cache/plugins/a/org.apache.cordova.device/2.1.0"},
			"https://example.com/camera.git": {ID: "org.apache.cordova.camera", Path: "cache/plugins/b/org.apache.cordova.camera/v1"},
		},
	}
	f.bs.Loader = fl
	require.NoError(t, StageInitConfig(context.Background(), f.bs))

	err := RunStages(context.Background(), f.bs, Plan([]models.StageName{models.StageRemovePlugins, models.StageAddPlugins}))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"plugin rm org.old.plugin",
		"plugin add cache/plugins/b/org.apache.cordova.camera/v1 --variable API_KEY=abc --variable MODE=fast",
	}, f.rec.Lines())
	assert.Equal(t, 1, fl.calls["cordova-plugin-device"])
	assert.Equal(t, 1, fl.calls["https://example.com/camera.git"])
	assert.Equal(t, []string{"org.apache.cordova.camera@v1", "org.apache.cordova.device@2.1.0"}, f.bs.Report.Plugins)
	for _, c := range f.rec.Commands() {
		assert.Equal(t, f.dir, c.Dir)
	}
}

func TestPluginResolveFailureAbortsStage(t *testing.T) {
	tree := appTree()
	tree["plugins"] = map[string]any{"missing-plugin": "1.0.0"}
	f := newFixture(t, ModeConfigure, tree)
	f.bs.Loader = &fakeLoader{calls: map[string]int{}, results: map[string]loader.Result{}}
	require.NoError(t, StageInitConfig(context.Background(), f.bs))

	err := StageAddPlugins(context.Background(), f.bs)
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryFetch))
	assert.Empty(t, f.rec.Commands())
}

func TestSanitizeIsIdempotent(t *testing.T) {
	f := newFixture(t, ModeCompile, appTree())
	mkdirs(t, f.dir, "www")
	entry := filepath.Join(f.dir, "www", "index.html")
	require.NoError(t, os.WriteFile(entry, []byte("<html><head><title>x</title></head><body></body></html>"), 0o600))

	require.NoError(t, StageSanitize(context.Background(), f.bs))
	require.NoError(t, StageSanitize(context.Background(), f.bs))

	data, err := os.ReadFile(entry)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(data), `src="cordova.js"`))
}

func TestSanitizeMissingEntryPointWarns(t *testing.T) {
	f := newFixture(t, ModeCompile, appTree())
	require.NoError(t, StageSanitize(context.Background(), f.bs))
	assert.Len(t, f.bs.Report.Warnings, 1)
}

func TestCleanStage(t *testing.T) {
	f := newFixture(t, ModeClean, appTree())
	require.NoError(t, StageClean(context.Background(), f.bs))
	assert.Empty(t, f.hooks.points)

	f.bs.Options.Clean = true
	require.NoError(t, StageClean(context.Background(), f.bs))
	assert.Len(t, f.bs.Report.Warnings, 1)
	assert.Empty(t, f.hooks.points)

	mkdirs(t, f.dir, "www")
	require.NoError(t, StageClean(context.Background(), f.bs))
	assert.NoDirExists(t, f.dir)
	assert.Equal(t, []string{"before_clean", "after_clean"}, f.hooks.points)
}

func TestCleanHookCommandsRunAroundDeletion(t *testing.T) {
	f := newFixture(t, ModeClean, appTree())
	f.bs.Options.Clean = true
	mkdirs(t, f.dir, "www")

	marks := filepath.Dir(f.dir)
	before := filepath.Join(marks, "before_clean.mark")
	after := filepath.Join(marks, "after_clean.mark")
	set := hooks.Set{}.
		Add(hooks.Before("clean"), hooks.Command("test -d '"+f.dir+"' && touch '"+before+"'")).
		Add(hooks.After("clean"), hooks.Command("test ! -e '"+f.dir+"' && touch '"+after+"'"))

	var warnings []string
	d := hooks.NewDispatcher(set, shell.NewHandle(shell.OSExecutor{}, ""), f.dir)
	d.OnWarning = func(msg string) { warnings = append(warnings, msg) }
	f.bs.Hooks = d

	require.NoError(t, StageClean(context.Background(), f.bs))
	assert.NoDirExists(t, f.dir)
	assert.Empty(t, warnings)
	assert.FileExists(t, before)
	assert.FileExists(t, after)
}

func TestCompileModeHonoursPlatformSelector(t *testing.T) {
	f := newFixture(t, ModeCompile, appTree())
	mkdirs(t, f.dir, "platforms")
	require.NoError(t, StageInitConfig(context.Background(), f.bs))
	require.NoError(t, StageWriteConfig(context.Background(), f.bs))
	f.bs.Manifest = nil
	f.bs.Options.Platform = "android"

	defs, err := PlanMode(ModeCompile)
	require.NoError(t, err)
	require.NoError(t, RunStages(context.Background(), f.bs, defs))

	assert.Equal(t, []string{"prepare android", "compile android"}, f.rec.Lines())
	assert.Equal(t, []string{
		"before_read_config", "after_read_config",
		"before_build",
		"before_sanitize", "after_sanitize",
		"before_prepare", "after_prepare",
		"before_compile", "after_compile",
		"after_build",
	}, f.hooks.points)
}

func TestAfterHookOnlyOnSuccess(t *testing.T) {
	f := newFixture(t, ModeRun, appTree())
	err := RunStages(context.Background(), f.bs, Plan([]models.StageName{models.StageReadConfig, models.StageRun}))
	require.Error(t, err)
	assert.Equal(t, []string{"before_read_config"}, f.hooks.points)
	assert.False(t, f.bs.Report.Ran(models.StageRun))
}

func TestUnknownStageFails(t *testing.T) {
	f := newFixture(t, ModeBuild, appTree())
	err := RunStages(context.Background(), f.bs, Plan([]models.StageName{"bogus", models.StageInitConfig}))
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryConfig))
	assert.Equal(t, []models.StageName{"bogus"}, f.bs.Report.StageNames())
	assert.Equal(t, models.OutcomeFailed, f.bs.Report.Outcome)
}

func TestCanceledBeforeStage(t *testing.T) {
	f := newFixture(t, ModeBuild, appTree())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := RunStages(ctx, f.bs, Plan([]models.StageName{models.StageInitConfig}))
	var se *models.StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, models.StageErrorCanceled, se.Kind)
	assert.Equal(t, models.OutcomeCanceled, f.bs.Report.Outcome)
	assert.Nil(t, f.bs.Manifest)
}

func TestModes(t *testing.T) {
	assert.Len(t, Modes(), 6)
	names, err := StagesFor(ModeRun)
	require.NoError(t, err)
	assert.Equal(t, []models.StageName{models.StageReadConfig, models.StageRun}, names)

	_, err = StagesFor("deploy")
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryConfig))

	for _, m := range Modes() {
		names, err := StagesFor(m)
		require.NoError(t, err)
		for _, n := range names {
			_, ok := Lookup(n)
			assert.True(t, ok, "stage %s of mode %s", n, m)
		}
	}
}
