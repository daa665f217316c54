package stages

import (
	"context"
	"fmt"
	"sort"

	"git.home.luguber.info/inful/cordovabuild/internal/foundation/errors"
	"git.home.luguber.info/inful/cordovabuild/internal/pipeline/models"
)

// Mode names an invocation mode.
type Mode string

const (
	ModeBuild     Mode = "build"
	ModeConfigure Mode = "configure"
	ModeClean     Mode = "clean"
	ModeCreate    Mode = "create"
	ModeCompile   Mode = "compile"
	ModeRun       Mode = "run"
)

var catalogue = map[models.StageName]models.Stage{
	models.StageInitConfig:      StageInitConfig,
	models.StageClean:           StageClean,
	models.StageCreate:          StageCreate,
	models.StageWriteConfig:     StageWriteConfig,
	models.StageReadConfig:      StageReadConfig,
	models.StageRemovePlatforms: StageRemovePlatforms,
	models.StageRemovePlugins:   StageRemovePlugins,
	models.StageAddPlatforms:    StageAddPlatforms,
	models.StageAddPlugins:      StageAddPlugins,
	models.StageBeforeBuild:     StageBeforeBuild,
	models.StageSanitize:        StageSanitize,
	models.StagePrepare:         StagePrepare,
	models.StageCompile:         StageCompile,
	models.StageRun:             StageRun,
	models.StageAfterBuild:      StageAfterBuild,
}

var modes = map[Mode][]models.StageName{
	ModeBuild: {
		models.StageInitConfig, models.StageClean, models.StageCreate,
		models.StageWriteConfig, models.StageReadConfig,
		models.StageRemovePlatforms, models.StageRemovePlugins,
		models.StageAddPlatforms, models.StageAddPlugins,
		models.StageBeforeBuild, models.StageSanitize,
		models.StagePrepare, models.StageCompile, models.StageAfterBuild,
	},
	ModeConfigure: {
		models.StageInitConfig, models.StageWriteConfig, models.StageReadConfig,
		models.StageRemovePlatforms, models.StageRemovePlugins,
		models.StageAddPlatforms, models.StageAddPlugins,
	},
	ModeClean:  {models.StageInitConfig, models.StageClean},
	ModeCreate: {models.StageInitConfig, models.StageCreate},
	ModeCompile: {
		models.StageReadConfig, models.StageBeforeBuild, models.StageSanitize,
		models.StagePrepare, models.StageCompile, models.StageAfterBuild,
	},
	ModeRun: {models.StageReadConfig, models.StageRun},
}

// Lookup returns the stage registered under name.
func Lookup(name models.StageName) (models.Stage, bool) {
	fn, ok := catalogue[name]
	return fn, ok
}

// Modes returns the known invocation modes, sorted.
func Modes() []Mode {
	out := make([]Mode, 0, len(modes))
	for m := range modes {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// StagesFor returns the stage list of mode.
func StagesFor(mode Mode) ([]models.StageName, error) {
	names, ok := modes[mode]
	if !ok {
		return nil, errors.ConfigError(fmt.Sprintf("unknown invocation mode: %s", mode)).
			WithContext("mode", string(mode)).
			Build()
	}
	return append([]models.StageName(nil), names...), nil
}

// Plan builds stage definitions for names. An unknown name becomes a stage
// that fails, so the run ends Failed at that point.
func Plan(names []models.StageName) []models.StageDef {
	p := models.NewPipeline()
	for _, name := range names {
		fn, ok := Lookup(name)
		if !ok {
			fn = unknownStage(name)
		}
		p.Add(name, fn)
	}
	return p.Build()
}

// PlanMode builds the stage definitions of mode.
func PlanMode(mode Mode) ([]models.StageDef, error) {
	names, err := StagesFor(mode)
	if err != nil {
		return nil, err
	}
	return Plan(names), nil
}

func unknownStage(name models.StageName) models.Stage {
	return func(context.Context, *models.BuildState) error {
		return models.NewFatalStageError(name, errors.ConfigError(fmt.Sprintf("unknown stage: %s", name)).Build())
	}
}
