package stages

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/cordovabuild/internal/logfields"
	"git.home.luguber.info/inful/cordovabuild/internal/pipeline/hooks"
	"git.home.luguber.info/inful/cordovabuild/internal/pipeline/models"
)

// selfHooked stages dispatch their own hook points.
var selfHooked = map[models.StageName]bool{
	models.StageClean:       true,
	models.StageBeforeBuild: true,
	models.StageAfterBuild:  true,
}

// RunStages executes stages in order, recording timing and stopping on the
// first failure. Cancellation is checked between stages only; the running
// stage receives ctx and decides itself. The report is finished and its
// metrics emitted before returning.
func RunStages(ctx context.Context, bs *models.BuildState, defs []models.StageDef) error {
	logger := slog.With(logfields.RunID(bs.Report.RunID), logfields.Mode(bs.Report.Mode))
	defer func() {
		bs.Report.Finish()
		bs.Report.Observe(bs.Recorder)
		logger.Info("Pipeline finished", slog.String("summary", bs.Report.Summary()))
	}()

	for _, st := range defs {
		if err := ctx.Err(); err != nil {
			se := models.NewCanceledStageError(st.Name, err)
			bs.Report.RecordStageResult(st.Name, models.StageResultCanceled, 0, se, bs.Recorder)
			logger.Warn("Pipeline canceled", logfields.Stage(string(st.Name)))
			return se
		}

		if !selfHooked[st.Name] {
			dispatch(ctx, bs, hooks.Before(string(st.Name)))
		}

		logger.Info("Stage started", logfields.Stage(string(st.Name)))
		t0 := time.Now()
		err := st.Fn(ctx, bs)
		dur := time.Since(t0)

		if err != nil {
			se := classify(st.Name, err)
			result := models.StageResultFatal
			if se.Kind == models.StageErrorCanceled {
				result = models.StageResultCanceled
			}
			bs.Report.RecordStageResult(st.Name, result, dur, se, bs.Recorder)
			logger.Error("Stage failed",
				logfields.Stage(string(st.Name)),
				logfields.DurationMS(float64(dur.Milliseconds())),
				logfields.Error(se.Err))
			return se
		}

		bs.Report.RecordStageResult(st.Name, models.StageResultSuccess, dur, nil, bs.Recorder)
		logger.Info("Stage completed",
			logfields.Stage(string(st.Name)),
			logfields.DurationMS(float64(dur.Milliseconds())))

		if !selfHooked[st.Name] {
			dispatch(ctx, bs, hooks.After(string(st.Name)))
		}
	}
	return nil
}

// classify wraps a raw stage error. Context errors are cancellations,
// everything else is fatal.
func classify(stage models.StageName, err error) *models.StageError {
	var se *models.StageError
	if errors.As(err, &se) {
		return se
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return models.NewCanceledStageError(stage, err)
	}
	return models.NewFatalStageError(stage, err)
}

func dispatch(ctx context.Context, bs *models.BuildState, point string) {
	if bs.Hooks == nil {
		return
	}
	bs.Hooks.Dispatch(ctx, point)
}
