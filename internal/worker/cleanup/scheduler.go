package cleanup

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// scheduleParser は5フィールド形式と@daily等の記述子を受け付ける。
var scheduleParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// ValidateSchedule はcron式を検証する。
func ValidateSchedule(spec string) error {
	if _, err := scheduleParser.Parse(spec); err != nil {
		return fmt.Errorf("invalid cleanup schedule %q: %w", spec, err)
	}
	return nil
}

// RunScheduled は起動直後に1回ジョブを実行し、以後specに従って定期実行する。
// ctxがキャンセルされると実行中のジョブの完了を待って戻る。
func RunScheduled(ctx context.Context, job *CleanupJob, spec string) error {
	schedule, err := scheduleParser.Parse(spec)
	if err != nil {
		return fmt.Errorf("invalid cleanup schedule %q: %w", spec, err)
	}

	run := func() {
		if err := job.Run(ctx); err != nil {
			job.logger.Error("cleanup job failed", slog.String("error", err.Error()))
		}
	}

	c := cron.New(
		cron.WithParser(scheduleParser),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	c.Schedule(schedule, cron.FuncJob(run))

	run()

	c.Start()
	job.logger.Info("cleanup scheduler started", slog.String("schedule", spec))

	<-ctx.Done()
	<-c.Stop().Done()

	job.logger.Info("cleanup scheduler stopped")
	return nil
}
