package main

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
)

// RunScheduled keeps the process resident and runs one non-interactive
// backup pass per cron tick until ctx is cancelled.
func (a *App) RunScheduled(ctx context.Context, expr string) int {
	scheduler := gocron.NewScheduler(time.Local)
	_, err := scheduler.Cron(expr).SingletonMode().Do(a.scheduledPass, ctx)
	if err != nil {
		a.Log.WithError(err).Error(fmt.Sprintf("Invalid schedule %q.", expr))
		return exitConfig
	}

	a.Log.Info(fmt.Sprintf("Auto Backup scheduled with %q.", expr))
	scheduler.StartAsync()
	<-ctx.Done()
	scheduler.Stop()

	fmt.Fprintln(a.Out, "NOTICE - Process interrupted by the user.")
	return exitInterrupted
}

func (a *App) scheduledPass(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	outcome, err := a.Runner.RunBackup(ctx)
	switch {
	case err != nil:
		a.Log.WithError(err).Error("Backup pass aborted. Will retry in the next execution cycle.")
	case !outcome.Succeeded:
		a.Log.Warn(fmt.Sprintf("%d directories failed. Will retry in the next execution cycle.", len(outcome.Failed)))
	}
}
