package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	log "github.com/sirupsen/logrus"
)

const (
	exitOK                  = 0
	exitConfig              = 1
	exitBucketMissing       = 2
	exitRetriesExhausted    = 3
	exitBackupFailed        = 4
	exitUnsupportedPlatform = 5
	exitInterrupted         = 130
)

type backupRunner interface {
	RunBackup(ctx context.Context) (BackupOutcome, error)
}

type retryAsker interface {
	AskRetry(ctx context.Context) (Decision, error)
}

// App owns the interactive run loop around the coordinator.
type App struct {
	Runner    backupRunner
	Prompter  retryAsker
	Countdown *Countdown
	Log       *log.Logger
	Out       io.Writer
}

// Run performs backup passes until one succeeds or the operator gives up,
// then counts down. The returned value is the process exit code.
func (a *App) Run(ctx context.Context) int {
	code := a.runCycles(ctx)
	if code == exitInterrupted {
		fmt.Fprintln(a.Out, "NOTICE - Process interrupted by the user.")
	}
	a.Countdown.Run()
	return code
}

func (a *App) runCycles(ctx context.Context) int {
	for {
		outcome, err := a.Runner.RunBackup(ctx)
		if err != nil {
			return exitCode(err)
		}
		if outcome.Succeeded {
			return exitOK
		}

		decision, askErr := a.Prompter.AskRetry(ctx)
		if askErr != nil {
			return exitCode(askErr)
		}
		if decision != DecisionRetry {
			return exitBackupFailed
		}

		clearScreen(a.Out)
		a.Log.Info("Retrying Auto Backup Process...")
	}
}

func exitCode(err error) int {
	var configErr *ConfigError
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, context.Canceled):
		return exitInterrupted
	case errors.As(err, &configErr):
		return exitConfig
	case errors.Is(err, ErrBucketNotFound):
		return exitBucketMissing
	case errors.Is(err, ErrRetriesExhausted):
		return exitRetriesExhausted
	case errors.Is(err, ErrUnsupportedPlatform):
		return exitUnsupportedPlatform
	}
	return exitBackupFailed
}
