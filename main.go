package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
)

const defaultLogFile = "backup_log.txt"

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appConfig, configErr := LoadAppConfig(SourcesFile, CredentialsFile)
	if configErr != nil {
		logger, closer, logErr := NewLogger(os.Stdout, defaultLogFile)
		if logErr != nil {
			fmt.Fprintln(os.Stderr, configErr)
			return exitConfig
		}
		defer closer.Close()
		logger.Error(configErr.Error())
		NewPrompter(os.Stdin, os.Stdout, time.Minute).Pause(ctx)
		return exitConfig
	}
	settings := appConfig.Sources.Settings

	logger, closer, logErr := NewLogger(os.Stdout, settings.LogFile)
	if logErr != nil {
		fmt.Fprintf(os.Stderr, "Unable to open log file: %s\n", logErr)
		return exitConfig
	}
	defer closer.Close()

	logger.Info("Loaded configuration:")
	for _, line := range appConfig.ConfigStringArray() {
		logger.Info(line)
	}

	app, appErr := buildApp(ctx, appConfig, logger)
	if appErr != nil {
		logger.WithError(appErr).Error("Unable to initialise the backup.")
		return exitCode(appErr)
	}

	if settings.Schedule != "" {
		return app.RunScheduled(ctx, settings.Schedule)
	}
	return app.Run(ctx)
}

func buildApp(ctx context.Context, appConfig AppConfig, logger *log.Logger) (*App, error) {
	creds := appConfig.Credentials
	settings := appConfig.Sources.Settings

	s3Client, clientErr := NewS3BucketClient(ctx, creds, settings)
	if clientErr != nil {
		return nil, clientErr
	}

	var mirror Mirrorer
	switch settings.Mirror {
	case "cli":
		mirror = NewCLIMirror(creds, settings)
	default:
		mirror = NewNativeMirror(s3Client)
	}

	var notifier Notifier
	if settings.SNSTopic != "" {
		snsNotifier, notifyErr := NewSNSNotifier(ctx, creds, settings)
		if notifyErr != nil {
			logger.WithError(notifyErr).Warn("SNS notifications disabled.")
		} else {
			notifier = snsNotifier
		}
	}

	engine := NewSyncEngine(s3Client, mirror, logger)
	retrier := NewRetrier(settings.RetryPolicy(), logger)
	coordinator := NewCoordinator(appConfig, engine, retrier, notifier, logger, os.Stdout)
	prompter := NewPrompter(os.Stdin, os.Stdout, time.Duration(settings.InactivitySeconds)*time.Second)

	return &App{
		Runner:    coordinator,
		Prompter:  prompter,
		Countdown: NewCountdown(os.Stdout),
		Log:       logger,
		Out:       os.Stdout,
	}, nil
}
