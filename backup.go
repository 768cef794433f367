package main

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"time"

	log "github.com/sirupsen/logrus"
)

const completedLayout = "2006-01-02 15:04:05"

// BackupOutcome summarises one pass over every source directory.
type BackupOutcome struct {
	Succeeded bool
	Failed    []string
	Skipped   []string
	Added     int
	Deleted   int
	Started   time.Time
	Finished  time.Time
}

type Coordinator struct {
	Sources  []string
	Bucket   string
	Engine   *SyncEngine
	Retrier  *Retrier
	Notifier Notifier
	Log      *log.Logger
	Out      io.Writer
	GOOS     string
	Now      func() time.Time
	Sleep    Sleeper

	// StartupDelay and FailureDelay pace console output between phases.
	StartupDelay time.Duration
	FailureDelay time.Duration
}

func NewCoordinator(cfg AppConfig, engine *SyncEngine, retrier *Retrier, notifier Notifier, logger *log.Logger, out io.Writer) *Coordinator {
	return &Coordinator{
		Sources:      cfg.Sources.SourceDirectories,
		Bucket:       cfg.Credentials.BucketName,
		Engine:       engine,
		Retrier:      retrier,
		Notifier:     notifier,
		Log:          logger,
		Out:          out,
		GOOS:         runtime.GOOS,
		Now:          time.Now,
		Sleep:        contextSleep,
		StartupDelay: 5 * time.Second,
		FailureDelay: 3 * time.Second,
	}
}

// RunBackup mirrors every source directory in order. A fatal error stops
// the pass and is returned alongside the partial outcome.
func (c *Coordinator) RunBackup(ctx context.Context) (BackupOutcome, error) {
	outcome := BackupOutcome{Started: c.Now(), Failed: make([]string, 0), Skipped: make([]string, 0)}

	if err := checkPlatform(c.GOOS); err != nil {
		c.Log.Error(fmt.Sprintf("Unsupported OS: %s", c.GOOS))
		return c.finish(outcome), err
	}

	fmt.Fprintln(c.Out, "Initializing Auto Backup To AWS S3. Stand by...")
	total := c.countTotal()
	fmt.Fprintf(c.Out, "\nTotal files to process: %d\n", total)
	if err := c.Sleep(ctx, c.StartupDelay); err != nil {
		return c.finish(outcome), err
	}

	for _, dir := range c.Sources {
		if !dirExists(dir) {
			outcome.Skipped = append(outcome.Skipped, dir)
		}

		ok, err := c.Retrier.Do(ctx, func(ctx context.Context) (bool, error) {
			return c.Engine.SyncDirectory(ctx, dir, c.Bucket)
		})
		stats := c.Engine.TakeStats()
		outcome.Added += stats.Added
		outcome.Deleted += stats.Deleted

		if err != nil {
			outcome.Failed = append(outcome.Failed, dir)
			outcome = c.finish(outcome)
			c.notify(outcome)
			return outcome, err
		}
		if !ok {
			c.Log.WithField("dir", dir).Error(fmt.Sprintf("Auto Backup %s unsuccessful.", dir))
			outcome.Failed = append(outcome.Failed, dir)
			if err := c.Sleep(ctx, c.FailureDelay); err != nil {
				return c.finish(outcome), err
			}
		}
	}

	outcome.Succeeded = len(outcome.Failed) == 0
	outcome = c.finish(outcome)
	if outcome.Succeeded {
		c.Log.Info(fmt.Sprintf("Auto Backup completed on %s.", outcome.Finished.Format(completedLayout)))
	} else {
		c.Log.Error("ERROR - Backup failed during completion.")
	}
	c.notify(outcome)

	return outcome, nil
}

// countTotal is advisory; each file is counted once for the source side and
// once for the destination side.
func (c *Coordinator) countTotal() int {
	total := 0
	for _, dir := range c.Sources {
		total += countFiles(dir) * 2
		printClearLine(c.Out, fmt.Sprintf("Processed files (counting): %d", total))
	}
	return total
}

func (c *Coordinator) finish(outcome BackupOutcome) BackupOutcome {
	outcome.Finished = c.Now()
	return outcome
}

func (c *Coordinator) notify(outcome BackupOutcome) {
	if c.Notifier == nil {
		return
	}
	if err := c.Notifier.NotifyBackupResults(c.Bucket, outcome); err != nil {
		c.Log.WithError(err).Warn("Unable to publish backup notification.")
	}
}
