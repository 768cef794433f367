package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)

type coordinatorFixture struct {
	coordinator *Coordinator
	client      *MockS3Client
	mirror      *MockMirrorer
	notifier    *MockNotifier
	hook        *test.Hook
	sleeper     *recordingSleeper
	out         *bytes.Buffer
}

func newCoordinatorFixture(sources []string) *coordinatorFixture {
	logger, hook := test.NewNullLogger()
	client := NewMockClient(map[string]ObjectInfo{})
	mirror := &MockMirrorer{Lines: []string{"upload: a.txt to s3://b/a.txt"}}
	sleeper := &recordingSleeper{}
	notifier := &MockNotifier{}
	out := &bytes.Buffer{}

	retrier := NewRetrier(DefaultRetryPolicy(), logger)
	retrier.Sleep = sleeper.Sleep
	engine := NewSyncEngine(client, mirror, logger)

	cfg := AppConfig{
		Sources:     SourceConfig{SourceDirectories: sources},
		Credentials: Credentials{BucketName: "b"},
	}
	coordinator := NewCoordinator(cfg, engine, retrier, notifier, logger, out)
	coordinator.GOOS = "linux"
	coordinator.Now = func() time.Time { return fixedNow }
	coordinator.Sleep = sleeper.Sleep

	return &coordinatorFixture{
		coordinator: coordinator,
		client:      client,
		mirror:      mirror,
		notifier:    notifier,
		hook:        hook,
		sleeper:     sleeper,
		out:         out,
	}
}

func mkdirs(t *testing.T, names ...string) []string {
	root := t.TempDir()
	dirs := make([]string, 0, len(names))
	for _, name := range names {
		dir := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(dir, os.ModePerm))
		dirs = append(dirs, dir)
	}
	return dirs
}

func TestRunBackupAllSucceed(t *testing.T) {
	dirs := mkdirs(t, "docs", "photos")
	writeTestFile(t, filepath.Join(dirs[0], "a.txt"), "a")
	writeTestFile(t, filepath.Join(dirs[1], "b.jpg"), "b")
	f := newCoordinatorFixture(dirs)

	outcome, err := f.coordinator.RunBackup(context.Background())

	require.NoError(t, err)
	assert.True(t, outcome.Succeeded)
	assert.Empty(t, outcome.Failed)
	assert.Equal(t, 2, outcome.Added)
	assert.Len(t, f.mirror.Requests, 2)
	assert.Contains(t, f.out.String(), "Total files to process: 4")
	assert.Contains(t, messages(entriesAt(f.hook, log.InfoLevel)), "Auto Backup completed on 2024-05-06 07:08:09.")
	assert.Empty(t, entriesAt(f.hook, log.ErrorLevel))

	require.Len(t, f.notifier.Outcomes, 1)
	assert.Equal(t, "b", f.notifier.Buckets[0])
	assert.True(t, f.notifier.Outcomes[0].Succeeded)
}

func TestRunBackupMissingDirectoryCountsAsSuccess(t *testing.T) {
	dirs := mkdirs(t, "docs")
	missing := filepath.Join(t.TempDir(), "gone")
	f := newCoordinatorFixture([]string{missing, dirs[0]})

	outcome, err := f.coordinator.RunBackup(context.Background())

	require.NoError(t, err)
	assert.True(t, outcome.Succeeded)
	assert.Equal(t, []string{missing}, outcome.Skipped)
	assert.Len(t, f.mirror.Requests, 1)
	assert.Len(t, entriesAt(f.hook, log.WarnLevel), 1)
}

func TestRunBackupFailedDirectoryContinues(t *testing.T) {
	dirs := mkdirs(t, "first", "second")
	f := newCoordinatorFixture(dirs)
	f.mirror.EndErr = ErrMirrorFailed

	outcome, err := f.coordinator.RunBackup(context.Background())

	require.NoError(t, err)
	assert.False(t, outcome.Succeeded)
	assert.Equal(t, dirs, outcome.Failed)
	assert.Len(t, f.mirror.Requests, 2)

	errs := messages(entriesAt(f.hook, log.ErrorLevel))
	assert.Contains(t, errs, "Auto Backup "+dirs[0]+" unsuccessful.")
	assert.Contains(t, errs, "Auto Backup "+dirs[1]+" unsuccessful.")
	assert.Equal(t, "ERROR - Backup failed during completion.", errs[len(errs)-1])
	assert.Equal(t, []time.Duration{5 * time.Second, 3 * time.Second, 3 * time.Second}, f.sleeper.slept)
}

func TestRunBackupStopsOnMissingBucket(t *testing.T) {
	dirs := mkdirs(t, "second", "third", "fourth")
	missing := filepath.Join(t.TempDir(), "first")
	f := newCoordinatorFixture([]string{missing, dirs[0], dirs[1], dirs[2]})
	f.client.HeadResults = []bool{true, false}

	outcome, err := f.coordinator.RunBackup(context.Background())

	assert.ErrorIs(t, err, ErrBucketNotFound)
	assert.False(t, outcome.Succeeded)
	assert.Equal(t, []string{dirs[1]}, outcome.Failed)
	require.Len(t, f.mirror.Requests, 1)
	assert.Equal(t, dirs[0], f.mirror.Requests[0].LocalDir)
	assert.Len(t, f.client.HeadRequests, 2)

	bucketErrors := 0
	for _, msg := range messages(entriesAt(f.hook, log.ErrorLevel)) {
		if strings.Contains(msg, "does not exist.") {
			bucketErrors++
		}
	}
	assert.Equal(t, 1, bucketErrors)
	require.Len(t, f.notifier.Outcomes, 1)
	assert.False(t, f.notifier.Outcomes[0].Succeeded)
}

func TestRunBackupUnsupportedPlatform(t *testing.T) {
	f := newCoordinatorFixture(mkdirs(t, "docs"))
	f.coordinator.GOOS = "plan9"

	_, err := f.coordinator.RunBackup(context.Background())

	assert.ErrorIs(t, err, ErrUnsupportedPlatform)
	assert.Empty(t, f.mirror.Requests)
}

func TestRunBackupNotifyFailureIsWarning(t *testing.T) {
	f := newCoordinatorFixture(mkdirs(t, "docs"))
	f.notifier.Err = assert.AnError

	outcome, err := f.coordinator.RunBackup(context.Background())

	require.NoError(t, err)
	assert.True(t, outcome.Succeeded)
	assert.Contains(t, messages(entriesAt(f.hook, log.WarnLevel)), "Unable to publish backup notification.")
}

func TestRunBackupCancelled(t *testing.T) {
	f := newCoordinatorFixture(mkdirs(t, "docs"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.coordinator.RunBackup(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, f.mirror.Requests)
}
