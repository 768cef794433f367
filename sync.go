package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	log "github.com/sirupsen/logrus"
)

type SyncStats struct {
	Added     int
	Deleted   int
	Unknown   int
	Malformed int
}

func (s *SyncStats) add(other SyncStats) {
	s.Added += other.Added
	s.Deleted += other.Deleted
	s.Unknown += other.Unknown
	s.Malformed += other.Malformed
}

// SyncEngine mirrors one directory at a time into a bucket.
type SyncEngine struct {
	Client BucketClient
	Mirror Mirrorer
	Log    *log.Logger

	stats SyncStats
}

func NewSyncEngine(client BucketClient, mirror Mirrorer, logger *log.Logger) *SyncEngine {
	return &SyncEngine{Client: client, Mirror: mirror, Log: logger}
}

// RemotePrefix is the key prefix a local directory is mirrored under.
func RemotePrefix(localDir string) string {
	return sanitize(filepath.Base(filepath.Clean(localDir)))
}

// TakeStats returns the event counts gathered since the previous call.
func (e *SyncEngine) TakeStats() SyncStats {
	stats := e.stats
	e.stats = SyncStats{}
	return stats
}

// SyncDirectory mirrors localDir into bucket. A missing localDir is skipped
// and counts as success. A missing bucket returns ErrBucketNotFound.
// Transport failures are returned for the caller to retry; any other failure
// of the mirror itself is logged and reported as false.
func (e *SyncEngine) SyncDirectory(ctx context.Context, localDir, bucket string) (bool, error) {
	dirLog := e.Log.WithFields(log.Fields{"dir": localDir, "bucket": bucket})

	if !dirExists(localDir) {
		dirLog.Warn(fmt.Sprintf("File path %s does not exist, skipping...", localDir))
		return true, nil
	}

	exists, existsErr := e.Client.BucketExists(ctx, bucket)
	if existsErr != nil {
		return false, existsErr
	}
	if !exists {
		dirLog.Error(fmt.Sprintf("ERROR - Bucket %s does not exist.", bucket))
		return false, fmt.Errorf("%w: %s", ErrBucketNotFound, bucket)
	}

	req := MirrorRequest{
		LocalDir:         localDir,
		Bucket:           bucket,
		Prefix:           RemotePrefix(localDir),
		DeleteExtraneous: true,
	}
	remoteURI := req.RemoteURI()
	dirLog.Info(fmt.Sprintf("Processing %s...", localDir))

	// the native mirror lists the prefix itself
	if _, native := e.Mirror.(*NativeMirror); !native {
		existing, listErr := e.Client.ListKeys(ctx, bucket, req.Prefix+"/")
		if listErr != nil {
			dirLog.WithError(listErr).Warn("Unable to list existing objects")
		} else {
			dirLog.Debug(fmt.Sprintf("%d objects already under %s", len(existing), remoteURI))
		}
	}

	stream, mirrorErr := e.Mirror.Mirror(ctx, req)
	if mirrorErr != nil {
		return e.mirrorFailed(dirLog, req, mirrorErr)
	}

	var stats SyncStats
	for stream.Scan() {
		e.handleLine(dirLog, stream.Text(), remoteURI, &stats)
	}
	e.stats.add(stats)

	if streamErr := stream.Err(); streamErr != nil {
		return e.mirrorFailed(dirLog, req, streamErr)
	}

	dirLog.Info(fmt.Sprintf("Synchronized %s to %s.", localDir, remoteURI))
	return true, nil
}

func (e *SyncEngine) mirrorFailed(dirLog *log.Entry, req MirrorRequest, err error) (bool, error) {
	class := ClassifyError(err)
	if class == ClassTransient || class == ClassFatal {
		return false, err
	}

	if class == ClassPermission {
		dirLog.WithError(err).Error(fmt.Sprintf("Permission denied for %s. Skipping...", req.LocalDir))
		return false, nil
	}
	if !errors.Is(err, ErrMirrorFailed) {
		dirLog.WithError(err).Warn("Mirror ended with an unexpected error")
	}
	dirLog.Error(fmt.Sprintf("Failed to synchronize %s to %s. Error: %s", req.LocalDir, req.RemoteURI(), err))
	return false, nil
}

func (e *SyncEngine) handleLine(dirLog *log.Entry, line, remoteURI string, stats *SyncStats) {
	defer func() {
		if r := recover(); r != nil {
			dirLog.Error(fmt.Sprintf("Unable to parse output: %v", r))
		}
	}()

	event := ParseLine(line, remoteURI)
	eventLog := dirLog.WithField("event", event.Kind.String())

	switch event.Kind {
	case EventAdded:
		stats.Added++
		eventLog.Info(fmt.Sprintf("[Added] %s", event.Raw))
	case EventDeleted:
		stats.Deleted++
		eventLog.Info(fmt.Sprintf("[Deleted] %s", event.Raw))
	case EventProgressFinal:
		eventLog.Info(fmt.Sprintf("[Progress] %s", event.Raw))
	case EventProgress:
		// intermediate progress is not logged
	case EventMalformed:
		stats.Malformed++
		eventLog.Warn("NOTICE - Incorrect data output format from the mirror.")
	default:
		stats.Unknown++
		eventLog.Warn(fmt.Sprintf("[Unknown Operation] %s", event.Raw))
	}
}
