package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var folderRequest = MirrorRequest{
	LocalDir:         "/folder1",
	Bucket:           "not-real-bucket",
	Prefix:           "folder1",
	DeleteExtraneous: true,
}

func requestKeys(reqs []objectRequest, action string) []string {
	keys := make([]string, 0)
	for _, r := range reqs {
		if r.action == action {
			keys = append(keys, r.key)
		}
	}
	return keys
}

func TestLocalFileNotInBucket(t *testing.T) {
	localFiles := map[string]os.FileInfo{
		"/folder1/folder2/not-real-file": mockFileInfo{timestamp: time.Now()},
	}

	reqs := planRequests(folderRequest, "folder1/", localFiles, map[string]ObjectInfo{})

	assert.Equal(t, []string{"folder1/folder2/not-real-file"}, requestKeys(reqs, "upload"))
	assert.Len(t, requestKeys(reqs, "delete"), 0)
}

func TestLocalFileIsOlder(t *testing.T) {
	localFiles := map[string]os.FileInfo{
		"/folder1/folder2/not-real-file": mockFileInfo{timestamp: time.Now().Add(-1 * time.Hour), size: 1},
	}
	bucketFiles := map[string]ObjectInfo{
		"folder1/folder2/not-real-file": {ModTime: time.Now(), Size: 1},
	}

	reqs := planRequests(folderRequest, "folder1/", localFiles, bucketFiles)

	assert.Len(t, reqs, 0)
}

func TestLocalFileIsNewer(t *testing.T) {
	localFiles := map[string]os.FileInfo{
		"/folder1/folder2/not-real-file": mockFileInfo{timestamp: time.Now(), size: 1},
	}
	bucketFiles := map[string]ObjectInfo{
		"folder1/folder2/not-real-file": {ModTime: time.Now().Add(-1 * time.Hour), Size: 1},
	}

	reqs := planRequests(folderRequest, "folder1/", localFiles, bucketFiles)

	assert.Equal(t, []string{"folder1/folder2/not-real-file"}, requestKeys(reqs, "upload"))
}

func TestSameModTimeFileSizeDifferent(t *testing.T) {
	oneHourAgo := time.Now().Add(-1 * time.Hour)
	localFiles := map[string]os.FileInfo{
		"/folder1/folder2/not-real-file": mockFileInfo{timestamp: oneHourAgo, size: 10},
	}
	bucketFiles := map[string]ObjectInfo{
		"folder1/folder2/not-real-file": {ModTime: oneHourAgo, Size: 1},
	}

	reqs := planRequests(folderRequest, "folder1/", localFiles, bucketFiles)

	assert.Equal(t, []string{"folder1/folder2/not-real-file"}, requestKeys(reqs, "upload"))
}

func TestBucketFileNotOnLocalFSDeleted(t *testing.T) {
	bucketFiles := map[string]ObjectInfo{
		"folder1/folder2/not-real-file": {ModTime: time.Now().Add(-1 * time.Hour), Size: 1},
	}

	reqs := planRequests(folderRequest, "folder1/", map[string]os.FileInfo{}, bucketFiles)

	assert.Len(t, requestKeys(reqs, "upload"), 0)
	assert.Equal(t, []string{"folder1/folder2/not-real-file"}, requestKeys(reqs, "delete"))
}

func TestBucketFileNotOnLocalFSNonDestructive(t *testing.T) {
	bucketFiles := map[string]ObjectInfo{
		"folder1/folder2/not-real-file": {ModTime: time.Now().Add(-1 * time.Hour), Size: 1},
	}
	req := folderRequest
	req.DeleteExtraneous = false

	reqs := planRequests(req, "folder1/", map[string]os.FileInfo{}, bucketFiles)

	assert.Len(t, reqs, 0)
}

func TestUploadsOrderedBeforeDeletes(t *testing.T) {
	localFiles := map[string]os.FileInfo{
		"/folder1/b": mockFileInfo{timestamp: time.Now()},
		"/folder1/a": mockFileInfo{timestamp: time.Now()},
	}
	bucketFiles := map[string]ObjectInfo{"folder1/zz": {}, "folder1/c": {}}

	reqs := planRequests(folderRequest, "folder1/", localFiles, bucketFiles)

	require.Len(t, reqs, 4)
	assert.Equal(t, []string{"folder1/a", "folder1/b"}, requestKeys(reqs, "upload"))
	assert.Equal(t, []string{"folder1/c", "folder1/zz"}, requestKeys(reqs, "delete"))
	assert.Equal(t, "upload", reqs[1].action)
	assert.Equal(t, "delete", reqs[2].action)
}

func drain(stream LineStream) []string {
	lines := make([]string, 0)
	for stream.Scan() {
		lines = append(lines, stream.Text())
	}
	return lines
}

func TestNativeMirrorEmitsSyncLines(t *testing.T) {
	root := filepath.Join(t.TempDir(), "docs")
	writeTestFile(t, filepath.Join(root, "a.txt"), "hello")
	mockClient := NewMockClient(map[string]ObjectInfo{"docs/old.txt": {Size: 3}})

	stream, err := NewNativeMirror(mockClient).Mirror(context.Background(), MirrorRequest{
		LocalDir: root, Bucket: "b", Prefix: "docs", DeleteExtraneous: true,
	})
	require.NoError(t, err)

	lines := drain(stream)

	assert.NoError(t, stream.Err())
	assert.Equal(t, []string{
		"upload: " + filepath.Join(root, "a.txt") + " to s3://b/docs/a.txt",
		"Completed 1 of 2 with ~1 file(s) remaining",
		"delete: s3://b/docs/old.txt",
		"Completed 2 of 2 with ~0 file(s) remaining",
	}, lines)
	assert.Equal(t, []MockRequest{{Bucket: "b", Key: "docs/a.txt"}}, mockClient.UploadRequests)
	assert.Equal(t, []MockRequest{{Bucket: "b", Key: "docs/old.txt"}}, mockClient.DeleteRequests)
	assert.Equal(t, "docs/", mockClient.ListRequests[0].Key)
}

func TestNativeMirrorStopsOnRemoteError(t *testing.T) {
	root := filepath.Join(t.TempDir(), "docs")
	writeTestFile(t, filepath.Join(root, "a.txt"), "hello")
	writeTestFile(t, filepath.Join(root, "b.txt"), "hello")
	mockClient := NewMockClient(map[string]ObjectInfo{})
	mockClient.UploadErr = &StoreError{Op: "PutObject", Bucket: "b", Err: ErrStoreUnreachable}

	stream, err := NewNativeMirror(mockClient).Mirror(context.Background(), MirrorRequest{
		LocalDir: root, Bucket: "b", Prefix: "docs",
	})
	require.NoError(t, err)

	lines := drain(stream)

	assert.Len(t, lines, 0)
	assert.ErrorIs(t, stream.Err(), ErrStoreUnreachable)
}

func TestNativeMirrorSkipsUnreadableFile(t *testing.T) {
	original := concreteWalkFunc
	defer func() { concreteWalkFunc = original }()
	concreteWalkFunc = func(string) (map[string]os.FileInfo, error) {
		return map[string]os.FileInfo{
			"/folder1/gone": mockFileInfo{timestamp: time.Now()},
		}, nil
	}
	mockClient := NewMockClient(map[string]ObjectInfo{})

	stream, err := NewNativeMirror(mockClient).Mirror(context.Background(), folderRequest)
	require.NoError(t, err)

	lines := drain(stream)

	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "warning: Skipping file /folder1/gone")
	assert.ErrorIs(t, stream.Err(), ErrMirrorFailed)
	assert.True(t, errors.Is(stream.Err(), os.ErrNotExist))
	assert.Len(t, mockClient.UploadRequests, 0)
}

func TestNativeMirrorHonoursCancellation(t *testing.T) {
	root := filepath.Join(t.TempDir(), "docs")
	writeTestFile(t, filepath.Join(root, "a.txt"), "hello")
	ctx, cancel := context.WithCancel(context.Background())

	stream, err := NewNativeMirror(NewMockClient(map[string]ObjectInfo{})).Mirror(ctx, MirrorRequest{
		LocalDir: root, Bucket: "b", Prefix: "docs",
	})
	require.NoError(t, err)
	cancel()

	assert.False(t, stream.Scan())
	assert.ErrorIs(t, stream.Err(), context.Canceled)
}

func symlinkOrSkip(t *testing.T, target, link string) {
	t.Helper()
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
}

func TestNativeMirrorFollowsSymlinkedFile(t *testing.T) {
	base := t.TempDir()
	root := filepath.Join(base, "docs")
	target := filepath.Join(base, "outside", "real.txt")
	writeTestFile(t, target, strings.Repeat("x", 1000))
	require.NoError(t, os.MkdirAll(root, os.ModePerm))
	symlinkOrSkip(t, target, filepath.Join(root, "link.txt"))
	mockClient := NewMockClient(map[string]ObjectInfo{
		"docs/link.txt": {ModTime: time.Now().Add(time.Hour), Size: 1000},
	})

	stream, err := NewNativeMirror(mockClient).Mirror(context.Background(), MirrorRequest{
		LocalDir: root, Bucket: "b", Prefix: "docs", DeleteExtraneous: true,
	})
	require.NoError(t, err)
	drain(stream)

	assert.NoError(t, stream.Err())
	assert.Len(t, mockClient.UploadRequests, 0)
	assert.Len(t, mockClient.DeleteRequests, 0)
}

func TestNativeMirrorDescendsSymlinkedDirectory(t *testing.T) {
	base := t.TempDir()
	root := filepath.Join(base, "docs")
	shared := filepath.Join(base, "shared")
	writeTestFile(t, filepath.Join(shared, "notes.txt"), "hello")
	require.NoError(t, os.MkdirAll(root, os.ModePerm))
	symlinkOrSkip(t, shared, filepath.Join(root, "shared"))
	symlinkOrSkip(t, root, filepath.Join(root, "shared", "loop"))
	mockClient := NewMockClient(map[string]ObjectInfo{})

	stream, err := NewNativeMirror(mockClient).Mirror(context.Background(), MirrorRequest{
		LocalDir: root, Bucket: "b", Prefix: "docs",
	})
	require.NoError(t, err)
	drain(stream)

	assert.NoError(t, stream.Err())
	assert.Equal(t, []MockRequest{{Bucket: "b", Key: "docs/shared/notes.txt"}}, mockClient.UploadRequests)
}
