package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var (
	// TODO: is there some better way to allow for stubbing filesystem interactions for tests?
	concreteWalkFunc walkFunc = walkDirectory
)

type objectRequest struct {
	action    string
	key       string
	localPath string
}

// NativeMirror mirrors a directory with plain S3 calls and reports each
// operation in the same line format as `aws s3 sync`.
type NativeMirror struct {
	Client BucketClient
}

func NewNativeMirror(client BucketClient) *NativeMirror {
	return &NativeMirror{Client: client}
}

func (m *NativeMirror) Mirror(ctx context.Context, req MirrorRequest) (LineStream, error) {
	keyPrefix := strings.TrimSuffix(req.Prefix, "/") + "/"

	bucketFiles, listBucketErr := m.Client.ListKeys(ctx, req.Bucket, keyPrefix)
	if listBucketErr != nil {
		return nil, fmt.Errorf("Error listing S3 bucket: %w", listBucketErr)
	}
	localFiles, listLocalFilesErr := concreteWalkFunc(req.LocalDir)
	if listLocalFilesErr != nil {
		return nil, fmt.Errorf("Error walking local directory: %w", listLocalFilesErr)
	}

	return &nativeStream{
		ctx:      ctx,
		client:   m.Client,
		req:      req,
		requests: planRequests(req, keyPrefix, localFiles, bucketFiles),
	}, nil
}

func planRequests(req MirrorRequest, keyPrefix string, localFiles map[string]os.FileInfo, bucketFiles map[string]ObjectInfo) []objectRequest {
	uploads := make([]objectRequest, 0)
	localKeys := make(map[string]struct{}, len(localFiles))

	for localPath, localFileInfo := range localFiles {
		rel, relErr := filepath.Rel(req.LocalDir, localPath)
		if relErr != nil {
			continue
		}
		uploadKey := keyPrefix + filepath.ToSlash(rel)
		localKeys[uploadKey] = struct{}{}

		// S3 stamps its own LastModified on upload, so the remote copy is current
		// as long as it is not older than the local file and the sizes agree.
		remoteObj, ok := bucketFiles[uploadKey]
		if !ok || remoteObj.ModTime.Before(localFileInfo.ModTime()) || remoteObj.Size != localFileInfo.Size() {
			uploads = append(uploads, objectRequest{action: "upload", key: uploadKey, localPath: localPath})
		}
	}
	sort.Slice(uploads, func(i, j int) bool { return uploads[i].key < uploads[j].key })

	deletes := make([]objectRequest, 0)
	if req.DeleteExtraneous {
		for key := range bucketFiles {
			if _, ok := localKeys[key]; !ok {
				deletes = append(deletes, objectRequest{action: "delete", key: key})
			}
		}
	}
	sort.Slice(deletes, func(i, j int) bool { return deletes[i].key < deletes[j].key })

	return append(uploads, deletes...)
}

type nativeStream struct {
	ctx      context.Context
	client   BucketClient
	req      MirrorRequest
	requests []objectRequest

	next     int
	text     string
	progress string
	failed   error
	err      error
}

func (s *nativeStream) Scan() bool {
	if s.err != nil {
		return false
	}
	if s.progress != "" {
		s.text, s.progress = s.progress, ""
		return true
	}
	if s.next >= len(s.requests) {
		if s.failed != nil {
			s.err = fmt.Errorf("%w: %w", ErrMirrorFailed, s.failed)
		}
		return false
	}
	if ctxErr := s.ctx.Err(); ctxErr != nil {
		s.err = ctxErr
		return false
	}

	objReq := s.requests[s.next]
	s.next++

	line, opErr := s.apply(objReq)
	if opErr != nil {
		if !isLocalFileError(opErr) {
			s.err = opErr
			return false
		}
		// local read failures skip the file, the run still reports failure
		if s.failed == nil {
			s.failed = opErr
		}
	}

	s.text = line
	s.progress = fmt.Sprintf("Completed %d of %d with ~%d file(s) remaining", s.next, len(s.requests), len(s.requests)-s.next)
	return true
}

func (s *nativeStream) apply(objReq objectRequest) (string, error) {
	remote := "s3://" + s.req.Bucket + "/" + objReq.key

	switch objReq.action {
	case "upload":
		fd, fileErr := os.Open(objReq.localPath)
		if fileErr != nil {
			return fmt.Sprintf("warning: Skipping file %s. %v", objReq.localPath, fileErr), fileErr
		}
		defer fd.Close()

		if uploadErr := s.client.UploadFile(s.ctx, s.req.Bucket, objReq.key, fd); uploadErr != nil {
			return "", uploadErr
		}
		return fmt.Sprintf("upload: %s to %s", objReq.localPath, remote), nil
	case "delete":
		if delErr := s.client.DeleteObject(s.ctx, s.req.Bucket, objReq.key); delErr != nil {
			return "", delErr
		}
		return fmt.Sprintf("delete: %s", remote), nil
	}

	return "", fmt.Errorf("unknown object request %q", objReq.action)
}

func (s *nativeStream) Text() string { return s.text }

func (s *nativeStream) Err() error { return s.err }

func isLocalFileError(err error) bool {
	var pathErr *fs.PathError
	return errors.As(err, &pathErr)
}
