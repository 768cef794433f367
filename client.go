package main

import (
	"context"
	"os"
	"time"
)

type ObjectInfo struct {
	ModTime time.Time
	Size    int64
}

type BucketClient interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	ListKeys(ctx context.Context, bucket, prefix string) (map[string]ObjectInfo, error)
	UploadFile(ctx context.Context, bucket, key string, file *os.File) error
	DeleteObject(ctx context.Context, bucket, key string) error
}

type MirrorRequest struct {
	LocalDir         string
	Bucket           string
	Prefix           string
	DeleteExtraneous bool
}

// RemoteURI is the s3:// address the mirror writes to.
func (r MirrorRequest) RemoteURI() string {
	return "s3://" + r.Bucket + "/" + r.Prefix
}

// LineStream yields the textual progress log of one mirror run. It is read
// once; Err reports the outcome of the run after Scan returns false.
type LineStream interface {
	Scan() bool
	Text() string
	Err() error
}

type Mirrorer interface {
	Mirror(ctx context.Context, req MirrorRequest) (LineStream, error)
}
