package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"strings"
	"syscall"

	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
)

var (
	ErrStoreUnreachable    = errors.New("object store unreachable")
	ErrMissingCredentials  = errors.New("missing or partial credentials")
	ErrBucketNotFound      = errors.New("bucket does not exist")
	ErrAccessDenied        = errors.New("access denied")
	ErrObjectNotFound      = errors.New("object not found")
	ErrMirrorFailed        = errors.New("mirror operation failed")
	ErrRetriesExhausted    = errors.New("exceeded max attempts")
	ErrUnsupportedPlatform = errors.New("unsupported operating system")
)

// StoreError carries the bucket/key context of a failed S3 call.
type StoreError struct {
	Op     string
	Bucket string
	Key    string
	Err    error
}

func (e *StoreError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("s3.%s %s/%s: %v", e.Op, e.Bucket, e.Key, e.Err)
	}
	return fmt.Sprintf("s3.%s bucket %s: %v", e.Op, e.Bucket, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

type ErrorClass int

const (
	ClassOther ErrorClass = iota
	ClassTransient
	ClassPermission
	ClassNotFound
	ClassFatal
)

func (c ErrorClass) String() string {
	switch c {
	case ClassTransient:
		return "transient"
	case ClassPermission:
		return "permission"
	case ClassNotFound:
		return "not-found"
	case ClassFatal:
		return "fatal"
	}
	return "other"
}

var (
	permissionCodes = []string{"AccessDenied", "Forbidden", "InvalidAccessKeyId", "SignatureDoesNotMatch", "AllAccessDisabled", "403"}
	notFoundCodes   = []string{"NoSuchKey", "NotFound", "404"}
	transientCodes  = []string{"RequestTimeout", "RequestTimeTooSkewed", "SlowDown", "ServiceUnavailable", "InternalError", "ExpiredToken"}

	credentialMessages = []string{
		"failed to retrieve credentials",
		"static credentials are empty",
		"no valid providers in chain",
		"anonymous credentials",
	}
)

// ClassifyError decides how the retry loop treats err.
func ClassifyError(err error) ErrorClass {
	if err == nil {
		return ClassOther
	}

	switch {
	case errors.Is(err, context.Canceled),
		errors.Is(err, ErrBucketNotFound),
		errors.Is(err, ErrUnsupportedPlatform),
		errors.Is(err, ErrRetriesExhausted):
		return ClassFatal
	case errors.Is(err, ErrStoreUnreachable), errors.Is(err, ErrMissingCredentials):
		return ClassTransient
	case errors.Is(err, ErrAccessDenied), errors.Is(err, fs.ErrPermission):
		return ClassPermission
	case errors.Is(err, ErrObjectNotFound), errors.Is(err, fs.ErrNotExist):
		return ClassNotFound
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		switch {
		case code == "NoSuchBucket":
			return ClassFatal
		case containsAny(code, permissionCodes...):
			return ClassPermission
		case containsAny(code, notFoundCodes...):
			return ClassNotFound
		case containsAny(code, transientCodes...):
			return ClassTransient
		}
	}

	if isConnectionError(err) {
		return ClassTransient
	}
	if containsAny(strings.ToLower(err.Error()), credentialMessages...) {
		return ClassTransient
	}

	return ClassOther
}

func isConnectionError(err error) bool {
	var sendErr *smithyhttp.RequestSendError
	if errors.As(err, &sendErr) {
		return true
	}

	var opErr *net.OpError
	var dnsErr *net.DNSError
	if errors.As(err, &opErr) || errors.As(err, &dnsErr) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	return errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, context.DeadlineExceeded)
}

func containsAny(text string, substrings ...string) bool {
	for _, s := range substrings {
		if strings.Contains(text, s) {
			return true
		}
	}
	return false
}
