package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type S3Client struct {
	Client *s3.Client
}

func loadAWSConfig(ctx context.Context, creds Credentials, settings Settings) (aws.Config, error) {
	if creds.AccessKey == "" || creds.SecretAccessKey == "" {
		return aws.Config{}, ErrMissingCredentials
	}

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(settings.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(creds.AccessKey, creds.SecretAccessKey, "")))
	if err != nil {
		return cfg, fmt.Errorf("Error loading aws config: %w", err)
	}

	return cfg, nil
}

func NewS3BucketClient(ctx context.Context, creds Credentials, settings Settings) (*S3Client, error) {
	cfg, err := loadAWSConfig(ctx, creds, settings)
	if err != nil {
		return nil, fmt.Errorf("Error creating s3 client: %w", err)
	}

	awsS3Client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if settings.Endpoint != "" {
			o.BaseEndpoint = aws.String(settings.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Client{Client: awsS3Client}, nil
}

func (s *S3Client) BucketExists(ctx context.Context, bucket string) (bool, error) {
	_, headErr := s.Client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)})
	if headErr == nil {
		return true, nil
	}

	var notFound *types.NotFound
	var noSuchBucket *types.NoSuchBucket
	if errors.As(headErr, &notFound) || errors.As(headErr, &noSuchBucket) {
		return false, nil
	}

	return false, &StoreError{Op: "HeadBucket", Bucket: bucket, Err: wrapStoreErr(headErr)}
}

func (s *S3Client) ListKeys(ctx context.Context, bucket, prefix string) (map[string]ObjectInfo, error) {
	bucketFiles := make(map[string]ObjectInfo)
	listParams := &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
	}
	if prefix != "" {
		listParams.Prefix = aws.String(prefix)
	}
	paginator := s3.NewListObjectsV2Paginator(s.Client, listParams)
	for paginator.HasMorePages() {
		currentPage, pageErr := paginator.NextPage(ctx)
		if pageErr != nil {
			return bucketFiles, &StoreError{Op: "ListObjectsV2", Bucket: bucket, Err: wrapStoreErr(pageErr)}
		}
		for _, object := range currentPage.Contents {
			info := ObjectInfo{Size: aws.ToInt64(object.Size)}
			if object.LastModified != nil {
				info.ModTime = *object.LastModified
			}
			bucketFiles[aws.ToString(object.Key)] = info
		}
	}

	return bucketFiles, nil
}

func (s *S3Client) UploadFile(ctx context.Context, bucket, key string, file *os.File) error {
	uploader := manager.NewUploader(s.Client)
	_, putErr := uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   file,
	})
	if putErr != nil {
		return &StoreError{Op: "PutObject", Bucket: bucket, Key: key, Err: wrapStoreErr(putErr)}
	}

	return nil
}

func (s *S3Client) DeleteObject(ctx context.Context, bucket string, key string) error {
	delReq := &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(strings.TrimPrefix(key, "/")),
	}
	if _, delErr := s.Client.DeleteObject(ctx, delReq); delErr != nil {
		return &StoreError{Op: "DeleteObject", Bucket: bucket, Key: key, Err: wrapStoreErr(delErr)}
	}

	return nil
}

// wrapStoreErr tags SDK errors with the sentinel the retry loop keys on.
func wrapStoreErr(err error) error {
	switch ClassifyError(err) {
	case ClassTransient:
		return fmt.Errorf("%w: %w", ErrStoreUnreachable, err)
	case ClassPermission:
		return fmt.Errorf("%w: %w", ErrAccessDenied, err)
	case ClassNotFound:
		return fmt.Errorf("%w: %w", ErrObjectNotFound, err)
	}

	var noSuchBucket *types.NoSuchBucket
	if errors.As(err, &noSuchBucket) {
		return fmt.Errorf("%w: %w", ErrBucketNotFound, err)
	}

	return err
}
