package main

import (
	"context"
	"os"
)

type MockS3Client struct {
	UploadRequests []MockRequest
	DeleteRequests []MockRequest
	HeadRequests   []string
	ListRequests   []MockRequest
	mockList       map[string]ObjectInfo

	// BucketMissing makes BucketExists report false.
	BucketMissing bool
	// HeadErrs are returned by successive BucketExists calls, then nil.
	HeadErrs []error
	// HeadResults are reported by successive successful BucketExists calls
	// before falling back to BucketMissing.
	HeadResults []bool
	UploadErr   error
	DeleteErr   error
}

type MockRequest struct {
	Bucket string
	Key    string
}

func NewMockClient(mocked map[string]ObjectInfo) *MockS3Client {
	return &MockS3Client{
		UploadRequests: make([]MockRequest, 0),
		DeleteRequests: make([]MockRequest, 0),
		mockList:       mocked,
	}
}

func (s *MockS3Client) BucketExists(ctx context.Context, bucket string) (bool, error) {
	s.HeadRequests = append(s.HeadRequests, bucket)
	if len(s.HeadErrs) > 0 {
		err := s.HeadErrs[0]
		s.HeadErrs = s.HeadErrs[1:]
		if err != nil {
			return false, err
		}
	}
	if len(s.HeadResults) > 0 {
		exists := s.HeadResults[0]
		s.HeadResults = s.HeadResults[1:]
		return exists, nil
	}
	return !s.BucketMissing, nil
}

func (s *MockS3Client) ListKeys(ctx context.Context, bucket, prefix string) (map[string]ObjectInfo, error) {
	s.ListRequests = append(s.ListRequests, MockRequest{Bucket: bucket, Key: prefix})
	return s.mockList, nil
}

func (s *MockS3Client) UploadFile(ctx context.Context, bucket string, key string, file *os.File) error {
	if s.UploadErr != nil {
		return s.UploadErr
	}
	s.UploadRequests = append(s.UploadRequests, MockRequest{Bucket: bucket, Key: key})
	return nil
}

func (s *MockS3Client) DeleteObject(ctx context.Context, bucket string, key string) error {
	if s.DeleteErr != nil {
		return s.DeleteErr
	}
	s.DeleteRequests = append(s.DeleteRequests, MockRequest{Bucket: bucket, Key: key})
	return nil
}

// MockMirrorer replays canned output lines.
type MockMirrorer struct {
	Requests []MirrorRequest
	Lines    []string
	StartErr error
	EndErr   error
}

func (m *MockMirrorer) Mirror(ctx context.Context, req MirrorRequest) (LineStream, error) {
	m.Requests = append(m.Requests, req)
	if m.StartErr != nil {
		return nil, m.StartErr
	}
	return &mockStream{lines: m.Lines, pos: -1, err: m.EndErr}, nil
}

type mockStream struct {
	lines []string
	pos   int
	err   error
}

func (s *mockStream) Scan() bool {
	s.pos++
	return s.pos < len(s.lines)
}

func (s *mockStream) Text() string { return s.lines[s.pos] }

func (s *mockStream) Err() error {
	if s.pos < len(s.lines) {
		return nil
	}
	return s.err
}
