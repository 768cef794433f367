package main

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/sns"
)

type MockSNSClient struct {
	PublishRequests []*sns.PublishInput
	PublishErr      error
}

func (c *MockSNSClient) PublishMessage(ctx context.Context, msg *sns.PublishInput) error {
	c.PublishRequests = append(c.PublishRequests, msg)
	return c.PublishErr
}

func NewMockSNSClient() *MockSNSClient {
	return &MockSNSClient{
		PublishRequests: make([]*sns.PublishInput, 0),
	}
}

// MockNotifier records outcomes handed to it.
type MockNotifier struct {
	Buckets  []string
	Outcomes []BackupOutcome
	Err      error
}

func (n *MockNotifier) NotifyBackupResults(bucket string, outcome BackupOutcome) error {
	n.Buckets = append(n.Buckets, bucket)
	n.Outcomes = append(n.Outcomes, outcome)
	return n.Err
}
