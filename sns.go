package main

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

// SNS rejects messages larger than 256KB.
const maxSNSMessageBytes = 256 * 1024

func NewSNSNotifier(ctx context.Context, creds Credentials, settings Settings) (Notifier, error) {
	var notifier Notifier

	cfg, cfgErr := loadAWSConfig(ctx, creds, settings)
	if cfgErr != nil {
		return notifier, cfgErr
	}
	snsClient := &SNSClient{sns.NewFromConfig(cfg)}
	notifier = &SNSNotifier{Client: snsClient, Topic: settings.SNSTopic, Timeout: 30 * time.Second}

	return notifier, nil
}

type SNSClientIface interface {
	PublishMessage(ctx context.Context, msg *sns.PublishInput) error
}

type SNSClient struct {
	Client *sns.Client
}

func (s *SNSClient) PublishMessage(ctx context.Context, msg *sns.PublishInput) error {
	_, publishErr := s.Client.Publish(ctx, msg)
	return publishErr
}

type SNSNotifier struct {
	Client  SNSClientIface
	Topic   string
	Timeout time.Duration
}

func (s *SNSNotifier) NotifyBackupResults(bucket string, outcome BackupOutcome) error {
	statusString := "failed"
	if outcome.Succeeded {
		statusString = "succeeded"
	}

	snsPublishReq := &sns.PublishInput{
		Message:  aws.String(backupReport(outcome)),
		TopicArn: aws.String(s.Topic),
		Subject:  aws.String(fmt.Sprintf("Backup %s: %s", statusString, bucket)),
	}

	ctx := context.Background()
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	return s.Client.PublishMessage(ctx, snsPublishReq)
}

func backupReport(outcome BackupOutcome) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Started: %s\n", outcome.Started.Format(completedLayout))
	fmt.Fprintf(&b, "Finished: %s\n", outcome.Finished.Format(completedLayout))
	fmt.Fprintf(&b, "Added: %d\n", outcome.Added)
	fmt.Fprintf(&b, "Deleted: %d\n", outcome.Deleted)

	writeList := func(title string, dirs []string) {
		if len(dirs) == 0 {
			return
		}
		fmt.Fprintf(&b, "\n%s:\n", title)
		for _, dir := range dirs {
			fmt.Fprintf(&b, "  - %s\n", dir)
		}
	}
	writeList("Failed", outcome.Failed)
	writeList("Skipped", outcome.Skipped)

	report := b.String()
	if len(report) > maxSNSMessageBytes {
		cut := maxSNSMessageBytes - len("...\n")
		for cut > 0 && !utf8.RuneStart(report[cut]) {
			cut--
		}
		report = report[:cut] + "...\n"
	}
	return report
}
