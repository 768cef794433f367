package main

type Notifier interface {
	NotifyBackupResults(bucket string, outcome BackupOutcome) error
}
