package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/fatih/color"
	log "github.com/sirupsen/logrus"
)

// consoleFormatter prints the bare message coloured by level.
type consoleFormatter struct{}

func (f *consoleFormatter) Format(entry *log.Entry) ([]byte, error) {
	var b bytes.Buffer
	b.WriteString(entry.Message)

	keys := make([]string, 0, len(entry.Data))
	for k := range entry.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, entry.Data[k])
	}

	var line string
	switch {
	case entry.Level <= log.ErrorLevel:
		line = color.RedString("%s", b.String())
	case entry.Level == log.WarnLevel:
		line = color.YellowString("%s", b.String())
	default:
		line = color.WhiteString("%s", b.String())
	}

	return []byte(line + "\n"), nil
}

// fileHook appends every entry to the run log with timestamps.
type fileHook struct {
	writer    io.Writer
	formatter log.Formatter
}

func (h *fileHook) Levels() []log.Level {
	return log.AllLevels
}

func (h *fileHook) Fire(entry *log.Entry) error {
	line, err := h.formatter.Format(entry)
	if err != nil {
		return err
	}
	_, err = h.writer.Write(line)
	return err
}

// NewLogger builds the console logger and, when logPath is set, attaches the
// append-only file sink. The returned closer releases the file.
func NewLogger(console io.Writer, logPath string) (*log.Logger, io.Closer, error) {
	logger := log.New()
	logger.SetOutput(console)
	logger.SetFormatter(&consoleFormatter{})
	logger.SetLevel(log.InfoLevel)

	if logPath == "" {
		return logger, io.NopCloser(nil), nil
	}

	logFile, openErr := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if openErr != nil {
		return logger, io.NopCloser(nil), fmt.Errorf("opening log file %s: %w", logPath, openErr)
	}
	logger.AddHook(&fileHook{
		writer: logFile,
		formatter: &log.TextFormatter{
			DisableColors:   true,
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		},
	})

	return logger, logFile, nil
}
