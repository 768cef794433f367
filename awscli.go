package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

const tailLines = 20

// CLIMirror shells out to `aws s3 sync --delete`.
type CLIMirror struct {
	Binary      string
	Credentials Credentials
	Settings    Settings
}

func NewCLIMirror(creds Credentials, settings Settings) *CLIMirror {
	return &CLIMirror{Binary: "aws", Credentials: creds, Settings: settings}
}

func (m *CLIMirror) args(req MirrorRequest) []string {
	args := []string{"s3", "sync", req.LocalDir, req.RemoteURI()}
	if req.DeleteExtraneous {
		args = append(args, "--delete")
	}
	if m.Settings.Region != "" {
		args = append(args, "--region", m.Settings.Region)
	}
	if m.Settings.Endpoint != "" {
		args = append(args, "--endpoint-url", m.Settings.Endpoint)
	}
	return args
}

func (m *CLIMirror) Mirror(ctx context.Context, req MirrorRequest) (LineStream, error) {
	binary, lookErr := exec.LookPath(m.Binary)
	if lookErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrMirrorFailed, lookErr)
	}

	cmd := exec.CommandContext(ctx, binary, m.args(req)...)
	cmd.Env = append(os.Environ(),
		"AWS_ACCESS_KEY_ID="+m.Credentials.AccessKey,
		"AWS_SECRET_ACCESS_KEY="+m.Credentials.SecretAccessKey,
	)

	pr, pw, pipeErr := os.Pipe()
	if pipeErr != nil {
		return nil, pipeErr
	}
	cmd.Stdout = pw
	cmd.Stderr = pw

	if startErr := cmd.Start(); startErr != nil {
		pr.Close()
		pw.Close()
		return nil, fmt.Errorf("%w: %w", ErrMirrorFailed, startErr)
	}
	// the child holds its own copy of the write end
	pw.Close()

	scanner := bufio.NewScanner(pr)
	scanner.Split(scanCRLines)

	return &cliStream{cmd: cmd, pipe: pr, scanner: scanner}, nil
}

type cliStream struct {
	cmd     *exec.Cmd
	pipe    *os.File
	scanner *bufio.Scanner
	tail    []string
	err     error
	done    bool
}

func (s *cliStream) Scan() bool {
	if s.done {
		return false
	}
	if s.scanner.Scan() {
		s.remember(s.scanner.Text())
		return true
	}

	s.done = true
	readErr := s.scanner.Err()
	// an unread pipe would stall a child that is still writing
	s.pipe.Close()
	waitErr := s.cmd.Wait()

	switch {
	case waitErr != nil:
		s.err = classifyCLIFailure(waitErr, strings.Join(s.tail, "\n"))
	case readErr != nil:
		s.err = fmt.Errorf("%w: reading output: %w", ErrMirrorFailed, readErr)
	}
	return false
}

func (s *cliStream) remember(line string) {
	s.tail = append(s.tail, line)
	if len(s.tail) > tailLines {
		s.tail = s.tail[1:]
	}
}

func (s *cliStream) Text() string { return s.scanner.Text() }

func (s *cliStream) Err() error { return s.err }

// classifyCLIFailure maps the aws CLI diagnostics to the sentinels the retry
// loop understands. Unrecognised failures are plain mirror failures.
func classifyCLIFailure(waitErr error, output string) error {
	code := -1
	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		code = exitErr.ExitCode()
	}
	text := strings.ToLower(output)

	var kind error
	switch {
	case containsAny(text,
		"could not connect to the endpoint url",
		"connection was closed before we received a valid response",
		"connect timeout on endpoint url",
		"read timeout on endpoint url",
		"connection reset by peer"):
		kind = ErrStoreUnreachable
	case containsAny(text,
		"unable to locate credentials",
		"partial credentials found"):
		kind = ErrMissingCredentials
	case containsAny(text, "nosuchbucket", "specified bucket does not exist"):
		kind = ErrBucketNotFound
	case containsAny(text, "accessdenied", "access denied", "permission denied", "is not readable"):
		kind = ErrAccessDenied
	default:
		kind = ErrMirrorFailed
	}

	return fmt.Errorf("%w: aws s3 sync exited with code %d: %w", kind, code, waitErr)
}

// scanCRLines splits on \n, \r\n and bare \r; the CLI redraws its progress
// line with carriage returns.
func scanCRLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		if data[i] == '\r' && i+1 < len(data) && data[i+1] == '\n' {
			return i + 2, data[:i], nil
		}
		if data[i] == '\r' && i+1 == len(data) && !atEOF {
			// need more data to know whether \n follows
			return 0, nil, nil
		}
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
