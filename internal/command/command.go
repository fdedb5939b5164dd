// Package command runs external tools (ffmpeg, ffprobe, yt-dlp) behind a
// small interface so callers can be tested without the binaries installed.
package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"media-toolkit/internal/logging"
)

// Result captures one finished invocation.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runner abstracts process execution.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (Result, error)
}

// ExecRunner executes commands via os/exec.
type ExecRunner struct{}

// Run executes one command and captures stdout, stderr and the exit code.
// The process is killed when ctx ends.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) (Result, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logging.Debug("exec: %s %s", name, strings.Join(args, " "))

	err := cmd.Run()
	result := Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if err != nil {
		result.ExitCode = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		}
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		return result, &Error{Name: name, Result: result, Err: err}
	}

	return result, nil
}

// Error reports a failed command along with the tail of its stderr.
type Error struct {
	Name   string
	Result Result
	Err    error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s exited with code %d", e.Name, e.Result.ExitCode)
	if tail := lastLine(e.Result.Stderr); tail != "" {
		msg += ": " + tail
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSpace(s)
}

// Check verifies that name is on PATH and answers to versionArg, returning
// the first line of its version output.
func Check(name, versionArg string) (string, error) {
	path, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("%s not found in PATH", name)
	}
	logging.Debug("  %s path: %s", name, path)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	output, err := exec.CommandContext(ctx, path, versionArg).Output()
	if err != nil {
		return "", fmt.Errorf("failed to get %s version: %w", name, err)
	}

	return lastLine(strings.SplitN(string(output), "\n", 2)[0]), nil
}
