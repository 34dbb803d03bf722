package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/pkg/errors"
)

// maxDiagnosticBytes bounds the stderr kept on a failed command. ffmpeg
// prints its fatal error last, so the tail is kept.
const maxDiagnosticBytes = 8 << 10

// CommandRunner interface for command execution (enables mocking in tests)
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner implements CommandRunner using os/exec. Stdout is returned and
// stderr is kept for the error.
type ExecRunner struct{}

// Run executes a command and waits for it to exit
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = errors.Wrap(ctxErr, err.Error())
		}
		return stdout.Bytes(), &ExecError{
			Command: name,
			Stderr:  tail(strings.TrimSpace(stderr.String()), maxDiagnosticBytes),
			Err:     err,
		}
	}
	return stdout.Bytes(), nil
}

// ExecError is a failed external command together with what it wrote to
// stderr.
type ExecError struct {
	Command string
	Stderr  string
	Err     error
}

func (e *ExecError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("%s: %v", e.Command, e.Err)
	}
	return fmt.Sprintf("%s: %v: %s", e.Command, e.Err, e.Stderr)
}

func (e *ExecError) Unwrap() error {
	return e.Err
}

// Diagnostic returns the stderr of the first ExecError in err's chain, or
// err's message when there is none.
func Diagnostic(err error) string {
	if err == nil {
		return ""
	}
	var execErr *ExecError
	if errors.As(err, &execErr) && execErr.Stderr != "" {
		return execErr.Stderr
	}
	return err.Error()
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
