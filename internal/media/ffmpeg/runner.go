package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"demoforge/internal/services"
)

const stderrTailLines = 12

// ExecFunc runs binary with args and returns captured stdout and stderr.
type ExecFunc func(ctx context.Context, binary string, args ...string) (stdout, stderr []byte, err error)

// Runner invokes a configured ffmpeg binary.
type Runner struct {
	Binary string
	exec   ExecFunc
}

// New returns a runner for binary (defaults to "ffmpeg").
func New(binary string) *Runner {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	return &Runner{Binary: binary, exec: execCommand}
}

// WithExec swaps the process launcher.
func (r *Runner) WithExec(fn ExecFunc) *Runner {
	if fn != nil {
		r.exec = fn
	}
	return r
}

// Run executes ffmpeg with banner and stdin disabled.
func (r *Runner) Run(ctx context.Context, args ...string) error {
	_, _, err := r.run(ctx, args...)
	return err
}

func (r *Runner) run(ctx context.Context, args ...string) ([]byte, []byte, error) {
	full := make([]string, 0, len(args)+2)
	full = append(full, "-hide_banner", "-nostdin")
	full = append(full, args...)
	fn := r.exec
	if fn == nil {
		fn = execCommand
	}
	stdout, stderr, err := fn(ctx, r.Binary, full...)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return stdout, stderr, fmt.Errorf("ffmpeg interrupted: %w", ctxErr)
		}
		return stdout, stderr, &Error{Args: full, Stderr: string(stderr), Err: err}
	}
	return stdout, stderr, nil
}

// Error is a failed ffmpeg invocation.
type Error struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *Error) Error() string {
	tail := e.Tail()
	if tail == "" {
		return fmt.Sprintf("ffmpeg: %v", e.Err)
	}
	return fmt.Sprintf("ffmpeg: %v: %s", e.Err, tail)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the external tool marker.
func (e *Error) Is(target error) bool { return target == services.ErrExternalTool }

// Tail returns the last few non-empty stderr lines.
func (e *Error) Tail() string {
	lines := strings.Split(strings.TrimSpace(e.Stderr), "\n")
	kept := make([]string, 0, stderrTailLines)
	for i := len(lines) - 1; i >= 0 && len(kept) < stderrTailLines; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			kept = append(kept, line)
		}
	}
	for i, j := 0, len(kept)-1; i < j; i, j = i+1, j-1 {
		kept[i], kept[j] = kept[j], kept[i]
	}
	return strings.Join(kept, " | ")
}

// Hint suggests an operator fix based on stderr.
func (e *Error) Hint() string {
	return Hint(e.Stderr)
}

func execCommand(ctx context.Context, binary string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}
