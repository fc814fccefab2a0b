package infrastructure

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/obidl-go/internal/domain"
)

// ExecToolRunner runs external download binaries through os/exec with a
// timeout and captured output.
type ExecToolRunner struct {
	logger *zap.Logger
}

// NewExecToolRunner creates a new exec-based tool runner
func NewExecToolRunner(log *zap.Logger) *ExecToolRunner {
	if log == nil {
		log = zap.NewNop()
	}
	return &ExecToolRunner{logger: log}
}

// Run executes argv[0] with the remaining arguments. A non-zero exit code
// is reported through ToolResult, not as an error; errors mean the process
// could not run at all (binary missing, context cancelled).
func (r *ExecToolRunner) Run(ctx context.Context, argv []string, workDir string, timeout time.Duration) (domain.ToolResult, error) {
	if len(argv) == 0 {
		return domain.ToolResult{}, fmt.Errorf("empty command line")
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	// Note: exec.Command passes args directly to the process, no shell
	// quoting needed; escaping is for the log line only.
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = workDir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.logger.Debug("Running external tool",
		zap.String("cmd", ShellEscapeCommand(argv[0], argv[1:]...)),
		zap.String("dir", workDir))

	err := cmd.Run()
	result := domain.ToolResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		return result, fmt.Errorf("failed to run %s: %w", argv[0], err)
	}

	return result, nil
}
