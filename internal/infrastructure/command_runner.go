package infrastructure

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"go.uber.org/zap"
)

// waitDelay bounds how long Wait blocks on open pipes after the process is killed
const waitDelay = 5 * time.Second

// CommandResult holds the captured output of an external command
type CommandResult struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// CommandRunner executes external tools. Tests replace it with a fake.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) (*CommandResult, error)
}

// ExecRunner runs commands as subprocesses
type ExecRunner struct {
	logger *zap.Logger
}

// NewExecRunner creates a new subprocess runner
func NewExecRunner(logger *zap.Logger) *ExecRunner {
	return &ExecRunner{logger: logger}
}

// Run executes name with args, capturing stdout and stderr.
// The process group is killed when ctx is done.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) (*CommandResult, error) {
	// Note: exec.CommandContext passes args directly to the process, no shell quoting needed
	cmdLine := ShellEscapeCommand(name, args...)
	r.logger.Debug("Running command", zap.String("cmd", cmdLine))

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay
	setProcessGroup(cmd)

	start := time.Now()
	err := cmd.Run()
	result := &CommandResult{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		ExitCode: cmd.ProcessState.ExitCode(),
	}

	r.logger.Debug("Command finished",
		zap.String("binary", name),
		zap.Int("exit_code", result.ExitCode),
		zap.Duration("elapsed", time.Since(start)))

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return result, fmt.Errorf("%s interrupted: %w", name, ctxErr)
		}
		var execErr *exec.Error
		if errors.As(err, &execErr) {
			return result, fmt.Errorf("%s not runnable: %w", name, err)
		}
		return result, fmt.Errorf("%s failed: %w", name, err)
	}

	return result, nil
}

// tail returns at most the last n bytes of output as a string
func tail(output []byte, n int) string {
	if len(output) > n {
		output = output[len(output)-n:]
	}
	return string(bytes.TrimSpace(output))
}
