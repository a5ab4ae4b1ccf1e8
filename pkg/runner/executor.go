package runner

import (
	"context"
	"fmt"
	"os/exec"
)

// Executor runs task commands.
type Executor interface {
	Run(ctx context.Context, workdir string, command string) ([]byte, error)
}

// shellExecutor is the default Executor, running commands through the shell.
type shellExecutor struct{}

// NewExecutor creates the default shell-backed executor.
func NewExecutor() Executor {
	return &shellExecutor{}
}

// Run executes a command in the given working directory. It respects the
// provided context for cancellation.
func (e *shellExecutor) Run(ctx context.Context, workdir string, command string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = workdir

	output, err := cmd.CombinedOutput()
	if err != nil {
		return output, fmt.Errorf("command failed: %w\nOutput: %s", err, string(output))
	}
	return output, nil
}
