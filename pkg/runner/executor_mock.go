package runner

import (
	"context"
)

// MockExecutor is a mock implementation of Executor for testing. It records
// every command it is asked to run.
type MockExecutor struct {
	MockOutput []byte
	MockError  error
	Commands   []string
}

func (m *MockExecutor) Run(ctx context.Context, workdir string, command string) ([]byte, error) {
	m.Commands = append(m.Commands, command)
	return m.MockOutput, m.MockError
}
