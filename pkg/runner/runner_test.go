package runner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/stridebuild/stride/pkg/pipeline"
)

func writeInput(t *testing.T, workspace, rel, content string) {
	t.Helper()
	path := filepath.Join(workspace, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
}

func buildTask(incremental bool) *pipeline.Task {
	return &pipeline.Task{
		Name:    "build",
		Command: "echo build",
		Inputs:  map[string]any{"mode": "fast"},
		InputFiles: []pipeline.FileProperty{
			{Name: "sources", Path: "src", Incremental: incremental},
		},
		OutputFiles: []pipeline.FileProperty{
			{Name: "binaries", Path: "build"},
		},
	}
}

func TestRunTaskFirstRun(t *testing.T) {
	workspace := t.TempDir()
	writeInput(t, workspace, "src/a.txt", "alpha")
	executor := &MockExecutor{}
	runner := New(workspace, executor)

	result := runner.RunTask(context.Background(), buildTask(true))

	if result.Status != StatusExecuted {
		t.Fatalf("Expected %s, got %s (%s)", StatusExecuted, result.Status, result.Error)
	}
	if len(result.Reasons) != 1 || !strings.Contains(result.Reasons[0], "No history is available") {
		t.Errorf("Expected a first-run reason, got %v", result.Reasons)
	}
	if !reflect.DeepEqual(executor.Commands, []string{"echo build"}) {
		t.Errorf("Expected the task command to run, got %v", executor.Commands)
	}
	if result.RunID == "" {
		t.Error("Expected a run ID for an executed task")
	}
}

func TestRunTaskUpToDate(t *testing.T) {
	workspace := t.TempDir()
	writeInput(t, workspace, "src/a.txt", "alpha")
	executor := &MockExecutor{}
	runner := New(workspace, executor)
	task := buildTask(true)

	runner.RunTask(context.Background(), task)
	result := runner.RunTask(context.Background(), task)

	if result.Status != StatusUpToDate {
		t.Fatalf("Expected %s, got %s with reasons %v", StatusUpToDate, result.Status, result.Reasons)
	}
	if len(executor.Commands) != 1 {
		t.Errorf("Up-to-date task must not execute again, commands: %v", executor.Commands)
	}
}

func TestRunTaskIncrementalInputChange(t *testing.T) {
	workspace := t.TempDir()
	writeInput(t, workspace, "src/a.txt", "alpha")
	executor := &MockExecutor{}
	runner := New(workspace, executor)
	task := buildTask(true)

	runner.RunTask(context.Background(), task)
	writeInput(t, workspace, "src/a.txt", "alpha changed")
	result := runner.RunTask(context.Background(), task)

	if result.Status != StatusIncremental {
		t.Fatalf("Expected %s, got %s with reasons %v", StatusIncremental, result.Status, result.Reasons)
	}
	if !result.Incremental {
		t.Error("Expected an incremental execution")
	}
	if len(result.Reasons) == 0 || !strings.Contains(result.Reasons[0], "a.txt") {
		t.Errorf("Expected a per-file reason, got %v", result.Reasons)
	}
	if len(executor.Commands) != 2 {
		t.Errorf("Expected a re-execution, commands: %v", executor.Commands)
	}
}

func TestRunTaskNonIncrementalInputChange(t *testing.T) {
	workspace := t.TempDir()
	writeInput(t, workspace, "src/a.txt", "alpha")
	executor := &MockExecutor{}
	runner := New(workspace, executor)
	task := buildTask(false)

	runner.RunTask(context.Background(), task)
	writeInput(t, workspace, "src/a.txt", "alpha changed")
	result := runner.RunTask(context.Background(), task)

	if result.Status != StatusExecuted {
		t.Fatalf("Expected %s, got %s", StatusExecuted, result.Status)
	}
	if result.Incremental {
		t.Error("All-or-nothing property must force a full execution")
	}
	if len(result.Reasons) == 0 || !strings.Contains(result.Reasons[0], "file collection has changed") {
		t.Errorf("Expected a coarse reason, got %v", result.Reasons)
	}
}

func TestRunTaskValueChange(t *testing.T) {
	workspace := t.TempDir()
	writeInput(t, workspace, "src/a.txt", "alpha")
	executor := &MockExecutor{}
	runner := New(workspace, executor)

	runner.RunTask(context.Background(), buildTask(true))

	changed := buildTask(true)
	changed.Inputs["mode"] = "slow"
	result := runner.RunTask(context.Background(), changed)

	if result.Status != StatusExecuted {
		t.Fatalf("Expected %s, got %s with reasons %v", StatusExecuted, result.Status, result.Reasons)
	}
	if !containsReason(result.Reasons, "Value of input property 'mode'") {
		t.Errorf("Expected a value-change reason, got %v", result.Reasons)
	}
}

func TestRunTaskCommandChange(t *testing.T) {
	workspace := t.TempDir()
	writeInput(t, workspace, "src/a.txt", "alpha")
	executor := &MockExecutor{}
	runner := New(workspace, executor)

	runner.RunTask(context.Background(), buildTask(true))

	changed := buildTask(true)
	changed.Command = "echo build v2"
	result := runner.RunTask(context.Background(), changed)

	if result.Status != StatusExecuted {
		t.Fatalf("Expected %s, got %s", StatusExecuted, result.Status)
	}
	if !containsReason(result.Reasons, "The implementation of task 'build' has changed") {
		t.Errorf("Expected an implementation reason, got %v", result.Reasons)
	}
}

func TestRunTaskFailureForcesRerun(t *testing.T) {
	workspace := t.TempDir()
	writeInput(t, workspace, "src/a.txt", "alpha")
	task := buildTask(true)

	failing := &MockExecutor{MockError: errors.New("exit status 1")}
	result := New(workspace, failing).RunTask(context.Background(), task)
	if result.Status != StatusFailed {
		t.Fatalf("Expected %s, got %s", StatusFailed, result.Status)
	}

	// Nothing changed on disk, but the failed run must not count as history
	// worth trusting.
	executor := &MockExecutor{}
	result = New(workspace, executor).RunTask(context.Background(), task)
	if result.Status != StatusExecuted {
		t.Fatalf("Expected %s after a failure, got %s", StatusExecuted, result.Status)
	}
	if !containsReason(result.Reasons, "failed previously") {
		t.Errorf("Expected a previous-failure reason, got %v", result.Reasons)
	}
}

func TestRunTaskSetupCommands(t *testing.T) {
	workspace := t.TempDir()
	executor := &MockExecutor{}
	runner := New(workspace, executor)
	task := &pipeline.Task{
		Name:    "prep",
		Command: "echo main",
		Setup:   []string{"mkdir -p build", "echo ready"},
	}

	result := runner.RunTask(context.Background(), task)

	if result.Status != StatusExecuted {
		t.Fatalf("Expected %s, got %s", StatusExecuted, result.Status)
	}
	want := []string{"mkdir -p build", "echo ready", "echo main"}
	if !reflect.DeepEqual(executor.Commands, want) {
		t.Errorf("Expected %v, got %v", want, executor.Commands)
	}
}

func TestRunTaskSetupChange(t *testing.T) {
	workspace := t.TempDir()
	executor := &MockExecutor{}
	runner := New(workspace, executor)

	task := &pipeline.Task{Name: "prep", Command: "echo main", Setup: []string{"echo one"}}
	runner.RunTask(context.Background(), task)

	changed := &pipeline.Task{Name: "prep", Command: "echo main", Setup: []string{"echo two"}}
	result := runner.RunTask(context.Background(), changed)

	if result.Status != StatusExecuted {
		t.Fatalf("Expected %s, got %s", StatusExecuted, result.Status)
	}
	if !containsReason(result.Reasons, "additional actions") {
		t.Errorf("Expected an additional-actions reason, got %v", result.Reasons)
	}
}

func TestRunPipelineOrder(t *testing.T) {
	workspace := t.TempDir()
	executor := &MockExecutor{}
	runner := New(workspace, executor)
	p := &pipeline.Pipeline{Name: "demo", Tasks: []pipeline.Task{
		{Name: "second", Command: "echo second", DependsOn: []string{"first"}},
		{Name: "first", Command: "echo first"},
	}}

	results, err := runner.RunPipeline(context.Background(), p)
	if err != nil {
		t.Fatalf("RunPipeline failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %v", results)
	}
	if results[0].Task != "first" || results[1].Task != "second" {
		t.Errorf("Expected dependency order, got %s then %s", results[0].Task, results[1].Task)
	}
	if !reflect.DeepEqual(executor.Commands, []string{"echo first", "echo second"}) {
		t.Errorf("Commands out of order: %v", executor.Commands)
	}
}

func TestRunPipelineStopsOnFailure(t *testing.T) {
	workspace := t.TempDir()
	executor := &MockExecutor{MockError: errors.New("exit status 1")}
	runner := New(workspace, executor)
	p := &pipeline.Pipeline{Name: "demo", Tasks: []pipeline.Task{
		{Name: "first", Command: "echo first"},
		{Name: "second", Command: "echo second", DependsOn: []string{"first"}},
	}}

	results, err := runner.RunPipeline(context.Background(), p)
	if err == nil {
		t.Fatal("Expected an error when a task fails")
	}
	if len(results) != 1 || results[0].Status != StatusFailed {
		t.Errorf("Expected the run to stop at the failed task, got %v", results)
	}
}

func TestRunPipelineCycle(t *testing.T) {
	workspace := t.TempDir()
	runner := New(workspace, &MockExecutor{})
	p := &pipeline.Pipeline{Name: "demo", Tasks: []pipeline.Task{
		{Name: "a", Command: "echo", DependsOn: []string{"b"}},
		{Name: "b", Command: "echo", DependsOn: []string{"a"}},
	}}

	if _, err := runner.RunPipeline(context.Background(), p); err == nil {
		t.Error("Expected a cycle error")
	}
}

func containsReason(reasons []string, fragment string) bool {
	for _, reason := range reasons {
		if strings.Contains(reason, fragment) {
			return true
		}
	}
	return false
}
