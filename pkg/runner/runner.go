package runner

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/stridebuild/stride/pkg/execution"
	"github.com/stridebuild/stride/pkg/fingerprint"
	"github.com/stridebuild/stride/pkg/history"
	"github.com/stridebuild/stride/pkg/logging"
	"github.com/stridebuild/stride/pkg/pipeline"
	"github.com/stridebuild/stride/pkg/pubsub"
)

// Status classifies the outcome of evaluating one task.
type Status string

const (
	StatusUpToDate    Status = "up-to-date"
	StatusExecuted    Status = "executed"
	StatusIncremental Status = "executed-incrementally"
	StatusFailed      Status = "failed"
)

// TaskResult is the outcome of evaluating and possibly executing one task.
type TaskResult struct {
	Task        string        `json:"task"`
	RunID       string        `json:"runId,omitempty"`
	Status      Status        `json:"status"`
	Reasons     []string      `json:"reasons,omitempty"`
	Incremental bool          `json:"incremental"`
	Duration    time.Duration `json:"duration"`
	Error       string        `json:"error,omitempty"`
}

const (
	commandTaskType = "stride.CommandTask"
	setupActionType = "stride.SetupAction"
)

// Runner evaluates tasks against their recorded execution history, skips the
// ones that are up to date, and executes the rest.
type Runner struct {
	workspace string
	store     *history.Store
	detector  *execution.ChangeDetector
	executor  Executor
	publisher pubsub.Publisher // optional; nil outside web mode
}

// New creates a runner for the given workspace.
func New(workspace string, executor Executor) *Runner {
	return &Runner{
		workspace: workspace,
		store:     history.NewStore(workspace),
		detector:  execution.NewChangeDetector(execution.DefaultMaxReportedChanges),
		executor:  executor,
	}
}

// SetPublisher attaches a pub/sub publisher; task results are published on
// the "task_result" topic as they happen.
func (r *Runner) SetPublisher(p pubsub.Publisher) {
	r.publisher = p
}

// RunPipeline evaluates every task in dependency order, stopping at the first
// failure. Results for evaluated tasks are returned either way.
func (r *Runner) RunPipeline(ctx context.Context, p *pipeline.Pipeline) ([]TaskResult, error) {
	order, err := pipeline.NewTaskGraph(p).ExecutionOrder()
	if err != nil {
		return nil, err
	}

	var results []TaskResult
	for _, name := range order {
		result := r.RunTask(ctx, p.Task(name))
		results = append(results, result)
		r.publish(pubsub.TopicTaskResult, string(result.Status), result)

		if result.Status == StatusFailed {
			return results, fmt.Errorf("task '%s' failed: %s", name, result.Error)
		}
	}
	return results, nil
}

// RunTask evaluates a single task: capture current state, compare against
// history, skip or execute, and record the new state.
func (r *Runner) RunTask(ctx context.Context, task *pipeline.Task) TaskResult {
	start := time.Now()
	result := TaskResult{Task: task.Name}

	executable := execution.Description(fmt.Sprintf("task '%s'", task.Name))
	incrementalInputs := execution.NewIncrementalInputProperties(task.IncrementalProperties())

	current, err := r.captureCurrentState(task)
	if err != nil {
		return r.failed(result, start, fmt.Errorf("capturing state: %w", err))
	}

	previous, hasHistory, err := r.store.Load(task.Name)
	if err != nil {
		logging.Warn("discarding unreadable history", "task", task.Name, "error", err)
		hasHistory = false
	}

	var reasons []string
	var inputChanges execution.InputChanges

	if !hasHistory {
		// First-run fast path: nothing to compare against, the detection
		// engine is only invoked when a comparison is warranted.
		reasons = []string{fmt.Sprintf("No history is available for task '%s'", task.Name)}
	} else {
		current.DetectedOverlappingOutputs = fingerprint.DetectOverlappingOutputs(
			previous.OutputFilesProducedByWork, current.OutputFileSnapshots)

		changes := r.detector.DetectChanges(previous, current, executable, incrementalInputs)
		reasons = changes.ChangeMessages()

		if changes.Incremental() {
			if len(reasons) == 0 {
				result.Status = StatusUpToDate
				result.Duration = time.Since(start)
				logging.Debug("task is up to date", "task", task.Name)
				return result
			}
			inputChanges = changes.CreateInputChanges()
		}
	}

	result.Reasons = reasons
	result.Incremental = inputChanges != nil && inputChanges.Incremental()
	for _, reason := range reasons {
		logging.Info("out of date", "task", task.Name, "reason", reason)
	}

	runID, execErr := r.execute(ctx, task)
	result.RunID = runID

	recorded := execution.PreviousExecutionState{
		RunID:                     runID,
		Implementation:            &current.Implementation,
		AdditionalImplementations: current.AdditionalImplementations,
		InputProperties:           current.InputProperties,
		InputFileProperties:       current.InputFileProperties,
		Successful:                execErr == nil,
	}
	if outputs, snapErr := r.snapshotOutputs(task); snapErr == nil {
		recorded.OutputFilesProducedByWork = outputs
	} else {
		logging.Warn("could not snapshot outputs", "task", task.Name, "error", snapErr)
	}
	if saveErr := r.store.Save(task.Name, recorded); saveErr != nil {
		logging.Error("could not save history", "task", task.Name, "error", saveErr)
	}

	if execErr != nil {
		return r.failed(result, start, execErr)
	}

	if result.Incremental {
		result.Status = StatusIncremental
	} else {
		result.Status = StatusExecuted
	}
	result.Duration = time.Since(start)
	return result
}

func (r *Runner) execute(ctx context.Context, task *pipeline.Task) (string, error) {
	runID := uuid.NewString()
	logging.Debug("executing task", "task", task.Name, "runId", runID)

	for _, setup := range task.Setup {
		if _, err := r.executor.Run(ctx, r.workspace, setup); err != nil {
			return runID, fmt.Errorf("setup command: %w", err)
		}
	}
	if _, err := r.executor.Run(ctx, r.workspace, task.Command); err != nil {
		return runID, err
	}
	return runID, nil
}

// captureCurrentState materializes the before-execution snapshot of a task:
// implementation fingerprints, input property values, input file fingerprints
// and the current state of the output locations.
func (r *Runner) captureCurrentState(task *pipeline.Task) (execution.CurrentExecutionState, error) {
	current := execution.CurrentExecutionState{
		Implementation: execution.Implementation{
			TypeName: commandTaskType,
			Hash:     fingerprint.HashBytes([]byte(task.Command)),
		},
	}

	for _, setup := range task.Setup {
		current.AdditionalImplementations = append(current.AdditionalImplementations, execution.Implementation{
			TypeName: setupActionType,
			Hash:     fingerprint.HashBytes([]byte(setup)),
		})
	}

	if len(task.Inputs) > 0 {
		current.InputProperties = make(map[string]execution.ValueSnapshot, len(task.Inputs))
		for name, value := range task.Inputs {
			current.InputProperties[name] = execution.SnapshotValue(value)
		}
	}

	if len(task.InputFiles) > 0 {
		current.InputFileProperties = make(map[string]fingerprint.Fingerprint, len(task.InputFiles))
		for _, prop := range task.InputFiles {
			fp, err := fingerprint.FingerprintTree(r.resolve(prop.Path))
			if err != nil {
				return current, fmt.Errorf("fingerprinting input property '%s': %w", prop.Name, err)
			}
			current.InputFileProperties[prop.Name] = fp
		}
	}

	outputs, err := r.snapshotOutputs(task)
	if err != nil {
		return current, err
	}
	current.OutputFileSnapshots = outputs

	return current, nil
}

func (r *Runner) snapshotOutputs(task *pipeline.Task) (map[string]fingerprint.Snapshot, error) {
	if len(task.OutputFiles) == 0 {
		return nil, nil
	}
	snapshots := make(map[string]fingerprint.Snapshot, len(task.OutputFiles))
	for _, prop := range task.OutputFiles {
		snapshot, err := fingerprint.SnapshotTree(r.resolve(prop.Path))
		if err != nil {
			return nil, fmt.Errorf("snapshotting output property '%s': %w", prop.Name, err)
		}
		snapshots[prop.Name] = snapshot
	}
	return snapshots, nil
}

func (r *Runner) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(r.workspace, path)
}

func (r *Runner) failed(result TaskResult, start time.Time, err error) TaskResult {
	result.Status = StatusFailed
	result.Error = err.Error()
	result.Duration = time.Since(start)
	logging.Error("task failed", "task", result.Task, "error", err)
	return result
}

func (r *Runner) publish(topic, eventType string, data interface{}) {
	if r.publisher == nil {
		return
	}
	if err := r.publisher.Publish(topic, eventType, data); err != nil {
		logging.Warn("could not publish event", "topic", topic, "error", err)
	}
}
