package execution

import "github.com/stridebuild/stride/pkg/fingerprint"

// DefaultMaxReportedChanges bounds the number of reasons collected in a
// single detection pass. Truncation is informational only: callers may infer
// "at least one" from a non-empty list, never an exact count.
const DefaultMaxReportedChanges = 3

// ChangeDetector decides whether a task's previous output can be reused
// verbatim, must be fully rebuilt, or can be rebuilt incrementally. It is
// stateless and safe to share across concurrent detection calls.
type ChangeDetector struct {
	maxReportedChanges int
}

// NewChangeDetector creates a detector with the given message cap. The cap is
// explicit rather than a hidden constant so the detector stays testable with
// different limits.
func NewChangeDetector(maxReportedChanges int) *ChangeDetector {
	if maxReportedChanges <= 0 {
		maxReportedChanges = DefaultMaxReportedChanges
	}
	return &ChangeDetector{maxReportedChanges: maxReportedChanges}
}

// DetectChanges compares two execution-state snapshots and produces the
// rebuild decision.
//
// The evaluation order is a contract, not an implementation detail: cheap
// structural checks (success state, implementation identity, property-set
// membership) run before expensive file-content checks, because any earlier
// difference already forces a full rebuild and makes later comparisons wasted
// work. The per-file incremental comparison runs only when the rebuild pass
// found nothing.
func (d *ChangeDetector) DetectChanges(
	previous PreviousExecutionState,
	current CurrentExecutionState,
	executable Describable,
	incrementalInputs IncrementalInputProperties,
) ExecutionStateChanges {
	previousSuccessState := NewPreviousSuccessChanges(previous.Successful, executable)

	implementationChanges := NewImplementationChanges(
		previous.Implementation, previous.AdditionalImplementations,
		current.Implementation, current.AdditionalImplementations,
		executable)

	inputPropertyChanges := NewPropertyChanges(
		previous.InputProperties, current.InputProperties, "Input", executable)
	inputPropertyValueChanges := NewInputValueChanges(
		previous.InputProperties, current.InputProperties, executable)

	inputFilePropertyChanges := NewPropertyChanges(
		previous.InputFileProperties, current.InputFileProperties, "Input file", executable)
	nonIncrementalInputFileChanges := incrementalInputs.NonIncrementalChanges(
		previous.InputFileProperties, current.InputFileProperties)

	outputFilePropertyChanges := NewPropertyChanges(
		previous.OutputFilesProducedByWork, current.OutputFileSnapshots, "Output", executable)
	remainingPreviouslyProducedOutputs := current.OutputFileSnapshots
	if current.DetectedOverlappingOutputs {
		remainingPreviouslyProducedOutputs = fingerprint.OutputsStillPresent(
			previous.OutputFilesProducedByWork, current.OutputFileSnapshots)
	}
	outputFileChanges := NewOutputFileChanges(
		previous.OutputFilesProducedByWork, remainingPreviouslyProducedOutputs)

	rebuildTriggeringChanges := NewErrorHandlingChangeContainer(executable, NewSummarizingChangeContainer(
		previousSuccessState,
		implementationChanges,
		inputPropertyChanges,
		inputPropertyValueChanges,
		outputFilePropertyChanges,
		outputFileChanges,
		inputFilePropertyChanges,
		nonIncrementalInputFileChanges,
	))
	rebuildReasons := collectChanges(rebuildTriggeringChanges, d.maxReportedChanges)

	if len(rebuildReasons) > 0 {
		return &nonIncrementalExecutionStateChanges{
			detectedExecutionStateChanges: detectedExecutionStateChanges{
				changeMessages:      rebuildReasons,
				inputFileProperties: current.InputFileProperties,
			},
		}
	}

	directIncrementalChanges := incrementalInputs.IncrementalChanges(
		previous.InputFileProperties, current.InputFileProperties)
	incrementalChanges := d.decorate(executable, directIncrementalChanges)
	incrementalChangeMessages := collectChanges(incrementalChanges, d.maxReportedChanges)

	return &incrementalExecutionStateChanges{
		detectedExecutionStateChanges: detectedExecutionStateChanges{
			changeMessages:      incrementalChangeMessages,
			inputFileProperties: current.InputFileProperties,
		},
		inputFileChanges: incrementalChanges,
	}
}

// decorate wraps the incremental comparator with caching (the bounded message
// list is derived twice within one detection call: once for logging, once for
// the input delta) and error handling, while keeping the per-property entry
// point reachable.
func (d *ChangeDetector) decorate(executable Describable, changes InputFileChanges) InputFileChanges {
	cached := NewCachingChangeContainer(d.maxReportedChanges, changes)
	handled := NewErrorHandlingChangeContainer(executable, cached)
	return &inputFileChangesWrapper{inputFileChanges: changes, changeContainer: handled}
}

// previousSuccessChanges reports a single change when the previous execution
// did not complete successfully: its recorded outputs cannot be trusted.
type previousSuccessChanges struct {
	successful bool
	executable Describable
}

// NewPreviousSuccessChanges reports whether the previous execution outcome
// alone forces a rebuild.
func NewPreviousSuccessChanges(successful bool, executable Describable) ChangeContainer {
	return &previousSuccessChanges{successful: successful, executable: executable}
}

func (c *previousSuccessChanges) Accept(visitor ChangeVisitor) bool {
	if c.successful {
		return true
	}
	return visitor(Change{Message: "Task has failed previously"})
}
