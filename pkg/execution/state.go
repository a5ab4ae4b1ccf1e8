package execution

import (
	"encoding/json"

	"github.com/stridebuild/stride/pkg/fingerprint"
)

// Implementation identifies the executable logic of a task: a stable type
// name plus a content fingerprint of whatever defines its behavior (command
// text, tool version).
type Implementation struct {
	TypeName string           `json:"typeName"`
	Hash     fingerprint.Hash `json:"hash"`
}

// ValueSnapshot is a captured non-file input property value. Invalid marks a
// value that could not be materialized at capture time; such snapshots always
// compare as changed so a capture failure can never produce a false
// up-to-date verdict.
type ValueSnapshot struct {
	Value   any  `json:"value"`
	Invalid bool `json:"invalid,omitempty"`
}

// SnapshotValue captures a property value. Values that cannot be represented
// are recorded as invalid rather than failing the capture.
func SnapshotValue(value any) ValueSnapshot {
	if _, err := json.Marshal(value); err != nil {
		return ValueSnapshot{Invalid: true}
	}
	return ValueSnapshot{Value: value}
}

// PreviousExecutionState is what the history layer recorded after the last
// execution of a task. Implementation may be nil: history is written even
// when validation fails, so the previous implementation can be unknown.
type PreviousExecutionState struct {
	RunID                     string                             `json:"runId"`
	Implementation            *Implementation                    `json:"implementation,omitempty"`
	AdditionalImplementations []Implementation                   `json:"additionalImplementations,omitempty"`
	InputProperties           map[string]ValueSnapshot           `json:"inputProperties,omitempty"`
	InputFileProperties       map[string]fingerprint.Fingerprint `json:"inputFileProperties,omitempty"`
	OutputFilesProducedByWork map[string]fingerprint.Snapshot    `json:"outputFilesProducedByWork,omitempty"`
	Successful                bool                               `json:"successful"`
}

// CurrentExecutionState is the state of a task captured just before it would
// execute. The implementation is always known by the time detection runs.
type CurrentExecutionState struct {
	Implementation             Implementation
	AdditionalImplementations  []Implementation
	InputProperties            map[string]ValueSnapshot
	InputFileProperties        map[string]fingerprint.Fingerprint
	OutputFileSnapshots        map[string]fingerprint.Snapshot
	DetectedOverlappingOutputs bool
}
