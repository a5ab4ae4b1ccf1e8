package execution

import "github.com/stridebuild/stride/pkg/fingerprint"

// FileChange is one entry of the per-property input delta handed to a task
// that executes incrementally.
type FileChange struct {
	Path     string
	Kind     fingerprint.ChangeKind
	Property string
}

// InputChanges is the input delta a task consumes when it runs. For a
// non-incremental outcome every current input file is reported as added: the
// task reprocesses its full input set.
type InputChanges interface {
	// Incremental reports whether the delta is a true per-file change set. A
	// false value means the task must treat all inputs as fresh.
	Incremental() bool

	// FileChanges returns the delta for one declared input file property.
	FileChanges(propertyName string) []FileChange
}

// ExecutionStateChanges is the decision produced by the change detector:
// either a full rebuild with reasons, or an incremental rebuild with a
// lazily-constructed per-property change set.
type ExecutionStateChanges interface {
	// Incremental reports whether the previous output can be partially reused.
	Incremental() bool

	// ChangeMessages returns the bounded, ordered list of human-readable
	// reasons. Empty for an incremental result means nothing changed at all.
	ChangeMessages() []string

	// InputFileProperties returns the current input file fingerprints, which
	// become the new history baseline regardless of the outcome.
	InputFileProperties() map[string]fingerprint.Fingerprint

	// CreateInputChanges builds the input delta on demand. The computation is
	// deferred because it is only needed when the caller actually proceeds to
	// execute the task.
	CreateInputChanges() InputChanges
}

type detectedExecutionStateChanges struct {
	changeMessages      []string
	inputFileProperties map[string]fingerprint.Fingerprint
}

func (c *detectedExecutionStateChanges) ChangeMessages() []string { return c.changeMessages }

func (c *detectedExecutionStateChanges) InputFileProperties() map[string]fingerprint.Fingerprint {
	return c.inputFileProperties
}

type incrementalExecutionStateChanges struct {
	detectedExecutionStateChanges
	inputFileChanges InputFileChanges
}

func (c *incrementalExecutionStateChanges) Incremental() bool { return true }

func (c *incrementalExecutionStateChanges) CreateInputChanges() InputChanges {
	return &incrementalInputChanges{inputFileChanges: c.inputFileChanges}
}

type nonIncrementalExecutionStateChanges struct {
	detectedExecutionStateChanges
}

func (c *nonIncrementalExecutionStateChanges) Incremental() bool { return false }

func (c *nonIncrementalExecutionStateChanges) CreateInputChanges() InputChanges {
	return &nonIncrementalInputChanges{inputFileProperties: c.inputFileProperties}
}

// incrementalInputChanges derives per-property file deltas from the cached
// incremental comparator, so the delta visible to the task is exactly what
// detection saw.
type incrementalInputChanges struct {
	inputFileChanges InputFileChanges
}

func (c *incrementalInputChanges) Incremental() bool { return true }

func (c *incrementalInputChanges) FileChanges(propertyName string) []FileChange {
	var changes []FileChange
	c.inputFileChanges.AcceptProperty(propertyName, func(change Change) bool {
		changes = append(changes, FileChange{Path: change.Path, Kind: change.Kind, Property: change.Property})
		return true
	})
	return changes
}

// nonIncrementalInputChanges reports every current input file as added: on a
// full rebuild the task starts from nothing and must process all of them.
type nonIncrementalInputChanges struct {
	inputFileProperties map[string]fingerprint.Fingerprint
}

func (c *nonIncrementalInputChanges) Incremental() bool { return false }

func (c *nonIncrementalInputChanges) FileChanges(propertyName string) []FileChange {
	current, declared := c.inputFileProperties[propertyName]
	if !declared {
		return nil
	}
	var changes []FileChange
	for _, delta := range fingerprint.Diff(fingerprint.Fingerprint{}, current) {
		changes = append(changes, FileChange{Path: delta.Path, Kind: delta.Kind, Property: propertyName})
	}
	return changes
}
