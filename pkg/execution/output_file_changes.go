package execution

import (
	"fmt"

	"github.com/stridebuild/stride/pkg/fingerprint"
)

// outputFileChanges compares the outputs the previous execution produced
// against the current snapshots of the same locations. When overlapping
// outputs were detected the current side must already be narrowed to the
// entries still attributable to this task; content written by other work into
// a shared location is not a staleness signal.
type outputFileChanges struct {
	previous map[string]fingerprint.Snapshot
	current  map[string]fingerprint.Snapshot
}

// NewOutputFileChanges compares previously produced outputs against current
// (possibly overlap-narrowed) snapshots.
func NewOutputFileChanges(previous, current map[string]fingerprint.Snapshot) ChangeContainer {
	return &outputFileChanges{previous: previous, current: current}
}

func (c *outputFileChanges) Accept(visitor ChangeVisitor) bool {
	for _, property := range sortedNames(c.previous) {
		currentSnapshot, exists := c.current[property]
		if !exists {
			// Property set membership is reported by propertyChanges.
			continue
		}
		for _, delta := range fingerprint.DiffSnapshots(c.previous[property], currentSnapshot) {
			change := Change{
				Property: property,
				Path:     delta.Path,
				Kind:     delta.Kind,
				Message:  fmt.Sprintf("Output property '%s': %s has been %s", property, delta.Path, pastTense(delta.Kind)),
			}
			if !visitor(change) {
				return false
			}
		}
	}
	return true
}

func pastTense(kind fingerprint.ChangeKind) string {
	switch kind {
	case fingerprint.Added:
		return "added"
	case fingerprint.Removed:
		return "removed"
	default:
		return "changed"
	}
}
