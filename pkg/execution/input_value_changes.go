package execution

import (
	"encoding/json"
	"fmt"

	"github.com/google/go-cmp/cmp"
)

// inputValueChanges reports value differences of non-file input properties
// present in both executions. Added and removed properties are already
// reported by propertyChanges and are skipped here.
type inputValueChanges struct {
	previous   map[string]ValueSnapshot
	current    map[string]ValueSnapshot
	executable Describable
}

// NewInputValueChanges compares the values of non-file input properties.
func NewInputValueChanges(previous, current map[string]ValueSnapshot, executable Describable) ChangeContainer {
	return &inputValueChanges{previous: previous, current: current, executable: executable}
}

func (c *inputValueChanges) Accept(visitor ChangeVisitor) bool {
	for _, name := range sortedNames(c.current) {
		previousValue, existed := c.previous[name]
		if !existed {
			continue
		}
		if valueSnapshotsEqual(previousValue, c.current[name]) {
			continue
		}
		change := Change{
			Property: name,
			Message:  fmt.Sprintf("Value of input property '%s' has changed for %s", name, c.executable.DisplayName()),
		}
		if !visitor(change) {
			return false
		}
	}
	return true
}

// valueSnapshotsEqual compares captured values structurally. Values are
// normalized through a JSON round-trip first: persisted snapshots come back
// with canonical JSON types (float64 numbers, map[string]any), and the fresh
// capture must compare equal to its own persisted form. Invalid snapshots
// never compare equal, so capture failures read as "changed". A value that
// cannot be normalized panics, which the error-handling container converts
// into a change.
func valueSnapshotsEqual(previous, current ValueSnapshot) bool {
	if previous.Invalid || current.Invalid {
		return false
	}
	return cmp.Equal(canonicalValue(previous.Value), canonicalValue(current.Value))
}

func canonicalValue(value any) any {
	data, err := json.Marshal(value)
	if err != nil {
		panic(fmt.Sprintf("cannot normalize input property value: %v", err))
	}
	var normalized any
	if err := json.Unmarshal(data, &normalized); err != nil {
		panic(fmt.Sprintf("cannot normalize input property value: %v", err))
	}
	return normalized
}
