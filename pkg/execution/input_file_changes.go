package execution

import (
	"fmt"

	"github.com/stridebuild/stride/pkg/fingerprint"
)

// InputFileChanges is a ChangeContainer over input file properties that can
// additionally be visited one property at a time. The per-property entry
// point serves incremental task execution, which asks for the delta of a
// single declared property; the whole-container entry point serves the
// detector's summarizing pass.
type InputFileChanges interface {
	ChangeContainer
	AcceptProperty(propertyName string, visitor ChangeVisitor) bool
}

// inputFileChanges compares input file fingerprints for a fixed subset of
// properties, in one of two granularities. Coarse mode emits a single change
// per differing property and is cheap enough for the rebuild-trigger pass.
// Detailed mode emits one change per changed file and only runs when nothing
// else forced a rebuild, since it is the most expensive comparison in the
// pipeline.
type inputFileChanges struct {
	previous   map[string]fingerprint.Fingerprint
	current    map[string]fingerprint.Fingerprint
	properties []string
	detailed   bool
}

func (c *inputFileChanges) Accept(visitor ChangeVisitor) bool {
	for _, property := range c.properties {
		if !c.AcceptProperty(property, visitor) {
			return false
		}
	}
	return true
}

func (c *inputFileChanges) AcceptProperty(propertyName string, visitor ChangeVisitor) bool {
	currentFingerprint, declared := c.current[propertyName]
	if !declared {
		return true
	}
	previousFingerprint, existed := c.previous[propertyName]
	if !existed {
		// Added properties are reported as property-set changes.
		return true
	}

	if !c.detailed {
		if previousFingerprint.Equal(currentFingerprint) {
			return true
		}
		return visitor(Change{
			Property: propertyName,
			Message:  fmt.Sprintf("Input property '%s' file collection has changed", propertyName),
		})
	}

	for _, delta := range fingerprint.Diff(previousFingerprint, currentFingerprint) {
		change := Change{
			Property: propertyName,
			Path:     delta.Path,
			Kind:     delta.Kind,
			Message:  fmt.Sprintf("Input property '%s': %s has been %s", propertyName, delta.Path, pastTense(delta.Kind)),
		}
		if !visitor(change) {
			return false
		}
	}
	return true
}

// inputFileChangesWrapper rebinds a decorated ChangeContainer back to the
// InputFileChanges interface: whole-container visits go through the decorator
// (so error handling and caching apply), per-property visits go straight to
// the undecorated comparator.
type inputFileChangesWrapper struct {
	inputFileChanges InputFileChanges
	changeContainer  ChangeContainer
}

func (w *inputFileChangesWrapper) Accept(visitor ChangeVisitor) bool {
	return w.changeContainer.Accept(visitor)
}

func (w *inputFileChangesWrapper) AcceptProperty(propertyName string, visitor ChangeVisitor) bool {
	return w.inputFileChanges.AcceptProperty(propertyName, visitor)
}
