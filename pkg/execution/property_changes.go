package execution

import (
	"fmt"
	"sort"
)

// propertyChanges reports properties present in exactly one of two declared
// property-name sets, labeled with a category ("Input", "Input file",
// "Output"). Value or content differences of properties present in both sets
// are someone else's job.
type propertyChanges struct {
	previous   []string
	current    []string
	title      string
	executable Describable
}

// NewPropertyChanges compares two property-name sets. The names are reported
// in sorted order, additions before removals, for reproducible messages.
func NewPropertyChanges[V any](previous, current map[string]V, title string, executable Describable) ChangeContainer {
	return &propertyChanges{
		previous:   sortedNames(previous),
		current:    sortedNames(current),
		title:      title,
		executable: executable,
	}
}

func (c *propertyChanges) Accept(visitor ChangeVisitor) bool {
	previousSet := toSet(c.previous)
	currentSet := toSet(c.current)

	for _, name := range c.current {
		if _, existed := previousSet[name]; !existed {
			change := Change{
				Property: name,
				Message:  fmt.Sprintf("%s property '%s' has been added for %s", c.title, name, c.executable.DisplayName()),
			}
			if !visitor(change) {
				return false
			}
		}
	}

	for _, name := range c.previous {
		if _, exists := currentSet[name]; !exists {
			change := Change{
				Property: name,
				Message:  fmt.Sprintf("%s property '%s' has been removed for %s", c.title, name, c.executable.DisplayName()),
			}
			if !visitor(change) {
				return false
			}
		}
	}

	return true
}

func sortedNames[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func toSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, name := range names {
		set[name] = struct{}{}
	}
	return set
}
