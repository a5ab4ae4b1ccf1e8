package execution

import "fmt"

// implementationChanges compares the identity of the task's executable logic
// between two executions: the primary implementation plus the ordered list of
// additional implementations (setup actions and the like).
type implementationChanges struct {
	previous           *Implementation
	previousAdditional []Implementation
	current            Implementation
	currentAdditional  []Implementation
	executable         Describable
}

// NewImplementationChanges compares implementation identities. An unknown
// previous implementation counts as changed: the current one is always known
// by the time detection runs, so the only way to be safe is to rebuild.
func NewImplementationChanges(
	previous *Implementation,
	previousAdditional []Implementation,
	current Implementation,
	currentAdditional []Implementation,
	executable Describable,
) ChangeContainer {
	return &implementationChanges{
		previous:           previous,
		previousAdditional: previousAdditional,
		current:            current,
		currentAdditional:  currentAdditional,
		executable:         executable,
	}
}

func (c *implementationChanges) Accept(visitor ChangeVisitor) bool {
	if c.previous == nil {
		return visitor(Change{
			Message: fmt.Sprintf("The implementation of %s could not be determined from the previous execution", c.executable.DisplayName()),
		})
	}

	if c.previous.TypeName != c.current.TypeName {
		return visitor(Change{
			Message: fmt.Sprintf("The type of %s has changed from '%s' to '%s'",
				c.executable.DisplayName(), c.previous.TypeName, c.current.TypeName),
		})
	}

	if c.previous.Hash != c.current.Hash {
		return visitor(Change{
			Message: fmt.Sprintf("The implementation of %s has changed", c.executable.DisplayName()),
		})
	}

	if !implementationListsEqual(c.previousAdditional, c.currentAdditional) {
		return visitor(Change{
			Message: fmt.Sprintf("One or more additional actions for %s have changed", c.executable.DisplayName()),
		})
	}

	return true
}

func implementationListsEqual(previous, current []Implementation) bool {
	if len(previous) != len(current) {
		return false
	}
	for i := range previous {
		if previous[i] != current[i] {
			return false
		}
	}
	return true
}
