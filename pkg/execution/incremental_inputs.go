package execution

import "github.com/stridebuild/stride/pkg/fingerprint"

// IncrementalInputProperties classifies input file properties into those that
// participate in incremental change reporting and those that force a full
// re-evaluation of the property on any change. The split exists because a
// property owner may declare "all-or-nothing" handling even when the task
// otherwise supports incremental execution.
type IncrementalInputProperties interface {
	// IsIncremental reports whether the named property participates in
	// incremental delta computation.
	IsIncremental(propertyName string) bool

	// NonIncrementalChanges compares the excluded properties coarsely: one
	// change per differing property, no per-file detail.
	NonIncrementalChanges(previous, current map[string]fingerprint.Fingerprint) InputFileChanges

	// IncrementalChanges compares the included properties per file.
	IncrementalChanges(previous, current map[string]fingerprint.Fingerprint) InputFileChanges
}

type incrementalInputProperties struct {
	incremental map[string]struct{}
}

// NewIncrementalInputProperties builds a classifier from the set of property
// names declared as incremental. Every other property is all-or-nothing.
func NewIncrementalInputProperties(incrementalProperties []string) IncrementalInputProperties {
	set := make(map[string]struct{}, len(incrementalProperties))
	for _, name := range incrementalProperties {
		set[name] = struct{}{}
	}
	return &incrementalInputProperties{incremental: set}
}

// NoneIncremental treats every input file property as all-or-nothing, for
// tasks that do not support incremental execution at all.
var NoneIncremental IncrementalInputProperties = &incrementalInputProperties{}

func (p *incrementalInputProperties) IsIncremental(propertyName string) bool {
	_, ok := p.incremental[propertyName]
	return ok
}

func (p *incrementalInputProperties) NonIncrementalChanges(previous, current map[string]fingerprint.Fingerprint) InputFileChanges {
	return &inputFileChanges{
		previous:   previous,
		current:    current,
		properties: p.selectProperties(current, false),
		detailed:   false,
	}
}

func (p *incrementalInputProperties) IncrementalChanges(previous, current map[string]fingerprint.Fingerprint) InputFileChanges {
	return &inputFileChanges{
		previous:   previous,
		current:    current,
		properties: p.selectProperties(current, true),
		detailed:   true,
	}
}

// selectProperties picks the covered property names from the current declared
// set. The current set is the universe for delta computation: removed
// properties are handled as property-set changes, never as file deltas.
func (p *incrementalInputProperties) selectProperties(current map[string]fingerprint.Fingerprint, incremental bool) []string {
	var selected []string
	for _, name := range sortedNames(current) {
		if p.IsIncremental(name) == incremental {
			selected = append(selected, name)
		}
	}
	return selected
}
