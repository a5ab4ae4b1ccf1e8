package fingerprint

import "sort"

// ChangeKind classifies a single path-level difference between two captures
// of the same location.
type ChangeKind int

const (
	Added ChangeKind = iota
	Removed
	Modified
)

func (k ChangeKind) String() string {
	switch k {
	case Added:
		return "added"
	case Removed:
		return "removed"
	case Modified:
		return "modified"
	default:
		return "unknown"
	}
}

// FileDelta is one path-level difference between a previous and a current
// capture of the same declared location.
type FileDelta struct {
	Path string
	Kind ChangeKind
}

// Diff returns the path-level differences between a previous and a current
// fingerprint, sorted by path for deterministic reporting.
func Diff(previous, current Fingerprint) []FileDelta {
	return diffHashMaps(previous.Files, current.Files)
}

// DiffSnapshots returns the path-level differences between two snapshots of
// the same output location.
func DiffSnapshots(previous, current Snapshot) []FileDelta {
	return diffHashMaps(previous.Files, current.Files)
}

func diffHashMaps(previous, current map[string]Hash) []FileDelta {
	var deltas []FileDelta

	for path, currentHash := range current {
		previousHash, existed := previous[path]
		if !existed {
			deltas = append(deltas, FileDelta{Path: path, Kind: Added})
		} else if previousHash != currentHash {
			deltas = append(deltas, FileDelta{Path: path, Kind: Modified})
		}
	}

	for path := range previous {
		if _, exists := current[path]; !exists {
			deltas = append(deltas, FileDelta{Path: path, Kind: Removed})
		}
	}

	sort.Slice(deltas, func(i, j int) bool { return deltas[i].Path < deltas[j].Path })
	return deltas
}
