package fingerprint

// DetectOverlappingOutputs reports whether an output location holds content
// this task did not produce. It compares the outputs recorded after the
// previous execution against a snapshot taken just before the next one: any
// path present now that was not produced by the task must have been written
// by someone else sharing the location.
func DetectOverlappingOutputs(produced map[string]Snapshot, beforeExecution map[string]Snapshot) bool {
	for property, current := range beforeExecution {
		previous := produced[property]
		for path := range current.Files {
			if _, ours := previous.Files[path]; !ours {
				return true
			}
		}
	}
	return false
}

// OutputsStillPresent narrows current output snapshots down to the entries
// that the previous execution produced and that are still on disk. Content
// written into a shared location by other work is dropped, so that only
// changes to this task's own prior output count as staleness signals.
func OutputsStillPresent(produced map[string]Snapshot, current map[string]Snapshot) map[string]Snapshot {
	narrowed := make(map[string]Snapshot, len(current))
	for property, currentSnapshot := range current {
		producedSnapshot, recorded := produced[property]
		if !recorded {
			narrowed[property] = Snapshot{Root: currentSnapshot.Root}
			continue
		}

		remaining := make(map[string]Hash)
		for path, hash := range currentSnapshot.Files {
			if _, ours := producedSnapshot.Files[path]; ours {
				remaining[path] = hash
			}
		}
		narrowed[property] = Snapshot{Root: currentSnapshot.Root, Files: remaining}
	}
	return narrowed
}
