package fingerprint

// Hash is a hex-encoded sha256 content digest. Directories carry the
// DirMarker pseudo-hash so that file/directory swaps at the same path
// register as modifications rather than no-ops.
type Hash string

// DirMarker is the pseudo-hash recorded for directory entries.
const DirMarker Hash = "DIR"

// Fingerprint captures the content and structure of an input file property:
// every file (and directory) below the declared root, keyed by path, with its
// content hash. Paths are normalized to forward slashes relative to the root.
type Fingerprint struct {
	Root  string          `json:"root"`
	Files map[string]Hash `json:"files,omitempty"`
}

// Snapshot is a point-in-time capture of the filesystem state at an output
// location. It has the same shape as a Fingerprint but is taken at a
// different moment in the task lifecycle (after execution for recorded
// outputs, before execution for overlap detection).
type Snapshot struct {
	Root  string          `json:"root"`
	Files map[string]Hash `json:"files,omitempty"`
}

// Empty reports whether the fingerprint covers no files at all, which is the
// case when the declared location does not exist.
func (f Fingerprint) Empty() bool {
	return len(f.Files) == 0
}

// Equal reports whether two fingerprints describe identical file trees.
func (f Fingerprint) Equal(other Fingerprint) bool {
	return hashMapsEqual(f.Files, other.Files)
}

// Equal reports whether two snapshots describe identical filesystem state.
func (s Snapshot) Equal(other Snapshot) bool {
	return hashMapsEqual(s.Files, other.Files)
}

func hashMapsEqual(a, b map[string]Hash) bool {
	if len(a) != len(b) {
		return false
	}
	for path, hash := range a {
		if b[path] != hash {
			return false
		}
	}
	return true
}
