package fingerprint

import (
	"crypto/sha256"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// stateDir is skipped while walking so that stride's own bookkeeping never
// shows up as task input or output.
const stateDir = ".stride"

// FingerprintTree walks the file or directory at root and returns a
// content fingerprint of everything below it. A missing root yields an empty
// fingerprint, not an error: declared-but-absent inputs are a legitimate
// state that the change detection engine compares like any other.
func FingerprintTree(root string) (Fingerprint, error) {
	files, err := walkTree(root)
	if err != nil {
		return Fingerprint{}, err
	}
	return Fingerprint{Root: root, Files: files}, nil
}

// SnapshotTree captures the filesystem state at an output location. Same
// mechanics as FingerprintTree; the distinct type keeps input fingerprints
// and output snapshots from being mixed up at call sites.
func SnapshotTree(root string) (Snapshot, error) {
	files, err := walkTree(root)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{Root: root, Files: files}, nil
}

func walkTree(root string) (map[string]Hash, error) {
	info, err := os.Stat(root)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", root, err)
	}

	files := make(map[string]Hash)

	if !info.IsDir() {
		hash, err := hashFile(root)
		if err != nil {
			return nil, err
		}
		files[filepath.ToSlash(filepath.Base(root))] = hash
		return files, nil
	}

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // Skip entries we can't access
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil || rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if d.Name() == stateDir || strings.HasPrefix(d.Name(), stateDir+".") {
				return filepath.SkipDir
			}
			files[rel] = DirMarker
			return nil
		}

		hash, hashErr := hashFile(path)
		if hashErr != nil {
			return hashErr
		}
		files[rel] = hash
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}

	return files, nil
}

func hashFile(path string) (Hash, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return Hash(fmt.Sprintf("%x", h.Sum(nil))), nil
}

// HashBytes fingerprints an in-memory byte sequence. Used for implementation
// fingerprints, where the "content" is the task's command text rather than a
// file on disk.
func HashBytes(data []byte) Hash {
	return Hash(fmt.Sprintf("%x", sha256.Sum256(data)))
}
