package fingerprint

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
}

func TestFingerprintTreeDirectory(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.txt"), "alpha")
	writeFile(t, filepath.Join(root, "sub", "b.txt"), "beta")

	fp, err := FingerprintTree(root)
	if err != nil {
		t.Fatalf("FingerprintTree failed: %v", err)
	}

	if _, ok := fp.Files["a.txt"]; !ok {
		t.Errorf("Expected a.txt in fingerprint, got %v", fp.Files)
	}
	if _, ok := fp.Files["sub/b.txt"]; !ok {
		t.Errorf("Expected sub/b.txt in fingerprint, got %v", fp.Files)
	}
	if fp.Files["sub"] != DirMarker {
		t.Errorf("Expected directory marker for sub, got %q", fp.Files["sub"])
	}
}

func TestFingerprintTreeDeterministic(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.txt"), "alpha")

	first, err := FingerprintTree(root)
	if err != nil {
		t.Fatalf("FingerprintTree failed: %v", err)
	}
	second, err := FingerprintTree(root)
	if err != nil {
		t.Fatalf("FingerprintTree failed: %v", err)
	}

	if !first.Equal(second) {
		t.Errorf("Two captures of unchanged content differ: %v vs %v", first.Files, second.Files)
	}
}

func TestFingerprintTreeContentSensitive(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "a.txt")
	writeFile(t, path, "alpha")

	before, err := FingerprintTree(root)
	if err != nil {
		t.Fatalf("FingerprintTree failed: %v", err)
	}

	writeFile(t, path, "alpha!")
	after, err := FingerprintTree(root)
	if err != nil {
		t.Fatalf("FingerprintTree failed: %v", err)
	}

	if before.Equal(after) {
		t.Error("Content change did not change the fingerprint")
	}
}

func TestFingerprintTreeSingleFile(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "only.txt")
	writeFile(t, path, "solo")

	fp, err := FingerprintTree(path)
	if err != nil {
		t.Fatalf("FingerprintTree failed: %v", err)
	}
	if len(fp.Files) != 1 {
		t.Fatalf("Expected one entry, got %v", fp.Files)
	}
	if _, ok := fp.Files["only.txt"]; !ok {
		t.Errorf("Single files are keyed by base name, got %v", fp.Files)
	}
}

func TestFingerprintTreeMissingRoot(t *testing.T) {
	fp, err := FingerprintTree(filepath.Join(t.TempDir(), "does-not-exist"))
	if err != nil {
		t.Fatalf("Missing root must not be an error, got %v", err)
	}
	if !fp.Empty() {
		t.Errorf("Expected empty fingerprint, got %v", fp.Files)
	}
}

func TestFingerprintTreeSkipsStateDir(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.txt"), "alpha")
	writeFile(t, filepath.Join(root, ".stride", "history", "build.json"), "{}")

	fp, err := FingerprintTree(root)
	if err != nil {
		t.Fatalf("FingerprintTree failed: %v", err)
	}
	for path := range fp.Files {
		if path == ".stride" || strings.HasPrefix(path, ".stride/") {
			t.Errorf("State directory leaked into fingerprint: %s", path)
		}
	}
}

func TestHashBytes(t *testing.T) {
	if HashBytes([]byte("a")) == HashBytes([]byte("b")) {
		t.Error("Different content produced the same hash")
	}
	if HashBytes([]byte("a")) != HashBytes([]byte("a")) {
		t.Error("Identical content produced different hashes")
	}
}
