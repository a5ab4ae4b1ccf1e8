package history

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stridebuild/stride/pkg/execution"
	"github.com/stridebuild/stride/pkg/fingerprint"
)

func sampleState() execution.PreviousExecutionState {
	impl := execution.Implementation{TypeName: "stride.CommandTask", Hash: "abc"}
	return execution.PreviousExecutionState{
		RunID:          "run-1",
		Implementation: &impl,
		AdditionalImplementations: []execution.Implementation{
			{TypeName: "stride.SetupAction", Hash: "def"},
		},
		InputProperties: map[string]execution.ValueSnapshot{
			"mode": execution.SnapshotValue("fast"),
		},
		InputFileProperties: map[string]fingerprint.Fingerprint{
			"sources": {Root: "src", Files: map[string]fingerprint.Hash{"a.txt": "1"}},
		},
		OutputFilesProducedByWork: map[string]fingerprint.Snapshot{
			"out": {Root: "build", Files: map[string]fingerprint.Hash{"a.o": "2"}},
		},
		Successful: true,
	}
}

func TestStoreRoundTrip(t *testing.T) {
	store := NewStore(t.TempDir())

	if err := store.Save("build", sampleState()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, ok, err := store.Load("build")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !ok {
		t.Fatal("Expected history to exist after Save")
	}

	if loaded.RunID != "run-1" {
		t.Errorf("Expected run-1, got %q", loaded.RunID)
	}
	if loaded.Implementation == nil || loaded.Implementation.Hash != "abc" {
		t.Errorf("Implementation not preserved: %+v", loaded.Implementation)
	}
	if len(loaded.AdditionalImplementations) != 1 {
		t.Errorf("Additional implementations not preserved: %v", loaded.AdditionalImplementations)
	}
	if !loaded.Successful {
		t.Error("Success flag not preserved")
	}
	if loaded.InputFileProperties["sources"].Files["a.txt"] != "1" {
		t.Errorf("Input fingerprints not preserved: %v", loaded.InputFileProperties)
	}
	if loaded.OutputFilesProducedByWork["out"].Files["a.o"] != "2" {
		t.Errorf("Output snapshots not preserved: %v", loaded.OutputFilesProducedByWork)
	}
	if _, ok := loaded.InputProperties["mode"]; !ok {
		t.Errorf("Input properties not preserved: %v", loaded.InputProperties)
	}
}

func TestStoreLoadMissing(t *testing.T) {
	store := NewStore(t.TempDir())

	_, ok, err := store.Load("never-ran")
	if err != nil {
		t.Fatalf("Missing history must not be an error, got %v", err)
	}
	if ok {
		t.Error("Expected ok=false for missing history")
	}
}

func TestStoreSaveReplaces(t *testing.T) {
	store := NewStore(t.TempDir())

	first := sampleState()
	if err := store.Save("build", first); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	second := sampleState()
	second.RunID = "run-2"
	second.Successful = false
	if err := store.Save("build", second); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, _, err := store.Load("build")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.RunID != "run-2" || loaded.Successful {
		t.Errorf("Expected the replacing state, got %+v", loaded)
	}
}

func TestStoreForget(t *testing.T) {
	workspace := t.TempDir()
	store := NewStore(workspace)

	if err := store.Save("build", sampleState()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := store.Forget("build"); err != nil {
		t.Fatalf("Forget failed: %v", err)
	}

	if _, ok, _ := store.Load("build"); ok {
		t.Error("Expected history to be gone after Forget")
	}
	if _, err := os.Stat(filepath.Join(workspace, ".stride", "history", "build.json")); !os.IsNotExist(err) {
		t.Error("History file still on disk after Forget")
	}

	// Forgetting twice is fine
	if err := store.Forget("build"); err != nil {
		t.Errorf("Forget on missing history must not fail, got %v", err)
	}
}

func TestStoreCorruptHistory(t *testing.T) {
	workspace := t.TempDir()
	store := NewStore(workspace)

	dir := filepath.Join(workspace, ".stride", "history")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "build.json"), []byte("not json"), 0o644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	if _, _, err := store.Load("build"); err == nil {
		t.Error("Expected an error for corrupt history")
	}
}
