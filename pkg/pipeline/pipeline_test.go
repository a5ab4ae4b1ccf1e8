package pipeline

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func writePipeline(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stride.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write pipeline file: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writePipeline(t, `
name = "demo"

[[tasks]]
name = "gen"
command = "echo gen"
setup = ["mkdir -p build"]

[tasks.inputs]
mode = "fast"

[[tasks.input_files]]
name = "sources"
path = "src"
incremental = true

[[tasks.output_files]]
name = "generated"
path = "build/gen"

[[tasks]]
name = "compile"
command = "echo compile"
depends_on = ["gen"]
`)

	p, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if p.Name != "demo" {
		t.Errorf("Expected pipeline name 'demo', got %q", p.Name)
	}
	if len(p.Tasks) != 2 {
		t.Fatalf("Expected 2 tasks, got %d", len(p.Tasks))
	}

	gen := p.Task("gen")
	if gen == nil {
		t.Fatal("Task 'gen' not found")
	}
	if gen.Command != "echo gen" {
		t.Errorf("Expected command 'echo gen', got %q", gen.Command)
	}
	if !reflect.DeepEqual(gen.Setup, []string{"mkdir -p build"}) {
		t.Errorf("Setup not parsed: %v", gen.Setup)
	}
	if gen.Inputs["mode"] != "fast" {
		t.Errorf("Inputs not parsed: %v", gen.Inputs)
	}
	if len(gen.InputFiles) != 1 || gen.InputFiles[0].Name != "sources" || !gen.InputFiles[0].Incremental {
		t.Errorf("Input files not parsed: %v", gen.InputFiles)
	}
	if len(gen.OutputFiles) != 1 || gen.OutputFiles[0].Path != "build/gen" {
		t.Errorf("Output files not parsed: %v", gen.OutputFiles)
	}

	compile := p.Task("compile")
	if compile == nil || !reflect.DeepEqual(compile.DependsOn, []string{"gen"}) {
		t.Errorf("Dependencies not parsed: %+v", compile)
	}

	if p.Task("missing") != nil {
		t.Error("Expected nil for an unknown task")
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "No Tasks",
			content: `name = "empty"`,
			wantErr: "no tasks defined",
		},
		{
			name: "Missing Name",
			content: `
[[tasks]]
command = "echo"
`,
			wantErr: "has no name",
		},
		{
			name: "Missing Command",
			content: `
[[tasks]]
name = "broken"
`,
			wantErr: "has no command",
		},
		{
			name: "Duplicate Task",
			content: `
[[tasks]]
name = "twice"
command = "echo"

[[tasks]]
name = "twice"
command = "echo"
`,
			wantErr: "duplicate task name 'twice'",
		},
		{
			name: "Unknown Dependency",
			content: `
[[tasks]]
name = "a"
command = "echo"
depends_on = ["ghost"]
`,
			wantErr: "unknown task 'ghost'",
		},
		{
			name: "Self Dependency",
			content: `
[[tasks]]
name = "a"
command = "echo"
depends_on = ["a"]
`,
			wantErr: "depends on itself",
		},
		{
			name: "Duplicate File Property",
			content: `
[[tasks]]
name = "a"
command = "echo"

[[tasks.input_files]]
name = "files"
path = "src"

[[tasks.output_files]]
name = "files"
path = "build"
`,
			wantErr: "file property 'files' twice",
		},
		{
			name: "File Property Without Path",
			content: `
[[tasks]]
name = "a"
command = "echo"

[[tasks.input_files]]
name = "files"
`,
			wantErr: "without name or path",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writePipeline(t, tt.content))
			if err == nil {
				t.Fatal("Expected an error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Error("Expected an error for a missing pipeline file")
	}
}

func TestTaskIncrementalProperties(t *testing.T) {
	task := Task{InputFiles: []FileProperty{
		{Name: "sources", Path: "src", Incremental: true},
		{Name: "config", Path: "cfg"},
	}}

	if got := task.IncrementalProperties(); !reflect.DeepEqual(got, []string{"sources"}) {
		t.Errorf("Expected [sources], got %v", got)
	}
	if got := task.InputPaths(); !reflect.DeepEqual(got, []string{"src", "cfg"}) {
		t.Errorf("Expected [src cfg], got %v", got)
	}
}
