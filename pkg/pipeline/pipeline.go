package pipeline

import (
	"fmt"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// FileProperty declares a named file location a task reads or writes. For
// input properties, Incremental opts the property into per-file change
// reporting; without it any change forces full reprocessing of the property.
type FileProperty struct {
	Name        string `koanf:"name"`
	Path        string `koanf:"path"`
	Incremental bool   `koanf:"incremental"`
}

// Task is one unit of work in the pipeline: a shell command with declared
// inputs and outputs.
type Task struct {
	Name        string         `koanf:"name"`
	Command     string         `koanf:"command"`
	Setup       []string       `koanf:"setup"` // commands run before the main command; tracked as additional implementations
	DependsOn   []string       `koanf:"depends_on"`
	Inputs      map[string]any `koanf:"inputs"`
	InputFiles  []FileProperty `koanf:"input_files"`
	OutputFiles []FileProperty `koanf:"output_files"`
}

// IncrementalProperties returns the names of the input file properties
// declared incremental.
func (t *Task) IncrementalProperties() []string {
	var names []string
	for _, prop := range t.InputFiles {
		if prop.Incremental {
			names = append(names, prop.Name)
		}
	}
	return names
}

// InputPaths returns the declared input locations, used by watch mode to
// decide what to monitor.
func (t *Task) InputPaths() []string {
	paths := make([]string, 0, len(t.InputFiles))
	for _, prop := range t.InputFiles {
		paths = append(paths, prop.Path)
	}
	return paths
}

// Pipeline is the full set of tasks loaded from stride.toml.
type Pipeline struct {
	Name  string `koanf:"name"`
	Tasks []Task `koanf:"tasks"`
}

// Task returns the named task, or nil.
func (p *Pipeline) Task(name string) *Task {
	for i := range p.Tasks {
		if p.Tasks[i].Name == name {
			return &p.Tasks[i]
		}
	}
	return nil
}

// Load reads and validates a pipeline definition from a TOML file.
func Load(path string) (*Pipeline, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
		return nil, fmt.Errorf("loading pipeline %s: %w", path, err)
	}

	var p Pipeline
	if err := k.Unmarshal("", &p); err != nil {
		return nil, fmt.Errorf("parsing pipeline %s: %w", path, err)
	}

	if err := p.validate(); err != nil {
		return nil, fmt.Errorf("invalid pipeline %s: %w", path, err)
	}
	return &p, nil
}

func (p *Pipeline) validate() error {
	if len(p.Tasks) == 0 {
		return fmt.Errorf("no tasks defined")
	}

	seen := make(map[string]bool)
	for i := range p.Tasks {
		task := &p.Tasks[i]
		if task.Name == "" {
			return fmt.Errorf("task #%d has no name", i+1)
		}
		if seen[task.Name] {
			return fmt.Errorf("duplicate task name '%s'", task.Name)
		}
		seen[task.Name] = true

		if task.Command == "" {
			return fmt.Errorf("task '%s' has no command", task.Name)
		}

		properties := make(map[string]bool)
		for _, prop := range append(append([]FileProperty{}, task.InputFiles...), task.OutputFiles...) {
			if prop.Name == "" || prop.Path == "" {
				return fmt.Errorf("task '%s' declares a file property without name or path", task.Name)
			}
			if properties[prop.Name] {
				return fmt.Errorf("task '%s' declares file property '%s' twice", task.Name, prop.Name)
			}
			properties[prop.Name] = true
		}
	}

	for i := range p.Tasks {
		for _, dep := range p.Tasks[i].DependsOn {
			if !seen[dep] {
				return fmt.Errorf("task '%s' depends on unknown task '%s'", p.Tasks[i].Name, dep)
			}
			if dep == p.Tasks[i].Name {
				return fmt.Errorf("task '%s' depends on itself", p.Tasks[i].Name)
			}
		}
	}

	return nil
}
