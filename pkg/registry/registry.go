// pkg/registry/registry.go
package registry

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"
)

//go:embed catalog.json
var catalogJSON []byte

var (
	defaultOnce sync.Once
	defaultReg  *ActivityRegistry
	defaultErr  error
)

// LoadRegistry reads a catalog file from disk.
func LoadRegistry(path string) (*ActivityRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func Parse(data []byte) (*ActivityRegistry, error) {
	var reg ActivityRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse activity registry: %w", err)
	}
	if err := reg.Validate(); err != nil {
		return nil, err
	}
	return &reg, nil
}

// Default returns the catalog compiled into the binary.
func Default() (*ActivityRegistry, error) {
	defaultOnce.Do(func() {
		defaultReg, defaultErr = Parse(catalogJSON)
	})
	return defaultReg, defaultErr
}

// Validate checks that ids, tool names and task types are unique and that
// every activity is reachable as a tool or a job type.
func (r *ActivityRegistry) Validate() error {
	ids := map[string]bool{}
	tools := map[string]bool{}
	tasks := map[string]bool{}
	for _, a := range r.Activities {
		if a.ID == "" {
			return fmt.Errorf("activity without id")
		}
		if ids[a.ID] {
			return fmt.Errorf("duplicate activity id %q", a.ID)
		}
		ids[a.ID] = true
		if a.ToolName == "" && a.TaskType == "" {
			return fmt.Errorf("activity %q has neither toolName nor taskType", a.ID)
		}
		if a.ToolName != "" {
			if tools[a.ToolName] {
				return fmt.Errorf("duplicate tool name %q", a.ToolName)
			}
			tools[a.ToolName] = true
		}
		if a.TaskType != "" {
			if tasks[a.TaskType] {
				return fmt.Errorf("duplicate task type %q", a.TaskType)
			}
			tasks[a.TaskType] = true
		}
	}
	return nil
}

func (r *ActivityRegistry) Tools() []Activity {
	var out []Activity
	for _, a := range r.Activities {
		if a.ToolName != "" {
			out = append(out, a)
		}
	}
	return out
}

func (r *ActivityRegistry) FindTool(name string) (Activity, bool) {
	for _, a := range r.Activities {
		if a.ToolName == name {
			return a, true
		}
	}
	return Activity{}, false
}

func (r *ActivityRegistry) FindTaskType(taskType string) (Activity, bool) {
	for _, a := range r.Activities {
		if a.TaskType == taskType {
			return a, true
		}
	}
	return Activity{}, false
}

// Add appends an activity after checking the result still validates.
func (r *ActivityRegistry) Add(a Activity) error {
	for _, existing := range r.Activities {
		if existing.ID == a.ID {
			return fmt.Errorf("activity with ID %s already exists", a.ID)
		}
	}
	next := append(append([]Activity(nil), r.Activities...), a)
	if err := (&ActivityRegistry{Activities: next}).Validate(); err != nil {
		return err
	}
	r.Activities = next
	r.touch()
	return nil
}

// Update sets one named field of an activity.
func (r *ActivityRegistry) Update(id, field, value string) error {
	for i := range r.Activities {
		if r.Activities[i].ID != id {
			continue
		}
		a := &r.Activities[i]
		switch field {
		case "status":
			a.ImplementationStatus = value
		case "version":
			a.Version = value
		case "displayName":
			a.DisplayName = value
		case "description":
			a.Description = value
		case "category":
			a.Category = value
		case "timeout":
			if _, err := time.ParseDuration(value); err != nil {
				return fmt.Errorf("invalid timeout value: %w", err)
			}
			a.Timeout = value
		case "retries":
			retries, err := strconv.Atoi(value)
			if err != nil || retries < 0 {
				return fmt.Errorf("invalid retries value %q", value)
			}
			a.Retries = retries
		default:
			return fmt.Errorf("unknown field: %s", field)
		}
		r.touch()
		return nil
	}
	return fmt.Errorf("activity with ID %s not found", id)
}

// Save writes the catalog as indented JSON, creating parent directories.
func (r *ActivityRegistry) Save(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal registry: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write registry file: %w", err)
	}
	return nil
}

func (r *ActivityRegistry) touch() {
	r.LastUpdated = time.Now().UTC().Format("2006-01-02")
}
