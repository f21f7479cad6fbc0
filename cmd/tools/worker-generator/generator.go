// cmd/tools/worker-generator/generator.go
package main

import (
	"bytes"
	"fmt"
	"go/format"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"

	"loan-agent/pkg/registry"
)

// WorkerData feeds the scaffold templates.
type WorkerData struct {
	Name        string
	PackageName string
	TaskType    string
	Description string
	Category    string
	Timeout     string
	InputFields []Field
	Required    []string
	ErrorCodes  []string
}

type Field struct {
	GoName  string
	GoType  string
	JSONTag string
	Comment string
}

func newWorkerData(a registry.Activity) (WorkerData, error) {
	if a.TaskType == "" {
		return WorkerData{}, fmt.Errorf("activity %s has no taskType; only job types get workers", a.ID)
	}
	return WorkerData{
		Name:        a.DisplayName,
		PackageName: strings.ReplaceAll(a.ID, "-", ""),
		TaskType:    a.TaskType,
		Description: a.Description,
		Category:    a.Category,
		Timeout:     a.Timeout,
		InputFields: schemaFields(a.InputSchema),
		Required:    requiredFields(a.InputSchema),
		ErrorCodes:  a.ErrorCodes,
	}, nil
}

// schemaFields turns top-level schema properties into struct fields, sorted
// so output is stable.
func schemaFields(schema map[string]interface{}) []Field {
	props, _ := schema["properties"].(map[string]interface{})
	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)

	fields := make([]Field, 0, len(names))
	for _, name := range names {
		details, _ := props[name].(map[string]interface{})
		f := Field{
			GoName:  goName(name),
			GoType:  goTypeFromJSONType(details["type"]),
			JSONTag: fmt.Sprintf("`json:\"%s,omitempty\"`", name),
		}
		if desc, ok := details["description"].(string); ok {
			f.Comment = desc
		}
		fields = append(fields, f)
	}
	return fields
}

func requiredFields(schema map[string]interface{}) []string {
	raw, _ := schema["required"].([]interface{})
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		if s, ok := r.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func goTypeFromJSONType(jsonType interface{}) string {
	switch jsonType {
	case "string":
		return "string"
	case "number":
		return "float64"
	case "integer":
		return "int64"
	case "boolean":
		return "bool"
	case "object", "array":
		return "json.RawMessage"
	default:
		return "json.RawMessage"
	}
}

// goName converts snake or kebab case to an exported identifier.
func goName(s string) string {
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == '_' || r == '-' })
	for i, p := range parts {
		switch strings.ToLower(p) {
		case "id", "url", "ssn", "dob":
			parts[i] = strings.ToUpper(p)
		default:
			parts[i] = strings.ToUpper(p[:1]) + p[1:]
		}
	}
	return strings.Join(parts, "")
}

var scaffold = map[string]string{
	"config.go":       configTemplate,
	"models.go":       modelsTemplate,
	"handler.go":      handlerTemplate,
	"handler_test.go": testTemplate,
}

// Generate writes a worker package for the activity under
// outputDir/<category>/<id> and returns the written paths. Existing files are
// never overwritten.
func Generate(a registry.Activity, outputDir string) ([]string, error) {
	data, err := newWorkerData(a)
	if err != nil {
		return nil, err
	}

	workerDir := filepath.Join(outputDir, data.Category, a.ID)
	if err := os.MkdirAll(workerDir, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", workerDir, err)
	}

	names := make([]string, 0, len(scaffold))
	for name := range scaffold {
		names = append(names, name)
	}
	sort.Strings(names)

	var written []string
	for _, name := range names {
		src, err := render(name, scaffold[name], data)
		if err != nil {
			return written, err
		}
		path := filepath.Join(workerDir, name)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err != nil {
			return written, fmt.Errorf("create %s: %w", path, err)
		}
		_, werr := f.Write(src)
		cerr := f.Close()
		if werr != nil {
			return written, werr
		}
		if cerr != nil {
			return written, cerr
		}
		written = append(written, path)
	}
	return written, nil
}

func render(name, tmpl string, data WorkerData) ([]byte, error) {
	t, err := template.New(name).Parse(tmpl)
	if err != nil {
		return nil, fmt.Errorf("parse template %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render %s: %w", name, err)
	}
	src, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("format %s: %w", name, err)
	}
	return src, nil
}
