package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"loan-agent/internal/common/logger"
	"loan-agent/internal/common/metrics"
	"loan-agent/internal/common/validation"
)

var (
	ErrToolNotFound  = errors.New("tool not found")
	ErrAlreadyExists = errors.New("tool already registered")
	ErrEmptyName     = errors.New("tool name cannot be empty")
)

// Arguments are the named arguments of one call, still JSON encoded.
type Arguments map[string]json.RawMessage

// Handler implements a tool. Returned errors and panics are turned into the
// error variant of Result by the registry.
type Handler func(ctx context.Context, args Arguments) (Result, error)

// Definition is what tools/list advertises for a tool.
type Definition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`

	// FaultPrefix precedes the detail in error results.
	// Defaults to "Exception in <name>: ".
	FaultPrefix string `json:"-"`
}

type entry struct {
	def     Definition
	schema  *validation.Schema
	handler Handler
}

type Registry struct {
	mu      sync.RWMutex
	entries map[string]entry
	logger  logger.Logger
}

func NewRegistry(log logger.Logger) *Registry {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Registry{
		entries: make(map[string]entry),
		logger:  log,
	}
}

// Register adds a tool. Arguments are validated against InputSchema before
// the handler runs.
func (r *Registry) Register(def Definition, handler Handler) error {
	if def.Name == "" {
		return ErrEmptyName
	}
	if len(def.InputSchema) == 0 {
		def.InputSchema = json.RawMessage(`{"type": "object"}`)
	}
	if def.FaultPrefix == "" {
		def.FaultPrefix = fmt.Sprintf("Exception in %s: ", def.Name)
	}

	schema, err := validation.Compile(def.Name, def.InputSchema)
	if err != nil {
		return fmt.Errorf("tool %s: %w", def.Name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[def.Name]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, def.Name)
	}
	r.entries[def.Name] = entry{def: def, schema: schema, handler: handler}
	return nil
}

// List returns the registered definitions sorted by name.
func (r *Registry) List() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]Definition, 0, len(r.entries))
	for _, e := range r.entries {
		defs = append(defs, e.def)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// Call runs a tool. The only error returned is ErrToolNotFound; every fault
// inside a known tool comes back as the error variant of Result.
func (r *Registry) Call(ctx context.Context, name string, rawArgs json.RawMessage) (Result, error) {
	r.mu.RLock()
	e, exists := r.entries[name]
	r.mu.RUnlock()

	if !exists {
		metrics.ToolCalls.WithLabelValues("unknown", "not_found").Inc()
		return Result{}, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}

	result := r.invoke(ctx, e, rawArgs)

	status := "success"
	if result.IsError() {
		status = "error"
		r.logger.Warn("tool returned error", map[string]interface{}{
			"tool":  name,
			"error": result.Error,
		})
	}
	metrics.ToolCalls.WithLabelValues(name, status).Inc()
	return result, nil
}

func (r *Registry) invoke(ctx context.Context, e entry, rawArgs json.RawMessage) (result Result) {
	defer func() {
		if rec := recover(); rec != nil {
			result = Failure(fmt.Sprintf("%s%v", e.def.FaultPrefix, rec))
		}
	}()

	if len(rawArgs) == 0 || string(rawArgs) == "null" {
		rawArgs = json.RawMessage(`{}`)
	}

	if vr := e.schema.ValidateBytes(rawArgs); !vr.Valid {
		return Failure(e.def.FaultPrefix + strings.Join(vr.GetErrorMessages(), "; "))
	}

	var args Arguments
	if err := json.Unmarshal(rawArgs, &args); err != nil {
		return Failure(e.def.FaultPrefix + err.Error())
	}

	res, err := e.handler(ctx, args)
	if err != nil {
		return Failure(e.def.FaultPrefix + err.Error())
	}
	return res
}
