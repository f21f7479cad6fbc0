// cmd/tools/worker-generator/templates.go
package main

const configTemplate = `package {{ .PackageName }}

import (
	"time"

	"loan-agent/internal/common/camunda"
)

type Config struct {
	Timeout time.Duration
	Retry   *camunda.RetryConfig
}

func LoadConfig() *Config {
	timeout, err := time.ParseDuration("{{ .Timeout }}")
	if err != nil || timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Config{Timeout: timeout, Retry: camunda.DefaultRetryConfig}
}
`

const modelsTemplate = `package {{ .PackageName }}

import (
	"encoding/json"
	"fmt"
)

type Input struct {
{{- range .InputFields }}
	{{ if .Comment }}// {{ .Comment }}
	{{ end }}{{ .GoName }} {{ .GoType }} {{ .JSONTag }}
{{- end }}
}

type Output struct {
	Status string ` + "`json:\"status,omitempty\"`" + `
	Error  string ` + "`json:\"error,omitempty\"`" + `
}

func (i *Input) Validate() error {
	var missing []string
{{- range $name := .Required }}
	if !present(i, "{{ $name }}") {
		missing = append(missing, "{{ $name }}")
	}
{{- end }}
	if len(missing) > 0 {
		return fmt.Errorf("missing required fields: %v", missing)
	}
	return nil
}

func present(i *Input, field string) bool {
	raw, err := json.Marshal(i)
	if err != nil {
		return false
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return false
	}
	v, ok := m[field]
	return ok && string(v) != "null"
}
`

const handlerTemplate = `package {{ .PackageName }}

import (
	"context"
	"encoding/json"
	"fmt"

	"loan-agent/internal/common/camunda"
	apperrors "loan-agent/internal/common/errors"
	"loan-agent/internal/common/logger"
	"loan-agent/internal/common/metrics"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "{{ .TaskType }}"

// Handler processes {{ .Name }} jobs.
type Handler struct {
	config       *Config
	errorHandler *apperrors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(config *Config, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		errorHandler: apperrors.NewErrorHandler(log),
		logger:       log,
	}
}

func (h *Handler) TaskType() string { return TaskType }

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.fail(ctx, client, job, apperrors.NewInvalidPayloadError(fmt.Sprintf("parse input: %v", err)))
		return
	}

	output, err := h.Execute(ctx, &input)
	if err != nil {
		h.fail(ctx, client, job, err)
		return
	}

	if err := camunda.CompleteJob(ctx, client, job.Key, output, h.config.Retry); err != nil {
		h.logger.Error("Failed to complete job", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
}

// Execute holds the business logic.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if err := input.Validate(); err != nil {
		return nil, apperrors.NewInvalidPayloadError(err.Error())
	}
	return nil, fmt.Errorf("%s is not implemented", TaskType)
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(apperrors.Normalize(err).Code)).Inc()
	h.errorHandler.HandleJobError(ctx, client, job, err)
}
`

const testTemplate = `package {{ .PackageName }}

import (
	"context"
	"testing"

	"loan-agent/internal/common/logger"

	"github.com/stretchr/testify/assert"
)

func TestHandler_Execute_RejectsEmptyInput(t *testing.T) {
	h := NewHandler(LoadConfig(), logger.NewTestLogger(t))
	assert.Equal(t, TaskType, h.TaskType())

	_, err := h.Execute(context.Background(), &Input{})
	assert.Error(t, err)
}
`
