// internal/workers/fraud/narrative-report/handler.go
package narrativereport

import (
	"context"
	"encoding/json"
	"fmt"

	"loan-agent/internal/common/camunda"
	apperrors "loan-agent/internal/common/errors"
	"loan-agent/internal/common/logger"
	"loan-agent/internal/common/metrics"
	"loan-agent/internal/narrative"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "fraud-narrative-report"
)

type Handler struct {
	config       *Config
	client       *narrative.Client
	errorHandler *apperrors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(config *Config, client *narrative.Client, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		client:       client,
		errorHandler: apperrors.NewErrorHandler(log),
		logger:       log,
	}
}

func (h *Handler) TaskType() string { return TaskType }

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

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

	h.completeJob(ctx, client, job, output)
}

// Execute generates the report for one job's input.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	raw := string(input.Application)
	if raw == "" || raw == "null" {
		return nil, apperrors.NewInvalidPayloadError("application is required")
	}

	// A JSON string is raw application text; anything else is structured.
	var application interface{} = input.Application
	var text string
	if err := json.Unmarshal(input.Application, &text); err == nil {
		application = text
	}

	report, err := h.client.WithModel(input.Model).Generate(ctx, application)
	if err != nil {
		return nil, err
	}

	return &Output{
		Report:   report.Text,
		ReportID: report.RequestID,
		Repaired: report.Repaired,
		Cached:   report.Cached,
	}, nil
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	if err := camunda.CompleteJob(ctx, client, job.Key, output, h.config.Retry); err != nil {
		h.logger.Error("Failed to complete job", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(apperrors.Normalize(err).Code)).Inc()
	h.errorHandler.HandleJobError(ctx, client, job, err)
}
