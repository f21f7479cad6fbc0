// internal/workers/verification/verify-evidence/handler.go
package verifyevidence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"loan-agent/internal/common/camunda"
	apperrors "loan-agent/internal/common/errors"
	"loan-agent/internal/common/logger"
	"loan-agent/internal/common/metrics"
	"loan-agent/internal/tools"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskTypeVerifyPaystub = "verify-paystub"
	TaskTypeVerifyID      = "verify-id"
)

// toolForTask maps job types onto the tools that serve them.
var toolForTask = map[string]string{
	TaskTypeVerifyPaystub: tools.ToolVerifyPaystub,
	TaskTypeVerifyID:      tools.ToolVerifyID,
}

// Handler runs a verification tool for a Zeebe job. The job variables are
// passed to the tool as its arguments, so a verify-paystub job carries a
// "paystub" variable and a verify-id job an "id" variable.
type Handler struct {
	config       *Config
	taskType     string
	toolName     string
	registry     *tools.Registry
	errorHandler *apperrors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(config *Config, taskType string, reg *tools.Registry, log logger.Logger) (*Handler, error) {
	toolName, ok := toolForTask[taskType]
	if !ok {
		return nil, fmt.Errorf("no verification tool for task type %q", taskType)
	}
	log = log.WithFields(map[string]interface{}{"taskType": taskType, "tool": toolName})
	return &Handler{
		config:       config,
		taskType:     taskType,
		toolName:     toolName,
		registry:     reg,
		errorHandler: apperrors.NewErrorHandler(log),
		logger:       log,
	}, nil
}

func (h *Handler) TaskType() string { return h.taskType }

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.Execute(ctx, json.RawMessage(job.Variables))
	if err != nil {
		metrics.WorkerJobsFailed.WithLabelValues(h.taskType, string(apperrors.Normalize(err).Code)).Inc()
		h.errorHandler.HandleJobError(ctx, client, job, err)
		return
	}

	if err := camunda.CompleteJob(ctx, client, job.Key, output, h.config.Retry); err != nil {
		h.logger.Error("Failed to complete job", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(h.taskType).Inc()
}

// Execute calls the tool. A tool-level fault is a completed job with an
// error output and error code; only an unregistered tool is a job failure.
func (h *Handler) Execute(ctx context.Context, variables json.RawMessage) (*Output, error) {
	result, err := h.registry.Call(ctx, h.toolName, variables)
	if err != nil {
		return nil, apperrors.NewToolNotFoundError(h.toolName)
	}
	if !result.IsError() {
		return &Output{Status: result.Status}, nil
	}

	fault := apperrors.NewToolExecutionError(h.toolName, errors.New(result.Error))
	h.logger.Warn("tool reported a fault", map[string]interface{}{
		"errorCode":     string(fault.Code),
		"errorCategory": apperrors.GetErrorCategory(fault.Code),
		"details":       fault.Details,
	})
	return &Output{Error: result.Error, ErrorCode: string(fault.Code)}, nil
}
