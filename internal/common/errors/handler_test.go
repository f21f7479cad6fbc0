package errors

import (
	"context"
	stderrors "errors"
	"testing"

	"loan-agent/internal/common/camunda/camundatest"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingLogger struct {
	messages []string
}

func (l *recordingLogger) Error(msg string, fields map[string]interface{}) {
	l.messages = append(l.messages, msg)
}

func TestErrorHandler_HandleJobError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		jobRetries int32
		wantFailed bool
		wantCode   string
	}{
		{"retryable code with retries left fails the job", NewLLMRequestFailedError(stderrors.New("status 502")), 3, true, ""},
		{"no retries left throws", NewLLMRequestFailedError(stderrors.New("status 502")), 0, false, "LLM_REQUEST_FAILED"},
		{"validation throws", NewInvalidPayloadError("application is required"), 3, false, "INVALID_PAYLOAD"},
		{"retryable flag without retry budget throws", &StandardError{Code: ErrCodeToolNotFound, Retryable: true}, 3, false, "TOOL_NOT_FOUND"},
		{"plain error throws", stderrors.New("unexpected"), 3, false, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := &recordingLogger{}
			client := camundatest.NewJobClient()
			job := entities.Job{ActivatedJob: &pb.ActivatedJob{Key: 5, Type: "fraud-narrative-report", Retries: tt.jobRetries}}

			NewErrorHandler(log).HandleJobError(context.Background(), client, job, tt.err)

			assert.Equal(t, []string{"Job failed"}, log.messages)
			if tt.wantFailed {
				require.Len(t, client.Failed, 1)
				assert.Empty(t, client.Thrown)
				assert.Equal(t, int32(3), client.Failed[0].Retries)
				return
			}
			assert.Empty(t, client.Failed)
			require.Len(t, client.Thrown, 1)
			assert.Equal(t, tt.wantCode, client.Thrown[0].ErrorCode)
		})
	}
}
