package narrativereport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"loan-agent/internal/common/camunda"
	"loan-agent/internal/common/camunda/camundatest"
	apperrors "loan-agent/internal/common/errors"
	"loan-agent/internal/common/logger"
	"loan-agent/internal/narrative"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

type capturedRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func createTestServer(t *testing.T, status int, content string, captured *[]capturedRequest) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req capturedRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if captured != nil {
			*captured = append(*captured, req)
		}
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{{"message": map[string]string{"content": content}}},
		})
	}))
	t.Cleanup(server.Close)
	return server
}

func createTestHandler(t *testing.T, baseURL string) *Handler {
	t.Helper()
	cfg := narrative.DefaultConfig()
	cfg.BaseURL = baseURL
	cfg.APIKey = "test-key"
	cfg.RetryBackoff = time.Millisecond
	cfg.MaxRetries = 1

	client, err := narrative.NewClient(cfg, logger.NewTestLogger(t))
	require.NoError(t, err)
	return NewHandler(&Config{Timeout: 5 * time.Second}, client, logger.NewTestLogger(t))
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_Success(t *testing.T) {
	var captured []capturedRequest
	server := createTestServer(t, http.StatusOK, "Looks fine.", &captured)
	handler := createTestHandler(t, server.URL)

	input := &Input{
		Application: json.RawMessage(`{"applicant":{"name":"Jane Doe"},"paystub":{"net_pay":2900.00}}`),
	}

	output, err := handler.Execute(context.Background(), input)
	require.NoError(t, err)

	assert.True(t, output.Repaired)
	assert.False(t, output.Cached)
	assert.NotEmpty(t, output.ReportID)
	assert.True(t, strings.HasPrefix(output.Report, "Identity Fraud Risk:\nLooks fine.\n"))

	require.Len(t, captured, 1)
	assert.Equal(t, "gemini-1.5-turbo", captured[0].Model)
	assert.True(t, strings.HasSuffix(captured[0].Messages[1].Content,
		`DATA: {"applicant":{"name":"Jane Doe"},"paystub":{"net_pay":2900.00}}`))
}

func TestHandler_Execute_RawTextApplication(t *testing.T) {
	var captured []capturedRequest
	server := createTestServer(t, http.StatusOK, "Overall Application Risk: medium", &captured)
	handler := createTestHandler(t, server.URL)

	output, err := handler.Execute(context.Background(), &Input{
		Application: json.RawMessage(`"applicant Jane Doe, employer SampleCo"`),
		Model:       "gemini-1.5-pro",
	})
	require.NoError(t, err)
	assert.False(t, output.Repaired)
	assert.Equal(t, "Overall Application Risk: medium", output.Report)

	require.Len(t, captured, 1)
	assert.Equal(t, "gemini-1.5-pro", captured[0].Model)
	assert.Contains(t, captured[0].Messages[1].Content, `{"raw_application":"applicant Jane Doe, employer SampleCo"}`)
}

func TestHandler_Execute_MissingApplication(t *testing.T) {
	handler := createTestHandler(t, "http://127.0.0.1:1")

	for _, raw := range []string{"", "null"} {
		_, err := handler.Execute(context.Background(), &Input{Application: json.RawMessage(raw)})
		var stdErr *apperrors.StandardError
		require.ErrorAs(t, err, &stdErr)
		assert.Equal(t, apperrors.ErrCodeInvalidPayload, stdErr.Code)
	}
}

func TestHandler_Execute_APIError(t *testing.T) {
	server := createTestServer(t, http.StatusInternalServerError, "", nil)
	handler := createTestHandler(t, server.URL)

	_, err := handler.Execute(context.Background(), &Input{Application: json.RawMessage(`{}`)})
	require.Error(t, err)
	assert.True(t, errors.Is(err, narrative.ErrReportFailed))

	stdErr := apperrors.Normalize(err)
	assert.Equal(t, apperrors.ErrCodeLLMRequestFailed, stdErr.Code)
	assert.True(t, stdErr.Retryable)
}

func TestHandler_Execute_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()
	handler := createTestHandler(t, server.URL)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := handler.Execute(ctx, &Input{Application: json.RawMessage(`{}`)})
	require.Error(t, err)
	assert.True(t, errors.Is(err, narrative.ErrLLMTimeout))
	assert.Equal(t, "LLM_TIMEOUT", apperrors.ConvertToBPMNError(apperrors.Normalize(err)).Code)
}

// ==========================
// Job Lifecycle Tests
// ==========================

func testJob(key int64, retries int32, variables string) entities.Job {
	return entities.Job{ActivatedJob: &pb.ActivatedJob{Key: key, Type: TaskType, Retries: retries, Variables: variables}}
}

func TestHandler_Handle_CompletesAfterTransientBrokerError(t *testing.T) {
	server := createTestServer(t, http.StatusOK, "Overall Application Risk: low", nil)
	handler := createTestHandler(t, server.URL)
	handler.config.Retry = &camunda.RetryConfig{MaxRetries: 2, BaseDelay: time.Millisecond}
	client := camundatest.NewJobClient(errors.New("rpc error: code = Unavailable desc = connection reset by peer"))

	handler.Handle(client, testJob(11, 3, `{"application": {"applicant": {"name": "Jane Doe"}}}`))

	assert.Equal(t, 2, client.CompleteCalls)
	require.Len(t, client.Completed, 1)
	var output Output
	require.NoError(t, json.Unmarshal([]byte(client.Completed[0].Variables), &output))
	assert.Equal(t, "Overall Application Risk: low", output.Report)
	assert.NotEmpty(t, output.ReportID)
}

func TestHandler_Handle_RetryableFailureFailsJob(t *testing.T) {
	server := createTestServer(t, http.StatusBadGateway, "", nil)
	handler := createTestHandler(t, server.URL)
	client := camundatest.NewJobClient()

	handler.Handle(client, testJob(12, 3, `{"application": {}}`))

	assert.Empty(t, client.Completed)
	assert.Empty(t, client.Thrown)
	require.Len(t, client.Failed, 1)
	assert.Equal(t, int64(12), client.Failed[0].JobKey)
	assert.Positive(t, client.Failed[0].Retries)
}

func TestHandler_Handle_InvalidVariablesThrowBPMNError(t *testing.T) {
	handler := createTestHandler(t, "http://127.0.0.1:1")
	client := camundatest.NewJobClient()

	handler.Handle(client, testJob(13, 3, `{"application": `))

	assert.Empty(t, client.Completed)
	require.Len(t, client.Thrown, 1)
	assert.Equal(t, "INVALID_PAYLOAD", client.Thrown[0].ErrorCode)
}

func TestLoadConfig(t *testing.T) {
	cfg := LoadConfig()
	assert.Equal(t, 90*time.Second, cfg.Timeout)
	assert.Same(t, camunda.DefaultRetryConfig, cfg.Retry)
}
