package narrative

import (
	"context"
	"errors"

	httpclient "loan-agent/internal/common/http"
)

// ErrEmptyResponse is returned when the endpoint answers without a choice.
var ErrEmptyResponse = errors.New("completion returned no choices")

type completionRequest struct {
	Model       string
	System      string
	User        string
	Temperature float64
	MaxTokens   int
}

// provider issues one chat completion and returns the first choice's text.
type provider interface {
	Name() string
	Complete(ctx context.Context, req completionRequest) (string, error)
}

// retryable reports whether another attempt could succeed: transport
// failures, 429 and 5xx are retried, other statuses and malformed or
// empty answers are not.
func retryable(err error) bool {
	var se *httpclient.StatusError
	if errors.As(err, &se) {
		return se.Retryable()
	}
	switch {
	case errors.Is(err, ErrEmptyResponse),
		errors.Is(err, httpclient.ErrDecode),
		errors.Is(err, context.Canceled):
		return false
	}
	return true
}

func rateLimited(err error) bool {
	var se *httpclient.StatusError
	return errors.As(err, &se) && se.StatusCode == 429
}
