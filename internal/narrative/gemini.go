package narrative

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"loan-agent/internal/common/config"
	httpclient "loan-agent/internal/common/http"

	"google.golang.org/genai"
)

// geminiProvider calls the native Gemini API through the genai SDK.
type geminiProvider struct {
	client *genai.Client
}

func newGeminiProvider(ctx context.Context, baseURL, apiKey string, hc *http.Client) (*geminiProvider, error) {
	cc := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: hc,
	}
	if baseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &geminiProvider{client: client}, nil
}

func (p *geminiProvider) Name() string { return config.ProviderGemini }

func (p *geminiProvider) Complete(ctx context.Context, req completionRequest) (string, error) {
	gc := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(req.System, genai.RoleUser),
		Temperature:       genai.Ptr(float32(req.Temperature)),
	}
	if req.MaxTokens > 0 {
		gc.MaxOutputTokens = int32(req.MaxTokens)
	}

	resp, err := p.client.Models.GenerateContent(ctx, req.Model, genai.Text(req.User), gc)
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			return "", &httpclient.StatusError{StatusCode: apiErr.Code, Body: apiErr.Message}
		}
		return "", err
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return "", ErrEmptyResponse
	}
	return strings.TrimSpace(resp.Text()), nil
}
