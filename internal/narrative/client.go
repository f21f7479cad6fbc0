package narrative

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"loan-agent/internal/common/cache"
	"loan-agent/internal/common/config"
	apperrors "loan-agent/internal/common/errors"
	httpclient "loan-agent/internal/common/http"
	"loan-agent/internal/common/logger"
	"loan-agent/internal/common/metrics"
	"loan-agent/internal/common/observability"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

var (
	ErrMissingCredential = errors.New("MISSING_CREDENTIAL")
	ErrLLMTimeout        = errors.New("LLM_TIMEOUT")
	ErrReportFailed      = errors.New("REPORT_FAILED")
)

// Cache stores finished reports. *cache.RedisClient satisfies it; Get must
// return cache.ErrMiss for absent keys.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
}

// Report is a generated fraud narrative plus request metadata.
type Report struct {
	RequestID   string    `json:"requestId"`
	Provider    string    `json:"provider"`
	Model       string    `json:"model"`
	Text        string    `json:"text"`
	Repaired    bool      `json:"repaired"`
	Cached      bool      `json:"cached"`
	Attempts    int       `json:"attempts"`
	GeneratedAt time.Time `json:"generatedAt"`
}

type cachedReport struct {
	Text        string    `json:"text"`
	Repaired    bool      `json:"repaired"`
	GeneratedAt time.Time `json:"generatedAt"`
}

type Option func(*Client)

func WithCache(c Cache) Option {
	return func(cl *Client) { cl.cache = c }
}

func WithObservability(obs *observability.Observability) Option {
	return func(cl *Client) { cl.obs = obs }
}

// WithHTTPClient replaces the transport used by either provider.
func WithHTTPClient(hc *http.Client) Option {
	return func(cl *Client) { cl.httpClient = hc }
}

func withProvider(p provider) Option {
	return func(cl *Client) { cl.provider = p }
}

// Client generates fraud reports. It holds no mutable state after
// construction and may be shared between goroutines.
type Client struct {
	cfg        Config
	provider   provider
	cache      Cache
	obs        *observability.Observability
	httpClient *http.Client
	logger     logger.Logger
}

// NewClient resolves the API credential and builds the provider. A missing
// credential fails here, before any request is made.
func NewClient(cfg Config, log logger.Logger, opts ...Option) (*Client, error) {
	cfg.applyDefaults()

	if strings.TrimSpace(cfg.APIKey) == "" {
		cfg.APIKey = strings.TrimSpace(os.Getenv(cfg.APIKeyEnv))
	}
	if cfg.APIKey == "" {
		return nil, apperrors.NewCredentialMissingError(cfg.APIKeyEnv, ErrMissingCredential)
	}

	if log == nil {
		log = logger.NewNoOpLogger()
	}

	c := &Client{
		cfg: cfg,
		logger: log.With(map[string]interface{}{
			"component": "narrative",
			"provider":  cfg.Provider,
			"model":     cfg.Model,
		}),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.provider != nil {
		return c, nil
	}

	switch cfg.Provider {
	case config.ProviderOpenAI:
		hc := httpclient.NewClient(cfg.Timeout)
		if c.httpClient != nil {
			hc = httpclient.Wrap(c.httpClient)
		}
		c.provider = newOpenAIProvider(cfg.BaseURL, cfg.APIKey, hc)
	case config.ProviderGemini:
		p, err := newGeminiProvider(context.Background(), cfg.BaseURL, cfg.APIKey, c.httpClient)
		if err != nil {
			return nil, apperrors.NewConfigurationError(err.Error())
		}
		c.provider = p
	default:
		return nil, apperrors.NewConfigurationError(fmt.Sprintf("unknown llm provider %q", cfg.Provider))
	}

	return c, nil
}

// WithModel returns a client sharing this one's provider and cache but
// requesting a different model.
func (c *Client) WithModel(model string) *Client {
	if model == "" || model == c.cfg.Model {
		return c
	}
	clone := *c
	clone.cfg.Model = model
	clone.logger = c.logger.With(map[string]interface{}{"model": model})
	return &clone
}

func (c *Client) Model() string    { return c.cfg.Model }
func (c *Client) Provider() string { return c.provider.Name() }

// GenerateReport returns only the report text.
func (c *Client) GenerateReport(ctx context.Context, application interface{}) (string, error) {
	report, err := c.Generate(ctx, application)
	if err != nil {
		return "", err
	}
	return report.Text, nil
}

// Generate sends one completion request for the application and returns a
// report that always carries the three section labels.
func (c *Client) Generate(ctx context.Context, application interface{}) (*Report, error) {
	start := time.Now()
	requestID := uuid.NewString()
	providerName := c.provider.Name()
	log := c.logger.With(map[string]interface{}{"requestId": requestID})

	ctx, endSpan := c.obs.StartSpan(ctx, "narrative.generate",
		attribute.String("request.id", requestID),
		attribute.String("llm.provider", providerName),
		attribute.String("llm.model", c.cfg.Model),
	)

	report, err := c.generate(ctx, requestID, BuildPayload(application), log)
	endSpan(err)

	status := "success"
	switch {
	case err != nil:
		status = "failure"
	case report.Cached:
		status = "cached"
	}
	metrics.ReportsGenerated.WithLabelValues(providerName, status).Inc()
	metrics.ReportDuration.WithLabelValues(providerName).Observe(time.Since(start).Seconds())
	c.obs.RecordReport(ctx, providerName, status)
	c.obs.RecordReportDuration(ctx, time.Since(start), providerName, status)

	if err != nil {
		log.Error("report generation failed", map[string]interface{}{
			"error":      err.Error(),
			"durationMs": time.Since(start).Milliseconds(),
		})
		return nil, err
	}

	log.Info("report generated", map[string]interface{}{
		"repaired":   report.Repaired,
		"cached":     report.Cached,
		"attempts":   report.Attempts,
		"durationMs": time.Since(start).Milliseconds(),
	})
	return report, nil
}

func (c *Client) generate(ctx context.Context, requestID, payload string, log logger.Logger) (*Report, error) {
	key := c.cacheKey(payload)
	if cached := c.lookup(ctx, key, log); cached != nil {
		return &Report{
			RequestID:   requestID,
			Provider:    c.provider.Name(),
			Model:       c.cfg.Model,
			Text:        cached.Text,
			Repaired:    cached.Repaired,
			Cached:      true,
			GeneratedAt: cached.GeneratedAt,
		}, nil
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	text, attempts, err := c.complete(ctx, completionRequest{
		Model:       c.cfg.Model,
		System:      SystemPrompt,
		User:        UserPrompt(payload),
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
	}, log)
	if err != nil {
		return nil, err
	}

	text, repaired := EnsureSections(text)
	if repaired {
		metrics.ReportsRepaired.WithLabelValues(c.provider.Name()).Inc()
		log.Warn("model output missing section labels, wrapped", nil)
	}

	report := &Report{
		RequestID:   requestID,
		Provider:    c.provider.Name(),
		Model:       c.cfg.Model,
		Text:        text,
		Repaired:    repaired,
		Attempts:    attempts,
		GeneratedAt: time.Now().UTC(),
	}
	c.store(ctx, key, report, log)
	return report, nil
}

func (c *Client) complete(ctx context.Context, req completionRequest, log logger.Logger) (string, int, error) {
	var lastErr error
	attempts := 0

	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := c.cfg.RetryBackoff * time.Duration(1<<(attempt-1))
			log.Warn("retrying completion", map[string]interface{}{
				"attempt":   attempt + 1,
				"backoffMs": backoff.Milliseconds(),
				"error":     lastErr.Error(),
			})
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", attempts, c.classify(ctx, ctx.Err())
			}
		}

		attempts++
		text, err := c.provider.Complete(ctx, req)
		if err == nil {
			metrics.ReportAttempts.WithLabelValues(c.provider.Name(), "success").Inc()
			return text, attempts, nil
		}
		metrics.ReportAttempts.WithLabelValues(c.provider.Name(), "error").Inc()
		lastErr = err

		if ctx.Err() != nil || !retryable(err) {
			break
		}
	}

	return "", attempts, c.classify(ctx, lastErr)
}

// classify maps a provider failure onto the shared error codes while keeping
// the sentinel and the cause reachable through errors.Is.
func (c *Client) classify(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return apperrors.NewLLMTimeoutError(fmt.Errorf("%w: %w", ErrLLMTimeout, err))
	case rateLimited(err):
		return apperrors.NewLLMRateLimitedError(fmt.Errorf("%w: %w", ErrReportFailed, err))
	case errors.Is(err, ErrEmptyResponse):
		return apperrors.NewLLMEmptyResponseError(c.cfg.Model, fmt.Errorf("%w: %w", ErrReportFailed, err))
	default:
		return apperrors.NewLLMRequestFailedError(fmt.Errorf("%w: %w", ErrReportFailed, err))
	}
}

func (c *Client) cacheKey(payload string) string {
	h := sha256.New()
	h.Write([]byte(c.provider.Name()))
	h.Write([]byte{0})
	h.Write([]byte(c.cfg.Model))
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatFloat(c.cfg.Temperature, 'g', -1, 64)))
	h.Write([]byte{0})
	h.Write([]byte(payload))
	return hex.EncodeToString(h.Sum(nil))
}

// lookup never fails a report: cache errors are logged and treated as a miss.
func (c *Client) lookup(ctx context.Context, key string, log logger.Logger) *cachedReport {
	if c.cache == nil {
		return nil
	}

	raw, err := c.cache.Get(ctx, key)
	if errors.Is(err, cache.ErrMiss) {
		metrics.ReportCacheLookups.WithLabelValues("miss").Inc()
		return nil
	}
	if err != nil {
		metrics.ReportCacheLookups.WithLabelValues("error").Inc()
		log.Warn("report cache lookup failed", map[string]interface{}{
			"error": apperrors.NewCacheUnavailableError(err).Error(),
		})
		return nil
	}

	var cached cachedReport
	if err := json.Unmarshal([]byte(raw), &cached); err != nil || cached.Text == "" {
		metrics.ReportCacheLookups.WithLabelValues("error").Inc()
		log.Warn("discarding unreadable cache entry", map[string]interface{}{"cacheKey": key})
		return nil
	}
	metrics.ReportCacheLookups.WithLabelValues("hit").Inc()
	return &cached
}

func (c *Client) store(ctx context.Context, key string, report *Report, log logger.Logger) {
	if c.cache == nil {
		return
	}
	raw, err := json.Marshal(cachedReport{Text: report.Text, Repaired: report.Repaired, GeneratedAt: report.GeneratedAt})
	if err != nil {
		return
	}
	if err := c.cache.Set(ctx, key, string(raw), c.cfg.CacheTTL); err != nil {
		log.Warn("report cache store failed", map[string]interface{}{
			"error": apperrors.NewCacheUnavailableError(err).Error(),
		})
	}
}
