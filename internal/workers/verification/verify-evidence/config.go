// internal/workers/verification/verify-evidence/config.go
package verifyevidence

import (
	"time"

	"loan-agent/internal/common/camunda"
)

type Config struct {
	Timeout time.Duration
	// Retry backs off the complete-job command; nil uses camunda.DefaultRetryConfig.
	Retry *camunda.RetryConfig
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 10 * time.Second,
		Retry:   camunda.DefaultRetryConfig,
	}
}
