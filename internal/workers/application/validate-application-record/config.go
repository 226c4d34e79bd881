// internal/workers/application/validate-application-record/config.go
package validateapplicationrecord

import (
	"time"

	"admissions-wizard/internal/common/config"
)

type Config struct {
	Timeout time.Duration
}

// LoadConfig reads the worker's timeout, defaulting to 10s.
func LoadConfig(wcfg config.WorkerConfig) *Config {
	timeout := config.GetDuration(wcfg.Timeout)
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Config{Timeout: timeout}
}
