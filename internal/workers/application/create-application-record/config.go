// internal/workers/application/create-application-record/config.go
package createapplicationrecord

import (
	"time"

	"admissions-wizard/internal/common/config"
)

type Config struct {
	Timeout time.Duration
	Now     func() time.Time
}

func LoadConfig(wcfg config.WorkerConfig) *Config {
	timeout := config.GetDuration(wcfg.Timeout)
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Config{Timeout: timeout, Now: time.Now}
}
