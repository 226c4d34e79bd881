// internal/workers/application/send-notification/config.go
package sendnotification

import (
	"time"

	"admissions-wizard/internal/common/config"
)

type Config struct {
	EmailEnabled bool
	SMSEnabled   bool
	Timeout      time.Duration
	Now          func() time.Time
}

// LoadConfig enables a channel only when both the notification switch and
// the AWS service behind it are on.
func LoadConfig(cfg *config.Config) *Config {
	timeout := config.GetDuration(config.GetWorkerConfig(cfg, TaskType).Timeout)
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Config{
		EmailEnabled: cfg.Notifications.Email.Enabled && cfg.Integrations.AWS.SES.Enabled,
		SMSEnabled:   cfg.Notifications.SMS.Enabled && cfg.Integrations.AWS.SNS.Enabled,
		Timeout:      timeout,
		Now:          time.Now,
	}
}
