// internal/workers/communication/send-notification/config.go
package sendnotification

import (
	"time"

	"job-matcher/internal/common/config"
)

type Config struct {
	Timeout      time.Duration
	EmailEnabled bool
	FromEmail    string
	SMSEnabled   bool
	SMSTypes     []string
}

func LoadConfig(cfg *config.Config) *Config {
	n := cfg.Notifications
	return &Config{
		Timeout:      config.GetDuration(config.GetWorkerConfig(cfg, TaskType).Timeout),
		EmailEnabled: n.Email.Enabled,
		FromEmail:    n.Email.FromEmail,
		SMSEnabled:   n.SMS.Enabled,
		SMSTypes:     n.SMS.Types,
	}
}

func (c *Config) smsFor(notificationType string) bool {
	if !c.SMSEnabled {
		return false
	}
	for _, t := range c.SMSTypes {
		if t == notificationType {
			return true
		}
	}
	return false
}
