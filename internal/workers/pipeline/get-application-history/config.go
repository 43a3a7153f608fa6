// internal/workers/pipeline/get-application-history/config.go
package getapplicationhistory

import (
	"time"

	"job-matcher/internal/common/config"
)

type Config struct {
	Timeout time.Duration
}

func LoadConfig(cfg *config.Config) *Config {
	return &Config{
		Timeout: config.GetDuration(config.GetWorkerConfig(cfg, TaskType).Timeout),
	}
}
