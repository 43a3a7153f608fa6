// internal/workers/matching/rank-job-matches/config.go
package rankjobmatches

import (
	"time"

	"job-matcher/internal/common/config"
)

type Config struct {
	Timeout      time.Duration
	DefaultLimit int
}

func LoadConfig(cfg *config.Config) *Config {
	return &Config{
		Timeout:      config.GetDuration(config.GetWorkerConfig(cfg, TaskType).Timeout),
		DefaultLimit: 20,
	}
}
