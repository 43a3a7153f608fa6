package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFromFile_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
database:
  postgres:
    database: matcher
    user: matcher
workers:
  compute-match:
    enabled: true
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, 0.5, cfg.Matching.SkillWeight)
	assert.Equal(t, 2.0, cfg.Matching.RequiredPreferredRatio)
	assert.Equal(t, []string{"Hired", "Rejected"}, cfg.Pipeline.TerminalStages)
	assert.Equal(t, []string{"Applied", "Screening", "Interview", "Offer", "Hired", "Rejected"}, cfg.Pipeline.DefaultStages)
	assert.Equal(t, 500*time.Millisecond, cfg.Notifications.PublishTimeout)
	assert.Equal(t, 30*time.Second, cfg.Notifications.RetryInterval)
	assert.Equal(t, 5, cfg.Notifications.MaxAttempts)
	assert.Equal(t, 30*time.Minute, cfg.Database.Postgres.ConnMaxLifetime)
	assert.False(t, cfg.Database.Elasticsearch.Enabled())

	w := GetWorkerConfig(cfg, "compute-match")
	assert.True(t, w.Enabled)
	assert.Equal(t, 5, w.MaxJobsActive)
	assert.Equal(t, 30000, w.Timeout)
	assert.Equal(t, 3, w.MaxRetries)
}

func TestLoadFromFile_EnvOverrides(t *testing.T) {
	path := writeConfig(t, `
database:
  postgres:
    database: matcher
    user: ${MATCHER_DB_USER}
`)
	t.Setenv("MATCHER_DB_USER", "svc_matcher")
	t.Setenv("PIPELINE_TERMINAL_STAGES", "Hired, Withdrawn")
	t.Setenv("NOTIFICATIONS_PUBLISH_TIMEOUT", "2s")
	t.Setenv("MATCHING_SKILL_WEIGHT", "0.6")

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "svc_matcher", cfg.Database.Postgres.User)
	assert.Equal(t, []string{"Hired", "Withdrawn"}, cfg.Pipeline.TerminalStages)
	assert.Equal(t, 2*time.Second, cfg.Notifications.PublishTimeout)
	assert.Equal(t, 0.6, cfg.Matching.SkillWeight)
}

func TestLoadFromFile_Validation(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{
			name:    "missing database name",
			body:    "database:\n  postgres:\n    user: matcher\n",
			wantErr: "database.postgres.database is required",
		},
		{
			name:    "skill weight out of range",
			body:    "database:\n  postgres:\n    database: m\n    user: m\nmatching:\n  skill_weight: 1.5\n",
			wantErr: "matching.skill_weight",
		},
		{
			name:    "non positive ratio",
			body:    "database:\n  postgres:\n    database: m\n    user: m\nmatching:\n  required_preferred_ratio: 0\n",
			wantErr: "required_preferred_ratio",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromFile(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateBroker(t *testing.T) {
	cfg := &Config{}
	assert.Error(t, cfg.ValidateBroker())

	cfg.Camunda.BrokerAddress = "localhost:26500"
	assert.NoError(t, cfg.ValidateBroker())
}

func TestIsWorkerEnabled(t *testing.T) {
	cfg := &Config{Workers: map[string]WorkerConfig{"move-application": {Enabled: false}}}

	assert.False(t, IsWorkerEnabled(cfg, "move-application"))
	assert.True(t, IsWorkerEnabled(cfg, "list-stages"))
}
