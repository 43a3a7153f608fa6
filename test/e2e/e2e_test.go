// test/e2e/e2e_test.go
package e2e

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"job-matcher/internal/common/config"
	"job-matcher/internal/common/database"
	apperrors "job-matcher/internal/common/errors"
	"job-matcher/internal/common/logger"
	"job-matcher/internal/common/validation"
	"job-matcher/internal/matching"
	"job-matcher/internal/models"
	"job-matcher/internal/notify"
	"job-matcher/internal/pipeline"
	"job-matcher/internal/search"
	"job-matcher/internal/store"
	sendnotification "job-matcher/internal/workers/communication/send-notification"
)

// fixture is one candidate applying to one job of a fresh company.
type fixture struct {
	userID      string
	candidateID string
	companyID   string
	jobID       string
}

type env struct {
	db       *sql.DB
	redis    *redis.Client
	notify   config.NotificationConfig
	matching *matching.Service
	pipeline *pipeline.Engine
	log      logger.Logger
}

func setup(t *testing.T) *env {
	t.Helper()
	dsn := os.Getenv("E2E_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("E2E_POSTGRES_DSN not set")
	}

	ctx := context.Background()
	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.PingContext(ctx))

	_, err = database.Migrate(ctx, db)
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	log := logger.NewTestLogger(t)
	ncfg := config.NotificationConfig{
		Stream:         "notifications",
		ConsumerGroup:  "delivery",
		Consumer:       "e2e",
		PublishTimeout: time.Second,
		BlockTimeout:   -1,
	}
	emitter := notify.NewEmitter(rdb, ncfg, log)

	validator, err := validation.NewMatrixValidator()
	require.NoError(t, err)

	svc := matching.NewService(
		store.NewMatrixStore(db, validator),
		store.NewMatchRepository(db),
		search.NewMatchIndex(nil, ""),
		emitter,
		matching.DefaultScorer(),
		nil, log,
	)
	engine := pipeline.NewEngine(
		store.NewApplicationRepository(db),
		store.NewStageRegistry(db, []string{"Applied", "Screening", "Interview", "Offer", "Hired", "Rejected"}, log),
		emitter,
		config.PipelineConfig{TerminalStages: []string{"Hired", "Rejected"}},
		nil, log,
	)
	return &env{db: db, redis: rdb, notify: ncfg, matching: svc, pipeline: engine, log: log}
}

func (e *env) seed(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	f := fixture{
		userID:      uuid.New().String(),
		candidateID: uuid.New().String(),
		companyID:   uuid.New().String(),
		jobID:       uuid.New().String(),
	}

	exec := func(q string, args ...interface{}) {
		_, err := e.db.ExecContext(ctx, q, args...)
		require.NoError(t, err)
	}
	exec(`INSERT INTO users (id, email) VALUES ($1, $2)`, f.userID, "e2e@example.com")
	exec(`INSERT INTO candidates (id, user_id) VALUES ($1, $2)`, f.candidateID, f.userID)
	exec(`INSERT INTO jobs (id, company_id, title) VALUES ($1, $2, $3)`, f.jobID, f.companyID, "Backend Engineer")
	exec(`INSERT INTO candidate_matrices (id, candidate_id, matrix) VALUES ($1, $2, $3)`,
		uuid.New().String(), f.candidateID,
		`{"skills":[{"name":"Go"},{"name":"PostgreSQL"}],"total_years_experience":6,"domains":["fintech"],"location":{"countries":["Germany"],"cities":["Berlin"]},"confidence":90}`)
	exec(`INSERT INTO job_matrices (id, job_id, matrix) VALUES ($1, $2, $3)`,
		uuid.New().String(), f.jobID,
		`{"required_skills":[{"name":"Go"},{"name":"PostgreSQL"}],"min_years_experience":5,"domains":["fintech"],"location":{"country":"Germany","city":"Berlin"},"experience_weight":1,"domain_weight":1,"location_weight":1}`)
	return f
}

func TestE2E_MatchLifecycle(t *testing.T) {
	e := setup(t)
	f := e.seed(t)
	ctx := context.Background()

	first, err := e.matching.ComputeMatch(ctx, f.candidateID, f.jobID)
	require.NoError(t, err)
	assert.True(t, first.Created)
	assert.Greater(t, first.Match.Score, 0)
	assert.LessOrEqual(t, first.Match.Score, 100)

	again, err := e.matching.ComputeMatch(ctx, f.candidateID, f.jobID)
	require.NoError(t, err)
	assert.False(t, again.Created)
	assert.Equal(t, first.Match.ID, again.Match.ID)

	m, changed, err := e.matching.DecideMatch(ctx, first.Match.ID, "shortlist")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, models.DecisionShortlisted, m.Decision)

	_, changed, err = e.matching.DecideMatch(ctx, first.Match.ID, "shortlist")
	require.NoError(t, err)
	assert.False(t, changed)

	ranked, source, err := e.matching.RankJobMatches(ctx, matching.RankQuery{JobID: f.jobID, Decision: "shortlisted"})
	require.NoError(t, err)
	assert.Equal(t, "postgres", source)
	require.Len(t, ranked, 1)
	assert.Equal(t, first.Match.ID, ranked[0].ID)
}

func TestE2E_PipelineLifecycle(t *testing.T) {
	e := setup(t)
	f := e.seed(t)
	ctx := context.Background()

	app, err := e.pipeline.CreateApplication(ctx, pipeline.CreateApplicationRequest{CandidateID: f.candidateID, JobID: f.jobID})
	require.NoError(t, err)

	stages, err := e.pipeline.ListStages(ctx, f.companyID)
	require.NoError(t, err)
	require.Len(t, stages, 6)
	assert.True(t, stages[0].IsDefault)
	assert.Equal(t, stages[0].ID, app.CurrentStageID)

	_, err = e.pipeline.CreateApplication(ctx, pipeline.CreateApplicationRequest{CandidateID: f.candidateID, JobID: f.jobID})
	assert.ErrorIs(t, err, apperrors.ErrDuplicateApplication)

	interview := stages[2]
	res, err := e.pipeline.Move(ctx, pipeline.MoveRequest{ApplicationID: app.ID, TargetStageID: interview.ID, Actor: "recruiter"})
	require.NoError(t, err)
	assert.Equal(t, models.NotificationApplicationInterview, res.Template)

	history, err := e.pipeline.History(ctx, app.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Empty(t, history[0].FromStageID)
	assert.Equal(t, stages[0].ID, history[1].FromStageID)
	assert.Equal(t, interview.ID, history[1].ToStageID)

	_, err = e.pipeline.MutateStages(ctx, pipeline.StageMutation{Operation: pipeline.OpDelete, CompanyID: f.companyID, StageID: interview.ID})
	assert.ErrorIs(t, err, apperrors.ErrStageInUse)

	reversed := make([]string, len(stages))
	for i, s := range stages {
		reversed[len(stages)-1-i] = s.ID
	}
	reordered, err := e.pipeline.MutateStages(ctx, pipeline.StageMutation{Operation: pipeline.OpReorder, CompanyID: f.companyID, OrderedIDs: reversed})
	require.NoError(t, err)
	for i, s := range reordered {
		assert.Equal(t, i+1, s.Order)
		assert.Equal(t, reversed[i], s.ID)
	}
}

func TestE2E_NotificationsReachTheInbox(t *testing.T) {
	e := setup(t)
	f := e.seed(t)
	ctx := context.Background()

	_, err := e.pipeline.CreateApplication(ctx, pipeline.CreateApplicationRequest{CandidateID: f.candidateID, JobID: f.jobID})
	require.NoError(t, err)

	sender := sendnotification.NewHandler(&sendnotification.Config{Timeout: time.Second}, e.db, nil, nil, e.log, nil)
	relay := notify.NewRelay(e.redis, e.notify, sender.Deliver, e.log)
	require.NoError(t, relay.EnsureGroup(ctx))

	n, err := relay.ProcessOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	var kind, status string
	err = e.db.QueryRowContext(ctx,
		`SELECT type, status FROM notifications WHERE user_id = $1`, f.userID,
	).Scan(&kind, &status)
	require.NoError(t, err)
	assert.Equal(t, models.NotificationApplicationReceived, kind)
	assert.Equal(t, sendnotification.StatusDisabled, status)
}
