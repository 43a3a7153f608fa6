package matching

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	apperrors "job-matcher/internal/common/errors"
	"job-matcher/internal/common/logger"
	"job-matcher/internal/common/metrics"
	"job-matcher/internal/common/observability"
	"job-matcher/internal/models"
	"job-matcher/internal/notify"
	"job-matcher/internal/search"
	"job-matcher/internal/store"
)

// MatrixSource yields the newest matrix for either side of a match.
type MatrixSource interface {
	GetCandidateMatrix(ctx context.Context, candidateID string) (*models.CandidateMatrix, error)
	GetJobMatrix(ctx context.Context, jobID string) (*models.JobMatrix, error)
}

type MatchStore interface {
	Upsert(ctx context.Context, in store.MatchUpsert) (*models.Match, bool, error)
	Get(ctx context.Context, matchID string) (*models.Match, error)
	SetDecision(ctx context.Context, matchID string, decision models.Decision) (*models.Match, bool, error)
	TopForJob(ctx context.Context, jobID string, minScore int, decision models.Decision, limit int) ([]models.Match, error)
	Recipient(ctx context.Context, candidateID, jobID string) (*store.Recipient, error)
}

// MatchIndex is the optional search read-model.
type MatchIndex interface {
	Enabled() bool
	IndexMatch(ctx context.Context, match *models.Match) error
	TopMatches(ctx context.Context, q search.TopQuery) ([]models.Match, error)
}

type Service struct {
	matrices MatrixSource
	matches  MatchStore
	index    MatchIndex
	notifier notify.Notifier
	scorer   *Scorer
	obs      *observability.Observability
	logger   logger.Logger
}

func NewService(
	matrices MatrixSource,
	matches MatchStore,
	index MatchIndex,
	notifier notify.Notifier,
	scorer *Scorer,
	obs *observability.Observability,
	log logger.Logger,
) *Service {
	if scorer == nil {
		scorer = DefaultScorer()
	}
	return &Service{
		matrices: matrices,
		matches:  matches,
		index:    index,
		notifier: notifier,
		scorer:   scorer,
		obs:      obs,
		logger:   log.Named("matching"),
	}
}

// ComputeResult is a stored match plus the unrounded breakdown behind it.
type ComputeResult struct {
	Match     *models.Match  `json:"match"`
	Created   bool           `json:"created"`
	SubScores map[string]int `json:"subScores"`
}

// ComputeMatch scores the newest matrices of a candidate and a job and stores
// the result. Recomputing an existing pair refreshes it in place; only the
// first computation notifies the candidate.
func (s *Service) ComputeMatch(ctx context.Context, candidateID, jobID string) (res *ComputeResult, err error) {
	if strings.TrimSpace(candidateID) == "" || strings.TrimSpace(jobID) == "" {
		return nil, apperrors.NewInvalidInputError("candidateId and jobId are required")
	}

	ctx, span := s.obs.Tracer().Start(ctx, "matching.computeMatch", trace.WithAttributes(
		attribute.String("candidate.id", candidateID),
		attribute.String("job.id", jobID),
	))
	defer func() { observability.EndSpan(span, err) }()

	candidate, err := s.matrices.GetCandidateMatrix(ctx, candidateID)
	if err != nil {
		return nil, err
	}
	job, err := s.matrices.GetJobMatrix(ctx, jobID)
	if err != nil {
		return nil, err
	}

	scored := s.scorer.Score(candidate, job)
	match, created, err := s.matches.Upsert(ctx, store.MatchUpsert{
		CandidateID:       candidateID,
		JobID:             jobID,
		Score:             scored.Score,
		Evidence:          scored.Evidence,
		CandidateMatrixID: candidate.ID,
		JobMatrixID:       job.ID,
	})
	if err != nil {
		return nil, err
	}

	outcome := "refreshed"
	if created {
		outcome = "created"
	}
	metrics.MatchesComputed.WithLabelValues(outcome).Inc()
	metrics.MatchScore.Observe(float64(match.Score))
	span.SetAttributes(attribute.Int("match.score", match.Score), attribute.Bool("match.created", created))

	s.logger.Info("match computed", map[string]interface{}{
		"matchId":     match.ID,
		"candidateId": candidateID,
		"jobId":       jobID,
		"score":       match.Score,
		"created":     created,
	})

	s.reindex(ctx, match)
	if created {
		s.notifyCandidate(ctx, match, models.NotificationNewMatch,
			"New job match",
			func(title string) string { return fmt.Sprintf("You are a %d%% match for %s", match.Score, title) })
	}

	return &ComputeResult{Match: match, Created: created, SubScores: scored.SubScores}, nil
}

// ParseDecision accepts the verbs and the stored states for shortlisting and
// rejecting. Anything else, pending included, is INVALID_DECISION.
func ParseDecision(raw string) (models.Decision, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "shortlist", "shortlisted":
		return models.DecisionShortlisted, nil
	case "reject", "rejected":
		return models.DecisionRejected, nil
	default:
		return "", apperrors.NewInvalidDecisionError(raw)
	}
}

// DecideMatch records an employer decision. Repeating the current decision
// returns the match unchanged and sends nothing.
func (s *Service) DecideMatch(ctx context.Context, matchID, decision string) (m *models.Match, changed bool, err error) {
	d, err := ParseDecision(decision)
	if err != nil {
		return nil, false, err
	}

	ctx, span := s.obs.Tracer().Start(ctx, "matching.decideMatch", trace.WithAttributes(
		attribute.String("match.id", matchID),
		attribute.String("match.decision", string(d)),
	))
	defer func() { observability.EndSpan(span, err) }()

	m, changed, err = s.matches.SetDecision(ctx, matchID, d)
	if err != nil {
		return nil, false, err
	}
	metrics.MatchDecisions.WithLabelValues(string(d), strconv.FormatBool(changed)).Inc()

	if !changed {
		s.logger.Debug("decision already applied", map[string]interface{}{
			"matchId":  matchID,
			"decision": string(d),
		})
		return m, false, nil
	}

	s.logger.Info("match decision recorded", map[string]interface{}{
		"matchId":  matchID,
		"decision": string(d),
	})
	s.reindex(ctx, m)

	if d == models.DecisionShortlisted {
		s.notifyCandidate(ctx, m, models.NotificationMatchShortlisted,
			"You've been shortlisted",
			func(title string) string { return "Your profile was shortlisted for " + title })
	} else {
		s.notifyCandidate(ctx, m, models.NotificationMatchRejected,
			"Match update",
			func(title string) string { return "The employer decided not to move forward for " + title })
	}
	return m, true, nil
}

const defaultRankLimit = 20

// RankQuery selects stored matches for a job. Limit defaults to 20 and is
// capped at search.MaxPageSize whichever backend answers.
type RankQuery struct {
	JobID    string
	MinScore int
	Decision string
	Limit    int
}

// RankJobMatches lists the best stored matches for a job. The search index is
// preferred when enabled; PostgreSQL answers when it is not or when it fails.
func (s *Service) RankJobMatches(ctx context.Context, q RankQuery) ([]models.Match, string, error) {
	if strings.TrimSpace(q.JobID) == "" {
		return nil, "", apperrors.NewInvalidInputError("jobId is required")
	}
	decision, err := decisionFilter(q.Decision)
	if err != nil {
		return nil, "", err
	}
	if q.Limit <= 0 {
		q.Limit = defaultRankLimit
	}
	if q.Limit > search.MaxPageSize {
		q.Limit = search.MaxPageSize
	}

	if s.index != nil && s.index.Enabled() {
		matches, err := s.index.TopMatches(ctx, search.TopQuery{
			JobID:    q.JobID,
			MinScore: q.MinScore,
			Decision: decision,
			Limit:    q.Limit,
		})
		if err == nil {
			return matches, "elasticsearch", nil
		}
		s.logger.Warn("search ranking failed, falling back to postgres", map[string]interface{}{
			"jobId": q.JobID,
			"error": err.Error(),
		})
	}

	matches, err := s.matches.TopForJob(ctx, q.JobID, q.MinScore, decision, q.Limit)
	if err != nil {
		return nil, "", err
	}
	return matches, "postgres", nil
}

func decisionFilter(raw string) (models.Decision, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return "", nil
	case string(models.DecisionPending):
		return models.DecisionPending, nil
	}
	return ParseDecision(raw)
}

func (s *Service) reindex(ctx context.Context, m *models.Match) {
	if s.index == nil || !s.index.Enabled() {
		return
	}
	if err := s.index.IndexMatch(ctx, m); err != nil {
		s.logger.Warn("failed to index match", map[string]interface{}{
			"matchId": m.ID,
			"error":   err.Error(),
		})
	}
}

// notifyCandidate never fails the caller; an unknown recipient is logged.
func (s *Service) notifyCandidate(ctx context.Context, m *models.Match, kind, title string, body func(jobTitle string) string) {
	rcp, err := s.matches.Recipient(ctx, m.CandidateID, m.JobID)
	if err != nil {
		s.logger.Warn("no recipient for match notification", map[string]interface{}{
			"matchId": m.ID,
			"type":    kind,
			"error":   err.Error(),
		})
		return
	}

	s.notifier.Notify(ctx, models.Notification{
		UserID: rcp.UserID,
		Type:   kind,
		Title:  title,
		Body:   body(rcp.JobTitle),
		Data: map[string]interface{}{
			"matchId":   m.ID,
			"jobId":     m.JobID,
			"companyId": rcp.CompanyID,
			"score":     m.Score,
			"decision":  string(m.Decision),
		},
	})
}
