package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"job-matcher/internal/common/config"
	"job-matcher/internal/models"
)

func configWith(skillWeight, ratio float64) config.MatchingConfig {
	return config.MatchingConfig{SkillWeight: skillWeight, RequiredPreferredRatio: ratio}
}

func ptr(v float64) *float64 { return &v }

func berlinJob() *models.JobMatrix {
	return &models.JobMatrix{
		ID:                 "jm-1",
		JobID:              "job-1",
		RequiredSkills:     []models.JobSkill{{Name: "Go"}, {Name: "SQL"}},
		MinYearsExperience: 5,
		Domains:            []string{"fintech"},
		Location:           models.JobLocation{Country: "Germany", City: "Berlin"},
		ExperienceWeight:   3,
		DomainWeight:       1,
		LocationWeight:     1,
	}
}

func strongCandidate() *models.CandidateMatrix {
	return &models.CandidateMatrix{
		ID:                   "cm-1",
		CandidateID:          "cand-1",
		Skills:               []models.CandidateSkill{{Name: "Go"}, {Name: "SQL"}, {Name: "Kubernetes"}},
		TotalYearsExperience: 7,
		Domains:              []string{"fintech"},
		Location:             models.CandidateLocation{Countries: []string{"Germany"}, Cities: []string{"Berlin"}},
		Confidence:           ptr(90),
	}
}

func evidenceFor(t *testing.T, res Result, axisName string) models.MatchEvidence {
	t.Helper()
	for _, e := range res.Evidence {
		if e.Axis == axisName {
			return e
		}
	}
	require.Failf(t, "missing evidence", "axis %s", axisName)
	return models.MatchEvidence{}
}

func TestScore_FullMatchDampenedByConfidence(t *testing.T) {
	res := DefaultScorer().Score(strongCandidate(), berlinJob())

	assert.Equal(t, 100, res.SubScores[models.AxisSkills])
	assert.Equal(t, 100, res.SubScores[models.AxisExperience])
	assert.Equal(t, 100, res.SubScores[models.AxisDomain])
	assert.Equal(t, 100, res.SubScores[models.AxisLocation])
	assert.Equal(t, 90, res.Score)
	assert.Len(t, res.Evidence, 5)
}

func TestScore_PartialMatchScoresLower(t *testing.T) {
	c := &models.CandidateMatrix{
		Skills:               []models.CandidateSkill{{Name: "Go"}},
		TotalYearsExperience: 2,
		Location:             models.CandidateLocation{Countries: []string{"Germany"}, Cities: []string{"Munich"}},
		Confidence:           ptr(90),
	}

	res := DefaultScorer().Score(c, berlinJob())

	assert.Equal(t, 50, res.SubScores[models.AxisSkills])
	assert.Equal(t, 40, res.SubScores[models.AxisExperience])
	assert.Equal(t, 0, res.SubScores[models.AxisDomain])
	assert.Equal(t, 50, res.SubScores[models.AxisLocation])
	// 0.5*50 + 0.5*(3*40 + 0 + 50)/5 = 42, then *0.9
	assert.Equal(t, 38, res.Score)
	assert.Less(t, res.Score, 90)

	skills := evidenceFor(t, res, models.AxisSkills)
	assert.Equal(t, []string{"Go"}, skills.Matched)
	assert.Equal(t, []string{"SQL"}, skills.Missing)
	assert.InDelta(t, 0.5, skills.Weight, 1e-9)

	domain := evidenceFor(t, res, models.AxisDomain)
	assert.Equal(t, []string{"fintech"}, domain.Missing)
	assert.InDelta(t, 0.1, domain.Weight, 1e-9)
}

func TestScore_SkillNamesAreCaseAndSpaceInsensitive(t *testing.T) {
	c := strongCandidate()
	c.Skills = []models.CandidateSkill{{Name: "  go "}, {Name: "sql"}}

	res := DefaultScorer().Score(c, berlinJob())
	assert.Equal(t, 100, res.SubScores[models.AxisSkills])
}

func TestScore_PreferredSkillsCountHalfAsMuchAsRequired(t *testing.T) {
	j := berlinJob()
	j.PreferredSkills = []models.JobSkill{{Name: "Kafka"}}
	c := strongCandidate()

	res := DefaultScorer().Score(c, j)
	// (2*100 + 0) / 3
	assert.Equal(t, 67, res.SubScores[models.AxisSkills])

	c.Skills = append(c.Skills, models.CandidateSkill{Name: "kafka"})
	res = DefaultScorer().Score(c, j)
	assert.Equal(t, 100, res.SubScores[models.AxisSkills])
}

func TestScore_WeightedRequiredSkills(t *testing.T) {
	j := berlinJob()
	j.RequiredSkills = []models.JobSkill{{Name: "Go", Weight: 3}, {Name: "SQL", Weight: 1}}
	c := strongCandidate()
	c.Skills = []models.CandidateSkill{{Name: "Go"}}

	res := DefaultScorer().Score(c, j)
	assert.Equal(t, 75, res.SubScores[models.AxisSkills])
}

func TestScore_EmptyRequiredSkillsIsFullSkillScore(t *testing.T) {
	j := berlinJob()
	j.RequiredSkills = nil
	c := strongCandidate()
	c.Skills = nil

	res := DefaultScorer().Score(c, j)
	assert.Equal(t, 100, res.SubScores[models.AxisSkills])
}

func TestScore_ZeroWeightsUseSkillScoreAlone(t *testing.T) {
	j := berlinJob()
	j.ExperienceWeight, j.DomainWeight, j.LocationWeight = 0, 0, 0
	c := &models.CandidateMatrix{Skills: []models.CandidateSkill{{Name: "Go"}}}

	res := DefaultScorer().Score(c, j)
	assert.Equal(t, 50, res.Score)
	assert.Equal(t, 1.0, evidenceFor(t, res, models.AxisSkills).Weight)
}

func TestScore_NegativeWeightsTreatedAsZero(t *testing.T) {
	j := berlinJob()
	j.ExperienceWeight, j.DomainWeight, j.LocationWeight = -4, -1, -2
	c := &models.CandidateMatrix{Skills: []models.CandidateSkill{{Name: "Go"}, {Name: "SQL"}}}

	res := DefaultScorer().Score(c, j)
	assert.Equal(t, 100, res.Score)
}

func TestScore_Confidence(t *testing.T) {
	tests := []struct {
		name       string
		confidence *float64
		want       int
	}{
		{"null means no dampening", nil, 100},
		{"zero confidence zeroes the score", ptr(0), 0},
		{"above 100 never scales up", ptr(150), 100},
		{"negative clamps to zero", ptr(-20), 0},
		{"half", ptr(50), 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := strongCandidate()
			c.Confidence = tt.confidence
			assert.Equal(t, tt.want, DefaultScorer().Score(c, berlinJob()).Score)
		})
	}
}

func TestScore_Location(t *testing.T) {
	tests := []struct {
		name string
		job  models.JobLocation
		cand models.CandidateLocation
		want int
	}{
		{"no requirement", models.JobLocation{}, models.CandidateLocation{}, 100},
		{"remote both", models.JobLocation{Remote: true, Country: "Germany"}, models.CandidateLocation{Remote: true}, 100},
		{"same city", models.JobLocation{City: "Berlin"}, models.CandidateLocation{Cities: []string{"berlin"}}, 100},
		{"country only job", models.JobLocation{Country: "Germany"}, models.CandidateLocation{Countries: []string{"Germany"}}, 100},
		{"same country other city", models.JobLocation{Country: "Germany", City: "Berlin"}, models.CandidateLocation{Countries: []string{"Germany"}, Cities: []string{"Munich"}}, 50},
		{"elsewhere", models.JobLocation{Country: "Germany", City: "Berlin"}, models.CandidateLocation{Countries: []string{"France"}}, 0},
		{"remote job, onsite candidate elsewhere", models.JobLocation{Remote: true}, models.CandidateLocation{Countries: []string{"France"}}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j := berlinJob()
			j.Location = tt.job
			c := strongCandidate()
			c.Location = tt.cand
			assert.Equal(t, tt.want, DefaultScorer().Score(c, j).SubScores[models.AxisLocation])
		})
	}
}

func TestScore_MonotonicInSkillOverlap(t *testing.T) {
	j := berlinJob()
	j.RequiredSkills = []models.JobSkill{{Name: "Go"}, {Name: "SQL"}, {Name: "Kafka"}, {Name: "Redis"}}
	c := strongCandidate()
	c.Skills = nil

	prev := -1
	for _, sk := range []string{"Go", "SQL", "Kafka", "Redis"} {
		c.Skills = append(c.Skills, models.CandidateSkill{Name: sk})
		score := DefaultScorer().Score(c, j).Score
		assert.GreaterOrEqual(t, score, prev)
		prev = score
	}
}

func TestScore_AlwaysWithinBounds(t *testing.T) {
	jobs := []*models.JobMatrix{
		{},
		berlinJob(),
		{RequiredSkills: []models.JobSkill{{Name: "Go"}}, MinYearsExperience: 50, ExperienceWeight: 100},
		{PreferredSkills: []models.JobSkill{{Name: "Go"}}, DomainWeight: 1},
	}
	candidates := []*models.CandidateMatrix{
		{},
		strongCandidate(),
		{TotalYearsExperience: -3, Confidence: ptr(1000)},
	}

	for _, j := range jobs {
		for _, c := range candidates {
			res := DefaultScorer().Score(c, j)
			assert.GreaterOrEqual(t, res.Score, 0)
			assert.LessOrEqual(t, res.Score, 100)
		}
	}
}

func TestNewScorer_FallsBackToDefaults(t *testing.T) {
	s := NewScorer(configWith(1.5, 0))
	assert.Equal(t, DefaultSkillWeight, s.skillWeight)
	assert.Equal(t, DefaultRequiredPreferredRatio, s.ratio)

	s = NewScorer(configWith(0.7, 3))
	assert.Equal(t, 0.7, s.skillWeight)
	assert.Equal(t, 3.0, s.ratio)
}
