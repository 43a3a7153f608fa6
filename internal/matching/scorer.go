// Package matching scores candidates against jobs and persists the result.
package matching

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"job-matcher/internal/common/config"
	"job-matcher/internal/models"
)

const (
	DefaultSkillWeight            = 0.5
	DefaultRequiredPreferredRatio = 2.0
)

// Result is the outcome of scoring one candidate against one job.
type Result struct {
	Score     int                    `json:"score"`
	SubScores map[string]int         `json:"subScores"`
	Evidence  []models.MatchEvidence `json:"evidence"`
}

// Scorer combines skills, experience, domain and location into one score.
// It holds no state beyond its weights and is safe for concurrent use.
type Scorer struct {
	skillWeight float64
	ratio       float64
}

func NewScorer(cfg config.MatchingConfig) *Scorer {
	s := &Scorer{skillWeight: cfg.SkillWeight, ratio: cfg.RequiredPreferredRatio}
	if s.skillWeight < 0 || s.skillWeight > 1 {
		s.skillWeight = DefaultSkillWeight
	}
	if s.ratio <= 0 {
		s.ratio = DefaultRequiredPreferredRatio
	}
	return s
}

// DefaultScorer uses the baseline skill weight of 0.5 and a 2:1 required to
// preferred ratio.
func DefaultScorer() *Scorer {
	return &Scorer{skillWeight: DefaultSkillWeight, ratio: DefaultRequiredPreferredRatio}
}

// axis is an unrounded sub-score with its evidence.
type axis struct {
	score   float64
	matched []string
	missing []string
	detail  string
}

// combine returns the effective weights of skills, experience, domain and
// location. They always sum to 1. When the job declares no positive weight
// the skill axis carries everything.
func (s *Scorer) combine(j *models.JobMatrix) [4]float64 {
	exp := nonNegative(j.ExperienceWeight)
	dom := nonNegative(j.DomainWeight)
	loc := nonNegative(j.LocationWeight)
	sum := exp + dom + loc
	if sum == 0 {
		return [4]float64{1, 0, 0, 0}
	}
	rest := 1 - s.skillWeight
	return [4]float64{s.skillWeight, rest * exp / sum, rest * dom / sum, rest * loc / sum}
}

func (s *Scorer) Score(c *models.CandidateMatrix, j *models.JobMatrix) Result {
	skills := s.skillAxis(c, j)
	experience := experienceAxis(c, j)
	domain := domainAxis(c, j)
	location := locationAxis(c, j)

	weights := s.combine(j)
	combined := weights[0]*skills.score +
		weights[1]*experience.score +
		weights[2]*domain.score +
		weights[3]*location.score

	confidence := confidenceFactor(c.Confidence)
	final := clamp(combined*confidence/100, 0, 100)
	score := int(math.Round(final))

	res := Result{
		Score: score,
		SubScores: map[string]int{
			models.AxisSkills:     roundScore(skills.score),
			models.AxisExperience: roundScore(experience.score),
			models.AxisDomain:     roundScore(domain.score),
			models.AxisLocation:   roundScore(location.score),
			models.AxisConfidence: roundScore(confidence),
		},
	}
	res.Evidence = []models.MatchEvidence{
		evidence(models.AxisSkills, skills, weights[0]),
		evidence(models.AxisExperience, experience, weights[1]),
		evidence(models.AxisDomain, domain, weights[2]),
		evidence(models.AxisLocation, location, weights[3]),
		{
			Axis:     models.AxisConfidence,
			SubScore: roundScore(confidence),
			Weight:   confidence / 100,
			Detail:   confidenceDetail(c.Confidence, confidence),
		},
	}
	return res
}

func (s *Scorer) skillAxis(c *models.CandidateMatrix, j *models.JobMatrix) axis {
	have := make(map[string]bool, len(c.Skills))
	for _, sk := range c.Skills {
		have[normalize(sk.Name)] = true
	}

	reqCoverage, reqMatched, reqMissing, reqCount := coverage(j.RequiredSkills, have)
	if reqCount == 0 {
		return axis{score: 100, detail: "job lists no required skills"}
	}

	a := axis{matched: reqMatched, missing: reqMissing}
	prefCoverage, prefMatched, prefMissing, prefCount := coverage(j.PreferredSkills, have)
	if prefCount == 0 {
		a.score = reqCoverage
		a.detail = fmt.Sprintf("%d of %d required skills", len(reqMatched), reqCount)
		return a
	}

	a.score = (s.ratio*reqCoverage + prefCoverage) / (s.ratio + 1)
	a.matched = append(a.matched, prefMatched...)
	a.missing = append(a.missing, prefMissing...)
	a.detail = fmt.Sprintf("%d of %d required skills, %d of %d preferred skills",
		len(reqMatched), reqCount, len(prefMatched), prefCount)
	return a
}

// coverage returns the weighted share of skills the candidate has, in [0,100].
// Duplicate names count once; weights of zero or less count as 1.
func coverage(skills []models.JobSkill, have map[string]bool) (float64, []string, []string, int) {
	seen := map[string]bool{}
	var total, hit float64
	var matched, missing []string
	for _, sk := range skills {
		name := normalize(sk.Name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		w := sk.Weight
		if w <= 0 {
			w = 1
		}
		total += w
		if have[name] {
			hit += w
			matched = append(matched, strings.TrimSpace(sk.Name))
		} else {
			missing = append(missing, strings.TrimSpace(sk.Name))
		}
	}
	if total == 0 {
		return 100, nil, nil, 0
	}
	return hit / total * 100, matched, missing, len(seen)
}

func experienceAxis(c *models.CandidateMatrix, j *models.JobMatrix) axis {
	if j.MinYearsExperience <= 0 {
		return axis{score: 100, detail: "job sets no minimum experience"}
	}
	years := math.Max(c.TotalYearsExperience, 0)
	ratio := math.Min(years/float64(j.MinYearsExperience), 1)
	return axis{
		score:  ratio * 100,
		detail: fmt.Sprintf("%g of %d required years", years, j.MinYearsExperience),
	}
}

func domainAxis(c *models.CandidateMatrix, j *models.JobMatrix) axis {
	have := make(map[string]bool, len(c.Domains))
	for _, d := range c.Domains {
		have[normalize(d)] = true
	}

	seen := map[string]bool{}
	var matched, missing []string
	for _, d := range j.Domains {
		n := normalize(d)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		if have[n] {
			matched = append(matched, strings.TrimSpace(d))
		} else {
			missing = append(missing, strings.TrimSpace(d))
		}
	}
	if len(seen) == 0 {
		return axis{score: 100, detail: "job lists no domains"}
	}
	return axis{
		score:   float64(len(matched)) / float64(len(seen)) * 100,
		matched: matched,
		missing: missing,
		detail:  fmt.Sprintf("%d of %d domains", len(matched), len(seen)),
	}
}

func locationAxis(c *models.CandidateMatrix, j *models.JobMatrix) axis {
	jobCity := normalize(j.Location.City)
	jobCountry := normalize(j.Location.Country)

	if jobCity == "" && jobCountry == "" && !j.Location.Remote {
		return axis{score: 100, detail: "job has no location requirement"}
	}
	if j.Location.Remote && c.Location.Remote {
		return axis{score: 100, matched: []string{"remote"}, detail: "remote job, candidate open to remote"}
	}

	inCity := jobCity != "" && containsNormalized(c.Location.Cities, jobCity)
	inCountry := jobCountry != "" && containsNormalized(c.Location.Countries, jobCountry)
	want := strings.TrimSpace(strings.Join(nonEmpty(j.Location.City, j.Location.Country), ", "))

	switch {
	case inCity:
		return axis{score: 100, matched: []string{strings.TrimSpace(j.Location.City)}, detail: "same city"}
	case jobCity == "" && inCountry:
		return axis{score: 100, matched: []string{strings.TrimSpace(j.Location.Country)}, detail: "same country"}
	case inCountry:
		return axis{score: 50, matched: []string{strings.TrimSpace(j.Location.Country)},
			missing: []string{strings.TrimSpace(j.Location.City)}, detail: "same country, different city"}
	default:
		var missing []string
		if want != "" {
			missing = []string{want}
		}
		if j.Location.Remote {
			missing = append(missing, "remote")
		}
		return axis{score: 0, missing: missing, detail: "no location overlap"}
	}
}

// confidenceFactor maps a nullable model confidence onto [0,100]; null means
// no dampening.
func confidenceFactor(conf *float64) float64 {
	if conf == nil {
		return 100
	}
	return clamp(*conf, 0, 100)
}

func confidenceDetail(raw *float64, applied float64) string {
	if raw == nil {
		return "no confidence reported, score not dampened"
	}
	return fmt.Sprintf("score scaled by %g%%", applied)
}

func evidence(name string, a axis, weight float64) models.MatchEvidence {
	sort.Strings(a.matched)
	sort.Strings(a.missing)
	return models.MatchEvidence{
		Axis:     name,
		SubScore: roundScore(a.score),
		Weight:   weight,
		Matched:  a.matched,
		Missing:  a.missing,
		Detail:   a.detail,
	}
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func containsNormalized(list []string, want string) bool {
	for _, v := range list {
		if normalize(v) == want {
			return true
		}
	}
	return false
}

func nonEmpty(values ...string) []string {
	var out []string
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}

func nonNegative(w int) float64 {
	if w < 0 {
		return 0
	}
	return float64(w)
}

func roundScore(v float64) int {
	return int(math.Round(clamp(v, 0, 100)))
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
