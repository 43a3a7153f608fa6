// internal/workers/matching/rank-job-matches/models.go
package rankjobmatches

type Input struct {
	JobID    string `json:"jobId"`
	MinScore int    `json:"minScore"`
	Decision string `json:"decision"`
	Limit    int    `json:"limit"`
}

type RankedMatch struct {
	MatchID     string `json:"matchId"`
	CandidateID string `json:"candidateId"`
	Score       int    `json:"score"`
	Decision    string `json:"decision"`
}

type Output struct {
	JobID   string        `json:"jobId"`
	Matches []RankedMatch `json:"matches"`
	Total   int           `json:"total"`
	Source  string        `json:"source"` // elasticsearch | postgres
}
