// internal/workers/matching/compute-match/models.go
package computematch

import "job-matcher/internal/models"

type Input struct {
	CandidateID string `json:"candidateId"`
	JobID       string `json:"jobId"`
}

type Output struct {
	MatchID     string                 `json:"matchId"`
	Score       int                    `json:"score"`
	Decision    string                 `json:"decision"`
	Created     bool                   `json:"created"`
	SubScores   map[string]int         `json:"subScores"`
	Evidence    []models.MatchEvidence `json:"evidence"`
	GeneratedAt string                 `json:"generatedAt"` // ISO 8601
}
