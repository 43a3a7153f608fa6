// internal/workers/matching/decide-match/models.go
package decidematch

type Input struct {
	MatchID  string `json:"matchId"`
	Decision string `json:"decision"` // shortlist | reject
}

type Output struct {
	MatchID     string `json:"matchId"`
	CandidateID string `json:"candidateId"`
	JobID       string `json:"jobId"`
	Decision    string `json:"decision"`
	Changed     bool   `json:"changed"`
	UpdatedAt   string `json:"updatedAt"` // ISO 8601
}
