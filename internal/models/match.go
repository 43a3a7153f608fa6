// internal/models/match.go
package models

import "time"

type Decision string

const (
	DecisionPending     Decision = "pending"
	DecisionShortlisted Decision = "shortlisted"
	DecisionRejected    Decision = "rejected"
)

// Scoring axes reported in match evidence.
const (
	AxisSkills     = "skills"
	AxisExperience = "experience"
	AxisDomain     = "domain"
	AxisLocation   = "location"
	AxisConfidence = "confidence"
)

// MatchEvidence explains how one axis contributed to a match score.
type MatchEvidence struct {
	Axis     string   `json:"axis"`
	SubScore int      `json:"subScore"`
	Weight   float64  `json:"weight"`
	Matched  []string `json:"matched,omitempty"`
	Missing  []string `json:"missing,omitempty"`
	Detail   string   `json:"detail"`
}

// Match is the persisted compatibility between one candidate and one job.
// Version increases with every committed write of the row.
type Match struct {
	ID                string          `json:"id"`
	CandidateID       string          `json:"candidateId"`
	JobID             string          `json:"jobId"`
	Score             int             `json:"score"`
	Evidence          []MatchEvidence `json:"evidence"`
	Decision          Decision        `json:"decision"`
	CandidateMatrixID string          `json:"candidateMatrixId"`
	JobMatrixID       string          `json:"jobMatrixId"`
	GeneratedAt       time.Time       `json:"generatedAt"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
	Version           int64           `json:"version"`
}
