// internal/models/matrix.go
package models

import "time"

// EvidenceItem is a justification snippet attached to an extracted matrix field.
type EvidenceItem struct {
	Category string `json:"category"`
	Text     string `json:"text"`
	Source   string `json:"source,omitempty"`
}

type CandidateSkill struct {
	Name        string   `json:"name"`
	Years       *float64 `json:"years,omitempty"`
	Proficiency string   `json:"proficiency,omitempty"`
}

type RoleEntry struct {
	Title   string `json:"title"`
	Company string `json:"company,omitempty"`
	Months  int    `json:"months"`
}

type EducationRecord struct {
	Degree      string `json:"degree"`
	Field       string `json:"field,omitempty"`
	Institution string `json:"institution,omitempty"`
	Year        int    `json:"year,omitempty"`
}

type LanguageProficiency struct {
	Language string `json:"language"`
	Level    string `json:"level"`
}

// CandidateLocation holds where a candidate is willing to work.
type CandidateLocation struct {
	Countries []string `json:"countries"`
	Cities    []string `json:"cities"`
	Remote    bool     `json:"remote"`
}

// CandidateMatrix is the signal summary extracted from one CV file revision.
// Rows are immutable; a new CV produces a new matrix.
type CandidateMatrix struct {
	ID                   string                `json:"id"`
	CandidateID          string                `json:"candidateId"`
	CVFileID             string                `json:"cvFileId,omitempty"`
	Skills               []CandidateSkill      `json:"skills"`
	Roles                []RoleEntry           `json:"roles"`
	TotalYearsExperience float64               `json:"total_years_experience"`
	Domains              []string              `json:"domains"`
	Education            []EducationRecord     `json:"education"`
	Languages            []LanguageProficiency `json:"languages"`
	Location             CandidateLocation     `json:"location"`
	Confidence           *float64              `json:"confidence"`
	Evidence             []EvidenceItem        `json:"evidence"`
	CreatedAt            time.Time             `json:"createdAt"`
}

// JobSkill is a required or preferred skill. Weight defaults to 1 when zero.
type JobSkill struct {
	Name   string  `json:"name"`
	Weight float64 `json:"weight,omitempty"`
}

type JobLocation struct {
	Country string `json:"country,omitempty"`
	City    string `json:"city,omitempty"`
	Remote  bool   `json:"remote"`
}

// JobMatrix is the signal summary extracted from a job posting.
type JobMatrix struct {
	ID                 string         `json:"id"`
	JobID              string         `json:"jobId"`
	RequiredSkills     []JobSkill     `json:"required_skills"`
	PreferredSkills    []JobSkill     `json:"preferred_skills"`
	MinYearsExperience int            `json:"min_years_experience"`
	Domains            []string       `json:"domains"`
	Location           JobLocation    `json:"location"`
	ExperienceWeight   int            `json:"experience_weight"`
	LocationWeight     int            `json:"location_weight"`
	DomainWeight       int            `json:"domain_weight"`
	Evidence           []EvidenceItem `json:"evidence"`
	CreatedAt          time.Time      `json:"createdAt"`
}
