// pkg/registry/registry.go
package registry

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	apperrors "job-matcher/internal/common/errors"
	"job-matcher/internal/common/validation"
)

//go:embed activities.json
var builtin []byte

// Default returns the catalog of task types this module implements.
func Default() (*ActivityRegistry, error) {
	return parse(builtin)
}

func LoadRegistry(path string) (*ActivityRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parse(data)
}

func parse(data []byte) (*ActivityRegistry, error) {
	var reg ActivityRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse activity registry: %w", err)
	}
	return &reg, nil
}

func (r *ActivityRegistry) Find(taskType string) (*Activity, bool) {
	for i := range r.Activities {
		if r.Activities[i].TaskType == taskType {
			return &r.Activities[i], true
		}
	}
	return nil, false
}

// Validate checks the catalog itself: unique task types, parseable timeouts,
// known error codes and variable declarations that name their required fields.
func (r *ActivityRegistry) Validate() []string {
	var problems []string
	seen := map[string]bool{}
	for i, a := range r.Activities {
		if a.TaskType == "" {
			problems = append(problems, fmt.Sprintf("activity #%d has no taskType", i+1))
			continue
		}
		if seen[a.TaskType] {
			problems = append(problems, fmt.Sprintf("duplicate taskType %q", a.TaskType))
		}
		seen[a.TaskType] = true

		if !a.Category.Known() {
			problems = append(problems, fmt.Sprintf("%s: unknown category %q", a.TaskType, a.Category))
		}
		if a.Timeout != "" {
			if _, err := time.ParseDuration(a.Timeout); err != nil {
				problems = append(problems, fmt.Sprintf("%s: bad timeout %q", a.TaskType, a.Timeout))
			}
		}
		for _, code := range a.ErrorCodes {
			if apperrors.GetErrorCategory(code) == "OTHER" {
				problems = append(problems, fmt.Sprintf("%s: unknown error code %s", a.TaskType, code))
			}
		}
		problems = append(problems, a.Input.problems(a.TaskType+" input")...)
		problems = append(problems, a.Output.problems(a.TaskType+" output")...)
	}
	return problems
}

func (v Variables) problems(where string) []string {
	var out []string
	for _, name := range v.Required {
		if _, ok := v.Properties[name]; !ok {
			out = append(out, fmt.Sprintf("%s: required variable %s is not declared", where, name))
		}
	}
	names := make([]string, 0, len(v.Properties))
	for name := range v.Properties {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		p := v.Properties[name]
		if !p.Type.Known() {
			out = append(out, fmt.Sprintf("%s: variable %s has unknown type %q", where, name, p.Type))
		}
		if p.Items != nil && p.Type != TypeArray {
			out = append(out, fmt.Sprintf("%s: variable %s declares items but is not an array", where, name))
		}
	}
	return out
}

// ValidateInput checks job variables against the activity's input
// declaration. Activities that declare no input accept anything.
func (a *Activity) ValidateInput(variables map[string]interface{}) error {
	if a == nil || len(a.Input.Properties) == 0 {
		return nil
	}
	res, err := validation.ValidateDocument(a.Input.JSONSchema(), variables)
	if err != nil {
		return apperrors.NewInvalidInputError(err.Error())
	}
	if !res.Valid {
		return apperrors.NewInvalidInputError(strings.Join(res.Messages(), "; "))
	}
	return nil
}
