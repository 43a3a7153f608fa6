package validation

import (
	"embed"
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schemas/*.json
var schemaFS embed.FS

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Messages flattens the errors into "field: message" strings.
func (r *ValidationResult) Messages() []string {
	out := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		out = append(out, fmt.Sprintf("%s: %s", e.Field, e.Message))
	}
	return out
}

// MatrixValidator checks raw matrix JSON produced by the external generator.
type MatrixValidator struct {
	candidate *gojsonschema.Schema
	job       *gojsonschema.Schema
}

func NewMatrixValidator() (*MatrixValidator, error) {
	candidate, err := loadSchema("schemas/candidate_matrix.json")
	if err != nil {
		return nil, err
	}
	job, err := loadSchema("schemas/job_matrix.json")
	if err != nil {
		return nil, err
	}
	return &MatrixValidator{candidate: candidate, job: job}, nil
}

// MustMatrixValidator panics if the embedded schemas do not compile.
func MustMatrixValidator() *MatrixValidator {
	v, err := NewMatrixValidator()
	if err != nil {
		panic(err)
	}
	return v
}

func (v *MatrixValidator) ValidateCandidate(raw []byte) (*ValidationResult, error) {
	return validate(v.candidate, gojsonschema.NewBytesLoader(raw))
}

func (v *MatrixValidator) ValidateJob(raw []byte) (*ValidationResult, error) {
	return validate(v.job, gojsonschema.NewBytesLoader(raw))
}

// ValidateDocument checks a decoded document against an inline schema, as
// used for activity input schemas in the registry.
func ValidateDocument(schema map[string]interface{}, doc interface{}) (*ValidationResult, error) {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(schema))
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return validate(compiled, gojsonschema.NewGoLoader(doc))
}

func loadSchema(name string) (*gojsonschema.Schema, error) {
	raw, err := schemaFS.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("read schema %s: %w", name, err)
	}
	schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", name, err)
	}
	return schema, nil
}

func validate(schema *gojsonschema.Schema, doc gojsonschema.JSONLoader) (*ValidationResult, error) {
	result, err := schema.Validate(doc)
	if err != nil {
		// not JSON at all
		return nil, fmt.Errorf("validate document: %w", err)
	}

	out := &ValidationResult{Valid: result.Valid()}
	for _, e := range result.Errors() {
		out.Errors = append(out.Errors, ValidationError{
			Field:   e.Field(),
			Message: e.Description(),
			Code:    e.Type(),
		})
	}
	return out, nil
}
