// pkg/registry/schema.go
package registry

import (
	apperrors "job-matcher/internal/common/errors"
)

// Category groups task types by the engine that serves them.
type Category string

const (
	CategoryMatching      Category = "matching"
	CategoryPipeline      Category = "pipeline"
	CategoryCommunication Category = "communication"
)

func (c Category) Known() bool {
	switch c {
	case CategoryMatching, CategoryPipeline, CategoryCommunication:
		return true
	}
	return false
}

// VariableType is the JSON type of a process variable.
type VariableType string

const (
	TypeString  VariableType = "string"
	TypeInteger VariableType = "integer"
	TypeBoolean VariableType = "boolean"
	TypeArray   VariableType = "array"
	TypeObject  VariableType = "object"
)

func (t VariableType) Known() bool {
	switch t {
	case TypeString, TypeInteger, TypeBoolean, TypeArray, TypeObject:
		return true
	}
	return false
}

// ActivityRegistry is the catalog of BPMN task types the worker manager serves.
type ActivityRegistry struct {
	Version    string     `json:"version"`
	Activities []Activity `json:"activities"`
}

// Activity describes one task type: the variables a job must carry, the
// variables it completes with and the BPMN error codes it may throw.
type Activity struct {
	TaskType    string                `json:"taskType"`
	DisplayName string                `json:"displayName"`
	Description string                `json:"description"`
	Category    Category              `json:"category"`
	Input       Variables             `json:"input"`
	Output      Variables             `json:"output"`
	ErrorCodes  []apperrors.ErrorCode `json:"errorCodes"`
	Timeout     string                `json:"timeout"`
	Retries     int                   `json:"retries"`
}

// Variables declares the process variables exchanged with a task.
// Variables not declared here pass through untouched.
type Variables struct {
	Required   []string            `json:"required,omitempty"`
	Properties map[string]Variable `json:"properties"`
}

type Variable struct {
	Type      VariableType `json:"type"`
	MinLength *int         `json:"minLength,omitempty"`
	Minimum   *int         `json:"minimum,omitempty"`
	Maximum   *int         `json:"maximum,omitempty"`
	Enum      []string     `json:"enum,omitempty"`
	Items     *Variable    `json:"items,omitempty"`
}

// JSONSchema renders the declaration as a JSON Schema object for the
// document validator.
func (v Variables) JSONSchema() map[string]interface{} {
	props := make(map[string]interface{}, len(v.Properties))
	for name, p := range v.Properties {
		props[name] = p.jsonSchema()
	}
	schema := map[string]interface{}{
		"type":       string(TypeObject),
		"properties": props,
	}
	if len(v.Required) > 0 {
		required := make([]interface{}, len(v.Required))
		for i, name := range v.Required {
			required[i] = name
		}
		schema["required"] = required
	}
	return schema
}

func (p Variable) jsonSchema() map[string]interface{} {
	s := map[string]interface{}{"type": string(p.Type)}
	if p.MinLength != nil {
		s["minLength"] = *p.MinLength
	}
	if p.Minimum != nil {
		s["minimum"] = *p.Minimum
	}
	if p.Maximum != nil {
		s["maximum"] = *p.Maximum
	}
	if len(p.Enum) > 0 {
		enum := make([]interface{}, len(p.Enum))
		for i, e := range p.Enum {
			enum[i] = e
		}
		s["enum"] = enum
	}
	if p.Items != nil {
		s["items"] = p.Items.jsonSchema()
	}
	return s
}
