package registry

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "job-matcher/internal/common/errors"
)

func TestDefault_IsValid(t *testing.T) {
	reg, err := Default()
	require.NoError(t, err)
	assert.Len(t, reg.Activities, 9)
	assert.Empty(t, reg.Validate())

	for _, taskType := range []string{
		"compute-match", "decide-match", "rank-job-matches",
		"list-stages", "mutate-stages", "create-application",
		"move-application", "get-application-history", "send-notification",
	} {
		_, ok := reg.Find(taskType)
		assert.True(t, ok, taskType)
	}
}

func TestActivity_ValidateInput(t *testing.T) {
	reg, err := Default()
	require.NoError(t, err)
	move, ok := reg.Find("move-application")
	require.True(t, ok)

	assert.NoError(t, move.ValidateInput(map[string]interface{}{
		"applicationId": "app-1",
		"targetStageId": "st-2",
		"processVar":    "ignored",
	}))

	err = move.ValidateInput(map[string]interface{}{"applicationId": "app-1"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
	assert.Contains(t, err.Error(), "targetStageId")
}

func TestActivity_ValidateInputEnforcesDeclaredBounds(t *testing.T) {
	reg, err := Default()
	require.NoError(t, err)
	rank, ok := reg.Find("rank-job-matches")
	require.True(t, ok)

	assert.NoError(t, rank.ValidateInput(map[string]interface{}{"jobId": "job-1", "decision": "shortlisted", "limit": 100}))

	err = rank.ValidateInput(map[string]interface{}{"jobId": "job-1", "decision": "maybe"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decision")

	err = rank.ValidateInput(map[string]interface{}{"jobId": "job-1", "limit": 101})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "limit")
}

func TestVariables_JSONSchema(t *testing.T) {
	one := 1
	v := Variables{
		Required: []string{"companyId"},
		Properties: map[string]Variable{
			"companyId":       {Type: TypeString, MinLength: &one},
			"orderedStageIds": {Type: TypeArray, Items: &Variable{Type: TypeString}},
		},
	}

	schema := v.JSONSchema()

	assert.Equal(t, "object", schema["type"])
	assert.Equal(t, []interface{}{"companyId"}, schema["required"])
	props := schema["properties"].(map[string]interface{})
	assert.Equal(t, map[string]interface{}{"type": "string", "minLength": 1}, props["companyId"])
	assert.Equal(t, map[string]interface{}{
		"type":  "array",
		"items": map[string]interface{}{"type": "string"},
	}, props["orderedStageIds"])
}

func TestDefault_CategoriesFollowTaskPackages(t *testing.T) {
	reg, err := Default()
	require.NoError(t, err)

	byCategory := map[Category][]string{}
	for _, a := range reg.Activities {
		byCategory[a.Category] = append(byCategory[a.Category], a.TaskType)
	}
	assert.Len(t, byCategory[CategoryMatching], 3)
	assert.Len(t, byCategory[CategoryPipeline], 5)
	assert.Equal(t, []string{"send-notification"}, byCategory[CategoryCommunication])
}

func TestActivityRegistry_ValidateReportsProblems(t *testing.T) {
	reg := &ActivityRegistry{Activities: []Activity{
		{TaskType: "x", Category: CategoryMatching, Timeout: "soon"},
		{TaskType: "x", Category: CategoryPipeline, ErrorCodes: []apperrors.ErrorCode{"WHATEVER"}},
		{},
		{
			TaskType: "y",
			Category: "billing",
			Input: Variables{
				Required:   []string{"jobId"},
				Properties: map[string]Variable{"limit": {Type: "float"}, "ids": {Type: TypeString, Items: &Variable{Type: TypeString}}},
			},
		},
	}}

	problems := reg.Validate()

	assert.Equal(t, []string{
		`x: bad timeout "soon"`,
		`duplicate taskType "x"`,
		"x: unknown error code WHATEVER",
		"activity #3 has no taskType",
		`y: unknown category "billing"`,
		"y input: required variable jobId is not declared",
		"y input: variable ids declares items but is not an array",
		`y input: variable limit has unknown type "float"`,
	}, problems)
}

func TestLoadRegistry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"version":"2","activities":[{"taskType":"a","category":"pipeline"}]}`), 0o600))

	reg, err := LoadRegistry(path)
	require.NoError(t, err)
	assert.Equal(t, "2", reg.Version)
	assert.Empty(t, reg.Validate())

	var nilActivity *Activity
	assert.NoError(t, nilActivity.ValidateInput(nil))
}
