package llm

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/tutor-cli/internal/model"
)

func TestExercisePrompt(t *testing.T) {
	p, err := ExercisePrompt(PromptInput{
		ConceptID:    "eq2",
		ConceptName:  "Two-step equations",
		Difficulty:   2,
		TargetErrors: []string{"sign_error", "inverse_operation"},
	})
	require.NoError(t, err)

	assert.Contains(t, p, "Target concept ID: eq2")
	assert.Contains(t, p, "Target concept description: Two-step equations")
	assert.Contains(t, p, "Difficulty level: 2 (1 = very easy, 3 = challenging)")
	assert.Contains(t, p, "Target misconceptions to address (if any):\nsign_error, inverse_operation\n")
	assert.Contains(t, p, `"concept": "eq2",`)
	assert.Contains(t, p, `"difficulty": 2,`)
	assert.Contains(t, p, "DO NOT include any text outside the JSON object.")
	assert.Contains(t, p, "You do NOT decide pedagogical strategy.")
}

func TestExercisePrompt_NoTargets(t *testing.T) {
	for _, targets := range [][]string{nil, {}} {
		p, err := ExercisePrompt(PromptInput{ConceptID: "eq1", ConceptName: "One-step", Difficulty: 1, TargetErrors: targets})
		require.NoError(t, err)
		assert.Contains(t, p, "Target misconceptions to address (if any):\nNone\n")
	}
}

func TestJudgePrompt(t *testing.T) {
	ex := model.Exercise{
		Concept:    "eq1",
		Difficulty: 1,
		Exercise:   "Solve x + 2 = 5.",
		Solution:   model.Solution{Steps: []string{"Subtract 2."}, FinalAnswer: "x = 3"},
	}
	p, err := JudgePrompt(ex)
	require.NoError(t, err)

	assert.Contains(t, p, "You are an expert mathematics education evaluator.")
	assert.Contains(t, p, `"overall_score": float`)

	start := strings.Index(p, "{\n  \"concept\"")
	require.GreaterOrEqual(t, start, 0, "exercise must be embedded as indented JSON")
	end := strings.Index(p[start:], "\n}\n")
	require.Greater(t, end, 0)

	var back model.Exercise
	require.NoError(t, json.Unmarshal([]byte(p[start:start+end+2]), &back))
	assert.Equal(t, ex, back)
}
