package verifier

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/tutor-cli/internal/apperr"
	"github.com/sells-group/tutor-cli/internal/graph"
	"github.com/sells-group/tutor-cli/internal/model"
)

func testVerifier(t *testing.T) *Verifier {
	t.Helper()
	g, err := graph.New([]model.Concept{
		{ID: "eq1", Name: "One-step equations", CommonErrors: []string{"sign_error", "inverse_operation"}},
		{ID: "eq2", Name: "Two-step equations", Prerequisites: []string{"eq1"}, CommonErrors: []string{"order_of_operations"}},
	})
	require.NoError(t, err)
	return New(g)
}

// exerciseJSON builds a schema-complete exercise and lets a test mutate it.
func exerciseJSON(t *testing.T, mutate func(doc map[string]any)) string {
	t.Helper()
	doc := map[string]any{
		"concept":    "eq1",
		"difficulty": 2,
		"exercise":   "Solve x + 4 = 7.",
		"solution": map[string]any{
			"steps":        []any{"Subtract 4 from both sides.", "x = 3"},
			"final_answer": "x = 3",
		},
		"pedagogical_feedback": "Undo the addition with the inverse operation.",
	}
	if mutate != nil {
		mutate(doc)
	}
	b, err := json.Marshal(doc)
	require.NoError(t, err)
	return string(b)
}

func TestVerify_ScenarioValid(t *testing.T) {
	raw := `{"concept":"eq1","difficulty":2,"exercise":"...","solution":{"steps":["s1"],"final_answer":"x = 3"},"pedagogical_feedback":"..."}`
	res := testVerifier(t).Verify(raw, "eq1")

	assert.True(t, res.Valid)
	assert.Empty(t, res.Reasons)
	require.NotNil(t, res.Exercise)
	assert.Equal(t, model.Exercise{
		Concept:             "eq1",
		Difficulty:          2,
		Exercise:            "...",
		Solution:            model.Solution{Steps: []string{"s1"}, FinalAnswer: "x = 3"},
		PedagogicalFeedback: "...",
	}, *res.Exercise)
	assert.NoError(t, AsError(res, "eq1"))
}

func TestVerify_SameLineFence(t *testing.T) {
	v := testVerifier(t)
	body := exerciseJSON(t, nil)
	for _, raw := range []string{"```" + body + "```", "```json " + body + "```"} {
		res := v.Verify(raw, "eq1")
		assert.True(t, res.Valid, raw)
		assert.Empty(t, res.Reasons)
	}
}

func TestVerify_InvalidFormat(t *testing.T) {
	for name, raw := range map[string]string{
		"garbage":   "Here is your exercise!",
		"truncated": `{"concept": "eq1"`,
		"array":     `[{"concept": "eq1"}]`,
		"null":      `null`,
		"string":    `"eq1"`,
		"empty":     ``,
		"trailing":  `{"concept": "eq1"} extra`,
	} {
		t.Run(name, func(t *testing.T) {
			res := testVerifier(t).Verify(raw, "eq1")
			assert.False(t, res.Valid)
			assert.Equal(t, []string{ReasonInvalidFormat}, res.Reasons)
			assert.Nil(t, res.Exercise)
		})
	}
}

func TestVerify_MissingFieldsStopEarly(t *testing.T) {
	raw := exerciseJSON(t, func(doc map[string]any) {
		delete(doc, "difficulty")
		delete(doc, "pedagogical_feedback")
		doc["concept"] = "other" // would be a mismatch, but stage 3 never runs
	})
	res := testVerifier(t).Verify(raw, "eq1")

	assert.False(t, res.Valid)
	assert.Equal(t, []string{"Missing field: difficulty", "Missing field: pedagogical_feedback"}, res.Reasons)
	assert.Nil(t, res.Exercise)
}

func TestVerify_EveryMissingFieldReported(t *testing.T) {
	res := testVerifier(t).Verify(`{}`, "eq1")
	assert.Equal(t, []string{
		"Missing field: concept",
		"Missing field: difficulty",
		"Missing field: exercise",
		"Missing field: solution",
		"Missing field: pedagogical_feedback",
	}, res.Reasons)
}

func TestVerify_ConceptMismatch(t *testing.T) {
	raw := exerciseJSON(t, func(doc map[string]any) { doc["concept"] = "eq2" })
	res := testVerifier(t).Verify(raw, "eq1")

	assert.False(t, res.Valid)
	assert.Equal(t, []string{"Concept mismatch: expected eq1, got eq2"}, res.Reasons)
	assert.Nil(t, res.Exercise)
}

func TestVerify_NonStringConceptMismatch(t *testing.T) {
	raw := exerciseJSON(t, func(doc map[string]any) { doc["concept"] = 7 })
	res := testVerifier(t).Verify(raw, "eq1")
	assert.Equal(t, []string{"Concept mismatch: expected eq1, got 7"}, res.Reasons)
}

func TestVerify_MissingFinalAnswer(t *testing.T) {
	variants := map[string]func(doc map[string]any){
		"plain": nil,
		"bad_steps_too": func(doc map[string]any) {
			doc["solution"].(map[string]any)["steps"] = "one step"
		},
		"mismatch_too": func(doc map[string]any) { doc["concept"] = "eq2" },
		"odd_difficulty": func(doc map[string]any) {
			doc["difficulty"] = "hard"
		},
	}
	for name, extra := range variants {
		t.Run(name, func(t *testing.T) {
			raw := exerciseJSON(t, func(doc map[string]any) {
				delete(doc["solution"].(map[string]any), "final_answer")
				if extra != nil {
					extra(doc)
				}
			})
			res := testVerifier(t).Verify(raw, "eq1")
			assert.False(t, res.Valid)
			assert.Contains(t, res.Reasons, ReasonSolutionStructure)
			assert.NotContains(t, res.Reasons, ReasonAnswerNotString)
		})
	}
}

func TestVerify_MissingSteps(t *testing.T) {
	raw := exerciseJSON(t, func(doc map[string]any) {
		delete(doc["solution"].(map[string]any), "steps")
	})
	res := testVerifier(t).Verify(raw, "eq1")
	assert.Equal(t, []string{ReasonSolutionStructure}, res.Reasons)
}

func TestVerify_SolutionNotObject(t *testing.T) {
	raw := exerciseJSON(t, func(doc map[string]any) { doc["solution"] = "x = 3" })
	res := testVerifier(t).Verify(raw, "eq1")
	assert.Equal(t, []string{ReasonSolutionStructure}, res.Reasons)
}

func TestVerify_TypeChecksAccumulate(t *testing.T) {
	raw := exerciseJSON(t, func(doc map[string]any) {
		doc["concept"] = "eq2"
		doc["solution"] = map[string]any{"steps": "do it", "final_answer": 3}
	})
	res := testVerifier(t).Verify(raw, "eq1")
	assert.Equal(t, []string{
		"Concept mismatch: expected eq1, got eq2",
		ReasonStepsNotList,
		ReasonAnswerNotString,
	}, res.Reasons)

	err := AsError(res, "eq1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrValidation))
	var ve *apperr.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, res.Reasons, ve.Reasons)
	assert.Equal(t, apperr.KindValidation, apperr.Kind(err))
}

func TestVerify_NullSteps(t *testing.T) {
	raw := exerciseJSON(t, func(doc map[string]any) {
		doc["solution"].(map[string]any)["steps"] = nil
	})
	res := testVerifier(t).Verify(raw, "eq1")
	assert.Equal(t, []string{ReasonStepsNotList}, res.Reasons)
}

func TestVerify_AdvisoryNeverRejects(t *testing.T) {
	v := testVerifier(t)

	hit := v.Verify(exerciseJSON(t, func(doc map[string]any) {
		doc["pedagogical_feedback"] = "Watch for a SIGN ERROR when moving terms; use the Inverse Operation."
	}), "eq1")
	assert.True(t, hit.Valid)
	assert.Empty(t, hit.Reasons)
	assert.Equal(t, []string{"sign_error", "inverse_operation"}, hit.Advisory.MatchedErrors)
	assert.True(t, hit.Advisory.AddressesMisconception())

	miss := v.Verify(exerciseJSON(t, func(doc map[string]any) {
		doc["pedagogical_feedback"] = "Nice work."
	}), "eq1")
	assert.True(t, miss.Valid)
	assert.Empty(t, miss.Reasons)
	assert.Empty(t, miss.Advisory.MatchedErrors)
	assert.False(t, miss.Advisory.AddressesMisconception())
}

func TestVerify_AdvisoryUsesExpectedConceptVocabulary(t *testing.T) {
	raw := exerciseJSON(t, func(doc map[string]any) {
		doc["concept"] = "eq2"
		doc["pedagogical_feedback"] = "Mind the sign error."
	})
	res := testVerifier(t).Verify(raw, "eq1")
	assert.False(t, res.Valid)
	assert.Equal(t, []string{"sign_error"}, res.Advisory.MatchedErrors)
}

func TestVerify_AdvisoryUnknownConcept(t *testing.T) {
	raw := exerciseJSON(t, func(doc map[string]any) { doc["concept"] = "ghost" })
	res := testVerifier(t).Verify(raw, "ghost")
	assert.True(t, res.Valid)
	assert.Empty(t, res.Advisory.MatchedErrors)
}

func TestVerify_InvalidDifficultyIsAdvisory(t *testing.T) {
	for name, d := range map[string]any{"string": "hard", "fraction": 1.5, "too_high": 4, "zero": 0} {
		t.Run(name, func(t *testing.T) {
			res := testVerifier(t).Verify(exerciseJSON(t, func(doc map[string]any) { doc["difficulty"] = d }), "eq1")
			assert.True(t, res.Valid)
			assert.True(t, res.Advisory.InvalidDifficulty)
			assert.Equal(t, 0, res.Exercise.Difficulty)
		})
	}
}

func TestVerify_StripsMarkdownFence(t *testing.T) {
	raw := "```json\n" + exerciseJSON(t, nil) + "\n```\n"
	res := testVerifier(t).Verify(raw, "eq1")
	assert.True(t, res.Valid)
	require.NotNil(t, res.Exercise)
	assert.Equal(t, "x = 3", res.Exercise.Solution.FinalAnswer)
}

func TestVerify_NonStringStepsAreRendered(t *testing.T) {
	raw := exerciseJSON(t, func(doc map[string]any) {
		doc["solution"].(map[string]any)["steps"] = []any{"first", 2}
	})
	res := testVerifier(t).Verify(raw, "eq1")
	require.True(t, res.Valid)
	assert.Equal(t, []string{"first", "2"}, res.Exercise.Solution.Steps)
}

func TestVerify_NilVocabulary(t *testing.T) {
	res := New(nil).Verify(exerciseJSON(t, nil), "eq1")
	assert.True(t, res.Valid)
	assert.Empty(t, res.Advisory.MatchedErrors)
}

func TestStripFence(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripFence("  {\"a\":1}  "))
	assert.Equal(t, `{"a":1}`, stripFence("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripFence("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripFence("```{\"a\":1}```"))
	assert.Equal(t, `{"a":1}`, stripFence("```json {\"a\":1}```"))
	assert.Equal(t, "", stripFence("```"))
}
