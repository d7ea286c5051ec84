// Package verifier checks generated exercises against the exercise schema
// and the selected concept before they reach a learner.
package verifier

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sells-group/tutor-cli/internal/apperr"
	"github.com/sells-group/tutor-cli/internal/model"
)

// Fixed rejection reasons.
const (
	ReasonInvalidFormat     = "Invalid format"
	ReasonSolutionStructure = "Solution must contain steps and final_answer"
	ReasonStepsNotList      = "Solution steps must be a list"
	ReasonAnswerNotString   = "Final answer must be a string"
)

// requiredFields are checked in this order; the reasons follow it.
var requiredFields = []string{"concept", "difficulty", "exercise", "solution", "pedagogical_feedback"}

// Vocabulary provides the misconception labels of a concept.
type Vocabulary interface {
	CommonErrors(id string) ([]string, error)
}

// Verifier validates raw generator output.
type Verifier struct {
	vocab Vocabulary
	lower cases.Caser
}

// New creates a verifier that reads misconception labels from vocab.
func New(vocab Vocabulary) *Verifier {
	return &Verifier{
		vocab: vocab,
		lower: cases.Lower(language.Und),
	}
}

// Verify runs the verification stages in order:
//
//  1. parse the raw text as a JSON object,
//  2. require every top-level field (missing fields end verification),
//  3. compare the concept with expectedConcept,
//  4. require solution.steps and solution.final_answer,
//  5. type-check steps (list) and final_answer (string),
//  6. scan the feedback for known misconceptions (advisory only).
//
// Stages 3 to 5 accumulate reasons. The result is valid iff no reason was
// recorded, and only a valid result carries the parsed exercise.
func (v *Verifier) Verify(raw, expectedConcept string) model.VerificationResult {
	var doc map[string]any
	if err := json.Unmarshal([]byte(stripFence(raw)), &doc); err != nil || doc == nil {
		return model.VerificationResult{Reasons: []string{ReasonInvalidFormat}}
	}

	var missing []string
	for _, f := range requiredFields {
		if _, ok := doc[f]; !ok {
			missing = append(missing, "Missing field: "+f)
		}
	}
	if len(missing) > 0 {
		return model.VerificationResult{Reasons: missing}
	}

	reasons := []string{}

	concept, isString := doc["concept"].(string)
	if !isString || concept != expectedConcept {
		reasons = append(reasons, fmt.Sprintf("Concept mismatch: expected %s, got %s", expectedConcept, render(doc["concept"])))
	}

	solution, isObject := doc["solution"].(map[string]any)
	steps, hasSteps := solution["steps"]
	answer, hasAnswer := solution["final_answer"]
	if !isObject || !hasSteps || !hasAnswer {
		reasons = append(reasons, ReasonSolutionStructure)
	}
	stepList, stepsOK := steps.([]any)
	if hasSteps && !stepsOK {
		reasons = append(reasons, ReasonStepsNotList)
	}
	answerText, answerOK := answer.(string)
	if hasAnswer && !answerOK {
		reasons = append(reasons, ReasonAnswerNotString)
	}

	feedback, _ := doc["pedagogical_feedback"].(string)
	difficulty, difficultyOK := asDifficulty(doc["difficulty"])
	advisory := v.advise(expectedConcept, feedback)
	advisory.InvalidDifficulty = !difficultyOK

	res := model.VerificationResult{
		Valid:    len(reasons) == 0,
		Reasons:  reasons,
		Advisory: advisory,
	}
	if res.Valid {
		res.Exercise = &model.Exercise{
			Concept:    concept,
			Difficulty: difficulty,
			Exercise:   text(doc["exercise"]),
			Solution: model.Solution{
				Steps:       texts(stepList),
				FinalAnswer: answerText,
			},
			PedagogicalFeedback: feedback,
		}
	}
	return res
}

// advise lists the concept's misconception labels, underscores read as
// spaces, that appear in the lowercased feedback.
func (v *Verifier) advise(concept, feedback string) model.Advisory {
	var adv model.Advisory
	if feedback == "" || v.vocab == nil {
		return adv
	}
	labels, err := v.vocab.CommonErrors(concept)
	if err != nil {
		return adv
	}
	lowered := v.lower.String(feedback)
	for _, label := range labels {
		phrase := v.lower.String(strings.ReplaceAll(label, "_", " "))
		if phrase != "" && strings.Contains(lowered, phrase) {
			adv.MatchedErrors = append(adv.MatchedErrors, label)
		}
	}
	return adv
}

// AsError converts a rejected result into an *apperr.ValidationError. A valid
// result yields nil.
func AsError(res model.VerificationResult, concept string) error {
	if res.Valid {
		return nil
	}
	return &apperr.ValidationError{Concept: concept, Reasons: res.Reasons}
}

// stripFence removes one markdown code fence wrapped around the payload.
// The fence may sit on the payload's own line, as in ```json {...}```.
func stripFence(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	body := s[len("```"):]
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		body = body[nl+1:]
	} else {
		body = strings.TrimLeftFunc(body, unicode.IsLetter)
	}
	body = strings.TrimSuffix(strings.TrimSpace(body), "```")
	return strings.TrimSpace(body)
}

func asDifficulty(v any) (int, bool) {
	f, ok := v.(float64)
	if !ok || f != math.Trunc(f) || f < model.DifficultyEasy || f > model.DifficultyChallenging {
		return 0, false
	}
	return int(f), true
}

// render formats a decoded JSON value for a reason string.
func render(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

func text(v any) string {
	if v == nil {
		return ""
	}
	return render(v)
}

func texts(vs []any) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = text(v)
	}
	return out
}
