package llm

import (
	"bytes"
	"encoding/json"
	"strings"
	"text/template"

	"github.com/rotisserie/eris"

	"github.com/sells-group/tutor-cli/internal/model"
)

// PromptInput is what the generator needs to know about the decision.
type PromptInput struct {
	ConceptID    string
	ConceptName  string
	Difficulty   int
	TargetErrors []string
}

const exercisePromptTemplate = `
You are an educational content generator integrated into a rule-based
Intelligent Tutoring System (ITS).

Your role is strictly limited:
- You generate exercises.
- You do NOT decide pedagogical strategy.
- You MUST follow the provided constraints.

PEDAGOGICAL CONTEXT
-------------------
Target concept ID: {{.ConceptID}}
Target concept description: {{.ConceptName}}
Difficulty level: {{.Difficulty}} (1 = very easy, 3 = challenging)

Target misconceptions to address (if any):
{{targets .TargetErrors}}

CONSTRAINTS
-----------
- The exercise MUST involve ONLY the target concept.
- Do NOT introduce any advanced or future concepts.
- The equation MUST have a unique solution.
- The numbers must be appropriate for middle school students.
- The solution must be correct and explained step by step.
- If target misconceptions are provided, the exercise should explicitly
  help the student avoid or confront them.

OUTPUT FORMAT (STRICT)
----------------------
Return a valid JSON object with the following structure ONLY:

{
  "concept": "{{.ConceptID}}",
  "difficulty": {{.Difficulty}},
  "exercise": "A clear and concise equation-solving problem.",
  "solution": {
    "steps": [
      "Step 1 explanation",
      "Step 2 explanation"
    ],
    "final_answer": "x = value"
  },
  "pedagogical_feedback": "Short feedback explaining the key idea."
}

DO NOT include any text outside the JSON object.
`

const judgePromptTemplate = `
You are an expert mathematics education evaluator.

Evaluate the pedagogical quality of the following exercise.

Return STRICT JSON only.

{{.Exercise}}

Output format:
{
  "pedagogical_clarity": int,
  "level_appropriateness": int,
  "mathematical_correctness": int,
  "overall_score": float,
  "feedback": "short feedback"
}
`

var (
	exercisePrompt = template.Must(template.New("exercise").
			Funcs(template.FuncMap{"targets": joinTargets}).
			Parse(exercisePromptTemplate))
	judgePrompt = template.Must(template.New("judge").Parse(judgePromptTemplate))
)

// joinTargets renders the misconception list, or None when it is empty.
func joinTargets(targets []string) string {
	if len(targets) == 0 {
		return "None"
	}
	return strings.Join(targets, ", ")
}

// ExercisePrompt renders the generator prompt for in.
func ExercisePrompt(in PromptInput) (string, error) {
	var buf bytes.Buffer
	if err := exercisePrompt.Execute(&buf, in); err != nil {
		return "", eris.Wrap(err, "llm: render exercise prompt")
	}
	return buf.String(), nil
}

// JudgePrompt renders the judge prompt with the exercise as indented JSON.
func JudgePrompt(ex model.Exercise) (string, error) {
	body, err := json.MarshalIndent(ex, "", "  ")
	if err != nil {
		return "", eris.Wrap(err, "llm: marshal exercise")
	}
	var buf bytes.Buffer
	if err := judgePrompt.Execute(&buf, struct{ Exercise string }{string(body)}); err != nil {
		return "", eris.Wrap(err, "llm: render judge prompt")
	}
	return buf.String(), nil
}
