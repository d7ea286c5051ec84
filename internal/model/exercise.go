package model

// Solution is the worked solution attached to a generated exercise.
type Solution struct {
	Steps       []string `json:"steps"`
	FinalAnswer string   `json:"final_answer"`
}

// Exercise is a generated exercise. It is untrusted until the verifier
// accepts it.
type Exercise struct {
	Concept             string   `json:"concept"`
	Difficulty          int      `json:"difficulty"`
	Exercise            string   `json:"exercise"`
	Solution            Solution `json:"solution"`
	PedagogicalFeedback string   `json:"pedagogical_feedback"`
}

// Advisory holds the non-blocking signals produced during verification. It
// never influences the verdict.
type Advisory struct {
	// MatchedErrors lists the concept's common-error labels mentioned in the
	// pedagogical feedback, in vocabulary order.
	MatchedErrors []string `json:"matched_errors,omitempty"`
	// InvalidDifficulty is set when the difficulty field is not an integer
	// between 1 and 3.
	InvalidDifficulty bool `json:"invalid_difficulty,omitempty"`
}

// AddressesMisconception reports whether the feedback mentions at least one
// known misconception of the concept.
func (a Advisory) AddressesMisconception() bool {
	return len(a.MatchedErrors) > 0
}

// VerificationResult is the verdict on one generated exercise.
type VerificationResult struct {
	Valid    bool      `json:"valid"`
	Reasons  []string  `json:"reasons"`
	Exercise *Exercise `json:"exercise,omitempty"`
	Advisory Advisory  `json:"advisory"`
}

// Evaluation is the pedagogical quality judgement of an accepted exercise.
type Evaluation struct {
	PedagogicalClarity      int     `json:"pedagogical_clarity"`
	LevelAppropriateness    int     `json:"level_appropriateness"`
	MathematicalCorrectness int     `json:"mathematical_correctness"`
	OverallScore            float64 `json:"overall_score"`
	Feedback                string  `json:"feedback"`
}
