package model

// Difficulty levels. 1 is very easy, 3 is challenging.
const (
	DifficultyEasy        = 1
	DifficultyStandard    = 2
	DifficultyChallenging = 3
)

// Decision is the policy's choice for the next episode.
type Decision struct {
	Concept      string   `json:"concept"`
	Difficulty   int      `json:"difficulty"`
	TargetErrors []string `json:"target_errors"`
}
