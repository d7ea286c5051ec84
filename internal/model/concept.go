package model

// Concept is an atomic curriculum unit. Concepts are owned by the knowledge
// graph and never change after load.
type Concept struct {
	ID            string   `json:"id" yaml:"id"`
	Name          string   `json:"name" yaml:"name"`
	Prerequisites []string `json:"prerequisites" yaml:"prerequisites"`
	CommonErrors  []string `json:"common_errors" yaml:"common_errors"`
}

// HasCommonError reports whether label is part of the concept's misconception
// vocabulary.
func (c Concept) HasCommonError(label string) bool {
	for _, e := range c.CommonErrors {
		if e == label {
			return true
		}
	}
	return false
}
