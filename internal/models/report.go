package models

// ScoreReport is the structured post-debate feedback for the human debater.
type ScoreReport struct {
	Overall         int            `json:"overall"`
	Categories      map[string]int `json:"categories"`
	Strengths       []string       `json:"strengths"`
	Improvements    []string       `json:"improvements"`
	KeyMoments      []string       `json:"keyMoments"`
	Recommendations []string       `json:"recommendations"`
}

// Score category keys. The analyzer requests exactly these from the model
// and the fallback report populates all of them.
const (
	CategoryArguments = "arguments"
	CategoryEvidence  = "evidence"
	CategoryRebuttal  = "rebuttal"
	CategoryDelivery  = "delivery"
)
