package models

// Team is one of the two sides of the debate.
type Team string

const (
	TeamPro Team = "pro"
	TeamCon Team = "con"
)

// Difficulty tunes how capable the simulated opponents are.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Participant is one debater. Created at session setup, immutable after.
// Role is the ordinal speaking slot within the team (1 or 2).
type Participant struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	IsAI bool   `json:"isAi"`
	Team Team   `json:"team"`
	Role int    `json:"role"`
}
