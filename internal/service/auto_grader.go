package service

import (
	"strings"

	"github.com/noah-isme/gema-grading-api/internal/models"
)

// GradeOutcome is the automatic result for one answered item.
type GradeOutcome struct {
	Score     float64
	IsCorrect *bool
	Graded    bool
}

// AutoGrader scores objective items against their reference answers.
type AutoGrader struct{}

// NormalizeAnswer trims surrounding whitespace and upper-cases the answer.
func NormalizeAnswer(answer string) string {
	return strings.ToUpper(strings.TrimSpace(answer))
}

// Grade awards the full link weight when a normalized objective answer equals
// the normalized reference, and zero otherwise. Multiple-choice answers get no
// partial credit. Subjective items are left for a teacher with a zero score.
func (AutoGrader) Grade(reference models.ReferenceAnswer, answer string) GradeOutcome {
	if !reference.Type.IsObjective() {
		return GradeOutcome{}
	}

	correct := NormalizeAnswer(answer) == NormalizeAnswer(reference.Answer)
	outcome := GradeOutcome{IsCorrect: &correct, Graded: true}
	if correct {
		outcome.Score = reference.Weight
	}
	return outcome
}
