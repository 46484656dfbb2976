package models

import (
	"time"

	"gorm.io/datatypes"
)

// QuestionType enumerates the supported question formats.
type QuestionType string

const (
	QuestionTypeSingleChoice   QuestionType = "single_choice"
	QuestionTypeMultipleChoice QuestionType = "multiple_choice"
	QuestionTypeTrueFalse      QuestionType = "true_false"
	QuestionTypeFillBlank      QuestionType = "fill_blank"
	QuestionTypeEssay          QuestionType = "essay"
	QuestionTypeProgramming    QuestionType = "programming"
)

// IsObjective reports whether answers of this type are machine-checkable.
func (t QuestionType) IsObjective() bool {
	switch t {
	case QuestionTypeSingleChoice, QuestionTypeMultipleChoice, QuestionTypeTrueFalse:
		return true
	default:
		return false
	}
}

// Question is a catalog entry. Archived questions keep resolving for existing
// links but cannot be linked again.
type Question struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	Type       QuestionType   `gorm:"size:32;not null" json:"type"`
	Content    string         `gorm:"type:text;not null" json:"content"`
	Options    datatypes.JSON `gorm:"type:json" json:"options"`
	Answer     string         `gorm:"type:text" json:"answer"`
	Difficulty string         `gorm:"size:16" json:"difficulty"`
	CourseID   uint           `gorm:"index" json:"course_id"`
	CreatedBy  uint           `gorm:"not null" json:"created_by"`
	ArchivedAt *time.Time     `json:"archived_at"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// IsArchived reports whether the question has been retired from the catalog.
func (q Question) IsArchived() bool {
	return q.ArchivedAt != nil
}

// QuestionLink binds a question to an assignment or exam with a use-specific
// weight. It is the authoritative source of an item's points.
type QuestionLink struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	SourceKind SourceKind `gorm:"size:16;not null;uniqueIndex:idx_question_link" json:"source_kind"`
	SourceID   uint       `gorm:"not null;uniqueIndex:idx_question_link" json:"source_id"`
	QuestionID uint       `gorm:"not null;uniqueIndex:idx_question_link;index" json:"question_id"`
	Weight     float64    `gorm:"type:numeric(10,2);not null" json:"weight"`
	Position   int        `gorm:"not null;default:0" json:"position"`
	Question   Question   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
}

// ReferenceAnswer is the grading view of a linked question.
type ReferenceAnswer struct {
	QuestionID uint
	Type       QuestionType
	Answer     string
	Weight     float64
}
