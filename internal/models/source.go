package models

import "strings"

// SourceKind identifies which kind of graded work a submission belongs to.
type SourceKind string

const (
	// SourceKindAssignment marks work with a single due date.
	SourceKindAssignment SourceKind = "assignment"
	// SourceKindExam marks work bounded by a start time and a duration.
	SourceKindExam SourceKind = "exam"
)

// Valid reports whether the kind is one of the supported source kinds.
func (k SourceKind) Valid() bool {
	return k == SourceKindAssignment || k == SourceKindExam
}

// ParseSourceKind accepts singular and plural spellings ("exam", "exams").
func ParseSourceKind(value string) (SourceKind, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "assignment", "assignments":
		return SourceKindAssignment, true
	case "exam", "exams":
		return SourceKindExam, true
	default:
		return "", false
	}
}

// SourceClass distributes an assignment or exam to a class. The union of
// enrollments across these rows is the rollup denominator.
type SourceClass struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	SourceKind SourceKind `gorm:"size:16;not null;uniqueIndex:idx_source_class" json:"source_kind"`
	SourceID   uint       `gorm:"not null;uniqueIndex:idx_source_class" json:"source_id"`
	ClassID    uint       `gorm:"not null;uniqueIndex:idx_source_class;index" json:"class_id"`
}
