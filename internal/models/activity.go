package models

import (
	"time"

	"gorm.io/datatypes"
)

// Audited grading actions.
const (
	ActivitySubmissionGraded  = "submission.graded"
	ActivityQuestionDeleted   = "question.deleted"
	ActivityQuestionArchived  = "question.archived"
	ActivitySourceLinksEdited = "source.links_replaced"
)

// Audited entity types.
const (
	EntitySubmission = "submission"
	EntityQuestion   = "question"
	EntityAssignment = "assignment"
	EntityExam       = "exam"
)

// ActivityLog is one entry of the grading audit trail. Entries are append
// only.
type ActivityLog struct {
	ID         uint              `gorm:"primaryKey" json:"id"`
	ActorID    uint              `gorm:"not null;index" json:"actor_id"`
	ActorRole  string            `gorm:"size:16;not null" json:"actor_role"`
	Action     string            `gorm:"size:64;not null;index" json:"action"`
	EntityType string            `gorm:"size:32;not null;index:idx_activity_entity" json:"entity_type"`
	EntityID   *uint             `gorm:"index:idx_activity_entity" json:"entity_id"`
	Metadata   datatypes.JSONMap `gorm:"type:json" json:"metadata"`
	CreatedAt  time.Time         `gorm:"index" json:"created_at"`
}

// EntityForSource maps a source kind to its audit entity type.
func EntityForSource(kind SourceKind) string {
	if kind == SourceKindExam {
		return EntityExam
	}
	return EntityAssignment
}
