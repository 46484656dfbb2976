package dto

import "time"

// Grading event types.
const (
	GradingEventSubmissionCreated = "submission.created"
	GradingEventSubmissionGraded  = "submission.graded"
)

// GradingEvent is pushed to teachers watching a source.
type GradingEvent struct {
	Type         string    `json:"type"`
	SourceKind   string    `json:"source_kind"`
	SourceID     uint      `json:"source_id"`
	SubmissionID uint      `json:"submission_id"`
	StudentID    uint      `json:"student_id"`
	Status       string    `json:"status"`
	TotalScore   float64   `json:"total_score"`
	OccurredAt   time.Time `json:"occurred_at"`
}
