package dto

import "time"

// GradeInput is a manual score for one submission detail.
type GradeInput struct {
	DetailID uint    `json:"detail_id" validate:"required,gt=0"`
	Score    float64 `json:"score" validate:"lte=99999999.99"`
	Feedback string  `json:"feedback" validate:"max=5000"`
}

// ApplyGradesRequest is a batch of detail grades applied atomically.
type ApplyGradesRequest struct {
	Grades []GradeInput `json:"grades" validate:"required,min=1,dive"`
}

// ApplyGradesResponse is returned after a grading batch commits.
type ApplyGradesResponse struct {
	Success       bool      `json:"success"`
	SubmissionID  uint      `json:"submission_id"`
	Status        string    `json:"status"`
	NewTotalScore float64   `json:"new_total_score"`
	GradedAt      time.Time `json:"graded_at"`
}

// SubmissionStatsResponse aggregates the state of one source.
type SubmissionStatsResponse struct {
	SourceKind    string    `json:"source_kind"`
	SourceID      uint      `json:"source_id"`
	TotalStudents int64     `json:"total_students"`
	Submitted     int64     `json:"submitted"`
	Graded        int64     `json:"graded"`
	Pending       int64     `json:"pending"`
	GeneratedAt   time.Time `json:"generated_at"`
	CacheHit      bool      `json:"cache_hit"`
}

// RosterEntryResponse is one enrolled student's row in a roster.
type RosterEntryResponse struct {
	StudentID    uint       `json:"student_id"`
	StudentName  string     `json:"student_name"`
	StudentEmail string     `json:"student_email"`
	Status       string     `json:"status"`
	SubmissionID *uint      `json:"submission_id"`
	TotalScore   *float64   `json:"total_score"`
	SubmittedAt  *time.Time `json:"submitted_at"`
	GradedAt     *time.Time `json:"graded_at"`
}

// RosterResponse lists enrolled students for a source.
type RosterResponse struct {
	SourceKind string                `json:"source_kind"`
	SourceID   uint                  `json:"source_id"`
	Items      []RosterEntryResponse `json:"items"`
}
