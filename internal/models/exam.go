package models

import "time"

// ExamState is the temporal state of an exam relative to a reference time.
type ExamState string

const (
	ExamStateNotStarted ExamState = "not_started"
	ExamStateInProgress ExamState = "in_progress"
	ExamStateEnded      ExamState = "ended"
)

// Exam is a timed assessment. Its state is derived from StartTime and
// DurationMinutes at query time and is never stored.
type Exam struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	Title           string    `gorm:"size:255;not null" json:"title"`
	CourseID        uint      `gorm:"index" json:"course_id"`
	StartTime       time.Time `gorm:"not null" json:"start_time"`
	DurationMinutes int       `gorm:"not null" json:"duration_minutes"`
	CreatedBy       uint      `gorm:"not null;index" json:"created_by"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// EndTime returns the instant the exam window closes.
func (e Exam) EndTime() time.Time {
	return e.StartTime.Add(time.Duration(e.DurationMinutes) * time.Minute)
}

// State evaluates the exam window at the supplied server time.
func (e Exam) State(now time.Time) ExamState {
	return EvaluateExamState(e.StartTime, e.DurationMinutes, now)
}

// EvaluateExamState maps a start time and duration to a window state. Both
// window bounds are inclusive. now must come from a trusted server clock.
func EvaluateExamState(start time.Time, durationMinutes int, now time.Time) ExamState {
	end := start.Add(time.Duration(durationMinutes) * time.Minute)
	switch {
	case now.Before(start):
		return ExamStateNotStarted
	case now.After(end):
		return ExamStateEnded
	default:
		return ExamStateInProgress
	}
}
