package dto

import (
	"time"

	"github.com/noah-isme/gema-grading-api/internal/models"
)

// SubmissionStatusNotSubmitted is reported when a student has no header for a source.
const SubmissionStatusNotSubmitted = "not_submitted"

// AnswerInput is one answered item of a submission.
type AnswerInput struct {
	QuestionID uint   `json:"question_id" validate:"required,gt=0"`
	Answer     string `json:"answer" validate:"max=20000"`
}

// SubmitAnswersRequest carries a student's full answer set for one source.
type SubmitAnswersRequest struct {
	Answers []AnswerInput `json:"answers" validate:"required,min=1,dive"`
}

// SubmitResult is returned after a submission has been ingested.
type SubmitResult struct {
	SubmissionID   uint      `json:"submission_id"`
	SourceKind     string    `json:"source_kind"`
	SourceID       uint      `json:"source_id"`
	Status         string    `json:"status"`
	Score          float64   `json:"score"`
	DroppedAnswers int       `json:"dropped_answers"`
	SubmittedAt    time.Time `json:"submitted_at"`
}

// SubmissionDetailResponse serializes one answered item.
type SubmissionDetailResponse struct {
	ID         uint    `json:"id"`
	QuestionID uint    `json:"question_id"`
	Answer     string  `json:"answer"`
	IsCorrect  *bool   `json:"is_correct"`
	Score      float64 `json:"score"`
	Feedback   string  `json:"feedback"`
}

// SubmissionResponse is returned when viewing a submission.
type SubmissionResponse struct {
	ID          uint                       `json:"id"`
	StudentID   uint                       `json:"student_id"`
	SourceKind  string                     `json:"source_kind"`
	SourceID    uint                       `json:"source_id"`
	Status      string                     `json:"status"`
	TotalScore  float64                    `json:"total_score"`
	SubmittedAt time.Time                  `json:"submitted_at"`
	GradedAt    *time.Time                 `json:"graded_at"`
	GradedBy    *uint                      `json:"graded_by"`
	Details     []SubmissionDetailResponse `json:"details"`
}

// SubmissionStatusResponse reports a student's progress on one source.
type SubmissionStatusResponse struct {
	SourceKind   string     `json:"source_kind"`
	SourceID     uint       `json:"source_id"`
	Status       string     `json:"status"`
	SubmissionID *uint      `json:"submission_id"`
	TotalScore   *float64   `json:"total_score"`
	SubmittedAt  *time.Time `json:"submitted_at"`
	GradedAt     *time.Time `json:"graded_at"`
}

// NewSubmissionResponse converts a Submission model into a DTO.
func NewSubmissionResponse(model models.Submission) SubmissionResponse {
	details := make([]SubmissionDetailResponse, 0, len(model.Details))
	for _, detail := range model.Details {
		details = append(details, SubmissionDetailResponse{
			ID:         detail.ID,
			QuestionID: detail.QuestionID,
			Answer:     detail.Answer,
			IsCorrect:  detail.IsCorrect,
			Score:      detail.Score,
			Feedback:   detail.Feedback,
		})
	}

	return SubmissionResponse{
		ID:          model.ID,
		StudentID:   model.StudentID,
		SourceKind:  string(model.SourceKind),
		SourceID:    model.SourceID,
		Status:      model.Status,
		TotalScore:  model.TotalScore,
		SubmittedAt: model.SubmittedAt,
		GradedAt:    model.GradedAt,
		GradedBy:    model.GradedBy,
		Details:     details,
	}
}

// NewSubmissionStatusResponse summarizes an existing submission header.
func NewSubmissionStatusResponse(model models.Submission) SubmissionStatusResponse {
	id := model.ID
	total := model.TotalScore
	submittedAt := model.SubmittedAt
	return SubmissionStatusResponse{
		SourceKind:   string(model.SourceKind),
		SourceID:     model.SourceID,
		Status:       model.Status,
		SubmissionID: &id,
		TotalScore:   &total,
		SubmittedAt:  &submittedAt,
		GradedAt:     model.GradedAt,
	}
}
