package dto

import (
	"time"

	"github.com/noah-isme/gema-grading-api/internal/models"
)

// AssignmentCreateRequest describes the payload for creating a new assignment.
type AssignmentCreateRequest struct {
	Title       string    `json:"title" validate:"required,min=3"`
	Description string    `json:"description" validate:"omitempty,max=10000"`
	CourseID    uint      `json:"course_id"`
	DueDate     time.Time `json:"due_date" validate:"required"`
	ClassIDs    []uint    `json:"class_ids" validate:"omitempty,dive,gt=0"`
}

// ExamCreateRequest describes the payload for creating a new exam.
type ExamCreateRequest struct {
	Title           string    `json:"title" validate:"required,min=3"`
	CourseID        uint      `json:"course_id"`
	StartTime       time.Time `json:"start_time" validate:"required"`
	DurationMinutes int       `json:"duration_minutes" validate:"required,gt=0,lte=1440"`
	ClassIDs        []uint    `json:"class_ids" validate:"omitempty,dive,gt=0"`
}

// AssignmentResponse is the serialized representation returned to API clients.
type AssignmentResponse struct {
	ID          uint      `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CourseID    uint      `json:"course_id"`
	DueDate     time.Time `json:"due_date"`
	CreatedBy   uint      `json:"created_by"`
	ClassIDs    []uint    `json:"class_ids"`
	CreatedAt   time.Time `json:"created_at"`
}

// ExamResponse is the serialized representation of an exam.
type ExamResponse struct {
	ID              uint      `json:"id"`
	Title           string    `json:"title"`
	CourseID        uint      `json:"course_id"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	DurationMinutes int       `json:"duration_minutes"`
	CreatedBy       uint      `json:"created_by"`
	ClassIDs        []uint    `json:"class_ids"`
	CreatedAt       time.Time `json:"created_at"`
}

// ExamStateResponse reports an exam window relative to the server clock.
type ExamStateResponse struct {
	ExamID     uint      `json:"exam_id"`
	State      string    `json:"state"`
	StartsAt   time.Time `json:"starts_at"`
	EndsAt     time.Time `json:"ends_at"`
	ServerTime time.Time `json:"server_time"`
}

// NewAssignmentResponse converts a model into a DTO.
func NewAssignmentResponse(model models.Assignment, classIDs []uint) AssignmentResponse {
	if classIDs == nil {
		classIDs = []uint{}
	}
	return AssignmentResponse{
		ID:          model.ID,
		Title:       model.Title,
		Description: model.Description,
		CourseID:    model.CourseID,
		DueDate:     model.DueDate,
		CreatedBy:   model.CreatedBy,
		ClassIDs:    classIDs,
		CreatedAt:   model.CreatedAt,
	}
}

// NewExamResponse converts a model into a DTO.
func NewExamResponse(model models.Exam, classIDs []uint) ExamResponse {
	if classIDs == nil {
		classIDs = []uint{}
	}
	return ExamResponse{
		ID:              model.ID,
		Title:           model.Title,
		CourseID:        model.CourseID,
		StartTime:       model.StartTime,
		EndTime:         model.EndTime(),
		DurationMinutes: model.DurationMinutes,
		CreatedBy:       model.CreatedBy,
		ClassIDs:        classIDs,
		CreatedAt:       model.CreatedAt,
	}
}

// AssignmentListRequest filters a teacher's assignment list.
type AssignmentListRequest struct {
	Page     int
	PageSize int
	Search   string
	Sort     string
}

// AssignmentListResponse wraps a paginated assignment list.
type AssignmentListResponse struct {
	Items      []AssignmentResponse `json:"items"`
	Pagination PaginationMeta       `json:"pagination"`
}
