package dto

import (
	"encoding/json"
	"time"

	"github.com/noah-isme/gema-grading-api/internal/models"
)

// QuestionCreateRequest describes a new catalog question.
type QuestionCreateRequest struct {
	Type       string   `json:"type" validate:"required,oneof=single_choice multiple_choice true_false fill_blank essay programming"`
	Content    string   `json:"content" validate:"required,min=3"`
	Options    []string `json:"options" validate:"omitempty,dive,required"`
	Answer     string   `json:"answer" validate:"max=20000"`
	Difficulty string   `json:"difficulty" validate:"omitempty,oneof=easy medium hard"`
	CourseID   uint     `json:"course_id"`
}

// QuestionUpdateRequest changes selected fields of a catalog question.
type QuestionUpdateRequest struct {
	Content    *string   `json:"content" validate:"omitempty,min=3"`
	Options    *[]string `json:"options" validate:"omitempty"`
	Answer     *string   `json:"answer" validate:"omitempty,max=20000"`
	Difficulty *string   `json:"difficulty" validate:"omitempty,oneof=easy medium hard"`
}

// QuestionResponse serializes a catalog question for staff.
type QuestionResponse struct {
	ID         uint       `json:"id"`
	Type       string     `json:"type"`
	Content    string     `json:"content"`
	Options    []string   `json:"options"`
	Answer     string     `json:"answer"`
	Difficulty string     `json:"difficulty"`
	CourseID   uint       `json:"course_id"`
	CreatedBy  uint       `json:"created_by"`
	ArchivedAt *time.Time `json:"archived_at"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// QuestionDeleteResponse reports whether a question was removed or archived.
type QuestionDeleteResponse struct {
	ID       uint `json:"id"`
	Deleted  bool `json:"deleted"`
	Archived bool `json:"archived"`
}

// QuestionLinkInput binds a question to a source with a weight.
type QuestionLinkInput struct {
	QuestionID uint    `json:"question_id" validate:"required,gt=0"`
	Weight     float64 `json:"weight" validate:"gt=0"`
	Position   int     `json:"position" validate:"gte=0"`
}

// ReplaceQuestionLinksRequest replaces the full link set of a source.
type ReplaceQuestionLinksRequest struct {
	Links []QuestionLinkInput `json:"links" validate:"dive"`
}

// QuestionLinkResponse serializes a source's question link.
type QuestionLinkResponse struct {
	QuestionID uint    `json:"question_id"`
	Weight     float64 `json:"weight"`
	Position   int     `json:"position"`
}

// QuestionLinksResponse lists the links of a source after a replace.
type QuestionLinksResponse struct {
	SourceKind string                 `json:"source_kind"`
	SourceID   uint                   `json:"source_id"`
	TotalScore float64                `json:"total_score"`
	Links      []QuestionLinkResponse `json:"links"`
}

// NewQuestionResponse converts a question model into a DTO.
func NewQuestionResponse(model models.Question) QuestionResponse {
	options := []string{}
	if len(model.Options) > 0 {
		_ = json.Unmarshal(model.Options, &options)
	}

	return QuestionResponse{
		ID:         model.ID,
		Type:       string(model.Type),
		Content:    model.Content,
		Options:    options,
		Answer:     model.Answer,
		Difficulty: model.Difficulty,
		CourseID:   model.CourseID,
		CreatedBy:  model.CreatedBy,
		ArchivedAt: model.ArchivedAt,
		CreatedAt:  model.CreatedAt,
		UpdatedAt:  model.UpdatedAt,
	}
}

// NewQuestionLinksResponse converts a link set into a DTO.
func NewQuestionLinksResponse(kind models.SourceKind, sourceID uint, links []models.QuestionLink) QuestionLinksResponse {
	response := QuestionLinksResponse{
		SourceKind: string(kind),
		SourceID:   sourceID,
		Links:      make([]QuestionLinkResponse, 0, len(links)),
	}
	for _, link := range links {
		response.TotalScore += link.Weight
		response.Links = append(response.Links, QuestionLinkResponse{
			QuestionID: link.QuestionID,
			Weight:     link.Weight,
			Position:   link.Position,
		})
	}
	return response
}
