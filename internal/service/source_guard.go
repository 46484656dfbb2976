package service

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-grading-api/internal/models"
	"github.com/noah-isme/gema-grading-api/internal/repository"
)

// gradedSource is an assignment or an exam resolved from a kind and id.
type gradedSource struct {
	Kind       models.SourceKind
	ID         uint
	Assignment *models.Assignment
	Exam       *models.Exam
}

func (s gradedSource) ownerID() uint {
	if s.Assignment != nil {
		return s.Assignment.CreatedBy
	}
	if s.Exam != nil {
		return s.Exam.CreatedBy
	}
	return 0
}

// checkOpen enforces the assignment due date or the exam window at now.
func (s gradedSource) checkOpen(now time.Time) error {
	switch {
	case s.Assignment != nil:
		if s.Assignment.ClosedAt(now) {
			return ErrDeadlinePassed
		}
	case s.Exam != nil:
		switch s.Exam.State(now) {
		case models.ExamStateNotStarted:
			return ErrExamNotStarted
		case models.ExamStateEnded:
			return ErrExamEnded
		}
	}
	return nil
}

func loadGradedSource(ctx context.Context, store repository.Store, kind models.SourceKind, id uint) (gradedSource, error) {
	source := gradedSource{Kind: kind, ID: id}
	switch kind {
	case models.SourceKindAssignment:
		assignment, err := store.Assignments().GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return source, ErrSourceNotFound
			}
			return source, err
		}
		source.Assignment = &assignment
	case models.SourceKindExam:
		exam, err := store.Exams().GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return source, ErrSourceNotFound
			}
			return source, err
		}
		source.Exam = &exam
	default:
		return source, ErrInvalidSourceKind
	}
	return source, nil
}

// authorizeSource lets admins act on any source and teachers on their own.
func authorizeSource(actor Actor, source gradedSource) error {
	if actor.IsAdmin() {
		return nil
	}
	if !actor.IsStaff() {
		return ErrStaffOnly
	}
	if source.ownerID() != actor.ID {
		return ErrNotSourceOwner
	}
	return nil
}
