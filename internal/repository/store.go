package repository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-grading-api/internal/models"
)

// Store groups the repositories that take part in grading transactions so a
// service can run several of them against one database transaction.
type Store interface {
	Assignments() AssignmentRepository
	Exams() ExamRepository
	Questions() QuestionRepository
	Submissions() SubmissionRepository
	Transaction(ctx context.Context, fn func(tx Store) error) error
}

type gormStore struct {
	db *gorm.DB
}

// NewStore instantiates a GORM-backed store.
func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Assignments() AssignmentRepository {
	return NewAssignmentRepository(s.db)
}

func (s *gormStore) Exams() ExamRepository {
	return NewExamRepository(s.db)
}

func (s *gormStore) Questions() QuestionRepository {
	return NewQuestionRepository(s.db)
}

func (s *gormStore) Submissions() SubmissionRepository {
	return NewSubmissionRepository(s.db)
}

// Transaction runs fn inside a database transaction. Returning an error from
// fn rolls back every write made through tx.
func (s *gormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}

func createDistribution(tx *gorm.DB, kind models.SourceKind, sourceID uint, classIDs []uint) error {
	seen := make(map[uint]struct{}, len(classIDs))
	rows := make([]models.SourceClass, 0, len(classIDs))
	for _, classID := range classIDs {
		if _, dup := seen[classID]; dup || classID == 0 {
			continue
		}
		seen[classID] = struct{}{}
		rows = append(rows, models.SourceClass{SourceKind: kind, SourceID: sourceID, ClassID: classID})
	}
	if len(rows) == 0 {
		return nil
	}
	return tx.Create(&rows).Error
}

// isUniqueViolation detects duplicate-key failures. TranslateError covers the
// postgres and sqlite drivers; the message check catches drivers without a
// translator.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}
