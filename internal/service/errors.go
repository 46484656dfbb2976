package service

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the grading services wraps exactly one
// of these so transports can map failures without knowing each case.
var (
	ErrValidation = errors.New("validation failed")
	ErrDeadline   = errors.New("submission window closed")
	ErrConflict   = errors.New("conflict")
	ErrNotFound   = errors.New("not found")
	ErrPermission = errors.New("permission denied")
)

var (
	// ErrEmptyAnswers indicates a submission without any answers.
	ErrEmptyAnswers = fmt.Errorf("%w: answer set is empty", ErrValidation)
	// ErrEmptyGrades indicates a grading batch without entries.
	ErrEmptyGrades = fmt.Errorf("%w: grade batch is empty", ErrValidation)
	// ErrDuplicateGrade indicates two grades for the same detail in one batch.
	ErrDuplicateGrade = fmt.Errorf("%w: duplicate grade for submission detail", ErrValidation)
	// ErrNegativeScore indicates a manual grade below zero.
	ErrNegativeScore = fmt.Errorf("%w: score must not be negative", ErrValidation)
	// ErrScoreOutOfRange indicates a grade or resulting total too large to store.
	ErrScoreOutOfRange = fmt.Errorf("%w: score exceeds storable range", ErrValidation)
	// ErrDuplicateAnswer indicates two answers for the same question.
	ErrDuplicateAnswer = fmt.Errorf("%w: duplicate answer for question", ErrValidation)
	// ErrDuplicateLink indicates a question listed twice in one link set.
	ErrDuplicateLink = fmt.Errorf("%w: question linked more than once", ErrValidation)
	// ErrMissingReferenceAnswer indicates an objective question without a reference answer.
	ErrMissingReferenceAnswer = fmt.Errorf("%w: objective questions need a reference answer", ErrValidation)
	// ErrInvalidSourceKind indicates an unknown source kind.
	ErrInvalidSourceKind = fmt.Errorf("%w: unknown source kind", ErrValidation)

	// ErrDeadlinePassed indicates the assignment due date has passed.
	ErrDeadlinePassed = fmt.Errorf("%w: deadline has passed", ErrDeadline)
	// ErrExamNotStarted indicates the exam window has not opened yet.
	ErrExamNotStarted = fmt.Errorf("%w: exam has not started", ErrDeadline)
	// ErrExamEnded indicates the exam window has closed.
	ErrExamEnded = fmt.Errorf("%w: exam has ended", ErrDeadline)

	// ErrAlreadySubmitted indicates a header already exists for the student and source.
	ErrAlreadySubmitted = fmt.Errorf("%w: already submitted", ErrConflict)
	// ErrQuestionLocked indicates a question referenced by graded work cannot change.
	ErrQuestionLocked = fmt.Errorf("%w: question is referenced by graded submissions", ErrConflict)
	// ErrQuestionArchived indicates an archived question cannot be linked again.
	ErrQuestionArchived = fmt.Errorf("%w: question is archived", ErrConflict)

	// ErrSourceNotFound indicates the assignment or exam is missing or has no linked questions.
	ErrSourceNotFound = fmt.Errorf("%w: source not found", ErrNotFound)
	// ErrSubmissionNotFound indicates a submission could not be found.
	ErrSubmissionNotFound = fmt.Errorf("%w: submission not found", ErrNotFound)
	// ErrDetailNotFound indicates a detail id does not belong to the submission.
	ErrDetailNotFound = fmt.Errorf("%w: submission detail not found", ErrNotFound)
	// ErrQuestionNotFound indicates a referenced question does not exist.
	ErrQuestionNotFound = fmt.Errorf("%w: question not found", ErrNotFound)

	// ErrStudentCannotGrade indicates a student attempted a grading operation.
	ErrStudentCannotGrade = fmt.Errorf("%w: students cannot grade", ErrPermission)
	// ErrStaffOnly indicates a non-staff actor calling a teacher operation.
	ErrStaffOnly = fmt.Errorf("%w: staff access required", ErrPermission)
	// ErrNotSourceOwner indicates a teacher acting on another teacher's work.
	ErrNotSourceOwner = fmt.Errorf("%w: not the owner of this assignment or exam", ErrPermission)
	// ErrNotQuestionOwner indicates a teacher changing another teacher's question.
	ErrNotQuestionOwner = fmt.Errorf("%w: not the owner of this question", ErrPermission)
	// ErrNotSubmissionOwner indicates a student reading another student's submission.
	ErrNotSubmissionOwner = fmt.Errorf("%w: not the owner of this submission", ErrPermission)
)
