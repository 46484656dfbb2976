package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-grading-api/internal/dto"
	"github.com/noah-isme/gema-grading-api/internal/models"
	"github.com/noah-isme/gema-grading-api/internal/repository"
)

type gradingHarness struct {
	db         *gorm.DB
	fixture    gradedFixture
	submission models.Submission
	svc        *gradingService
	events     *recordingPublisher
	stats      *recordingInvalidator
	activity   *memoryActivityRepo
}

func newGradingHarness(t *testing.T) gradingHarness {
	t.Helper()
	db := setupServiceDB(t)
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	fixture := seedGradedAssignment(t, db, now.Add(time.Hour))

	submissions, _, _ := newTestSubmissionService(db, now)
	result, err := submissions.SubmitAssignment(context.Background(), 42, fixture.assignment.ID, fixture.answers("B", "FALSE", "Closures capture scope."))
	require.NoError(t, err)
	require.InDelta(t, 10.0, result.Score, 0.001)

	submission, err := repository.NewSubmissionRepository(db).GetByID(context.Background(), result.SubmissionID)
	require.NoError(t, err)

	events := &recordingPublisher{}
	stats := &recordingInvalidator{}
	activityRepo := &memoryActivityRepo{}
	svc := NewGradingService(repository.NewStore(db), testValidator(), NewActivityService(activityRepo, testLogger()), events, stats, testLogger()).(*gradingService)
	svc.now = fixedClock(now.Add(2 * time.Hour))

	return gradingHarness{
		db:         db,
		fixture:    fixture,
		submission: submission,
		svc:        svc,
		events:     events,
		stats:      stats,
		activity:   activityRepo,
	}
}

func (h gradingHarness) detailFor(t *testing.T, questionID uint) models.SubmissionDetail {
	t.Helper()
	for _, detail := range h.submission.Details {
		if detail.QuestionID == questionID {
			return detail
		}
	}
	t.Fatalf("no detail for question %d", questionID)
	return models.SubmissionDetail{}
}

func (h gradingHarness) reload(t *testing.T) models.Submission {
	t.Helper()
	submission, err := repository.NewSubmissionRepository(h.db).GetByID(context.Background(), h.submission.ID)
	require.NoError(t, err)
	return submission
}

func TestApplyGradesRecomputesTotal(t *testing.T) {
	h := newGradingHarness(t)
	essay := h.detailFor(t, h.fixture.essay.ID)

	response, err := h.svc.ApplyGrades(context.Background(), teacherActor, h.submission.ID, dto.ApplyGradesRequest{
		Grades: []dto.GradeInput{{DetailID: essay.ID, Score: 7.5, Feedback: "<b>Good</b> example"}},
	})
	require.NoError(t, err)
	require.True(t, response.Success)
	require.InDelta(t, 17.5, response.NewTotalScore, 0.001)
	require.Equal(t, models.SubmissionStatusGraded, response.Status)

	stored := h.reload(t)
	require.Equal(t, models.SubmissionStatusGraded, stored.Status)
	require.InDelta(t, 17.5, stored.TotalScore, 0.001)
	require.NotNil(t, stored.GradedBy)
	require.Equal(t, testTeacherID, *stored.GradedBy)
	require.NotNil(t, stored.GradedAt)

	var sum float64
	for _, detail := range stored.Details {
		sum += detail.Score
		if detail.ID == essay.ID {
			require.Equal(t, "Good example", detail.Feedback)
		}
	}
	require.InDelta(t, stored.TotalScore, sum, 0.001)

	var history []models.SubmissionGradeHistory
	require.NoError(t, h.db.Find(&history).Error)
	require.Len(t, history, 1)
	require.InDelta(t, 0.0, history[0].PreviousScore, 0.001)
	require.InDelta(t, 7.5, history[0].Score, 0.001)

	require.Len(t, h.activity.entries, 1)
	require.Equal(t, "submission.graded", h.activity.entries[0].Action)

	published := h.events.published()
	require.Len(t, published, 1)
	require.Equal(t, dto.GradingEventSubmissionGraded, published[0].Type)
	require.InDelta(t, 17.5, published[0].TotalScore, 0.001)
	require.Len(t, h.stats.keys, 1)
}

func TestApplyGradesIsIdempotent(t *testing.T) {
	h := newGradingHarness(t)
	essay := h.detailFor(t, h.fixture.essay.ID)
	request := dto.ApplyGradesRequest{Grades: []dto.GradeInput{{DetailID: essay.ID, Score: 12}}}

	first, err := h.svc.ApplyGrades(context.Background(), teacherActor, h.submission.ID, request)
	require.NoError(t, err)
	second, err := h.svc.ApplyGrades(context.Background(), teacherActor, h.submission.ID, request)
	require.NoError(t, err)

	require.InDelta(t, first.NewTotalScore, second.NewTotalScore, 0.001)
	require.InDelta(t, 22.0, h.reload(t).TotalScore, 0.001)
}

func TestApplyGradesOverridesAutoScore(t *testing.T) {
	h := newGradingHarness(t)
	truth := h.detailFor(t, h.fixture.truth.ID)
	choice := h.detailFor(t, h.fixture.choice.ID)

	response, err := h.svc.ApplyGrades(context.Background(), adminActor, h.submission.ID, dto.ApplyGradesRequest{
		Grades: []dto.GradeInput{
			{DetailID: truth.ID, Score: 2.5},
			{DetailID: choice.ID, Score: 0},
		},
	})
	require.NoError(t, err)
	require.InDelta(t, 2.5, response.NewTotalScore, 0.001)
}

func TestApplyGradesAllowsScoreAboveWeight(t *testing.T) {
	h := newGradingHarness(t)
	essay := h.detailFor(t, h.fixture.essay.ID)

	response, err := h.svc.ApplyGrades(context.Background(), teacherActor, h.submission.ID, dto.ApplyGradesRequest{
		Grades: []dto.GradeInput{{DetailID: essay.ID, Score: 25}},
	})
	require.NoError(t, err)
	require.InDelta(t, 35.0, response.NewTotalScore, 0.001)
}

func TestApplyGradesRejectedBatchLeavesStateUntouched(t *testing.T) {
	h := newGradingHarness(t)
	essay := h.detailFor(t, h.fixture.essay.ID)

	other := models.Submission{
		StudentID:   43,
		SourceKind:  models.SourceKindAssignment,
		SourceID:    h.fixture.assignment.ID,
		Status:      models.SubmissionStatusSubmitted,
		SubmittedAt: time.Now(),
	}
	require.NoError(t, h.db.Omit("Details").Create(&other).Error)
	foreign := models.SubmissionDetail{SubmissionID: other.ID, QuestionID: h.fixture.essay.ID, Answer: "x"}
	require.NoError(t, h.db.Omit("Question").Create(&foreign).Error)

	_, err := h.svc.ApplyGrades(context.Background(), teacherActor, h.submission.ID, dto.ApplyGradesRequest{
		Grades: []dto.GradeInput{
			{DetailID: essay.ID, Score: 15},
			{DetailID: foreign.ID, Score: 3},
		},
	})
	require.ErrorIs(t, err, ErrDetailNotFound)

	stored := h.reload(t)
	require.Equal(t, models.SubmissionStatusSubmitted, stored.Status)
	require.InDelta(t, 10.0, stored.TotalScore, 0.001)
	for _, detail := range stored.Details {
		if detail.ID == essay.ID {
			require.Zero(t, detail.Score)
		}
	}
	require.Equal(t, int64(0), countRows(t, h.db, &models.SubmissionGradeHistory{}))
	require.Empty(t, h.events.published())
	require.Empty(t, h.activity.entries)
}

func TestApplyGradesRejectsScoresBeyondColumnRange(t *testing.T) {
	h := newGradingHarness(t)
	essay := h.detailFor(t, h.fixture.essay.ID)

	_, err := h.svc.ApplyGrades(context.Background(), teacherActor, h.submission.ID, dto.ApplyGradesRequest{
		Grades: []dto.GradeInput{{DetailID: essay.ID, Score: 1e9}},
	})
	require.Error(t, err)
	require.True(t, isValidatorError(err))
	require.Equal(t, "validation", rejectionReason(err))

	_, err = h.svc.ApplyGrades(context.Background(), teacherActor, h.submission.ID, dto.ApplyGradesRequest{
		Grades: []dto.GradeInput{{DetailID: essay.ID, Score: models.MaxScore}},
	})
	require.ErrorIs(t, err, ErrScoreOutOfRange)
	require.ErrorIs(t, err, ErrValidation)

	stored := h.reload(t)
	require.Equal(t, models.SubmissionStatusSubmitted, stored.Status)
	require.InDelta(t, 10.0, stored.TotalScore, 0.001)
	for _, detail := range stored.Details {
		if detail.ID == essay.ID {
			require.Zero(t, detail.Score)
		}
	}
	require.Equal(t, int64(0), countRows(t, h.db, &models.SubmissionGradeHistory{}))
	require.Empty(t, h.events.published())
}

func TestApplyGradesValidationAndPermissions(t *testing.T) {
	h := newGradingHarness(t)
	essay := h.detailFor(t, h.fixture.essay.ID)
	valid := dto.ApplyGradesRequest{Grades: []dto.GradeInput{{DetailID: essay.ID, Score: 5}}}

	_, err := h.svc.ApplyGrades(context.Background(), teacherActor, h.submission.ID, dto.ApplyGradesRequest{
		Grades: []dto.GradeInput{{DetailID: essay.ID, Score: -1}},
	})
	require.ErrorIs(t, err, ErrNegativeScore)
	require.ErrorIs(t, err, ErrValidation)

	_, err = h.svc.ApplyGrades(context.Background(), teacherActor, h.submission.ID, dto.ApplyGradesRequest{})
	require.ErrorIs(t, err, ErrEmptyGrades)

	_, err = h.svc.ApplyGrades(context.Background(), teacherActor, h.submission.ID, dto.ApplyGradesRequest{
		Grades: []dto.GradeInput{{DetailID: essay.ID, Score: 1}, {DetailID: essay.ID, Score: 2}},
	})
	require.ErrorIs(t, err, ErrDuplicateGrade)

	_, err = h.svc.ApplyGrades(context.Background(), Actor{ID: 42, Role: RoleStudent}, h.submission.ID, valid)
	require.ErrorIs(t, err, ErrStudentCannotGrade)
	require.ErrorIs(t, err, ErrPermission)

	_, err = h.svc.ApplyGrades(context.Background(), otherTeacher, h.submission.ID, valid)
	require.ErrorIs(t, err, ErrNotSourceOwner)

	_, err = h.svc.ApplyGrades(context.Background(), teacherActor, 9999, valid)
	require.ErrorIs(t, err, ErrSubmissionNotFound)

	stored := h.reload(t)
	require.Equal(t, models.SubmissionStatusSubmitted, stored.Status)
	require.InDelta(t, 10.0, stored.TotalScore, 0.001)
}
