package service

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-grading-api/internal/dto"
	"github.com/noah-isme/gema-grading-api/internal/models"
	"github.com/noah-isme/gema-grading-api/internal/repository"
)

func newTestSubmissionService(db *gorm.DB, now time.Time) (*submissionService, *recordingPublisher, *recordingInvalidator) {
	events := &recordingPublisher{}
	stats := &recordingInvalidator{}
	svc := NewSubmissionService(repository.NewStore(db), testValidator(), events, stats, testLogger()).(*submissionService)
	svc.now = fixedClock(now)
	return svc, events, stats
}

func TestSubmitAutoGradesObjectiveItems(t *testing.T) {
	db := setupServiceDB(t)
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	fixture := seedGradedAssignment(t, db, now.Add(time.Hour))
	svc, events, stats := newTestSubmissionService(db, now)

	payload := fixture.answers(" b ", "false", "A closure captures variables.")
	payload.Answers = append(payload.Answers, dto.AnswerInput{QuestionID: 9999, Answer: "stray"})

	result, err := svc.SubmitAssignment(context.Background(), 42, fixture.assignment.ID, payload)
	require.NoError(t, err)
	require.InDelta(t, 10.0, result.Score, 0.001)
	require.Equal(t, 1, result.DroppedAnswers)
	require.Equal(t, models.SubmissionStatusSubmitted, result.Status)

	stored, err := repository.NewSubmissionRepository(db).GetByID(context.Background(), result.SubmissionID)
	require.NoError(t, err)
	require.Len(t, stored.Details, 3)
	require.InDelta(t, 10.0, stored.TotalScore, 0.001)

	byQuestion := map[uint]models.SubmissionDetail{}
	for _, detail := range stored.Details {
		byQuestion[detail.QuestionID] = detail
	}
	require.NotNil(t, byQuestion[fixture.choice.ID].IsCorrect)
	require.True(t, *byQuestion[fixture.choice.ID].IsCorrect)
	require.NotNil(t, byQuestion[fixture.truth.ID].IsCorrect)
	require.False(t, *byQuestion[fixture.truth.ID].IsCorrect)
	require.Nil(t, byQuestion[fixture.essay.ID].IsCorrect)
	require.Zero(t, byQuestion[fixture.essay.ID].Score)

	published := events.published()
	require.Len(t, published, 1)
	require.Equal(t, dto.GradingEventSubmissionCreated, published[0].Type)
	require.Equal(t, result.SubmissionID, published[0].SubmissionID)
	require.Equal(t, []string{statsCacheKey(models.SourceKindAssignment, fixture.assignment.ID)}, stats.keys)
}

func TestSubmitRejectsSecondSubmission(t *testing.T) {
	db := setupServiceDB(t)
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	fixture := seedGradedAssignment(t, db, now.Add(time.Hour))
	svc, _, _ := newTestSubmissionService(db, now)

	_, err := svc.SubmitAssignment(context.Background(), 42, fixture.assignment.ID, fixture.answers("B", "TRUE", ""))
	require.NoError(t, err)

	_, err = svc.SubmitAssignment(context.Background(), 42, fixture.assignment.ID, fixture.answers("A", "TRUE", ""))
	require.ErrorIs(t, err, ErrAlreadySubmitted)
	require.ErrorIs(t, err, ErrConflict)
	require.Equal(t, int64(1), countRows(t, db, &models.Submission{}))
	require.Equal(t, int64(3), countRows(t, db, &models.SubmissionDetail{}))
}

type ownerLookupMissStore struct {
	repository.Store
}

func (s ownerLookupMissStore) Submissions() repository.SubmissionRepository {
	return ownerLookupMissSubmissions{SubmissionRepository: s.Store.Submissions()}
}

func (s ownerLookupMissStore) Transaction(ctx context.Context, fn func(tx repository.Store) error) error {
	return s.Store.Transaction(ctx, func(tx repository.Store) error {
		return fn(ownerLookupMissStore{Store: tx})
	})
}

type ownerLookupMissSubmissions struct {
	repository.SubmissionRepository
}

func (ownerLookupMissSubmissions) FindByOwner(ctx context.Context, studentID uint, kind models.SourceKind, sourceID uint) (models.Submission, error) {
	return models.Submission{}, gorm.ErrRecordNotFound
}

func TestSubmitMapsUniqueConstraintToConflict(t *testing.T) {
	db := setupServiceDB(t)
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	fixture := seedGradedAssignment(t, db, now.Add(time.Hour))

	existing := models.Submission{
		StudentID:   42,
		SourceKind:  models.SourceKindAssignment,
		SourceID:    fixture.assignment.ID,
		Status:      models.SubmissionStatusSubmitted,
		SubmittedAt: now,
	}
	require.NoError(t, db.Omit("Details").Create(&existing).Error)

	svc := NewSubmissionService(ownerLookupMissStore{Store: repository.NewStore(db)}, testValidator(), nil, nil, testLogger()).(*submissionService)
	svc.now = fixedClock(now)

	_, err := svc.SubmitAssignment(context.Background(), 42, fixture.assignment.ID, fixture.answers("B", "TRUE", ""))
	require.ErrorIs(t, err, ErrAlreadySubmitted)
	require.Equal(t, int64(1), countRows(t, db, &models.Submission{}))
	require.Equal(t, int64(0), countRows(t, db, &models.SubmissionDetail{}))
}

func TestSubmitRejectsAnswersForUnlinkedQuestionsOnly(t *testing.T) {
	db := setupServiceDB(t)
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	fixture := seedGradedAssignment(t, db, now.Add(time.Hour))
	svc, events, _ := newTestSubmissionService(db, now)
	var logs bytes.Buffer
	svc.logger = zerolog.New(&logs)

	stray := dto.SubmitAnswersRequest{Answers: []dto.AnswerInput{{QuestionID: 9999, Answer: "stray"}}}
	_, err := svc.SubmitAssignment(context.Background(), 42, fixture.assignment.ID, stray)
	require.ErrorIs(t, err, ErrEmptyAnswers)
	require.ErrorIs(t, err, ErrValidation)
	require.Equal(t, int64(0), countRows(t, db, &models.Submission{}))
	require.Equal(t, int64(0), countRows(t, db, &models.SubmissionDetail{}))
	require.Empty(t, events.published())
	require.Contains(t, logs.String(), `"submission_id"`)
	require.Contains(t, logs.String(), `"question_id":9999`)

	resp, err := svc.SubmitAssignment(context.Background(), 42, fixture.assignment.ID, fixture.answers("B", "TRUE", "essay"))
	require.NoError(t, err)
	require.NotZero(t, resp.SubmissionID)
	require.Equal(t, int64(1), countRows(t, db, &models.Submission{}))
}

func TestSubmitConcurrentAttemptsKeepOneHeader(t *testing.T) {
	db := setupServiceDB(t)
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	fixture := seedGradedAssignment(t, db, now.Add(time.Hour))
	svc, _, _ := newTestSubmissionService(db, now)

	const attempts = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		failures  []error
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.SubmitAssignment(context.Background(), 42, fixture.assignment.ID, fixture.answers("B", "TRUE", "essay"))
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
				return
			}
			failures = append(failures, err)
		}()
	}
	wg.Wait()

	require.Equal(t, 1, successes)
	require.Len(t, failures, attempts-1)
	for _, err := range failures {
		require.ErrorIs(t, err, ErrAlreadySubmitted)
	}
	require.Equal(t, int64(1), countRows(t, db, &models.Submission{}))
	require.Equal(t, int64(3), countRows(t, db, &models.SubmissionDetail{}))
}

func TestSubmitDeadlineBoundary(t *testing.T) {
	db := setupServiceDB(t)
	due := time.Date(2024, 3, 1, 23, 59, 0, 0, time.UTC)
	fixture := seedGradedAssignment(t, db, due)

	late, _, _ := newTestSubmissionService(db, due.Add(time.Second))
	_, err := late.SubmitAssignment(context.Background(), 1, fixture.assignment.ID, fixture.answers("B", "TRUE", ""))
	require.ErrorIs(t, err, ErrDeadlinePassed)
	require.ErrorIs(t, err, ErrDeadline)
	require.Equal(t, int64(0), countRows(t, db, &models.Submission{}))

	onTime, _, _ := newTestSubmissionService(db, due.Add(-time.Second))
	_, err = onTime.SubmitAssignment(context.Background(), 2, fixture.assignment.ID, fixture.answers("B", "TRUE", ""))
	require.NoError(t, err)

	exact, _, _ := newTestSubmissionService(db, due)
	_, err = exact.SubmitAssignment(context.Background(), 3, fixture.assignment.ID, fixture.answers("B", "TRUE", ""))
	require.NoError(t, err)
}

func TestSubmitExamWindow(t *testing.T) {
	db := setupServiceDB(t)
	start := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	exam := models.Exam{Title: "Midterm", StartTime: start, DurationMinutes: 60, CreatedBy: testTeacherID}
	require.NoError(t, repository.NewExamRepository(db).Create(context.Background(), &exam, nil))
	question := models.Question{Type: models.QuestionTypeSingleChoice, Content: "Pick", Answer: "C", CreatedBy: testTeacherID}
	require.NoError(t, db.Create(&question).Error)
	require.NoError(t, repository.NewQuestionRepository(db).ReplaceLinks(context.Background(), models.SourceKindExam, exam.ID, []models.QuestionLink{
		{QuestionID: question.ID, Weight: 4, Position: 1},
	}))
	payload := dto.SubmitAnswersRequest{Answers: []dto.AnswerInput{{QuestionID: question.ID, Answer: "c"}}}

	early, _, _ := newTestSubmissionService(db, start.Add(-time.Minute))
	_, err := early.SubmitExam(context.Background(), 1, exam.ID, payload)
	require.ErrorIs(t, err, ErrExamNotStarted)

	ended, _, _ := newTestSubmissionService(db, start.Add(61*time.Minute))
	_, err = ended.SubmitExam(context.Background(), 1, exam.ID, payload)
	require.ErrorIs(t, err, ErrExamEnded)
	require.Equal(t, int64(0), countRows(t, db, &models.Submission{}))

	open, _, _ := newTestSubmissionService(db, start.Add(60*time.Minute))
	result, err := open.SubmitExam(context.Background(), 1, exam.ID, payload)
	require.NoError(t, err)
	require.InDelta(t, 4.0, result.Score, 0.001)
}

func TestSubmitValidation(t *testing.T) {
	db := setupServiceDB(t)
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	fixture := seedGradedAssignment(t, db, now.Add(time.Hour))
	svc, events, _ := newTestSubmissionService(db, now)

	_, err := svc.SubmitAssignment(context.Background(), 1, fixture.assignment.ID, dto.SubmitAnswersRequest{})
	require.ErrorIs(t, err, ErrEmptyAnswers)
	require.ErrorIs(t, err, ErrValidation)

	duplicate := dto.SubmitAnswersRequest{Answers: []dto.AnswerInput{
		{QuestionID: fixture.choice.ID, Answer: "A"},
		{QuestionID: fixture.choice.ID, Answer: "B"},
	}}
	_, err = svc.SubmitAssignment(context.Background(), 1, fixture.assignment.ID, duplicate)
	require.ErrorIs(t, err, ErrDuplicateAnswer)

	_, err = svc.Submit(context.Background(), 1, models.SourceKind("quiz"), fixture.assignment.ID, fixture.answers("B", "TRUE", ""))
	require.ErrorIs(t, err, ErrInvalidSourceKind)

	require.Empty(t, events.published())
	require.Equal(t, int64(0), countRows(t, db, &models.Submission{}))
}

func TestSubmitUnknownOrEmptySource(t *testing.T) {
	db := setupServiceDB(t)
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	svc, _, _ := newTestSubmissionService(db, now)
	payload := dto.SubmitAnswersRequest{Answers: []dto.AnswerInput{{QuestionID: 1, Answer: "A"}}}

	_, err := svc.SubmitAssignment(context.Background(), 1, 404, payload)
	require.ErrorIs(t, err, ErrSourceNotFound)

	bare := models.Assignment{Title: "No questions", DueDate: now.Add(time.Hour), CreatedBy: testTeacherID}
	require.NoError(t, db.Create(&bare).Error)
	_, err = svc.SubmitAssignment(context.Background(), 1, bare.ID, payload)
	require.ErrorIs(t, err, ErrSourceNotFound)
	require.ErrorIs(t, err, ErrNotFound)
	require.Equal(t, int64(0), countRows(t, db, &models.Submission{}))
}

func TestSubmissionStatus(t *testing.T) {
	db := setupServiceDB(t)
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	fixture := seedGradedAssignment(t, db, now.Add(time.Hour))
	svc, _, _ := newTestSubmissionService(db, now)

	status, err := svc.Status(context.Background(), 42, models.SourceKindAssignment, fixture.assignment.ID)
	require.NoError(t, err)
	require.Equal(t, dto.SubmissionStatusNotSubmitted, status.Status)
	require.Nil(t, status.SubmissionID)

	result, err := svc.SubmitAssignment(context.Background(), 42, fixture.assignment.ID, fixture.answers("B", "TRUE", ""))
	require.NoError(t, err)

	status, err = svc.Status(context.Background(), 42, models.SourceKindAssignment, fixture.assignment.ID)
	require.NoError(t, err)
	require.Equal(t, models.SubmissionStatusSubmitted, status.Status)
	require.NotNil(t, status.SubmissionID)
	require.Equal(t, result.SubmissionID, *status.SubmissionID)
	require.InDelta(t, 15.0, *status.TotalScore, 0.001)

	_, err = svc.Status(context.Background(), 42, models.SourceKindExam, 404)
	require.ErrorIs(t, err, ErrSourceNotFound)
}

func TestGetSubmissionAccess(t *testing.T) {
	db := setupServiceDB(t)
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	fixture := seedGradedAssignment(t, db, now.Add(time.Hour))
	svc, _, _ := newTestSubmissionService(db, now)

	result, err := svc.SubmitAssignment(context.Background(), 42, fixture.assignment.ID, fixture.answers("B", "TRUE", ""))
	require.NoError(t, err)

	owned, err := svc.Get(context.Background(), Actor{ID: 42, Role: RoleStudent}, result.SubmissionID)
	require.NoError(t, err)
	require.Len(t, owned.Details, 3)

	_, err = svc.Get(context.Background(), Actor{ID: 43, Role: RoleStudent}, result.SubmissionID)
	require.ErrorIs(t, err, ErrNotSubmissionOwner)

	_, err = svc.Get(context.Background(), otherTeacher, result.SubmissionID)
	require.ErrorIs(t, err, ErrNotSourceOwner)

	_, err = svc.Get(context.Background(), teacherActor, result.SubmissionID)
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), adminActor, result.SubmissionID)
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), adminActor, 9999)
	require.ErrorIs(t, err, ErrSubmissionNotFound)
}
