package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-grading-api/internal/dto"
	"github.com/noah-isme/gema-grading-api/internal/models"
	"github.com/noah-isme/gema-grading-api/internal/repository"
)

const (
	testTeacherID = uint(7)
	testOtherID   = uint(8)
)

var (
	teacherActor = Actor{ID: testTeacherID, Role: RoleTeacher}
	otherTeacher = Actor{ID: testOtherID, Role: RoleTeacher}
	adminActor   = Actor{ID: 1, Role: RoleAdmin}
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func testValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func setupServiceDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

// gradedFixture is an assignment owned by testTeacherID with three linked
// questions: single choice (10 points), true/false (5) and essay (20).
type gradedFixture struct {
	assignment models.Assignment
	choice     models.Question
	truth      models.Question
	essay      models.Question
}

func seedGradedAssignment(t *testing.T, db *gorm.DB, due time.Time) gradedFixture {
	t.Helper()
	ctx := context.Background()

	fixture := gradedFixture{
		assignment: models.Assignment{Title: "Loops", DueDate: due, CreatedBy: testTeacherID},
		choice:     models.Question{Type: models.QuestionTypeSingleChoice, Content: "Pick one", Answer: "B", CreatedBy: testTeacherID},
		truth:      models.Question{Type: models.QuestionTypeTrueFalse, Content: "Go has generics", Answer: "TRUE", CreatedBy: testTeacherID},
		essay:      models.Question{Type: models.QuestionTypeEssay, Content: "Explain closures", CreatedBy: testTeacherID},
	}
	require.NoError(t, repository.NewAssignmentRepository(db).Create(ctx, &fixture.assignment, nil))
	for _, question := range []*models.Question{&fixture.choice, &fixture.truth, &fixture.essay} {
		require.NoError(t, db.Create(question).Error)
	}

	links := []models.QuestionLink{
		{QuestionID: fixture.choice.ID, Weight: 10, Position: 1},
		{QuestionID: fixture.truth.ID, Weight: 5, Position: 2},
		{QuestionID: fixture.essay.ID, Weight: 20, Position: 3},
	}
	require.NoError(t, repository.NewQuestionRepository(db).ReplaceLinks(ctx, models.SourceKindAssignment, fixture.assignment.ID, links))
	return fixture
}

func (f gradedFixture) answers(choice, truth, essay string) dto.SubmitAnswersRequest {
	return dto.SubmitAnswersRequest{Answers: []dto.AnswerInput{
		{QuestionID: f.choice.ID, Answer: choice},
		{QuestionID: f.truth.ID, Answer: truth},
		{QuestionID: f.essay.ID, Answer: essay},
	}}
}

func countRows(t *testing.T, db *gorm.DB, model interface{}) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Model(model).Count(&count).Error)
	return count
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []dto.GradingEvent
}

func (r *recordingPublisher) Publish(ctx context.Context, event dto.GradingEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingPublisher) published() []dto.GradingEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]dto.GradingEvent(nil), r.events...)
}

type recordingInvalidator struct {
	mu   sync.Mutex
	keys []string
}

func (r *recordingInvalidator) Invalidate(ctx context.Context, kind models.SourceKind, sourceID uint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys = append(r.keys, statsCacheKey(kind, sourceID))
}
