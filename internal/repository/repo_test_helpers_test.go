package repository

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-grading-api/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

func seedQuestion(t *testing.T, db *gorm.DB, qType models.QuestionType, answer string) models.Question {
	t.Helper()
	question := models.Question{Type: qType, Content: "Q", Answer: answer, CreatedBy: 1}
	require.NoError(t, db.Create(&question).Error)
	return question
}

func seedAssignment(t *testing.T, db *gorm.DB, classIDs ...uint) models.Assignment {
	t.Helper()
	assignment := models.Assignment{Title: "Homework", DueDate: time.Now().Add(time.Hour), CreatedBy: 7}
	require.NoError(t, NewAssignmentRepository(db).Create(context.Background(), &assignment, classIDs))
	return assignment
}
