package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEvaluateExamStateWindow(t *testing.T) {
	start := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	require.Equal(t, ExamStateNotStarted, EvaluateExamState(start, 60, start.Add(-time.Minute)))
	require.Equal(t, ExamStateInProgress, EvaluateExamState(start, 60, start))
	require.Equal(t, ExamStateInProgress, EvaluateExamState(start, 60, start.Add(30*time.Minute)))
	require.Equal(t, ExamStateInProgress, EvaluateExamState(start, 60, start.Add(60*time.Minute)))
	require.Equal(t, ExamStateEnded, EvaluateExamState(start, 60, start.Add(61*time.Minute)))
}

func TestExamStateUsesEndTime(t *testing.T) {
	start := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	exam := Exam{StartTime: start, DurationMinutes: 45}

	require.Equal(t, start.Add(45*time.Minute), exam.EndTime())
	require.Equal(t, ExamStateEnded, exam.State(start.Add(45*time.Minute+time.Second)))
}

func TestAssignmentClosedAtBoundary(t *testing.T) {
	due := time.Date(2025, 3, 10, 23, 59, 0, 0, time.UTC)
	assignment := Assignment{DueDate: due}

	require.False(t, assignment.ClosedAt(due.Add(-time.Second)))
	require.False(t, assignment.ClosedAt(due))
	require.True(t, assignment.ClosedAt(due.Add(time.Second)))
}

func TestParseSourceKind(t *testing.T) {
	kind, ok := ParseSourceKind("Exams")
	require.True(t, ok)
	require.Equal(t, SourceKindExam, kind)

	kind, ok = ParseSourceKind(" assignment ")
	require.True(t, ok)
	require.Equal(t, SourceKindAssignment, kind)

	_, ok = ParseSourceKind("quiz")
	require.False(t, ok)
}

func TestQuestionTypeIsObjective(t *testing.T) {
	require.True(t, QuestionTypeSingleChoice.IsObjective())
	require.True(t, QuestionTypeMultipleChoice.IsObjective())
	require.True(t, QuestionTypeTrueFalse.IsObjective())
	require.False(t, QuestionTypeFillBlank.IsObjective())
	require.False(t, QuestionTypeEssay.IsObjective())
	require.False(t, QuestionTypeProgramming.IsObjective())
}
