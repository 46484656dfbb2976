package models

// All lists every persisted model in migration order.
func All() []interface{} {
	return []interface{}{
		&Student{},
		&Class{},
		&Enrollment{},
		&Assignment{},
		&Exam{},
		&SourceClass{},
		&Question{},
		&QuestionLink{},
		&Submission{},
		&SubmissionDetail{},
		&SubmissionGradeHistory{},
		&ActivityLog{},
	}
}
