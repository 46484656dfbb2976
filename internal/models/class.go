package models

import "time"

// Class groups students under a teacher. Assignments and exams are
// distributed to classes, which in turn define the expected roster.
type Class struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	TeacherID uint      `gorm:"index" json:"teacher_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Student is a learner who submits answers.
type Student struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Email     string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Enrollment binds a student to a class.
type Enrollment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ClassID   uint      `gorm:"not null;uniqueIndex:idx_enrollment_member" json:"class_id"`
	StudentID uint      `gorm:"not null;uniqueIndex:idx_enrollment_member;index" json:"student_id"`
	CreatedAt time.Time `json:"created_at"`
}
