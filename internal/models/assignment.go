package models

import "time"

// Assignment is homework that accepts submissions up to and including its
// due date.
type Assignment struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"size:255;not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	CourseID    uint      `gorm:"index" json:"course_id"`
	DueDate     time.Time `gorm:"not null;index" json:"due_date"`
	CreatedBy   uint      `gorm:"not null;index" json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ClosedAt reports whether the deadline lies strictly before now.
func (a Assignment) ClosedAt(now time.Time) bool {
	return now.After(a.DueDate)
}
