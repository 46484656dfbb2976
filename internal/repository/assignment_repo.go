package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-grading-api/internal/models"
)

// AssignmentFilter narrows the staff assignment listing. Sort takes a column
// name with an optional leading "-" for descending order.
type AssignmentFilter struct {
	CreatedBy *uint
	Search    string
	Sort      string
	Page      int
	PageSize  int
}

var assignmentSortColumns = map[string]string{
	"due_date":   "due_date",
	"title":      "title",
	"created_at": "created_at",
	"updated_at": "updated_at",
}

func (f AssignmentFilter) orderClause() string {
	key := strings.ToLower(strings.TrimSpace(f.Sort))
	direction := "ASC"
	if strings.HasPrefix(key, "-") {
		key, direction = key[1:], "DESC"
	}
	column, ok := assignmentSortColumns[key]
	if !ok {
		column, direction = "due_date", "ASC"
	}
	return column + " " + direction + ", id ASC"
}

// AssignmentRepository persists assignments and their class distribution.
type AssignmentRepository interface {
	List(ctx context.Context, filter AssignmentFilter) ([]models.Assignment, int64, error)
	GetByID(ctx context.Context, id uint) (models.Assignment, error)
	Create(ctx context.Context, assignment *models.Assignment, classIDs []uint) error
}

type assignmentRepository struct {
	db *gorm.DB
}

// NewAssignmentRepository instantiates a GORM-backed repository.
func NewAssignmentRepository(db *gorm.DB) AssignmentRepository {
	return &assignmentRepository{db: db}
}

func (r *assignmentRepository) List(ctx context.Context, filter AssignmentFilter) ([]models.Assignment, int64, error) {
	base := r.db.WithContext(ctx).Model(&models.Assignment{})
	if filter.CreatedBy != nil {
		base = base.Where("created_by = ?", *filter.CreatedBy)
	}
	if term := strings.ToLower(strings.TrimSpace(filter.Search)); term != "" {
		like := "%" + term + "%"
		base = base.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", like, like)
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := base.Order(filter.orderClause())
	if filter.PageSize > 0 {
		offset := 0
		if filter.Page > 1 {
			offset = (filter.Page - 1) * filter.PageSize
		}
		page = page.Offset(offset).Limit(filter.PageSize)
	}

	var assignments []models.Assignment
	if err := page.Find(&assignments).Error; err != nil {
		return nil, 0, err
	}
	return assignments, total, nil
}

func (r *assignmentRepository) GetByID(ctx context.Context, id uint) (models.Assignment, error) {
	var assignment models.Assignment
	err := r.db.WithContext(ctx).First(&assignment, id).Error
	return assignment, err
}

// Create stores the assignment and distributes it to the given classes in one
// transaction.
func (r *assignmentRepository) Create(ctx context.Context, assignment *models.Assignment, classIDs []uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(assignment).Error; err != nil {
			return err
		}
		return createDistribution(tx, models.SourceKindAssignment, assignment.ID, classIDs)
	})
}
