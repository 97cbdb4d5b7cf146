package repository

import (
	"fmt"
	"strings"

	"github.com/taskly/taskly-api/internal/database"
	"github.com/taskly/taskly-api/internal/models"
	"gorm.io/gorm"
)

// GormTaskRepository is a GORM implementation of TaskRepository
type GormTaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &GormTaskRepository{db: db}
}

// Create creates a new task
func (r *GormTaskRepository) Create(task *models.Task) error {
	return r.db.Create(task).Error
}

// FindByID finds a task by ID
func (r *GormTaskRepository) FindByID(id string) (*models.Task, error) {
	var task models.Task
	if err := r.db.Where("id = ?", id).First(&task).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// List retrieves one user's tasks with filtering and optional pagination
func (r *GormTaskRepository) List(filter TaskFilter) ([]models.Task, error) {
	tasks := []models.Task{}

	query := r.db.Model(&models.Task{}).Scopes(database.OwnedBy(filter.UserID))

	// Apply filters
	if filter.Status != nil {
		query = query.Where("tasks.status = ?", *filter.Status)
	}
	if filter.Priority != nil {
		query = query.Where("tasks.priority = ?", *filter.Priority)
	}
	if filter.DueDateFrom != nil {
		query = query.Where("tasks.due_date >= ?", *filter.DueDateFrom)
	}
	if filter.DueDateTo != nil {
		query = query.Where("tasks.due_date < ?", *filter.DueDateTo)
	}

	direction := "DESC"
	if filter.Ascending {
		direction = "ASC"
	}

	switch filter.SortBy {
	case SortByDueDate:
		// Tasks without a due date always sort last.
		query = query.Order("CASE WHEN tasks.due_date IS NULL THEN 1 ELSE 0 END").
			Order("tasks.due_date " + direction)
	case SortByPriority:
		query = query.Order(priorityRankExpr() + " " + direction)
	default:
		query = query.Order("tasks.created_at " + direction)
	}
	// Stable tie-break so equal keys keep newest-first order.
	query = query.Order("tasks.created_at DESC").Order("tasks.id")

	if err := query.Scopes(database.Paginate(filter.Pagination)).Find(&tasks).Error; err != nil {
		return nil, err
	}

	return tasks, nil
}

// Update updates a task
func (r *GormTaskRepository) Update(task *models.Task) error {
	return r.db.Save(task).Error
}

// Delete permanently removes a task
func (r *GormTaskRepository) Delete(id string) error {
	result := r.db.Where("id = ?", id).Delete(&models.Task{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// priorityRankExpr maps the priority column onto models.TaskPriority.Rank.
func priorityRankExpr() string {
	var b strings.Builder
	b.WriteString("CASE tasks.priority")
	for _, p := range models.TaskPriorities {
		fmt.Fprintf(&b, " WHEN '%s' THEN %d", p, p.Rank())
	}
	b.WriteString(" ELSE 0 END")
	return b.String()
}
