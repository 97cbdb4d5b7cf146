package repository

import (
	"time"

	"github.com/taskly/taskly-api/internal/models"
	"github.com/taskly/taskly-api/internal/utils"
)

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	// Create creates a new task
	Create(task *models.Task) error

	// FindByID finds a task by ID regardless of owner
	FindByID(id string) (*models.Task, error)

	// List retrieves one user's tasks with filtering, ordering and pagination
	List(filter TaskFilter) ([]models.Task, error)

	// Update saves every column of the task
	Update(task *models.Task) error

	// Delete permanently removes a task
	Delete(id string) error
}

// Task sort keys accepted by TaskFilter.SortBy
const (
	SortByCreatedAt = "createdAt"
	SortByDueDate   = "dueDate"
	SortByPriority  = "priority"
)

// TaskFilter holds filtering options for listing tasks
type TaskFilter struct {
	UserID      string
	Status      *models.TaskStatus
	Priority    *models.TaskPriority
	DueDateFrom *time.Time
	DueDateTo   *time.Time
	SortBy      string
	Ascending   bool
	Pagination  utils.PaginationParams
}

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user
	Create(user *models.User) error

	// FindByID finds a user by ID
	FindByID(id string) (*models.User, error)

	// FindByUsername finds a user by username
	FindByUsername(username string) (*models.User, error)

	// FindByEmail finds a user by email
	FindByEmail(email string) (*models.User, error)

	// FindByIdentifier finds a user whose username or email equals identifier
	FindByIdentifier(identifier string) (*models.User, error)
}
