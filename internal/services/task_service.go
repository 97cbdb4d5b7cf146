package services

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/taskly/taskly-api/internal/models"
	"github.com/taskly/taskly-api/internal/repository"
	"github.com/taskly/taskly-api/internal/utils"
	"gorm.io/gorm"
)

var (
	ErrTaskNotFound    = errors.New("task not found")
	ErrTaskForbidden   = errors.New("user not authorized to access this task")
	ErrTitleRequired   = errors.New("title is required")
	ErrTitleEmpty      = errors.New("title cannot be empty")
	ErrInvalidStatus   = errors.New("status must be one of: pending, completed")
	ErrInvalidPriority = errors.New("priority must be one of: low, medium, high")
	ErrInvalidSort     = errors.New("sort must be one of: createdAt, dueDate, priority")
	ErrInvalidDueRange = errors.New("dueFrom must be before dueTo")
)

// TaskService handles task business logic. Every operation is scoped to
// the user id passed in by the caller.
type TaskService struct {
	taskRepo repository.TaskRepository
	now      func() time.Time
}

// NewTaskService creates a new TaskService
func NewTaskService(taskRepo repository.TaskRepository) *TaskService {
	return &TaskService{
		taskRepo: taskRepo,
		now:      time.Now,
	}
}

// CreateTaskInput represents input for creating a task
type CreateTaskInput struct {
	Title       string
	Description string
	Status      models.TaskStatus
	Priority    models.TaskPriority
	DueDate     *time.Time
	Reminders   []time.Time
}

// UpdateTaskInput carries only the fields present in the request
type UpdateTaskInput struct {
	Title        *string
	Description  *string
	Status       *models.TaskStatus
	Priority     *models.TaskPriority
	DueDate      *time.Time
	ClearDueDate bool
	Reminders    *[]time.Time
}

// HasChanges reports whether any recognized field was supplied.
func (in UpdateTaskInput) HasChanges() bool {
	return in.Title != nil ||
		in.Description != nil ||
		in.Status != nil ||
		in.Priority != nil ||
		in.DueDate != nil ||
		in.ClearDueDate ||
		in.Reminders != nil
}

// ListTasksInput represents optional filters for listing tasks. DueFrom
// is inclusive and DueTo exclusive; tasks without a due date never match
// a due range.
type ListTasksInput struct {
	UserID     string
	Status     *models.TaskStatus
	Priority   *models.TaskPriority
	DueFrom    *time.Time
	DueTo      *time.Time
	SortBy     string
	Ascending  bool
	Pagination utils.PaginationParams
}

// CreateTask validates input, applies defaults and persists a task owned by userID
func (s *TaskService) CreateTask(userID string, input CreateTaskInput) (*models.Task, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}

	status := input.Status
	if status == "" {
		status = models.TaskStatusPending
	} else if !status.Valid() {
		return nil, ErrInvalidStatus
	}

	priority := input.Priority
	if priority == "" {
		priority = models.TaskPriorityMedium
	} else if !priority.Valid() {
		return nil, ErrInvalidPriority
	}

	task := &models.Task{
		UserID:      userID,
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		Status:      status,
		Priority:    priority,
		DueDate:     input.DueDate,
		Reminders:   input.Reminders,
	}

	if err := s.taskRepo.Create(task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	return task, nil
}

// ListTasks returns the caller's tasks, newest first unless another order is requested
func (s *TaskService) ListTasks(input ListTasksInput) ([]models.Task, error) {
	if input.Status != nil && !input.Status.Valid() {
		return nil, ErrInvalidStatus
	}
	if input.Priority != nil && !input.Priority.Valid() {
		return nil, ErrInvalidPriority
	}
	if input.DueFrom != nil && input.DueTo != nil && !input.DueFrom.Before(*input.DueTo) {
		return nil, ErrInvalidDueRange
	}
	switch input.SortBy {
	case "", repository.SortByCreatedAt, repository.SortByDueDate, repository.SortByPriority:
	default:
		return nil, ErrInvalidSort
	}

	tasks, err := s.taskRepo.List(repository.TaskFilter{
		UserID:      input.UserID,
		Status:      input.Status,
		Priority:    input.Priority,
		DueDateFrom: input.DueFrom,
		DueDateTo:   input.DueTo,
		SortBy:      input.SortBy,
		Ascending:   input.Ascending,
		Pagination:  input.Pagination,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	return tasks, nil
}

// GetTask returns a task if it exists and belongs to userID
func (s *TaskService) GetTask(userID, taskID string) (*models.Task, error) {
	task, err := s.taskRepo.FindByID(taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}

	if task.UserID != userID {
		return nil, ErrTaskForbidden
	}

	return task, nil
}

// UpdateTask applies the supplied fields to a task owned by userID. An
// input without recognized fields leaves the task, including its
// updated timestamp, untouched.
func (s *TaskService) UpdateTask(userID, taskID string, input UpdateTaskInput) (*models.Task, error) {
	task, err := s.GetTask(userID, taskID)
	if err != nil {
		return nil, err
	}

	if !input.HasChanges() {
		return task, nil
	}

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, ErrTitleEmpty
		}
		task.Title = title
	}
	if input.Description != nil {
		task.Description = strings.TrimSpace(*input.Description)
	}
	if input.Status != nil {
		if !input.Status.Valid() {
			return nil, ErrInvalidStatus
		}
		task.Status = *input.Status
	}
	if input.Priority != nil {
		if !input.Priority.Valid() {
			return nil, ErrInvalidPriority
		}
		task.Priority = *input.Priority
	}
	if input.ClearDueDate {
		task.DueDate = nil
	} else if input.DueDate != nil {
		task.DueDate = input.DueDate
	}
	if input.Reminders != nil {
		task.Reminders = *input.Reminders
	}

	if err := s.taskRepo.Update(task); err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	return task, nil
}

// DeleteTask removes a task owned by userID
func (s *TaskService) DeleteTask(userID, taskID string) error {
	if _, err := s.GetTask(userID, taskID); err != nil {
		return err
	}

	if err := s.taskRepo.Delete(taskID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTaskNotFound
		}
		return fmt.Errorf("failed to delete task: %w", err)
	}

	return nil
}

// DailyCompletions counts tasks completed on one UTC calendar day
type DailyCompletions struct {
	Date      string
	Completed int
}

// TaskStats summarizes a user's tasks for the analytics panel
type TaskStats struct {
	Total             int
	Completed         int
	Pending           int
	Overdue           int
	CompletionRate    float64
	ByPriority        map[models.TaskPriority]int
	CompletionsByDate []DailyCompletions
}

// Stats aggregates the caller's tasks. A completed task is attributed to
// the day of its last update.
func (s *TaskService) Stats(userID string) (*TaskStats, error) {
	tasks, err := s.taskRepo.List(repository.TaskFilter{UserID: userID})
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	now := s.now()
	stats := &TaskStats{
		Total: len(tasks),
		ByPriority: map[models.TaskPriority]int{
			models.TaskPriorityLow:    0,
			models.TaskPriorityMedium: 0,
			models.TaskPriorityHigh:   0,
		},
		CompletionsByDate: []DailyCompletions{},
	}

	perDay := map[string]int{}
	for _, task := range tasks {
		stats.ByPriority[task.Priority]++

		if task.Status == models.TaskStatusCompleted {
			stats.Completed++
			perDay[task.UpdatedAt.UTC().Format("2006-01-02")]++
			continue
		}

		stats.Pending++
		if task.DueDate != nil && task.DueDate.Before(now) {
			stats.Overdue++
		}
	}

	if stats.Total > 0 {
		rate := float64(stats.Completed) / float64(stats.Total) * 100
		stats.CompletionRate = math.Round(rate*100) / 100
	}

	for day, n := range perDay {
		stats.CompletionsByDate = append(stats.CompletionsByDate, DailyCompletions{Date: day, Completed: n})
	}
	sort.Slice(stats.CompletionsByDate, func(i, j int) bool {
		return stats.CompletionsByDate[i].Date < stats.CompletionsByDate[j].Date
	})

	return stats, nil
}
