package dto

import (
	"time"

	"github.com/taskly/taskly-api/internal/models"
	"github.com/taskly/taskly-api/internal/services"
)

// TaskDTO represents a task in API responses
type TaskDTO struct {
	ID          string              `json:"id"`
	UserID      string              `json:"userId"`
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Status      models.TaskStatus   `json:"status"`
	Priority    models.TaskPriority `json:"priority"`
	DueDate     *time.Time          `json:"dueDate"`
	Reminders   []time.Time         `json:"reminders"`
	CreatedAt   time.Time           `json:"createdAt"`
	UpdatedAt   time.Time           `json:"updatedAt"`
}

// ToTaskDTO converts a Task model to TaskDTO
func ToTaskDTO(task models.Task) TaskDTO {
	reminders := task.Reminders
	if reminders == nil {
		reminders = []time.Time{}
	}

	return TaskDTO{
		ID:          task.ID,
		UserID:      task.UserID,
		Title:       task.Title,
		Description: task.Description,
		Status:      task.Status,
		Priority:    task.Priority,
		DueDate:     task.DueDate,
		Reminders:   reminders,
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.UpdatedAt,
	}
}

// ToTaskDTOs converts a slice of tasks, never returning nil
func ToTaskDTOs(tasks []models.Task) []TaskDTO {
	items := make([]TaskDTO, len(tasks))
	for i, task := range tasks {
		items[i] = ToTaskDTO(task)
	}
	return items
}

// DailyCompletionsDTO is one point of the completions chart
type DailyCompletionsDTO struct {
	Date      string `json:"date"`
	Completed int    `json:"completed"`
}

// TaskStatsDTO represents the analytics summary
type TaskStatsDTO struct {
	Total             int                         `json:"total"`
	Completed         int                         `json:"completed"`
	Pending           int                         `json:"pending"`
	Overdue           int                         `json:"overdue"`
	CompletionRate    float64                     `json:"completionRate"`
	ByPriority        map[models.TaskPriority]int `json:"byPriority"`
	CompletionsByDate []DailyCompletionsDTO       `json:"completionsByDate"`
}

// ToTaskStatsDTO converts service stats to their response shape
func ToTaskStatsDTO(stats services.TaskStats) TaskStatsDTO {
	days := make([]DailyCompletionsDTO, len(stats.CompletionsByDate))
	for i, day := range stats.CompletionsByDate {
		days[i] = DailyCompletionsDTO{Date: day.Date, Completed: day.Completed}
	}

	return TaskStatsDTO{
		Total:             stats.Total,
		Completed:         stats.Completed,
		Pending:           stats.Pending,
		Overdue:           stats.Overdue,
		CompletionRate:    stats.CompletionRate,
		ByPriority:        stats.ByPriority,
		CompletionsByDate: days,
	}
}

// SuggestionsDTO wraps generated sub-task titles
type SuggestionsDTO struct {
	Suggestions []string `json:"suggestions"`
}
