package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/taskly/taskly-api/internal/dto"
	apierrors "github.com/taskly/taskly-api/internal/errors"
	"github.com/taskly/taskly-api/internal/middleware"
	"github.com/taskly/taskly-api/internal/models"
	"github.com/taskly/taskly-api/internal/services"
	"github.com/taskly/taskly-api/internal/utils"
)

const maxUpdateBodyBytes = 1 << 20

type TaskHandler struct {
	taskService       *services.TaskService
	suggestionService *services.SuggestionService
}

func NewTaskHandler(taskService *services.TaskService, suggestionService *services.SuggestionService) *TaskHandler {
	return &TaskHandler{
		taskService:       taskService,
		suggestionService: suggestionService,
	}
}

// ListTasks returns the current user's tasks, newest first.
// Optional filters: status, priority, dueFrom, dueTo, sort, order, page, limit.
func (h *TaskHandler) ListTasks(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	input := services.ListTasksInput{
		UserID:     userID,
		SortBy:     c.Query("sort"),
		Pagination: utils.GetPaginationParams(c),
	}
	if status, ok := c.GetQuery("status"); ok {
		s := models.TaskStatus(status)
		input.Status = &s
	}
	if priority, ok := c.GetQuery("priority"); ok {
		p := models.TaskPriority(priority)
		input.Priority = &p
	}
	for key, dst := range map[string]**time.Time{"dueFrom": &input.DueFrom, "dueTo": &input.DueTo} {
		value, ok := c.GetQuery(key)
		if !ok {
			continue
		}
		t, err := utils.ParseDueDate(value)
		if err != nil {
			apierrors.BadRequestWithDetails(c, "Invalid date filter", map[string]string{key: "RFC 3339 timestamp or YYYY-MM-DD"})
			return
		}
		*dst = &t
	}
	switch strings.ToLower(c.Query("order")) {
	case "", "desc":
	case "asc":
		input.Ascending = true
	default:
		apierrors.BadRequest(c, "order must be one of: asc, desc")
		return
	}

	tasks, err := h.taskService.ListTasks(input)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTOs(tasks))
}

// GetTask returns a specific task owned by the current user
func (h *TaskHandler) GetTask(c *gin.Context) {
	userID, taskID, ok := taskRequestIDs(c)
	if !ok {
		return
	}

	task, err := h.taskService.GetTask(userID, taskID)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

// CreateTask creates a new task
func (h *TaskHandler) CreateTask(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	type CreateTaskRequest struct {
		Title       string   `json:"title"`
		Description string   `json:"description"`
		Status      string   `json:"status"`
		Priority    string   `json:"priority"`
		DueDate     *string  `json:"dueDate"`
		Reminders   []string `json:"reminders"`
	}

	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	input := services.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		Status:      models.TaskStatus(req.Status),
		Priority:    models.TaskPriority(req.Priority),
	}
	if req.DueDate != nil && strings.TrimSpace(*req.DueDate) != "" {
		due, err := utils.ParseDueDate(*req.DueDate)
		if err != nil {
			apierrors.BadRequest(c, "dueDate must be an RFC 3339 timestamp or YYYY-MM-DD")
			return
		}
		input.DueDate = &due
	}
	reminders, err := parseReminders(req.Reminders)
	if err != nil {
		apierrors.BadRequest(c, err.Error())
		return
	}
	input.Reminders = reminders

	task, err := h.taskService.CreateTask(userID, input)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToTaskDTO(*task))
}

// UpdateTask applies the fields present in the body. An explicit
// "dueDate": null clears the due date. Ownership is checked before the
// body is read, so a foreign task yields 403 whatever the payload.
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	userID, taskID, ok := taskRequestIDs(c)
	if !ok {
		return
	}

	if _, err := h.taskService.GetTask(userID, taskID); err != nil {
		respondTaskError(c, err)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxUpdateBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			apierrors.BadRequest(c, "Request body too large")
			return
		}
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	input, err := parseUpdateTaskInput(body)
	if err != nil {
		apierrors.BadRequest(c, err.Error())
		return
	}

	task, err := h.taskService.UpdateTask(userID, taskID, input)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

// DeleteTask removes a task owned by the current user
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	userID, taskID, ok := taskRequestIDs(c)
	if !ok {
		return
	}

	if err := h.taskService.DeleteTask(userID, taskID); err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"msg":     "Task removed",
		"message": "Task removed",
	})
}

// GetStats returns completion analytics for the current user
func (h *TaskHandler) GetStats(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	stats, err := h.taskService.Stats(userID)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskStatsDTO(*stats))
}

// SuggestSubtasks asks the AI provider for sub-tasks of a main task title
func (h *TaskHandler) SuggestSubtasks(c *gin.Context) {
	type SuggestRequest struct {
		MainTaskTitle string `json:"mainTaskTitle"`
	}

	var req SuggestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	suggestions, err := h.suggestionService.Suggest(c.Request.Context(), req.MainTaskTitle)
	if err != nil {
		respondSuggestionError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SuggestionsDTO{Suggestions: suggestions})
}

func taskRequestIDs(c *gin.Context) (string, string, bool) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return "", "", false
	}
	taskID, exists := middleware.GetTaskID(c)
	if !exists {
		apierrors.NotFound(c, "Task not found")
		return "", "", false
	}
	return userID, taskID, true
}

// parseUpdateTaskInput decodes a partial update, recording which
// recognized fields were present. Unknown fields are ignored.
func parseUpdateTaskInput(body []byte) (services.UpdateTaskInput, error) {
	var input services.UpdateTaskInput
	if len(strings.TrimSpace(string(body))) == 0 {
		return input, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return input, errors.New("request body must be a JSON object")
	}

	if raw, ok := fields["title"]; ok {
		var title string
		if err := decodeField(raw, &title); err != nil {
			return input, fmt.Errorf("title must be a string")
		}
		input.Title = &title
	}
	if raw, ok := fields["description"]; ok {
		var description string
		if err := decodeField(raw, &description); err != nil {
			return input, fmt.Errorf("description must be a string")
		}
		input.Description = &description
	}
	if raw, ok := fields["status"]; ok {
		var status string
		if err := decodeField(raw, &status); err != nil {
			return input, services.ErrInvalidStatus
		}
		s := models.TaskStatus(status)
		input.Status = &s
	}
	if raw, ok := fields["priority"]; ok {
		var priority string
		if err := decodeField(raw, &priority); err != nil {
			return input, services.ErrInvalidPriority
		}
		p := models.TaskPriority(priority)
		input.Priority = &p
	}
	if raw, ok := fields["dueDate"]; ok {
		var value *string
		if err := json.Unmarshal(raw, &value); err != nil {
			return input, fmt.Errorf("dueDate must be a string or null")
		}
		if value == nil || strings.TrimSpace(*value) == "" {
			input.ClearDueDate = true
		} else {
			due, err := utils.ParseDueDate(*value)
			if err != nil {
				return input, fmt.Errorf("dueDate must be an RFC 3339 timestamp or YYYY-MM-DD")
			}
			input.DueDate = &due
		}
	}
	if raw, ok := fields["reminders"]; ok {
		var values []string
		if err := json.Unmarshal(raw, &values); err != nil {
			return input, fmt.Errorf("reminders must be an array of dates")
		}
		reminders, err := parseReminders(values)
		if err != nil {
			return input, err
		}
		if reminders == nil {
			reminders = []time.Time{}
		}
		input.Reminders = &reminders
	}

	return input, nil
}

// decodeField rejects JSON null so that a field cannot be cleared by
// sending null where a string is required.
func decodeField(raw json.RawMessage, dst *string) error {
	if strings.TrimSpace(string(raw)) == "null" {
		return errors.New("null value")
	}
	return json.Unmarshal(raw, dst)
}

func parseReminders(values []string) ([]time.Time, error) {
	if len(values) == 0 {
		return nil, nil
	}
	reminders := make([]time.Time, 0, len(values))
	for _, v := range values {
		t, err := utils.ParseDueDate(v)
		if err != nil {
			return nil, fmt.Errorf("reminder %q must be an RFC 3339 timestamp or YYYY-MM-DD", v)
		}
		reminders = append(reminders, t)
	}
	return reminders, nil
}

func respondTaskError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrTaskNotFound):
		apierrors.NotFound(c, "Task not found")
	case errors.Is(err, services.ErrTaskForbidden):
		apierrors.Forbidden(c, "User not authorized")
	case errors.Is(err, services.ErrTitleRequired),
		errors.Is(err, services.ErrTitleEmpty),
		errors.Is(err, services.ErrInvalidStatus),
		errors.Is(err, services.ErrInvalidPriority),
		errors.Is(err, services.ErrInvalidSort),
		errors.Is(err, services.ErrInvalidDueRange):
		apierrors.BadRequest(c, err.Error())
	default:
		c.Error(err)
		apierrors.InternalError(c, "Internal server error")
	}
}

func respondSuggestionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrSuggestionTitleRequired):
		apierrors.BadRequest(c, "Main task title is required")
	case errors.Is(err, services.ErrAIServiceNotConfigured):
		apierrors.NotConfigured(c, "AI service is not configured")
	case errors.Is(err, services.ErrUpstreamThrottled):
		apierrors.TooManyRequests(c, "AI provider is busy, please try again later")
	case errors.Is(err, services.ErrAIProviderFailed),
		errors.Is(err, services.ErrAIEmptyResponse):
		c.Error(err)
		apierrors.UpstreamFailed(c, "Failed to generate suggestions")
	default:
		c.Error(err)
		apierrors.InternalError(c, "Internal server error")
	}
}
