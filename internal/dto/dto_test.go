package dto

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskly/taskly-api/internal/models"
	"github.com/taskly/taskly-api/internal/services"
)

func TestToTaskDTO_NullDueDateAndEmptyReminders(t *testing.T) {
	raw, err := json.Marshal(ToTaskDTO(models.Task{ID: "t1", UserID: "u1", Title: "x"}))
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Nil(t, decoded["dueDate"])
	assert.Equal(t, []any{}, decoded["reminders"])
	assert.Equal(t, "u1", decoded["userId"])
}

func TestToTaskDTOs_Empty(t *testing.T) {
	raw, err := json.Marshal(ToTaskDTOs(nil))
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(raw))
}

func TestToAuthResponseDTO(t *testing.T) {
	resp := ToAuthResponseDTO(services.AuthResult{Token: "tok", User: &models.User{ID: "u1", Username: "alice"}})
	assert.Equal(t, AuthResponseDTO{Token: "tok", UserID: "u1", Username: "alice"}, resp)
}

func TestToTaskStatsDTO(t *testing.T) {
	stats := services.TaskStats{
		Total:             2,
		Completed:         1,
		CompletionRate:    50,
		ByPriority:        map[models.TaskPriority]int{models.TaskPriorityHigh: 2},
		CompletionsByDate: []services.DailyCompletions{{Date: time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC).Format("2006-01-02"), Completed: 1}},
	}

	raw, err := json.Marshal(ToTaskStatsDTO(stats))
	require.NoError(t, err)
	assert.JSONEq(t, `{"total":2,"completed":1,"pending":0,"overdue":0,"completionRate":50,"byPriority":{"high":2},"completionsByDate":[{"date":"2025-01-02","completed":1}]}`, string(raw))
}
