package database

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/taskly/taskly-api/internal/models"
	"gorm.io/gorm"
)

type compositeIndex struct {
	name    string
	columns []string
}

// taskIndexes back the per-user listing and the filters on it.
var taskIndexes = []compositeIndex{
	{"idx_tasks_user_created", []string{"user_id", "created_at"}},
	{"idx_tasks_user_status", []string{"user_id", "status"}},
	{"idx_tasks_user_due_date", []string{"user_id", "due_date"}},
}

// AddIndexes adds the composite indexes AutoMigrate cannot express through
// struct tags alone. Existing indexes are skipped.
func AddIndexes(db *gorm.DB) error {
	migrator := db.Migrator()

	for _, idx := range taskIndexes {
		if migrator.HasIndex(&models.Task{}, idx.name) {
			slog.Debug("index already exists, skipping", "index", idx.name)
			continue
		}

		cols := strings.Join(idx.columns, ", ")
		stmt := fmt.Sprintf("CREATE INDEX %s ON tasks (%s)", idx.name, cols)
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}

		slog.Info("created index", "index", idx.name, "columns", cols)
	}

	return nil
}
