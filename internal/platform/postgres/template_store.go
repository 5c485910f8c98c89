package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/mwhitlock/tasktrack-api/internal/domain"
	"github.com/mwhitlock/tasktrack-api/internal/platform/logger"
	"github.com/mwhitlock/tasktrack-api/internal/store"
)

// PostgresTemplateStore implements the store.TemplateStore interface
// using a PostgreSQL database as the storage backend.
type PostgresTemplateStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTemplateStore creates a new PostgreSQL implementation of the
// TemplateStore interface. If logger is nil, a default logger will be used.
func NewPostgresTemplateStore(db store.DBTX, logger *slog.Logger) *PostgresTemplateStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresTemplateStore{
		db:     db,
		logger: logger.With(slog.String("component", "template_store")),
	}
}

// Ensure PostgresTemplateStore implements store.TemplateStore interface
var _ store.TemplateStore = (*PostgresTemplateStore)(nil)

// List implements store.TemplateStore.List
// It returns every template with its stages ordered by order number.
func (s *PostgresTemplateStore) List(ctx context.Context) ([]*domain.TaskTemplate, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, name, description
		FROM task_templates
		ORDER BY id
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		log.Error("failed to list templates", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer closeRows(rows, log)

	templates := []*domain.TaskTemplate{}
	byID := map[int64]*domain.TaskTemplate{}
	for rows.Next() {
		var tpl domain.TaskTemplate
		if err := rows.Scan(&tpl.ID, &tpl.Name, &tpl.Description); err != nil {
			log.Error("failed to scan template row", slog.String("error", err.Error()))
			return nil, err
		}
		tpl.Stages = []domain.TemplateStage{}
		templates = append(templates, &tpl)
		byID[tpl.ID] = &tpl
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(templates) == 0 {
		return templates, nil
	}

	stageQuery := `
		SELECT id, template_id, name, estimated_hours, order_number
		FROM task_template_stages
		ORDER BY template_id, order_number
	`

	stageRows, err := s.db.QueryContext(ctx, stageQuery)
	if err != nil {
		log.Error("failed to list template stages", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer closeRows(stageRows, log)

	for stageRows.Next() {
		var stage domain.TemplateStage
		err := stageRows.Scan(
			&stage.ID,
			&stage.TemplateID,
			&stage.Name,
			&stage.EstimatedHours,
			&stage.OrderNumber,
		)
		if err != nil {
			log.Error("failed to scan template stage row", slog.String("error", err.Error()))
			return nil, err
		}
		if tpl, ok := byID[stage.TemplateID]; ok {
			tpl.Stages = append(tpl.Stages, stage)
		}
	}
	if err := stageRows.Err(); err != nil {
		return nil, err
	}

	return templates, nil
}

// GetByID implements store.TemplateStore.GetByID
// Returns store.ErrTemplateNotFound if the template does not exist.
func (s *PostgresTemplateStore) GetByID(ctx context.Context, id int64) (*domain.TaskTemplate, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, name, description
		FROM task_templates
		WHERE id = $1
	`

	var tpl domain.TaskTemplate
	err := s.db.QueryRowContext(ctx, query, id).Scan(&tpl.ID, &tpl.Name, &tpl.Description)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("template not found", slog.Int64("template_id", id))
			return nil, store.ErrTemplateNotFound
		}
		log.Error("failed to get template by ID",
			slog.String("error", err.Error()),
			slog.Int64("template_id", id))
		return nil, MapError(err)
	}

	stageQuery := `
		SELECT id, template_id, name, estimated_hours, order_number
		FROM task_template_stages
		WHERE template_id = $1
		ORDER BY order_number
	`

	rows, err := s.db.QueryContext(ctx, stageQuery, id)
	if err != nil {
		log.Error("failed to list template stages",
			slog.String("error", err.Error()),
			slog.Int64("template_id", id))
		return nil, MapError(err)
	}
	defer closeRows(rows, log)

	tpl.Stages = []domain.TemplateStage{}
	for rows.Next() {
		var stage domain.TemplateStage
		err := rows.Scan(
			&stage.ID,
			&stage.TemplateID,
			&stage.Name,
			&stage.EstimatedHours,
			&stage.OrderNumber,
		)
		if err != nil {
			log.Error("failed to scan template stage row", slog.String("error", err.Error()))
			return nil, err
		}
		tpl.Stages = append(tpl.Stages, stage)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &tpl, nil
}
