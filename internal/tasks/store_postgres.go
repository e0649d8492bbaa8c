package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, strings.TrimSpace(databaseURL))
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := initTaskSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresStore{pool: pool}, nil
}

func initTaskSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS tasks (
			id TEXT PRIMARY KEY,
			original_request TEXT NOT NULL,
			plan TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			requires_internet BOOLEAN NOT NULL DEFAULT FALSE,
			model_used TEXT NOT NULL DEFAULT '',
			sources TEXT NOT NULL DEFAULT '[]',
			extracted_time TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks (status);`,
	}
	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init task schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *PostgresStore) ListAll(ctx context.Context) []Task {
	rows, err := s.pool.Query(ctx,
		`SELECT id, original_request, plan, status, requires_internet, model_used,
		        sources, extracted_time, created_at, updated_at
		   FROM tasks ORDER BY created_at ASC`,
	)
	if err != nil {
		// Degrade to an empty view on store failure; the monitor will see
		// the tasks again on a later tick.
		log.Printf("task store: list failed: %v", err)
		return nil
	}
	defer rows.Close()

	var out []Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			log.Printf("task store: scan failed: %v", err)
			return nil
		}
		out = append(out, task)
	}
	if err := rows.Err(); err != nil {
		log.Printf("task store: iterate failed: %v", err)
		return nil
	}
	return out
}

func (s *PostgresStore) Get(ctx context.Context, taskID string) (Task, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, original_request, plan, status, requires_internet, model_used,
		        sources, extracted_time, created_at, updated_at
		   FROM tasks WHERE id=$1`,
		taskID,
	)
	task, err := scanTask(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return Task{}, ErrTaskNotFound
		}
		return Task{}, fmt.Errorf("get task: %w", err)
	}
	return task, nil
}

func (s *PostgresStore) Upsert(ctx context.Context, task Task) error {
	sources, err := json.Marshal(task.Sources)
	if err != nil {
		return fmt.Errorf("marshal sources: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO tasks (
			id, original_request, plan, status, requires_internet, model_used,
			sources, extracted_time, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (id) DO UPDATE SET
			original_request=EXCLUDED.original_request,
			plan=EXCLUDED.plan,
			status=EXCLUDED.status,
			requires_internet=EXCLUDED.requires_internet,
			model_used=EXCLUDED.model_used,
			sources=EXCLUDED.sources,
			extracted_time=EXCLUDED.extracted_time,
			created_at=EXCLUDED.created_at,
			updated_at=EXCLUDED.updated_at`,
		task.ID,
		task.OriginalRequest,
		task.Plan,
		string(task.Status),
		task.RequiresInternet,
		task.ModelUsed,
		string(sources),
		task.ExtractedTime,
		task.CreatedAt,
		task.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert task: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, taskID string, status TaskStatus, planOverride string) error {
	var (
		tag pgconn.CommandTag
		err error
	)
	if planOverride != "" {
		tag, err = s.pool.Exec(ctx,
			`UPDATE tasks SET status=$2, plan=$3, updated_at=$4 WHERE id=$1`,
			taskID, string(status), planOverride, time.Now().UTC(),
		)
	} else {
		tag, err = s.pool.Exec(ctx,
			`UPDATE tasks SET status=$2, updated_at=$3 WHERE id=$1`,
			taskID, string(status), time.Now().UTC(),
		)
	}
	if err != nil {
		return fmt.Errorf("update task status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTaskNotFound
	}
	return nil
}

func (s *PostgresStore) Claim(ctx context.Context, taskID string) (Task, bool, error) {
	row := s.pool.QueryRow(ctx,
		`UPDATE tasks SET status=$2, updated_at=$3
		  WHERE id=$1 AND status NOT IN ($2, $4)
		RETURNING id, original_request, plan, status, requires_internet, model_used,
		          sources, extracted_time, created_at, updated_at`,
		taskID, string(TaskStatusExecuting), time.Now().UTC(), string(TaskStatusCompleted),
	)
	task, err := scanTask(row)
	if err == nil {
		return task, true, nil
	}
	if err != pgx.ErrNoRows {
		return Task{}, false, fmt.Errorf("claim task: %w", err)
	}
	// no row updated: either the task is gone or another attempt holds it
	task, err = s.Get(ctx, taskID)
	if err != nil {
		return Task{}, false, err
	}
	return task, false, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func scanTask(row pgx.Row) (Task, error) {
	var (
		task    Task
		status  string
		sources string
	)
	if err := row.Scan(
		&task.ID,
		&task.OriginalRequest,
		&task.Plan,
		&status,
		&task.RequiresInternet,
		&task.ModelUsed,
		&sources,
		&task.ExtractedTime,
		&task.CreatedAt,
		&task.UpdatedAt,
	); err != nil {
		return Task{}, err
	}
	task.Status = TaskStatus(status)
	if sources != "" && sources != "[]" {
		if err := json.Unmarshal([]byte(sources), &task.Sources); err != nil {
			return Task{}, fmt.Errorf("decode sources: %w", err)
		}
	}
	return task, nil
}
