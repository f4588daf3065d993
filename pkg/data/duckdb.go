package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/marcboeker/go-duckdb/v2"
)

const historySchema = `
CREATE TABLE IF NOT EXISTS reading_history (
	story_slug VARCHAR PRIMARY KEY,
	story_name VARCHAR NOT NULL,
	chapter    VARCHAR NOT NULL,
	page       INTEGER NOT NULL,
	updated_at TIMESTAMP NOT NULL
)`

// InitDuckDB opens the database at path, creating parent directories and
// the reading history table when missing.
func InitDuckDB(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(historySchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return db, nil
}

// Repository stores where the user stopped reading. It never stores fetched
// chapter or list content.
type Repository struct {
	db  *sql.DB
	now func() time.Time
}

func NewDuckDBRepository(path string) (*Repository, error) {
	db, err := InitDuckDB(path)
	if err != nil {
		return nil, err
	}
	return &Repository{db: db, now: time.Now}, nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) SaveProgress(ctx context.Context, p ReadingProgress) error {
	if p.StorySlug == "" {
		return fmt.Errorf("story slug cannot be empty")
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = r.now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO reading_history (story_slug, story_name, chapter, page, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (story_slug) DO UPDATE SET
			story_name = excluded.story_name,
			chapter = excluded.chapter,
			page = excluded.page,
			updated_at = excluded.updated_at`,
		p.StorySlug, p.StoryName, p.Chapter, p.Page, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save progress for %s: %w", p.StorySlug, err)
	}
	return nil
}

// GetProgress returns nil without error when the story was never read.
func (r *Repository) GetProgress(ctx context.Context, slug string) (*ReadingProgress, error) {
	var p ReadingProgress
	err := r.db.QueryRowContext(ctx, `
		SELECT story_slug, story_name, chapter, page, updated_at
		FROM reading_history WHERE story_slug = ?`, slug,
	).Scan(&p.StorySlug, &p.StoryName, &p.Chapter, &p.Page, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get progress for %s: %w", slug, err)
	}
	return &p, nil
}

// ListHistory returns the most recently read stories first.
func (r *Repository) ListHistory(ctx context.Context, limit int) ([]ReadingProgress, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT story_slug, story_name, chapter, page, updated_at
		FROM reading_history
		ORDER BY updated_at DESC
		LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	defer rows.Close()

	var out []ReadingProgress
	for rows.Next() {
		var p ReadingProgress
		if err := rows.Scan(&p.StorySlug, &p.StoryName, &p.Chapter, &p.Page, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repository) DeleteProgress(ctx context.Context, slug string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM reading_history WHERE story_slug = ?`, slug); err != nil {
		return fmt.Errorf("failed to delete progress for %s: %w", slug, err)
	}
	return nil
}
