package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rcliao/world-weaver/internal/model"
)

// ErrWorldExists is returned by AddWorld when the name is taken and Replace
// is not set.
var ErrWorldExists = errors.New("a world with that name already exists")

// AddWorldParams holds parameters for adding a world to the library.
type AddWorldParams struct {
	Name        string
	Description string
	Characters  map[string]string
	Replace     bool
}

func (s *SQLiteStore) AddWorld(ctx context.Context, p AddWorldParams) (*model.World, error) {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return nil, fmt.Errorf("world name is required")
	}
	if strings.TrimSpace(p.Description) == "" {
		return nil, fmt.Errorf("world description is required")
	}
	chars := p.Characters
	if chars == nil {
		chars = map[string]string{}
	}
	charsJSON, err := json.Marshal(chars)
	if err != nil {
		return nil, fmt.Errorf("marshal characters: %w", err)
	}

	now := time.Now().UTC()
	stamp := now.Format(time.RFC3339)
	created := now

	if p.Replace {
		if old, err := s.GetWorld(ctx, name); err == nil {
			created = old.CreatedAt
		}
		_, err = s.db.ExecContext(ctx,
			`INSERT INTO worlds (name, description, characters, created_at, updated_at) VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT(name) DO UPDATE SET description = excluded.description,
			   characters = excluded.characters, updated_at = excluded.updated_at`,
			name, p.Description, string(charsJSON), stamp, stamp)
	} else {
		var res sql.Result
		res, err = s.db.ExecContext(ctx,
			`INSERT INTO worlds (name, description, characters, created_at, updated_at) VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT(name) DO NOTHING`,
			name, p.Description, string(charsJSON), stamp, stamp)
		if err == nil {
			if n, _ := res.RowsAffected(); n == 0 {
				return nil, fmt.Errorf("%w: %s", ErrWorldExists, name)
			}
		}
	}
	if err != nil {
		return nil, fmt.Errorf("insert world: %w", err)
	}

	return &model.World{
		Name:        name,
		Description: p.Description,
		Characters:  chars,
		CreatedAt:   created.Truncate(time.Second),
		UpdatedAt:   now.Truncate(time.Second),
	}, nil
}

func (s *SQLiteStore) GetWorld(ctx context.Context, name string) (*model.World, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT name, description, characters, created_at, updated_at FROM worlds WHERE name = ?`,
		strings.TrimSpace(name))
	w, err := scanWorld(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("world not found: %s", name)
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// ListWorlds lists every world by name.
func (s *SQLiteStore) ListWorlds(ctx context.Context) ([]model.World, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, description, characters, created_at, updated_at FROM worlds ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var worlds []model.World
	for rows.Next() {
		w, err := scanWorld(rows)
		if err != nil {
			return nil, err
		}
		worlds = append(worlds, w)
	}
	return worlds, rows.Err()
}

func (s *SQLiteStore) RmWorld(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM worlds WHERE name = ?`, strings.TrimSpace(name))
	if err != nil {
		return fmt.Errorf("delete world: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("world not found: %s", name)
	}
	return nil
}

func scanWorld(row scanner) (model.World, error) {
	var w model.World
	var chars, createdAt, updatedAt string
	if err := row.Scan(&w.Name, &w.Description, &chars, &createdAt, &updatedAt); err != nil {
		return w, err
	}
	if err := json.Unmarshal([]byte(chars), &w.Characters); err != nil {
		return w, fmt.Errorf("world %s: characters: %w", w.Name, err)
	}
	w.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	w.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return w, nil
}
