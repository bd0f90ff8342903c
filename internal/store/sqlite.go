package store

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/rcliao/world-weaver/internal/chunker"
	"github.com/rcliao/world-weaver/internal/model"
)

// ArchiveExt is the file extension of archives placed by Register.
const ArchiveExt = ".wwa"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db      *sql.DB
	entropy *rand.Rand
}

// NewSQLiteStore opens or creates a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &SQLiteStore{
		db:      db,
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) newID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS saves (
		id          TEXT PRIMARY KEY,
		title       TEXT NOT NULL,
		path        TEXT NOT NULL UNIQUE,
		player      TEXT NOT NULL,
		turns       INTEGER NOT NULL DEFAULT 0,
		summaries   INTEGER NOT NULL DEFAULT 0,
		created_at  TEXT NOT NULL,
		updated_at  TEXT NOT NULL,
		deleted_at  TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_saves_title ON saves(title);
	CREATE INDEX IF NOT EXISTS idx_saves_player ON saves(player);
	CREATE INDEX IF NOT EXISTS idx_saves_updated ON saves(updated_at DESC);

	CREATE TABLE IF NOT EXISTS passages (
		id       TEXT PRIMARY KEY,
		save_id  TEXT NOT NULL REFERENCES saves(id),
		turn     INTEGER NOT NULL,
		seq      INTEGER NOT NULL,
		text     TEXT NOT NULL,
		UNIQUE (save_id, turn, seq)
	);
	CREATE INDEX IF NOT EXISTS idx_passages_save_turn ON passages(save_id, turn);

	CREATE VIRTUAL TABLE IF NOT EXISTS passages_fts USING fts5(
		text,
		content=passages,
		content_rowid=rowid
	);

	CREATE TABLE IF NOT EXISTS worlds (
		name        TEXT PRIMARY KEY,
		description TEXT NOT NULL,
		characters  TEXT NOT NULL DEFAULT '{}',
		created_at  TEXT NOT NULL,
		updated_at  TEXT NOT NULL
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	// FTS5 triggers for automatic sync
	s.db.Exec(`CREATE TRIGGER IF NOT EXISTS passages_ai AFTER INSERT ON passages BEGIN
		INSERT INTO passages_fts(rowid, text) VALUES (new.rowid, new.text);
	END`)
	s.db.Exec(`CREATE TRIGGER IF NOT EXISTS passages_ad AFTER DELETE ON passages BEGIN
		INSERT INTO passages_fts(passages_fts, rowid, text) VALUES('delete', old.rowid, old.text);
	END`)

	return nil
}

const saveColumns = `id, title, path, player, turns, summaries, created_at, updated_at, deleted_at`

func (s *SQLiteStore) Register(ctx context.Context, p RegisterParams) (*model.Save, error) {
	if strings.TrimSpace(p.Title) == "" {
		return nil, fmt.Errorf("title is required")
	}
	now := time.Now().UTC()
	id := s.newID()

	path := p.Path
	if path == "" {
		path = filepath.Join(p.Dir, id+ArchiveExt)
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO saves (id, title, path, player, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, p.Title, path, p.PlayerCharacter, now.Format(time.RFC3339), now.Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("insert save: %w", err)
	}

	return &model.Save{
		ID:              id,
		Title:           p.Title,
		Path:            path,
		PlayerCharacter: p.PlayerCharacter,
		CreatedAt:       now.Truncate(time.Second),
		UpdatedAt:       now.Truncate(time.Second),
	}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, ref string) (*model.Save, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+saveColumns+` FROM saves
		 WHERE deleted_at IS NULL AND (id = ? OR title = ?)
		 ORDER BY (id = ?) DESC, updated_at DESC LIMIT 1`, ref, ref, ref)
	sv, err := scanSave(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("save not found: %s", ref)
	}
	if err != nil {
		return nil, err
	}
	return &sv, nil
}

func (s *SQLiteStore) List(ctx context.Context, p ListParams) ([]model.Save, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = 20
	}

	var where []string
	var args []interface{}
	if !p.Deleted {
		where = append(where, "deleted_at IS NULL")
	}
	if p.Player != "" {
		where = append(where, "player = ?")
		args = append(args, p.Player)
	}
	query := `SELECT ` + saveColumns + ` FROM saves`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY updated_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var saves []model.Save
	for rows.Next() {
		sv, err := scanSave(rows)
		if err != nil {
			return nil, err
		}
		saves = append(saves, sv)
	}
	return saves, rows.Err()
}

func (s *SQLiteStore) Rm(ctx context.Context, p RmParams) error {
	sv, err := s.Get(ctx, p.Ref)
	if err != nil {
		return err
	}

	if p.Hard {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()
		if _, err := tx.ExecContext(ctx, `DELETE FROM passages WHERE save_id = ?`, sv.ID); err != nil {
			return fmt.Errorf("delete passages: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM saves WHERE id = ?`, sv.ID); err != nil {
			return fmt.Errorf("delete save: %w", err)
		}
		return tx.Commit()
	}

	now := time.Now().UTC().Format(time.RFC3339)
	_, err = s.db.ExecContext(ctx, `UPDATE saves SET deleted_at = ? WHERE id = ?`, now, sv.ID)
	return err
}

func (s *SQLiteStore) RecordTurn(ctx context.Context, saveID string, gd *model.GameData) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339)
	res, err := tx.ExecContext(ctx,
		`UPDATE saves SET turns = ?, summaries = ?, updated_at = ? WHERE id = ?`,
		len(gd.Turns), len(gd.Summaries), now, saveID)
	if err != nil {
		return fmt.Errorf("update save: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("save not found: %s", saveID)
	}

	var last int
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(turn), -1) FROM passages WHERE save_id = ?`, saveID).Scan(&last); err != nil {
		return fmt.Errorf("last indexed turn: %w", err)
	}

	for i := last + 1; i < len(gd.Turns); i++ {
		for seq, text := range chunker.Chunk(gd.Turns[i].Output.Text, chunker.DefaultOptions()) {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO passages (id, save_id, turn, seq, text) VALUES (?, ?, ?, ?, ?)`,
				s.newID(), saveID, i, seq, text)
			if err != nil {
				return fmt.Errorf("insert passage: %w", err)
			}
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSave(row scanner) (model.Save, error) {
	var sv model.Save
	var createdAt, updatedAt string
	var deletedAt sql.NullString

	err := row.Scan(&sv.ID, &sv.Title, &sv.Path, &sv.PlayerCharacter, &sv.Turns, &sv.Summaries,
		&createdAt, &updatedAt, &deletedAt)
	if err != nil {
		return sv, err
	}

	sv.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	sv.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	if deletedAt.Valid {
		t, _ := time.Parse(time.RFC3339, deletedAt.String)
		sv.DeletedAt = &t
	}
	return sv, nil
}
