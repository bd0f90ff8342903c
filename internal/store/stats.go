package store

import (
	"context"
	"os"
)

// Stats holds database statistics.
type Stats struct {
	DBPath      string        `json:"db_path"`
	DBSizeBytes int64         `json:"db_size_bytes"`
	TotalSaves  int           `json:"total_saves"`
	ActiveSaves int           `json:"active_saves"`
	TotalTurns  int           `json:"total_turns"`
	Passages    int           `json:"passages"`
	Players     []PlayerStats `json:"players"`
}

// PlayerStats holds per-player-character counts.
type PlayerStats struct {
	Player string `json:"player"`
	Saves  int    `json:"saves"`
	Turns  int    `json:"turns"`
}

// Stats returns database statistics.
func (s *SQLiteStore) Stats(ctx context.Context, dbPath string) (*Stats, error) {
	st := &Stats{DBPath: dbPath}

	if info, err := os.Stat(dbPath); err == nil {
		st.DBSizeBytes = info.Size()
	}

	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM saves`).Scan(&st.TotalSaves)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*), COALESCE(SUM(turns), 0) FROM saves WHERE deleted_at IS NULL`).
		Scan(&st.ActiveSaves, &st.TotalTurns)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM passages`).Scan(&st.Passages)

	players, err := s.Players(ctx)
	if err != nil {
		return st, err
	}
	st.Players = players
	return st, nil
}

// Players lists player characters across active saves, most played first.
func (s *SQLiteStore) Players(ctx context.Context) ([]PlayerStats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT player, COUNT(*) AS saves, COALESCE(SUM(turns), 0) AS turns
		FROM saves WHERE deleted_at IS NULL
		GROUP BY player ORDER BY turns DESC, player ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PlayerStats
	for rows.Next() {
		var p PlayerStats
		if err := rows.Scan(&p.Player, &p.Saves, &p.Turns); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
