package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/rcliao/world-weaver/internal/model"
)

// SearchParams holds parameters for searching passages.
type SearchParams struct {
	SaveID string // empty searches every save
	Query  string
	Limit  int
}

// SearchResult is a matching passage with the title of its save.
type SearchResult struct {
	model.Passage
	Title string `json:"title"`
}

// Search finds passages containing the query substring, newest turns first.
func (s *SQLiteStore) Search(ctx context.Context, p SearchParams) ([]SearchResult, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = 20
	}

	where := []string{"s.deleted_at IS NULL", "p.text LIKE ?"}
	args := []interface{}{"%" + p.Query + "%"}
	if p.SaveID != "" {
		where = append(where, "p.save_id = ?")
		args = append(args, p.SaveID)
	}

	query := fmt.Sprintf(`
		SELECT p.id, p.save_id, p.turn, p.seq, p.text, s.title
		FROM passages p
		INNER JOIN saves s ON s.id = p.save_id
		WHERE %s
		ORDER BY s.updated_at DESC, p.turn DESC, p.seq ASC
		LIMIT ?`, strings.Join(where, " AND "))
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.ID, &r.SaveID, &r.Turn, &r.Seq, &r.Text, &r.Title); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}
