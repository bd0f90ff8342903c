package store

import (
	"context"
	"math"
	"sort"
	"strings"
	"unicode"
)

// RecallParams holds parameters for recall assembly.
type RecallParams struct {
	SaveID     string
	Query      string
	BeforeTurn int // only turns strictly before this one
	Budget     int // max chars in output
}

// RecallPassage is a scored passage for the storyteller prompt.
type RecallPassage struct {
	Turn    int     `json:"turn"`
	Seq     int     `json:"seq"`
	Text    string  `json:"text"`
	Score   float64 `json:"score"`
	Excerpt bool    `json:"excerpt,omitempty"`
}

// RecallResult is the assembled recall response.
type RecallResult struct {
	Budget   int             `json:"budget"`
	Used     int             `json:"used"`
	Passages []RecallPassage `json:"passages"`
}

// DefaultRecallBudget is the character budget used when none is given.
const DefaultRecallBudget = 2000

// Recall ranks earlier passages of a save by full-text relevance to the
// query and by how recent their turn is, then packs the best of them into
// the budget.
func (s *SQLiteStore) Recall(ctx context.Context, p RecallParams) (*RecallResult, error) {
	budget := p.Budget
	if budget <= 0 {
		budget = DefaultRecallBudget
	}
	result := &RecallResult{Budget: budget, Passages: []RecallPassage{}}

	match := matchQuery(p.Query)
	if match == "" || p.BeforeTurn <= 0 {
		return result, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT p.turn, p.seq, p.text
		FROM passages_fts f
		INNER JOIN passages p ON p.rowid = f.rowid
		WHERE passages_fts MATCH ? AND p.save_id = ? AND p.turn < ?
		ORDER BY bm25(passages_fts)
		LIMIT 50`, match, p.SaveID, p.BeforeTurn)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	type scored struct {
		passage RecallPassage
		score   float64
	}
	var found []RecallPassage
	for rows.Next() {
		var rp RecallPassage
		if err := rows.Scan(&rp.Turn, &rp.Seq, &rp.Text); err != nil {
			return nil, err
		}
		found = append(found, rp)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	candidates := make([]scored, 0, len(found))
	for i, rp := range found {
		// Relevance: rank position from bm25
		relevance := 1 - float64(i)/float64(len(found))
		// Recency: exponential decay by turn distance
		recency := math.Exp(-0.1 * float64(p.BeforeTurn-rp.Turn))

		candidates = append(candidates, scored{passage: rp, score: relevance*0.7 + recency*0.3})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	// Greedy packing into budget
	used := 0
	for _, c := range candidates {
		rp := c.passage
		rp.Score = math.Round(c.score*100) / 100
		if used+len(rp.Text) <= budget {
			result.Passages = append(result.Passages, rp)
			used += len(rp.Text)
			continue
		}
		if remaining := budget - used; remaining >= 100 {
			rp.Text = excerpt(rp.Text, remaining)
			rp.Excerpt = true
			result.Passages = append(result.Passages, rp)
			used += len(rp.Text)
		}
		break
	}
	result.Used = used

	// Chronological order reads better in a prompt.
	sort.SliceStable(result.Passages, func(i, j int) bool {
		a, b := result.Passages[i], result.Passages[j]
		return a.Turn < b.Turn || (a.Turn == b.Turn && a.Seq < b.Seq)
	})
	return result, nil
}

// matchQuery turns free text into an FTS5 query that ORs its quoted words.
func matchQuery(q string) string {
	words := strings.FieldsFunc(strings.ToLower(q), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	var terms []string
	seen := map[string]bool{}
	for _, w := range words {
		if len([]rune(w)) < 3 || seen[w] {
			continue
		}
		seen[w] = true
		terms = append(terms, `"`+w+`"`)
	}
	return strings.Join(terms, " OR ")
}

func excerpt(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !isRuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

func isRuneStart(b byte) bool { return b&0xC0 != 0x80 }

// SaveRecaller recalls passages of one save for the storyteller prompt.
type SaveRecaller struct {
	Store  *SQLiteStore
	SaveID string
	Budget int
}

// Recall returns the texts of the passages selected for query.
func (r SaveRecaller) Recall(ctx context.Context, query string, beforeTurn int) ([]string, error) {
	res, err := r.Store.Recall(ctx, RecallParams{
		SaveID:     r.SaveID,
		Query:      query,
		BeforeTurn: beforeTurn,
		Budget:     r.Budget,
	})
	if err != nil {
		return nil, err
	}
	out := make([]string, len(res.Passages))
	for i, p := range res.Passages {
		out[i] = p.Text
	}
	return out, nil
}
