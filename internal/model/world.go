package model

import (
	"sort"
	"strings"
	"time"
)

// World is a reusable setting from the world library. Characters maps each
// playable character's name to a description of them.
type World struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Characters  map[string]string `json:"characters,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// Character returns the canonical name and description of the character
// called name, ignoring case.
func (w *World) Character(name string) (string, string, bool) {
	name = strings.TrimSpace(name)
	for n, d := range w.Characters {
		if strings.EqualFold(n, name) {
			return n, d, true
		}
	}
	return "", "", false
}

// CharacterNames returns the character names in sorted order.
func (w *World) CharacterNames() []string {
	names := make([]string, 0, len(w.Characters))
	for n := range w.Characters {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// GameWorld renders the world description a game played as player starts
// from. A known character's description follows the world's own.
func (w *World) GameWorld(player string) string {
	text := strings.TrimSpace(w.Description)
	if n, d, ok := w.Character(player); ok && strings.TrimSpace(d) != "" {
		text += "\n\n" + n + ": " + strings.TrimSpace(d)
	}
	return text
}
