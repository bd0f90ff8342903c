package game

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
)

// CheckWorld reports whether the world description mentions the player
// character. The check is advisory: a game may start either way.
func CheckWorld(world, player string) error {
	player = strings.TrimSpace(player)
	if player == "" {
		return fmt.Errorf("player character name is empty")
	}
	fold := cases.Fold()
	if !strings.Contains(fold.String(world), fold.String(player)) {
		return fmt.Errorf("world description does not mention %q", player)
	}
	return nil
}
