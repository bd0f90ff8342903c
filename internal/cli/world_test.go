package cli

import (
	"strings"
	"testing"

	"github.com/rcliao/world-weaver/internal/model"
)

func TestParseCharacters(t *testing.T) {
	chars, err := parseCharacters([]string{"Ash=keeps the lighthouse", " Mara = a smuggler, mostly ", "Fen"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := map[string]string{"Ash": "keeps the lighthouse", "Mara": "a smuggler, mostly", "Fen": ""}
	if len(chars) != len(want) {
		t.Fatalf("got %v, want %v", chars, want)
	}
	for n, d := range want {
		if chars[n] != d {
			t.Errorf("%s = %q, want %q", n, chars[n], d)
		}
	}

	for _, bad := range [][]string{{"=nameless"}, {"Ash=a", "ash=b"}} {
		if _, err := parseCharacters(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

func TestStartingWorld(t *testing.T) {
	w := &model.World{
		Name:        "Harbor",
		Description: "A fog-bound harbor town.",
		Characters:  map[string]string{"Ash": "keeps the lighthouse"},
	}

	world, player, warn := startingWorld(w, "ash")
	if warn != nil {
		t.Fatalf("unexpected warning: %v", warn)
	}
	if player != "Ash" {
		t.Errorf("player = %q, want the world's spelling", player)
	}
	if world != "A fog-bound harbor town.\n\nAsh: keeps the lighthouse" {
		t.Errorf("world = %q", world)
	}

	world, player, warn = startingWorld(w, "Stranger")
	if warn == nil || !strings.Contains(warn.Error(), "Ash") {
		t.Errorf("expected a warning naming the characters, got %v", warn)
	}
	if player != "Stranger" || world != "A fog-bound harbor town." {
		t.Errorf("got %q playing in %q", player, world)
	}
}
