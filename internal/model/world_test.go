package model

import "testing"

func TestWorldGameWorld(t *testing.T) {
	w := World{
		Description: " A fog-bound harbor town. ",
		Characters:  map[string]string{"Ash": "keeps the lighthouse", "Mara": ""},
	}

	if got, want := w.GameWorld("ash"), "A fog-bound harbor town.\n\nAsh: keeps the lighthouse"; got != want {
		t.Errorf("GameWorld(ash) = %q, want %q", got, want)
	}
	if got := w.GameWorld("Mara"); got != "A fog-bound harbor town." {
		t.Errorf("character without description changed the world: %q", got)
	}
	if got := w.GameWorld("Stranger"); got != "A fog-bound harbor town." {
		t.Errorf("unknown character changed the world: %q", got)
	}
	if _, _, ok := w.Character("Stranger"); ok {
		t.Error("found a character that does not exist")
	}
	if names := w.CharacterNames(); len(names) != 2 || names[0] != "Ash" {
		t.Errorf("CharacterNames = %v", names)
	}
}
