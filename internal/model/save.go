package model

import "time"

// Save is a catalog entry for one archive file in the save library.
type Save struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Path            string     `json:"path"`
	PlayerCharacter string     `json:"player_character"`
	Turns           int        `json:"turns"`
	Summaries       int        `json:"summaries"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	DeletedAt       *time.Time `json:"deleted_at,omitempty"`
}

// Passage is an indexed excerpt of a committed turn's visible text.
type Passage struct {
	ID     string `json:"id"`
	SaveID string `json:"save_id"`
	Turn   int    `json:"turn"`
	Seq    int    `json:"seq"`
	Text   string `json:"text"`
}

// ExportedGame is the portable form of an archive: the game data plus every
// image it references.
type ExportedGame struct {
	Game   GameData           `json:"game"`
	Images map[ImageID][]byte `json:"images"`
}
