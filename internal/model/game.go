// Package model defines the core game data types.
package model

import "strings"

// ProposedActionCount is the number of next actions the storyteller offers per turn.
const ProposedActionCount = 3

// SummaryInterval is the number of turns condensed into one Summary.
const SummaryInterval = 8

// ImageID identifies an image blob inside one archive.
type ImageID uint64

// GameData is the persisted logical state of one game.
type GameData struct {
	Title            string     `json:"title"`
	WorldDescription string     `json:"world_description"`
	PlayerCharacter  string     `json:"player_character"`
	Summaries        []Summary  `json:"summaries"`
	Turns            []TurnData `json:"turns"`
}

// Summary condenses a block of SummaryInterval turns.
type Summary struct {
	Content string `json:"content"`
	// Age is the number of turns covered, counted from the start of the game.
	Age int `json:"age"`
}

// TurnData is one committed turn.
type TurnData struct {
	Input   TurnInput  `json:"input"`
	Output  TurnOutput `json:"output"`
	ImageID ImageID    `json:"image_id"`
}

// TurnInput is what the player submitted for a turn. Both fields empty means
// "continue the story".
type TurnInput struct {
	PlayerAction  string `json:"player_action,omitempty"`
	GMInstruction string `json:"gm_instruction,omitempty"`
}

// TurnOutput is the validated model output of a turn.
type TurnOutput struct {
	Text            string                      `json:"text"`
	SecretInfo      string                      `json:"secret_info"`
	ProposedActions [ProposedActionCount]string `json:"proposed_actions"`
	InputTokens     int                         `json:"input_tokens"`
	OutputTokens    int                         `json:"output_tokens"`
	ImageCost       float64                     `json:"image_cost,omitempty"`
}

// Empty reports whether neither an action nor an instruction was given.
func (in TurnInput) Empty() bool {
	return strings.TrimSpace(in.PlayerAction) == "" && strings.TrimSpace(in.GMInstruction) == ""
}

// String renders the input for display and search.
func (in TurnInput) String() string {
	var parts []string
	if a := strings.TrimSpace(in.PlayerAction); a != "" {
		parts = append(parts, a)
	}
	if g := strings.TrimSpace(in.GMInstruction); g != "" {
		parts = append(parts, "[gm] "+g)
	}
	return strings.Join(parts, " ")
}

// LatestSummary returns the most recent summary, if any.
func (g *GameData) LatestSummary() (Summary, bool) {
	if len(g.Summaries) == 0 {
		return Summary{}, false
	}
	return g.Summaries[len(g.Summaries)-1], true
}

// NeedsSummary reports whether a turn count closes a summary block.
func NeedsSummary(turns int) bool {
	return turns > 0 && turns%SummaryInterval == 0
}

// Clone returns a deep copy.
func (g GameData) Clone() GameData {
	out := g
	out.Summaries = append([]Summary(nil), g.Summaries...)
	out.Turns = append([]TurnData(nil), g.Turns...)
	return out
}
