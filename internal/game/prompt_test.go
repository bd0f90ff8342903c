package game

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/world-weaver/internal/llm"
	"github.com/rcliao/world-weaver/internal/model"
)

func gameWithTurns(n int) model.GameData {
	gd := model.GameData{
		WorldDescription: "A drowned city. Mara is a salvage diver.",
		PlayerCharacter:  "Mara",
	}
	for i := 0; i < n; i++ {
		gd.Turns = append(gd.Turns, model.TurnData{
			Input: model.TurnInput{PlayerAction: fmt.Sprintf("action %d", i)},
			Output: model.TurnOutput{
				Text:            fmt.Sprintf("text %d", i),
				SecretInfo:      fmt.Sprintf("secret %d", i),
				ProposedActions: [3]string{"a", "b", "c"},
			},
		})
	}
	return gd
}

func TestUserMessage(t *testing.T) {
	got := UserMessage(3, model.TurnInput{PlayerAction: "dive", GMInstruction: "make it cold"}, "a shark")
	want := "turn 3\n# player action\ndive\n# gm command\nmake it cold\n# last secret info\na shark"
	assert.Equal(t, want, got)

	assert.Equal(t, "turn 0", UserMessage(0, model.TurnInput{}, ""))
}

func TestBuildRequestFirstTurn(t *testing.T) {
	gd := gameWithTurns(0)
	req := BuildRequest(&gd, model.TurnInput{PlayerAction: "I open the door"}, nil, 0)

	require.Len(t, req.Messages, 1)
	assert.Equal(t, llm.RoleUser, req.Messages[0].Role)
	assert.Equal(t, "turn 0\n# player action\nI open the door", req.Messages[0].Content)
	assert.Equal(t, DefaultMaxTokens, req.MaxTokens)
	assert.Contains(t, req.System, "A drowned city.")
	assert.Contains(t, req.System, "control Mara")
	assert.NotContains(t, req.System, "summary of everything")
}

func TestBuildRequestHistoryWindow(t *testing.T) {
	gd := gameWithTurns(11)
	gd.Summaries = []model.Summary{{Content: "Mara found a key.", Age: 8}}

	req := BuildRequest(&gd, model.TurnInput{}, []string{"an old passage"}, 500)

	require.Len(t, req.Messages, 2*HistorySize+1)
	assert.Equal(t, 500, req.MaxTokens)
	assert.True(t, strings.HasPrefix(req.Messages[0].Content, "turn 3\n"))
	assert.Contains(t, req.Messages[0].Content, "# last secret info\nsecret 2")
	assert.Equal(t, llm.RoleAssistant, req.Messages[1].Role)
	assert.Contains(t, req.Messages[1].Content, EndOfOutput)

	last := req.Messages[len(req.Messages)-1]
	assert.Equal(t, "turn 11\n# last secret info\nsecret 10", last.Content)

	assert.Contains(t, req.System, "up to turn 8")
	assert.Contains(t, req.System, "Mara found a key.")
	assert.Contains(t, req.System, "an old passage")
}

func TestImagePrompt(t *testing.T) {
	gd := gameWithTurns(2)
	p := ImagePrompt(&gd, model.TurnInput{PlayerAction: "swim to the tower"})
	assert.Contains(t, p, "A drowned city.")
	assert.Contains(t, p, "text 1")
	assert.Contains(t, p, "swim to the tower")
}

func TestSummaryRequest(t *testing.T) {
	gd := gameWithTurns(16)
	gd.Summaries = []model.Summary{{Content: "first block", Age: 8}}

	req := SummaryRequest(&gd, 0)
	require.Len(t, req.Messages, 1)
	body := req.Messages[0].Content
	assert.Contains(t, body, "first block")
	assert.Contains(t, body, "# turn 8\n")
	assert.Contains(t, body, "# turn 15\n")
	assert.NotContains(t, body, "# turn 7\n")
	assert.Contains(t, body, "up to and including turn 15")
}

func TestCheckWorld(t *testing.T) {
	require.NoError(t, CheckWorld("The lighthouse keeper MARA lives here.", "mara"))
	require.Error(t, CheckWorld("An empty sea.", "Mara"))
	require.Error(t, CheckWorld("Anything", " "))
}
