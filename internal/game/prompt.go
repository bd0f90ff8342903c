package game

import (
	"fmt"
	"strings"

	"github.com/rcliao/world-weaver/internal/llm"
	"github.com/rcliao/world-weaver/internal/model"
)

// HistorySize is the number of most recent turns replayed to the model.
const HistorySize = 8

// DefaultMaxTokens bounds the length of a turn's model output.
const DefaultMaxTokens = 3000

const systemTemplate = `You are a story-teller game. Below is a world description. In that world I
control %[1]s. Anything I input is a command for %[1]s to carry out in the
world. Then it is your turn to decide how the world reacts and what happens.
One message from me plus one from you is called a turn.

My input is structured as the turn number followed by three sections, all
optional:

` + "```" + `
turn N
# player action
whatever I want %[1]s to do or say
# gm command
whatever I want you to respect while writing the next message
# last secret info
the secret info you wrote for yourself last turn
` + "```" + `

The player action is what %[1]s does or says. When %[1]s is in a state that
makes the action impossible or implausible, change it by the least amount
needed to make it possible. Actions can fail.

The gm command is me taking control of the story; respect it as well as you
can.

If I give neither, continue the story from the previous turn.

Your output must have exactly this structure:

` + "```" + `
The output: the text shown to me, between 300 and 2000 words.
` + EndOfOutput + `
Secret info: notes for yourself related to the output and hidden from me,
between 100 and 1000 words.
` + EndOfSecret + `
Proposed action 1
` + EndOfAction + `
Proposed action 2
` + EndOfAction + `
Proposed action 3
` + "```" + `

Replace all of the example text, but keep ` + EndOfOutput + `, ` + EndOfSecret + ` and ` + EndOfAction + `
exactly as written, each on its own line. Do not start with "The output:".
Each proposed action is one sentence describing a different plausible next
action for %[1]s.

Here is the world the story plays in, with instructions about style:

` + "```" + `
%[2]s
` + "```" + `
`

// SystemPrompt returns the storyteller instructions for a game. recall holds
// passages from turns older than the replayed history.
func SystemPrompt(gd *model.GameData, recall []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, systemTemplate, gd.PlayerCharacter, strings.TrimSpace(gd.WorldDescription))

	if s, ok := gd.LatestSummary(); ok {
		fmt.Fprintf(&b, "\nHere is a summary of everything that happened up to turn %d:\n\n```\n%s\n```\n",
			s.Age, strings.TrimSpace(s.Content))
	}
	if len(recall) > 0 {
		b.WriteString("\nPassages from earlier turns that may be relevant:\n")
		for _, p := range recall {
			fmt.Fprintf(&b, "\n```\n%s\n```\n", strings.TrimSpace(p))
		}
	}
	return b.String()
}

// UserMessage renders the input of turn n. lastSecret is the secret info
// of turn n-1, if any.
func UserMessage(n int, in model.TurnInput, lastSecret string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "turn %d", n)
	if a := strings.TrimSpace(in.PlayerAction); a != "" {
		b.WriteString("\n# player action\n")
		b.WriteString(a)
	}
	if g := strings.TrimSpace(in.GMInstruction); g != "" {
		b.WriteString("\n# gm command\n")
		b.WriteString(g)
	}
	if lastSecret != "" {
		b.WriteString("\n# last secret info\n")
		b.WriteString(lastSecret)
	}
	return b.String()
}

// BuildRequest assembles the text request for the next turn.
func BuildRequest(gd *model.GameData, in model.TurnInput, recall []string, maxTokens int) llm.Request {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	start := max(0, len(gd.Turns)-HistorySize)
	msgs := make([]llm.Message, 0, 2*(len(gd.Turns)-start)+1)
	for i := start; i < len(gd.Turns); i++ {
		t := gd.Turns[i]
		msgs = append(msgs,
			llm.User(UserMessage(i, t.Input, secretBefore(gd, i))),
			llm.Assistant(FormatOutput(t.Output)),
		)
	}
	n := len(gd.Turns)
	msgs = append(msgs, llm.User(UserMessage(n, in, secretBefore(gd, n))))

	return llm.Request{
		System:    SystemPrompt(gd, recall),
		Messages:  msgs,
		MaxTokens: maxTokens,
	}
}

func secretBefore(gd *model.GameData, i int) string {
	if i == 0 || i > len(gd.Turns) {
		return ""
	}
	return gd.Turns[i-1].Output.SecretInfo
}

const imageExcerpt = 1200

// ImagePrompt describes the illustration for the next turn.
func ImagePrompt(gd *model.GameData, in model.TurnInput) string {
	var b strings.Builder
	b.WriteString("A single illustration for an interactive story. No text, captions or speech bubbles.\n\n")
	fmt.Fprintf(&b, "Setting:\n%s\n", truncate(strings.TrimSpace(gd.WorldDescription), imageExcerpt))
	fmt.Fprintf(&b, "\nMain character: %s\n", gd.PlayerCharacter)
	if n := len(gd.Turns); n > 0 {
		fmt.Fprintf(&b, "\nStory so far:\n%s\n", truncate(gd.Turns[n-1].Output.Text, imageExcerpt))
	}
	if s := in.String(); s != "" {
		fmt.Fprintf(&b, "\nDepict what happens next: %s\n", s)
	} else {
		b.WriteString("\nDepict what happens next.\n")
	}
	return b.String()
}

const summarySystem = `You condense an interactive story into a summary that lets a storyteller
continue it. Keep every named character, place, open thread and promise.
Write plain prose, no headings, no lists, at most 800 words.`

// SummaryRequest asks for a summary of the last SummaryInterval turns of gd,
// continuing the previous summary if there is one.
func SummaryRequest(gd *model.GameData, maxTokens int) llm.Request {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	var b strings.Builder
	fmt.Fprintf(&b, "# world\n%s\n", strings.TrimSpace(gd.WorldDescription))
	fmt.Fprintf(&b, "\n# player character\n%s\n", gd.PlayerCharacter)

	n := len(gd.Turns)
	start := max(0, n-model.SummaryInterval)
	if s, ok := summaryBefore(gd, start); ok {
		fmt.Fprintf(&b, "\n# summary up to turn %d\n%s\n", s.Age, strings.TrimSpace(s.Content))
	}
	for i := start; i < n; i++ {
		t := gd.Turns[i]
		fmt.Fprintf(&b, "\n# turn %d\n", i)
		if in := t.Input.String(); in != "" {
			fmt.Fprintf(&b, "input: %s\n", in)
		}
		b.WriteString(t.Output.Text)
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "\nSummarize everything up to and including turn %d.", n-1)

	return llm.Request{
		System:    summarySystem,
		Messages:  []llm.Message{llm.User(b.String())},
		MaxTokens: maxTokens,
	}
}

// summaryBefore returns the latest summary covering no turn at or after start.
func summaryBefore(gd *model.GameData, start int) (model.Summary, bool) {
	for i := len(gd.Summaries) - 1; i >= 0; i-- {
		if gd.Summaries[i].Age <= start {
			return gd.Summaries[i], true
		}
	}
	return model.Summary{}, false
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
