package game

import (
	"fmt"
	"strings"

	"github.com/rcliao/world-weaver/internal/model"
)

// Delimiters of the model output, each on its own line.
const (
	EndOfOutput = "<<<EOO>>>"
	EndOfSecret = "<<<EOS>>>"
	EndOfAction = "<<<EOA>>>"
)

// ParseOutput splits raw model text into the visible output, the secret
// info and the proposed actions.
func ParseOutput(raw string) (model.TurnOutput, error) {
	var out model.TurnOutput

	parts := strings.Split(raw, EndOfOutput)
	if len(parts) != 2 {
		return out, fmt.Errorf("%w: want one %s, found %d", ErrValidationFailed, EndOfOutput, len(parts)-1)
	}
	out.Text = strings.TrimSpace(parts[0])
	if out.Text == "" {
		return out, fmt.Errorf("%w: empty output text", ErrValidationFailed)
	}

	parts = strings.Split(parts[1], EndOfSecret)
	if len(parts) != 2 {
		return out, fmt.Errorf("%w: want one %s, found %d", ErrValidationFailed, EndOfSecret, len(parts)-1)
	}
	out.SecretInfo = strings.TrimSpace(parts[0])

	actions := strings.Split(parts[1], EndOfAction)
	if len(actions) != model.ProposedActionCount {
		return out, fmt.Errorf("%w: want %d proposed actions, found %d",
			ErrValidationFailed, model.ProposedActionCount, len(actions))
	}
	for i, a := range actions {
		a = strings.TrimSpace(a)
		if a == "" {
			return out, fmt.Errorf("%w: proposed action %d is empty", ErrValidationFailed, i+1)
		}
		out.ProposedActions[i] = a
	}
	return out, nil
}

// FormatOutput renders a turn output the way the model is asked to write it.
func FormatOutput(out model.TurnOutput) string {
	var b strings.Builder
	b.WriteString(out.Text)
	b.WriteString("\n" + EndOfOutput + "\n")
	b.WriteString(out.SecretInfo)
	b.WriteString("\n" + EndOfSecret + "\n")
	b.WriteString(strings.Join(out.ProposedActions[:], "\n"+EndOfAction+"\n"))
	return b.String()
}
