package game

import (
	"errors"
	"testing"

	"github.com/rcliao/world-weaver/internal/model"
)

const validOutput = `The door creaks open onto a dark stair.
<<<EOO>>>
A ghoul waits on the landing.
<<<EOS>>>
Go down the stairs.
<<<EOA>>>
Light a torch.
<<<EOA>>>
Close the door again.`

func TestParseOutput(t *testing.T) {
	out, err := ParseOutput(validOutput)
	if err != nil {
		t.Fatalf("ParseOutput: %v", err)
	}
	if out.Text != "The door creaks open onto a dark stair." {
		t.Errorf("Text = %q", out.Text)
	}
	if out.SecretInfo != "A ghoul waits on the landing." {
		t.Errorf("SecretInfo = %q", out.SecretInfo)
	}
	want := [3]string{"Go down the stairs.", "Light a torch.", "Close the door again."}
	if out.ProposedActions != want {
		t.Errorf("ProposedActions = %q, want %q", out.ProposedActions, want)
	}
}

func TestParseOutputInvalid(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"no markers", "just a story"},
		{"two EOO", "a<<<EOO>>>b<<<EOO>>>c<<<EOS>>>1<<<EOA>>>2<<<EOA>>>3"},
		{"no EOS", "a<<<EOO>>>b 1<<<EOA>>>2<<<EOA>>>3"},
		{"two actions", "a<<<EOO>>>b<<<EOS>>>1<<<EOA>>>2"},
		{"four actions", "a<<<EOO>>>b<<<EOS>>>1<<<EOA>>>2<<<EOA>>>3<<<EOA>>>4"},
		{"empty action", "a<<<EOO>>>b<<<EOS>>>1<<<EOA>>>  <<<EOA>>>3"},
		{"empty text", "  <<<EOO>>>b<<<EOS>>>1<<<EOA>>>2<<<EOA>>>3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseOutput(tt.raw)
			if !errors.Is(err, ErrValidationFailed) {
				t.Errorf("err = %v, want ErrValidationFailed", err)
			}
		})
	}
}

func TestFormatOutputParses(t *testing.T) {
	in := model.TurnOutput{
		Text:            "Visible.",
		SecretInfo:      "Hidden.",
		ProposedActions: [3]string{"One.", "Two.", "Three."},
	}
	out, err := ParseOutput(FormatOutput(in))
	if err != nil {
		t.Fatalf("ParseOutput: %v", err)
	}
	if out != in {
		t.Errorf("got %+v, want %+v", out, in)
	}
}
