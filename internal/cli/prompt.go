package cli

import (
	"fmt"

	"github.com/rcliao/world-weaver/internal/game"
	"github.com/rcliao/world-weaver/internal/model"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "prompt <save>",
		Short: "Print the requests the next turn would send",
		Long:  "Print the text request and the image prompt for the next turn without contacting any model.",
		Args:  cobra.ExactArgs(1),
		Run:   runPrompt,
	}

	cmd.Flags().StringP("action", "a", "", "Player action")
	cmd.Flags().StringP("gm", "g", "", "Game master instruction")

	RootCmd.AddCommand(cmd)
}

func runPrompt(cmd *cobra.Command, args []string) {
	action, _ := cmd.Flags().GetString("action")
	gm, _ := cmd.Flags().GetString("gm")

	s, _, sess := openSave(cmd, args[0], false)
	defer s.Close()
	defer sess.Close()

	in := model.TurnInput{PlayerAction: action, GMInstruction: gm}
	req := sess.Prompt(cmd.Context(), in)
	gd := sess.Data()
	imagePrompt := game.ImagePrompt(&gd, in)

	if textFormat() {
		fmt.Printf("# system\n%s\n", req.System)
		for _, m := range req.Messages {
			fmt.Printf("\n# %s\n%s\n", m.Role, m.Content)
		}
		fmt.Printf("\n# image\n%s\n", imagePrompt)
		return
	}
	printJSON(struct {
		Text  any    `json:"text"`
		Image string `json:"image"`
	}{req, imagePrompt})
}
