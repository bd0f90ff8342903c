package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/rcliao/world-weaver/internal/model"
	"github.com/rcliao/world-weaver/internal/session"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "play <save>",
		Short: "Play interactively",
		Long: `Play a save turn by turn.

At the prompt type an action, a number to pick a proposed action,
"gm: <instruction>" to steer the story, or an empty line to continue.
:prev and :next page through past turns, :latest returns to the newest
turn and :quit leaves. Ctrl-C abandons a turn in progress.`,
		Args: cobra.ExactArgs(1),
		Run:  runPlay,
	}

	cmd.Flags().String("image-dir", "", "Write each new illustration into this directory")

	RootCmd.AddCommand(cmd)
}

func runPlay(cmd *cobra.Command, args []string) {
	imageDir, _ := cmd.Flags().GetString("image-dir")

	s, _, sess := openSave(cmd, args[0], true)
	defer s.Close()
	defer sess.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	gd := sess.Data()
	fmt.Fprintf(out, "%s\n\n", gd.Title)
	if n := len(gd.Turns); n > 0 {
		printTurn(out, n-1, gd.Turns[n-1])
	} else {
		fmt.Fprintf(out, "%s\n\nYou are %s. Press enter to begin.\n", strings.TrimSpace(gd.WorldDescription), gd.PlayerCharacter)
	}

	sc := bufio.NewScanner(os.Stdin)
	for {
		fmt.Fprint(out, "\n> ")
		if !sc.Scan() {
			return
		}
		line := strings.TrimSpace(sc.Text())

		switch line {
		case ":quit", ":q":
			return
		case ":prev":
			navigate(out, sess, -1)
			continue
		case ":next":
			navigate(out, sess, 1)
			continue
		case ":latest":
			if err := sess.ReturnToLatest(); err != nil {
				fmt.Fprintln(out, "already at the latest turn")
				continue
			}
			latest(out, sess)
			continue
		}

		if _, ok := sess.Viewing(); ok {
			sess.ReturnToLatest()
		}
		in := parseInput(line, sess.Data())
		fmt.Fprintln(out)
		turnCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
		i, err := playTurn(turnCtx, sess, in, out)
		stop()
		switch {
		case errors.Is(err, context.Canceled):
			sess.Abort()
			fmt.Fprintln(out, "\nturn abandoned")
			continue
		case err != nil:
			fmt.Fprintf(out, "\nturn failed: %v\n", err)
			continue
		}

		td := sess.Data().Turns[i]
		fmt.Fprintln(out)
		printActions(out, td.Output.ProposedActions)
		if imageDir != "" {
			path, err := writeTurnImage(ctx, sess, i, imageDir)
			if err != nil {
				fmt.Fprintf(out, "\nwrite image: %v\n", err)
				continue
			}
			fmt.Fprintf(out, "\n[illustration: %s]\n", path)
		}
	}
}

// parseInput turns a prompt line into turn input. A bare number picks one
// of the latest turn's proposed actions.
func parseInput(line string, gd model.GameData) model.TurnInput {
	if rest, ok := strings.CutPrefix(line, "gm:"); ok {
		return model.TurnInput{GMInstruction: strings.TrimSpace(rest)}
	}
	if n, err := strconv.Atoi(line); err == nil && len(gd.Turns) > 0 && n >= 1 && n <= model.ProposedActionCount {
		return model.TurnInput{PlayerAction: gd.Turns[len(gd.Turns)-1].Output.ProposedActions[n-1]}
	}
	return model.TurnInput{PlayerAction: line}
}

// navigate moves the view delta turns from the one shown now.
func navigate(w io.Writer, sess *session.Session, delta int) {
	gd := sess.Data()
	n := len(gd.Turns)
	cur, viewing := sess.Viewing()
	if !viewing {
		cur = n - 1
	}
	next := cur + delta
	switch {
	case n == 0 || next < 0:
		fmt.Fprintln(w, "no earlier turn")
		return
	case next >= n:
		fmt.Fprintln(w, "already at the latest turn")
		return
	case next == n-1 && viewing:
		sess.ReturnToLatest()
		latest(w, sess)
		return
	}
	if err := sess.Inspect(next); err != nil {
		fmt.Fprintf(w, "inspect: %v\n", err)
		return
	}
	fmt.Fprintln(w)
	printTurn(w, next, gd.Turns[next])
}

func latest(w io.Writer, sess *session.Session) {
	gd := sess.Data()
	if n := len(gd.Turns); n > 0 {
		fmt.Fprintln(w)
		printTurn(w, n-1, gd.Turns[n-1])
	}
}
