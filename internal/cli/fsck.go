package cli

import (
	"fmt"
	"os"

	"github.com/rcliao/world-weaver/internal/archive"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "fsck <save or archive path>",
		Short: "Check an archive file",
		Long:  "Scan an archive frame by frame without modifying it. Exits 1 if the archive cannot be opened.",
		Args:  cobra.ExactArgs(1),
		Run:   runFsck,
	}

	cmd.Flags().Bool("frames", false, "List every frame")

	RootCmd.AddCommand(cmd)
}

func runFsck(cmd *cobra.Command, args []string) {
	frames, _ := cmd.Flags().GetBool("frames")

	path := args[0]
	if _, err := os.Stat(path); err != nil {
		path = resolveSave(cmd, path).Path
	}

	rep, err := archive.Scan(path)
	if err != nil {
		exitErr("fsck", err)
	}
	if !frames {
		rep.Frames = nil
	}
	printJSON(rep)
	if !rep.Recoverable() {
		exitErr("fsck", fmt.Errorf("%w: %s", archive.ErrArchiveCorrupt, path))
	}
}
