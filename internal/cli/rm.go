package cli

import (
	"fmt"
	"os"

	"github.com/rcliao/world-weaver/internal/store"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "rm <save>",
		Short: "Remove a save from the library",
		Long:  "Remove a save. The archive file is kept unless --delete-file is given.",
		Args:  cobra.ExactArgs(1),
		Run:   runRm,
	}

	cmd.Flags().Bool("hard", false, "Permanent delete of the library entry and its index (irreversible)")
	cmd.Flags().Bool("delete-file", false, "Also delete the archive file (implies --hard)")

	RootCmd.AddCommand(cmd)
}

func runRm(cmd *cobra.Command, args []string) {
	hard, _ := cmd.Flags().GetBool("hard")
	deleteFile, _ := cmd.Flags().GetBool("delete-file")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	sv, err := s.Get(cmd.Context(), args[0])
	if err != nil {
		exitErr("rm", err)
	}
	if err := s.Rm(cmd.Context(), store.RmParams{Ref: sv.ID, Hard: hard || deleteFile}); err != nil {
		exitErr("rm", err)
	}
	if deleteFile {
		if err := os.Remove(sv.Path); err != nil && !os.IsNotExist(err) {
			exitErr("delete archive", err)
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"id":%q,"title":%q}`+"\n", sv.ID, sv.Title)
}
