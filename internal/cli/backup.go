package cli

import (
	"fmt"
	"os"

	"github.com/rcliao/world-weaver/internal/backup"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "backup <save>",
		Short: "Upload an archive to S3-compatible storage",
		Long: "Upload a save's archive to the bucket configured by WORLD_WEAVER_BACKUP_*. " +
			"--list shows existing backups and --restore downloads one.",
		Args: cobra.ExactArgs(1),
		Run:  runBackup,
	}

	cmd.Flags().Bool("list", false, "List backups of the save instead of uploading")
	cmd.Flags().String("restore", "", "Download this backup object")
	cmd.Flags().StringP("out", "o", "", "Destination for --restore (must not exist)")

	RootCmd.AddCommand(cmd)
}

func runBackup(cmd *cobra.Command, args []string) {
	list, _ := cmd.Flags().GetBool("list")
	restore, _ := cmd.Flags().GetString("restore")
	out, _ := cmd.Flags().GetString("out")

	if !cfg.Backup.Enabled() {
		exitErr("backup", fmt.Errorf("WORLD_WEAVER_BACKUP_ENDPOINT is not set"))
	}
	u, err := backup.New(backup.Config{
		Endpoint:  cfg.Backup.Endpoint,
		Region:    cfg.Backup.Region,
		AccessKey: cfg.Backup.AccessKey,
		SecretKey: cfg.Backup.SecretKey,
		Bucket:    cfg.Backup.Bucket,
		UseSSL:    cfg.Backup.UseSSL,
	})
	if err != nil {
		exitErr("backup", err)
	}

	sv := resolveSave(cmd, args[0])

	switch {
	case list:
		keys, err := u.List(cmd.Context(), sv.ID)
		if err != nil {
			exitErr("list backups", err)
		}
		printJSON(keys)
	case restore != "":
		if out == "" {
			exitErr("restore", fmt.Errorf("--out is required"))
		}
		if err := u.Download(cmd.Context(), restore, out); err != nil {
			exitErr("restore", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"object":%q,"path":%q}`+"\n", restore, out)
	default:
		if _, err := os.Stat(sv.Path); err != nil {
			exitErr("backup", err)
		}
		key, err := u.Upload(cmd.Context(), sv.ID, sv.Path)
		if err != nil {
			exitErr("backup", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"bucket":%q,"object":%q}`+"\n", cfg.Backup.Bucket, key)
	}
}
