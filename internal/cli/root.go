// Package cli implements the world-weaver CLI commands.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/rcliao/world-weaver/internal/config"
	"github.com/rcliao/world-weaver/internal/game"
	"github.com/rcliao/world-weaver/internal/imagegen"
	"github.com/rcliao/world-weaver/internal/llm"
	"github.com/rcliao/world-weaver/internal/model"
	"github.com/rcliao/world-weaver/internal/session"
	"github.com/rcliao/world-weaver/internal/store"
	"github.com/rcliao/world-weaver/internal/telemetry"
	"github.com/spf13/cobra"
)

var (
	dbPath     string
	homeDir    string
	formatFlag string

	cfg          *config.Config
	flushTracing = func(context.Context) error { return nil }
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "world-weaver",
	Short: "Illustrated interactive fiction in the terminal",
	Long: "Play text adventures written and illustrated by language and image models. " +
		"Each game is a single append-only archive file; a SQLite library keeps track of them.",
	PersistentPreRun:  loadConfig,
	PersistentPostRun: func(cmd *cobra.Command, args []string) { flushTracing(context.Background()) },
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Library database path (default: $WORLD_WEAVER_DB or <home>/library.db)")
	RootCmd.PersistentFlags().StringVar(&homeDir, "home", "", "Data directory (default: $WORLD_WEAVER_HOME or ~/.world-weaver)")
	RootCmd.PersistentFlags().StringVarP(&formatFlag, "format", "f", "json", "Output format: json or text")
}

func loadConfig(cmd *cobra.Command, args []string) {
	// flags win over the environment and the .env file
	if homeDir != "" {
		os.Setenv("WORLD_WEAVER_HOME", homeDir)
	}
	if dbPath != "" {
		os.Setenv("WORLD_WEAVER_DB", dbPath)
	}
	c, err := config.Load()
	if err != nil {
		exitErr("load config", err)
	}
	cfg = c

	shutdown, err := telemetry.Setup(cmd.Context(), "world-weaver", cfg.OtelEndpoint)
	if err != nil {
		exitErr("setup tracing", err)
	}
	flushTracing = shutdown
}

func getDBPath() string {
	return cfg.DB
}

func openStore() (*store.SQLiteStore, error) {
	return store.NewSQLiteStore(getDBPath())
}

// newOrchestrator builds the turn orchestrator for a save. With models
// false no provider is contacted or required, which is enough for
// commands that only read the game.
func newOrchestrator(ctx context.Context, s *store.SQLiteStore, saveID string, models bool) (*game.Orchestrator, error) {
	o := &game.Orchestrator{
		Recall:    store.SaveRecaller{Store: s, SaveID: saveID},
		MaxTokens: cfg.MaxTokens,
	}
	if !models {
		return o, nil
	}

	tp, err := llm.ParseProvided(cfg.TextModel)
	if err != nil {
		return nil, err
	}
	text, err := llm.New(ctx, tp, cfg.LLMKeys())
	if err != nil {
		return nil, fmt.Errorf("text model: %w", err)
	}
	ip, err := imagegen.ParseProvided(cfg.ImageModel)
	if err != nil {
		return nil, err
	}
	img, err := imagegen.New(ctx, ip, cfg.ImageKeys())
	if err != nil {
		return nil, fmt.Errorf("image model: %w", err)
	}
	o.Text, o.Image = text, img
	return o, nil
}

// openSave resolves ref in the library and opens its archive.
func openSave(cmd *cobra.Command, ref string, models bool) (*store.SQLiteStore, *model.Save, *session.Session) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	sv, err := s.Get(cmd.Context(), ref)
	if err != nil {
		s.Close()
		exitErr("get save", err)
	}
	orch, err := newOrchestrator(cmd.Context(), s, sv.ID, models)
	if err != nil {
		s.Close()
		exitErr("configure models", err)
	}
	sess, err := session.Open(sv.Path, orch, session.Options{SaveID: sv.ID, Index: s})
	if err != nil {
		s.Close()
		exitErr("open archive", err)
	}
	return s, sv, sess
}

// resolveSave looks up ref in the library.
func resolveSave(cmd *cobra.Command, ref string) *model.Save {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()
	sv, err := s.Get(cmd.Context(), ref)
	if err != nil {
		exitErr("get save", err)
	}
	return sv
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
