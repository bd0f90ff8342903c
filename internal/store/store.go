// Package store provides the save library: a SQLite catalog of game archives
// and a searchable index of their committed turns.
package store

import (
	"context"

	"github.com/rcliao/world-weaver/internal/model"
)

// RegisterParams holds parameters for adding a save to the library.
type RegisterParams struct {
	Title           string
	PlayerCharacter string
	// Path of the archive file. When empty, the archive is placed in Dir
	// and named after the new save's ID.
	Path string
	Dir  string
}

// ListParams holds parameters for listing saves.
type ListParams struct {
	Player  string
	Limit   int
	Deleted bool // include soft-deleted saves
}

// RmParams holds parameters for removing a save.
type RmParams struct {
	Ref  string // ID or title
	Hard bool
}

// Store defines the save library interface.
type Store interface {
	// Register adds a save. The archive file itself is not touched.
	Register(ctx context.Context, p RegisterParams) (*model.Save, error)

	// Get resolves a save by ID or title.
	Get(ctx context.Context, ref string) (*model.Save, error)

	// List lists saves, most recently played first.
	List(ctx context.Context, p ListParams) ([]model.Save, error)

	// Rm soft-deletes (or hard-deletes) a save and its passages.
	Rm(ctx context.Context, p RmParams) error

	// RecordTurn brings a save's counters and passage index up to date
	// with gd.
	RecordTurn(ctx context.Context, saveID string, gd *model.GameData) error

	// AddWorld adds a world to the world library, or replaces one of the
	// same name when p.Replace is set.
	AddWorld(ctx context.Context, p AddWorldParams) (*model.World, error)

	// GetWorld looks a world up by name.
	GetWorld(ctx context.Context, name string) (*model.World, error)

	ListWorlds(ctx context.Context) ([]model.World, error)

	RmWorld(ctx context.Context, name string) error

	// Close closes the store.
	Close() error
}
