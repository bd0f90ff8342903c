package archive

import (
	"context"
	"fmt"

	"github.com/rcliao/world-weaver/internal/model"
)

// Export returns the current snapshot together with every image it references.
func (a *Archive) Export(ctx context.Context) (*model.ExportedGame, error) {
	gd := a.Current()
	out := &model.ExportedGame{Game: gd, Images: make(map[model.ImageID][]byte, len(gd.Turns))}
	for _, t := range gd.Turns {
		if _, ok := out.Images[t.ImageID]; ok {
			continue
		}
		data, err := a.ReadImage(ctx, t.ImageID)
		if err != nil {
			return nil, fmt.Errorf("export turn image: %w", err)
		}
		out.Images[t.ImageID] = append([]byte(nil), data...)
	}
	return out, nil
}

// Import writes an exported game into a new archive at path. Images are
// re-added in turn order, so IDs are reassigned and orphans are dropped.
// On failure the new file is removed.
func Import(ctx context.Context, path string, exp *model.ExportedGame) (*Archive, error) {
	a, err := Create(path)
	if err != nil {
		return nil, err
	}

	gd := exp.Game.Clone()
	remap := make(map[model.ImageID]model.ImageID, len(gd.Turns))
	for i := range gd.Turns {
		old := gd.Turns[i].ImageID
		if id, ok := remap[old]; ok {
			gd.Turns[i].ImageID = id
			continue
		}
		data, ok := exp.Images[old]
		if !ok {
			a.discard()
			return nil, fmt.Errorf("import turn %d: %w: %d", i, ErrImageNotFound, old)
		}
		id, err := a.AddImage(ctx, data)
		if err != nil {
			a.discard()
			return nil, fmt.Errorf("import turn %d: %w", i, err)
		}
		remap[old] = id
		gd.Turns[i].ImageID = id
	}

	if err := a.Commit(ctx, &gd); err != nil {
		a.discard()
		return nil, fmt.Errorf("import: %w", err)
	}
	return a, nil
}
