package archive

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rcliao/world-weaver/internal/model"
)

// FrameInfo describes one valid frame found by Scan.
type FrameInfo struct {
	Kind    string         `json:"kind"`
	Offset  int64          `json:"offset"`
	Size    int64          `json:"size"`
	ImageID *model.ImageID `json:"image_id,omitempty"`
	Turns   *int           `json:"turns,omitempty"`
}

// Report is a read-only account of an archive's frames.
type Report struct {
	Path       string      `json:"path"`
	FileSize   int64       `json:"file_size"`
	ValidSize  int64       `json:"valid_size"`
	TailBytes  int64       `json:"tail_bytes"`
	TailReason string      `json:"tail_reason,omitempty"`
	Images     int         `json:"images"`
	Snapshots  int         `json:"snapshots"`
	Turns      int         `json:"turns"`
	Orphans    int         `json:"orphans"`
	Frames     []FrameInfo `json:"frames,omitempty"`
}

// Recoverable reports whether Open would succeed on the scanned file.
func (r *Report) Recoverable() bool { return r.Snapshots > 0 }

// Scan walks the archive at path without modifying it.
func Scan(path string) (*Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat archive: %w", err)
	}

	rep := &Report{Path: path, FileSize: info.Size()}
	var latest *model.GameData
	seen := map[model.ImageID]bool{}

	valid, scanErr := scanFrames(f, info.Size(), func(fr frame) error {
		fi := FrameInfo{Kind: fr.kind.String(), Offset: fr.offset, Size: fr.size()}
		switch fr.kind {
		case KindImage:
			id := fr.imageID()
			fi.ImageID = &id
			seen[id] = true
			rep.Images++
		case KindSnapshot:
			var gd model.GameData
			if err := json.Unmarshal(fr.payload, &gd); err != nil {
				return errBadSnapshot
			}
			n := len(gd.Turns)
			fi.Turns = &n
			latest = &gd
			rep.Snapshots++
		}
		rep.Frames = append(rep.Frames, fi)
		return nil
	})
	if scanErr != nil && !isTail(scanErr) {
		return nil, fmt.Errorf("scan archive: %w", scanErr)
	}

	rep.ValidSize = valid
	rep.TailBytes = info.Size() - valid
	if scanErr != nil {
		rep.TailReason = scanErr.Error()
	}
	if latest != nil {
		rep.Turns = len(latest.Turns)
		referenced := map[model.ImageID]bool{}
		for _, t := range latest.Turns {
			referenced[t.ImageID] = true
		}
		for id := range seen {
			if !referenced[id] {
				rep.Orphans++
			}
		}
	}
	return rep, nil
}
