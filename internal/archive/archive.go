// Package archive implements the single-file save format: an append-only log
// of checksummed frames holding image blobs and full GameData snapshots.
//
// The file is never rewritten. Adding an image appends one image frame and
// committing appends one snapshot frame. Open rebuilds the image index and
// the current snapshot with one forward scan, discarding any torn tail left
// by an interrupted write.
package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/rcliao/world-weaver/internal/model"
)

var (
	// ErrArchiveCorrupt is returned by Open when no valid snapshot exists.
	ErrArchiveCorrupt = errors.New("archive corrupt: no valid snapshot")
	// ErrImageNotFound is returned when an image ID is absent from the index.
	ErrImageNotFound = errors.New("image not found")
)

// DefaultCacheSize is the number of image blobs kept in the read cache.
const DefaultCacheSize = 16

const tracerName = "github.com/rcliao/world-weaver/internal/archive"

// tracer is looked up per span so a provider registered after package
// initialization is honored.
func tracer() trace.Tracer { return otel.Tracer(tracerName) }

// Location is where an image's bytes live inside the file.
type Location struct {
	Offset int64 `json:"offset"`
	Length int64 `json:"length"`
}

// Archive is the single live handle on one archive file. All I/O against the
// file is serialized through it.
type Archive struct {
	mu      sync.Mutex
	path    string
	file    *os.File
	size    int64
	index   map[model.ImageID]Location
	nextID  model.ImageID
	current model.GameData
	cache   *lru.Cache[model.ImageID, []byte]
}

// Create initializes an empty archive at path. It fails if the file exists.
func Create(path string) (*Archive, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create archive dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create archive: %w", err)
	}
	return newArchive(path, f), nil
}

// Init creates an archive at path holding gd as its first snapshot. On
// failure no file is left behind.
func Init(ctx context.Context, path string, gd *model.GameData) (*Archive, error) {
	a, err := Create(path)
	if err != nil {
		return nil, err
	}
	if err := a.Commit(ctx, gd); err != nil {
		a.discard()
		return nil, fmt.Errorf("commit initial snapshot: %w", err)
	}
	return a, nil
}

// discard closes and removes an archive created by this process that never
// received a snapshot.
func (a *Archive) discard() {
	a.Close()
	if err := os.Remove(a.path); err != nil && !os.IsNotExist(err) {
		log.Printf("archive: remove unfinished %s: %v", a.path, err)
	}
}

// Open scans an existing archive and returns a handle positioned after its
// last valid frame. Any invalid tail is truncated away.
func Open(path string) (*Archive, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat archive: %w", err)
	}

	a := newArchive(path, f)
	var snapshot *model.GameData

	valid, scanErr := scanFrames(f, info.Size(), func(fr frame) error {
		switch fr.kind {
		case KindImage:
			id := fr.imageID()
			a.index[id] = Location{
				Offset: fr.offset + frameHeaderSize + imageIDSize,
				Length: int64(len(fr.payload) - imageIDSize),
			}
			if id >= a.nextID {
				a.nextID = id + 1
			}
		case KindSnapshot:
			var gd model.GameData
			if err := json.Unmarshal(fr.payload, &gd); err != nil {
				return errBadSnapshot
			}
			snapshot = &gd
		}
		return nil
	})
	if scanErr != nil && !isTail(scanErr) {
		f.Close()
		return nil, fmt.Errorf("scan archive: %w", scanErr)
	}
	if snapshot == nil {
		f.Close()
		return nil, ErrArchiveCorrupt
	}
	a.current = *snapshot

	if valid < info.Size() {
		log.Printf("archive: discarding %d trailing bytes of %s (%v)", info.Size()-valid, path, scanErr)
		if err := f.Truncate(valid); err != nil {
			f.Close()
			return nil, fmt.Errorf("truncate archive tail: %w", err)
		}
	}
	a.size = valid
	return a, nil
}

func newArchive(path string, f *os.File) *Archive {
	cache, _ := lru.New[model.ImageID, []byte](DefaultCacheSize)
	return &Archive{
		path:  path,
		file:  f,
		index: make(map[model.ImageID]Location),
		cache: cache,
	}
}

// AddImage appends an image frame and returns the newly allocated ID.
func (a *Archive) AddImage(ctx context.Context, data []byte) (model.ImageID, error) {
	_, span := tracer().Start(ctx, "archive.AddImage")
	defer span.End()

	a.mu.Lock()
	defer a.mu.Unlock()

	id := a.nextID
	buf := encodeImage(id, data)
	if err := a.append(buf); err != nil {
		return 0, fmt.Errorf("add image: %w", err)
	}

	a.index[id] = Location{
		Offset: a.size - int64(len(data)),
		Length: int64(len(data)),
	}
	a.nextID = id + 1
	span.SetAttributes(attribute.Int64("image.id", int64(id)), attribute.Int("image.bytes", len(data)))
	return id, nil
}

// Commit appends a snapshot frame holding the full game state.
func (a *Archive) Commit(ctx context.Context, data *model.GameData) error {
	_, span := tracer().Start(ctx, "archive.Commit")
	defer span.End()

	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.append(encodeFrame(KindSnapshot, payload)); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}
	a.current = data.Clone()
	span.SetAttributes(attribute.Int("game.turns", len(data.Turns)), attribute.Int("snapshot.bytes", len(payload)))
	return nil
}

// append writes buf at the end of the valid region and flushes it. On
// failure the file is cut back so the next append starts on a frame
// boundary.
func (a *Archive) append(buf []byte) error {
	if _, err := a.file.WriteAt(buf, a.size); err != nil {
		a.cutBack()
		return err
	}
	if err := a.file.Sync(); err != nil {
		a.cutBack()
		return err
	}
	a.size += int64(len(buf))
	return nil
}

// cutBack drops a partly written frame. If that fails too, the next Open
// discards the torn tail instead.
func (a *Archive) cutBack() {
	if err := a.file.Truncate(a.size); err != nil {
		log.Printf("archive: truncate %s to %d after failed write: %v", a.path, a.size, err)
	}
}

// ReadImage returns the bytes of an image. The returned slice may be shared
// with the read cache and must not be modified.
func (a *Archive) ReadImage(ctx context.Context, id model.ImageID) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if data, ok := a.cache.Get(id); ok {
		return data, nil
	}
	loc, ok := a.index[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrImageNotFound, id)
	}
	data := make([]byte, loc.Length)
	if _, err := a.file.ReadAt(data, loc.Offset); err != nil {
		return nil, fmt.Errorf("read image %d: %w", id, err)
	}
	a.cache.Add(id, data)
	return data, nil
}

// Current returns a copy of the most recently committed snapshot.
func (a *Archive) Current() model.GameData {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current.Clone()
}

// Index returns a copy of the image index.
func (a *Archive) Index() map[model.ImageID]Location {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(map[model.ImageID]Location, len(a.index))
	for id, loc := range a.index {
		out[id] = loc
	}
	return out
}

// Size returns the number of bytes of valid frames in the file.
func (a *Archive) Size() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.size
}

// Path returns the archive's file path.
func (a *Archive) Path() string { return a.path }

// Close closes the underlying file.
func (a *Archive) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.file.Close()
}
