package game

import "strings"

// stopFinder passes streamed text through until a marker appears, holding
// back any tail that could be the start of the marker.
type stopFinder struct {
	marker  string
	pending string
	matched bool
}

func newStopFinder(marker string) *stopFinder {
	return &stopFinder{marker: marker}
}

// push returns the text of chunk that is known to precede the marker.
// After the marker is seen it returns "" for every further chunk.
func (f *stopFinder) push(chunk string) string {
	if f.matched {
		return ""
	}
	buf := f.pending + chunk
	if i := strings.Index(buf, f.marker); i >= 0 {
		f.matched = true
		f.pending = ""
		return buf[:i]
	}
	hold := 0
	for k := min(len(f.marker)-1, len(buf)); k > 0; k-- {
		if strings.HasSuffix(buf, f.marker[:k]) {
			hold = k
			break
		}
	}
	f.pending = buf[len(buf)-hold:]
	return buf[:len(buf)-hold]
}

// flush returns text held back when the stream ended without the marker.
func (f *stopFinder) flush() string {
	out := f.pending
	f.pending = ""
	return out
}
