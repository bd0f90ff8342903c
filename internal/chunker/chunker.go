// Package chunker splits story text into passages for search indexing.
package chunker

import (
	"strings"
	"unicode/utf8"
)

const (
	DefaultTargetSize = 500
	DefaultMaxSize    = 800
)

// Options configures chunking behavior. Sizes are in bytes.
type Options struct {
	TargetSize int
	MaxSize    int
}

// DefaultOptions returns default chunking options.
func DefaultOptions() Options {
	return Options{
		TargetSize: DefaultTargetSize,
		MaxSize:    DefaultMaxSize,
	}
}

// Chunk splits text into passages. Text no longer than MaxSize is a single
// passage; longer text is cut on paragraph boundaries, and paragraphs that
// are still too long are cut between sentences.
func Chunk(text string, opts Options) []string {
	if opts.TargetSize == 0 {
		opts = DefaultOptions()
	}

	text = strings.TrimSpace(text)
	if len(text) == 0 {
		return nil
	}
	if len(text) <= opts.MaxSize {
		return []string{text}
	}
	return merge(paragraphs(text), opts)
}

// paragraphs splits on blank lines and scene breaks.
func paragraphs(text string) []string {
	var out []string
	var current []string
	flush := func() {
		if p := strings.TrimSpace(strings.Join(current, "\n")); p != "" {
			out = append(out, p)
		}
		current = nil
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			flush()
		case isSceneBreak(trimmed):
			flush()
		case strings.HasPrefix(trimmed, "#"):
			flush()
			current = append(current, line)
		default:
			current = append(current, line)
		}
	}
	flush()
	return out
}

func isSceneBreak(line string) bool {
	return line == "***" || line == "---" || line == "* * *"
}

// merge joins small paragraphs up to TargetSize and splits oversized ones.
func merge(paras []string, opts Options) []string {
	var out []string
	var accum string

	flush := func() {
		if accum == "" {
			return
		}
		if len(accum) > opts.MaxSize {
			out = append(out, splitSentences(accum, opts)...)
		} else {
			out = append(out, accum)
		}
		accum = ""
	}

	for _, p := range paras {
		if accum == "" {
			accum = p
			continue
		}
		if combined := accum + "\n\n" + p; len(combined) <= opts.TargetSize {
			accum = combined
			continue
		}
		flush()
		accum = p
	}
	flush()
	return out
}

// splitSentences breaks a long paragraph after sentence punctuation,
// falling back to a hard cut on a rune boundary for run-on text.
func splitSentences(text string, opts Options) []string {
	var out []string
	var cur strings.Builder

	emit := func() {
		if t := strings.TrimSpace(cur.String()); t != "" {
			out = append(out, t)
		}
		cur.Reset()
	}

	for _, s := range sentences(text) {
		if cur.Len() > 0 && cur.Len()+len(s) > opts.TargetSize {
			emit()
		}
		for len(s) > opts.MaxSize {
			cut := opts.MaxSize
			for cut > 0 && !utf8.RuneStart(s[cut]) {
				cut--
			}
			cur.WriteString(s[:cut])
			emit()
			s = s[cut:]
		}
		cur.WriteString(s)
	}
	emit()
	return out
}

// sentences splits after '.', '!' or '?' followed by whitespace. Each
// returned sentence keeps its trailing space.
func sentences(text string) []string {
	var out []string
	start := 0
	for i := 0; i < len(text)-1; i++ {
		switch text[i] {
		case '.', '!', '?':
			if next := text[i+1]; next == ' ' || next == '\n' {
				out = append(out, text[start:i+2])
				start = i + 2
			}
		}
	}
	if start < len(text) {
		out = append(out, text[start:])
	}
	return out
}
