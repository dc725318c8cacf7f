package corpus

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ImportSubtitles reads a WebVTT or SRT subtitle file from r and returns a
// [Snapshot] with one reference sentence per cue. Reference scripts for
// recognizer output often exist only as subtitle tracks, so both formats are
// accepted by the same parser.
//
// Multi-line cue text is joined with a single space, inline markup tags
// (<i>, <b>, <v Speaker>, ...) are stripped, and empty cues are skipped.
// Timing lines, cue counters, and WebVTT NOTE/STYLE/REGION blocks are
// ignored. The import is best-effort: malformed blocks are skipped rather
// than failing the whole file.
func ImportSubtitles(name string, r io.Reader) (Snapshot, error) {
	snap := Snapshot{Name: name}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var cue []string
	inCue := false
	skipBlock := false

	flush := func() {
		if len(cue) > 0 {
			if text := strings.TrimSpace(strings.Join(cue, " ")); text != "" {
				snap.Sentences = append(snap.Sentences, text)
			}
			cue = cue[:0]
		}
		inCue = false
	}

	for sc.Scan() {
		line := strings.TrimSpace(strings.TrimPrefix(sc.Text(), "\ufeff"))

		if line == "" {
			flush()
			skipBlock = false
			continue
		}
		if skipBlock {
			continue
		}

		switch {
		case strings.HasPrefix(line, "WEBVTT"):
			continue
		case strings.HasPrefix(line, "NOTE"),
			strings.HasPrefix(line, "STYLE"),
			strings.HasPrefix(line, "REGION"):
			skipBlock = true
		case strings.Contains(line, "-->"):
			inCue = true
		case inCue:
			cue = append(cue, stripCueTags(line))
		default:
			// Cue identifier or SRT counter line before the timing; ignored.
		}
	}
	flush()

	if err := sc.Err(); err != nil {
		return Snapshot{}, fmt.Errorf("corpus: subtitles: read input: %w", err)
	}
	return snap, nil
}

// ImportSubtitleFile opens path and imports it via [ImportSubtitles]. The
// snapshot is named after the file, without its extension.
func ImportSubtitleFile(path string) (Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("corpus: subtitles: open %q: %w", path, err)
	}
	defer f.Close()

	base := filepath.Base(path)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return ImportSubtitles(name, f)
}

// IsSubtitlePath reports whether path names a subtitle file by extension.
func IsSubtitlePath(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".vtt", ".srt":
		return true
	}
	return false
}

// stripCueTags removes inline subtitle markup from s using a simple state
// machine. It is intentionally minimal, sufficient for the tags WebVTT and
// SRT renderers accept.
func stripCueTags(s string) string {
	if !strings.ContainsRune(s, '<') {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}
