package corpus_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/retellabs/retell/internal/corpus"
)

const sampleVTT = "\ufeffWEBVTT\n" + `
NOTE this block is metadata
and spans two lines

STYLE
::cue { color: white }

intro
00:00:00.000 --> 00:00:02.000
<v Narrator>Hello world

00:00:02.000 --> 00:00:05.500
the meeting is
at noon

00:00:05.500 --> 00:00:06.000
<i></i>
`

const sampleSRT = `1
00:00:00,000 --> 00:00:02,000
Hello world

2
00:00:02,000 --> 00:00:05,500
the <b>meeting</b> is at noon
`

func TestImportSubtitles_WebVTT(t *testing.T) {
	t.Parallel()

	snap, err := corpus.ImportSubtitles("episode1", strings.NewReader(sampleVTT))
	if err != nil {
		t.Fatalf("ImportSubtitles: %v", err)
	}

	if snap.Name != "episode1" {
		t.Errorf("Name = %q, want %q", snap.Name, "episode1")
	}
	want := []string{"Hello world", "the meeting is at noon"}
	if len(snap.Sentences) != len(want) {
		t.Fatalf("got %d sentences %v, want %d", len(snap.Sentences), snap.Sentences, len(want))
	}
	for i := range want {
		if snap.Sentences[i] != want[i] {
			t.Errorf("sentence %d = %q, want %q", i, snap.Sentences[i], want[i])
		}
	}
}

func TestImportSubtitles_SRT(t *testing.T) {
	t.Parallel()

	snap, err := corpus.ImportSubtitles("clip", strings.NewReader(sampleSRT))
	if err != nil {
		t.Fatalf("ImportSubtitles: %v", err)
	}

	want := []string{"Hello world", "the meeting is at noon"}
	if len(snap.Sentences) != len(want) {
		t.Fatalf("got %d sentences %v, want %d", len(snap.Sentences), snap.Sentences, len(want))
	}
	for i := range want {
		if snap.Sentences[i] != want[i] {
			t.Errorf("sentence %d = %q, want %q", i, snap.Sentences[i], want[i])
		}
	}
}

func TestImportSubtitles_Empty(t *testing.T) {
	t.Parallel()

	snap, err := corpus.ImportSubtitles("empty", strings.NewReader("WEBVTT\n"))
	if err != nil {
		t.Fatalf("ImportSubtitles: %v", err)
	}
	if len(snap.Sentences) != 0 {
		t.Errorf("got %d sentences, want 0", len(snap.Sentences))
	}
}

func TestImportSubtitleFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "session_recap.vtt")
	if err := os.WriteFile(path, []byte(sampleVTT), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	snap, err := corpus.ImportSubtitleFile(path)
	if err != nil {
		t.Fatalf("ImportSubtitleFile: %v", err)
	}
	if snap.Name != "session_recap" {
		t.Errorf("Name = %q, want file basename without extension", snap.Name)
	}
	if len(snap.Sentences) != 2 {
		t.Errorf("got %d sentences, want 2", len(snap.Sentences))
	}
}

func TestIsSubtitlePath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path string
		want bool
	}{
		{"a/b/episode.vtt", true},
		{"episode.SRT", true},
		{"corpus.yaml", false},
		{"plain", false},
	}
	for _, tc := range tests {
		if got := corpus.IsSubtitlePath(tc.path); got != tc.want {
			t.Errorf("IsSubtitlePath(%q) = %v, want %v", tc.path, got, tc.want)
		}
	}
}
