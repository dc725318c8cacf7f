package corpus_test

import (
	"testing"

	"github.com/retellabs/retell/internal/corpus"
	"github.com/retellabs/retell/pkg/wordseq"
)

func mustNormalizer(t *testing.T) *wordseq.Normalizer {
	t.Helper()
	n, err := wordseq.New()
	if err != nil {
		t.Fatalf("wordseq.New: %v", err)
	}
	return n
}

func TestVocabulary_CaseInsensitive(t *testing.T) {
	t.Parallel()

	v := corpus.NewVocabulary([]string{"Hello", "WORLD", "", "  "})

	if got := v.Len(); got != 2 {
		t.Fatalf("Len = %d, want 2 (empty entries ignored)", got)
	}
	for _, w := range []string{"hello", "Hello", "HELLO", "world"} {
		if !v.Contains(w) {
			t.Errorf("Contains(%q) = false, want true", w)
		}
	}
	if v.Contains("absent") {
		t.Error("Contains(absent) = true, want false")
	}
}

func TestBuild_PreservesInsertionOrder(t *testing.T) {
	t.Parallel()

	snap := corpus.Snapshot{
		Name:      "test",
		Sentences: []string{"first sentence", "second one!", ""},
	}
	c := corpus.Build(snap, mustNormalizer(t))

	if got := c.Len(); got != 3 {
		t.Fatalf("Len = %d, want 3 (empty sentences keep their slot)", got)
	}
	if got := c.Sentence(1); got != "second one!" {
		t.Errorf("Sentence(1) = %q, want raw text preserved", got)
	}
	if got := c.Sequence(1).String(); got != "second one" {
		t.Errorf("Sequence(1) = %q, want normalized %q", got, "second one")
	}
	if got := c.Sequence(2).Len(); got != 0 {
		t.Errorf("Sequence(2).Len = %d, want 0", got)
	}
	if got := c.Name(); got != "test" {
		t.Errorf("Name = %q, want %q", got, "test")
	}
}
