// Package corpus holds the immutable reference data the corrector matches
// hypotheses against: a list of trusted sentences and a vocabulary of known
// words.
//
// Snapshots come from a YAML file ([LoadFile]), a subtitle file
// ([ImportSubtitleFile]), or a PostgreSQL database ([Store.Snapshot]), and
// are turned into a tokenized
// [Corpus] once via [Build]. After construction a Corpus is never mutated,
// so any number of correction calls may read it concurrently. Rebuilding
// reference data means loading a fresh snapshot and building a new Corpus;
// the stores own that coordination, not the engine.
package corpus

import (
	"strings"

	"github.com/retellabs/retell/pkg/wordseq"
)

// Snapshot is the raw, immutable reference data handed over by a store:
// sentences as plain text and the known-word list, both in insertion order.
type Snapshot struct {
	// Name identifies the corpus (e.g. which mailbox or document set it was
	// built from).
	Name string

	// Sentences are the trusted reference sentences, one per entry.
	Sentences []string

	// Words is the vocabulary: every word considered correctly recognizable.
	Words []string
}

// Vocabulary is a case-insensitive set of known words. A token absent from
// the vocabulary is treated as a likely mis-recognition by the corrector.
type Vocabulary struct {
	words map[string]struct{}
}

// NewVocabulary builds a [Vocabulary] from words. Lookup is case-insensitive;
// empty entries are ignored.
func NewVocabulary(words []string) Vocabulary {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" {
			continue
		}
		set[w] = struct{}{}
	}
	return Vocabulary{words: set}
}

// Contains reports whether token is a known word, ignoring case.
func (v Vocabulary) Contains(token string) bool {
	_, ok := v.words[strings.ToLower(token)]
	return ok
}

// Len returns the number of distinct known words.
func (v Vocabulary) Len() int {
	return len(v.words)
}

// Words returns the vocabulary entries in unspecified order.
func (v Vocabulary) Words() []string {
	out := make([]string, 0, len(v.words))
	for w := range v.words {
		out = append(out, w)
	}
	return out
}

// Corpus is the tokenized form of a [Snapshot]: every reference sentence
// normalized once at construction so the corrector never re-tokenizes
// references per call. Index order equals snapshot insertion order, which is
// the deterministic final tie-break when candidates score equally.
//
// A Corpus is immutable and safe for concurrent readers.
type Corpus struct {
	name      string
	sentences []string
	sequences []wordseq.Sequence
}

// Build tokenizes every sentence of snap with norm and returns the resulting
// [Corpus]. Sentences that normalize to zero tokens are kept (they simply
// never win a correction), preserving index stability with the snapshot.
func Build(snap Snapshot, norm *wordseq.Normalizer) *Corpus {
	c := &Corpus{
		name:      snap.Name,
		sentences: make([]string, len(snap.Sentences)),
		sequences: make([]wordseq.Sequence, len(snap.Sentences)),
	}
	copy(c.sentences, snap.Sentences)
	for i, s := range snap.Sentences {
		c.sequences[i] = norm.Normalize(s)
	}
	return c
}

// Name returns the corpus display name.
func (c *Corpus) Name() string {
	return c.name
}

// Len returns the number of reference sentences.
func (c *Corpus) Len() int {
	return len(c.sequences)
}

// Sentence returns the i-th reference sentence as raw text.
func (c *Corpus) Sentence(i int) string {
	return c.sentences[i]
}

// Sequence returns the tokenized form of the i-th reference sentence.
func (c *Corpus) Sequence(i int) wordseq.Sequence {
	return c.sequences[i]
}
