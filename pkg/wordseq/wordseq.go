// Package wordseq turns raw text lines into canonical word sequences.
//
// A [Normalizer] replaces configured punctuation marks with the word
// separator, collapses separator runs, and splits the result into tokens.
// The resulting [Sequence] is an immutable, ordered token list that can be
// re-joined with the separator it was built with, or sliced into
// sub-sequences by token index.
//
// Tokenization is a pure function of the normalizer's configuration and the
// input line; a Normalizer is safe for concurrent use.
package wordseq

import (
	"errors"
	"strings"
)

// Default normalization settings. Overridable via [Option] values.
const (
	// DefaultSeparator is the word separator used when none is configured.
	DefaultSeparator = " "

	// DefaultPunctuation lists the marks replaced by the separator when
	// punctuation removal is enabled.
	DefaultPunctuation = `!"#$%&'()*+,-./:;<=>?@[\]^_{|}~` + "`"
)

// ErrEmptySeparator is returned by [New] when the configured word separator
// is the empty string. An empty separator makes splitting and re-joining
// ill-defined, so it is rejected at construction time rather than per call.
var ErrEmptySeparator = errors.New("wordseq: word separator must not be empty")

// Option is a functional option for configuring a [Normalizer].
type Option func(*Normalizer)

// WithSeparator sets the word separator used for splitting and re-joining.
// Default: a single space.
func WithSeparator(sep string) Option {
	return func(n *Normalizer) {
		n.separator = sep
	}
}

// WithPunctuation sets the characters treated as punctuation marks. Each
// occurrence of any of these runes is replaced by the word separator before
// splitting. Default: [DefaultPunctuation].
func WithPunctuation(marks string) Option {
	return func(n *Normalizer) {
		n.punctuation = marks
	}
}

// WithoutPunctuationRemoval disables the punctuation substitution pass.
// The line is then split on the separator exactly as given, which is what
// pipelines feeding already-clean recognizer output want.
func WithoutPunctuationRemoval() Option {
	return func(n *Normalizer) {
		n.removePunctuation = false
	}
}

// WithLowercasing makes the normalizer lowercase every token. Enable this
// when downstream comparisons should be case-insensitive; by default tokens
// keep the casing of the input line.
func WithLowercasing() Option {
	return func(n *Normalizer) {
		n.lowercase = true
	}
}

// Normalizer converts raw text lines into [Sequence] values according to a
// fixed configuration. Safe for concurrent use once constructed.
type Normalizer struct {
	separator         string
	punctuation       string
	removePunctuation bool
	lowercase         bool
}

// New returns a [Normalizer] configured with the supplied options.
// Returns [ErrEmptySeparator] when the separator option is set to "".
func New(opts ...Option) (*Normalizer, error) {
	n := &Normalizer{
		separator:         DefaultSeparator,
		punctuation:       DefaultPunctuation,
		removePunctuation: true,
	}
	for _, o := range opts {
		o(n)
	}
	if n.separator == "" {
		return nil, ErrEmptySeparator
	}
	return n, nil
}

// Separator returns the configured word separator.
func (n *Normalizer) Separator() string {
	return n.separator
}

// Normalize converts line into a [Sequence].
//
// When punctuation removal is enabled, every punctuation rune is first
// replaced by the separator. Runs of consecutive separators are collapsed
// into a single one and separators at either edge of the line are dropped,
// so the output contains only non-empty tokens. A line that is empty or
// consists solely of separators and punctuation yields a zero-length
// sequence.
func (n *Normalizer) Normalize(line string) Sequence {
	if n.removePunctuation {
		var b strings.Builder
		b.Grow(len(line))
		for _, r := range line {
			if strings.ContainsRune(n.punctuation, r) {
				b.WriteString(n.separator)
			} else {
				b.WriteRune(r)
			}
		}
		line = b.String()
	}
	if n.lowercase {
		line = strings.ToLower(line)
	}

	var tokens []string
	for _, tok := range strings.Split(line, n.separator) {
		if tok == "" {
			continue // collapsed separator run or line edge
		}
		tokens = append(tokens, tok)
	}

	return Sequence{tokens: tokens, separator: n.separator}
}

// Sequence is an ordered, immutable list of word tokens together with the
// separator they were split on. The zero value is an empty sequence joined
// by [DefaultSeparator].
type Sequence struct {
	tokens    []string
	separator string
}

// NewSequence builds a Sequence directly from tokens, joined by sep when
// rendered. Intended for callers that already hold tokenized data; sep
// falls back to [DefaultSeparator] when empty.
func NewSequence(tokens []string, sep string) Sequence {
	if sep == "" {
		sep = DefaultSeparator
	}
	out := make([]string, len(tokens))
	copy(out, tokens)
	return Sequence{tokens: out, separator: sep}
}

// Tokens returns a copy of the token list. Mutating the returned slice does
// not affect the sequence.
func (s Sequence) Tokens() []string {
	out := make([]string, len(s.tokens))
	copy(out, s.tokens)
	return out
}

// Len returns the number of tokens in the sequence.
func (s Sequence) Len() int {
	return len(s.tokens)
}

// Token returns the i-th token. It panics when i is out of range, matching
// slice semantics.
func (s Sequence) Token(i int) string {
	return s.tokens[i]
}

// Sub returns the sub-sequence covering the half-open token range
// [begin, end). Indices outside the sequence are clamped; begin >= end
// yields an empty sequence. The result shares the receiver's separator.
func (s Sequence) Sub(begin, end int) Sequence {
	if begin < 0 {
		begin = 0
	}
	if end > len(s.tokens) {
		end = len(s.tokens)
	}
	if begin >= end {
		return Sequence{separator: s.separator}
	}
	out := make([]string, end-begin)
	copy(out, s.tokens[begin:end])
	return Sequence{tokens: out, separator: s.separator}
}

// String re-joins the tokens with the sequence's separator.
func (s Sequence) String() string {
	sep := s.separator
	if sep == "" {
		sep = DefaultSeparator
	}
	return strings.Join(s.tokens, sep)
}
