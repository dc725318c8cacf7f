// Package correct implements the correction orchestrator: given a noisy
// recognizer hypothesis and an immutable reference corpus, it selects the
// best-matching reference sentence by normalized edit distance and fuses the
// two token sequences along the alignment path.
//
// The fusion policy favours the reference wherever the hypothesis token is
// absent from the known vocabulary (a likely mis-recognition) and keeps the
// hypothesis token wherever it is a known word, so recognizer output that
// already matches the vocabulary is never overwritten.
//
// A [Corrector] is a pure function of its inputs and the immutable corpus;
// concurrent Correct calls need no synchronisation.
package correct

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/antzucaro/matchr"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"github.com/retellabs/retell/internal/corpus"
	"github.com/retellabs/retell/internal/observe"
	"github.com/retellabs/retell/pkg/align"
	"github.com/retellabs/retell/pkg/wordseq"
)

// defaultRejectionThreshold is the normalized-distance ceiling above which a
// best match is discarded and the hypothesis returned unchanged.
const defaultRejectionThreshold = 0.5

// Option is a functional option for configuring a [Corrector].
type Option func(*Corrector)

// WithRejectionThreshold sets the normalized distance above which no
// correction is applied. Best matches scoring exactly the threshold are
// still accepted. Default: 0.5.
func WithRejectionThreshold(threshold float64) Option {
	return func(c *Corrector) {
		c.rejectionThreshold = threshold
	}
}

// WithWorkers sets how many goroutines scan the corpus in parallel.
// Default: runtime.GOMAXPROCS(0).
func WithWorkers(n int) Option {
	return func(c *Corrector) {
		c.workers = n
	}
}

// WithVocabularySnap enables the final snap stage: every token of the merged
// output that is still out-of-vocabulary is replaced by the most similar
// vocabulary word (Jaro-Winkler) when its similarity reaches threshold.
// Disabled by default.
func WithVocabularySnap(threshold float64) Option {
	return func(c *Corrector) {
		c.snapThreshold = threshold
	}
}

// WithMetrics attaches a [observe.Metrics] instance. When nil (the default),
// no metrics are recorded.
func WithMetrics(m *observe.Metrics) Option {
	return func(c *Corrector) {
		c.metrics = m
	}
}

// Recorder receives every correction outcome, applied or not. Implementations
// must be safe for concurrent use.
type Recorder interface {
	Record(result *Result) error
}

// WithRecorder attaches a [Recorder] that is invoked with each [Result].
// Recorder failures are logged and never fail the correction itself.
func WithRecorder(r Recorder) Option {
	return func(c *Corrector) {
		c.recorder = r
	}
}

// Result is the outcome of one correction call.
type Result struct {
	// Original is the hypothesis exactly as passed in.
	Original string `json:"original"`

	// Corrected is the corrected sentence, re-joined with the configured
	// word separator. When Applied is false it is the hypothesis exactly as
	// passed in.
	Corrected string `json:"corrected"`

	// Reference is the winning reference sentence, empty when no reference
	// was selected.
	Reference string `json:"reference,omitempty"`

	// Distance is the raw edit distance to the winning reference.
	Distance int `json:"distance"`

	// NormalizedDistance is Distance divided by the reference length.
	NormalizedDistance float64 `json:"normalized_distance"`

	// Applied reports whether a correction was actually merged in. False
	// means the hypothesis came back unchanged: empty corpus, empty
	// hypothesis, or best match above the rejection threshold.
	Applied bool `json:"applied"`
}

// Corrector reconciles recognizer hypotheses against a reference corpus.
// Construct with [New]; safe for concurrent use.
type Corrector struct {
	norm   *wordseq.Normalizer
	corpus *corpus.Corpus
	vocab  corpus.Vocabulary

	rejectionThreshold float64
	workers            int
	snapThreshold      float64
	metrics            *observe.Metrics
	recorder           Recorder

	// sortedVocab is the vocabulary in lexicographic order, precomputed so
	// the snap stage scans deterministically.
	sortedVocab []string
}

// New builds a [Corrector] over the given corpus and vocabulary.
// Configuration problems (nil collaborators, out-of-range thresholds) fail
// here, never per call.
func New(norm *wordseq.Normalizer, corp *corpus.Corpus, vocab corpus.Vocabulary, opts ...Option) (*Corrector, error) {
	if norm == nil {
		return nil, fmt.Errorf("correct: normalizer must not be nil")
	}
	if corp == nil {
		return nil, fmt.Errorf("correct: corpus must not be nil")
	}

	c := &Corrector{
		norm:               norm,
		corpus:             corp,
		vocab:              vocab,
		rejectionThreshold: defaultRejectionThreshold,
		workers:            runtime.GOMAXPROCS(0),
	}
	for _, o := range opts {
		o(c)
	}

	if c.rejectionThreshold <= 0 {
		return nil, fmt.Errorf("correct: rejection threshold %v is out of range (must be > 0)", c.rejectionThreshold)
	}
	if c.workers < 1 {
		return nil, fmt.Errorf("correct: workers %d is out of range (must be >= 1)", c.workers)
	}
	if c.snapThreshold < 0 || c.snapThreshold > 1 {
		return nil, fmt.Errorf("correct: vocabulary snap threshold %v is out of range (0, 1]", c.snapThreshold)
	}
	if c.snapThreshold > 0 {
		c.sortedVocab = vocab.Words()
		sort.Strings(c.sortedVocab)
	}

	return c, nil
}

// candidate is one scored reference sentence.
type candidate struct {
	index   int
	dist    int
	score   float64
	lenDiff int
	trace   []align.Step
}

// better reports whether a beats b: lower normalized distance first, then
// smaller length difference to the hypothesis, then earlier corpus position.
func better(a, b *candidate) bool {
	if b == nil {
		return true
	}
	if a.score != b.score {
		return a.score < b.score
	}
	if a.lenDiff != b.lenDiff {
		return a.lenDiff < b.lenDiff
	}
	return a.index < b.index
}

// Correct tokenizes hypothesis, scans the corpus for the best-matching
// reference, and returns the fused [Result]. An empty hypothesis or empty
// corpus is not an error: the result simply carries Applied=false.
//
// The corpus scan is sharded across the configured worker count; ctx
// cancellation is honoured between candidates (a single alignment matrix is
// never interrupted mid-fill).
func (c *Corrector) Correct(ctx context.Context, hypothesis string) (*Result, error) {
	start := time.Now()
	ctx, span := observe.StartSpan(ctx, "correct.Correct")
	defer span.End()
	if c.metrics != nil {
		defer func() {
			c.metrics.CorrectionDuration.Record(ctx, time.Since(start).Seconds())
		}()
	}

	// Until a correction is actually merged in, the hypothesis is echoed
	// back untouched, punctuation and all.
	hyp := c.norm.Normalize(hypothesis)
	result := &Result{
		Original:  hypothesis,
		Corrected: hypothesis,
	}

	if hyp.Len() == 0 {
		if c.metrics != nil {
			c.metrics.RecordRejection(ctx, "empty_hypothesis")
		}
		c.record(ctx, result)
		return result, nil
	}
	if c.corpus.Len() == 0 {
		if c.metrics != nil {
			c.metrics.RecordRejection(ctx, "empty_corpus")
		}
		c.record(ctx, result)
		return result, nil
	}

	best, err := c.scan(ctx, hyp)
	if err != nil {
		return nil, err
	}
	if best == nil || best.score > c.rejectionThreshold {
		if best != nil {
			result.Reference = c.corpus.Sentence(best.index)
			result.Distance = best.dist
			result.NormalizedDistance = best.score
		}
		if c.metrics != nil {
			c.metrics.RecordRejection(ctx, "threshold")
		}
		c.record(ctx, result)
		return result, nil
	}

	ref := c.corpus.Sequence(best.index)
	merged := c.merge(hyp, ref, best.trace)
	merged = c.snapToVocabulary(ctx, merged)

	result.Corrected = strings.Join(merged, c.norm.Separator())
	result.Reference = c.corpus.Sentence(best.index)
	result.Distance = best.dist
	result.NormalizedDistance = best.score
	result.Applied = true

	if c.metrics != nil {
		c.metrics.CorrectionsApplied.Add(ctx, 1,
			metric.WithAttributes(observe.Attr("corpus", c.corpus.Name())))
	}
	c.record(ctx, result)
	return result, nil
}

// record hands the finished result to the configured recorder, if any. A
// failing recorder is logged and otherwise ignored.
func (c *Corrector) record(ctx context.Context, result *Result) {
	if c.recorder == nil {
		return
	}
	if err := c.recorder.Record(result); err != nil {
		observe.Logger(ctx).Warn("recording correction outcome failed", "err", err)
	}
}

// scan scores every reference sentence against hyp and returns the best
// candidate; for a non-empty corpus the result is never nil, so rejections
// always carry real diagnostics even when every candidate was pruned. The
// corpus is split into contiguous shards so that the insertion-order
// tie-break stays exact when shard winners are merged.
func (c *Corrector) scan(ctx context.Context, hyp wordseq.Sequence) (*candidate, error) {
	hypTokens := hyp.Tokens()
	total := c.corpus.Len()

	workers := min(c.workers, total)
	chunk := (total + workers - 1) / workers

	bests := make([]*candidate, workers)
	nearestIdx := make([]int, workers)
	nearestLower := make([]float64, workers)
	scanned := make([]int64, workers)
	pruned := make([]int64, workers)

	g, gctx := errgroup.WithContext(ctx)
	for s := 0; s < workers; s++ {
		lo := s * chunk
		hi := min(lo+chunk, total)
		g.Go(func() error {
			var best *candidate
			nearIdx, nearLower := -1, 0.0
			for i := lo; i < hi; i++ {
				if err := gctx.Err(); err != nil {
					return err
				}

				ref := c.corpus.Sequence(i)
				denom := max(1, ref.Len())
				lenDiff := abs(ref.Len() - len(hypTokens))

				// The edit distance is at least the length difference, so
				// this lower bound on the score lets us skip the O(n·m)
				// matrix for hopeless candidates. The least hopeless pruned
				// index is remembered for diagnostics.
				lower := float64(lenDiff) / float64(denom)
				if lower > c.rejectionThreshold || (best != nil && lower > best.score) {
					if nearIdx < 0 || lower < nearLower {
						nearIdx, nearLower = i, lower
					}
					pruned[s]++
					continue
				}

				if cand := c.alignTo(hypTokens, i); better(cand, best) {
					best = cand
				}
				scanned[s]++
			}
			bests[s] = best
			nearestIdx[s] = nearIdx
			nearestLower[s] = nearLower
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var best *candidate
	var totalScanned, totalPruned int64
	for s := range bests {
		if bests[s] != nil && better(bests[s], best) {
			best = bests[s]
		}
		totalScanned += scanned[s]
		totalPruned += pruned[s]
	}
	if c.metrics != nil {
		c.metrics.CandidatesScanned.Add(ctx, totalScanned)
		c.metrics.CandidatesPruned.Add(ctx, totalPruned)
	}

	if best == nil && total > 0 {
		// Every candidate was pruned. Align the one with the smallest lower
		// bound (earliest on ties, shards are in index order) so the caller
		// gets a true reference and distance rather than zeroed fields.
		nearIdx := -1
		var nearLower float64
		for s := range nearestIdx {
			if i := nearestIdx[s]; i >= 0 && (nearIdx < 0 || nearestLower[s] < nearLower) {
				nearIdx, nearLower = i, nearestLower[s]
			}
		}
		if nearIdx >= 0 {
			best = c.alignTo(hypTokens, nearIdx)
		}
	}
	return best, nil
}

// alignTo runs the full alignment of hypTokens against the i-th reference
// and wraps it as a scored candidate.
func (c *Corrector) alignTo(hypTokens []string, i int) *candidate {
	ref := c.corpus.Sequence(i)
	a := align.New(hypTokens, ref.Tokens())
	return &candidate{
		index:   i,
		dist:    a.Distance(),
		score:   float64(a.Distance()) / float64(max(1, ref.Len())),
		lenDiff: abs(ref.Len() - len(hypTokens)),
		trace:   a.Trace(),
	}
}

// merge fuses the hypothesis and the winning reference along the alignment
// trace. The trace runs from the end of both sequences back to the start, so
// tokens are collected in reverse and flipped once at the end.
//
// Policy per step:
//   - match: both agree, keep the token.
//   - substitute: take the reference token only when the hypothesis token is
//     out-of-vocabulary.
//   - delete (hypothesis-only token): keep it when in-vocabulary, drop it
//     otherwise.
//   - insert (reference-only token): adopt it only when the adjacent
//     hypothesis token is out-of-vocabulary, i.e. the surrounding region
//     already looks garbled.
func (c *Corrector) merge(hyp, ref wordseq.Sequence, trace []align.Step) []string {
	out := make([]string, 0, max(hyp.Len(), ref.Len()))

	for _, st := range trace {
		switch st.Op {
		case align.OpMatch:
			out = append(out, hyp.Token(st.Col))
		case align.OpSubstitute:
			if c.vocab.Contains(hyp.Token(st.Col)) {
				out = append(out, hyp.Token(st.Col))
			} else {
				out = append(out, ref.Token(st.Row))
			}
		case align.OpDelete:
			if c.vocab.Contains(hyp.Token(st.Col)) {
				out = append(out, hyp.Token(st.Col))
			}
		case align.OpInsert:
			if hyp.Len() > 0 && !c.vocab.Contains(hyp.Token(st.Col)) {
				out = append(out, ref.Token(st.Row))
			}
		}
	}

	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// snapToVocabulary replaces residual out-of-vocabulary tokens with their
// closest vocabulary word by Jaro-Winkler similarity, when the stage is
// enabled. Ties resolve to the lexicographically smaller word because the
// vocabulary is scanned in sorted order.
func (c *Corrector) snapToVocabulary(ctx context.Context, tokens []string) []string {
	if c.snapThreshold <= 0 || len(c.sortedVocab) == 0 {
		return tokens
	}

	var snaps int64
	for i, tok := range tokens {
		if c.vocab.Contains(tok) {
			continue
		}
		lower := strings.ToLower(tok)

		bestWord, bestScore := "", 0.0
		for _, w := range c.sortedVocab {
			if s := matchr.JaroWinkler(lower, w, false); s > bestScore {
				bestWord, bestScore = w, s
			}
		}
		if bestScore >= c.snapThreshold {
			tokens[i] = bestWord
			snaps++
		}
	}
	if snaps > 0 && c.metrics != nil {
		c.metrics.VocabularySnaps.Add(ctx, snaps)
	}
	return tokens
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
