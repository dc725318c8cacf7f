// Package align computes minimum edit distance between two token sequences
// and reconstructs one optimal alignment path.
//
// The engine is generic over any comparable element type: word tokens,
// runes, phoneme symbols. It fills the classic Levenshtein dynamic-programming
// matrix in O(n·m) time and space, which is fine for sentence-length
// sequences; callers aligning whole documents should chunk them first.
//
// An [Alignment] is built once per pairwise comparison, read, and discarded.
// It holds no shared state, so distinct alignments may be built and read
// concurrently.
package align

import (
	"fmt"
	"strings"
)

// Op classifies a single backtrace step.
type Op int

const (
	// OpMatch is a free diagonal step: the source and destination tokens at
	// this position are equal and no edit is required.
	OpMatch Op = iota

	// OpSubstitute replaces a source token with a destination token.
	OpSubstitute

	// OpDelete removes a source token that has no destination counterpart.
	OpDelete

	// OpInsert adds a destination token missing from the source.
	OpInsert
)

// String returns a short human-readable name for the operation.
func (o Op) String() string {
	switch o {
	case OpMatch:
		return "match"
	case OpSubstitute:
		return "substitute"
	case OpDelete:
		return "delete"
	case OpInsert:
		return "insert"
	}
	return fmt.Sprintf("Op(%d)", int(o))
}

// Step is one element of an alignment trace. Row and Col are the coordinates
// of the predecessor matrix cell the backtrace moved to: for diagonal steps
// they index the destination and source tokens involved (destination[Row],
// source[Col]); for an insert, destination[Row] is the inserted token; for a
// delete, source[Col] is the removed token.
type Step struct {
	Row int
	Col int
	Op  Op
}

// Alignment is the result of aligning a source sequence against a
// destination sequence. Obtain one via [New]; the zero value is not usable.
type Alignment[T comparable] struct {
	source      []T
	destination []T

	matrix   [][]int
	trace    []Step
	distance int
}

// New aligns source against destination and returns the completed
// [Alignment]. Either sequence may be empty; two empty sequences align with
// distance zero and an empty path.
func New[T comparable](source, destination []T) *Alignment[T] {
	a := &Alignment[T]{
		source:      source,
		destination: destination,
	}
	a.fill()
	a.backtrace()
	return a
}

// fill allocates and computes the (m+1)×(n+1) edit-distance matrix, where
// m = len(destination) and n = len(source). matrix[i][j] is the minimum
// number of single-token edits turning the first j source tokens into the
// first i destination tokens.
func (a *Alignment[T]) fill() {
	n := len(a.source)
	m := len(a.destination)

	// One contiguous allocation for the whole grid.
	cells := make([]int, (m+1)*(n+1))
	a.matrix = make([][]int, m+1)
	for i := range a.matrix {
		a.matrix[i] = cells[i*(n+1) : (i+1)*(n+1)]
	}

	for j := 0; j <= n; j++ {
		a.matrix[0][j] = j
	}
	for i := 0; i <= m; i++ {
		a.matrix[i][0] = i
	}

	for j := 1; j <= n; j++ {
		for i := 1; i <= m; i++ {
			cost := 1
			if a.destination[i-1] == a.source[j-1] {
				cost = 0
			}
			a.matrix[i][j] = min(
				a.matrix[i-1][j]+1,
				a.matrix[i][j-1]+1,
				a.matrix[i-1][j-1]+cost,
			)
		}
	}

	a.distance = a.matrix[m][n]
}

// backtrace walks the matrix from (m,n) back to (0,0), choosing the minimum
// predecessor at every step. Diagonal wins ties when both indices actually
// decrement, then left wins over up. A step is an edit operation exactly when
// the cost changes; equal-cost diagonal steps are free matches.
func (a *Alignment[T]) backtrace() {
	row := len(a.destination)
	col := len(a.source)
	score := a.distance

	a.trace = make([]Step, 0, row+col)

	for row > 0 || col > 0 {
		prevRow := max(row-1, 0)
		prevCol := max(col-1, 0)

		left := a.matrix[row][prevCol]
		above := a.matrix[prevRow][col]
		diagonal := a.matrix[prevRow][prevCol]

		lowest := min(left, above, diagonal)

		switch {
		case lowest == diagonal && row != prevRow && col != prevCol:
			op := OpMatch
			if score != lowest {
				op = OpSubstitute
			}
			a.trace = append(a.trace, Step{Row: prevRow, Col: prevCol, Op: op})
			row--
			col--
		case lowest == left && col != prevCol:
			a.trace = append(a.trace, Step{Row: prevRow, Col: prevCol, Op: OpDelete})
			col--
		default:
			a.trace = append(a.trace, Step{Row: prevRow, Col: prevCol, Op: OpInsert})
			row--
		}

		score = lowest
	}
}

// Distance returns the edit distance between the full sequences: the value
// of the bottom-right matrix cell.
func (a *Alignment[T]) Distance() int {
	return a.distance
}

// Path returns the alignment path: the ordered edit operations along one
// minimum-cost route from (m,n) back to (0,0), excluding free matches.
// Its length always equals [Alignment.Distance].
func (a *Alignment[T]) Path() []Step {
	path := make([]Step, 0, a.distance)
	for _, s := range a.trace {
		if s.Op != OpMatch {
			path = append(path, s)
		}
	}
	return path
}

// Trace returns the complete backtrace route from (m,n) to (0,0), including
// free match steps. Callers fusing the two sequences along the alignment
// (rather than just counting edits) iterate this.
func (a *Alignment[T]) Trace() []Step {
	out := make([]Step, len(a.trace))
	copy(out, a.trace)
	return out
}

// Matrix returns the underlying (m+1)×(n+1) edit-distance grid for
// diagnostics. The returned slices are the live backing store; treat them as
// read-only.
func (a *Alignment[T]) Matrix() [][]int {
	return a.matrix
}

// String renders the matrix with the source sequence across the top and the
// destination sequence down the side, for debugging and log output.
func (a *Alignment[T]) String() string {
	var b strings.Builder

	b.WriteString("|  |  ")
	for _, s := range a.source {
		fmt.Fprintf(&b, "%v  ", s)
	}
	b.WriteString("\n")

	for i := 0; i <= len(a.destination); i++ {
		if i == 0 {
			b.WriteString("|  ")
		} else {
			fmt.Fprintf(&b, "%v  ", a.destination[i-1])
		}
		for j := 0; j <= len(a.source); j++ {
			fmt.Fprintf(&b, "%-3d", a.matrix[i][j])
		}
		b.WriteString("\n")
	}

	return b.String()
}
