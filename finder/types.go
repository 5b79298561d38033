// Package finder implements an online, single-pattern substring matcher
// fed one byte at a time, so a caller never has to hold a whole buffer in
// memory just to know whether it ends in a known delimiter.
//
// It is grounded on streaming-form-data's Finder (finder.py: a three-state
// START/WORKING/END matcher), reimplemented with a real Knuth-Morris-Pratt
// failure function instead of that project's naive restart, which only
// special-cases the pattern's own first byte on mismatch and so mishandles
// self-overlapping patterns (e.g. pattern "AAB" against input "AAAB").
package finder

import "errors"

// MatchState is the tri-state a SubstringFinder occupies at any time.
type MatchState int

const (
	// Inactive means no bytes fed so far extend a match of the pattern.
	Inactive MatchState = iota
	// Active means some non-empty, non-full prefix of the pattern matches
	// the most recently fed bytes.
	Active
	// Found means the full pattern matches the most recently fed bytes.
	Found
)

// ErrEmptyPattern is returned by New when given a zero-length pattern.
var ErrEmptyPattern = errors.New("finder: empty pattern")

// SubstringFinder matches one fixed, non-empty byte pattern against a
// byte stream fed one byte at a time via Feed. It never looks behind and
// never allocates once constructed.
type SubstringFinder struct {
	pattern  []byte
	fallback []int // KMP failure function: fallback[i] = length of the
	// longest proper prefix of pattern[:i] that is also a suffix of it.
	index int
	state MatchState
}

// New builds a SubstringFinder for pattern, precomputing its KMP failure
// table. It fails with ErrEmptyPattern if pattern is empty.
func New(pattern []byte) (*SubstringFinder, error) {
	if len(pattern) == 0 {
		return nil, ErrEmptyPattern
	}
	p := make([]byte, len(pattern))
	copy(p, pattern)
	return &SubstringFinder{
		pattern:  p,
		fallback: kmpFailure(p),
	}, nil
}

// kmpFailure computes the standard KMP failure (partial match) table for
// pattern: fallback[i] is the length of the longest proper prefix of
// pattern[:i] that is also a suffix of pattern[:i].
func kmpFailure(pattern []byte) []int {
	fallback := make([]int, len(pattern)+1)
	fallback[0] = 0
	k := 0
	for i := 1; i < len(pattern); i++ {
		for k > 0 && pattern[k] != pattern[i] {
			k = fallback[k]
		}
		if pattern[k] == pattern[i] {
			k++
		}
		fallback[i+1] = k
	}
	return fallback
}
