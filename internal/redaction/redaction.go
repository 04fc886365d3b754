// Package redaction replaces regular expression matches in a line with
// keyed digests of the matched bytes, so sensitive values can be removed
// from logs while identical values stay correlatable.
package redaction

import (
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"sync/atomic"

	"hashpipe/internal/digest"
)

// ErrInvalidPattern is returned by Compile when the expression does not
// compile.
var ErrInvalidPattern = errors.New("invalid pattern")

// Compile compiles a user supplied expression for use with a Redactor.
func Compile(expr string) (*regexp.Regexp, error) {
	pattern, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPattern, err)
	}
	return pattern, nil
}

// Redactor applies one pattern to lines, replacing the hashed span of every
// match with a token of the form "<" + prefix + hex digest + ">".
//
// The hashed span is the first capturing group when the pattern has one,
// otherwise the whole match. Bytes of the match outside the first group are
// kept around the token.
type Redactor struct {
	pattern *regexp.Regexp
	hasher  digest.Hasher
	prefix  []byte
	grouped bool

	matches atomic.Uint64
}

// NewRedactor creates a Redactor. pattern and hasher are shared read-only,
// so one Redactor may process lines from several goroutines.
func NewRedactor(pattern *regexp.Regexp, hasher digest.Hasher, prefix []byte) *Redactor {
	return &Redactor{
		pattern: pattern,
		hasher:  hasher,
		prefix:  append([]byte(nil), prefix...),
		grouped: pattern.NumSubexp() > 0,
	}
}

// Process returns a copy of line with every match replaced. line is not
// modified. A hasher failure aborts the whole line.
func (r *Redactor) Process(line []byte) ([]byte, error) {
	locs := r.pattern.FindAllSubmatchIndex(line, -1)
	if len(locs) == 0 {
		return append([]byte(nil), line...), nil
	}

	tokenLen := len(r.prefix) + 2*r.hasher.Size() + 2
	out := make([]byte, 0, len(line)+len(locs)*tokenLen)
	last := 0
	for _, loc := range locs {
		out = append(out, line[last:loc[0]]...)

		var err error
		out, err = r.appendReplacement(out, line, loc)
		if err != nil {
			return nil, err
		}
		last = loc[1]
	}
	out = append(out, line[last:]...)

	r.matches.Add(uint64(len(locs)))
	return out, nil
}

// Matches reports how many matches have been replaced so far.
func (r *Redactor) Matches() uint64 {
	return r.matches.Load()
}

func (r *Redactor) appendReplacement(out, line []byte, loc []int) ([]byte, error) {
	start, end := r.hashedSpan(loc)

	sum, err := r.hasher.Digest(line[start:end])
	if err != nil {
		return nil, fmt.Errorf("digest: %w", err)
	}

	out = append(out, line[loc[0]:start]...)
	out = append(out, '<')
	out = append(out, r.prefix...)
	out = hex.AppendEncode(out, sum)
	out = append(out, '>')
	return append(out, line[end:loc[1]]...), nil
}

// hashedSpan returns the byte range of loc that gets hashed. A first group
// that took no part in the match hashes as empty, placed at the end of the
// match so the matched bytes are kept as they are.
func (r *Redactor) hashedSpan(loc []int) (int, int) {
	if !r.grouped {
		return loc[0], loc[1]
	}
	if loc[2] < 0 {
		return loc[1], loc[1]
	}
	return loc[2], loc[3]
}
