// Package fixtures builds synthetic input files for chat upload and
// long-message tests: repeated-character patterns, fixed-size bitmap
// images, and string-length reports used to check them.
package fixtures

import (
	"math"
	"strings"

	"github.com/kuitang/credits-e2e/internal/errs"
)

// Alphanumeric is the default pattern alphabet: digits, lower, upper.
const Alphanumeric = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// LegacyRepeat is the per-character repeat count of the original
// short-message fixture (62 * 161 = 9982 characters).
const LegacyRepeat = 161

// Pattern repeats every character of alphabet repeat times, in order.
func Pattern(alphabet string, repeat int) (string, error) {
	if alphabet == "" {
		return "", errs.New(errs.InvalidArgument, "fixtures: empty alphabet")
	}
	if repeat < 0 {
		return "", errs.New(errs.InvalidArgument, "fixtures: repeat must not be negative")
	}
	if repeat > math.MaxInt/len(alphabet) {
		return "", errs.New(errs.InvalidArgument, "fixtures: repeat too large for alphabet")
	}
	var b strings.Builder
	b.Grow(len(alphabet) * repeat)
	for _, r := range alphabet {
		b.WriteString(strings.Repeat(string(r), repeat))
	}
	return b.String(), nil
}

// ExactPattern spreads total characters over alphabet as evenly as
// possible. Earlier characters take the remainder, so 500,000 over the
// 62-character alphabet gives 32 runs of 8065 and 30 runs of 8064.
func ExactPattern(alphabet string, total int) (string, error) {
	runes := []rune(alphabet)
	if len(runes) == 0 {
		return "", errs.New(errs.InvalidArgument, "fixtures: empty alphabet")
	}
	if total < 0 {
		return "", errs.New(errs.InvalidArgument, "fixtures: total must not be negative")
	}
	base := total / len(runes)
	extra := total % len(runes)

	var b strings.Builder
	b.Grow(total)
	for i, r := range runes {
		n := base
		if i < extra {
			n++
		}
		b.WriteString(strings.Repeat(string(r), n))
	}
	return b.String(), nil
}

// RunLengths returns the run length of each alphabet character in a
// pattern built by Pattern or ExactPattern.
func RunLengths(alphabet string, total int) []int {
	runes := []rune(alphabet)
	if len(runes) == 0 || total < 0 {
		return nil
	}
	out := make([]int, len(runes))
	for i := range out {
		out[i] = total / len(runes)
		if i < total%len(runes) {
			out[i]++
		}
	}
	return out
}
