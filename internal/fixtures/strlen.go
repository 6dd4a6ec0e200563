package fixtures

import (
	"math"
	"os"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/kuitang/credits-e2e/internal/errs"
)

var (
	zeroRun = regexp.MustCompile(`0+`)
	oneRun  = regexp.MustCompile(`1+`)
)

// LengthReport measures a binary-digit fixture several independent ways.
type LengthReport struct {
	Bytes      int     // len(s)
	Direct     int     // rune count
	Runs       int     // first run of 0s plus first run of 1s
	Counted    int     // runes counted one at a time
	Zeros      int     // occurrences of '0'
	Ones       int     // occurrences of '1'
	ZerosPower float64 // log2(Zeros)
	OnesPower  float64 // log2(Ones)
}

// GroupTotal is Zeros + Ones.
func (r LengthReport) GroupTotal() int { return r.Zeros + r.Ones }

// Consistent reports whether every measure agrees. It only holds for
// inputs made of one run of 0s followed by one run of 1s (or the reverse).
func (r LengthReport) Consistent() bool {
	return r.Direct == r.Runs && r.Direct == r.Counted && r.Direct == r.GroupTotal()
}

// Lengths measures s.
func Lengths(s string) LengthReport {
	r := LengthReport{
		Bytes:  len(s),
		Direct: utf8.RuneCountInString(s),
		Zeros:  strings.Count(s, "0"),
		Ones:   strings.Count(s, "1"),
	}
	r.Runs = len(zeroRun.FindString(s)) + len(oneRun.FindString(s))
	for range s {
		r.Counted++
	}
	r.ZerosPower = math.Log2(float64(r.Zeros))
	r.OnesPower = math.Log2(float64(r.Ones))
	return r
}

// FileLengths reads path and measures its contents.
func FileLengths(path string) (LengthReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return LengthReport{}, errs.Wrap(errs.NotFound, "fixtures: input file not found: "+path, err)
		}
		return LengthReport{}, errs.Wrap(errs.Internal, "fixtures: read input file", err)
	}
	return Lengths(string(data)), nil
}
