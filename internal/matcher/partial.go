package matcher

import (
	"math"

	"github.com/pmezard/go-difflib/difflib"
)

// PartialRatio scores how well the shorter string appears inside the longer
// one, from 0 to 100. Every window of the longer string that is as long as the
// shorter one is compared with Ratcliff/Obershelp (2*M/T) and the best window
// wins. Lengths are counted in runes; an empty argument scores 0.
func PartialRatio(a, b string) int {
	return score(partialRatio([]rune(a), []rune(b)))
}

func partialRatio(a, b []rune) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	short, long := a, b
	if len(a) > len(b) {
		short, long = b, a
	}
	width := len(short)
	longSeq := runeSeq(long)

	// Autojunk would drop frequent runes from windows of 200 or more runes,
	// so they could never count as matches.
	m := difflib.NewMatcherWithJunk(runeSeq(short), nil, false, nil)

	// M never exceeds the multiset overlap of the two windows, so a window
	// whose overlap cannot beat the best ratio so far is skipped.
	w := newOverlap(short)
	for _, r := range long[:width] {
		w.add(r)
	}

	best := 0.0
	for i := 0; ; i++ {
		if float64(w.shared)/float64(width) > best {
			m.SetSeq2(longSeq[i : i+width])
			if r := m.Ratio(); r > best {
				best = r
				if best == 1 {
					return 1
				}
			}
		}
		if i+width == len(long) {
			return best
		}
		w.remove(long[i])
		w.add(long[i+width])
	}
}

// overlap tracks how many runes of a sliding window can be paired with runes
// of a fixed string.
type overlap struct {
	want   map[rune]int
	have   map[rune]int
	shared int
}

func newOverlap(fixed []rune) *overlap {
	o := &overlap{want: make(map[rune]int), have: make(map[rune]int)}
	for _, r := range fixed {
		o.want[r]++
	}
	return o
}

func (o *overlap) add(r rune) {
	if o.have[r] < o.want[r] {
		o.shared++
	}
	o.have[r]++
}

func (o *overlap) remove(r rune) {
	o.have[r]--
	if o.have[r] < o.want[r] {
		o.shared--
	}
}

// score converts a 0..1 ratio to an integer percentage, rounding halves to even.
func score(ratio float64) int {
	return int(math.RoundToEven(100 * ratio))
}

func runeSeq(rs []rune) []string {
	seq := make([]string, len(rs))
	for i, r := range rs {
		seq[i] = string(r)
	}
	return seq
}
