package dedup

import (
	"sort"
	"strings"
	"unicode"
)

// DuplicateThreshold is the title similarity at or above which two titles
// are treated as the same story.
const DuplicateThreshold = 0.85

// Match is a block of Size runes shared by a[A:A+Size] and b[B:B+Size].
type Match struct {
	A, B, Size int
}

// TitleSimilarity scores two titles in [0,1] after case folding and
// punctuation removal. Identical normalized titles score 1.
func TitleSimilarity(a, b string) float64 {
	ra := []rune(normalizeTitle(a))
	rb := []rune(normalizeTitle(b))
	return Ratio(ra, rb)
}

// Ratio returns 2*M/T where M is the number of runes covered by the
// matching blocks and T the combined length. Two empty inputs score 1.
func Ratio(a, b []rune) float64 {
	total := len(a) + len(b)
	if total == 0 {
		return 1.0
	}

	matched := 0
	for _, m := range MatchingBlocks(a, b) {
		matched += m.Size
	}
	return 2.0 * float64(matched) / float64(total)
}

// MatchingBlocks finds the longest common run of a and b, then recurses on
// the pieces to its left and to its right. Blocks are returned ordered by
// position and never overlap.
func MatchingBlocks(a, b []rune) []Match {
	index := make(map[rune][]int, len(b))
	for j, r := range b {
		index[r] = append(index[r], j)
	}

	type span struct{ alo, ahi, blo, bhi int }

	var blocks []Match
	queue := []span{{0, len(a), 0, len(b)}}
	for len(queue) > 0 {
		s := queue[len(queue)-1]
		queue = queue[:len(queue)-1]

		m := longestMatch(a, index, s.alo, s.ahi, s.blo, s.bhi)
		if m.Size == 0 {
			continue
		}
		blocks = append(blocks, m)
		if s.alo < m.A && s.blo < m.B {
			queue = append(queue, span{s.alo, m.A, s.blo, m.B})
		}
		if m.A+m.Size < s.ahi && m.B+m.Size < s.bhi {
			queue = append(queue, span{m.A + m.Size, s.ahi, m.B + m.Size, s.bhi})
		}
	}

	sort.Slice(blocks, func(i, j int) bool {
		return blocks[i].A < blocks[j].A
	})
	return blocks
}

// longestMatch returns the longest block with a[alo:ahi] and b[blo:bhi].
// Ties go to the earliest start in a, then the earliest start in b.
func longestMatch(a []rune, index map[rune][]int, alo, ahi, blo, bhi int) Match {
	best := Match{A: alo, B: blo}

	// lengths[j] is the length of the match ending at a[i-1], b[j].
	lengths := map[int]int{}
	for i := alo; i < ahi; i++ {
		next := map[int]int{}
		for _, j := range index[a[i]] {
			if j < blo {
				continue
			}
			if j >= bhi {
				break
			}
			k := lengths[j-1] + 1
			next[j] = k
			if k > best.Size {
				best = Match{A: i - k + 1, B: j - k + 1, Size: k}
			}
		}
		lengths = next
	}
	return best
}

func normalizeTitle(title string) string {
	title = strings.TrimSpace(strings.ToLower(title))
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			return r
		}
		return -1
	}, title)
}
