package matching

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/ChefStevePopp/cheflife-sync/pkg/normalizers"
)

// Scorer compares short human-name strings and produces 0-100 confidence
// scores. The heuristics are intentionally loose: names arrive with nicknames,
// titles ("Chef Steve") and inconsistent casing, so containment and character
// overlap outperform strict edit distance at this scale.
type Scorer struct{}

// NewScorer creates a new Scorer
func NewScorer() *Scorer {
	return &Scorer{}
}

// Similarity scores two strings on a 0-100 scale. Rules apply in priority
// order, first match wins:
//  1. either side normalizes to empty -> 0
//  2. normalized equality -> 100
//  3. one side contains the other -> 75
//  4. character-overlap ratio: count the shorter string's characters that
//     appear anywhere in the longer one, scored against the longer length
//
// The function is deterministic and symmetric: rules 2 and 3 are symmetric by
// construction, and rule 4 assigns the shorter/longer roles by rune count
// alone. Matches can never exceed the longer rune count, so the score stays
// within 0-100 for multi-byte names too.
func (s *Scorer) Similarity(a, b string) int {
	a = normalizers.Normalize(a)
	b = normalizers.Normalize(b)

	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 100
	}
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return 75
	}

	shorter, longer := a, b
	shorterRunes, longerRunes := utf8.RuneCountInString(shorter), utf8.RuneCountInString(longer)
	// Roles are assigned by rune count, matching the divisor below; equal
	// counts break the tie lexicographically so the score stays symmetric.
	if shorterRunes > longerRunes || (shorterRunes == longerRunes && shorter > longer) {
		shorter, longer = longer, shorter
		longerRunes = shorterRunes
	}

	matches := 0
	for _, r := range shorter {
		if strings.ContainsRune(longer, r) {
			matches++
		}
	}

	return int(math.Round(100 * float64(matches) / float64(longerRunes)))
}

// CombinedName blends first- and last-name similarity into one score. Last
// names carry more weight: first names are where nicknames and titles live.
func (s *Scorer) CombinedName(firstScore, lastScore int, firstWeight, lastWeight float64) float64 {
	return firstWeight*float64(firstScore) + lastWeight*float64(lastScore)
}
