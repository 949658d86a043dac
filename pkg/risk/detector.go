package risk

// StemSet is a participant reply reduced to its set of stems.
type StemSet map[string]bool

func NewStemSet(lemmas []string) StemSet {
	set := make(StemSet, len(lemmas))
	for _, l := range lemmas {
		if l != "" {
			set[l] = true
		}
	}
	return set
}

// ContainsAll reports whether every stem of the pattern is present.
func (s StemSet) ContainsAll(pattern []string) bool {
	if len(pattern) == 0 {
		return false
	}
	for _, stem := range pattern {
		if !s[stem] {
			return false
		}
	}
	return true
}

// Matches reports whether any pattern is fully contained in the stem set.
// Word order and extra stems are irrelevant; evaluation short-circuits on
// the first match.
func Matches(stems StemSet, patterns [][]string) bool {
	for _, p := range patterns {
		if stems.ContainsAll(p) {
			return true
		}
	}
	return false
}

// DefaultPatterns is the global risk lemma list. Per-question patterns
// from the catalog are appended to it at detection time.
func DefaultPatterns() [][]string {
	return [][]string{
		{"гнев"},
		{"вина"},
		{"одиноко"},
		{"страдать"},
		{"бояться"},
		{"ненавидеть"},
		{"бесполезно"},
		{"страх"},
		{"печаль"},
		{"безнадежность"},
		{"нет", "смысл"},
		{"нет", "цель"},
		{"мучиться"},
		{"недостойный"},
		{"виноватый"},
		{"тяжело"},
		{"невыносимо"},
	}
}
