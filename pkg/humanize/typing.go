package humanize

import (
	"time"
	"unicode"
)

// Keystroke is one emitted key event. Backspace keystrokes correct a typo
// that was emitted just before them.
type Keystroke struct {
	Rune      rune
	Backspace bool
	Pause     time.Duration
}

// qwertyNeighbors maps lowercase letters to horizontally adjacent keys on a
// QWERTY layout, used to pick plausible wrong characters.
var qwertyNeighbors = map[rune][]rune{
	'a': {'s', 'q'}, 'b': {'v', 'n'}, 'c': {'x', 'v'}, 'd': {'s', 'f'},
	'e': {'w', 'r'}, 'f': {'d', 'g'}, 'g': {'f', 'h'}, 'h': {'g', 'j'},
	'i': {'u', 'o'}, 'j': {'h', 'k'}, 'k': {'j', 'l'}, 'l': {'k', 'o'},
	'm': {'n', 'j'}, 'n': {'b', 'm'}, 'o': {'i', 'p'}, 'p': {'o', 'l'},
	'q': {'w', 'a'}, 'r': {'e', 't'}, 's': {'a', 'd'}, 't': {'r', 'y'},
	'u': {'y', 'i'}, 'v': {'c', 'b'}, 'w': {'q', 'e'}, 'x': {'z', 'c'},
	'y': {'t', 'u'}, 'z': {'x', 's'},
}

// TypeText produces the keystroke sequence for typing text with randomized
// inter-keystroke pauses in [minDelay, maxDelay]. With probability
// typoChance per character (never on the first), an adjacent wrong
// character is emitted, then a corrective backspace, then the intended one.
//
// With typoChance 0 the sequence has exactly len(text) events; every rune
// of text always appears, in order, as the final corrected output.
func (e *Engine) TypeText(text string, minDelay, maxDelay time.Duration, typoChance float64) []Keystroke {
	runes := []rune(text)
	out := make([]Keystroke, 0, len(runes))

	for i, r := range runes {
		if i > 0 && typoChance > 0 && e.float64n() < typoChance {
			wrong := e.adjacentKey(r)
			out = append(out,
				Keystroke{Rune: wrong, Pause: e.Between(minDelay, maxDelay)},
				// Pause before the correction is longer: noticing the
				// mistake takes a beat.
				Keystroke{Backspace: true, Pause: e.Between(maxDelay, 2*maxDelay)},
			)
		}
		out = append(out, Keystroke{Rune: r, Pause: e.Between(minDelay, maxDelay)})
	}

	return out
}

// adjacentKey returns a QWERTY neighbor of r, preserving case. Characters
// without a mapped neighbor fall back to themselves shifted by one code
// point, which is close enough for digits and punctuation.
func (e *Engine) adjacentKey(r rune) rune {
	lower := unicode.ToLower(r)
	neighbors, ok := qwertyNeighbors[lower]
	if !ok {
		return r + 1
	}
	wrong := neighbors[e.intn(len(neighbors))]
	if unicode.IsUpper(r) {
		wrong = unicode.ToUpper(wrong)
	}
	return wrong
}
