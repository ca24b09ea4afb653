package utils

import (
	"sort"
	"unicode"

	"github.com/twdocs/ocr-letter-extraction/config"
	"github.com/twdocs/ocr-letter-extraction/dto"
)

// nameSeparators are tolerated between the characters of a name (OCR
// spacing, interpuncts in transliterated names) and stripped from the
// value.
var nameSeparators = map[rune]bool{
	' ': true, '·': true, '‧': true, '・': true,
}

// nameBoundary marks runes that may legally delimit a name span. A name
// match whose neighbors are plain ideographs is the middle of a longer
// run and rejected.
var nameBoundary = map[rune]bool{
	'，': true, ',': true, '、': true, '。': true, '.': true, ';': true,
	'；': true, ':': true, '：': true, '(': true, ')': true, '（': true,
	'）': true, '《': true, '》': true, '〈': true, '〉': true, '「': true,
	'」': true, '『': true, '』': true, '[': true, ']': true, '【': true,
	'】': true, '?': true, '？': true, '!': true, '！': true, ' ': true,
	'\t': true, '·': true, '‧': true, '・': true,
}

// FindNameCandidates extracts [surname][given name] candidates from a
// window. Compound surnames are tried before single-character ones, and
// given-name lengths in the configured preference order. An honorific
// title directly after the name extends the matched span but never the
// value. When a PERSON-span index is supplied for the line, candidates
// outside every span are dropped; a nil index bypasses the gate.
func FindNameCandidates(w Window, t config.Tables, spans []dto.Span) []dto.Candidate {
	runes := []rune(w.Text)
	var cands []dto.Candidate

	titles := append([]string(nil), t.Titles...)
	sort.SliceStable(titles, func(i, j int) bool {
		return len([]rune(titles[i])) > len([]rune(titles[j]))
	})
	titleSet := make(map[string]bool, len(titles))
	for _, ti := range titles {
		titleSet[ti] = true
	}

	for i := 0; i < len(runes); i++ {
		if !unicode.Is(unicode.Han, runes[i]) {
			continue
		}
		if i > 0 && !nameBoundary[runes[i-1]] {
			continue
		}

		c, ok := matchNameAt(runes, i, t, titles, titleSet)
		if !ok {
			continue
		}

		if spans != nil && !overlapsPerson(w.Col+i, w.Col+c.end, spans) {
			continue
		}

		cands = append(cands, dto.Candidate{
			Field:      dto.FieldName,
			Value:      c.value,
			Line:       w.Line,
			Col:        w.Col + i,
			FormatConf: c.formatConf,
		})
		i = c.consumed - 1
	}

	return cands
}

type nameMatch struct {
	value      string
	end        int // rune offset just past the given name
	consumed   int // rune offset just past any stripped title
	formatConf float64
}

func matchNameAt(runes []rune, start int, t config.Tables, titles []string, titleSet map[string]bool) (nameMatch, bool) {
	// Surname first, longest first: a compound surname must not be split
	// into a single-character surname plus given name.
	type surname struct {
		text string
		end  int
	}
	var surnames []surname

	if r2, end2, ok := takeHanRunes(runes, start, 2); ok && t.CompoundSurnames[r2] {
		surnames = append(surnames, surname{r2, end2})
	}
	if t.SingleSurnames[runes[start]] {
		surnames = append(surnames, surname{string(runes[start]), start + 1})
	}

	for _, sn := range surnames {
		for rank, gLen := range t.GivenNameLens {
			given, gEnd, ok := takeHanRunes(runes, sn.end, gLen)
			if !ok || titleSet[given] {
				continue
			}

			consumed := gEnd
			if tEnd, ok := matchTitle(runes, gEnd, titles); ok {
				consumed = tEnd
			}
			if consumed < len(runes) && !nameBoundary[runes[consumed]] {
				continue
			}

			return nameMatch{
				value:      sn.text + given,
				end:        gEnd,
				consumed:   consumed,
				formatConf: 1.0 - 0.15*float64(rank),
			}, true
		}
	}

	return nameMatch{}, false
}

// takeHanRunes collects n ideographs starting at start, skipping
// separator runes between them. Returns the collected text and the rune
// offset just past the last ideograph.
func takeHanRunes(runes []rune, start, n int) (string, int, bool) {
	collected := make([]rune, 0, n)
	i := start
	for i < len(runes) && len(collected) < n {
		r := runes[i]
		switch {
		case unicode.Is(unicode.Han, r):
			collected = append(collected, r)
			i++
		case nameSeparators[r]:
			i++
		default:
			return "", 0, false
		}
	}
	if len(collected) < n {
		return "", 0, false
	}
	return string(collected), i, true
}

// matchTitle reports an honorific title at position j, optionally after a
// single separator. The longest title wins.
func matchTitle(runes []rune, j int, titles []string) (int, bool) {
	if j < len(runes) && nameSeparators[runes[j]] {
		j++
	}
	for _, title := range titles {
		tr := []rune(title)
		if j+len(tr) > len(runes) {
			continue
		}
		match := true
		for k, r := range tr {
			if runes[j+k] != r {
				match = false
				break
			}
		}
		if match {
			return j + len(tr), true
		}
	}
	return 0, false
}

func overlapsPerson(start, end int, spans []dto.Span) bool {
	for _, s := range spans {
		if start < s.End && s.Start < end {
			return true
		}
	}
	return false
}
