package utils

import (
	"sort"

	"github.com/twdocs/ocr-letter-extraction/dto"
)

// FindLabels scans every normalized line for occurrences of the
// configured label surface forms. Matching tolerates at most one edit
// (insertion, deletion or substitution) per occurrence. Exact matches are
// placed first and claim their spans, so a fuzzy match can never shadow
// or pre-empt an exact one, and longer surface forms are tried before
// shorter ones at every start position.
func FindLabels(lines []dto.Line, labels map[string][]string) []dto.LabelHit {
	var hits []dto.LabelHit

	fields := make([]string, 0, len(labels))
	for f := range labels {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	for _, field := range fields {
		forms := append([]string(nil), labels[field]...)
		sort.SliceStable(forms, func(i, j int) bool {
			return len([]rune(forms[i])) > len([]rune(forms[j]))
		})

		for _, line := range lines {
			runes := []rune(line.Text)
			claimed := make([]bool, len(runes))

			// Pass 0 finds exact matches, pass 1 one-edit matches on
			// whatever spans are still unclaimed.
			for pass := 0; pass < 2; pass++ {
				for _, form := range forms {
					f := []rune(form)
					if len(f) < 2 {
						continue
					}
					for start := 0; start < len(runes); start++ {
						if claimed[start] {
							continue
						}
						span, dist, ok := matchAt(runes, start, f, pass == 1)
						if !ok || spanClaimed(claimed, start, span) {
							continue
						}
						hits = append(hits, dto.LabelHit{
							Field:    field,
							Label:    form,
							Line:     line.Index,
							Col:      start,
							Matched:  string(runes[start : start+span]),
							Distance: dist,
						})
						for k := start; k < start+span; k++ {
							claimed[k] = true
						}
						start += span - 1
					}
				}
			}
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Line != hits[j].Line {
			return hits[i].Line < hits[j].Line
		}
		if hits[i].Col != hits[j].Col {
			return hits[i].Col < hits[j].Col
		}
		return hits[i].Field < hits[j].Field
	})
	return hits
}

// matchAt tries to match form at runes[start:]. With fuzzy set it accepts
// spans of the form's length, one longer or one shorter when they are
// within a single edit. Returns the matched span length and the distance.
func matchAt(runes []rune, start int, form []rune, fuzzy bool) (span, dist int, ok bool) {
	n := len(form)
	if !fuzzy {
		if start+n > len(runes) {
			return 0, 0, false
		}
		for i := 0; i < n; i++ {
			if runes[start+i] != form[i] {
				return 0, 0, false
			}
		}
		return n, 0, true
	}

	for _, span := range []int{n, n + 1, n - 1} {
		if span < 1 || start+span > len(runes) {
			continue
		}
		if withinOneEdit(runes[start:start+span], form) {
			return span, 1, true
		}
	}
	return 0, 0, false
}

func spanClaimed(claimed []bool, start, span int) bool {
	for k := start; k < start+span && k < len(claimed); k++ {
		if claimed[k] {
			return true
		}
	}
	return false
}

// withinOneEdit reports whether a and b differ by at most one insertion,
// deletion or substitution. A bounded two-pointer walk is enough; the
// full distance matrix is overkill when the cap is one edit.
func withinOneEdit(a, b []rune) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	la, lb := len(a), len(b)
	if lb-la > 1 {
		return false
	}

	edits := 0
	i, j := 0, 0
	for i < la && j < lb {
		if a[i] == b[j] {
			i++
			j++
			continue
		}
		edits++
		if edits > 1 {
			return false
		}
		if la == lb {
			i++
			j++
		} else {
			j++
		}
	}
	edits += (lb - j) + (la - i)
	return edits <= 1
}
