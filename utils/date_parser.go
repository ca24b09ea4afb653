package utils

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/twdocs/ocr-letter-extraction/config"
	"github.com/twdocs/ocr-letter-extraction/dto"
)

// minguoOffset converts a Republic-of-China calendar year to Gregorian.
const minguoOffset = 1911

type compiledDate struct {
	re     *regexp.Regexp
	minguo bool
}

// DateMatcher holds the compiled, priority-ordered date patterns. Build
// one per Tables value and share it across documents.
type DateMatcher struct {
	patterns []compiledDate
}

// NewDateMatcher compiles the configured date patterns. Every pattern
// must carry exactly three capture groups: year, month, day.
func NewDateMatcher(specs []config.DatePattern) (*DateMatcher, error) {
	m := &DateMatcher{}
	for _, spec := range specs {
		re, err := regexp.Compile(spec.Pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid date pattern %q: %w", spec.Pattern, err)
		}
		if re.NumSubexp() != 3 {
			return nil, fmt.Errorf("date pattern %q needs 3 capture groups, has %d", spec.Pattern, re.NumSubexp())
		}
		m.patterns = append(m.patterns, compiledDate{
			re:     re,
			minguo: spec.Calendar == config.CalendarMinguo,
		})
	}
	return m, nil
}

// Find extracts reference-date candidates from a window. Patterns are
// tried in priority order and earlier patterns claim their spans. A match
// that does not parse into a valid calendar date is discarded outright;
// dates are categorical, not fuzzy.
func (m *DateMatcher) Find(w Window) []dto.Candidate {
	var cands []dto.Candidate

	type span struct{ start, end int }
	var taken []span
	overlaps := func(s, e int) bool {
		for _, t := range taken {
			if s < t.end && t.start < e {
				return true
			}
		}
		return false
	}

	for _, p := range m.patterns {
		for _, idx := range p.re.FindAllStringSubmatchIndex(w.Text, -1) {
			if overlaps(idx[0], idx[1]) {
				continue
			}
			iso, ok := toISODate(
				w.Text[idx[2]:idx[3]],
				w.Text[idx[4]:idx[5]],
				w.Text[idx[6]:idx[7]],
				p.minguo,
			)
			if !ok {
				continue
			}
			taken = append(taken, span{idx[0], idx[1]})
			cands = append(cands, dto.Candidate{
				Field:      dto.FieldDate,
				Value:      iso,
				Line:       w.Line,
				Col:        w.Col + utf8.RuneCountInString(w.Text[:idx[0]]),
				FormatConf: 1.0,
			})
		}
	}

	return cands
}

// toISODate validates the captured components against the real calendar
// (time.Date normalizes out-of-range values, so a round-trip comparison
// catches e.g. February 30th) and renders the ISO form.
func toISODate(ys, ms, ds string, minguo bool) (string, bool) {
	y, err1 := strconv.Atoi(ys)
	mo, err2 := strconv.Atoi(ms)
	d, err3 := strconv.Atoi(ds)
	if err1 != nil || err2 != nil || err3 != nil {
		return "", false
	}
	if minguo {
		y += minguoOffset
	}
	t := time.Date(y, time.Month(mo), d, 0, 0, 0, 0, time.UTC)
	if t.Year() != y || int(t.Month()) != mo || t.Day() != d {
		return "", false
	}
	return t.Format("2006-01-02"), true
}
