package utils

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"

	"github.com/twdocs/ocr-letter-extraction/dto"
)

var (
	// Pagination footers OCR engines emit between pages.
	footerRes = []*regexp.Regexp{
		regexp.MustCompile(`^第\s*\d+\s*頁\s*[，,]?\s*共\s*\d+\s*頁$`),
		regexp.MustCompile(`(?i)^page\s*\d+\s*(?:of|/)\s*\d+$`),
		regexp.MustCompile(`^[-—–]\s*\d+\s*[-—–]$`),
		regexp.MustCompile(`^\d+\s*/\s*\d+$`),
	}

	// Left-margin scan noise: whitespace, zero-width runes, filler dots
	// and the 裝/訂/線 binding glyphs printed in the left margin of
	// official letters.
	marginNoiseRe = regexp.MustCompile(`^[\s\x{200B}\x{200C}\x{200D}\x{FEFF}.·‧•…裝訂線]+`)

	innerSpaceRe = regexp.MustCompile(`[ \t]+`)
)

// Normalize converts raw OCR text into the canonical line array every
// later stage operates on. The step order is significant: width folding
// must precede any column-sensitive matching, and footer removal works on
// whole lines before per-line cleanup. Normalize never fails; unmatched
// patterns pass through unchanged, and re-running it on its own output is
// a no-op.
func Normalize(raw string) []dto.Line {
	text := strings.ReplaceAll(raw, "\uFEFF", "")
	text = norm.NFC.String(text)
	text = width.Fold.String(text)
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	merged := dropPageFooters(strings.Split(text, "\n"))

	lines := make([]dto.Line, 0, len(merged))
	for _, l := range merged {
		l = marginNoiseRe.ReplaceAllString(l, "")
		l = innerSpaceRe.ReplaceAllString(l, " ")
		l = dropCJKInteriorSpaces(l)
		l = strings.TrimRight(l, " \t")
		if l == "" {
			continue
		}
		lines = append(lines, dto.Line{Index: len(lines), Text: l})
	}
	return lines
}

// dropPageFooters removes pagination lines and joins the line after the
// footer onto the line before it, so a field split across a page break
// stays in reading order.
func dropPageFooters(lines []string) []string {
	out := make([]string, 0, len(lines))
	for i := 0; i < len(lines); i++ {
		if !isPageFooter(lines[i]) {
			out = append(out, lines[i])
			continue
		}
		if len(out) > 0 && i+1 < len(lines) {
			next := strings.TrimSpace(lines[i+1])
			if next != "" {
				out[len(out)-1] = strings.TrimRight(out[len(out)-1], " \t") + " " + next
			}
			i++
		}
	}
	return out
}

func isPageFooter(line string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return false
	}
	for _, re := range footerRes {
		if re.MatchString(trimmed) {
			return true
		}
	}
	return false
}

// dropCJKInteriorSpaces deletes spaces strictly between two Han runes.
// OCR commonly inserts spurious spaces inside Chinese text, but spacing
// adjacent to Latin or digit runs is real and kept.
func dropCJKInteriorSpaces(s string) string {
	runes := []rune(s)
	out := make([]rune, 0, len(runes))
	for i := 0; i < len(runes); {
		if runes[i] != ' ' {
			out = append(out, runes[i])
			i++
			continue
		}
		j := i
		for j < len(runes) && runes[j] == ' ' {
			j++
		}
		prevHan := len(out) > 0 && unicode.Is(unicode.Han, out[len(out)-1])
		nextHan := j < len(runes) && unicode.Is(unicode.Han, runes[j])
		if !(prevHan && nextHan) {
			out = append(out, ' ')
		}
		i = j
	}
	return string(out)
}
