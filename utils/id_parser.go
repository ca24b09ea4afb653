package utils

import (
	"regexp"

	"github.com/twdocs/ocr-letter-extraction/dto"
)

// Letter codes of the national ID checksum. Each letter maps to a
// two-digit code; the code digits plus the nine ID digits are weighted
// and summed modulo 10.
var twLetterCode = map[byte]int{
	'A': 10, 'B': 11, 'C': 12, 'D': 13, 'E': 14, 'F': 15, 'G': 16, 'H': 17,
	'I': 34, 'J': 18, 'K': 19, 'L': 20, 'M': 21, 'N': 22, 'O': 35, 'P': 23,
	'Q': 24, 'R': 25, 'S': 26, 'T': 27, 'U': 28, 'V': 29, 'W': 32, 'X': 30,
	'Y': 31, 'Z': 33,
}

var idChecksumWeights = [11]int{1, 9, 8, 7, 6, 5, 4, 3, 2, 1, 1}

var (
	twIDShapeRe = regexp.MustCompile(`^[A-Z][12][0-9]{8}$`)
	twIDScanRe  = regexp.MustCompile(`[A-Z][12][0-9]{8}`)
	arcScanRe   = regexp.MustCompile(`[A-Z]{2}[0-9]{8}`)
)

// ValidTWID reports whether s is a checksum-valid Taiwan national ID.
func ValidTWID(s string) bool {
	if !twIDShapeRe.MatchString(s) {
		return false
	}
	code := twLetterCode[s[0]]
	sum := code/10*idChecksumWeights[0] + code%10*idChecksumWeights[1]
	for i := 1; i < len(s); i++ {
		sum += int(s[i]-'0') * idChecksumWeights[i+1]
	}
	return sum%10 == 0
}

// idNoise are the runes OCR commonly injects inside an ID. They are
// compacted away before shape and checksum validation.
var idNoise = map[rune]bool{
	' ': true, '.': true, '-': true, '_': true, '/': true,
	'·': true, '‧': true, '・': true,
}

// FindIDCandidates extracts national ID and ARC candidates from a window.
// Letters and digits interleaved with noise runes are compacted into runs
// first; a TW ID that fails its checksum is kept at half format
// confidence rather than discarded, so a plausible-but-uncheckable OCR
// read can still surface. ARC numbers are accepted on shape alone.
func FindIDCandidates(w Window) []dto.Candidate {
	var cands []dto.Candidate

	for _, run := range compactRuns(w.Text) {
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

		for _, m := range twIDScanRe.FindAllStringIndex(run.text, -1) {
			val := run.text[m[0]:m[1]]
			conf := 0.5
			if ValidTWID(val) {
				conf = 1.0
			}
			cands = append(cands, dto.Candidate{
				Field:      dto.FieldID,
				Value:      val,
				Line:       w.Line,
				Col:        w.Col + run.cols[m[0]],
				FormatConf: conf,
			})
			taken = append(taken, span{m[0], m[1]})
		}

		for _, m := range arcScanRe.FindAllStringIndex(run.text, -1) {
			if overlaps(m[0], m[1]) {
				continue
			}
			cands = append(cands, dto.Candidate{
				Field:      dto.FieldID,
				Value:      run.text[m[0]:m[1]],
				Line:       w.Line,
				Col:        w.Col + run.cols[m[0]],
				FormatConf: 1.0,
			})
		}
	}

	return cands
}

// alnumRun is a maximal run of letters and digits after noise compaction.
// cols maps every compacted byte back to the rune column it came from in
// the window, so candidates keep real positions.
type alnumRun struct {
	text string
	cols []int
}

func compactRuns(text string) []alnumRun {
	var runs []alnumRun
	var cur alnumRun
	flush := func() {
		if len(cur.text) > 0 {
			runs = append(runs, cur)
			cur = alnumRun{}
		}
	}
	for col, r := range []rune(text) {
		switch {
		case isASCIIAlnum(r):
			cur.text += string(r)
			cur.cols = append(cur.cols, col)
		case idNoise[r]:
			// tolerated inside a run, contributes nothing
		default:
			flush()
		}
	}
	flush()
	return runs
}

func isASCIIAlnum(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z')
}
