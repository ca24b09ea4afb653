package utils

import (
	"strings"
	"unicode"

	"github.com/twdocs/ocr-letter-extraction/config"
	"github.com/twdocs/ocr-letter-extraction/dto"
)

// agencyFloor is the minimum format confidence for a suffix-matched
// organization; the most specific suffix in the table reaches 1.0.
const agencyFloor = 0.55

// FindAgencyCandidates extracts issuing-agency candidates: the longest
// run of allowed runes ending in one of the ranked organizational
// suffixes. Suffixes are tried in specificity order, so 地方法院 claims
// its span before 法院 can. A suffix followed directly by another allowed
// rune is a truncated token, not an ending, and is skipped.
func FindAgencyCandidates(w Window, t config.Tables) []dto.Candidate {
	runes := []rune(w.Text)
	claimed := make([]bool, len(runes))
	maxWeight := float64(t.MaxSuffixWeight())

	var cands []dto.Candidate

	for _, ws := range t.OrgSuffixes {
		suffix := []rune(ws.Suffix)
		if len(suffix) == 0 {
			continue
		}
		for idx := 0; idx+len(suffix) <= len(runes); idx++ {
			if !runesAt(runes, idx, suffix) {
				continue
			}
			end := idx + len(suffix)
			if end < len(runes) && isOrgRune(runes[end]) {
				continue
			}

			start := idx
			for start > 0 && isOrgRune(runes[start-1]) {
				start--
			}
			if end-start > maxOrgLen {
				start = end - maxOrgLen
			}
			if end-start < minOrgLen {
				continue
			}
			if spanClaimed(claimed, start, end-start) {
				continue
			}

			value := string(runes[start:end])
			if containsAny(value, t.OrgBlacklist) {
				continue
			}

			for k := start; k < end; k++ {
				claimed[k] = true
			}
			cands = append(cands, dto.Candidate{
				Field:      dto.FieldAgency,
				Value:      value,
				Line:       w.Line,
				Col:        w.Col + start,
				FormatConf: agencyFloor + (1.0-agencyFloor)*float64(ws.Weight)/maxWeight,
			})
		}
	}

	return cands
}

const (
	minOrgLen = 2
	maxOrgLen = 40
)

// isOrgRune reports whether r may appear inside an organization name.
func isOrgRune(r rune) bool {
	if unicode.Is(unicode.Han, r) || unicode.IsLetter(r) || unicode.IsDigit(r) {
		return true
	}
	switch r {
	case '(', ')', '（', '）', '/', '／', '·', '‧', '・':
		return true
	}
	return false
}

func runesAt(runes []rune, idx int, want []rune) bool {
	for k, r := range want {
		if runes[idx+k] != r {
			return false
		}
	}
	return true
}

func containsAny(s string, tokens []string) bool {
	for _, tok := range tokens {
		if tok != "" && strings.Contains(s, tok) {
			return true
		}
	}
	return false
}
