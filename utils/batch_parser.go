package utils

import (
	"github.com/twdocs/ocr-letter-extraction/dto"
)

// batchIDLen is the fixed width of a batch-list identifier.
const batchIDLen = 13

// FindBatchCandidates extracts batch-list identifiers: runs of exactly
// thirteen digits. There is no checksum to verify, so shape is the only
// format evidence; a digit run of any other length is not a candidate.
func FindBatchCandidates(w Window) []dto.Candidate {
	var cands []dto.Candidate
	runes := []rune(w.Text)

	for i := 0; i < len(runes); {
		if !isDigit(runes[i]) {
			i++
			continue
		}
		j := i
		for j < len(runes) && isDigit(runes[j]) {
			j++
		}
		if j-i == batchIDLen {
			cands = append(cands, dto.Candidate{
				Field:      dto.FieldBatch,
				Value:      string(runes[i:j]),
				Line:       w.Line,
				Col:        w.Col + i,
				FormatConf: 1.0,
			})
		}
		i = j
	}

	return cands
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }
