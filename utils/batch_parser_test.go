package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/twdocs/ocr-letter-extraction/dto"
)

func TestFindBatchCandidatesExactWidth(t *testing.T) {
	cands := FindBatchCandidates(Window{Text: ":1234567890123", Line: 4, Col: 4})

	assert.Len(t, cands, 1)
	assert.Equal(t, dto.FieldBatch, cands[0].Field)
	assert.Equal(t, "1234567890123", cands[0].Value)
	assert.Equal(t, 4, cands[0].Line)
	assert.Equal(t, 5, cands[0].Col)
	assert.Equal(t, 1.0, cands[0].FormatConf)
}

func TestFindBatchCandidatesRejectsOtherWidths(t *testing.T) {
	assert.Empty(t, FindBatchCandidates(Window{Text: "123456789012"}))
	assert.Empty(t, FindBatchCandidates(Window{Text: "12345678901234"}))
}

func TestFindBatchCandidatesRunsDoNotFuseAcrossNoise(t *testing.T) {
	// A broken run stays broken; batch IDs carry no checksum, so shape is
	// only trusted when the digits are contiguous.
	assert.Empty(t, FindBatchCandidates(Window{Text: "12345 67890123"}))
}

func TestFindBatchCandidatesMultipleRuns(t *testing.T) {
	cands := FindBatchCandidates(Window{Text: "1234567890123 另冊 9999999999999"})

	assert.Len(t, cands, 2)
	assert.Equal(t, "1234567890123", cands[0].Value)
	assert.Equal(t, "9999999999999", cands[1].Value)
}
