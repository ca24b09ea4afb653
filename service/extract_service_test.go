package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twdocs/ocr-letter-extraction/config"
	"github.com/twdocs/ocr-letter-extraction/dto"
)

const sampleLetter = "發文機關：臺北市政府警察局中山分局\n" +
	"發文日期：民國113年5月17日\n" +
	"函查對象：張祐綸　身分證字號：Ａ１２３４５６７８９\n" +
	"名冊編號：1234567890123"

func newService(t *testing.T) *ExtractService {
	t.Helper()
	svc, err := NewExtractService(config.DefaultTables(), nil)
	require.NoError(t, err)
	return svc
}

func TestExtractDocumentFullLetter(t *testing.T) {
	svc := newService(t)

	resp, err := svc.ExtractDocument(context.Background(), sampleLetter)
	require.NoError(t, err)
	require.Len(t, resp.Records, 1)

	rec := resp.Records[0]

	assert.Equal(t, "張祐綸", rec.Name.Value)
	assert.Equal(t, "A123456789", rec.IDNo.Value)
	assert.Equal(t, "2024-05-17", rec.RefDate.Value)
	assert.Equal(t, "1234567890123", rec.BatchID.Value)
	assert.Equal(t, "臺北市政府警察局中山分局", rec.FromAgency.Value)

	for _, field := range dto.Fields {
		fr := rec.Field(field)
		assert.Greater(t, fr.Confidence, 0.0, field)
		require.NotNil(t, fr.Source, field)
	}

	assert.Equal(t, "函查對象", rec.Name.Source.Label)
	assert.Equal(t, "身分證字號", rec.IDNo.Source.Label)
	assert.Equal(t, "發文機關", rec.FromAgency.Source.Label)

	// The sender line carries a context keyword, which must show up in
	// the agency evidence.
	assert.Greater(t, rec.FromAgency.Source.Breakdown.ContextBonus, 0.0)

	assert.Len(t, resp.Report, len(dto.Fields))
}

func TestExtractDocumentChecksumValidIDOutranksFailedOne(t *testing.T) {
	svc := newService(t)

	// Two records: one ID passes its checksum, one does not. Both anchor a
	// record, with confidence reflecting the checksum outcome.
	raw := "身分證字號：A123456789\n身分證字號：A123456788"

	resp, err := svc.ExtractDocument(context.Background(), raw)
	require.NoError(t, err)
	require.Len(t, resp.Records, 2)

	assert.Equal(t, "A123456789", resp.Records[0].IDNo.Value)
	assert.Equal(t, "A123456788", resp.Records[1].IDNo.Value)
	assert.Greater(t, resp.Records[0].IDNo.Confidence, resp.Records[1].IDNo.Confidence)
}

func TestExtractDocumentCompactsNoisyID(t *testing.T) {
	svc := newService(t)

	resp, err := svc.ExtractDocument(context.Background(), "身分證字號：A 1 2 3 . 4 5 6 7 8 9")
	require.NoError(t, err)
	require.Len(t, resp.Records, 1)

	assert.Equal(t, "A123456789", resp.Records[0].IDNo.Value)
	assert.Greater(t, resp.Records[0].IDNo.Confidence, 0.0)
}

func TestExtractDocumentAnchorAssistedName(t *testing.T) {
	svc := newService(t)

	// No name label anywhere; the name sits right after the ID and is
	// recovered through the anchor with the synthetic provenance label.
	resp, err := svc.ExtractDocument(context.Background(), "身分證字號：A123456789 張祐綸")
	require.NoError(t, err)
	require.Len(t, resp.Records, 1)

	rec := resp.Records[0]
	assert.Equal(t, "張祐綸", rec.Name.Value)
	require.NotNil(t, rec.Name.Source)
	assert.Equal(t, dto.AnchorLabel, rec.Name.Source.Label)
}

func TestExtractDocumentAnchorAssistedAgencyFromSenderLine(t *testing.T) {
	svc := newService(t)

	// The sender line precedes the subject line and carries no agency
	// label; the agency is recovered by scanning the lines above the ID
	// anchor.
	raw := "臺北市政府警察局中山分局\n函查對象：張祐綸　身分證字號：Ａ１２３４５６７８９"

	resp, err := svc.ExtractDocument(context.Background(), raw)
	require.NoError(t, err)
	require.Len(t, resp.Records, 1)

	rec := resp.Records[0]
	assert.Equal(t, "張祐綸", rec.Name.Value)
	assert.Equal(t, "A123456789", rec.IDNo.Value)
	assert.Equal(t, "臺北市政府警察局中山分局", rec.FromAgency.Value)
	assert.Greater(t, rec.FromAgency.Confidence, 0.0)
	require.NotNil(t, rec.FromAgency.Source)
	assert.Equal(t, dto.AnchorLabel, rec.FromAgency.Source.Label)
	assert.Equal(t, 0, rec.FromAgency.Source.Line)
}

func TestExtractDocumentNoAnchorYieldsSingleEmptyRecord(t *testing.T) {
	svc := newService(t)

	resp, err := svc.ExtractDocument(context.Background(), "今天天氣很好")
	require.NoError(t, err)
	require.Len(t, resp.Records, 1)

	rec := resp.Records[0]
	for _, field := range dto.Fields {
		fr := rec.Field(field)
		assert.Empty(t, fr.Value, field)
		assert.Zero(t, fr.Confidence, field)
		assert.NotEmpty(t, fr.Notes, field)
		assert.Contains(t, fr.Notes[0], "label not found", field)
	}
}

func TestExtractDocumentLabelWithoutValueIsExplained(t *testing.T) {
	svc := newService(t)

	// An ID label with nothing extractable after it, plus a name to anchor
	// the record. The ID slot must say the label was seen.
	resp, err := svc.ExtractDocument(context.Background(), "函查對象：張祐綸\n身分證字號：")
	require.NoError(t, err)
	require.Len(t, resp.Records, 1)

	rec := resp.Records[0]
	assert.Equal(t, "張祐綸", rec.Name.Value)
	assert.Empty(t, rec.IDNo.Value)
	require.NotEmpty(t, rec.IDNo.Notes)
	assert.Contains(t, rec.IDNo.Notes[0], "label found on line")
}

func TestExtractDocumentIsDeterministic(t *testing.T) {
	svc := newService(t)

	first, err := svc.ExtractDocument(context.Background(), sampleLetter)
	require.NoError(t, err)
	second, err := svc.ExtractDocument(context.Background(), sampleLetter)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestExtractDocumentRejectsNonUTF8(t *testing.T) {
	svc := newService(t)

	_, err := svc.ExtractDocument(context.Background(), string([]byte{0xff, 0xfe}))

	assert.Error(t, err)
}

// fakeNER serves canned PERSON spans keyed by line text; a nil map makes
// every call fail.
type fakeNER struct {
	spans map[string][]dto.Span
}

func (f fakeNER) SpansForLine(_ context.Context, line string) ([]dto.Span, error) {
	if f.spans == nil {
		return nil, errors.New("recognizer down")
	}
	return f.spans[line], nil
}

func TestExtractDocumentPersonGate(t *testing.T) {
	raw := "函查對象：張祐綸"
	norm := "函查對象:張祐綸"

	// Recognizer confirms the span: the name comes through.
	svc, err := NewExtractService(config.DefaultTables(), fakeNER{
		spans: map[string][]dto.Span{norm: {{Start: 5, End: 8}}},
	})
	require.NoError(t, err)
	resp, err := svc.ExtractDocument(context.Background(), raw)
	require.NoError(t, err)
	require.Len(t, resp.Records, 1)
	assert.Equal(t, "張祐綸", resp.Records[0].Name.Value)

	// Recognizer ran and saw no person: the surname-shaped run is gated
	// out, leaving no anchor at all.
	svc, err = NewExtractService(config.DefaultTables(), fakeNER{
		spans: map[string][]dto.Span{},
	})
	require.NoError(t, err)
	resp, err = svc.ExtractDocument(context.Background(), raw)
	require.NoError(t, err)
	require.Len(t, resp.Records, 1)
	assert.Empty(t, resp.Records[0].Name.Value)
}

func TestExtractDocumentPersonGateFailsOpen(t *testing.T) {
	svc, err := NewExtractService(config.DefaultTables(), fakeNER{})
	require.NoError(t, err)

	resp, err := svc.ExtractDocument(context.Background(), "函查對象：張祐綸")
	require.NoError(t, err)
	require.Len(t, resp.Records, 1)
	assert.Equal(t, "張祐綸", resp.Records[0].Name.Value)
}

func TestExtractBatchKeepsOrderAndIsolatesFailures(t *testing.T) {
	svc := newService(t)

	docs := []Document{
		{Source: "a.txt", Text: sampleLetter},
		{Source: "bad.txt", Text: string([]byte{0xff, 0xfe})},
		{Source: "c.txt", Text: "身分證字號：A123456789"},
	}

	resp := svc.ExtractBatch(context.Background(), docs, 2)

	require.Len(t, resp.Items, 3)
	assert.Equal(t, "a.txt", resp.Items[0].Source)
	assert.Equal(t, "bad.txt", resp.Items[1].Source)
	assert.Equal(t, "c.txt", resp.Items[2].Source)

	assert.NotNil(t, resp.Items[0].Result)
	assert.Empty(t, resp.Items[0].Error)

	assert.Nil(t, resp.Items[1].Result)
	assert.NotEmpty(t, resp.Items[1].Error)

	assert.NotNil(t, resp.Items[2].Result)

	seen := map[string]bool{}
	for _, item := range resp.Items {
		assert.NotEmpty(t, item.ID)
		assert.False(t, seen[item.ID])
		seen[item.ID] = true
	}
}

func TestExtractBatchUnboundedWorkers(t *testing.T) {
	svc := newService(t)

	docs := []Document{
		{Source: "a", Text: sampleLetter},
		{Source: "b", Text: sampleLetter},
	}

	resp := svc.ExtractBatch(context.Background(), docs, 0)

	require.Len(t, resp.Items, 2)
	assert.Equal(t, resp.Items[0].Result, resp.Items[1].Result)
}
