package service

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/twdocs/ocr-letter-extraction/client"
	"github.com/twdocs/ocr-letter-extraction/config"
	"github.com/twdocs/ocr-letter-extraction/dto"
	"github.com/twdocs/ocr-letter-extraction/utils"
)

// Document is one input to a batch run.
type Document struct {
	Source string
	Text   string
}

// ExtractService runs the full pipeline: normalization, label matching,
// candidate extraction, scoring and record assembly. All of its state is
// read-only after construction, so one service instance may process any
// number of documents concurrently.
type ExtractService struct {
	tables config.Tables
	dates  *utils.DateMatcher
	ner    client.NERClient
}

// NewExtractService builds a service around the given tables. A nil ner
// falls back to the no-op recognizer (gate bypassed).
func NewExtractService(tables config.Tables, ner client.NERClient) (*ExtractService, error) {
	dates, err := utils.NewDateMatcher(tables.DatePatterns)
	if err != nil {
		return nil, fmt.Errorf("failed to compile date patterns: %w", err)
	}
	if ner == nil {
		ner = client.NoopClient{}
	}
	return &ExtractService{tables: tables, dates: dates, ner: ner}, nil
}

// ExtractDocument processes one raw OCR text and returns its records and
// diagnostic report. Absence of labels, candidates or anchors is surfaced
// in the output, never as an error; only non-text input fails.
func (s *ExtractService) ExtractDocument(ctx context.Context, raw string) (*dto.ExtractResponse, error) {
	if !utf8.ValidString(raw) {
		return nil, fmt.Errorf("input is not valid UTF-8 text")
	}

	lines := utils.Normalize(raw)
	hits := utils.FindLabels(lines, s.tables.Labels)
	spanIdx := s.personSpans(ctx, lines)

	cands := s.collectCandidates(lines, hits, spanIdx)

	anchors, anchorField := selectAnchors(cands)

	// Anchor-assisted discovery: a document can omit the name or agency
	// label entirely and still carry the value near the ID.
	if anchorField == dto.FieldID {
		for _, field := range []string{dto.FieldName, dto.FieldAgency} {
			if hasHits(hits, field) {
				continue
			}
			for _, c := range s.anchorAssisted(field, anchors, lines, spanIdx) {
				cands[field] = appendDedup(cands[field], c, s.tables.Weights)
			}
		}
	}

	var records []dto.Record
	if len(anchors) == 0 {
		records = append(records, s.emptyRecord(hits, cands))
	} else {
		sort.SliceStable(anchors, func(i, j int) bool {
			if anchors[i].Line != anchors[j].Line {
				return anchors[i].Line < anchors[j].Line
			}
			return anchors[i].Col < anchors[j].Col
		})
		for _, a := range anchors {
			records = append(records, s.buildRecord(a, anchorField, cands, hits))
		}
	}

	return &dto.ExtractResponse{
		Records: records,
		Report:  s.buildReport(hits, cands),
	}, nil
}

// ExtractBatch processes independent documents concurrently. Results keep
// input order; workers bounds parallelism (0 means one goroutine per
// document).
func (s *ExtractService) ExtractBatch(ctx context.Context, docs []Document, workers int) *dto.BatchResponse {
	items := make([]dto.BatchItem, len(docs))

	var wg sync.WaitGroup
	var throttle chan struct{}
	if workers > 0 {
		throttle = make(chan struct{}, workers)
	}

	for i, d := range docs {
		wg.Add(1)
		if throttle != nil {
			throttle <- struct{}{}
		}
		go func(i int, d Document) {
			defer wg.Done()
			if throttle != nil {
				defer func() { <-throttle }()
			}

			item := dto.BatchItem{ID: uuid.NewString(), Source: d.Source}
			result, err := s.ExtractDocument(ctx, d.Text)
			if err != nil {
				log.Printf("failed to process document %s: %v", d.Source, err)
				item.Error = err.Error()
			} else {
				item.Result = result
			}
			items[i] = item
		}(i, d)
	}
	wg.Wait()

	return &dto.BatchResponse{Items: items}
}

// personSpans asks the external recognizer for PERSON spans, once per
// line, cached for the whole document. Any failure switches the document
// to fail-open mode: a nil index bypasses the gate everywhere.
func (s *ExtractService) personSpans(ctx context.Context, lines []dto.Line) map[int][]dto.Span {
	if _, noop := s.ner.(client.NoopClient); noop {
		return nil
	}

	idx := make(map[int][]dto.Span, len(lines))
	for _, l := range lines {
		spans, err := s.ner.SpansForLine(ctx, l.Text)
		if err != nil {
			log.Printf("person recognizer degraded, proceeding without the gate: %v", err)
			return nil
		}
		if spans == nil {
			spans = []dto.Span{}
		}
		idx[l.Index] = spans
	}
	return idx
}

// collectCandidates runs every label hit's recognizer over its windows
// and scores the results against the producing hit.
func (s *ExtractService) collectCandidates(lines []dto.Line, hits []dto.LabelHit, spanIdx map[int][]dto.Span) map[string][]*dto.Candidate {
	out := make(map[string][]*dto.Candidate)

	for i := range hits {
		hit := &hits[i]
		width := utf8.RuneCountInString(hit.Matched)
		for _, w := range s.windowsFor(hit, lines, hits) {
			for _, c := range s.recognize(hit.Field, w, spanIdx) {
				c := c
				c.Label = hit
				c.LabelConf = hit.Confidence()
				if !s.placeCandidate(&c, hit.Line, hit.Col, width, w.Dir, lines) {
					continue
				}
				out[c.Field] = appendDedup(out[c.Field], &c, s.tables.Weights)
			}
		}
	}

	return out
}

// anchorAssisted runs a recognizer directly on the windows around every
// anchor, with a synthetic low label confidence standing in for the
// missing label.
func (s *ExtractService) anchorAssisted(field string, anchors []*dto.Candidate, lines []dto.Line, spanIdx map[int][]dto.Span) []*dto.Candidate {
	var out []*dto.Candidate

	for _, a := range anchors {
		width := utf8.RuneCountInString(a.Value)
		synthetic := dto.LabelHit{Field: field, Line: a.Line, Col: a.Col, Matched: a.Value}
		windows := s.windowsFor(&synthetic, lines, nil)
		windows = append(windows, s.windowsAbove(field, a.Line, lines)...)
		for _, w := range windows {
			for _, c := range s.recognize(field, w, spanIdx) {
				c := c
				c.Label = nil
				c.LabelConf = s.tables.AnchorLabelConf
				if !s.placeCandidate(&c, a.Line, a.Col, width, w.Dir, lines) {
					continue
				}
				out = append(out, &c)
			}
		}
	}

	return out
}

// placeCandidate fills the positional evidence of a freshly recognized
// candidate, accumulates its contextual bonus and penalty, and checks the
// per-field proximity limits against the producing label or anchor.
func (s *ExtractService) placeCandidate(c *dto.Candidate, srcLine, srcCol, srcWidth int, dir dto.Direction, lines []dto.Line) bool {
	lineDist := abs(c.Line - srcLine)
	colDist := spanGap(c.Col, c.Col+utf8.RuneCountInString(c.Value), srcCol, srcCol+srcWidth)

	c.DistScore = utils.DistScore(lineDist, colDist)
	c.DirPrior = s.prior(dir)

	if c.Field == dto.FieldAgency && s.nearContextKeyword(lines, c.Line) {
		c.ContextBonus = s.tables.ContextBonus
	}
	for _, tok := range s.tables.PenaltyTokens[c.Field] {
		if strings.Contains(lines[c.Line].Text, tok) {
			c.Penalty += s.tables.PenaltyStep
		}
	}

	lim := s.tables.Limits
	switch c.Field {
	case dto.FieldName:
		if lineDist > lim.NameMaxLineDist {
			return false
		}
		if lineDist == 0 && colDist > lim.NameMaxColDist {
			return false
		}
		return true
	case dto.FieldAgency:
		return lineDist <= lim.AgencyMaxLineDist
	default:
		return c.DistScore >= lim.MinDistScore
	}
}

// windowsFor builds the bounded segments a recognizer scans for one hit:
// the same line left and right of the label (truncated at neighboring
// hits so one field's value is never scanned as part of another label's
// window) and a configurable number of whole lines below.
func (s *ExtractService) windowsFor(hit *dto.LabelHit, lines []dto.Line, hits []dto.LabelHit) []utils.Window {
	var windows []utils.Window

	runes := []rune(lines[hit.Line].Text)
	labelEnd := hit.Col + utf8.RuneCountInString(hit.Matched)
	side := s.tables.Windows.SideRunes

	rightEnd := min(len(runes), labelEnd+side)
	for _, o := range hits {
		if o.Line == hit.Line && o.Col >= labelEnd && o.Col < rightEnd {
			rightEnd = o.Col
		}
	}
	if rightEnd > labelEnd {
		windows = append(windows, utils.Window{
			Text: string(runes[labelEnd:rightEnd]),
			Line: hit.Line,
			Col:  labelEnd,
			Dir:  dto.DirRight,
		})
	}

	leftStart := max(0, hit.Col-side)
	for _, o := range hits {
		oEnd := o.Col + utf8.RuneCountInString(o.Matched)
		if o.Line == hit.Line && oEnd <= hit.Col && oEnd > leftStart {
			leftStart = oEnd
		}
	}
	if hit.Col > leftStart {
		windows = append(windows, utils.Window{
			Text: string(runes[leftStart:hit.Col]),
			Line: hit.Line,
			Col:  leftStart,
			Dir:  dto.DirLeft,
		})
	}

	below := s.tables.Windows.BelowLines
	if hit.Field == dto.FieldAgency {
		below = s.tables.Windows.AgencyBelowLines
	}
	for k := 1; k <= below; k++ {
		idx := hit.Line + k
		if idx >= len(lines) {
			break
		}
		windows = append(windows, utils.Window{
			Text: lines[idx].Text,
			Line: idx,
			Col:  0,
			Dir:  dto.DirBelow,
		})
	}

	return windows
}

// windowsAbove covers the lines preceding an anchor, up to the field's
// line-distance limit. Labeled search never looks upward, but the sender
// line of a letter sits above the subject line, unlabeled.
func (s *ExtractService) windowsAbove(field string, line int, lines []dto.Line) []utils.Window {
	above := s.tables.Limits.NameMaxLineDist
	if field == dto.FieldAgency {
		above = s.tables.Limits.AgencyMaxLineDist
	}

	var windows []utils.Window
	for k := 1; k <= above; k++ {
		idx := line - k
		if idx < 0 {
			break
		}
		windows = append(windows, utils.Window{
			Text: lines[idx].Text,
			Line: idx,
			Col:  0,
			Dir:  dto.DirAbove,
		})
	}
	return windows
}

func (s *ExtractService) recognize(field string, w utils.Window, spanIdx map[int][]dto.Span) []dto.Candidate {
	switch field {
	case dto.FieldName:
		var spans []dto.Span
		if spanIdx != nil {
			spans = spanIdx[w.Line]
			if spans == nil {
				spans = []dto.Span{}
			}
		}
		return utils.FindNameCandidates(w, s.tables, spans)
	case dto.FieldID:
		return utils.FindIDCandidates(w)
	case dto.FieldDate:
		return s.dates.Find(w)
	case dto.FieldBatch:
		return utils.FindBatchCandidates(w)
	case dto.FieldAgency:
		return utils.FindAgencyCandidates(w, s.tables)
	}
	return nil
}

func (s *ExtractService) prior(dir dto.Direction) float64 {
	switch dir {
	case dto.DirRight:
		return s.tables.Priors.Right
	case dto.DirLeft:
		return s.tables.Priors.Left
	default:
		return s.tables.Priors.Below
	}
}

func (s *ExtractService) nearContextKeyword(lines []dto.Line, lineIdx int) bool {
	for _, idx := range []int{lineIdx, lineIdx - 1} {
		if idx < 0 || idx >= len(lines) {
			continue
		}
		for _, kw := range s.tables.ContextKeywords {
			if strings.Contains(lines[idx].Text, kw) {
				return true
			}
		}
	}
	return false
}

// selectAnchors prefers ID candidates (the most discriminative signal)
// and falls back to name candidates.
func selectAnchors(cands map[string][]*dto.Candidate) ([]*dto.Candidate, string) {
	if ids := cands[dto.FieldID]; len(ids) > 0 {
		return append([]*dto.Candidate(nil), ids...), dto.FieldID
	}
	if names := cands[dto.FieldName]; len(names) > 0 {
		return append([]*dto.Candidate(nil), names...), dto.FieldName
	}
	return nil, ""
}

// buildRecord attaches the best-scoring candidate of every field to one
// anchor. Ties go to the candidate closer to the anchor, then to the one
// seen first.
func (s *ExtractService) buildRecord(anchor *dto.Candidate, anchorField string, cands map[string][]*dto.Candidate, hits []dto.LabelHit) dto.Record {
	rec := dto.Record{Debug: dto.DebugInfo{CandidateCounts: candidateCounts(cands)}}

	*rec.Field(anchorField) = s.fieldResult(anchor)

	for _, field := range dto.Fields {
		if field == anchorField {
			continue
		}
		if best := s.pickBest(cands[field], anchor); best != nil {
			*rec.Field(field) = s.fieldResult(best)
		} else {
			*rec.Field(field) = absentResult(field, hits)
		}
	}

	return rec
}

func (s *ExtractService) pickBest(list []*dto.Candidate, anchor *dto.Candidate) *dto.Candidate {
	var best *dto.Candidate
	var bestScore float64
	var bestDist int

	for _, c := range list {
		score := utils.Score(c, s.tables.Weights)
		dist := anchorDistance(anchor, c)
		if best == nil || score > bestScore || (score == bestScore && dist < bestDist) {
			best, bestScore, bestDist = c, score, dist
		}
	}
	return best
}

func (s *ExtractService) fieldResult(c *dto.Candidate) dto.FieldResult {
	score := utils.Score(c, s.tables.Weights)
	label := dto.AnchorLabel
	if c.Label != nil {
		label = c.Label.Label
	}
	return dto.FieldResult{
		Value:      c.Value,
		Confidence: utils.Confidence(score),
		Source: &dto.Provenance{
			Line:      c.Line,
			Col:       c.Col,
			Label:     label,
			Score:     score,
			Breakdown: c.Breakdown(),
		},
	}
}

// emptyRecord is the degraded output for a document with no anchor at
// all: one record, every field null, each with a note saying why.
func (s *ExtractService) emptyRecord(hits []dto.LabelHit, cands map[string][]*dto.Candidate) dto.Record {
	rec := dto.Record{Debug: dto.DebugInfo{CandidateCounts: candidateCounts(cands)}}
	for _, field := range dto.Fields {
		*rec.Field(field) = absentResult(field, hits)
	}
	return rec
}

func absentResult(field string, hits []dto.LabelHit) dto.FieldResult {
	if line, ok := firstHitLine(hits, field); ok {
		return dto.FieldResult{Notes: []string{
			fmt.Sprintf("label found on line %d but no candidate passed recognizer and threshold checks", line),
		}}
	}
	return dto.FieldResult{Notes: []string{
		"label not found in document, including fuzzy matches",
	}}
}

// buildReport derives the per-field diagnostic report from the same
// hit/candidate data the records were assembled from.
func (s *ExtractService) buildReport(hits []dto.LabelHit, cands map[string][]*dto.Candidate) map[string][]string {
	report := make(map[string][]string, len(dto.Fields))

	for _, field := range dto.Fields {
		list := cands[field]
		switch {
		case len(list) > 0:
			best := s.pickBest(list, list[0])
			report[field] = []string{fmt.Sprintf(
				"%d candidate(s) scored, best %.2f at line %d col %d",
				len(list), utils.Score(best, s.tables.Weights), best.Line, best.Col,
			)}
		default:
			if line, ok := firstHitLine(hits, field); ok {
				report[field] = []string{fmt.Sprintf(
					"label found on line %d but no candidate passed recognizer and threshold checks", line,
				)}
			} else {
				report[field] = []string{"label not found in document, including fuzzy matches"}
			}
		}
	}

	return report
}

func candidateCounts(cands map[string][]*dto.Candidate) map[string]int {
	counts := make(map[string]int, len(dto.Fields))
	for _, field := range dto.Fields {
		counts[field] = len(cands[field])
	}
	return counts
}

func firstHitLine(hits []dto.LabelHit, field string) (int, bool) {
	for _, h := range hits {
		if h.Field == field {
			return h.Line, true
		}
	}
	return 0, false
}

func hasHits(hits []dto.LabelHit, field string) bool {
	_, ok := firstHitLine(hits, field)
	return ok
}

// appendDedup appends c unless an equal candidate (same value and
// position) already exists; the higher-scoring duplicate wins, keeping
// first-seen order.
func appendDedup(list []*dto.Candidate, c *dto.Candidate, w config.Weights) []*dto.Candidate {
	for i, existing := range list {
		if existing.Value == c.Value && existing.Line == c.Line && existing.Col == c.Col {
			if utils.Score(c, w) > utils.Score(existing, w) {
				list[i] = c
			}
			return list
		}
	}
	return append(list, c)
}

// spanGap is the column distance between two rune spans on the same
// line: zero when they touch or overlap, otherwise the gap between their
// nearest edges.
func spanGap(aStart, aEnd, bStart, bEnd int) int {
	if aStart > bEnd {
		return aStart - bEnd
	}
	if bStart > aEnd {
		return bStart - aEnd
	}
	return 0
}

func anchorDistance(anchor, c *dto.Candidate) int {
	return abs(c.Line-anchor.Line)*1000 + abs(c.Col-anchor.Col)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
