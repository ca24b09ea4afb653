package dto

// Field identifiers used throughout the pipeline and in the JSON output.
const (
	FieldName   = "name"
	FieldID     = "id_no"
	FieldDate   = "ref_date"
	FieldBatch  = "batch_id"
	FieldAgency = "from_agency"
)

// Fields lists every extracted field in output order.
var Fields = []string{FieldName, FieldID, FieldDate, FieldBatch, FieldAgency}

// AnchorLabel is the provenance label reported for candidates found by
// anchor-assisted discovery rather than an actual label hit.
const AnchorLabel = "@anchor"

// Line is one normalized document line. All column offsets elsewhere in
// the pipeline are rune offsets into Text.
type Line struct {
	Index int
	Text  string
}

// Direction of a recognizer window relative to its producing label or anchor.
type Direction int

const (
	DirRight Direction = iota
	DirLeft
	DirBelow
	DirAbove
)

// Span is a rune-offset range inside a line, as reported by the external
// PERSON recognizer. End is exclusive.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// LabelHit is one fuzzy label occurrence. Distance is the edit distance
// the match needed, at most 1.
type LabelHit struct {
	Field    string
	Label    string
	Line     int
	Col      int
	Matched  string
	Distance int
}

// Confidence returns the label confidence: 1.0 for an exact match, 0.5
// for a one-edit match.
func (h LabelHit) Confidence() float64 {
	if h.Distance <= 0 {
		return 1.0
	}
	return 0.5
}

// Candidate is one value proposal for a field. Candidates are generated
// fresh per document; after creation only the penalty accumulates.
type Candidate struct {
	Field string
	Value string
	Line  int
	Col   int

	// Label is the hit that produced the window, nil for anchor-assisted
	// discovery.
	Label *LabelHit

	LabelConf    float64
	FormatConf   float64
	DistScore    float64
	DirPrior     float64
	ContextBonus float64
	Penalty      float64
}

// ScoreBreakdown mirrors the candidate evidence terms in the output.
type ScoreBreakdown struct {
	LabelConf    float64 `json:"label_conf"`
	FormatConf   float64 `json:"format_conf"`
	DistScore    float64 `json:"dist_score"`
	DirPrior     float64 `json:"dir_prior"`
	ContextBonus float64 `json:"context_bonus"`
	Penalty      float64 `json:"penalty"`
}

// Breakdown exposes the candidate's evidence terms for provenance output.
func (c *Candidate) Breakdown() ScoreBreakdown {
	return ScoreBreakdown{
		LabelConf:    c.LabelConf,
		FormatConf:   c.FormatConf,
		DistScore:    c.DistScore,
		DirPrior:     c.DirPrior,
		ContextBonus: c.ContextBonus,
		Penalty:      c.Penalty,
	}
}

// Provenance records where a field value came from.
type Provenance struct {
	Line      int            `json:"line"`
	Col       int            `json:"col"`
	Label     string         `json:"label"`
	Score     float64        `json:"score"`
	Breakdown ScoreBreakdown `json:"breakdown"`
}

// FieldResult is the outcome for one field of one record. A missing value
// carries at least one note explaining the absence.
type FieldResult struct {
	Value      string      `json:"value,omitempty"`
	Confidence float64     `json:"confidence"`
	Source     *Provenance `json:"source,omitempty"`
	Notes      []string    `json:"notes,omitempty"`
}

// DebugInfo is the per-record debug bag.
type DebugInfo struct {
	CandidateCounts map[string]int `json:"candidate_counts"`
}

// Record is one detected subject occurrence. A document yields one record
// per anchor, or a single all-empty record when no anchor exists.
type Record struct {
	Name       FieldResult `json:"name"`
	IDNo       FieldResult `json:"id_no"`
	RefDate    FieldResult `json:"ref_date"`
	BatchID    FieldResult `json:"batch_id"`
	FromAgency FieldResult `json:"from_agency"`
	Debug      DebugInfo   `json:"debug"`
}

// Field returns a pointer to the result slot for the given field name.
func (r *Record) Field(name string) *FieldResult {
	switch name {
	case FieldName:
		return &r.Name
	case FieldID:
		return &r.IDNo
	case FieldDate:
		return &r.RefDate
	case FieldBatch:
		return &r.BatchID
	case FieldAgency:
		return &r.FromAgency
	}
	return nil
}
