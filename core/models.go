package core

import "time"

// SegmentTypes defines the valid categories for decomposed query segments.
// These types are used by the segmenter to classify sub-questions.
var SegmentTypes = []string{
	"factual_lookup",
	"comparison",
	"aggregation",
	"synthesis",
}

// Query is a user-submitted question. Once the fingerprint is computed the
// query is treated as immutable.
type Query struct {
	UserID      string
	Text        string
	Model       string // identity of the model the query will be answered with
	Fingerprint Fingerprint
	SubmittedAt time.Time
}

// NewQuery creates a Query with its fingerprint derived from the normalized
// text and the model identity.
func NewQuery(userID, text, model string) Query {
	return Query{
		UserID:      userID,
		Text:        text,
		Model:       model,
		Fingerprint: QueryFingerprint(text, model),
		SubmittedAt: time.Now().UTC(),
	}
}

// Segment is one independently answerable sub-question of a query.
// Segments are never mutated after segmentation; a failed segment is re-run,
// not edited.
type Segment struct {
	// ID is unique within a query, e.g. "s1".
	ID string

	// Type is one of SegmentTypes.
	Type string

	// Text is the sub-question to answer.
	Text string

	// DependsOn lists the IDs of segments whose findings this segment
	// consumes. The declared references must form a DAG.
	DependsOn []string
}

// Finding is one atomic fact produced while answering a segment.
type Finding struct {
	Fact   string
	Source string // citation or provenance reference, may be empty
}

// SegmentResult is the outcome of executing one segment. Escalation creates a
// new result, never mutates an old one; the scheduler keeps only the kept
// attempt per segment.
type SegmentResult struct {
	SegmentID          string
	Success            bool
	Confidence         float64 // in [0,1]
	Findings           []Finding
	FailureReason      string // set when Success is false
	TokensUsed         int
	Duration           time.Duration
	WasEscalated       bool
	CoordinationEvents int // number of sibling outputs this execution consumed
}

// SynthesizedAnswer is the final merged answer for a query.
type SynthesizedAnswer struct {
	Text       string
	Confidence float64  // aggregate of synthesis confidence and coverage
	Sources    []string // deduplicated, in first-seen order
	KeyPoints  []string
	TokensUsed int
	CreatedAt  time.Time
}

// Segmentation bundles the segments of a query with their execution graph.
// It is the unit the segmenter caches and persists.
type Segmentation struct {
	Fingerprint Fingerprint
	QueryText   string
	Segments    []Segment
	Graph       ExecutionGraph
	CreatedAt   time.Time
}

// ExecutionRecord is one persisted segment execution attempt.
type ExecutionRecord struct {
	Fingerprint Fingerprint
	Attempt     int // 1 for the initial attempt, 2 for the escalation
	Result      SegmentResult
	RecordedAt  time.Time
}

// SynthesisRecord is the persisted final answer for one query execution.
type SynthesisRecord struct {
	Fingerprint Fingerprint
	QueryText   string
	Answer      SynthesizedAnswer
	RecordedAt  time.Time
}

// SearchOutcome is what the pipeline returns to the surrounding application.
type SearchOutcome struct {
	Query        Query
	Segmentation *Segmentation
	Results      []SegmentResult
	Answer       *SynthesizedAnswer
}

// ResultByID returns the result for the given segment ID, or nil.
func (o *SearchOutcome) ResultByID(id string) *SegmentResult {
	for i := range o.Results {
		if o.Results[i].SegmentID == id {
			return &o.Results[i]
		}
	}
	return nil
}
