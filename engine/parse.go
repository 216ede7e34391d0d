package engine

import (
	"encoding/json"
	"strings"
)

// Wire shapes the models are prompted to emit. Model output is never assumed
// well-formed; every parse failure has a defined recovery path.

type segmentPayload struct {
	ID        string   `json:"id"`
	Type      string   `json:"type"`
	Text      string   `json:"text"`
	DependsOn []string `json:"depends_on"`
}

type segmentationPayload struct {
	Segments []segmentPayload `json:"segments"`
}

type findingPayload struct {
	Fact   string `json:"fact"`
	Source string `json:"source"`
}

type findingsPayload struct {
	Findings   []findingPayload `json:"findings"`
	Confidence float64          `json:"confidence"`
}

type synthesisPayload struct {
	Answer     string   `json:"answer"`
	Confidence float64  `json:"confidence"`
	Sources    []string `json:"sources"`
	KeyPoints  []string `json:"key_points"`
}

func parseSegmentation(text string) (*segmentationPayload, error) {
	var payload segmentationPayload
	if err := json.Unmarshal([]byte(cleanModelJSON(text)), &payload); err != nil {
		return nil, err
	}
	// Normalize types the way models tend to drift: spaced words and
	// unknown categories.
	for i, seg := range payload.Segments {
		payload.Segments[i].Type = normalizeSegmentType(seg.Type)
	}
	return &payload, nil
}

func parseFindings(text string) (*findingsPayload, error) {
	var payload findingsPayload
	if err := json.Unmarshal([]byte(cleanModelJSON(text)), &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

func parseSynthesis(text string) (*synthesisPayload, error) {
	var payload synthesisPayload
	if err := json.Unmarshal([]byte(cleanModelJSON(text)), &payload); err != nil {
		return nil, err
	}
	if payload.Answer == "" {
		return nil, ErrSynthesis
	}
	return &payload, nil
}

func normalizeSegmentType(t string) string {
	t = strings.ReplaceAll(strings.ToLower(strings.TrimSpace(t)), " ", "_")
	switch t {
	case "factual_lookup", "comparison", "aggregation", "synthesis":
		return t
	default:
		return "factual_lookup"
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
