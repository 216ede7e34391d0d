package engine

import (
	"fmt"
	"strings"

	"github.com/poiesic/answerit/core"
)

const segmentationResponseSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "segments": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "id": {
            "type": "string",
            "pattern": "^s[0-9]+$"
          },
          "type": {
            "type": "string"
          },
          "text": {
            "type": "string"
          },
          "depends_on": {
            "type": "array",
            "items": {"type": "string"}
          }
        },
        "required": ["id", "type", "text"],
        "additionalProperties": false
      }
    }
  },
  "required": ["segments"],
  "additionalProperties": false
}`

const segmentationPromptTemplate = `Decompose the given question into independently answerable sub-questions and return them as JSON.

Output ONLY valid JSON which complies with the schema given below. Do not include any preamble, explanation,
greeting, or acknowledgment. Start your response directly with the opening brace { and end with the closing
brace }. Your output must exactly follow this schema:

%s

Rules:
- Segment ids are "s1", "s2", ... in order.
- Type field must match exactly one of the listed values: %s.
- Each sub-question must be answerable on its own, given only the answers of the segments it depends on.
- Use depends_on only when a segment genuinely needs another segment's answer; unrelated lookups must not depend on each other.
- Dependencies must never form a cycle.
- Produce at most 6 segments. A simple question is one segment with an empty depends_on.
- The JSON must parse without errors; no trailing commas, no extra keys, and no extraneous text outside the object.

Example:
Input: "Compare the population of France and Germany"
Output:
{
  "segments": [
    {"id":"s1","type":"factual_lookup","text":"What is the population of France?","depends_on":[]},
    {"id":"s2","type":"factual_lookup","text":"What is the population of Germany?","depends_on":[]},
    {"id":"s3","type":"comparison","text":"Compare the population figures of France and Germany.","depends_on":["s1","s2"]}
  ]
}

Example (simple question):
Input: "What year did the Berlin Wall fall?"
Output:
{
  "segments": [
    {"id":"s1","type":"factual_lookup","text":"What year did the Berlin Wall fall?","depends_on":[]}
  ]
}`

// buildSegmentationPrompt creates the decomposition system prompt with the
// segment types embedded.
func buildSegmentationPrompt() string {
	return fmt.Sprintf(segmentationPromptTemplate,
		segmentationResponseSchema,
		strings.Join(core.SegmentTypes, ", "))
}

const findingsResponseSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "findings": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "fact": {"type": "string"},
          "source": {"type": "string"}
        },
        "required": ["fact"],
        "additionalProperties": false
      }
    },
    "confidence": {
      "type": "number",
      "minimum": 0,
      "maximum": 1
    }
  },
  "required": ["findings", "confidence"],
  "additionalProperties": false
}`

const segmentSystemPromptTemplate = `Answer the given sub-question and return your findings as JSON.

Output ONLY valid JSON which complies with the schema given below. Start your response directly with the
opening brace { and end with the closing brace }. Your output must exactly follow this schema:

%s

Rules:
- Each finding is one atomic fact. Split compound statements into separate findings.
- Attach a source (publication, site, dataset, or well-known reference) to every finding you can attribute; leave source empty otherwise.
- Confidence is your own certainty in the findings as a number from 0 to 1.
- If context from earlier sub-questions is provided, treat it as established fact.
- If you cannot answer, return "findings": [] with a confidence of 0.`

// buildSegmentSystemPrompt creates the system prompt for one segment run.
func buildSegmentSystemPrompt() string {
	return fmt.Sprintf(segmentSystemPromptTemplate, findingsResponseSchema)
}

const escalationSuffix = `

This is a retry because the previous attempt was not confident enough. Be precise: prefer fewer,
well-sourced findings over many vague ones, and report a confidence that honestly reflects certainty.`

// buildSegmentPrompt renders the user prompt for a segment, embedding the
// findings of its dependencies as read-only context.
func buildSegmentPrompt(segment core.Segment, deps []DependencyFindings) string {
	var b strings.Builder

	if len(deps) > 0 {
		b.WriteString("Context from earlier sub-questions:\n")
		for _, dep := range deps {
			if len(dep.Findings) == 0 {
				fmt.Fprintf(&b, "- [%s] no findings available\n", dep.SegmentID)
				continue
			}
			for _, f := range dep.Findings {
				if f.Source != "" {
					fmt.Fprintf(&b, "- [%s] %s (source: %s)\n", dep.SegmentID, f.Fact, f.Source)
				} else {
					fmt.Fprintf(&b, "- [%s] %s\n", dep.SegmentID, f.Fact)
				}
			}
		}
		b.WriteString("\n")
	}

	b.WriteString("Sub-question: ")
	b.WriteString(segment.Text)
	return b.String()
}

const synthesisResponseSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "answer": {"type": "string"},
    "confidence": {
      "type": "number",
      "minimum": 0,
      "maximum": 1
    },
    "sources": {
      "type": "array",
      "items": {"type": "string"}
    },
    "key_points": {
      "type": "array",
      "items": {"type": "string"}
    }
  },
  "required": ["answer", "confidence"],
  "additionalProperties": false
}`

const synthesisSystemPromptTemplate = `Combine the findings below into one coherent answer to the user's original question and return it as JSON.

Output ONLY valid JSON which complies with the schema given below. Start your response directly with the
opening brace { and end with the closing brace }. Your output must exactly follow this schema:

%s

Rules:
- Write a unified narrative answer; do not enumerate the sub-questions.
- Findings marked LOW CONFIDENCE must be weighted down and hedged or omitted.
- List every source that backs a statement in the answer.
- Key points are the 2-5 takeaways a reader should remember.
- Confidence is your certainty in the combined answer as a number from 0 to 1.`

// buildSynthesisSystemPrompt creates the system prompt for the synthesis call.
func buildSynthesisSystemPrompt() string {
	return fmt.Sprintf(synthesisSystemPromptTemplate, synthesisResponseSchema)
}

// buildSynthesisPrompt renders the user prompt for the synthesis call: the
// original question plus every segment's findings, with failed or
// low-confidence segments marked so the model weights them down.
func buildSynthesisPrompt(query core.Query, segments []core.Segment, results []core.SegmentResult) string {
	byID := make(map[string]*core.SegmentResult, len(results))
	for i := range results {
		byID[results[i].SegmentID] = &results[i]
	}

	var b strings.Builder
	b.WriteString("Original question: ")
	b.WriteString(query.Text)
	b.WriteString("\n\n")

	for _, seg := range segments {
		result := byID[seg.ID]
		fmt.Fprintf(&b, "Sub-question (%s): %s\n", seg.ID, seg.Text)
		if result == nil || len(result.Findings) == 0 {
			b.WriteString("- no findings\n\n")
			continue
		}
		marker := ""
		if !result.Success || result.Confidence < 0.5 {
			marker = " [LOW CONFIDENCE]"
		}
		for _, f := range result.Findings {
			if f.Source != "" {
				fmt.Fprintf(&b, "- %s (source: %s)%s\n", f.Fact, f.Source, marker)
			} else {
				fmt.Fprintf(&b, "- %s%s\n", f.Fact, marker)
			}
		}
		b.WriteString("\n")
	}

	return b.String()
}
