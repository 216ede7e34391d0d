// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package storage

import (
	"math"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/answerit/core"
)

// Record serializers are composed by hand from mus-go primitives. The
// record shapes are small and stable, so explicit composition is simpler to
// review than generated code.

// MarshalSegmentation serializes a Segmentation to bytes.
func MarshalSegmentation(seg *core.Segmentation) []byte {
	buf := make([]byte, segmentationMUS.Size(*seg))
	segmentationMUS.Marshal(*seg, buf)
	return buf
}

// UnmarshalSegmentation deserializes a Segmentation from bytes.
func UnmarshalSegmentation(data []byte) (*core.Segmentation, error) {
	seg, _, err := segmentationMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &seg, nil
}

// MarshalSegmentResult serializes a SegmentResult to bytes.
func MarshalSegmentResult(result *core.SegmentResult) []byte {
	buf := make([]byte, segmentResultMUS.Size(*result))
	segmentResultMUS.Marshal(*result, buf)
	return buf
}

// UnmarshalSegmentResult deserializes a SegmentResult from bytes.
func UnmarshalSegmentResult(data []byte) (*core.SegmentResult, error) {
	result, _, err := segmentResultMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// MarshalExecutionRecord serializes an ExecutionRecord to bytes.
func MarshalExecutionRecord(rec *core.ExecutionRecord) []byte {
	buf := make([]byte, executionRecordMUS.Size(*rec))
	executionRecordMUS.Marshal(*rec, buf)
	return buf
}

// UnmarshalExecutionRecord deserializes an ExecutionRecord from bytes.
func UnmarshalExecutionRecord(data []byte) (*core.ExecutionRecord, error) {
	rec, _, err := executionRecordMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// MarshalSynthesisRecord serializes a SynthesisRecord to bytes.
func MarshalSynthesisRecord(rec *core.SynthesisRecord) []byte {
	buf := make([]byte, synthesisRecordMUS.Size(*rec))
	synthesisRecordMUS.Marshal(*rec, buf)
	return buf
}

// UnmarshalSynthesisRecord deserializes a SynthesisRecord from bytes.
func UnmarshalSynthesisRecord(data []byte) (*core.SynthesisRecord, error) {
	rec, _, err := synthesisRecordMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

var (
	segmentationMUS    = segmentationSer{}
	segmentResultMUS   = segmentResultSer{}
	executionRecordMUS = executionRecordSer{}
	synthesisRecordMUS = synthesisRecordSer{}

	segmentMUS = segmentSer{}
	findingMUS = findingSer{}
	graphMUS   = graphSer{}
	answerMUS  = answerSer{}
)

// float64 values travel as their IEEE 754 bit pattern in a varint.

func marshalFloat(v float64, bs []byte) int {
	return varint.Uint64.Marshal(math.Float64bits(v), bs)
}

func unmarshalFloat(bs []byte) (float64, int, error) {
	bits, n, err := varint.Uint64.Unmarshal(bs)
	return math.Float64frombits(bits), n, err
}

func sizeFloat(v float64) int {
	return varint.Uint64.Size(math.Float64bits(v))
}

// timestamps travel as Unix microseconds.

func marshalTime(t time.Time, bs []byte) int {
	return varint.Int64.Marshal(t.UnixMicro(), bs)
}

func unmarshalTime(bs []byte) (time.Time, int, error) {
	micros, n, err := varint.Int64.Unmarshal(bs)
	if err != nil {
		return time.Time{}, n, err
	}
	return time.UnixMicro(micros).UTC(), n, nil
}

func sizeTime(t time.Time) int {
	return varint.Int64.Size(t.UnixMicro())
}

func marshalStrings(v []string, bs []byte) (n int) {
	n = varint.Int.Marshal(len(v), bs)
	for _, s := range v {
		n += ord.String.Marshal(s, bs[n:])
	}
	return n
}

func unmarshalStrings(bs []byte) (v []string, n int, err error) {
	count, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return nil, n, err
	}
	if count < 0 {
		return nil, n, ErrTruncatedData
	}
	for i := 0; i < count; i++ {
		var (
			s string
			m int
		)
		s, m, err = ord.String.Unmarshal(bs[n:])
		n += m
		if err != nil {
			return nil, n, err
		}
		v = append(v, s)
	}
	return v, n, nil
}

func sizeStrings(v []string) (size int) {
	size = varint.Int.Size(len(v))
	for _, s := range v {
		size += ord.String.Size(s)
	}
	return size
}

type segmentSer struct{}

func (segmentSer) Marshal(s core.Segment, bs []byte) (n int) {
	n = ord.String.Marshal(s.ID, bs)
	n += ord.String.Marshal(s.Type, bs[n:])
	n += ord.String.Marshal(s.Text, bs[n:])
	n += marshalStrings(s.DependsOn, bs[n:])
	return n
}

func (segmentSer) Unmarshal(bs []byte) (s core.Segment, n int, err error) {
	var m int
	if s.ID, n, err = ord.String.Unmarshal(bs); err != nil {
		return s, n, err
	}
	if s.Type, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return s, n + m, err
	}
	n += m
	if s.Text, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return s, n + m, err
	}
	n += m
	if s.DependsOn, m, err = unmarshalStrings(bs[n:]); err != nil {
		return s, n + m, err
	}
	n += m
	return s, n, nil
}

func (segmentSer) Size(s core.Segment) int {
	return ord.String.Size(s.ID) +
		ord.String.Size(s.Type) +
		ord.String.Size(s.Text) +
		sizeStrings(s.DependsOn)
}

type graphSer struct{}

func (graphSer) Marshal(g core.ExecutionGraph, bs []byte) (n int) {
	n = varint.Int.Marshal(len(g.Stages), bs)
	for _, stage := range g.Stages {
		n += marshalStrings(stage, bs[n:])
	}
	return n
}

func (graphSer) Unmarshal(bs []byte) (g core.ExecutionGraph, n int, err error) {
	count, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return g, n, err
	}
	if count < 0 {
		return g, n, ErrTruncatedData
	}
	for i := 0; i < count; i++ {
		var (
			stage []string
			m     int
		)
		stage, m, err = unmarshalStrings(bs[n:])
		n += m
		if err != nil {
			return g, n, err
		}
		g.Stages = append(g.Stages, stage)
	}
	// The diagnostic views are derived, not stored.
	g.StageCount = len(g.Stages)
	for _, stage := range g.Stages {
		if len(stage) > 1 {
			g.ParallelGroups = append(g.ParallelGroups, stage)
		} else if len(stage) == 1 {
			g.SequentialIDs = append(g.SequentialIDs, stage[0])
		}
	}
	return g, n, nil
}

func (graphSer) Size(g core.ExecutionGraph) (size int) {
	size = varint.Int.Size(len(g.Stages))
	for _, stage := range g.Stages {
		size += sizeStrings(stage)
	}
	return size
}

type findingSer struct{}

func (findingSer) Marshal(f core.Finding, bs []byte) (n int) {
	n = ord.String.Marshal(f.Fact, bs)
	n += ord.String.Marshal(f.Source, bs[n:])
	return n
}

func (findingSer) Unmarshal(bs []byte) (f core.Finding, n int, err error) {
	var m int
	if f.Fact, n, err = ord.String.Unmarshal(bs); err != nil {
		return f, n, err
	}
	if f.Source, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return f, n + m, err
	}
	n += m
	return f, n, nil
}

func (findingSer) Size(f core.Finding) int {
	return ord.String.Size(f.Fact) + ord.String.Size(f.Source)
}

type segmentResultSer struct{}

func (segmentResultSer) Marshal(r core.SegmentResult, bs []byte) (n int) {
	n = ord.String.Marshal(r.SegmentID, bs)
	n += ord.Bool.Marshal(r.Success, bs[n:])
	n += marshalFloat(r.Confidence, bs[n:])
	n += varint.Int.Marshal(len(r.Findings), bs[n:])
	for _, f := range r.Findings {
		n += findingMUS.Marshal(f, bs[n:])
	}
	n += ord.String.Marshal(r.FailureReason, bs[n:])
	n += varint.Int.Marshal(r.TokensUsed, bs[n:])
	n += varint.Int64.Marshal(int64(r.Duration), bs[n:])
	n += ord.Bool.Marshal(r.WasEscalated, bs[n:])
	n += varint.Int.Marshal(r.CoordinationEvents, bs[n:])
	return n
}

func (segmentResultSer) Unmarshal(bs []byte) (r core.SegmentResult, n int, err error) {
	var m int
	if r.SegmentID, n, err = ord.String.Unmarshal(bs); err != nil {
		return r, n, err
	}
	if r.Success, m, err = ord.Bool.Unmarshal(bs[n:]); err != nil {
		return r, n + m, err
	}
	n += m
	if r.Confidence, m, err = unmarshalFloat(bs[n:]); err != nil {
		return r, n + m, err
	}
	n += m
	count, m, err := varint.Int.Unmarshal(bs[n:])
	n += m
	if err != nil {
		return r, n, err
	}
	if count < 0 {
		return r, n, ErrTruncatedData
	}
	for i := 0; i < count; i++ {
		var f core.Finding
		f, m, err = findingMUS.Unmarshal(bs[n:])
		n += m
		if err != nil {
			return r, n, err
		}
		r.Findings = append(r.Findings, f)
	}
	if r.FailureReason, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return r, n + m, err
	}
	n += m
	if r.TokensUsed, m, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return r, n + m, err
	}
	n += m
	var nanos int64
	if nanos, m, err = varint.Int64.Unmarshal(bs[n:]); err != nil {
		return r, n + m, err
	}
	n += m
	r.Duration = time.Duration(nanos)
	if r.WasEscalated, m, err = ord.Bool.Unmarshal(bs[n:]); err != nil {
		return r, n + m, err
	}
	n += m
	if r.CoordinationEvents, m, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return r, n + m, err
	}
	n += m
	return r, n, nil
}

func (segmentResultSer) Size(r core.SegmentResult) (size int) {
	size = ord.String.Size(r.SegmentID) +
		ord.Bool.Size(r.Success) +
		sizeFloat(r.Confidence) +
		varint.Int.Size(len(r.Findings))
	for _, f := range r.Findings {
		size += findingMUS.Size(f)
	}
	size += ord.String.Size(r.FailureReason) +
		varint.Int.Size(r.TokensUsed) +
		varint.Int64.Size(int64(r.Duration)) +
		ord.Bool.Size(r.WasEscalated) +
		varint.Int.Size(r.CoordinationEvents)
	return size
}

type segmentationSer struct{}

func (segmentationSer) Marshal(s core.Segmentation, bs []byte) (n int) {
	n = ord.String.Marshal(string(s.Fingerprint), bs)
	n += ord.String.Marshal(s.QueryText, bs[n:])
	n += varint.Int.Marshal(len(s.Segments), bs[n:])
	for _, seg := range s.Segments {
		n += segmentMUS.Marshal(seg, bs[n:])
	}
	n += graphMUS.Marshal(s.Graph, bs[n:])
	n += marshalTime(s.CreatedAt, bs[n:])
	return n
}

func (segmentationSer) Unmarshal(bs []byte) (s core.Segmentation, n int, err error) {
	var (
		fp string
		m  int
	)
	if fp, n, err = ord.String.Unmarshal(bs); err != nil {
		return s, n, err
	}
	s.Fingerprint = core.Fingerprint(fp)
	if s.QueryText, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return s, n + m, err
	}
	n += m
	count, m, err := varint.Int.Unmarshal(bs[n:])
	n += m
	if err != nil {
		return s, n, err
	}
	if count < 0 {
		return s, n, ErrTruncatedData
	}
	for i := 0; i < count; i++ {
		var seg core.Segment
		seg, m, err = segmentMUS.Unmarshal(bs[n:])
		n += m
		if err != nil {
			return s, n, err
		}
		s.Segments = append(s.Segments, seg)
	}
	if s.Graph, m, err = graphMUS.Unmarshal(bs[n:]); err != nil {
		return s, n + m, err
	}
	n += m
	if s.CreatedAt, m, err = unmarshalTime(bs[n:]); err != nil {
		return s, n + m, err
	}
	n += m
	return s, n, nil
}

func (segmentationSer) Size(s core.Segmentation) (size int) {
	size = ord.String.Size(string(s.Fingerprint)) +
		ord.String.Size(s.QueryText) +
		varint.Int.Size(len(s.Segments))
	for _, seg := range s.Segments {
		size += segmentMUS.Size(seg)
	}
	size += graphMUS.Size(s.Graph) + sizeTime(s.CreatedAt)
	return size
}

type answerSer struct{}

func (answerSer) Marshal(a core.SynthesizedAnswer, bs []byte) (n int) {
	n = ord.String.Marshal(a.Text, bs)
	n += marshalFloat(a.Confidence, bs[n:])
	n += marshalStrings(a.Sources, bs[n:])
	n += marshalStrings(a.KeyPoints, bs[n:])
	n += varint.Int.Marshal(a.TokensUsed, bs[n:])
	n += marshalTime(a.CreatedAt, bs[n:])
	return n
}

func (answerSer) Unmarshal(bs []byte) (a core.SynthesizedAnswer, n int, err error) {
	var m int
	if a.Text, n, err = ord.String.Unmarshal(bs); err != nil {
		return a, n, err
	}
	if a.Confidence, m, err = unmarshalFloat(bs[n:]); err != nil {
		return a, n + m, err
	}
	n += m
	if a.Sources, m, err = unmarshalStrings(bs[n:]); err != nil {
		return a, n + m, err
	}
	n += m
	if a.KeyPoints, m, err = unmarshalStrings(bs[n:]); err != nil {
		return a, n + m, err
	}
	n += m
	if a.TokensUsed, m, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return a, n + m, err
	}
	n += m
	if a.CreatedAt, m, err = unmarshalTime(bs[n:]); err != nil {
		return a, n + m, err
	}
	n += m
	return a, n, nil
}

func (answerSer) Size(a core.SynthesizedAnswer) int {
	return ord.String.Size(a.Text) +
		sizeFloat(a.Confidence) +
		sizeStrings(a.Sources) +
		sizeStrings(a.KeyPoints) +
		varint.Int.Size(a.TokensUsed) +
		sizeTime(a.CreatedAt)
}

type executionRecordSer struct{}

func (executionRecordSer) Marshal(r core.ExecutionRecord, bs []byte) (n int) {
	n = ord.String.Marshal(string(r.Fingerprint), bs)
	n += varint.Int.Marshal(r.Attempt, bs[n:])
	n += segmentResultMUS.Marshal(r.Result, bs[n:])
	n += marshalTime(r.RecordedAt, bs[n:])
	return n
}

func (executionRecordSer) Unmarshal(bs []byte) (r core.ExecutionRecord, n int, err error) {
	var (
		fp string
		m  int
	)
	if fp, n, err = ord.String.Unmarshal(bs); err != nil {
		return r, n, err
	}
	r.Fingerprint = core.Fingerprint(fp)
	if r.Attempt, m, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return r, n + m, err
	}
	n += m
	if r.Result, m, err = segmentResultMUS.Unmarshal(bs[n:]); err != nil {
		return r, n + m, err
	}
	n += m
	if r.RecordedAt, m, err = unmarshalTime(bs[n:]); err != nil {
		return r, n + m, err
	}
	n += m
	return r, n, nil
}

func (executionRecordSer) Size(r core.ExecutionRecord) int {
	return ord.String.Size(string(r.Fingerprint)) +
		varint.Int.Size(r.Attempt) +
		segmentResultMUS.Size(r.Result) +
		sizeTime(r.RecordedAt)
}

type synthesisRecordSer struct{}

func (synthesisRecordSer) Marshal(r core.SynthesisRecord, bs []byte) (n int) {
	n = ord.String.Marshal(string(r.Fingerprint), bs)
	n += ord.String.Marshal(r.QueryText, bs[n:])
	n += answerMUS.Marshal(r.Answer, bs[n:])
	n += marshalTime(r.RecordedAt, bs[n:])
	return n
}

func (synthesisRecordSer) Unmarshal(bs []byte) (r core.SynthesisRecord, n int, err error) {
	var (
		fp string
		m  int
	)
	if fp, n, err = ord.String.Unmarshal(bs); err != nil {
		return r, n, err
	}
	r.Fingerprint = core.Fingerprint(fp)
	if r.QueryText, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return r, n + m, err
	}
	n += m
	if r.Answer, m, err = answerMUS.Unmarshal(bs[n:]); err != nil {
		return r, n + m, err
	}
	n += m
	if r.RecordedAt, m, err = unmarshalTime(bs[n:]); err != nil {
		return r, n + m, err
	}
	n += m
	return r, n, nil
}

func (synthesisRecordSer) Size(r core.SynthesisRecord) int {
	return ord.String.Size(string(r.Fingerprint)) +
		ord.String.Size(r.QueryText) +
		answerMUS.Size(r.Answer) +
		sizeTime(r.RecordedAt)
}
