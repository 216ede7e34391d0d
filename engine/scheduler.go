package engine

import (
	"context"
	"log/slog"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/answerit/core"
)

// StageScheduler walks an execution graph stage by stage: all segments of a
// stage run concurrently through a bounded worker pool, and the next stage is
// not admitted until every run in the current stage reached a terminal state.
// That gate is the DAG's only ordering guarantee; siblings within a stage
// observe no ordering relative to each other.
type StageScheduler struct {
	runner *SegmentRunner
	pool   *ants.Pool
	logger *slog.Logger
}

// NewStageScheduler creates a scheduler dispatching segment runs onto pool.
// The pool's capacity caps concurrent model calls per stage; wider stages
// queue on Submit rather than failing.
func NewStageScheduler(runner *SegmentRunner, pool *ants.Pool, logger *slog.Logger) *StageScheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &StageScheduler{
		runner: runner,
		pool:   pool,
		logger: logger.With("component", "stage-scheduler"),
	}
}

// Execute runs every segment of the segmentation, respecting the stage
// order. It returns one result per segment, in the segmentation's original
// segment order.
//
// Partial failure policy: a failed segment is presented to its dependents as
// empty findings with zero confidence, and a stage whose members all failed
// still admits the next stage with empty context. When ctx is cancelled the
// current stage's in-flight calls fail, no further stage is launched, and
// the segments never run are reported as failed results so completed work
// stays usable for a degraded synthesis.
//
// maxStages > 0 limits how many stages run; zero means all.
func (s *StageScheduler) Execute(ctx context.Context, segmentation *core.Segmentation, useCache bool, maxStages int) []core.SegmentResult {
	segByID := make(map[string]core.Segment, len(segmentation.Segments))
	for _, seg := range segmentation.Segments {
		segByID[seg.ID] = seg
	}

	stages := segmentation.Graph.Stages
	if maxStages > 0 && maxStages < len(stages) {
		s.logger.Debug("stage limit applied", "stages", len(stages), "limit", maxStages)
		stages = stages[:maxStages]
	}

	var mu sync.Mutex
	resultByID := make(map[string]core.SegmentResult, len(segmentation.Segments))

	for stageIdx, stage := range stages {
		if ctx.Err() != nil {
			s.logger.Warn("execution cancelled, skipping remaining stages",
				"stage", stageIdx, "err", ctx.Err())
			break
		}

		// Build every dependency context before launching the stage so
		// sibling writes never race with context reads.
		type task struct {
			segment core.Segment
			deps    []DependencyFindings
		}
		tasks := make([]task, 0, len(stage))
		for _, id := range stage {
			segment := segByID[id]
			tasks = append(tasks, task{
				segment: segment,
				deps:    s.dependencyContext(segment, resultByID),
			})
		}

		var wg sync.WaitGroup
		wg.Add(len(tasks))
		for _, tk := range tasks {
			run := func() {
				defer wg.Done()
				result := s.runner.Run(ctx, segmentation.Fingerprint, tk.segment, tk.deps, useCache)
				mu.Lock()
				resultByID[tk.segment.ID] = result
				mu.Unlock()
			}
			if err := s.pool.Submit(run); err != nil {
				// Pool released; fall back to running inline.
				s.logger.Warn("worker pool submit failed, running inline", "err", err)
				run()
			}
		}
		wg.Wait()

		s.logger.Debug("stage complete",
			"stage", stageIdx,
			"segments", len(stage))
	}

	// One result per segment, original order; segments never launched
	// (cancellation or stage limit) surface as failed results.
	results := make([]core.SegmentResult, 0, len(segmentation.Segments))
	for _, seg := range segmentation.Segments {
		if result, ok := resultByID[seg.ID]; ok {
			results = append(results, result)
			continue
		}
		results = append(results, core.SegmentResult{
			SegmentID:     seg.ID,
			Success:       false,
			Confidence:    0,
			FailureReason: "segment not executed",
		})
	}
	return results
}

// dependencyContext assembles the read-only findings a segment receives from
// its dependencies, in declaration order. Missing or failed dependencies
// contribute empty findings with zero confidence. Each dependency whose
// findings are actually consumed is logged as a coordination event.
func (s *StageScheduler) dependencyContext(segment core.Segment, resultByID map[string]core.SegmentResult) []DependencyFindings {
	if len(segment.DependsOn) == 0 {
		return nil
	}

	deps := make([]DependencyFindings, 0, len(segment.DependsOn))
	for _, depID := range segment.DependsOn {
		result, ok := resultByID[depID]
		if !ok || !result.Success || len(result.Findings) == 0 {
			deps = append(deps, DependencyFindings{SegmentID: depID})
			continue
		}
		s.logger.Debug("coordination event",
			"segment", segment.ID,
			"consumes", depID,
			"findings", len(result.Findings))
		deps = append(deps, DependencyFindings{
			SegmentID:  depID,
			Findings:   result.Findings,
			Confidence: result.Confidence,
		})
	}
	return deps
}
