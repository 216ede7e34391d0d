package core

// ExecutionGraph is a topological layering of a segment DAG, optimized for
// staged scheduling. Stage k contains every segment whose dependencies all
// live in stages < k, so all members of a stage can run concurrently.
//
// Invariants: every segment appears in exactly one stage, and a segment's
// stage index is strictly greater than the maximum stage index of its
// dependencies.
type ExecutionGraph struct {
	// Stages holds segment IDs grouped by stage, in execution order.
	// Order within a stage follows the original segment order.
	Stages [][]string

	// StageCount is len(Stages), persisted for diagnostics.
	StageCount int

	// ParallelGroups lists, for diagnostics, the stages with two or more
	// members: segments that can run together.
	ParallelGroups [][]string

	// SequentialIDs lists segments that run alone in their stage.
	SequentialIDs []string
}

// StageOf returns the stage index containing the given segment ID, or -1.
func (g *ExecutionGraph) StageOf(id string) int {
	for i, stage := range g.Stages {
		for _, sid := range stage {
			if sid == id {
				return i
			}
		}
	}
	return -1
}

// BuildExecutionGraph layers segments by dependency depth using Kahn's
// algorithm: each round pulls every segment whose dependencies are fully
// satisfied by prior stages into the next stage. Ties within a stage keep the
// original segment order, so the layering is deterministic.
//
// Returns ErrCyclicDependency if the declared dependencies contain a cycle,
// or a validation error if the segment set is malformed.
func BuildExecutionGraph(segments []Segment) (*ExecutionGraph, error) {
	if err := ValidateSegments(segments); err != nil {
		return nil, err
	}

	placed := make(map[string]struct{}, len(segments))
	graph := &ExecutionGraph{}

	for len(placed) < len(segments) {
		var stage []string
		for _, seg := range segments {
			if _, done := placed[seg.ID]; done {
				continue
			}
			ready := true
			for _, dep := range seg.DependsOn {
				if _, done := placed[dep]; !done {
					ready = false
					break
				}
			}
			if ready {
				stage = append(stage, seg.ID)
			}
		}

		// No segment became ready: the remainder depends on itself
		// transitively.
		if len(stage) == 0 {
			return nil, ErrCyclicDependency
		}

		for _, id := range stage {
			placed[id] = struct{}{}
		}
		graph.Stages = append(graph.Stages, stage)
	}

	graph.StageCount = len(graph.Stages)
	for _, stage := range graph.Stages {
		if len(stage) > 1 {
			group := make([]string, len(stage))
			copy(group, stage)
			graph.ParallelGroups = append(graph.ParallelGroups, group)
		} else {
			graph.SequentialIDs = append(graph.SequentialIDs, stage[0])
		}
	}

	return graph, nil
}

// SingleSegmentFallback builds the degenerate segmentation used when
// decomposition fails: the whole query as one factual lookup segment in a
// one-stage graph.
func SingleSegmentFallback(query Query) *Segmentation {
	seg := Segment{
		ID:   "s1",
		Type: "factual_lookup",
		Text: query.Text,
	}
	graph, _ := BuildExecutionGraph([]Segment{seg})
	return &Segmentation{
		Fingerprint: query.Fingerprint,
		QueryText:   query.Text,
		Segments:    []Segment{seg},
		Graph:       *graph,
		CreatedAt:   query.SubmittedAt,
	}
}
