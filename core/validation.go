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


package core

import "fmt"

// ValidateSegments checks that a segment set is well formed:
//   - at least one segment
//   - IDs are non-empty and unique
//   - sub-question text is non-empty
//   - every dependency references another segment in the set
//
// Cycle detection is performed separately by BuildExecutionGraph.
func ValidateSegments(segments []Segment) error {
	if len(segments) == 0 {
		return ErrNoSegments
	}

	ids := make(map[string]struct{}, len(segments))
	for _, seg := range segments {
		if seg.ID == "" {
			return fmt.Errorf("%w: segment with empty id", ErrDuplicateSegmentID)
		}
		if _, exists := ids[seg.ID]; exists {
			return fmt.Errorf("%w: %q", ErrDuplicateSegmentID, seg.ID)
		}
		ids[seg.ID] = struct{}{}

		if seg.Text == "" {
			return fmt.Errorf("%w: %q", ErrEmptySegmentText, seg.ID)
		}
	}

	for _, seg := range segments {
		for _, dep := range seg.DependsOn {
			if dep == seg.ID {
				return fmt.Errorf("%w: %q", ErrSelfDependency, seg.ID)
			}
			if _, exists := ids[dep]; !exists {
				return fmt.Errorf("%w: %q depends on %q", ErrUnknownDependency, seg.ID, dep)
			}
		}
	}

	return nil
}
