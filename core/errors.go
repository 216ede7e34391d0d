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

import "errors"

// Domain validation errors
var (
	// ErrNoSegments indicates a segmentation contains no segments.
	ErrNoSegments = errors.New("segmentation contains no segments")

	// ErrDuplicateSegmentID indicates two segments share an ID.
	ErrDuplicateSegmentID = errors.New("duplicate segment id")

	// ErrEmptySegmentText indicates a segment has no sub-question text.
	ErrEmptySegmentText = errors.New("segment text cannot be empty")

	// ErrUnknownDependency indicates a segment depends on an ID that does
	// not name any segment in the set.
	ErrUnknownDependency = errors.New("dependency references unknown segment")

	// ErrSelfDependency indicates a segment depends on itself.
	ErrSelfDependency = errors.New("segment cannot depend on itself")

	// ErrCyclicDependency indicates the declared dependencies contain a cycle.
	ErrCyclicDependency = errors.New("segment dependencies contain a cycle")
)
