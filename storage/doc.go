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


// Package storage defines the persistence abstractions of Answerit and the
// binary serialization of its records.
//
// Two interfaces separate the engine from any concrete backend:
//
//   - Cache: TTL-bounded memoization of segmentations and segment results,
//     keyed by query fingerprint and (fingerprint, segment id)
//   - HistoryStore: append-only audit trail of segmentations, segment
//     execution attempts and synthesized answers
//
// Cache misses are reported through ErrCacheMiss so callers can distinguish
// an absent entry from a backend failure. History writes are fire-and-forget
// from the engine's perspective: the engine logs failures and keeps going.
//
// Records are serialized with hand-composed mus-go serializers (see
// serialization.go). The storage/badger sub-package provides a BadgerDB
// implementation of both interfaces, including an in-memory mode for tests.
package storage
