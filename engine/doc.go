// Package engine decomposes a search query into a DAG of segments, runs the
// segments in dependency-ordered stages with bounded parallelism, and
// synthesizes a single answer from whatever results the stages produced.
package engine
