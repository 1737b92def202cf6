// Package lineage answers ancestry questions about the event log.
//
// The core relation is the causation edge from child to parent. Those edges
// form a forest; correlation ids are a coarser, independent grouping, so one
// correlation can hold several causation trees and a causation tree can cross
// correlations when a descendant overrode its correlation id.
//
// All queries are read-only BFS/DFS walks over the causation index through
// the store's child and parent lookups; none of them run recursive SQL.
// Ordering is deterministic everywhere: traversal results sort by
// (depth, id), flat relative lists by id. Empty results are empty slices,
// never errors.
//
// Reports summarize one correlation three ways: sectioned text, the
// JSON-tagged Report struct, and a box-drawing causation tree.
package lineage
