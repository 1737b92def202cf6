// Package scenario loads YAML seed scenarios and replays them into a store.
//
// A scenario is a named, ordered list of event steps. Steps reference each
// other by alias, so a causation chain is written once in the file and
// resolved to real event ids at seed time. Documents are checked twice
// before use: the raw YAML is unified with an embedded CUE schema, then the
// decoded form is cross-checked for alias uniqueness and dangling caused_by
// references.
package scenario
