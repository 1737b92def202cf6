// Package event provides the shared leaf types for the causelog event store.
//
// This package contains type definitions, the error taxonomy, and correlation
// id generation. All other internal packages import event; event imports
// nothing internal. This keeps it the foundational layer with no circular
// dependencies.
//
// Key design constraints:
//   - Event rows are immutable once persisted; ids are never reused
//   - CausationID is a nullable reference (*int64); nil marks a root event
//   - Payload and Metadata are opaque to the core (map[string]any, JSON TEXT
//     at the storage boundary)
//   - All JSON tags use snake_case
package event
