package dispatch

import (
	"fmt"
	"maps"
	"slices"
)

// Migration transforms an event payload from one schema version toward the
// next. Transformers receive a copy of the payload; the stored row is never
// rewritten.
type Migration func(payload map[string]any) (map[string]any, error)

// Migrations registers payload transformers per command and version. An event
// persisted at version v has every transformer list for versions v and above
// applied in ascending version order, each list in registration order. The
// upgraded payload exists only for the duration of the dispatch.
type Migrations map[string]map[int][]Migration

// Register appends a transformer for command at version. Events stored at
// that version or below will pass through it on dispatch.
func (m Migrations) Register(command string, version int, step Migration) {
	chain, ok := m[command]
	if !ok {
		chain = make(map[int][]Migration)
		m[command] = chain
	}
	chain[version] = append(chain[version], step)
}

// CurrentVersion returns the version handlers expect for command: one past
// the highest version with registered transformers, or 1 when the command has
// none. Events written at this version skip migration entirely.
func (m Migrations) CurrentVersion(command string) int {
	chain := m[command]
	if len(chain) == 0 {
		return 1
	}

	highest := 0
	for v := range chain {
		if v > highest {
			highest = v
		}
	}
	return highest + 1
}

// Apply migrates payload from version up to the command's current version and
// returns the result. When no transformer applies the payload is returned
// unchanged; otherwise the chain runs on a copy so the caller's map survives
// intact. Transformer order is deterministic: ascending version, then
// registration order within a version.
func (m Migrations) Apply(command string, version int, payload map[string]any) (map[string]any, error) {
	chain := m[command]
	if len(chain) == 0 {
		return payload, nil
	}

	var versions []int
	for v := range chain {
		if v >= version {
			versions = append(versions, v)
		}
	}
	if len(versions) == 0 {
		return payload, nil
	}
	slices.Sort(versions)

	out := maps.Clone(payload)
	if out == nil {
		out = map[string]any{}
	}
	for _, v := range versions {
		for i, step := range chain[v] {
			next, err := step(out)
			if err != nil {
				return nil, fmt.Errorf("migrate %s v%d step %d: %w", command, v, i, err)
			}
			out = next
		}
	}

	return out, nil
}
