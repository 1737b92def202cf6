package scenario

import (
	"context"
	"fmt"

	"github.com/roach88/causelog/internal/dispatch"
	"github.com/roach88/causelog/internal/event"
	"github.com/roach88/causelog/internal/store"
)

// SeedResult records what one step produced.
type SeedResult struct {
	Alias    string
	Event    event.Event
	Dispatch dispatch.Result
}

// Seed appends every step of the scenario in file order. caused_by aliases
// resolve to the ids assigned to earlier steps, so causation chains written
// in the file become causation chains in the log. On failure the results for
// the steps already appended are returned alongside the error.
func Seed(ctx context.Context, s *store.Store, projection dispatch.Projection, hooks dispatch.Hooks, sc *Scenario) ([]SeedResult, error) {
	if err := validateScenario(sc); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	ids := make(map[string]int64, len(sc.Events))
	results := make([]SeedResult, 0, len(sc.Events))
	for i, step := range sc.Events {
		req := event.Request{
			Actor:         step.Actor,
			Origin:        step.Origin,
			Command:       step.Command,
			Payload:       step.Payload,
			Version:       step.Version,
			CorrelationID: step.Correlation,
			Metadata:      step.Metadata,
		}
		if step.CausedBy != "" {
			req.CausationID = event.CausedBy(ids[step.CausedBy])
		}

		ev, res, err := s.Append(ctx, req, projection, hooks)
		if err != nil {
			return results, fmt.Errorf("seeding events[%d] (%s): %w", i, step.Alias, err)
		}
		ids[step.Alias] = ev.ID
		results = append(results, SeedResult{Alias: step.Alias, Event: ev, Dispatch: res})
	}
	return results, nil
}
