package lineage

import (
	"cmp"
	"context"
	"slices"

	"github.com/roach88/causelog/internal/event"
	"github.com/roach88/causelog/internal/store"
)

// Node pairs an event with its causation-hop distance from the query
// subject.
type Node struct {
	Event event.Event
	Depth int
}

// Branch is one root-to-node causation path within a correlation. Depth is
// the path's hop count, so a root's own branch has depth 0.
type Branch struct {
	Path  []event.Event // root first
	Depth int
}

// Roots returns the events with no causation parent, ordered by id
// ascending, optionally narrowed by filter.
func (e *Engine) Roots(ctx context.Context, filter store.RootFilter) ([]event.Event, error) {
	return e.reader.RootEvents(ctx, filter)
}

// Children returns the direct children of id, ordered by id ascending.
func (e *Engine) Children(ctx context.Context, id int64) ([]event.Event, error) {
	return e.reader.ChildrenOf(ctx, id)
}

// Descendants returns the transitive closure of id's children, the event
// itself excluded, ordered by depth then id. A visited set guards against
// cyclic causation in hand-edited logs.
func (e *Engine) Descendants(ctx context.Context, id int64) ([]Node, error) {
	type queueItem struct {
		id    int64
		depth int
	}

	visited := map[int64]bool{id: true}
	queue := []queueItem{{id: id, depth: 0}}
	nodes := []Node{}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		children, err := e.reader.ChildrenOf(ctx, current.id)
		if err != nil {
			return nil, err
		}

		for _, child := range children {
			if visited[child.ID] {
				continue
			}
			visited[child.ID] = true

			depth := current.depth + 1
			nodes = append(nodes, Node{Event: child, Depth: depth})
			queue = append(queue, queueItem{id: child.ID, depth: depth})
		}
	}

	// BFS emits whole levels in parent order, not id order, so sort.
	slices.SortFunc(nodes, func(a, b Node) int {
		if a.Depth != b.Depth {
			return cmp.Compare(a.Depth, b.Depth)
		}
		return cmp.Compare(a.Event.ID, b.Event.ID)
	})
	return nodes, nil
}

// Siblings returns the events sharing id's causation parent, the event
// itself excluded, ordered by id ascending. Roots have no siblings.
func (e *Engine) Siblings(ctx context.Context, id int64) ([]event.Event, error) {
	ev, ok, err := e.reader.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok || ev.CausationID == nil {
		return []event.Event{}, nil
	}

	children, err := e.reader.ChildrenOf(ctx, *ev.CausationID)
	if err != nil {
		return nil, err
	}

	siblings := []event.Event{}
	for _, child := range children {
		if child.ID != id {
			siblings = append(siblings, child)
		}
	}
	return siblings, nil
}

// Cousins returns the events sharing id's correlation that are neither
// ancestors, descendants, nor siblings of it, ordered by id ascending.
func (e *Engine) Cousins(ctx context.Context, id int64) ([]event.Event, error) {
	ev, ok, err := e.reader.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []event.Event{}, nil
	}

	exclude, err := e.relativesOf(ctx, ev)
	if err != nil {
		return nil, err
	}

	members, err := e.reader.Transaction(ctx, ev.CorrelationID)
	if err != nil {
		return nil, err
	}

	cousins := []event.Event{}
	for _, member := range members {
		if !exclude[member.ID] {
			cousins = append(cousins, member)
		}
	}
	return cousins, nil
}

// Family returns the union of id's ancestors, descendants, and cousins,
// ordered by id ascending.
func (e *Engine) Family(ctx context.Context, id int64) ([]event.Event, error) {
	ev, ok, err := e.reader.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []event.Event{}, nil
	}

	seen := map[int64]bool{}
	family := []event.Event{}
	add := func(events ...event.Event) {
		for _, m := range events {
			if !seen[m.ID] {
				seen[m.ID] = true
				family = append(family, m)
			}
		}
	}

	ancestors, err := e.ancestors(ctx, ev)
	if err != nil {
		return nil, err
	}
	add(ancestors...)

	descendants, err := e.Descendants(ctx, id)
	if err != nil {
		return nil, err
	}
	for _, d := range descendants {
		add(d.Event)
	}

	cousins, err := e.Cousins(ctx, id)
	if err != nil {
		return nil, err
	}
	add(cousins...)

	slices.SortFunc(family, func(a, b event.Event) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return family, nil
}

// Depth returns the causation-hop distance from id to the top of its chain.
// A root has depth 0. A broken parent link counts as the chain top, so an
// orphan's depth is measured from the break, not from a true root. The
// boolean reports whether the event exists.
func (e *Engine) Depth(ctx context.Context, id int64) (int, bool, error) {
	ev, ok, err := e.reader.ByID(ctx, id)
	if err != nil {
		return 0, false, err
	}
	if !ok {
		return 0, false, nil
	}

	ancestors, err := e.ancestors(ctx, ev)
	if err != nil {
		return 0, false, err
	}
	return len(ancestors), true, nil
}

// Branches returns one branch per node reachable from the correlation's
// roots, ordered by depth then terminal id. Traversal follows causation
// edges transitively, so descendants that overrode their correlation id
// still appear on their root's branches.
func (e *Engine) Branches(ctx context.Context, correlationID string) ([]Branch, error) {
	roots, err := e.reader.RootEvents(ctx, store.RootFilter{CorrelationID: correlationID})
	if err != nil {
		return nil, err
	}

	type queueItem struct {
		id    int64
		depth int
	}

	events := map[int64]event.Event{}
	parent := map[int64]int64{}
	depths := map[int64]int{}
	visited := map[int64]bool{}
	var order []int64
	var queue []queueItem

	for _, root := range roots {
		visited[root.ID] = true
		events[root.ID] = root
		depths[root.ID] = 0
		order = append(order, root.ID)
		queue = append(queue, queueItem{id: root.ID, depth: 0})
	}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		children, err := e.reader.ChildrenOf(ctx, current.id)
		if err != nil {
			return nil, err
		}
		for _, child := range children {
			if visited[child.ID] {
				continue
			}
			visited[child.ID] = true
			events[child.ID] = child
			parent[child.ID] = current.id
			depths[child.ID] = current.depth + 1
			order = append(order, child.ID)
			queue = append(queue, queueItem{id: child.ID, depth: current.depth + 1})
		}
	}

	branches := make([]Branch, 0, len(order))
	for _, terminal := range order {
		var path []event.Event
		cur := terminal
		for {
			path = append(path, events[cur])
			p, ok := parent[cur]
			if !ok {
				break
			}
			cur = p
		}
		slices.Reverse(path)
		branches = append(branches, Branch{Path: path, Depth: depths[terminal]})
	}

	slices.SortFunc(branches, func(a, b Branch) int {
		if a.Depth != b.Depth {
			return cmp.Compare(a.Depth, b.Depth)
		}
		return cmp.Compare(a.Path[len(a.Path)-1].ID, b.Path[len(b.Path)-1].ID)
	})
	return branches, nil
}

// CriticalPath returns the longest root-to-leaf causation path within a
// correlation. Length ties are broken by taking the lowest id at each
// branch point, the root included. Empty when the correlation has no roots.
func (e *Engine) CriticalPath(ctx context.Context, correlationID string) ([]event.Event, error) {
	roots, err := e.reader.RootEvents(ctx, store.RootFilter{CorrelationID: correlationID})
	if err != nil {
		return nil, err
	}
	if len(roots) == 0 {
		return []event.Event{}, nil
	}

	heights := map[int64]int{}
	visiting := map[int64]bool{}

	var height func(id int64) (int, error)
	height = func(id int64) (int, error) {
		if h, ok := heights[id]; ok {
			return h, nil
		}
		if visiting[id] {
			// Cyclic causation: treat the repeated node as a leaf.
			return 0, nil
		}
		visiting[id] = true
		defer delete(visiting, id)

		children, err := e.reader.ChildrenOf(ctx, id)
		if err != nil {
			return 0, err
		}
		h := 0
		for _, child := range children {
			ch, err := height(child.ID)
			if err != nil {
				return 0, err
			}
			if ch+1 > h {
				h = ch + 1
			}
		}
		heights[id] = h
		return h, nil
	}

	// Pick the tallest root. Roots arrive in ascending id order and only a
	// strictly taller tree displaces the pick, so ties keep the lowest id.
	best := roots[0]
	bestHeight, err := height(best.ID)
	if err != nil {
		return nil, err
	}
	for _, root := range roots[1:] {
		h, err := height(root.ID)
		if err != nil {
			return nil, err
		}
		if h > bestHeight {
			best, bestHeight = root, h
		}
	}

	// Descend, at each step taking the tallest child. Children arrive in
	// ascending id order, same tie rule as above.
	path := []event.Event{best}
	onPath := map[int64]bool{best.ID: true}
	cur := best
	for {
		children, err := e.reader.ChildrenOf(ctx, cur.ID)
		if err != nil {
			return nil, err
		}
		var next *event.Event
		nextHeight := -1
		for i, child := range children {
			if onPath[child.ID] {
				continue
			}
			h, err := height(child.ID)
			if err != nil {
				return nil, err
			}
			if h > nextHeight {
				next, nextHeight = &children[i], h
			}
		}
		if next == nil {
			break
		}
		path = append(path, *next)
		onPath[next.ID] = true
		cur = *next
	}
	return path, nil
}

// Orphans returns the events whose causation references a missing parent,
// ordered by id ascending.
func (e *Engine) Orphans(ctx context.Context) ([]event.Event, error) {
	return e.reader.FindOrphanedEvents(ctx)
}

// Influence returns the number of events in id's descendant closure.
func (e *Engine) Influence(ctx context.Context, id int64) (int, error) {
	descendants, err := e.Descendants(ctx, id)
	if err != nil {
		return 0, err
	}
	return len(descendants), nil
}

// ancestors walks causation upward from ev, nearest parent first. The walk
// stops at a root, at a missing parent, and at a repeated id.
func (e *Engine) ancestors(ctx context.Context, ev event.Event) ([]event.Event, error) {
	visited := map[int64]bool{ev.ID: true}
	chain := []event.Event{}

	cur := ev
	for cur.CausationID != nil {
		parentID := *cur.CausationID
		if visited[parentID] {
			break
		}
		parent, ok, err := e.reader.ByID(ctx, parentID)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		visited[parentID] = true
		chain = append(chain, parent)
		cur = parent
	}
	return chain, nil
}

// relativesOf collects the ids excluded from cousinhood: the event itself,
// its ancestors, its descendants, and its siblings.
func (e *Engine) relativesOf(ctx context.Context, ev event.Event) (map[int64]bool, error) {
	exclude := map[int64]bool{ev.ID: true}

	ancestors, err := e.ancestors(ctx, ev)
	if err != nil {
		return nil, err
	}
	for _, a := range ancestors {
		exclude[a.ID] = true
	}

	descendants, err := e.Descendants(ctx, ev.ID)
	if err != nil {
		return nil, err
	}
	for _, d := range descendants {
		exclude[d.Event.ID] = true
	}

	siblings, err := e.Siblings(ctx, ev.ID)
	if err != nil {
		return nil, err
	}
	for _, s := range siblings {
		exclude[s.ID] = true
	}

	return exclude, nil
}
