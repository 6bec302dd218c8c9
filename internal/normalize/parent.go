package normalize

import "github.com/agenticgokit/agtrace/internal/trace"

// parentIndex holds the lookups parent resolution needs across the whole
// step list.
type parentIndex struct {
	ids []string

	// byRawID maps a raw record id, and every canonical id, to the node
	// that should receive references to it. A raw id maps to the last
	// node of its exploded group.
	byRawID map[string]string
	// byToolCall maps tool_call ids to the node that issued the call.
	byToolCall map[string]string
	// byNodeName maps LangGraph node names to the step indexes carrying
	// them, ascending.
	byNodeName map[string][]int
	// incoming maps an edge target to the raw source named by the edge.
	incoming map[string]string
}

func buildParentIndex(steps []*step, ids []string, mapping *trace.FieldMapping) *parentIndex {
	idx := &parentIndex{
		ids:        ids,
		byRawID:    make(map[string]string, len(steps)*2),
		byToolCall: make(map[string]string),
		byNodeName: make(map[string][]int),
		incoming:   make(map[string]string),
	}

	for i, s := range steps {
		id := ids[i]
		if raw, ok := rawID(s, mapping); ok && s.last {
			idx.byRawID[raw] = id
		}

		rec := s.record
		if calls, ok := asSlice(rec["tool_calls"]); ok {
			for _, c := range calls {
				if call, ok := asMap(c); ok {
					if callID, ok := firstString(call, "id", "tool_call_id"); ok {
						idx.byToolCall[callID] = id
					}
				}
			}
		}
		if call, ok := asMap(rec["function_call"]); ok {
			if callID, ok := firstString(call, "id", "call_id"); ok {
				idx.byToolCall[callID] = id
			}
		}

		if name, ok := firstString(rec, lgNodeFields...); ok {
			idx.byNodeName[name] = append(idx.byNodeName[name], i)
		}

		edges, ok := asSlice(rec["edges"])
		if !ok {
			continue
		}
		selfRaw, _ := rawID(s, mapping)
		for _, e := range edges {
			switch typed := e.(type) {
			case map[string]any:
				from, okFrom := firstString(typed, "from", "source")
				to, okTo := firstString(typed, "to", "target")
				if okFrom && okTo {
					idx.incoming[to] = from
				}
			case []any:
				if len(typed) == 2 {
					from, okFrom := scalarString(typed[0])
					to, okTo := scalarString(typed[1])
					if okFrom && okTo {
						idx.incoming[to] = from
					}
				}
			default:
				if to, ok := scalarString(typed); ok && selfRaw != "" {
					idx.incoming[to] = selfRaw
				}
			}
		}
	}
	// Canonical ids resolve to themselves unless a raw id already claimed them.
	for _, id := range ids {
		if _, ok := idx.byRawID[id]; !ok {
			idx.byRawID[id] = id
		}
	}
	return idx
}

// resolve maps a raw reference onto a canonical node id. Node names
// resolve to the latest node before step i carrying that name; a name
// only seen at or after step i does not resolve, so parents never point
// forward.
func (p *parentIndex) resolve(ref string, i int) (string, bool) {
	if id, ok := p.byRawID[ref]; ok {
		return id, true
	}
	best := -1
	for _, pos := range p.byNodeName[ref] {
		if pos >= i {
			break
		}
		best = pos
	}
	if best < 0 {
		return "", false
	}
	return p.ids[best], true
}

// parentOf runs the parent fallback chain for step i.
func (p *parentIndex) parentOf(i int, s *step, mapping *trace.FieldMapping) *string {
	self := p.ids[i]
	accept := func(id string) *string {
		if id == "" || id == self {
			return nil
		}
		return &id
	}

	if s.linkedAction >= 0 && s.linkedAction < len(p.ids) {
		if id := accept(p.ids[s.linkedAction]); id != nil {
			return id
		}
	}

	if s.first {
		hints := s.hints()

		if mapping != nil && mapping.ParentIDField != "" {
			if v, ok := resolveField(s, mapping.ParentIDField); ok {
				if ref, ok := scalarString(v); ok {
					if id, ok := p.resolve(ref, i); ok {
						return accept(id)
					}
					// A misconfigured mapping may dangle; renderers treat it as a root.
					return accept(ref)
				}
			}
		}

		if ref, ok := firstString(s.record, "tool_call_id"); ok {
			if id, ok := p.byToolCall[ref]; ok {
				if id := accept(id); id != nil {
					return id
				}
			}
		}

		for _, field := range parentFields {
			ref, ok := scalarString(hints[field])
			if !ok {
				continue
			}
			if id, ok := p.byRawID[ref]; ok {
				if id := accept(id); id != nil {
					return id
				}
			}
		}

		var keys []string
		if raw, ok := rawID(s, mapping); ok {
			keys = append(keys, raw)
		}
		if name, ok := firstString(hints, lgNodeFields...); ok {
			keys = append(keys, name)
		}
		for _, key := range keys {
			from, ok := p.incoming[key]
			if !ok {
				continue
			}
			if id, ok := p.resolve(from, i); ok {
				if id := accept(id); id != nil {
					return id
				}
			}
		}
	}

	if i > 0 {
		return accept(p.ids[i-1])
	}
	return nil
}
