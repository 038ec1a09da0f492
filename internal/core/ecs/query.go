package ecs

// Each2 iterates over entities that have both component A and B, in the
// iteration order of sa.
func Each2[A, B any](sa *Store[A], sb *Store[B], fn func(EntityID, *A, *B)) {
	for i, id := range sa.ids {
		if b, ok := sb.Get(id); ok {
			fn(id, sa.data[i], b)
		}
	}
}

// Each3 iterates over entities that have components A, B, and C, in the
// iteration order of sa.
func Each3[A, B, C any](sa *Store[A], sb *Store[B], sc *Store[C], fn func(EntityID, *A, *B, *C)) {
	for i, id := range sa.ids {
		b, ok := sb.Get(id)
		if !ok {
			continue
		}
		if c, ok := sc.Get(id); ok {
			fn(id, sa.data[i], b, c)
		}
	}
}

// Collect returns the IDs of sa that satisfy keep, in iteration order.
// Systems use it to snapshot a store before mutating it.
func Collect[A any](sa *Store[A], keep func(EntityID, *A) bool) []EntityID {
	out := make([]EntityID, 0, sa.Len())
	for i, id := range sa.ids {
		if keep == nil || keep(id, sa.data[i]) {
			out = append(out, id)
		}
	}
	return out
}
