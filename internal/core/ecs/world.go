package ecs

// World is the top-level ECS container. It owns the entity pool, the component
// registry, and a deferred destruction queue flushed by the cleanup system
// each tick.
type World struct {
	pool         *EntityPool
	registry     *Registry
	destroyQueue []EntityID
	queued       map[EntityID]struct{}
}

func NewWorld() *World {
	return &World{
		pool:         NewEntityPool(),
		registry:     NewRegistry(),
		destroyQueue: make([]EntityID, 0, 16),
		queued:       make(map[EntityID]struct{}, 16),
	}
}

func (w *World) Pool() *EntityPool   { return w.pool }
func (w *World) Registry() *Registry { return w.registry }

func (w *World) CreateEntity() EntityID {
	return w.pool.Create()
}

func (w *World) Alive(id EntityID) bool {
	return w.pool.Alive(id)
}

// MarkForDestruction queues an entity for end-of-tick cleanup. Marking the
// same entity twice in one tick is a no-op.
func (w *World) MarkForDestruction(id EntityID) {
	if !w.pool.Alive(id) {
		return
	}
	if _, dup := w.queued[id]; dup {
		return
	}
	w.queued[id] = struct{}{}
	w.destroyQueue = append(w.destroyQueue, id)
}

// Pending reports whether id is queued for destruction.
func (w *World) Pending(id EntityID) bool {
	_, ok := w.queued[id]
	return ok
}

// FlushDestroyQueue destroys all queued entities and clears their components.
// Returns the number of entities destroyed.
func (w *World) FlushDestroyQueue() int {
	n := len(w.destroyQueue)
	for _, id := range w.destroyQueue {
		w.registry.RemoveAll(id)
		w.pool.Destroy(id)
	}
	w.destroyQueue = w.destroyQueue[:0]
	clear(w.queued)
	return n
}

// Reset destroys every entity immediately and empties all stores. Entity
// generations survive, so handles from before the reset stay stale.
func (w *World) Reset() {
	w.destroyQueue = w.destroyQueue[:0]
	clear(w.queued)
	live := make([]EntityID, 0, w.pool.Live())
	w.pool.Each(func(id EntityID) { live = append(live, id) })
	for _, id := range live {
		w.pool.Destroy(id)
	}
	w.registry.ClearAll()
}
