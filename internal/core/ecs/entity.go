package ecs

import "fmt"

// EntityID encodes a 32-bit index in the lower bits and a 32-bit generation
// in the upper bits. Generation increments on destroy to invalidate stale
// handles. Generations start at 1 so the zero ID never names a live entity.
type EntityID uint64

func NewEntityID(index uint32, generation uint32) EntityID {
	return EntityID(uint64(generation)<<32 | uint64(index))
}

func (id EntityID) Index() uint32      { return uint32(id) }
func (id EntityID) Generation() uint32 { return uint32(id >> 32) }
func (id EntityID) IsZero() bool       { return id == 0 }

func (id EntityID) String() string {
	return fmt.Sprintf("%d:%d", id.Index(), id.Generation())
}

// EntityPool manages entity allocation with generational indices and a free list.
// Reuse order is LIFO, so the same create/destroy sequence always yields the
// same IDs.
type EntityPool struct {
	generations []uint32
	alive       []bool
	freeList    []uint32
	nextIndex   uint32
	live        int
}

func NewEntityPool() *EntityPool {
	return &EntityPool{
		generations: make([]uint32, 0, 64),
		alive:       make([]bool, 0, 64),
		freeList:    make([]uint32, 0, 16),
	}
}

func (p *EntityPool) Create() EntityID {
	p.live++
	if len(p.freeList) > 0 {
		idx := p.freeList[len(p.freeList)-1]
		p.freeList = p.freeList[:len(p.freeList)-1]
		p.alive[idx] = true
		return NewEntityID(idx, p.generations[idx])
	}
	idx := p.nextIndex
	p.nextIndex++
	if int(idx) >= len(p.generations) {
		p.generations = append(p.generations, 1)
		p.alive = append(p.alive, false)
	}
	p.alive[idx] = true
	return NewEntityID(idx, p.generations[idx])
}

func (p *EntityPool) Alive(id EntityID) bool {
	idx := id.Index()
	if idx >= p.nextIndex {
		return false
	}
	return p.alive[idx] && p.generations[idx] == id.Generation()
}

func (p *EntityPool) Destroy(id EntityID) {
	if !p.Alive(id) {
		return // stale reference
	}
	idx := id.Index()
	p.generations[idx]++
	p.alive[idx] = false
	p.freeList = append(p.freeList, idx)
	p.live--
}

// Each visits live entity IDs in index order.
func (p *EntityPool) Each(fn func(EntityID)) {
	for idx := uint32(0); idx < p.nextIndex; idx++ {
		if p.alive[idx] {
			fn(NewEntityID(idx, p.generations[idx]))
		}
	}
}

// Live returns the number of entities created and not yet destroyed.
func (p *EntityPool) Live() int { return p.live }
