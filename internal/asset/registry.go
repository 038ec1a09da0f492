package asset

import (
	"context"
	"fmt"
	"io/fs"
	"sync"
	"time"

	"github.com/birdhop/game/internal/data"
	"go.uber.org/zap"
)

type entry struct {
	desc    Descriptor
	state   State
	value   any
	err     error
	version uint64
	modTime time.Time
	queued  bool
}

// Registry loads descriptors from an fs.FS on a pool of worker goroutines.
// All methods are safe for concurrent use; only Wait blocks.
type Registry struct {
	fsys     fs.FS
	log      *zap.Logger
	decoders map[Kind]Decoder

	mu      sync.Mutex
	cond    *sync.Cond
	entries []*entry
	byName  map[string]Handle
	queue   []Handle
	active  int
	closed  bool
	idle    chan struct{}

	wg sync.WaitGroup
}

// NewRegistry starts workers goroutines reading from fsys.
func NewRegistry(fsys fs.FS, workers int, log *zap.Logger) *Registry {
	if workers < 1 {
		workers = 1
	}
	r := &Registry{
		fsys:     fsys,
		log:      log,
		decoders: defaultDecoders(),
		byName:   make(map[string]Handle),
		idle:     make(chan struct{}),
	}
	close(r.idle)
	r.cond = sync.NewCond(&r.mu)
	r.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go r.worker()
	}
	return r
}

// SetDecoder replaces the decoder for kind. Call before the first Request.
func (r *Registry) SetDecoder(kind Kind, dec Decoder) {
	r.mu.Lock()
	r.decoders[kind] = dec
	r.mu.Unlock()
}

// Request registers d and schedules its load. It never blocks. Requesting
// a name again returns the existing handle.
func (r *Registry) Request(d Descriptor) Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	if h, ok := r.byName[d.Name]; ok {
		return h
	}
	e := &entry{desc: d}
	r.entries = append(r.entries, e)
	h := Handle{id: uint32(len(r.entries))}
	r.byName[d.Name] = h
	if r.closed {
		e.state = Failed
		e.err = &LoadError{Name: d.Name, Path: d.Path, Err: ErrClosed}
		return h
	}
	if _, ok := r.decoders[d.Kind]; !ok {
		e.state = Failed
		e.err = &LoadError{Name: d.Name, Path: d.Path, Err: fmt.Errorf("unknown kind %q", d.Kind)}
		r.log.Warn("asset rejected", zap.String("name", d.Name), zap.String("kind", string(d.Kind)))
		return h
	}
	r.enqueueLocked(h, e)
	return h
}

// RequestAll requests every descriptor in order.
func (r *Registry) RequestAll(ds []Descriptor) []Handle {
	hs := make([]Handle, len(ds))
	for i, d := range ds {
		hs[i] = r.Request(d)
	}
	return hs
}

func (r *Registry) enqueueLocked(h Handle, e *entry) {
	if e.queued {
		return
	}
	e.queued = true
	if len(r.queue) == 0 && r.active == 0 {
		r.idle = make(chan struct{})
	}
	r.queue = append(r.queue, h)
	r.cond.Signal()
}

func (r *Registry) worker() {
	defer r.wg.Done()
	for {
		r.mu.Lock()
		for len(r.queue) == 0 && !r.closed {
			r.cond.Wait()
		}
		if r.closed {
			r.mu.Unlock()
			return
		}
		h := r.queue[0]
		r.queue = r.queue[1:]
		r.active++
		e := r.entries[h.id-1]
		e.queued = false
		desc := e.desc
		dec := r.decoders[desc.Kind]
		r.mu.Unlock()

		value, modTime, err := r.load(desc, dec)

		r.mu.Lock()
		r.active--
		if r.closed {
			err = ErrClosed
		}
		r.storeLocked(e, value, modTime, err)
		if len(r.queue) == 0 && r.active == 0 {
			close(r.idle)
		}
		r.mu.Unlock()
	}
}

func (r *Registry) load(d Descriptor, dec Decoder) (any, time.Time, error) {
	var modTime time.Time
	if info, err := fs.Stat(r.fsys, d.Path); err == nil {
		modTime = info.ModTime()
	}
	raw, err := fs.ReadFile(r.fsys, d.Path)
	if err != nil {
		return nil, modTime, err
	}
	v, err := dec(raw)
	return v, modTime, err
}

func (r *Registry) storeLocked(e *entry, value any, modTime time.Time, err error) {
	e.modTime = modTime
	if err != nil {
		e.err = &LoadError{Name: e.desc.Name, Path: e.desc.Path, Err: err}
		if e.state != Loaded {
			e.state = Failed
		}
		r.log.Warn("asset load failed",
			zap.String("name", e.desc.Name),
			zap.String("path", e.desc.Path),
			zap.Bool("kept_previous", e.state == Loaded),
			zap.Error(err))
		return
	}
	e.state = Loaded
	e.value = value
	e.err = nil
	e.version++
	r.log.Debug("asset loaded",
		zap.String("name", e.desc.Name),
		zap.Uint64("version", e.version))
}

func (r *Registry) entryLocked(h Handle) (*entry, error) {
	if h.id == 0 || int(h.id) > len(r.entries) {
		return nil, ErrUnknownHandle
	}
	return r.entries[h.id-1], nil
}

// PollProgress returns the aggregate load state. It has no side effects.
func (r *Registry) PollProgress() Progress {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := Progress{Total: len(r.entries)}
	for _, e := range r.entries {
		switch e.state {
		case Loaded:
			p.Loaded++
		case Failed:
			p.Failed = append(p.Failed, e.desc.Name)
		}
	}
	return p
}

// Lookup returns the handle registered under name.
func (r *Registry) Lookup(name string) (Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.byName[name]
	return h, ok
}

// State returns the load state of h. Unknown handles report Failed.
func (r *Registry) State(h Handle) State {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, err := r.entryLocked(h)
	if err != nil {
		return Failed
	}
	return e.state
}

// Get returns the decoded value of h with its state. The error is the last
// load error, which may be set while the state is Loaded after a failed
// reload.
func (r *Registry) Get(h Handle) (any, State, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, err := r.entryLocked(h)
	if err != nil {
		return nil, Failed, err
	}
	return e.value, e.state, e.err
}

// Descriptor returns the descriptor h was requested with.
func (r *Registry) Descriptor(h Handle) (Descriptor, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, err := r.entryLocked(h)
	if err != nil {
		return Descriptor{}, false
	}
	return e.desc, true
}

// Version counts successful loads of h.
func (r *Registry) Version(h Handle) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, err := r.entryLocked(h)
	if err != nil {
		return 0
	}
	return e.version
}

// Level returns the decoded level behind h.
func (r *Registry) Level(h Handle) (*data.Level, error) {
	return typed[*data.Level](r, h)
}

// Model returns the decoded model behind h.
func (r *Registry) Model(h Handle) (*data.Model, error) {
	return typed[*data.Model](r, h)
}

// Script returns the Lua source behind h.
func (r *Registry) Script(h Handle) (string, error) {
	return typed[string](r, h)
}

func typed[T any](r *Registry, h Handle) (T, error) {
	var zero T
	v, st, err := r.Get(h)
	if st != Loaded {
		if err == nil {
			err = ErrNotLoaded
		}
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s holds %T", ErrWrongKind, h, v)
	}
	return t, nil
}

// Wait blocks until no load is queued or running, or ctx is done.
func (r *Registry) Wait(ctx context.Context) error {
	for {
		r.mu.Lock()
		idle := r.idle
		done := len(r.queue) == 0 && r.active == 0
		closed := r.closed
		r.mu.Unlock()
		if done || closed {
			return nil
		}
		select {
		case <-idle:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Reload schedules a fresh read of the named asset. The handle and the
// last good value stay valid until the new read succeeds.
func (r *Registry) Reload(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	h, ok := r.byName[name]
	if !ok {
		return fmt.Errorf("reload %s: %w", name, ErrUnknownHandle)
	}
	e := r.entries[h.id-1]
	if _, ok := r.decoders[e.desc.Kind]; !ok {
		return fmt.Errorf("reload %s: unknown kind %q", name, e.desc.Kind)
	}
	r.enqueueLocked(h, e)
	return nil
}

// Changed returns the names whose file modification time differs from the
// one seen at their last load.
func (r *Registry) Changed() []string {
	r.mu.Lock()
	type probe struct {
		name, path string
		seen       time.Time
	}
	probes := make([]probe, 0, len(r.entries))
	for _, e := range r.entries {
		if e.state == Pending || e.queued {
			continue
		}
		probes = append(probes, probe{e.desc.Name, e.desc.Path, e.modTime})
	}
	r.mu.Unlock()

	var changed []string
	for _, p := range probes {
		info, err := fs.Stat(r.fsys, p.path)
		if err != nil {
			continue
		}
		if !info.ModTime().Equal(p.seen) {
			changed = append(changed, p.name)
		}
	}
	return changed
}

// Watch polls for changed files every interval until ctx is done and
// reloads each one.
func (r *Registry) Watch(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, name := range r.Changed() {
				r.log.Info("asset changed, reloading", zap.String("name", name))
				if err := r.Reload(name); err != nil {
					r.log.Warn("reload", zap.String("name", name), zap.Error(err))
				}
			}
		}
	}
}

// Close stops the workers. Queued loads are abandoned and fail with
// ErrClosed; loaded assets stay readable.
func (r *Registry) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	for _, h := range r.queue {
		e := r.entries[h.id-1]
		e.queued = false
		if e.state == Pending {
			e.state = Failed
			e.err = &LoadError{Name: e.desc.Name, Path: e.desc.Path, Err: ErrClosed}
		}
	}
	r.queue = nil
	r.cond.Broadcast()
	r.mu.Unlock()
	r.wg.Wait()
}
