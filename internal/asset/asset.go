package asset

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/birdhop/game/internal/data"
)

// Kind selects how an asset's bytes are decoded.
type Kind string

const (
	KindLevel  Kind = "level"
	KindModel  Kind = "model"
	KindScript Kind = "script"
	KindRaw    Kind = "raw"
)

// State is the load state of a handle.
type State uint8

const (
	Pending State = iota
	Loaded
	Failed
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Loaded:
		return "loaded"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", uint8(s))
}

var (
	ErrUnknownHandle = errors.New("asset: unknown handle")
	ErrClosed        = errors.New("asset: registry closed")
	ErrNotLoaded     = errors.New("asset: not loaded")
	ErrWrongKind     = errors.New("asset: wrong kind")
)

// Descriptor names one loadable asset.
type Descriptor struct {
	Name     string
	Path     string
	Kind     Kind
	Required bool
}

// Handle is an opaque reference to a registry entry. The zero Handle is
// invalid.
type Handle struct {
	id uint32
}

func (h Handle) Valid() bool { return h.id != 0 }

func (h Handle) String() string { return fmt.Sprintf("asset#%d", h.id) }

// Progress is an aggregate view of every requested asset.
type Progress struct {
	Loaded int
	Total  int
	Failed []string
}

// Done reports whether every requested asset is loaded.
func (p Progress) Done() bool { return p.Total > 0 && p.Loaded == p.Total }

// LoadError records why one descriptor failed to load.
type LoadError struct {
	Name string
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load asset %s (%s): %v", e.Name, e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Decoder turns raw file bytes into an asset value.
type Decoder func(raw []byte) (any, error)

func defaultDecoders() map[Kind]Decoder {
	return map[Kind]Decoder{
		KindLevel: func(raw []byte) (any, error) { return data.ParseLevel(raw) },
		KindModel: func(raw []byte) (any, error) { return data.ParseModel(raw) },
		KindScript: func(raw []byte) (any, error) {
			return string(raw), nil
		},
		KindRaw: func(raw []byte) (any, error) {
			return append([]byte(nil), raw...), nil
		},
	}
}

// LoadManifest reads the manifest at path and converts it to descriptors.
func LoadManifest(fsys fs.FS, path string) ([]Descriptor, error) {
	raw, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	entries, err := data.ParseManifest(raw)
	if err != nil {
		return nil, err
	}
	out := make([]Descriptor, len(entries))
	for i, e := range entries {
		kind := Kind(e.Kind)
		if kind == "" {
			kind = KindRaw
		}
		out[i] = Descriptor{Name: e.Name, Path: e.Path, Kind: kind, Required: e.Required}
	}
	return out, nil
}
