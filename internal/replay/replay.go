// Package replay records the inputs driving a World and plays them back to
// check that the simulation is deterministic.
package replay

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/birdhop/game/internal/rng"
	"github.com/birdhop/game/internal/sim"
	"gopkg.in/yaml.v3"
)

// Format is the recording layout version written by Save.
const Format = 1

// Frame is one Advance call.
type Frame struct {
	Delta  time.Duration `yaml:"dt"`
	Inputs []sim.Input   `yaml:"inputs,omitempty"`
}

// Recording holds everything needed to reproduce a run from a fresh
// registry: the seed, the level and every frame in order. Final is the hex
// digest of the world after the last frame, empty when unknown.
type Recording struct {
	Format  int     `yaml:"format"`
	Seed    uint64  `yaml:"seed"`
	Level   string  `yaml:"level"`
	Scripts bool    `yaml:"scripts"`
	Frames  []Frame `yaml:"frames"`
	Final   string  `yaml:"final,omitempty"`
}

// Read decodes a YAML recording.
func Read(r io.Reader) (*Recording, error) {
	var rec Recording
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&rec); err != nil {
		return nil, fmt.Errorf("decode recording: %w", err)
	}
	if rec.Format != Format {
		return nil, fmt.Errorf("recording format %d, want %d", rec.Format, Format)
	}
	return &rec, nil
}

// Write encodes rec as YAML.
func Write(w io.Writer, rec *Recording) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(rec); err != nil {
		return fmt.Errorf("encode recording: %w", err)
	}
	return enc.Close()
}

// Load reads a recording file.
func Load(path string) (*Recording, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	rec, err := Read(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rec, nil
}

// Save writes rec to path.
func Save(path string, rec *Recording) error {
	var buf bytes.Buffer
	if err := Write(&buf, rec); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// Recorder forwards Advance calls to a World and keeps every frame.
type Recorder struct {
	world *sim.World
	rec   Recording
}

// NewRecorder starts a recording of w. seed must be the seed the caller's
// source was created with.
func NewRecorder(w *sim.World, seed uint64, scripts bool) *Recorder {
	return &Recorder{
		world: w,
		rec:   Recording{Format: Format, Seed: seed, Level: w.LevelAsset(), Scripts: scripts},
	}
}

// Advance records the frame and advances the world. Frames rejected by the
// world are not recorded.
func (r *Recorder) Advance(dt time.Duration, src rng.Source, inputs []sim.Input) error {
	if err := r.world.Advance(dt, src, inputs); err != nil {
		return err
	}
	r.rec.Frames = append(r.rec.Frames, Frame{Delta: dt, Inputs: append([]sim.Input(nil), inputs...)})
	return nil
}

// Recording returns a copy of what has been recorded, with Final set to the
// world's current digest.
func (r *Recorder) Recording() *Recording {
	out := r.rec
	out.Frames = append([]Frame(nil), r.rec.Frames...)
	d := r.world.Digest()
	out.Final = hex.EncodeToString(d[:])
	return &out
}

// Result summarizes one playback.
type Result struct {
	Ticks   uint64
	Digest  [32]byte
	Outcome sim.Outcome
	Rescued int
	Stats   sim.Stats
	Trace   [][32]byte // digest after every frame
}

// DigestHex returns the final digest in hex.
func (r Result) DigestHex() string { return hex.EncodeToString(r.Digest[:]) }

// Run plays rec against a new World built from assets. opts.Level and
// opts.Scripts are taken from the recording.
func Run(ctx context.Context, assets sim.AssetSource, opts sim.Options, rec *Recording) (*Result, error) {
	opts.Level = rec.Level
	opts.Scripts = rec.Scripts
	w, err := sim.Initialize(assets, opts)
	if err != nil {
		return nil, err
	}
	defer w.Shutdown()

	src := rng.New(rec.Seed)
	res := &Result{Trace: make([][32]byte, 0, len(rec.Frames))}
	for i, f := range rec.Frames {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := w.Advance(f.Delta, src, f.Inputs); err != nil {
			return nil, fmt.Errorf("frame %d: %w", i, err)
		}
		res.Trace = append(res.Trace, w.Digest())
	}
	res.Ticks = w.Clock().Tick
	res.Digest = w.Digest()
	res.Outcome = w.Outcome()
	res.Rescued, _ = w.Rescued()
	res.Stats = w.Stats()
	return res, nil
}

// MismatchError reports where two playbacks, or a playback and the
// recorded digest, disagree. Frame is -1 for the final digest.
type MismatchError struct {
	Frame int
	Got   string
	Want  string
}

func (e *MismatchError) Error() string {
	if e.Frame < 0 {
		return fmt.Sprintf("final digest %s, recorded %s", e.Got, e.Want)
	}
	return fmt.Sprintf("playbacks diverge after frame %d: %s != %s", e.Frame, e.Got, e.Want)
}

// Verify plays rec twice, each time against a World built from a fresh
// asset source, and checks the digests agree frame by frame and with
// rec.Final when present.
func Verify(ctx context.Context, newAssets func() (sim.AssetSource, error), opts sim.Options, rec *Recording) (*Result, error) {
	var runs [2]*Result
	for i := range runs {
		assets, err := newAssets()
		if err != nil {
			return nil, err
		}
		if runs[i], err = Run(ctx, assets, opts, rec); err != nil {
			return nil, err
		}
	}
	a, b := runs[0], runs[1]
	for i := range a.Trace {
		if a.Trace[i] != b.Trace[i] {
			return nil, &MismatchError{
				Frame: i,
				Got:   hex.EncodeToString(a.Trace[i][:]),
				Want:  hex.EncodeToString(b.Trace[i][:]),
			}
		}
	}
	if rec.Final != "" && a.DigestHex() != rec.Final {
		return nil, &MismatchError{Frame: -1, Got: a.DigestHex(), Want: rec.Final}
	}
	return a, nil
}
