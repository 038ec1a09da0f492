package rng

import (
	"testing"

	"go.uber.org/zap"
)

func TestSameSeedSameSequence(t *testing.T) {
	a, b := New(42), New(42)
	for i := 0; i < 1000; i++ {
		if x, y := a.NextU32(), b.NextU32(); x != y {
			t.Fatalf("draw %d diverged: %d != %d", i, x, y)
		}
		if x, y := a.NextFloat(), b.NextFloat(); x != y {
			t.Fatalf("float draw %d diverged: %v != %v", i, x, y)
		}
	}
}

func TestSeedResets(t *testing.T) {
	p := New(7)
	first := []uint32{p.NextU32(), p.NextU32(), p.NextU32()}
	p.Seed(7)
	if p.Draws() != 0 {
		t.Fatalf("Draws after Seed = %d, want 0", p.Draws())
	}
	for i, want := range first {
		if got := p.NextU32(); got != want {
			t.Fatalf("draw %d after reseed = %d, want %d", i, got, want)
		}
	}
}

func TestEachDrawIsOneStep(t *testing.T) {
	p := New(1)
	p.NextU32()
	p.NextFloat()
	Choose(p, []string{"a", "b", "c"})
	IntN(p, 10)
	if got := p.Draws(); got != 4 {
		t.Fatalf("Draws = %d, want 4", got)
	}
	Choose(p, []int(nil))
	IntN(p, 0)
	Chance(p, 0)
	Chance(p, 1)
	if got := p.Draws(); got != 4 {
		t.Fatalf("degenerate draws advanced state: Draws = %d", got)
	}
}

func TestRanges(t *testing.T) {
	p := New(99)
	for i := 0; i < 10000; i++ {
		f := p.NextFloat()
		if f < 0 || f >= 1 {
			t.Fatalf("NextFloat out of range: %v", f)
		}
		if n := IntN(p, 3); n < 0 || n >= 3 {
			t.Fatalf("IntN out of range: %d", n)
		}
	}
}

func TestChooseCoversAll(t *testing.T) {
	p := New(5)
	seen := map[string]bool{}
	items := []string{"red", "green", "blue"}
	for i := 0; i < 200; i++ {
		v, ok := Choose(p, items)
		if !ok {
			t.Fatalf("Choose on non-empty slice returned !ok")
		}
		seen[v] = true
	}
	if len(seen) != len(items) {
		t.Fatalf("Choose only produced %v", seen)
	}
}

func TestResolve(t *testing.T) {
	if got := Resolve(123, zap.NewNop()); got != 123 {
		t.Fatalf("Resolve kept explicit seed? got %d", got)
	}
	if got := Resolve(0, zap.NewNop()); got == 0 {
		t.Fatalf("Resolve(0) returned zero seed")
	}
}
