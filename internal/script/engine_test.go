package script

import (
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

func TestHooks(t *testing.T) {
	src := `
function should_spawn(step, lane, default)
  if lane == 2 then return false end
  return default
end

function log_length(step, lane, default)
  if step % 2 == 1 then return default + 2 end
  return default
end
`
	e, err := New("rules", src, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer e.Close()

	if got, err := e.ShouldSpawn(0, 0, true); err != nil || !got {
		t.Errorf("ShouldSpawn lane 0 = %v, %v", got, err)
	}
	if got, err := e.ShouldSpawn(0, 1, true); err != nil || got {
		t.Errorf("ShouldSpawn lane 1 = %v, %v, want false", got, err)
	}
	if got, err := e.LogLength(1, 0, 4); err != nil || got != 6 {
		t.Errorf("LogLength odd step = %d, %v, want 6", got, err)
	}
	if got, err := e.LogLength(2, 0, 4); err != nil || got != 4 {
		t.Errorf("LogLength even step = %d, %v, want 4", got, err)
	}
}

func TestMissingHooksUseDefault(t *testing.T) {
	e, err := New("empty", "x = 1", zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close()
	if e.Has(HookShouldSpawn) {
		t.Fatalf("Has reported absent hook")
	}
	if got, err := e.ShouldSpawn(3, 0, true); err != nil || !got {
		t.Errorf("ShouldSpawn = %v, %v", got, err)
	}
	if got, err := e.LogLength(3, 0, 4); err != nil || got != 4 {
		t.Errorf("LogLength = %d, %v", got, err)
	}
}

func TestRuntimeErrorFallsBack(t *testing.T) {
	src := `
function should_spawn(step, lane, default) error("boom") end
function log_length(step, lane, default) return "long" end
`
	e, err := New("bad", src, zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close()
	got, err := e.ShouldSpawn(0, 0, true)
	if err == nil || !got {
		t.Errorf("ShouldSpawn = %v, %v, want default with error", got, err)
	}
	if !strings.Contains(err.Error(), "boom") {
		t.Errorf("error %q lacks lua message", err)
	}
	if n, err := e.LogLength(0, 0, 4); err == nil || n != 4 {
		t.Errorf("LogLength = %d, %v, want default with error", n, err)
	}
}

func TestLoopingHookTimesOut(t *testing.T) {
	src := `
function should_spawn(step, lane, default) while true do end end
function log_length(step, lane, default) return default + 1 end
`
	e, err := New("loop", src, zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close()
	start := time.Now()
	got, err := e.ShouldSpawn(0, 0, true)
	if err == nil || !got {
		t.Errorf("ShouldSpawn = %v, %v, want default with error", got, err)
	}
	if d := time.Since(start); d > 10*Timeout {
		t.Errorf("looping hook ran %v", d)
	}
	// The VM stays usable for later hooks.
	if n, err := e.LogLength(0, 0, 2); err != nil || n != 3 {
		t.Errorf("LogLength after timeout = %d, %v, want 3", n, err)
	}
}

func TestLoopingScriptBodyFails(t *testing.T) {
	if _, err := New("spin", "while true do end", zaptest.NewLogger(t)); err == nil {
		t.Fatal("New returned for a script that never finishes loading")
	}
}

func TestCompileError(t *testing.T) {
	if _, err := New("broken", "function (", zaptest.NewLogger(t)); err == nil {
		t.Fatal("New accepted invalid lua")
	}
}

func TestSandbox(t *testing.T) {
	e, err := New("sandbox", `
has_os = os ~= nil
has_io = io ~= nil
has_random = math.random ~= nil
has_dofile = dofile ~= nil
floor_ok = math.floor(2.5) == 2
`, zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close()
	for _, g := range []string{"has_os", "has_io", "has_random", "has_dofile"} {
		if e.vm.GetGlobal(g).String() != "false" {
			t.Errorf("%s = %s, want false", g, e.vm.GetGlobal(g))
		}
	}
	if e.vm.GetGlobal("floor_ok").String() != "true" {
		t.Errorf("math library missing")
	}
}
