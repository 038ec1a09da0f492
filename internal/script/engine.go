package script

import (
	"context"
	"fmt"
	"time"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Hook names a level may define.
const (
	HookShouldSpawn = "should_spawn"
	HookLogLength   = "log_length"
)

// Timeout bounds loading a script and each hook call. A hook that runs
// longer is abandoned and its default is used.
const Timeout = 100 * time.Millisecond

// Engine wraps one gopher-lua VM holding a level's rule hooks.
// Single-goroutine access only (the simulation tick).
type Engine struct {
	vm   *lua.LState
	name string
	log  *zap.Logger
}

// New compiles and runs src as the script called name. Only the base,
// table, string and math libraries are opened, with file loading and
// math.random removed, so hooks stay deterministic.
func New(name, src string, log *zap.Logger) (*Engine, error) {
	vm := lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, lib := range []struct {
		name string
		fn   lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		if err := vm.CallByParam(lua.P{
			Fn:      vm.NewFunction(lib.fn),
			NRet:    0,
			Protect: true,
		}, lua.LString(lib.name)); err != nil {
			vm.Close()
			return nil, fmt.Errorf("open lua %s: %w", lib.name, err)
		}
	}
	for _, g := range []string{"dofile", "loadfile", "load", "loadstring", "require", "module"} {
		vm.SetGlobal(g, lua.LNil)
	}
	if math, ok := vm.GetGlobal(lua.MathLibName).(*lua.LTable); ok {
		math.RawSetString("random", lua.LNil)
		math.RawSetString("randomseed", lua.LNil)
	}
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	ctx, cancel := context.WithTimeout(context.Background(), Timeout)
	vm.SetContext(ctx)
	err := vm.DoString(src)
	vm.RemoveContext()
	cancel()
	if err != nil {
		vm.Close()
		return nil, fmt.Errorf("load script %s: %w", name, err)
	}
	log.Debug("loaded lua script", zap.String("script", name),
		zap.Bool(HookShouldSpawn, isFunc(vm, HookShouldSpawn)),
		zap.Bool(HookLogLength, isFunc(vm, HookLogLength)))
	return &Engine{vm: vm, name: name, log: log}, nil
}

func isFunc(vm *lua.LState, name string) bool {
	_, ok := vm.GetGlobal(name).(*lua.LFunction)
	return ok
}

// Name returns the script name the engine was built from.
func (e *Engine) Name() string { return e.name }

// Has reports whether the script defines the global function name.
func (e *Engine) Has(name string) bool { return isFunc(e.vm, name) }

func (e *Engine) call(name string, args ...lua.LValue) (lua.LValue, bool, error) {
	fn, ok := e.vm.GetGlobal(name).(*lua.LFunction)
	if !ok {
		return lua.LNil, false, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), Timeout)
	defer cancel()
	e.vm.SetContext(ctx)
	defer e.vm.RemoveContext()
	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, args...); err != nil {
		return lua.LNil, true, fmt.Errorf("lua %s: %w", name, err)
	}
	ret := e.vm.Get(-1)
	e.vm.Pop(1)
	return ret, true, nil
}

// ShouldSpawn asks the script whether lane (1-based) spawns at step. It
// returns def when the hook is absent or fails; a failure is also returned
// as an error for the caller to log.
func (e *Engine) ShouldSpawn(step uint32, lane int, def bool) (bool, error) {
	ret, ok, err := e.call(HookShouldSpawn, lua.LNumber(step), lua.LNumber(lane+1), lua.LBool(def))
	if err != nil || !ok {
		return def, err
	}
	switch v := ret.(type) {
	case lua.LBool:
		return bool(v), nil
	case *lua.LNilType:
		return def, nil
	}
	return def, fmt.Errorf("lua %s: returned %s, want boolean", HookShouldSpawn, ret.Type())
}

// LogLength asks the script for the tile length of a log spawned in lane
// (1-based) at step. Non-positive results fall back to def.
func (e *Engine) LogLength(step uint32, lane int, def int) (int, error) {
	ret, ok, err := e.call(HookLogLength, lua.LNumber(step), lua.LNumber(lane+1), lua.LNumber(def))
	if err != nil || !ok {
		return def, err
	}
	switch v := ret.(type) {
	case lua.LNumber:
		n := int(v)
		if n <= 0 {
			return def, fmt.Errorf("lua %s: returned %d, want positive", HookLogLength, n)
		}
		return n, nil
	case *lua.LNilType:
		return def, nil
	}
	return def, fmt.Errorf("lua %s: returned %s, want number", HookLogLength, ret.Type())
}

func (e *Engine) Close() {
	e.vm.Close()
}
