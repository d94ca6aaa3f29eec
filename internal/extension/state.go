package extension

import (
	"context"
	"fmt"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"
)

// luaState wraps one sandboxed gopher-lua state. LState is not
// goroutine-safe; the mutex serializes entry from Go, and Lua code
// itself is single-threaded.
type luaState struct {
	mu      sync.Mutex
	L       *lua.LState
	timeout time.Duration
	closed  bool
}

func newLuaState(timeout time.Duration) *luaState {
	L := lua.NewState(lua.Options{
		SkipOpenLibs: true, // opened selectively below
	})
	openSafeLibraries(L)
	return &luaState{L: L, timeout: timeout}
}

// openSafeLibraries opens only the standard libraries an extension can
// safely use. io, os, debug, and package stay closed: scripts get no
// filesystem, system call, or module loading access.
func openSafeLibraries(L *lua.LState) {
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
}

func (s *luaState) doFile(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrHostClosed
	}
	return s.guard(func() error { return s.L.DoFile(path) })
}

func (s *luaState) doString(code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrHostClosed
	}
	return s.guard(func() error { return s.L.DoString(code) })
}

// call invokes a Lua function value with args, discarding any results.
func (s *luaState) call(fn lua.LValue, args ...lua.LValue) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrHostClosed
	}
	return s.guard(func() error {
		s.L.Push(fn)
		for _, arg := range args {
			s.L.Push(arg)
		}
		return s.L.PCall(len(args), 0, nil)
	})
}

// guard runs fn with panic recovery and, when a timeout is configured,
// a context that aborts long-running scripts between instructions.
func (s *luaState) guard(fn func() error) (err error) {
	if s.timeout > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		s.L.SetContext(ctx)
		defer s.L.RemoveContext()
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()
	return fn()
}

func (s *luaState) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.L.Close()
	s.closed = true
}
