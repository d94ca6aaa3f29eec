package extension

import (
	"errors"
	"fmt"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/easelhq/easel/internal/editor"
	"github.com/easelhq/easel/internal/event"
)

// handlersKey is the global pinning handler functions so they survive
// Lua garbage collection while a subscription is live.
const handlersKey = "_easel_handlers"

// installAPI registers the easel module into an extension's state.
// Bindings run inside the Lua VM while the host lock is held, so they
// must never take it themselves; the session and bus carry their own
// synchronization.
func (h *Host) installAPI(ext *extension) {
	L := ext.state.L
	ext.handlers = L.NewTable()
	L.SetGlobal(handlersKey, ext.handlers)

	mod := L.NewTable()
	L.SetField(mod, "register", L.NewFunction(h.luaRegister(ext)))
	L.SetField(mod, "selected", L.NewFunction(h.luaSelected()))
	L.SetField(mod, "select", L.NewFunction(h.luaSelect()))
	L.SetField(mod, "elements", L.NewFunction(h.luaElements()))
	L.SetField(mod, "attr", L.NewFunction(h.luaAttr()))
	L.SetField(mod, "set_attr", L.NewFunction(h.luaSetAttr()))
	L.SetField(mod, "set_text", L.NewFunction(h.luaSetText()))
	L.SetField(mod, "remove", L.NewFunction(h.luaRemove()))
	L.SetField(mod, "undo", L.NewFunction(h.luaUndo()))
	L.SetField(mod, "redo", L.NewFunction(h.luaRedo()))
	L.SetField(mod, "can_undo", L.NewFunction(h.luaCanUndo()))
	L.SetField(mod, "can_redo", L.NewFunction(h.luaCanRedo()))
	L.SetField(mod, "history", L.NewFunction(h.luaHistory()))
	L.SetField(mod, "on", L.NewFunction(h.luaOn(ext)))
	L.SetField(mod, "off", L.NewFunction(h.luaOff(ext)))
	L.SetField(mod, "log", L.NewFunction(h.luaLog(ext)))
	L.SetGlobal("easel", mod)
}

// pushErr pushes the Lua convention for a failed call: nil plus a
// message.
func pushErr(L *lua.LState, err error) int {
	L.Push(lua.LNil)
	L.Push(lua.LString(err.Error()))
	return 2
}

// register{name=..., version=...} declares the extension's identity.
// Scripts that skip it keep their file name.
func (h *Host) luaRegister(ext *extension) lua.LGFunction {
	return func(L *lua.LState) int {
		tbl := L.CheckTable(1)
		if name, ok := tbl.RawGetString("name").(lua.LString); ok && name != "" {
			ext.name = string(name)
		}
		if version, ok := tbl.RawGetString("version").(lua.LString); ok {
			ext.version = string(version)
		}
		return 0
	}
}

func (h *Host) luaSelected() lua.LGFunction {
	return func(L *lua.LState) int {
		id := h.session.Selected()
		if id == "" {
			L.Push(lua.LNil)
		} else {
			L.Push(lua.LString(id))
		}
		return 1
	}
}

func (h *Host) luaSelect() lua.LGFunction {
	return func(L *lua.LState) int {
		if err := h.session.Select(L.CheckString(1)); err != nil {
			return pushErr(L, err)
		}
		L.Push(lua.LTrue)
		return 1
	}
}

func (h *Host) luaElements() lua.LGFunction {
	return func(L *lua.LState) int {
		out := L.NewTable()
		for i, el := range h.session.Elements() {
			tbl := L.NewTable()
			tbl.RawSetString("id", lua.LString(el.ID))
			tbl.RawSetString("tag", lua.LString(el.Tag))
			if el.Label != "" {
				tbl.RawSetString("label", lua.LString(el.Label))
			}
			if el.Text != "" {
				tbl.RawSetString("text", lua.LString(el.Text))
			}
			out.RawSetInt(i+1, tbl)
		}
		L.Push(out)
		return 1
	}
}

func (h *Host) luaAttr() lua.LGFunction {
	return func(L *lua.LState) int {
		res, err := h.session.Attr(L.CheckString(1), L.CheckString(2))
		if err != nil {
			return pushErr(L, err)
		}
		if !res.Exists() {
			L.Push(lua.LNil)
			return 1
		}
		L.Push(goToLua(L, res.Value()))
		return 1
	}
}

func (h *Host) luaSetAttr() lua.LGFunction {
	return func(L *lua.LState) int {
		id := L.CheckString(1)
		path := L.CheckString(2)
		value := luaToGo(L.CheckAny(3))
		if err := h.session.SetAttr(id, path, value); err != nil {
			return pushErr(L, err)
		}
		L.Push(lua.LTrue)
		return 1
	}
}

func (h *Host) luaSetText() lua.LGFunction {
	return func(L *lua.LState) int {
		if err := h.session.SetText(L.CheckString(1), L.CheckString(2)); err != nil {
			return pushErr(L, err)
		}
		L.Push(lua.LTrue)
		return 1
	}
}

func (h *Host) luaRemove() lua.LGFunction {
	return func(L *lua.LState) int {
		if err := h.session.RemoveElement(L.CheckString(1)); err != nil {
			return pushErr(L, err)
		}
		L.Push(lua.LTrue)
		return 1
	}
}

func (h *Host) luaUndo() lua.LGFunction {
	return func(L *lua.LState) int {
		err := h.session.Undo()
		switch {
		case err == nil:
			L.Push(lua.LTrue)
		case errors.Is(err, editor.ErrNothingToUndo):
			L.Push(lua.LFalse)
		default:
			h.logger.Error("undo from extension failed: %v", err)
			L.Push(lua.LFalse)
		}
		return 1
	}
}

func (h *Host) luaRedo() lua.LGFunction {
	return func(L *lua.LState) int {
		err := h.session.Redo()
		switch {
		case err == nil:
			L.Push(lua.LTrue)
		case errors.Is(err, editor.ErrNothingToRedo):
			L.Push(lua.LFalse)
		default:
			h.logger.Error("redo from extension failed: %v", err)
			L.Push(lua.LFalse)
		}
		return 1
	}
}

func (h *Host) luaCanUndo() lua.LGFunction {
	return func(L *lua.LState) int {
		L.Push(lua.LBool(h.session.CanUndo()))
		return 1
	}
}

func (h *Host) luaCanRedo() lua.LGFunction {
	return func(L *lua.LState) int {
		L.Push(lua.LBool(h.session.CanRedo()))
		return 1
	}
}

// history(n) returns the n most recent records, oldest first.
func (h *Host) luaHistory() lua.LGFunction {
	return func(L *lua.LState) int {
		n := L.OptInt(1, 10)
		out := L.NewTable()
		for i, rec := range h.session.Recent(n) {
			tbl := L.NewTable()
			tbl.RawSetString("subjectId", lua.LString(rec.SubjectID))
			tbl.RawSetString("subjectLabel", lua.LString(rec.SubjectLabel))
			tbl.RawSetString("timestamp", lua.LString(rec.Timestamp.UTC().Format(time.RFC3339)))
			out.RawSetInt(i+1, tbl)
		}
		L.Push(out)
		return 1
	}
}

// on(topic, fn) queues fn for every event on topic and returns a
// subscription ID.
func (h *Host) luaOn(ext *extension) lua.LGFunction {
	return func(L *lua.LState) int {
		topic := L.CheckString(1)
		fn := L.CheckFunction(2)

		ext.nextKey++
		key := fmt.Sprintf("h%d", ext.nextKey)
		ext.handlers.RawSetString(key, fn)

		subID, err := h.session.Bus().Subscribe(event.Topic(topic), func(ev event.Event) {
			ext.enqueue(key, ev)
		})
		if err != nil {
			ext.handlers.RawSetString(key, lua.LNil)
			return pushErr(L, err)
		}
		ext.subs[subID] = key
		L.Push(lua.LString(subID))
		return 1
	}
}

// off(id) drops a subscription made with on. Returns whether it
// existed.
func (h *Host) luaOff(ext *extension) lua.LGFunction {
	return func(L *lua.LState) int {
		subID := L.CheckString(1)
		key, ok := ext.subs[subID]
		if !ok {
			L.Push(lua.LFalse)
			return 1
		}
		delete(ext.subs, subID)
		ext.handlers.RawSetString(key, lua.LNil)
		h.session.Bus().Unsubscribe(subID)
		L.Push(lua.LTrue)
		return 1
	}
}

func (h *Host) luaLog(ext *extension) lua.LGFunction {
	return func(L *lua.LState) int {
		h.logger.WithField("extension", ext.name).Info("%s", L.CheckString(1))
		return 0
	}
}

// eventToTable renders a bus event for a Lua handler.
func eventToTable(L *lua.LState, ev event.Event) *lua.LTable {
	tbl := L.NewTable()
	tbl.RawSetString("topic", lua.LString(ev.Topic))
	if ev.SubjectID != "" {
		tbl.RawSetString("subject", lua.LString(ev.SubjectID))
	}
	tbl.RawSetString("time", lua.LString(ev.Time.UTC().Format(time.RFC3339)))
	data := L.NewTable()
	for k, v := range ev.Data {
		data.RawSetString(k, goToLua(L, v))
	}
	tbl.RawSetString("data", data)
	return tbl
}

// goToLua converts a Go value to its Lua representation.
func goToLua(L *lua.LState, v any) lua.LValue {
	switch val := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(val)
	case int:
		return lua.LNumber(val)
	case int64:
		return lua.LNumber(val)
	case float64:
		return lua.LNumber(val)
	case string:
		return lua.LString(val)
	case []any:
		tbl := L.NewTable()
		for i, item := range val {
			tbl.RawSetInt(i+1, goToLua(L, item))
		}
		return tbl
	case map[string]any:
		tbl := L.NewTable()
		for k, item := range val {
			tbl.RawSetString(k, goToLua(L, item))
		}
		return tbl
	default:
		return lua.LString(fmt.Sprintf("%v", val))
	}
}

// luaToGo converts a Lua value to a Go value the attribute codec can
// encode. Array-shaped tables become slices, everything else a map.
func luaToGo(v lua.LValue) any {
	switch val := v.(type) {
	case lua.LBool:
		return bool(val)
	case lua.LNumber:
		return float64(val)
	case lua.LString:
		return string(val)
	case *lua.LTable:
		maxIdx := 0
		isArray := true
		val.ForEach(func(k, _ lua.LValue) {
			num, ok := k.(lua.LNumber)
			if !ok {
				isArray = false
				return
			}
			if idx := int(num); idx > maxIdx {
				maxIdx = idx
			}
		})
		if isArray && maxIdx > 0 {
			arr := make([]any, maxIdx)
			val.ForEach(func(k, item lua.LValue) {
				if num, ok := k.(lua.LNumber); ok {
					if idx := int(num) - 1; idx >= 0 && idx < maxIdx {
						arr[idx] = luaToGo(item)
					}
				}
			})
			return arr
		}
		out := make(map[string]any)
		val.ForEach(func(k, item lua.LValue) {
			out[k.String()] = luaToGo(item)
		})
		return out
	default:
		return nil
	}
}
