// Package extension hosts designer extensions: single-file Lua scripts
// that inspect and edit the canvas document through a small, sandboxed
// API.
//
// Each extension gets its own Lua state with only the base, table,
// string, and math libraries open. Scripts cannot touch the filesystem,
// spawn processes, or load modules, and long-running calls are aborted
// once the host's script timeout elapses.
//
// # The easel module
//
// Extensions talk to the workbench through the global easel table:
//
//	easel.register{name = "seo-check", version = "1.0"}
//
//	-- canvas
//	easel.selected()                  -- selected element ID, or nil
//	easel.select(id)
//	easel.elements()                  -- array of {id, tag, label, text}
//	easel.attr(id, path)              -- attribute value at a dotted path
//	easel.set_attr(id, path, value)
//	easel.set_text(id, text)
//	easel.remove(id)
//
//	-- history
//	easel.undo()      easel.redo()
//	easel.can_undo()  easel.can_redo()
//	easel.history(n)  -- the n most recent change records
//
//	-- events and logging
//	local id = easel.on("element.changed", function(ev) ... end)
//	easel.off(id)
//	easel.log("message")
//
// Mutating calls return true on success, or nil and a message when the
// target does not exist. Undo and redo return plain booleans.
//
// # Event delivery
//
// Lua states are not safe for concurrent use, so bus events are never
// delivered on the publishing goroutine. The host queues events per
// extension and drains the queues after each script call and on Flush.
// Handlers always run on the goroutine driving the host.
package extension
