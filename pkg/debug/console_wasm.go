//go:build js && wasm

package debug

import (
	"log/slog"
	"syscall/js"
)

type browserConsole struct{ c js.Value }

func (b browserConsole) Call(method, line string) {
	b.c.Call(method, line)
}

// Logger returns a logger writing to the browser console. Debug records are
// shown when the page sets window.linkgraphDebug before the client loads.
func Logger(prefix string) *slog.Logger {
	level := slog.LevelInfo
	if d := js.Global().Get("linkgraphDebug"); d.Truthy() {
		level = slog.LevelDebug
	}
	return slog.New(NewHandler(browserConsole{js.Global().Get("console")}, prefix, level))
}
