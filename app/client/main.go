//go:build js && wasm
// +build js,wasm

package main

import (
	"errors"
	"log/slog"
	"strconv"
	"syscall/js"

	"github.com/recera/linkgraph/pkg/debug"
	"github.com/recera/linkgraph/pkg/graphviewer"
)

var (
	document js.Value
	logger   *slog.Logger
	views    = map[string]*graphviewer.View{}
	nextID   int
)

func main() {
	document = js.Global().Get("document")
	logger = debug.Logger("linkgraph")

	logger.Info("🔗 client starting")

	if document.Get("readyState").String() != "loading" {
		mountAll()
	} else {
		document.Call("addEventListener", "DOMContentLoaded", js.FuncOf(func(this js.Value, args []js.Value) interface{} {
			mountAll()
			return nil
		}))
	}

	// client-side page transitions replace the containers
	document.Call("addEventListener", "astro:page-load", js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		mountAll()
		return nil
	}))
	document.Call("addEventListener", "astro:before-swap", js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		destroyAll()
		return nil
	}))

	js.Global().Set("linkgraphMount", js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		mountAll()
		return nil
	}))

	select {}
}

func mountAll() {
	containers := document.Call("querySelectorAll", ".md-graph-container")
	for i := 0; i < containers.Length(); i++ {
		c := containers.Index(i)
		if marker := c.Get("_graph"); !marker.IsUndefined() && !marker.IsNull() {
			continue
		}
		v, err := graphviewer.Mount(c, nil, graphviewer.WithLogger(logger))
		if err != nil {
			if !errors.Is(err, graphviewer.ErrEmptyGraph) {
				logger.Warn("failed to mount graph", "err", err)
			}
			continue
		}
		nextID++
		id := strconv.Itoa(nextID)
		c.Set("_graph", id)
		views[id] = v
		logger.Debug("mounted graph", "id", id, "current", c.Get("dataset").Get("current").String())
	}
}

func destroyAll() {
	for id, v := range views {
		v.Destroy()
		delete(views, id)
	}
}
