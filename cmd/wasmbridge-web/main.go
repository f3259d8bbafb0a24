//go:build js && wasm

// Command wasmbridge-web is the browser build of the bridge: a file input on
// the page feeds uploads into a channel that the engine polls every tick.
//
// Set the global wasmbridgeTrigger to "click" before loading the module to
// ingest on a button click instead of on file selection.
package main

import (
	"context"
	"log/slog"
	"syscall/js"

	"github.com/roach88/wasmbridge/internal/bridge"
	"github.com/roach88/wasmbridge/internal/channel"
	"github.com/roach88/wasmbridge/internal/dom"
	"github.com/roach88/wasmbridge/internal/engine"
	"github.com/roach88/wasmbridge/internal/payload"
	"github.com/roach88/wasmbridge/internal/trigger"
)

const inputID = "fileb"

func main() {
	logger := slog.New(dom.NewConsoleHandler(slog.LevelDebug))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("bridge stopped", "error", err)
	}
}

func run(logger *slog.Logger) error {
	tx, rx := channel.New[payload.Example]()

	doc := js.Global().Get("document")
	input, err := dom.CreateInput(doc, inputID)
	if err != nil {
		return err
	}

	trig := trigger.New[payload.Example](tx, payload.JSONDecoder[payload.Example]{},
		trigger.WithLogger(logger),
		trigger.WithSource(input),
	)

	if mode := js.Global().Get("wasmbridgeTrigger"); mode.Type() == js.TypeString && mode.String() == "click" {
		button, err := dom.CreateButton(doc, inputID+"-send", "Send")
		if err != nil {
			return err
		}
		dom.Listen(button, "click", trigger.KindClick, trig)
	} else {
		dom.Listen(input.Element(), "change", trigger.KindChange, trig)
	}
	logger.Debug("closure setup done")

	app := engine.New(engine.WithLogger(logger))
	if err := bridge.Install(app, rx, bridge.WithHandler(bridge.LogHandler[payload.Example](logger))); err != nil {
		return err
	}

	return app.Run(context.Background())
}
