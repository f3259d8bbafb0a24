// Package dom binds the bridge to a browser page when built for js/wasm.
//
// It creates the file input (and optionally a send button), turns their DOM
// events into trigger events, awaits Blob.text() promises for the ingestion
// tasks and routes slog output to the browser console.
package dom
