// Package hostfs provides the native host's file collaborators: an Input
// that plays the browser's file input over paths on disk, and a Watcher that
// uploads files as they appear in a directory.
//
// Both feed a trigger exactly as the browser does, so the native host runs
// the same ingestion, channel and poll code as the wasm build.
package hostfs
