// Package journal records every payload the engine hands to the application.
//
// The journal is an append-only SQLite table. Entries carry the tick they
// were delivered on, a SHA-256 digest and the payload in canonical JSON, so
// two deliveries of equal payloads are recognizable as such.
//
// Ordering uses the seq column only, never wall-clock time.
//
// # Database Configuration
//
//   - WAL mode: the journal command can read while a run appends
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
package journal
