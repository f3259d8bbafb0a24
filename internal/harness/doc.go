// Package harness runs scripted bridge scenarios and compares their traces
// against golden files.
//
// A scenario drives the real trigger, channel and engine. Files are in-memory
// fakes, task IDs are fixed and every upload is awaited before the next step,
// so the same scenario always produces the same trace.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	drain: one            # or all
//	steps:
//	  - action: upload
//	    files:
//	      - name: a.json
//	        text: '{"field1":[1,2,3,4]}'
//	  - action: upload_concurrent
//	    files:
//	      - name: slow.json
//	        text: '...'
//	      - name: fast.json
//	        text: '...'
//	    complete: [fast.json, slow.json]
//	  - action: tick
//	    count: 3
//	assertions:
//	  - type: received_order
//	    payloads: [[1, 2, 3, 4]]
//	  - type: upload_outcome
//	    file: a.json
//	    outcome: sent
//
// # Trace Format
//
// Every finished upload adds an "upload" event with its task ID, file and
// outcome. Every payload handed to the application adds a "received" event
// with its tick. A tick that hands out nothing adds an "empty" event.
//
// # Golden Files
//
// RunWithGolden renders the trace as canonical JSON (payload.Canonical) and
// compares it with testdata/golden/<name>.golden. Regenerate with:
//
//	go test ./internal/harness -update
package harness
