// Package harness runs scripted operation scenarios against a fresh parley
// store and checks the envelopes they produce.
//
// Each scenario runs in its own temporary database with a stepping clock,
// so timestamps and ids are the same on every run.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: soft_delete
//	description: "Deleted messages leave get-messages but stay in history"
//	steps:
//	  - op: user-register
//	    payload: { username: alice, email: alice@example.com, password: pw }
//	    expect:
//	      success: true
//	      data: { userId: 1 }
//	  - op: get-messages
//	    session: { user_id: 1, conversation_id: 1 }
//	    expect:
//	      success: true
//	      data: { messages: [] }
//	assertions:
//	  - type: final_state
//	    table: messages
//	    where: { id: 1 }
//	    expect: { is_deleted: 1 }
//
// Expected data is a subset match against the flattened success envelope.
// Objects may omit fields; arrays must have the same length.
//
// # Assertion Types
//
//   - op_succeeded: the named operation succeeded at least once
//   - op_order: operations appear in the trace in the given order
//   - op_count: an operation appears exactly N times
//   - final_state: a row selected from a table carries the expected values
//
// # Golden Files
//
// RunWithGolden renders a one-line-per-step summary of the trace and
// compares it against testdata/golden/<name>.golden. Regenerate with
//
//	go test ./internal/harness -update
package harness
