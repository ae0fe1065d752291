// Package harness runs reconciliation scenarios as executable contract
// tests.
//
// A scenario feeds one batch of stream records through a reconciler built
// from the scenario's configuration and checks what came out: the batch
// stats, the emitted operations and, optionally, the replica state after
// applying the operations to a fresh in-memory SQLite store.
//
// # Scenario Format
//
// Scenarios are YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	config:
//	  keys: { hash: H, range: R }
//	  exclude:
//	    keys: ['hash_key == "internal"']
//	records:
//	  - eventID: "1"
//	    eventName: INSERT
//	    eventSourceARN: arn:aws:dynamodb:...:table/entities/stream/...
//	    dynamodb:
//	      StreamViewType: NEW_AND_OLD_IMAGES
//	      Keys: { H: { S: a }, R: { S: "1" } }
//	      NewImage: { name: { S: Alice } }
//	expect:
//	  stats: { additions: 1 }
//	  rejections: [MISSING_KEY]
//	  operations:
//	    - action: addObject
//	      body: { objectID: a|1, name: Alice }
//	replica:
//	  seed:
//	    - { objectID: b|1, name: Bob }
//	  expect:
//	    - { objectID: a|1, name: Alice }
//	    - { objectID: b|1, name: Bob }
//
// Every expect section is optional. Stats are a subset match; operations
// and rejections are matched exactly and in order; replica objects are
// matched exactly in object ID order. An empty list (operations: []) is
// checked, an omitted one is not.
//
// # Golden Files
//
// RunWithGolden compares the canonical JSON of the scenario's stats and
// operations against testdata/golden/{name}.golden. Regenerate with:
//
//	go test ./internal/harness -update
package harness
