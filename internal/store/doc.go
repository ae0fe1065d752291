// Package store provides a SQLite-backed replica of the downstream index.
//
// The replica holds one row per object, keyed by object ID, with the
// object body stored as canonical JSON. Applying a batch of operations
// is a single transaction:
//   - deleteObject removes the row (a missing row is not an error)
//   - addObject replaces the whole body
//   - partialUpdateObject merges the fields into the existing body,
//     creating the object if it does not exist
//
// Every applied batch is recorded in the batches table with a logical
// sequence number. Object rows carry the seq of the batch that last wrote
// them. Ordering uses seq, never wall time.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
