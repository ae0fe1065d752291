// Package mapping provides entity mappers that turn raw stream images into
// snapshots.
//
// Passthrough converts every attribute generically. FieldMapper builds a
// fixed-shape snapshot from a field list, applying the coercions search
// records usually need: NFC-normalized text, booleans stored as "1",
// integers stored as strings, and maps flattened to their string values.
package mapping
