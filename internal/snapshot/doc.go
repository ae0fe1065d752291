// Package snapshot provides the typed value tree for one entity's state.
//
// A snapshot is a closed tagged variant: Null, Bool, Number, String, Array
// or Object. Absence (the entity does not exist) is the nil Value. All
// other internal packages import snapshot; snapshot imports nothing
// internal.
//
// Key design constraints:
//   - Equivalent is order-insensitive for arrays and key-order-insensitive
//     for objects
//   - Delta only ever reports fields of the newer snapshot
//   - NaN and infinities are rejected at construction so equality stays
//     reflexive
package snapshot
