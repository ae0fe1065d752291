package snapshot

import (
	"crypto/sha256"
	"encoding/hex"
)

// DomainFingerprint prefixes snapshot fingerprints. The version suffix
// allows the encoding to change without colliding with stored values.
const DomainFingerprint = "cdcsync/snapshot/v1"

// Fingerprint returns a content hash of v that is stable under array
// reordering and object key order, so equivalent snapshots share a
// fingerprint.
//
// Format: hex(SHA256(domain + 0x00 + SortKey(v)))
func Fingerprint(v Value) string {
	h := sha256.New()
	h.Write([]byte(DomainFingerprint))
	h.Write([]byte{0x00})
	h.Write(SortKey(v))
	return hex.EncodeToString(h.Sum(nil))
}
