package testutil

import (
	"strconv"
	"sync"

	"github.com/HENNGE/lambda-container-example/internal/stream"
)

// DefaultARN is the source ARN used by RecordBuilder unless overridden.
const DefaultARN = "arn:aws:dynamodb:eu-west-1:123456789012:table/entities/stream/2024-01-01T00:00:00.000"

// RecordBuilder creates well-formed stream records with deterministic,
// increasing event IDs ("1", "2", ...).
//
// Thread-safety: safe for concurrent use via internal mutex.
type RecordBuilder struct {
	ARN string

	mu  sync.Mutex
	seq int64
}

// NewRecordBuilder creates a builder using DefaultARN.
func NewRecordBuilder() *RecordBuilder {
	return &RecordBuilder{ARN: DefaultARN}
}

// Insert builds an INSERT record.
func (b *RecordBuilder) Insert(hash, rng string, newImage stream.Image) stream.Record {
	return b.Record(stream.EventInsert, hash, rng, nil, newImage)
}

// Modify builds a MODIFY record.
func (b *RecordBuilder) Modify(hash, rng string, oldImage, newImage stream.Image) stream.Record {
	return b.Record(stream.EventModify, hash, rng, oldImage, newImage)
}

// Remove builds a REMOVE record.
func (b *RecordBuilder) Remove(hash, rng string, oldImage stream.Image) stream.Record {
	return b.Record(stream.EventRemove, hash, rng, oldImage, nil)
}

// Record builds a record with keys H and R and the NEW_AND_OLD_IMAGES view.
func (b *RecordBuilder) Record(name stream.EventName, hash, rng string, oldImage, newImage stream.Image) stream.Record {
	b.mu.Lock()
	b.seq++
	id := strconv.FormatInt(b.seq, 10)
	b.mu.Unlock()

	return stream.Record{
		EventID:        id,
		EventName:      name,
		EventSource:    "aws:dynamodb",
		EventSourceARN: b.ARN,
		Change: &stream.StreamChange{
			StreamViewType: stream.ViewNewAndOldImages,
			SequenceNumber: id,
			Keys: stream.Image{
				"H": stream.Str(hash),
				"R": stream.Str(rng),
			},
			OldImage: oldImage,
			NewImage: newImage,
		},
	}
}

// Event wraps records into a batch.
func Event(records ...stream.Record) stream.Event {
	return stream.Event{Records: records}
}

// Image builds an image of string attributes from alternating name/value
// pairs.
func Image(pairs ...string) stream.Image {
	img := make(stream.Image, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		img[pairs[i]] = stream.Str(pairs[i+1])
	}
	return img
}
