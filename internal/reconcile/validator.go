package reconcile

import (
	"fmt"

	"github.com/HENNGE/lambda-container-example/internal/snapshot"
	"github.com/HENNGE/lambda-container-example/internal/stream"
)

// Default key attribute names.
const (
	DefaultHashKey  = "H"
	DefaultRangeKey = "R"
)

// Mapper turns one raw image into the entity's typed snapshot.
//
// Map is only called for images that are present. Returning a nil Object
// for a present image marks that side as absent, which the validator then
// reports as an image mismatch.
type Mapper interface {
	Map(key EntityKey, image stream.Image) (snapshot.Object, error)
}

// MapperFunc adapts a function to the Mapper interface.
type MapperFunc func(key EntityKey, image stream.Image) (snapshot.Object, error)

// Map calls f(key, image).
func (f MapperFunc) Map(key EntityKey, image stream.Image) (snapshot.Object, error) {
	return f(key, image)
}

// Origin identifies where a record came from.
type Origin struct {
	// ARN is the record's event source ARN.
	ARN string
	// Table is the table name parsed from ARN, "" if it has none.
	Table string
}

// Exclusion decides which records are filtered out by configuration.
type Exclusion interface {
	ExcludeOrigin(origin Origin) (bool, error)
	ExcludeKey(key EntityKey) (bool, error)
}

// ValidatorOptions configures a Validator.
type ValidatorOptions struct {
	// HashKey and RangeKey name the key attributes. Defaults: "H", "R".
	HashKey  string
	RangeKey string

	// Mapper builds snapshots. Required.
	Mapper Mapper

	// Exclusion filters records. Optional.
	Exclusion Exclusion
}

// Validator filters and normalizes raw records into RawEvents.
type Validator struct {
	hashKey   string
	rangeKey  string
	mapper    Mapper
	exclusion Exclusion
}

// NewValidator creates a Validator. It panics if opts.Mapper is nil, since
// no record could ever be mapped.
func NewValidator(opts ValidatorOptions) *Validator {
	if opts.Mapper == nil {
		panic("reconcile: NewValidator requires a Mapper")
	}
	v := &Validator{
		hashKey:   opts.HashKey,
		rangeKey:  opts.RangeKey,
		mapper:    opts.Mapper,
		exclusion: opts.Exclusion,
	}
	if v.hashKey == "" {
		v.hashKey = DefaultHashKey
	}
	if v.rangeKey == "" {
		v.rangeKey = DefaultRangeKey
	}
	return v
}

// Validate checks one record and converts it into a RawEvent.
//
// Any problem is returned as a *Rejection; the record must then be
// dropped. Checks run in this order: view type and origin, origin
// exclusion, key components, key exclusion, event name, mapping, images
// against kind.
func (v *Validator) Validate(rec stream.Record) (RawEvent, error) {
	change := rec.Change
	if change == nil || change.StreamViewType != stream.ViewNewAndOldImages {
		return RawEvent{}, reject(ErrCodeBadViewType, rec.EventID,
			"stream must be configured with NEW_AND_OLD_IMAGES")
	}
	if rec.EventSourceARN == "" {
		return RawEvent{}, reject(ErrCodeMissingOrigin, rec.EventID, "record has no event source ARN")
	}
	if change.Keys == nil {
		return RawEvent{}, reject(ErrCodeMissingKey, rec.EventID, "record has no keys")
	}

	origin := Origin{ARN: rec.EventSourceARN, Table: stream.TableName(rec.EventSourceARN)}
	if v.exclusion != nil {
		excluded, err := v.exclusion.ExcludeOrigin(origin)
		if err != nil {
			r := reject(ErrCodeRule, rec.EventID, "origin exclusion rule failed")
			r.Err = err
			return RawEvent{}, r
		}
		if excluded {
			return RawEvent{}, reject(ErrCodeExcludedOrigin, rec.EventID,
				fmt.Sprintf("origin %q is excluded", origin.Table))
		}
	}

	hash, _ := change.Keys[v.hashKey].Text()
	rng, _ := change.Keys[v.rangeKey].Text()
	key := EntityKey{Hash: hash, Range: rng}
	if !key.Valid() {
		return RawEvent{}, reject(ErrCodeMissingKey, rec.EventID,
			fmt.Sprintf("key attributes %q and %q must be non-empty strings", v.hashKey, v.rangeKey))
	}
	if key.Ambiguous() {
		r := reject(ErrCodeInvalidKey, rec.EventID,
			fmt.Sprintf("key components must not contain %q", KeySeparator))
		r.Key = key
		return RawEvent{}, r
	}

	if v.exclusion != nil {
		excluded, err := v.exclusion.ExcludeKey(key)
		if err != nil {
			r := reject(ErrCodeRule, rec.EventID, "key exclusion rule failed")
			r.Key, r.Err = key, err
			return RawEvent{}, r
		}
		if excluded {
			r := reject(ErrCodeExcludedKey, rec.EventID, "key is excluded")
			r.Key = key
			return RawEvent{}, r
		}
	}

	kind, ok := kindOf(rec.EventName)
	if !ok {
		r := reject(ErrCodeUnknownEvent, rec.EventID, fmt.Sprintf("unknown event name %q", rec.EventName))
		r.Key = key
		return RawEvent{}, r
	}

	ev := RawEvent{Key: key, Kind: kind}
	var err error
	if ev.Old, err = v.mapImage(key, change.OldImage); err != nil {
		r := reject(ErrCodeMapping, rec.EventID, "old image")
		r.Key, r.Err = key, err
		return RawEvent{}, r
	}
	if ev.New, err = v.mapImage(key, change.NewImage); err != nil {
		r := reject(ErrCodeMapping, rec.EventID, "new image")
		r.Key, r.Err = key, err
		return RawEvent{}, r
	}

	if err := ev.CheckImages(); err != nil {
		r := reject(ErrCodeImageMismatch, rec.EventID, err.Error())
		r.Key = key
		return RawEvent{}, r
	}
	return ev, nil
}

func (v *Validator) mapImage(key EntityKey, img stream.Image) (snapshot.Object, error) {
	if img == nil {
		return nil, nil
	}
	return v.mapper.Map(key, img)
}

func kindOf(name stream.EventName) (Kind, bool) {
	switch name {
	case stream.EventInsert:
		return KindInsert, true
	case stream.EventModify:
		return KindModify, true
	case stream.EventRemove:
		return KindRemove, true
	default:
		return 0, false
	}
}
