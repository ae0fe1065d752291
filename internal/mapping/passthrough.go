package mapping

import (
	"github.com/HENNGE/lambda-container-example/internal/reconcile"
	"github.com/HENNGE/lambda-container-example/internal/snapshot"
	"github.com/HENNGE/lambda-container-example/internal/stream"
)

// Passthrough maps every attribute with stream.AttributeValue.ToValue.
type Passthrough struct {
	// Omit lists attributes left out of the snapshot, typically the key
	// attributes already carried by the object ID.
	Omit []string
}

var _ reconcile.Mapper = Passthrough{}

// Map implements reconcile.Mapper.
func (p Passthrough) Map(_ reconcile.EntityKey, image stream.Image) (snapshot.Object, error) {
	obj, err := image.ToObject()
	if err != nil {
		return nil, err
	}
	for _, name := range p.Omit {
		delete(obj, name)
	}
	return obj, nil
}
