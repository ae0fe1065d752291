package reconcile

import (
	"fmt"

	"github.com/HENNGE/lambda-container-example/internal/snapshot"
)

// Kind is the kind of change one raw event describes.
type Kind int

const (
	KindInsert Kind = iota + 1
	KindModify
	KindRemove
)

func (k Kind) String() string {
	switch k {
	case KindInsert:
		return "insert"
	case KindModify:
		return "modify"
	case KindRemove:
		return "remove"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// RawEvent is one validated change notification.
//
// Old and New are nil when the entity does not exist on that side.
// CheckImages enforces which sides must be present for each Kind.
type RawEvent struct {
	Key  EntityKey
	Kind Kind
	Old  snapshot.Object
	New  snapshot.Object
}

// CheckImages reports whether the presence of Old and New matches Kind:
// Insert needs only New, Modify needs both, Remove needs only Old.
func (e RawEvent) CheckImages() error {
	hasOld, hasNew := e.Old != nil, e.New != nil
	switch e.Kind {
	case KindInsert:
		if hasOld || !hasNew {
			return fmt.Errorf("insert needs new image only (old=%t, new=%t)", hasOld, hasNew)
		}
	case KindModify:
		if !hasOld || !hasNew {
			return fmt.Errorf("modify needs both images (old=%t, new=%t)", hasOld, hasNew)
		}
	case KindRemove:
		if !hasOld || hasNew {
			return fmt.Errorf("remove needs old image only (old=%t, new=%t)", hasOld, hasNew)
		}
	default:
		return fmt.Errorf("unknown event kind %v", e.Kind)
	}
	return nil
}
