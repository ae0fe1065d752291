package reconcile

import (
	"encoding/json"
	"fmt"

	"github.com/HENNGE/lambda-container-example/internal/snapshot"
)

// Action names an operation shape, using the search index batch API names.
type Action string

const (
	ActionDelete        Action = "deleteObject"
	ActionAdd           Action = "addObject"
	ActionPartialUpdate Action = "partialUpdateObject"
)

// ObjectIDField is the body field carrying the object ID.
const ObjectIDField = "objectID"

// Operation is one write for the downstream replica.
//
// Fields is the full new snapshot for ActionAdd, the delta for
// ActionPartialUpdate and empty for ActionDelete.
type Operation struct {
	Action   Action
	ObjectID string
	Fields   snapshot.Object
}

// Body returns the fields plus objectID. The object ID overrides a field
// of the same name.
func (op Operation) Body() snapshot.Object {
	body := make(snapshot.Object, len(op.Fields)+1)
	for k, v := range op.Fields {
		body[k] = v
	}
	body[ObjectIDField] = snapshot.String(op.ObjectID)
	return body
}

type operationJSON struct {
	Action Action          `json:"action"`
	Body   snapshot.Object `json:"body"`
}

// MarshalJSON encodes the operation as {"action": ..., "body": {...}}.
func (op Operation) MarshalJSON() ([]byte, error) {
	return json.Marshal(operationJSON{Action: op.Action, Body: op.Body()})
}

// UnmarshalJSON decodes the {"action": ..., "body": {...}} form.
func (op *Operation) UnmarshalJSON(data []byte) error {
	var raw operationJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch raw.Action {
	case ActionDelete, ActionAdd, ActionPartialUpdate:
	default:
		return fmt.Errorf("unknown action %q", raw.Action)
	}
	id, ok := raw.Body[ObjectIDField].(snapshot.String)
	if !ok || id == "" {
		return fmt.Errorf("%s: body has no string %s", raw.Action, ObjectIDField)
	}

	fields := raw.Body.Clone()
	delete(fields, ObjectIDField)
	*op = Operation{Action: raw.Action, ObjectID: string(id), Fields: fields}
	return nil
}
