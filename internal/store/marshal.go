package store

import (
	"encoding/json"
	"fmt"

	"github.com/HENNGE/lambda-container-example/internal/snapshot"
)

// marshalBody converts an object body to canonical JSON TEXT for storage.
func marshalBody(body snapshot.Object) (string, error) {
	data, err := snapshot.MarshalCanonical(body)
	if err != nil {
		return "", fmt.Errorf("marshal body: %w", err)
	}
	return string(data), nil
}

// unmarshalBody parses stored canonical JSON TEXT.
func unmarshalBody(data string) (snapshot.Object, error) {
	var obj snapshot.Object
	if err := json.Unmarshal([]byte(data), &obj); err != nil {
		return nil, fmt.Errorf("unmarshal body: %w", err)
	}
	if obj == nil {
		obj = snapshot.Object{}
	}
	return obj, nil
}
