package stream

import (
	"encoding/json"
	"fmt"
	"regexp"
)

// EventName is the kind of change a record describes.
type EventName string

const (
	EventInsert EventName = "INSERT"
	EventModify EventName = "MODIFY"
	EventRemove EventName = "REMOVE"
)

// ViewNewAndOldImages is the only stream view type that carries both
// images. Records with any other view type cannot be reconciled.
const ViewNewAndOldImages = "NEW_AND_OLD_IMAGES"

// Image is a raw attribute map: one side (before or after) of a change.
type Image map[string]AttributeValue

// Event is one batch of notifications as delivered by the stream.
type Event struct {
	Records []Record `json:"Records" yaml:"Records"`
}

// Record is one raw change notification.
type Record struct {
	EventID        string        `json:"eventID,omitempty" yaml:"eventID,omitempty"`
	EventName      EventName     `json:"eventName" yaml:"eventName"`
	EventSource    string        `json:"eventSource,omitempty" yaml:"eventSource,omitempty"`
	EventSourceARN string        `json:"eventSourceARN" yaml:"eventSourceARN"`
	Change         *StreamChange `json:"dynamodb,omitempty" yaml:"dynamodb,omitempty"`
}

// StreamChange is the change payload of a record.
type StreamChange struct {
	StreamViewType string `json:"StreamViewType" yaml:"StreamViewType"`
	SequenceNumber string `json:"SequenceNumber,omitempty" yaml:"SequenceNumber,omitempty"`
	SizeBytes      int64  `json:"SizeBytes,omitempty" yaml:"SizeBytes,omitempty"`
	Keys           Image  `json:"Keys,omitempty" yaml:"Keys,omitempty"`
	OldImage       Image  `json:"OldImage,omitempty" yaml:"OldImage,omitempty"`
	NewImage       Image  `json:"NewImage,omitempty" yaml:"NewImage,omitempty"`
}

// ParseEvent decodes a JSON stream event.
func ParseEvent(data []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return Event{}, fmt.Errorf("parse stream event: %w", err)
	}
	return ev, nil
}

var tableARN = regexp.MustCompile(`^.*:table/(?P<table>[^/]+)/stream/.*$`)

// TableName extracts the table name from a stream ARN. It returns "" when
// the ARN does not name a table stream.
func TableName(arn string) string {
	m := tableARN.FindStringSubmatch(arn)
	if m == nil {
		return ""
	}
	return m[tableARN.SubexpIndex("table")]
}
