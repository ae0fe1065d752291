// Package stream models raw change-stream notifications.
//
// The shapes follow the DynamoDB Streams event payload delivered to a
// Lambda function:
//
//	{
//	  "Records": [{
//	    "eventName": "INSERT",
//	    "eventSourceARN": "arn:aws:dynamodb:...:table/users/stream/2024-...",
//	    "dynamodb": {
//	      "StreamViewType": "NEW_AND_OLD_IMAGES",
//	      "Keys":     {"H": {"S": "user#1"}, "R": {"S": "profile"}},
//	      "NewImage": {"H": {"S": "user#1"}, "R": {"S": "profile"}, "name": {"S": "Alice"}}
//	    }
//	  }]
//	}
//
// Types carry both json and yaml tags so the same payload can be read from
// the runtime API, the HTTP surface and YAML test scenarios.
package stream
