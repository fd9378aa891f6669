// Package ws is the websocket adapter: it decodes wire frames into typed
// commands for the delivery coordinator and encodes outgoing broadcasts.
package ws

import (
	"encoding/json"
	"fmt"

	"market-chat/domain"
	"market-chat/domain/event"
	errs "market-chat/errors"
)

// Envelope is the frame format on the wire: an event name plus its
// JSON payload.
type Envelope struct {
	Event event.Name      `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func EncodeFrame(name event.Name, payload any) ([]byte, error) {
	var data json.RawMessage
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		data = encoded
	}
	return json.Marshal(Envelope{Event: name, Data: data})
}

func DecodeFrame(raw []byte) (Envelope, error) {
	var envelope Envelope
	err := json.Unmarshal(raw, &envelope)
	return envelope, err
}

// decode unmarshals a command payload and runs its validation tags.
func decode(data json.RawMessage, cmd any) error {
	if err := json.Unmarshal(data, cmd); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrValidation, err)
	}
	return domain.Validate(cmd)
}

// decodeRoomID reads the bare room id string carried by the personal-room
// events.
func decodeRoomID(data json.RawMessage) (string, bool) {
	var roomID string
	if err := json.Unmarshal(data, &roomID); err != nil || roomID == "" {
		return "", false
	}
	return roomID, true
}
