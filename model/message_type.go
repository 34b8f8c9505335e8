package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidMessageType = errors.New("invalid message type")

// MessageType is who authored a message. It is fixed at creation.
type MessageType string

const (
	MessageTypeUser   MessageType = "user"
	MessageTypeAI     MessageType = "ai"
	MessageTypeSystem MessageType = "system"
)

// ParseMessageType accepts either the value ("ai") or the enum name ("AI"), in any case.
func ParseMessageType(s string) (MessageType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "user":
		return MessageTypeUser, nil
	case "ai":
		return MessageTypeAI, nil
	case "system":
		return MessageTypeSystem, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidMessageType, s)
}

func (t MessageType) Valid() bool {
	_, err := ParseMessageType(string(t))
	return err == nil
}

// UnmarshalJSON leaves t untouched on null, the same as an absent key.
func (t *MessageType) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidMessageType, string(b))
	}
	parsed, err := ParseMessageType(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
