package domain

import (
	"errors"
	"strings"
)

const MaxRoomIDLen = 64

var ErrRoomIDEmpty = errors.New("room id empty")

// RoomID identifies a room for the lifetime of the process.
type RoomID string

// ParseRoomID trims and bounds a room id coming from a client.
func ParseRoomID(raw string) (RoomID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrRoomIDEmpty
	}
	if len(raw) > MaxRoomIDLen {
		raw = raw[:MaxRoomIDLen]
	}
	return RoomID(raw), nil
}
