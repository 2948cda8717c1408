// pkg/core/telemetry.go
package core

import "time"

// Session is one run of the bridge; all samples recorded by that run share its ID.
type Session struct {
	ID        string
	StartTime time.Time
	Address   string
	Segment   string
	Version   string
}

// Sample is a recorded point-in-time reading of the shared record.
type Sample struct {
	ID             uint
	SessionID      string
	Time           time.Time
	Tick           uint32
	MapID          uint32
	MapType        uint32
	ShardID        uint32
	CharacterName  string
	AvatarPosition Vec3
	AvatarFront    Vec3
	CameraPosition Vec3
	CameraFront    Vec3
	UIState        uint32
	MountIndex     uint8
	InCombat       bool
}

// MapChange records the moment the context block reported a different map.
type MapChange struct {
	ID            uint
	SessionID     string
	Time          time.Time
	Tick          uint32
	FromMapID     uint32
	ToMapID       uint32
	CharacterName string
}
