// Package model holds the gorm persistence models for recorded telemetry.
package model

import (
	"time"

	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
)

// DatabaseModels lists the tables migrated on startup.
var DatabaseModels = []any{
	&Session{},
	&Sample{},
	&MapChange{},
	&BridgePerformance{},
}

// Session is one run of the bridge.
type Session struct {
	ID        string     `json:"id" gorm:"primarykey;size:36"`
	StartTime time.Time  `json:"startTime" gorm:"index:idx_session_start"`
	EndTime   *time.Time `json:"endTime"`
	Address   string     `json:"address" gorm:"size:64"`
	Segment   string     `json:"segment" gorm:"size:128"`
	Version   string     `json:"version" gorm:"size:32"`

	Samples    []Sample
	MapChanges []MapChange
}

func (*Session) TableName() string {
	return "sessions"
}

// Sample is one recorded reading of the shared record.
type Sample struct {
	ID        uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	Time      time.Time `json:"time" gorm:"index:idx_sample_time"`
	SessionID string    `json:"sessionId" gorm:"size:36;index:idx_sample_session_id"`
	Session   Session   `json:"-" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:SessionID;"`
	Tick      uint32    `json:"tick"`

	MapID         uint32 `json:"mapId" gorm:"index:idx_sample_map_id"`
	MapType       uint32 `json:"mapType"`
	ShardID       uint32 `json:"shardId"`
	CharacterName string `json:"characterName" gorm:"size:64"`

	AvatarPosition geom.Point `json:"avatarPosition"` // XYZ in game units
	AvatarFront    Direction  `json:"avatarFront" gorm:"embedded;embeddedPrefix:avatar_front_"`
	CameraPosition geom.Point `json:"cameraPosition"`
	CameraFront    Direction  `json:"cameraFront" gorm:"embedded;embeddedPrefix:camera_front_"`

	UIState    uint32         `json:"uiState"`
	UIFlags    datatypes.JSON `json:"uiFlags"` // names of the set UIState bits
	MountIndex uint8          `json:"mountIndex"`
	InCombat   bool           `json:"inCombat" gorm:"default:false"`
}

func (*Sample) TableName() string {
	return "samples"
}

// Direction is a unit vector stored as three columns.
type Direction struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
	Z float32 `json:"z"`
}

// MapChange marks a transition between maps.
type MapChange struct {
	ID            uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	Time          time.Time `json:"time"`
	SessionID     string    `json:"sessionId" gorm:"size:36;index:idx_mapchange_session_id"`
	Session       Session   `json:"-" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:SessionID;"`
	Tick          uint32    `json:"tick"`
	FromMapID     uint32    `json:"fromMapId"`
	ToMapID       uint32    `json:"toMapId" gorm:"index:idx_mapchange_to_map_id"`
	CharacterName string    `json:"characterName" gorm:"size:64"`
}

func (*MapChange) TableName() string {
	return "map_changes"
}

// BridgePerformance is a periodic snapshot of link and writer health.
type BridgePerformance struct {
	ID                  uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	Time                time.Time `json:"time" gorm:"index:idx_perf_time"`
	SessionID           string    `json:"sessionId" gorm:"size:36;index:idx_perf_session_id"`
	Received            uint64    `json:"received"`
	DroppedSize         uint64    `json:"droppedSize"`
	DroppedError        uint64    `json:"droppedError"`
	Timeouts            uint64    `json:"timeouts"`
	LastTick            uint32    `json:"lastTick"`
	Recorded            uint64    `json:"recorded"`
	QueueLength         int       `json:"queueLength"`
	QueueDropped        uint64    `json:"queueDropped"`
	LastWriteDurationMs float32   `json:"lastWriteDurationMs"`
}

func (*BridgePerformance) TableName() string {
	return "bridge_performances"
}
