// Package convert maps between core telemetry types and gorm models.
package convert

import (
	"encoding/json"

	"gorm.io/datatypes"

	"github.com/gw2overlay/linkbridge/internal/geo"
	"github.com/gw2overlay/linkbridge/internal/model"
	"github.com/gw2overlay/linkbridge/internal/telemetry"
	"github.com/gw2overlay/linkbridge/pkg/core"
)

func toDirection(v core.Vec3) model.Direction {
	return model.Direction{X: v.X, Y: v.Y, Z: v.Z}
}

func fromDirection(d model.Direction) core.Vec3 {
	return core.Vec3{X: d.X, Y: d.Y, Z: d.Z}
}

// uiFlagsJSON stores the flag names of mask as a JSON array.
func uiFlagsJSON(mask uint32) datatypes.JSON {
	names := telemetry.UIStateNames(mask)
	if len(names) == 0 {
		return datatypes.JSON("[]")
	}
	data, _ := json.Marshal(names)
	return datatypes.JSON(data)
}

func CoreToSession(s core.Session) model.Session {
	return model.Session{
		ID:        s.ID,
		StartTime: s.StartTime,
		Address:   s.Address,
		Segment:   s.Segment,
		Version:   s.Version,
	}
}

func SessionToCore(s model.Session) core.Session {
	return core.Session{
		ID:        s.ID,
		StartTime: s.StartTime,
		Address:   s.Address,
		Segment:   s.Segment,
		Version:   s.Version,
	}
}

func CoreToSample(s core.Sample) model.Sample {
	return model.Sample{
		ID:             s.ID,
		Time:           s.Time,
		SessionID:      s.SessionID,
		Tick:           s.Tick,
		MapID:          s.MapID,
		MapType:        s.MapType,
		ShardID:        s.ShardID,
		CharacterName:  s.CharacterName,
		AvatarPosition: geo.PointXYZ(s.AvatarPosition),
		AvatarFront:    toDirection(s.AvatarFront),
		CameraPosition: geo.PointXYZ(s.CameraPosition),
		CameraFront:    toDirection(s.CameraFront),
		UIState:        s.UIState,
		UIFlags:        uiFlagsJSON(s.UIState),
		MountIndex:     s.MountIndex,
		InCombat:       s.InCombat,
	}
}

// SampleToCore converts a stored sample. Empty positions come back as the
// origin.
func SampleToCore(s model.Sample) core.Sample {
	avatar, _ := geo.Vec3FromPoint(s.AvatarPosition)
	camera, _ := geo.Vec3FromPoint(s.CameraPosition)
	return core.Sample{
		ID:             s.ID,
		SessionID:      s.SessionID,
		Time:           s.Time,
		Tick:           s.Tick,
		MapID:          s.MapID,
		MapType:        s.MapType,
		ShardID:        s.ShardID,
		CharacterName:  s.CharacterName,
		AvatarPosition: avatar,
		AvatarFront:    fromDirection(s.AvatarFront),
		CameraPosition: camera,
		CameraFront:    fromDirection(s.CameraFront),
		UIState:        s.UIState,
		MountIndex:     s.MountIndex,
		InCombat:       s.InCombat,
	}
}

func CoreToMapChange(m core.MapChange) model.MapChange {
	return model.MapChange{
		ID:            m.ID,
		Time:          m.Time,
		SessionID:     m.SessionID,
		Tick:          m.Tick,
		FromMapID:     m.FromMapID,
		ToMapID:       m.ToMapID,
		CharacterName: m.CharacterName,
	}
}

func MapChangeToCore(m model.MapChange) core.MapChange {
	return core.MapChange{
		ID:            m.ID,
		SessionID:     m.SessionID,
		Time:          m.Time,
		Tick:          m.Tick,
		FromMapID:     m.FromMapID,
		ToMapID:       m.ToMapID,
		CharacterName: m.CharacterName,
	}
}
