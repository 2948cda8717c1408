package telemetry

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Identity is the JSON document the game writes into the identity field.
type Identity struct {
	Name        string  `json:"name"`
	Profession  uint32  `json:"profession"`
	Spec        uint32  `json:"spec"`
	Race        uint32  `json:"race"`
	MapID       uint32  `json:"map_id"`
	WorldID     uint32  `json:"world_id"`
	TeamColorID uint32  `json:"team_color_id"`
	Commander   bool    `json:"commander"`
	FOV         float32 `json:"fov"`
	UISize      uint32  `json:"uisz"`
}

// ParseIdentity decodes the identity document. An empty string yields a zero
// Identity and no error; the game leaves it blank before character select.
func ParseIdentity(raw string) (Identity, error) {
	var id Identity
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return id, nil
	}
	if err := json.Unmarshal([]byte(raw), &id); err != nil {
		return Identity{}, fmt.Errorf("parsing identity: %w", err)
	}
	return id, nil
}
