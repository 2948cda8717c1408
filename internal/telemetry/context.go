package telemetry

// UIState is a bit of the context block's ui_state mask.
type UIState uint32

const (
	UIMapOpen UIState = 1 << iota
	UICompassTopRight
	UICompassRotation
	UIGameFocus
	UICompetitiveMode
	UITextboxFocus
	UIInCombat
)

var uiStateNames = map[UIState]string{
	UIMapOpen:         "map_open",
	UICompassTopRight: "compass_top_right",
	UICompassRotation: "compass_rotation",
	UIGameFocus:       "game_focus",
	UICompetitiveMode: "competitive",
	UITextboxFocus:    "textbox_focus",
	UIInCombat:        "in_combat",
}

func (s UIState) String() string {
	if name, ok := uiStateNames[s]; ok {
		return name
	}
	return "unknown"
}

// ContextBlock is the game-specific overlay of the record's 256-byte context buffer.
// Field order and widths are the wire contract; see ContextBlockSize.
type ContextBlock struct {
	ServerAddress   [28]byte // sockaddr_in or sockaddr_in6
	MapID           uint32
	MapType         uint32
	ShardID         uint32
	Instance        uint32
	BuildID         uint32
	UIState         uint32
	CompassWidth    uint16 // pixels
	CompassHeight   uint16 // pixels
	CompassRotation float32
	PlayerX         float32 // continent coordinates
	PlayerY         float32
	MapCenterX      float32
	MapCenterY      float32
	MapScale        float32
	ProcessID       uint32
	MountIndex      uint8
}

// HasUIState reports whether every bit of s is set in the ui_state mask.
func (c ContextBlock) HasUIState(s UIState) bool {
	return UIState(c.UIState)&s == s && s != 0
}

// ActiveUIStates lists the known flags that are set, lowest bit first.
func (c ContextBlock) ActiveUIStates() []UIState {
	var out []UIState
	for bit := UIMapOpen; bit <= UIInCombat; bit <<= 1 {
		if c.HasUIState(bit) {
			out = append(out, bit)
		}
	}
	return out
}

// UIStateNames lists the names of the known flags set in mask.
func UIStateNames(mask uint32) []string {
	var names []string
	for _, s := range (ContextBlock{UIState: mask}).ActiveUIStates() {
		names = append(names, s.String())
	}
	return names
}
