package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gw2overlay/linkbridge/internal/telemetry"
)

// SessionExport is the root JSON structure.
type SessionExport struct {
	SessionID string    `json:"sessionId"`
	Version   string    `json:"version"`
	Address   string    `json:"address"`
	Segment   string    `json:"segment"`
	StartTime time.Time `json:"startTime"`
	EndTick   uint32    `json:"endTick"`
	Maps      []MapJSON `json:"maps"`
	Changes   [][]any   `json:"mapChanges"`
}

// MapJSON is one map visit. Each sample is
// [tick, [x,y,z], [fx,fy,fz], [cx,cy,cz], uiFlags, mountIndex].
type MapJSON struct {
	MapID     uint32  `json:"mapId"`
	MapType   uint32  `json:"mapType"`
	Character string  `json:"character,omitempty"`
	Samples   [][]any `json:"samples"`
}

// exportJSON writes the session to OutputDir. Callers hold b.mu.
func (b *Backend) exportJSON() error {
	export := b.buildExport()

	name := strings.NewReplacer(" ", "_", ":", "_", "/", "_").Replace(b.session.ID)
	filename := fmt.Sprintf("linkbridge_%s_%s.json", b.session.StartTime.Format("20060102_150405"), name)
	if b.cfg.CompressOutput {
		filename += ".gz"
	}

	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	outputPath := filepath.Join(b.cfg.OutputDir, filename)

	if err := writeExport(outputPath, export, b.cfg.CompressOutput); err != nil {
		return err
	}
	b.lastExportPath = outputPath
	return nil
}

func (b *Backend) buildExport() SessionExport {
	export := SessionExport{
		SessionID: b.session.ID,
		Version:   b.session.Version,
		Address:   b.session.Address,
		Segment:   b.session.Segment,
		StartTime: b.session.StartTime,
		Maps:      make([]MapJSON, 0, len(b.visits)),
		Changes:   make([][]any, 0, len(b.mapChanges)),
	}

	for _, visit := range b.visits {
		m := MapJSON{MapID: visit.MapID, Samples: make([][]any, 0, len(visit.Samples))}
		for _, s := range visit.Samples {
			m.MapType = s.MapType
			if s.CharacterName != "" {
				m.Character = s.CharacterName
			}
			m.Samples = append(m.Samples, []any{
				s.Tick,
				s.AvatarPosition.Array(),
				s.AvatarFront.Array(),
				s.CameraPosition.Array(),
				uiFlags(s.UIState),
				s.MountIndex,
			})
			export.EndTick = max(export.EndTick, s.Tick)
		}
		export.Maps = append(export.Maps, m)
	}

	// [tick, fromMapId, toMapId, character]
	for _, c := range b.mapChanges {
		export.Changes = append(export.Changes, []any{c.Tick, c.FromMapID, c.ToMapID, c.CharacterName})
		export.EndTick = max(export.EndTick, c.Tick)
	}
	return export
}

func uiFlags(mask uint32) []string {
	names := telemetry.UIStateNames(mask)
	if names == nil {
		return []string{}
	}
	return names
}

func writeExport(path string, data SessionExport, compress bool) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	var w io.Writer = f
	if compress {
		gz := gzip.NewWriter(f)
		defer gz.Close()
		w = gz
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		return fmt.Errorf("failed to encode export: %w", err)
	}
	return nil
}
