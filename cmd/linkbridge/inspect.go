package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"strconv"

	"github.com/gw2overlay/linkbridge/internal/config"
	"github.com/gw2overlay/linkbridge/internal/geo"
	"github.com/gw2overlay/linkbridge/internal/packs"
	"github.com/gw2overlay/linkbridge/internal/shm"
	"github.com/gw2overlay/linkbridge/internal/telemetry"
	"github.com/gw2overlay/linkbridge/internal/trail"
	"github.com/gw2overlay/linkbridge/pkg/core"
)

type snapshotView struct {
	Segment     string              `json:"segment"`
	Version     uint32              `json:"version"`
	Tick        uint32              `json:"tick"`
	Ready       bool                `json:"ready"`
	Name        string              `json:"name"`
	Identity    *telemetry.Identity `json:"identity,omitempty"`
	IdentityErr string              `json:"identityError,omitempty"`
	MapID       uint32              `json:"mapId"`
	MapType     uint32              `json:"mapType"`
	UIState     []string            `json:"uiState"`
	MountIndex  uint8               `json:"mountIndex"`
	Avatar      core.Vec3           `json:"avatarPosition"`
	AvatarFront core.Vec3           `json:"avatarFront"`
	Camera      core.Vec3           `json:"cameraPosition"`
	CameraFront core.Vec3           `json:"cameraFront"`
}

func newSnapshotView(segment string, snap telemetry.Snapshot) snapshotView {
	ctx := snap.Context()
	v := snapshotView{
		Segment:     segment,
		Version:     snap.Version(),
		Tick:        snap.Tick(),
		Ready:       snap.Ready(),
		Name:        snap.Name(),
		MapID:       ctx.MapID,
		MapType:     ctx.MapType,
		UIState:     telemetry.UIStateNames(ctx.UIState),
		MountIndex:  ctx.MountIndex,
		Avatar:      snap.AvatarPosition(),
		AvatarFront: snap.AvatarFront(),
		Camera:      snap.CameraPosition(),
		CameraFront: snap.CameraFront(),
	}
	if id, err := snap.Identity(); err != nil {
		v.IdentityErr = err.Error()
	} else if id.Name != "" {
		v.Identity = &id
	}
	return v
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// snapshotCmd prints the record currently in the shared segment.
func snapshotCmd(w io.Writer) error {
	region, err := shm.OpenOrCreate(shm.SegmentName(config.GetShmConfig().Name))
	if err != nil {
		return err
	}
	defer region.Close()

	snap, err := region.Snapshot()
	if err != nil {
		return err
	}
	if !snap.Ready() {
		Logger.Warn("Shared record has no frame yet", "segment", region.Name())
	}
	return writeJSON(w, newSnapshotView(region.Name(), snap))
}

type trailView struct {
	File      string  `json:"file"`
	MapID     uint32  `json:"mapId"`
	Points    int     `json:"points"`
	Segments  int     `json:"segments"`
	Length    float64 `json:"length"`
	Strips    int     `json:"strips"`
	Quads     int     `json:"quads"`
	HalfWidth float32 `json:"halfWidth"`
}

// trailCmd decodes one track file, or an inline JSON point list, and reports
// its ribbon geometry. With -out the track is also written as a .trl file.
func trailCmd(w io.Writer, args []string) error {
	fs := flag.NewFlagSet("trail", flag.ContinueOnError)
	width := fs.Float64("width", float64(config.GetPackConfig().RibbonHalfWidth), "ribbon half width")
	points := fs.String("points", "", `inline track as JSON, e.g. "[[x,y,z],...]"`)
	mapID := fs.Uint("map", 0, "map id for an inline track")
	out := fs.String("out", "", "write the track to this .trl file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var (
		path string
		tr   trail.Track
	)
	switch {
	case *points != "" && fs.NArg() == 0:
		pts, err := geo.ParsePath(*points)
		if err != nil {
			return err
		}
		path = "-"
		tr = trail.Track{MapID: uint32(*mapID), Points: pts}
	case *points == "" && fs.NArg() == 1:
		path = fs.Arg(0)
		var err error
		if tr, err = trail.ReadFile(path); err != nil {
			return err
		}
	default:
		return fmt.Errorf("expected one track file or -points")
	}

	if *out != "" {
		if err := trail.WriteFile(*out, tr); err != nil {
			return err
		}
	}

	halfWidth := float32(*width)
	strips := trail.GenerateRibbon(tr.Points, halfWidth)
	quads := 0
	for _, s := range strips {
		quads += s.Segments()
	}
	return writeJSON(w, trailView{
		File:      path,
		MapID:     tr.MapID,
		Points:    len(tr.Points),
		Segments:  len(trail.Segments(tr.Points)),
		Length:    trail.Length(tr.Points),
		Strips:    len(strips),
		Quads:     quads,
		HalfWidth: halfWidth,
	})
}

type markerView struct {
	Type     string    `json:"type"`
	Category string    `json:"category,omitempty"`
	Name     string    `json:"name,omitempty"`
	Icon     string    `json:"icon,omitempty"`
	Position core.Vec3 `json:"position"`
}

type resolveView struct {
	Packs      int          `json:"packs"`
	Categories int          `json:"categories"`
	POIs       int          `json:"pois"`
	Trails     int          `json:"trails"`
	Bound      int          `json:"bound"`
	MapID      uint32       `json:"mapId,omitempty"`
	OnMap      []markerView `json:"onMap,omitempty"`
	TrailsOn   []string     `json:"trailsOnMap,omitempty"`
}

// resolveCmd loads packs, runs the resolution pass, and optionally lists what
// one map would display.
func resolveCmd(w io.Writer, args []string) error {
	fs := flag.NewFlagSet("resolve", flag.ContinueOnError)
	mapFlag := fs.String("map", "", "map id to list")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := config.GetPackConfig()
	files := fs.Args()
	if len(files) == 0 {
		files = cfg.Files
	}
	if len(files) == 0 {
		return fmt.Errorf("no packs given")
	}

	loader := trail.NewLoader(cfg.TrailDir, cfg.TrailCacheSize, cfg.TrailCacheTTL, Logger)
	catalog := packs.NewCatalog(loader, cfg.RibbonHalfWidth, Logger)

	view := resolveView{Packs: catalog.LoadFiles(files)}
	view.Bound = catalog.Resolve()
	view.Categories, view.POIs, view.Trails = catalog.Counts()

	if *mapFlag != "" {
		id, err := strconv.ParseUint(*mapFlag, 10, 32)
		if err != nil {
			return fmt.Errorf("invalid map id %q: %w", *mapFlag, err)
		}
		view.MapID = uint32(id)
		set := catalog.ForMap(view.MapID)
		for _, p := range set.POIs {
			m := markerView{Type: p.TypePath(), Position: p.Position()}
			if c := p.Parent(); c != nil {
				m.Category = c.Path()
			}
			m.Name, _ = p.Attr().DisplayName()
			m.Icon, _ = p.Attr().IconFile()
			view.OnMap = append(view.OnMap, m)
		}
		for _, t := range set.Trails {
			view.TrailsOn = append(view.TrailsOn, t.TrackFile)
		}
	}
	return writeJSON(w, view)
}
