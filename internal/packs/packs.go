// Package packs merges marker packs into one catalog and answers per-map
// queries against it.
package packs

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gw2overlay/linkbridge/internal/markers"
	"github.com/gw2overlay/linkbridge/internal/trail"
)

// Pack is one marker pack as parsed from disk.
type Pack struct {
	Name       string                `json:"name"`
	Categories []markers.RawCategory `json:"categories"`
	POIs       []markers.RawPOI      `json:"pois"`
}

// LoadFile reads a JSON pack. A pack without a name is named after its file.
func LoadFile(path string) (Pack, error) {
	f, err := os.Open(path)
	if err != nil {
		return Pack{}, fmt.Errorf("failed to open pack: %w", err)
	}
	defer f.Close()

	var p Pack
	if err := json.NewDecoder(f).Decode(&p); err != nil {
		return Pack{}, fmt.Errorf("failed to decode pack %s: %w", path, err)
	}
	if p.Name == "" {
		p.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return p, nil
}

// MapSet is what a map would display.
type MapSet struct {
	MapID  uint32
	POIs   []*markers.POI
	Trails []*markers.Trail
}

// Catalog owns the category forest and every POI and trail merged into it.
type Catalog struct {
	mu        sync.RWMutex
	tree      *markers.Tree
	pois      []*markers.POI
	trails    []*markers.Trail
	loader    *trail.Loader
	halfWidth float32
	logger    *slog.Logger
}

// NewCatalog creates an empty catalog. loader may be nil, in which case trail
// tracks are never loaded.
func NewCatalog(loader *trail.Loader, halfWidth float32, logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	if halfWidth <= 0 {
		halfWidth = trail.DefaultHalfWidth
	}
	return &Catalog{
		tree:      markers.NewTree(),
		loader:    loader,
		halfWidth: halfWidth,
		logger:    logger,
	}
}

// LoadFiles loads and merges every path in order. Packs that cannot be read
// are logged and skipped.
func (c *Catalog) LoadFiles(paths []string) int {
	loaded := 0
	for _, path := range paths {
		p, err := LoadFile(path)
		if err != nil {
			c.logger.Warn("Skipping marker pack", "path", path, "error", err)
			continue
		}
		c.Merge(p)
		loaded++
	}
	return loaded
}

// Merge appends p's categories, POIs and trails. A root whose name is already
// taken is dropped with a warning; the earlier one stays authoritative.
func (c *Catalog) Merge(p Pack) {
	c.mu.Lock()
	defer c.mu.Unlock()

	logger := c.logger.With("pack", p.Name)
	for _, raw := range p.Categories {
		cat, err := markers.Materialize(raw)
		if err != nil {
			logger.Warn("Malformed category records", "category", raw.Name, "error", err)
		}
		if err := c.tree.AddRoot(cat); err != nil {
			if errors.Is(err, markers.ErrDuplicateRoot) {
				logger.Warn("Dropping duplicate root category", "category", raw.Name)
				continue
			}
			logger.Warn("Dropping root category", "category", raw.Name, "error", err)
		}
	}

	for _, raw := range p.POIs {
		if raw.IsTrail() {
			c.trails = append(c.trails, markers.NewTrailFromRaw(raw))
		} else {
			c.pois = append(c.pois, markers.NewPOIFromRaw(raw))
		}
	}
	logger.Debug("Merged marker pack", "categories", len(p.Categories), "pois", len(p.POIs))
}

// Resolve binds POIs and trails to their categories and loads trail tracks
// not yet loaded. It returns how many items were newly bound.
func (c *Catalog) Resolve() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	bound := markers.Resolve(c.tree, c.pois) + markers.Resolve(c.tree, c.trails)
	if c.loader == nil {
		return bound
	}
	for _, t := range c.trails {
		if t.TrackLoaded() || t.TrackFile == "" {
			continue
		}
		tr := c.loader.Load(t.TrackFile)
		t.SetTrack(tr.MapID, tr.Points)
	}
	return bound
}

// ForMap returns the enabled POIs and trails whose resolved map id is mapID.
// POIs without an icon are still returned but logged.
func (c *Catalog) ForMap(mapID uint32) MapSet {
	c.mu.RLock()
	defer c.mu.RUnlock()

	set := MapSet{MapID: mapID}
	for _, p := range c.pois {
		if !onMap(p, mapID) {
			continue
		}
		if icon, ok := p.Attr().IconFile(); !ok || icon == "" {
			c.logger.Warn("POI has no icon", "type", p.TypePath(), "map_id", mapID)
		}
		set.POIs = append(set.POIs, p)
	}
	for _, t := range c.trails {
		if onMap(t.POI, mapID) {
			set.Trails = append(set.Trails, t)
		}
	}
	return set
}

func onMap(p *markers.POI, mapID uint32) bool {
	if !p.Enabled() {
		return false
	}
	id, ok := p.Attr().MapID()
	return ok && id == mapID
}

// Ribbons builds the ribbon geometry for t at the catalog's width.
func (c *Catalog) Ribbons(t *markers.Trail) []trail.Strip {
	return trail.GenerateRibbon(t.Track(), c.halfWidth)
}

// Tree returns the category forest.
func (c *Catalog) Tree() *markers.Tree { return c.tree }

// Counts returns the number of categories, POIs and trails.
func (c *Catalog) Counts() (categories, pois, trails int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tree.Count(), len(c.pois), len(c.trails)
}
