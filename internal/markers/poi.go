package markers

import (
	"errors"
	"sync"

	"github.com/gw2overlay/linkbridge/pkg/core"
)

// ErrAlreadyBound is returned when a POI's parent is set a second time.
var ErrAlreadyBound = errors.New("markers: poi already bound to a category")

// POI is a point of interest placed in the world. Its parent category is
// bound at most once, by the resolution pass.
type POI struct {
	mu       sync.RWMutex
	typePath string
	position core.Vec3
	attrs    Attributes
	parent   *Category
	enabled  bool
}

// NewPOI creates an enabled, unbound POI. An empty typePath means the POI has
// no category.
func NewPOI(typePath string, pos core.Vec3, attrs Attributes) *POI {
	return &POI{
		typePath: typePath,
		position: pos,
		attrs:    attrs,
		enabled:  true,
	}
}

func (p *POI) TypePath() string    { return p.typePath }
func (p *POI) Position() core.Vec3 { return p.position }

func (p *POI) Enabled() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.enabled
}

func (p *POI) SetEnabled(enabled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.enabled = enabled
}

// Parent returns the bound category, or nil while unresolved.
func (p *POI) Parent() *Category {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.parent
}

// Bound reports whether the resolution pass found a category.
func (p *POI) Bound() bool { return p.Parent() != nil }

// Bind sets the parent category. It fails once a parent is set.
func (p *POI) Bind(c *Category) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.parent != nil {
		return ErrAlreadyBound
	}
	p.parent = c
	return nil
}

// Attributes returns a copy of the POI's own attributes.
func (p *POI) Attributes() Attributes {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.attrs
}

// UpdateAttributes edits the POI's own attributes. Setting a field shadows the
// inherited value without touching the category.
func (p *POI) UpdateAttributes(fn func(*Attributes)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn(&p.attrs)
}

// Attr returns the inherited attribute view of p.
func (p *POI) Attr() AttrView { return AttrView{h: p} }

// Trail is a POI drawn as a ribbon along a recorded track.
type Trail struct {
	*POI
	TrackFile string
	Texture   string
	Color     string
	AnimSpeed float32

	trackMu sync.RWMutex
	track   []core.Vec3
	loaded  bool
}

// NewTrail creates an enabled, unbound trail with no track loaded.
func NewTrail(typePath string, attrs Attributes, trackFile, texture string) *Trail {
	return &Trail{
		POI:       NewPOI(typePath, core.Vec3{}, attrs),
		TrackFile: trackFile,
		Texture:   texture,
	}
}

// SetTrack stores the loaded track. When the trail has no own MapID the track
// header's map id is adopted.
func (t *Trail) SetTrack(mapID uint32, points []core.Vec3) {
	t.trackMu.Lock()
	t.track = points
	t.loaded = true
	t.trackMu.Unlock()

	if mapID == 0 {
		return
	}
	t.UpdateAttributes(func(a *Attributes) {
		if a.MapID == nil {
			a.MapID = Opt(mapID)
		}
	})
}

// Track returns the loaded points; nil before SetTrack.
func (t *Trail) Track() []core.Vec3 {
	t.trackMu.RLock()
	defer t.trackMu.RUnlock()
	return t.track
}

func (t *Trail) TrackLoaded() bool {
	t.trackMu.RLock()
	defer t.trackMu.RUnlock()
	return t.loaded
}
