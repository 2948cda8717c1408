package markers

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/cast"

	"github.com/gw2overlay/linkbridge/internal/cache"
	"github.com/gw2overlay/linkbridge/pkg/core"
)

// RawCategory is a category record as produced by a pack parser.
type RawCategory struct {
	Name       string            `json:"name"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Children   []RawCategory     `json:"children,omitempty"`
}

// RawPOI is a POI or trail record as produced by a pack parser. A record with
// a TrailData attribute is a trail.
type RawPOI struct {
	Type       string            `json:"type,omitempty"`
	Position   core.Vec3         `json:"position"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// IsTrail reports whether r describes a trail.
func (r RawPOI) IsTrail() bool {
	_, ok := r.attr("trailData")
	return ok
}

func (r RawPOI) attr(name string) (string, bool) {
	for k, v := range r.Attributes {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return "", false
}

// Materialize builds r into a category with parsed attributes and nested
// children. Children that cannot be attached are skipped and reported in err;
// the returned category is usable either way.
func Materialize(r RawCategory) (*Category, error) {
	c := NewCategory(r.Name, ParseAttributes(r.Attributes))
	var errs []error
	for _, raw := range r.Children {
		child, err := Materialize(raw)
		if err != nil {
			errs = append(errs, err)
		}
		if err := c.AddChild(child); err != nil {
			errs = append(errs, fmt.Errorf("in %s: %w", r.Name, err))
		}
	}
	return c, errors.Join(errs...)
}

// NewPOIFromRaw builds a POI from its record.
func NewPOIFromRaw(r RawPOI) *POI {
	return NewPOI(r.Type, r.Position, ParseAttributes(r.Attributes))
}

// NewTrailFromRaw builds a trail from its record.
func NewTrailFromRaw(r RawPOI) *Trail {
	track, _ := r.attr("trailData")
	texture, _ := r.attr("texture")
	t := NewTrail(r.Type, ParseAttributes(r.Attributes), track, texture)
	t.Color, _ = r.attr("color")
	if v, ok := r.attr("animSpeed"); ok {
		if speed := parse(v, cast.ToFloat32E); speed != nil {
			t.AnimSpeed = *speed
		}
	}
	return t
}

// Tree is the ordered forest of root categories.
type Tree struct {
	mu    sync.RWMutex
	roots []*Category
	memo  *cache.Cache[string, *Category]
}

func NewTree() *Tree {
	return &Tree{memo: cache.New[string, *Category]()}
}

// BuildTree materializes every record as a root, in order. It stops at the
// first root that collides with an earlier one.
func BuildTree(raws []RawCategory) (*Tree, error) {
	t := NewTree()
	for _, raw := range raws {
		c, err := Materialize(raw)
		if err != nil {
			return nil, err
		}
		if err := t.AddRoot(c); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// AddRoot appends a root category. Root names must be unique; the earlier
// root stays authoritative.
func (t *Tree) AddRoot(c *Category) error {
	if c.name == "" {
		return ErrEmptyName
	}
	if c.Parent() != nil {
		return fmt.Errorf("%w: %s", ErrAttached, c.name)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, r := range t.roots {
		if r.name == c.name {
			return fmt.Errorf("%w: %s", ErrDuplicateRoot, c.name)
		}
	}
	t.roots = append(t.roots, c)
	t.memo.Reset()
	return nil
}

// Roots returns the roots in declaration order.
func (t *Tree) Roots() []*Category {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*Category, len(t.roots))
	copy(out, t.roots)
	return out
}

// Root returns the root called name.
func (t *Tree) Root(name string) (*Category, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, r := range t.roots {
		if r.name == name {
			return r, true
		}
	}
	return nil, false
}

// Lookup resolves a full dotted type path to its category. A root whose name
// is the whole path wins; otherwise the root named by the first segment is
// searched with the remainder. Roots are tried in declaration order and the
// first hit wins. Results, including misses, are memoized until the next
// AddRoot.
func (t *Tree) Lookup(typePath string) (*Category, bool) {
	if typePath == "" {
		return nil, false
	}
	c := t.memo.GetOrCompute(typePath, func() *Category { return t.lookup(typePath) })
	return c, c != nil
}

func (t *Tree) lookup(typePath string) *Category {
	first, rest, _ := strings.Cut(typePath, ".")
	for _, root := range t.Roots() {
		if root.name == typePath {
			return root
		}
		if root.name == first {
			if c, ok := root.LookupDescendant(rest); ok {
				return c
			}
		}
	}
	return nil
}

// Count returns the number of categories in the forest.
func (t *Tree) Count() int {
	n := 0
	for _, r := range t.Roots() {
		r.Walk(func(*Category) bool {
			n++
			return true
		})
	}
	return n
}
