package markers

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"weak"
)

var (
	ErrDuplicateChild = errors.New("markers: duplicate child category")
	ErrDuplicateRoot  = errors.New("markers: duplicate root category")
	ErrCycle          = errors.New("markers: category would become its own ancestor")
	ErrAttached       = errors.New("markers: category already has a parent")
	ErrEmptyName      = errors.New("markers: category name is empty")
)

// Category is a named node of display-attribute defaults. Children are owned
// by their parent; the parent link is weak and only used for inheritance, so
// whoever holds the roots must outlive the POIs that inherit through them.
type Category struct {
	mu       sync.RWMutex
	name     string
	attrs    Attributes
	children map[string]*Category
	order    []string
	parent   weak.Pointer[Category]
}

// NewCategory creates a detached category.
func NewCategory(name string, attrs Attributes) *Category {
	return &Category{
		name:     name,
		attrs:    attrs,
		children: make(map[string]*Category),
	}
}

func (c *Category) Name() string { return c.name }

// Parent returns the enclosing category, or nil for a root.
func (c *Category) Parent() *Category {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.parent.Value()
}

// Attributes returns a copy of the category's own attributes.
func (c *Category) Attributes() Attributes {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.attrs
}

// UpdateAttributes edits the category's own attributes under its write lock.
func (c *Category) UpdateAttributes(fn func(*Attributes)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(&c.attrs)
}

// Attr returns the inherited attribute view of c.
func (c *Category) Attr() AttrView { return AttrView{h: c} }

// AddChild attaches child under c. Names are unique among siblings, a child
// can only be attached once, and c may not be a descendant of child.
func (c *Category) AddChild(child *Category) error {
	if child.name == "" {
		return ErrEmptyName
	}
	for p := c; p != nil; p = p.Parent() {
		if p == child {
			return fmt.Errorf("%w: %s", ErrCycle, child.name)
		}
	}

	child.mu.Lock()
	defer child.mu.Unlock()
	if child.parent.Value() != nil {
		return fmt.Errorf("%w: %s", ErrAttached, child.name)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.children[child.name]; ok {
		return fmt.Errorf("%w: %s.%s", ErrDuplicateChild, c.name, child.name)
	}
	c.children[child.name] = child
	c.order = append(c.order, child.name)
	child.parent = weak.Make(c)
	return nil
}

// Child returns the immediate child called name.
func (c *Category) Child(name string) (*Category, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	child, ok := c.children[name]
	return child, ok
}

// Children returns the immediate children in declaration order.
func (c *Category) Children() []*Category {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Category, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.children[name])
	}
	return out
}

// LookupDescendant finds a category below c by a dotted path that does not
// include c's own name. Each step matches the first path segment against an
// immediate child; a child whose name equals the whole remaining path is
// returned as is.
func (c *Category) LookupDescendant(path string) (*Category, bool) {
	node := c
	for {
		head, rest, _ := strings.Cut(path, ".")
		child, ok := node.Child(head)
		if !ok {
			return nil, false
		}
		if child.name == path {
			return child, true
		}
		node, path = child, rest
	}
}

// Path is the dotted name from the root down to c.
func (c *Category) Path() string {
	var parts []string
	for p := c; p != nil; p = p.Parent() {
		parts = append(parts, p.name)
	}
	slices.Reverse(parts)
	return strings.Join(parts, ".")
}

// Walk visits c and its descendants depth first in declaration order until
// fn returns false.
func (c *Category) Walk(fn func(*Category) bool) bool {
	if !fn(c) {
		return false
	}
	for _, child := range c.Children() {
		if !child.Walk(fn) {
			return false
		}
	}
	return true
}
