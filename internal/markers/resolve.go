package markers

// Bindable is anything the resolution pass can attach to a category.
type Bindable interface {
	TypePath() string
	Bind(*Category) error
	Bound() bool
}

// Resolve binds every unbound item with a type path to the category that path
// names in t and returns how many were bound. Items without a path, or whose
// path matches nothing, stay parentless and resolve to their own attributes.
func Resolve[B Bindable](t *Tree, items []B) int {
	bound := 0
	for _, it := range items {
		if it.Bound() {
			continue
		}
		c, ok := t.Lookup(it.TypePath())
		if !ok {
			continue
		}
		if err := it.Bind(c); err == nil {
			bound++
		}
	}
	return bound
}
