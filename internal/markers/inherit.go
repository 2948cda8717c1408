package markers

// Inheritor is an attribute holder that may fall back to a parent category.
// Categories and POIs both implement it.
type Inheritor interface {
	Attributes() Attributes
	Parent() *Category
}

// inherited walks from h up the parent chain and returns the first set value
// of field. Each hop takes and releases that node's lock on its own.
func inherited[T any](h Inheritor, field func(*Attributes) *T) (T, bool) {
	for h != nil {
		a := h.Attributes()
		if v := field(&a); v != nil {
			return *v, true
		}
		p := h.Parent()
		if p == nil {
			break
		}
		h = p
	}
	var zero T
	return zero, false
}

// AttrView answers attribute queries with inheritance applied.
type AttrView struct {
	h Inheritor
}

// ViewOf returns the inherited view of any holder.
func ViewOf(h Inheritor) AttrView { return AttrView{h: h} }

func (v AttrView) MapID() (uint32, bool) {
	return inherited(v.h, func(a *Attributes) *uint32 { return a.MapID })
}

func (v AttrView) IconFile() (string, bool) {
	return inherited(v.h, func(a *Attributes) *string { return a.IconFile })
}

func (v AttrView) GUID() (string, bool) {
	return inherited(v.h, func(a *Attributes) *string { return a.GUID })
}

func (v AttrView) IconSize() (float32, bool) {
	return inherited(v.h, func(a *Attributes) *float32 { return a.IconSize })
}

func (v AttrView) Alpha() (float32, bool) {
	return inherited(v.h, func(a *Attributes) *float32 { return a.Alpha })
}

func (v AttrView) Behavior() (Behavior, bool) {
	return inherited(v.h, func(a *Attributes) *Behavior { return a.Behavior })
}

func (v AttrView) FadeNear() (float32, bool) {
	return inherited(v.h, func(a *Attributes) *float32 { return a.FadeNear })
}

func (v AttrView) FadeFar() (float32, bool) {
	return inherited(v.h, func(a *Attributes) *float32 { return a.FadeFar })
}

func (v AttrView) HeightOffset() (float32, bool) {
	return inherited(v.h, func(a *Attributes) *float32 { return a.HeightOffset })
}

func (v AttrView) ResetLength() (float32, bool) {
	return inherited(v.h, func(a *Attributes) *float32 { return a.ResetLength })
}

func (v AttrView) DisplayName() (string, bool) {
	return inherited(v.h, func(a *Attributes) *string { return a.DisplayName })
}

func (v AttrView) AutoTrigger() (bool, bool) {
	return inherited(v.h, func(a *Attributes) *bool { return a.AutoTrigger })
}

func (v AttrView) HasCountdown() (bool, bool) {
	return inherited(v.h, func(a *Attributes) *bool { return a.HasCountdown })
}

func (v AttrView) TriggerRange() (float32, bool) {
	return inherited(v.h, func(a *Attributes) *float32 { return a.TriggerRange })
}

func (v AttrView) AchievementID() (int32, bool) {
	return inherited(v.h, func(a *Attributes) *int32 { return a.AchievementID })
}

func (v AttrView) AchievementBit() (int32, bool) {
	return inherited(v.h, func(a *Attributes) *int32 { return a.AchievementBit })
}

func (v AttrView) Info() (string, bool) {
	return inherited(v.h, func(a *Attributes) *string { return a.Info })
}

func (v AttrView) InfoRange() (float32, bool) {
	return inherited(v.h, func(a *Attributes) *float32 { return a.InfoRange })
}

func (v AttrView) IsPOI() (bool, bool) {
	return inherited(v.h, func(a *Attributes) *bool { return a.IsPOI })
}

// Effective flattens the chain into one Attributes value, nearest value first.
func (v AttrView) Effective() Attributes {
	var out Attributes
	for h := v.h; h != nil; {
		out = out.Or(h.Attributes())
		p := h.Parent()
		if p == nil {
			break
		}
		h = p
	}
	return out
}
