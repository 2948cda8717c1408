// Package markers models marker categories and the POIs and trails that
// reference them. Display attributes are optional at every level; an unset
// attribute falls back to the enclosing category.
package markers

import (
	"strings"

	"github.com/spf13/cast"

	"github.com/gw2overlay/linkbridge/internal/util"
)

// Behavior controls when an activated marker reappears.
type Behavior int32

const (
	BehaviorDefault                     Behavior = 0
	BehaviorReappearOnMapChange         Behavior = 1
	BehaviorReappearOnDailyReset        Behavior = 2
	BehaviorOnlyVisibleBeforeActivation Behavior = 3
	BehaviorReappearAfterTimer          Behavior = 4
	BehaviorReappearOnMapReset          Behavior = 5
	BehaviorOncePerInstance             Behavior = 6
	BehaviorOnceDailyPerCharacter       Behavior = 7
	BehaviorActionOnCombat              Behavior = 23732
)

var behaviorNames = map[Behavior]string{
	BehaviorDefault:                     "default",
	BehaviorReappearOnMapChange:         "reappear_on_map_change",
	BehaviorReappearOnDailyReset:        "reappear_on_daily_reset",
	BehaviorOnlyVisibleBeforeActivation: "only_visible_before_activation",
	BehaviorReappearAfterTimer:          "reappear_after_timer",
	BehaviorReappearOnMapReset:          "reappear_on_map_reset",
	BehaviorOncePerInstance:             "once_per_instance",
	BehaviorOnceDailyPerCharacter:       "once_daily_per_character",
	BehaviorActionOnCombat:              "action_on_combat",
}

func (b Behavior) String() string {
	if s, ok := behaviorNames[b]; ok {
		return s
	}
	return "unknown"
}

// Valid reports whether b is one of the known behaviors.
func (b Behavior) Valid() bool {
	_, ok := behaviorNames[b]
	return ok
}

// Attributes holds the inheritable display attributes. A nil field is unset
// and inherits; a non-nil field shadows every ancestor, even when it holds the
// zero value. Replace fields rather than writing through the pointers, since
// copies share them.
type Attributes struct {
	MapID          *uint32   `json:"map_id,omitempty"`
	IconFile       *string   `json:"icon_file,omitempty"`
	GUID           *string   `json:"guid,omitempty"`
	IconSize       *float32  `json:"icon_size,omitempty"`
	Alpha          *float32  `json:"alpha,omitempty"`
	Behavior       *Behavior `json:"behavior,omitempty"`
	FadeNear       *float32  `json:"fade_near,omitempty"`
	FadeFar        *float32  `json:"fade_far,omitempty"`
	HeightOffset   *float32  `json:"height_offset,omitempty"`
	ResetLength    *float32  `json:"reset_length,omitempty"`
	DisplayName    *string   `json:"display_name,omitempty"`
	AutoTrigger    *bool     `json:"auto_trigger,omitempty"`
	HasCountdown   *bool     `json:"has_countdown,omitempty"`
	TriggerRange   *float32  `json:"trigger_range,omitempty"`
	AchievementID  *int32    `json:"achievement_id,omitempty"`
	AchievementBit *int32    `json:"achievement_bit,omitempty"`
	Info           *string   `json:"info,omitempty"`
	InfoRange      *float32  `json:"info_range,omitempty"`
	IsPOI          *bool     `json:"is_poi,omitempty"`
}

// Opt returns a pointer to v, for filling Attributes fields.
func Opt[T any](v T) *T {
	return &v
}

// Or returns a copy of a with every unset field taken from fallback.
func (a Attributes) Or(fallback Attributes) Attributes {
	out := a
	fill(&out.MapID, fallback.MapID)
	fill(&out.IconFile, fallback.IconFile)
	fill(&out.GUID, fallback.GUID)
	fill(&out.IconSize, fallback.IconSize)
	fill(&out.Alpha, fallback.Alpha)
	fill(&out.Behavior, fallback.Behavior)
	fill(&out.FadeNear, fallback.FadeNear)
	fill(&out.FadeFar, fallback.FadeFar)
	fill(&out.HeightOffset, fallback.HeightOffset)
	fill(&out.ResetLength, fallback.ResetLength)
	fill(&out.DisplayName, fallback.DisplayName)
	fill(&out.AutoTrigger, fallback.AutoTrigger)
	fill(&out.HasCountdown, fallback.HasCountdown)
	fill(&out.TriggerRange, fallback.TriggerRange)
	fill(&out.AchievementID, fallback.AchievementID)
	fill(&out.AchievementBit, fallback.AchievementBit)
	fill(&out.Info, fallback.Info)
	fill(&out.InfoRange, fallback.InfoRange)
	fill(&out.IsPOI, fallback.IsPOI)
	return out
}

func fill[T any](dst **T, src *T) {
	if *dst == nil {
		*dst = src
	}
}

// ParseAttributes reads the attribute strings of a parsed marker record. Keys
// are matched case-insensitively (MapID, iconFile, GUID, ...). A numeric or
// boolean value that does not parse leaves the attribute unset.
func ParseAttributes(raw map[string]string) Attributes {
	var a Attributes
	for k, v := range raw {
		a.set(strings.ToLower(k), util.TrimQuotes(strings.TrimSpace(v)))
	}
	return a
}

func (a *Attributes) set(key, v string) {
	switch key {
	case "mapid":
		a.MapID = parseInt(v, cast.ToUint32E)
	case "iconfile":
		a.IconFile = Opt(v)
	case "guid":
		a.GUID = Opt(v)
	case "iconsize":
		a.IconSize = parseFloat(v, cast.ToFloat32E)
	case "alpha":
		a.Alpha = parseFloat(v, cast.ToFloat32E)
	case "behavior":
		if n := parseInt(v, cast.ToInt32E); n != nil {
			a.Behavior = Opt(Behavior(*n))
		}
	case "fadenear":
		a.FadeNear = parseFloat(v, cast.ToFloat32E)
	case "fadefar":
		a.FadeFar = parseFloat(v, cast.ToFloat32E)
	case "heightoffset":
		a.HeightOffset = parseFloat(v, cast.ToFloat32E)
	case "resetlength":
		a.ResetLength = parseFloat(v, cast.ToFloat32E)
	case "displayname":
		a.DisplayName = Opt(v)
	case "autotrigger":
		a.AutoTrigger = parse(v, cast.ToBoolE)
	case "hascountdown":
		a.HasCountdown = parse(v, cast.ToBoolE)
	case "triggerrange":
		a.TriggerRange = parseFloat(v, cast.ToFloat32E)
	case "achievementid":
		a.AchievementID = parseInt(v, cast.ToInt32E)
	case "achievementbit":
		a.AchievementBit = parseInt(v, cast.ToInt32E)
	case "info":
		a.Info = Opt(v)
	case "inforange":
		a.InfoRange = parseFloat(v, cast.ToFloat32E)
	case "ispoi":
		a.IsPOI = parse(v, cast.ToBoolE)
	}
}

func parse[T any](v string, conv func(any) (T, error)) *T {
	if v == "" {
		return nil
	}
	out, err := conv(v)
	if err != nil {
		return nil
	}
	return &out
}

// parseInt reads v as a base-10 integer. Leading zeros do not switch to octal
// and base prefixes or digit separators are rejected.
func parseInt[T any](v string, conv func(any) (T, error)) *T {
	d, ok := decimal(v)
	if !ok {
		return nil
	}
	sign := ""
	if d[0] == '+' || d[0] == '-' {
		sign, d = d[:1], d[1:]
	}
	if d == "" {
		return nil
	}
	if d = strings.TrimLeft(d, "0"); d == "" {
		d = "0"
	}
	return parse(sign+d, conv)
}

func parseFloat[T any](v string, conv func(any) (T, error)) *T {
	d, ok := decimal(v)
	if !ok {
		return nil
	}
	return parse(d, conv)
}

// decimal rejects numeric spellings that are not plain decimal: 0x, 0o and
// 0b prefixes and underscores.
func decimal(v string) (string, bool) {
	if v == "" || strings.Contains(v, "_") {
		return "", false
	}
	digits := strings.TrimLeft(v, "+-")
	if len(digits) > 1 && digits[0] == '0' && strings.ContainsRune("xXoObB", rune(digits[1])) {
		return "", false
	}
	return v, true
}
