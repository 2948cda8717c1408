package markers

import (
	"runtime"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gw2overlay/linkbridge/pkg/core"
)

func abcTree(t *testing.T) *Tree {
	t.Helper()
	tree, err := BuildTree([]RawCategory{{
		Name: "A",
		Children: []RawCategory{{
			Name:     "B",
			Children: []RawCategory{{Name: "C", Attributes: map[string]string{"iconFile": "c.png"}}},
		}},
	}})
	require.NoError(t, err)
	return tree
}

func karkaTree(t *testing.T) *Tree {
	t.Helper()
	tree, err := BuildTree([]RawCategory{{
		Name: "collectible",
		Children: []RawCategory{{
			Name:       "LionArchKarka",
			Attributes: map[string]string{"DisplayName": "Lion's Arch Exterminator"},
			Children: []RawCategory{{
				Name:       "Part1",
				Attributes: map[string]string{"DisplayName": "Part 1"},
				Children: []RawCategory{
					{Name: "Karka1", Attributes: map[string]string{"DisplayName": "Trail", "iconFile": `Data\Karkasymbol.png`}},
					{Name: "Karkastart1", Attributes: map[string]string{"DisplayName": "Start", "iconFile": `Data\Karkahunt1.png`}},
					{Name: "Karkaend1", Attributes: map[string]string{"DisplayName": "End", "iconFile": `Data\KarkasymbolEnd1.png`}},
				},
			}},
		}},
	}})
	require.NoError(t, err)
	return tree
}

func TestParseAttributes(t *testing.T) {
	a := ParseAttributes(map[string]string{
		"MapID":          "50",
		"iconFile":       `Data\icon.png`,
		"GUID":           "BJLO59XWN0u9lzYPrnH16w==",
		"alpha":          "0.8",
		"fadeNear":       "3000",
		"fadeFar":        "not-a-number",
		"behavior":       "23732",
		"autoTrigger":    "1",
		"achievementBit": "-1",
		"unknownKey":     "ignored",
	})

	require.NotNil(t, a.MapID)
	assert.Equal(t, uint32(50), *a.MapID)
	assert.Equal(t, `Data\icon.png`, *a.IconFile)
	assert.Equal(t, "BJLO59XWN0u9lzYPrnH16w==", *a.GUID)
	assert.InDelta(t, 0.8, *a.Alpha, 1e-6)
	assert.Equal(t, float32(3000), *a.FadeNear)
	assert.Nil(t, a.FadeFar, "malformed numbers leave the attribute unset")
	assert.Equal(t, BehaviorActionOnCombat, *a.Behavior)
	assert.True(t, *a.AutoTrigger)
	assert.Equal(t, int32(-1), *a.AchievementBit)
	assert.Nil(t, a.IconSize)
}

func TestParseAttributes_Decimal(t *testing.T) {
	tests := []struct {
		name   string
		raw    map[string]string
		mapID  *uint32
		ach    *int32
		iconSz *float32
	}{
		{name: "leading zero map id", raw: map[string]string{"MapID": "010"}, mapID: Opt(uint32(10))},
		{name: "leading zero with eight", raw: map[string]string{"achievementId": "08"}, ach: Opt(int32(8))},
		{name: "signed leading zero", raw: map[string]string{"achievementId": "-007"}, ach: Opt(int32(-7))},
		{name: "all zeros", raw: map[string]string{"MapID": "000"}, mapID: Opt(uint32(0))},
		{name: "bare sign rejected", raw: map[string]string{"MapID": "+", "achievementId": "-"}},
		{name: "hex rejected", raw: map[string]string{"MapID": "0x32"}},
		{name: "octal prefix rejected", raw: map[string]string{"MapID": "0o12"}},
		{name: "binary prefix rejected", raw: map[string]string{"achievementId": "0b101"}},
		{name: "separator rejected", raw: map[string]string{"MapID": "1_000", "iconSize": "1_000"}},
		{name: "float leading zero", raw: map[string]string{"iconSize": "01.5"}, iconSz: Opt(float32(1.5))},
		{name: "hex float rejected", raw: map[string]string{"iconSize": "0x1p-2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := ParseAttributes(tt.raw)
			assert.Equal(t, tt.mapID, a.MapID)
			assert.Equal(t, tt.ach, a.AchievementID)
			assert.Equal(t, tt.iconSz, a.IconSize)
		})
	}
}

func TestBehavior(t *testing.T) {
	assert.Equal(t, "once_per_instance", BehaviorOncePerInstance.String())
	assert.True(t, BehaviorActionOnCombat.Valid())
	assert.False(t, Behavior(8).Valid())
	assert.Equal(t, "unknown", Behavior(8).String())
}

func TestAttributes_Or(t *testing.T) {
	own := Attributes{IconFile: Opt("own.png")}
	parent := Attributes{IconFile: Opt("parent.png"), MapID: Opt(uint32(15))}

	merged := own.Or(parent)
	assert.Equal(t, "own.png", *merged.IconFile)
	assert.Equal(t, uint32(15), *merged.MapID)
	assert.Nil(t, own.MapID, "receiver is not modified")
}

func TestLookupDescendant(t *testing.T) {
	tree := abcTree(t)
	a, ok := tree.Root("A")
	require.True(t, ok)

	c, ok := a.LookupDescendant("B.C")
	require.True(t, ok)
	assert.Equal(t, "C", c.Name())
	assert.Equal(t, "A.B.C", c.Path())

	b, ok := a.LookupDescendant("B")
	require.True(t, ok)
	assert.Equal(t, "B", b.Name())

	_, ok = a.LookupDescendant("C")
	assert.False(t, ok, "leaf names are not searched directly")
	_, ok = a.LookupDescendant("B.X")
	assert.False(t, ok)
	_, ok = a.LookupDescendant("")
	assert.False(t, ok)
}

func TestTree_Lookup(t *testing.T) {
	tree := abcTree(t)

	c, ok := tree.Lookup("A.B.C")
	require.True(t, ok)
	assert.Equal(t, "C", c.Name())

	a, ok := tree.Lookup("A")
	require.True(t, ok)
	assert.Equal(t, "A", a.Name())

	_, ok = tree.Lookup("A.B.X")
	assert.False(t, ok)
	_, ok = tree.Lookup("Z.B.C")
	assert.False(t, ok)
	_, ok = tree.Lookup("")
	assert.False(t, ok)

	assert.Equal(t, 3, tree.Count())
}

func TestTree_FirstRootWins(t *testing.T) {
	tree := NewTree()
	require.NoError(t, tree.AddRoot(NewCategory("x.y", Attributes{DisplayName: Opt("whole")})))

	x := NewCategory("x", Attributes{})
	require.NoError(t, x.AddChild(NewCategory("y", Attributes{DisplayName: Opt("nested")})))
	require.NoError(t, tree.AddRoot(x))

	c, ok := tree.Lookup("x.y")
	require.True(t, ok)
	name, _ := c.Attr().DisplayName()
	assert.Equal(t, "whole", name, "earlier root matching the whole path wins")
}

func TestTree_DuplicateRoot(t *testing.T) {
	tree := NewTree()
	first := NewCategory("collectible", Attributes{})
	require.NoError(t, tree.AddRoot(first))

	err := tree.AddRoot(NewCategory("collectible", Attributes{}))
	assert.ErrorIs(t, err, ErrDuplicateRoot)

	got, ok := tree.Root("collectible")
	require.True(t, ok)
	assert.Same(t, first, got)
	assert.Len(t, tree.Roots(), 1)

	_, err = BuildTree([]RawCategory{{Name: "a"}, {Name: "a"}})
	assert.ErrorIs(t, err, ErrDuplicateRoot)
}

func TestCategory_AddChildInvariants(t *testing.T) {
	a := NewCategory("a", Attributes{})
	b := NewCategory("b", Attributes{})
	require.NoError(t, a.AddChild(b))

	assert.ErrorIs(t, b.AddChild(a), ErrCycle)
	assert.ErrorIs(t, a.AddChild(a), ErrCycle)
	assert.ErrorIs(t, a.AddChild(NewCategory("b", Attributes{})), ErrDuplicateChild)
	assert.ErrorIs(t, NewCategory("c", Attributes{}).AddChild(b), ErrAttached)
	assert.ErrorIs(t, a.AddChild(NewCategory("", Attributes{})), ErrEmptyName)

	assert.Same(t, a, b.Parent())
	assert.Nil(t, a.Parent())
}

func TestMaterialize_SkipsDuplicateSiblings(t *testing.T) {
	c, err := Materialize(RawCategory{
		Name: "root",
		Children: []RawCategory{
			{Name: "dup", Attributes: map[string]string{"DisplayName": "first"}},
			{Name: "dup", Attributes: map[string]string{"DisplayName": "second"}},
			{Name: "other"},
		},
	})
	assert.ErrorIs(t, err, ErrDuplicateChild)
	require.NotNil(t, c)

	children := c.Children()
	require.Len(t, children, 2)
	assert.Equal(t, "dup", children[0].Name())
	assert.Equal(t, "other", children[1].Name())
	name, _ := children[0].Attr().DisplayName()
	assert.Equal(t, "first", name)
}

func TestResolve_DottedPath(t *testing.T) {
	tree := abcTree(t)
	hit := NewPOI("A.B.C", core.Vec3{}, Attributes{})
	miss := NewPOI("A.B.X", core.Vec3{}, Attributes{})
	untyped := NewPOI("", core.Vec3{}, Attributes{MapID: Opt(uint32(7))})

	bound := Resolve(tree, []*POI{hit, miss, untyped})
	assert.Equal(t, 1, bound)

	require.NotNil(t, hit.Parent())
	assert.Equal(t, "C", hit.Parent().Name())
	assert.Nil(t, miss.Parent())
	assert.Nil(t, untyped.Parent())

	id, ok := untyped.Attr().MapID()
	assert.True(t, ok)
	assert.Equal(t, uint32(7), id)
	_, ok = untyped.Attr().IconFile()
	assert.False(t, ok)

	assert.Equal(t, 0, Resolve(tree, []*POI{hit}), "resolution never rebinds")
	assert.ErrorIs(t, hit.Bind(NewCategory("other", Attributes{})), ErrAlreadyBound)
}

func TestInheritance_ShadowingDoesNotMutateParent(t *testing.T) {
	parent := NewCategory("parent", Attributes{IconFile: Opt("X"), DisplayName: Opt("parent_name")})
	poi := NewPOI("parent", core.Vec3{}, Attributes{})
	require.NoError(t, poi.Bind(parent))

	icon, ok := poi.Attr().IconFile()
	require.True(t, ok)
	assert.Equal(t, "X", icon)

	poi.UpdateAttributes(func(a *Attributes) { a.IconFile = Opt("Y") })
	icon, _ = poi.Attr().IconFile()
	assert.Equal(t, "Y", icon)

	parentIcon, _ := parent.Attr().IconFile()
	assert.Equal(t, "X", parentIcon)
	name, _ := poi.Attr().DisplayName()
	assert.Equal(t, "parent_name", name)
}

func TestInheritance_WalksCategoryChain(t *testing.T) {
	tree := karkaTree(t)
	poi := NewPOI("collectible.LionArchKarka.Part1.Karka1", core.Vec3{}, Attributes{})
	Resolve(tree, []*POI{poi})

	karka1 := poi.Parent()
	require.NotNil(t, karka1)
	karka1.UpdateAttributes(func(a *Attributes) { a.DisplayName = nil })

	name, ok := poi.Attr().DisplayName()
	require.True(t, ok)
	assert.Equal(t, "Part 1", name, "falls through Karka1 to Part1")

	eff := poi.Attr().Effective()
	assert.Equal(t, `Data\Karkasymbol.png`, *eff.IconFile)
	assert.Equal(t, "Part 1", *eff.DisplayName)
	runtime.KeepAlive(tree)
}

func TestKarkaEndToEnd(t *testing.T) {
	tree := karkaTree(t)

	raws := []RawPOI{
		{
			Type:     "collectible.LionArchKarka.Part1.Karka1",
			Position: core.Vec3{X: -300.387, Y: 31.3539, Z: 358.293},
			Attributes: map[string]string{
				"MapID": "50", "GUID": "BJLO59XWN0u9lzYPrnH16w==", "fadeNear": "3000", "fadeFar": "4000",
			},
		},
		{
			Type: "collectible.LionArchKarka.Part2.Karka2",
			Attributes: map[string]string{
				"trailData": "Data/Karkatrail2.trl", "texture": "Data/Karkahunt.png",
				"color": "F78181", "alpha": "0.8", "animSpeed": "0",
			},
		},
	}

	var pois []*POI
	var trails []*Trail
	for _, r := range raws {
		if r.IsTrail() {
			trails = append(trails, NewTrailFromRaw(r))
		} else {
			pois = append(pois, NewPOIFromRaw(r))
		}
	}
	require.Len(t, pois, 1)
	require.Len(t, trails, 1)

	assert.Equal(t, 1, Resolve(tree, pois))
	assert.Equal(t, 0, Resolve(tree, trails), "Part2 does not exist")

	poi := pois[0]
	assert.Equal(t, "Karka1", poi.Parent().Name())
	mapID, ok := poi.Attr().MapID()
	require.True(t, ok)
	assert.Equal(t, uint32(50), mapID)
	icon, ok := poi.Attr().IconFile()
	require.True(t, ok)
	assert.Equal(t, `Data\Karkasymbol.png`, icon)

	tr := trails[0]
	assert.Equal(t, "Data/Karkatrail2.trl", tr.TrackFile)
	assert.Equal(t, "F78181", tr.Color)
	assert.False(t, tr.TrackLoaded())
}

func TestTrail_SetTrack(t *testing.T) {
	tr := NewTrail("", Attributes{}, "a.trl", "a.png")
	tr.SetTrack(15, []core.Vec3{{X: 1}, {X: 2}})

	assert.True(t, tr.TrackLoaded())
	assert.Len(t, tr.Track(), 2)
	id, _ := tr.Attr().MapID()
	assert.Equal(t, uint32(15), id)

	own := NewTrail("", Attributes{MapID: Opt(uint32(50))}, "b.trl", "")
	own.SetTrack(15, nil)
	id, _ = own.Attr().MapID()
	assert.Equal(t, uint32(50), id, "own MapID wins over track header")
}

func TestConcurrentAttributeQueries(t *testing.T) {
	tree := karkaTree(t)
	pois := make([]*POI, 50)
	for i := range pois {
		pois[i] = NewPOI("collectible.LionArchKarka.Part1.Karkaend1", core.Vec3{}, Attributes{})
	}
	Resolve(tree, pois)

	var wg sync.WaitGroup
	for _, p := range pois {
		wg.Add(1)
		go func(p *POI) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				icon, ok := p.Attr().IconFile()
				assert.True(t, ok)
				assert.Equal(t, `Data\KarkasymbolEnd1.png`, icon)
			}
		}(p)
	}
	wg.Wait()
}
