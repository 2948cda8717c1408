package main

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gw2overlay/linkbridge/internal/trail"
	"github.com/gw2overlay/linkbridge/pkg/core"
)

func quietLogger(t *testing.T) {
	t.Helper()
	prev := Logger
	Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	t.Cleanup(func() { Logger = prev })
}

func TestTrailCmd(t *testing.T) {
	quietLogger(t)
	path := filepath.Join(t.TempDir(), "t.trl")
	points := []core.Vec3{{X: 10, Z: 10}, {X: 13, Z: 14}, {}, {X: 1, Y: 1, Z: 1}, {X: 1, Y: 1, Z: 2}}
	require.NoError(t, trail.WriteFile(path, trail.Track{MapID: 50, Points: points}))

	var out bytes.Buffer
	require.NoError(t, trailCmd(&out, []string{"-width", "1", path}))

	var v trailView
	require.NoError(t, json.Unmarshal(out.Bytes(), &v))
	assert.Equal(t, uint32(50), v.MapID)
	assert.Equal(t, 5, v.Points)
	assert.Equal(t, 2, v.Segments)
	assert.InDelta(t, 6.0, v.Length, 1e-6)
	assert.Equal(t, float32(1), v.HalfWidth)
}

func TestTrailCmd_InlinePoints(t *testing.T) {
	quietLogger(t)
	outPath := filepath.Join(t.TempDir(), "inline.trl")

	var out bytes.Buffer
	require.NoError(t, trailCmd(&out, []string{"-map", "7", "-out", outPath, "-points", "[[0,0,5],[3,0,9]]"}))

	var v trailView
	require.NoError(t, json.Unmarshal(out.Bytes(), &v))
	assert.Equal(t, "-", v.File)
	assert.Equal(t, uint32(7), v.MapID)
	assert.Equal(t, 1, v.Strips)
	assert.Equal(t, 1, v.Quads)
	assert.InDelta(t, 5.0, v.Length, 1e-6)

	tr, err := trail.ReadFile(outPath)
	require.NoError(t, err)
	assert.Equal(t, uint32(7), tr.MapID)
	assert.Equal(t, []core.Vec3{{Z: 5}, {X: 3, Z: 9}}, tr.Points)
}

func TestTrailCmd_Errors(t *testing.T) {
	quietLogger(t)
	assert.Error(t, trailCmd(io.Discard, nil))
	assert.Error(t, trailCmd(io.Discard, []string{filepath.Join(t.TempDir(), "missing.trl")}))
	assert.Error(t, trailCmd(io.Discard, []string{"-points", "[[1,2]]"}))
	assert.Error(t, trailCmd(io.Discard, []string{"-points", "[[1,2,3]]", "extra.trl"}))
}

func TestResolveCmd(t *testing.T) {
	quietLogger(t)
	pack := filepath.Join(t.TempDir(), "p.json")
	require.NoError(t, os.WriteFile(pack, []byte(`{
		"name": "p",
		"categories": [{"name": "tyria", "attributes": {"MapID": "15"},
			"children": [{"name": "chest", "attributes": {"iconFile": "chest.png", "DisplayName": "Chest"}}]}],
		"pois": [{"type": "tyria.chest", "position": {"x": 1, "y": 2, "z": 3}}]
	}`), 0o644))

	var out bytes.Buffer
	require.NoError(t, resolveCmd(&out, []string{"-map", "15", pack}))

	var v resolveView
	require.NoError(t, json.Unmarshal(out.Bytes(), &v))
	assert.Equal(t, 1, v.Packs)
	assert.Equal(t, 2, v.Categories)
	assert.Equal(t, 1, v.Bound)
	require.Len(t, v.OnMap, 1)
	assert.Equal(t, "tyria.chest", v.OnMap[0].Category)
	assert.Equal(t, "Chest", v.OnMap[0].Name)
	assert.Equal(t, "chest.png", v.OnMap[0].Icon)

	assert.Error(t, resolveCmd(io.Discard, []string{"-map", "x", pack}))
}
