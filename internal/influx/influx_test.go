package influx

import (
	"bufio"
	"compress/gzip"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gw2overlay/linkbridge/internal/config"
	"github.com/gw2overlay/linkbridge/pkg/core"
)

func TestConnect_Disabled(t *testing.T) {
	m := NewManager(config.InfluxConfig{}, zerolog.Nop())
	assert.ErrorIs(t, m.Connect(context.Background()), ErrDisabled)
	assert.NoError(t, m.Close())
}

func TestWritePoint_NoBackend(t *testing.T) {
	m := NewManager(config.InfluxConfig{}, zerolog.Nop())
	assert.Error(t, m.WritePoint(influxdb2_write.NewPointWithMeasurement("x").AddField("v", 1)))
}

func TestSamplePoint(t *testing.T) {
	ts := time.Unix(1700000000, 0)
	p := SamplePoint(&core.Sample{
		SessionID:      "s1",
		Time:           ts,
		Tick:           42,
		MapID:          50,
		CharacterName:  "Eir",
		AvatarPosition: core.Vec3{X: 1.5, Y: 2, Z: -3},
		MountIndex:     4,
	})

	line := influxdb2_write.PointToLineProtocol(p, time.Nanosecond)
	assert.Contains(t, line, "telemetry,")
	assert.Contains(t, line, "character=Eir")
	assert.Contains(t, line, "map_id=50")
	assert.Contains(t, line, "session_id=s1")
	assert.Contains(t, line, "pos_x=1.5")
	assert.Contains(t, line, "tick=42i")
	assert.Contains(t, line, "mount_index=4i")
	assert.Contains(t, line, "1700000000000000000")
}

func TestBackupWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "backup.log.gz")
	m := NewManager(config.InfluxConfig{Enabled: true, BackupPath: path}, zerolog.Nop())
	require.NoError(t, m.openBackup())

	require.NoError(t, m.WriteSample(&core.Sample{SessionID: "s", Tick: 1, MapID: 15, Time: time.Unix(1, 0)}))
	require.NoError(t, m.WritePoint(BridgePoint("s", time.Unix(2, 0), map[string]any{"received": 10})))
	require.NoError(t, m.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	gz, err := gzip.NewReader(f)
	require.NoError(t, err)

	var lines []string
	sc := bufio.NewScanner(gz)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	require.Len(t, lines, 2, "one line per point, no blank separators")
	assert.Contains(t, lines[0], "telemetry,")
	assert.Contains(t, lines[1], "bridge,session_id=s received=10i")
}
