package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(body), 0644))
	return dir
}

func TestLoad_WithValidConfigFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := writeConfig(t, `{
		"logLevel": "debug",
		"shm": { "name": "MumbleLinkTest" },
		"db": { "host": "10.0.0.1", "port": "5433" }
	}`)
	require.NoError(t, Load(dir))

	assert.Equal(t, "debug", viper.GetString("logLevel"))
	assert.Equal(t, "MumbleLinkTest", GetShmConfig().Name)
	assert.Equal(t, "10.0.0.1", viper.GetString("db.host"))
	assert.Equal(t, "5433", viper.GetString("db.port"))
}

func TestLoad_DefaultValues(t *testing.T) {
	t.Cleanup(viper.Reset)

	require.NoError(t, Load(writeConfig(t, `{}`)))

	assert.Equal(t, "info", viper.GetString("logLevel"))
	assert.Equal(t, "./logs", viper.GetString("logsDir"))
	assert.Equal(t, "MumbleLink", viper.GetString("shm.name"))
	assert.Equal(t, "localhost", viper.GetString("db.host"))
	assert.Equal(t, "5432", viper.GetString("db.port"))
	assert.Equal(t, "linkbridge", viper.GetString("db.database"))
	assert.Equal(t, false, viper.GetBool("graylog.enabled"))
	assert.Equal(t, "localhost:12201", viper.GetString("graylog.address"))
	assert.Equal(t, false, viper.GetBool("influx.enabled"))
	assert.Equal(t, false, viper.GetBool("otel.enabled"))
}

func TestLoad_MissingFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	err := Load("/nonexistent/path")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestGetString(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("testKey", "testValue")
	assert.Equal(t, "testValue", GetString("testKey"))
}

func TestGetInt(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("testInt", 42)
	assert.Equal(t, 42, GetInt("testInt"))
}

func TestGetBool(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("testBool", true)
	assert.Equal(t, true, GetBool("testBool"))
}

func TestGetLinkConfig_Defaults(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{}`)))

	lc := GetLinkConfig()
	assert.Equal(t, "127.0.0.1:7070", lc.Address)
	assert.Equal(t, 200*time.Millisecond, lc.BlockTimeout)
	assert.Equal(t, time.Millisecond, lc.DrainTimeout)
	assert.Equal(t, 65536, lc.ReadBuffer)

	rc := GetRelayConfig()
	assert.Equal(t, "127.0.0.1:7070", rc.Target)
	assert.Equal(t, 16*time.Millisecond, rc.Interval)
}

func TestGetDuration_InvalidFallsBack(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{ "link": { "blockTimeout": "soon", "drainTimeout": "5ms" } }`)))

	lc := GetLinkConfig()
	assert.Equal(t, 200*time.Millisecond, lc.BlockTimeout)
	assert.Equal(t, 5*time.Millisecond, lc.DrainTimeout)
}

func TestGetStorageConfig_Defaults(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{}`)))

	cfg := GetStorageConfig()
	assert.Equal(t, "memory", cfg.Type)
	assert.Equal(t, "./recordings", cfg.Memory.OutputDir)
	assert.Equal(t, true, cfg.Memory.CompressOutput)
	assert.Equal(t, 3*time.Minute, cfg.SQLite.DumpInterval)
	assert.Equal(t, "host=localhost port=5432 user=postgres password=postgres dbname=linkbridge sslmode=disable", cfg.Postgres.DSN())
}

func TestGetStorageConfig_Override(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := writeConfig(t, `{
		"storage": {
			"type": "sqlite",
			"memory": { "outputDir": "/tmp/out", "compressOutput": false },
			"sqlite": { "dumpInterval": "10m", "dumpPath": "/tmp/out/x.db" }
		}
	}`)
	require.NoError(t, Load(dir))

	sc := GetStorageConfig()
	assert.Equal(t, "sqlite", sc.Type)
	assert.Equal(t, "/tmp/out", sc.Memory.OutputDir)
	assert.Equal(t, false, sc.Memory.CompressOutput)
	assert.Equal(t, 10*time.Minute, sc.SQLite.DumpInterval)
	assert.Equal(t, "/tmp/out/x.db", sc.SQLite.DumpPath)
}

func TestGetOTelConfig_Override(t *testing.T) {
	t.Cleanup(viper.Reset)

	require.NoError(t, Load(writeConfig(t, `{
		"otel": { "enabled": true, "serviceName": "my-service", "exportInterval": "10s" }
	}`)))

	oc := GetOTelConfig()
	assert.Equal(t, true, oc.Enabled)
	assert.Equal(t, "my-service", oc.ServiceName)
	assert.Equal(t, 10*time.Second, oc.ExportInterval)
}

func TestGetPackConfig(t *testing.T) {
	t.Cleanup(viper.Reset)

	require.NoError(t, Load(writeConfig(t, `{
		"packs": { "files": ["a.json", "b.json"], "trailDir": "/assets", "ribbonHalfWidth": "0.75" }
	}`)))

	pc := GetPackConfig()
	assert.Equal(t, []string{"a.json", "b.json"}, pc.Files)
	assert.Equal(t, "/assets", pc.TrailDir)
	assert.Equal(t, 256, pc.TrailCacheSize)
	assert.Equal(t, time.Duration(0), pc.TrailCacheTTL)
	assert.InDelta(t, 0.75, pc.RibbonHalfWidth, 1e-6)
}

func TestGetRecorderAndMonitorConfig(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{}`)))

	rc := GetRecorderConfig()
	assert.Equal(t, time.Second, rc.SampleInterval)
	assert.Equal(t, 5*time.Second, rc.FlushInterval)
	assert.Equal(t, 1000, rc.QueueSize)

	assert.Equal(t, time.Minute, GetMonitorConfig().Interval)

	ic := GetInfluxConfig()
	assert.Equal(t, "http://localhost:8086", ic.URL())
	assert.Equal(t, "telemetry", ic.Bucket)
}
