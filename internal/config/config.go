package config

import (
	"fmt"
	"time"

	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// FileName is the config file looked up in the config directory.
const FileName = "linkbridge.cfg.json"

// LinkConfig configures the UDP receiver.
type LinkConfig struct {
	Address      string
	BlockTimeout time.Duration
	DrainTimeout time.Duration
	ReadBuffer   int
}

// RelayConfig configures the producer-side relay.
type RelayConfig struct {
	Target   string
	Interval time.Duration
}

// ShmConfig names the shared memory segment.
type ShmConfig struct {
	Name string
}

// MemoryConfig holds settings for the in-memory JSON export backend.
type MemoryConfig struct {
	OutputDir      string
	CompressOutput bool
}

// SQLiteConfig holds settings for the in-memory sqlite backend.
type SQLiteConfig struct {
	DumpInterval time.Duration
	DumpPath     string
}

// PostgresConfig holds connection settings for postgres.
type PostgresConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Database string
}

// DSN builds a libpq style connection string.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(`host=%s port=%s user=%s password=%s dbname=%s sslmode=disable`,
		p.Host, p.Port, p.Username, p.Password, p.Database)
}

// StorageConfig selects and configures the recording backend.
type StorageConfig struct {
	Type     string
	Memory   MemoryConfig
	SQLite   SQLiteConfig
	Postgres PostgresConfig
}

// InfluxConfig configures the InfluxDB sink.
type InfluxConfig struct {
	Enabled    bool
	Protocol   string
	Host       string
	Port       string
	Token      string
	Org        string
	Bucket     string
	BackupPath string
}

// URL returns the server address.
func (c InfluxConfig) URL() string {
	return fmt.Sprintf("%s://%s:%s", c.Protocol, c.Host, c.Port)
}

// GraylogConfig configures the GELF log sink.
type GraylogConfig struct {
	Enabled bool
	Address string
}

// OTelConfig configures the metrics provider.
type OTelConfig struct {
	Enabled        bool
	ServiceName    string
	ExportInterval time.Duration
}

// RecorderConfig configures sampling of telemetry into storage.
type RecorderConfig struct {
	SampleInterval time.Duration
	FlushInterval  time.Duration
	QueueSize      int
}

// PackConfig lists marker packs and where their assets live.
type PackConfig struct {
	Files           []string
	TrailDir        string
	TrailCacheSize  int
	TrailCacheTTL   time.Duration
	RibbonHalfWidth float32
}

// MonitorConfig configures periodic status reporting.
type MonitorConfig struct {
	Interval   time.Duration
	StatusFile string
}

var defaults = map[string]any{
	"logLevel": "info",
	"logsDir":  "./logs",

	"link.address":      "127.0.0.1:7070",
	"link.blockTimeout": "200ms",
	"link.drainTimeout": "1ms",
	"link.readBuffer":   65536,

	"relay.target":   "127.0.0.1:7070",
	"relay.interval": "16ms",

	"shm.name": "MumbleLink",

	"storage.type":                  "memory",
	"storage.memory.outputDir":      "./recordings",
	"storage.memory.compressOutput": true,
	"storage.sqlite.dumpInterval":   "3m",
	"storage.sqlite.dumpPath":       "./recordings/linkbridge.db",

	"db.host":     "localhost",
	"db.port":     "5432",
	"db.username": "postgres",
	"db.password": "postgres",
	"db.database": "linkbridge",

	"influx.enabled":    false,
	"influx.protocol":   "http",
	"influx.host":       "localhost",
	"influx.port":       "8086",
	"influx.token":      "",
	"influx.org":        "linkbridge",
	"influx.bucket":     "telemetry",
	"influx.backupPath": "./recordings/influx_backup.log.gz",

	"graylog.enabled": false,
	"graylog.address": "localhost:12201",

	"otel.enabled":        false,
	"otel.serviceName":    "linkbridge",
	"otel.exportInterval": "30s",

	"recorder.sampleInterval": "1s",
	"recorder.flushInterval":  "5s",
	"recorder.queueSize":      1000,

	"packs.files":           []string{},
	"packs.trailDir":        "./assets",
	"packs.trailCacheSize":  256,
	"packs.trailCacheTTL":   "0s",
	"packs.ribbonHalfWidth": 0.5,

	"monitor.interval":   "1m",
	"monitor.statusFile": "",
}

// Load sets defaults and reads the config file from configDir.
func Load(configDir string) error {
	for k, v := range defaults {
		viper.SetDefault(k, v)
	}

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}
	return nil
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetDuration parses key as a duration string. Values that do not parse fall
// back to the registered default.
func GetDuration(key string) time.Duration {
	if d, err := cast.ToDurationE(viper.Get(key)); err == nil {
		return d
	}
	d, _ := cast.ToDurationE(defaults[key])
	return d
}

func GetLinkConfig() LinkConfig {
	return LinkConfig{
		Address:      viper.GetString("link.address"),
		BlockTimeout: GetDuration("link.blockTimeout"),
		DrainTimeout: GetDuration("link.drainTimeout"),
		ReadBuffer:   viper.GetInt("link.readBuffer"),
	}
}

func GetRelayConfig() RelayConfig {
	return RelayConfig{
		Target:   viper.GetString("relay.target"),
		Interval: GetDuration("relay.interval"),
	}
}

func GetShmConfig() ShmConfig {
	return ShmConfig{Name: viper.GetString("shm.name")}
}

func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type: viper.GetString("storage.type"),
		Memory: MemoryConfig{
			OutputDir:      viper.GetString("storage.memory.outputDir"),
			CompressOutput: viper.GetBool("storage.memory.compressOutput"),
		},
		SQLite: SQLiteConfig{
			DumpInterval: GetDuration("storage.sqlite.dumpInterval"),
			DumpPath:     viper.GetString("storage.sqlite.dumpPath"),
		},
		Postgres: PostgresConfig{
			Host:     viper.GetString("db.host"),
			Port:     viper.GetString("db.port"),
			Username: viper.GetString("db.username"),
			Password: viper.GetString("db.password"),
			Database: viper.GetString("db.database"),
		},
	}
}

func GetInfluxConfig() InfluxConfig {
	return InfluxConfig{
		Enabled:    viper.GetBool("influx.enabled"),
		Protocol:   viper.GetString("influx.protocol"),
		Host:       viper.GetString("influx.host"),
		Port:       viper.GetString("influx.port"),
		Token:      viper.GetString("influx.token"),
		Org:        viper.GetString("influx.org"),
		Bucket:     viper.GetString("influx.bucket"),
		BackupPath: viper.GetString("influx.backupPath"),
	}
}

func GetGraylogConfig() GraylogConfig {
	return GraylogConfig{
		Enabled: viper.GetBool("graylog.enabled"),
		Address: viper.GetString("graylog.address"),
	}
}

func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:        viper.GetBool("otel.enabled"),
		ServiceName:    viper.GetString("otel.serviceName"),
		ExportInterval: GetDuration("otel.exportInterval"),
	}
}

func GetRecorderConfig() RecorderConfig {
	return RecorderConfig{
		SampleInterval: GetDuration("recorder.sampleInterval"),
		FlushInterval:  GetDuration("recorder.flushInterval"),
		QueueSize:      viper.GetInt("recorder.queueSize"),
	}
}

func GetPackConfig() PackConfig {
	return PackConfig{
		Files:           viper.GetStringSlice("packs.files"),
		TrailDir:        viper.GetString("packs.trailDir"),
		TrailCacheSize:  viper.GetInt("packs.trailCacheSize"),
		TrailCacheTTL:   GetDuration("packs.trailCacheTTL"),
		RibbonHalfWidth: cast.ToFloat32(viper.Get("packs.ribbonHalfWidth")),
	}
}

func GetMonitorConfig() MonitorConfig {
	return MonitorConfig{
		Interval:   GetDuration("monitor.interval"),
		StatusFile: viper.GetString("monitor.statusFile"),
	}
}
