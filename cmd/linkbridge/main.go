package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/gw2overlay/linkbridge/internal/config"
	"github.com/gw2overlay/linkbridge/internal/logging"
)

// BuildVersion and BuildDate can be set at build time via ldflags.
var (
	BuildVersion = "0.0.1"
	BuildDate    = "unknown"
)

const appName = "linkbridge"

var (
	SlogManager  *logging.SlogManager
	Logger       *slog.Logger
	InfraLogger  zerolog.Logger
	SessionStart = time.Now()

	logFile     io.WriteCloser
	infraCloser io.Closer
)

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: %s [-config dir] <command> [args]

Commands:
  serve                  receive telemetry and publish it to shared memory
  snapshot               print the current shared record
  trail [-width w] FILE  decode a trail track and report its geometry
  resolve [-map id] PACK...
                         load marker packs and list what a map displays
`, appName)
}

func main() {
	configDir := flag.String("config", ".", "directory holding "+config.FileName)
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
		os.Exit(2)
	}

	SlogManager = logging.NewSlogManager()
	configErr := config.Load(*configDir)

	command := strings.ToLower(flag.Arg(0))
	args := flag.Args()[1:]

	var err error
	switch command {
	case "serve":
		setupLogging()
		if configErr != nil {
			Logger.Warn("Failed to load config, using defaults!", "error", configErr)
		}
		err = serve()
		closeLogging()
	case "snapshot":
		setupConsoleLogging()
		err = snapshotCmd(os.Stdout)
	case "trail":
		setupConsoleLogging()
		err = trailCmd(os.Stdout, args)
	case "resolve":
		setupConsoleLogging()
		err = resolveCmd(os.Stdout, args)
	case "version":
		fmt.Printf("%s %s (%s)\n", appName, BuildVersion, BuildDate)
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %s: %v\n", appName, command, err)
		os.Exit(1)
	}
}

// setupLogging wires the rotating log file into slog and zerolog. The slog
// records carry the current map and character once frames arrive.
func setupLogging() {
	logsDir := config.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logs dir: %v\n", err)
	}
	logFile = logging.NewFileWriter(logsDir, appName, SessionStart)

	SlogManager.Setup(logFile, config.GetString("logLevel"), sessionAttrs)
	Logger = SlogManager.Logger()

	gl := config.GetGraylogConfig()
	zcfg := logging.ZerologConfig{
		Level:          config.GetString("logLevel"),
		File:           logFile,
		GraylogEnabled: gl.Enabled,
		GraylogAddress: gl.Address,
	}
	var err error
	InfraLogger, infraCloser, err = logging.NewZerolog(zcfg)
	if err != nil {
		Logger.Warn("Failed to set up Graylog output", "error", err)
		zcfg.GraylogEnabled = false
		InfraLogger, infraCloser, _ = logging.NewZerolog(zcfg)
	}
	Logger.Info("Logging initialized", "file", logging.LogFilePath(logsDir, appName, SessionStart))
}

// setupConsoleLogging is used by the one-shot commands, whose stdout is
// their output.
func setupConsoleLogging() {
	Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logging.ParseLevel(config.GetString("logLevel")),
	}))
	InfraLogger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
}

func closeLogging() {
	if infraCloser != nil {
		if err := infraCloser.Close(); err != nil {
			Logger.Warn("Failed to close Graylog writer", "error", err)
		}
	}
	if logFile != nil {
		_ = logFile.Close()
	}
}
