package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/gw2overlay/linkbridge/internal/config"
	"github.com/gw2overlay/linkbridge/internal/dispatcher"
	"github.com/gw2overlay/linkbridge/internal/influx"
	"github.com/gw2overlay/linkbridge/internal/link"
	"github.com/gw2overlay/linkbridge/internal/logging"
	"github.com/gw2overlay/linkbridge/internal/monitor"
	intOtel "github.com/gw2overlay/linkbridge/internal/otel"
	"github.com/gw2overlay/linkbridge/internal/packs"
	"github.com/gw2overlay/linkbridge/internal/session"
	"github.com/gw2overlay/linkbridge/internal/shm"
	"github.com/gw2overlay/linkbridge/internal/storage"
	"github.com/gw2overlay/linkbridge/internal/telemetry"
	"github.com/gw2overlay/linkbridge/internal/trail"
	"github.com/gw2overlay/linkbridge/internal/worker"
	"github.com/gw2overlay/linkbridge/pkg/core"
)

// sessCtx is read by the log handler on every record.
var sessCtx atomic.Pointer[session.Context]

func sessionAttrs() []slog.Attr {
	if c := sessCtx.Load(); c != nil {
		return c.Attrs()
	}
	return nil
}

// SnapshotSource yields the current mapped record. *shm.Region satisfies it.
type SnapshotSource interface {
	Snapshot() (telemetry.Snapshot, error)
}

// bridge turns each received frame into dispatcher events.
type bridge struct {
	src     SnapshotSource
	events  *dispatcher.Dispatcher
	tracker telemetry.MapTracker
	session *session.Context
	catalog *packs.Catalog
	logger  *slog.Logger

	lastTick uint32
}

// onFrame runs after every receive round. Rounds that accepted nothing, and
// records the game has not populated yet, are ignored.
func (b *bridge) onFrame(received int) {
	if received == 0 {
		return
	}
	snap, err := b.src.Snapshot()
	if err != nil {
		b.logger.Warn("Failed to read shared record", "error", err)
		return
	}
	if !snap.Ready() || snap.Tick() == b.lastTick {
		return
	}
	b.lastTick = snap.Tick()

	sessionID := b.session.Session().ID
	sample := snap.Sample(sessionID)
	b.session.Observe(sample.MapID, sample.Tick, sample.CharacterName)

	if prev, changed := b.tracker.Observe(snap); changed {
		b.mapChanged(sessionID, prev, sample)
	}
	if err := b.events.Publish(dispatcher.Event{Topic: dispatcher.TopicSample, Payload: sample, Time: sample.Time}); err != nil {
		b.logger.Debug("Sample not published", "error", err)
	}
}

func (b *bridge) mapChanged(sessionID string, prev uint32, sample core.Sample) {
	change := core.MapChange{
		SessionID:     sessionID,
		Time:          sample.Time,
		Tick:          sample.Tick,
		FromMapID:     prev,
		ToMapID:       sample.MapID,
		CharacterName: sample.CharacterName,
	}
	if err := b.events.Publish(dispatcher.Event{Topic: dispatcher.TopicMapChange, Payload: change, Time: change.Time}); err != nil {
		b.logger.Warn("Map change not published", "error", err)
	}

	if b.catalog == nil {
		b.logger.Info("Map changed", "from", prev, "to", sample.MapID)
		return
	}
	set := b.catalog.ForMap(sample.MapID)
	points := 0
	for _, t := range set.Trails {
		points += len(t.Track())
	}
	b.logger.Info("Map changed", "from", prev, "to", sample.MapID,
		"pois", len(set.POIs), "trails", len(set.Trails), "trailPoints", points)
}

func serve() error {
	if err := telemetry.ValidateLayout(); err != nil {
		Logger.Error("Record layout check failed", "error", err)
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	otelCfg := config.GetOTelConfig()
	var metricsFile *os.File
	otelWriter := os.Stdout
	if otelCfg.Enabled {
		f, err := os.OpenFile(logging.LogFilePath(config.GetString("logsDir"), appName+".metrics", SessionStart), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			Logger.Warn("Failed to open metrics file, exporting to stdout", "error", err)
		} else {
			metricsFile, otelWriter = f, f
		}
	}
	otelProvider, err := intOtel.New(intOtel.Config{
		Enabled:        otelCfg.Enabled,
		ServiceName:    otelCfg.ServiceName,
		ExportInterval: otelCfg.ExportInterval,
		Writer:         otelWriter,
	})
	if err != nil {
		return fmt.Errorf("failed to set up metrics: %w", err)
	}
	defer func() {
		if err := otelProvider.Shutdown(context.Background()); err != nil {
			Logger.Warn("Metric shutdown failed", "error", err)
		}
		if metricsFile != nil {
			_ = metricsFile.Close()
		}
	}()

	shmCfg := config.GetShmConfig()
	region, err := shm.OpenOrCreate(shm.SegmentName(shmCfg.Name))
	if err != nil {
		Logger.Error("Failed to map shared segment", "name", shmCfg.Name, "error", err)
		return err
	}
	defer region.Close()
	Logger.Info("Shared segment mapped", "name", region.Name(), "created", region.Created())

	linkCfg := config.GetLinkConfig()
	lnk, err := link.Bind(link.NetFactory{}, link.Config{
		Address:      linkCfg.Address,
		BlockTimeout: linkCfg.BlockTimeout,
		DrainTimeout: linkCfg.DrainTimeout,
		ReadBuffer:   linkCfg.ReadBuffer,
	}, region, SlogManager.Component("link"))
	if err != nil {
		Logger.Error("Failed to bind link socket", "address", linkCfg.Address, "error", err)
		return err
	}
	defer lnk.Close()

	sess := core.Session{
		ID:        uuid.NewString(),
		StartTime: SessionStart,
		Address:   lnk.LocalAddr().String(),
		Segment:   region.Name(),
		Version:   BuildVersion,
	}
	sessCtx.Store(session.NewContext(sess))
	Logger.Info("Session started", "session_id", sess.ID, "address", sess.Address)

	events, err := dispatcher.New(logging.NewDispatcherLogger(InfraLogger))
	if err != nil {
		return fmt.Errorf("failed to create dispatcher: %w", err)
	}

	recorderCfg := config.GetRecorderConfig()
	backend, err := createStorageBackend(config.GetStorageConfig(), recorderCfg)
	if err != nil {
		return err
	}
	if err := backend.Init(); err != nil {
		Logger.Error("Failed to initialize storage backend", "error", err)
		return err
	}
	if err := backend.StartSession(&sess); err != nil {
		_ = backend.Close()
		return fmt.Errorf("failed to start session: %w", err)
	}

	var sinks []worker.SampleSink
	var influxManager *influx.Manager
	if ic := config.GetInfluxConfig(); ic.Enabled {
		influxManager = influx.NewManager(ic, InfraLogger)
		if err := influxManager.Connect(ctx); err != nil {
			Logger.Warn("InfluxDB sink disabled", "error", err)
			influxManager = nil
		} else {
			sinks = append(sinks, influxManager)
		}
	}

	workerManager := worker.NewManager(worker.Dependencies{
		Backend:        backend,
		Sinks:          sinks,
		Logger:         SlogManager.Component("worker"),
		SampleInterval: recorderCfg.SampleInterval,
		BufferSize:     recorderCfg.QueueSize,
	})
	workerManager.RegisterHandlers(events)

	catalog := loadCatalog(config.GetPackConfig())

	monCfg := config.GetMonitorConfig()
	monDeps := monitor.Dependencies{
		Link:       lnk,
		Recorder:   workerManager,
		Backend:    backend,
		SessionID:  func() string { return sess.ID },
		Logger:     SlogManager.Component("monitor"),
		Interval:   monCfg.Interval,
		StatusFile: monCfg.StatusFile,
	}
	if influxManager != nil {
		monDeps.Influx = influxManager
	}
	monitorService := monitor.NewService(monDeps)
	if err := monitorService.Start(); err != nil {
		Logger.Warn("Status monitor not started", "error", err)
	}

	b := &bridge{
		src:     region,
		events:  events,
		session: sessCtx.Load(),
		catalog: catalog,
		logger:  SlogManager.Component("bridge"),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return lnk.Run(gctx, b.onFrame)
	})
	runErr := g.Wait()
	if errors.Is(runErr, context.Canceled) {
		runErr = nil
	}
	Logger.Info("Shutting down", "stats", fmt.Sprintf("%+v", lnk.Stats()))

	monitorService.Stop()
	monitorService.Report()
	events.Close()
	shutdownErr := errors.Join(runErr, finishSession(backend), closeInflux(influxManager))
	return shutdownErr
}

func finishSession(backend storage.Backend) error {
	err := errors.Join(backend.EndSession(), backend.Close())
	if exp, ok := backend.(storage.Exporter); ok && exp.ExportedFilePath() != "" {
		Logger.Info("Session exported", "path", exp.ExportedFilePath())
	}
	return err
}

func closeInflux(m *influx.Manager) error {
	if m == nil {
		return nil
	}
	return m.Close()
}

// loadCatalog loads the configured packs. No configured packs yields nil.
func loadCatalog(cfg config.PackConfig) *packs.Catalog {
	if len(cfg.Files) == 0 {
		return nil
	}
	logger := SlogManager.Component("packs")
	loader := trail.NewLoader(cfg.TrailDir, cfg.TrailCacheSize, cfg.TrailCacheTTL, logger)
	catalog := packs.NewCatalog(loader, cfg.RibbonHalfWidth, logger)

	loaded := catalog.LoadFiles(cfg.Files)
	bound := catalog.Resolve()
	cats, pois, trails := catalog.Counts()
	Logger.Info("Marker packs loaded", "packs", loaded, "categories", cats, "pois", pois, "trails", trails, "bound", bound)
	return catalog
}
