package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"opensentry/internal/auth"
	"opensentry/internal/capture"
	"opensentry/internal/eventhub"
	"opensentry/internal/httpapi"
	"opensentry/internal/logbuf"
	"opensentry/internal/mdns"
	"opensentry/internal/motion"
	"opensentry/internal/settings"
	"opensentry/internal/snapshot"
	"opensentry/internal/streamworker"
)

func main() {
	var (
		hostF = flag.String("host", "", "listen host, overrides OPENSENTRY_HOST")
		portF = flag.String("port", "", "listen port, overrides OPENSENTRY_PORT")
	)
	flag.Parse()

	envCfg, err := loadEnvConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "opensentryd: config: %v\n", err)
		os.Exit(1)
	}
	if *hostF != "" {
		envCfg.Host = *hostF
	}
	if *portF != "" {
		envCfg.Port = *portF
	}

	logs := logbuf.New(slog.NewTextHandler(os.Stderr, nil), envCfg.LogMaxBytes, envCfg.LogMaxLines)
	logger := slog.New(logs)

	store, err := settings.Load(envCfg.SettingsPath, logger)
	if err != nil {
		logger.Error("opensentryd: settings load failed", "err", err)
		os.Exit(1)
	}
	if err := store.WatchExternalEdits(); err != nil {
		logger.Warn("opensentryd: settings watch failed", "err", err)
	}
	defer store.Close()

	cfg := store.Get()
	src := capture.New(capture.Config{
		Device: cfg.Video.Device, Index: cfg.Video.Index,
		Width: orEnvInt(cfg.Video.Width, envCfg.VideoWidth), Height: orEnvInt(cfg.Video.Height, envCfg.VideoHeight),
		FPS: orEnvInt(cfg.Video.FPS, envCfg.VideoFPS), MJPEGInput: cfg.Video.MJPEGInput,
	}, logger)
	src.Start()
	defer src.Stop()

	rawWorker := streamworker.NewRawWorker("raw", src, func() streamworker.RawParams {
		c := store.Get()
		return streamworker.RawParams{MaxWidth: c.Stream.MaxWidth, Quality: c.Stream.Quality, FPS: c.Stream.FPS}
	})
	rawWorker.Start()
	defer rawWorker.Stop()

	events := eventhub.NewHub(logger)
	edge := &eventhub.EdgeTracker{}

	snapWorker := snapshot.New(src.GetFrame, func() snapshot.Config {
		c := store.Get()
		return snapshot.Config{
			Directory: c.Snapshots.Directory, IntervalSecs: c.Snapshots.IntervalSecs,
			RetentionCount: c.Snapshots.RetentionCount, RetentionDays: c.Snapshots.RetentionDays,
			PruneEvery: c.Snapshots.PruneEvery, MotionEnabled: true,
			MinArea: c.Motion.MinArea, Pad: c.Motion.Pad, Quality: c.Stream.Quality,
			EventDriven: c.Motion.EventDriven, MotionThreshold: c.Motion.Threshold, CooldownSecs: c.Motion.CooldownSecs,
		}
	}, logger)
	snapWorker.Start()
	defer snapWorker.Stop()

	motionWorker := streamworker.NewMotionWorker("motion", src, func() streamworker.MotionParams {
		c := store.Get()
		return streamworker.MotionParams{
			RawParams:    streamworker.RawParams{MaxWidth: c.Stream.MaxWidth, Quality: c.Stream.Quality, FPS: c.Stream.FPS},
			Algorithm:    motionAlgorithm(c.Motion.Algorithm),
			MinArea:      c.Motion.MinArea, Pad: c.Motion.Pad,
			VarThreshold: c.Motion.VarThreshold, History: c.Motion.History,
		}
	}, func(res motion.Result) {
		if ev, ok := edge.Observe(res.Motion, res.TotalAreaPx); ok {
			events.Broadcast(ev)
		}
		if res.Motion {
			snapWorker.TriggerEventSnapshot(res.TotalAreaPx)
		}
	})
	motionWorker.Start()
	defer motionWorker.Stop()

	secret := []byte(envCfg.SessionSecret)
	if len(secret) == 0 {
		secret = randomSecret()
		logger.Warn("opensentryd: OPENSENTRY_SESSION_SECRET not set, using an ephemeral secret; sessions will not survive a restart")
	}

	srv := &httpapi.Server{
		Settings: store, Capture: src, Raw: rawWorker, Motion: motionWorker,
		Snapshots: snapWorker, Events: events, Logs: logs,
		Sessions: auth.NewSessionCodec(secret, 24*time.Hour),
		Log:      logger, StartTime: time.Now(),
	}

	advertiser := mdns.NoopAdvertiser{}
	_ = advertiser.Start(context.Background(), mdns.TXT{
		ID: cfg.DeviceID, Name: "opensentry", Ver: httpapi.Version,
		Caps: "raw_stream,motion_stream,snapshots", Path: "/", Proto: "http",
	})
	defer advertiser.Stop()

	errc := make(chan error, 1)
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
		errc <- fmt.Errorf("%s", <-c)
	}()

	var wg sync.WaitGroup
	ctx, cancel := context.WithCancel(context.Background())

	addr := net.JoinHostPort(envCfg.Host, envCfg.Port)
	handleHTTPServer(ctx, addr, srv.Router(), &wg, errc, logger)

	logger.Info("opensentryd: exiting", "reason", (<-errc).Error())
	cancel()
	wg.Wait()
	logger.Info("opensentryd: exited")
}

func orEnvInt(settingsValue, envValue int) int {
	if settingsValue > 0 {
		return settingsValue
	}
	return envValue
}

func motionAlgorithm(name string) motion.Algorithm {
	if name == "mog2" {
		return motion.AlgoMOG2
	}
	return motion.AlgoFrameDiff
}

func randomSecret() []byte {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return []byte("opensentry-fallback-secret")
	}
	return []byte(hex.EncodeToString(raw))
}
