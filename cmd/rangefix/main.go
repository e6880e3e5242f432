package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/rangefix/internal/api"
	"github.com/banshee-data/rangefix/internal/config"
	"github.com/banshee-data/rangefix/internal/db"
	"github.com/banshee-data/rangefix/internal/feed"
	"github.com/banshee-data/rangefix/internal/fusion"
	"github.com/banshee-data/rangefix/internal/monitoring"
	"github.com/banshee-data/rangefix/internal/pipeline"
	"github.com/banshee-data/rangefix/internal/simctl"
	"github.com/banshee-data/rangefix/internal/timeutil"
	"github.com/banshee-data/rangefix/internal/units"
	"github.com/banshee-data/rangefix/internal/version"
)

var (
	listen      = flag.String("listen", ":8080", "Listen address")
	configFile  = flag.String("config", "", "Path to a tuning JSON file (defaults apply when empty)")
	radarWS     = flag.String("radar-ws", "", "Radar WebSocket feed URL, e.g. ws://localhost:4000")
	gpsWS       = flag.String("gps-ws", "", "GPS WebSocket feed URL, e.g. ws://localhost:4001")
	radarSerial = flag.String("radar-serial", "", "Serial port of a radar head")
	radarBaud   = flag.Int("radar-baud", 115200, "Baud rate for -radar-serial")
	radarReplay = flag.String("radar-replay", "", "NDJSON capture of radar scans to replay")
	gpsReplay   = flag.String("gps-replay", "", "NDJSON capture of satellite messages to replay")
	radarSim    = flag.String("radar-sim", "", "Radar simulator base URL for config updates, e.g. http://localhost:4000")
	gpsSim      = flag.String("gps-sim", "", "GPS simulator base URL for config updates, e.g. http://localhost:4001")
	dbFile      = flag.String("db", "", "SQLite file for the result log (disabled when empty)")
	showVersion = flag.Bool("version", false, "Print version information and exit")
)

// feedSource names the transports configured for one client. At most one may
// be set.
type feedSource struct {
	client string
	ws     string
	serial string
	baud   int
	replay string
}

// open returns the configured feed, or nil when the client has no transport.
func (s feedSource) open(delay time.Duration, collector *monitoring.Collector) (feed.Feed, error) {
	set := 0
	for _, v := range []string{s.ws, s.serial, s.replay} {
		if v != "" {
			set++
		}
	}
	if set > 1 {
		return nil, fmt.Errorf("%s: choose one of websocket, serial or replay", s.client)
	}

	switch {
	case s.ws != "":
		return feed.NewWebSocket(s.client, s.ws, delay, collector), nil
	case s.serial != "":
		m, err := feed.OpenSerial(s.serial, feed.PortOptions{BaudRate: s.baud})
		if err != nil {
			return nil, err
		}
		return m, nil
	case s.replay != "":
		m, err := feed.OpenReplay(s.replay)
		if err != nil {
			return nil, err
		}
		return m, nil
	}
	return nil, nil
}

// loadConfig overlays the file at path, if any, on the defaults.
func loadConfig(path string) (*config.TuningConfig, error) {
	cfg := config.DefaultTuningConfig()
	if path == "" {
		return cfg, nil
	}
	loaded, err := config.LoadTuningConfig(path)
	if err != nil {
		return nil, err
	}
	cfg.Merge(loaded)
	return cfg, nil
}

func fusionConfig(cfg *config.TuningConfig) fusion.Config {
	return fusion.Config{
		MaxAge:   cfg.GetSatelliteMaxAge(),
		TimeUnit: cfg.GetSignalTimeUnit(),
		Speed:    units.SpeedOfLightKmps,
	}
}

// Main
func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}
	log.Printf("starting %s", version.String())

	if *listen == "" {
		log.Fatal("Listen address is required")
	}

	cfg, err := loadConfig(*configFile)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	collector, err := monitoring.NewCollector(nil)
	if err != nil {
		log.Fatalf("failed to register metrics: %v", err)
	}

	radarFeed, err := feedSource{
		client: monitoring.ClientRadar, ws: *radarWS, serial: *radarSerial, baud: *radarBaud, replay: *radarReplay,
	}.open(cfg.GetReconnectDelay(), collector)
	if err != nil {
		log.Fatalf("failed to open radar feed: %v", err)
	}
	gpsFeed, err := feedSource{
		client: monitoring.ClientGPS, ws: *gpsWS, replay: *gpsReplay,
	}.open(cfg.GetReconnectDelay(), collector)
	if err != nil {
		log.Fatalf("failed to open gps feed: %v", err)
	}
	if radarFeed == nil && gpsFeed == nil {
		log.Printf("no feeds configured; serving empty state")
	}

	var opts api.Options
	var recorder pipeline.Recorder
	if *dbFile != "" {
		store, err := db.NewDB(*dbFile)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer store.Close()
		log.Printf("recording results to %s (run %s)", *dbFile, store.RunID())
		opts.History = store
		recorder = store
	}
	opts.Simulators = simctl.NewClient(nil, *radarSim, *gpsSim)
	opts.Metrics = collector

	clock := timeutil.RealClock{}
	gps := pipeline.NewGPS(fusionConfig(cfg), clock, recorder, collector)
	radar := pipeline.NewRadar(cfg.GetEchoCapacity(), clock, recorder, collector)

	// Create a wait group for the HTTP server, feed monitors, and pipelines
	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// forward any configured simulator cadence once at startup
	if err := opts.Simulators.Push(ctx, cfg); err != nil {
		log.Printf("failed to configure simulators: %v", err)
	}

	startFeed := func(name string, f feed.Feed, run func(context.Context, feed.Feed) error) {
		if f == nil {
			return
		}
		wg.Add(2)
		go func() {
			defer wg.Done()
			if err := f.Monitor(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("%s feed monitor failed: %v", name, err)
			}
			log.Printf("%s monitor routine terminated", name)
		}()
		go func() {
			defer wg.Done()
			if err := run(ctx, f); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("%s pipeline failed: %v", name, err)
			}
			log.Printf("%s pipeline routine terminated", name)
		}()
	}
	startFeed(monitoring.ClientRadar, radarFeed, radar.Run)
	startFeed(monitoring.ClientGPS, gpsFeed, func(ctx context.Context, f feed.Feed) error {
		return gps.Run(ctx, f, cfg.GetExpireInterval())
	})

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := api.NewServer(gps, radar, cfg, opts).ServeMux()
		server := &http.Server{
			Addr:    *listen,
			Handler: api.LoggingMiddleware(mux),
		}

		// Start server in a goroutine so it doesn't block
		go func() {
			log.Printf("listening on %s", *listen)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		// Wait for context cancellation to shut down server
		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
			if err := server.Close(); err != nil {
				log.Printf("HTTP server force close error: %v", err)
			}
		}

		log.Printf("HTTP server routine stopped")
	}()

	// closing the feeds unblocks any monitor still waiting on its transport
	<-ctx.Done()
	for _, f := range []feed.Feed{radarFeed, gpsFeed} {
		if f == nil {
			continue
		}
		if err := f.Close(); err != nil {
			log.Printf("failed to close feed: %v", err)
		}
	}

	// Wait for all goroutines to finish
	wg.Wait()
	log.Printf("Graceful shutdown complete")
}
