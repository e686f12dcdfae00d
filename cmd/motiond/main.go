// Command motiond serves motion authenticity checks over HTTP.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"tailscale.com/tsweb"

	"github.com/banshee-data/motion.check/internal/api"
	"github.com/banshee-data/motion.check/internal/config"
	"github.com/banshee-data/motion.check/internal/monitor"
	"github.com/banshee-data/motion.check/internal/motion/session"
	"github.com/banshee-data/motion.check/internal/telemetry"
	"github.com/banshee-data/motion.check/internal/version"
)

var (
	listen      = flag.String("listen", ":8080", "Listen address")
	dbPath      = flag.String("db", "verdicts.db", "Verdict database path (empty disables telemetry)")
	configPath  = flag.String("config", "", "Tuning config JSON file (defaults are built in)")
	maxSessions = flag.Int("max-sessions", session.DefaultMaxSessions, "Maximum concurrent attempt sessions")
	debugMode   = flag.Bool("debug", false, "Log every attempt status transition")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

// loadTuning returns the tuning config at path, or an empty config (all
// built-in defaults) when path is empty.
func loadTuning(path string) (*config.TuningConfig, error) {
	if path == "" {
		return config.EmptyTuningConfig(), nil
	}
	return config.LoadTuningConfig(path)
}

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}
	if *listen == "" {
		log.Fatal("Listen address is required")
	}
	if *maxSessions < 1 {
		log.Fatal("max-sessions must be at least 1")
	}
	log.Printf("starting %s", version.String())

	tuning, err := loadTuning(*configPath)
	if err != nil {
		log.Fatalf("Failed to load tuning config: %v", err)
	}

	cfg := tuning.SessionConfig()
	cfg.Verbose = *debugMode

	var store *telemetry.Store
	if *dbPath != "" {
		store, err = telemetry.Open(*dbPath)
		if err != nil {
			log.Fatalf("Failed to open verdict database: %v", err)
		}
		defer store.Close()
		cfg.Sink = store
	} else {
		log.Print("telemetry disabled: verdicts will not be stored")
	}

	reg := session.NewRegistry(cfg, *maxSessions)
	defer reg.CloseAll()

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Idle sessions are reaped so abandoned attempts do not pin goroutines.
	idle := tuning.GetSessionIdleTimeout()
	if idle <= 0 {
		log.Fatal("session_idle_timeout must be positive")
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(idle / 4)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n := reg.Reap(idle); n > 0 {
					log.Printf("reaped %d idle sessions (%d active)", n, reg.Len())
				}
			case <-ctx.Done():
				log.Print("reaper routine terminated")
				return
			}
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := http.NewServeMux()

		var debug *tsweb.DebugHandler
		var stats api.VerdictStats
		var verdicts monitor.VerdictSource
		if store != nil {
			d, err := store.AttachAdminRoutes(mux)
			if err != nil {
				log.Fatalf("failed to attach admin routes: %v", err)
			}
			debug = d
			stats, verdicts = store, store
		} else {
			debug = tsweb.Debugger(mux)
		}
		monitor.Register(debug, mux, reg, verdicts)

		api.NewServer(reg, stats).Register(mux)

		server := &http.Server{
			Addr:              *listen,
			Handler:           api.LoggingMiddleware(mux),
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			log.Printf("listening on %s", *listen)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}

		log.Printf("HTTP server routine stopped")
	}()

	wg.Wait()
	log.Printf("Graceful shutdown complete")
}
