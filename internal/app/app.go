package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"

	"ghost-lap/server/internal/net/intake"
	"ghost-lap/server/internal/net/ws"
	"ghost-lap/server/internal/rewind"
	"ghost-lap/server/internal/sim"
	"ghost-lap/server/internal/telemetry"
	"ghost-lap/server/internal/world"
	"ghost-lap/server/logging"
	loggingSinks "ghost-lap/server/logging/sinks"
)

// Config is parsed from the environment.
type Config struct {
	Addr             string   `env:"GHOSTLAP_ADDR" envDefault:":8080"`
	Role             string   `env:"GHOSTLAP_ROLE" envDefault:"server"`
	TickRate         int      `env:"GHOSTLAP_TICK_RATE" envDefault:"15"`
	CatchupMaxTicks  int      `env:"GHOSTLAP_CATCHUP_MAX_TICKS" envDefault:"4"`
	KeyframeInterval int      `env:"GHOSTLAP_KEYFRAME_INTERVAL" envDefault:"30"`
	LogSinks         []string `env:"GHOSTLAP_LOG_SINKS" envDefault:"console" envSeparator:","`
	LogJSONPath      string   `env:"GHOSTLAP_LOG_JSON_PATH"`
}

// ParseConfig loads configuration from environment variables.
func ParseConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// SessionRole maps the configured role string onto the rewind role.
func (c Config) SessionRole() (rewind.Role, error) {
	switch strings.ToLower(c.Role) {
	case "server":
		return rewind.RoleServer, nil
	case "client":
		return rewind.RoleClient, nil
	default:
		return rewind.RoleServer, fmt.Errorf("unknown role %q", c.Role)
	}
}

// keyframeRecorder snapshots the world into the rollback history on the
// loop's keyframe cadence. Server snapshots are authoritative; client
// snapshots are speculative bases for faster local rewinds.
type keyframeRecorder struct {
	queue *rewind.Queue
	world *world.World
}

func (k keyframeRecorder) RecordKeyframe(tick int64) {
	confirmed := k.queue.Role() == rewind.RoleServer
	k.queue.PushLocalState(k.world, k.world.Save(), confirmed, tick)
}

// Run wires the session together and serves until the listener fails or
// ctx is cancelled.
func Run(ctx context.Context, cfg Config) error {
	role, err := cfg.SessionRole()
	if err != nil {
		return err
	}

	fallbackLogger := log.Default()
	metrics := logging.NewMetrics()

	logConfig := logging.DefaultConfig()
	logConfig.EnabledSinks = cfg.LogSinks
	namedSinks := make([]logging.NamedSink, 0, len(cfg.LogSinks))
	for _, name := range cfg.LogSinks {
		switch name {
		case "console":
			namedSinks = append(namedSinks, logging.NamedSink{
				Name: name,
				Sink: loggingSinks.NewConsoleSink(os.Stdout, logConfig.Console),
			})
		case "json":
			if cfg.LogJSONPath == "" {
				fallbackLogger.Printf("json sink enabled without GHOSTLAP_LOG_JSON_PATH, skipping")
				continue
			}
			file, err := os.OpenFile(cfg.LogJSONPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				return fmt.Errorf("open json log: %w", err)
			}
			namedSinks = append(namedSinks, logging.NamedSink{
				Name: name,
				Sink: loggingSinks.NewJSONSink(file, logConfig.JSON.FlushInterval),
			})
		default:
			fallbackLogger.Printf("unknown log sink %q, skipping", name)
		}
	}

	router, err := logging.NewRouter(logging.SystemClock{}, logConfig, namedSinks)
	if err != nil {
		return fmt.Errorf("construct logging router: %w", err)
	}
	defer func() {
		if cerr := router.Close(ctx); cerr != nil {
			fallbackLogger.Printf("failed to close logging router: %v", cerr)
		}
	}()

	deps := rewind.Deps{
		Publisher: router,
		Metrics:   telemetry.WrapMetrics(metrics),
		Logger:    telemetry.WrapLogger(fallbackLogger),
	}

	w := world.New()
	w.AddRacer("home", 1)

	queue := rewind.NewQueue(role, deps)
	registry := rewind.NewRegistry()
	if err := registry.RegisterState("world", w); err != nil {
		return fmt.Errorf("register world state: %w", err)
	}
	if err := registry.RegisterEvent("steer", world.NewSteering(w)); err != nil {
		return fmt.Errorf("register steer event: %w", err)
	}

	manager := rewind.NewManager(queue, w, deps)

	loop := sim.NewLoop(manager, w, keyframeRecorder{queue: queue, world: w}, sim.LoopConfig{
		TickRate:         cfg.TickRate,
		CatchupMaxTicks:  cfg.CatchupMaxTicks,
		KeyframeInterval: cfg.KeyframeInterval,
	}, sim.Deps{
		Logger:  telemetry.WrapLogger(fallbackLogger),
		Metrics: telemetry.WrapMetrics(metrics),
		Clock:   logging.SystemClock{},
	})
	loop.SetHooks(sim.LoopHooks{
		AfterStep: func(result sim.LoopStepResult) {
			if result.ResyncNeeded {
				fallbackLogger.Printf("full resync requested at tick %d: %s", result.Tick, result.Resync.Summary())
			}
		},
	})

	stop := make(chan struct{})
	go loop.Run(stop)
	defer close(stop)

	handler := ws.NewHandler(intake.Context{Queue: queue, Registry: registry}, ws.HandlerConfig{
		Logger: fallbackLogger,
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", handler.Handle)
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "application/json")
		json.NewEncoder(rw).Encode(map[string]any{
			"role":    role.String(),
			"tick":    loop.Tick(),
			"metrics": metrics.Snapshot(),
		})
	})

	srv := &http.Server{Addr: cfg.Addr, Handler: mux}
	fallbackLogger.Printf("server listening on %s role=%s", srv.Addr, role)

	if err := srv.ListenAndServe(); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}
