package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"

	"areastate.ai/internal/agent"
	"areastate.ai/internal/areas"
	"areastate.ai/internal/areastate"
	"areastate.ai/internal/blacklist"
	"areastate.ai/internal/feed"
	"areastate.ai/internal/notify"
	"areastate.ai/internal/persistence/indexdb"
	persistlog "areastate.ai/internal/persistence/log"
	"areastate.ai/internal/persistence/snapshot"
	"areastate.ai/internal/pickup"
	"areastate.ai/internal/protocol"
	"areastate.ai/internal/transition"
	"areastate.ai/internal/transport/ws"
	"areastate.ai/internal/tuning"
)

var (
	serveConfigDir  string
	serveTuningPath string
	serveListen     string
	serveToken      string
	serveAutoStart  bool
	serveGrace      time.Duration
	serveSnapDir    string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the feed server and the cache tick loop",
	Long: `Load tuning.yaml, areas.yaml and pickup.yaml from the config directory, open the
event sinks, accept a host bridge on the feed websocket and tick the instance cache
until interrupted.

Examples:
  areastate serve
  areastate serve --configs ./configs --listen 127.0.0.1:8095 --start`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveConfigDir, "configs", "./configs", "config directory")
	serveCmd.Flags().StringVar(&serveTuningPath, "tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "http listen address (default: feed.listen from tuning)")
	serveCmd.Flags().StringVar(&serveToken, "token", "", "shared token a host must present in HELLO (or set AREASTATE_FEED_TOKEN)")
	serveCmd.Flags().BoolVar(&serveAutoStart, "start", false, "start the controller without waiting for a CONTROL START")
	serveCmd.Flags().StringVar(&serveSnapDir, "snapshots", "./data/snapshots", "registry snapshot directory (empty to disable)")
	serveCmd.Flags().DurationVar(&serveGrace, "interact-grace", 3*time.Second, "time in a town or hideout before its interaction target must resolve")
}

func runServe(cmd *cobra.Command, _ []string) error {
	logger := log.New(os.Stdout, "[areastate] ", log.LstdFlags|log.Lmicroseconds)

	tp := strings.TrimSpace(serveTuningPath)
	if tp == "" {
		tp = filepath.Join(serveConfigDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		return fmt.Errorf("load tuning: %w", err)
	}
	catalog, err := areas.Load(filepath.Join(serveConfigDir, "areas.yaml"))
	if err != nil {
		return fmt.Errorf("load areas: %w", err)
	}
	pickupPath := filepath.Join(serveConfigDir, "pickup.yaml")
	rules, err := pickup.NewReloadable(pickupPath)
	if err != nil {
		return fmt.Errorf("load pickup rules: %w", err)
	}
	bl, err := blacklist.New(tune.Blacklist.Size, tune.Blacklist.TTL())
	if err != nil {
		return fmt.Errorf("blacklist: %w", err)
	}

	world, err := feed.NewObsWorld(catalog, tune.WalkableCache, log.New(os.Stdout, "[feed] ", log.LstdFlags|log.Lmicroseconds))
	if err != nil {
		return err
	}
	defer world.Close()

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	hub := notify.NewHub()
	listeners := areastate.MultiListener{hub}

	var index *indexdb.SQLiteIndex
	if !tune.Index.Disable {
		if err := os.MkdirAll(filepath.Dir(tune.Index.Path), 0o755); err != nil {
			return err
		}
		index, err = indexdb.OpenSQLite(tune.Index.Path)
		if err != nil {
			return fmt.Errorf("open index: %w", err)
		}
		defer index.Close()
		listeners = append(listeners, index)
		logger.Printf("index: %s", tune.Index.Path)
	}

	sinkLog := log.New(os.Stdout, "[sink] ", log.LstdFlags|log.Lmicroseconds)
	if !tune.Journal.Disable {
		journal := persistlog.NewJournal(tune.Journal.Dir)
		defer journal.Close()
		go hub.Pump(ctx, "journal", 1024, notify.SinkFunc(func(_ context.Context, ev areastate.Event) error {
			return journal.WriteEvent(ev)
		}), sinkLog)
		logger.Printf("journal: %s", tune.Journal.Dir)
	}
	if !tune.Redis.Disable {
		pub, err := notify.NewRedisPublisher(ctx, tune.Redis.URL, tune.Redis.Channel)
		if err != nil {
			return err
		}
		defer pub.Close()
		go hub.Pump(ctx, "redis", 1024, pub, sinkLog)
		logger.Printf("redis: publishing to %s", tune.Redis.Channel)
	}

	reg, err := areastate.NewRegistry(areastate.Options{
		World:     world,
		Filter:    rules,
		Blacklist: bl,
		Areas:     catalog,
		Listener:  listeners,
		Logger:    log.New(os.Stdout, "[cache] ", log.LstdFlags|log.Lmicroseconds),
		Meter:     otel.Meter("areastate.ai/internal/areastate"),
		Tuning:    tune.Cache,
	})
	if err != nil {
		return err
	}
	planner, err := transition.NewPlanner(transition.PlannerOptions{
		Overrides: transition.NewOverrides(tune.Transition.NewInstance, logger),
		World:     world,
		Poll:      tune.Transition.Poll(),
		Timeout:   tune.Transition.Timeout(),
		Logger:    logger,
	})
	if err != nil {
		return err
	}
	runner, err := agent.NewRunner(agent.Options{
		Registry: reg,
		World:    world,
		Planner:  planner,
		Interval: tune.TickInterval(),
		Checks:   []agent.Check{agent.InteractCheck(serveGrace)},
		Logger:   log.New(os.Stdout, "[agent] ", log.LstdFlags|log.Lmicroseconds),
	})
	if err != nil {
		return err
	}

	go func() {
		if err := rules.Watch(ctx, logger, runner.RefreshFilter); err != nil {
			logger.Printf("pickup watch stopped: %v", err)
		}
	}()

	var validator *protocol.Validator
	if tune.Feed.ValidateFrames {
		validator, err = protocol.NewValidator()
		if err != nil {
			return err
		}
	}
	token := strings.TrimSpace(serveToken)
	if token == "" {
		token = strings.TrimSpace(os.Getenv("AREASTATE_FEED_TOKEN"))
	}
	feedSrv, err := ws.NewServer(ws.Options{
		World:      world,
		Hub:        hub,
		Controller: runner,
		Blacklist:  bl,
		Areas:      catalog,
		Validator:  validator,
		TickRateHz: tune.TickRateHz,
		MaxQueue:   tune.Feed.MaxQueue,
		Token:      token,
		Logger:     log.New(os.Stdout, "[feed] ", log.LstdFlags|log.Lmicroseconds),
	})
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.HandleFunc(tune.Feed.Path, feedSrv.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/v1/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"runner":      runner.Status(),
			"feed_frames": feedSrv.Frames(),
			"hub_dropped": hub.Dropped(),
			"blacklisted": bl.Len(),
		})
	})
	if index != nil {
		mux.HandleFunc("/v1/instances", func(w http.ResponseWriter, r *http.Request) {
			rows, err := index.Instances(r.Context())
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			writeJSON(w, map[string]any{"instances": rows, "index": index.Stats()})
		})
	}

	snapDir := strings.TrimSpace(serveSnapDir)
	if snapDir != "" {
		mux.HandleFunc("/v1/snapshot", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
				return
			}
			ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
			defer cancel()
			snap, err := runner.RequestSnapshot(ctx)
			if err != nil {
				http.Error(w, err.Error(), http.StatusServiceUnavailable)
				return
			}
			path := filepath.Join(snapDir, snapshot.FileName(snap.Header.TakenAt))
			if err := snapshot.WriteSnapshot(path, snap); err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			writeJSON(w, map[string]any{"path": path, "header": snap.Header, "instances": len(snap.Instances)})
		})
	}

	addr := strings.TrimSpace(serveListen)
	if addr == "" {
		addr = tune.Feed.Listen
	}
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	runErr := make(chan error, 1)
	go func() { runErr <- runner.Run(ctx) }()
	if serveAutoStart {
		runner.Start()
	}

	logger.Printf("listening on %s (feed %s, %d Hz, %d areas, %d pickup rules)", addr, tune.Feed.Path, tune.TickRateHz, len(catalog.IDs()), rules.Len())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		cancel()
		<-runErr
		return fmt.Errorf("listen: %w", err)
	}
	cancel()
	if err := <-runErr; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	st := runner.Status()
	logger.Printf("shutdown: ticks=%d tracked=%d halts=%d", st.Ticks, st.Tracked, st.Halts)
	if snap, ok := runner.Final(); ok && snapDir != "" && len(snap.Instances) > 0 {
		path := filepath.Join(snapDir, snapshot.FileName(snap.Header.TakenAt))
		if err := snapshot.WriteSnapshot(path, snap); err != nil {
			return fmt.Errorf("final snapshot: %w", err)
		}
		logger.Printf("snapshot: %s (%d instances)", path, len(snap.Instances))
	}
	return nil
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
