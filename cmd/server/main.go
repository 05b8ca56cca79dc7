package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
	_ "modernc.org/sqlite"

	"github.com/atharv3903/saferoute/internal/api"
	"github.com/atharv3903/saferoute/internal/cache"
	"github.com/atharv3903/saferoute/internal/config"
	"github.com/atharv3903/saferoute/internal/db"
	"github.com/atharv3903/saferoute/internal/graph"
	"github.com/atharv3903/saferoute/internal/logging"
	"github.com/atharv3903/saferoute/internal/model"
	"github.com/atharv3903/saferoute/internal/routing"
	"github.com/atharv3903/saferoute/internal/telemetry"
)

func main() {
	cfg := config.FromFlagsServer()

	logger, err := logging.New(cfg.LogLevel, cfg.LogJSON)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.ServerConfig, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rcfg, err := config.LoadRouting(cfg.ConfigPath)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	shutdownTelemetry, err := telemetry.Init(ctx, telemetry.Config{TraceStdout: cfg.TraceStdout}, reg)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer shutdownTelemetry(context.Background())

	conn, err := db.Open(ctx, cfg.Driver, cfg.DSN)
	if err != nil {
		return err
	}
	defer conn.Close()

	store := db.Store{DB: conn, Driver: cfg.Driver}
	if err := store.Migrate(ctx); err != nil {
		return err
	}
	if cfg.SeedPath != "" {
		n, err := seedFacilities(ctx, store, cfg.SeedPath)
		if err != nil {
			return err
		}
		logger.Info("facilities seeded", zap.String("file", cfg.SeedPath), zap.Int("count", n))
	}

	graphs := cache.NewGraphCache(cache.WithTTL(rcfg.Cache.TTL), cache.WithCapacity(rcfg.Cache.Capacity))
	engine := routing.NewEngine(graph.NewBuilder(rcfg.Graph), rcfg.Risk, graphs, logger.Named("routing"))
	srv := api.New(store, engine, logger.Named("api"),
		api.WithRouteTimeout(cfg.RouteTimeout),
		api.WithRegistry(reg),
	)

	httpSrv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("SAFEROUTE listening", zap.String("addr", cfg.Addr), zap.String("driver", cfg.Driver))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

type seedFile struct {
	Facilities []model.Facility `yaml:"facilities"`
}

// seedFacilities imports the facilities listed in a YAML file.
func seedFacilities(ctx context.Context, store db.Store, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read seed: %w", err)
	}
	var sf seedFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return 0, fmt.Errorf("parse seed %s: %w", path, err)
	}
	for i, f := range sf.Facilities {
		if !model.IsCategory(f.Category) {
			return i, fmt.Errorf("seed facility %d (%s): unknown category %q", i, f.Name, f.Category)
		}
		if err := f.Location.Validate(); err != nil {
			return i, fmt.Errorf("seed facility %d (%s): %w", i, f.Name, err)
		}
		if _, err := store.InsertFacility(ctx, f); err != nil {
			return i, err
		}
	}
	return len(sf.Facilities), nil
}
