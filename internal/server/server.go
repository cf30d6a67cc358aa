package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/2beens/gymlog/internal/backup"
	"github.com/2beens/gymlog/internal/config"
	"github.com/2beens/gymlog/internal/db"
	"github.com/2beens/gymlog/internal/gymlog/records"
	"github.com/2beens/gymlog/internal/gymlog/stats"
	"github.com/2beens/gymlog/internal/gymlog/syncer"
	"github.com/2beens/gymlog/internal/gymlog/tracker"
	"github.com/2beens/gymlog/internal/middleware"
	"github.com/2beens/gymlog/internal/remote"
	"github.com/2beens/gymlog/internal/storage"
	"github.com/2beens/gymlog/internal/telemetry/metrics"
	"github.com/2beens/gymlog/internal/telemetry/tracing"
	"github.com/2beens/gymlog/pkg"

	"github.com/coocood/freecache"
	"github.com/getsentry/sentry-go"
	"github.com/go-redis/redis/extra/redisotel/v8"
	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redis_rate/v9"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/multierr"
)

const megabyte = 1024 * 1024

type Server struct {
	config            *config.Config
	httpServer        *http.Server
	metricsHttpServer *http.Server
	versionInfo       string

	tracker     *tracker.Tracker
	backup      *backup.Service
	store       *storage.RecordStore
	dbPool      *pgxpool.Pool
	redisClient *redis.Client
	rateLimiter middleware.RequestRateLimiter

	// metrics
	metricsManager *metrics.Manager
	promRegistry   *prometheus.Registry
	otelShutdown   func()

	backgroundCancel context.CancelFunc
	backgroundWg     sync.WaitGroup
}

type NewServerParams struct {
	Config                  *config.Config
	VersionInfo             string
	RedisPassword           string
	PostgresPassword        string
	GDriveCredentials       []byte
	HoneycombTracingEnabled bool
}

func NewServer(ctx context.Context, params NewServerParams) (_ *Server, err error) {
	cfg := params.Config
	s := &Server{
		config:       cfg,
		versionInfo:  params.VersionInfo,
		otelShutdown: func() {},
	}
	defer func() {
		if err != nil {
			if s.tracker != nil {
				s.tracker.Close()
			}
			if closeErr := s.closeResources(); closeErr != nil {
				log.Errorf("close resources after failed setup: %s", closeErr)
			}
		}
	}()

	if params.HoneycombTracingEnabled {
		// use honeycomb distro to setup OpenTelemetry SDK
		otelShutdown, err := tracing.HoneycombSetup("gymlog-backend")
		if err != nil {
			return nil, err
		}
		s.otelShutdown = otelShutdown
	}

	s.promRegistry = metrics.SetupPrometheus()
	s.metricsManager = metrics.NewManager("gymlog", "backend", s.promRegistry)
	s.metricsManager.GaugeLifeSignal.Set(0)

	if cfg.RedisEnabled() {
		s.redisClient = redis.NewClient(&redis.Options{
			Addr:     net.JoinHostPort(cfg.RedisHost, cfg.RedisPort),
			Password: params.RedisPassword,
			DB:       0, // use default DB
		})
		if params.HoneycombTracingEnabled {
			s.redisClient.AddHook(redisotel.NewTracingHook())
		}
		rdbStatus := s.redisClient.Ping(ctx)
		if err := rdbStatus.Err(); err != nil {
			log.Errorf("--> failed to ping redis: %s", err)
		} else {
			log.Debugf("redis ping: %s", rdbStatus.Val())
		}
		s.rateLimiter = redis_rate.NewLimiter(s.redisClient)
	}

	backend, err := storage.ParseBackend(cfg.StorageBackend)
	if err != nil {
		return nil, err
	}

	if backend == storage.BackendPostgres {
		s.dbPool, err = db.NewDBPool(ctx, db.NewDBPoolParams{
			DBHost:         cfg.PostgresHost,
			DBPort:         cfg.PostgresPort,
			DBName:         cfg.PostgresDBName,
			DBUser:         cfg.PostgresUser,
			DBPassword:     params.PostgresPassword,
			TracingEnabled: params.HoneycombTracingEnabled,
		})
		if err != nil {
			return nil, fmt.Errorf("new db pool: %w", err)
		}
		if err := s.dbPool.Ping(ctx); err != nil {
			log.Warnf("failed to ping db: %s", err)
		}
		if err := metrics.RegisterPgxPool(s.promRegistry, s.dbPool, cfg.PostgresDBName); err != nil {
			return nil, err
		}
	}

	if backend == storage.BackendDisk || backend == storage.BackendSQLite {
		if err := pkg.EnsureDir(cfg.DataDir); err != nil {
			return nil, fmt.Errorf("data dir %s: %w", cfg.DataDir, err)
		}
	}

	sqlitePath := cfg.SQLitePath
	if sqlitePath == "" {
		sqlitePath = cfg.DataDir + "/gymlog.db"
	}
	store, err := storage.Open(ctx, storage.OpenParams{
		Backend:        backend,
		Dir:            cfg.DataDir,
		SQLitePath:     sqlitePath,
		RedisClient:    s.redisClient,
		RedisPrefix:    cfg.RedisPrefix,
		PgPool:         s.dbPool,
		LogID:          cfg.LogID,
		CacheSizeBytes: cfg.CacheSizeMB * megabyte,
	})
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}
	s.store = storage.NewRecordStore(store)

	defaults := records.DefaultRoutines()
	if cfg.RoutinesSeed != "" {
		defaults, err = records.LoadRoutinesYAML(cfg.RoutinesSeed)
		if err != nil {
			return nil, fmt.Errorf("load routines seed: %w", err)
		}
		log.Infof("routines seeded from %s: %v", cfg.RoutinesSeed, defaults.Types())
	}

	tracedHttpClient := &http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
		Timeout:   cfg.SyncPushTimeout.Duration,
	}
	var githubOpts []remote.GitHubOption
	if cfg.GitHubAPIURL != "" {
		githubOpts = append(githubOpts, remote.WithAPIURL(cfg.GitHubAPIURL))
	}
	phasesOpts := append([]remote.GitHubOption{
		remote.WithReadCache(freecache.NewCache(megabyte), cfg.PhasesCacheTTL.Duration, remote.PhasesPath),
	}, githubOpts...)

	engine := syncer.NewEngine(s.store, s.metricsManager, syncer.Config{
		Debounce:      cfg.SyncDebounce.Duration,
		SyncedDisplay: cfg.SyncedDisplay.Duration,
		FailedDisplay: cfg.FailedDisplay.Duration,
		PushTimeout:   cfg.SyncPushTimeout.Duration,
	})
	s.tracker, err = tracker.New(ctx, tracker.Params{
		Store:        s.store,
		Engine:       engine,
		Analyzer:     stats.NewAnalyzer(records.Unit(cfg.BaseUnit)),
		Metrics:      s.metricsManager,
		RecordsHosts: remote.GitHubFactory(tracedHttpClient, githubOpts...),
		PhasesHosts:  remote.GitHubFactory(tracedHttpClient, phasesOpts...),
		Defaults:     defaults,
		Location:     cfg.Location(),
	})
	if err != nil {
		engine.Close()
		return nil, fmt.Errorf("new tracker: %w", err)
	}

	if cfg.BackupInterval.Duration > 0 {
		if len(params.GDriveCredentials) == 0 {
			log.Warnln("backup interval set, but no google drive credentials given; backups disabled")
		} else {
			folders, err := backup.NewDriveFolders(ctx, params.GDriveCredentials, cfg.BackupShareWith)
			if err != nil {
				return nil, fmt.Errorf("google drive backup: %w", err)
			}
			s.backup = backup.NewService(s.tracker, folders, cfg.BackupFolder, s.metricsManager)
		}
	}

	return s, nil
}

func (s *Server) routerSetup() *mux.Router {
	r := mux.NewRouter()
	r.Use(otelmux.Middleware("gymlog-router"))

	NewWorkoutsHandler(s.tracker).SetupRoutes(r)
	NewRoutinesHandler(s.tracker).SetupRoutes(r)
	NewStatsHandler(s.tracker).SetupRoutes(r)
	NewSyncHandler(s.tracker).SetupRoutes(r)

	r.HandleFunc("/version", func(w http.ResponseWriter, r *http.Request) {
		pkg.WriteJSONOK(w, map[string]string{"version": s.versionInfo})
	}).Methods("GET", "OPTIONS").Name("version")

	// all the rest - unhandled paths
	r.HandleFunc("/{unknown}", func(w http.ResponseWriter, r *http.Request) {
		pkg.WriteError(w, http.StatusNotFound, "not found")
	}).Methods("GET", "POST", "PUT", "DELETE", "OPTIONS").Name("unknown")

	r.Use(middleware.PanicRecovery(s.metricsManager))
	r.Use(middleware.RequestID())
	r.Use(middleware.LogRequest())
	r.Use(middleware.RequestMetrics(s.metricsManager))
	r.Use(middleware.Cors(s.config.AllowedOrigins))
	if s.rateLimiter != nil {
		r.Use(middleware.RateLimit(s.rateLimiter, "gymlog", s.config.RateLimitPerMin, s.metricsManager))
	}
	r.Use(middleware.LimitBody(s.config.MaxRequestBodyKiB * 1024))

	return r
}

// Serve starts the API and metrics listeners, loads the remote data sets and starts the
// snapshot backups. It does not block.
func (s *Server) Serve(ctx context.Context, host string, port int) {
	ipAndPort := net.JoinHostPort(host, strconv.Itoa(port))
	s.httpServer = &http.Server{
		Handler:      s.routerSetup(),
		Addr:         ipAndPort,
		WriteTimeout: time.Minute,
		ReadTimeout:  time.Minute,
		ConnState:    s.connStateMetrics,
	}

	metricsRouter := mux.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.HandlerFor(s.promRegistry, promhttp.HandlerOpts{}))
	metricsAddr := net.JoinHostPort(s.config.PrometheusMetricsHost, s.config.PrometheusMetricsPort)
	s.metricsHttpServer = &http.Server{
		Addr:    metricsAddr,
		Handler: metricsRouter,
	}

	go func() {
		log.Infof(" > server listening on: [%s]", ipAndPort)
		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("main service, listen and serve: %s", err)
		}
	}()

	go func() {
		log.Debugf(" > metrics listening on: [%s]", metricsAddr)
		err := s.metricsHttpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("metrics service, listen and serve: %s", err)
		}
	}()

	bgCtx, cancel := context.WithCancel(ctx)
	s.backgroundCancel = cancel

	s.backgroundWg.Add(1)
	go func() {
		defer s.backgroundWg.Done()
		res := s.tracker.Load(bgCtx)
		log.WithFields(log.Fields{
			"workouts": res.Workouts,
			"routines": res.Routines,
			"phases":   res.Phases,
			"merged":   res.Merged,
		}).Infof("initial load done, sync status: %s", s.tracker.SyncState().Status)
	}()

	if s.backup != nil {
		s.backgroundWg.Add(1)
		go func() {
			defer s.backgroundWg.Done()
			s.backup.Run(bgCtx, s.config.BackupInterval.Duration)
		}()
	}

	s.metricsManager.GaugeLifeSignal.Set(1)
}

func (s *Server) GracefulShutdown() {
	log.Debug("graceful shutdown initiated ...")
	s.metricsManager.GaugeLifeSignal.Set(0)

	maxWaitDuration := time.Second * 15
	ctx, timeoutCancel := context.WithTimeout(context.Background(), maxWaitDuration)
	defer timeoutCancel()

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			log.Error(" >>> failed to gracefully shutdown http server")
		}
		log.Warnln("server shut down")
	}

	if s.backgroundCancel != nil {
		s.backgroundCancel()
	}
	s.backgroundWg.Wait()

	// pending pushes go out before the store and clients close
	s.tracker.Close()
	log.Debugln("tracker closed, pending pushes flushed")

	if err := s.closeResources(); err != nil {
		log.Errorf("close resources: %s", err)
	}

	if ok := sentry.Flush(5 * time.Second); ok {
		log.Debugf("sentry flush ok: %t", ok)
	}

	if s.metricsHttpServer != nil {
		if err := s.metricsHttpServer.Shutdown(ctx); err != nil {
			log.Error(" >>> failed to gracefully shutdown metrics http server")
		}
		log.Warnln("metrics server shut down")
	}
}

func (s *Server) closeResources() error {
	var err error
	if s.store != nil {
		err = multierr.Append(err, s.store.Close())
	}
	if s.redisClient != nil {
		err = multierr.Append(err, s.redisClient.Close())
	}
	if s.dbPool != nil {
		log.Debugln("closing db pool ...")
		s.dbPool.Close() // blocking operation
		log.Debugln("db pool closed")
	}
	s.otelShutdown()
	log.Trace("otel shut down ...")
	return err
}

func (s *Server) connStateMetrics(_ net.Conn, state http.ConnState) {
	switch state {
	case http.StateNew:
		s.metricsManager.GaugeRequests.Add(1)
	case http.StateClosed:
		s.metricsManager.GaugeRequests.Add(-1)
	default:
		// do nothing
	}
}
