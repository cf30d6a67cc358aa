package main

import (
	"context"
	"flag"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/2beens/gymlog/internal/backup"
	"github.com/2beens/gymlog/internal/config"
	"github.com/2beens/gymlog/internal/db"
	"github.com/2beens/gymlog/internal/gymlog/records"
	"github.com/2beens/gymlog/internal/logging"
	"github.com/2beens/gymlog/internal/storage"
	"github.com/2beens/gymlog/internal/telemetry/metrics"

	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"
)

// loadedLog serves the snapshot read once from the local store.
type loadedLog struct {
	log *records.Log
}

func (l loadedLog) Snapshot() *records.Log {
	return l.log
}

func main() {
	env := flag.String("env", "development", "environment [prod | production | dev | development]")
	configPath := flag.String("config", "./config.toml", "path for the TOML config file")
	credentialsFile := flag.String("gd-creds", "./gdrive-credentials.json", "google drive service account credentials json")
	logsPath := flag.String("logs-path", "", "logs file path (empty for stdout)")
	flag.Parse()

	cfg, err := config.Load(*env, *configPath)
	if err != nil {
		log.Fatalf("load config: %s", err)
	}

	logging.Setup(logging.LoggerSetupParams{
		LogFileName: *logsPath,
		LogToStdout: *logsPath == "",
		LogLevel:    cfg.LogLevel,
		Environment: cfg.Environment,
	})

	log.Println("staring record log backup ...")

	if *credentialsFile == "" {
		log.Fatalln("google drive credentials json not specified")
	}
	credentialsFileBytes, err := os.ReadFile(*credentialsFile)
	if err != nil {
		log.Fatalf("unable to read credentials file: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	store, closeClients, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("open local store: %s", err)
	}
	rs := storage.NewRecordStore(store)
	defer func() {
		if err := rs.Close(); err != nil {
			log.Errorf("close local store: %s", err)
		}
		closeClients()
	}()

	l, err := rs.LoadLog(ctx, records.DefaultRoutines())
	if err != nil {
		log.Fatalf("load record log: %s", err)
	}
	log.Printf("loaded %d workouts from the %s store", len(l.Workouts), cfg.StorageBackend)

	folders, err := backup.NewDriveFolders(ctx, credentialsFileBytes, cfg.BackupShareWith)
	if err != nil {
		log.Fatalf("failed to create google drive backup service: %s", err)
	}

	s := backup.NewService(loadedLog{log: l}, folders, cfg.BackupFolder, metrics.NewManager("gymlog", "backup_cmd", nil))
	name, err := s.DoBackup(ctx)
	if err != nil {
		log.Fatalf("%+v", err)
	}
	log.Printf("backup done: %s", name)
}

// openStore opens the configured backend. The returned func closes the redis client or
// db pool the backend runs on.
func openStore(ctx context.Context, cfg *config.Config) (storage.Store, func(), error) {
	closeClients := func() {}
	backend, err := storage.ParseBackend(cfg.StorageBackend)
	if err != nil {
		return nil, closeClients, err
	}

	params := storage.OpenParams{
		Backend:     backend,
		Dir:         cfg.DataDir,
		SQLitePath:  cfg.SQLitePath,
		RedisPrefix: cfg.RedisPrefix,
		LogID:       cfg.LogID,
	}
	if params.SQLitePath == "" {
		params.SQLitePath = filepath.Join(cfg.DataDir, "gymlog.db")
	}

	switch backend {
	case storage.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     net.JoinHostPort(cfg.RedisHost, cfg.RedisPort),
			Password: os.Getenv("GYMLOG_REDIS_PASS"),
		})
		params.RedisClient = client
		closeClients = func() { _ = client.Close() }
	case storage.BackendPostgres:
		params.PgPool, err = db.NewDBPool(ctx, db.NewDBPoolParams{
			DBHost:     cfg.PostgresHost,
			DBPort:     cfg.PostgresPort,
			DBName:     cfg.PostgresDBName,
			DBUser:     cfg.PostgresUser,
			DBPassword: os.Getenv("GYMLOG_POSTGRES_PASS"),
		})
		if err != nil {
			return nil, closeClients, err
		}
		closeClients = params.PgPool.Close
	}

	store, err := storage.Open(ctx, params)
	if err != nil {
		closeClients()
		return nil, func() {}, err
	}
	return store, closeClients, nil
}
