package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"

	"matchcast/db"
	mhttp "matchcast/http"
	"matchcast/logging"
	"matchcast/ml"
	"matchcast/monitoring"
)

type Config struct {
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`
	Http struct {
		Port           int   `yaml:"port"`
		TimeoutSeconds int   `yaml:"timeout_seconds"`
		MaxBodyBytes   int64 `yaml:"max_body_bytes"`
	} `yaml:"http"`
	Log logging.Config `yaml:"log"`
	ML  struct {
		ModelType string `yaml:"model_type"`
		ModelPath string `yaml:"model_path"`
		CacheSize int    `yaml:"cache_size"`
	} `yaml:"ml"`
}

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	config, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(config.Log)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	// Storage must be reachable before serving; retry briefly in case the
	// database file lives on storage that is still mounting.
	store, err := openStore(config.Database.Path)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.String("path", config.Database.Path), zap.Error(err))
	}
	defer store.Close()
	logger.Info("database initialized", zap.String("path", config.Database.Path))

	// The classifier artifact is loaded once and shared read-only for the
	// process lifetime. A missing or corrupt artifact means no serving.
	model, err := ml.LoadModel(config.ML.ModelType, config.ML.ModelPath)
	if err != nil {
		logger.Fatal("failed to load model artifact",
			zap.String("type", config.ML.ModelType),
			zap.String("path", config.ML.ModelPath),
			zap.Error(err))
	}
	logger.Info("model loaded", zap.String("type", config.ML.ModelType), zap.String("path", config.ML.ModelPath))

	classifier := model
	if config.ML.CacheSize > 0 {
		cached, err := ml.NewPredictionCache(model, config.ML.CacheSize)
		if err != nil {
			logger.Fatal("failed to build prediction cache", zap.Error(err))
		}
		classifier = cached
	}

	metrics := monitoring.NewMetrics()

	var staleFn func() bool
	watcher, err := monitoring.NewArtifactWatcher(config.ML.ModelPath, logger)
	if err != nil {
		logger.Warn("artifact watcher unavailable", zap.Error(err))
	} else {
		defer watcher.Close()
		staleFn = watcher.Stale
	}

	feed := mhttp.NewFeed(logger)
	defer feed.Close()

	handlers := &mhttp.Handlers{
		Store:      store,
		Model:      classifier,
		Feed:       feed,
		Metrics:    metrics,
		ModelStale: staleFn,
		Logger:     logger,
	}

	serverConfig := mhttp.DefaultServerConfig()
	if config.Http.Port != 0 {
		serverConfig.Port = config.Http.Port
	}
	if config.Http.TimeoutSeconds > 0 {
		serverConfig.Timeout = time.Duration(config.Http.TimeoutSeconds) * time.Second
	}
	if config.Http.MaxBodyBytes > 0 {
		serverConfig.MaxBodyBytes = config.Http.MaxBodyBytes
	}

	server := mhttp.NewServer(serverConfig, handlers, logger)
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	if err := server.Stop(); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	logger.Info("exiting")
}

func loadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var config Config
	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

func openStore(path string) (*db.Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	var store *db.Store
	operation := func() error {
		s, err := db.Open(path)
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.Ping(ctx); err != nil {
			s.Close()
			return err
		}
		store = s
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = 30 * time.Second
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, err
	}
	return store, nil
}
