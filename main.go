package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"mobileprice/db"
	phttp "mobileprice/http"
	"mobileprice/logger"
	"mobileprice/ml"
	"mobileprice/monitoring"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"
)

type Config struct {
	Http struct {
		Port           int           `yaml:"port"`
		Timeout        time.Duration `yaml:"timeout"`
		AllowedOrigins []string      `yaml:"allowed_origins"`
	} `yaml:"http"`
	Model struct {
		Path        string `yaml:"path"`
		Type        string `yaml:"type"`
		WatchChange bool   `yaml:"watch_changes"`
	} `yaml:"model"`
	Predictor struct {
		CacheSize int `yaml:"cache_size"`
	} `yaml:"predictor"`
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`
	RateLimit struct {
		Requests int           `yaml:"requests"`
		Per      time.Duration `yaml:"per"`
	} `yaml:"rate_limit"`
	Log logger.Config `yaml:"log"`
}

func defaultConfig() *Config {
	var c Config
	c.Http.Port = 8080
	c.Http.Timeout = 30 * time.Second
	c.Http.AllowedOrigins = []string{"*"}
	c.Model.Path = ml.DefaultModelPath
	c.Model.Type = ml.ModelTypeAuto
	c.Model.WatchChange = true
	c.Predictor.CacheSize = 1024
	c.Database.Path = "data/predictions.db"
	c.RateLimit.Requests = 60
	c.RateLimit.Per = time.Minute
	c.Log.Level = "info"
	c.Log.Format = "json"
	return &c
}

func main() {
	// .env is optional
	_ = godotenv.Load()

	configPath := os.Getenv("MOBILEPRICE_CONFIG")
	if configPath == "" {
		configPath = "config.yaml"
	}
	config, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(config.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(config, log); err != nil {
		log.Error("exiting", zap.Error(err))
		log.Sync()
		os.Exit(1)
	}
	log.Info("exiting")
}

func run(config *Config, log *zap.Logger) error {
	// 1. Load the model. Nothing is served without it.
	start := time.Now()
	loader := ml.NewLoader(config.Model.Path, config.Model.Type, ml.WithLogger(log))
	model, err := loader.Load()
	if err != nil {
		return fmt.Errorf("model unavailable, not serving predictions: %w", err)
	}
	monitoring.RecordModelLoad(time.Since(start))

	predictor, err := ml.NewPredictor(model, config.Predictor.CacheSize, log)
	if err != nil {
		return err
	}

	// 2. Prediction history
	var store phttp.PredictionStore
	if config.Database.Path != "" {
		s, err := db.Open(config.Database.Path)
		if err != nil {
			return fmt.Errorf("initialize database: %w", err)
		}
		defer s.Close()
		store = s
		log.Info("database initialized", zap.String("path", config.Database.Path))
	}

	hub := monitoring.NewFeedHub(log)
	go hub.Run()
	defer hub.Stop()

	if config.Model.WatchChange {
		watcher, err := monitoring.WatchArtifact(loader.Path(), log, func(op fsnotify.Op) {
			hub.Publish(monitoring.SystemStatus, map[string]string{
				"artifact": loader.Path(),
				"op":       op.String(),
				"status":   "restart required",
			})
		})
		if err != nil {
			log.Warn("artifact watcher disabled", zap.Error(err))
		} else {
			defer watcher.Close()
		}
	}

	var limiter *phttp.RateLimiter
	if config.RateLimit.Requests > 0 {
		limiter = phttp.NewRateLimiter(config.RateLimit.Requests, config.RateLimit.Per)
		defer limiter.Stop()
	}

	// 3. Start HTTP server
	serverConfig := phttp.DefaultServerConfig()
	serverConfig.Port = config.Http.Port
	if config.Http.Timeout > 0 {
		serverConfig.Timeout = config.Http.Timeout
	}
	if len(config.Http.AllowedOrigins) > 0 {
		serverConfig.AllowedOrigins = config.Http.AllowedOrigins
	}
	server := phttp.NewServer(serverConfig, phttp.Deps{
		Handlers: phttp.NewHandlers(predictor, store, hub, log),
		Limiter:  limiter,
		Feed:     hub,
		Metrics:  monitoring.Handler(),
		Logger:   log,
	})

	serverErr := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// 4. Handle graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serverErr:
		return err
	case <-quit:
		log.Info("shutting down")
	}
	return server.Stop()
}

// loadConfig reads path over the defaults. A missing file is fine; a
// malformed one is not.
func loadConfig(path string) (*Config, error) {
	config := defaultConfig()

	file, err := os.Open(path)
	switch {
	case err == nil:
		defer file.Close()
		if err := yaml.NewDecoder(file).Decode(config); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case !errors.Is(err, os.ErrNotExist):
		return nil, err
	}

	if err := applyEnv(config); err != nil {
		return nil, err
	}
	return config, nil
}

func applyEnv(config *Config) error {
	if v := os.Getenv("MOBILEPRICE_MODEL_PATH"); v != "" {
		config.Model.Path = v
	}
	if v := os.Getenv("MOBILEPRICE_HTTP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("MOBILEPRICE_HTTP_PORT: %w", err)
		}
		config.Http.Port = port
	}
	return nil
}
