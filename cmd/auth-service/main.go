package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/morozovkp/go-taskboard/internal/config"
	apihttp "github.com/morozovkp/go-taskboard/internal/http"
	"github.com/morozovkp/go-taskboard/internal/http/handlers"
	"github.com/morozovkp/go-taskboard/internal/identity"
	"github.com/morozovkp/go-taskboard/internal/keys"
	"github.com/morozovkp/go-taskboard/internal/security/password"
	"github.com/morozovkp/go-taskboard/internal/service"
	"github.com/morozovkp/go-taskboard/internal/storage/postgres"
	"github.com/morozovkp/go-taskboard/pkg/authtoken"
	"github.com/morozovkp/go-taskboard/pkg/invalidation"
)

// Константы для определения окружения.
const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.Parse()

	cfg := config.MustLoad(configPath)

	log := setupLogger(cfg.Env)
	slog.SetDefault(log)
	log.Info("starting application", "env", cfg.Env)

	// Корневой контекст по сигналам.
	rootCtx, rootCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	// Подключение к БД c таймаутом.
	dbCtx, dbCancel := context.WithTimeout(rootCtx, 10*time.Second)
	str, err := postgres.New(dbCtx, cfg.DB.DatabaseURL)
	dbCancel()
	if err != nil {
		log.Error("postgres_connect_failed", slog.String("err", err.Error()))
		rootCancel()
		os.Exit(1)
	}
	log.Info("postgres_connected")

	// Ключевая пара выпускающего процесса: из PEM-файла, либо —
	// только для локального запуска — эфемерная пара в памяти.
	authority, err := setupKeys(cfg, log)
	if err != nil {
		log.Error("keys_setup_failed", slog.String("err", err.Error()))
		rootCancel()
		str.Close()
		os.Exit(1)
	}

	publicPEM, err := authority.PublicPEM()
	if err != nil {
		log.Error("public_key_marshal_failed", slog.String("err", err.Error()))
		rootCancel()
		str.Close()
		os.Exit(1)
	}

	// Реестр отозванных токенов (fail-fast Ping внутри); каждая операция
	// реестра ограничена собственным deadline.
	registry, err := invalidation.NewRedisRegistry(cfg.Redis.RedisURL, "", cfg.Timeouts.Registry)
	if err != nil {
		log.Error("registry_connect_failed", slog.String("err", err.Error()))
		rootCancel()
		str.Close()
		os.Exit(1)
	}
	log.Info("registry_connected")

	opts := authtoken.Options{
		Issuer:   cfg.Auth.Issuer,
		Audience: cfg.Auth.Audience,
		Leeway:   cfg.Auth.Leeway,
	}

	issuer := authtoken.NewIssuer(authority, cfg.Auth.AccessTokenTTL, cfg.Auth.RefreshTokenTTL, opts)

	pub, err := authority.Public()
	if err != nil {
		log.Error("public_key_unavailable", slog.String("err", err.Error()))
		rootCancel()
		registry.Close()
		str.Close()
		os.Exit(1)
	}
	verifier := authtoken.NewVerifier(pub, registry, opts)

	// Сервис.
	srvc := service.New(str, issuer, verifier, registry, password.NewBcrypt(), identity.NewResolver(), cfg.Auth)
	log.Info("service_initialized")

	var ready int32 // 0 — not ready; 1 — ready

	// Ops-сервер: liveness/readiness/метрики на отдельном порту.
	opsAddr := cfg.Ops.Addr()

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if atomic.LoadInt32(&ready) == 1 {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
			return
		}
		http.Error(w, "not ready", http.StatusServiceUnavailable)
	})

	mux.Handle("/metrics", promhttp.Handler())

	opsSrv := &http.Server{
		Addr:              opsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("ops_listen_start", "addr", opsAddr)
		if err := opsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("ops_serve_failed", slog.String("err", err.Error()))
		}
	}()

	// API-сервер.
	router := apihttp.NewRouter(handlers.New(srvc, publicPEM), apihttp.Options{
		Logger:  log,
		Timeout: cfg.Timeouts.Service,
	})

	apiAddr := cfg.HTTP.Addr()
	apiSrv := &http.Server{
		Addr:              apiAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErrCh := make(chan error, 1)
	go func() {
		log.Info("http_listen_start", slog.String("addr", apiAddr))
		if err := apiSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErrCh <- err
		}
		close(serveErrCh)
	}()

	// Сервис готов: readiness=1.
	atomic.StoreInt32(&ready, 1)

	// Ожидание сигнала завершения или фатальной ошибки сервера.
	select {
	case <-rootCtx.Done():
		log.Info("shutdown_requested")
	case err := <-serveErrCh:
		if err != nil {
			log.Error("http_serve_failed", slog.String("err", err.Error()))
		}
	}

	// Снимаем ready.
	atomic.StoreInt32(&ready, 0)

	// Graceful stop с таймаутом.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)

	if err := apiSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http_force_stop", slog.String("err", err.Error()))
		_ = apiSrv.Close()
	} else {
		log.Info("http_stopped")
	}

	// Грейсфул остановка ops-сервера.
	_ = opsSrv.Shutdown(context.Background())

	// Явная очистка перед выходом.
	shutdownCancel()
	rootCancel()
	if err := registry.Close(); err != nil {
		log.Error("registry_close_failed", slog.String("err", err.Error()))
	}
	str.Close()

	log.Info("service_stopped")
	os.Exit(0)
}

// setupLogger настраивает slog по окружению.
func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	}

	return log
}

// setupKeys загружает приватный ключ из PEM-файла. Если путь не задан,
// в local-окружении генерируется эфемерная пара (ранее выпущенные токены
// после рестарта станут невалидными); в dev/prod это ошибка конфигурации.
func setupKeys(cfg *config.Config, log *slog.Logger) (*keys.Authority, error) {
	if cfg.Auth.PrivateKeyFile != "" {
		return keys.Load(cfg.Auth.PrivateKeyFile)
	}

	if cfg.Env != envLocal {
		return nil, errors.New("auth.private_key_file is required outside local env")
	}

	log.Warn("ephemeral_keys_generated", "env", cfg.Env)

	return keys.Generate()
}
