// Command server starts the reelroom streaming API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"reelroom/internal/api"
	"reelroom/internal/auth"
	"reelroom/internal/media"
	"reelroom/internal/observability/logging"
	"reelroom/internal/observability/metrics"
	"reelroom/internal/server"
	"reelroom/internal/storage"
)

func main() {
	envFile := flag.String("env-file", "", "path to a dotenv file to load before reading configuration")
	addr := flag.String("addr", "", "HTTP listen address")
	mediaDir := flag.String("media-dir", "", "directory holding the playable media files")
	mediaManifest := flag.String("media-manifest", "", "optional JSON manifest with catalog titles and thumbnails")
	dataPath := flag.String("data", "", "path to JSON datastore")
	storageDriver := flag.String("storage-driver", "", "datastore driver (json or postgres)")
	postgresDSN := flag.String("postgres-dsn", "", "Postgres connection string")
	postgresMaxConns := flag.Int("postgres-max-conns", 0, "maximum connections in the Postgres pool")
	postgresMinConns := flag.Int("postgres-min-conns", 0, "minimum idle connections maintained by the Postgres pool")
	postgresMaxConnLifetime := flag.Duration("postgres-max-conn-lifetime", 0, "maximum lifetime for a pooled Postgres connection")
	postgresMaxConnIdle := flag.Duration("postgres-max-conn-idle", 0, "maximum idle time for a pooled Postgres connection")
	postgresHealthInterval := flag.Duration("postgres-health-interval", 0, "interval between Postgres health checks")
	postgresAcquireTimeout := flag.Duration("postgres-acquire-timeout", 0, "timeout when acquiring a Postgres connection from the pool")
	postgresAppName := flag.String("postgres-app-name", "", "application_name reported to Postgres")
	sessionStoreDriver := flag.String("session-store", "", "session store driver (memory or postgres)")
	sessionPostgresDSN := flag.String("session-postgres-dsn", "", "Postgres DSN for the session store")
	sessionTTL := flag.Duration("session-ttl", 0, "lifetime of issued sessions")
	sessionPurgeInterval := flag.Duration("session-purge-interval", 0, "interval between expired-session sweeps")
	disableSignup := flag.Bool("disable-signup", false, "disable self-service account creation")
	tlsCert := flag.String("tls-cert", "", "path to TLS certificate file")
	tlsKey := flag.String("tls-key", "", "path to TLS private key file")
	logLevel := flag.String("log-level", "", "log level (debug, info, warn, error)")
	logFormat := flag.String("log-format", "", "log format (json or text)")
	globalRPS := flag.Float64("rate-global-rps", 0, "global request rate limit in requests per second")
	globalBurst := flag.Int("rate-global-burst", 0, "global rate limit burst allowance")
	loginLimit := flag.Int("rate-login-limit", 0, "maximum login attempts per window for a single IP")
	loginWindow := flag.Duration("rate-login-window", 0, "window for counting login attempts")
	redisAddr := flag.String("rate-redis-addr", "", "Redis address for distributed login throttling")
	redisPassword := flag.String("rate-redis-password", "", "Redis password for distributed login throttling")
	redisTimeout := flag.Duration("rate-redis-timeout", 0, "timeout for Redis operations")
	corsOrigins := flag.String("cors-origins", "", "comma separated browser origins allowed to call the API")
	flag.Parse()

	loadDotenv(*envFile)

	logger := logging.Init(logging.Config{
		Level:  firstNonEmpty(*logLevel, os.Getenv("REELROOM_LOG_LEVEL")),
		Format: firstNonEmpty(*logFormat, os.Getenv("REELROOM_LOG_FORMAT")),
	})
	recorder := metrics.Default()

	libraryRoot := firstNonEmpty(*mediaDir, os.Getenv("REELROOM_MEDIA_DIR"))
	if libraryRoot == "" {
		logger.Error("no media directory configured: provide --media-dir or REELROOM_MEDIA_DIR")
		os.Exit(1)
	}
	library, err := media.NewLibrary(media.LibraryConfig{
		Root:         libraryRoot,
		ManifestPath: firstNonEmpty(*mediaManifest, os.Getenv("REELROOM_MEDIA_MANIFEST")),
		Logger:       logging.WithComponent(logger, "library"),
	})
	if err != nil {
		logger.Error("failed to open media library", "error", err)
		os.Exit(1)
	}

	postgresDefaultDSN := resolvePostgresDSN(*postgresDSN)
	driver, err := resolveStorageDriver(*storageDriver, os.Getenv("REELROOM_STORAGE_DRIVER"), postgresDefaultDSN)
	if err != nil {
		logger.Error("failed to resolve storage driver", "error", err)
		os.Exit(1)
	}

	var (
		store                   storage.Repository
		datastoreAcquireTimeout time.Duration
	)
	switch driver {
	case "json":
		store, err = storage.NewStorage(resolveDataPath(*dataPath, os.Getenv("REELROOM_DATA")))
	case "postgres":
		if postgresDefaultDSN == "" {
			logger.Error("postgres storage selected without DSN")
			os.Exit(1)
		}
		var pgOptions []storage.Option
		maxConns := resolveInt(*postgresMaxConns, "REELROOM_POSTGRES_MAX_CONNS")
		minConns := resolveInt(*postgresMinConns, "REELROOM_POSTGRES_MIN_CONNS")
		if maxConns > 0 || minConns > 0 {
			pgOptions = append(pgOptions, storage.WithPostgresPoolLimits(int32(maxConns), int32(minConns)))
		}
		maxLifetime := resolveDuration(*postgresMaxConnLifetime, "REELROOM_POSTGRES_MAX_CONN_LIFETIME", 0)
		maxIdle := resolveDuration(*postgresMaxConnIdle, "REELROOM_POSTGRES_MAX_CONN_IDLE", 0)
		healthInterval := resolveDuration(*postgresHealthInterval, "REELROOM_POSTGRES_HEALTH_INTERVAL", 0)
		if maxLifetime > 0 || maxIdle > 0 || healthInterval > 0 {
			pgOptions = append(pgOptions, storage.WithPostgresPoolDurations(maxLifetime, maxIdle, healthInterval))
		}
		datastoreAcquireTimeout = resolveDuration(*postgresAcquireTimeout, "REELROOM_POSTGRES_ACQUIRE_TIMEOUT", 0)
		if datastoreAcquireTimeout > 0 {
			pgOptions = append(pgOptions, storage.WithPostgresAcquireTimeout(datastoreAcquireTimeout))
		}
		if appName := firstNonEmpty(*postgresAppName, os.Getenv("REELROOM_POSTGRES_APP_NAME")); appName != "" {
			pgOptions = append(pgOptions, storage.WithPostgresApplicationName(appName))
		}
		store, err = storage.NewPostgresRepository(postgresDefaultDSN, pgOptions...)
	default:
		logger.Error("unsupported storage driver", "driver", driver)
		os.Exit(1)
	}
	if err != nil {
		logger.Error("failed to open datastore", "error", err)
		os.Exit(1)
	}

	sessionConfig, err := resolveSessionStoreConfig(
		*sessionStoreDriver,
		os.Getenv("REELROOM_SESSION_STORE"),
		driver,
		postgresDefaultDSN,
		*sessionPostgresDSN,
		os.Getenv("REELROOM_SESSION_POSTGRES_DSN"),
	)
	if err != nil {
		logger.Error("failed to resolve session store", "error", err)
		os.Exit(1)
	}

	var sessionStore auth.SessionStore
	var sessionCloser func(context.Context) error
	switch sessionConfig.Driver {
	case "memory":
		sessionStore = auth.NewMemorySessionStore()
	case "postgres":
		pgStore, err := auth.NewPostgresSessionStore(sessionConfig.DSN)
		if err != nil {
			logger.Error("failed to open session store", "error", err)
			os.Exit(1)
		}
		sessionStore = pgStore
		sessionCloser = pgStore.Close
	}

	ttl := resolveDuration(*sessionTTL, "REELROOM_SESSION_TTL", 7*24*time.Hour)
	sessions := auth.NewSessionManager(ttl, auth.WithStore(sessionStore))

	handler := api.NewHandler(store, sessions, library)
	handler.Recorder = recorder
	handler.Logger = logging.WithComponent(logger, "api")
	handler.DisableSignup = resolveBool(*disableSignup, "REELROOM_DISABLE_SIGNUP")

	srv, err := server.New(handler, server.Config{
		Addr: resolveListenAddr(*addr, os.Getenv("REELROOM_ADDR")),
		TLS: server.TLSConfig{
			CertFile: firstNonEmpty(*tlsCert, os.Getenv("REELROOM_TLS_CERT")),
			KeyFile:  firstNonEmpty(*tlsKey, os.Getenv("REELROOM_TLS_KEY")),
		},
		RateLimit: server.RateLimitConfig{
			GlobalRPS:     resolveFloat(*globalRPS, "REELROOM_RATE_GLOBAL_RPS"),
			GlobalBurst:   resolveInt(*globalBurst, "REELROOM_RATE_GLOBAL_BURST"),
			LoginLimit:    resolveInt(*loginLimit, "REELROOM_RATE_LOGIN_LIMIT"),
			LoginWindow:   resolveDuration(*loginWindow, "REELROOM_RATE_LOGIN_WINDOW", time.Minute),
			RedisAddr:     firstNonEmpty(*redisAddr, os.Getenv("REELROOM_RATE_REDIS_ADDR")),
			RedisPassword: firstNonEmpty(*redisPassword, os.Getenv("REELROOM_RATE_REDIS_PASSWORD")),
			RedisTimeout:  resolveDuration(*redisTimeout, "REELROOM_RATE_REDIS_TIMEOUT", 2*time.Second),
		},
		CORS: server.CORSConfig{
			AllowedOrigins: splitAndTrim(firstNonEmpty(*corsOrigins, os.Getenv("REELROOM_CORS_ORIGINS"))),
		},
		Logger:  logger,
		Metrics: recorder,
	})
	if err != nil {
		logger.Error("failed to initialise server", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	purgeInterval := resolveDuration(*sessionPurgeInterval, "REELROOM_SESSION_PURGE_INTERVAL", 15*time.Minute)
	purgeStop := startSessionPurgeWorker(ctx, logging.WithComponent(logger, "session-purger"), sessions, purgeInterval)

	logger.Info("reelroom API listening",
		"addr", resolveListenAddr(*addr, os.Getenv("REELROOM_ADDR")),
		"storage_driver", driver,
		"media_dir", library.Root(),
	)

	runErr := srv.Run(ctx)
	stop()
	purgeStop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := store.Close(shutdownCtx); err != nil {
		logger.Warn("failed to close datastore", "error", err)
	}
	if sessionCloser != nil {
		if err := sessionCloser(shutdownCtx); err != nil {
			logger.Warn("failed to close session store", "error", err)
		}
	}

	if runErr != nil {
		logger.Error("server error", "error", runErr)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

// loadDotenv loads an explicit env file when given, otherwise picks up a
// conventional .env from the working directory when present.
func loadDotenv(path string) {
	if path != "" {
		if err := godotenv.Load(path); err != nil {
			fmt.Fprintf(os.Stderr, "failed to load env file %s: %v\n", path, err)
			os.Exit(1)
		}
		return
	}
	if _, err := os.Stat(".env"); err == nil {
		_ = godotenv.Load()
	}
}

type sessionStoreConfig struct {
	Driver string
	DSN    string
}

func resolveSessionStoreConfig(flagDriver, envDriver, storageDriver, storageDSN, flagDSN, envDSN string) (sessionStoreConfig, error) {
	driver := strings.ToLower(strings.TrimSpace(flagDriver))
	if driver == "" {
		driver = strings.ToLower(strings.TrimSpace(envDriver))
	}

	sessionDSN := strings.TrimSpace(firstNonEmpty(flagDSN, envDSN))
	if driver == "" {
		switch {
		case sessionDSN != "":
			driver = "postgres"
		case storageDriver == "postgres":
			driver = "postgres"
		default:
			driver = "memory"
		}
	}

	switch driver {
	case "memory":
		return sessionStoreConfig{Driver: "memory"}, nil
	case "postgres":
		if sessionDSN == "" {
			sessionDSN = strings.TrimSpace(storageDSN)
		}
		if sessionDSN == "" {
			return sessionStoreConfig{}, fmt.Errorf("postgres session store selected without DSN")
		}
		return sessionStoreConfig{Driver: "postgres", DSN: sessionDSN}, nil
	default:
		return sessionStoreConfig{}, fmt.Errorf("unsupported session store driver %q", driver)
	}
}

func resolveStorageDriver(flagValue, envValue, postgresDSN string) (string, error) {
	if driver := strings.ToLower(strings.TrimSpace(flagValue)); driver != "" {
		return driver, nil
	}
	if driver := strings.ToLower(strings.TrimSpace(envValue)); driver != "" {
		return driver, nil
	}
	if strings.TrimSpace(postgresDSN) != "" {
		return "postgres", nil
	}
	return "json", nil
}

func resolveListenAddr(flagValue, envAddr string) string {
	if addr := strings.TrimSpace(flagValue); addr != "" {
		return addr
	}
	if addr := strings.TrimSpace(envAddr); addr != "" {
		return addr
	}
	return ":8080"
}

func resolveDataPath(flagValue, envValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := strings.TrimSpace(envValue); env != "" {
		return env
	}
	return "data/store.json"
}

func resolvePostgresDSN(flagValue string) string {
	return strings.TrimSpace(firstNonEmpty(flagValue, os.Getenv("REELROOM_POSTGRES_DSN"), os.Getenv("DATABASE_URL")))
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func splitAndTrim(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func resolveFloat(flagValue float64, envKey string) float64 {
	if flagValue > 0 {
		return flagValue
	}
	if env := os.Getenv(envKey); env != "" {
		if value, err := strconv.ParseFloat(strings.TrimSpace(env), 64); err == nil {
			return value
		}
	}
	return 0
}

func resolveInt(flagValue int, envKey string) int {
	if flagValue > 0 {
		return flagValue
	}
	if env := os.Getenv(envKey); env != "" {
		if value, err := strconv.Atoi(strings.TrimSpace(env)); err == nil {
			return value
		}
	}
	return 0
}

func resolveDuration(flagValue time.Duration, envKey string, fallback time.Duration) time.Duration {
	if flagValue > 0 {
		return flagValue
	}
	if env := os.Getenv(envKey); env != "" {
		if value, err := time.ParseDuration(env); err == nil {
			return value
		}
	}
	return fallback
}

func resolveBool(flagValue bool, envKey string) bool {
	if flagValue {
		return true
	}
	if env, ok := os.LookupEnv(envKey); ok {
		if value, err := strconv.ParseBool(strings.TrimSpace(env)); err == nil {
			return value
		}
	}
	return false
}
