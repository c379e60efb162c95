package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const localSessionSecret = "venuecal-local-dev"

// Snapshot backends.
const (
	SnapshotBackendFile  = "file"
	SnapshotBackendRedis = "redis"
	SnapshotBackendNone  = "none"
)

type Config struct {
	Environment   string
	Server        ServerConfig
	Database      DatabaseConfig
	Snapshot      SnapshotConfig
	Uploads       UploadsConfig
	Auth          AuthConfig
	Ingestion     IngestionConfig
	Calendar      CalendarConfig
	Observability ObservabilityConfig
}

type ServerConfig struct {
	Port      int
	PublicURL string
}

type DatabaseConfig struct {
	Path      string
	LogTiming bool
}

type SnapshotConfig struct {
	Backend string
	Path    string
	Key     string
	Redis   RedisConfig
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type UploadsConfig struct {
	Dir     string
	BaseURL string
}

type AuthConfig struct {
	SessionSecret string
	AdminToken    string
	SecureCookie  bool
}

type IngestionConfig struct {
	FetchTimeoutMS int
	Concurrency    int
}

type CalendarConfig struct {
	Name     string
	Timezone string
}

type ObservabilityConfig struct {
	Enabled           bool
	OTLPEndpoint      string
	OTLPTraceHeaders  map[string]string
	OTLPMetricHeaders map[string]string
	ServiceName       string
	ServiceVer        string
	SamplingRatio     float64
	MetricsConsole    bool
}

func Load() (Config, error) {
	return load(true)
}

// LoadForTool loads config for CLI tools that do not require auth session secrets.
func LoadForTool() (Config, error) {
	return load(false)
}

func load(requireSessionSecret bool) (Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("venuecal_env", "")
	v.SetDefault("app_env", "")
	v.SetDefault("go_env", "")
	v.SetDefault("venuecal_port", 8080)
	v.SetDefault("venuecal_public_url", "")
	v.SetDefault("venuecal_db_path", "data/venuecal")
	v.SetDefault("venuecal_db_timing", false)
	v.SetDefault("venuecal_snapshot_backend", SnapshotBackendFile)
	v.SetDefault("venuecal_snapshot_path", "data/events.snapshot.json")
	v.SetDefault("venuecal_snapshot_key", "venuecal:events:snapshot")
	v.SetDefault("venuecal_redis_addr", "localhost:6379")
	v.SetDefault("venuecal_redis_password", "")
	v.SetDefault("venuecal_redis_db", 0)
	v.SetDefault("venuecal_upload_dir", "data/uploads")
	v.SetDefault("venuecal_upload_base_url", "/uploads")
	v.SetDefault("venuecal_admin_token", "")
	v.SetDefault("venuecal_secure_cookie", false)
	v.SetDefault("venuecal_fetch_timeout_ms", 10000)
	v.SetDefault("venuecal_import_concurrency", 4)
	v.SetDefault("venuecal_calendar_name", "Events")
	v.SetDefault("venuecal_timezone", "")
	v.SetDefault("venuecal_otel_enabled", false)
	v.SetDefault("otel_exporter_otlp_endpoint", "")
	v.SetDefault("otel_exporter_otlp_headers", "")
	v.SetDefault("otel_exporter_otlp_traces_headers", "")
	v.SetDefault("otel_exporter_otlp_metrics_headers", "")
	v.SetDefault("otel_service_name", "venuecal")
	v.SetDefault("venuecal_service_name", "venuecal")
	v.SetDefault("venuecal_version", "dev")
	v.SetDefault("otel_service_version", "")
	v.SetDefault("venuecal_otel_sampling_ratio", 1.0)
	v.SetDefault("venuecal_otel_metrics_console", false)

	env := resolveEnvironment(v)
	port := v.GetInt("venuecal_port")
	if port <= 0 || port > 65535 {
		return Config{}, fmt.Errorf("invalid VENUECAL_PORT: %d", port)
	}

	backend := strings.ToLower(strings.TrimSpace(v.GetString("venuecal_snapshot_backend")))
	switch backend {
	case SnapshotBackendFile, SnapshotBackendRedis, SnapshotBackendNone:
	case "":
		backend = SnapshotBackendNone
	default:
		return Config{}, fmt.Errorf("invalid VENUECAL_SNAPSHOT_BACKEND: %q", backend)
	}

	samplingRatio := v.GetFloat64("venuecal_otel_sampling_ratio")
	if samplingRatio < 0 {
		samplingRatio = 0
	}
	if samplingRatio > 1 {
		samplingRatio = 1
	}

	fetchTimeout := v.GetInt("venuecal_fetch_timeout_ms")
	if fetchTimeout <= 0 {
		fetchTimeout = 10000
	}
	if fetchTimeout > 60000 {
		fetchTimeout = 60000
	}

	concurrency := v.GetInt("venuecal_import_concurrency")
	if concurrency <= 0 {
		concurrency = 4
	}
	if concurrency > 16 {
		concurrency = 16
	}

	timezone := strings.TrimSpace(v.GetString("venuecal_timezone"))
	if timezone != "" {
		if _, err := time.LoadLocation(timezone); err != nil {
			return Config{}, fmt.Errorf("invalid VENUECAL_TIMEZONE %q: %w", timezone, err)
		}
	}

	serviceName := strings.TrimSpace(v.GetString("otel_service_name"))
	if serviceName == "" {
		serviceName = strings.TrimSpace(v.GetString("venuecal_service_name"))
	}
	if serviceName == "" {
		serviceName = "venuecal"
	}

	serviceVersion := strings.TrimSpace(v.GetString("venuecal_version"))
	if serviceVersion == "" {
		serviceVersion = strings.TrimSpace(v.GetString("otel_service_version"))
	}
	if serviceVersion == "" {
		serviceVersion = "dev"
	}

	otlpEndpoint := strings.TrimSpace(v.GetString("otel_exporter_otlp_endpoint"))
	otlpCommonHeaders := parseOTLPHeaders(v.GetString("otel_exporter_otlp_headers"))
	otlpTraceHeaders := parseOTLPHeaders(v.GetString("otel_exporter_otlp_traces_headers"))
	otlpMetricHeaders := parseOTLPHeaders(v.GetString("otel_exporter_otlp_metrics_headers"))
	metricsConsole := v.GetBool("venuecal_otel_metrics_console")
	otelEnabled := v.GetBool("venuecal_otel_enabled") || otlpEndpoint != "" || metricsConsole

	cfg := Config{
		Environment: env,
		Server: ServerConfig{
			Port:      port,
			PublicURL: strings.TrimRight(strings.TrimSpace(v.GetString("venuecal_public_url")), "/"),
		},
		Database: DatabaseConfig{
			Path:      strings.TrimSpace(v.GetString("venuecal_db_path")),
			LogTiming: v.GetBool("venuecal_db_timing"),
		},
		Snapshot: SnapshotConfig{
			Backend: backend,
			Path:    strings.TrimSpace(v.GetString("venuecal_snapshot_path")),
			Key:     strings.TrimSpace(v.GetString("venuecal_snapshot_key")),
			Redis: RedisConfig{
				Addr:     strings.TrimSpace(v.GetString("venuecal_redis_addr")),
				Password: v.GetString("venuecal_redis_password"),
				DB:       v.GetInt("venuecal_redis_db"),
			},
		},
		Uploads: UploadsConfig{
			Dir:     strings.TrimSpace(v.GetString("venuecal_upload_dir")),
			BaseURL: strings.TrimSpace(v.GetString("venuecal_upload_base_url")),
		},
		Auth: AuthConfig{
			SessionSecret: strings.TrimSpace(v.GetString("venuecal_session_secret")),
			AdminToken:    strings.TrimSpace(v.GetString("venuecal_admin_token")),
			SecureCookie:  v.GetBool("venuecal_secure_cookie"),
		},
		Ingestion: IngestionConfig{
			FetchTimeoutMS: fetchTimeout,
			Concurrency:    concurrency,
		},
		Calendar: CalendarConfig{
			Name:     strings.TrimSpace(v.GetString("venuecal_calendar_name")),
			Timezone: timezone,
		},
		Observability: ObservabilityConfig{
			Enabled:           otelEnabled,
			OTLPEndpoint:      otlpEndpoint,
			OTLPTraceHeaders:  mergeHeaderMaps(otlpCommonHeaders, otlpTraceHeaders),
			OTLPMetricHeaders: mergeHeaderMaps(otlpCommonHeaders, otlpMetricHeaders),
			ServiceName:       serviceName,
			ServiceVer:        serviceVersion,
			SamplingRatio:     samplingRatio,
			MetricsConsole:    metricsConsole,
		},
	}

	if cfg.Database.Path == "" {
		cfg.Database.Path = "data/venuecal"
	}
	if cfg.Uploads.Dir == "" {
		cfg.Uploads.Dir = "data/uploads"
	}
	if cfg.Snapshot.Backend == SnapshotBackendFile && cfg.Snapshot.Path == "" {
		return Config{}, fmt.Errorf("VENUECAL_SNAPSHOT_PATH is required for the file snapshot backend")
	}
	if cfg.Snapshot.Backend == SnapshotBackendRedis && cfg.Snapshot.Redis.Addr == "" {
		return Config{}, fmt.Errorf("VENUECAL_REDIS_ADDR is required for the redis snapshot backend")
	}
	if requireSessionSecret && !cfg.IsLocalDevelopment() && cfg.Auth.SessionSecret == "" {
		return Config{}, fmt.Errorf("VENUECAL_SESSION_SECRET is required outside local/dev environments")
	}
	if requireSessionSecret && cfg.IsLocalDevelopment() && cfg.Auth.SessionSecret == "" {
		cfg.Auth.SessionSecret = localSessionSecret
	}

	return cfg, nil
}

func parseOTLPHeaders(raw string) map[string]string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	out := make(map[string]string)
	for _, part := range strings.Split(raw, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if key == "" || value == "" {
			continue
		}
		out[key] = value
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func mergeHeaderMaps(base, override map[string]string) map[string]string {
	if len(base) == 0 && len(override) == 0 {
		return nil
	}
	out := make(map[string]string, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}

func (c Config) IsLocalDevelopment() bool {
	switch strings.ToLower(strings.TrimSpace(c.Environment)) {
	case "", "local", "dev", "development", "test":
		return true
	default:
		return false
	}
}

// UsesLocalSessionSecret reports whether the development fallback secret is active.
func (c Config) UsesLocalSessionSecret() bool {
	return c.Auth.SessionSecret == localSessionSecret
}

// FetchTimeout bounds each outbound page or image request.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.Ingestion.FetchTimeoutMS) * time.Millisecond
}

// Location is the venue time zone used to decide what "now" is, UTC when unset.
func (c Config) Location() *time.Location {
	if c.Calendar.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Calendar.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func resolveEnvironment(v *viper.Viper) string {
	for _, key := range []string{"venuecal_env", "app_env", "go_env"} {
		value := strings.TrimSpace(v.GetString(key))
		if value != "" {
			return strings.ToLower(value)
		}
	}
	return ""
}
