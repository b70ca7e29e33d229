package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Store backend names.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
	BackendSQL   = "sql"
	BackendMongo = "mongo"
)

// Media host names.
const (
	HostInline     = "inline"
	HostLocal      = "local"
	HostCloudinary = "cloudinary"
	HostMinio      = "minio"
)

// AppConfig holds environment driven configuration values.
// Secrets never have defaults in code and must come from config.json or the environment.
type AppConfig struct {
	AppPort string
	// Admin authentication
	JWTSecret          string
	AdminPasswordHash  string
	AdminPassword      string
	TokenTTLHours      int
	LoginRatePerMinute int
	AllowedOrigins     []string
	// TrustedProxies are the peers whose forwarding headers name the client.
	TrustedProxies []string
	// Gin framework configuration
	GinMode string
	GinPath string
	// Record store
	StoreBackend string
	DataDir      string
	ReadOnly     bool
	// Redis key-value backend
	RedisURL      string
	RedisHost     string
	RedisPort     int
	RedisDB       int
	RedisPassword string
	RedisPrefix   string
	// SQL backend
	DatabaseDriver string
	DatabaseURI    string
	// Mongo backend
	MongoURI      string
	MongoDatabase string
	// Media ingestion
	MediaHost              string
	UploadsDir             string
	MaxUploadMB            int
	UploadSweepMinutes     int
	CloudinaryCloudName    string
	CloudinaryUploadPreset string
	MinioEndpoint          string
	MinioAccessKey         string
	MinioSecretKey         string
	MinioBucket            string
	MinioUseSSL            bool
	MinioPublicURL         string
	// Logging configuration
	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
}

var cfg AppConfig
var loaded bool

// Load loads the application configuration once during boot and exits when it is unusable.
func Load() AppConfig {
	if loaded {
		return cfg
	}

	c, err := LoadFrom(filepath.Join("config", "config.json"))
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	if c.JWTSecret == "" {
		log.Fatal("JWT_SECRET must be set in environment variables")
	}

	cfg = c
	loaded = true
	return cfg
}

// LoadFrom builds a configuration with precedence config file -> defaults -> environment.
// A missing file is not an error; malformed JSON is.
func LoadFrom(path string) (AppConfig, error) {
	var c AppConfig
	if err := loadJSONConfig(path, &c); err != nil {
		return AppConfig{}, err
	}
	applyDefaults(&c)
	applyEnvOverrides(&c)
	return c, nil
}

// ResolveStoreBackend returns the configured backend, inferring it from the
// presence of connection settings when none was named explicitly.
func (c AppConfig) ResolveStoreBackend() string {
	if c.StoreBackend != "" {
		return strings.ToLower(c.StoreBackend)
	}
	switch {
	case c.MongoURI != "":
		return BackendMongo
	case c.DatabaseURI != "":
		return BackendSQL
	case c.RedisURL != "" || c.RedisHost != "":
		return BackendRedis
	default:
		return BackendFile
	}
}

// MaxUploadBytes is the upload ceiling in bytes.
func (c AppConfig) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) * 1024 * 1024
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// loadJSONConfig reads the JSON file into out if present. Grouped sections
// ("app", "store", "media", "log") take precedence over flat keys.
func loadJSONConfig(path string, out *AppConfig) error {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var raw map[string]any
	if err := json.NewDecoder(f).Decode(&raw); err != nil {
		return errors.Join(errors.New("decode "+path), err)
	}

	getString := func(m map[string]any, key string) string {
		if v, ok := m[key]; ok {
			if s, ok := v.(string); ok {
				return s
			}
		}
		return ""
	}
	getInt := func(m map[string]any, key string) int {
		if v, ok := m[key]; ok {
			switch t := v.(type) {
			case float64:
				return int(t)
			case string:
				i, _ := strconv.Atoi(t)
				return i
			}
		}
		return 0
	}
	getBool := func(m map[string]any, key string) bool {
		if v, ok := m[key]; ok {
			if b, ok := v.(bool); ok {
				return b
			}
		}
		return false
	}
	getStringSlice := func(m map[string]any, key string) []string {
		if v, ok := m[key]; ok {
			if arr, ok := v.([]any); ok {
				res := make([]string, 0, len(arr))
				for _, it := range arr {
					if s, ok := it.(string); ok {
						res = append(res, s)
					}
				}
				return res
			}
		}
		return nil
	}
	section := func(name string) map[string]any {
		if m, ok := raw[name].(map[string]any); ok {
			return m
		}
		return raw
	}

	app := section("app")
	out.AppPort = getString(app, "AppPort")
	out.JWTSecret = getString(app, "JWTSecret")
	out.AdminPasswordHash = getString(app, "AdminPasswordHash")
	out.TokenTTLHours = getInt(app, "TokenTTLHours")
	out.LoginRatePerMinute = getInt(app, "LoginRatePerMinute")
	out.AllowedOrigins = getStringSlice(app, "AllowedOrigins")
	out.TrustedProxies = getStringSlice(app, "TrustedProxies")
	out.GinMode = getString(app, "GinMode")
	out.GinPath = getString(app, "GinPath")

	st := section("store")
	out.StoreBackend = getString(st, "Backend")
	out.DataDir = getString(st, "DataDir")
	out.ReadOnly = getBool(st, "ReadOnly")
	out.RedisURL = getString(st, "RedisURL")
	out.RedisHost = getString(st, "RedisHost")
	out.RedisPort = getInt(st, "RedisPort")
	out.RedisDB = getInt(st, "RedisDB")
	out.RedisPassword = getString(st, "RedisPassword")
	out.RedisPrefix = getString(st, "RedisPrefix")
	out.DatabaseDriver = getString(st, "DatabaseDriver")
	out.DatabaseURI = getString(st, "DatabaseURI")
	out.MongoURI = getString(st, "MongoURI")
	out.MongoDatabase = getString(st, "MongoDatabase")

	md := section("media")
	out.MediaHost = getString(md, "Host")
	out.UploadsDir = getString(md, "UploadsDir")
	out.MaxUploadMB = getInt(md, "MaxUploadMB")
	out.UploadSweepMinutes = getInt(md, "UploadSweepMinutes")
	out.CloudinaryCloudName = getString(md, "CloudinaryCloudName")
	out.CloudinaryUploadPreset = getString(md, "CloudinaryUploadPreset")
	out.MinioEndpoint = getString(md, "MinioEndpoint")
	out.MinioAccessKey = getString(md, "MinioAccessKey")
	out.MinioSecretKey = getString(md, "MinioSecretKey")
	out.MinioBucket = getString(md, "MinioBucket")
	out.MinioUseSSL = getBool(md, "MinioUseSSL")
	out.MinioPublicURL = getString(md, "MinioPublicURL")

	lg := section("log")
	out.LogLevel = getString(lg, "LogLevel")
	out.LogPath = getString(lg, "LogPath")
	out.LogMaxSizeMB = getInt(lg, "LogMaxSizeMB")
	out.LogMaxBackups = getInt(lg, "LogMaxBackups")
	out.LogMaxAgeDays = getInt(lg, "LogMaxAgeDays")
	out.LogCompress = getBool(lg, "LogCompress")
	return nil
}

// applyDefaults fills zero values.
func applyDefaults(c *AppConfig) {
	if c.AppPort == "" {
		c.AppPort = "8080"
	}
	if c.TokenTTLHours == 0 {
		c.TokenTTLHours = 72
	}
	if c.LoginRatePerMinute == 0 {
		c.LoginRatePerMinute = 10
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if c.GinMode == "" {
		c.GinMode = "release"
	}
	if c.GinPath == "" {
		c.GinPath = "logs/gin.log"
	}
	if c.DataDir == "" {
		c.DataDir = "data"
	}
	if c.RedisPort == 0 {
		c.RedisPort = 6379
	}
	if c.RedisPrefix == "" {
		c.RedisPrefix = "fotomutena:"
	}
	if c.DatabaseDriver == "" {
		c.DatabaseDriver = "mysql"
	}
	if c.MongoDatabase == "" {
		c.MongoDatabase = "fotomutena"
	}
	if c.MediaHost == "" {
		c.MediaHost = HostLocal
	}
	if c.UploadsDir == "" {
		c.UploadsDir = "uploads"
	}
	if c.MaxUploadMB == 0 {
		c.MaxUploadMB = 50
	}
	if c.MinioBucket == "" {
		c.MinioBucket = "fotomutena"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogPath == "" {
		c.LogPath = "logs/app.log"
	}
}

// applyEnvOverrides maps known environment variables onto config values when present.
func applyEnvOverrides(c *AppConfig) {
	if v := getEnv("APP_PORT", getEnv("PORT", "")); v != "" {
		c.AppPort = v
	}
	if v := getEnv("JWT_SECRET", ""); v != "" {
		c.JWTSecret = v
	}
	if v := getEnv("ADMIN_PASSWORD_HASH", ""); v != "" {
		c.AdminPasswordHash = v
	}
	if v := getEnv("ADMIN_PASSWORD", ""); v != "" {
		c.AdminPassword = v
	}
	if v := getEnv("TOKEN_TTL_HOURS", ""); v != "" {
		c.TokenTTLHours = mustParseInt(v, c.TokenTTLHours)
	}
	if v := getEnv("LOGIN_RATE_PER_MINUTE", ""); v != "" {
		c.LoginRatePerMinute = mustParseInt(v, c.LoginRatePerMinute)
	}
	c.AllowedOrigins = readListEnv("CORS_ALLOWED_ORIGINS", c.AllowedOrigins)
	c.TrustedProxies = readListEnv("TRUSTED_PROXIES", c.TrustedProxies)
	if v := getEnv("GIN_MODE", ""); v != "" {
		c.GinMode = v
	}
	if v := getEnv("GIN_PATH", ""); v != "" {
		c.GinPath = v
	}

	if v := getEnv("STORE_BACKEND", ""); v != "" {
		c.StoreBackend = v
	}
	if v := getEnv("DATA_DIR", ""); v != "" {
		c.DataDir = v
	}
	// Hosted platforms expose a read-only filesystem.
	if getEnv("READ_ONLY", "") != "" || getEnv("VERCEL", "") != "" {
		c.ReadOnly = true
	}
	if v := getEnv("REDIS_URL", getEnv("KV_URL", "")); v != "" {
		c.RedisURL = v
	}
	if v := getEnv("REDIS_HOST", ""); v != "" {
		c.RedisHost = v
	}
	if v := getEnv("REDIS_PORT", ""); v != "" {
		c.RedisPort = mustParseInt(v, c.RedisPort)
	}
	if v := getEnv("REDIS_DB", ""); v != "" {
		c.RedisDB = mustParseInt(v, c.RedisDB)
	}
	if v := getEnv("REDIS_PASSWORD", ""); v != "" {
		c.RedisPassword = v
	}
	if v := getEnv("DATABASE_DRIVER", ""); v != "" {
		c.DatabaseDriver = v
	}
	if v := getEnv("DATABASE_URI", ""); v != "" {
		c.DatabaseURI = v
	}
	if v := getEnv("MONGO_URI", ""); v != "" {
		c.MongoURI = v
	}
	if v := getEnv("MONGO_DATABASE", ""); v != "" {
		c.MongoDatabase = v
	}

	if v := getEnv("MEDIA_HOST", ""); v != "" {
		c.MediaHost = strings.ToLower(v)
	}
	if v := getEnv("UPLOADS_DIR", ""); v != "" {
		c.UploadsDir = v
	}
	if v := getEnv("MAX_UPLOAD_MB", ""); v != "" {
		c.MaxUploadMB = mustParseInt(v, c.MaxUploadMB)
	}
	if v := getEnv("UPLOAD_SWEEP_MINUTES", ""); v != "" {
		c.UploadSweepMinutes = mustParseInt(v, c.UploadSweepMinutes)
	}
	if v := getEnv("CLOUDINARY_CLOUD_NAME", ""); v != "" {
		c.CloudinaryCloudName = v
	}
	if v := getEnv("CLOUDINARY_UPLOAD_PRESET", ""); v != "" {
		c.CloudinaryUploadPreset = v
	}
	if v := getEnv("MINIO_ENDPOINT", ""); v != "" {
		c.MinioEndpoint = v
	}
	if v := getEnv("MINIO_ACCESS_KEY", ""); v != "" {
		c.MinioAccessKey = v
	}
	if v := getEnv("MINIO_SECRET_KEY", ""); v != "" {
		c.MinioSecretKey = v
	}
	if v := getEnv("MINIO_BUCKET", ""); v != "" {
		c.MinioBucket = v
	}
	if v := getEnv("MINIO_USE_SSL", ""); v != "" {
		c.MinioUseSSL = parseBool(v)
	}
	if v := getEnv("MINIO_PUBLIC_URL", ""); v != "" {
		c.MinioPublicURL = v
	}

	if v := getEnv("LOG_LEVEL", ""); v != "" {
		c.LogLevel = v
	}
	if v := getEnv("LOG_PATH", ""); v != "" {
		c.LogPath = v
	}
	if v := getEnv("LOG_MAX_SIZE_MB", ""); v != "" {
		c.LogMaxSizeMB = mustParseInt(v, c.LogMaxSizeMB)
	}
	if v := getEnv("LOG_MAX_BACKUPS", ""); v != "" {
		c.LogMaxBackups = mustParseInt(v, c.LogMaxBackups)
	}
	if v := getEnv("LOG_MAX_AGE_DAYS", ""); v != "" {
		c.LogMaxAgeDays = mustParseInt(v, c.LogMaxAgeDays)
	}
	if v := getEnv("LOG_COMPRESS", ""); v != "" {
		c.LogCompress = parseBool(v)
	}
}

func mustParseInt(val string, fallback int) int {
	i, err := strconv.Atoi(strings.TrimSpace(val))
	if err != nil {
		return fallback
	}
	return i
}

func parseBool(val string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(val))
	return err == nil && b
}

func readListEnv(key string, defaults []string) []string {
	if raw := os.Getenv(key); raw != "" {
		return splitAndTrim(raw)
	}
	return defaults
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
