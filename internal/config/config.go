package config

import (
	"bufio"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config holds runtime configuration for the console.
type Config struct {
	ListenAddr       string
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	ShutdownTimeout  time.Duration
	DefaultPageLimit int

	BackendURL     string
	BackendTimeout time.Duration
	HealthInterval time.Duration

	AppStorePath string

	DBEnabled      bool
	DBHost         string
	DBPort         int
	DBUser         string
	DBPassword     string
	DBName         string
	DBConnTimeout  time.Duration
	DBQueryTimeout time.Duration

	AlertsEnabled          bool
	AlertSchedule          string
	SlackWebhookURL        string
	SlackChannel           string
	DeadLetterBacklogLimit int
	AlertThrottle          time.Duration

	LogLevel  string
	LogFormat string
}

// FromEnv loads configuration from environment variables with sensible defaults.
// Env files and the optional TOML file only fill variables that are still unset.
func FromEnv() Config {
	loadConfigDefaultsFromFile()
	loadSecretsDefaultsFromFile()
	if path := strings.TrimSpace(os.Getenv("APP_CONFIG_TOML")); path != "" {
		_ = applyTOMLDefaults(path)
	}

	return Config{
		ListenAddr:             getEnv("APP_LISTEN_ADDR", ":8080"),
		ReadTimeout:            time.Duration(getEnvInt("APP_READ_TIMEOUT_SEC", 10)) * time.Second,
		WriteTimeout:           time.Duration(getEnvInt("APP_WRITE_TIMEOUT_SEC", 30)) * time.Second,
		ShutdownTimeout:        time.Duration(getEnvInt("APP_SHUTDOWN_TIMEOUT_SEC", 10)) * time.Second,
		DefaultPageLimit:       getEnvInt("APP_DEFAULT_PAGE_LIMIT", 50),
		BackendURL:             strings.TrimRight(getEnv("APP_BACKEND_URL", "http://127.0.0.1:8000"), "/"),
		BackendTimeout:         time.Duration(getEnvInt("APP_BACKEND_TIMEOUT_SEC", 15)) * time.Second,
		HealthInterval:         time.Duration(getEnvInt("APP_HEALTH_INTERVAL_SEC", 30)) * time.Second,
		AppStorePath:           getEnv("APP_STORE_SQLITE_PATH", ""),
		DBEnabled:              getEnvBool("APP_DB_ENABLED", false),
		DBHost:                 getEnv("APP_DB_HOST", "127.0.0.1"),
		DBPort:                 getEnvInt("APP_DB_PORT", 3306),
		DBUser:                 getEnv("APP_DB_USER", "indexing_qa"),
		DBPassword:             getEnv("APP_DB_PASSWORD", ""),
		DBName:                 getEnv("APP_DB_NAME", "indexing_qa"),
		DBConnTimeout:          time.Duration(getEnvInt("APP_DB_CONN_TIMEOUT_SEC", 5)) * time.Second,
		DBQueryTimeout:         time.Duration(getEnvInt("APP_DB_QUERY_TIMEOUT_SEC", 10)) * time.Second,
		AlertsEnabled:          getEnvBool("APP_ALERTS_ENABLED", false),
		AlertSchedule:          getEnv("APP_ALERT_SCHEDULE", "*/5 * * * *"),
		SlackWebhookURL:        getEnv("APP_SLACK_WEBHOOK_URL", ""),
		SlackChannel:           getEnv("APP_SLACK_CHANNEL", "#indexing-qa-alerts"),
		DeadLetterBacklogLimit: getEnvInt("APP_DEAD_LETTER_BACKLOG_THRESHOLD", 100),
		AlertThrottle:          time.Duration(getEnvInt("APP_ALERT_THROTTLE_MINUTES", 30)) * time.Minute,
		LogLevel:               getEnv("APP_LOG_LEVEL", "info"),
		LogFormat:              getEnv("APP_LOG_FORMAT", "json"),
	}
}

func loadConfigDefaultsFromFile() {
	bootstrapCandidates := []string{
		"./qa-console.env",
		"/etc/default/qa-console",
	}

	for _, candidate := range bootstrapCandidates {
		_ = applyEnvDefaultsFromFile(absPath(candidate))
	}

	candidates := make([]string, 0, 2)
	if explicit := strings.TrimSpace(os.Getenv("APP_CONFIG_FILE")); explicit != "" {
		candidates = append(candidates, explicit)
	}
	candidates = append(candidates, "/etc/qa-console/config.env")

	for _, candidate := range candidates {
		if err := applyEnvDefaultsFromFile(absPath(candidate)); err == nil {
			return
		}
	}
}

func loadSecretsDefaultsFromFile() {
	candidates := make([]string, 0, 3)
	if explicit := strings.TrimSpace(os.Getenv("APP_SECRETS_FILE")); explicit != "" {
		candidates = append(candidates, explicit)
	}
	if credDir := strings.TrimSpace(os.Getenv("CREDENTIALS_DIRECTORY")); credDir != "" {
		credName := strings.TrimSpace(os.Getenv("APP_SECRETS_CREDENTIAL_NAME"))
		if credName == "" {
			credName = "app-secrets"
		}
		candidates = append(candidates, filepath.Join(credDir, credName))
	}
	candidates = append(candidates, "/etc/qa-console/secrets.env")
	for _, candidate := range candidates {
		if err := applyEnvDefaultsFromFile(candidate); err == nil {
			return
		}
	}
}

func absPath(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	if wd, err := os.Getwd(); err == nil {
		return filepath.Join(wd, p)
	}
	return p
}

func applyEnvDefaultsFromFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		kv := strings.SplitN(line, "=", 2)
		if len(kv) != 2 {
			continue
		}

		key := strings.TrimSpace(kv[0])
		val := strings.TrimSpace(kv[1])
		if key == "" {
			continue
		}

		if len(val) >= 2 {
			if (val[0] == '"' && val[len(val)-1] == '"') || (val[0] == '\'' && val[len(val)-1] == '\'') {
				val = val[1 : len(val)-1]
			}
		}

		if os.Getenv(key) == "" {
			_ = os.Setenv(key, val)
		}
	}

	return scanner.Err()
}

// applyTOMLDefaults maps a TOML document onto APP_* variables. Tables join
// their keys with underscores, so [backend] url becomes APP_BACKEND_URL.
func applyTOMLDefaults(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	flat := map[string]string{}
	flattenTOML("APP", raw, flat)

	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if os.Getenv(k) == "" {
			_ = os.Setenv(k, flat[k])
		}
	}
	return nil
}

func flattenTOML(prefix string, in map[string]any, out map[string]string) {
	for k, v := range in {
		key := prefix + "_" + strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(k), "-", "_"))
		switch val := v.(type) {
		case map[string]any:
			flattenTOML(key, val, out)
		case []any:
			parts := make([]string, 0, len(val))
			for _, p := range val {
				parts = append(parts, fmt.Sprint(p))
			}
			out[key] = strings.Join(parts, ",")
		default:
			out[key] = fmt.Sprint(val)
		}
	}
}

// BackendDSN returns a mysql driver DSN for the optional backend database check.
func (c Config) BackendDSN() string {
	params := url.Values{}
	params.Set("parseTime", "true")
	params.Set("timeout", c.DBConnTimeout.String())
	params.Set("readTimeout", c.DBQueryTimeout.String())
	params.Set("writeTimeout", c.DBQueryTimeout.String())
	params.Set("charset", "utf8mb4")
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?%s", c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, params.Encode())
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return def
	}
	return parsed
}

func getEnvBool(key string, def bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return def
	}
	return parsed
}
