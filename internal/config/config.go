package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	AppPort         string
	CORSOrigins     string
	FrontendBaseURL string
	CookieSecure    bool

	DBDriver string
	DBDSN    string

	JWTSecret     string
	JWTExpiresMin int
	SecretKey     string

	AdminUsername     string
	AdminPassword     string
	AdminGoogleEmails []string
	GoogleClientID    string
	GoogleSecret      string
	GoogleRedirect    string

	KVBackend     string // gorm | pebble | redis | memory
	PebbleDir     string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	DigiflazzBaseURL  string
	DigiflazzUsername string
	DigiflazzAPIKey   string
	DigiflazzTimeout  time.Duration
	MarkupPercent     int
	BrandTablePath    string

	SettleDelay   time.Duration
	SweepInterval time.Duration

	KafkaBrokers []string
	KafkaTopic   string

	AppEnv         string
	JaegerEndpoint string
}

func Load() Config {
	driver := get("DB_DRIVER", "sqlite")
	dsn := get("DB_DSN", "")
	if dsn == "" {
		if driver == "postgres" {
			dsn = must("DB_DSN")
		} else {
			dsn = "topup.db"
		}
	}

	return Config{
		AppPort:         get("APP_PORT", "8080"),
		CORSOrigins:     get("CORS_ORIGINS", "http://127.0.0.1:3000, http://localhost:3000"),
		FrontendBaseURL: get("FRONTEND_BASE_URL", "http://localhost:3000"),
		CookieSecure:    getBool("COOKIE_SECURE", false),

		DBDriver: driver,
		DBDSN:    dsn,

		JWTSecret:     must("JWT_SECRET"),
		JWTExpiresMin: getInt("JWT_EXPIRES_MIN", 10080),
		SecretKey:     must("SECRET_KEY"),

		AdminUsername:     get("ADMIN_USERNAME", "admin"),
		AdminPassword:     get("ADMIN_PASSWORD", "admin123"),
		AdminGoogleEmails: getList("ADMIN_GOOGLE_EMAILS"),
		GoogleClientID:    get("GOOGLE_CLIENT_ID", ""),
		GoogleSecret:      get("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirect:    get("GOOGLE_REDIRECT_URL", ""),

		KVBackend:     get("KV_BACKEND", "gorm"),
		PebbleDir:     get("PEBBLE_DIR", "./data/kv"),
		RedisAddr:     get("REDIS_ADDR", "localhost:6379"),
		RedisPassword: get("REDIS_PASSWORD", ""),
		RedisDB:       getInt("REDIS_DB", 0),

		DigiflazzBaseURL:  get("DIGIFLAZZ_BASE_URL", "https://api.digiflazz.com/v1"),
		DigiflazzUsername: get("DIGIFLAZZ_USERNAME", ""),
		DigiflazzAPIKey:   get("DIGIFLAZZ_API_KEY", ""),
		DigiflazzTimeout:  getDuration("DIGIFLAZZ_TIMEOUT", 15*time.Second),
		MarkupPercent:     getInt("MARKUP_PERCENT", 10),
		BrandTablePath:    get("BRAND_TABLE_PATH", ""),

		SettleDelay:   getDuration("SETTLE_DELAY", 3*time.Second),
		SweepInterval: getDuration("SWEEP_INTERVAL", 500*time.Millisecond),

		KafkaBrokers: getList("KAFKA_BROKERS"),
		KafkaTopic:   get("KAFKA_TOPIC", "topup.transactions"),

		AppEnv:         get("APP_ENV", "development"),
		JaegerEndpoint: get("JAEGER_ENDPOINT", ""),
	}
}

func get(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func must(k string) string {
	v := os.Getenv(k)
	if v == "" {
		panic("missing env: " + k)
	}
	return v
}

func getInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getBool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

// getDuration accepts Go durations ("3s", "500ms") or plain seconds.
func getDuration(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	return def
}

func getList(k string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(k), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
