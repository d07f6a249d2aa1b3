package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	applog "eyewear/internal/log"
)

type Config struct {
	Port     string
	DBDSN    string
	MediaDir string
	LogFile  string

	// Catalog backend: sqlite | rest | mongo
	Backend    string
	APIBaseURL string
	APITimeout time.Duration
	MongoURI   string
	MongoDB    string

	// Image storage for the embedded backends: local | s3
	StorageDriver        string
	LocalUploadDir       string
	LocalUploadURLPrefix string
	S3Region             string
	S3Bucket             string
	S3Prefix             string
	S3PublicBaseURL      string

	PricePolicy      string
	ListLimit        int
	Locale           string
	Currency         string
	CacheTTL         time.Duration
	PlaceholderImage string
	RequestTimeout   time.Duration
}

func Load() Config {
	// .env is optional; real environment variables win.
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			applog.L().Warn().Err(err).Msg("config: could not load .env")
		}
	}

	cfg := Config{
		Port:     getEnv("PORT", "8080"),
		DBDSN:    getEnv("DB_DSN", "eyewear.db"),
		MediaDir: getEnv("MEDIA_DIR", "./web/media"),
		LogFile:  getEnv("LOG_FILE", "./eyewear.log"),

		Backend:    strings.ToLower(getEnv("CATALOG_BACKEND", "sqlite")),
		APIBaseURL: getEnv("API_BASE_URL", "http://localhost:8000"),
		APITimeout: getDuration("API_TIMEOUT", 5*time.Second),
		MongoURI:   getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:    getEnv("MONGO_DB", "eyewear"),

		StorageDriver:        strings.ToLower(getEnv("STORAGE_DRIVER", "local")),
		LocalUploadDir:       getEnv("LOCAL_UPLOAD_DIR", "./web/media/uploads"),
		LocalUploadURLPrefix: getEnv("LOCAL_UPLOAD_URL_PREFIX", "/media/uploads"),
		S3Region:             getEnv("S3_REGION", ""),
		S3Bucket:             getEnv("S3_BUCKET", ""),
		S3Prefix:             getEnv("S3_PREFIX", "uploads"),
		S3PublicBaseURL:      getEnv("S3_PUBLIC_BASE_URL", ""),

		PricePolicy:      getEnv("PRICE_POLICY", "first"),
		ListLimit:        getInt("LIST_LIMIT", 100),
		Locale:           getEnv("LOCALE", "vi"),
		Currency:         getEnv("CURRENCY", "VND"),
		CacheTTL:         getDuration("CACHE_TTL", 5*time.Minute),
		PlaceholderImage: getEnv("PLACEHOLDER_IMAGE", "/static/img/placeholder.svg"),
		RequestTimeout:   getDuration("REQUEST_TIMEOUT", 10*time.Second),
	}
	applog.L().Info().
		Str("port", cfg.Port).
		Str("db_dsn", cfg.DBDSN).
		Str("backend", cfg.Backend).
		Str("storage", cfg.StorageDriver).
		Str("price_policy", cfg.PricePolicy).
		Msg("config loaded")
	return cfg
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func getDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
