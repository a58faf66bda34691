package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
	ModeDemo    Mode = "demo" // in-memory store, nothing persisted
)

type Config struct {
	Mode     Mode
	HTTPAddr string
	SiteID   string

	DBDriver string
	DBDSN    string

	BlobBasePath string // roster snapshots

	AuthHMACSecret string
	TokenTTL       time.Duration
	SessionTTL     time.Duration

	TeacherPassword string
	TeacherPassHash string // bcrypt, wins over TeacherPassword

	CORSOriginsOnline  []string
	CORSOriginsOffline []string

	DisplayTZ string
	LogJSON   bool
}

// Load reads an optional dotenv file and then the environment. Variables
// already set in the environment win over the file. A missing default .env
// is not an error; a missing ENV_FILE is.
func Load() (Config, error) {
	path := os.Getenv("ENV_FILE")
	explicit := path != ""
	if !explicit {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return Config{}, err
		}
	}
	return FromEnv(), nil
}

func FromEnv() Config {
	mode := Mode(os.Getenv("MODE"))
	if mode == "" {
		mode = ModeOffline
	}
	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	return Config{
		Mode:               mode,
		HTTPAddr:           addr,
		SiteID:             envOr("SITE_ID", "local"),
		DBDriver:           envOr("DB_DRIVER", "sqlite"),
		DBDSN:              envOr("DB_DSN", ""),
		BlobBasePath:       envOr("BLOB_BASE_PATH", "./data"),
		AuthHMACSecret:     envOr("AUTH_HMAC_SECRET", "dev-secret-change-me"),
		TokenTTL:           envDuration("TOKEN_TTL", 8*time.Hour),
		SessionTTL:         envDuration("SESSION_TTL", 8*time.Hour),
		TeacherPassword:    envOr("TEACHER_PASSWORD", "geography"),
		TeacherPassHash:    os.Getenv("TEACHER_PASS_HASH"),
		CORSOriginsOnline:  csvOr("CORS_ORIGINS_ONLINE", "https://starmaker.mindengage.ai"),
		CORSOriginsOffline: csvOr("CORS_ORIGINS_OFFLINE", "http://localhost:3000,http://localhost:8080"),
		DisplayTZ:          envOr("DISPLAY_TZ", "Local"),
		LogJSON:            envBool("LOG_JSON", mode == ModeOnline),
	}
}

// CORSOrigins picks the origin list for the configured mode.
func (c Config) CORSOrigins() []string {
	if c.Mode == ModeOnline {
		return c.CORSOriginsOnline
	}
	return c.CORSOriginsOffline
}

// DisplayLocation resolves DisplayTZ, falling back to UTC when the zone is
// unknown.
func (c Config) DisplayLocation() *time.Location {
	loc, err := time.LoadLocation(c.DisplayTZ)
	if err != nil {
		return time.UTC
	}
	return loc
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}
func envBool(k string, def bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return def
	}
}
func envDuration(k string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(k))
	if err != nil || d <= 0 {
		return def
	}
	return d
}
func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
