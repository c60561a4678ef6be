package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
	"time"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  Database fields for MySQL are only required when
// DBDriver is "mysql"; the default driver is a single SQLite file.
type Config struct {
	Env     string // application environment (e.g. "dev", "prod")
	Port    string // HTTP port to listen on
	Version string

	DBDriver string // "sqlite" or "mysql"
	DBPath   string // sqlite database file
	DBUser   string // mysql username
	DBPass   string // mysql password (optional)
	DBHost   string // mysql host address
	DBPort   string // mysql port number
	DBName   string // mysql database name

	SessionSecret   string        // secret used to sign session cookies
	SessionTTL      time.Duration // lifetime of a session cookie
	CookieSecure    bool          // mark the session cookie Secure
	AdminPassphrase string        // shared master admin credential
	BcryptCost      int           // bcrypt cost for passwords and security answers

	UploadDir      string        // directory holding generated image files
	ImageMaxWidth  int           // widest stored image in pixels
	ImageQuality   int           // lossy encoder quality
	ImageTimeout   time.Duration // per-file processing bound
	MaxUploadFiles int           // images accepted per listing

	ContactHost string // messaging service host for contact deep links
	CountryCode string // replaces a leading trunk "0" in contact phones
	SiteName    string // referenced in the pre-filled contact message

	AMQPURL string // broker for engagement events; empty disables publishing
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
	cfg := Config{
		Env:     envStr("APP_ENV", "dev"),
		Port:    envStr("APP_PORT", "5000"),
		Version: envStr("APP_VERSION", "dev"),

		SessionSecret:   must("SESSION_SECRET"),
		SessionTTL:      time.Duration(envInt("SESSION_TTL_HOURS", 24)) * time.Hour,
		CookieSecure:    envBool("COOKIE_SECURE", false),
		AdminPassphrase: must("ADMIN_PASSPHRASE"),
		BcryptCost:      envInt("BCRYPT_COST", 10),

		UploadDir:      envStr("UPLOAD_DIR", "static/uploads"),
		ImageMaxWidth:  clamp(envInt("IMAGE_MAX_WIDTH", 1000), 800, 1200),
		ImageQuality:   clamp(envInt("IMAGE_QUALITY", 75), 70, 75),
		ImageTimeout:   envDur("IMAGE_TIMEOUT", 10*time.Second),
		MaxUploadFiles: envInt("MAX_UPLOAD_FILES", 10),

		ContactHost: envStr("CONTACT_HOST", "wa.me"),
		CountryCode: envStr("COUNTRY_CODE", "260"),
		SiteName:    envStr("SITE_NAME", "MyWay"),

		AMQPURL: envStr("RABBITMQ_URL", os.Getenv("AMQP_URL")),
	}
	loadDatabase(&cfg)
	return cfg
}

// LoadDatabase reads only the environment and database settings.  It is
// used by commands that touch the schema without serving requests, so the
// session and admin secrets are not required.
func LoadDatabase() Config {
	cfg := Config{Env: envStr("APP_ENV", "dev")}
	loadDatabase(&cfg)
	return cfg
}

func loadDatabase(cfg *Config) {
	cfg.DBDriver = envStr("DB_DRIVER", "sqlite")
	cfg.DBPath = envStr("DB_PATH", "database.db")
	if cfg.DBDriver == "mysql" {
		cfg.DBUser = must("DB_USER")
		cfg.DBPass = os.Getenv("DB_PASS") // empty allowed
		cfg.DBHost = must("DB_HOST")
		cfg.DBPort = mustInt("DB_PORT")
		cfg.DBName = must("DB_NAME")
	}
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but validates that the value is an integer.  The
// string form is returned since ports are used as strings.
func mustInt(key string) string {
	s := must(key)
	if _, err := strconv.Atoi(s); err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return s
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
