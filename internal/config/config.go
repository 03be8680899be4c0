package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	DBDriverSQLite = "sqlite"
	DBDriverMySQL  = "mysql"

	StorageFile   = "file"
	StorageMemory = "memory"
	StorageRedis  = "redis"
	StorageSQLite = "sqlite"
)

// Server configures the stub backend (cmd/api).
type Server struct {
	AppPort string

	DBDriver   string
	SQLitePath string

	MySQLHost string
	MySQLPort string
	MySQLDB   string
	MySQLUser string
	MySQLPass string

	// RedisAddr empty disables the chat idempotency middleware.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	IdempTTLSecs  int

	JWTSecret      string
	TokenTTL       time.Duration
	ChatSessionTTL time.Duration

	LogLevel string
	LogJSON  bool
}

// Client configures the CLI front end (cmd/finagent).
type Client struct {
	APIBaseURL     string
	RequestTimeout time.Duration
	ChatTimeout    time.Duration

	Storage     string
	StoragePath string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	LogFile  string
	LogLevel string
}

// LoadDotenv reads .env files into the process environment; missing files are ignored.
// Variables already set win over the file.
func LoadDotenv(files ...string) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		_ = godotenv.Load(f)
	}
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func getenvInt(k string, d int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return d
}

func getenvDuration(k string, d time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if dur, err := time.ParseDuration(v); err == nil {
			return dur
		}
	}
	return d
}

func getenvBool(k string, d bool) bool {
	if v := os.Getenv(k); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return d
}

func LoadServer() *Server {
	return &Server{
		AppPort:    getenv("APP_PORT", "8080"),
		DBDriver:   getenv("DB_DRIVER", DBDriverSQLite),
		SQLitePath: getenv("SQLITE_PATH", "finagent.db"),

		MySQLHost: getenv("MYSQL_HOST", "mysql"),
		MySQLPort: getenv("MYSQL_PORT", "3306"),
		MySQLDB:   getenv("MYSQL_DB", "finagent"),
		MySQLUser: getenv("MYSQL_USER", "finagent"),
		MySQLPass: getenv("MYSQL_PASS", "finagent"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getenvInt("REDIS_DB", 0),
		IdempTTLSecs:  getenvInt("IDEMPOTENCY_TTL_SECONDS", 300),

		JWTSecret:      getenv("JWT_SECRET", "dev-secret-change-me"),
		TokenTTL:       getenvDuration("TOKEN_TTL", 24*time.Hour),
		ChatSessionTTL: getenvDuration("CHAT_SESSION_TTL", 24*time.Hour),

		LogLevel: getenv("LOG_LEVEL", "info"),
		LogJSON:  getenvBool("LOG_JSON", true),
	}
}

func (c *Server) Validate() error {
	if c.AppPort == "" {
		return errors.New("missing APP_PORT")
	}
	switch c.DBDriver {
	case DBDriverSQLite:
		if c.SQLitePath == "" {
			return errors.New("missing SQLITE_PATH")
		}
	case DBDriverMySQL:
		if c.MySQLHost == "" || c.MySQLPort == "" || c.MySQLDB == "" || c.MySQLUser == "" {
			return errors.New("missing MySQL config (MYSQL_HOST/PORT/DB/USER)")
		}
		if _, err := net.LookupPort("tcp", c.MySQLPort); err != nil {
			return fmt.Errorf("invalid MYSQL_PORT %q: %w", c.MySQLPort, err)
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	if len(c.JWTSecret) < 8 {
		return errors.New("JWT_SECRET must be at least 8 characters")
	}
	if c.TokenTTL <= 0 || c.ChatSessionTTL <= 0 {
		return errors.New("TOKEN_TTL and CHAT_SESSION_TTL must be positive")
	}
	return nil
}

// DSN returns the connection string for the configured driver.
func (c *Server) DSN() string {
	if c.DBDriver == DBDriverMySQL {
		return c.MySQLDSN()
	}
	return c.SQLitePath
}

func (c *Server) mysqlAddr() string { return net.JoinHostPort(c.MySQLHost, c.MySQLPort) }

func (c *Server) MySQLDSN() string {
	// parseTime needed for DATETIME
	return fmt.Sprintf("%s:%s@tcp(%s)/%s?parseTime=true&charset=utf8mb4,utf8",
		c.MySQLUser, c.MySQLPass, c.mysqlAddr(), c.MySQLDB)
}

func LoadClient() *Client {
	dir := defaultDataDir()
	storage := getenv("FINAGENT_STORAGE", StorageFile)
	file := "session.json"
	if storage == StorageSQLite {
		file = "session.db"
	}
	return &Client{
		APIBaseURL:     getenv("FINAGENT_API_URL", "http://localhost:8080"),
		RequestTimeout: getenvDuration("FINAGENT_REQUEST_TIMEOUT", 30*time.Second),
		ChatTimeout:    getenvDuration("FINAGENT_CHAT_TIMEOUT", 120*time.Second),

		Storage:     storage,
		StoragePath: getenv("FINAGENT_STORAGE_PATH", filepath.Join(dir, file)),

		RedisAddr:     getenv("FINAGENT_REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("FINAGENT_REDIS_PASSWORD"),
		RedisDB:       getenvInt("FINAGENT_REDIS_DB", 0),

		LogFile:  getenv("FINAGENT_LOG_FILE", filepath.Join(dir, "finagent.log")),
		LogLevel: getenv("FINAGENT_LOG_LEVEL", "info"),
	}
}

func (c *Client) Validate() error {
	u, err := url.Parse(c.APIBaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid FINAGENT_API_URL %q", c.APIBaseURL)
	}
	if c.RequestTimeout <= 0 || c.ChatTimeout <= 0 {
		return errors.New("request timeouts must be positive")
	}
	switch c.Storage {
	case StorageMemory, StorageRedis:
	case StorageFile, StorageSQLite:
		if c.StoragePath == "" {
			return errors.New("missing FINAGENT_STORAGE_PATH")
		}
	default:
		return fmt.Errorf("unsupported FINAGENT_STORAGE %q", c.Storage)
	}
	return nil
}

func defaultDataDir() string {
	if d, err := os.UserConfigDir(); err == nil {
		return filepath.Join(d, "finagent")
	}
	return ".finagent"
}
