package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadServer_Defaults(t *testing.T) {
	for _, k := range []string{"APP_PORT", "DB_DRIVER", "SQLITE_PATH", "REDIS_ADDR", "TOKEN_TTL", "JWT_SECRET"} {
		t.Setenv(k, "")
	}
	c := LoadServer()
	if c.AppPort != "8080" || c.DBDriver != DBDriverSQLite || c.SQLitePath != "finagent.db" {
		t.Fatalf("unexpected defaults: %+v", c)
	}
	if c.RedisAddr != "" {
		t.Fatalf("redis should be disabled by default, got %q", c.RedisAddr)
	}
	if c.TokenTTL != 24*time.Hour || c.IdempTTLSecs != 300 {
		t.Fatalf("ttl defaults: %v %d", c.TokenTTL, c.IdempTTLSecs)
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	if c.DSN() != "finagent.db" {
		t.Fatalf("sqlite DSN = %q", c.DSN())
	}
}

func TestLoadServer_MySQL(t *testing.T) {
	t.Setenv("DB_DRIVER", "mysql")
	t.Setenv("MYSQL_HOST", "db")
	t.Setenv("MYSQL_PORT", "3307")
	t.Setenv("MYSQL_USER", "u")
	t.Setenv("MYSQL_PASS", "p")
	t.Setenv("MYSQL_DB", "loans")

	c := LoadServer()
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	want := "u:p@tcp(db:3307)/loans?parseTime=true&charset=utf8mb4,utf8"
	if got := c.DSN(); got != want {
		t.Fatalf("DSN = %q, want %q", got, want)
	}
}

func TestServerValidate(t *testing.T) {
	base := func() *Server {
		return &Server{
			AppPort: "8080", DBDriver: DBDriverSQLite, SQLitePath: "x.db",
			JWTSecret: "long-enough", TokenTTL: time.Hour, ChatSessionTTL: time.Hour,
		}
	}
	cases := []struct {
		name   string
		mutate func(*Server)
		want   string
	}{
		{"ok", func(*Server) {}, ""},
		{"no port", func(c *Server) { c.AppPort = "" }, "APP_PORT"},
		{"bad driver", func(c *Server) { c.DBDriver = "oracle" }, "DB_DRIVER"},
		{"bad mysql port", func(c *Server) {
			c.DBDriver = DBDriverMySQL
			c.MySQLHost, c.MySQLDB, c.MySQLUser, c.MySQLPort = "h", "d", "u", "notaport"
		}, "MYSQL_PORT"},
		{"short secret", func(c *Server) { c.JWTSecret = "x" }, "JWT_SECRET"},
		{"zero ttl", func(c *Server) { c.TokenTTL = 0 }, "TTL"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := base()
			tc.mutate(c)
			err := c.Validate()
			if tc.want == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("want error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestLoadClient(t *testing.T) {
	t.Setenv("FINAGENT_API_URL", "https://api.example.in")
	t.Setenv("FINAGENT_CHAT_TIMEOUT", "90s")
	t.Setenv("FINAGENT_REQUEST_TIMEOUT", "bogus")
	t.Setenv("FINAGENT_STORAGE", "memory")

	c := LoadClient()
	if c.APIBaseURL != "https://api.example.in" || c.ChatTimeout != 90*time.Second {
		t.Fatalf("unexpected client config: %+v", c)
	}
	if c.RequestTimeout != 30*time.Second {
		t.Fatalf("unparseable duration should fall back, got %v", c.RequestTimeout)
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	c.APIBaseURL = "ftp://nope"
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for non-http base URL")
	}
	c.APIBaseURL = "http://localhost:8080"
	c.Storage = "floppy"
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for unknown storage")
	}
}

func TestLoadDotenv_DoesNotOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(path, []byte("FINAGENT_TEST_A=from-file\nFINAGENT_TEST_B=from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("FINAGENT_TEST_A", "from-env")
	t.Setenv("FINAGENT_TEST_B", "")
	os.Unsetenv("FINAGENT_TEST_B")

	LoadDotenv(path, filepath.Join(t.TempDir(), "missing.env"))

	if got := os.Getenv("FINAGENT_TEST_A"); got != "from-env" {
		t.Fatalf("A = %q, want env value", got)
	}
	if got := os.Getenv("FINAGENT_TEST_B"); got != "from-file" {
		t.Fatalf("B = %q, want file value", got)
	}
}

func TestLoadClient_SQLiteDefaultPath(t *testing.T) {
	t.Setenv("FINAGENT_STORAGE", "sqlite")
	t.Setenv("FINAGENT_STORAGE_PATH", "")

	c := LoadClient()
	if filepath.Base(c.StoragePath) != "session.db" {
		t.Fatalf("sqlite storage should default to session.db, got %q", c.StoragePath)
	}
}
