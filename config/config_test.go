package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestLoadConfigDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatal(err)
	}
	want := &Config{
		ServerPort:      ":8080",
		GinMode:         "debug",
		Env:             "local",
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    time.Minute,
		ShutdownTimeout: 10 * time.Second,
		Storage:         StorageConfig{Driver: DriverFile, Dir: "./data", MaxConnections: 10},
		Auth:            AuthConfig{Issuer: "exampaper.local"},
		Render:          RenderConfig{MarginMM: 15},
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("EXAMPAPER_SERVER_PORT", ":9090")
	t.Setenv("EXAMPAPER_STORAGE_DRIVER", "Postgres")
	t.Setenv("EXAMPAPER_STORAGE_DATABASE_URL", "postgres://localhost/exams")
	t.Setenv("EXAMPAPER_AUTH_ENABLED", "true")
	t.Setenv("EXAMPAPER_AUTH_JWT_SIGNING_KEY", "secret")
	t.Setenv("EXAMPAPER_RENDER_MARGIN_MM", "20")
	t.Setenv("EXAMPAPER_SHUTDOWN_TIMEOUT", "3s")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ServerPort != ":9090" || cfg.Storage.Driver != DriverPostgres ||
		cfg.Storage.DatabaseURL != "postgres://localhost/exams" || !cfg.Auth.Enabled ||
		cfg.Auth.JWTSigningKey != "secret" || cfg.Render.MarginMM != 20 ||
		cfg.ShutdownTimeout != 3*time.Second {
		t.Errorf("config = %+v", cfg)
	}
}

func TestLoadConfigFiles(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	yaml := "SERVER_PORT: \":7070\"\nSTORAGE:\n  DIR: /var/lib/exampaper\n"
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("EXAMPAPER_GIN_MODE=release\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	// godotenv sets the variable for the whole process.
	t.Cleanup(func() { os.Unsetenv("EXAMPAPER_GIN_MODE") })

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ServerPort != ":7070" || cfg.Storage.Dir != "/var/lib/exampaper" || cfg.GinMode != "release" {
		t.Errorf("config = %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
		want error
	}{
		{"file", Config{Storage: StorageConfig{Driver: "file"}}, nil},
		{"postgres without url", Config{Storage: StorageConfig{Driver: "postgres"}}, ErrMissingDatabaseURL},
		{"unknown driver", Config{Storage: StorageConfig{Driver: "s3"}}, ErrUnknownDriver},
		{"auth without key", Config{Storage: StorageConfig{Driver: "file"}, Auth: AuthConfig{Enabled: true}}, ErrMissingSigningKey},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if err := c.cfg.Validate(); !errors.Is(err, c.want) {
				t.Errorf("Validate() = %v, want %v", err, c.want)
			}
		})
	}
}

// chdir changes the working directory for the duration of the test
// (equivalent of testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatal(err)
		}
	})
}
