package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotproxy/internal/models"
	"github.com/desertthunder/spotproxy/internal/repositories"
	"github.com/desertthunder/spotproxy/internal/services"
	"github.com/desertthunder/spotproxy/internal/shared"
	tu "github.com/desertthunder/spotproxy/internal/testing"
	"github.com/urfave/cli/v3"
)

func run(ctx context.Context, r *Runner, args ...string) error {
	app := &cli.Command{Name: "spotproxy", Commands: r.register()}
	return app.Run(ctx, append([]string{"spotproxy"}, args...))
}

func journalConfig(t *testing.T) *shared.Config {
	t.Helper()
	config := shared.DefaultConfig()
	config.Database.Path = filepath.Join(t.TempDir(), "journal.db")
	return config
}

func seedEvents(t *testing.T, config *shared.Config, events ...*models.AuthEvent) {
	t.Helper()
	store, err := repositories.Open(context.Background(), config.Database)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	defer store.Close()

	for _, e := range events {
		if err := store.Events.Record(context.Background(), e); err != nil {
			t.Fatalf("failed to record event: %v", err)
		}
	}
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			httpClient := &http.Client{}
			api := &services.APIService{}

			runner := NewRunner(RunnerOpts{
				Config:     config,
				Logger:     logger,
				Output:     output,
				HTTPClient: httpClient,
				API:        api,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.httpClient != httpClient {
				t.Error("expected httpClient to be set")
			}
			if runner.api != api {
				t.Error("expected api to be set")
			}
		})

		t.Run("with nil logger uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
		})

		t.Run("with nil output uses stdout", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
		})

		t.Run("with nil httpClient uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.httpClient != http.DefaultClient {
				t.Error("expected httpClient to default to http.DefaultClient")
			}
		})

		t.Run("with nil browser opener uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.openBrowser == nil {
				t.Error("expected openBrowser to be set")
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, false); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			expected := `{"key":"value"}` + "\n"
			if output.String() != expected {
				t.Errorf("expected %q, got %q", expected, output.String())
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			err := runner.writeJSON(make(chan int), false)
			if err == nil || !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlain("hello %s", "world"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if output.String() != "hello world" {
				t.Errorf("expected 'hello world', got %q", output.String())
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writePlain("test")
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		commands := NewRunner(RunnerOpts{}).register()

		names := map[string]bool{}
		for i, cmd := range commands {
			if cmd == nil {
				t.Fatalf("command at index %d is nil", i)
			}
			names[cmd.Name] = true
		}
		for _, want := range []string{"serve", "setup", "config", "events", "status"} {
			if !names[want] {
				t.Errorf("expected %q command to be registered", want)
			}
		}
	})
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	output := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{Output: output, Logger: log.New(io.Discard)})

	if err := run(context.Background(), runner, "config", "init", "--config", path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tu.AssertFileExists(t, path)
	if !strings.Contains(tu.MustReadFile(t, path), "[credentials.spotify]") {
		t.Error("expected example config contents")
	}

	if err := run(context.Background(), runner, "config", "init", "--config", path); err == nil {
		t.Error("expected an error when the file already exists")
	}
}

func TestSetup(t *testing.T) {
	config := journalConfig(t)
	configPath := filepath.Join(t.TempDir(), "config.toml")
	output := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{Config: config, Output: output, Logger: log.New(io.Discard)})

	if err := run(context.Background(), runner, "setup", "--config", configPath); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tu.AssertFileExists(t, configPath)
	tu.AssertFileExists(t, config.Database.Path)
	if !strings.Contains(output.String(), "Setup complete") || !strings.Contains(output.String(), "(0 events)") {
		t.Errorf("unexpected output %q", output.String())
	}
}

func TestEvents(t *testing.T) {
	old := models.NewAuthEvent(models.EventLogin, models.OutcomeSuccess)
	old.SetCreatedAt(time.Now().Add(-60 * 24 * time.Hour))
	recent := models.NewAuthEvent(models.EventCallback, models.OutcomeStateMismatch).WithRequest("/auth/callback", "192.0.2.1")

	t.Run("json", func(t *testing.T) {
		config := journalConfig(t)
		seedEvents(t, config, old, recent)
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Config: config, Output: output, Logger: log.New(io.Discard)})

		if err := run(context.Background(), runner, "events", "--json"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var got []eventJSON
		if err := json.Unmarshal(output.Bytes(), &got); err != nil {
			t.Fatalf("invalid JSON %q: %v", output.String(), err)
		}
		if len(got) != 2 {
			t.Fatalf("expected 2 events, got %d", len(got))
		}
		if got[0].Kind != "callback" || got[0].Outcome != models.OutcomeStateMismatch || got[0].Path != "/auth/callback" {
			t.Errorf("expected newest event first, got %+v", got[0])
		}
	})

	t.Run("prune", func(t *testing.T) {
		config := journalConfig(t)
		seedEvents(t, config,
			models.NewAuthEvent(models.EventLogin, models.OutcomeSuccess),
		)
		stale := models.NewAuthEvent(models.EventLogout, models.OutcomeSuccess)
		stale.SetCreatedAt(time.Now().Add(-60 * 24 * time.Hour))
		seedEvents(t, config, stale)

		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Config: config, Output: output, Logger: log.New(io.Discard)})

		if err := run(context.Background(), runner, "events", "--prune", "720h", "--json"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var got []eventJSON
		if err := json.Unmarshal(output.Bytes(), &got); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if len(got) != 1 || got[0].Kind != "login" {
			t.Errorf("expected only the recent login event, got %+v", got)
		}
	})

	t.Run("table", func(t *testing.T) {
		config := journalConfig(t)
		seedEvents(t, config, models.NewAuthEvent(models.EventRefresh, models.OutcomeInvalidRefreshToken))
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Config: config, Output: output, Logger: log.New(io.Discard)})

		if err := run(context.Background(), runner, "events", "--limit", "5"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(output.String(), "invalid_refresh_token") {
			t.Errorf("expected event in table:\n%s", output.String())
		}
	})

	t.Run("empty journal", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Config: journalConfig(t), Output: output, Logger: log.New(io.Discard)})

		if err := run(context.Background(), runner, "events"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(output.String(), "No auth events") {
			t.Errorf("unexpected output %q", output.String())
		}
	})

	t.Run("requires a database path", func(t *testing.T) {
		config := shared.DefaultConfig()
		config.Database.Path = ""
		runner := NewRunner(RunnerOpts{Config: config, Output: &bytes.Buffer{}, Logger: log.New(io.Discard)})

		err := run(context.Background(), runner, "events")
		if !errors.Is(err, shared.ErrMissingConfig) {
			t.Errorf("expected ErrMissingConfig, got %v", err)
		}
	})
}

func TestStatus(t *testing.T) {
	t.Run("healthy proxy", func(t *testing.T) {
		proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/healthz" {
				http.NotFound(w, r)
				return
			}
			_ = json.NewEncoder(w).Encode(services.Health{Status: "ok", Env: "production", Uptime: "5m0s", Journal: true})
		}))
		defer proxy.Close()

		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Output: output, Logger: log.New(io.Discard)})

		if err := run(context.Background(), runner, "status", "--url", proxy.URL); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, want := range []string{"Proxy is healthy", "production", "5m0s", "enabled"} {
			if !strings.Contains(output.String(), want) {
				t.Errorf("expected %q in output %q", want, output.String())
			}
		}
	})

	t.Run("degraded proxy", func(t *testing.T) {
		proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(services.Health{Status: "degraded"})
		}))
		defer proxy.Close()

		runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}, Logger: log.New(io.Discard)})

		err := run(context.Background(), runner, "status", "--url", proxy.URL)
		if !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to find a free port: %v", err)
	}
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

func TestServe(t *testing.T) {
	tests := []struct {
		name   string
		dbPath func(t *testing.T) string
	}{
		{"without database path", func(*testing.T) string { return "" }},
		{"with unopenable database", func(t *testing.T) string {
			return filepath.Join(t.TempDir(), "missing", "sub", "journal.db")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := tu.NewFakeSpotify(t)
			svc, err := services.NewSpotifyService(services.SpotifyOpts{
				ClientID:     tu.FakeClientID,
				ClientSecret: tu.FakeClientSecret,
				AuthURL:      fake.AuthURL(),
				TokenURL:     fake.TokenURL(),
				BaseURL:      fake.APIURL(),
			})
			if err != nil {
				t.Fatalf("failed to create service: %v", err)
			}

			config := shared.DefaultConfig()
			config.Database.Path = tt.dbPath(t)
			config.Server.StaticDir = t.TempDir()

			opened := make(chan string, 1)
			runner := NewRunner(RunnerOpts{
				Config:      config,
				Service:     svc,
				Output:      &bytes.Buffer{},
				Logger:      log.New(io.Discard),
				OpenBrowser: func(url string) error { opened <- url; return nil },
			})

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			port := freePort(t)
			done := make(chan error, 1)
			go func() {
				done <- run(ctx, runner, "serve", "--port", strconv.Itoa(port), "--open", "--log-level", "warn")
			}()

			var loginURL string
			select {
			case loginURL = <-opened:
			case err := <-done:
				t.Fatalf("serve exited early: %v", err)
			case <-time.After(3 * time.Second):
				t.Fatal("browser was never opened")
			}
			if !strings.HasSuffix(loginURL, "/auth/login") {
				t.Errorf("unexpected login URL %q", loginURL)
			}

			health, err := services.NewAPIService(strings.TrimSuffix(loginURL, "/auth/login"), nil).Health(ctx)
			if err != nil {
				t.Fatalf("health check failed: %v", err)
			}
			if health.Journal {
				t.Error("journal should be disabled")
			}

			cancel()
			select {
			case err := <-done:
				if err != nil {
					t.Errorf("unexpected serve error: %v", err)
				}
			case <-time.After(3 * time.Second):
				t.Fatal("serve did not stop")
			}
		})
	}
}

func TestEventsExport(t *testing.T) {
	config := journalConfig(t)
	seedEvents(t, config, models.NewAuthEvent(models.EventLogout, models.OutcomeSuccess))
	output := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{Config: config, Output: output, Logger: log.New(io.Discard)})
	path := filepath.Join(t.TempDir(), "journal.csv")

	if err := run(context.Background(), runner, "events", "--export", path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tu.AssertFileExists(t, path)
	if !strings.Contains(tu.MustReadFile(t, path), "logout,success") {
		t.Errorf("expected logout event in export:\n%s", tu.MustReadFile(t, path))
	}
	if !strings.Contains(output.String(), "1 events") {
		t.Errorf("unexpected output %q", output.String())
	}

	err := run(context.Background(), runner, "events", "--export", filepath.Join(t.TempDir(), "x.json"))
	if !errors.Is(err, shared.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for unknown extension, got %v", err)
	}
}
