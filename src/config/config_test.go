package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

// -----------------------------------------------------------------------------

func TestNewConfigFillsDefaults(t *testing.T) {
	path := writeConfig(t, `
name: test-server
transport:
  command_port: 9000
  data_port: 9001
generator:
  symbols: [aapl, msft]
`)
	conf, err := NewConfig(path)
	if err != nil {
		t.Fatalf("NewConfig: %v", err)
	}

	if conf.Name != "test-server" {
		t.Errorf("name: got %q", conf.Name)
	}
	if conf.Transport.CommandPort != 9000 || conf.Transport.DataPort != 9001 {
		t.Errorf("ports: got %d/%d", conf.Transport.CommandPort, conf.Transport.DataPort)
	}
	if conf.Transport.Codec != "json" || conf.Generator.IntervalMs != 500 || conf.Liveness.TimeoutSeconds != 5 {
		t.Errorf("defaults not applied: %+v %+v %+v", conf.Transport, conf.Generator, conf.Liveness)
	}
	if got := conf.TrackedSymbols(); len(got) != 2 || got[0] != "AAPL" || got[1] != "MSFT" {
		t.Errorf("tracked symbols: got %v", got)
	}
}

func TestEnvironmentOverridesUnsetFields(t *testing.T) {
	t.Setenv("QUOTES_CODEC", "PROTOBUF")
	t.Setenv("QUOTES_SYMBOLS", "TSLA,NVDA")
	t.Setenv("QUOTES_LOG_LEVEL", "debug")

	conf, err := NewConfig(writeConfig(t, "name: env-test\n"))
	if err != nil {
		t.Fatalf("NewConfig: %v", err)
	}
	if conf.Transport.Codec != "protobuf" {
		t.Errorf("codec: got %q", conf.Transport.Codec)
	}
	if conf.LogLevel != "DEBUG" {
		t.Errorf("log level: got %q", conf.LogLevel)
	}
	if got := conf.TrackedSymbols(); len(got) != 2 || got[0] != "TSLA" {
		t.Errorf("symbols: got %v", got)
	}
}

func TestValidationErrors(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		want string
	}{
		{"same ports", "transport: {command_port: 7000, data_port: 7000}", "must differ"},
		{"bad codec", "transport: {codec: xml}", "unsupported codec"},
		{"unknown symbol", "generator: {symbols: [AAPL, ZZZZ]}", "unsupported symbol"},
		{"step out of range", "generator: {max_step: 1.5}", "max step"},
		{"bad db type", "storage: {enabled: true, db_type: mongo}", "unsupported database type"},
		{"postgres without dsn", "storage: {enabled: true, db_type: postgres}", "connection string"},
		{"port out of range", "port: 70000", "invalid http port"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewConfig(writeConfig(t, tc.yaml))
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("got %v, want it to mention %q", err, tc.want)
			}
		})
	}
}

func TestMissingFile(t *testing.T) {
	if _, err := NewConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	conf, err := Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	conf.Name = "saved"
	conf.Generator.Symbols = []string{"JPM"}

	path := filepath.Join(t.TempDir(), "saved.yaml")
	if err := conf.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := NewConfig(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if loaded.Name != "saved" || len(loaded.Generator.Symbols) != 1 || loaded.Generator.Symbols[0] != "JPM" {
		t.Errorf("round trip lost fields: %+v", loaded.MConfig)
	}
	if loaded.Transport.DataPort != conf.Transport.DataPort {
		t.Errorf("data port: got %d, want %d", loaded.Transport.DataPort, conf.Transport.DataPort)
	}
}
