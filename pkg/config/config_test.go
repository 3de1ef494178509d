package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestDurationUnmarshal(t *testing.T) {
	var c struct {
		D Duration `yaml:"d"`
	}
	if err := yaml.Unmarshal([]byte("d: 250ms"), &c); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if c.D.Duration() != 250*time.Millisecond {
		t.Fatalf("got %v", c.D.Duration())
	}
	// plain numbers are seconds
	if err := yaml.Unmarshal([]byte("d: 2"), &c); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if c.D.Duration() != 2*time.Second {
		t.Fatalf("got %v", c.D.Duration())
	}
	if err := yaml.Unmarshal([]byte("d: nonsense"), &c); err == nil {
		t.Fatal("invalid duration accepted")
	}
}

func TestSizeBytesUnmarshal(t *testing.T) {
	var c struct {
		S SizeBytes `yaml:"s"`
	}
	if err := yaml.Unmarshal([]byte("s: 1MB"), &c); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if c.S.Int64() != 1000*1000 {
		t.Fatalf("got %d", c.S.Int64())
	}
	if err := yaml.Unmarshal([]byte("s: 4096"), &c); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if c.S.Int64() != 4096 {
		t.Fatalf("got %d", c.S.Int64())
	}
}

func TestLoadFullConfig(t *testing.T) {
	p := filepath.Join(t.TempDir(), "config.yaml")
	data := `
server:
  address: 127.0.0.1
  port: 9090
  db_path: /tmp/relay-db
gateway:
  ping_interval: 15s
  max_message_bytes: 64KB
security:
  api_keys:
    backend: [bk1]
    frontend: [fk1, fk2]
sweeper:
  enabled: true
  cron: "*/5 * * * *"
logging:
  level: debug
`
	if err := os.WriteFile(p, []byte(data), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr() != "127.0.0.1:9090" {
		t.Fatalf("addr: %q", cfg.Addr())
	}
	if cfg.Gateway.PingInterval.Duration() != 15*time.Second {
		t.Fatalf("ping interval: %v", cfg.Gateway.PingInterval.Duration())
	}
	be, fe, ad := cfg.SecKeySets()
	if len(be) != 1 || len(fe) != 2 || len(ad) != 0 {
		t.Fatalf("key sets: %v %v %v", be, fe, ad)
	}
	if !cfg.Sweeper.Enabled || cfg.Sweeper.Cron != "*/5 * * * *" {
		t.Fatalf("sweeper: %+v", cfg.Sweeper)
	}
}

func TestLoadEffectiveConfigPrecedence(t *testing.T) {
	fileCfg := &Config{}
	fileCfg.Server.Address = "10.0.0.1"
	fileCfg.Server.Port = 7000
	fileCfg.Server.DBPath = "/file/db"

	envCfg := &Config{}
	envCfg.Server.Address = "10.0.0.2"
	envCfg.Server.Port = 7001
	envCfg.Server.DBPath = "/env/db"

	// flags win when set
	flags := Flags{Addr: ":9999", DB: "/flag/db", Set: map[string]bool{"addr": true, "db": true}}
	res, err := LoadEffectiveConfig(flags, fileCfg, true, envCfg, EnvResult{EnvUsed: true})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.Source != "flags" || res.Addr != ":9999" || res.DBPath != "/flag/db" {
		t.Fatalf("flags precedence: %+v", res)
	}

	// file beats env when no flags set
	res, err = LoadEffectiveConfig(Flags{Set: map[string]bool{}}, fileCfg, true, envCfg, EnvResult{EnvUsed: true})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.Source != "config" || res.DBPath != "/file/db" {
		t.Fatalf("file precedence: %+v", res)
	}

	// env is the fallback
	res, err = LoadEffectiveConfig(Flags{Set: map[string]bool{}}, &Config{}, false, envCfg, EnvResult{EnvUsed: true})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.Source != "env" || res.DBPath != "/env/db" {
		t.Fatalf("env fallback: %+v", res)
	}

	// explicit --config requires the file
	if _, err := LoadEffectiveConfig(Flags{Config: "/nope.yaml", Set: map[string]bool{"config": true}}, &Config{}, false, envCfg, EnvResult{}); err == nil {
		t.Fatal("missing explicit config file accepted")
	}
}

func TestParseConfigEnvs(t *testing.T) {
	t.Setenv("CHATRELAY_ADDR", "0.0.0.0:8443")
	t.Setenv("CHATRELAY_DB_PATH", "/env/db")
	t.Setenv("CHATRELAY_API_BACKEND_KEYS", "k1, k2")
	t.Setenv("CHATRELAY_SWEEPER_ENABLED", "true")

	envCfg, res := ParseConfigEnvs()
	if !res.EnvUsed {
		t.Fatal("env not detected")
	}
	if envCfg.Server.Address != "0.0.0.0" || envCfg.Server.Port != 8443 {
		t.Fatalf("addr: %+v", envCfg.Server)
	}
	if envCfg.Server.DBPath != "/env/db" {
		t.Fatalf("db path: %q", envCfg.Server.DBPath)
	}
	if len(envCfg.Security.APIKeys.Backend) != 2 || envCfg.Security.APIKeys.Backend[1] != "k2" {
		t.Fatalf("backend keys: %v", envCfg.Security.APIKeys.Backend)
	}
	if !envCfg.Sweeper.Enabled {
		t.Fatal("sweeper flag lost")
	}
}
