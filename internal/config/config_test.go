package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "solr-provision.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const minimalYAML = `
solr:
  host: localhost
tenant:
  id: nc_ab12
collection:
  base_name: openregister
`

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalYAML))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Solr.Scheme != "http" || cfg.Solr.Port != 8983 || cfg.Solr.BasePath != "/solr" {
		t.Fatalf("solr defaults not applied: %+v", cfg.Solr)
	}
	if cfg.ConfigSet.BaseName != DefaultConfigSetName {
		t.Fatalf("configset base default = %q", cfg.ConfigSet.BaseName)
	}
	if cfg.Collection.NumShards != 1 || cfg.Collection.ReplicationFactor != 1 {
		t.Fatalf("collection defaults not applied: %+v", cfg.Collection)
	}
	if cfg.Provision.CreateRetries != 6 || cfg.Provision.CreateRetryBaseSeconds != 2 {
		t.Fatalf("retry defaults not applied: %+v", cfg.Provision)
	}
	if cfg.Timeouts.ReadDuration() != 10*time.Second || cfg.Timeouts.WriteDuration() != 30*time.Second {
		t.Fatalf("timeout defaults not applied: %+v", cfg.Timeouts)
	}
}

func TestLoadEnvOverridesWin(t *testing.T) {
	t.Setenv("STP_SOLR_HOST", "solr.internal")
	t.Setenv("STP_SOLR_PORT", "18983")
	t.Setenv("STP_SOLR_USERNAME", "admin")
	t.Setenv("STP_SOLR_PASSWORD", "secret")
	t.Setenv("STP_TENANT_ID", "env_tenant")

	cfg, err := Load(writeConfig(t, minimalYAML))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Solr.Host != "solr.internal" || cfg.Solr.Port != 18983 {
		t.Fatalf("solr env overrides not applied: %+v", cfg.Solr)
	}
	if cfg.Solr.Username != "admin" || cfg.Solr.Password != "secret" {
		t.Fatalf("credential env overrides not applied")
	}
	if cfg.Tenant.ID != "env_tenant" {
		t.Fatalf("tenant env override not applied: %q", cfg.Tenant.ID)
	}
}

func TestLoadExpandsEnvPlaceholders(t *testing.T) {
	t.Setenv("SOLR_PASS", "from-env")
	path := writeConfig(t, `
solr:
  host: localhost
  username: admin
  password: ${SOLR_PASS}
tenant:
  id: nc_ab12
collection:
  base_name: openregister
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Solr.Password != "from-env" {
		t.Fatalf("password placeholder not expanded: %q", cfg.Solr.Password)
	}
}

func TestValidateRejectsBadConfigs(t *testing.T) {
	base := func() Config {
		cfg := defaultConfig()
		cfg.Solr.Host = "localhost"
		cfg.Tenant.ID = "nc_ab12"
		cfg.Collection.BaseName = "openregister"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"missing host", func(c *Config) { c.Solr.Host = " " }, "solr.host"},
		{"bad port", func(c *Config) { c.Solr.Port = 70000 }, "solr.port"},
		{"bad scheme", func(c *Config) { c.Solr.Scheme = "ftp" }, "solr.scheme"},
		{"missing tenant id", func(c *Config) { c.Tenant.ID = "" }, "tenant.id"},
		{"tenant id with spaces", func(c *Config) { c.Tenant.ID = "bad tenant" }, "tenant.id"},
		{"tenant id with slash", func(c *Config) { c.Tenant.ID = "a/b" }, "tenant.id"},
		{"missing configset base", func(c *Config) { c.ConfigSet.BaseName = "" }, "configset.base_name"},
		{"custom configset without archive", func(c *Config) {
			c.ConfigSet.BaseName = "custom"
			c.ConfigSet.ArchivePath = ""
		}, "configset.archive_path"},
		{"missing collection base", func(c *Config) { c.Collection.BaseName = "" }, "collection.base_name"},
		{"zero shards", func(c *Config) { c.Collection.NumShards = 0 }, "num_shards"},
		{"zero replication", func(c *Config) { c.Collection.ReplicationFactor = 0 }, "replication_factor"},
		{"zero retries", func(c *Config) { c.Provision.CreateRetries = 0 }, "create_retries"},
		{"negative pause", func(c *Config) { c.Provision.PropagationPauseSeconds = -1 }, "propagation_pause_seconds"},
		{"zero read timeout", func(c *Config) { c.Timeouts.ReadSeconds = 0 }, "read_seconds"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateAcceptsDefaultConfigSetWithoutArchive(t *testing.T) {
	cfg := defaultConfig()
	cfg.Solr.Host = "localhost"
	cfg.Tenant.ID = "nc_ab12"
	cfg.Collection.BaseName = "openregister"
	cfg.ConfigSet.BaseName = DefaultConfigSetName
	cfg.ConfigSet.ArchivePath = ""

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
}

func TestLoadPartialSkipsValidation(t *testing.T) {
	path := writeConfig(t, `
solr:
  host: localhost
collection:
  base_name: openregister
`)
	cfg, err := LoadPartial(path)
	if err != nil {
		t.Fatalf("LoadPartial failed: %v", err)
	}
	if cfg.Tenant.ID != "" {
		t.Fatalf("unexpected tenant id %q", cfg.Tenant.ID)
	}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected the partial config to fail full validation")
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		t.Skip("no home directory in test environment")
	}

	if got := expandHome("~/archives/configset.zip"); got != filepath.Join(home, "archives/configset.zip") {
		t.Fatalf("expandHome = %q", got)
	}
	if got := expandHome("relative/path.zip"); got != "relative/path.zip" {
		t.Fatalf("expandHome mangled relative path: %q", got)
	}
}
