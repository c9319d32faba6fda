package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds every setting for one tenant provisioning run. It is
// immutable once loaded; the provisioner never writes it back.
type Config struct {
	Solr       SolrConfig       `yaml:"solr"`
	Tenant     TenantConfig     `yaml:"tenant"`
	ConfigSet  ConfigSetConfig  `yaml:"configset"`
	Collection CollectionConfig `yaml:"collection"`
	Provision  ProvisionConfig  `yaml:"provision"`
	Timeouts   TimeoutsConfig   `yaml:"timeouts"`
}

var (
	safeNameTokenRE = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)
	tenantIDRE      = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
)

// DefaultConfigSetName is the stock SOLR configSet sentinel. A base name
// equal to it is never tenant-suffixed and its archive is never uploaded.
const DefaultConfigSetName = "_default"

type SolrConfig struct {
	Scheme   string `yaml:"scheme"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	BasePath string `yaml:"base_path"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

type TenantConfig struct {
	// ID is supplied explicitly by the host platform. There is no fallback
	// to a shared "default" tenant; an empty ID fails validation.
	ID string `yaml:"id"`
}

type ConfigSetConfig struct {
	BaseName    string `yaml:"base_name"`
	ArchivePath string `yaml:"archive_path"`
}

type CollectionConfig struct {
	BaseName          string `yaml:"base_name"`
	NumShards         int    `yaml:"num_shards"`
	ReplicationFactor int    `yaml:"replication_factor"`
}

type ProvisionConfig struct {
	// PropagationFailureIsFatal promotes step-3 trigger failures from
	// warnings to hard run failures.
	PropagationFailureIsFatal bool `yaml:"propagation_failure_is_fatal"`
	CreateRetries             int  `yaml:"create_retries"`
	CreateRetryBaseSeconds    int  `yaml:"create_retry_base_seconds"`
	PropagationPauseSeconds   int  `yaml:"propagation_pause_seconds"`
}

type TimeoutsConfig struct {
	ReadSeconds  int `yaml:"read_seconds"`
	WriteSeconds int `yaml:"write_seconds"`
}

func (t TimeoutsConfig) ReadDuration() time.Duration {
	return time.Duration(t.ReadSeconds) * time.Second
}

func (t TimeoutsConfig) WriteDuration() time.Duration {
	return time.Duration(t.WriteSeconds) * time.Second
}

func (p ProvisionConfig) CreateRetryBaseDuration() time.Duration {
	return time.Duration(p.CreateRetryBaseSeconds) * time.Second
}

func (p ProvisionConfig) PropagationPauseDuration() time.Duration {
	return time.Duration(p.PropagationPauseSeconds) * time.Second
}

func defaultConfig() Config {
	return Config{
		Solr: SolrConfig{
			Scheme:   "http",
			Port:     8983,
			BasePath: "/solr",
		},
		ConfigSet: ConfigSetConfig{
			BaseName:    DefaultConfigSetName,
			ArchivePath: "configsets/openregister-configset.zip",
		},
		Collection: CollectionConfig{
			NumShards:         1,
			ReplicationFactor: 1,
		},
		Provision: ProvisionConfig{
			CreateRetries:           6,
			CreateRetryBaseSeconds:  2,
			PropagationPauseSeconds: 1,
		},
		Timeouts: TimeoutsConfig{
			ReadSeconds:  10,
			WriteSeconds: 30,
		},
	}
}

func Load(path string) (Config, error) {
	cfg, err := LoadPartial(path)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadPartial loads and normalizes a config without validating it. A
// caller merging in required fields afterwards (for example the tenant id
// from a descriptor) validates the merged result instead.
func LoadPartial(path string) (Config, error) {
	cfg := defaultConfig()

	content, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	expanded := os.ExpandEnv(string(content))
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	applyEnvOverrides(&cfg)
	expandHomePaths(&cfg)

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("STP_SOLR_HOST"); v != "" {
		cfg.Solr.Host = v
	}
	if v := os.Getenv("STP_SOLR_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Solr.Port = port
		}
	}
	if v := os.Getenv("STP_SOLR_USERNAME"); v != "" {
		cfg.Solr.Username = v
	}
	if v := os.Getenv("STP_SOLR_PASSWORD"); v != "" {
		cfg.Solr.Password = v
	}
	if v := os.Getenv("STP_TENANT_ID"); v != "" {
		cfg.Tenant.ID = v
	}
}

func expandHomePaths(cfg *Config) {
	cfg.ConfigSet.ArchivePath = expandHome(cfg.ConfigSet.ArchivePath)
}

func expandHome(path string) string {
	p := strings.TrimSpace(path)
	if p == "" || !strings.HasPrefix(p, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return path
	}
	if p == "~" {
		return home
	}
	if strings.HasPrefix(p, "~/") {
		return filepath.Join(home, strings.TrimPrefix(p, "~/"))
	}
	return path
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Solr.Host) == "" {
		return fmt.Errorf("solr.host is required")
	}
	if c.Solr.Port <= 0 || c.Solr.Port > 65535 {
		return fmt.Errorf("solr.port must be in range 1..65535")
	}
	switch strings.ToLower(strings.TrimSpace(c.Solr.Scheme)) {
	case "http", "https":
	default:
		return fmt.Errorf("solr.scheme must be http or https")
	}
	if strings.TrimSpace(c.Tenant.ID) == "" {
		return fmt.Errorf("tenant.id is required")
	}
	if !tenantIDRE.MatchString(c.Tenant.ID) {
		return fmt.Errorf("tenant.id has invalid characters (allowed: letters, digits, underscore, hyphen)")
	}
	if strings.TrimSpace(c.ConfigSet.BaseName) == "" {
		return fmt.Errorf("configset.base_name is required")
	}
	if !safeNameTokenRE.MatchString(c.ConfigSet.BaseName) {
		return fmt.Errorf("configset.base_name has invalid characters")
	}
	if c.ConfigSet.BaseName != DefaultConfigSetName && strings.TrimSpace(c.ConfigSet.ArchivePath) == "" {
		return fmt.Errorf("configset.archive_path is required for non-default configsets")
	}
	if strings.TrimSpace(c.Collection.BaseName) == "" {
		return fmt.Errorf("collection.base_name is required")
	}
	if !safeNameTokenRE.MatchString(c.Collection.BaseName) {
		return fmt.Errorf("collection.base_name has invalid characters")
	}
	if c.Collection.NumShards <= 0 {
		return fmt.Errorf("collection.num_shards must be > 0")
	}
	if c.Collection.ReplicationFactor <= 0 {
		return fmt.Errorf("collection.replication_factor must be > 0")
	}
	if c.Provision.CreateRetries <= 0 {
		return fmt.Errorf("provision.create_retries must be > 0")
	}
	if c.Provision.CreateRetryBaseSeconds < 0 {
		return fmt.Errorf("provision.create_retry_base_seconds must be >= 0")
	}
	if c.Provision.PropagationPauseSeconds < 0 {
		return fmt.Errorf("provision.propagation_pause_seconds must be >= 0")
	}
	if c.Timeouts.ReadSeconds <= 0 {
		return fmt.Errorf("timeouts.read_seconds must be > 0")
	}
	if c.Timeouts.WriteSeconds <= 0 {
		return fmt.Errorf("timeouts.write_seconds must be > 0")
	}
	return nil
}
