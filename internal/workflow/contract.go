package workflow

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/conduction/solr-tenant-provision/internal/config"
)

// TenantDescriptor is the contract a host platform hands over when it asks
// for a tenant to be provisioned. It carries only per-tenant values; the
// base configuration supplies everything else.
type TenantDescriptor struct {
	TenantID           string `yaml:"tenant_id" json:"tenant_id"`
	SolrHost           string `yaml:"solr_host,omitempty" json:"solr_host,omitempty"`
	SolrPort           int    `yaml:"solr_port,omitempty" json:"solr_port,omitempty"`
	SolrUsername       string `yaml:"solr_username,omitempty" json:"solr_username,omitempty"`
	SolrPassword       string `yaml:"solr_password,omitempty" json:"solr_password,omitempty"`
	CollectionBaseName string `yaml:"collection_base_name,omitempty" json:"collection_base_name,omitempty"`
}

var tenantIDRE = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Validate checks the descriptor in isolation, before any merge.
func (d TenantDescriptor) Validate() error {
	if strings.TrimSpace(d.TenantID) == "" {
		return fmt.Errorf("tenant_id is required")
	}
	if !tenantIDRE.MatchString(d.TenantID) {
		return fmt.Errorf("tenant_id has invalid characters (allowed: letters, digits, underscore, hyphen)")
	}
	if d.SolrPort < 0 || d.SolrPort > 65535 {
		return fmt.Errorf("solr_port must be in range 0..65535")
	}
	return nil
}

// LoadTenantDescriptor reads a TenantDescriptor from a YAML (or JSON) file.
func LoadTenantDescriptor(path string) (TenantDescriptor, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return TenantDescriptor{}, fmt.Errorf("read tenant descriptor %s: %w", path, err)
	}
	var d TenantDescriptor
	if err := yaml.Unmarshal(content, &d); err != nil {
		return TenantDescriptor{}, fmt.Errorf("parse tenant descriptor %s: %w", path, err)
	}
	if err := d.Validate(); err != nil {
		return TenantDescriptor{}, err
	}
	return d, nil
}

// MergeDescriptorIntoConfig applies the descriptor onto a base config.
// Descriptor values are authoritative for the tenant identity; connection
// fields override only when set.
func MergeDescriptorIntoConfig(base config.Config, d TenantDescriptor) (config.Config, error) {
	if err := d.Validate(); err != nil {
		return config.Config{}, err
	}

	merged := base
	merged.Tenant.ID = d.TenantID
	if strings.TrimSpace(d.SolrHost) != "" {
		merged.Solr.Host = d.SolrHost
	}
	if d.SolrPort > 0 {
		merged.Solr.Port = d.SolrPort
	}
	if strings.TrimSpace(d.SolrUsername) != "" {
		merged.Solr.Username = d.SolrUsername
	}
	if strings.TrimSpace(d.SolrPassword) != "" {
		merged.Solr.Password = d.SolrPassword
	}
	if strings.TrimSpace(d.CollectionBaseName) != "" {
		merged.Collection.BaseName = d.CollectionBaseName
	}

	if err := merged.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("merged tenant config invalid: %w", err)
	}
	return merged, nil
}
