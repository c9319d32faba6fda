package provision

import "github.com/conduction/solr-tenant-provision/internal/config"

// TenantQualifiedName appends the tenant suffix to a shared base resource
// name. The "_default" sentinel is returned unchanged so a run can keep
// referencing the stock SOLR configuration.
func TenantQualifiedName(base, tenantID string) string {
	if base == config.DefaultConfigSetName {
		return base
	}
	return base + "_" + tenantID
}
