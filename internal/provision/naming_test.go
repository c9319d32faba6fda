package provision

import "testing"

func TestTenantQualifiedName(t *testing.T) {
	tests := []struct {
		name   string
		base   string
		tenant string
		want   string
	}{
		{"custom base gets suffix", "custom", "nc_ab12", "custom_nc_ab12"},
		{"openregister base", "openregister", "tenant1", "openregister_tenant1"},
		{"default base is never suffixed", "_default", "nc_ab12", "_default"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TenantQualifiedName(tt.base, tt.tenant); got != tt.want {
				t.Fatalf("TenantQualifiedName(%q, %q) = %q, want %q", tt.base, tt.tenant, got, tt.want)
			}
		})
	}
}
