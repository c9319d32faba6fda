package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/conduction/solr-tenant-provision/internal/config"
	"github.com/conduction/solr-tenant-provision/internal/workflow"
)

func newProvisionTenantCmd() *cobra.Command {
	var (
		configPath     string
		descriptorPath string
		tenantID       string
		dryRun         bool
		jsonOut        bool
	)

	cmd := &cobra.Command{
		Use:   "provision-tenant",
		Short: "Run the provisioning workflow from a tenant descriptor merged over a base config",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := newLogger(logFormat, logLevel)
			if err != nil {
				return err
			}
			human := !jsonOut && strings.EqualFold(logFormat, "text")
			progress := newWorkflowProgress(3, human)

			progress.start("descriptor", "Acquire tenant descriptor")
			base, err := config.Load(configPath)
			if err != nil {
				// The base config may lack a tenant id; the descriptor supplies it.
				base, err = loadBaseWithoutTenant(configPath)
				if err != nil {
					return err
				}
			}
			descriptor, err := resolveTenantDescriptor(descriptorPath, tenantID)
			if err != nil {
				return err
			}
			progress.done("tenant descriptor ready")

			progress.start("merge", "Merge descriptor into base config")
			// Merge happens inside the workflow; this stage only validates up front.
			if err := descriptor.Validate(); err != nil {
				return &userError{
					msg:  fmt.Sprintf("tenant descriptor invalid: %v", err),
					hint: "Provide --tenant-id or a descriptor file with tenant_id set",
				}
			}
			progress.done("descriptor validated")

			progress.start("provision", "Run tenant provisioning against SOLR")
			run, err := workflow.ProvisionFromDescriptor(cmd.Context(), logger, base, descriptor, workflow.ProvisionOptions{
				DryRun: dryRun,
			})
			if err != nil {
				return err
			}
			if !dryRun && !run.Success {
				if jsonOut {
					return printJSON(run)
				}
				if human {
					printRunChecklist(run)
				}
				return provisionRunError(run)
			}
			progress.done("provisioning completed")

			if jsonOut {
				return printJSON(run)
			}

			if human {
				printRunChecklist(run)
				fmt.Printf("\n\033[32m✓ workflow completed\033[0m\n")
				fmt.Printf("  Tenant: \033[36m%s\033[0m\n", run.Tenant)
				fmt.Printf("  Total:  \033[36m%s\033[0m\n", time.Since(run.StartedAt).Truncate(time.Millisecond))
			} else {
				logger.Info("workflow completed",
					"tenant", run.Tenant,
					"duration", time.Since(run.StartedAt).String(),
				)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Path to base YAML config file")
	cmd.Flags().StringVar(&descriptorPath, "descriptor", "", "Path to tenant descriptor YAML/JSON")
	cmd.Flags().StringVar(&tenantID, "tenant-id", "", "Tenant id (shorthand for a descriptor with only tenant_id)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the planned steps without touching SOLR")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print machine-readable run JSON")
	_ = cmd.MarkFlagRequired("config")
	// descriptor or tenant-id is required; validated at runtime.

	return cmd
}

func resolveTenantDescriptor(descriptorPath, tenantID string) (workflow.TenantDescriptor, error) {
	if strings.TrimSpace(descriptorPath) != "" && strings.TrimSpace(tenantID) != "" {
		return workflow.TenantDescriptor{}, fmt.Errorf("use either --descriptor or --tenant-id, not both")
	}
	if strings.TrimSpace(descriptorPath) != "" {
		return workflow.LoadTenantDescriptor(descriptorPath)
	}
	if strings.TrimSpace(tenantID) == "" {
		return workflow.TenantDescriptor{}, fmt.Errorf("tenant descriptor is required (set --descriptor or --tenant-id)")
	}
	return workflow.TenantDescriptor{TenantID: tenantID}, nil
}

// loadBaseWithoutTenant loads a base config whose tenant id is filled in
// later by the descriptor. Validation of the merged result still applies.
func loadBaseWithoutTenant(path string) (config.Config, error) {
	return config.LoadPartial(path)
}

type workflowProgress struct {
	total   int
	current int
	enabled bool
}

func newWorkflowProgress(total int, enabled bool) *workflowProgress {
	return &workflowProgress{total: total, enabled: enabled}
}

func (p *workflowProgress) start(step, desc string) {
	if !p.enabled {
		return
	}
	p.current++
	pct := (p.current - 1) * 100 / p.total
	fmt.Printf("\n\033[35m[workflow %d/%d]\033[0m \033[1m%s\033[0m \033[90m(%d%%)\033[0m\n", p.current, p.total, step, pct)
	fmt.Printf("  \033[90m%s\033[0m\n", desc)
}

func (p *workflowProgress) done(msg string) {
	if !p.enabled {
		return
	}
	pct := p.current * 100 / p.total
	fmt.Printf("  \033[32m✓ %s\033[0m \033[90m[%d/%d %d%%]\033[0m\n", msg, p.current, p.total, pct)
}
