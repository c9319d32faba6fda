package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/conduction/solr-tenant-provision/internal/config"
	"github.com/conduction/solr-tenant-provision/internal/provision"
	"github.com/conduction/solr-tenant-provision/pkg/model"
)

func newProvisionCmd() *cobra.Command {
	var (
		configPath string
		dryRun     bool
		jsonOut    bool
	)

	cmd := &cobra.Command{
		Use:   "provision",
		Short: "Run the full tenant provisioning sequence against SOLR",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := newLogger(logFormat, logLevel)
			if err != nil {
				return err
			}

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			human := !jsonOut && strings.EqualFold(logFormat, "text")
			p := provision.New(cfg, logger, provision.NewSolrClient(cfg), provision.Options{})

			if dryRun {
				plan := p.Plan()
				if jsonOut {
					return printJSON(plan)
				}
				fmt.Printf("Planned provisioning steps for tenant \033[36m%s\033[0m:\n", cfg.Tenant.ID)
				for _, step := range plan.Steps {
					fmt.Printf("  [%d/%d] %-14s %s\n", step.Step, plan.TotalSteps, step.Name, step.Description)
				}
				fmt.Printf("  configSet:  %s\n", p.ConfigSetName())
				fmt.Printf("  collection: %s\n", p.CollectionName())
				return nil
			}

			run := p.Provision(cmd.Context())

			if jsonOut {
				return printJSON(run)
			}

			if human {
				printRunChecklist(run)
			}

			if !run.Success {
				return provisionRunError(run)
			}

			if human {
				fmt.Printf("\n\033[32m✓ tenant provisioned\033[0m\n")
				fmt.Printf("  Tenant:     \033[36m%s\033[0m\n", run.Tenant)
				fmt.Printf("  Collection: \033[36m%s\033[0m\n", p.CollectionName())
				fmt.Printf("  Total:      \033[36m%s\033[0m\n", time.Since(run.StartedAt).Truncate(time.Millisecond))
			} else {
				logger.Info("tenant provisioned",
					"tenant", run.Tenant,
					"collection", p.CollectionName(),
					"duration", time.Since(run.StartedAt).String(),
				)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Path to YAML config file")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the planned steps without touching SOLR")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print machine-readable run JSON")
	_ = cmd.MarkFlagRequired("config")

	return cmd
}

func printRunChecklist(run model.Run) {
	fmt.Println()
	for _, step := range run.Steps {
		var mark string
		switch step.Status {
		case model.StepStatusCompleted:
			mark = "\033[32m✓\033[0m"
		case model.StepStatusFailed:
			mark = "\033[31m✗\033[0m"
		default:
			mark = "\033[90m·\033[0m"
		}
		fmt.Printf("  %s [%d/%d] %-14s %s\n", mark, step.Step, run.TotalSteps, step.Name, step.Description)
	}
}

// provisionRunError turns a failed run into an operator-facing error that
// surfaces the failed step and the remediation hint from the error context.
func provisionRunError(run model.Run) error {
	if run.Error == nil {
		return fmt.Errorf("provisioning failed after %d/%d steps", run.CompletedSteps, run.TotalSteps)
	}
	hint := ""
	if h, ok := run.Error.Context["hint"].(string); ok {
		hint = h
	}
	return &userError{
		msg:  fmt.Sprintf("step %d (%s) failed: %s", run.Error.Step, run.Error.StepName, run.Error.Message),
		hint: hint,
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json output: %w", err)
	}
	return nil
}
