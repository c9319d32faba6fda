package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conduction/solr-tenant-provision/internal/config"
	"github.com/conduction/solr-tenant-provision/internal/provision"
)

func newValidateCmd() *cobra.Command {
	var (
		configPath string
		jsonOut    bool
	)

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check that the tenant configSet and collection exist and answer queries",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := newLogger(logFormat, logLevel)
			if err != nil {
				return err
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			p := provision.New(cfg, logger, provision.NewSolrClient(cfg), provision.Options{})
			res, err := p.Validate(cmd.Context())
			if err != nil {
				if jsonOut {
					_ = printJSON(res)
				}
				return &userError{
					msg:  fmt.Sprintf("validation of tenant %s failed: %v", cfg.Tenant.ID, err),
					hint: "Verify SOLR is reachable; re-run provisioning if resources are missing",
				}
			}

			if jsonOut {
				return printJSON(res)
			}

			fmt.Printf("Tenant \033[36m%s\033[0m\n", cfg.Tenant.ID)
			fmt.Printf("  configSet %-30s %s\n", res.ConfigSet, checkMark(res.ConfigSetExists))
			fmt.Printf("  collection %-29s %s\n", res.Collection, checkMark(res.CollectionExists))
			fmt.Printf("  query %-34s %s\n", "*:* rows=0", checkMark(res.QueryOK))

			if !res.OK() {
				return &userError{
					msg:  fmt.Sprintf("tenant %s is not fully provisioned", cfg.Tenant.ID),
					hint: "Run: solr-tenant-provision provision --config <path>",
				}
			}
			fmt.Printf("\n\033[32m✓ tenant resources validated\033[0m\n")
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Path to YAML config file")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print machine-readable result JSON")
	_ = cmd.MarkFlagRequired("config")
	return cmd
}

func checkMark(ok bool) string {
	if ok {
		return "\033[32m✓\033[0m"
	}
	return "\033[31m✗\033[0m"
}
