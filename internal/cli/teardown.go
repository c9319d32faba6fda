package cli

import (
	"fmt"

	survey "github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/conduction/solr-tenant-provision/internal/config"
	"github.com/conduction/solr-tenant-provision/internal/provision"
)

func newTeardownCmd() *cobra.Command {
	var (
		configPath string
		yes        bool
	)

	cmd := &cobra.Command{
		Use:   "teardown",
		Short: "Delete the tenant collection and configSet",
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

			if !yes {
				var confirmed bool
				prompt := &survey.Confirm{
					Message: fmt.Sprintf("Delete collection %q and configSet %q for tenant %q?",
						p.CollectionName(), p.ConfigSetName(), cfg.Tenant.ID),
				}
				if err := survey.AskOne(prompt, &confirmed); err != nil {
					return nil // Ctrl+C / EOF
				}
				drainStdin()
				if !confirmed {
					fmt.Println("Cancelled.")
					return nil
				}
			}

			if err := p.Teardown(cmd.Context()); err != nil {
				return &userError{
					msg:  fmt.Sprintf("teardown of tenant %s failed: %v", cfg.Tenant.ID, err),
					hint: "Verify SOLR is reachable and the credentials allow admin operations",
				}
			}

			fmt.Printf("\033[32m✓ tenant resources removed\033[0m\n")
			fmt.Printf("  Tenant:     \033[36m%s\033[0m\n", cfg.Tenant.ID)
			fmt.Printf("  Collection: \033[36m%s\033[0m\n", p.CollectionName())
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Path to YAML config file")
	cmd.Flags().BoolVar(&yes, "yes", false, "Skip the confirmation prompt")
	_ = cmd.MarkFlagRequired("config")
	return cmd
}
