package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conduction/solr-tenant-provision/internal/provision"
)

func newFieldsCmd() *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "fields",
		Short: "Print the metadata schema field catalog applied to every tenant collection",
		RunE: func(_ *cobra.Command, _ []string) error {
			catalog := provision.FieldCatalog()
			if jsonOut {
				return printJSON(catalog)
			}

			fmt.Printf("%-16s %-14s %-7s %-8s %-6s %-10s %s\n",
				"NAME", "TYPE", "STORED", "INDEXED", "MULTI", "DOCVALUES", "REQUIRED")
			for _, f := range catalog {
				fmt.Printf("%-16s %-14s %-7s %-8s %-6s %-10s %s\n",
					f.Name, f.Type,
					yesNo(f.Stored), yesNo(f.Indexed), yesNo(f.MultiValued), yesNo(f.DocValues), yesNo(f.Required))
			}
			fmt.Printf("\n%d fields\n", len(catalog))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print machine-readable field catalog JSON")
	return cmd
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "-"
}
