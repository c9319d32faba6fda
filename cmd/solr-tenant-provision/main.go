package main

import (
	"os"

	"github.com/conduction/solr-tenant-provision/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
