package workflow

import (
	"context"
	"log/slog"

	"github.com/conduction/solr-tenant-provision/internal/config"
	"github.com/conduction/solr-tenant-provision/internal/provision"
	"github.com/conduction/solr-tenant-provision/pkg/model"
)

// ProvisionOptions controls orchestrated execution behavior.
type ProvisionOptions struct {
	// DryRun returns the planned step checklist without touching SOLR.
	DryRun bool
}

var provisionRunFn = func(ctx context.Context, p *provision.Provisioner) model.Run {
	return p.Provision(ctx)
}

// ProvisionFromDescriptor executes the integrated workflow:
// tenant descriptor -> merge into base config -> provisioning run.
func ProvisionFromDescriptor(
	ctx context.Context,
	logger *slog.Logger,
	base config.Config,
	descriptor TenantDescriptor,
	opts ProvisionOptions,
) (model.Run, error) {
	merged, err := MergeDescriptorIntoConfig(base, descriptor)
	if err != nil {
		return model.Run{}, err
	}

	logger.Info("workflow merged tenant descriptor into base config",
		"tenant", descriptor.TenantID,
		"solr_host", merged.Solr.Host,
		"collection_base", merged.Collection.BaseName,
	)

	p := provision.New(merged, logger, provision.NewSolrClient(merged), provision.Options{})
	if opts.DryRun {
		return p.Plan(), nil
	}
	return provisionRunFn(ctx, p), nil
}
