// Package provision implements the tenant provisioning workflow: a fixed
// six-step sequence that verifies SOLR connectivity, ensures a tenant
// configSet and collection, applies the metadata schema and validates the
// result, producing a structured per-step report.
package provision

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/conduction/solr-tenant-provision/internal/config"
	"github.com/conduction/solr-tenant-provision/internal/solr"
	"github.com/conduction/solr-tenant-provision/pkg/model"
)

// SolrAdmin is the admin API surface the provisioner consumes.
type SolrAdmin interface {
	CheckConnectivity(ctx context.Context) (bool, error)
	ListConfigSets(ctx context.Context) ([]string, error)
	UploadConfigSet(ctx context.Context, name string, archive []byte) error
	DeleteConfigSet(ctx context.Context, name string) error
	ListCollections(ctx context.Context) ([]string, error)
	CreateCollection(ctx context.Context, name, configSet string, numShards, replicationFactor int) error
	DeleteCollection(ctx context.Context, name string) error
	ClusterStatus(ctx context.Context) error
	AddField(ctx context.Context, collection string, field solr.Field) error
	ReplaceField(ctx context.Context, collection string, field solr.Field) error
	Query(ctx context.Context, collection string) error
}

// Options carries optional collaborators.
type Options struct {
	// CollectionExists lets a host with cheaper or cached knowledge answer
	// the collection existence probe instead of an admin LIST call.
	CollectionExists func(ctx context.Context, name string) (bool, error)
}

type Provisioner struct {
	cfg    config.Config
	logger *slog.Logger
	admin  SolrAdmin
	opts   Options
}

func New(cfg config.Config, logger *slog.Logger, admin SolrAdmin, opts Options) *Provisioner {
	return &Provisioner{cfg: cfg, logger: logger, admin: admin, opts: opts}
}

// NewSolrClient builds the admin client from a loaded provisioning config.
func NewSolrClient(cfg config.Config) *solr.Client {
	return solr.NewClient(solr.Config{
		Scheme:       cfg.Solr.Scheme,
		Host:         cfg.Solr.Host,
		Port:         cfg.Solr.Port,
		BasePath:     cfg.Solr.BasePath,
		Username:     cfg.Solr.Username,
		Password:     cfg.Solr.Password,
		ReadTimeout:  cfg.Timeouts.ReadDuration(),
		WriteTimeout: cfg.Timeouts.WriteDuration(),
	})
}

// TotalSteps is fixed; a run never gains or loses steps.
const TotalSteps = 6

type stepSpec struct {
	number int
	name   string
	desc   string
}

var stepTable = [TotalSteps]stepSpec{
	{1, "connectivity", "Verify SOLR admin API reachability"},
	{2, "configset", "Ensure tenant configSet exists"},
	{3, "propagation", "Trigger configSet propagation across nodes"},
	{4, "collection", "Ensure tenant collection exists"},
	{5, "schema_fields", "Apply metadata schema fields"},
	{6, "validation", "Validate provisioned tenant resources"},
}

// Test seams.
var (
	sleepFn    = sleepContext
	readFileFn = os.ReadFile
)

func sleepContext(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// ConfigSetName is the tenant-qualified configSet name for this run.
func (p *Provisioner) ConfigSetName() string {
	return TenantQualifiedName(p.cfg.ConfigSet.BaseName, p.cfg.Tenant.ID)
}

// CollectionName is the tenant-qualified collection name for this run.
func (p *Provisioner) CollectionName() string {
	return TenantQualifiedName(p.cfg.Collection.BaseName, p.cfg.Tenant.ID)
}

// Plan returns a run with every step registered as pending. Provision uses
// it as its initial checklist; the CLI renders it for --dry-run.
func (p *Provisioner) Plan() model.Run {
	now := time.Now().UTC()
	run := model.Run{
		ID:         uuid.NewString(),
		Tenant:     p.cfg.Tenant.ID,
		StartedAt:  now,
		TotalSteps: TotalSteps,
	}
	for _, spec := range stepTable {
		run.Steps = append(run.Steps, model.StepReport{
			Step:        spec.number,
			Name:        spec.name,
			Status:      model.StepStatusPending,
			Description: spec.desc,
			Timestamp:   now,
		})
	}
	return run
}

// Provision executes the full sequence. It never returns an error: every
// failure is normalized into the run's ErrorDetail and step reports.
// Concurrent runs against the same tenant are undefined; the caller
// serializes them.
func (p *Provisioner) Provision(ctx context.Context) (run model.Run) {
	run = p.Plan()
	run.StartedAt = time.Now().UTC()

	current := stepTable[0]
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("provisioning panicked", "tenant", run.Tenant, "step", current.name, "panic", fmt.Sprintf("%v", r))
			detail := &model.ErrorDetail{
				Kind:      model.ErrorKindGeneral,
				Operation: "provision",
				Step:      current.number,
				StepName:  current.name,
				Message:   fmt.Sprintf("unexpected failure during provisioning: %v", r),
			}
			p.markFailed(&run, current, nil, detail)
			p.finishRun(&run, detail)
		}
	}()

	p.logger.Info("tenant provisioning started",
		"tenant", run.Tenant,
		"configset", p.ConfigSetName(),
		"collection", p.CollectionName(),
	)

	stepFns := [TotalSteps]func(context.Context) (map[string]any, *model.ErrorDetail){
		p.stepConnectivity,
		p.stepConfigSet,
		p.stepPropagation,
		p.stepCollection,
		p.stepSchemaFields,
		p.stepValidation,
	}

	for i, spec := range stepTable {
		current = spec
		p.markStarted(&run, spec)
		details, detail := stepFns[i](ctx)
		if detail != nil {
			detail.Step = spec.number
			detail.StepName = spec.name
			p.markFailed(&run, spec, details, detail)
			if spec.number == 3 && !p.cfg.Provision.PropagationFailureIsFatal {
				// Propagation triggers are best-effort; the run advances and
				// the tolerated failure still counts as a completed step.
				p.logger.Warn("propagation triggers failed, continuing",
					"tenant", run.Tenant,
					"error", detail.Message,
				)
				run.CompletedSteps++
				continue
			}
			p.finishRun(&run, detail)
			return run
		}
		p.markCompleted(&run, spec, details)
		run.CompletedSteps++
	}

	run.Success = true
	p.finishRun(&run, nil)
	p.logger.Info("tenant provisioning completed",
		"tenant", run.Tenant,
		"duration", time.Since(run.StartedAt).String(),
	)
	return run
}

func (p *Provisioner) finishRun(run *model.Run, detail *model.ErrorDetail) {
	now := time.Now().UTC()
	run.CompletedAt = &now
	if detail != nil {
		run.Error = detail
	}
}

func (p *Provisioner) markStarted(run *model.Run, spec stepSpec) {
	p.logger.Info("step start",
		"step", fmt.Sprintf("[%d/%d]", spec.number, TotalSteps),
		"name", spec.name,
		"description", spec.desc,
	)
	run.SetStep(model.StepReport{
		Step:        spec.number,
		Name:        spec.name,
		Status:      model.StepStatusStarted,
		Description: spec.desc,
		Timestamp:   time.Now().UTC(),
	})
}

func (p *Provisioner) markCompleted(run *model.Run, spec stepSpec, details map[string]any) {
	p.logger.Info("step completed", "step", spec.number, "name", spec.name)
	run.SetStep(model.StepReport{
		Step:        spec.number,
		Name:        spec.name,
		Status:      model.StepStatusCompleted,
		Description: spec.desc,
		Timestamp:   time.Now().UTC(),
		Details:     details,
	})
}

func (p *Provisioner) markFailed(run *model.Run, spec stepSpec, details map[string]any, detail *model.ErrorDetail) {
	p.logger.Error("step failed",
		"step", spec.number,
		"name", spec.name,
		"kind", string(detail.Kind),
		"error", detail.Message,
	)
	if details == nil {
		details = map[string]any{}
	}
	details["failure"] = detail.Message
	run.SetStep(model.StepReport{
		Step:        spec.number,
		Name:        spec.name,
		Status:      model.StepStatusFailed,
		Description: spec.desc,
		Timestamp:   time.Now().UTC(),
		Details:     details,
	})
}

// Step 1: check-only probe, no side effects.
func (p *Provisioner) stepConnectivity(ctx context.Context) (map[string]any, *model.ErrorDetail) {
	details := map[string]any{
		"host": p.cfg.Solr.Host,
		"port": p.cfg.Solr.Port,
	}
	ok, err := p.admin.CheckConnectivity(ctx)
	if err != nil {
		return details, &model.ErrorDetail{
			Kind:      model.ErrorKindConnectivity,
			Operation: "check_connectivity",
			Message:   fmt.Sprintf("SOLR admin API is not reachable: %v", err),
			Context:   errorContext(err, "verify SOLR is running and solr.host/solr.port are correct"),
		}
	}
	if !ok {
		return details, &model.ErrorDetail{
			Kind:      model.ErrorKindConnectivity,
			Operation: "check_connectivity",
			Message:   "SOLR connectivity probe returned a negative result",
			Context:   errorContext(nil, "verify SOLR is running and solr.host/solr.port are correct"),
		}
	}
	return details, nil
}

// Step 2: ensure the tenant configSet, uploading the packaged archive when
// it does not exist yet. An existing configSet is reported as skipped; the
// propagation step still runs afterwards either way.
func (p *Provisioner) stepConfigSet(ctx context.Context) (map[string]any, *model.ErrorDetail) {
	name := p.ConfigSetName()
	details := map[string]any{"configset": name}

	sets, err := p.admin.ListConfigSets(ctx)
	if err != nil {
		return details, &model.ErrorDetail{
			Kind:      model.ErrorKindConfigSetCreation,
			Reason:    classifyConfigSetError(err),
			Operation: "list_configsets",
			Message:   fmt.Sprintf("listing configSets failed: %v", err),
			Context:   errorContext(err, "verify the configs admin endpoint is enabled"),
		}
	}
	if slices.Contains(sets, name) {
		p.logger.Info("configset already exists", "configset", name)
		details["action"] = "skipped"
		return details, nil
	}

	archive, err := readFileFn(p.cfg.ConfigSet.ArchivePath)
	if err != nil {
		return details, &model.ErrorDetail{
			Kind:      model.ErrorKindConfigSetCreation,
			Reason:    ReasonArchiveUnreadable,
			Operation: "read_configset_archive",
			Message:   fmt.Sprintf("configSet archive could not be read: %v", err),
			Context: map[string]any{
				"error":        err.Error(),
				"archive_path": p.cfg.ConfigSet.ArchivePath,
				"hint":         "verify the packaged configSet archive exists and is readable",
			},
		}
	}

	if err := p.admin.UploadConfigSet(ctx, name, archive); err != nil {
		return details, &model.ErrorDetail{
			Kind:      model.ErrorKindConfigSetCreation,
			Reason:    classifyConfigSetError(err),
			Operation: "upload_configset",
			Message:   fmt.Sprintf("uploading configSet %q failed: %v", name, err),
			Context:   errorContext(err, "verify the archive is a valid configSet zip and uploads are permitted"),
		}
	}
	p.logger.Info("configset uploaded", "configset", name, "archive_bytes", len(archive))
	details["action"] = "created"
	details["archive_bytes"] = len(archive)
	return details, nil
}

// Step 3: two independent best-effort reads that nudge the receiving node
// into refreshing its ZooKeeper-backed state, followed by a short pause.
func (p *Provisioner) stepPropagation(ctx context.Context) (map[string]any, *model.ErrorDetail) {
	succeeded := 0
	if _, err := p.admin.ListConfigSets(ctx); err != nil {
		p.logger.Debug("configs list propagation trigger failed", "error", err)
	} else {
		succeeded++
	}
	if err := p.admin.ClusterStatus(ctx); err != nil {
		p.logger.Debug("cluster status propagation trigger failed", "error", err)
	} else {
		succeeded++
	}

	details := map[string]any{
		"triggers_attempted": 2,
		"triggers_succeeded": succeeded,
	}
	if succeeded == 0 {
		return details, &model.ErrorDetail{
			Kind:      model.ErrorKindGeneral,
			Reason:    ReasonNetwork,
			Operation: "force_propagation",
			Message:   "both propagation triggers failed",
			Context:   errorContext(nil, "check ZooKeeper coordination between SOLR nodes"),
		}
	}

	if pause := p.cfg.Provision.PropagationPauseDuration(); pause > 0 {
		_ = sleepFn(ctx, pause)
		details["pause"] = pause.String()
	}
	return details, nil
}

// Step 4: ensure the tenant collection, retrying creation with bounded
// exponential backoff only while the failure looks like a configSet
// propagation delay. Everything else fails immediately.
func (p *Provisioner) stepCollection(ctx context.Context) (map[string]any, *model.ErrorDetail) {
	name := p.CollectionName()
	configSet := p.ConfigSetName()
	details := map[string]any{
		"collection": name,
		"configset":  configSet,
	}

	exists, err := p.collectionExists(ctx, name)
	if err != nil {
		return details, &model.ErrorDetail{
			Kind:      model.ErrorKindCollectionCreation,
			Reason:    classifyCollectionError(err),
			Operation: "list_collections",
			Message:   fmt.Sprintf("listing collections failed: %v", err),
			Context:   errorContext(err, "verify the collections admin endpoint is reachable"),
		}
	}
	if exists {
		p.logger.Info("collection already exists", "collection", name)
		details["action"] = "skipped"
		return details, nil
	}

	maxAttempts := p.cfg.Provision.CreateRetries
	baseDelay := p.cfg.Provision.CreateRetryBaseDuration()
	started := time.Now()
	delays := make([]string, 0, maxAttempts)
	attempts := 0
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		attempts = attempt
		lastErr = p.admin.CreateCollection(ctx, name, configSet, p.cfg.Collection.NumShards, p.cfg.Collection.ReplicationFactor)
		if lastErr == nil {
			break
		}
		if !isPropagationError(lastErr) {
			errCtx := errorContext(lastErr, "inspect the SOLR error message; the request itself was rejected")
			errCtx["attempts"] = attempts
			return details, &model.ErrorDetail{
				Kind:      model.ErrorKindCollectionCreation,
				Reason:    classifyCollectionError(lastErr),
				Operation: "create_collection",
				Message:   fmt.Sprintf("creating collection %q failed: %v", name, lastErr),
				Context:   errCtx,
			}
		}
		if attempt == maxAttempts {
			break
		}
		delay := baseDelay << (attempt - 1)
		delays = append(delays, delay.String())
		p.logger.Warn("configset not yet visible, retrying collection create",
			"collection", name,
			"attempt", attempt,
			"delay", delay.String(),
		)
		if err := sleepFn(ctx, delay); err != nil {
			lastErr = err
			break
		}
	}

	if lastErr != nil {
		return details, &model.ErrorDetail{
			Kind:      model.ErrorKindCollectionCreation,
			Reason:    ReasonPropagationTimeout,
			Operation: "create_collection",
			Message:   fmt.Sprintf("collection %q was not created after %d attempts: %v", name, attempts, lastErr),
			Context: map[string]any{
				"error":     lastErr.Error(),
				"attempts":  attempts,
				"delays":    delays,
				"elapsed":   time.Since(started).String(),
				"configset": configSet,
				"hint":      "check ZooKeeper coordination; the configSet never became visible to the cluster",
			},
		}
	}

	p.logger.Info("collection created", "collection", name, "attempts", attempts)
	details["action"] = "created"
	details["attempts"] = attempts
	return details, nil
}

// Step 5: apply every catalog field. A field that already exists is
// replaced; a field failing both add and replace is recorded but does not
// stop the loop. The step fails if any field failed.
func (p *Provisioner) stepSchemaFields(ctx context.Context) (map[string]any, *model.ErrorDetail) {
	collection := p.CollectionName()
	catalog := FieldCatalog()

	added := []string{}
	replaced := []string{}
	failed := []string{}
	fieldErrors := map[string]string{}

	for _, field := range catalog {
		err := p.admin.AddField(ctx, collection, field)
		if err == nil {
			added = append(added, field.Name)
			continue
		}
		if isAlreadyExistsError(err) {
			if rerr := p.admin.ReplaceField(ctx, collection, field); rerr == nil {
				replaced = append(replaced, field.Name)
				continue
			} else {
				err = rerr
			}
		}
		failed = append(failed, field.Name)
		fieldErrors[field.Name] = err.Error()
		p.logger.Error("schema field could not be applied", "field", field.Name, "error", err)
	}

	details := map[string]any{
		"collection":    collection,
		"total_fields":  len(catalog),
		"added":         added,
		"replaced":      replaced,
		"failed_fields": failed,
	}
	if len(failed) > 0 {
		return details, &model.ErrorDetail{
			Kind:      model.ErrorKindSchemaField,
			Operation: "apply_schema_fields",
			Message:   fmt.Sprintf("%d of %d schema fields could not be added or replaced", len(failed), len(catalog)),
			Context: map[string]any{
				"failed_fields": failed,
				"field_errors":  fieldErrors,
				"hint":          "inspect per-field errors; the collection schema may be immutable or the field types missing",
			},
		}
	}
	p.logger.Info("schema fields applied",
		"collection", collection,
		"added", len(added),
		"replaced", len(replaced),
	)
	return details, nil
}

// Step 6: all three checks must pass.
func (p *Provisioner) stepValidation(ctx context.Context) (map[string]any, *model.ErrorDetail) {
	res, err := p.Validate(ctx)
	details := map[string]any{
		"configset":         res.ConfigSet,
		"collection":        res.Collection,
		"configset_exists":  res.ConfigSetExists,
		"collection_exists": res.CollectionExists,
		"query_ok":          res.QueryOK,
	}
	if err != nil {
		return details, &model.ErrorDetail{
			Kind:      model.ErrorKindValidation,
			Operation: "validate",
			Message:   fmt.Sprintf("post-provisioning validation failed: %v", err),
			Context:   errorContext(err, "re-run provisioning; it is safe to repeat"),
		}
	}
	if !res.OK() {
		return details, &model.ErrorDetail{
			Kind:      model.ErrorKindValidation,
			Operation: "validate",
			Message:   "post-provisioning checks did not all pass",
			Context: map[string]any{
				"configset_exists":  res.ConfigSetExists,
				"collection_exists": res.CollectionExists,
				"query_ok":          res.QueryOK,
				"hint":              "verify the configSet and collection exist and the collection answers queries",
			},
		}
	}
	return details, nil
}

// ValidationResult holds the three post-provisioning checks.
type ValidationResult struct {
	ConfigSet        string `json:"configset"`
	Collection       string `json:"collection"`
	ConfigSetExists  bool   `json:"configset_exists"`
	CollectionExists bool   `json:"collection_exists"`
	QueryOK          bool   `json:"query_ok"`
}

func (v ValidationResult) OK() bool {
	return v.ConfigSetExists && v.CollectionExists && v.QueryOK
}

// Validate re-checks configSet existence, collection existence and
// queryability without mutating anything.
func (p *Provisioner) Validate(ctx context.Context) (ValidationResult, error) {
	res := ValidationResult{
		ConfigSet:  p.ConfigSetName(),
		Collection: p.CollectionName(),
	}

	sets, err := p.admin.ListConfigSets(ctx)
	if err != nil {
		return res, fmt.Errorf("list configsets: %w", err)
	}
	res.ConfigSetExists = slices.Contains(sets, res.ConfigSet)

	exists, err := p.collectionExists(ctx, res.Collection)
	if err != nil {
		return res, fmt.Errorf("check collection %s: %w", res.Collection, err)
	}
	res.CollectionExists = exists

	if err := p.admin.Query(ctx, res.Collection); err != nil {
		return res, fmt.Errorf("query collection %s: %w", res.Collection, err)
	}
	res.QueryOK = true
	return res, nil
}

// Teardown deletes the tenant collection and configSet. It is an explicit
// operator action, not a rollback; a failed run is meant to be re-run, not
// torn down. The shared default configSet is never deleted.
func (p *Provisioner) Teardown(ctx context.Context) error {
	collection := p.CollectionName()
	exists, err := p.collectionExists(ctx, collection)
	if err != nil {
		return fmt.Errorf("check collection %s: %w", collection, err)
	}
	if exists {
		if err := p.admin.DeleteCollection(ctx, collection); err != nil {
			return fmt.Errorf("delete collection %s: %w", collection, err)
		}
		p.logger.Info("collection deleted", "collection", collection)
	}

	configSet := p.ConfigSetName()
	if configSet == config.DefaultConfigSetName {
		return nil
	}
	sets, err := p.admin.ListConfigSets(ctx)
	if err != nil {
		return fmt.Errorf("list configsets: %w", err)
	}
	if slices.Contains(sets, configSet) {
		if err := p.admin.DeleteConfigSet(ctx, configSet); err != nil {
			return fmt.Errorf("delete configset %s: %w", configSet, err)
		}
		p.logger.Info("configset deleted", "configset", configSet)
	}
	return nil
}

func (p *Provisioner) collectionExists(ctx context.Context, name string) (bool, error) {
	if p.opts.CollectionExists != nil {
		return p.opts.CollectionExists(ctx, name)
	}
	collections, err := p.admin.ListCollections(ctx)
	if err != nil {
		return false, err
	}
	return slices.Contains(collections, name), nil
}
