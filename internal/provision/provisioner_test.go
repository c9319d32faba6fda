package provision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/conduction/solr-tenant-provision/internal/config"
	"github.com/conduction/solr-tenant-provision/internal/solr"
	"github.com/conduction/solr-tenant-provision/pkg/model"
)

// fakeAdmin implements SolrAdmin with overridable behaviors. The zero value
// behaves like a healthy, empty SolrCloud.
type fakeAdmin struct {
	configSets  []string
	collections []string

	checkConnectivityFn func(ctx context.Context) (bool, error)
	uploadConfigSetFn   func(ctx context.Context, name string, archive []byte) error
	createCollectionFn  func(ctx context.Context, name, configSet string, numShards, replicationFactor int) error
	clusterStatusFn     func(ctx context.Context) error
	addFieldFn          func(ctx context.Context, collection string, field solr.Field) error
	replaceFieldFn      func(ctx context.Context, collection string, field solr.Field) error
	queryFn             func(ctx context.Context, collection string) error

	uploads []string
	creates []string
}

func (f *fakeAdmin) CheckConnectivity(ctx context.Context) (bool, error) {
	if f.checkConnectivityFn != nil {
		return f.checkConnectivityFn(ctx)
	}
	return true, nil
}

func (f *fakeAdmin) ListConfigSets(_ context.Context) ([]string, error) {
	return append([]string(nil), f.configSets...), nil
}

func (f *fakeAdmin) UploadConfigSet(ctx context.Context, name string, archive []byte) error {
	if f.uploadConfigSetFn != nil {
		if err := f.uploadConfigSetFn(ctx, name, archive); err != nil {
			return err
		}
	}
	f.uploads = append(f.uploads, name)
	f.configSets = append(f.configSets, name)
	return nil
}

func (f *fakeAdmin) DeleteConfigSet(_ context.Context, name string) error {
	out := f.configSets[:0]
	for _, s := range f.configSets {
		if s != name {
			out = append(out, s)
		}
	}
	f.configSets = out
	return nil
}

func (f *fakeAdmin) ListCollections(_ context.Context) ([]string, error) {
	return append([]string(nil), f.collections...), nil
}

func (f *fakeAdmin) CreateCollection(ctx context.Context, name, configSet string, numShards, replicationFactor int) error {
	if f.createCollectionFn != nil {
		if err := f.createCollectionFn(ctx, name, configSet, numShards, replicationFactor); err != nil {
			return err
		}
	}
	f.creates = append(f.creates, name)
	f.collections = append(f.collections, name)
	return nil
}

func (f *fakeAdmin) DeleteCollection(_ context.Context, name string) error {
	out := f.collections[:0]
	for _, c := range f.collections {
		if c != name {
			out = append(out, c)
		}
	}
	f.collections = out
	return nil
}

func (f *fakeAdmin) ClusterStatus(ctx context.Context) error {
	if f.clusterStatusFn != nil {
		return f.clusterStatusFn(ctx)
	}
	return nil
}

func (f *fakeAdmin) AddField(ctx context.Context, collection string, field solr.Field) error {
	if f.addFieldFn != nil {
		return f.addFieldFn(ctx, collection, field)
	}
	return nil
}

func (f *fakeAdmin) ReplaceField(ctx context.Context, collection string, field solr.Field) error {
	if f.replaceFieldFn != nil {
		return f.replaceFieldFn(ctx, collection, field)
	}
	return nil
}

func (f *fakeAdmin) Query(ctx context.Context, collection string) error {
	if f.queryFn != nil {
		return f.queryFn(ctx, collection)
	}
	return nil
}

func testConfig() config.Config {
	return config.Config{
		Solr: config.SolrConfig{
			Scheme:   "http",
			Host:     "localhost",
			Port:     8983,
			BasePath: "/solr",
		},
		Tenant: config.TenantConfig{ID: "nc_ab12"},
		ConfigSet: config.ConfigSetConfig{
			BaseName:    "openregister",
			ArchivePath: "testdata/configset.zip",
		},
		Collection: config.CollectionConfig{
			BaseName:          "openregister",
			NumShards:         1,
			ReplicationFactor: 1,
		},
		Provision: config.ProvisionConfig{
			CreateRetries:           6,
			CreateRetryBaseSeconds:  2,
			PropagationPauseSeconds: 1,
		},
		Timeouts: config.TimeoutsConfig{ReadSeconds: 10, WriteSeconds: 30},
	}
}

func newTestProvisioner(t *testing.T, cfg config.Config, admin SolrAdmin) *Provisioner {
	t.Helper()

	origSleep := sleepFn
	origRead := readFileFn
	t.Cleanup(func() {
		sleepFn = origSleep
		readFileFn = origRead
	})
	sleepFn = func(context.Context, time.Duration) error { return nil }
	readFileFn = func(string) ([]byte, error) { return []byte("zip-archive"), nil }

	return New(cfg, slog.Default(), admin, Options{})
}

func TestProvisionFullRunSucceeds(t *testing.T) {
	admin := &fakeAdmin{}
	p := newTestProvisioner(t, testConfig(), admin)

	run := p.Provision(context.Background())

	if !run.Success {
		t.Fatalf("run failed: %+v", run.Error)
	}
	if run.CompletedSteps != TotalSteps {
		t.Fatalf("completed steps = %d, want %d", run.CompletedSteps, TotalSteps)
	}
	if run.CompletedAt == nil {
		t.Fatalf("expected completed_at to be set")
	}
	if run.ID == "" || run.Tenant != "nc_ab12" {
		t.Fatalf("unexpected run identity: id=%q tenant=%q", run.ID, run.Tenant)
	}
	for _, step := range run.Steps {
		if step.Status != model.StepStatusCompleted {
			t.Fatalf("step %d (%s) status = %s, want completed", step.Step, step.Name, step.Status)
		}
	}
	if len(admin.uploads) != 1 || admin.uploads[0] != "openregister_nc_ab12" {
		t.Fatalf("unexpected uploads: %v", admin.uploads)
	}
	if len(admin.creates) != 1 || admin.creates[0] != "openregister_nc_ab12" {
		t.Fatalf("unexpected creates: %v", admin.creates)
	}
	cs := run.StepByNumber(2)
	if cs == nil || cs.Details["action"] != "created" {
		t.Fatalf("configset step details = %+v", cs)
	}
}

func TestProvisionIsIdempotent(t *testing.T) {
	admin := &fakeAdmin{}
	p := newTestProvisioner(t, testConfig(), admin)

	first := p.Provision(context.Background())
	if !first.Success {
		t.Fatalf("first run failed: %+v", first.Error)
	}
	second := p.Provision(context.Background())
	if !second.Success {
		t.Fatalf("second run failed: %+v", second.Error)
	}

	if len(admin.uploads) != 1 {
		t.Fatalf("configset uploaded %d times, want 1", len(admin.uploads))
	}
	if len(admin.creates) != 1 {
		t.Fatalf("collection created %d times, want 1", len(admin.creates))
	}
	if got := second.StepByNumber(2).Details["action"]; got != "skipped" {
		t.Fatalf("second run configset action = %v, want skipped", got)
	}
	if got := second.StepByNumber(4).Details["action"]; got != "skipped" {
		t.Fatalf("second run collection action = %v, want skipped", got)
	}
}

func TestProvisionDefaultConfigSetSkipsUpload(t *testing.T) {
	cfg := testConfig()
	cfg.ConfigSet.BaseName = config.DefaultConfigSetName
	admin := &fakeAdmin{configSets: []string{"_default"}}
	p := newTestProvisioner(t, cfg, admin)

	if p.ConfigSetName() != "_default" {
		t.Fatalf("default configset name was tenant-suffixed: %q", p.ConfigSetName())
	}

	run := p.Provision(context.Background())
	if !run.Success {
		t.Fatalf("run failed: %+v", run.Error)
	}
	if len(admin.uploads) != 0 {
		t.Fatalf("default configset must never be uploaded, got %v", admin.uploads)
	}
}

func TestProvisionConnectivityFailureAbortsRun(t *testing.T) {
	admin := &fakeAdmin{
		checkConnectivityFn: func(context.Context) (bool, error) {
			return false, &solr.TransportError{URL: "http://localhost:8983/solr", Err: errors.New("connection refused")}
		},
	}
	p := newTestProvisioner(t, testConfig(), admin)

	run := p.Provision(context.Background())
	if run.Success {
		t.Fatalf("expected run to fail")
	}
	if run.CompletedSteps != 0 {
		t.Fatalf("completed steps = %d, want 0", run.CompletedSteps)
	}
	if run.Error == nil || run.Error.Kind != model.ErrorKindConnectivity {
		t.Fatalf("error = %+v, want connectivity kind", run.Error)
	}
	if run.Error.Step != 1 || run.Error.StepName != "connectivity" {
		t.Fatalf("error step = %d/%s", run.Error.Step, run.Error.StepName)
	}
	// Remaining steps stay registered as pending.
	for _, n := range []int{2, 3, 4, 5, 6} {
		if got := run.StepByNumber(n).Status; got != model.StepStatusPending {
			t.Fatalf("step %d status = %s, want pending", n, got)
		}
	}
}

func TestProvisionArchiveUnreadableFailsConfigSetStep(t *testing.T) {
	admin := &fakeAdmin{}
	p := newTestProvisioner(t, testConfig(), admin)
	readFileFn = func(string) ([]byte, error) { return nil, errors.New("no such file") }

	run := p.Provision(context.Background())
	if run.Success {
		t.Fatalf("expected run to fail")
	}
	if run.Error.Kind != model.ErrorKindConfigSetCreation || run.Error.Reason != ReasonArchiveUnreadable {
		t.Fatalf("error = kind %s reason %s", run.Error.Kind, run.Error.Reason)
	}
	if run.Error.Context["archive_path"] != "testdata/configset.zip" {
		t.Fatalf("error context missing archive path: %+v", run.Error.Context)
	}
}

func TestProvisionToleratesPropagationTriggerFailure(t *testing.T) {
	boom := errors.New("cluster status unavailable")
	admin := &fakeAdmin{clusterStatusFn: func(context.Context) error { return boom }}
	p := newTestProvisioner(t, testConfig(), admin)

	run := p.Provision(context.Background())

	// One of two triggers succeeded, so the step completes normally.
	if !run.Success {
		t.Fatalf("run failed: %+v", run.Error)
	}
	if got := run.StepByNumber(3).Details["triggers_succeeded"]; got != 1 {
		t.Fatalf("triggers_succeeded = %v, want 1", got)
	}
}

// listFailingAdmin makes ListConfigSets fail so that both propagation
// triggers fail while the earlier configset step can still pass.
type listFailingAdmin struct {
	fakeAdmin
	failList bool
}

func (f *listFailingAdmin) ListConfigSets(ctx context.Context) ([]string, error) {
	if f.failList {
		return nil, errors.New("zookeeper unavailable")
	}
	return f.fakeAdmin.ListConfigSets(ctx)
}

func TestProvisionContinuesWhenBothPropagationTriggersFail(t *testing.T) {
	admin := &listFailingAdmin{}
	admin.clusterStatusFn = func(context.Context) error { return errors.New("down") }
	cfg := testConfig()
	p := newTestProvisioner(t, cfg, admin)

	// Fail the LIST calls only from step 3 onward.
	admin.queryFn = func(context.Context, string) error { return nil }
	origRead := readFileFn
	readFileFn = func(path string) ([]byte, error) {
		// By the time the archive is read, step 2 is done; arm the failure
		// for the propagation triggers but disarm it again before step 6.
		admin.failList = true
		return origRead(path)
	}

	run := p.Provision(context.Background())
	if run.Success {
		// Step 6 validation also lists configsets, so the run cannot fully
		// succeed here; what matters is that step 3 did not abort it.
		t.Fatalf("expected validation failure, got success")
	}
	prop := run.StepByNumber(3)
	if prop.Status != model.StepStatusFailed {
		t.Fatalf("propagation step status = %s, want failed", prop.Status)
	}
	if run.Error.Step == 3 {
		t.Fatalf("tolerated propagation failure must not become the run error")
	}
	if got := run.StepByNumber(4).Status; got == model.StepStatusPending {
		t.Fatalf("collection step never ran after tolerated propagation failure")
	}
}

func TestProvisionPropagationFailureFatalFlag(t *testing.T) {
	cfg := testConfig()
	cfg.Provision.PropagationFailureIsFatal = true
	admin := &listFailingAdmin{}
	admin.clusterStatusFn = func(context.Context) error { return errors.New("down") }
	p := newTestProvisioner(t, cfg, admin)
	origRead := readFileFn
	readFileFn = func(path string) ([]byte, error) {
		admin.failList = true
		return origRead(path)
	}

	run := p.Provision(context.Background())
	if run.Success {
		t.Fatalf("expected run to fail")
	}
	if run.Error == nil || run.Error.Step != 3 {
		t.Fatalf("error = %+v, want step 3 failure", run.Error)
	}
	if got := run.StepByNumber(4).Status; got != model.StepStatusPending {
		t.Fatalf("collection step status = %s, want pending after fatal propagation failure", got)
	}
}

func TestProvisionRetriesCollectionCreateOnPropagationError(t *testing.T) {
	attempts := 0
	admin := &fakeAdmin{
		createCollectionFn: func(context.Context, string, string, int, int) error {
			attempts++
			if attempts < 3 {
				return &solr.APIError{HTTPStatus: 400, Code: 400, Msg: "Can not find the specified config set: openregister_nc_ab12"}
			}
			return nil
		},
	}
	p := newTestProvisioner(t, testConfig(), admin)

	var delays []time.Duration
	sleepFn = func(_ context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}

	run := p.Provision(context.Background())
	if !run.Success {
		t.Fatalf("run failed: %+v", run.Error)
	}
	if attempts != 3 {
		t.Fatalf("create attempts = %d, want 3", attempts)
	}
	// First delay is the post-trigger pause, then backoff 2s, 4s.
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}
	if len(delays) != len(want) {
		t.Fatalf("delays = %v, want %v", delays, want)
	}
	for i := range want {
		if delays[i] != want[i] {
			t.Fatalf("delay[%d] = %v, want %v", i, delays[i], want[i])
		}
	}
	if got := run.StepByNumber(4).Details["attempts"]; got != 3 {
		t.Fatalf("collection step attempts = %v, want 3", got)
	}
}

func TestProvisionCollectionRetryExhaustionReportsTimeout(t *testing.T) {
	attempts := 0
	admin := &fakeAdmin{
		createCollectionFn: func(context.Context, string, string, int, int) error {
			attempts++
			return &solr.APIError{HTTPStatus: 400, Code: 400, Msg: "ConfigSet does not exist: openregister_nc_ab12"}
		},
	}
	p := newTestProvisioner(t, testConfig(), admin)

	var delays []time.Duration
	sleepFn = func(_ context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}

	run := p.Provision(context.Background())
	if run.Success {
		t.Fatalf("expected run to fail")
	}
	if attempts != 6 {
		t.Fatalf("create attempts = %d, want 6", attempts)
	}
	// Post-trigger pause plus backoff 2,4,8,16,32 (no sleep after the last attempt).
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second, 16 * time.Second, 32 * time.Second}
	if fmt.Sprint(delays) != fmt.Sprint(want) {
		t.Fatalf("delays = %v, want %v", delays, want)
	}
	if run.Error.Kind != model.ErrorKindCollectionCreation || run.Error.Reason != ReasonPropagationTimeout {
		t.Fatalf("error = kind %s reason %s", run.Error.Kind, run.Error.Reason)
	}
	if run.Error.Context["attempts"] != 6 {
		t.Fatalf("error context attempts = %v, want 6", run.Error.Context["attempts"])
	}
}

func TestProvisionCollectionNonPropagationErrorFailsImmediately(t *testing.T) {
	attempts := 0
	admin := &fakeAdmin{
		createCollectionFn: func(context.Context, string, string, int, int) error {
			attempts++
			return &solr.APIError{HTTPStatus: 400, Code: 400, Msg: "Invalid collection: collection names must consist entirely of..."}
		},
	}
	p := newTestProvisioner(t, testConfig(), admin)

	run := p.Provision(context.Background())
	if run.Success {
		t.Fatalf("expected run to fail")
	}
	if attempts != 1 {
		t.Fatalf("create attempts = %d, want 1 (no retry on validation errors)", attempts)
	}
	if run.Error.Reason != ReasonSolrValidation {
		t.Fatalf("error reason = %s, want %s", run.Error.Reason, ReasonSolrValidation)
	}
}

func TestProvisionSchemaFieldAddThenReplaceFallback(t *testing.T) {
	replaced := []string{}
	admin := &fakeAdmin{
		addFieldFn: func(_ context.Context, _ string, field solr.Field) error {
			if field.Name == "uuid" || field.Name == "created" {
				return &solr.APIError{HTTPStatus: 400, Code: 400, Msg: fmt.Sprintf("Field '%s' already exists.", field.Name)}
			}
			return nil
		},
		replaceFieldFn: func(_ context.Context, _ string, field solr.Field) error {
			replaced = append(replaced, field.Name)
			return nil
		},
	}
	p := newTestProvisioner(t, testConfig(), admin)

	run := p.Provision(context.Background())
	if !run.Success {
		t.Fatalf("run failed: %+v", run.Error)
	}
	if len(replaced) != 2 {
		t.Fatalf("replaced fields = %v, want uuid and created", replaced)
	}
	details := run.StepByNumber(5).Details
	if got := len(details["replaced"].([]string)); got != 2 {
		t.Fatalf("step details replaced = %v", details["replaced"])
	}
	if got := len(details["failed_fields"].([]string)); got != 0 {
		t.Fatalf("step details failed_fields = %v", details["failed_fields"])
	}
}

func TestProvisionSchemaFieldHardFailureRecordsPerFieldErrors(t *testing.T) {
	admin := &fakeAdmin{
		addFieldFn: func(_ context.Context, _ string, field solr.Field) error {
			if field.Name == "tags" {
				return &solr.APIError{HTTPStatus: 400, Code: 400, Msg: "unknown field type"}
			}
			return nil
		},
	}
	p := newTestProvisioner(t, testConfig(), admin)

	run := p.Provision(context.Background())
	if run.Success {
		t.Fatalf("expected run to fail")
	}
	if run.Error.Kind != model.ErrorKindSchemaField || run.Error.Step != 5 {
		t.Fatalf("error = %+v", run.Error)
	}
	fieldErrors, ok := run.Error.Context["field_errors"].(map[string]string)
	if !ok || fieldErrors["tags"] == "" {
		t.Fatalf("field_errors missing tags entry: %+v", run.Error.Context)
	}
	details := run.StepByNumber(5).Details
	failed := details["failed_fields"].([]string)
	if len(failed) != 1 || failed[0] != "tags" {
		t.Fatalf("failed_fields = %v, want [tags]", failed)
	}
}

func TestProvisionValidationFailureWhenQueryFails(t *testing.T) {
	admin := &fakeAdmin{
		queryFn: func(context.Context, string) error {
			return &solr.HTTPError{StatusCode: 404, Body: "collection not found"}
		},
	}
	p := newTestProvisioner(t, testConfig(), admin)

	run := p.Provision(context.Background())
	if run.Success {
		t.Fatalf("expected run to fail")
	}
	if run.Error.Kind != model.ErrorKindValidation || run.Error.Step != 6 {
		t.Fatalf("error = %+v", run.Error)
	}
	if run.CompletedSteps != 5 {
		t.Fatalf("completed steps = %d, want 5", run.CompletedSteps)
	}
}

func TestValidateReportsAllChecks(t *testing.T) {
	admin := &fakeAdmin{
		configSets:  []string{"openregister_nc_ab12"},
		collections: []string{"openregister_nc_ab12"},
	}
	p := newTestProvisioner(t, testConfig(), admin)

	res, err := p.Validate(context.Background())
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if !res.OK() {
		t.Fatalf("expected all checks to pass: %+v", res)
	}
	if res.ConfigSet != "openregister_nc_ab12" || res.Collection != "openregister_nc_ab12" {
		t.Fatalf("unexpected names: %+v", res)
	}
}

func TestTeardownDeletesTenantResources(t *testing.T) {
	admin := &fakeAdmin{
		configSets:  []string{"openregister_nc_ab12", "_default"},
		collections: []string{"openregister_nc_ab12"},
	}
	p := newTestProvisioner(t, testConfig(), admin)

	if err := p.Teardown(context.Background()); err != nil {
		t.Fatalf("Teardown failed: %v", err)
	}
	if len(admin.collections) != 0 {
		t.Fatalf("collections not removed: %v", admin.collections)
	}
	if len(admin.configSets) != 1 || admin.configSets[0] != "_default" {
		t.Fatalf("configsets after teardown = %v", admin.configSets)
	}
}

func TestTeardownNeverDeletesDefaultConfigSet(t *testing.T) {
	cfg := testConfig()
	cfg.ConfigSet.BaseName = config.DefaultConfigSetName
	admin := &fakeAdmin{configSets: []string{"_default"}}
	p := newTestProvisioner(t, cfg, admin)

	if err := p.Teardown(context.Background()); err != nil {
		t.Fatalf("Teardown failed: %v", err)
	}
	if len(admin.configSets) != 1 {
		t.Fatalf("default configset was deleted")
	}
}

func TestPlanRegistersAllStepsPending(t *testing.T) {
	p := newTestProvisioner(t, testConfig(), &fakeAdmin{})
	run := p.Plan()

	if run.TotalSteps != TotalSteps || len(run.Steps) != TotalSteps {
		t.Fatalf("plan has %d steps, want %d", len(run.Steps), TotalSteps)
	}
	for i, step := range run.Steps {
		if step.Step != i+1 {
			t.Fatalf("step numbering broken at index %d: %d", i, step.Step)
		}
		if step.Status != model.StepStatusPending {
			t.Fatalf("step %d status = %s, want pending", step.Step, step.Status)
		}
	}
}

// panickyAdmin triggers the recover path in Provision.
type panickyAdmin struct {
	fakeAdmin
}

func (p *panickyAdmin) UploadConfigSet(context.Context, string, []byte) error {
	panic("upload exploded")
}

func TestProvisionRecoversFromPanic(t *testing.T) {
	p := newTestProvisioner(t, testConfig(), &panickyAdmin{})

	run := p.Provision(context.Background())
	if run.Success {
		t.Fatalf("expected run to fail")
	}
	if run.Error == nil || run.Error.Kind != model.ErrorKindGeneral {
		t.Fatalf("error = %+v, want general failure", run.Error)
	}
	if run.CompletedAt == nil {
		t.Fatalf("run not finalized after panic")
	}
}
