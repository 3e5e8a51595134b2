package healing

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/gw37/ej-esu/internal/config"
	"github.com/gw37/ej-esu/internal/esu"
	"github.com/gw37/ej-esu/internal/inventory"
	"github.com/gw37/ej-esu/internal/logger"
	"github.com/gw37/ej-esu/internal/platform"
)

func init() {
	logger.InitTestEnv()
}

const (
	year1ID = "f520e45e-7413-4a34-a497-d2765967d094"
	year2ID = "1043add5-23b1-4afb-9a0f-64343c8f3f8d"

	year1Key = "N69G4-B89J2-4G8F4-WWYCC-J464C"
	year2Key = "2RG93-6XVFJ-RKHQ7-D2RTT-3FMQT"
)

type fakeSource struct {
	snapshots [][]esu.Product
	errs      []error
	calls     int
}

func (f *fakeSource) Products(ctx context.Context) ([]esu.Product, error) {
	idx := f.calls
	f.calls++

	if idx < len(f.errs) && f.errs[idx] != nil {
		return nil, f.errs[idx]
	}
	if idx < len(f.snapshots) {
		return f.snapshots[idx], nil
	}
	if len(f.snapshots) > 0 {
		return f.snapshots[len(f.snapshots)-1], nil
	}
	return nil, nil
}

type fakeTool struct {
	installs    []string
	activates   []string
	installErr  error
	activateErr error
}

func (f *fakeTool) InstallKey(ctx context.Context, key string) (string, error) {
	f.installs = append(f.installs, key)
	return "Installed product key " + key + " successfully.", f.installErr
}

func (f *fakeTool) Activate(ctx context.Context, activationID string) (string, error) {
	f.activates = append(f.activates, activationID)
	return "Activating Windows(R)...", f.activateErr
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Keys = esu.KeySet{
		{Year: "Year1", Key: year1Key},
		{Year: "Year2", Key: year2Key},
	}
	return &cfg
}

func record(id string, status esu.StatusCode) esu.Product {
	return esu.Product{
		Name:              "Windows(R), Extended Security Updates",
		ActivationID:      id,
		Status:            status,
		PartialProductKey: "XTMJ3",
	}
}

// newRemediator wires a Remediator whose platform guards pass.
func newRemediator(t *testing.T, cfg *config.Config, src inventory.Source, tool LicenseTool, dryRun bool) *Remediator {
	t.Helper()

	r := New(cfg, src, tool, dryRun)
	r.isElevated = func() bool { return true }
	r.osVersion = func() platform.OSVersion { return platform.OSVersion{Major: 10, Build: 19045} }
	r.editionInfo = func(ctx context.Context) (platform.Edition, error) {
		return platform.Edition{ProductName: "Windows 10 Pro", DisplayVersion: "22H2"}, nil
	}
	return r
}

func TestRunAlreadyCompliant(t *testing.T) {
	src := &fakeSource{snapshots: [][]esu.Product{{record(year1ID, esu.StatusLicensed)}}}
	tool := &fakeTool{}

	compliant, err := newRemediator(t, testConfig(), src, tool, false).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if !compliant {
		t.Error("Run() = false, want compliant")
	}
	if len(tool.installs) != 0 || len(tool.activates) != 0 {
		t.Error("licensed host must not trigger any tool invocation")
	}
	if src.calls != 1 {
		t.Errorf("inventory queried %d times, want 1", src.calls)
	}
}

func TestRunNotElevated(t *testing.T) {
	src := &fakeSource{}
	tool := &fakeTool{}

	r := newRemediator(t, testConfig(), src, tool, false)
	r.isElevated = func() bool { return false }

	_, err := r.Run(context.Background())
	if !errors.Is(err, ErrNotElevated) {
		t.Errorf("Run() error = %v, want ErrNotElevated", err)
	}
	if len(tool.installs) != 0 {
		t.Error("guard failure must not trigger tool invocations")
	}
	if src.calls != 0 {
		t.Error("guard failure must abort before the inventory query")
	}
}

func TestRunWrongOSVersion(t *testing.T) {
	src := &fakeSource{}
	tool := &fakeTool{}

	r := newRemediator(t, testConfig(), src, tool, false)
	r.osVersion = func() platform.OSVersion { return platform.OSVersion{Major: 6, Minor: 3, Build: 9600} }

	_, err := r.Run(context.Background())
	if !errors.Is(err, ErrUnsupportedOS) {
		t.Errorf("Run() error = %v, want ErrUnsupportedOS", err)
	}
	if len(tool.installs) != 0 {
		t.Error("guard failure must not trigger tool invocations")
	}
}

func TestRunInstallsAndVerifies(t *testing.T) {
	src := &fakeSource{snapshots: [][]esu.Product{
		nil, // nothing installed yet
		{record(year1ID, esu.StatusLicensed)},
	}}
	tool := &fakeTool{}

	compliant, err := newRemediator(t, testConfig(), src, tool, false).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if !compliant {
		t.Error("Run() = false, want compliant after successful activation")
	}

	if len(tool.installs) != 1 || tool.installs[0] != year1Key {
		t.Errorf("installs = %v, want the Year1 key", tool.installs)
	}
	if len(tool.activates) != 1 || tool.activates[0] != year1ID {
		t.Errorf("activates = %v, want the Year1 activation ID", tool.activates)
	}
	if src.calls != 2 {
		t.Errorf("inventory queried %d times, want snapshot and re-query", src.calls)
	}
}

func TestRunSelectsFirstYearWhenNothingLicensed(t *testing.T) {
	// Records exist for both years but neither is licensed: the first
	// configured year is still the target.
	src := &fakeSource{snapshots: [][]esu.Product{
		{record(year1ID, esu.StatusNotification), record(year2ID, esu.StatusUnlicensed)},
		{record(year1ID, esu.StatusLicensed)},
	}}
	tool := &fakeTool{}

	if _, err := newRemediator(t, testConfig(), src, tool, false).Run(context.Background()); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if len(tool.installs) != 1 || tool.installs[0] != year1Key {
		t.Errorf("installs = %v, want the Year1 key", tool.installs)
	}
}

func TestRunRespectsConfiguredOrder(t *testing.T) {
	cfg := testConfig()
	cfg.Keys = esu.KeySet{{Year: "Year2", Key: year2Key}}

	src := &fakeSource{snapshots: [][]esu.Product{
		nil,
		{record(year2ID, esu.StatusLicensed)},
	}}
	tool := &fakeTool{}

	compliant, err := newRemediator(t, cfg, src, tool, false).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if !compliant {
		t.Error("Run() = false, want compliant")
	}
	if len(tool.installs) != 1 || tool.installs[0] != year2Key {
		t.Errorf("installs = %v, want the Year2 key", tool.installs)
	}
	if len(tool.activates) != 1 || tool.activates[0] != year2ID {
		t.Errorf("activates = %v, want the Year2 activation ID", tool.activates)
	}
}

func TestRunToolErrorsAreWarnings(t *testing.T) {
	src := &fakeSource{snapshots: [][]esu.Product{
		nil,
		{record(year1ID, esu.StatusLicensed)},
	}}
	tool := &fakeTool{
		installErr:  errors.New("exit status 1"),
		activateErr: errors.New("exit status 1"),
	}

	compliant, err := newRemediator(t, testConfig(), src, tool, false).Run(context.Background())
	if err != nil {
		t.Fatalf("tool exit codes must not fail the run: %v", err)
	}
	if !compliant {
		t.Error("Run() = false, want the re-query verdict to win")
	}
	if len(tool.activates) != 1 {
		t.Error("activation must still run after a failed key install")
	}
}

func TestRunStillUnlicensedAfterTool(t *testing.T) {
	src := &fakeSource{snapshots: [][]esu.Product{
		{record(year1ID, esu.StatusNotification)},
		{record(year1ID, esu.StatusNotification)},
	}}
	tool := &fakeTool{}

	compliant, err := newRemediator(t, testConfig(), src, tool, false).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if compliant {
		t.Error("Run() = true, want false when the re-query shows no licensed record")
	}
	if len(tool.installs) != 1 {
		t.Error("remediation should have attempted the install")
	}
}

func TestRunPlaceholderKeyAborts(t *testing.T) {
	cfg := config.Default() // ships placeholder keys
	src := &fakeSource{}
	tool := &fakeTool{}

	_, err := newRemediator(t, &cfg, src, tool, false).Run(context.Background())
	if !errors.Is(err, esu.ErrKeyPlaceholder) {
		t.Errorf("Run() error = %v, want ErrKeyPlaceholder", err)
	}
	if len(tool.installs) != 0 {
		t.Error("placeholder key must never reach the tool")
	}
}

func TestRunEmptyKeyAborts(t *testing.T) {
	cfg := testConfig()
	cfg.Keys[0].Key = "   "

	src := &fakeSource{}
	tool := &fakeTool{}

	_, err := newRemediator(t, cfg, src, tool, false).Run(context.Background())
	if !errors.Is(err, esu.ErrKeyMissing) {
		t.Errorf("Run() error = %v, want ErrKeyMissing", err)
	}
	if len(tool.installs) != 0 {
		t.Error("empty key must never reach the tool")
	}
}

func TestRunDryRun(t *testing.T) {
	src := &fakeSource{snapshots: [][]esu.Product{
		{record(year1ID, esu.StatusNotification)},
	}}
	tool := &fakeTool{}

	compliant, err := newRemediator(t, testConfig(), src, tool, true).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if compliant {
		t.Error("dry run fixed nothing, Run() should report non-compliant")
	}
	if len(tool.installs) != 0 || len(tool.activates) != 0 {
		t.Error("dry run must not invoke the tool")
	}
	if src.calls != 1 {
		t.Errorf("dry run queried the inventory %d times, want 1", src.calls)
	}
}

func TestRunDryRunAlreadyCompliant(t *testing.T) {
	src := &fakeSource{snapshots: [][]esu.Product{{record(year1ID, esu.StatusLicensed)}}}
	tool := &fakeTool{}

	compliant, err := newRemediator(t, testConfig(), src, tool, true).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if !compliant {
		t.Error("dry run on a licensed host should report compliant")
	}
}

func TestRunInventoryErrorIsFatal(t *testing.T) {
	src := &fakeSource{errs: []error{errors.New("all license inventory providers failed")}}
	tool := &fakeTool{}

	if _, err := newRemediator(t, testConfig(), src, tool, false).Run(context.Background()); err == nil {
		t.Error("expected the inventory error to be fatal")
	}
	if len(tool.installs) != 0 {
		t.Error("inventory failure must not trigger tool invocations")
	}
}

func TestRunReQueryErrorIsFatal(t *testing.T) {
	src := &fakeSource{
		snapshots: [][]esu.Product{nil},
		errs:      []error{nil, errors.New("all license inventory providers failed")},
	}
	tool := &fakeTool{}

	_, err := newRemediator(t, testConfig(), src, tool, false).Run(context.Background())
	if err == nil {
		t.Fatal("expected the re-query error to be fatal")
	}
	if !strings.Contains(err.Error(), "re-query") {
		t.Errorf("error = %v, want re-query context", err)
	}
}

func TestMaskKeyInToolOutput(t *testing.T) {
	out := "Installed product key " + year1Key + " successfully."

	masked := maskKey(out, year1Key)
	if strings.Contains(masked, year1Key) {
		t.Error("raw key survived masking")
	}
	if !strings.Contains(masked, "J464C") {
		t.Error("masked key should keep the last group")
	}

	if got := maskKey("unchanged", ""); got != "unchanged" {
		t.Errorf("maskKey with empty key = %q", got)
	}
}
