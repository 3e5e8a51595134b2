package inventory

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/gw37/ej-esu/internal/esu"
)

const (
	year1ID = "f520e45e-7413-4a34-a497-d2765967d094"
	year2ID = "1043add5-23b1-4afb-9a0f-64343c8f3f8d"
)

type fakeProvider struct {
	name     string
	products []esu.Product
	err      error
	calls    int
}

func (f *fakeProvider) Name() string {
	return f.name
}

func (f *fakeProvider) Products(ctx context.Context) ([]esu.Product, error) {
	f.calls++
	return f.products, f.err
}

func TestChainFirstProviderWins(t *testing.T) {
	first := &fakeProvider{
		name:     "wmi",
		products: []esu.Product{{Name: "ESU Year 1", ActivationID: year1ID, Status: esu.StatusLicensed, PartialProductKey: "XTMJ3"}},
	}
	second := &fakeProvider{name: "powershell"}

	chain := NewChain(first, second)

	products, err := chain.Products(context.Background())
	if err != nil {
		t.Fatalf("Products() error: %v", err)
	}
	if len(products) != 1 {
		t.Fatalf("got %d products, want 1", len(products))
	}
	if second.calls != 0 {
		t.Error("fallback provider should not run when the first succeeds")
	}
}

func TestChainFallsBack(t *testing.T) {
	first := &fakeProvider{name: "wmi", err: errors.New("COM initialization failed")}
	second := &fakeProvider{
		name:     "powershell",
		products: []esu.Product{{Name: "ESU Year 1", ActivationID: year1ID, Status: esu.StatusNotification, PartialProductKey: "XTMJ3"}},
	}

	chain := NewChain(first, second)

	products, err := chain.Products(context.Background())
	if err != nil {
		t.Fatalf("Products() error: %v", err)
	}
	if len(products) != 1 {
		t.Fatalf("got %d products, want 1 from the fallback", len(products))
	}
	if first.calls != 1 || second.calls != 1 {
		t.Errorf("calls = %d/%d, want 1/1", first.calls, second.calls)
	}
}

func TestChainAllFail(t *testing.T) {
	first := &fakeProvider{name: "wmi", err: errors.New("COM initialization failed")}
	second := &fakeProvider{name: "powershell", err: errors.New("executable file not found")}

	chain := NewChain(first, second)

	_, err := chain.Products(context.Background())
	if err == nil {
		t.Fatal("expected error when every provider fails")
	}
	for _, name := range []string{"wmi", "powershell"} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("combined error %q does not mention provider %q", err, name)
		}
	}
}

func TestChainEmpty(t *testing.T) {
	_, err := NewChain().Products(context.Background())
	if !errors.Is(err, ErrNoProvider) {
		t.Errorf("error = %v, want ErrNoProvider", err)
	}
}

func TestSnapshotFilters(t *testing.T) {
	src := &fakeProvider{
		name: "wmi",
		products: []esu.Product{
			{Name: "Windows(R), Professional edition", ActivationID: "2de67392-b7a7-462a-b1ca-108dd189f588", Status: esu.StatusLicensed, PartialProductKey: "3V66T"},
			{Name: "Windows(R), Extended Security Updates Year 1", ActivationID: year1ID, Status: esu.StatusNotification, PartialProductKey: "XTMJ3"},
		},
	}
	reverse := map[string]string{year1ID: "Year1", year2ID: "Year2"}

	products, err := Snapshot(context.Background(), src, reverse)
	if err != nil {
		t.Fatalf("Snapshot() error: %v", err)
	}
	if len(products) != 1 {
		t.Fatalf("got %d products, want only the ESU record", len(products))
	}
	if products[0].ActivationID != year1ID {
		t.Errorf("kept wrong record: %+v", products[0])
	}
}

func TestSnapshotPropagatesError(t *testing.T) {
	src := &fakeProvider{name: "wmi", err: errors.New("query failed")}

	if _, err := Snapshot(context.Background(), src, nil); err == nil {
		t.Error("expected source error to propagate")
	}
}

func TestSnapshotEmptyIsValid(t *testing.T) {
	src := &fakeProvider{name: "wmi"}

	products, err := Snapshot(context.Background(), src, map[string]string{year1ID: "Year1"})
	if err != nil {
		t.Fatalf("Snapshot() error: %v", err)
	}
	if len(products) != 0 {
		t.Errorf("got %d products, want none", len(products))
	}
}
