package inventory

import (
	"context"

	"github.com/gw37/ej-esu/internal/esu"
	"github.com/gw37/ej-esu/internal/wmi"
)

const (
	licensingNamespace = "root\\CIMV2"

	// PartialProductKey IS NOT NULL keeps the result set to records that
	// have key material installed; detection applies the same reduction.
	licensingQuery = "SELECT Name, ID, LicenseStatus, PartialProductKey FROM SoftwareLicensingProduct WHERE PartialProductKey IS NOT NULL"
)

type wmiProvider struct{}

// NewWMIProvider returns the native COM/OLE licensing provider.
func NewWMIProvider() Provider {
	return wmiProvider{}
}

func (wmiProvider) Name() string {
	return "wmi"
}

func (wmiProvider) Products(ctx context.Context) ([]esu.Product, error) {
	rows, err := wmi.Query(ctx, licensingNamespace, licensingQuery)
	if err != nil {
		return nil, err
	}

	products := make([]esu.Product, 0, len(rows))
	for _, row := range rows {
		var p esu.Product
		p.Name, _ = wmi.GetPropertyString(row, "Name")
		p.ActivationID, _ = wmi.GetPropertyString(row, "ID")
		if status, ok := wmi.GetPropertyInt(row, "LicenseStatus"); ok {
			p.Status = esu.StatusCode(status)
		}
		p.PartialProductKey, _ = wmi.GetPropertyString(row, "PartialProductKey")
		products = append(products, p)
	}

	return products, nil
}
