package inventory

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	"golang.org/x/text/encoding/unicode"

	"github.com/gw37/ej-esu/internal/esu"
)

// licensingScript mirrors the native WQL query through Get-CimInstance.
// ConvertTo-Json -InputObject keeps a single record from collapsing out of
// its JSON array.
const licensingScript = `$ProgressPreference='SilentlyContinue';` +
	`$products = @(Get-CimInstance -ClassName SoftwareLicensingProduct -Filter "PartialProductKey IS NOT NULL" | Select-Object Name, ID, LicenseStatus, PartialProductKey);` +
	`ConvertTo-Json -Compress -InputObject $products`

type powershellProvider struct {
	// run is abstracted for testing.
	run func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// NewPowerShellProvider returns the subprocess fallback provider.
func NewPowerShellProvider() Provider {
	return &powershellProvider{run: runCommand}
}

func (*powershellProvider) Name() string {
	return "powershell"
}

func (p *powershellProvider) Products(ctx context.Context) ([]esu.Product, error) {
	encoded, err := encodeCommand(licensingScript)
	if err != nil {
		return nil, fmt.Errorf("encode licensing script: %w", err)
	}

	out, err := p.run(ctx, "powershell.exe", "-NoProfile", "-NonInteractive", "-EncodedCommand", encoded)
	if err != nil {
		return nil, fmt.Errorf("run powershell: %w", err)
	}

	return parseProducts(out)
}

// encodeCommand converts a script to the UTF-16LE base64 form that
// powershell.exe -EncodedCommand expects.
func encodeCommand(script string) (string, error) {
	uni := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)
	encoded, err := uni.NewEncoder().String(script)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString([]byte(encoded)), nil
}

// licenseRow matches the property names ConvertTo-Json emits for
// SoftwareLicensingProduct.
type licenseRow struct {
	Name              string `json:"Name"`
	ID                string `json:"ID"`
	LicenseStatus     int    `json:"LicenseStatus"`
	PartialProductKey string `json:"PartialProductKey"`
}

func parseProducts(data []byte) ([]esu.Product, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}

	// Older PowerShell collapses single-element pipelines to a bare object.
	if data[0] == '{' {
		data = append(append([]byte{'['}, data...), ']')
	}

	var rows []licenseRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("parse licensing JSON: %w", err)
	}

	products := make([]esu.Product, 0, len(rows))
	for _, row := range rows {
		products = append(products, esu.Product{
			Name:              row.Name,
			ActivationID:      row.ID,
			Status:            esu.StatusCode(row.LicenseStatus),
			PartialProductKey: row.PartialProductKey,
		})
	}

	return products, nil
}

// runCommand keeps stdout separate from stderr: stdout is parsed as JSON,
// stderr only decorates the error.
func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%w: %s", err, msg)
		}
		return nil, err
	}

	return stdout.Bytes(), nil
}
