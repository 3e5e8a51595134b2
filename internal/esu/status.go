// Package esu holds the domain model for Extended Security Updates (ESU)
// activation compliance: license status codes, inventory record snapshots,
// the ordered year→key configuration, and the pure predicates shared by the
// detection and remediation entry points.
package esu

import "fmt"

// StatusCode is the numeric license state reported by the Windows Software
// Licensing service for a single product record (the LicenseStatus property
// of SoftwareLicensingProduct).
type StatusCode int

// License status codes as reported by the licensing service.
// Only StatusLicensed counts as compliant; every grace state still means the
// entitlement is not fully activated.
const (
	StatusUnlicensed      StatusCode = 0
	StatusLicensed        StatusCode = 1
	StatusOOBGrace        StatusCode = 2
	StatusOOTGrace        StatusCode = 3
	StatusNonGenuineGrace StatusCode = 4
	StatusNotification    StatusCode = 5
	StatusExtendedGrace   StatusCode = 6
)

// String returns the licensing service's name for the status code.
func (s StatusCode) String() string {
	switch s {
	case StatusUnlicensed:
		return "Unlicensed"
	case StatusLicensed:
		return "Licensed"
	case StatusOOBGrace:
		return "OOBGrace"
	case StatusOOTGrace:
		return "OOTGrace"
	case StatusNonGenuineGrace:
		return "NonGenuineGrace"
	case StatusNotification:
		return "Notification"
	case StatusExtendedGrace:
		return "ExtendedGrace"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}
